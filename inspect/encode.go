package inspect

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// cborEncMode uses canonical mode so equal snapshots encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("inspect: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeCBOR serializes a Snapshot to CBOR bytes.
func EncodeCBOR(s *Snapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// DecodeCBOR deserializes a Snapshot from CBOR bytes.
func DecodeCBOR(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// EncodeYAML renders a Snapshot as YAML.
func EncodeYAML(s *Snapshot) ([]byte, error) {
	return yaml.Marshal(s)
}

// DecodeYAML parses a Snapshot written by EncodeYAML.
func DecodeYAML(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("inspect: unmarshal snapshot: %w", err)
	}
	return &s, nil
}

// Encode serializes s in the named format: "yaml", "cbor" or "text".
func Encode(s *Snapshot, format string) ([]byte, error) {
	switch format {
	case "yaml":
		return EncodeYAML(s)
	case "cbor":
		return EncodeCBOR(s)
	case "text":
		var buf bytes.Buffer
		if err := WriteText(&buf, s); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("inspect: unknown format %q", format)
}

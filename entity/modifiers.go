package entity

import "github.com/chazu/wmbridge/object"

// X modifier masks.
const (
	ModShift   uint16 = 1 << 0
	ModLock    uint16 = 1 << 1
	ModControl uint16 = 1 << 2
	Mod1       uint16 = 1 << 3
	Mod2       uint16 = 1 << 4
	Mod3       uint16 = 1 << 5
	Mod4       uint16 = 1 << 6
	Mod5       uint16 = 1 << 7
	ModAny     uint16 = 1 << 15
)

var modifierNames = []struct {
	mask uint16
	name string
}{
	{ModShift, "Shift"},
	{ModLock, "Lock"},
	{ModControl, "Control"},
	{Mod1, "Mod1"},
	{Mod2, "Mod2"},
	{Mod3, "Mod3"},
	{Mod4, "Mod4"},
	{Mod5, "Mod5"},
}

// ModifierMask returns the mask for one modifier name, or 0 if unknown.
func ModifierMask(name string) uint16 {
	switch name {
	case "Ctrl":
		return ModControl
	case "Any":
		return ModAny
	}
	for _, m := range modifierNames {
		if m.name == name {
			return m.mask
		}
	}
	return 0
}

// ParseModifiers folds a sequence of modifier names into a mask. Unknown
// names contribute nothing; non-string entries are a type error.
func ParseModifiers(seq object.Sequence) (uint16, error) {
	var mask uint16
	for i := 0; i < seq.Len(); i++ {
		name, err := object.CheckString(seq.At(i))
		if err != nil {
			return 0, err
		}
		mask |= ModifierMask(name)
	}
	return mask, nil
}

// ModifierNames lists the modifiers set in mask, lowest bit first. ModAny
// is not listed.
func ModifierNames(mask uint16) object.List {
	var out object.List
	for _, m := range modifierNames {
		if mask&m.mask != 0 {
			out = append(out, m.name)
		}
	}
	return out
}

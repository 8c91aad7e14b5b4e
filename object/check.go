package object

import "math"

// ---------------------------------------------------------------------------
// Boundary argument checks
// ---------------------------------------------------------------------------

// toNumber converts the numeric representations accepted at the boundary.
func toNumber(v Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// CheckNumber returns v as a float64.
func CheckNumber(v Value) (float64, error) {
	n, ok := toNumber(v)
	if !ok {
		return 0, TypeError("number", v)
	}
	return n, nil
}

// integral returns v as a whole number, still as a float64.
func integral(v Value) (float64, error) {
	n, ok := toNumber(v)
	if !ok || n != math.Trunc(n) || math.IsInf(n, 0) {
		return 0, TypeError("integer", v)
	}
	return n, nil
}

// CheckInteger returns v as an int. Numbers with a fractional part are
// rejected, and so are whole numbers outside the range of int.
func CheckInteger(v Value) (int, error) {
	n, err := integral(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt || n >= -math.MinInt {
		return 0, RangeError(math.MinInt, math.MaxInt, n)
	}
	return int(n), nil
}

// CheckBoolean returns v as a bool.
func CheckBoolean(v Value) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, TypeError("boolean", v)
	}
	return b, nil
}

// CheckString returns v as a string.
func CheckString(v Value) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", TypeError("string", v)
	}
	return s, nil
}

// CheckSequence returns v as a Sequence.
func CheckSequence(v Value) (Sequence, error) {
	s, ok := v.(Sequence)
	if !ok {
		return nil, TypeError("table", v)
	}
	return s, nil
}

// CheckNumberRange returns v as a float64 within [min, max].
func CheckNumberRange(v Value, min, max float64) (float64, error) {
	n, err := CheckNumber(v)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, RangeError(min, max, n)
	}
	return n, nil
}

// OptNumberRange is CheckNumberRange with def used when v is nil.
func OptNumberRange(v Value, def, min, max float64) (float64, error) {
	if v == nil {
		return def, nil
	}
	return CheckNumberRange(v, min, max)
}

// CheckIntegerRange returns v as an int within [min, max].
func CheckIntegerRange(v Value, min, max int) (int, error) {
	n, err := integral(v)
	if err != nil {
		return 0, err
	}
	if n < float64(min) || n > float64(max) {
		return 0, RangeError(float64(min), float64(max), n)
	}
	return int(n), nil
}

// OptIntegerRange is CheckIntegerRange with def used when v is nil.
func OptIntegerRange(v Value, def, min, max int) (int, error) {
	if v == nil {
		return def, nil
	}
	return CheckIntegerRange(v, min, max)
}

// GetOptNumber reads an optional numeric field from a table.
func GetOptNumber(t Fielder, name string, def float64) (float64, error) {
	v := t.Field(name)
	if v == nil {
		return def, nil
	}
	return CheckNumber(v)
}

// GetOptInteger reads an optional integer field from a table.
func GetOptInteger(t Fielder, name string, def int) (int, error) {
	v := t.Field(name)
	if v == nil {
		return def, nil
	}
	return CheckInteger(v)
}

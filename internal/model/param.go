package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidParameter is returned when an indicator parameter cannot be
// coerced to the requested numeric type.
var ErrInvalidParameter = errors.New("invalid parameter")

// Param is one loosely-typed indicator parameter. User configs carry numbers
// and numeric strings interchangeably ("period": 14 vs "period": "14"), so a
// Param remembers which form it was given and coerces on access instead of
// forcing a type at decode time.
type Param struct {
	kind paramKind
	num  float64
	str  string
}

type paramKind uint8

const (
	paramNone paramKind = iota
	paramNumber
	paramString
)

// NumberParam wraps a numeric parameter value.
func NumberParam(v float64) Param { return Param{kind: paramNumber, num: v} }

// StringParam wraps a string parameter value.
func StringParam(s string) Param { return Param{kind: paramString, str: s} }

// Int coerces the parameter to an int. Numeric strings are parsed; floats are
// truncated (matching how JSON numbers arrive).
func (p Param) Int() (int, error) {
	switch p.kind {
	case paramNumber:
		return int(p.num), nil
	case paramString:
		n, err := strconv.Atoi(strings.TrimSpace(p.str))
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidParameter, p.str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: empty value", ErrInvalidParameter)
	}
}

// Float coerces the parameter to a float64.
func (p Param) Float() (float64, error) {
	switch p.kind {
	case paramNumber:
		return p.num, nil
	case paramString:
		f, err := strconv.ParseFloat(strings.TrimSpace(p.str), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidParameter, p.str)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("%w: empty value", ErrInvalidParameter)
	}
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (p *Param) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*p = NumberParam(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = StringParam(s)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidParameter, string(data))
}

// MarshalJSON writes the parameter back in the form it was given.
func (p Param) MarshalJSON() ([]byte, error) {
	if p.kind == paramString {
		return json.Marshal(p.str)
	}
	return json.Marshal(p.num)
}

// Params is the parameter map of one indicator config.
type Params map[string]Param

// Int returns the named parameter as an int, or def when absent.
func (ps Params) Int(key string, def int) (int, error) {
	p, ok := ps[key]
	if !ok {
		return def, nil
	}
	n, err := p.Int()
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return n, nil
}

// Float returns the named parameter as a float64, or def when absent.
func (ps Params) Float(key string, def float64) (float64, error) {
	p, ok := ps[key]
	if !ok {
		return def, nil
	}
	f, err := p.Float()
	if err != nil {
		return 0, fmt.Errorf("param %s: %w", key, err)
	}
	return f, nil
}

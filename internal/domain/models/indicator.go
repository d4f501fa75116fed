package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IndicatorValue is either a number or a categorical label ("Bullish", "BUY").
type IndicatorValue struct {
	num     float64
	text    string
	numeric bool
}

// Num builds a numeric indicator value.
func Num(v float64) IndicatorValue { return IndicatorValue{num: v, numeric: true} }

// Text builds a categorical indicator value.
func Text(s string) IndicatorValue { return IndicatorValue{text: s} }

func (v IndicatorValue) IsNumeric() bool { return v.numeric }

// Float coerces the value to a number. Categorical values are parsed.
func (v IndicatorValue) Float() (float64, bool) {
	if v.numeric {
		return v.num, true
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v IndicatorValue) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	}
	return v.text
}

func (v IndicatorValue) IsZero() bool { return !v.numeric && v.text == "" }

func (v IndicatorValue) MarshalJSON() ([]byte, error) {
	if v.numeric {
		return json.Marshal(v.num)
	}
	return json.Marshal(v.text)
}

func (v *IndicatorValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = IndicatorValue{}
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	val, ok := valueFromRaw(raw)
	if !ok {
		return fmt.Errorf("indicator value: unsupported json %s", string(b))
	}
	*v = val
	return nil
}

// UnmarshalYAML accepts scalars so seed files can use plain numbers and strings.
func (v *IndicatorValue) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	val, ok := valueFromRaw(raw)
	if !ok {
		return fmt.Errorf("indicator value: unsupported yaml %v", raw)
	}
	*v = val
	return nil
}

func valueFromRaw(raw interface{}) (IndicatorValue, bool) {
	switch x := raw.(type) {
	case float64:
		return Num(x), true
	case float32:
		return Num(float64(x)), true
	case int:
		return Num(float64(x)), true
	case int64:
		return Num(float64(x)), true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Text(x.String()), true
		}
		return Num(f), true
	case string:
		return Text(x), true
	case bool:
		return Text(strconv.FormatBool(x)), true
	default:
		return IndicatorValue{}, false
	}
}

// IndicatorSnapshot is the per-cycle map of indicator name to value.
type IndicatorSnapshot map[string]IndicatorValue

// SnapshotFromRaw converts a decoded JSON object. Unsupported values are dropped.
func SnapshotFromRaw(raw map[string]interface{}) IndicatorSnapshot {
	out := make(IndicatorSnapshot, len(raw))
	for k, r := range raw {
		if v, ok := valueFromRaw(r); ok {
			out[k] = v
		}
	}
	return out
}

func (s IndicatorSnapshot) Get(key string) (IndicatorValue, bool) {
	v, ok := s[key]
	return v, ok
}

// Float returns the numeric value of key when present and coercible.
func (s IndicatorSnapshot) Float(key string) (float64, bool) {
	v, ok := s[key]
	if !ok {
		return 0, false
	}
	return v.Float()
}

// Label returns the string form of key, or "" when absent.
func (s IndicatorSnapshot) Label(key string) string {
	v, ok := s[key]
	if !ok {
		return ""
	}
	return v.String()
}

func (s IndicatorSnapshot) Clone() IndicatorSnapshot {
	out := make(IndicatorSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Subset keeps only the listed keys that are present.
func (s IndicatorSnapshot) Subset(keys ...string) IndicatorSnapshot {
	out := make(IndicatorSnapshot, len(keys))
	for _, k := range keys {
		if v, ok := s[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Package wire defines the value model that crosses the provider boundary.
//
// Providers exchange plain string-keyed objects whose fields may be absent,
// null or differently typed from call to call. Params is that object shape:
// a map of raw JSON values with a deep two-way codec (NewParams/Translate)
// and defensive single-field accessors that substitute explicit defaults
// instead of failing. The codec is recursive by construction — nested maps
// and sequences are converted all the way down — so call sites never
// hand-convert nested structures.
package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// errorKey is the conventional key under which providers report failures.
const errorKey = "error"

// Params is a loosely-typed, string-keyed value as seen at the provider
// boundary.
type Params map[string]json.RawMessage

// NewParams deep-converts any JSON-serializable value into Params.
// A nil value yields empty Params.
func NewParams(v any) (Params, error) {
	if v == nil {
		return Params{}, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("error marshalling params: %w", err)
	}
	var params Params
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, fmt.Errorf("error unmarshalling params: %w", err)
	}
	return params, nil
}

// Translate deep-converts the Params into v, which must be a pointer.
// Nested objects and sequences are converted recursively.
func (p Params) Translate(v any) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error marshalling params: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("error unmarshalling params: %w", err)
	}
	return nil
}

// Has reports whether the key is present, regardless of its value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// StringOr returns the string at key, or def when the key is absent, null
// or not a string.
func (p Params) StringOr(key, def string) string {
	raw, ok := p[key]
	if !ok {
		return def
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return def
	}
	return s
}

// IntOr returns the integer at key, or def when absent or unreadable.
// Both JSON numbers and numeric strings are accepted, since providers are
// inconsistent about how they encode codes and ids.
func (p Params) IntOr(key string, def int64) int64 {
	raw, ok := p[key]
	if !ok {
		return def
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var parsed int64
		if _, err := fmt.Sscanf(s, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return def
}

// Uint64Or returns the unsigned integer at key, or def when absent,
// negative or unreadable.
func (p Params) Uint64Or(key string, def uint64) uint64 {
	n := p.IntOr(key, -1)
	if n < 0 {
		return def
	}
	return uint64(n)
}

// BoolOr returns the boolean at key, or def when absent or unreadable.
func (p Params) BoolOr(key string, def bool) bool {
	raw, ok := p[key]
	if !ok {
		return def
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return def
	}
	return b
}

// ObjectOr returns the nested object at key, or nil when absent or not an
// object.
func (p Params) ObjectOr(key string) Params {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	var nested Params
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil
	}
	return nested
}

// SliceOr returns the ordered sequence of objects at key, or nil when
// absent or not a sequence. Order is preserved.
func (p Params) SliceOr(key string) []Params {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	var seq []Params
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil
	}
	return seq
}

// RawOr returns the raw JSON at key, or nil when absent.
func (p Params) RawOr(key string) json.RawMessage {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	return raw
}

// RawSliceOr returns the ordered sequence at key as raw JSON values, or
// nil when absent or not a sequence. Unlike SliceOr the elements may be
// scalars.
func (p Params) RawSliceOr(key string) []json.RawMessage {
	raw, ok := p[key]
	if !ok {
		return nil
	}
	var seq []json.RawMessage
	if err := json.Unmarshal(raw, &seq); err != nil {
		return nil
	}
	return seq
}

// Err returns an error when the Params carry one under the conventional
// "error" key, nil otherwise. Providers disagree on the value's shape: a
// string message, a boolean or numeric flag with the message in a sibling
// "message" field, or a nested object carrying its own message. Any
// present value other than null, false, 0 and "" counts as a failure.
// The returned message may be empty when the provider supplied none;
// callers substitute their own default.
func (p Params) Err() error {
	raw, ok := p[errorKey]
	if !ok {
		return nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return errors.New(p.StringOr("message", ""))
	}

	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		if !v {
			return nil
		}
	case float64:
		if v == 0 {
			return nil
		}
	case string:
		if v == "" {
			return nil
		}
		return errors.New(v)
	case map[string]any:
		if m := p.ObjectOr(errorKey).StringOr("message", ""); m != "" {
			return errors.New(m)
		}
	}

	// Truthy flag without an inline message: the message, if any, lives
	// in a sibling field.
	return errors.New(p.StringOr("message", ""))
}

// NewErrorParams builds Params carrying an error message under the
// conventional "error" key.
func NewErrorParams(msg string) Params {
	raw, _ := json.Marshal(msg)
	return Params{errorKey: raw}
}

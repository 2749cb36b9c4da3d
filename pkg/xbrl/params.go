package xbrl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cast"
)

// Param is one named call parameter.
type Param struct {
	Key   string
	Value interface{}
}

// Params is an ordered parameter list. Encoding keeps insertion order.
type Params []Param

// NewParams builds Params from alternating keys and values. A trailing key
// without a value is ignored.
func NewParams(keyValues ...interface{}) Params {
	params := make(Params, 0, len(keyValues)/2)

	for i := 0; i+1 < len(keyValues); i += 2 {
		params = params.Set(cast.ToString(keyValues[i]), keyValues[i+1])
	}

	return params
}

// Get returns the value stored under key.
func (p Params) Get(key string) (interface{}, bool) {
	for _, param := range p {
		if param.Key == key {
			return param.Value, true
		}
	}

	return nil, false
}

// GetString returns the value under key rendered as a string.
func (p Params) GetString(key string) (string, bool) {
	value, ok := p.Get(key)
	if !ok {
		return "", false
	}

	return cast.ToString(value), true
}

// Has reports whether key is present.
func (p Params) Has(key string) bool {
	_, ok := p.Get(key)

	return ok
}

// Set returns a copy of p with key set to value. An existing key keeps its
// position.
func (p Params) Set(key string, value interface{}) Params {
	out := p.Clone()

	for i := range out {
		if out[i].Key == key {
			out[i].Value = value

			return out
		}
	}

	return append(out, Param{Key: key, Value: value})
}

// Without returns a copy of p with key removed.
func (p Params) Without(key string) Params {
	out := make(Params, 0, len(p))

	for _, param := range p {
		if param.Key != key {
			out = append(out, param)
		}
	}

	return out
}

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}

	out := make(Params, len(p))
	copy(out, p)

	return out
}

// Values converts p to url.Values. Slice values become repeated keys.
func (p Params) Values() (url.Values, error) {
	values := make(url.Values, len(p))

	for _, param := range p {
		strs, err := stringValues(param.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", param.Key, err)
		}

		values[param.Key] = append(values[param.Key], strs...)
	}

	return values, nil
}

// Encode renders p in URL-encoded form, preserving order.
func (p Params) Encode() (string, error) {
	var builder strings.Builder

	for _, param := range p {
		strs, err := stringValues(param.Value)
		if err != nil {
			return "", fmt.Errorf("parameter %q: %w", param.Key, err)
		}

		for _, str := range strs {
			if builder.Len() > 0 {
				builder.WriteByte('&')
			}

			builder.WriteString(url.QueryEscape(param.Key))
			builder.WriteByte('=')
			builder.WriteString(url.QueryEscape(str))
		}
	}

	return builder.String(), nil
}

// MarshalJSON renders p as a JSON object, preserving order.
func (p Params) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(param.Key)
		if err != nil {
			return nil, fmt.Errorf("encoding key %q: %w", param.Key, err)
		}

		value, err := json.Marshal(param.Value)
		if err != nil {
			return nil, fmt.Errorf("encoding value of %q: %w", param.Key, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func stringValues(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{""}, nil
	case []string:
		return v, nil
	case []interface{}:
		return cast.ToStringSliceE(v)
	default:
		str, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("unsupported value: %w", err)
		}

		return []string{str}, nil
	}
}

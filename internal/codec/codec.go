// Package codec serializes the per-region checkpoint map into the single
// string value it is persisted as.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrInvalidKey is returned by Encode for a region that is not valid UTF-8.
// JSON would rewrite such keys, so distinct regions could collide.
var ErrInvalidKey = errors.New("region key is not valid UTF-8")

// ErrMalformedData is returned by Decode when the input is not a valid
// region→timestamp object.
var ErrMalformedData = errors.New("malformed region checkpoint data")

// JSON encodes the map as a JSON object, e.g. {"JP":2000,"US":1000}.
// Keys are written in sorted order, so equal maps encode identically.
type JSON struct{}

// Encode returns the JSON text for m. A nil map encodes as {}.
func (JSON) Encode(m map[string]int64) (string, error) {
	if m == nil {
		m = map[string]int64{}
	}
	for k := range m {
		if !utf8.ValidString(k) {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding region checkpoints: %w", err)
	}
	return string(data), nil
}

// Decode parses text produced by Encode. JSON null decodes to an empty map.
func (JSON) Decode(text string) (map[string]int64, error) {
	var m map[string]int64
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m, nil
}

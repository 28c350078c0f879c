package cache

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Canonicalize converts an arbitrary cache key into the byte string that is
// hashed into a filename.
//
// Strings and byte slices are used verbatim, so a plain API path keys the
// same file no matter how often it is opened. Composite values are encoded
// as JSON with map keys sorted at every level, so two maps with the same
// content always produce the same bytes regardless of iteration order.
func Canonicalize(key any) ([]byte, error) {
	switch k := key.(type) {
	case string:
		return []byte(k), nil
	case []byte:
		return k, nil
	case fmt.Stringer:
		return []byte(k.String()), nil
	}

	// Round-trip through JSON first so structs, typed maps and slices all
	// collapse into map[string]any / []any before ordering.
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, fmt.Errorf("marshal cache key: %w", err)
	}
	// UseNumber keeps integers beyond 2^53 exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("normalize cache key: %w", err)
	}
	return canonicalize(generic)
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []byte("{")
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := canonicalize(val[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		return append(out, '}'), nil
	case []any:
		out := []byte("[")
		for i, item := range val {
			if i > 0 {
				out = append(out, ',')
			}
			b, err := canonicalize(item)
			if err != nil {
				return nil, err
			}
			out = append(out, b...)
		}
		return append(out, ']'), nil
	case json.Number:
		return []byte(val.String()), nil
	default:
		return json.Marshal(val)
	}
}

// Digest returns the fixed-length (16 hex chars) filename for canonical key bytes.
func Digest(canonical []byte) string {
	var sum [8]byte
	h := xxhash.Sum64(canonical)
	for i := 7; i >= 0; i-- {
		sum[i] = byte(h)
		h >>= 8
	}
	return hex.EncodeToString(sum[:])
}

// KeyString is a convenience that canonicalizes and hashes in one step.
// It is the key used by the redis backend.
func KeyString(key any) (string, error) {
	canonical, err := Canonicalize(key)
	if err != nil {
		return "", err
	}
	return "storefront:" + Digest(canonical), nil
}

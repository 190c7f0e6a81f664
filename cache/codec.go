package cache

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes v for a byte oriented tier. msgpack keeps field names in
// the payload, so values written by one build decode in another as long as
// the fields line up.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to marshal value: %w", err)
	}
	return data, nil
}

// Decode is the inverse of Encode.
func Decode[T any](data []byte) (T, error) {
	var result T
	if err := msgpack.Unmarshal(data, &result); err != nil {
		var zero T
		return zero, fmt.Errorf("cache: failed to unmarshal value: %w", err)
	}
	return result, nil
}

package query

import (
	"encoding/json"
	"fmt"
)

// Key identifies a cached read: an operation name followed by its parameters. Elements
// must be primitives (strings, numbers, booleans).
type Key []any

// String is the stable form of the key used to index the cache.
func (k Key) String() string {
	data, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprint([]any(k))
	}
	return string(data)
}

// Namespace is the operation name, the first element of the key.
func (k Key) Namespace() string {
	if len(k) == 0 {
		return ""
	}
	if s, ok := k[0].(string); ok {
		return s
	}
	return fmt.Sprint(k[0])
}

// HasPrefix reports whether the leading elements of k equal prefix. An empty prefix
// matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if encodeElem(k[i]) != encodeElem(prefix[i]) {
			return false
		}
	}
	return true
}

func (k Key) clone() Key {
	return append(Key(nil), k...)
}

func encodeElem(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}

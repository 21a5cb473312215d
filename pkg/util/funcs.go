package util

import (
	"fmt"
	"hash/fnv"
)

// Hash returns a short, stable digest of s for use in cache keys.
func Hash(s string) string {
	hasher := fnv.New64a()
	hasher.Write([]byte(s))
	return fmt.Sprintf("%x", hasher.Sum64())
}

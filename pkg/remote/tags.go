package remote

import (
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"
)

// ParseTags turns the free-text tag field into a set. All whitespace is removed before
// splitting on commas, and empty tags are dropped.
func ParseTags(input string) mapset.Set[string] {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, input)

	tags := mapset.NewSet[string]()
	for _, tag := range strings.Split(stripped, ",") {
		if tag == "" {
			continue
		}
		tags.Add(tag)
	}
	return tags
}

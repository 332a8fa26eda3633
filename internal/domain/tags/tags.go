// Package tags normalizes free-text keywords into atomic tags and computes
// tag-set overlap.
package tags

import "strings"

// separator joins related terms inside a single expansion element.
const separator = ","

// Normalize trims and lower-cases a single term.
func Normalize(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}

// Flatten splits every element on commas, normalizes each fragment, drops
// empty fragments and duplicates, and keeps first-seen order. Applying it to
// its own output returns the same slice contents.
func Flatten(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, element := range raw {
		for _, fragment := range strings.Split(element, separator) {
			t := Normalize(fragment)
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// Clean trims the input keywords and drops blanks and case-insensitive
// duplicates. Original spelling of the first occurrence is kept.
func Clean(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		trimmed := strings.TrimSpace(k)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

// Set is a lookup set of normalized tags.
type Set map[string]struct{}

// NewSet builds a Set from already flattened or raw terms.
func NewSet(terms []string) Set {
	s := make(Set, len(terms))
	for _, t := range terms {
		if n := Normalize(t); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports whether term is in the set.
func (s Set) Has(term string) bool {
	_, ok := s[Normalize(term)]
	return ok
}

// Shared returns the members of candidate that are in s, in candidate order,
// each counted once.
func (s Set) Shared(candidate []string) []string {
	var out []string
	counted := make(map[string]struct{}, len(candidate))
	for _, t := range candidate {
		n := Normalize(t)
		if _, ok := s[n]; !ok {
			continue
		}
		if _, dup := counted[n]; dup {
			continue
		}
		counted[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Keys returns the set members in no particular order.
func (s Set) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

package intent

import (
	"sort"
	"strings"
)

// Entities are the values pulled out of one match. They live for exactly one
// handler call.
type Entities struct {
	values map[string]string
	match  *Match
}

func (e Entities) Get(name string) string {
	return e.values[name]
}

func (e Entities) Lookup(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

func (e Entities) Has(name string) bool {
	_, ok := e.values[name]
	return ok
}

func (e Entities) Len() int {
	return len(e.values)
}

// Names lists the extracted entity names in sorted order.
func (e Entities) Names() []string {
	out := make([]string, 0, len(e.values))
	for k := range e.values {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Match gives handlers raw access to the match the entities came from.
func (e Entities) Match() *Match {
	return e.match
}

// Extract resolves every entity of the match.
//
// Named groups come first: each group named after an entity is tried in
// pattern order. Then the explicit candidate indices in groups are tried in
// their declared order. The first candidate that took part in the match and
// is non-empty after trimming wins. Entities with no such candidate are left
// out of the result.
func Extract(m *Match, groups map[string][]int) Entities {
	ents := Entities{values: make(map[string]string), match: m}
	if m == nil {
		return ents
	}

	for _, name := range m.groupNames() {
		if v, ok := firstNonEmpty(m, m.Named(name)); ok {
			ents.values[name] = v
		}
	}

	for name, indices := range groups {
		if ents.Has(name) {
			continue
		}
		if v, ok := firstNonEmpty(m, indices); ok {
			ents.values[name] = v
		}
	}

	return ents
}

func firstNonEmpty(m *Match, indices []int) (string, bool) {
	for _, i := range indices {
		s, ok := m.Group(i)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}

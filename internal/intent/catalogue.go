package intent

import (
	"errors"
	"fmt"
	"regexp"

	"marvin/internal/capability"
)

// Handler turns the extracted entities of an utterance into a reply.
type Handler func(e Entities, text string) string

// Definition binds one pattern to one handler.
type Definition struct {
	Name    string
	Pattern *regexp.Regexp

	// Entities maps an entity name to candidate group indices in priority
	// order. Named groups do not need an entry here.
	Entities map[string][]int

	Handler Handler

	// Requires is resolved on every dispatch, never at construction, so a
	// collaborator that failed to start only disables its own intents.
	Requires func() capability.Availability
}

// Pattern compiles expr as a case-insensitive pattern.
func Pattern(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// Catalogue is the ordered, read-only list of intents.
type Catalogue struct {
	defs  []Definition
	index map[string]int
}

var (
	ErrEmptyName       = errors.New("intent has no name")
	ErrDuplicateName   = errors.New("duplicate intent name")
	ErrNoPattern       = errors.New("intent has no pattern")
	ErrNoHandler       = errors.New("intent has no handler")
	ErrGroupOutOfRange = errors.New("entity group index out of range")
)

func NewCatalogue(defs ...Definition) (*Catalogue, error) {
	c := &Catalogue{
		defs:  make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptyName)
		}
		if _, dup := c.index[d.Name]; dup {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrDuplicateName)
		}
		if d.Pattern == nil {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrNoPattern)
		}
		if d.Handler == nil {
			return nil, fmt.Errorf("%s: %w", d.Name, ErrNoHandler)
		}
		groups := d.Pattern.NumSubexp()
		for ent, indices := range d.Entities {
			for _, g := range indices {
				if g < 0 || g > groups {
					return nil, fmt.Errorf("%s: entity %q group %d of %d: %w",
						d.Name, ent, g, groups, ErrGroupOutOfRange)
				}
			}
		}

		c.index[d.Name] = len(c.defs)
		c.defs = append(c.defs, d)
	}

	return c, nil
}

// MustCatalogue panics on a malformed catalogue. A bad entry is a
// programming error, not something to recover from at runtime.
func MustCatalogue(defs ...Definition) *Catalogue {
	c, err := NewCatalogue(defs...)
	if err != nil {
		panic(fmt.Sprintf("intent catalogue: %v", err))
	}
	return c
}

func (c *Catalogue) Len() int {
	return len(c.defs)
}

func (c *Catalogue) Names() []string {
	out := make([]string, len(c.defs))
	for i, d := range c.defs {
		out[i] = d.Name
	}
	return out
}

func (c *Catalogue) Lookup(name string) (Definition, bool) {
	i, ok := c.index[name]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// First returns the earliest definition whose pattern occurs in text.
func (c *Catalogue) First(text string) (Definition, *Match, bool) {
	for _, d := range c.defs {
		if m := newMatch(d.Pattern, text); m != nil {
			return d, m, true
		}
	}
	return Definition{}, nil, false
}

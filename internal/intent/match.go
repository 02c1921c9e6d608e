package intent

import "regexp"

// Match is one successful search of a pattern inside an utterance.
type Match struct {
	text  string
	loc   []int
	names []string
}

func newMatch(re *regexp.Regexp, text string) *Match {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	return &Match{text: text, loc: loc, names: re.SubexpNames()}
}

// NumGroups is the number of capture groups, not counting group 0.
func (m *Match) NumGroups() int {
	return len(m.loc)/2 - 1
}

// Group returns the text captured by group i. The flag is false when i is
// out of range or the group did not take part in the match, which happens
// for groups that live in an alternation branch other than the one taken.
func (m *Match) Group(i int) (string, bool) {
	if i < 0 || i > m.NumGroups() {
		return "", false
	}
	start, end := m.loc[2*i], m.loc[2*i+1]
	if start < 0 {
		return "", false
	}
	return m.text[start:end], true
}

// Text is the whole matched substring.
func (m *Match) Text() string {
	s, _ := m.Group(0)
	return s
}

// Named returns the indices of every group carrying name, leftmost first.
func (m *Match) Named(name string) []int {
	var idx []int
	for i, n := range m.names {
		if i > 0 && n == name {
			idx = append(idx, i)
		}
	}
	return idx
}

func (m *Match) groupNames() []string {
	seen := make(map[string]bool)
	var out []string
	for i, n := range m.names {
		if i == 0 || n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

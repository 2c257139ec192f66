package provenance

// Match returns the index of the candidate sharing the most tokens with
// target, along with that score. Ties keep the earliest candidate. ok is false
// when no candidate shares a single token.
func Match(candidates []string, target string) (index, score int, ok bool) {
	return NewMatcher(candidates).Match(target)
}

// Matcher caches the token sets of a fixed candidate list so that many
// targets can be matched against the same document.
type Matcher struct {
	sets []map[string]struct{}
}

// NewMatcher tokenizes candidates once.
func NewMatcher(candidates []string) *Matcher {
	m := &Matcher{sets: make([]map[string]struct{}, len(candidates))}
	for i, c := range candidates {
		m.sets[i] = TokenSet(c)
	}
	return m
}

// Match behaves like the package-level Match over the cached candidates.
func (m *Matcher) Match(target string) (index, score int, ok bool) {
	want := TokenSet(target)
	index = -1
	for i, set := range m.sets {
		s := Overlap(want, set)
		if s > score {
			index, score = i, s
		}
	}
	return index, score, index >= 0
}

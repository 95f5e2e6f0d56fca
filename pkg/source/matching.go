package source

import "strings"

// Matches implements the common matching semantics every source applies
// to its candidate strings, per §4.1:
//
//   - strict=false (default): match if any candidate token contains the
//     whole normalized query as a substring, OR (for multi-word queries)
//     every whitespace-split query token appears in it, OR a
//     space/punctuation-collapsed form of the candidate contains the
//     collapsed query.
//   - strict=true: every whitespace-split query token must appear as a
//     substring of some candidate token.
//
// query must already be lower-cased and whitespace-collapsed by the
// caller (orchestrator); candidates are lower-cased here since sources
// pass raw display strings.
func Matches(query string, strict bool, candidates ...string) bool {
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		return false
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(c)
	}

	if strict {
		return matchesStrict(query, lowered)
	}
	return matchesLoose(query, lowered)
}

func matchesStrict(query string, candidates []string) bool {
	tokens := strings.Fields(query)
	if len(tokens) == 0 {
		return false
	}
	for _, tok := range tokens {
		found := false
		for _, c := range candidates {
			if strings.Contains(c, tok) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func matchesLoose(query string, candidates []string) bool {
	tokens := strings.Fields(query)
	collapsedQuery := collapse(query)

	for _, c := range candidates {
		if strings.Contains(c, query) {
			return true
		}
		if len(tokens) > 1 {
			allPresent := true
			for _, tok := range tokens {
				if !strings.Contains(c, tok) {
					allPresent = false
					break
				}
			}
			if allPresent {
				return true
			}
		}
		if strings.Contains(collapse(c), collapsedQuery) {
			return true
		}
	}
	return false
}

// collapse strips whitespace and punctuation, used for the fuzzy
// "collapsed form" comparison.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}

package ranker

import "strings"

// Tokenize splits s on space/hyphen/underscore/dot and further expands
// each resulting piece at camelCase and digit-letter boundaries, then
// lower-cases everything. This mirrors the token-coverage contract of
// §4.4: "tokens of {file-stem, parent dir name} split on
// space/hyphen/underscore/dot, expanded with camelCase and
// digit-boundary fragments."
func Tokenize(s string) []string {
	var out []string
	for _, piece := range splitSeparators(s) {
		out = append(out, splitBoundaries(piece)...)
	}
	return out
}

func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	})
}

// splitBoundaries further breaks piece at camelCase and digit/letter
// boundaries, returning lower-cased fragments plus the original
// lower-cased piece (so "VSCode" yields "vscode", "vs", "code").
func splitBoundaries(piece string) []string {
	if piece == "" {
		return nil
	}
	runes := []rune(piece)
	var fragments []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case isLower(prev) && isUpper(cur):
			boundary = true
		case isUpper(prev) && isUpper(cur) && i+1 < len(runes) && isLower(runes[i+1]):
			boundary = true
		case isDigit(prev) != isDigit(cur):
			boundary = true
		}
		if boundary {
			fragments = append(fragments, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	fragments = append(fragments, strings.ToLower(string(runes[start:])))

	whole := strings.ToLower(piece)
	if len(fragments) > 1 {
		return append([]string{whole}, fragments...)
	}
	return fragments
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// collapse strips every character that is not a lower-case letter or
// digit, after lower-casing, used for the "collapsed fuzzy" and
// composite-key-style comparisons.
func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tokenSet returns the unique elements of tokens as a set.
func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// Package pathutil canonicalizes filesystem paths so downstream dedup,
// ranking and caching stay stable regardless of which source produced a
// path or how a user typed it on the command line.
//
// The rules here mirror the teacher's pattern normalization in
// pkg/match/normalize.go (backslash/forward-slash equivalence, escape
// preservation) but are adapted from "glob pattern" to "concrete
// filesystem path": quotes are trimmed, environment variables are
// expanded, and trailing slashes are stripped except at a drive root.
package pathutil

import (
	"os"
	"regexp"
	"strings"
)

var envVarPattern = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

// Normalize canonicalizes a filesystem path for comparison and emission:
//   - surrounding quotes are trimmed
//   - %VAR% references are expanded against the process environment
//   - backslashes become forward slashes
//   - a trailing slash is removed, unless the path is a drive root (e.g. "c:/")
//
// Normalize never fails; paths that reference unknown environment
// variables are left with the literal %VAR% token removed from
// consideration by ContainsUnexpandedVar, which callers can use to
// reject such paths per the data-model invariant.
func Normalize(path string) string {
	p := strings.TrimSpace(path)
	p = trimQuotes(p)
	p = expandEnv(p)
	p = strings.ReplaceAll(p, `\`, "/")

	for strings.Contains(p, "//") && !strings.HasPrefix(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}

	if isDriveRoot(p) {
		return p
	}
	p = strings.TrimSuffix(p, "/")
	return p
}

// trimQuotes removes one layer of matching surrounding quotes.
func trimQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// expandEnv expands %VAR% references using os.Getenv, leaving references
// to undefined variables untouched so ContainsUnexpandedVar can detect
// them.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// ContainsUnexpandedVar reports whether path still contains a %VAR% token
// after Normalize, which the data-model invariants forbid in an emitted
// path.
func ContainsUnexpandedVar(path string) bool {
	return envVarPattern.MatchString(path)
}

// isDriveRoot reports whether p is a bare drive root such as "c:" or
// "c:/" after slash normalization.
func isDriveRoot(p string) bool {
	if len(p) == 2 && p[1] == ':' {
		return true
	}
	if len(p) == 3 && p[1] == ':' && p[2] == '/' {
		return true
	}
	return false
}

// Equal reports whether two raw paths are equivalent after Normalize,
// treating '/' and '\' as equivalent separators per the invariant in
// §9 ("String normalization").
func Equal(a, b string) bool {
	return strings.EqualFold(Normalize(a), Normalize(b))
}

// Join joins path segments with '/' regardless of host OS conventions,
// since emitted paths always use '/' per the data-model invariants.
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		cleaned = append(cleaned, p)
	}
	return strings.Join(cleaned, "/")
}

// Base returns the final path segment, analogous to filepath.Base but
// operating on normalized forward-slash paths.
func Base(path string) string {
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

// Dir returns all but the final path segment.
func Dir(path string) string {
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		if idx == 0 {
			return "/"
		}
		return path[:idx]
	}
	return ""
}

// Stem returns the file name without its final extension.
func Stem(path string) string {
	name := Base(path)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return name
}

// Ext returns the final extension of the path, including the leading
// dot, lower-cased. Returns "" if there is none.
func Ext(path string) string {
	name := Base(path)
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return strings.ToLower(name[idx:])
	}
	return ""
}

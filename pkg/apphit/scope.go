package apphit

import "strings"

// InferScope implements the default scope-inference rule from §3: a path
// containing "\users\" (case-insensitive; paths are normalized to '/' by
// the time this runs, so "/users/" is checked) is User-scoped, otherwise
// Machine-scoped. Sources that can assert scope directly should do so
// and set ScopeExplicit instead of relying on this.
func InferScope(normalizedPath string) Scope {
	lower := strings.ToLower(normalizedPath)
	if strings.Contains(lower, "/users/") {
		return User
	}
	return Machine
}

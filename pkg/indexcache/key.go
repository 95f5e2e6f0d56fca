// Package indexcache implements the on-disk query result cache: the
// composite cache key (§4.6), the JSON IndexFile/IndexRecord/IndexEntry
// schema (§6), and the load/sanitize/persist lifecycle the orchestrator
// drives around a discovery run.
package indexcache

import (
	"fmt"
	"regexp"
)

// KeyParams are the dimensions that distinguish one cached query result
// from another, per §4.6's composite key format:
//
//	query|u{0|1}|m{0|1}|s{0|1}|r{0|1}|p{0|N}|te{0|1}|ti{0|1}|tc{0|1}|td{0|1}|c{X.XX}
type KeyParams struct {
	Query         string
	UserOnly      bool
	MachineOnly   bool
	Strict        bool
	IncludeRun    bool
	PID           int
	TypeExe       bool
	TypeInstall   bool
	TypeConfig    bool
	TypeData      bool
	ConfidenceMin float64
}

// compositeKeyPattern validates a key built by BuildKey, used to prune
// legacy-format records per §4.6 step 4.
var compositeKeyPattern = regexp.MustCompile(
	`^.*\|u[01]\|m[01]\|s[01]\|r[01]\|p\d+\|te[01]\|ti[01]\|tc[01]\|td[01]\|c\d\.\d\d$`,
)

// BuildKey renders p into the composite cache key.
func BuildKey(p KeyParams) string {
	return fmt.Sprintf("%s|u%s|m%s|s%s|r%s|p%d|te%s|ti%s|tc%s|td%s|c%s",
		p.Query,
		bit(p.UserOnly), bit(p.MachineOnly), bit(p.Strict), bit(p.IncludeRun),
		p.PID,
		bit(p.TypeExe), bit(p.TypeInstall), bit(p.TypeConfig), bit(p.TypeData),
		formatConfidence(p.ConfidenceMin),
	)
}

// IsWellFormedKey reports whether key matches the current composite key
// pattern; records whose key does not match are legacy and pruned.
func IsWellFormedKey(key string) bool {
	return compositeKeyPattern.MatchString(key)
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatConfidence(c float64) string {
	return fmt.Sprintf("%.2f", c)
}

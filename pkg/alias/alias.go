// Package alias implements query normalization and the canonical alias
// clusters from §6: lower-casing, whitespace collapsing, and mapping
// known variant spellings of an application name to one canonical form
// before the query is used as a cache key or matched against candidates.
package alias

import "strings"

// clusters lists canonical alias groups; each group's first entry is the
// canonical form, the rest are variants that normalize to it.
var clusters = [][]string{
	{"code", "vscode", "visual studio code"},
	{"chrome", "google chrome"},
	{"edge", "microsoft edge"},
	{"notepad++", "notepadpp", "npp"},
	{"powershell", "pwsh"},
	{"oh-my-posh", "oh my posh", "ohmyposh", "oh_my_posh", "jandedobbeleer.ohmyposh"},
	{"wt", "windows terminal", "wt.exe", "microsoft windows terminal"},
}

// variantToCanonical is built once from clusters for O(1) lookup.
var variantToCanonical = buildIndex()

func buildIndex() map[string]string {
	idx := make(map[string]string)
	for _, cluster := range clusters {
		canonical := cluster[0]
		for _, variant := range cluster {
			idx[variant] = canonical
		}
	}
	return idx
}

// NormalizeQuery lower-cases q and collapses internal whitespace, the
// baseline normalization applied before matching or alias canonicalization.
func NormalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	fields := strings.Fields(q)
	return strings.Join(fields, " ")
}

// Canonicalize maps a normalized query to its cluster's canonical form,
// used by the orchestrator to key the index cache so "vscode" and
// "visual studio code" share a cache entry. Returns q unchanged if it is
// not part of any known cluster.
func Canonicalize(normalizedQuery string) string {
	if canonical, ok := variantToCanonical[normalizedQuery]; ok {
		return canonical
	}
	return normalizedQuery
}

// ClusterEntries returns the other members of q's alias cluster
// (excluding q itself), used by the ranker's alias-equivalence bonus.
// Returns nil if q belongs to no cluster.
func ClusterEntries(normalizedQuery string) []string {
	canonical, ok := variantToCanonical[normalizedQuery]
	if !ok {
		return nil
	}
	for _, cluster := range clusters {
		if cluster[0] == canonical {
			out := make([]string, 0, len(cluster)-1)
			for _, v := range cluster {
				if v != normalizedQuery {
					out = append(out, v)
				}
			}
			return out
		}
	}
	return nil
}

// IsAlias reports whether candidate is an alias-equivalent of query
// (same cluster, either order), used by the ranker.
func IsAlias(query, candidate string) bool {
	q := NormalizeQuery(query)
	c := NormalizeQuery(candidate)
	if q == c {
		return false // exact match is handled separately, not an "alias"
	}
	qc, qok := variantToCanonical[q]
	cc, cok := variantToCanonical[c]
	return qok && cok && qc == cc
}

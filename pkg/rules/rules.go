// Package rules loads a YAML rule pack (§6 schema) and expands matched
// Exe/InstallDir hits into synthetic Config/Data hits, the way the
// teacher's pkg/scope compiles a YAML scope config into concrete S3
// prefixes via glob predicates (doublestar) — here the predicates match
// app hits instead of object keys, and the expansion walks the local
// filesystem instead of a bucket listing.
package rules

import (
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
)

// MaxWeight bounds Rule.Weight per §6 schema ("weight: float ∈ [0, 0.15]").
const MaxWeight = 0.15

// Match is a rule's predicate: satisfied if AnyOf has a substring hit,
// AllOf has all substrings present, or Regex matches — evaluated against
// every candidate string for a hit (normalized path, file name, parent
// directory name, DisplayName evidence).
type Match struct {
	AnyOf []string `yaml:"anyOf"`
	AllOf []string `yaml:"allOf"`
	Regex string   `yaml:"regex"`

	compiledRegex *regexp.Regexp
}

// Rule is one entry of the YAML rule pack.
type Rule struct {
	Match       Match
	Config      []string
	Data        []string
	EvidenceAdd map[string]string
	Scope       string
	Weight      float64
}

// ruleYAML mirrors the §6 `evidence.add: {k:v}` nesting on disk; Load
// flattens it into Rule.EvidenceAdd for callers.
type ruleYAML struct {
	Match  Match    `yaml:"match"`
	Config []string `yaml:"config"`
	Data   []string `yaml:"data"`
	Scope  string   `yaml:"scope"`
	Weight float64  `yaml:"weight"`
	Evidence struct {
		Add map[string]string `yaml:"add"`
	} `yaml:"evidence"`
}

// Pack is a parsed, compiled rule pack. Rule order is part of the
// contract (§4.3: "Rules are evaluated in file order").
type Pack struct {
	Rules []Rule
}

// Load parses a YAML rule pack from data. A rule with an invalid regex
// is dropped (per-item recoverable, §7) rather than failing the whole
// pack; dropped rules are neither counted nor reported (single bad
// rules are rare and silent skip matches teacher's tolerance for
// per-item YAML issues in pkg/manifest).
func Load(data []byte) (*Pack, error) {
	var raw []ruleYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	pack := &Pack{}
	for _, r := range raw {
		rule := Rule{
			Match:       r.Match,
			Config:      r.Config,
			Data:        r.Data,
			EvidenceAdd: r.Evidence.Add,
			Scope:       r.Scope,
			Weight:      clampWeight(r.Weight),
		}
		if rule.Match.Regex != "" {
			compiled, err := regexp.Compile(rule.Match.Regex)
			if err != nil {
				continue // invalid glob/regex entry: per-item recoverable (§7)
			}
			rule.Match.compiledRegex = compiled
		}
		pack.Rules = append(pack.Rules, rule)
	}
	return pack, nil
}

func clampWeight(w float64) float64 {
	if w < 0 {
		return 0
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// Satisfied reports whether the rule's match predicate holds against any
// of candidates.
func (r Rule) Satisfied(candidates []string) bool {
	for _, c := range candidates {
		if len(r.Match.AnyOf) > 0 && containsAnySubstring(c, r.Match.AnyOf) {
			return true
		}
		if len(r.Match.AllOf) > 0 && containsAllSubstrings(c, r.Match.AllOf) {
			return true
		}
		if r.Match.compiledRegex != nil && r.Match.compiledRegex.MatchString(c) {
			return true
		}
	}
	return false
}

func containsAnySubstring(candidate string, needles []string) bool {
	lc := strings.ToLower(candidate)
	for _, n := range needles {
		if strings.Contains(lc, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func containsAllSubstrings(candidate string, needles []string) bool {
	lc := strings.ToLower(candidate)
	for _, n := range needles {
		if !strings.Contains(lc, strings.ToLower(n)) {
			return false
		}
	}
	return true
}

// Candidates returns the strings a rule's match predicate is evaluated
// against for hit: normalized path, file name, parent directory name,
// and DisplayName evidence when present (§4.3).
func Candidates(hit *apphit.AppHit) []string {
	candidates := []string{hit.Path, pathutil.Base(hit.Path), pathutil.Base(pathutil.Dir(hit.Path))}
	if hit.Evidence != nil {
		if name, ok := hit.Evidence.Get(evidence.DisplayName); ok && name != "" {
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// Expand applies every rule in the pack, in file order, to hit and
// returns the synthetic Config/Data hits produced by matching rules.
// Synthetic paths are deduplicated across rules that happen to expand
// to the same path.
func (p *Pack) Expand(hit *apphit.AppHit) []*apphit.AppHit {
	if p == nil || (hit.Type != apphit.Exe && hit.Type != apphit.InstallDir) {
		return nil
	}

	candidates := Candidates(hit)
	seen := make(map[apphit.Key]bool)
	var out []*apphit.AppHit

	for _, rule := range p.Rules {
		if !rule.Satisfied(candidates) {
			continue
		}
		out = append(out, expandPatterns(rule, rule.Config, apphit.Config, hit, seen)...)
		out = append(out, expandPatterns(rule, rule.Data, apphit.Data, hit, seen)...)
	}
	return out
}

func expandPatterns(rule Rule, patterns []string, hitType apphit.HitType, source *apphit.AppHit, seen map[apphit.Key]bool) []*apphit.AppHit {
	var out []*apphit.AppHit
	baseDir := source.Path
	if source.Type == apphit.Exe {
		baseDir = pathutil.Dir(source.Path)
	}

	for _, pattern := range patterns {
		expanded := expandEnvAndJoin(baseDir, pattern)
		if !doublestar.ValidatePattern(expanded) {
			continue // invalid glob pattern: per-item recoverable (§7)
		}
		matches, err := doublestar.FilepathGlob(expanded)
		if err != nil {
			continue
		}
		for _, m := range matches {
			normalized := pathutil.Normalize(m)
			key := apphit.Key{Type: hitType, Path: normalized}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, buildSyntheticHit(hitType, normalized, rule, source))
		}
	}
	return out
}

// expandEnvAndJoin substitutes %VAR% references in pattern and, when
// the pattern is not already absolute, joins it against baseDir.
func expandEnvAndJoin(baseDir, pattern string) string {
	expanded := pathutil.Normalize(pattern)
	if pathutil.ContainsUnexpandedVar(pattern) {
		expanded = pathutil.Normalize(expandVars(pattern))
	}
	if strings.Contains(expanded, ":") || strings.HasPrefix(expanded, "/") {
		return expanded
	}
	return pathutil.Join(baseDir, expanded)
}

var envVarPattern = regexp.MustCompile(`%([A-Za-z_][A-Za-z0-9_()]*)%`)

func expandVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return match
	})
}

// buildSyntheticHit builds a Config/Data hit expanded from source,
// inheriting scope per §4.3 ("inherit the scope from the matched exe's
// hit, or user when the expansion lives under %APPDATA%/%LOCALAPPDATA%").
func buildSyntheticHit(hitType apphit.HitType, normalizedPath string, rule Rule, source *apphit.AppHit) *apphit.AppHit {
	scope := source.Scope
	scopeExplicit := source.ScopeExplicit
	if rule.Scope == "user" {
		scope, scopeExplicit = apphit.User, true
	} else if rule.Scope == "machine" {
		scope, scopeExplicit = apphit.Machine, true
	} else if !scopeExplicit && underUserProfile(normalizedPath) {
		scope, scopeExplicit = apphit.User, true
	}

	hit := &apphit.AppHit{
		Type:          hitType,
		Scope:         scope,
		ScopeExplicit: scopeExplicit,
		Path:          normalizedPath,
		PackageType:   source.PackageType,
	}
	hit.Sources = append(hit.Sources, source.Sources...)

	ev := make(evidence.Map)
	for k, v := range rule.EvidenceAdd {
		ev.Set(k, v)
	}
	if rule.Weight > 0 {
		ev.Set(evidence.RuleWeight, formatWeight(rule.Weight))
	}
	if len(ev) > 0 {
		hit.Evidence = ev
	}
	return hit
}

func underUserProfile(normalizedPath string) bool {
	lc := strings.ToLower(normalizedPath)
	return strings.Contains(lc, "/appdata/") || strings.Contains(lc, "/users/")
}

func formatWeight(w float64) string {
	// Rounds to two decimals and trims trailing zeros (0.10 -> "0.1"),
	// unlike the fixed two-decimal confidence field of the cache key.
	return trimTrailingZeros(w)
}

func trimTrailingZeros(w float64) string {
	s := strings.TrimRight(strings.TrimRight(formatFixed(w), "0"), ".")
	if s == "" {
		s = "0"
	}
	return s
}

func formatFixed(w float64) string {
	const scale = 100
	rounded := float64(int(w*scale+0.5)) / scale
	whole := int(rounded)
	frac := int((rounded-float64(whole))*scale + 0.5)
	if frac < 0 {
		frac = -frac
	}
	return itoa(whole) + "." + pad2(frac)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + itoa(n)
	}
	return itoa(n)
}

// Package ranker implements the pure, deterministic confidence-scoring
// model: score(query, hit) -> (confidence, breakdown). It has no side
// effects and touches no clock, RNG, or environment, so the same
// (query, hit) pair always yields the same bit-identical result.
//
// The additive-contribution shape (many small named bonuses/penalties
// summed then clamped) is grounded on the teacher's nothing-analogous
// scoring logic; since no package in the retrieved corpus implements a
// multi-factor heuristic scorer, this is built from first principles in
// the teacher's plain-function, no-framework style seen throughout
// pkg/match.
package ranker

import (
	"strconv"
	"strings"

	"github.com/3leaps/applocate/pkg/alias"
	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
)

// maxRuleWeight is the upper bound a rule-pack's weight field may
// contribute to a hit's score (§4.3: "weight ∈ [0,0.15]").
const maxRuleWeight = 0.15

var uninstallerPrefixes = []string{"unins", "setup"}

func matchesUninstallerName(name string) bool {
	n := strings.ToLower(name)
	if strings.HasPrefix(n, "unins") {
		return true
	}
	if strings.Contains(n, "uninstall") {
		return true
	}
	if strings.Contains(n, "update-cache") {
		return true
	}
	if strings.HasPrefix(n, "setup") && strings.HasSuffix(n, ".exe") {
		return true
	}
	return false
}

var steamAuxNoiseNames = []string{"webhelper", "errorreporter", "service", "xboxutil", "sysinfo", "steamservice"}

// Score computes hit's confidence for query, returning the clamped
// [0,1] total and the full additive breakdown.
func Score(query string, hit *apphit.AppHit) (float64, *apphit.ScoreBreakdown) {
	q := alias.NormalizeQuery(query)
	stem := strings.ToLower(pathutil.Stem(hit.Path))
	parentDir := strings.ToLower(pathutil.Base(pathutil.Dir(hit.Path)))
	normalizedPath := strings.ToLower(hit.Path)

	candidateTokens := dedupeAppend(Tokenize(stem), Tokenize(parentDir))
	queryTokens := Tokenize(q)

	b := &apphit.ScoreBreakdown{}

	b.Base = typeBaseline(hit.Type)
	b.NameMatch = nameMatchContribution(q, stem, queryTokens, candidateTokens)
	b.TokenCoverage = tokenCoverageContribution(queryTokens, candidateTokens)
	b.AliasBonus = aliasContribution(q, stem, parentDir, hit)
	b.EvidenceBoost = evidenceContribution(hit)
	b.RuleWeight = ruleWeightContribution(hit)
	b.MultiSource = multiSourceContribution(hit)
	b.Penalties = penaltyContribution(q, normalizedPath, queryTokens, candidateTokens, hit)

	total := b.Base + b.NameMatch + b.TokenCoverage + b.AliasBonus + b.EvidenceBoost + b.RuleWeight + b.MultiSource + b.Penalties
	b.Total = clamp01(total)
	return b.Total, b
}

func typeBaseline(t apphit.HitType) float64 {
	switch t {
	case apphit.Exe:
		return 0.08
	case apphit.Config:
		return 0.05
	case apphit.InstallDir:
		return 0.04
	case apphit.Data:
		return 0.03
	default:
		return 0
	}
}

// tokenCoverageContribution implements the token coverage (+0 to
// +0.25) and partial jaccard (+0 to +0.08, noise-scaled) bullets.
func tokenCoverageContribution(queryTokens, candidateTokens []string) float64 {
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return 0
	}
	qSet := tokenSet(queryTokens)
	cSet := tokenSet(candidateTokens)

	matched := 0
	for t := range qSet {
		if cSet[t] {
			matched++
		}
	}
	coverage := float64(matched) / float64(len(qSet))
	contribution := coverage * 0.25

	union := len(qSet)
	extra := 0
	for t := range cSet {
		if !qSet[t] {
			union++
			extra++
		}
	}
	jaccard := float64(matched) / float64(union)
	noiseFactor := 1.0
	switch {
	case extra >= 4:
		noiseFactor = 0.4
	case extra >= 2:
		noiseFactor = 0.6
	}
	contribution += jaccard * 0.08 * noiseFactor

	return contribution
}

// nameMatchContribution bundles the substring fallback, collapsed
// fuzzy, exact file-stem match, span tightness, fuzzy Levenshtein, and
// precision bonus bullets — all signals keyed on the literal name
// rather than token-set coverage.
func nameMatchContribution(q, stem string, queryTokens, candidateTokens []string) float64 {
	if q == "" {
		return 0
	}
	var total float64

	coverage := fullCoverage(queryTokens, candidateTokens)

	if len(tokenSet(queryTokens)) == 0 && strings.Contains(strings.ToLower(stem), q) {
		total += 0.15 // substring fallback
	}

	collapsedQuery := collapse(q)
	collapsedStem := collapse(stem)
	if !coverage && collapsedQuery != "" && collapsedStem != collapsedQuery &&
		strings.Contains(collapsedStem, collapsedQuery) {
		total += 0.08 // collapsed fuzzy
	}

	if stem == q {
		total += 0.30 // exact file-stem match
	}

	if spanTight(q, stem) {
		total += 0.14 // span tightness
	}

	if stem != q && !coverage {
		ratio := fuzzyRatio(collapsedStem, collapsedQuery)
		if ratio > 0.5 {
			total += (ratio - 0.5) * 0.12 // fuzzy Levenshtein
		}
	}

	if coverage && stem == q {
		total += 0.05 // precision bonus
	}

	return total
}

// fullCoverage reports whether every query token is present in the
// candidate token set (coverage == 1 in §4.4's terms).
func fullCoverage(queryTokens, candidateTokens []string) bool {
	if len(queryTokens) == 0 {
		return false
	}
	cSet := tokenSet(candidateTokens)
	for _, t := range queryTokens {
		if !cSet[t] {
			return false
		}
	}
	return true
}

// spanTight reports whether every query token appears contiguously, in
// order, in the separator-stripped file stem.
func spanTight(q, stem string) bool {
	tokens := strings.Fields(q)
	if len(tokens) == 0 {
		return false
	}
	joined := strings.Join(tokens, "")
	return joined != "" && strings.Contains(collapse(stem), joined)
}

// aliasContribution implements the alias-equivalence bullet: +0.22 for
// a stem that matches a known alias cluster entry of the query, or
// +0.14 when a source supplied an AliasMatched evidence key, plus the
// directory-name alias/exact bullet for Config/Data hits.
func aliasContribution(q, stem, parentDir string, hit *apphit.AppHit) float64 {
	var total float64

	if alias.IsAlias(q, stem) {
		total += 0.22
	} else if hit.Evidence != nil && hit.Evidence.Has(evidence.AliasMatched) {
		total += 0.14
	}

	if hit.Type == apphit.Config || hit.Type == apphit.Data {
		if parentDir == q {
			total += 0.20
		} else if alias.IsAlias(q, parentDir) {
			total += 0.18
		}
	}

	return total
}

// evidenceContribution implements the evidence-boost bullets,
// including the Shortcut+ProcessId synergy and the BrokenShortcut
// penalty.
func evidenceContribution(hit *apphit.AppHit) float64 {
	if hit.Evidence == nil {
		return 0
	}
	var total float64
	hasShortcut := hit.Evidence.Has(evidence.Shortcut)
	hasProcessID := hit.Evidence.Has(evidence.ProcessID)

	if hasShortcut {
		total += 0.10
	}
	if hasProcessID {
		total += 0.08
	}
	if hasShortcut && hasProcessID {
		total += 0.05
	}
	if hit.Evidence.Has(evidence.WhereQuery) {
		total += 0.05
	}
	if hit.Evidence.Has(evidence.DirMatch) {
		total += 0.06
	}
	if hit.Evidence.Has(evidence.ExeName) {
		total += 0.04
	}
	if hit.Evidence.Has(evidence.BrokenShortcut) {
		total -= 0.15
	}
	return total
}

// ruleWeightContribution reads back the synthetic RuleWeight evidence
// entry a rule pack attaches to a hit it expanded (§4.3: a rule's
// weight ∈ [0,0.15] is recorded as evidence and consumed by the
// ranker). A missing or malformed entry contributes nothing; a
// well-formed one is clamped to the documented range so a misconfigured
// rule pack can never dominate the score.
func ruleWeightContribution(hit *apphit.AppHit) float64 {
	if hit.Evidence == nil {
		return 0
	}
	raw, ok := hit.Evidence[evidence.RuleWeight]
	if !ok {
		return 0
	}
	w, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	if w < 0 {
		return 0
	}
	if w > maxRuleWeight {
		return maxRuleWeight
	}
	return w
}

// multiSourceContribution implements the multi-source harmonic boost:
// +0 to +0.18 using a partial harmonic sum H_n - 1 normalized by 0.9.
func multiSourceContribution(hit *apphit.AppHit) float64 {
	n := len(hit.Sources)
	if n <= 1 {
		return 0
	}
	var h float64
	for i := 1; i <= n; i++ {
		h += 1 / float64(i)
	}
	raw := (h - 1) / 0.9
	if raw > 1 {
		raw = 1
	}
	return raw * 0.18
}

// penaltyContribution bundles path-quality penalties, the noise
// penalty, uninstaller suppression, Steam auxiliary dampening, and the
// unrelated-third-party-path demotion.
func penaltyContribution(q, normalizedPath string, queryTokens, candidateTokens []string, hit *apphit.AppHit) float64 {
	var total float64

	lp := normalizedPath
	switch {
	case strings.Contains(lp, "/temp/") || strings.Contains(lp, "%temp%") || strings.Contains(lp, "/appdata/local/temp"):
		total -= 0.18
	}
	if strings.Contains(lp, "/installer/") || strings.HasSuffix(lp, ".tmp.exe") {
		total -= 0.10
	}
	if strings.Contains(lp, "edgeupdate/temp") {
		total -= 0.06
	}
	if strings.Contains(lp, "/temp/winget/") {
		total -= 0.15
	}

	qSet := tokenSet(queryTokens)
	cSet := tokenSet(candidateTokens)
	extra := 0
	matched := 0
	for t := range cSet {
		if qSet[t] {
			matched++
		} else {
			extra++
		}
	}
	coverage := 0.0
	if len(qSet) > 0 {
		coverage = float64(matched) / float64(len(qSet))
	}
	if extra >= 2 && coverage < 1 {
		p := 0.02 * float64(extra)
		if p > 0.12 {
			p = 0.12
		}
		total -= p
	}
	if extra >= 4 {
		p := 0.01 * float64(extra)
		if p > 0.06 {
			p = 0.06
		}
		total -= p
	}

	if hit.Type == apphit.Exe {
		name := strings.ToLower(pathutil.Base(hit.Path))
		if matchesUninstallerName(name) && !strings.Contains(q, "uninstall") {
			total -= 0.25
		}
	}

	if q == "steam" {
		name := strings.ToLower(pathutil.Base(hit.Path))
		for _, noise := range steamAuxNoiseNames {
			if strings.Contains(name, noise) {
				total -= 0.18
				break
			}
		}
	}

	if strings.Contains(lp, "fl cloud plugins") && !qSet["fl"] && !qSet["cloud"] && !qSet["plugins"] {
		total -= 0.20
	}

	return total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dedupeAppend(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

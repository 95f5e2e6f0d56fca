package collapse

import (
	"sort"
	"strings"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/pathutil"
)

// Options configures the collapser.
type Options struct {
	// All disables collapsing entirely: every surviving hit is kept.
	All bool
	// Limit caps the final ordered list to at most Limit entries,
	// applied after collapsing. Zero means unlimited.
	Limit int
	// ConfidenceMin drops any hit scoring strictly below the
	// threshold. Zero means no floor.
	ConfidenceMin float64
}

// Collapse applies the §4.5 collapser and limit/floor rules to an
// already-ranked, already-existence-filtered hit list. Input order is
// assumed to already reflect the ranker's descending confidence order;
// Collapse is stable with respect to that order wherever the spec does
// not otherwise prescribe a tie-break.
func Collapse(hits []*apphit.AppHit, opts Options) []*apphit.AppHit {
	filtered := applyConfidenceFloor(hits, opts.ConfidenceMin)

	var result []*apphit.AppHit
	if opts.All {
		result = filtered
	} else {
		result = collapseByType(filtered)
	}

	return applyLimit(result, opts.Limit)
}

func applyConfidenceFloor(hits []*apphit.AppHit, floor float64) []*apphit.AppHit {
	if floor <= 0 {
		return hits
	}
	out := make([]*apphit.AppHit, 0, len(hits))
	for _, h := range hits {
		if h.Confidence >= floor {
			out = append(out, h)
		}
	}
	return out
}

func applyLimit(hits []*apphit.AppHit, limit int) []*apphit.AppHit {
	if limit <= 0 || len(hits) <= limit {
		return hits
	}
	return hits[:limit]
}

func collapseByType(hits []*apphit.AppHit) []*apphit.AppHit {
	var exes, installDirs, configs, datas []*apphit.AppHit
	for _, h := range hits {
		switch h.Type {
		case apphit.Exe:
			exes = append(exes, h)
		case apphit.InstallDir:
			installDirs = append(installDirs, h)
		case apphit.Config:
			configs = append(configs, h)
		case apphit.Data:
			datas = append(datas, h)
		}
	}

	chosenExes := collapseExes(exes)
	chosenInstallDir := collapseInstallDir(installDirs, chosenExes)
	chosenConfig := collapseSingleBest(configs)
	chosenData := collapseSingleBest(datas)

	var out []*apphit.AppHit
	out = append(out, chosenExes...)
	if chosenInstallDir != nil {
		out = append(out, chosenInstallDir)
	}
	if chosenConfig != nil {
		out = append(out, chosenConfig)
	}
	if chosenData != nil {
		out = append(out, chosenData)
	}
	return out
}

// rankOrder implements the shared tie-break used throughout the
// collapser: confidence desc, machine scope before user, richer
// evidence first, path lexicographically ascending.
func rankOrder(a, b *apphit.AppHit) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if (a.Scope == apphit.Machine) != (b.Scope == apphit.Machine) {
		return a.Scope == apphit.Machine
	}
	if len(a.Evidence) != len(b.Evidence) {
		return len(a.Evidence) > len(b.Evidence)
	}
	return strings.ToLower(a.Path) < strings.ToLower(b.Path)
}

// collapseExes keeps the top 3 Exe hits by rankOrder, restricted to
// distinct parent directories.
func collapseExes(exes []*apphit.AppHit) []*apphit.AppHit {
	sorted := append([]*apphit.AppHit(nil), exes...)
	sort.SliceStable(sorted, func(i, j int) bool { return rankOrder(sorted[i], sorted[j]) })

	seenDirs := make(map[string]bool)
	var out []*apphit.AppHit
	for _, h := range sorted {
		dir := strings.ToLower(pathutil.Dir(h.Path))
		if seenDirs[dir] {
			continue
		}
		seenDirs[dir] = true
		out = append(out, h)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// collapseInstallDir keeps the single best InstallDir hit, preferring
// the parent directory of the first chosen Exe when one matches.
func collapseInstallDir(installDirs []*apphit.AppHit, chosenExes []*apphit.AppHit) *apphit.AppHit {
	if len(installDirs) == 0 {
		return nil
	}

	if len(chosenExes) > 0 {
		exeDir := strings.ToLower(pathutil.Dir(chosenExes[0].Path))
		for _, h := range installDirs {
			if strings.ToLower(h.Path) == exeDir {
				return h
			}
		}
	}

	return collapseSingleBest(installDirs)
}

// collapseSingleBest returns the single best hit by rankOrder, or nil
// if hits is empty.
func collapseSingleBest(hits []*apphit.AppHit) *apphit.AppHit {
	if len(hits) == 0 {
		return nil
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if rankOrder(h, best) {
			best = h
		}
	}
	return best
}

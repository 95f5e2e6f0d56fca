package aggregator

import (
	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
)

// mergeSet collapses hits sharing (type, normalized path) into one,
// applying the merge rules of §4.2. Access is single-threaded by
// construction: the aggregator's consumer goroutine is the only
// caller of add.
type mergeSet struct {
	order []apphit.Key
	byKey map[apphit.Key]*apphit.AppHit
}

func newMergeSet() *mergeSet {
	return &mergeSet{byKey: make(map[apphit.Key]*apphit.AppHit)}
}

func (m *mergeSet) add(hit *apphit.AppHit) {
	key := hit.IdentityKey()
	existing, ok := m.byKey[key]
	if !ok {
		clone := hit.Clone()
		m.byKey[key] = clone
		m.order = append(m.order, key)
		return
	}
	mergeInto(existing, hit)
}

func (m *mergeSet) hits() []*apphit.AppHit {
	out := make([]*apphit.AppHit, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.byKey[key])
	}
	return out
}

// mergeInto folds a later occurrence of the same (type, path) hit into
// the first-seen merged hit, per §4.2 merge rules.
func mergeInto(dst, src *apphit.AppHit) {
	for _, name := range src.Sources {
		dst.AddSource(name)
	}

	dst.Evidence = evidence.Merge(dst.Evidence, src.Evidence)

	if dst.Version == "" {
		dst.Version = src.Version
	}

	if dst.PackageType == apphit.PackageUnknown {
		dst.PackageType = src.PackageType
	}

	if !dst.ScopeExplicit && src.ScopeExplicit {
		dst.Scope = src.Scope
		dst.ScopeExplicit = true
	}
}

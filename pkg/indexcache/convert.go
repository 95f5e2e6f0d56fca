package indexcache

import (
	"time"

	"github.com/3leaps/applocate/pkg/apphit"
)

// ToEntry converts a ranked, collapsed hit into its persisted form.
// firstSeen/lastSeen are supplied by the caller (BuildRecord) since
// they depend on any prior record, not on the hit itself.
func ToEntry(hit *apphit.AppHit, firstSeen, lastSeen time.Time) IndexEntry {
	return IndexEntry{
		Type:        hit.Type,
		Scope:       hit.Scope,
		Path:        hit.Path,
		Version:     hit.Version,
		PackageType: hit.PackageType,
		Sources:     append([]string(nil), hit.Sources...),
		Confidence:  hit.Confidence,
		FirstSeen:   firstSeen,
		LastSeen:    lastSeen,
	}
}

// ToHit converts a persisted entry back into an AppHit for re-emission
// from a cache hit, without evidence (the cache does not persist it).
func ToHit(e IndexEntry) *apphit.AppHit {
	return &apphit.AppHit{
		Type:        e.Type,
		Scope:       e.Scope,
		Path:        e.Path,
		Version:     e.Version,
		PackageType: e.PackageType,
		Sources:     append([]string(nil), e.Sources...),
		Confidence:  e.Confidence,
	}
}

// BuildRecord assembles the IndexRecord to persist after a fresh
// discovery run, preserving firstSeen from any prior record entry
// matching on (type, path) per §4.6 step 6.
func BuildRecord(key string, hits []*apphit.AppHit, prior *IndexRecord, now time.Time) IndexRecord {
	entries := make([]IndexEntry, 0, len(hits))
	for _, h := range hits {
		firstSeen := now
		if prior != nil {
			if existing := prior.EntryByTypeAndPath(h.Type, h.Path); existing != nil {
				firstSeen = existing.FirstSeen
			}
		}
		entries = append(entries, ToEntry(h, firstSeen, now))
	}
	return IndexRecord{Query: key, RefreshedAt: now, Entries: entries}
}

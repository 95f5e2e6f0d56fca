package indexcache

import (
	"time"

	"github.com/3leaps/applocate/pkg/apphit"
)

// IndexEntry is one persisted hit, per §6's field list. Field order
// matches the declared JSON object order mandated by the data-model
// invariants ("field ordering stable").
type IndexEntry struct {
	Type        apphit.HitType     `json:"type"`
	Scope       apphit.Scope       `json:"scope"`
	Path        string             `json:"path"`
	Version     string             `json:"version"`
	PackageType apphit.PackageType `json:"packageType"`
	Sources     []string           `json:"sources"`
	Confidence  float64            `json:"confidence"`
	FirstSeen   time.Time          `json:"firstSeen"`
	LastSeen    time.Time          `json:"lastSeen"`
}

// IndexRecord is the cached result set for one composite query key.
type IndexRecord struct {
	Query       string       `json:"query"`
	RefreshedAt time.Time    `json:"refreshedAt"`
	Entries     []IndexEntry `json:"entries"`
}

// IndexFile is the on-disk JSON root object (§6).
type IndexFile struct {
	Version int           `json:"version"`
	EnvHash string        `json:"envHash"`
	Records []IndexRecord `json:"records"`
}

// FindRecord returns the record for key, or nil if absent.
func (f *IndexFile) FindRecord(key string) *IndexRecord {
	for i := range f.Records {
		if f.Records[i].Query == key {
			return &f.Records[i]
		}
	}
	return nil
}

// PutRecord replaces the record for rec.Query, or appends it if none
// exists yet.
func (f *IndexFile) PutRecord(rec IndexRecord) {
	for i := range f.Records {
		if f.Records[i].Query == rec.Query {
			f.Records[i] = rec
			return
		}
	}
	f.Records = append(f.Records, rec)
}

// EntryByTypeAndPath looks up an entry by (type, normalized path)
// within the record, used to preserve firstSeen across refreshes.
func (r *IndexRecord) EntryByTypeAndPath(t apphit.HitType, path string) *IndexEntry {
	for i := range r.Entries {
		if r.Entries[i].Type == t && r.Entries[i].Path == path {
			return &r.Entries[i]
		}
	}
	return nil
}

// Package output formats the orchestrator's final hit list for the
// external CLI surface (§6 "AppHit JSON schema"): JSON, CSV and a
// human-readable text table. Grounded on the teacher's JSONLWriter
// (pkg/output/writer.go: mutex-guarded, short-write-safe line emission)
// adapted from a streamed object-listing envelope to a single-shot
// result set.
package output

import (
	"github.com/3leaps/applocate/pkg/apphit"
)

// HitRecord is the wire form of one AppHit, matching the field order
// fixed by §6: type, scope, path, version, packageType, source,
// confidence, evidence?, breakdown?.
type HitRecord struct {
	Type        string                 `json:"type"`
	Scope       string                 `json:"scope"`
	Path        string                 `json:"path"`
	Version     string                 `json:"version,omitempty"`
	PackageType string                 `json:"packageType"`
	Source      []string               `json:"source"`
	Confidence  float64                `json:"confidence"`
	Evidence    map[string]string      `json:"evidence,omitempty"`
	Breakdown   *apphit.ScoreBreakdown `json:"breakdown,omitempty"`
}

// NewHitRecord builds the wire form of hit. includeEvidence/includeBreakdown
// gate the optional trailing fields per --evidence/--score-breakdown;
// evidenceKeys, if non-empty, further restricts which evidence keys are
// emitted (--evidence-keys).
func NewHitRecord(hit *apphit.AppHit, includeEvidence, includeBreakdown bool, evidenceKeys []string) HitRecord {
	rec := HitRecord{
		Type:        hit.Type.String(),
		Scope:       hit.Scope.String(),
		Path:        hit.Path,
		Version:     hit.Version,
		PackageType: hit.PackageType.String(),
		Source:      append([]string(nil), hit.Sources...),
		Confidence:  hit.Confidence,
	}

	if includeEvidence && len(hit.Evidence) > 0 {
		ev := hit.Evidence
		if len(evidenceKeys) > 0 {
			ev = ev.Filter(evidenceKeys)
		}
		m := make(map[string]string, len(ev))
		for _, k := range ev.Keys() {
			m[k] = ev[k]
		}
		if len(m) > 0 {
			rec.Evidence = m
		}
	}

	if includeBreakdown && hit.Breakdown != nil {
		b := *hit.Breakdown
		rec.Breakdown = &b
	}

	return rec
}

// NewHitRecords builds the wire form of every hit in hits, in order.
func NewHitRecords(hits []*apphit.AppHit, includeEvidence, includeBreakdown bool, evidenceKeys []string) []HitRecord {
	out := make([]HitRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, NewHitRecord(h, includeEvidence, includeBreakdown, evidenceKeys))
	}
	return out
}

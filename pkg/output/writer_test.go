package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
)

func sampleHit() *apphit.AppHit {
	return &apphit.AppHit{
		Type:        apphit.Exe,
		Scope:       apphit.Machine,
		Path:        "c:/tools/widget/widget.exe",
		Version:     "1.2.3",
		PackageType: apphit.PackagePortable,
		Sources:     []string{"pathsearch", "shortcuts"},
		Confidence:  0.87,
		Evidence:    evidence.New(evidence.Shortcut, "1", evidence.ExeName, "widget.exe"),
		Breakdown:   &apphit.ScoreBreakdown{Base: 0.2, NameMatch: 0.3, Total: 0.87},
	}
}

func TestNewHitRecordOmitsEvidenceByDefault(t *testing.T) {
	rec := NewHitRecord(sampleHit(), false, false, nil)
	require.Nil(t, rec.Evidence)
	require.Nil(t, rec.Breakdown)
	require.Equal(t, "exe", rec.Type)
	require.Equal(t, "machine", rec.Scope)
	require.Equal(t, []string{"pathsearch", "shortcuts"}, rec.Source)
}

func TestNewHitRecordIncludesEvidenceWhenRequested(t *testing.T) {
	rec := NewHitRecord(sampleHit(), true, true, nil)
	require.Equal(t, "1", rec.Evidence[evidence.Shortcut])
	require.NotNil(t, rec.Breakdown)
	require.Equal(t, 0.87, rec.Breakdown.Total)
}

func TestNewHitRecordFiltersEvidenceKeys(t *testing.T) {
	rec := NewHitRecord(sampleHit(), true, false, []string{evidence.Shortcut})
	require.Len(t, rec.Evidence, 1)
	require.Equal(t, "1", rec.Evidence[evidence.Shortcut])
}

func TestWriteJSONProducesValidArray(t *testing.T) {
	records := NewHitRecords([]*apphit.AppHit{sampleHit()}, true, false, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, JSON, Options{}))

	var decoded []HitRecord
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	require.Equal(t, "c:/tools/widget/widget.exe", decoded[0].Path)
}

func TestWriteJSONEmptyProducesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, JSON, Options{}))
	require.Equal(t, "[]\n", buf.String())
}

func TestWriteCSVIncludesHeaderAndRow(t *testing.T) {
	records := NewHitRecords([]*apphit.AppHit{sampleHit()}, false, false, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, CSV, Options{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "type,scope,path,version,packageType,source,confidence", lines[0])
	require.Contains(t, lines[1], "widget.exe")
	require.Contains(t, lines[1], "pathsearch;shortcuts")
}

func TestWriteTextIncludesPathAndEvidence(t *testing.T) {
	records := NewHitRecords([]*apphit.AppHit{sampleHit()}, true, false, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, Text, Options{}))

	out := buf.String()
	require.Contains(t, out, "widget.exe")
	require.Contains(t, out, "ExeName: widget.exe")
}

func TestWriteTextEmptyProducesNoOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil, Text, Options{}))
	require.Empty(t, buf.String())
}

func TestWriteTextIncludesPackageSourceWhenRequested(t *testing.T) {
	records := NewHitRecords([]*apphit.AppHit{sampleHit()}, false, false, nil)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, records, Text, Options{IncludePackageSource: true}))

	out := buf.String()
	require.Contains(t, out, "portable via pathsearch;shortcuts")
}

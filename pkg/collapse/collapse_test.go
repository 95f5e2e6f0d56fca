package collapse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
)

func exe(path string, confidence float64, scope apphit.Scope) *apphit.AppHit {
	return &apphit.AppHit{Type: apphit.Exe, Path: path, Confidence: confidence, Scope: scope}
}

func TestCollapseExesKeepsTopThreeAcrossDistinctDirs(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/a/widget.exe", 0.9, apphit.Machine),
		exe("c:/a/widget-helper.exe", 0.85, apphit.Machine), // same dir as above, should be dropped
		exe("c:/b/widget.exe", 0.8, apphit.Machine),
		exe("c:/c/widget.exe", 0.7, apphit.User),
		exe("c:/d/widget.exe", 0.6, apphit.User),
	}
	out := Collapse(hits, Options{})
	require.Len(t, out, 3)
	require.Equal(t, "c:/a/widget.exe", out[0].Path)
	require.Equal(t, "c:/b/widget.exe", out[1].Path)
	require.Equal(t, "c:/c/widget.exe", out[2].Path)
}

func TestCollapseExeTieBreakMachineBeforeUser(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/u/widget.exe", 0.5, apphit.User),
		exe("c:/m/widget.exe", 0.5, apphit.Machine),
	}
	out := Collapse(hits, Options{})
	require.Equal(t, "c:/m/widget.exe", out[0].Path)
}

func TestCollapseExeTieBreakRicherEvidenceFirst(t *testing.T) {
	rich := exe("c:/a/widget.exe", 0.5, apphit.Machine)
	rich.Evidence = evidence.New(evidence.Shortcut, "1", evidence.ProcessID, "1")
	plain := exe("c:/b/widget.exe", 0.5, apphit.Machine)

	out := Collapse([]*apphit.AppHit{plain, rich}, Options{})
	require.Equal(t, "c:/a/widget.exe", out[0].Path)
}

func TestCollapseExeTieBreakPathLexAscending(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/zz/widget.exe", 0.5, apphit.Machine),
		exe("c:/aa/widget.exe", 0.5, apphit.Machine),
	}
	out := Collapse(hits, Options{})
	require.Equal(t, "c:/aa/widget.exe", out[0].Path)
}

func TestCollapseInstallDirPrefersChosenExeParent(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/a/widget.exe", 0.9, apphit.Machine),
		{Type: apphit.InstallDir, Path: "c:/a", Confidence: 0.5},
		{Type: apphit.InstallDir, Path: "c:/other", Confidence: 0.8},
	}
	out := Collapse(hits, Options{})
	var installDir *apphit.AppHit
	for _, h := range out {
		if h.Type == apphit.InstallDir {
			installDir = h
		}
	}
	require.NotNil(t, installDir)
	require.Equal(t, "c:/a", installDir.Path)
}

func TestCollapseConfigAndDataKeepSingleBest(t *testing.T) {
	hits := []*apphit.AppHit{
		{Type: apphit.Config, Path: "c:/a/config1.json", Confidence: 0.9},
		{Type: apphit.Config, Path: "c:/a/config2.json", Confidence: 0.5},
		{Type: apphit.Data, Path: "c:/a/data1.db", Confidence: 0.4},
		{Type: apphit.Data, Path: "c:/a/data2.db", Confidence: 0.7},
	}
	out := Collapse(hits, Options{})
	var configCount, dataCount int
	for _, h := range out {
		if h.Type == apphit.Config {
			configCount++
			require.Equal(t, "c:/a/config1.json", h.Path)
		}
		if h.Type == apphit.Data {
			dataCount++
			require.Equal(t, "c:/a/data2.db", h.Path)
		}
	}
	require.Equal(t, 1, configCount)
	require.Equal(t, 1, dataCount)
}

func TestCollapseAllDisablesCollapsing(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/a/widget.exe", 0.9, apphit.Machine),
		exe("c:/a/widget-helper.exe", 0.85, apphit.Machine),
		exe("c:/b/widget.exe", 0.8, apphit.Machine),
		exe("c:/c/widget.exe", 0.7, apphit.User),
	}
	out := Collapse(hits, Options{All: true})
	require.Len(t, out, 4)
}

func TestCollapseConfidenceFloorDropsBelowThreshold(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/a/widget.exe", 0.9, apphit.Machine),
		exe("c:/b/widget.exe", 0.3, apphit.Machine),
	}
	out := Collapse(hits, Options{ConfidenceMin: 0.5})
	require.Len(t, out, 1)
	require.Equal(t, "c:/a/widget.exe", out[0].Path)
}

func TestCollapseLimitAppliedLastPreservingOrder(t *testing.T) {
	hits := []*apphit.AppHit{
		exe("c:/a/widget.exe", 0.9, apphit.Machine),
		exe("c:/b/widget.exe", 0.8, apphit.Machine),
		exe("c:/c/widget.exe", 0.7, apphit.Machine),
	}
	out := Collapse(hits, Options{Limit: 2})
	require.Len(t, out, 2)
	require.Equal(t, "c:/a/widget.exe", out[0].Path)
	require.Equal(t, "c:/b/widget.exe", out[1].Path)
}

func TestExistsReturnsTrueForRealPath(t *testing.T) {
	dir := t.TempDir()
	require.True(t, Exists(dir))
}

func TestExistsReturnsFalseForMissingPath(t *testing.T) {
	require.False(t, Exists("c:/does/not/exist/at/all.exe"))
}

func TestFilterDropsSyntheticWingetPlaceholder(t *testing.T) {
	hits := []*apphit.AppHit{
		{Type: apphit.InstallDir, Path: "winget://Some.Package"},
	}
	require.Empty(t, Filter(hits))
}

func TestFilterDropsMissingPaths(t *testing.T) {
	dir := t.TempDir()
	hits := []*apphit.AppHit{
		{Type: apphit.InstallDir, Path: dir},
		{Type: apphit.InstallDir, Path: "c:/definitely/not/real/path"},
	}
	out := Filter(hits)
	require.Len(t, out, 1)
	require.Equal(t, dir, out[0].Path)
}

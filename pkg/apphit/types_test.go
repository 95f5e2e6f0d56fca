package apphit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHitTypeString(t *testing.T) {
	assert.Equal(t, "install_dir", InstallDir.String())
	assert.Equal(t, "exe", Exe.String())
	assert.Equal(t, "config", Config.String())
	assert.Equal(t, "data", Data.String())
}

func TestAddSourceDeduplicatesPreservingOrder(t *testing.T) {
	h := &AppHit{}
	h.AddSource("registry")
	h.AddSource("path")
	h.AddSource("registry")
	require.Equal(t, []string{"registry", "path"}, h.Sources)
}

func TestSortedEvidenceKeys(t *testing.T) {
	h := &AppHit{Evidence: map[string]string{"Shortcut": "1", "DisplayName": "Foo"}}
	assert.Equal(t, []string{"DisplayName", "Shortcut"}, h.SortedEvidenceKeys())

	var empty AppHit
	assert.Nil(t, empty.SortedEvidenceKeys())
}

func TestCloneIsIndependent(t *testing.T) {
	h := &AppHit{
		Sources:   []string{"registry"},
		Evidence:  map[string]string{"Key": "v"},
		Breakdown: &ScoreBreakdown{Total: 0.5},
	}
	clone := h.Clone()
	clone.Sources[0] = "mutated"
	clone.Evidence["Key"] = "mutated"
	clone.Breakdown.Total = 0.9

	assert.Equal(t, "registry", h.Sources[0])
	assert.Equal(t, "v", h.Evidence["Key"])
	assert.Equal(t, 0.5, h.Breakdown.Total)
}

func TestIdentityKey(t *testing.T) {
	h := &AppHit{Type: Exe, Path: "c:/tools/foo.exe"}
	assert.Equal(t, Key{Type: Exe, Path: "c:/tools/foo.exe"}, h.IdentityKey())
}

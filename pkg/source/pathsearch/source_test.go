package pathsearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/source"
)

func collect(t *testing.T, ch <-chan *apphit.AppHit) []*apphit.AppHit {
	t.Helper()
	var hits []*apphit.AppHit
	timeout := time.After(2 * time.Second)
	for {
		select {
		case hit, ok := <-ch:
			if !ok {
				return hits
			}
			hits = append(hits, hit)
		case <-timeout:
			t.Fatal("timed out waiting for source channel to close")
		}
	}
}

func TestScanPathFindsMatchingExe(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "widget.exe")
	require.NoError(t, os.WriteFile(exe, []byte("x"), 0o644))

	t.Setenv("PATH", dir)
	t.Setenv("ProgramFiles", "")
	t.Setenv("ProgramFiles(x86)", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{IncludeEvidence: true}))

	var sawExe, sawDir bool
	for _, h := range hits {
		if h.Type == apphit.Exe {
			sawExe = true
		}
		if h.Type == apphit.InstallDir {
			sawDir = true
		}
	}
	require.True(t, sawExe, "expected an exe hit")
	require.True(t, sawDir, "expected an install-dir hit")
}

func TestScanPathSkipsNonMatchingExe(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.exe"), []byte("x"), 0o644))

	t.Setenv("PATH", dir)
	t.Setenv("ProgramFiles", "")
	t.Setenv("ProgramFiles(x86)", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{}))
	require.Empty(t, hits)
}

func TestProbeProgramFilesRespectsDropMachine(t *testing.T) {
	dir := t.TempDir()
	appDir := filepath.Join(dir, "Widget")
	require.NoError(t, os.Mkdir(appDir, 0o755))

	t.Setenv("PATH", "")
	t.Setenv("ProgramFiles", dir)
	t.Setenv("ProgramFiles(x86)", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{MachineOnly: false, UserOnly: true}))
	require.Empty(t, hits, "UserOnly should drop the machine-scoped variant probe")
}

func TestQueryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	hits := collect(t, s.Query(ctx, "widget", source.Options{}))
	require.Empty(t, hits)
}

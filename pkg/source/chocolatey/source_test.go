package chocolatey

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

func TestQueryFindsPackageByNuspecTitle(t *testing.T) {
	chocoRoot := t.TempDir()
	libDir := filepath.Join(chocoRoot, "lib")
	pkgDir := filepath.Join(libDir, "widget-cli")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "widget-cli.nuspec"),
		[]byte(`<package><metadata><title>Widget CLI</title></metadata></package>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "widget.exe"), []byte("x"), 0o644))

	t.Setenv("ChocolateyInstall", chocoRoot)
	t.Setenv("PROGRAMDATA", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget cli", source.Options{IncludeEvidence: true}))

	var sawDir, sawExe bool
	for _, h := range hits {
		require.Equal(t, apphit.PackageChocolatey, h.PackageType)
		if h.Type == apphit.InstallDir {
			sawDir = true
		}
		if h.Type == apphit.Exe {
			sawExe = true
		}
	}
	require.True(t, sawDir)
	require.True(t, sawExe)
}

func TestQuerySkippedWithoutChocoRoot(t *testing.T) {
	t.Setenv("ChocolateyInstall", "")
	t.Setenv("PROGRAMDATA", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{}))
	require.Empty(t, hits)
}

func TestQueryRespectsUserOnlyDrop(t *testing.T) {
	chocoRoot := t.TempDir()
	libDir := filepath.Join(chocoRoot, "lib")
	pkgDir := filepath.Join(libDir, "widget")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "widget.exe"), []byte("x"), 0o644))

	t.Setenv("ChocolateyInstall", chocoRoot)

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{UserOnly: true}))
	require.Empty(t, hits, "Chocolatey is machine-scoped; UserOnly must drop it entirely")
}

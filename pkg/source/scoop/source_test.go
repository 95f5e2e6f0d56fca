package scoop

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

func setupScoopApp(t *testing.T, scoopRoot, appName string) {
	t.Helper()
	versionDir := filepath.Join(scoopRoot, "apps", appName, "1.2.3")
	require.NoError(t, os.MkdirAll(versionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, appName+".exe"), []byte("x"), 0o644))
	current := filepath.Join(scoopRoot, "apps", appName, "current")
	require.NoError(t, os.Symlink(versionDir, current))
}

func TestQueryFindsAppViaCurrentJunction(t *testing.T) {
	scoopRoot := t.TempDir()
	setupScoopApp(t, scoopRoot, "widget")

	t.Setenv("SCOOP", scoopRoot)
	t.Setenv("SCOOP_GLOBAL", "")
	t.Setenv("PROGRAMDATA", "")
	t.Setenv("UserProfile", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{IncludeEvidence: true}))

	var sawDir, sawExe bool
	for _, h := range hits {
		require.Equal(t, apphit.PackageScoop, h.PackageType)
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

func TestQueryFallsBackWithoutCurrentJunction(t *testing.T) {
	scoopRoot := t.TempDir()
	versionDir := filepath.Join(scoopRoot, "apps", "widget", "1.0.0")
	require.NoError(t, os.MkdirAll(versionDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(versionDir, "widget.exe"), []byte("x"), 0o644))

	t.Setenv("SCOOP", scoopRoot)
	t.Setenv("SCOOP_GLOBAL", "")
	t.Setenv("PROGRAMDATA", "")
	t.Setenv("UserProfile", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{}))
	require.NotEmpty(t, hits)
}

func TestQueryRespectsUserOnlyDropsGlobal(t *testing.T) {
	scoopRoot := t.TempDir()
	globalRoot := t.TempDir()
	setupScoopApp(t, scoopRoot, "widget")
	setupScoopApp(t, globalRoot, "widget")

	t.Setenv("SCOOP", scoopRoot)
	t.Setenv("SCOOP_GLOBAL", globalRoot)
	t.Setenv("UserProfile", "")

	s := New()
	hits := collect(t, s.Query(context.Background(), "widget", source.Options{UserOnly: true}))
	for _, h := range hits {
		require.Equal(t, apphit.User, h.Scope)
	}
	require.NotEmpty(t, hits)
}

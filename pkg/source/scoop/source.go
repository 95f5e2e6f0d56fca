// Package scoop implements the Scoop source (§4.1 catalogue row 9): it
// scans the Scoop package manager's `apps` directory, both a per-user
// install (`$SCOOP` or `~/scoop`) and the optional global install under
// `ProgramData\scoop`.
package scoop

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "scoop"

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		for _, root := range roots(opts) {
			walkRoot(ctx, root.dir, root.scope, q, opts, out)
			if ctx.Err() != nil {
				return
			}
		}
	})
}

type rootDir struct {
	dir   string
	scope apphit.Scope
}

func roots(opts source.Options) []rootDir {
	var result []rootDir
	if !opts.DropUser() {
		if dir := userScoopRoot(); dir != "" {
			result = append(result, rootDir{dir: filepath.Join(dir, "apps"), scope: apphit.User})
		}
	}
	if !opts.DropMachine() {
		if global := os.Getenv("SCOOP_GLOBAL"); global != "" {
			result = append(result, rootDir{dir: filepath.Join(global, "apps"), scope: apphit.Machine})
		} else if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			result = append(result, rootDir{dir: filepath.Join(programData, "scoop", "apps"), scope: apphit.Machine})
		}
	}
	return result
}

func userScoopRoot() string {
	if custom := os.Getenv("SCOOP"); custom != "" {
		return custom
	}
	if home := os.Getenv("UserProfile"); home != "" {
		return filepath.Join(home, "scoop")
	}
	return ""
}

// walkRoot expects the Scoop layout apps/<name>/<version or "current">.
func walkRoot(ctx context.Context, appsDir string, scope apphit.Scope, q string, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(appsDir)
	if err != nil {
		return // missing/unreadable Scoop root: per-item recoverable
	}
	for _, appEntry := range entries {
		if ctx.Err() != nil {
			return
		}
		if !appEntry.IsDir() {
			continue
		}
		appName := appEntry.Name()
		if !source.Matches(q, opts.Strict, appName) {
			continue
		}

		versionDir := resolveCurrentVersion(filepath.Join(appsDir, appName))
		if versionDir == "" {
			continue
		}

		installDir := pathutil.Normalize(versionDir)
		dirHit := &apphit.AppHit{
			Type:          apphit.InstallDir,
			Scope:         scope,
			ScopeExplicit: true,
			PackageType:   apphit.PackageScoop,
			Path:          installDir,
		}
		dirHit.AddSource(Name)
		if opts.IncludeEvidence {
			dirHit.Evidence = evidence.New(evidence.ScoopApp, appName, evidence.ScoopRoot, pathutil.Normalize(appsDir))
		}
		if !source.TrySend(ctx, out, dirHit) {
			return
		}

		emitExes(ctx, versionDir, appName, scope, opts, out)
		emitPersistDir(ctx, filepath.Dir(appsDir), appName, scope, opts, out)
	}
}

// resolveCurrentVersion follows Scoop's "current" junction/directory
// when present, else falls back to the newest-looking version dir.
func resolveCurrentVersion(appDir string) string {
	current := filepath.Join(appDir, "current")
	if info, err := os.Stat(current); err == nil && info.IsDir() {
		return current
	}
	entries, err := os.ReadDir(appDir)
	if err != nil {
		return ""
	}
	var best string
	for _, e := range entries {
		if e.IsDir() {
			best = filepath.Join(appDir, e.Name())
		}
	}
	return best
}

func emitExes(ctx context.Context, versionDir, appName string, scope apphit.Scope, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(versionDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			continue
		}
		hit := &apphit.AppHit{
			Type:          apphit.Exe,
			Scope:         scope,
			ScopeExplicit: true,
			PackageType:   apphit.PackageScoop,
			Path:          pathutil.Normalize(filepath.Join(versionDir, entry.Name())),
		}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(evidence.ScoopApp, appName, evidence.ExeName, entry.Name())
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}
	}
}

// emitPersistDir surfaces Scoop's per-app persistent data directory
// (`<scoop root>/persist/<app>`), when present, as a Data hit.
func emitPersistDir(ctx context.Context, scoopRoot, appName string, scope apphit.Scope, opts source.Options, out chan<- *apphit.AppHit) {
	persistDir := filepath.Join(scoopRoot, "persist", appName)
	if info, err := os.Stat(persistDir); err != nil || !info.IsDir() {
		return
	}
	hit := &apphit.AppHit{
		Type:          apphit.Data,
		Scope:         scope,
		ScopeExplicit: true,
		PackageType:   apphit.PackageScoop,
		Path:          pathutil.Normalize(persistDir),
	}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(evidence.ScoopApp, appName, evidence.PersistDir, "1")
	}
	source.TrySend(ctx, out, hit)
}

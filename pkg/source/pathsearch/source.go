// Package pathsearch implements the PATH Search source (§4.1 catalogue
// row 5): it scans each PATH directory for an executable whose stem
// matches the query (the "where" equivalent), and separately probes the
// common Program Files locations for a directory/exe bearing the query
// name even when it was never added to PATH.
package pathsearch

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

const Name = "path-search"

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		scanPath(ctx, q, opts, out)
		if ctx.Err() != nil {
			return
		}
		probeProgramFiles(ctx, q, opts, out)
	})
}

func scanPath(ctx context.Context, q string, opts source.Options, out chan<- *apphit.AppHit) {
	pathEnv := os.Getenv("PATH")
	if pathEnv == "" {
		return
	}
	dirs := strings.Split(pathEnv, string(os.PathListSeparator))
	for _, dir := range dirs {
		if ctx.Err() != nil {
			return
		}
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue // unreadable PATH entry: per-item recoverable
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
				continue
			}
			stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			if !source.Matches(q, opts.Strict, stem) {
				continue
			}
			full := pathutil.Normalize(filepath.Join(dir, entry.Name()))
			scope := apphit.InferScope(full)
			if scope == apphit.User && opts.DropUser() {
				continue
			}
			if scope == apphit.Machine && opts.DropMachine() {
				continue
			}

			exeHit := &apphit.AppHit{Type: apphit.Exe, Scope: scope, Path: full}
			exeHit.AddSource(Name)
			if opts.IncludeEvidence {
				exeHit.Evidence = evidence.New(
					evidence.PATH, "1",
					evidence.WhereQuery, q,
					evidence.ExeName, entry.Name(),
				)
			}
			if !source.TrySend(ctx, out, exeHit) {
				return
			}

			dirHit := &apphit.AppHit{Type: apphit.InstallDir, Scope: scope, Path: pathutil.Normalize(dir)}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(evidence.PATH, "1", evidence.Root, "1")
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}
		}
	}
}

// probeProgramFiles checks $ProgramFiles and $ProgramFiles(x86) for a
// top-level directory whose name loosely matches the query even when
// that directory was never placed on PATH (the "VariantProbe" evidence
// key, flagged as a fuzzy safeguard target in §9 open question (c)).
func probeProgramFiles(ctx context.Context, q string, opts source.Options, out chan<- *apphit.AppHit) {
	// Program Files is always machine-scoped; DropUser has no effect here.
	if opts.DropMachine() {
		return
	}
	roots := []string{os.Getenv("ProgramFiles"), os.Getenv("ProgramFiles(x86)")}
	for _, root := range roots {
		if ctx.Err() != nil {
			return
		}
		if root == "" {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if !source.Matches(q, opts.Strict, entry.Name()) {
				continue
			}
			dir := pathutil.Normalize(filepath.Join(root, entry.Name()))
			dirHit := &apphit.AppHit{Type: apphit.InstallDir, Scope: apphit.Machine, ScopeExplicit: true, Path: dir}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(evidence.VariantProbe, "1", evidence.DirMatch, entry.Name())
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}

			emitDirExes(ctx, dir, q, opts, out)
		}
	}
}

func emitDirExes(ctx context.Context, dir, q string, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			continue
		}
		full := pathutil.Normalize(filepath.Join(dir, entry.Name()))
		exeHit := &apphit.AppHit{Type: apphit.Exe, Scope: apphit.Machine, ScopeExplicit: true, Path: full}
		exeHit.AddSource(Name)
		if opts.IncludeEvidence {
			exeHit.Evidence = evidence.New(evidence.VariantProbe, "1", evidence.ExeName, entry.Name())
		}
		if !source.TrySend(ctx, out, exeHit) {
			return
		}
	}
}

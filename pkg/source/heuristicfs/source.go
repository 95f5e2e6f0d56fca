// Package heuristicfs implements the Heuristic FS source (§4.1
// catalogue row 8): a bounded depth-first scan of the directories where
// Windows applications conventionally install when no registry,
// shortcut, or package-manager record is available — %LOCALAPPDATA%\
// Programs, %APPDATA%, %PROGRAMDATA%, and Program Files ± x86.
package heuristicfs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "heuristic-fs"

// maxDepth bounds the DFS per §4.1 "Heuristic FS bounds": depth 0 is a
// probe root itself, so a match 3 levels below a root is the deepest
// this source will look.
const maxDepth = 3

// defaultWallClock is the fallback deadline applied when the caller's
// per-source timeout is unset or exceeds it; the source never scans
// longer than this regardless of options.Timeout.
const defaultWallClock = 2 * time.Second

var skipLeafNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	"temp":         true,
	"tmp":          true,
}

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		deadline := defaultWallClock
		if opts.Timeout > 0 && opts.Timeout < deadline {
			deadline = opts.Timeout
		}
		scanCtx, cancel := context.WithTimeout(ctx, deadline)
		defer cancel()

		visited := make(map[string]bool)
		for _, root := range roots(opts) {
			scanRoot(scanCtx, root.dir, root.scope, q, opts, visited, out)
			if scanCtx.Err() != nil {
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
		if v := os.Getenv("LOCALAPPDATA"); v != "" {
			result = append(result, rootDir{dir: filepath.Join(v, "Programs"), scope: apphit.User})
		}
		if v := os.Getenv("APPDATA"); v != "" {
			result = append(result, rootDir{dir: v, scope: apphit.User})
		}
	}
	if !opts.DropMachine() {
		if v := os.Getenv("PROGRAMDATA"); v != "" {
			result = append(result, rootDir{dir: v, scope: apphit.Machine})
		}
		if v := os.Getenv("ProgramFiles"); v != "" {
			result = append(result, rootDir{dir: v, scope: apphit.Machine})
		}
		if v := os.Getenv("ProgramFiles(x86)"); v != "" {
			result = append(result, rootDir{dir: v, scope: apphit.Machine})
		}
	}
	return result
}

func scanRoot(ctx context.Context, root string, scope apphit.Scope, q string, opts source.Options, visited map[string]bool, out chan<- *apphit.AppHit) {
	walk(ctx, root, scope, 0, q, opts, visited, out)
}

func walk(ctx context.Context, dir string, scope apphit.Scope, depth int, q string, opts source.Options, visited map[string]bool, out chan<- *apphit.AppHit) {
	if ctx.Err() != nil {
		return
	}
	normalized := pathutil.Normalize(dir)
	if visited[normalized] {
		return // re-entry into an already-yielded directory is suppressed
	}
	visited[normalized] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return // missing/unreadable directory: per-item recoverable
	}

	matchedHere := source.Matches(q, opts.Strict, filepath.Base(dir))
	if matchedHere {
		emitDir(ctx, normalized, scope, filepath.Base(dir), opts, out)
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if !entry.IsDir() {
			if matchedHere && strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
				emitExe(ctx, dir, entry.Name(), scope, opts, out)
			}
			continue
		}
		if skipLeafNames[strings.ToLower(entry.Name())] {
			continue
		}
		if depth >= maxDepth {
			continue
		}
		walk(ctx, filepath.Join(dir, entry.Name()), scope, depth+1, q, opts, visited, out)
	}
}

func emitDir(ctx context.Context, normalizedDir string, scope apphit.Scope, name string, opts source.Options, out chan<- *apphit.AppHit) {
	hit := &apphit.AppHit{Type: apphit.InstallDir, Scope: scope, Path: normalizedDir}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(evidence.DirMatch, name)
	}
	source.TrySend(ctx, out, hit)
}

func emitExe(ctx context.Context, dir, name string, scope apphit.Scope, opts source.Options, out chan<- *apphit.AppHit) {
	hit := &apphit.AppHit{Type: apphit.Exe, Scope: scope, Path: pathutil.Normalize(filepath.Join(dir, name))}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(evidence.ExeName, name, evidence.FromExeDir, "1")
	}
	source.TrySend(ctx, out, hit)
}

// Package shortcuts implements the Start Menu Shortcuts source (§4.1
// catalogue row 3): it walks the %APPDATA% and %PROGRAMDATA% Start Menu
// trees and resolves each .lnk's target via COM automation
// (WScript.Shell), the standard pure-Go approach to reading shortcut
// targets without a hand-rolled binary .lnk parser.
package shortcuts

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "start-menu-shortcuts"

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		resolver, err := newShellResolver()
		if err != nil {
			// Per-source recoverable: COM could not initialize (rare,
			// usually sandboxing). Yield nothing rather than fail.
			return
		}
		defer resolver.Close()

		for _, root := range startMenuRoots(opts) {
			walkDir(ctx, root.dir, root.scope, resolver, q, opts, out)
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

func startMenuRoots(opts source.Options) []rootDir {
	var roots []rootDir
	if !opts.DropUser() {
		if appData := os.Getenv("APPDATA"); appData != "" {
			roots = append(roots, rootDir{
				dir:   filepath.Join(appData, "Microsoft", "Windows", "Start Menu"),
				scope: apphit.User,
			})
		}
	}
	if !opts.DropMachine() {
		if programData := os.Getenv("PROGRAMDATA"); programData != "" {
			roots = append(roots, rootDir{
				dir:   filepath.Join(programData, "Microsoft", "Windows", "Start Menu"),
				scope: apphit.Machine,
			})
		}
	}
	return roots
}

func walkDir(ctx context.Context, dir string, scope apphit.Scope, resolver *shellResolver, q string, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return // missing/unreadable root: per-item recoverable, yield nothing
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			walkDir(ctx, full, scope, resolver, q, opts, out)
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".lnk") {
			continue
		}
		if !source.Matches(q, opts.Strict, strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))) {
			continue
		}

		target, err := resolver.Resolve(full)
		if err != nil || target == "" {
			continue // broken shortcut: emit nothing per §4.1
		}
		if !strings.EqualFold(filepath.Ext(target), ".exe") {
			continue
		}
		if _, statErr := os.Stat(target); statErr != nil {
			continue // target no longer exists
		}

		hit := &apphit.AppHit{
			Type:          apphit.Exe,
			Scope:         scope,
			ScopeExplicit: true,
			Path:          pathutil.Normalize(target),
		}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(evidence.Shortcut, pathutil.Normalize(full))
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}
	}
}

// shellResolver wraps a WScript.Shell COM object used to read .lnk
// target paths via IWshShortcut.TargetPath.
type shellResolver struct {
	shell *ole.IDispatch
}

func newShellResolver() (*shellResolver, error) {
	if err := ole.CoInitialize(0); err != nil {
		return nil, err
	}
	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		ole.CoUninitialize()
		return nil, err
	}
	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	unknown.Release()
	if err != nil {
		ole.CoUninitialize()
		return nil, err
	}
	return &shellResolver{shell: shell}, nil
}

func (r *shellResolver) Resolve(lnkPath string) (string, error) {
	result, err := oleutil.CallMethod(r.shell, "CreateShortcut", lnkPath)
	if err != nil {
		return "", err
	}
	shortcut := result.ToIDispatch()
	defer shortcut.Release()

	targetProp, err := oleutil.GetProperty(shortcut, "TargetPath")
	if err != nil {
		return "", err
	}
	return targetProp.ToString(), nil
}

func (r *shellResolver) Close() {
	if r.shell != nil {
		r.shell.Release()
	}
	ole.CoUninitialize()
}

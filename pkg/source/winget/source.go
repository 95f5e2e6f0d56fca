// Package winget implements the Winget source (§4.1 catalogue row 11):
// it shells out to `winget export`, which lists every package Winget
// knows the machine has installed, then resolves each matching package
// to a real install path via a filesystem heuristic (Program Files,
// Program Files (x86), and %LOCALAPPDATA%\Programs, probed by package
// id segment and display name). The export is expensive (it talks to
// Winget's own catalog machinery) so the parsed result is cached for
// the lifetime of the process behind a mutex — the one piece of
// permitted global state per §9 design notes.
//
// A package that resolves to no real path on disk yields nothing: per
// §4.5 and §9 open question (d), a synthetic winget://<id> placeholder
// must never reach emission, only ever serve as an internal merge hint,
// and this source does not implement that speculative merge hinting.
package winget

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "winget"

// Package is the subset of a `winget export` package entry this source
// consumes.
type Package struct {
	PackageIdentifier string `json:"PackageIdentifier"`
	Version           string `json:"Version"`
}

type exportDocument struct {
	Sources []struct {
		Packages []Package `json:"Packages"`
	} `json:"Sources"`
}

// Exporter runs the winget export and returns its raw JSON output.
// Abstracted so tests can inject canned output without invoking the
// real winget.exe binary.
type Exporter interface {
	Export(ctx context.Context) ([]byte, error)
}

type execExporter struct{}

func (execExporter) Export(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "winget", "export", "-o", "-")
	return cmd.Output()
}

var (
	cacheMu    sync.Mutex
	cachedOnce bool
	cachedPkgs []Package
	cachedErr  error
)

func exportCached(ctx context.Context, exp Exporter) ([]Package, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	if cachedOnce {
		return cachedPkgs, cachedErr
	}
	raw, err := exp.Export(ctx)
	if err != nil {
		cachedOnce = true
		cachedErr = err
		return nil, err
	}
	var doc exportDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		cachedOnce = true
		cachedErr = err
		return nil, err
	}
	var pkgs []Package
	for _, src := range doc.Sources {
		pkgs = append(pkgs, src.Packages...)
	}
	cachedOnce = true
	cachedPkgs = pkgs
	return pkgs, nil
}

// ResetCache clears the process-wide export cache; used by tests so
// each test case observes a fresh Exporter invocation.
func ResetCache() {
	cacheMu.Lock()
	defer cacheMu.Unlock()
	cachedOnce = false
	cachedPkgs = nil
	cachedErr = nil
}

type Source struct {
	exporter Exporter
}

func New() *Source { return &Source{exporter: execExporter{}} }

// NewWithExporter is used by tests to inject a stub Exporter.
func NewWithExporter(exp Exporter) *Source { return &Source{exporter: exp} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		if opts.DropMachine() {
			return // winget-registered packages are machine-scoped
		}

		pkgs, err := exportCached(ctx, s.exporter)
		if err != nil {
			return // per-source recoverable: winget missing/failed, yield nothing
		}

		probeRoots := programRoots()
		for _, pkg := range pkgs {
			if ctx.Err() != nil {
				return
			}
			name := packageDisplayName(pkg.PackageIdentifier)
			if !source.Matches(q, opts.Strict, pkg.PackageIdentifier, name) {
				continue
			}

			installDir := resolveInstallDir(probeRoots, name)
			if installDir == "" {
				continue // no filesystem match found: emit nothing, never a synthetic placeholder
			}

			dirHit := &apphit.AppHit{
				Type:          apphit.InstallDir,
				Scope:         apphit.Machine,
				ScopeExplicit: true,
				Version:       pkg.Version,
				PackageType:   apphit.PackageWinget,
				Path:          pathutil.Normalize(installDir),
			}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(evidence.WingetID, pkg.PackageIdentifier, evidence.WingetSource, "winget")
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}

			emitExes(ctx, installDir, pkg, opts, out)
		}
	})
}

// packageDisplayName derives a human-friendly name from a winget
// PackageIdentifier such as "Microsoft.VisualStudioCode" by taking the
// final dot-separated segment.
func packageDisplayName(id string) string {
	idx := strings.LastIndex(id, ".")
	if idx < 0 || idx == len(id)-1 {
		return id
	}
	return id[idx+1:]
}

func programRoots() []string {
	var roots []string
	for _, env := range []string{"ProgramFiles", "ProgramFiles(x86)"} {
		if v := os.Getenv(env); v != "" {
			roots = append(roots, v)
		}
	}
	if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
		roots = append(roots, filepath.Join(localAppData, "Programs"))
	}
	return roots
}

// resolveInstallDir probes each root for a top-level directory whose
// name loosely matches the package display name.
func resolveInstallDir(roots []string, name string) string {
	for _, root := range roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if source.Matches(name, false, entry.Name()) {
				return filepath.Join(root, entry.Name())
			}
		}
	}
	return ""
}

func emitExes(ctx context.Context, installDir string, pkg Package, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(installDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			continue
		}
		hit := &apphit.AppHit{
			Type:          apphit.Exe,
			Scope:         apphit.Machine,
			ScopeExplicit: true,
			Version:       pkg.Version,
			PackageType:   apphit.PackageWinget,
			Path:          pathutil.Normalize(filepath.Join(installDir, entry.Name())),
		}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(
				evidence.WingetID, pkg.PackageIdentifier,
				evidence.WingetSource, "winget",
				evidence.ExeName, entry.Name(),
			)
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}
	}
}

// Package chocolatey implements the Chocolatey source (§4.1 catalogue
// row 10): it scans the Chocolatey package manager's `lib` directory
// (`$ChocolateyInstall` or `ProgramData\chocolatey\lib`), which holds
// one subdirectory per installed package containing its `.nuspec` and
// payload.
package chocolatey

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "chocolatey"

var nuspecTitleRE = regexp.MustCompile(`(?s)<title>(.*?)</title>`)

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		if opts.DropMachine() {
			return // Chocolatey installs are machine-scoped
		}
		libDir := chocoLibDir()
		if libDir == "" {
			return
		}
		walkLib(ctx, libDir, q, opts, out)
	})
}

func chocoLibDir() string {
	if custom := os.Getenv("ChocolateyInstall"); custom != "" {
		return filepath.Join(custom, "lib")
	}
	if programData := os.Getenv("PROGRAMDATA"); programData != "" {
		return filepath.Join(programData, "chocolatey", "lib")
	}
	return ""
}

func walkLib(ctx context.Context, libDir, q string, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(libDir)
	if err != nil {
		return // missing/unreadable lib dir: per-item recoverable
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if !entry.IsDir() {
			continue
		}
		pkgName := entry.Name()
		pkgDir := filepath.Join(libDir, pkgName)
		title := readNuspecTitle(pkgDir, pkgName)

		if !source.Matches(q, opts.Strict, pkgName, title) {
			continue
		}

		installDir := pathutil.Normalize(pkgDir)
		dirHit := &apphit.AppHit{
			Type:          apphit.InstallDir,
			Scope:         apphit.Machine,
			ScopeExplicit: true,
			PackageType:   apphit.PackageChocolatey,
			Path:          installDir,
		}
		dirHit.AddSource(Name)
		if opts.IncludeEvidence {
			dirHit.Evidence = evidence.New(evidence.ChocoPackage, pkgName, evidence.ChocoRoot, pathutil.Normalize(libDir))
			if title != "" {
				dirHit.Evidence.Set(evidence.Title, title)
			}
		}
		if !source.TrySend(ctx, out, dirHit) {
			return
		}

		emitExes(ctx, pkgDir, pkgName, opts, out)
		emitMetaDir(ctx, pkgDir, pkgName, opts, out)
	}
}

// readNuspecTitle extracts the <title> element from the package's
// .nuspec manifest when present; it falls back to the package dir name
// for matching when absent.
func readNuspecTitle(pkgDir, pkgName string) string {
	nuspecPath := filepath.Join(pkgDir, pkgName+".nuspec")
	data, err := os.ReadFile(nuspecPath)
	if err != nil {
		return ""
	}
	m := nuspecTitleRE.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

func emitExes(ctx context.Context, pkgDir, pkgName string, opts source.Options, out chan<- *apphit.AppHit) {
	var exes []string
	_ = filepath.WalkDir(pkgDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // per-item recoverable
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(d.Name()), ".exe") {
			exes = append(exes, path)
		}
		return nil
	})
	for _, exe := range exes {
		hit := &apphit.AppHit{
			Type:          apphit.Exe,
			Scope:         apphit.Machine,
			ScopeExplicit: true,
			PackageType:   apphit.PackageChocolatey,
			Path:          pathutil.Normalize(exe),
		}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(evidence.ChocoPackage, pkgName, evidence.ExeName, filepath.Base(exe))
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}
	}
}

// emitMetaDir surfaces the package's `.chocolatey` metadata directory
// (nupkg + install scripts) as a Config hit when present.
func emitMetaDir(ctx context.Context, pkgDir, pkgName string, opts source.Options, out chan<- *apphit.AppHit) {
	metaDir := filepath.Join(pkgDir, ".chocolatey", pkgName)
	if info, err := os.Stat(metaDir); err != nil || !info.IsDir() {
		return
	}
	hit := &apphit.AppHit{
		Type:          apphit.Config,
		Scope:         apphit.Machine,
		ScopeExplicit: true,
		PackageType:   apphit.PackageChocolatey,
		Path:          pathutil.Normalize(metaDir),
	}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(evidence.ChocoPackage, pkgName, evidence.MetaDir, "1")
	}
	source.TrySend(ctx, out, hit)
}

// Package msixstore implements the MSIX/Store source (§4.1 catalogue row
// 7). Real package enumeration goes through a Provider abstraction so
// that tests can inject a deterministic fixture via APPLOCATE_MSIX_FAKE
// instead of depending on the live AppxPackage WMI class, mirroring the
// way the rest of the pipeline keeps OS calls behind a small interface
// for fakeability.
package msixstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/yusufpapurcu/wmi"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "msix-store"

// FakeEnvVar names the environment variable that, when set, substitutes
// a JSON fixture for the live OS package enumeration (§6 "Environment
// variables consumed").
const FakeEnvVar = "APPLOCATE_MSIX_FAKE"

// Package describes one enumerated MSIX/Store package, matching both the
// injected fixture schema and the fields read from the AppxPackage WMI class.
type Package struct {
	Name    string `json:"name"`
	Family  string `json:"family"`
	Install string `json:"install"`
	Version string `json:"version"`
}

// Provider enumerates installed MSIX/Store packages.
type Provider interface {
	ListPackages(ctx context.Context) ([]Package, error)
}

// FixtureProvider reads packages from APPLOCATE_MSIX_FAKE, a JSON array
// of {name, family, install, version} objects, used to make MSIX
// discovery deterministic in tests and CI.
type FixtureProvider struct{}

func (FixtureProvider) ListPackages(ctx context.Context) ([]Package, error) {
	raw := os.Getenv(FakeEnvVar)
	if raw == "" {
		return nil, nil
	}
	var pkgs []Package
	if err := json.Unmarshal([]byte(raw), &pkgs); err != nil {
		return nil, err // malformed fixture: Query treats it as a failed enumeration and yields nothing
	}
	return pkgs, nil
}

// appxPackageRow mirrors the subset of the Win32 AppxPackage WMI class
// fields this source consumes.
type appxPackageRow struct {
	Name               string
	PackageFamilyName  string
	InstallLocation    string
	Version            string
}

// WMIProvider queries the live AppxPackage WMI class. It is the
// production path; FixtureProvider takes priority whenever the fake
// env var is set, so WMIProvider is only reached on real systems.
type WMIProvider struct{}

func (WMIProvider) ListPackages(ctx context.Context) ([]Package, error) {
	var rows []appxPackageRow
	if err := wmi.Query("SELECT Name, PackageFamilyName, InstallLocation, Version FROM AppxPackage", &rows); err != nil {
		return nil, err
	}
	pkgs := make([]Package, 0, len(rows))
	for _, r := range rows {
		pkgs = append(pkgs, Package{
			Name:    r.Name,
			Family:  r.PackageFamilyName,
			Install: r.InstallLocation,
			Version: r.Version,
		})
	}
	return pkgs, nil
}

type Source struct {
	provider Provider
}

func New() *Source {
	return &Source{provider: resolveProvider()}
}

// NewWithProvider is used by tests to inject a stub Provider directly,
// bypassing the APPLOCATE_MSIX_FAKE environment-variable indirection.
func NewWithProvider(p Provider) *Source {
	return &Source{provider: p}
}

func resolveProvider() Provider {
	if os.Getenv(FakeEnvVar) != "" {
		return FixtureProvider{}
	}
	return WMIProvider{}
}

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		if opts.DropMachine() {
			// MSIX/Store packages are installed per-machine (per-user
			// registration aside, the install payload is shared); treat
			// as machine-scoped for the drop filter.
			return
		}

		pkgs, err := s.provider.ListPackages(ctx)
		if err != nil {
			return // per-source recoverable: enumeration failed, yield nothing
		}

		for _, pkg := range pkgs {
			if ctx.Err() != nil {
				return
			}
			if pkg.Install == "" {
				continue
			}
			if !source.Matches(q, opts.Strict, pkg.Name, pkg.Family) {
				continue
			}

			installDir := pathutil.Normalize(pkg.Install)
			dirHit := &apphit.AppHit{
				Type:          apphit.InstallDir,
				Scope:         apphit.Machine,
				ScopeExplicit: true,
				Version:       pkg.Version,
				PackageType:   apphit.PackageMSIX,
				Path:          installDir,
			}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(
					evidence.PackageName, pkg.Name,
					evidence.PackageFamilyName, pkg.Family,
					evidence.PackageVersion, pkg.Version,
				)
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}

			exe, fromManifest := findExecutable(installDir, pkg)
			if exe == "" {
				continue
			}
			exeHit := &apphit.AppHit{
				Type:          apphit.Exe,
				Scope:         apphit.Machine,
				ScopeExplicit: true,
				Version:       pkg.Version,
				PackageType:   apphit.PackageMSIX,
				Path:          exe,
			}
			exeHit.AddSource(Name)
			if opts.IncludeEvidence {
				kv := []string{
					evidence.PackageName, pkg.Name,
					evidence.PackageFamilyName, pkg.Family,
				}
				if fromManifest {
					kv = append(kv, evidence.MsixManifest, "1")
				}
				exeHit.Evidence = evidence.New(kv...)
			}
			if !source.TrySend(ctx, out, exeHit) {
				return
			}
		}
	})
}

// findExecutable prefers a manifest-declared executable; when no
// AppxManifest.xml is present (fixtures, sparse installs) it falls back
// to a top-level exe scan of the install directory, per §4.1.
func findExecutable(installDir string, pkg Package) (exe string, fromManifest bool) {
	manifestPath := filepath.Join(filepath.FromSlash(installDir), "AppxManifest.xml")
	if data, err := os.ReadFile(manifestPath); err == nil {
		if resolved := parseManifestExecutable(string(data), installDir); resolved != "" {
			return resolved, true
		}
	}

	entries, err := os.ReadDir(filepath.FromSlash(installDir))
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			continue
		}
		return pathutil.Normalize(filepath.Join(filepath.FromSlash(installDir), entry.Name())), false
	}
	return "", false
}

// parseManifestExecutable extracts the Executable="..." attribute of the
// first <Application> element in an AppxManifest.xml without pulling in
// a full XML schema for a single attribute lookup.
func parseManifestExecutable(manifestXML, installDir string) string {
	const attr = `Executable="`
	idx := strings.Index(manifestXML, attr)
	if idx < 0 {
		return ""
	}
	rest := manifestXML[idx+len(attr):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	relative := rest[:end]
	if relative == "" {
		return ""
	}
	return pathutil.Normalize(filepath.Join(filepath.FromSlash(installDir), relative))
}

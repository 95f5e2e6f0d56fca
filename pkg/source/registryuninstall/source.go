// Package registryuninstall implements the Registry Uninstall source
// (§4.1 catalogue row 1): it walks HKLM/HKCU Uninstall and the
// WOW6432Node redirection, emitting an InstallDir hit per
// InstallLocation value and an Exe hit parsed from DisplayIcon.
package registryuninstall

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "registry-uninstall"

var uninstallPaths = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`,
	`SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`,
}

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		roots := source.UninstallRoots
		for _, root := range roots {
			if root.Scope == "machine" && opts.DropMachine() {
				continue
			}
			if root.Scope == "user" && opts.DropUser() {
				continue
			}
			for _, base := range uninstallPaths {
				walkRoot(ctx, root.Key, root.Scope, base, q, opts, out)
				if ctx.Err() != nil {
					return
				}
			}
		}
	})
}

func walkRoot(ctx context.Context, root registry.Key, scopeName, base, q string, opts source.Options, out chan<- *apphit.AppHit) {
	for _, subkey := range source.OpenSubkeys(root, base) {
		if ctx.Err() != nil {
			return
		}
		path := base + `\` + subkey
		values := source.ReadStringValues(root, path,
			"DisplayName", "InstallLocation", "DisplayIcon", "WindowsInstaller")
		displayName := values["DisplayName"]
		if displayName == "" {
			continue // not a real uninstall entry (e.g. a patch KB subkey)
		}

		if !source.Matches(q, opts.Strict, displayName, subkey) {
			continue
		}

		hitScope := apphit.Machine
		if scopeName == "user" {
			hitScope = apphit.User
		}

		if loc := strings.TrimSpace(values["InstallLocation"]); loc != "" {
			emitInstallDir(ctx, path, loc, displayName, values, hitScope, opts, out)
		}
		if icon := strings.TrimSpace(values["DisplayIcon"]); icon != "" {
			emitExeFromIcon(ctx, path, icon, displayName, values, hitScope, opts, out)
		}
	}
}

func emitInstallDir(ctx context.Context, keyPath, loc, displayName string, values map[string]string, scope apphit.Scope, opts source.Options, out chan<- *apphit.AppHit) {
	hit := &apphit.AppHit{
		Type:          apphit.InstallDir,
		Scope:         scope,
		ScopeExplicit: true,
		Path:          pathutil.Normalize(loc),
	}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(
			evidence.DisplayName, displayName,
			evidence.Key, keyPath,
			evidence.HasInstallLocation, "1",
		)
		if _, ok := values["WindowsInstaller"]; ok {
			hit.Evidence.Set(evidence.WindowsInstaller, values["WindowsInstaller"])
		}
	}
	source.TrySend(ctx, out, hit)
}

func emitExeFromIcon(ctx context.Context, keyPath, icon, displayName string, values map[string]string, scope apphit.Scope, opts source.Options, out chan<- *apphit.AppHit) {
	exePath := stripIconIndex(icon)
	if !strings.HasSuffix(strings.ToLower(exePath), ".exe") {
		return
	}
	hit := &apphit.AppHit{
		Type:          apphit.Exe,
		Scope:         scope,
		ScopeExplicit: true,
		Path:          pathutil.Normalize(exePath),
	}
	hit.AddSource(Name)
	if opts.IncludeEvidence {
		hit.Evidence = evidence.New(
			evidence.DisplayName, displayName,
			evidence.Key, keyPath,
			evidence.HasDisplayIcon, "1",
		)
		if _, ok := values["WindowsInstaller"]; ok {
			hit.Evidence.Set(evidence.WindowsInstaller, values["WindowsInstaller"])
		}
	}
	source.TrySend(ctx, out, hit)
}

// stripIconIndex removes a trailing ",N" icon-index suffix from a
// DisplayIcon value such as `C:\Program Files\App\app.exe,0`.
func stripIconIndex(icon string) string {
	idx := strings.LastIndex(icon, ",")
	if idx < 0 {
		return icon
	}
	if _, err := strconv.Atoi(strings.TrimSpace(icon[idx+1:])); err != nil {
		return icon
	}
	return icon[:idx]
}

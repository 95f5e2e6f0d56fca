// Package apppaths implements the App Paths source (§4.1 catalogue row
// 2): HKLM/HKCU ...\App Paths subkeys name an executable directly via
// their default value and commonly an installation directory via a
// "Path" value.
package apppaths

import (
	"context"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "app-paths"

const appPathsBase = `SOFTWARE\Microsoft\Windows\CurrentVersion\App Paths`

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		for _, root := range source.UninstallRoots {
			if root.Scope == "machine" && opts.DropMachine() {
				continue
			}
			if root.Scope == "user" && opts.DropUser() {
				continue
			}
			walk(ctx, root.Key, root.Scope, q, opts, out)
			if ctx.Err() != nil {
				return
			}
		}
	})
}

func walk(ctx context.Context, root registry.Key, scopeName, q string, opts source.Options, out chan<- *apphit.AppHit) {
	for _, subkey := range source.OpenSubkeys(root, appPathsBase) {
		if ctx.Err() != nil {
			return
		}
		if !strings.HasSuffix(strings.ToLower(subkey), ".exe") {
			continue
		}
		if !source.Matches(q, opts.Strict, subkey) {
			continue
		}

		path := appPathsBase + `\` + subkey
		values := source.ReadStringValues(root, path, "", "Path")
		exe := strings.TrimSpace(values[""])
		if exe == "" {
			continue
		}

		hitScope := apphit.Machine
		if scopeName == "user" {
			hitScope = apphit.User
		}

		exeHit := &apphit.AppHit{
			Type:          apphit.Exe,
			Scope:         hitScope,
			ScopeExplicit: true,
			Path:          pathutil.Normalize(exe),
		}
		exeHit.AddSource(Name)
		if opts.IncludeEvidence {
			exeHit.Evidence = evidence.New(evidence.Key, path, evidence.HasExe, "1")
		}
		if !source.TrySend(ctx, out, exeHit) {
			return
		}

		if dir := strings.TrimSpace(values["Path"]); dir != "" {
			dirHit := &apphit.AppHit{
				Type:          apphit.InstallDir,
				Scope:         hitScope,
				ScopeExplicit: true,
				Path:          pathutil.Normalize(dir),
			}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(evidence.Key, path, evidence.HasPath, "1")
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}
		}
	}
}

// Package servicestasks implements the Services & Tasks source (§4.1
// catalogue row 6): it reads the Windows service registry
// (HKLM\SYSTEM\CurrentControlSet\Services\*\ImagePath) and scans
// scheduled-task XML definitions for a <Command> element naming an
// executable.
package servicestasks

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/windows/registry"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "services-tasks"

const servicesBase = `SYSTEM\CurrentControlSet\Services`

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		walkServices(ctx, q, opts, out)
		if ctx.Err() != nil {
			return
		}
		walkTasks(ctx, q, opts, out)
	})
}

func walkServices(ctx context.Context, q string, opts source.Options, out chan<- *apphit.AppHit) {
	for _, subkey := range source.OpenSubkeys(registry.LOCAL_MACHINE, servicesBase) {
		if ctx.Err() != nil {
			return
		}
		path := servicesBase + `\` + subkey
		values := source.ReadStringValues(registry.LOCAL_MACHINE, path, "ImagePath", "DisplayName")
		imagePath := strings.TrimSpace(values["ImagePath"])
		if imagePath == "" {
			continue
		}
		exe := extractExePath(imagePath)
		if exe == "" {
			continue
		}
		displayName := values["DisplayName"]
		if !source.Matches(q, opts.Strict, displayName, subkey, pathutil.Stem(exe)) {
			continue
		}

		normalized := pathutil.Normalize(exe)
		scope := inferServiceScope(normalized)
		if scope == apphit.User && opts.DropUser() {
			continue
		}
		if scope == apphit.Machine && opts.DropMachine() {
			continue
		}

		hit := &apphit.AppHit{Type: apphit.Exe, Scope: scope, ScopeExplicit: true, Path: normalized}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(
				evidence.Service, subkey,
				evidence.ServiceDisplayName, displayName,
				evidence.FromService, "1",
			)
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}

		dir := pathutil.Dir(normalized)
		if dir == "" {
			continue
		}
		dirHit := &apphit.AppHit{Type: apphit.InstallDir, Scope: scope, ScopeExplicit: true, Path: dir}
		dirHit.AddSource(Name)
		if opts.IncludeEvidence {
			dirHit.Evidence = evidence.New(evidence.FromService, "1")
		}
		if !source.TrySend(ctx, out, dirHit) {
			return
		}
	}
}

// extractExePath strips quoted-path-plus-arguments forms such as
// `"C:\Program Files\svc\svc.exe" --flag` down to the executable path.
func extractExePath(imagePath string) string {
	s := strings.TrimSpace(imagePath)
	if strings.HasPrefix(s, `"`) {
		if end := strings.Index(s[1:], `"`); end >= 0 {
			return s[1 : end+1]
		}
	}
	if idx := strings.Index(strings.ToLower(s), ".exe"); idx >= 0 {
		return s[:idx+4]
	}
	return s
}

func inferServiceScope(normalizedPath string) apphit.Scope {
	if strings.Contains(strings.ToLower(normalizedPath), "/users/") {
		return apphit.User
	}
	return apphit.Machine
}

type taskDef struct {
	XMLName xml.Name `xml:"Task"`
	Actions struct {
		Exec []struct {
			Command   string `xml:"Command"`
			Arguments string `xml:"Arguments"`
		} `xml:"Exec"`
	} `xml:"Actions"`
}

func taskRoots() []string {
	var roots []string
	if systemRoot := os.Getenv("SystemRoot"); systemRoot != "" {
		roots = append(roots, filepath.Join(systemRoot, "System32", "Tasks"))
	}
	return roots
}

func walkTasks(ctx context.Context, q string, opts source.Options, out chan<- *apphit.AppHit) {
	if opts.DropMachine() {
		return // scheduled tasks live under a machine-scoped directory
	}
	for _, root := range taskRoots() {
		walkTaskDir(ctx, root, q, opts, out)
		if ctx.Err() != nil {
			return
		}
	}
}

func walkTaskDir(ctx context.Context, dir, q string, opts source.Options, out chan<- *apphit.AppHit) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return // missing/unreadable Tasks root: per-item recoverable
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			walkTaskDir(ctx, full, q, opts, out)
			continue
		}
		emitTaskFile(ctx, full, entry.Name(), q, opts, out)
	}
}

func emitTaskFile(ctx context.Context, full, name, q string, opts source.Options, out chan<- *apphit.AppHit) {
	data, err := os.ReadFile(full)
	if err != nil {
		return // per-item recoverable
	}
	var def taskDef
	if err := xml.Unmarshal(data, &def); err != nil {
		return // malformed scheduled-task XML: per-item recoverable
	}
	for _, action := range def.Actions.Exec {
		command := strings.TrimSpace(action.Command)
		if command == "" || !strings.HasSuffix(strings.ToLower(command), ".exe") {
			continue
		}
		if !source.Matches(q, opts.Strict, name, pathutil.Stem(command)) {
			continue
		}

		normalized := pathutil.Normalize(command)
		hit := &apphit.AppHit{Type: apphit.Exe, Scope: apphit.Machine, ScopeExplicit: true, Path: normalized}
		hit.AddSource(Name)
		if opts.IncludeEvidence {
			hit.Evidence = evidence.New(
				evidence.TaskFile, pathutil.Normalize(full),
				evidence.TaskName, name,
				evidence.FromTask, "1",
			)
		}
		if !source.TrySend(ctx, out, hit) {
			return
		}
	}
}

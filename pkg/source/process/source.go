// Package process implements the Process source (§4.1 catalogue row 4):
// it enumerates running processes via gopsutil and matches against the
// process name and the exe's file stem.
package process

import (
	"context"
	"strconv"
	"strings"

	gopsprocess "github.com/shirou/gopsutil/v3/process"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/pathutil"
	"github.com/3leaps/applocate/pkg/source"
)

const Name = "process"

type Source struct{}

func New() *Source { return &Source{} }

func (s *Source) Name() string { return Name }

func (s *Source) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		if !opts.IncludeRunning && opts.PIDFilter == 0 {
			return
		}

		procs, err := gopsprocess.ProcessesWithContext(ctx)
		if err != nil {
			return // per-source recoverable: enumeration failed, yield nothing
		}

		seen := make(map[string]bool)
		for _, p := range procs {
			if ctx.Err() != nil {
				return
			}
			if opts.PIDFilter != 0 && int(p.Pid) != opts.PIDFilter {
				continue
			}

			exe, err := p.ExeWithContext(ctx)
			if err != nil || exe == "" {
				continue // access denied or zombie process: per-item recoverable
			}
			normalized := pathutil.Normalize(exe)
			if seen[normalized] {
				continue
			}

			name, _ := p.NameWithContext(ctx)
			if name == "" {
				name = pathutil.Base(normalized)
			}
			if !source.Matches(q, opts.Strict, name, pathutil.Stem(normalized)) {
				continue
			}
			seen[normalized] = true

			hit := &apphit.AppHit{
				Type:  apphit.Exe,
				Scope: apphit.InferScope(normalized),
				Path:  normalized,
			}
			hit.AddSource(Name)
			if opts.IncludeEvidence {
				hit.Evidence = evidence.New(
					evidence.ProcessID, strconv.Itoa(int(p.Pid)),
					evidence.ProcessName, name,
					evidence.ExeName, pathutil.Base(normalized),
				)
			}
			if !source.TrySend(ctx, out, hit) {
				return
			}

			dir := pathutil.Dir(normalized)
			if dir == "" || strings.TrimSuffix(dir, "/") == "" {
				continue
			}
			dirHit := &apphit.AppHit{
				Type:  apphit.InstallDir,
				Scope: apphit.InferScope(dir),
				Path:  dir,
			}
			dirHit.AddSource(Name)
			if opts.IncludeEvidence {
				dirHit.Evidence = evidence.New(evidence.FromExeDir, "1")
			}
			if !source.TrySend(ctx, out, dirHit) {
				return
			}
		}
	})
}

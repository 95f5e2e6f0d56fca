// Package orchestrator implements the top-level run(args) -> exit code
// contract (§4.7): normalizing the query, building the default source
// registry, dispatching to the index cache or a fresh discovery run, and
// handing the final ordered hits to the caller for formatting.
package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/3leaps/applocate/internal/exitcode"
	"github.com/3leaps/applocate/internal/observability"
	"github.com/3leaps/applocate/pkg/aggregator"
	"github.com/3leaps/applocate/pkg/alias"
	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/collapse"
	"github.com/3leaps/applocate/pkg/indexcache"
	"github.com/3leaps/applocate/pkg/ranker"
	"github.com/3leaps/applocate/pkg/rules"
	"github.com/3leaps/applocate/pkg/source"
	"github.com/3leaps/applocate/pkg/source/apppaths"
	"github.com/3leaps/applocate/pkg/source/chocolatey"
	"github.com/3leaps/applocate/pkg/source/heuristicfs"
	"github.com/3leaps/applocate/pkg/source/msixstore"
	"github.com/3leaps/applocate/pkg/source/pathsearch"
	"github.com/3leaps/applocate/pkg/source/process"
	"github.com/3leaps/applocate/pkg/source/registryuninstall"
	"github.com/3leaps/applocate/pkg/source/scoop"
	"github.com/3leaps/applocate/pkg/source/servicestasks"
	"github.com/3leaps/applocate/pkg/source/shortcuts"
	"github.com/3leaps/applocate/pkg/source/winget"
)

// Args carries the normalized form of the CLI surface described in §6.
// The CLI layer owns flag parsing and validation (exit code 2); by the
// time Args reaches Run, every field is known-valid.
type Args struct {
	Query string

	TypeExe        bool
	TypeInstallDir bool
	TypeConfig     bool
	TypeData       bool

	UserOnly    bool
	MachineOnly bool
	Strict      bool

	ConfidenceMin float64
	Limit         int
	All           bool

	IncludeRunning bool
	PID            int

	IncludeEvidence bool
	EvidenceKeys    []string
	ScoreBreakdown  bool

	IndexPath     string
	RefreshIndex  bool
	ClearCache    bool

	ThreadCap int
	Timeout   time.Duration

	// RulePacks are already-loaded rule packs (§4.3) applied after
	// discovery, in file order.
	RulePacks []*rules.Pack

	// RegistryCustomizer lets callers (tests, plugin packs) adjust the
	// default registry before it is built, via source.Builder's
	// add/replace/remove/insert-before/move operations (§9 "Polymorphic
	// sources").
	RegistryCustomizer func(b *source.Builder)

	Now time.Time
}

// Result is the orchestrator's output: the final ordered hits and the
// exit code the CLI layer should return.
type Result struct {
	Hits     []*apphit.AppHit
	ExitCode int
}

// Run executes the full discovery pipeline (§4.7) and returns the
// ordered hits plus an exit code. Run never panics: an unexpected
// internal error is recovered and reported as exitcode.Internal.
func Run(ctx context.Context, args Args) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			observability.CLILogger.Error("internal error", zap.Any("panic", r))
			result = Result{ExitCode: exitcode.Internal}
		}
	}()

	normalized := alias.NormalizeQuery(args.Query)
	cacheKey := buildCacheKey(args, alias.Canonicalize(normalized))

	file, dirty := indexcache.Prepare(indexPath(args), args.ClearCache)

	if !args.RefreshIndex {
		outcome, entries, lookupDirty := indexcache.Lookup(file, cacheKey, args.RefreshIndex, existsOnDisk)
		dirty = dirty || lookupDirty
		switch outcome {
		case indexcache.OutcomeHit:
			persist(file, dirty, indexPath(args))
			return finish(entriesToHits(entries), args)
		case indexcache.OutcomeKnownMiss:
			persist(file, dirty, indexPath(args))
			return Result{ExitCode: exitcode.NoMatches}
		case indexcache.OutcomeStaleFallthrough:
			observability.CLILogger.Info("cache stale: all paths missing", zap.String("cacheKey", cacheKey))
			// fall through to fresh discovery
		case indexcache.OutcomeMiss:
			// fall through to fresh discovery
		}
	}

	registry := buildRegistry(args)
	runID := uuid.New().String()

	traceCh := make(chan aggregator.SourceTrace, len(registry.Sources())+1)
	var traceWG sync.WaitGroup
	traceWG.Add(1)
	go func() {
		defer traceWG.Done()
		for t := range traceCh {
			log := observability.CLILogger.Debug
			if t.TimedOut {
				log = observability.CLILogger.Info
			}
			log("source finished",
				zap.String("runID", t.RunID),
				zap.String("source", t.Source),
				zap.Int64("elapsedMS", t.ElapsedMS),
				zap.Int("hits", t.HitCount),
				zap.Bool("timedOut", t.TimedOut),
			)
		}
	}()

	agg := aggregator.New(registry, aggregator.Config{ThreadCap: args.ThreadCap, Trace: traceCh, RunID: runID})
	opts := source.Options{
		UserOnly:        args.UserOnly,
		MachineOnly:     args.MachineOnly,
		Strict:          args.Strict,
		IncludeEvidence: args.IncludeEvidence || args.ScoreBreakdown,
		Timeout:         args.Timeout,
		PIDFilter:       args.PID,
		IncludeRunning:  args.IncludeRunning || args.PID > 0,
	}

	hits := agg.Run(ctx, normalized, opts)
	close(traceCh)
	traceWG.Wait()

	for _, pack := range args.RulePacks {
		hits = append(hits, expandWithPack(pack, hits)...)
	}

	scoreHits(normalized, hits)

	hits = collapse.Filter(hits)
	final := finish(hits, args)

	now := args.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	prior := file.FindRecord(cacheKey)
	rec := indexcache.BuildRecord(cacheKey, final.Hits, prior, now)
	file.PutRecord(rec)
	persist(file, true, indexPath(args))

	return final
}

func finish(hits []*apphit.AppHit, args Args) Result {
	hits = collapse.Collapse(hits, collapse.Options{
		All:           args.All,
		Limit:         args.Limit,
		ConfidenceMin: args.ConfidenceMin,
	})
	hits = applyTypeFilter(hits, args)

	code := exitcode.Results
	if len(hits) == 0 {
		code = exitcode.NoMatches
	}
	return Result{Hits: hits, ExitCode: code}
}

func applyTypeFilter(hits []*apphit.AppHit, args Args) []*apphit.AppHit {
	if !args.TypeExe && !args.TypeInstallDir && !args.TypeConfig && !args.TypeData {
		return hits
	}
	out := make([]*apphit.AppHit, 0, len(hits))
	for _, h := range hits {
		switch h.Type {
		case apphit.Exe:
			if args.TypeExe {
				out = append(out, h)
			}
		case apphit.InstallDir:
			if args.TypeInstallDir {
				out = append(out, h)
			}
		case apphit.Config:
			if args.TypeConfig {
				out = append(out, h)
			}
		case apphit.Data:
			if args.TypeData {
				out = append(out, h)
			}
		}
	}
	return out
}

func expandWithPack(pack *rules.Pack, hits []*apphit.AppHit) []*apphit.AppHit {
	var synthesized []*apphit.AppHit
	for _, h := range hits {
		synthesized = append(synthesized, pack.Expand(h)...)
	}
	return synthesized
}

func scoreHits(query string, hits []*apphit.AppHit) {
	for _, h := range hits {
		confidence, breakdown := ranker.Score(query, h)
		h.Confidence = confidence
		h.Breakdown = breakdown
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Confidence > hits[j].Confidence
	})
}

func buildRegistry(args Args) *source.Registry {
	b := source.NewBuilder().
		Add(registryuninstall.New()).
		Add(msixstore.New()).
		Add(scoop.New()).
		Add(chocolatey.New()).
		Add(winget.New()).
		Add(shortcuts.New()).
		Add(apppaths.New()).
		Add(pathsearch.New()).
		Add(servicestasks.New()).
		Add(process.New()).
		Add(heuristicfs.New())

	if args.RegistryCustomizer != nil {
		args.RegistryCustomizer(b)
	}
	return b.Build()
}

func indexPath(args Args) string {
	return args.IndexPath
}

func persist(file *indexcache.IndexFile, dirty bool, path string) {
	if !dirty || path == "" {
		return
	}
	if err := indexcache.Save(path, file); err != nil {
		observability.CLILogger.Warn("failed to persist index cache", zap.Error(err))
	}
}

func existsOnDisk(path string) bool {
	return collapse.Exists(path)
}

func entriesToHits(entries []indexcache.IndexEntry) []*apphit.AppHit {
	hits := make([]*apphit.AppHit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, indexcache.ToHit(e))
	}
	return hits
}

func buildCacheKey(args Args, canonicalQuery string) string {
	return indexcache.BuildKey(indexcache.KeyParams{
		Query:         canonicalQuery,
		UserOnly:      args.UserOnly,
		MachineOnly:   args.MachineOnly,
		Strict:        args.Strict,
		IncludeRun:    args.IncludeRunning || args.PID > 0,
		PID:           args.PID,
		TypeExe:       args.TypeExe,
		TypeInstall:   args.TypeInstallDir,
		TypeConfig:    args.TypeConfig,
		TypeData:      args.TypeData,
		ConfidenceMin: args.ConfidenceMin,
	})
}


// Package aggregator fans a query out across the registered discovery
// sources in parallel, bounded by a thread cap and a per-source
// deadline, then deduplicates and merges the resulting hits (§4.2).
package aggregator

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/source"
)

// DefaultTimeout is the per-source deadline applied when
// Options.Timeout is unset (§4.1: "options: {..., timeout, ...}").
const DefaultTimeout = 5 * time.Second

// Config controls aggregator concurrency and tracing.
type Config struct {
	// ThreadCap bounds how many source queries run concurrently.
	// Default: min(logical CPUs, 16).
	ThreadCap int

	// ChannelBuffer sizes the bounded merge buffer between sources and
	// the consumer, giving slow consumers backpressure instead of an
	// unbounded queue.
	ChannelBuffer int

	// Trace, when non-nil, receives one SourceTrace per finished source;
	// no aggregate total record is sent. The aggregator never blocks
	// sending to it (a full or nil channel just drops the record).
	Trace chan<- SourceTrace

	// RunID tags every SourceTrace emitted by this Aggregator with a
	// caller-supplied correlation ID, so a caller logging traces from
	// several invocations (e.g. concurrent CLI runs writing to the same
	// log stream) can tell them apart. Optional; left empty if unset.
	RunID string
}

// SourceTrace is a diagnostic record of one source's elapsed time; it
// never participates in ranking or output (§4.2 "Tracing (optional)").
type SourceTrace struct {
	RunID     string
	Source    string
	ElapsedMS int64
	HitCount  int
	TimedOut  bool
}

// DefaultThreadCap returns min(logical CPUs, 16).
func DefaultThreadCap() int {
	cpus := runtime.NumCPU()
	if cpus > 16 {
		return 16
	}
	if cpus < 1 {
		return 1
	}
	return cpus
}

func (c Config) withDefaults() Config {
	if c.ThreadCap <= 0 {
		c.ThreadCap = DefaultThreadCap()
	}
	if c.ChannelBuffer <= 0 {
		c.ChannelBuffer = 256
	}
	return c
}

// Aggregator dispatches a query across a registry's sources.
type Aggregator struct {
	registry *source.Registry
	cfg      Config
}

func New(registry *source.Registry, cfg Config) *Aggregator {
	return &Aggregator{registry: registry, cfg: cfg.withDefaults()}
}

// Run launches up to ThreadCap source queries concurrently, each under
// its own per-source deadline derived from opts.Timeout, and returns
// the deduplicated, merged hit set once every source has finished or
// been cancelled.
func (a *Aggregator) Run(ctx context.Context, q string, opts source.Options) []*apphit.AppHit {
	sources := a.registry.Sources()
	if len(sources) == 0 {
		return nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	sem := make(chan struct{}, a.cfg.ThreadCap)
	buffer := make(chan *apphit.AppHit, a.cfg.ChannelBuffer)
	var wg sync.WaitGroup

	for _, src := range sources {
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			defer func() { <-sem }()
			a.runSource(ctx, src, q, opts, timeout, buffer)
		}(src)
	}

	go func() {
		wg.Wait()
		close(buffer)
	}()

	merged := newMergeSet()
	for hit := range buffer {
		merged.add(hit)
	}
	return merged.hits()
}

// runSource drains one source's lazy hit sequence into the shared
// bounded buffer; a slow consumer naturally applies backpressure here
// since the buffer has finite capacity.
func (a *Aggregator) runSource(ctx context.Context, src source.Source, q string, opts source.Options, timeout time.Duration, buffer chan<- *apphit.AppHit) {
	start := time.Now()
	srcCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count := 0
	for hit := range src.Query(srcCtx, q, opts) {
		if hit == nil {
			continue
		}
		select {
		case buffer <- hit:
			count++
		case <-ctx.Done():
			a.trace(SourceTrace{RunID: a.cfg.RunID, Source: src.Name(), ElapsedMS: time.Since(start).Milliseconds(), HitCount: count, TimedOut: srcCtx.Err() == context.DeadlineExceeded})
			return
		}
	}

	a.trace(SourceTrace{
		RunID:     a.cfg.RunID,
		Source:    src.Name(),
		ElapsedMS: time.Since(start).Milliseconds(),
		HitCount:  count,
		TimedOut:  srcCtx.Err() == context.DeadlineExceeded,
	})
}

func (a *Aggregator) trace(t SourceTrace) {
	if a.cfg.Trace == nil {
		return
	}
	select {
	case a.cfg.Trace <- t:
	default:
	}
}

// Package source defines the discovery-source contract: a polymorphic
// unit that, given a query, produces a lazy sequence of AppHits. It
// mirrors the teacher's pkg/provider.Provider abstraction (a minimal
// interface implemented by several concrete backends) adapted from
// "list cloud objects" to "find local application artifacts."
package source

import (
	"context"
	"time"

	"github.com/3leaps/applocate/pkg/apphit"
)

// Options configures a single discovery query, threaded into every
// source's Query call. It is immutable for the duration of one
// invocation.
type Options struct {
	UserOnly        bool
	MachineOnly     bool
	Strict          bool
	IncludeEvidence bool
	Timeout         time.Duration

	// PIDFilter restricts the Process source to a single pid. Zero means
	// no filter.
	PIDFilter int

	// IncludeRunning enables the Process source; implied by PIDFilter != 0.
	IncludeRunning bool
}

// DropMachine reports whether a Machine-scoped hit should be dropped
// under these options.
func (o Options) DropMachine() bool { return o.UserOnly }

// DropUser reports whether a User-scoped hit should be dropped under
// these options.
func (o Options) DropUser() bool { return o.MachineOnly }

// Source is a single independent discovery unit. Implementations must:
//   - never let a per-item failure abort the whole query (swallow and
//     continue, per §7 "Per-item recoverable")
//   - observe ctx cancellation between units of work (registry subkeys,
//     directory entries, process records, parse chunks, output lines)
//   - always emit Confidence == 0; ranking is centralized (§4.1)
//   - only populate Evidence when opts.IncludeEvidence is true
//   - use Emit (below) to build their result channel, so an unexpected
//     panic is swallowed rather than propagating past the source
//     boundary (§7 "Per-source recoverable")
type Source interface {
	// Name is a stable identifier used in AppHit.Sources and diagnostics.
	Name() string

	// Query returns hits matching q on a channel that is closed once the
	// source is finished or ctx is cancelled.
	Query(ctx context.Context, q string, opts Options) <-chan *apphit.AppHit
}

// Emit runs fn in its own goroutine, giving it a channel to send hits on
// and recovering from any panic so a single misbehaving source can never
// abort the aggregator. fn must return (not block forever) once ctx is
// cancelled.
func Emit(ctx context.Context, fn func(ctx context.Context, out chan<- *apphit.AppHit)) <-chan *apphit.AppHit {
	ch := make(chan *apphit.AppHit)
	go func() {
		defer close(ch)
		defer func() { _ = recover() }()
		fn(ctx, ch)
	}()
	return ch
}

// TrySend attempts to send hit on out, returning false without blocking
// forever if ctx is cancelled first. Sources should use this at their
// send points so cancellation at a suspension point (§5) is honored even
// mid-send.
func TrySend(ctx context.Context, out chan<- *apphit.AppHit, hit *apphit.AppHit) bool {
	select {
	case out <- hit:
		return true
	case <-ctx.Done():
		return false
	}
}

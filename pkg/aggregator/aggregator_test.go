package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/evidence"
	"github.com/3leaps/applocate/pkg/source"
)

type stubSource struct {
	name  string
	hits  []*apphit.AppHit
	delay time.Duration
	hang  bool
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Query(ctx context.Context, q string, opts source.Options) <-chan *apphit.AppHit {
	return source.Emit(ctx, func(ctx context.Context, out chan<- *apphit.AppHit) {
		if s.hang {
			<-ctx.Done()
			return
		}
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-ctx.Done():
				return
			}
		}
		for _, h := range s.hits {
			if !source.TrySend(ctx, out, h) {
				return
			}
		}
	})
}

func buildRegistry(sources ...source.Source) *source.Registry {
	b := source.NewBuilder()
	for _, s := range sources {
		b.Add(s)
	}
	return b.Build()
}

func TestRunMergesHitsAcrossSources(t *testing.T) {
	a := New(buildRegistry(
		stubSource{name: "s1", hits: []*apphit.AppHit{
			{Type: apphit.Exe, Path: "c:/tools/widget.exe", Sources: []string{"s1"}},
		}},
		stubSource{name: "s2", hits: []*apphit.AppHit{
			{Type: apphit.Exe, Path: "c:/tools/widget.exe", Sources: []string{"s2"}},
			{Type: apphit.InstallDir, Path: "c:/tools", Sources: []string{"s2"}},
		}},
	), Config{})

	hits := a.Run(context.Background(), "widget", source.Options{})
	require.Len(t, hits, 2)

	var exeHit *apphit.AppHit
	for _, h := range hits {
		if h.Type == apphit.Exe {
			exeHit = h
		}
	}
	require.NotNil(t, exeHit)
	require.ElementsMatch(t, []string{"s1", "s2"}, exeHit.Sources)
}

func TestRunMergeEvidenceFirstWriterWins(t *testing.T) {
	a := New(buildRegistry(
		stubSource{name: "s1", hits: []*apphit.AppHit{
			{Type: apphit.Exe, Path: "c:/tools/widget.exe", Sources: []string{"s1"},
				Evidence: evidence.New(evidence.ExeName, "widget.exe")},
		}},
		stubSource{name: "s2", hits: []*apphit.AppHit{
			{Type: apphit.Exe, Path: "c:/tools/widget.exe", Sources: []string{"s2"},
				Evidence: evidence.New(evidence.ExeName, "conflicting.exe", evidence.Shortcut, "x")},
		}},
	), Config{})

	hits := a.Run(context.Background(), "widget", source.Options{})
	require.Len(t, hits, 1)
	val, ok := hits[0].Evidence.Get(evidence.ExeName)
	require.True(t, ok)
	require.Equal(t, "widget.exe", val, "first-writer-wins: s1's value must survive")
	_, hasShortcut := hits[0].Evidence.Get(evidence.Shortcut)
	require.True(t, hasShortcut, "non-conflicting key from s2 should still be merged in")
}

func TestRunCancelsSlowSourceAfterTimeout(t *testing.T) {
	a := New(buildRegistry(
		stubSource{name: "fast", hits: []*apphit.AppHit{
			{Type: apphit.Exe, Path: "c:/tools/widget.exe", Sources: []string{"fast"}},
		}},
		stubSource{name: "hangs", hang: true},
	), Config{})

	start := time.Now()
	hits := a.Run(context.Background(), "widget", source.Options{Timeout: 50 * time.Millisecond})
	elapsed := time.Since(start)

	require.Len(t, hits, 1)
	require.Less(t, elapsed, 2*time.Second, "per-source timeout must cancel the hanging source")
}

func TestRunRespectsThreadCap(t *testing.T) {
	a := New(buildRegistry(
		stubSource{name: "s1", hits: []*apphit.AppHit{{Type: apphit.Exe, Path: "c:/a/a.exe", Sources: []string{"s1"}}}},
		stubSource{name: "s2", hits: []*apphit.AppHit{{Type: apphit.Exe, Path: "c:/b/b.exe", Sources: []string{"s2"}}}},
		stubSource{name: "s3", hits: []*apphit.AppHit{{Type: apphit.Exe, Path: "c:/c/c.exe", Sources: []string{"s3"}}}},
	), Config{ThreadCap: 1})

	hits := a.Run(context.Background(), "", source.Options{})
	require.Len(t, hits, 3)
}

func TestRunEmptyRegistryReturnsNil(t *testing.T) {
	a := New(buildRegistry(), Config{})
	hits := a.Run(context.Background(), "widget", source.Options{})
	require.Empty(t, hits)
}

func TestRunEmitsTrace(t *testing.T) {
	tr := make(chan SourceTrace, 8)
	a := New(buildRegistry(
		stubSource{name: "s1", hits: []*apphit.AppHit{{Type: apphit.Exe, Path: "c:/a/a.exe", Sources: []string{"s1"}}}},
	), Config{Trace: tr})

	a.Run(context.Background(), "", source.Options{})
	close(tr)

	var traces []SourceTrace
	for trace := range tr {
		traces = append(traces, trace)
	}
	require.Len(t, traces, 1)
	require.Equal(t, "s1", traces[0].Source)
	require.Equal(t, 1, traces[0].HitCount)
}

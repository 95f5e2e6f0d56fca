package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
	"github.com/3leaps/applocate/pkg/source"
)

func collect(t *testing.T, ch <-chan *apphit.AppHit) []*apphit.AppHit {
	t.Helper()
	var hits []*apphit.AppHit
	timeout := time.After(3 * time.Second)
	for {
		select {
		case hit, ok := <-ch:
			if !ok {
				return hits
			}
			hits = append(hits, hit)
		case <-timeout:
			t.Fatal("timed out waiting for source channel to close")
		}
	}
}

func TestQuerySkippedWithoutIncludeRunningOrPID(t *testing.T) {
	s := New()
	hits := collect(t, s.Query(context.Background(), "anything", source.Options{}))
	require.Empty(t, hits, "process source must stay dormant unless explicitly requested")
}

func TestQueryFindsCurrentProcessByPID(t *testing.T) {
	s := New()
	pid := os.Getpid()
	self := strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0]))
	hits := collect(t, s.Query(context.Background(), self, source.Options{PIDFilter: pid, IncludeEvidence: true}))

	// The current test binary's own exe should surface an Exe hit and a
	// companion InstallDir hit, matched by PID plus its own binary stem.
	var sawExe bool
	for _, h := range hits {
		if h.Type == apphit.Exe {
			sawExe = true
			require.Contains(t, h.Sources, Name)
		}
	}
	require.True(t, sawExe, "expected to find the current process by pid")
}

func TestQueryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	hits := collect(t, s.Query(ctx, "anything", source.Options{IncludeRunning: true}))
	require.Empty(t, hits)
}

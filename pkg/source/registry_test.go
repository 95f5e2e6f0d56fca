package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/applocate/pkg/apphit"
)

type stubSource struct{ name string }

func (s stubSource) Name() string { return s.name }
func (s stubSource) Query(ctx context.Context, q string, opts Options) <-chan *apphit.AppHit {
	ch := make(chan *apphit.AppHit)
	close(ch)
	return ch
}

func TestBuilderAddAndBuildPreservesOrder(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"}).Add(stubSource{"b"}).Add(stubSource{"c"})
	reg := b.Build()
	names := namesOf(reg.Sources())
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestBuilderReplace(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"}).Add(stubSource{"b"})
	require.NoError(t, b.Replace("a", stubSource{"a2"}))
	assert.Equal(t, []string{"a2", "b"}, namesOf(b.Build().Sources()))
}

func TestBuilderReplaceMissingErrors(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"})
	assert.Error(t, b.Replace("missing", stubSource{"x"}))
}

func TestBuilderRemove(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"}).Add(stubSource{"b"}).Remove("a")
	assert.Equal(t, []string{"b"}, namesOf(b.Build().Sources()))
}

func TestBuilderInsertBefore(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"}).Add(stubSource{"c"})
	require.NoError(t, b.InsertBefore("c", stubSource{"b"}))
	assert.Equal(t, []string{"a", "b", "c"}, namesOf(b.Build().Sources()))
}

func TestBuilderMove(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"}).Add(stubSource{"b"}).Add(stubSource{"c"})
	require.NoError(t, b.Move("c", "a"))
	assert.Equal(t, []string{"c", "a", "b"}, namesOf(b.Build().Sources()))
}

func TestBuildSnapshotIsIndependent(t *testing.T) {
	b := NewBuilder().Add(stubSource{"a"})
	reg1 := b.Build()
	b.Add(stubSource{"b"})
	reg2 := b.Build()
	assert.Equal(t, []string{"a"}, namesOf(reg1.Sources()))
	assert.Equal(t, []string{"a", "b"}, namesOf(reg2.Sources()))
}

func namesOf(sources []Source) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}
	return names
}

package source

import "fmt"

// Registry is an ordered, immutable-once-built collection of sources.
// The orchestrator iterates Registry.Sources() in order to determine the
// aggregator's fan-out set; order only matters for merge tie-breaking
// (first-seen wins for version/packageType, §4.2), not for ranking.
type Registry struct {
	sources []Source
}

// Sources returns the registry's sources in registration order. The
// returned slice is owned by the caller (a defensive copy).
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Builder assembles a Registry via add/replace/remove/insert-before/move
// operations, supporting plugin packs that adjust the default source
// order before the registry is built (§4.1, §9 "Polymorphic sources").
// A Builder is not safe for concurrent use; build one per invocation.
type Builder struct {
	sources []Source
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends src to the end of the registration order.
func (b *Builder) Add(src Source) *Builder {
	b.sources = append(b.sources, src)
	return b
}

// Replace swaps the source named name for replacement, preserving its
// position. Returns an error if name is not registered.
func (b *Builder) Replace(name string, replacement Source) error {
	idx := b.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("source.Builder: no source named %q to replace", name)
	}
	b.sources[idx] = replacement
	return nil
}

// Remove drops the source named name. It is a no-op if name is not
// registered.
func (b *Builder) Remove(name string) *Builder {
	idx := b.indexOf(name)
	if idx < 0 {
		return b
	}
	b.sources = append(b.sources[:idx], b.sources[idx+1:]...)
	return b
}

// InsertBefore inserts src immediately before the source named before.
// Returns an error if before is not registered.
func (b *Builder) InsertBefore(before string, src Source) error {
	idx := b.indexOf(before)
	if idx < 0 {
		return fmt.Errorf("source.Builder: no source named %q to insert before", before)
	}
	b.sources = append(b.sources[:idx], append([]Source{src}, b.sources[idx:]...)...)
	return nil
}

// Move relocates the source named name to immediately before the source
// named before. Returns an error if either name is not registered.
func (b *Builder) Move(name, before string) error {
	idx := b.indexOf(name)
	if idx < 0 {
		return fmt.Errorf("source.Builder: no source named %q to move", name)
	}
	src := b.sources[idx]
	b.sources = append(b.sources[:idx], b.sources[idx+1:]...)

	beforeIdx := b.indexOf(before)
	if beforeIdx < 0 {
		return fmt.Errorf("source.Builder: no source named %q to move before", before)
	}
	b.sources = append(b.sources[:beforeIdx], append([]Source{src}, b.sources[beforeIdx:]...)...)
	return nil
}

func (b *Builder) indexOf(name string) int {
	for i, s := range b.sources {
		if s.Name() == name {
			return i
		}
	}
	return -1
}

// Build freezes the Builder's current order into an immutable Registry.
// The Builder may continue to be used afterward; each Build call
// produces an independent snapshot.
func (b *Builder) Build() *Registry {
	return &Registry{sources: append([]Source(nil), b.sources...)}
}

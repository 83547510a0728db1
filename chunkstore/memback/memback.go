// Package memback is a concrete, in-process implementation of
// chunkstore.Backend. It realizes the one-group-per-genome container
// layout as a nested map keyed by genome name, with each named array
// stored as a map of chunk index to raw (already compressed+checksummed)
// bytes.
package memback

import (
	"fmt"
	"sync"

	"github.com/grailbio/hal/chunkstore"
)

type arrayState struct {
	elemWidth  int
	length     int64
	chunkElems int
	chunks     map[int64][]byte
}

type groupState struct {
	arrays map[string]*arrayState
	meta   map[string]map[string]string // namespace -> key -> value
}

// Backend is an in-memory chunkstore.Backend. It is safe for concurrent
// use by multiple genomes, whose array caches are independent; a single
// genome's own array access is expected to remain single-threaded.
type Backend struct {
	mu     sync.Mutex
	groups map[string]*groupState
}

// New creates an empty in-process backend.
func New() *Backend {
	return &Backend{groups: make(map[string]*groupState)}
}

func (b *Backend) GroupOpen(name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.groups[name]
	return ok, nil
}

func (b *Backend) GroupCreate(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.groups[name]; ok {
		return nil
	}
	b.groups[name] = &groupState{
		arrays: make(map[string]*arrayState),
		meta:   make(map[string]map[string]string),
	}
	return nil
}

func (b *Backend) group(name string) (*groupState, error) {
	g, ok := b.groups[name]
	if !ok {
		return nil, fmt.Errorf("memback: no such group %q", name)
	}
	return g, nil
}

func (b *Backend) Exists(group, name string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, ok := b.groups[group]
	if !ok {
		return false, nil
	}
	_, ok = g.arrays[name]
	return ok, nil
}

func (b *Backend) CreateArray(group, name string, elemWidth int, length int64, chunkElems int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureGroupLocked(group); err != nil {
		return err
	}
	g, _ := b.group(group)
	g.arrays[name] = &arrayState{
		elemWidth:  elemWidth,
		length:     length,
		chunkElems: chunkElems,
		chunks:     make(map[int64][]byte),
	}
	return nil
}

func (b *Backend) ensureGroupLocked(group string) error {
	if _, ok := b.groups[group]; !ok {
		b.groups[group] = &groupState{
			arrays: make(map[string]*arrayState),
			meta:   make(map[string]map[string]string),
		}
	}
	return nil
}

func (b *Backend) OpenArray(group, name string) (chunkstore.ArrayMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.group(group)
	if err != nil {
		return chunkstore.ArrayMeta{}, err
	}
	a, ok := g.arrays[name]
	if !ok {
		return chunkstore.ArrayMeta{}, fmt.Errorf("memback: no such array %s/%s", group, name)
	}
	return chunkstore.ArrayMeta{ElemWidth: a.elemWidth, Length: a.length, ChunkElems: a.chunkElems}, nil
}

func (b *Backend) UnlinkArray(group, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.group(group)
	if err != nil {
		return err
	}
	delete(g.arrays, name)
	return nil
}

func (b *Backend) ReadChunk(group, name string, chunkIdx int64) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.group(group)
	if err != nil {
		return nil, err
	}
	a, ok := g.arrays[name]
	if !ok {
		return nil, fmt.Errorf("memback: no such array %s/%s", group, name)
	}
	raw, ok := a.chunks[chunkIdx]
	if !ok {
		return nil, nil
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}

func (b *Backend) WriteChunk(group, name string, chunkIdx int64, raw []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.group(group)
	if err != nil {
		return err
	}
	a, ok := g.arrays[name]
	if !ok {
		return fmt.Errorf("memback: no such array %s/%s", group, name)
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	a.chunks[chunkIdx] = cp
	return nil
}

func (b *Backend) Flush(group, name string) error {
	// Already durable: nothing to do for the in-process backend.
	return nil
}

func (b *Backend) SetMeta(group, namespace, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureGroupLocked(group); err != nil {
		return err
	}
	g, _ := b.group(group)
	ns, ok := g.meta[namespace]
	if !ok {
		ns = make(map[string]string)
		g.meta[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (b *Backend) GetMeta(group, namespace, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	g, err := b.group(group)
	if err != nil {
		return "", false, nil
	}
	ns, ok := g.meta[namespace]
	if !ok {
		return "", false, nil
	}
	v, ok := ns[key]
	return v, ok, nil
}

var _ chunkstore.Backend = (*Backend)(nil)

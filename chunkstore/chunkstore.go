// Package chunkstore implements a typed 1-D array backed by
// power-of-two-sized chunks that are demand-loaded and evicted through an
// LRU cache. It talks only to the storage-agnostic Backend capability
// interface, so a second backend (plain files, mmap, a remote object
// store) can be added without touching anything above this layer.
package chunkstore

import (
	"container/list"
	"math/bits"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/hal/halerrors"
)

// nextPow2 returns the smallest power of two >= x (x > 0).
func nextPow2(x int) int {
	if x <= 1 {
		return 1
	}
	if x&(x-1) == 0 {
		return x
	}
	log2 := 63 - bits.LeadingZeros64(uint64(x))
	return 2 << uint32(log2)
}

// Compression selects the codec used to compress resident chunks before
// they are handed to the Backend for storage.
type Compression int

const (
	// CompressionNone disables compression.
	CompressionNone Compression = iota
	// CompressionSnappy compresses chunks with github.com/golang/snappy.
	CompressionSnappy
	// CompressionGzip compresses chunks with klauspost/compress's gzip.
	CompressionGzip
)

// CreateProps configures a new array. It is copied by value into the
// Array at creation time, never referenced.
type CreateProps struct {
	// TargetChunkBytes is the approximate uncompressed byte size of one
	// chunk; the actual chunk element count is rounded to a power of two.
	TargetChunkBytes int
	Compression      Compression
}

// DefaultCreateProps returns a moderate chunk size with snappy
// compression enabled.
func DefaultCreateProps() CreateProps {
	return CreateProps{TargetChunkBytes: 1 << 16, Compression: CompressionSnappy}
}

// ScaleDNA returns p with its chunk size enlarged 10x. DNA bases are
// packed ~30x smaller than segment records and compress ~3x worse, so a
// larger chunk improves decompression amortization.
func (p CreateProps) ScaleDNA() CreateProps {
	p.TargetChunkBytes *= 10
	return p
}

// ScaleBottom returns p with its chunk size scaled by min(1, 10/numChildren),
// keeping per-chunk byte size comparable across tree fan-outs.
func (p CreateProps) ScaleBottom(numChildren int) CreateProps {
	scale := 1.0
	if numChildren > 10 {
		scale = 10.0 / float64(numChildren)
	}
	p.TargetChunkBytes = int(float64(p.TargetChunkBytes) * scale)
	if p.TargetChunkBytes < 1 {
		p.TargetChunkBytes = 1
	}
	return p
}

// Array is a typed 1-D array stored as named chunks in a Backend.
// Elements are opaque fixed-width byte slots; the record package
// interprets their contents.
type Array struct {
	backend   Backend
	group     string
	name      string
	elemWidth int
	length    int64

	chunkElems int64
	props      CreateProps

	bufferedChunks int // 0 = load everything, keep all chunks resident
	chunks         map[int64][]byte
	dirty          map[int64]bool

	lru     *list.List
	lruElem map[int64]*list.Element
}

// Create allocates a new array of the given length (element count) with
// elemWidth bytes per element, and registers it with the backend.
func Create(backend Backend, group, name string, elemWidth int, length int64, props CreateProps, bufferedChunks int) (*Array, error) {
	if elemWidth <= 0 {
		return nil, halerrors.E(halerrors.OutOfRange, "chunkstore: non-positive element width ", elemWidth)
	}
	chunkElems := int64(nextPow2(maxInt(1, props.TargetChunkBytes/elemWidth)))
	if err := backend.CreateArray(group, name, elemWidth, length, int(chunkElems)); err != nil {
		return nil, halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: create %s/%s", group, name))
	}
	a := newArray(backend, group, name, elemWidth, length, chunkElems, props, bufferedChunks)
	vlog.VI(1).Infof("chunkstore: created %s/%s len=%d elemWidth=%d chunkElems=%d", group, name, length, elemWidth, chunkElems)
	return a, nil
}

// Load opens an existing array.
func Load(backend Backend, group, name string, bufferedChunks int) (*Array, error) {
	meta, err := backend.OpenArray(group, name)
	if err != nil {
		return nil, halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: open %s/%s", group, name))
	}
	a := newArray(backend, group, name, meta.ElemWidth, meta.Length, int64(meta.ChunkElems), DefaultCreateProps(), bufferedChunks)
	return a, nil
}

// Unlink removes an array from the backend. Unlinking an absent array is
// not an error.
func Unlink(backend Backend, group, name string) error {
	exists, err := backend.Exists(group, name)
	if err != nil {
		return halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: exists %s/%s", group, name))
	}
	if !exists {
		return nil
	}
	if err := backend.UnlinkArray(group, name); err != nil {
		return halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: unlink %s/%s", group, name))
	}
	return nil
}

// Exists reports whether the named array is present in group.
func Exists(backend Backend, group, name string) (bool, error) {
	exists, err := backend.Exists(group, name)
	if err != nil {
		return false, halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: exists %s/%s", group, name))
	}
	return exists, nil
}

func newArray(backend Backend, group, name string, elemWidth int, length, chunkElems int64, props CreateProps, bufferedChunks int) *Array {
	return &Array{
		backend:        backend,
		group:          group,
		name:           name,
		elemWidth:      elemWidth,
		length:         length,
		chunkElems:     chunkElems,
		props:          props,
		bufferedChunks: bufferedChunks,
		chunks:         make(map[int64][]byte),
		dirty:          make(map[int64]bool),
		lru:            list.New(),
		lruElem:        make(map[int64]*list.Element),
	}
}

// Size returns the element count of the array.
func (a *Array) Size() int64 { return a.length }

// ElemWidth returns the per-element byte width.
func (a *Array) ElemWidth() int { return a.elemWidth }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (a *Array) chunkIndex(elem int64) (chunk, offset int64) {
	return elem / a.chunkElems, elem % a.chunkElems
}

// touch marks chunkIdx as most-recently-used, faulting it in if absent,
// and evicts the least-recently-used chunk if over the buffered-chunk cap.
func (a *Array) touch(chunkIdx int64) ([]byte, error) {
	if buf, ok := a.chunks[chunkIdx]; ok {
		if a.bufferedChunks > 0 {
			a.lru.MoveToFront(a.lruElem[chunkIdx])
		}
		return buf, nil
	}
	buf, err := a.loadChunk(chunkIdx)
	if err != nil {
		return nil, err
	}
	a.chunks[chunkIdx] = buf
	if a.bufferedChunks > 0 {
		a.lruElem[chunkIdx] = a.lru.PushFront(chunkIdx)
		if err := a.evictIfNeeded(); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (a *Array) evictIfNeeded() error {
	for len(a.chunks) > a.bufferedChunks {
		back := a.lru.Back()
		if back == nil {
			break
		}
		idx := back.Value.(int64)
		if err := a.evict(idx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Array) evict(chunkIdx int64) error {
	if a.dirty[chunkIdx] {
		if err := a.flushChunk(chunkIdx); err != nil {
			return err
		}
	}
	delete(a.chunks, chunkIdx)
	if el, ok := a.lruElem[chunkIdx]; ok {
		a.lru.Remove(el)
		delete(a.lruElem, chunkIdx)
	}
	vlog.VI(2).Infof("chunkstore: evicted %s/%s chunk %d", a.group, a.name, chunkIdx)
	return nil
}

func (a *Array) chunkLen(chunkIdx int64) int64 {
	remaining := a.length - chunkIdx*a.chunkElems
	if remaining > a.chunkElems {
		return a.chunkElems
	}
	return remaining
}

func (a *Array) loadChunk(chunkIdx int64) ([]byte, error) {
	n := a.chunkLen(chunkIdx)
	if n <= 0 {
		return make([]byte, 0), nil
	}
	raw, err := a.backend.ReadChunk(a.group, a.name, chunkIdx)
	if err != nil {
		return nil, halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: read %s/%s chunk %d", a.group, a.name, chunkIdx))
	}
	if raw == nil {
		return make([]byte, n*int64(a.elemWidth)), nil
	}
	buf, err := decodeChunk(raw)
	if err != nil {
		return nil, halerrors.E(halerrors.CorruptFile, errors.Wrapf(err, "chunkstore: decode %s/%s chunk %d", a.group, a.name, chunkIdx))
	}
	want := int(n) * a.elemWidth
	if len(buf) != want {
		return nil, halerrors.E(halerrors.CorruptFile, "chunkstore: chunk size mismatch: got ", len(buf), " want ", want)
	}
	return buf, nil
}

func (a *Array) flushChunk(chunkIdx int64) error {
	buf := a.chunks[chunkIdx]
	raw := encodeChunk(buf, a.props.Compression)
	if err := a.backend.WriteChunk(a.group, a.name, chunkIdx, raw); err != nil {
		return halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: write %s/%s chunk %d", a.group, a.name, chunkIdx))
	}
	delete(a.dirty, chunkIdx)
	return nil
}

// Slot returns a live, mutable view of the elemWidth bytes for element i.
// Mutations through the returned slice are visible to subsequent Slot
// calls on the same element immediately, but are not durable until
// Write() flushes the array.
func (a *Array) Slot(i int64) ([]byte, error) {
	if i < 0 || i >= a.length {
		return nil, halerrors.E(halerrors.OutOfRange, "chunkstore: index ", i, " out of range [0,", a.length, ")")
	}
	chunkIdx, offset := a.chunkIndex(i)
	buf, err := a.touch(chunkIdx)
	if err != nil {
		return nil, err
	}
	start := offset * int64(a.elemWidth)
	return buf[start : start+int64(a.elemWidth)], nil
}

// MarkDirty records that the chunk containing element i has been mutated
// through a slice previously returned by Slot, so Write() will flush it.
func (a *Array) MarkDirty(i int64) error {
	if i < 0 || i >= a.length {
		return halerrors.E(halerrors.OutOfRange, "chunkstore: index ", i, " out of range [0,", a.length, ")")
	}
	chunkIdx, _ := a.chunkIndex(i)
	a.dirty[chunkIdx] = true
	return nil
}

// Write flushes all dirty chunks to the backend.
func (a *Array) Write() error {
	for chunkIdx := range a.dirty {
		if _, ok := a.chunks[chunkIdx]; !ok {
			continue
		}
		if err := a.flushChunk(chunkIdx); err != nil {
			return err
		}
	}
	if err := a.backend.Flush(a.group, a.name); err != nil {
		return halerrors.E(halerrors.IOError, errors.Wrapf(err, "chunkstore: flush %s/%s", a.group, a.name))
	}
	return nil
}

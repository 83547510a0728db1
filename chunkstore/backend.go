package chunkstore

// ArrayMeta is the metadata a Backend reports about an existing array,
// enough for Array to resume chunked access without re-deriving layout.
type ArrayMeta struct {
	ElemWidth  int
	Length     int64
	ChunkElems int
}

// Backend is the storage-agnostic capability set the chunked array facade
// requires: named, typed chunk storage with
// create/open/unlink/read-chunk/write-chunk and grouped namespaces, plus
// group-level string metadata (the "Meta" and "Rup" subgroups). A second
// backend (plain files, mmap, a remote object store) implements this
// interface without touching chunkstore.Array or anything above it.
type Backend interface {
	// GroupOpen reports whether a named group (one per genome) exists.
	GroupOpen(name string) (bool, error)
	// GroupCreate creates a named group, if absent.
	GroupCreate(name string) error

	// Exists reports whether array "name" exists within group.
	Exists(group, name string) (bool, error)
	// CreateArray registers a new array of the given element width,
	// length, and chunk element count within group.
	CreateArray(group, name string, elemWidth int, length int64, chunkElems int) error
	// OpenArray returns the metadata of an existing array.
	OpenArray(group, name string) (ArrayMeta, error)
	// UnlinkArray removes an array. Callers only invoke this after
	// confirming existence via Exists.
	UnlinkArray(group, name string) error

	// ReadChunk returns the raw (possibly compressed) bytes previously
	// written for chunk chunkIdx, or nil if that chunk was never written
	// (a logical all-zero chunk).
	ReadChunk(group, name string, chunkIdx int64) ([]byte, error)
	// WriteChunk stores the raw bytes for chunk chunkIdx.
	WriteChunk(group, name string, chunkIdx int64, raw []byte) error
	// Flush durably persists any buffered writes for the array. A no-op
	// backend may treat every WriteChunk as already durable.
	Flush(group, name string) error

	// SetMeta writes a string key/value pair into group's metadata
	// namespace.
	SetMeta(group, namespace, key, value string) error
	// GetMeta reads a string key/value pair, returning ok=false if absent.
	GetMeta(group, namespace, key string) (value string, ok bool, err error)
}

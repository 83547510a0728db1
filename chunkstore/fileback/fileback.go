// Package fileback is a plain-file implementation of chunkstore.Backend.
// It lays out exactly the same group/array/chunk/meta shape as
// memback.Backend, one directory per group and one subdirectory per
// array, so the two backends can be swapped under identical genome
// package code.
package fileback

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/grailbio/hal/chunkstore"
)

// Backend is a chunkstore.Backend rooted at a directory on local disk.
type Backend struct {
	root string
}

// Open roots a Backend at dir, creating it if absent.
func Open(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "fileback: open")
	}
	return &Backend{root: dir}, nil
}

func (b *Backend) groupDir(group string) string { return filepath.Join(b.root, group) }
func (b *Backend) arrayDir(group, name string) string {
	return filepath.Join(b.groupDir(group), "arrays", name)
}
func (b *Backend) metaPath(group, namespace string) string {
	return filepath.Join(b.groupDir(group), "meta", namespace+".json")
}

type arrayMetaFile struct {
	ElemWidth  int   `json:"elemWidth"`
	Length     int64 `json:"length"`
	ChunkElems int   `json:"chunkElems"`
}

func (b *Backend) GroupOpen(name string) (bool, error) {
	info, err := os.Stat(b.groupDir(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "fileback: groupOpen")
	}
	return info.IsDir(), nil
}

func (b *Backend) GroupCreate(name string) error {
	if err := os.MkdirAll(filepath.Join(b.groupDir(name), "arrays"), 0755); err != nil {
		return errors.Wrap(err, "fileback: groupCreate")
	}
	if err := os.MkdirAll(filepath.Join(b.groupDir(name), "meta"), 0755); err != nil {
		return errors.Wrap(err, "fileback: groupCreate")
	}
	return nil
}

func (b *Backend) Exists(group, name string) (bool, error) {
	_, err := os.Stat(filepath.Join(b.arrayDir(group, name), "meta.json"))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "fileback: exists")
	}
	return true, nil
}

func (b *Backend) CreateArray(group, name string, elemWidth int, length int64, chunkElems int) error {
	dir := b.arrayDir(group, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "fileback: createArray")
	}
	meta := arrayMetaFile{ElemWidth: elemWidth, Length: length, ChunkElems: chunkElems}
	buf, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "fileback: createArray")
	}
	return ioutil.WriteFile(filepath.Join(dir, "meta.json"), buf, 0644)
}

func (b *Backend) OpenArray(group, name string) (chunkstore.ArrayMeta, error) {
	buf, err := ioutil.ReadFile(filepath.Join(b.arrayDir(group, name), "meta.json"))
	if err != nil {
		return chunkstore.ArrayMeta{}, errors.Wrap(err, "fileback: openArray")
	}
	var meta arrayMetaFile
	if err := json.Unmarshal(buf, &meta); err != nil {
		return chunkstore.ArrayMeta{}, errors.Wrap(err, "fileback: openArray")
	}
	return chunkstore.ArrayMeta{ElemWidth: meta.ElemWidth, Length: meta.Length, ChunkElems: meta.ChunkElems}, nil
}

func (b *Backend) UnlinkArray(group, name string) error {
	if err := os.RemoveAll(b.arrayDir(group, name)); err != nil {
		return errors.Wrap(err, "fileback: unlinkArray")
	}
	return nil
}

func (b *Backend) chunkPath(group, name string, chunkIdx int64) string {
	return filepath.Join(b.arrayDir(group, name), "chunk-"+strconv.FormatInt(chunkIdx, 10))
}

func (b *Backend) ReadChunk(group, name string, chunkIdx int64) ([]byte, error) {
	buf, err := ioutil.ReadFile(b.chunkPath(group, name, chunkIdx))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fileback: readChunk")
	}
	return buf, nil
}

func (b *Backend) WriteChunk(group, name string, chunkIdx int64, raw []byte) error {
	if err := ioutil.WriteFile(b.chunkPath(group, name, chunkIdx), raw, 0644); err != nil {
		return errors.Wrap(err, "fileback: writeChunk")
	}
	return nil
}

func (b *Backend) Flush(group, name string) error {
	// Every WriteChunk call already went through os.WriteFile; nothing
	// further to flush for this backend.
	return nil
}

func (b *Backend) SetMeta(group, namespace, key, value string) error {
	if err := os.MkdirAll(filepath.Join(b.groupDir(group), "meta"), 0755); err != nil {
		return errors.Wrap(err, "fileback: setMeta")
	}
	m, err := b.readMetaNamespace(group, namespace)
	if err != nil {
		return err
	}
	m[key] = value
	buf, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "fileback: setMeta")
	}
	return ioutil.WriteFile(b.metaPath(group, namespace), buf, 0644)
}

func (b *Backend) GetMeta(group, namespace, key string) (string, bool, error) {
	m, err := b.readMetaNamespace(group, namespace)
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (b *Backend) readMetaNamespace(group, namespace string) (map[string]string, error) {
	buf, err := ioutil.ReadFile(b.metaPath(group, namespace))
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "fileback: readMeta")
	}
	var m map[string]string
	if err := json.Unmarshal(buf, &m); err != nil {
		return nil, errors.Wrap(err, "fileback: readMeta")
	}
	return m, nil
}

var _ chunkstore.Backend = (*Backend)(nil)

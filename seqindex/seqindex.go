// Package seqindex implements a dual in-memory index of a genome's
// sequences, by name and by end position, used to resolve position ->
// sequence queries. Keying the ordered side by end position makes
// upper-bound the natural lookup.
package seqindex

import (
	"math"

	"github.com/biogo/store/llrb"
)

const minInt64 = math.MinInt64

// Sequence is the minimal view of a sequence record the index needs: a
// name and the half-open genome range it occupies. Callers own a richer
// Sequence type (genome package) and add one of these alongside it.
type Sequence struct {
	Name   string
	Start  int64
	Length int64
}

func (s Sequence) end() int64 { return s.Start + s.Length }

// endKey wraps a *Sequence for ordering by end position in the llrb tree.
type endKey struct {
	end int64
	seq *Sequence
}

// Compare implements llrb.Comparable. Ties (equal end positions) cannot
// occur between distinct sequences since sequences partition [0, L), but
// we break ties on start position so the tree remains well ordered even
// if a caller inserts inconsistent data mid-construction.
func (k endKey) Compare(c llrb.Comparable) int {
	o := c.(endKey)
	if k.end != o.end {
		if k.end < o.end {
			return -1
		}
		return 1
	}
	if k.seq == nil || o.seq == nil {
		return 0
	}
	if k.seq.Start != o.seq.Start {
		if k.seq.Start < o.seq.Start {
			return -1
		}
		return 1
	}
	return 0
}

// Index is the byName/byEnd dual index for one genome's sequences.
type Index struct {
	byName map[string]*Sequence
	byEnd  llrb.Tree
}

// New returns an empty Index.
func New() *Index {
	return &Index{byName: make(map[string]*Sequence)}
}

// Add inserts a sequence into both maps. Both maps share the same
// *Sequence.
func (ix *Index) Add(s *Sequence) {
	ix.byName[s.Name] = s
	ix.byEnd.Insert(endKey{end: s.end(), seq: s})
}

// ByName returns the sequence with the given name, or nil.
func (ix *Index) ByName(name string) *Sequence {
	return ix.byName[name]
}

// SequenceAt finds the first entry with end position > p, returning its
// Sequence iff p >= sequence.Start, else nil. Searching with end+1 as
// the probe turns the tree's Ceil (>=) into the required strict upper
// bound.
func (ix *Index) SequenceAt(p int64) *Sequence {
	// seq.Start is the tie-break field (see Compare); using the minimum
	// possible value makes the probe sort before any real entry whose end
	// happens to equal p+1, so Ceil still finds that real entry rather
	// than skipping past it.
	probe := endKey{end: p + 1, seq: &Sequence{Start: minInt64}}
	found := ix.byEnd.Ceil(probe)
	if found == nil {
		return nil
	}
	ek := found.(endKey)
	if p >= ek.seq.Start {
		return ek.seq
	}
	return nil
}

// Len returns the number of indexed sequences.
func (ix *Index) Len() int {
	return len(ix.byName)
}

// Clear empties both maps in one step.
func (ix *Index) Clear() {
	ix.byName = make(map[string]*Sequence)
	ix.byEnd = llrb.Tree{}
}

// Do calls fn for every sequence in ascending end-position order.
func (ix *Index) Do(fn func(*Sequence)) {
	ix.byEnd.Do(func(c llrb.Comparable) bool {
		fn(c.(endKey).seq)
		return false
	})
}

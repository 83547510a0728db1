// Package segment implements the top/bottom segment iterator cursor
// algebra: move, slice, reverse, parse-across-layers, and cross-edge
// traversal to parent/child.
//
// Both Top and Bottom are constructed from a genome and an array index
// rather than as genome.Genome methods, to avoid an import cycle between
// genome and segment (genome.Genome does not import this package).
package segment

import (
	"github.com/pkg/errors"

	"github.com/grailbio/hal/dnaiter"
	"github.com/grailbio/hal/genome"
	"github.com/grailbio/hal/halerrors"
	"github.com/grailbio/hal/halpb"
	"github.com/grailbio/hal/record"
)

// Top is a mutable cursor over a genome's top-segment array.
type Top struct {
	g           *genome.Genome
	idx         int64
	startOffset int64
	endOffset   int64
	reversed    bool
}

// Bottom is a mutable cursor over a genome's bottom-segment array.
type Bottom struct {
	g           *genome.Genome
	idx         int64
	startOffset int64
	endOffset   int64
	reversed    bool
}

// NewTop constructs a top-segment cursor at array index idx.
func NewTop(g *genome.Genome, idx int64) (*Top, error) {
	if idx < 0 || idx >= g.NumTopSegments() {
		return nil, halerrors.E(halerrors.OutOfRange, "segment: top index ", idx, " out of range [0,", g.NumTopSegments(), ")")
	}
	return &Top{g: g, idx: idx}, nil
}

// NewTopEnd constructs a top-segment cursor one past the last valid
// index.
func NewTopEnd(g *genome.Genome) *Top {
	return &Top{g: g, idx: g.NumTopSegments()}
}

// NewBottom constructs a bottom-segment cursor at array index idx.
func NewBottom(g *genome.Genome, idx int64) (*Bottom, error) {
	if idx < 0 || idx >= g.NumBottomSegments() {
		return nil, halerrors.E(halerrors.OutOfRange, "segment: bottom index ", idx, " out of range [0,", g.NumBottomSegments(), ")")
	}
	return &Bottom{g: g, idx: idx}, nil
}

// NewBottomEnd constructs a bottom-segment cursor one past the last valid
// index.
func NewBottomEnd(g *genome.Genome) *Bottom {
	return &Bottom{g: g, idx: g.NumBottomSegments()}
}

// effectiveRange computes the effective (start, length) of a sliced
// cursor from its raw segment bounds. The effective start is the first
// base in traversal order.
func effectiveRange(rawStart, rawLength, startOffset, endOffset int64, reversed bool) (start, length int64) {
	length = rawLength - startOffset - endOffset
	if !reversed {
		start = rawStart + startOffset
	} else {
		start = rawStart + rawLength - 1 - startOffset
	}
	return start, length
}

// ---- Top ----

// ArrayIndex returns the cursor's current position in the top array.
func (t *Top) ArrayIndex() int64 { return t.idx }

// Reversed reports the cursor's orientation.
func (t *Top) Reversed() bool { return t.reversed }

func (t *Top) rawBounds() (start, length int64, err error) {
	n := t.g.NumTopSegments()
	if t.idx < 0 || t.idx >= n {
		return 0, 0, halerrors.E(halerrors.OutOfRange, "segment: top cursor index ", t.idx, " has no segment (N=", n, ")")
	}
	arr := t.g.TopArray()
	s0, err := arr.Slot(t.idx)
	if err != nil {
		return 0, 0, err
	}
	s1, err := arr.Slot(t.idx + 1)
	if err != nil {
		return 0, 0, err
	}
	start = record.GetTopSegment(s0).GenomeIdx
	end := record.GetTopSegment(s1).GenomeIdx
	return start, end - start, nil
}

// Start returns the cursor's effective start position.
func (t *Top) Start() (int64, error) {
	rawStart, rawLength, err := t.rawBounds()
	if err != nil {
		return 0, err
	}
	start, _ := effectiveRange(rawStart, rawLength, t.startOffset, t.endOffset, t.reversed)
	return start, nil
}

// Length returns the cursor's effective length.
func (t *Top) Length() (int64, error) {
	_, rawLength, err := t.rawBounds()
	if err != nil {
		return 0, err
	}
	return rawLength - t.startOffset - t.endOffset, nil
}

// Record returns the decoded record at the cursor's current index,
// ignoring any slice offsets.
func (t *Top) Record() (record.TopSegment, error) {
	n := t.g.NumTopSegments()
	if t.idx < 0 || t.idx >= n {
		return record.TopSegment{}, halerrors.E(halerrors.OutOfRange, "segment: top cursor index ", t.idx, " has no segment (N=", n, ")")
	}
	slot, err := t.g.TopArray().Slot(t.idx)
	if err != nil {
		return record.TopSegment{}, err
	}
	return record.GetTopSegment(slot), nil
}

// SetRecord overwrites the record at the cursor's current index.
func (t *Top) SetRecord(rec record.TopSegment) error {
	n := t.g.NumTopSegments()
	if t.idx < 0 || t.idx >= n {
		return halerrors.E(halerrors.OutOfRange, "segment: top cursor index ", t.idx, " has no segment (N=", n, ")")
	}
	slot, err := t.g.TopArray().Slot(t.idx)
	if err != nil {
		return err
	}
	record.PutTopSegment(slot, rec)
	return t.g.TopArray().MarkDirty(t.idx)
}

// ToLeft moves to the previous segment in array order, resetting the
// slice to full and preserving orientation.
func (t *Top) ToLeft() error {
	if t.idx <= 0 {
		return halerrors.E(halerrors.OutOfRange, "segment: toLeft: already at the first top segment")
	}
	t.idx--
	t.startOffset, t.endOffset = 0, 0
	return nil
}

// ToRight moves to the next segment in array order.
func (t *Top) ToRight() error {
	if t.idx+1 >= t.g.NumTopSegments() {
		return halerrors.E(halerrors.OutOfRange, "segment: toRight: already at the last top segment")
	}
	t.idx++
	t.startOffset, t.endOffset = 0, 0
	return nil
}

// ToLeftAt and ToRightAt jump toward pos and land on the single base at
// pos. Since ToSite's binary search already locates the covering segment
// independent of approach direction, both delegate to ToSite with
// expandToSegment=false; the direction only matters when multiple
// candidate segments are reachable, which cannot happen here since
// segments partition [0, L).
func (t *Top) ToLeftAt(pos int64) error  { return t.ToSite(pos, false) }
func (t *Top) ToRightAt(pos int64) error { return t.ToSite(pos, false) }

// ToReverse flips the cursor's orientation and swaps its slice offsets.
func (t *Top) ToReverse() {
	t.reversed = !t.reversed
	t.startOffset, t.endOffset = t.endOffset, t.startOffset
}

// Slice trims the cursor from the left and right (both measured in the
// un-reversed orientation).
func (t *Top) Slice(startOff, endOff int64) error {
	_, rawLength, err := t.rawBounds()
	if err != nil {
		return err
	}
	if startOff < 0 || endOff < 0 || startOff+endOff >= rawLength {
		return halerrors.E(halerrors.OutOfRange, "segment: slice(", startOff, ",", endOff, ") exceeds raw length ", rawLength)
	}
	t.startOffset, t.endOffset = startOff, endOff
	return nil
}

// ToSite positions the cursor on the segment containing pos via binary
// search. With expandToSegment false it additionally slices to exactly
// that one base.
func (t *Top) ToSite(pos int64, expandToSegment bool) error {
	if pos < 0 || pos >= t.g.Length() {
		return halerrors.E(halerrors.OutOfRange, "segment: toSite: position ", pos, " out of range [0,", t.g.Length(), ")")
	}
	idx, err := findSegment(t.g.TopArray(), t.g.NumTopSegments(), pos, topGenomeIdx)
	if err != nil {
		return err
	}
	t.idx = idx
	t.startOffset, t.endOffset = 0, 0
	if !expandToSegment {
		start, length, err := t.rawBounds()
		if err != nil {
			return err
		}
		off := pos - start
		t.startOffset = off
		t.endOffset = length - off - 1
	}
	return nil
}

// ToParseUp moves to the top segment containing other's effective start
// position and slices to the intersection of the two segments.
func (t *Top) ToParseUp(other *Bottom) error {
	otherRec, err := other.Record()
	if err != nil {
		return err
	}
	if otherRec.TopParseIdx == halpb.NullIndex {
		return halerrors.E(halerrors.UnsupportedOperation, "segment: toParseUp: bottom segment has no parse link")
	}
	otherStart, err := other.Start()
	if err != nil {
		return err
	}
	otherLength, err := other.Length()
	if err != nil {
		return err
	}
	otherEnd := otherStart + otherLength

	arr := t.g.TopArray()
	n := t.g.NumTopSegments()
	idx := otherRec.TopParseIdx
	for {
		if idx < 0 || idx >= n {
			return halerrors.E(halerrors.CorruptFile, "segment: toParseUp: walked off the top array without covering position ", otherStart)
		}
		s0, err := arr.Slot(idx)
		if err != nil {
			return err
		}
		s1, err := arr.Slot(idx + 1)
		if err != nil {
			return err
		}
		start := record.GetTopSegment(s0).GenomeIdx
		end := record.GetTopSegment(s1).GenomeIdx
		if otherStart >= start && otherStart < end {
			inter := halpb.Range{Start: start, Length: end - start}.Intersect(halpb.Range{Start: otherStart, Length: otherEnd - otherStart})
			if inter.Length <= 0 {
				return halerrors.E(halerrors.CorruptFile, "segment: toParseUp: empty intersection at top index ", idx)
			}
			t.idx = idx
			t.startOffset = inter.Start - start
			t.endOffset = end - inter.End()
			return nil
		}
		idx++
	}
}

// ToChild moves to the child top segment reached by bottom's k'th
// child-edge, propagating orientation and slice.
func (t *Top) ToChild(bottom *Bottom, k int) error {
	rec, err := bottom.Record()
	if err != nil {
		return err
	}
	if k < 0 || k >= len(rec.ChildIdx) {
		return halerrors.E(halerrors.OutOfRange, "segment: toChild: child index ", k, " out of range [0,", len(rec.ChildIdx), ")")
	}
	childIdx := rec.ChildIdx[k]
	if childIdx == halpb.NullIndex {
		return halerrors.E(halerrors.UnsupportedOperation, "segment: toChild: no child segment at index ", k)
	}
	edgeReversed := bool(halpb.Strand(bottom.reversed).Xor(halpb.Strand(rec.ChildReverse[k])))
	t.idx = childIdx
	t.reversed = edgeReversed
	if edgeReversed {
		t.startOffset, t.endOffset = bottom.endOffset, bottom.startOffset
	} else {
		t.startOffset, t.endOffset = bottom.startOffset, bottom.endOffset
	}
	return nil
}

// GetString materializes the DNA of the cursor's effective range,
// complementing if reversed.
func (t *Top) GetString() (string, error) {
	start, err := t.Start()
	if err != nil {
		return "", err
	}
	length, err := t.Length()
	if err != nil {
		return "", err
	}
	return getDNAString(t.g, start, length, t.reversed)
}

// CheckParalogyCycle walks start's next-paralogy chain and confirms it
// closes back on start within N steps, so a malformed cycle is detected
// instead of looping forever.
func CheckParalogyCycle(start *Top) error {
	rec, err := start.Record()
	if err != nil {
		return err
	}
	if rec.NextParalogyIdx == halpb.NullIndex {
		return nil
	}
	n := start.g.NumTopSegments()
	arr := start.g.TopArray()
	idx := rec.NextParalogyIdx
	for steps := int64(0); idx != start.idx; steps++ {
		if steps > n {
			return halerrors.E(halerrors.CorruptFile, "segment: paralogy cycle did not close within ", n, " steps")
		}
		if idx < 0 || idx >= n {
			return halerrors.E(halerrors.CorruptFile, "segment: paralogy cycle index ", idx, " out of range [0,", n, ")")
		}
		slot, err := arr.Slot(idx)
		if err != nil {
			return err
		}
		next := record.GetTopSegment(slot).NextParalogyIdx
		if next == halpb.NullIndex {
			return halerrors.E(halerrors.CorruptFile, "segment: paralogy chain terminated without closing its cycle")
		}
		idx = next
	}
	return nil
}

// ---- Bottom ----

// ArrayIndex returns the cursor's current position in the bottom array.
func (b *Bottom) ArrayIndex() int64 { return b.idx }

// Reversed reports the cursor's orientation.
func (b *Bottom) Reversed() bool { return b.reversed }

func (b *Bottom) rawBounds() (start, length int64, err error) {
	n := b.g.NumBottomSegments()
	if b.idx < 0 || b.idx >= n {
		return 0, 0, halerrors.E(halerrors.OutOfRange, "segment: bottom cursor index ", b.idx, " has no segment (N=", n, ")")
	}
	arr := b.g.BottomArray()
	numChildren := b.g.NumChildren()
	s0, err := arr.Slot(b.idx)
	if err != nil {
		return 0, 0, err
	}
	s1, err := arr.Slot(b.idx + 1)
	if err != nil {
		return 0, 0, err
	}
	start = record.GetBottomSegment(s0, numChildren).GenomeIdx
	end := record.GetBottomSegment(s1, numChildren).GenomeIdx
	return start, end - start, nil
}

// Start returns the cursor's effective start position.
func (b *Bottom) Start() (int64, error) {
	rawStart, rawLength, err := b.rawBounds()
	if err != nil {
		return 0, err
	}
	start, _ := effectiveRange(rawStart, rawLength, b.startOffset, b.endOffset, b.reversed)
	return start, nil
}

// Length returns the cursor's effective length.
func (b *Bottom) Length() (int64, error) {
	_, rawLength, err := b.rawBounds()
	if err != nil {
		return 0, err
	}
	return rawLength - b.startOffset - b.endOffset, nil
}

// Record returns the decoded record at the cursor's current index,
// ignoring any slice offsets.
func (b *Bottom) Record() (record.BottomSegment, error) {
	n := b.g.NumBottomSegments()
	if b.idx < 0 || b.idx >= n {
		return record.BottomSegment{}, halerrors.E(halerrors.OutOfRange, "segment: bottom cursor index ", b.idx, " has no segment (N=", n, ")")
	}
	slot, err := b.g.BottomArray().Slot(b.idx)
	if err != nil {
		return record.BottomSegment{}, err
	}
	return record.GetBottomSegment(slot, b.g.NumChildren()), nil
}

// SetRecord overwrites the record at the cursor's current index.
func (b *Bottom) SetRecord(rec record.BottomSegment) error {
	n := b.g.NumBottomSegments()
	if b.idx < 0 || b.idx >= n {
		return halerrors.E(halerrors.OutOfRange, "segment: bottom cursor index ", b.idx, " has no segment (N=", n, ")")
	}
	slot, err := b.g.BottomArray().Slot(b.idx)
	if err != nil {
		return err
	}
	record.PutBottomSegment(slot, b.g.NumChildren(), rec)
	return b.g.BottomArray().MarkDirty(b.idx)
}

// ToLeft moves to the previous segment in array order.
func (b *Bottom) ToLeft() error {
	if b.idx <= 0 {
		return halerrors.E(halerrors.OutOfRange, "segment: toLeft: already at the first bottom segment")
	}
	b.idx--
	b.startOffset, b.endOffset = 0, 0
	return nil
}

// ToRight moves to the next segment in array order.
func (b *Bottom) ToRight() error {
	if b.idx+1 >= b.g.NumBottomSegments() {
		return halerrors.E(halerrors.OutOfRange, "segment: toRight: already at the last bottom segment")
	}
	b.idx++
	b.startOffset, b.endOffset = 0, 0
	return nil
}

// ToLeftAt and ToRightAt, see Top.ToLeftAt's doc comment.
func (b *Bottom) ToLeftAt(pos int64) error  { return b.ToSite(pos, false) }
func (b *Bottom) ToRightAt(pos int64) error { return b.ToSite(pos, false) }

// ToReverse flips the cursor's orientation and swaps its slice offsets.
func (b *Bottom) ToReverse() {
	b.reversed = !b.reversed
	b.startOffset, b.endOffset = b.endOffset, b.startOffset
}

// Slice trims the cursor from the left and right (both measured in the
// un-reversed orientation).
func (b *Bottom) Slice(startOff, endOff int64) error {
	_, rawLength, err := b.rawBounds()
	if err != nil {
		return err
	}
	if startOff < 0 || endOff < 0 || startOff+endOff >= rawLength {
		return halerrors.E(halerrors.OutOfRange, "segment: slice(", startOff, ",", endOff, ") exceeds raw length ", rawLength)
	}
	b.startOffset, b.endOffset = startOff, endOff
	return nil
}

// ToSite positions the cursor on the segment containing pos via binary
// search.
func (b *Bottom) ToSite(pos int64, expandToSegment bool) error {
	if pos < 0 || pos >= b.g.Length() {
		return halerrors.E(halerrors.OutOfRange, "segment: toSite: position ", pos, " out of range [0,", b.g.Length(), ")")
	}
	numChildren := b.g.NumChildren()
	idx, err := findSegment(b.g.BottomArray(), b.g.NumBottomSegments(), pos, bottomGenomeIdx(numChildren))
	if err != nil {
		return err
	}
	b.idx = idx
	b.startOffset, b.endOffset = 0, 0
	if !expandToSegment {
		start, length, err := b.rawBounds()
		if err != nil {
			return err
		}
		off := pos - start
		b.startOffset = off
		b.endOffset = length - off - 1
	}
	return nil
}

// ToParseDown moves to the bottom segment containing other's effective
// start position and slices to the intersection, symmetric to
// Top.ToParseUp.
func (b *Bottom) ToParseDown(other *Top) error {
	otherRec, err := other.Record()
	if err != nil {
		return err
	}
	if otherRec.BottomParseIdx == halpb.NullIndex {
		return halerrors.E(halerrors.UnsupportedOperation, "segment: toParseDown: top segment has no parse link")
	}
	otherStart, err := other.Start()
	if err != nil {
		return err
	}
	otherLength, err := other.Length()
	if err != nil {
		return err
	}
	otherEnd := otherStart + otherLength

	arr := b.g.BottomArray()
	numChildren := b.g.NumChildren()
	n := b.g.NumBottomSegments()
	idx := otherRec.BottomParseIdx
	for {
		if idx < 0 || idx >= n {
			return halerrors.E(halerrors.CorruptFile, "segment: toParseDown: walked off the bottom array without covering position ", otherStart)
		}
		s0, err := arr.Slot(idx)
		if err != nil {
			return err
		}
		s1, err := arr.Slot(idx + 1)
		if err != nil {
			return err
		}
		start := record.GetBottomSegment(s0, numChildren).GenomeIdx
		end := record.GetBottomSegment(s1, numChildren).GenomeIdx
		if otherStart >= start && otherStart < end {
			inter := halpb.Range{Start: start, Length: end - start}.Intersect(halpb.Range{Start: otherStart, Length: otherEnd - otherStart})
			if inter.Length <= 0 {
				return halerrors.E(halerrors.CorruptFile, "segment: toParseDown: empty intersection at bottom index ", idx)
			}
			b.idx = idx
			b.startOffset = inter.Start - start
			b.endOffset = end - inter.End()
			return nil
		}
		idx++
	}
}

// ToParent moves to the parent bottom segment reached by top's
// parent-edge, propagating orientation and slice symmetrically to
// Top.ToChild.
func (b *Bottom) ToParent(top *Top) error {
	rec, err := top.Record()
	if err != nil {
		return err
	}
	if rec.ParentIdx == halpb.NullIndex {
		return halerrors.E(halerrors.UnsupportedOperation, "segment: toParent: top segment has no parent edge")
	}
	edgeReversed := bool(halpb.Strand(top.reversed).Xor(halpb.Strand(rec.ParentReversed)))
	b.idx = rec.ParentIdx
	b.reversed = edgeReversed
	if edgeReversed {
		b.startOffset, b.endOffset = top.endOffset, top.startOffset
	} else {
		b.startOffset, b.endOffset = top.startOffset, top.endOffset
	}
	return nil
}

// GetString materializes the DNA of the cursor's effective range,
// complementing if reversed.
func (b *Bottom) GetString() (string, error) {
	start, err := b.Start()
	if err != nil {
		return "", err
	}
	length, err := b.Length()
	if err != nil {
		return "", err
	}
	return getDNAString(b.g, start, length, b.reversed)
}

// ---- shared helpers ----

func getDNAString(g *genome.Genome, effectiveStart, length int64, reversed bool) (string, error) {
	if g.DNAArray() == nil {
		return "", halerrors.E(halerrors.UnsupportedOperation, "segment: genome ", g.Name(), " has no DNA array")
	}
	buf := make([]byte, length)
	if !reversed {
		for i := int64(0); i < length; i++ {
			base, err := dnaiter.ReadBase(g, effectiveStart+i)
			if err != nil {
				return "", err
			}
			buf[i] = record.DecodeBase(base)
		}
		return string(buf), nil
	}
	for i := int64(0); i < length; i++ {
		base, err := dnaiter.ReadBase(g, effectiveStart-i)
		if err != nil {
			return "", err
		}
		buf[i] = record.DecodeBase(record.ComplementBase(base))
	}
	return string(buf), nil
}

// topGenomeIdx and bottomGenomeIdx adapt the two record layouts to the
// same findSegment binary search.
func topGenomeIdx(slot []byte) int64 { return record.GetTopSegment(slot).GenomeIdx }

func bottomGenomeIdx(numChildren int) func([]byte) int64 {
	return func(slot []byte) int64 { return record.GetBottomSegment(slot, numChildren).GenomeIdx }
}

// findSegment binary searches a segment array (N+1 records, strictly
// increasing genomeIdx) for the i such that genomeIdx(i) <= pos <
// genomeIdx(i+1).
func findSegment(arr interface {
	Slot(i int64) ([]byte, error)
}, n int64, pos int64, genomeIdx func([]byte) int64) (int64, error) {
	lo, hi := int64(0), n-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		s0, err := arr.Slot(mid)
		if err != nil {
			return 0, errors.Wrap(err, "segment: findSegment")
		}
		s1, err := arr.Slot(mid + 1)
		if err != nil {
			return 0, errors.Wrap(err, "segment: findSegment")
		}
		start := genomeIdx(s0)
		end := genomeIdx(s1)
		switch {
		case pos < start:
			hi = mid - 1
		case pos >= end:
			lo = mid + 1
		default:
			return mid, nil
		}
	}
	return 0, halerrors.E(halerrors.CorruptFile, "segment: no segment covers position ", pos)
}

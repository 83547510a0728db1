// Package gapped implements gapped segment iterators: they coalesce runs
// of adjacent top or bottom segments separated by a small
// homologous-but-unaligned gap, as seen from the other side of the
// alignment edge (parent for a top cursor, a given child for a bottom
// cursor).
package gapped

import (
	"github.com/grailbio/hal/genome"
	"github.com/grailbio/hal/halerrors"
	"github.com/grailbio/hal/halpb"
	"github.com/grailbio/hal/segment"
)

// Top is a coalescing cursor over a genome's top-segment array.
type Top struct {
	g            *genome.Genome
	loIdx, hiIdx int64
	gapThreshold int64
	atomic       bool
}

// NewTop constructs a gapped top cursor anchored at the base segment
// index idx. atomic=true disables coalescing entirely.
func NewTop(g *genome.Genome, idx int64, gapThreshold int64, atomic bool) (*Top, error) {
	if idx < 0 || idx >= g.NumTopSegments() {
		return nil, halerrors.E(halerrors.OutOfRange, "gapped: top index ", idx, " out of range [0,", g.NumTopSegments(), ")")
	}
	t := &Top{g: g, loIdx: idx, hiIdx: idx, gapThreshold: gapThreshold, atomic: atomic}
	if !atomic {
		if err := t.coalesce(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// coalesce extends [loIdx,hiIdx] outward while the neighbor's parent-side
// gap is within threshold and orientation-consistent.
func (t *Top) coalesce() error {
	for {
		ok, err := t.neighborCoalesces(t.loIdx-1, t.loIdx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t.loIdx--
	}
	for {
		ok, err := t.neighborCoalesces(t.hiIdx, t.hiIdx+1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t.hiIdx++
	}
	return nil
}

// neighborCoalesces reports whether top segments a and b (adjacent in
// array order, b = a+1) should merge into one gapped block: both must
// have a parent edge, the edges must agree on orientation, and the span
// of unaligned parent bases between them must be within gapThreshold.
func (t *Top) neighborCoalesces(a, b int64) (bool, error) {
	if a < 0 || b >= t.g.NumTopSegments() {
		return false, nil
	}
	parent, err := t.g.Parent()
	if err != nil {
		return false, err
	}
	if parent == nil {
		return false, nil
	}
	topA, err := segment.NewTop(t.g, a)
	if err != nil {
		return false, err
	}
	topB, err := segment.NewTop(t.g, b)
	if err != nil {
		return false, err
	}
	startA, endA, revA, okA, err := parentRange(topA, parent)
	if err != nil || !okA {
		return false, err
	}
	startB, endB, revB, okB, err := parentRange(topB, parent)
	if err != nil || !okB {
		return false, err
	}
	if revA != revB {
		return false, nil
	}
	var gap int64
	if !revA {
		gap = startB - endA
	} else {
		gap = startA - endB
	}
	return gap >= 0 && gap <= t.gapThreshold, nil
}

func parentRange(top *segment.Top, parent *genome.Genome) (start, end int64, reversed, ok bool, err error) {
	rec, err := top.Record()
	if err != nil {
		return 0, 0, false, false, err
	}
	if rec.ParentIdx == halpb.NullIndex {
		return 0, 0, false, false, nil
	}
	if parent.NumBottomSegments() == 0 {
		return 0, 0, false, false, nil
	}
	tmp, err := segment.NewBottom(parent, 0)
	if err != nil {
		return 0, 0, false, false, err
	}
	if err := tmp.ToParent(top); err != nil {
		return 0, 0, false, false, err
	}
	s, err := tmp.Start()
	if err != nil {
		return 0, 0, false, false, err
	}
	l, err := tmp.Length()
	if err != nil {
		return 0, 0, false, false, err
	}
	return s, s + l, tmp.Reversed(), true, nil
}

// Start returns the coalesced block's start position.
func (t *Top) Start() (int64, error) {
	lo, err := segment.NewTop(t.g, t.loIdx)
	if err != nil {
		return 0, err
	}
	return lo.Start()
}

// Length returns the coalesced block's length. In atomic mode the block
// is always the single anchored base segment, so this is that segment's
// full length.
func (t *Top) Length() (int64, error) {
	lo, err := segment.NewTop(t.g, t.loIdx)
	if err != nil {
		return 0, err
	}
	hi, err := segment.NewTop(t.g, t.hiIdx)
	if err != nil {
		return 0, err
	}
	loStart, err := lo.Start()
	if err != nil {
		return 0, err
	}
	hiStart, err := hi.Start()
	if err != nil {
		return 0, err
	}
	hiLength, err := hi.Length()
	if err != nil {
		return 0, err
	}
	return hiStart + hiLength - loStart, nil
}

// ToLeft moves to the block immediately preceding this one (or, in
// atomic mode, to the single previous base segment).
func (t *Top) ToLeft() error {
	if t.loIdx <= 0 {
		return halerrors.E(halerrors.OutOfRange, "gapped: toLeft: already at the first top segment")
	}
	t.hiIdx = t.loIdx - 1
	t.loIdx = t.hiIdx
	if !t.atomic {
		return t.coalesce()
	}
	return nil
}

// ToRight moves to the block immediately following this one.
func (t *Top) ToRight() error {
	if t.hiIdx+1 >= t.g.NumTopSegments() {
		return halerrors.E(halerrors.OutOfRange, "gapped: toRight: already at the last top segment")
	}
	t.loIdx = t.hiIdx + 1
	t.hiIdx = t.loIdx
	if !t.atomic {
		return t.coalesce()
	}
	return nil
}

// Bottom is a coalescing cursor over a genome's bottom-segment array,
// viewed through its k'th child edge.
type Bottom struct {
	g            *genome.Genome
	childIdx     int
	loIdx, hiIdx int64
	gapThreshold int64
	atomic       bool
}

// NewBottom constructs a gapped bottom cursor anchored at base segment
// index idx, coalescing across gaps as seen from child childIdx.
func NewBottom(g *genome.Genome, idx int64, childIdx int, gapThreshold int64, atomic bool) (*Bottom, error) {
	if idx < 0 || idx >= g.NumBottomSegments() {
		return nil, halerrors.E(halerrors.OutOfRange, "gapped: bottom index ", idx, " out of range [0,", g.NumBottomSegments(), ")")
	}
	b := &Bottom{g: g, childIdx: childIdx, loIdx: idx, hiIdx: idx, gapThreshold: gapThreshold, atomic: atomic}
	if !atomic {
		if err := b.coalesce(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Bottom) coalesce() error {
	for {
		ok, err := b.neighborCoalesces(b.loIdx-1, b.loIdx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		b.loIdx--
	}
	for {
		ok, err := b.neighborCoalesces(b.hiIdx, b.hiIdx+1)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		b.hiIdx++
	}
	return nil
}

func (b *Bottom) neighborCoalesces(a, c int64) (bool, error) {
	if a < 0 || c >= b.g.NumBottomSegments() {
		return false, nil
	}
	child, err := b.g.Child(b.childIdx)
	if err != nil {
		return false, err
	}
	if child == nil {
		return false, nil
	}
	botA, err := segment.NewBottom(b.g, a)
	if err != nil {
		return false, err
	}
	botC, err := segment.NewBottom(b.g, c)
	if err != nil {
		return false, err
	}
	startA, endA, revA, okA, err := childRange(botA, b.childIdx, child)
	if err != nil || !okA {
		return false, err
	}
	startC, endC, revC, okC, err := childRange(botC, b.childIdx, child)
	if err != nil || !okC {
		return false, err
	}
	if revA != revC {
		return false, nil
	}
	var gap int64
	if !revA {
		gap = startC - endA
	} else {
		gap = startA - endC
	}
	return gap >= 0 && gap <= b.gapThreshold, nil
}

func childRange(bottom *segment.Bottom, childIdx int, child *genome.Genome) (start, end int64, reversed, ok bool, err error) {
	rec, err := bottom.Record()
	if err != nil {
		return 0, 0, false, false, err
	}
	if childIdx < 0 || childIdx >= len(rec.ChildIdx) || rec.ChildIdx[childIdx] == halpb.NullIndex {
		return 0, 0, false, false, nil
	}
	if child.NumTopSegments() == 0 {
		return 0, 0, false, false, nil
	}
	tmp, err := segment.NewTop(child, 0)
	if err != nil {
		return 0, 0, false, false, err
	}
	if err := tmp.ToChild(bottom, childIdx); err != nil {
		return 0, 0, false, false, err
	}
	s, err := tmp.Start()
	if err != nil {
		return 0, 0, false, false, err
	}
	l, err := tmp.Length()
	if err != nil {
		return 0, 0, false, false, err
	}
	return s, s + l, tmp.Reversed(), true, nil
}

// Start returns the coalesced block's start position.
func (b *Bottom) Start() (int64, error) {
	lo, err := segment.NewBottom(b.g, b.loIdx)
	if err != nil {
		return 0, err
	}
	return lo.Start()
}

// Length returns the coalesced block's length. In atomic mode the block
// is always the single anchored base segment.
func (b *Bottom) Length() (int64, error) {
	lo, err := segment.NewBottom(b.g, b.loIdx)
	if err != nil {
		return 0, err
	}
	hi, err := segment.NewBottom(b.g, b.hiIdx)
	if err != nil {
		return 0, err
	}
	loStart, err := lo.Start()
	if err != nil {
		return 0, err
	}
	hiStart, err := hi.Start()
	if err != nil {
		return 0, err
	}
	hiLength, err := hi.Length()
	if err != nil {
		return 0, err
	}
	return hiStart + hiLength - loStart, nil
}

// ToLeft moves to the block immediately preceding this one.
func (b *Bottom) ToLeft() error {
	if b.loIdx <= 0 {
		return halerrors.E(halerrors.OutOfRange, "gapped: toLeft: already at the first bottom segment")
	}
	b.hiIdx = b.loIdx - 1
	b.loIdx = b.hiIdx
	if !b.atomic {
		return b.coalesce()
	}
	return nil
}

// ToRight moves to the block immediately following this one.
func (b *Bottom) ToRight() error {
	if b.hiIdx+1 >= b.g.NumBottomSegments() {
		return halerrors.E(halerrors.OutOfRange, "gapped: toRight: already at the last bottom segment")
	}
	b.loIdx = b.hiIdx + 1
	b.hiIdx = b.loIdx
	if !b.atomic {
		return b.coalesce()
	}
	return nil
}

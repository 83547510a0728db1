// Package record implements the fixed-offset packed binary layouts for
// top segments, bottom segments, sequences, and DNA. Each record type has
// one Get/Put pair covering all its fields, reading and writing directly into a byte slot
// handed to it by the chunked array facade. All integer fields are
// little-endian.
package record

import "encoding/binary"

// TopSegmentWidth is the fixed byte width of a top-segment record.
const TopSegmentWidth = 41

const (
	topGenomeIdxOff       = 0
	topLengthOff          = 8
	topBottomParseIdxOff  = 16
	topParentIdxOff       = 24
	topParentReversedOff  = 32
	topNextParalogyIdxOff = 33
)

// TopSegment is the decoded form of a top-segment record.
//
// GenomeIdx is the segment's start position for segments 0..N-1, and the
// genome length L for the sentinel record N.
type TopSegment struct {
	GenomeIdx       int64
	Length          uint64
	BottomParseIdx  int64
	ParentIdx       int64
	ParentReversed  bool
	NextParalogyIdx int64
}

// GetTopSegment decodes a TopSegment from a TopSegmentWidth-byte slot.
func GetTopSegment(slot []byte) TopSegment {
	_ = slot[TopSegmentWidth-1] // bounds check hint
	return TopSegment{
		GenomeIdx:       int64(binary.LittleEndian.Uint64(slot[topGenomeIdxOff:])),
		Length:          binary.LittleEndian.Uint64(slot[topLengthOff:]),
		BottomParseIdx:  int64(binary.LittleEndian.Uint64(slot[topBottomParseIdxOff:])),
		ParentIdx:       int64(binary.LittleEndian.Uint64(slot[topParentIdxOff:])),
		ParentReversed:  slot[topParentReversedOff] != 0,
		NextParalogyIdx: int64(binary.LittleEndian.Uint64(slot[topNextParalogyIdxOff:])),
	}
}

// PutTopSegment encodes t into a TopSegmentWidth-byte slot.
func PutTopSegment(slot []byte, t TopSegment) {
	_ = slot[TopSegmentWidth-1]
	binary.LittleEndian.PutUint64(slot[topGenomeIdxOff:], uint64(t.GenomeIdx))
	binary.LittleEndian.PutUint64(slot[topLengthOff:], t.Length)
	binary.LittleEndian.PutUint64(slot[topBottomParseIdxOff:], uint64(t.BottomParseIdx))
	binary.LittleEndian.PutUint64(slot[topParentIdxOff:], uint64(t.ParentIdx))
	if t.ParentReversed {
		slot[topParentReversedOff] = 1
	} else {
		slot[topParentReversedOff] = 0
	}
	binary.LittleEndian.PutUint64(slot[topNextParalogyIdxOff:], uint64(t.NextParalogyIdx))
}

const (
	botGenomeIdxOff   = 0
	botLengthOff      = 8
	botTopParseIdxOff = 16
	botFirstChildOff  = 24
	botChildStride    = 9 // 8-byte index + 1-byte reversed flag
)

// BottomSegmentWidth returns the byte width of a bottom-segment record for
// a genome with numChildren children.
func BottomSegmentWidth(numChildren int) int {
	return botFirstChildOff + numChildren*botChildStride
}

// NumChildrenFromWidth recovers K from a bottom-array record width at
// open time.
func NumChildrenFromWidth(width int) int {
	return (width - botFirstChildOff) / botChildStride
}

// BottomSegment is the decoded form of a bottom-segment record.
type BottomSegment struct {
	GenomeIdx    int64
	Length       uint64
	TopParseIdx  int64
	ChildIdx     []int64
	ChildReverse []bool
}

// GetBottomSegment decodes a BottomSegment from a slot of width
// BottomSegmentWidth(numChildren).
func GetBottomSegment(slot []byte, numChildren int) BottomSegment {
	width := BottomSegmentWidth(numChildren)
	_ = slot[width-1]
	b := BottomSegment{
		GenomeIdx:   int64(binary.LittleEndian.Uint64(slot[botGenomeIdxOff:])),
		Length:      binary.LittleEndian.Uint64(slot[botLengthOff:]),
		TopParseIdx: int64(binary.LittleEndian.Uint64(slot[botTopParseIdxOff:])),
	}
	if numChildren > 0 {
		b.ChildIdx = make([]int64, numChildren)
		b.ChildReverse = make([]bool, numChildren)
		for k := 0; k < numChildren; k++ {
			off := botFirstChildOff + k*botChildStride
			b.ChildIdx[k] = int64(binary.LittleEndian.Uint64(slot[off:]))
			b.ChildReverse[k] = slot[off+8] != 0
		}
	}
	return b
}

// PutBottomSegment encodes b into a slot of width
// BottomSegmentWidth(numChildren).
func PutBottomSegment(slot []byte, numChildren int, b BottomSegment) {
	width := BottomSegmentWidth(numChildren)
	_ = slot[width-1]
	binary.LittleEndian.PutUint64(slot[botGenomeIdxOff:], uint64(b.GenomeIdx))
	binary.LittleEndian.PutUint64(slot[botLengthOff:], b.Length)
	binary.LittleEndian.PutUint64(slot[botTopParseIdxOff:], uint64(b.TopParseIdx))
	for k := 0; k < numChildren; k++ {
		off := botFirstChildOff + k*botChildStride
		var idx int64 = -1
		var rev bool
		if k < len(b.ChildIdx) {
			idx = b.ChildIdx[k]
		}
		if k < len(b.ChildReverse) {
			rev = b.ChildReverse[k]
		}
		binary.LittleEndian.PutUint64(slot[off:], uint64(idx))
		if rev {
			slot[off+8] = 1
		} else {
			slot[off+8] = 0
		}
	}
}

const (
	seqStartPosOff    = 0
	seqLengthOff      = 8
	seqNumTopOff      = 16
	seqNumBottomOff   = 24
	seqTopFirstIdxOff = 32
	seqBotFirstIdxOff = 40
	seqNameOff        = 48
)

// SequenceRecordWidth returns the byte width of a sequence record whose
// name field has the given capacity.
func SequenceRecordWidth(nameCapacity int) int {
	return seqNameOff + nameCapacity
}

// Sequence is the decoded form of a sequence record.
type Sequence struct {
	StartPosition  int64
	Length         uint64
	NumTop         uint64
	NumBottom      uint64
	TopFirstIdx    int64
	BottomFirstIdx int64
	Name           string
}

// GetSequence decodes a Sequence from a slot whose trailing name capacity
// is nameCapacity bytes.
func GetSequence(slot []byte, nameCapacity int) Sequence {
	width := SequenceRecordWidth(nameCapacity)
	_ = slot[width-1]
	nameBytes := slot[seqNameOff:width]
	n := 0
	for n < len(nameBytes) && nameBytes[n] != 0 {
		n++
	}
	return Sequence{
		StartPosition:  int64(binary.LittleEndian.Uint64(slot[seqStartPosOff:])),
		Length:         binary.LittleEndian.Uint64(slot[seqLengthOff:]),
		NumTop:         binary.LittleEndian.Uint64(slot[seqNumTopOff:]),
		NumBottom:      binary.LittleEndian.Uint64(slot[seqNumBottomOff:]),
		TopFirstIdx:    int64(binary.LittleEndian.Uint64(slot[seqTopFirstIdxOff:])),
		BottomFirstIdx: int64(binary.LittleEndian.Uint64(slot[seqBotFirstIdxOff:])),
		Name:           string(nameBytes[:n]),
	}
}

// PutSequence encodes s into a slot whose trailing name capacity is
// nameCapacity bytes. Panics if len(s.Name) > nameCapacity.
func PutSequence(slot []byte, nameCapacity int, s Sequence) {
	width := SequenceRecordWidth(nameCapacity)
	_ = slot[width-1]
	if len(s.Name) > nameCapacity {
		panic("record: sequence name exceeds declared capacity")
	}
	binary.LittleEndian.PutUint64(slot[seqStartPosOff:], uint64(s.StartPosition))
	binary.LittleEndian.PutUint64(slot[seqLengthOff:], s.Length)
	binary.LittleEndian.PutUint64(slot[seqNumTopOff:], s.NumTop)
	binary.LittleEndian.PutUint64(slot[seqNumBottomOff:], s.NumBottom)
	binary.LittleEndian.PutUint64(slot[seqTopFirstIdxOff:], uint64(s.TopFirstIdx))
	binary.LittleEndian.PutUint64(slot[seqBotFirstIdxOff:], uint64(s.BottomFirstIdx))
	nameBytes := slot[seqNameOff:width]
	for i := range nameBytes {
		nameBytes[i] = 0
	}
	copy(nameBytes, s.Name)
}

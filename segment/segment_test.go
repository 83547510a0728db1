package segment_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/hal/chunkstore"
	"github.com/grailbio/hal/chunkstore/memback"
	"github.com/grailbio/hal/dnaiter"
	"github.com/grailbio/hal/genome"
	"github.com/grailbio/hal/halpb"
	"github.com/grailbio/hal/record"
	"github.com/grailbio/hal/segment"
)

type nilRegistry struct{}

func (nilRegistry) ParentName(string) (string, bool)    { return "", false }
func (nilRegistry) ChildNames(string) []string          { return nil }
func (nilRegistry) Open(string) (*genome.Genome, error) { return nil, nil }

func openGenome(t *testing.T, b chunkstore.Backend, name string) *genome.Genome {
	t.Helper()
	g, err := genome.Open(b, nilRegistry{}, name, chunkstore.DefaultCreateProps(), 0)
	require.NoError(t, err)
	return g
}

// buildGenome creates a single-sequence genome of the given length, with
// numChildren child slots in its bottom records, and lays out top/bottom
// segments at the given lengths (which must each sum to length).
func buildGenome(t *testing.T, name string, length int64, numChildren int, topLens, bottomLens []int64, storeDNA bool) *genome.Genome {
	t.Helper()
	b := memback.New()
	g := openGenome(t, b, name)
	require.NoError(t, g.SetDimensions([]genome.Info{{Name: "seq", Length: uint64(length)}}, numChildren, storeDNA))
	require.NoError(t, g.UpdateTopDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: uint64(len(topLens))}}))
	require.NoError(t, g.UpdateBottomDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: uint64(len(bottomLens))}}))

	var pos int64
	for i, l := range topLens {
		top, err := segment.NewTop(g, int64(i))
		require.NoError(t, err)
		require.NoError(t, top.SetRecord(record.TopSegment{
			GenomeIdx:       pos,
			ParentIdx:       halpb.NullIndex,
			BottomParseIdx:  0,
			NextParalogyIdx: halpb.NullIndex,
		}))
		pos += l
	}
	require.Equal(t, length, pos)

	pos = 0
	for i, l := range bottomLens {
		bot, err := segment.NewBottom(g, int64(i))
		require.NoError(t, err)
		require.NoError(t, bot.SetRecord(record.BottomSegment{
			GenomeIdx:    pos,
			TopParseIdx:  0,
			ChildIdx:     make([]int64, numChildren),
			ChildReverse: make([]bool, numChildren),
		}))
		pos += l
	}
	require.Equal(t, length, pos)
	return g
}

// TestRoundTripSegments builds a 9-child genome with one million-base
// sequence and 5000 top segments carrying randomized fields.
// Every record is written, the genome flushed and reopened from the same
// backend, and a left-to-right walk followed by a right-to-left walk must
// see byte-identical records at each array index.
func TestRoundTripSegments(t *testing.T) {
	const (
		numChildren = 9
		numTop      = 5000
		length      = int64(1000000)
	)
	rnd := rand.New(rand.NewSource(1))
	b := memback.New()
	g := openGenome(t, b, "Anc0")
	require.NoError(t, g.SetDimensions([]genome.Info{{Name: "seq", Length: uint64(length)}}, numChildren, false))
	require.NoError(t, g.UpdateTopDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: numTop}}))
	require.NoError(t, g.UpdateBottomDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: 1}}))

	// Random strictly-increasing starts covering [0, L): each segment gets
	// a random length in [1, 400], except the last, which absorbs the
	// remainder; the cap keeps at least one base for every later segment.
	records := make([]record.TopSegment, numTop)
	var pos int64
	for i := 0; i < numTop; i++ {
		var segLen int64
		if i == numTop-1 {
			segLen = length - pos
		} else {
			maxLen := length - pos - int64(numTop-1-i)
			if maxLen > 400 {
				maxLen = 400
			}
			segLen = 1 + rnd.Int63n(maxLen)
		}
		rec := record.TopSegment{
			GenomeIdx:       pos,
			Length:          uint64(segLen),
			BottomParseIdx:  halpb.NullIndex,
			ParentIdx:       halpb.NullIndex,
			ParentReversed:  rnd.Intn(2) == 0,
			NextParalogyIdx: halpb.NullIndex,
		}
		if rnd.Intn(4) != 0 {
			rec.ParentIdx = rnd.Int63n(numTop)
		}
		if rnd.Intn(2) == 0 {
			rec.BottomParseIdx = 0
		}
		if rnd.Intn(8) == 0 {
			rec.NextParalogyIdx = rnd.Int63n(numTop)
		}
		records[i] = rec

		top, err := segment.NewTop(g, int64(i))
		require.NoError(t, err)
		require.NoError(t, top.SetRecord(rec))
		pos += segLen
	}
	require.Equal(t, length, pos)
	require.NoError(t, g.Write())

	g2, err := genome.Open(b, nilRegistry{}, "Anc0", chunkstore.DefaultCreateProps(), 4)
	require.NoError(t, err)
	require.Equal(t, int64(numTop), g2.NumTopSegments())

	// Left to right.
	top, err := segment.NewTop(g2, 0)
	require.NoError(t, err)
	for i := 0; i < numTop; i++ {
		rec, err := top.Record()
		require.NoError(t, err)
		require.Equal(t, records[i], rec, "L-to-R at index %d", i)
		if i+1 < numTop {
			require.NoError(t, top.ToRight())
		}
	}
	// Right to left.
	for i := numTop - 1; i >= 0; i-- {
		rec, err := top.Record()
		require.NoError(t, err)
		require.Equal(t, records[i], rec, "R-to-L at index %d", i)
		if i > 0 {
			require.NoError(t, top.ToLeft())
		}
	}
}

// TestParseAlignment checks that, for several top/bottom segmentations
// of the same length-10 coordinate space, ToParseUp lands exactly on
// bottom.start and the overlap length equals
// min(topEnd, bottomEnd) - bottom.start.
func TestParseAlignment(t *testing.T) {
	cases := []struct {
		name       string
		topLens    []int64
		bottomLens []int64
	}{
		{"identical", []int64{10}, []int64{10}},
		{"one-top-three-bottom", []int64{9, 1}, []int64{3, 4, 3}},
		{"three-top-one-bottom", []int64{3, 4, 3}, []int64{9, 1}},
		{"one-top-two-bottom", []int64{9, 1}, []int64{5, 5}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := buildGenome(t, "Anc0", 10, 0, c.topLens, c.bottomLens, false)
			for i := range c.bottomLens {
				bot, err := segment.NewBottom(g, int64(i))
				require.NoError(t, err)
				bStart, err := bot.Start()
				require.NoError(t, err)
				bLength, err := bot.Length()
				require.NoError(t, err)
				bEnd := bStart + bLength

				top, err := segment.NewTop(g, 0)
				require.NoError(t, err)
				require.NoError(t, top.ToParseUp(bot))

				tStart, err := top.Start()
				require.NoError(t, err)
				tLength, err := top.Length()
				require.NoError(t, err)
				tEnd := tStart + tLength

				assert.Equal(t, bStart, tStart)
				wantEnd := tEnd
				if bEnd < wantEnd {
					wantEnd = bEnd
				}
				assert.Equal(t, wantEnd-bStart, tLength, "intersection length")
			}
		})
	}
}

// TestReversedChildCrossesEdge sets up a single reversed bottom edge
// from parent to child: a slice on the parent side must propagate to the
// child with swapped offsets and produce the reverse complement when
// both genomes carry the same underlying bases.
func TestReversedChildCrossesEdge(t *testing.T) {
	const dna = "CCCTACGTGC"
	parent := buildGenome(t, "Anc0", 10, 1, []int64{10}, []int64{10}, true)
	require.NoError(t, writeDNA(parent, 0, dna))

	child := buildGenome(t, "Leaf0", 10, 0, []int64{10}, []int64{10}, true)
	require.NoError(t, writeDNA(child, 0, dna))

	pbot, err := segment.NewBottom(parent, 0)
	require.NoError(t, err)
	require.NoError(t, pbot.SetRecord(record.BottomSegment{
		GenomeIdx:    0,
		TopParseIdx:  halpb.NullIndex,
		ChildIdx:     []int64{0},
		ChildReverse: []bool{true},
	}))

	ctop, err := segment.NewTop(child, 0)
	require.NoError(t, err)
	start, err := ctop.Start()
	require.NoError(t, err)
	length, err := ctop.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(10), length)
	assert.False(t, ctop.Reversed())

	require.NoError(t, ctop.ToChild(pbot, 0))
	start, err = ctop.Start()
	require.NoError(t, err)
	length, err = ctop.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(9), start)
	assert.Equal(t, int64(10), length)
	assert.True(t, ctop.Reversed())

	require.NoError(t, pbot.Slice(1, 3))
	require.NoError(t, ctop.ToChild(pbot, 0))
	start, err = ctop.Start()
	require.NoError(t, err)
	length, err = ctop.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(6), start)
	assert.Equal(t, int64(6), length)
	assert.True(t, ctop.Reversed())

	got, err := ctop.GetString()
	require.NoError(t, err)
	assert.Equal(t, "CGTAGG", got)

	parentStr, err := pbot.GetString()
	require.NoError(t, err)
	assert.Equal(t, "CCTACG", parentStr)
	assert.Equal(t, got, revcomp(parentStr))
}

// TestToSite checks that every position in [0,L) resolves to its
// covering segment with expandToSegment=true, and to a single base at
// that position with expandToSegment=false.
func TestToSite(t *testing.T) {
	lens := []int64{3, 4, 3}
	g := buildGenome(t, "Anc0", 10, 0, lens, []int64{10}, false)
	bounds := make([][2]int64, 0, len(lens))
	var pos int64
	for _, l := range lens {
		bounds = append(bounds, [2]int64{pos, pos + l})
		pos += l
	}

	top, err := segment.NewTop(g, 0)
	require.NoError(t, err)
	for p := int64(0); p < 10; p++ {
		require.NoError(t, top.ToSite(p, true))
		start, err := top.Start()
		require.NoError(t, err)
		length, err := top.Length()
		require.NoError(t, err)
		assert.True(t, start <= p)
		assert.True(t, p < start+length)

		var want [2]int64
		for _, b := range bounds {
			if p >= b[0] && p < b[1] {
				want = b
			}
		}
		assert.Equal(t, want[0], start)
		assert.Equal(t, want[1]-want[0], length)

		require.NoError(t, top.ToSite(p, false))
		start, err = top.Start()
		require.NoError(t, err)
		length, err = top.Length()
		require.NoError(t, err)
		assert.Equal(t, p, start)
		assert.Equal(t, int64(1), length)
	}
}

// TestParalogyCycleCloses checks that a well-formed paralogy cycle
// reports no error, and a broken chain is flagged.
func TestParalogyCycleCloses(t *testing.T) {
	g := buildGenome(t, "Anc0", 9, 0, []int64{3, 3, 3}, []int64{9}, false)
	next := []int64{1, 2, 0}
	for i := 0; i < 3; i++ {
		top, err := segment.NewTop(g, int64(i))
		require.NoError(t, err)
		rec, err := top.Record()
		require.NoError(t, err)
		rec.NextParalogyIdx = next[i]
		require.NoError(t, top.SetRecord(rec))
	}
	start, err := segment.NewTop(g, 0)
	require.NoError(t, err)
	assert.NoError(t, segment.CheckParalogyCycle(start))

	// Break the cycle: segment 2's link is cleared instead of pointing back to 0.
	top2, err := segment.NewTop(g, 2)
	require.NoError(t, err)
	rec, err := top2.Record()
	require.NoError(t, err)
	rec.NextParalogyIdx = halpb.NullIndex
	require.NoError(t, top2.SetRecord(rec))

	start2, err := segment.NewTop(g, 0)
	require.NoError(t, err)
	assert.Error(t, segment.CheckParalogyCycle(start2))
}

func writeDNA(g *genome.Genome, pos int64, s string) error {
	cur, err := dnaiter.New(g, pos, false)
	if err != nil {
		return err
	}
	return cur.WriteString(s)
}

func revcomp(s string) string {
	buf := make([]byte, len(s))
	for i, c := range []byte(s) {
		var rc byte
		switch c {
		case 'A':
			rc = 'T'
		case 'T':
			rc = 'A'
		case 'C':
			rc = 'G'
		case 'G':
			rc = 'C'
		default:
			rc = 'N'
		}
		buf[len(s)-1-i] = rc
	}
	return string(buf)
}

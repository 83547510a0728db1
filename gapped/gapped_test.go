package gapped_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/hal/chunkstore"
	"github.com/grailbio/hal/chunkstore/memback"
	"github.com/grailbio/hal/gapped"
	"github.com/grailbio/hal/genome"
	"github.com/grailbio/hal/halpb"
	"github.com/grailbio/hal/record"
	"github.com/grailbio/hal/segment"
)

// testRegistry resolves parent/child names among a fixed set of
// already-open genomes; it never calls the backend itself.
type testRegistry struct {
	genomes  map[string]*genome.Genome
	parent   map[string]string
	children map[string][]string
}

func newTestRegistry() *testRegistry {
	return &testRegistry{
		genomes:  map[string]*genome.Genome{},
		parent:   map[string]string{},
		children: map[string][]string{},
	}
}

func (r *testRegistry) ParentName(name string) (string, bool) {
	p, ok := r.parent[name]
	return p, ok
}
func (r *testRegistry) ChildNames(name string) []string { return r.children[name] }
func (r *testRegistry) Open(name string) (*genome.Genome, error) {
	return r.genomes[name], nil
}

func buildGenome(t *testing.T, reg *testRegistry, b chunkstore.Backend, name string, length int64, numChildren int, topLens, bottomLens []int64) *genome.Genome {
	t.Helper()
	g, err := genome.Open(b, reg, name, chunkstore.DefaultCreateProps(), 0)
	require.NoError(t, err)
	require.NoError(t, g.SetDimensions([]genome.Info{{Name: "seq", Length: uint64(length)}}, numChildren, false))
	require.NoError(t, g.UpdateTopDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: uint64(len(topLens))}}))
	require.NoError(t, g.UpdateBottomDimensions([]genome.UpdateInfo{{Name: "seq", NumSegments: uint64(len(bottomLens))}}))
	reg.genomes[name] = g
	return g
}

func setTop(t *testing.T, g *genome.Genome, idx int64, pos int64, parentIdx int64) {
	t.Helper()
	top, err := segment.NewTop(g, idx)
	require.NoError(t, err)
	require.NoError(t, top.SetRecord(record.TopSegment{
		GenomeIdx:       pos,
		ParentIdx:       parentIdx,
		ParentReversed:  false,
		BottomParseIdx:  halpb.NullIndex,
		NextParalogyIdx: halpb.NullIndex,
	}))
}

func setBottom(t *testing.T, g *genome.Genome, idx int64, pos int64, childIdx int64) {
	t.Helper()
	bot, err := segment.NewBottom(g, idx)
	require.NoError(t, err)
	require.NoError(t, bot.SetRecord(record.BottomSegment{
		GenomeIdx:    pos,
		TopParseIdx:  halpb.NullIndex,
		ChildIdx:     []int64{childIdx},
		ChildReverse: []bool{false},
	}))
}

// TestGappedTopCoalescesAcrossSmallParentGap builds a child with 2 top
// segments whose mapped parent ranges are separated by a 3-base
// unaligned run in the parent (represented there by bottom segment 1,
// which has no child edge), and checks the gap threshold gates coalescing.
func TestGappedTopCoalescesAcrossSmallParentGap(t *testing.T) {
	reg := newTestRegistry()
	b := memback.New()
	parent := buildGenome(t, reg, b, "Anc0", 12, 1, []int64{12}, []int64{3, 3, 3, 3})
	child := buildGenome(t, reg, b, "Leaf0", 6, 0, []int64{3, 3}, []int64{6})
	reg.parent["Leaf0"] = "Anc0"
	reg.children["Anc0"] = []string{"Leaf0"}

	setBottom(t, parent, 0, 0, 0)
	setBottom(t, parent, 1, 3, halpb.NullIndex)
	setBottom(t, parent, 2, 6, 1)
	setBottom(t, parent, 3, 9, halpb.NullIndex)

	setTop(t, child, 0, 0, 0)
	setTop(t, child, 1, 3, 2)

	cur, err := gapped.NewTop(child, 0, 3, false)
	require.NoError(t, err)
	start, err := cur.Start()
	require.NoError(t, err)
	length, err := cur.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(6), length, "threshold 3 should coalesce across the 3-base gap")

	tight, err := gapped.NewTop(child, 0, 2, false)
	require.NoError(t, err)
	start, err = tight.Start()
	require.NoError(t, err)
	length, err = tight.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(3), length, "threshold 2 should not coalesce across the 3-base gap")
}

func TestGappedTopAtomicDisablesCoalescing(t *testing.T) {
	reg := newTestRegistry()
	b := memback.New()
	parent := buildGenome(t, reg, b, "Anc0", 12, 1, []int64{12}, []int64{3, 3, 3, 3})
	child := buildGenome(t, reg, b, "Leaf0", 6, 0, []int64{3, 3}, []int64{6})
	reg.parent["Leaf0"] = "Anc0"
	reg.children["Anc0"] = []string{"Leaf0"}
	setBottom(t, parent, 0, 0, 0)
	setBottom(t, parent, 1, 3, halpb.NullIndex)
	setBottom(t, parent, 2, 6, 1)
	setBottom(t, parent, 3, 9, halpb.NullIndex)
	setTop(t, child, 0, 0, 0)
	setTop(t, child, 1, 3, 2)

	// Atomic mode reports exactly one base segment per step even though
	// the threshold would otherwise coalesce both segments.
	cur, err := gapped.NewTop(child, 0, 100, true)
	require.NoError(t, err)
	start, err := cur.Start()
	require.NoError(t, err)
	length, err := cur.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(3), length)

	require.NoError(t, cur.ToRight())
	start, err = cur.Start()
	require.NoError(t, err)
	length, err = cur.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(3), start)
	assert.Equal(t, int64(3), length)
}

// TestGappedBottomCoalescesAcrossSmallChildGap is the mirror of the top
// test: the parent's two bottom segments are themselves adjacent, and
// the gap is a child-only insertion between the two top segments they
// map to.
func TestGappedBottomCoalescesAcrossSmallChildGap(t *testing.T) {
	reg := newTestRegistry()
	b := memback.New()
	parent := buildGenome(t, reg, b, "Anc1", 6, 1, []int64{6}, []int64{3, 3})
	child := buildGenome(t, reg, b, "Leaf1", 9, 0, []int64{3, 3, 3}, []int64{9})
	reg.parent["Leaf1"] = "Anc1"
	reg.children["Anc1"] = []string{"Leaf1"}

	setBottom(t, parent, 0, 0, 0)
	setBottom(t, parent, 1, 3, 2)

	setTop(t, child, 0, 0, 0)
	setTop(t, child, 1, 3, halpb.NullIndex)
	setTop(t, child, 2, 6, 1)

	cur, err := gapped.NewBottom(parent, 0, 0, 3, false)
	require.NoError(t, err)
	start, err := cur.Start()
	require.NoError(t, err)
	length, err := cur.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(6), length)

	tight, err := gapped.NewBottom(parent, 0, 0, 2, false)
	require.NoError(t, err)
	length, err = tight.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)
}

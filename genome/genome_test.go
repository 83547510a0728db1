package genome_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/hal/chunkstore"
	"github.com/grailbio/hal/chunkstore/memback"
	"github.com/grailbio/hal/genome"
)

// nilRegistry has no parent or children; enough for single-genome tests.
type nilRegistry struct{}

func (nilRegistry) ParentName(string) (string, bool) { return "", false }
func (nilRegistry) ChildNames(string) []string       { return nil }
func (nilRegistry) Open(string) (*genome.Genome, error) {
	return nil, nil
}

func openAnc0(t *testing.T, b chunkstore.Backend) *genome.Genome {
	t.Helper()
	g, err := genome.Open(b, nilRegistry{}, "Anc0", chunkstore.DefaultCreateProps(), 4)
	require.NoError(t, err)
	return g
}

func TestSetDimensionsAndReopen(t *testing.T) {
	b := memback.New()
	g := openAnc0(t, b)

	seqs := []genome.Info{
		{Name: "chr1", Length: 100, NumTop: 10, NumBottom: 5},
		{Name: "chr2", Length: 50, NumTop: 4, NumBottom: 2},
	}
	require.NoError(t, g.SetDimensions(seqs, 9, true))
	require.NoError(t, g.Write())

	assert.Equal(t, int64(150), g.Length())
	assert.Equal(t, 9, g.NumChildren())
	assert.Equal(t, int64(14), g.NumTopSegments())
	assert.Equal(t, int64(7), g.NumBottomSegments())
	assert.True(t, g.ContainsDNA())
	assert.NoError(t, g.Validate())

	s, ok := g.SequenceByName("chr2")
	require.True(t, ok)
	assert.Equal(t, int64(100), s.Start)
	assert.Equal(t, int64(10), s.TopFirstIdx)
	assert.Equal(t, int64(5), s.BottomFirstIdx)

	at, ok := g.SequenceAt(149)
	require.True(t, ok)
	assert.Equal(t, "chr2", at.Name)

	g2, err := genome.Open(b, nilRegistry{}, "Anc0", chunkstore.DefaultCreateProps(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(150), g2.Length())
	assert.Equal(t, 9, g2.NumChildren())
	assert.Equal(t, 2, g2.NumSequences())
	assert.NoError(t, g2.Validate())
	s2, ok := g2.SequenceByName("chr1")
	require.True(t, ok)
	assert.Equal(t, int64(0), s2.Start)
	assert.Equal(t, uint64(10), s2.NumTop)
}

func TestUpdateTopDimensionsShiftsOnlyFollowingSequences(t *testing.T) {
	b := memback.New()
	g := openAnc0(t, b)
	seqs := []genome.Info{
		{Name: "a", Length: 10, NumTop: 2, NumBottom: 2},
		{Name: "b", Length: 10, NumTop: 3, NumBottom: 2},
		{Name: "c", Length: 10, NumTop: 4, NumBottom: 2},
	}
	require.NoError(t, g.SetDimensions(seqs, 1, false))

	bBefore, _ := g.SequenceByName("b")
	cBefore, _ := g.SequenceByName("c")
	require.Equal(t, int64(2), bBefore.TopFirstIdx)
	require.Equal(t, int64(5), cBefore.TopFirstIdx)

	require.NoError(t, g.UpdateTopDimensions([]genome.UpdateInfo{{Name: "a", NumSegments: 5}}))

	aAfter, _ := g.SequenceByName("a")
	bAfter, _ := g.SequenceByName("b")
	cAfter, _ := g.SequenceByName("c")
	assert.Equal(t, int64(0), aAfter.TopFirstIdx)
	assert.Equal(t, uint64(5), aAfter.NumTop)
	// b and c follow a in storage order, so both shift by the delta (+3).
	assert.Equal(t, int64(5), bAfter.TopFirstIdx)
	assert.Equal(t, int64(8), cAfter.TopFirstIdx)
	assert.Equal(t, int64(12), g.NumTopSegments())
	assert.NoError(t, g.Validate())
}

func TestUpdateTopDimensionsRejectsUnknownName(t *testing.T) {
	b := memback.New()
	g := openAnc0(t, b)
	require.NoError(t, g.SetDimensions([]genome.Info{{Name: "a", Length: 10, NumTop: 1, NumBottom: 1}}, 1, false))
	err := g.UpdateTopDimensions([]genome.UpdateInfo{{Name: "nope", NumSegments: 1}})
	assert.Error(t, err)
}

func TestMetaDataRoundTrip(t *testing.T) {
	b := memback.New()
	g := openAnc0(t, b)
	require.NoError(t, g.SetMetaData("assembly", "hg38"))

	v, ok, err := g.GetMetaData("assembly")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hg38", v)

	_, ok, err = g.GetMetaData("nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetDimensionsNoDNAWhenNotRequested(t *testing.T) {
	b := memback.New()
	g := openAnc0(t, b)
	require.NoError(t, g.SetDimensions([]genome.Info{{Name: "a", Length: 10, NumTop: 1, NumBottom: 1}}, 0, false))
	assert.False(t, g.ContainsDNA())
}

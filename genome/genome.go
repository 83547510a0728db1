// Package genome implements the per-genome store: the owner of a
// genome's four backing arrays (DNA, top segment, bottom segment,
// sequence), the cross-array invariants, and the lifecycle operations
// (SetDimensions / Update*Dimensions / read / write) that keep them
// consistent.
package genome

import (
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/grailbio/hal/chunkstore"
	"github.com/grailbio/hal/halerrors"
	"github.com/grailbio/hal/halpb"
	"github.com/grailbio/hal/record"
	"github.com/grailbio/hal/seqindex"
)

// Array names and metadata subgroup names inside a genome's group.
const (
	DNAArrayName      = "DNA_ARRAY"
	TopArrayName      = "TOP_ARRAY"
	BottomArrayName   = "BOTTOM_ARRAY"
	SequenceArrayName = "SEQUENCE_ARRAY"
	MetaGroupName     = "Meta"
	RupGroupName      = "Rup"
	rupKey            = "roundUp"
)

// nameCapacityPad is added to the longest sequence name at creation
// time, leaving room for renames without rewriting the sequence array.
const nameCapacityPad = 32

// Sequence is a contiguous slice of a genome's coordinate space.
type Sequence struct {
	Name           string
	Start          int64
	Length         int64
	TopFirstIdx    int64
	BottomFirstIdx int64
	NumTop         uint64
	NumBottom      uint64
}

// Info describes one sequence at genome-creation time.
type Info struct {
	Name      string
	Length    uint64
	NumTop    uint64
	NumBottom uint64
}

// UpdateInfo describes a per-sequence segment-count change.
type UpdateInfo struct {
	Name        string
	NumSegments uint64
}

// Registry resolves genome names to parent/child relationships and open
// genomes. The alignment-level tree registry owns the genomes; Genome
// only ever calls these three methods and never owns the genomes it gets
// back.
type Registry interface {
	ParentName(genomeName string) (string, bool)
	ChildNames(genomeName string) []string
	Open(genomeName string) (*Genome, error)
}

// Genome owns the four backing arrays for one genome node in a tree.
type Genome struct {
	name     string
	backend  chunkstore.Backend
	registry Registry
	props    chunkstore.CreateProps
	buffered int

	totalLength int64
	numChildren int
	roundUp     bool

	dnaArray      *chunkstore.Array
	topArray      *chunkstore.Array
	bottomArray   *chunkstore.Array
	sequenceArray *chunkstore.Array
	nameCapacity  int

	seqIndex *seqindex.Index
	extra    map[string]*Sequence
	order    []string // sequence names in stored (ascending start) order

	parentCache  *Genome
	parentCached bool
	childCache   []*Genome
}

// Open opens an existing genome group, or creates an empty one if
// absent, and loads whatever arrays are present; chunks fault in lazily
// from storage as they are touched.
func Open(backend chunkstore.Backend, registry Registry, name string, props chunkstore.CreateProps, bufferedChunks int) (*Genome, error) {
	if name == "" {
		return nil, halerrors.E(halerrors.MissingName, "genome: empty genome name")
	}
	g := &Genome{
		name:     name,
		backend:  backend,
		registry: registry,
		props:    props,
		buffered: bufferedChunks,
		seqIndex: seqindex.New(),
		extra:    make(map[string]*Sequence),
	}
	exists, err := backend.GroupOpen(name)
	if err != nil {
		return nil, halerrors.E(halerrors.IOError, errors.Wrap(err, "genome: group open"))
	}
	if !exists {
		if err := backend.GroupCreate(name); err != nil {
			return nil, halerrors.E(halerrors.IOError, errors.Wrap(err, "genome: group create"))
		}
		vlog.VI(1).Infof("genome: created empty group %s", name)
		return g, nil
	}
	if err := g.read(); err != nil {
		return nil, err
	}
	vlog.VI(1).Infof("genome: opened %s (L=%d, K=%d, %d sequences)", name, g.totalLength, g.numChildren, len(g.order))
	return g, nil
}

// Name returns the genome's name.
func (g *Genome) Name() string { return g.name }

// Length returns the total sequence length L.
func (g *Genome) Length() int64 { return g.totalLength }

// NumChildren returns K, the number of children, as determined by the
// bottom-segment record width.
func (g *Genome) NumChildren() int { return g.numChildren }

// ContainsDNA reports whether this genome stores bases.
func (g *Genome) ContainsDNA() bool {
	return g.dnaArray != nil
}

// RoundUp reports whether the DNA array's trailing nibble is unused
// padding.
func (g *Genome) RoundUp() bool { return g.roundUp }

// NumSequences returns the number of sequences.
func (g *Genome) NumSequences() int { return len(g.order) }

// NumTopSegments returns N, the top-segment count (array size - 1, or 0
// if no top array exists).
func (g *Genome) NumTopSegments() int64 {
	if g.topArray == nil || g.topArray.Size() == 0 {
		return 0
	}
	return g.topArray.Size() - 1
}

// NumBottomSegments returns N, the bottom-segment count.
func (g *Genome) NumBottomSegments() int64 {
	if g.bottomArray == nil || g.bottomArray.Size() == 0 {
		return 0
	}
	return g.bottomArray.Size() - 1
}

// TopArray exposes the backing top-segment array, for the segment
// package's iterator cursors.
func (g *Genome) TopArray() *chunkstore.Array { return g.topArray }

// BottomArray exposes the backing bottom-segment array.
func (g *Genome) BottomArray() *chunkstore.Array { return g.bottomArray }

// DNAArray exposes the backing DNA array.
func (g *Genome) DNAArray() *chunkstore.Array { return g.dnaArray }

// SequenceByName returns the sequence with the given name, or
// (nil, false).
func (g *Genome) SequenceByName(name string) (*Sequence, bool) {
	s, ok := g.extra[name]
	return s, ok
}

// SequenceAt returns the sequence containing position p, or (nil, false).
func (g *Genome) SequenceAt(p int64) (*Sequence, bool) {
	s := g.seqIndex.SequenceAt(p)
	if s == nil {
		return nil, false
	}
	return g.extra[s.Name], true
}

// Sequences calls fn for every sequence in ascending-start order.
func (g *Genome) Sequences(fn func(*Sequence)) {
	for _, name := range g.order {
		fn(g.extra[name])
	}
}

// Parent returns the parent genome, resolving and caching it on first
// use. A root genome has no parent: Parent returns (nil, nil).
func (g *Genome) Parent() (*Genome, error) {
	if g.parentCached {
		return g.parentCache, nil
	}
	parentName, ok := g.registry.ParentName(g.name)
	if !ok || parentName == "" {
		g.parentCached = true
		g.parentCache = nil
		return nil, nil
	}
	p, err := g.registry.Open(parentName)
	if err != nil {
		return nil, halerrors.E(halerrors.IOError, errors.Wrapf(err, "genome: open parent %s", parentName))
	}
	g.parentCache = p
	g.parentCached = true
	return p, nil
}

// Child returns the k'th child genome, resolving and caching all
// children on first use.
func (g *Genome) Child(k int) (*Genome, error) {
	if k < 0 {
		return nil, halerrors.E(halerrors.OutOfRange, "genome: negative child index ", k)
	}
	if g.childCache == nil {
		names := g.registry.ChildNames(g.name)
		cache := make([]*Genome, len(names))
		for i, n := range names {
			c, err := g.registry.Open(n)
			if err != nil {
				return nil, halerrors.E(halerrors.IOError, errors.Wrapf(err, "genome: open child %s", n))
			}
			cache[i] = c
		}
		g.childCache = cache
	}
	if k >= len(g.childCache) {
		return nil, halerrors.E(halerrors.OutOfRange, "genome: child index ", k, " out of range [0,", len(g.childCache), ")")
	}
	return g.childCache[k], nil
}

// resetBranchCaches invalidates the parent/child cache. Any dimensional
// change must call this.
func (g *Genome) resetBranchCaches() {
	g.parentCache = nil
	g.parentCached = false
	g.childCache = nil
}

// SetMetaData stores a user key/value pair in the genome's "Meta"
// subgroup.
func (g *Genome) SetMetaData(key, value string) error {
	if err := g.backend.SetMeta(g.name, MetaGroupName, key, value); err != nil {
		return halerrors.E(halerrors.IOError, errors.Wrapf(err, "genome: set metadata %q", key))
	}
	return nil
}

// GetMetaData reads a user key/value pair from the genome's "Meta"
// subgroup, returning ok=false if the key is absent.
func (g *Genome) GetMetaData(key string) (string, bool, error) {
	v, ok, err := g.backend.GetMeta(g.name, MetaGroupName, key)
	if err != nil {
		return "", false, halerrors.E(halerrors.IOError, errors.Wrapf(err, "genome: get metadata %q", key))
	}
	return v, ok, nil
}

// Write flushes all dirty chunks of every backing array to the backend.
// Callers must flush before closing for cross-process visibility.
func (g *Genome) Write() error {
	for _, a := range []*chunkstore.Array{g.dnaArray, g.topArray, g.bottomArray, g.sequenceArray} {
		if a == nil {
			continue
		}
		if err := a.Write(); err != nil {
			return err
		}
	}
	return nil
}

// read loads whatever of the four arrays exist, rebuilds the sequence
// index, recovers K, and validates the DNA/length parity.
func (g *Genome) read() error {
	if exists, err := chunkstore.Exists(g.backend, g.name, SequenceArrayName); err != nil {
		return err
	} else if exists {
		arr, err := chunkstore.Load(g.backend, g.name, SequenceArrayName, g.buffered)
		if err != nil {
			return err
		}
		g.sequenceArray = arr
		g.nameCapacity = arr.ElemWidth() - record.SequenceRecordWidth(0)
		if err := g.loadSequences(); err != nil {
			return err
		}
	}

	if exists, err := chunkstore.Exists(g.backend, g.name, TopArrayName); err != nil {
		return err
	} else if exists {
		arr, err := chunkstore.Load(g.backend, g.name, TopArrayName, g.buffered)
		if err != nil {
			return err
		}
		g.topArray = arr
	}

	if exists, err := chunkstore.Exists(g.backend, g.name, BottomArrayName); err != nil {
		return err
	} else if exists {
		arr, err := chunkstore.Load(g.backend, g.name, BottomArrayName, g.buffered)
		if err != nil {
			return err
		}
		g.bottomArray = arr
		g.numChildren = record.NumChildrenFromWidth(arr.ElemWidth())
	}

	if exists, err := chunkstore.Exists(g.backend, g.name, DNAArrayName); err != nil {
		return err
	} else if exists {
		arr, err := chunkstore.Load(g.backend, g.name, DNAArrayName, g.buffered)
		if err != nil {
			return err
		}
		g.dnaArray = arr
		rup, ok, err := g.backend.GetMeta(g.name, RupGroupName, rupKey)
		if err != nil {
			return halerrors.E(halerrors.IOError, errors.Wrap(err, "genome: read round-up flag"))
		}
		g.roundUp = ok && rup == "1"

		wantBytes, wantRoundUp := record.DNAArrayLen(uint64(g.totalLength))
		if int64(wantBytes) != g.dnaArray.Size() || wantRoundUp != g.roundUp {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": dna array size ", g.dnaArray.Size(),
				" (roundUp=", g.roundUp, ") disagrees with L=", g.totalLength)
		}
	}
	return nil
}

func (g *Genome) loadSequences() error {
	g.seqIndex = seqindex.New()
	g.extra = make(map[string]*Sequence)
	g.order = g.order[:0]

	n := g.sequenceArray.Size()
	var total int64
	for i := int64(0); i < n; i++ {
		slot, err := g.sequenceArray.Slot(i)
		if err != nil {
			return err
		}
		rec := record.GetSequence(slot, g.nameCapacity)
		if rec.Name == "" {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": sequence ", i, " has empty name")
		}
		s := &Sequence{
			Name:           rec.Name,
			Start:          rec.StartPosition,
			Length:         int64(rec.Length),
			TopFirstIdx:    rec.TopFirstIdx,
			BottomFirstIdx: rec.BottomFirstIdx,
			NumTop:         rec.NumTop,
			NumBottom:      rec.NumBottom,
		}
		g.seqIndex.Add(&seqindex.Sequence{Name: s.Name, Start: s.Start, Length: s.Length})
		g.extra[s.Name] = s
		g.order = append(g.order, s.Name)
		total = s.Start + s.Length
	}
	g.totalLength = total
	return nil
}

// SetDimensions atomically (re)initializes the genome: allocates the DNA
// and sequence arrays, writes sequence records, and sizes the top/bottom
// arrays. numChildren fixes K for this genome's bottom-segment records
// for the lifetime of this layout.
func (g *Genome) SetDimensions(seqInfos []Info, numChildren int, storeDNA bool) error {
	seen := make(map[string]bool, len(seqInfos))
	var total int64
	maxName := 0
	for _, si := range seqInfos {
		if si.Name == "" {
			return halerrors.E(halerrors.MissingName, "genome: ", g.name, ": sequence with empty name")
		}
		if seen[si.Name] {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": duplicate sequence name ", si.Name)
		}
		seen[si.Name] = true
		total += int64(si.Length)
		if len(si.Name) > maxName {
			maxName = len(si.Name)
		}
	}

	if err := chunkstore.Unlink(g.backend, g.name, DNAArrayName); err != nil {
		return err
	}
	if err := chunkstore.Unlink(g.backend, g.name, SequenceArrayName); err != nil {
		return err
	}
	g.dnaArray = nil
	g.sequenceArray = nil
	g.numChildren = numChildren
	g.roundUp = false

	if storeDNA && total > 0 {
		numBytes, roundUp := record.DNAArrayLen(uint64(total))
		arr, err := chunkstore.Create(g.backend, g.name, DNAArrayName, 1, int64(numBytes), g.props.ScaleDNA(), g.buffered)
		if err != nil {
			return err
		}
		g.dnaArray = arr
		g.roundUp = roundUp
		val := "0"
		if roundUp {
			val = "1"
		}
		if err := g.backend.SetMeta(g.name, RupGroupName, rupKey, val); err != nil {
			return halerrors.E(halerrors.IOError, errors.Wrap(err, "genome: set round-up flag"))
		}
	}

	g.nameCapacity = maxName + nameCapacityPad
	width := record.SequenceRecordWidth(g.nameCapacity)
	seqArr, err := chunkstore.Create(g.backend, g.name, SequenceArrayName, width, int64(len(seqInfos)), g.props, g.buffered)
	if err != nil {
		return err
	}
	g.sequenceArray = seqArr

	g.seqIndex = seqindex.New()
	g.extra = make(map[string]*Sequence, len(seqInfos))
	g.order = make([]string, 0, len(seqInfos))

	var start, topFirst, bottomFirst int64
	topUpdates := make([]UpdateInfo, 0, len(seqInfos))
	bottomUpdates := make([]UpdateInfo, 0, len(seqInfos))
	for i, si := range seqInfos {
		s := &Sequence{
			Name:           si.Name,
			Start:          start,
			Length:         int64(si.Length),
			TopFirstIdx:    topFirst,
			BottomFirstIdx: bottomFirst,
			NumTop:         si.NumTop,
			NumBottom:      si.NumBottom,
		}
		slot, err := seqArr.Slot(int64(i))
		if err != nil {
			return err
		}
		record.PutSequence(slot, g.nameCapacity, record.Sequence{
			StartPosition:  s.Start,
			Length:         uint64(s.Length),
			NumTop:         s.NumTop,
			NumBottom:      s.NumBottom,
			TopFirstIdx:    s.TopFirstIdx,
			BottomFirstIdx: s.BottomFirstIdx,
			Name:           s.Name,
		})
		if err := seqArr.MarkDirty(int64(i)); err != nil {
			return err
		}

		g.seqIndex.Add(&seqindex.Sequence{Name: s.Name, Start: s.Start, Length: s.Length})
		g.extra[s.Name] = s
		g.order = append(g.order, s.Name)

		start += s.Length
		topFirst += int64(si.NumTop)
		bottomFirst += int64(si.NumBottom)

		topUpdates = append(topUpdates, UpdateInfo{Name: si.Name, NumSegments: si.NumTop})
		bottomUpdates = append(bottomUpdates, UpdateInfo{Name: si.Name, NumSegments: si.NumBottom})
	}
	g.totalLength = start

	if err := seqArr.Write(); err != nil {
		return err
	}
	if err := g.setGenomeTopDimensions(topUpdates); err != nil {
		return err
	}
	if err := g.setGenomeBottomDimensions(bottomUpdates); err != nil {
		return err
	}

	g.resetBranchCaches()
	vlog.VI(1).Infof("genome: %s: setDimensions L=%d K=%d seqs=%d", g.name, g.totalLength, g.numChildren, len(seqInfos))
	return nil
}

// UpdateTopDimensions rewrites top-segment counts per existing sequence.
// Every name in updates must already be a sequence of this genome.
func (g *Genome) UpdateTopDimensions(updates []UpdateInfo) error {
	byName, err := g.checkUpdateNames(updates)
	if err != nil {
		return err
	}
	all := make([]UpdateInfo, 0, len(g.order))
	var running int64
	for i, name := range g.order {
		s := g.extra[name]
		numTop := s.NumTop
		if n, ok := byName[name]; ok {
			numTop = n
		}
		s.TopFirstIdx = running
		s.NumTop = numTop
		running += int64(numTop)

		if err := g.rewriteSequenceRecord(i, s); err != nil {
			return err
		}
		all = append(all, UpdateInfo{Name: name, NumSegments: numTop})
	}
	if err := g.sequenceArray.Write(); err != nil {
		return err
	}
	if err := g.setGenomeTopDimensions(all); err != nil {
		return err
	}
	g.resetBranchCaches()
	return nil
}

// UpdateBottomDimensions is the bottom-array symmetric form of
// UpdateTopDimensions.
func (g *Genome) UpdateBottomDimensions(updates []UpdateInfo) error {
	byName, err := g.checkUpdateNames(updates)
	if err != nil {
		return err
	}
	all := make([]UpdateInfo, 0, len(g.order))
	var running int64
	for i, name := range g.order {
		s := g.extra[name]
		numBottom := s.NumBottom
		if n, ok := byName[name]; ok {
			numBottom = n
		}
		s.BottomFirstIdx = running
		s.NumBottom = numBottom
		running += int64(numBottom)

		if err := g.rewriteSequenceRecord(i, s); err != nil {
			return err
		}
		all = append(all, UpdateInfo{Name: name, NumSegments: numBottom})
	}
	if err := g.sequenceArray.Write(); err != nil {
		return err
	}
	if err := g.setGenomeBottomDimensions(all); err != nil {
		return err
	}
	g.resetBranchCaches()
	return nil
}

func (g *Genome) checkUpdateNames(updates []UpdateInfo) (map[string]uint64, error) {
	byName := make(map[string]uint64, len(updates))
	for _, u := range updates {
		if _, ok := g.extra[u.Name]; !ok {
			return nil, halerrors.E(halerrors.MissingName, "genome: ", g.name, ": no such sequence ", u.Name)
		}
		byName[u.Name] = u.NumSegments
	}
	return byName, nil
}

func (g *Genome) rewriteSequenceRecord(i int, s *Sequence) error {
	slot, err := g.sequenceArray.Slot(int64(i))
	if err != nil {
		return err
	}
	record.PutSequence(slot, g.nameCapacity, record.Sequence{
		StartPosition:  s.Start,
		Length:         uint64(s.Length),
		NumTop:         s.NumTop,
		NumBottom:      s.NumBottom,
		TopFirstIdx:    s.TopFirstIdx,
		BottomFirstIdx: s.BottomFirstIdx,
		Name:           s.Name,
	})
	return g.sequenceArray.MarkDirty(int64(i))
}

// setGenomeTopDimensions (re)allocates the top array to the total
// segment count plus one, and writes the sentinel record's genomeIdx = L.
func (g *Genome) setGenomeTopDimensions(updates []UpdateInfo) error {
	var total int64
	for _, u := range updates {
		total += int64(u.NumSegments)
	}
	if err := chunkstore.Unlink(g.backend, g.name, TopArrayName); err != nil {
		return err
	}
	arr, err := chunkstore.Create(g.backend, g.name, TopArrayName, record.TopSegmentWidth, total+1, g.props, g.buffered)
	if err != nil {
		return err
	}
	slot, err := arr.Slot(total)
	if err != nil {
		return err
	}
	record.PutTopSegment(slot, record.TopSegment{
		GenomeIdx:       g.totalLength,
		ParentIdx:       halpb.NullIndex,
		BottomParseIdx:  halpb.NullIndex,
		NextParalogyIdx: halpb.NullIndex,
	})
	if err := arr.MarkDirty(total); err != nil {
		return err
	}
	if err := arr.Write(); err != nil {
		return err
	}
	g.topArray = arr
	return nil
}

// setGenomeBottomDimensions is the bottom-array symmetric form.
func (g *Genome) setGenomeBottomDimensions(updates []UpdateInfo) error {
	var total int64
	for _, u := range updates {
		total += int64(u.NumSegments)
	}
	if err := chunkstore.Unlink(g.backend, g.name, BottomArrayName); err != nil {
		return err
	}
	width := record.BottomSegmentWidth(g.numChildren)
	props := g.props.ScaleBottom(g.numChildren)
	arr, err := chunkstore.Create(g.backend, g.name, BottomArrayName, width, total+1, props, g.buffered)
	if err != nil {
		return err
	}
	slot, err := arr.Slot(total)
	if err != nil {
		return err
	}
	record.PutBottomSegment(slot, g.numChildren, record.BottomSegment{
		GenomeIdx:   g.totalLength,
		TopParseIdx: halpb.NullIndex,
	})
	if err := arr.MarkDirty(total); err != nil {
		return err
	}
	if err := arr.Write(); err != nil {
		return err
	}
	g.bottomArray = arr
	return nil
}

// Validate cross-checks the invariants a genome store can verify without
// walking parse/paralogy links (those belong to the segment package):
// sequence lengths sum to L, segment starts are strictly increasing and
// cover [0, L), and the DNA array size agrees with L and the round-up
// flag. It is exposed for tests and for cmd/hal-dump's -check flag.
func (g *Genome) Validate() error {
	var total int64
	for _, name := range g.order {
		total += g.extra[name].Length
	}
	if total != g.totalLength {
		return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": sum of sequence lengths ", total, " != L ", g.totalLength)
	}
	if err := g.validateTopArray(); err != nil {
		return err
	}
	if err := g.validateBottomArray(); err != nil {
		return err
	}
	if g.dnaArray != nil {
		wantBytes, wantRoundUp := record.DNAArrayLen(uint64(g.totalLength))
		if int64(wantBytes) != g.dnaArray.Size() || wantRoundUp != g.roundUp {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": dna size/parity mismatch")
		}
	}
	return nil
}

func (g *Genome) validateTopArray() error {
	arr := g.topArray
	if arr == nil || arr.Size() == 0 {
		return nil
	}
	n := arr.Size() - 1
	var prevStart int64
	for i := int64(0); i <= n; i++ {
		slot, err := arr.Slot(i)
		if err != nil {
			return err
		}
		rec := record.GetTopSegment(slot)
		// n == 0 means the array holds only the sentinel, whose genomeIdx
		// is L, not 0: a genome with no top segments is a valid layout.
		if i == 0 && n > 0 && rec.GenomeIdx != 0 {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": top[0].start = ", rec.GenomeIdx, " != 0")
		}
		if i == n && rec.GenomeIdx != g.totalLength {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": top[N].start = ", rec.GenomeIdx, " != L ", g.totalLength)
		}
		if i > 0 && rec.GenomeIdx <= prevStart {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": top array starts not strictly increasing at ", i)
		}
		prevStart = rec.GenomeIdx
	}
	return nil
}

func (g *Genome) validateBottomArray() error {
	arr := g.bottomArray
	if arr == nil || arr.Size() == 0 {
		return nil
	}
	n := arr.Size() - 1
	var prevStart int64
	for i := int64(0); i <= n; i++ {
		slot, err := arr.Slot(i)
		if err != nil {
			return err
		}
		rec := record.GetBottomSegment(slot, g.numChildren)
		if i == 0 && n > 0 && rec.GenomeIdx != 0 {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": bottom[0].start = ", rec.GenomeIdx, " != 0")
		}
		if i == n && rec.GenomeIdx != g.totalLength {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": bottom[N].start = ", rec.GenomeIdx, " != L ", g.totalLength)
		}
		if i > 0 && rec.GenomeIdx <= prevStart {
			return halerrors.E(halerrors.CorruptFile, "genome: ", g.name, ": bottom array starts not strictly increasing at ", i)
		}
		prevStart = rec.GenomeIdx
	}
	return nil
}

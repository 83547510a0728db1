// Package dnaiter implements a cursor over a genome's 4-bit-packed base
// array with directional read/write and complement-on-reverse semantics.
package dnaiter

import (
	"github.com/grailbio/hal/genome"
	"github.com/grailbio/hal/halerrors"
	"github.com/grailbio/hal/record"
)

// Cursor is a mutable position in one genome's DNA array, with an
// orientation flag controlling complementation.
type Cursor struct {
	g        *genome.Genome
	pos      int64
	reversed bool
}

// New constructs a cursor at pos. Position L (the genome length) is
// accepted as the end sentinel: constructing a cursor there is valid, but
// Read/Write at exactly L fails since no base exists at that position.
func New(g *genome.Genome, pos int64, reversed bool) (*Cursor, error) {
	if pos < 0 || pos > g.Length() {
		return nil, halerrors.E(halerrors.OutOfRange, "dnaiter: position ", pos, " out of range [0,", g.Length(), "]")
	}
	return &Cursor{g: g, pos: pos, reversed: reversed}, nil
}

// Position returns the cursor's current genome position.
func (c *Cursor) Position() int64 { return c.pos }

// Reversed reports whether this cursor complements bases on read/write.
func (c *Cursor) Reversed() bool { return c.reversed }

// Read returns the base at the cursor's position, complemented if the
// cursor is reversed.
func (c *Cursor) Read() (record.Base, error) {
	if c.pos >= c.g.Length() {
		return 0, halerrors.E(halerrors.OutOfRange, "dnaiter: read at end-sentinel position ", c.pos)
	}
	b, err := ReadBase(c.g, c.pos)
	if err != nil {
		return 0, err
	}
	if c.reversed {
		b = record.ComplementBase(b)
	}
	return b, nil
}

// Write stores b (complemented first if the cursor is reversed) at the
// cursor's position.
func (c *Cursor) Write(b record.Base) error {
	if c.pos >= c.g.Length() {
		return halerrors.E(halerrors.OutOfRange, "dnaiter: write at end-sentinel position ", c.pos)
	}
	if c.reversed {
		b = record.ComplementBase(b)
	}
	return WriteBase(c.g, c.pos, b)
}

// Advance moves the cursor by k positions (possibly negative).
func (c *Cursor) Advance(k int64) error {
	next := c.pos + k
	if next < 0 || next > c.g.Length() {
		return halerrors.E(halerrors.OutOfRange, "dnaiter: advance to ", next, " out of range [0,", c.g.Length(), "]")
	}
	c.pos = next
	return nil
}

// ReadString reads n bases starting at the cursor's position. An
// unreversed cursor reads forward, [pos, pos+n). A reversed cursor reads
// backward, (pos-n, pos], complementing each base -- so the returned
// string is already the reverse complement of the forward bases it
// covers.
func (c *Cursor) ReadString(n int64) (string, error) {
	if n < 0 {
		return "", halerrors.E(halerrors.OutOfRange, "dnaiter: negative length ", n)
	}
	buf := make([]byte, n)
	if !c.reversed {
		if c.pos+n > c.g.Length() {
			return "", halerrors.E(halerrors.OutOfRange, "dnaiter: readString(", n, ") at ", c.pos, " overflows genome")
		}
		for i := int64(0); i < n; i++ {
			b, err := ReadBase(c.g, c.pos+i)
			if err != nil {
				return "", err
			}
			buf[i] = record.DecodeBase(b)
		}
		return string(buf), nil
	}
	if c.pos-n+1 < 0 {
		return "", halerrors.E(halerrors.OutOfRange, "dnaiter: readString(", n, ") at ", c.pos, " underflows genome")
	}
	for i := int64(0); i < n; i++ {
		b, err := ReadBase(c.g, c.pos-i)
		if err != nil {
			return "", err
		}
		buf[i] = record.DecodeBase(record.ComplementBase(b))
	}
	return string(buf), nil
}

// WriteString is the write-side symmetric form of ReadString: an
// unreversed cursor writes forward; a reversed cursor writes the
// complement of each input base walking backward from pos.
func (c *Cursor) WriteString(s string) error {
	n := int64(len(s))
	if !c.reversed {
		if c.pos+n > c.g.Length() {
			return halerrors.E(halerrors.OutOfRange, "dnaiter: writeString(len=", n, ") at ", c.pos, " overflows genome")
		}
		for i, ch := range []byte(s) {
			if err := WriteBase(c.g, c.pos+int64(i), record.EncodeBase(ch)); err != nil {
				return err
			}
		}
		return nil
	}
	if c.pos-n+1 < 0 {
		return halerrors.E(halerrors.OutOfRange, "dnaiter: writeString(len=", n, ") at ", c.pos, " underflows genome")
	}
	for i, ch := range []byte(s) {
		if err := WriteBase(c.g, c.pos-int64(i), record.ComplementBase(record.EncodeBase(ch))); err != nil {
			return err
		}
	}
	return nil
}

// SetSubString writes s over genome positions [start, start+length). The
// declared length must match len(s) exactly; a mismatch and a range
// overflow are reported as distinct errors.
func SetSubString(g *genome.Genome, s string, start, length int64) error {
	if int64(len(s)) != length {
		return halerrors.E(halerrors.OutOfRange, "dnaiter: setSubString: string length ", len(s), " differs from declared length ", length)
	}
	cur, err := New(g, start, false)
	if err != nil {
		return err
	}
	return cur.WriteString(s)
}

// GetSubString reads genome positions [start, start+length) as a string.
func GetSubString(g *genome.Genome, start, length int64) (string, error) {
	cur, err := New(g, start, false)
	if err != nil {
		return "", err
	}
	return cur.ReadString(length)
}

// ReadBase reads the base at absolute genome position pos from g's DNA
// array. Exported so the segment package can materialize segment strings
// without duplicating the nibble-indexing arithmetic.
func ReadBase(g *genome.Genome, pos int64) (record.Base, error) {
	arr := g.DNAArray()
	if arr == nil {
		return 0, halerrors.E(halerrors.UnsupportedOperation, "dnaiter: genome ", g.Name(), " has no DNA array")
	}
	slot, err := arr.Slot(pos / 2)
	if err != nil {
		return 0, err
	}
	return record.GetBase(slot, pos%2), nil
}

// WriteBase writes the base at absolute genome position pos into g's DNA
// array.
func WriteBase(g *genome.Genome, pos int64, b record.Base) error {
	arr := g.DNAArray()
	if arr == nil {
		return halerrors.E(halerrors.UnsupportedOperation, "dnaiter: genome ", g.Name(), " has no DNA array")
	}
	slot, err := arr.Slot(pos / 2)
	if err != nil {
		return err
	}
	record.PutBase(slot, pos%2, b)
	return arr.MarkDirty(pos / 2)
}

// hal-dump opens a single genome group from a hal store directory and
// prints its sequences, segment counts, and (optionally) a validation
// report. It is a thin diagnostic wrapper over the genome package.
package main

import (
	"flag"
	"fmt"
	"os"

	"v.io/x/lib/vlog"

	"github.com/grailbio/hal/chunkstore"
	"github.com/grailbio/hal/chunkstore/fileback"
	"github.com/grailbio/hal/genome"
)

var (
	storeDir  = flag.String("store", "", "Path to a hal store directory (required)")
	genomeArg = flag.String("genome", "", "Genome name to dump (required)")
	check     = flag.Bool("check", false, "Run genome.Validate() and report the result")
	dumpSeqs  = flag.Bool("sequences", true, "List sequences and their segment ranges")
)

// standaloneRegistry treats every genome as parentless and childless: it
// is enough to open and inspect one genome at a time, which is all
// hal-dump does. A full alignment browser would instead implement
// Registry against the store's own tree metadata.
type standaloneRegistry struct{}

func (standaloneRegistry) ParentName(string) (string, bool)         { return "", false }
func (standaloneRegistry) ChildNames(string) []string               { return nil }
func (standaloneRegistry) Open(name string) (*genome.Genome, error) { return nil, nil }

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s -store DIR -genome NAME [-check] [-sequences=false]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	if *storeDir == "" || *genomeArg == "" {
		usage()
		os.Exit(2)
	}

	backend, err := fileback.Open(*storeDir)
	if err != nil {
		vlog.Errorf("hal-dump: %v", err)
		os.Exit(1)
	}

	g, err := genome.Open(backend, standaloneRegistry{}, *genomeArg, chunkstore.DefaultCreateProps(), 4)
	if err != nil {
		vlog.Errorf("hal-dump: opening %s: %v", *genomeArg, err)
		os.Exit(1)
	}

	fmt.Printf("genome %s: L=%d K=%d dna=%v sequences=%d topSegments=%d bottomSegments=%d\n",
		g.Name(), g.Length(), g.NumChildren(), g.ContainsDNA(), g.NumSequences(), g.NumTopSegments(), g.NumBottomSegments())

	if *dumpSeqs {
		g.Sequences(func(s *genome.Sequence) {
			fmt.Printf("  %-20s start=%-10d length=%-10d topFirst=%-6d numTop=%-6d bottomFirst=%-6d numBottom=%-6d\n",
				s.Name, s.Start, s.Length, s.TopFirstIdx, s.NumTop, s.BottomFirstIdx, s.NumBottom)
		})
	}

	if *check {
		if err := g.Validate(); err != nil {
			fmt.Printf("validate: FAIL: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("validate: OK")
	}
}

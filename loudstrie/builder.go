package loudstrie

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"owtrie/bitvec"
	"owtrie/errutil"
)

// ErrCapacity reports a structure too large for the 32-bit wire format.
var ErrCapacity = errors.New("loudstrie: structure exceeds 32-bit format capacity")

var debug = false

func init() {
	debug = os.Getenv("DEBUG") == "1"
}

// Config controls tail compression. The zero value of MinTailLength and
// MaxTailLength selects the defaults; TailDepth is taken literally, so a
// zero-value Config disables compression entirely.
type Config struct {
	// MinTailLength is the shortest chain worth collapsing (default 2).
	MinTailLength int
	// MaxTailLength caps a collapsed chain (default 255), keeping the
	// label encoding bounded.
	MaxTailLength int
	// TailDepth is how many nested tail tries may stack: 1 encodes tails
	// as one nested trie, deeper values recurse inside it, 0 disables
	// compression.
	TailDepth int
}

// DefaultConfig returns the standard single-level tail compression setup.
func DefaultConfig() Config {
	return Config{MinTailLength: 2, MaxTailLength: 255, TailDepth: 1}
}

func (c Config) withDefaults() Config {
	if c.MinTailLength <= 0 {
		c.MinTailLength = 2
	}
	if c.MaxTailLength <= 0 {
		c.MaxTailLength = 255
	}
	if c.TailDepth < 0 {
		c.TailDepth = 0
	}
	return c
}

// BuildStats reports what one Build produced. Advisory only.
type BuildStats struct {
	WordCount   int
	NodeCount   int // encoded nodes, super-root excluded
	EdgeCount   int
	TailCount   int // distinct tail strings
	ElidedNodes int // construction-tree nodes removed by chain collapsing
	Duration    time.Duration
}

// buildNode is the transient construction-time trie node. The whole tree
// is owned by Build and discarded once encoding completes.
type buildNode struct {
	children map[rune]*buildNode
	terminal bool
}

func newBuildNode() *buildNode {
	return &buildNode{children: make(map[rune]*buildNode)}
}

func (n *buildNode) insert(word string) (created int) {
	cur := n
	for _, r := range word {
		next, ok := cur.children[r]
		if !ok {
			next = newBuildNode()
			cur.children[r] = next
			created++
		}
		cur = next
	}
	cur.terminal = true
	return created
}

// edge is one outgoing edge of the compressed tree: either a literal
// code point to the immediate child, or a collapsed chain whose full
// character sequence is tail and whose target is the chain's end node.
type edge struct {
	first rune
	tail  string // empty for a literal edge
	child *buildNode
}

// compressedEdges lists n's outgoing edges in ascending code-point order,
// collapsing every single-child non-terminal chain of at least
// cfg.MinTailLength characters (and at most cfg.MaxTailLength). The
// traversal that consumes these edges must resume from edge.child — the
// chain's end node — since intermediate nodes are elided entirely.
func compressedEdges(n *buildNode, cfg Config, compress bool) []edge {
	rs := maps.Keys(n.children)
	slices.Sort(rs)

	edges := make([]edge, 0, len(rs))
	for _, r := range rs {
		child := n.children[r]
		if !compress {
			edges = append(edges, edge{first: r, child: child})
			continue
		}
		chain := []rune{r}
		cur := child
		for len(cur.children) == 1 && !cur.terminal && len(chain) < cfg.MaxTailLength {
			var next *buildNode
			var nr rune
			for k, v := range cur.children {
				nr, next = k, v
			}
			chain = append(chain, nr)
			cur = next
		}
		if len(chain) >= cfg.MinTailLength {
			edges = append(edges, edge{first: r, tail: string(chain), child: cur})
		} else {
			edges = append(edges, edge{first: r, child: child})
		}
	}
	return edges
}

// Build constructs a frozen trie over words. The input need not be sorted
// or unique; it is normalized first so that ids are reproducible. The
// construction tree lives only for the duration of this call.
func Build(words []string, cfg Config) (*Trie, BuildStats, error) {
	start := time.Now()
	cfg = cfg.withDefaults()

	sorted := slices.Clone(words)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	root := newBuildNode()
	rawNodes := 1
	for _, w := range sorted {
		rawNodes += root.insert(w)
	}

	compress := cfg.TailDepth > 0

	// Pass 1: walk the compressed shape once to size the encoded arrays
	// and gather the distinct tail strings.
	numNodes := 1 // root
	numEdges := 0
	tailSet := make(map[string]struct{})
	queue := []*buildNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, e := range compressedEdges(n, cfg, compress) {
			numNodes++
			numEdges++
			if e.tail != "" {
				tailSet[e.tail] = struct{}{}
			}
			queue = append(queue, e.child)
		}
	}

	if uint64(numNodes) > math.MaxUint32 || uint64(len(sorted)) > math.MaxUint32 {
		return nil, BuildStats{}, fmt.Errorf("%w: %d nodes, %d words",
			ErrCapacity, numNodes, len(sorted))
	}

	// The de-duplicated tail set, sorted so the nested trie's sequential
	// ids are stable across builds, encoded as a nested instance of the
	// same structure.
	var tails *Trie
	hasLinks := len(tailSet) > 0
	if hasLinks {
		tailList := maps.Keys(tailSet)
		slices.Sort(tailList)
		nested, _, err := Build(tailList, Config{
			MinTailLength: cfg.MinTailLength,
			MaxTailLength: cfg.MaxTailLength,
			TailDepth:     cfg.TailDepth - 1,
		})
		if err != nil {
			return nil, BuildStats{}, err
		}
		tails = nested
	}

	// Pass 2: breadth-first succinct encoding. Super-root first ("there
	// is exactly one real root"), then one unary run + terminator per
	// node, terminal marks by node id, and one label per edge.
	tree := bitvec.New(2*numNodes + 1)
	terminal := bitvec.New(numNodes + 1)
	var link *bitvec.Vector
	if hasLinks {
		link = bitvec.New(numEdges)
	}
	labels := make([]uint32, 0, numEdges)

	errutil.FatalIf(tree.Set(0)) // super-root's single child bit
	cur := 2                     // past the super-root's terminator

	queue = queue[:0]
	queue = append(queue, root)
	nodeID := 0
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		nodeID++

		if n.terminal {
			errutil.FatalIf(terminal.Set(nodeID))
		}
		for _, e := range compressedEdges(n, cfg, compress) {
			errutil.FatalIf(tree.Set(cur))
			cur++
			if e.tail != "" {
				id := tails.WordID(e.tail)
				errutil.Invariant(id >= 0,
					"tail %q missing from the trie built over the tail set", e.tail)
				errutil.FatalIf(link.Set(len(labels)))
				labels = append(labels, uint32(id))
			} else {
				labels = append(labels, uint32(e.first))
			}
			queue = append(queue, e.child)
		}
		cur++ // node terminator stays clear
	}
	errutil.Invariant(cur == tree.Len(), "tree cursor %d != length %d", cur, tree.Len())
	errutil.Invariant(nodeID == numNodes, "visited %d nodes, sized %d", nodeID, numNodes)
	errutil.Invariant(len(labels) == numEdges, "emitted %d labels, sized %d", len(labels), numEdges)

	tree.Build()
	terminal.Build()
	if link != nil {
		link.Build()
	}
	errutil.Invariant(terminal.Popcount() == len(sorted),
		"terminal popcount %d != word count %d", terminal.Popcount(), len(sorted))

	t := &Trie{
		tree:     tree,
		terminal: terminal,
		link:     link,
		labels:   labels,
		tails:    tails,
		hasLinks: hasLinks,
		numWords: len(sorted),
		numNodes: numNodes,
	}
	stats := BuildStats{
		WordCount:   len(sorted),
		NodeCount:   numNodes,
		EdgeCount:   numEdges,
		TailCount:   len(tailSet),
		ElidedNodes: rawNodes - numNodes,
		Duration:    time.Since(start),
	}
	if debug {
		log.Printf("loudstrie: built %d words, %d nodes, %d tails (%d elided) in %v",
			stats.WordCount, stats.NodeCount, stats.TailCount, stats.ElidedNodes, stats.Duration)
	}
	return t, stats, nil
}

// Package loudstrie implements an immutable succinct string-set trie:
// membership, stable per-string ids, and prefix enumeration answered by
// rank/select arithmetic over LOUDS-encoded bit vectors. Single-child
// non-terminal chains are collapsed into shared tails that are themselves
// stored in a nested instance of the same structure.
package loudstrie

import (
	"fmt"
	"strings"

	"owtrie/bitvec"
	"owtrie/errutil"
)

// Node numbering follows the LOUDS convention: node 0 is a synthetic
// super-root whose single child is the real root (node 1); breadth-first
// ids continue from 2. The super-root edge carries no label, so the edge
// into node c (c >= 2) owns label index c-2.
const rootNode = 1

// Trie is the frozen artifact. It is immutable after construction and
// safe for concurrent readers without locking.
type Trie struct {
	tree     *bitvec.Vector // LOUDS shape, length 2*numNodes+1
	terminal *bitvec.Vector // per-node end-of-word marks, length numNodes+1
	link     *bitvec.Vector // per-edge tail flags, nil when hasLinks is false
	labels   []uint32       // per-edge code point, or tail id when flagged
	tails    *Trie          // nested trie over tail strings, nil when absent

	// hasLinks is decided once at build time: it selects binary search
	// (clear) or linear edge scan (set) in findChild.
	hasLinks bool
	numWords int
	numNodes int // real nodes including the root, excluding the super-root
}

// WordCount returns the number of stored strings.
func (t *Trie) WordCount() int { return t.numWords }

// NodeCount returns the number of trie nodes (super-root excluded).
func (t *Trie) NodeCount() int { return t.numNodes }

// --- LOUDS node-to-edge arithmetic ---

// firstEdgePos returns the tree-vector position of node's first edge bit.
func (t *Trie) firstEdgePos(node int) int {
	if node == 0 {
		return 0
	}
	return t.tree.Select0(node) + 1
}

// childCount returns node's outdegree.
func (t *Trie) childCount(node int) int {
	return t.tree.Select0(node+1) - t.firstEdgePos(node)
}

// childAtPos maps an edge bit position to the child's node id.
func (t *Trie) childAtPos(pos int) int {
	return t.tree.Rank1(pos)
}

// parent returns the id of node's parent.
func (t *Trie) parent(node int) int {
	return t.tree.Rank0(t.tree.Select1(node))
}

// edgeString resolves the label at idx to the character sequence the edge
// consumes: a single code point, or the full tail when the edge is flagged.
func (t *Trie) edgeString(idx int) string {
	if t.hasLinks && t.link.Get(idx) {
		w, ok := t.tails.GetWord(int(t.labels[idx]))
		errutil.Invariant(ok, "tail id %d missing from nested trie", t.labels[idx])
		return w
	}
	return string(rune(t.labels[idx]))
}

// findChild locates node's outgoing edge whose first code point is r.
// Returns the child node id and the edge's full character sequence, or
// (-1, "") when no such edge exists.
func (t *Trie) findChild(node int, r rune) (int, string) {
	fe := t.firstEdgePos(node)
	end := t.tree.Select0(node + 1)
	cc := end - fe
	if cc == 0 {
		return -1, ""
	}
	firstChild := t.tree.Rank1(fe)
	base := firstChild - 2 // label index of the first edge

	if !t.hasLinks {
		lo, hi := 0, cc-1
		for lo <= hi {
			mid := (lo + hi) / 2
			l := rune(t.labels[base+mid])
			switch {
			case l == r:
				return firstChild + mid, string(l)
			case l < r:
				lo = mid + 1
			default:
				hi = mid - 1
			}
		}
		return -1, ""
	}

	// Link flags present: tail edges do not hold a comparable code point,
	// so scan linearly and compare against each edge's first code point.
	for k := 0; k < cc; k++ {
		s := t.edgeString(base + k)
		first := firstRune(s)
		if first == r {
			return firstChild + k, s
		}
		if first > r {
			break // children are sorted by first code point
		}
	}
	return -1, ""
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// walk descends from the root consuming s. It returns the node reached
// and the unconsumed remainder of the final edge when s ends inside a
// collapsed tail, or node -1 on any mismatch.
func (t *Trie) walk(s string) (node int, pending string) {
	node = rootNode
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		child, edge := t.findChild(node, runes[i])
		if child < 0 {
			return -1, ""
		}
		er := []rune(edge)
		k := 0
		for k < len(er) && i+k < len(runes) {
			if er[k] != runes[i+k] {
				return -1, ""
			}
			k++
		}
		i += k
		node = child
		if k < len(er) {
			return node, string(er[k:])
		}
	}
	return node, ""
}

// Has reports whether word is stored. Absence is a normal false return.
func (t *Trie) Has(word string) bool {
	node, pending := t.walk(word)
	return node >= 0 && pending == "" && t.terminal.Get(node)
}

// WordID returns word's dense zero-based id, or -1 when absent.
func (t *Trie) WordID(word string) int {
	node, pending := t.walk(word)
	if node < 0 || pending != "" || !t.terminal.Get(node) {
		return -1
	}
	return t.terminal.Rank1(node) - 1
}

// GetWord reverses WordID. ok is false when id is outside [0, WordCount).
func (t *Trie) GetWord(id int) (word string, ok bool) {
	if id < 0 || id >= t.numWords {
		return "", false
	}
	node := t.terminal.Select1(id + 1)
	errutil.BugOn(node < rootNode, "terminal select for id %d gave node %d", id, node)

	// Walk up to the root accumulating edge characters back to front.
	var rev []rune
	for node > rootNode {
		er := []rune(t.edgeString(node - 2))
		for k := len(er) - 1; k >= 0; k-- {
			rev = append(rev, er[k])
		}
		node = t.parent(node)
	}
	for l, r := 0, len(rev)-1; l < r; l, r = l+1, r-1 {
		rev[l], rev[r] = rev[r], rev[l]
	}
	return string(rev), true
}

// KeysWithPrefix returns the stored strings starting with prefix in
// ascending order. A negative limit means no limit. The result is empty
// when the prefix is absent.
func (t *Trie) KeysWithPrefix(prefix string, limit int) []string {
	if limit == 0 {
		return nil
	}
	node, pending := t.walk(prefix)
	if node < 0 {
		return nil
	}
	var out []string
	t.collect(node, prefix+pending, limit, &out)
	return out
}

// collect appends the words in node's subtree to out in sorted order,
// stopping once limit is reached. acc is the full path string to node.
func (t *Trie) collect(node int, acc string, limit int, out *[]string) bool {
	if t.terminal.Get(node) {
		*out = append(*out, acc)
		if limit > 0 && len(*out) >= limit {
			return true
		}
	}
	fe := t.firstEdgePos(node)
	cc := t.childCount(node)
	firstChild := t.tree.Rank1(fe)
	for k := 0; k < cc; k++ {
		edge := t.edgeString(firstChild - 2 + k)
		if t.collect(firstChild+k, acc+edge, limit, out) {
			return true
		}
	}
	return false
}

// PrefixMatch is one result of CommonPrefixes: a stored string that
// prefixes the scanned text, with its id.
type PrefixMatch struct {
	Word string
	ID   int
}

// CommonPrefixes emits every stored string that is a prefix of text, in
// increasing length order, stopping at the first mismatch.
func (t *Trie) CommonPrefixes(text string) []PrefixMatch {
	var out []PrefixMatch
	node := rootNode
	if t.terminal.Get(node) {
		out = append(out, PrefixMatch{"", t.terminal.Rank1(node) - 1})
	}
	runes := []rune(text)
	i := 0
	for i < len(runes) {
		child, edge := t.findChild(node, runes[i])
		if child < 0 {
			break
		}
		er := []rune(edge)
		if len(er) > len(runes)-i {
			break // text ends inside a collapsed tail
		}
		ok := true
		for k := 0; k < len(er); k++ {
			if er[k] != runes[i+k] {
				ok = false
				break
			}
		}
		if !ok {
			break
		}
		i += len(er)
		node = child
		if t.terminal.Get(node) {
			out = append(out, PrefixMatch{string(runes[:i]), t.terminal.Rank1(node) - 1})
		}
	}
	return out
}

func (t *Trie) String() string {
	var sb strings.Builder
	sb.WriteString("loudstrie.Trie:\n")
	sb.WriteString(fmt.Sprintf("| words: %d\n", t.numWords))
	sb.WriteString(fmt.Sprintf("| nodes: %d\n", t.numNodes))
	sb.WriteString(fmt.Sprintf("| hasLinks: %v\n", t.hasLinks))
	if t.tails != nil {
		sb.WriteString(fmt.Sprintf("| tails: %d\n", t.tails.WordCount()))
	}
	return sb.String()
}

package loudstrie

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unsafe"

	"github.com/dustin/go-humanize"

	"owtrie/utils"
)

// Diagnostics are pure reporting over the frozen arrays. They are
// advisory for tuning and regression tracking and never affect queries.

// TrieStats is the headline shape of one trie level.
type TrieStats struct {
	WordCount int
	NodeCount int
	EdgeCount int
	TailCount int // words in the nested tail trie, 0 when absent
	HasLinks  bool
}

// Stats returns the headline counts.
func (t *Trie) Stats() TrieStats {
	s := TrieStats{
		WordCount: t.numWords,
		NodeCount: t.numNodes,
		EdgeCount: len(t.labels),
		HasLinks:  t.hasLinks,
	}
	if t.tails != nil {
		s.TailCount = t.tails.numWords
	}
	return s
}

// SectionStats is the byte budget of one encoded section: the raw packed
// bits against the rank-directory overhead carried alongside them.
type SectionStats struct {
	Name           string
	RawBytes       int
	DirectoryBytes int
	OverheadPct    float64
}

// DetailedStats breaks a trie level down per section, with the nested
// tail trie reported recursively.
type DetailedStats struct {
	TrieStats
	Sections        []SectionStats
	LabelBytes      int
	AvgBitsPerLabel float64
	Nested          *DetailedStats
}

// Detailed computes the per-section byte budgets and the average varint
// cost per label.
func (t *Trie) Detailed() DetailedStats {
	d := DetailedStats{TrieStats: t.Stats()}

	section := func(name string, v interface {
		RawBytes() int
		DirectoryBytes() int
	}) SectionStats {
		raw, dir := v.RawBytes(), v.DirectoryBytes()
		pct := 0.0
		if raw > 0 {
			pct = 100 * float64(dir) / float64(raw)
		}
		return SectionStats{Name: name, RawBytes: raw, DirectoryBytes: dir, OverheadPct: pct}
	}

	d.Sections = append(d.Sections, section("tree", t.tree), section("terminal", t.terminal))
	if t.link != nil {
		d.Sections = append(d.Sections, section("link", t.link))
	}

	var buf []byte
	for _, l := range t.labels {
		buf = binary.AppendUvarint(buf, uint64(l))
	}
	d.LabelBytes = len(buf)
	if len(t.labels) > 0 {
		d.AvgBitsPerLabel = 8 * float64(len(buf)) / float64(len(t.labels))
	}

	if t.tails != nil {
		nested := t.tails.Detailed()
		d.Nested = &nested
	}
	return d
}

func (d DetailedStats) String() string {
	var sb strings.Builder
	d.writeIndented(&sb, "")
	return sb.String()
}

func (d DetailedStats) writeIndented(sb *strings.Builder, prefix string) {
	fmt.Fprintf(sb, "%swords=%s nodes=%s edges=%s tails=%d links=%v\n",
		prefix,
		humanize.Comma(int64(d.WordCount)),
		humanize.Comma(int64(d.NodeCount)),
		humanize.Comma(int64(d.EdgeCount)),
		d.TailCount, d.HasLinks)
	for _, s := range d.Sections {
		fmt.Fprintf(sb, "%s| %-8s raw=%s directory=%s (%.1f%% overhead)\n",
			prefix, s.Name,
			humanize.IBytes(uint64(s.RawBytes)),
			humanize.IBytes(uint64(s.DirectoryBytes)),
			s.OverheadPct)
	}
	fmt.Fprintf(sb, "%s| labels   %s, %.2f bits/label\n",
		prefix, humanize.IBytes(uint64(d.LabelBytes)), d.AvgBitsPerLabel)
	if d.Nested != nil {
		fmt.Fprintf(sb, "%s| tail trie:\n", prefix)
		d.Nested.writeIndented(sb, prefix+"|   ")
	}
}

// MemoryStats gives the three memory figures for one stored payload.
type MemoryStats struct {
	WireBytes     int // on-the-wire, possibly compressed
	PayloadBytes  int // decompressed serialized size
	ResidentBytes int // estimated in-memory footprint, nested included
}

// Memory reports the wire, decompressed and resident sizes. wireBytes is
// the length of the serialized form actually stored (pass the compressed
// length for a version 3 payload).
func (t *Trie) Memory(wireBytes int) MemoryStats {
	body, _ := t.serializeBody()
	return MemoryStats{
		WireBytes:     wireBytes,
		PayloadBytes:  headerSize + len(body),
		ResidentBytes: t.ByteSize(),
	}
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("wire=%s decompressed=%s resident=%s",
		humanize.IBytes(uint64(m.WireBytes)),
		humanize.IBytes(uint64(m.PayloadBytes)),
		humanize.IBytes(uint64(m.ResidentBytes)))
}

// ByteSize returns the resident size estimate in bytes, nested trie
// included.
func (t *Trie) ByteSize() int {
	if t == nil {
		return 0
	}
	size := int(unsafe.Sizeof(*t))
	size += t.tree.ByteSize()
	size += t.terminal.ByteSize()
	if t.link != nil {
		size += t.link.ByteSize()
	}
	size += len(t.labels) * 4
	size += t.tails.ByteSize()
	return size
}

// MemDetailed returns a detailed memory usage report for the trie.
func (t *Trie) MemDetailed() utils.MemReport {
	if t == nil {
		return utils.MemReport{Name: "loudstrie"}
	}
	children := []utils.MemReport{
		{Name: "header", TotalBytes: int(unsafe.Sizeof(*t))},
		t.tree.MemDetailed("tree"),
		t.terminal.MemDetailed("terminal"),
	}
	if t.link != nil {
		children = append(children, t.link.MemDetailed("link"))
	}
	children = append(children, utils.MemReport{Name: "labels", TotalBytes: len(t.labels) * 4})
	if t.tails != nil {
		nested := t.tails.MemDetailed()
		nested.Name = "tail_trie"
		children = append(children, nested)
	}
	return utils.MemReport{
		Name:       "loudstrie",
		TotalBytes: utils.Sum(children),
		Children:   children,
	}
}

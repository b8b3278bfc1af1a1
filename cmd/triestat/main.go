// triestat builds a succinct trie from a word-list file (one word per
// line), prints the per-section statistics, and optionally writes the
// serialized payload.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"

	"owtrie/loudstrie"
)

var gamePattern = regexp.MustCompile(`^[a-z]+$`)

func main() {
	var (
		inPath   = flag.String("in", "", "Input word list, one word per line")
		outPath  = flag.String("out", "", "Optional output path for the serialized trie")
		minTail  = flag.Int("min-tail", 2, "Minimum chain length worth collapsing into a tail")
		maxTail  = flag.Int("max-tail", 255, "Maximum collapsed chain length")
		depth    = flag.Int("depth", 1, "Tail trie recursion depth; 0 disables compression")
		compress = flag.Bool("compress", false, "Whole-payload zstd compression for the output file")
		game     = flag.Bool("game", false, "Keep only pure a-z words")
		memory   = flag.Bool("mem", false, "Print the detailed memory report")
	)
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "triestat: -in is required")
		flag.Usage()
		os.Exit(2)
	}

	words, filtered, err := loadWords(*inPath, *game)
	if err != nil {
		fmt.Fprintf(os.Stderr, "triestat: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %s words", humanize.Comma(int64(len(words))))
	if filtered > 0 {
		fmt.Printf(" (%s filtered out)", humanize.Comma(int64(filtered)))
	}
	fmt.Println()

	cfg := loudstrie.Config{
		MinTailLength: *minTail,
		MaxTailLength: *maxTail,
		TailDepth:     *depth,
	}
	trie, stats, err := loudstrie.Build(words, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "triestat: build: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("built in %s: %s words, %s nodes, %s tails, %s elided nodes\n",
		stats.Duration.Round(time.Millisecond),
		humanize.Comma(int64(stats.WordCount)),
		humanize.Comma(int64(stats.NodeCount)),
		humanize.Comma(int64(stats.TailCount)),
		humanize.Comma(int64(stats.ElidedNodes)))

	fmt.Print(trie.Detailed())

	payload, err := serialize(trie, *compress)
	if err != nil {
		fmt.Fprintf(os.Stderr, "triestat: serialize: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(trie.Memory(len(payload)))

	if *memory {
		fmt.Print(trie.MemDetailed())
	}

	if *outPath != "" {
		if err := os.WriteFile(*outPath, payload, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "triestat: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s (%s)\n", *outPath, humanize.IBytes(uint64(len(payload))))
	}
}

func serialize(trie *loudstrie.Trie, compress bool) ([]byte, error) {
	if !compress {
		return trie.Serialize()
	}
	z, err := loudstrie.NewZstdCompressor()
	if err != nil {
		return nil, err
	}
	return trie.SerializeCompressed(z)
}

func loadWords(path string, game bool) (words []string, filtered int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		w := sc.Text()
		if w == "" {
			continue
		}
		if game && !gamePattern.MatchString(w) {
			filtered++
			continue
		}
		words = append(words, w)
	}
	return words, filtered, sc.Err()
}

// Benchmark comparison: frozen LOUDS trie vs an immutable radix tree,
// a minimal perfect hash over the same key set, the reference succinct
// trie, and the stdlib map.
package loudstrie

import (
	"fmt"
	"testing"

	boomphf "github.com/dgryski/go-boomphf"
	iradix "github.com/hashicorp/go-immutable-radix"
	reftrie "github.com/siongui/go-succinct-data-structure-trie/reference"
	"github.com/zeebo/xxh3"
)

func setupTrie(b *testing.B, n int) (*Trie, []string) {
	b.Helper()
	b.StopTimer()
	words := generateWords(n, 42)
	trie, _, err := Build(words, DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}
	b.StartTimer()
	return trie, words
}

func setupIradix(b *testing.B, n int) (*iradix.Tree, []string) {
	b.Helper()
	b.StopTimer()
	words := generateWords(n, 42)
	r := iradix.New()
	for _, w := range words {
		r, _, _ = r.Insert([]byte(w), true)
	}
	b.StartTimer()
	return r, words
}

func BenchmarkHas_10k(b *testing.B) {
	trie, words := setupTrie(b, 10_000)
	for i := 0; i < b.N; i++ {
		trie.Has(words[i%len(words)])
	}
}

func Benchmark_iradix_Get_10k(b *testing.B) {
	r, words := setupIradix(b, 10_000)
	for i := 0; i < b.N; i++ {
		r.Get([]byte(words[i%len(words)]))
	}
}

func Benchmark_StdMap_Get_10k(b *testing.B) {
	b.StopTimer()
	words := generateWords(10_000, 42)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	b.StartTimer()
	var ok bool
	for i := 0; i < b.N; i++ {
		_, ok = m[words[i%len(words)]]
		_ = ok
	}
}

// WordID against a minimal perfect hash built over xxh3 key hashes. The
// MPH answers are not stable ids, but the lookup cost is the interesting
// baseline for id assignment.
func BenchmarkWordID_10k(b *testing.B) {
	trie, words := setupTrie(b, 10_000)
	for i := 0; i < b.N; i++ {
		trie.WordID(words[i%len(words)])
	}
}

func Benchmark_boomphf_Query_10k(b *testing.B) {
	b.StopTimer()
	words := generateWords(10_000, 42)
	hashes := make([]uint64, len(words))
	for i, w := range words {
		hashes[i] = xxh3.HashString(w)
	}
	h := boomphf.New(2.0, hashes)
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		h.Query(hashes[i%len(hashes)])
	}
}

func BenchmarkBuild_Sizes(b *testing.B) {
	for _, n := range []int{1000, 10_000, 50_000} {
		b.Run(fmt.Sprintf("Words=%d", n), func(b *testing.B) {
			words := generateWords(n, 42)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				trie, _, err := Build(words, DefaultConfig())
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(trie.ByteSize())*8/float64(n), "bits/key_in_mem")
			}
		})
	}
}

func Benchmark_siongui_Insert_10k(b *testing.B) {
	words := generateWords(10_000, 42)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		st := &reftrie.Trie{}
		st.Init()
		for _, w := range words {
			st.Insert(w)
		}
	}
}

func BenchmarkInsertAndEncode_10k(b *testing.B) {
	words := generateWords(10_000, 42)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := Build(words, DefaultConfig()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkKeysWithPrefix_10k(b *testing.B) {
	trie, _ := setupTrie(b, 10_000)
	for i := 0; i < b.N; i++ {
		trie.KeysWithPrefix("re", 50)
	}
}

func BenchmarkGetWord_10k(b *testing.B) {
	trie, _ := setupTrie(b, 10_000)
	n := trie.WordCount()
	for i := 0; i < b.N; i++ {
		trie.GetWord(i % n)
	}
}

// Cross-validation of rank/select against hillbig/rsdic, plus
// comparative benchmarks.
package bitvec

import (
	"math/rand"
	"testing"

	"github.com/hillbig/rsdic"
	"github.com/stretchr/testify/require"
)

// rsdic.Rank counts positions [0, pos), ours counts [0, i], hence the +1.
func TestRankAgainstRSDic(t *testing.T) {
	sizes := []int{64, 1000, 50_000}
	for _, n := range sizes {
		r := rand.New(rand.NewSource(int64(n)))
		v := New(n)
		rs := rsdic.New()
		for i := 0; i < n; i++ {
			bit := r.Float32() < 0.3
			if bit {
				require.NoError(t, v.Set(i))
			}
			rs.PushBack(bit)
		}
		v.Build()

		require.Equal(t, int(rs.OneNum()), v.Popcount())
		for i := 0; i < n; i++ {
			require.Equal(t, rs.Bit(uint64(i)), v.Get(i))
			require.Equal(t, int(rs.Rank(uint64(i+1), true)), v.Rank1(i), "rank1(%d) n=%d", i, n)
			require.Equal(t, int(rs.Rank(uint64(i+1), false)), v.Rank0(i), "rank0(%d) n=%d", i, n)
		}
	}
}

func setupVector(b *testing.B, n int) *Vector {
	b.Helper()
	r := rand.New(rand.NewSource(42))
	v := New(n)
	for i := 0; i < n; i++ {
		if r.Float32() < 0.5 {
			_ = v.Set(i)
		}
	}
	v.Build()
	return v
}

func setupRSDic(b *testing.B, n int) *rsdic.RSDic {
	b.Helper()
	r := rand.New(rand.NewSource(42))
	rs := rsdic.New()
	for i := 0; i < n; i++ {
		rs.PushBack(r.Float32() < 0.5)
	}
	return rs
}

func BenchmarkRank_100K(b *testing.B) {
	v := setupVector(b, 100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Rank1(i % 100_000)
	}
}

func Benchmark_RSDic_Rank_100K(b *testing.B) {
	rs := setupRSDic(b, 100_000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rs.Rank(uint64(i%100_000), true)
	}
}

func BenchmarkSelect_100K(b *testing.B) {
	v := setupVector(b, 100_000)
	pc := v.Popcount()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Select1(i%pc + 1)
	}
}

func BenchmarkSelect0_100K(b *testing.B) {
	v := setupVector(b, 100_000)
	zc := v.Len() - v.Popcount()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.Select0(i%zc + 1)
	}
}

func BenchmarkBuild(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	n := 1_000_000
	v := New(n)
	for i := 0; i < n; i++ {
		if r.Float32() < 0.5 {
			_ = v.Set(i)
		}
	}
	b.ReportMetric(float64(v.DirectoryBytes())*8/float64(n), "directory_bits/bit")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v.frozen = false
		v.Build()
	}
}

package bitvec

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func buildRandom(t testing.TB, n int, density float64, seed int64) (*Vector, []bool) {
	r := rand.New(rand.NewSource(seed))
	v := New(n)
	ref := make([]bool, n)
	for i := 0; i < n; i++ {
		if r.Float64() < density {
			require.NoError(t, v.Set(i))
			ref[i] = true
		}
	}
	v.Build()
	return v, ref
}

func naiveRank1(ref []bool, i int) int {
	if i < 0 {
		return 0
	}
	if i >= len(ref) {
		i = len(ref) - 1
	}
	c := 0
	for j := 0; j <= i; j++ {
		if ref[j] {
			c++
		}
	}
	return c
}

func naiveSelect(ref []bool, j int, set bool) int {
	seen := 0
	for i, b := range ref {
		if b == set {
			seen++
			if seen == j {
				return i
			}
		}
	}
	return -1
}

func TestMutationErrors(t *testing.T) {
	v := New(100)

	require.ErrorIs(t, v.Set(-1), ErrRange)
	require.ErrorIs(t, v.Set(100), ErrRange)
	require.ErrorIs(t, v.Clear(100), ErrRange)
	require.NoError(t, v.Set(42))
	require.True(t, v.Get(42))
	require.NoError(t, v.Clear(42))
	require.False(t, v.Get(42))

	require.NoError(t, v.Set(7))
	v.Build()

	require.ErrorIs(t, v.Set(8), ErrFrozen)
	require.ErrorIs(t, v.Clear(7), ErrFrozen)
	require.True(t, v.Get(7), "freeze must not disturb stored bits")
}

func TestGetOutOfRange(t *testing.T) {
	v := New(10)
	require.False(t, v.Get(-1))
	require.False(t, v.Get(10))
}

func TestQueriesBeforeBuildPanic(t *testing.T) {
	v := New(10)
	require.Panics(t, func() { v.Rank1(3) })
	require.Panics(t, func() { v.Select1(1) })
	require.Panics(t, func() { v.Serialize() })
}

func TestRankSmall(t *testing.T) {
	v := New(8)
	for _, i := range []int{0, 2, 3, 7} {
		require.NoError(t, v.Set(i))
	}
	v.Build()

	require.Equal(t, 4, v.Popcount())
	require.Equal(t, 0, v.Rank1(-1))
	require.Equal(t, 1, v.Rank1(0))
	require.Equal(t, 1, v.Rank1(1))
	require.Equal(t, 3, v.Rank1(3))
	require.Equal(t, 4, v.Rank1(7))
	require.Equal(t, 4, v.Rank1(100), "past the end yields total popcount")
	require.Equal(t, 1, v.Rank0(1))
	require.Equal(t, 4, v.Rank0(100))

	require.Equal(t, 0, v.Select1(1))
	require.Equal(t, 2, v.Select1(2))
	require.Equal(t, 7, v.Select1(4))
	require.Equal(t, -1, v.Select1(0))
	require.Equal(t, -1, v.Select1(5))
	require.Equal(t, 1, v.Select0(1))
	require.Equal(t, 6, v.Select0(4))
	require.Equal(t, -1, v.Select0(5))
}

func TestRankSelectRandomized(t *testing.T) {
	sizes := []int{1, 31, 32, 33, 255, 256, 257, 1000, 4096, 100_000}
	densities := []float64{0.05, 0.5, 0.95}

	for _, n := range sizes {
		for _, d := range densities {
			v, ref := buildRandom(t, n, d, int64(n)*31+int64(d*100))

			step := 1
			if n > 10_000 {
				step = 61
			}
			for i := -1; i <= n; i += step {
				require.Equal(t, naiveRank1(ref, i), v.Rank1(i), "rank1(%d) n=%d d=%v", i, n, d)
				if i >= 0 && i < n {
					require.Equal(t, i+1-naiveRank1(ref, i), v.Rank0(i), "rank0(%d)", i)
				}
			}
			for j := 1; j <= v.Popcount(); j += step {
				require.Equal(t, naiveSelect(ref, j, true), v.Select1(j), "select1(%d) n=%d", j, n)
			}
			for j := 1; j <= n-v.Popcount(); j += step {
				require.Equal(t, naiveSelect(ref, j, false), v.Select0(j), "select0(%d) n=%d", j, n)
			}
		}
	}
}

// rank1(select1(j)) == j for all valid j; select1(rank1(i)) recovers the
// position of the set bit at i.
func TestRankSelectDuality(t *testing.T) {
	v, ref := buildRandom(t, 20_000, 0.3, 7)

	for j := 1; j <= v.Popcount(); j++ {
		pos := v.Select1(j)
		require.Equal(t, j, v.Rank1(pos))
	}
	for i, b := range ref {
		if b {
			require.Equal(t, i, v.Select1(v.Rank1(i)))
		}
	}
}

func TestAllOnesAllZeros(t *testing.T) {
	n := 300
	ones := New(n)
	for i := 0; i < n; i++ {
		require.NoError(t, ones.Set(i))
	}
	ones.Build()
	require.Equal(t, n, ones.Popcount())
	require.Equal(t, n-1, ones.Select1(n))
	require.Equal(t, -1, ones.Select0(1))

	zeros := New(n)
	zeros.Build()
	require.Equal(t, 0, zeros.Popcount())
	require.Equal(t, -1, zeros.Select1(1))
	require.Equal(t, n-1, zeros.Select0(n))
}

func TestEmptyVector(t *testing.T) {
	v := New(0)
	v.Build()
	require.Equal(t, 0, v.Popcount())
	require.Equal(t, 0, v.Rank1(5))
	require.Equal(t, -1, v.Select1(1))
	require.Equal(t, -1, v.Select0(1))
}

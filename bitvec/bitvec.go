// Package bitvec implements a fixed-length packed bit vector with a
// two-level rank directory and binary-search select, the base primitive
// for the LOUDS-encoded trie.
package bitvec

import (
	"errors"
	"fmt"
	mathbits "math/bits"
	"unsafe"

	"owtrie/errutil"
	"owtrie/utils"
)

const (
	wordBits       = 32
	superBits      = 256
	wordsPerSuper  = superBits / wordBits
	bytesPerWord   = wordBits / 8
	maxBlockOffset = superBits - wordBits // fits uint8
)

var (
	// ErrRange reports a bit index outside [0, Len).
	ErrRange = errors.New("bitvec: index out of range")
	// ErrFrozen reports a mutation attempted after Build.
	ErrFrozen = errors.New("bitvec: vector is frozen")
)

// Vector is a fixed-length bit array. Mutations are only legal before
// Build; after Build the vector is frozen and rank/select become valid.
type Vector struct {
	words  []uint32
	numBit int

	// directory layers, valid once frozen
	supers   []uint32 // cumulative ones at each 256-bit boundary
	blocks   []uint8  // ones relative to the superblock, per 32-bit word
	popcount int
	frozen   bool
}

// New creates an all-zero vector of length bits.
func New(length int) *Vector {
	errutil.Invariant(length >= 0, "negative bit vector length %d", length)
	return &Vector{
		words:  make([]uint32, (length+wordBits-1)/wordBits),
		numBit: length,
	}
}

// Len returns the length in bits.
func (v *Vector) Len() int { return v.numBit }

// Popcount returns the total number of set bits. Valid after Build.
func (v *Vector) Popcount() int {
	errutil.Invariant(v.frozen, "Popcount before Build")
	return v.popcount
}

// Set sets bit i. Fails after Build or outside [0, Len).
func (v *Vector) Set(i int) error {
	if v.frozen {
		return ErrFrozen
	}
	if i < 0 || i >= v.numBit {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRange, i, v.numBit)
	}
	v.words[i/wordBits] |= 1 << (i % wordBits)
	return nil
}

// Clear clears bit i. Fails after Build or outside [0, Len).
func (v *Vector) Clear(i int) error {
	if v.frozen {
		return ErrFrozen
	}
	if i < 0 || i >= v.numBit {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrRange, i, v.numBit)
	}
	v.words[i/wordBits] &^= 1 << (i % wordBits)
	return nil
}

// Get returns bit i; false outside [0, Len).
func (v *Vector) Get(i int) bool {
	if i < 0 || i >= v.numBit {
		return false
	}
	return v.words[i/wordBits]&(1<<(i%wordBits)) != 0
}

// Build computes both directory layers and the cached popcount in one
// linear pass and freezes the vector.
func (v *Vector) Build() {
	numWords := len(v.words)
	v.supers = make([]uint32, (numWords+wordsPerSuper-1)/wordsPerSuper+1)
	v.blocks = make([]uint8, numWords)

	ones := 0
	for w := 0; w < numWords; w++ {
		if w%wordsPerSuper == 0 {
			v.supers[w/wordsPerSuper] = uint32(ones)
		}
		rel := ones - int(v.supers[w/wordsPerSuper])
		errutil.BugOn(rel > maxBlockOffset, "block offset %d overflows", rel)
		v.blocks[w] = uint8(rel)
		ones += mathbits.OnesCount32(v.words[w])
	}
	v.supers[len(v.supers)-1] = uint32(ones)
	v.popcount = ones
	v.frozen = true
}

// Rank1 returns the number of set bits in [0, i]. Negative i yields 0,
// i >= Len yields the total popcount.
func (v *Vector) Rank1(i int) int {
	errutil.Invariant(v.frozen, "Rank1 before Build")
	if i < 0 {
		return 0
	}
	if i >= v.numBit {
		return v.popcount
	}
	w := i / wordBits
	base := int(v.supers[w/wordsPerSuper]) + int(v.blocks[w])
	mask := ^uint32(0) >> (wordBits - 1 - i%wordBits)
	return base + mathbits.OnesCount32(v.words[w]&mask)
}

// Rank0 returns the number of clear bits in [0, i].
func (v *Vector) Rank0(i int) int {
	errutil.Invariant(v.frozen, "Rank0 before Build")
	if i < 0 {
		return 0
	}
	if i >= v.numBit {
		return v.numBit - v.popcount
	}
	return i + 1 - v.Rank1(i)
}

// Select1 returns the position of the j-th set bit (1-indexed), or -1
// when j is outside [1, Popcount].
func (v *Vector) Select1(j int) int {
	errutil.Invariant(v.frozen, "Select1 before Build")
	if j < 1 || j > v.popcount {
		return -1
	}

	// superblock with the largest cumulative count < j
	lo, hi := 0, len(v.supers)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if int(v.supers[mid]) < j {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	ones := int(v.supers[lo])
	w := lo * wordsPerSuper
	for {
		c := mathbits.OnesCount32(v.words[w])
		if ones+c >= j {
			break
		}
		ones += c
		w++
	}

	word := v.words[w]
	for b := 0; b < wordBits; b++ {
		if word&(1<<b) != 0 {
			ones++
			if ones == j {
				return w*wordBits + b
			}
		}
	}
	errutil.Invariant(false, "Select1(%d) fell off word %d", j, w)
	return -1
}

// Select0 returns the position of the j-th clear bit (1-indexed), or -1
// when j is outside [1, Len-Popcount]. It reuses the ones directory:
// zeros before a boundary are the boundary position minus the ones count.
func (v *Vector) Select0(j int) int {
	errutil.Invariant(v.frozen, "Select0 before Build")
	if j < 1 || j > v.numBit-v.popcount {
		return -1
	}

	lo, hi := 0, len(v.supers)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		boundary := mid * superBits
		if boundary > v.numBit {
			boundary = v.numBit
		}
		if boundary-int(v.supers[mid]) < j {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	zeros := lo*superBits - int(v.supers[lo])
	w := lo * wordsPerSuper
	for {
		valid := v.numBit - w*wordBits
		if valid > wordBits {
			valid = wordBits
		}
		c := valid - mathbits.OnesCount32(v.words[w])
		if zeros+c >= j {
			break
		}
		zeros += c
		w++
	}

	word := v.words[w]
	for b := 0; b < wordBits && w*wordBits+b < v.numBit; b++ {
		if word&(1<<b) == 0 {
			zeros++
			if zeros == j {
				return w*wordBits + b
			}
		}
	}
	errutil.Invariant(false, "Select0(%d) fell off word %d", j, w)
	return -1
}

// ByteSize returns the resident size estimate in bytes.
func (v *Vector) ByteSize() int {
	return int(unsafe.Sizeof(*v)) +
		len(v.words)*bytesPerWord +
		len(v.supers)*4 +
		len(v.blocks)
}

// MemDetailed returns a detailed memory usage report.
func (v *Vector) MemDetailed(name string) utils.MemReport {
	return utils.MemReport{
		Name:       name,
		TotalBytes: v.ByteSize(),
		Children: []utils.MemReport{
			{Name: "words", TotalBytes: len(v.words) * bytesPerWord},
			{Name: "superblocks", TotalBytes: len(v.supers) * 4},
			{Name: "blocks", TotalBytes: len(v.blocks)},
		},
	}
}

// RawBytes returns the bytes occupied by the packed bits alone.
func (v *Vector) RawBytes() int { return len(v.words) * bytesPerWord }

// DirectoryBytes returns the bytes occupied by both directory layers.
func (v *Vector) DirectoryBytes() int { return len(v.supers)*4 + len(v.blocks) }

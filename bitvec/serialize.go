package bitvec

import (
	"encoding/binary"
	"errors"
	"fmt"
	mathbits "math/bits"

	"owtrie/errutil"
)

// The serialized form is a self-contained block (all values LittleEndian):
//
//   uint32            bit length N
//   ceil(N/32)  * u32 packed bit words
//   ceil(N/256)+1 * u32 superblock directory (cumulative, plus total)
//   ceil(N/32)  * u8  block directory (relative to superblock)
//
// No compression is applied at this layer.

// ErrFormat reports a malformed serialized vector.
var ErrFormat = errors.New("bitvec: malformed payload")

// SerializedSize returns the exact byte length Serialize will produce.
func (v *Vector) SerializedSize() int {
	return 4 + len(v.words)*4 + len(v.supers)*4 + len(v.blocks)
}

// Serialize encodes the frozen vector including both directory layers.
func (v *Vector) Serialize() []byte {
	errutil.Invariant(v.frozen, "Serialize before Build")

	buf := make([]byte, 0, v.SerializedSize())
	buf = binary.LittleEndian.AppendUint32(buf, uint32(v.numBit))
	for _, w := range v.words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	for _, s := range v.supers {
		buf = binary.LittleEndian.AppendUint32(buf, s)
	}
	buf = append(buf, v.blocks...)
	return buf
}

// Deserialize decodes a block produced by Serialize. The vector comes
// back frozen; data must contain exactly one serialized vector.
func Deserialize(data []byte) (*Vector, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: truncated header", ErrFormat)
	}
	numBit := int(binary.LittleEndian.Uint32(data))

	numWords := (numBit + wordBits - 1) / wordBits
	numSupers := numWords/wordsPerSuper + 1
	if numWords%wordsPerSuper != 0 {
		numSupers++
	}
	want := 4 + numWords*4 + numSupers*4 + numWords
	if len(data) != want {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrFormat, len(data), want)
	}

	v := &Vector{
		words:  make([]uint32, numWords),
		numBit: numBit,
		supers: make([]uint32, numSupers),
		blocks: make([]uint8, numWords),
	}

	off := 4
	for i := range v.words {
		v.words[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	// mask stray bits beyond the declared length
	if numWords > 0 && numBit%wordBits != 0 {
		v.words[numWords-1] &= ^uint32(0) >> (wordBits - numBit%wordBits)
	}
	for i := range v.supers {
		v.supers[i] = binary.LittleEndian.Uint32(data[off:])
		off += 4
	}
	copy(v.blocks, data[off:])

	for _, w := range v.words {
		v.popcount += mathbits.OnesCount32(w)
	}
	if v.popcount != int(v.supers[numSupers-1]) {
		return nil, fmt.Errorf("%w: directory popcount %d != bits %d",
			ErrFormat, v.supers[numSupers-1], v.popcount)
	}
	v.frozen = true
	return v, nil
}

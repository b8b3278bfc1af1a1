package loudstrie

import (
	"github.com/klauspost/compress/zstd"

	"owtrie/errutil"
)

// zstdCompressor backs the Compressor capability with zstd. Encoder and
// decoder are allocated once; EncodeAll/DecodeAll are safe for concurrent
// use on independent buffers.
type zstdCompressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewZstdCompressor returns a zstd-backed Compressor suitable for the
// version 3 wire format.
func NewZstdCompressor() (Compressor, error) {
	enc, errEnc := zstd.NewWriter(nil)
	dec, errDec := zstd.NewReader(nil)
	if err := errutil.First(errEnc, errDec); err != nil {
		return nil, err
	}
	return &zstdCompressor{enc: enc, dec: dec}, nil
}

func (z *zstdCompressor) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, nil), nil
}

func (z *zstdCompressor) Decompress(src []byte) ([]byte, error) {
	return z.dec.DecodeAll(src, nil)
}

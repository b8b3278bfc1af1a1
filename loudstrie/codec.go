package loudstrie

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"owtrie/bitvec"
	"owtrie/errutil"
)

// Wire layout (all fixed-width values LittleEndian):
//
//   Header (24 bytes):
//     u32 magic            "OWTR"
//     u32 version          1, 2 or 3
//     u32 stringCount
//     u32 nodeCount
//     u32 flags            bit0: link section + nested payload present
//     u32 nestedPayloadSize
//
//   Versions 1 and 2, sections in order:
//     u32 len | tree-shape vector        (bitvec block)
//     u32 len | terminal vector          (bitvec block)
//     u32 len | link-flag vector         (only when flag bit0 set)
//     u32 count | varint labels          (7 bits per byte, LSB group first)
//     u32 len | nested tail trie payload (only when flag bit0 set; its own
//                                         full recursive form, uncompressed)
//
//   Version 3 stores the same header followed by:
//     u64 xxh3 digest of the uncompressed v2 body
//     u32 compressed length | compressed body
//
// Version 1 is the flat no-compression form, version 2 adds the recursive
// tail trie, version 3 compresses everything after the header as one block.

const (
	magic = uint32(0x4F575452) // "OWTR"

	// VersionPlain has no tail compression and no nested payload.
	VersionPlain = uint32(1)
	// VersionTails carries link flags and a recursive tail trie.
	VersionTails = uint32(2)
	// VersionCompressed is VersionTails with the whole payload after the
	// header compressed as a single block.
	VersionCompressed = uint32(3)

	flagHasLinks = uint32(1 << 0)

	headerSize = 24
)

var (
	// ErrFormat reports bad magic, an unsupported version, truncation or
	// an inconsistent section during deserialization. Always fatal.
	ErrFormat = errors.New("loudstrie: malformed payload")
	// ErrNeedCompressor reports a compressed payload handed to a decoder
	// with no compression capability injected.
	ErrNeedCompressor = errors.New("loudstrie: payload is compressed and no Compressor was provided")
)

// Compressor is the whole-payload compression capability the codec is
// handed explicitly; the trie itself never touches a compression backend.
type Compressor interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

// Serialize encodes the trie uncompressed (version 1 or 2, depending on
// whether tail compression produced any links).
func (t *Trie) Serialize() ([]byte, error) {
	body, nestedSize := t.serializeBody()
	version := VersionPlain
	if t.hasLinks {
		version = VersionTails
	}
	out := t.appendHeader(make([]byte, 0, headerSize+len(body)), version, nestedSize)
	return append(out, body...), nil
}

// SerializeCompressed encodes a version 3 payload: the uncompressed body
// is digested with xxh3, then compressed as one block by c.
func (t *Trie) SerializeCompressed(c Compressor) ([]byte, error) {
	if c == nil {
		return nil, ErrNeedCompressor
	}
	body, nestedSize := t.serializeBody()
	comp, err := c.Compress(body)
	if err != nil {
		return nil, fmt.Errorf("loudstrie: compressing payload: %w", err)
	}
	out := t.appendHeader(make([]byte, 0, headerSize+12+len(comp)), VersionCompressed, nestedSize)
	out = binary.LittleEndian.AppendUint64(out, xxh3.Hash(body))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(comp)))
	return append(out, comp...), nil
}

func (t *Trie) appendHeader(buf []byte, version uint32, nestedSize int) []byte {
	flags := uint32(0)
	if t.hasLinks {
		flags |= flagHasLinks
	}
	buf = binary.LittleEndian.AppendUint32(buf, magic)
	buf = binary.LittleEndian.AppendUint32(buf, version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.numWords))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(t.numNodes))
	buf = binary.LittleEndian.AppendUint32(buf, flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(nestedSize))
	return buf
}

func (t *Trie) serializeBody() (body []byte, nestedSize int) {
	appendBlock := func(buf, block []byte) []byte {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(block)))
		return append(buf, block...)
	}

	body = appendBlock(body, t.tree.Serialize())
	body = appendBlock(body, t.terminal.Serialize())
	if t.hasLinks {
		body = appendBlock(body, t.link.Serialize())
	}

	body = binary.LittleEndian.AppendUint32(body, uint32(len(t.labels)))
	for _, l := range t.labels {
		body = binary.AppendUvarint(body, uint64(l))
	}

	if t.hasLinks {
		nested, err := t.tails.Serialize()
		errutil.FatalIf(err) // nested tries never compress, cannot fail
		nestedSize = len(nested)
		body = appendBlock(body, nested)
	}
	return body, nestedSize
}

// Deserialize decodes an uncompressed payload. Compressed (version 3)
// payloads are rejected with ErrNeedCompressor; use DeserializeWith.
func Deserialize(data []byte) (*Trie, error) {
	return DeserializeWith(data, nil)
}

// DeserializeWith decodes any recognized payload, using c to decompress
// a version 3 body. The decode is one-shot and synchronous.
func DeserializeWith(data []byte, c Compressor) (*Trie, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrFormat, len(data))
	}
	if m := binary.LittleEndian.Uint32(data); m != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrFormat, m)
	}
	version := binary.LittleEndian.Uint32(data[4:])
	numWords := int(binary.LittleEndian.Uint32(data[8:]))
	numNodes := int(binary.LittleEndian.Uint32(data[12:]))
	flags := binary.LittleEndian.Uint32(data[16:])
	nestedSize := int(binary.LittleEndian.Uint32(data[20:]))

	body := data[headerSize:]
	switch version {
	case VersionPlain, VersionTails:
	case VersionCompressed:
		if c == nil {
			return nil, ErrNeedCompressor
		}
		if len(body) < 12 {
			return nil, fmt.Errorf("%w: truncated compression preamble", ErrFormat)
		}
		digest := binary.LittleEndian.Uint64(body)
		clen := int(binary.LittleEndian.Uint32(body[8:]))
		body = body[12:]
		if len(body) != clen {
			return nil, fmt.Errorf("%w: compressed block is %d bytes, header says %d",
				ErrFormat, len(body), clen)
		}
		plain, err := c.Decompress(body)
		if err != nil {
			return nil, fmt.Errorf("%w: decompressing body: %v", ErrFormat, err)
		}
		if xxh3.Hash(plain) != digest {
			return nil, fmt.Errorf("%w: body digest mismatch", ErrFormat)
		}
		body = plain
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}

	hasLinks := flags&flagHasLinks != 0
	if version == VersionPlain && hasLinks {
		return nil, fmt.Errorf("%w: version 1 cannot carry link flags", ErrFormat)
	}
	return parseBody(body, numWords, numNodes, hasLinks, nestedSize)
}

func parseBody(body []byte, numWords, numNodes int, hasLinks bool, nestedSize int) (*Trie, error) {
	readBlock := func() ([]byte, error) {
		if len(body) < 4 {
			return nil, fmt.Errorf("%w: truncated section length", ErrFormat)
		}
		n := int(binary.LittleEndian.Uint32(body))
		body = body[4:]
		if len(body) < n {
			return nil, fmt.Errorf("%w: section needs %d bytes, %d remain", ErrFormat, n, len(body))
		}
		block := body[:n]
		body = body[n:]
		return block, nil
	}

	treeBlock, err := readBlock()
	if err != nil {
		return nil, err
	}
	tree, err := bitvec.Deserialize(treeBlock)
	if err != nil {
		return nil, fmt.Errorf("%w: tree vector: %v", ErrFormat, err)
	}
	termBlock, err := readBlock()
	if err != nil {
		return nil, err
	}
	terminal, err := bitvec.Deserialize(termBlock)
	if err != nil {
		return nil, fmt.Errorf("%w: terminal vector: %v", ErrFormat, err)
	}

	var link *bitvec.Vector
	if hasLinks {
		linkBlock, err := readBlock()
		if err != nil {
			return nil, err
		}
		if link, err = bitvec.Deserialize(linkBlock); err != nil {
			return nil, fmt.Errorf("%w: link vector: %v", ErrFormat, err)
		}
	}

	if len(body) < 4 {
		return nil, fmt.Errorf("%w: truncated label count", ErrFormat)
	}
	labelCount := int(binary.LittleEndian.Uint32(body))
	body = body[4:]
	labels := make([]uint32, labelCount)
	for i := range labels {
		v, n := binary.Uvarint(body)
		if n <= 0 || v > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: bad varint label at index %d", ErrFormat, i)
		}
		labels[i] = uint32(v)
		body = body[n:]
	}

	var tails *Trie
	if hasLinks {
		nestedBlock, err := readBlock()
		if err != nil {
			return nil, err
		}
		if len(nestedBlock) != nestedSize {
			return nil, fmt.Errorf("%w: nested payload is %d bytes, header says %d",
				ErrFormat, len(nestedBlock), nestedSize)
		}
		if tails, err = Deserialize(nestedBlock); err != nil {
			return nil, err
		}
	}
	if len(body) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(body))
	}

	// Cross-check the header counts against the decoded vectors before
	// handing the structure out.
	if tree.Len() != 2*numNodes+1 {
		return nil, fmt.Errorf("%w: tree vector is %d bits for %d nodes", ErrFormat, tree.Len(), numNodes)
	}
	if terminal.Len() != numNodes+1 {
		return nil, fmt.Errorf("%w: terminal vector is %d bits for %d nodes", ErrFormat, terminal.Len(), numNodes)
	}
	if terminal.Popcount() != numWords {
		return nil, fmt.Errorf("%w: terminal popcount %d != string count %d",
			ErrFormat, terminal.Popcount(), numWords)
	}
	if labelCount != numNodes-1 {
		return nil, fmt.Errorf("%w: %d labels for %d nodes", ErrFormat, labelCount, numNodes)
	}
	if hasLinks && link.Len() != labelCount {
		return nil, fmt.Errorf("%w: link vector is %d bits for %d edges", ErrFormat, link.Len(), labelCount)
	}

	return &Trie{
		tree:     tree,
		terminal: terminal,
		link:     link,
		labels:   labels,
		tails:    tails,
		hasLinks: hasLinks,
		numWords: numWords,
		numNodes: numNodes,
	}, nil
}

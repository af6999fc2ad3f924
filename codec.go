// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz"
)

// scratchSize returns the scratch buffer size a block codec should allocate
// for a given block_size: generous enough to absorb XZ/zlib header overhead
// on very small blocks, per spec's "size the codec scratch generously" note.
func scratchSize(blockSize uint32) int {
	n := 2 * int(blockSize)
	if floor := int(blockSize) + 64; n < floor {
		n = floor
	}

	return n
}

// blockEncoding is the on-disk scheme actually used for one block, which
// may differ from the archive-wide Compression when "store if not smaller"
// kicks in.
type blockEncoding int

// Block encoding outcomes.
const (
	blockStored blockEncoding = iota
	blockZlib
	blockLZMA
)

func (e blockEncoding) String() string {
	switch e {
	case blockStored:
		return "store"
	case blockZlib:
		return "zlib"
	case blockLZMA:
		return "lzma"
	default:
		return "unknown"
	}
}

// blockCodec compresses and decompresses single blocks under one
// archive-wide scheme.
type blockCodec interface {
	// encode compresses src using scratch as reusable working storage
	// (reset and grown as needed) and returns the chosen encoding and the
	// bytes to write to the archive. The returned slice aliases scratch
	// (or src itself when the block is stored) and is only valid until the
	// caller reuses or releases that buffer. It
	// never errors: on any internal compression failure it falls back to
	// store.
	encode(src []byte, scratch *bytes.Buffer) (blockEncoding, []byte)
}

// newBlockCodec returns a blockCodec for the given archive-wide
// compression scheme and level/extreme parameters.
func newBlockCodec(c Compression, level int, extreme bool) (blockCodec, error) {
	switch c {
	case CompressionStore:
		if extreme {
			return nil, fmt.Errorf("%w: extreme is not valid for store", ErrUsage)
		}

		return storeCodec{}, nil
	case CompressionZlib:
		if level < 1 || level > 9 {
			return nil, fmt.Errorf("%w: zlib level must be 1..9, got %d", ErrUsage, level)
		}

		if extreme {
			return nil, fmt.Errorf("%w: extreme is not valid for zlib", ErrUsage)
		}

		return zlibCodec{level: level}, nil
	case CompressionLZMA:
		if level < 0 || level > 9 {
			return nil, fmt.Errorf("%w: lzma level must be 0..9, got %d", ErrUsage, level)
		}

		return lzmaCodec{level: level, extreme: extreme}, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %q", ErrUsage, c)
	}
}

// storeCodec always emits the input verbatim.
type storeCodec struct{}

func (storeCodec) encode(src []byte, _ *bytes.Buffer) (blockEncoding, []byte) {
	return blockStored, src
}

// zlibCodec deflates with github.com/klauspost/compress/zlib, falling back
// to store when compression does not shrink the block or errors.
type zlibCodec struct {
	level int
}

func (c zlibCodec) encode(src []byte, scratch *bytes.Buffer) (blockEncoding, []byte) {
	scratch.Reset()
	scratch.Grow(scratchSize(uint32(len(src))))

	w, err := zlib.NewWriterLevel(scratch, c.level)
	if err != nil {
		return blockStored, src
	}

	if _, err := w.Write(src); err != nil {
		return blockStored, src
	}

	if err := w.Close(); err != nil {
		return blockStored, src
	}

	if scratch.Len() >= len(src) {
		return blockStored, src
	}

	return blockZlib, scratch.Bytes()
}

// lzmaCodec produces a single-stream XZ container with one LZMA2 filter,
// CRC64 integrity check, falling back to store when compression does not
// shrink the block or errors.
type lzmaCodec struct {
	level   int
	extreme bool
}

// lzmaDictCap maps a 0..9 preset level (doubled again under extreme, per
// the XZ Utils convention the spec's level/extreme pair mirrors) to a
// dictionary capacity in bytes.
func lzmaDictCap(level int, extreme bool) int {
	dictCap := (1 << 20) << uint(level) // 1 MiB at level 0, doubling per level
	if extreme {
		dictCap *= 2
	}

	return dictCap
}

func (c lzmaCodec) encode(src []byte, scratch *bytes.Buffer) (blockEncoding, []byte) {
	scratch.Reset()
	scratch.Grow(scratchSize(uint32(len(src))))

	w, err := xz.WriterConfig{
		CheckSum: xz.CRC64,
		DictCap:  lzmaDictCap(c.level, c.extreme),
	}.NewWriter(scratch)
	if err != nil {
		return blockStored, src
	}

	if _, err := w.Write(src); err != nil {
		return blockStored, src
	}

	if err := w.Close(); err != nil {
		return blockStored, src
	}

	if scratch.Len() >= len(src) {
		return blockStored, src
	}

	return blockLZMA, scratch.Bytes()
}

// sniffAndDecode inspects raw's leading bytes to choose a decoder,
// independent of the archive's declared compression identifier, and
// returns the decompressed block of exactly wantSize bytes.
func sniffAndDecode(raw []byte, wantSize int) ([]byte, error) {
	switch {
	case isZlibMagic(raw):
		return decodeZlib(raw, wantSize)
	case isXZMagic(raw):
		return decodeXZ(raw, wantSize)
	default:
		if len(raw) != wantSize {
			return nil, fmt.Errorf("%w: stored block size mismatch", ErrDecompressFailed)
		}

		return raw, nil
	}
}

func isZlibMagic(b []byte) bool {
	if len(b) < 2 || b[0] != 0x78 {
		return false
	}

	switch b[1] {
	case 0x01, 0x5E, 0x9C, 0xDA:
		return true
	default:
		return false
	}
}

var xzMagic = [6]byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

func isXZMagic(b []byte) bool {
	if len(b) < 6 {
		return false
	}

	return [6]byte(b[:6]) == xzMagic
}

func decodeZlib(raw []byte, wantSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}
	defer r.Close()

	out := make([]byte, wantSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}

	return out, nil
}

func decodeXZ(raw []byte, wantSize int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}

	out := make([]byte, wantSize)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompressFailed, err)
	}

	return out, nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"bufio"
	"fmt"
	"io"
)

var magicPSAR = [4]byte{'P', 'S', 'A', 'R'}

// blockTableWidth returns the number of bytes used per block-table entry
// for the given block_size, or 0 if block_size is out of range.
func blockTableWidth(blockSize uint32) int {
	switch {
	case blockSize == 0:
		return 0
	case blockSize <= 0x100:
		return 1
	case blockSize <= 0x10000:
		return 2
	case blockSize <= 0x1000000:
		return 3
	default:
		// blockSize <= 0x100000000 as a uint32 is always true; anything
		// larger cannot be represented and is caught by callers via the
		// type system.
		return 4
	}
}

// encodeBlockLength encodes one block-table entry: a compressed length
// equal to blockSize is written as the sentinel 0.
func encodeBlockLength(compressedLen, blockSize uint32) uint32 {
	if compressedLen == blockSize {
		return 0
	}

	return compressedLen
}

// decodeBlockLength reverses encodeBlockLength: a stored 0 means a full
// blockSize of payload.
func decodeBlockLength(stored, blockSize uint32) uint32 {
	if stored == 0 {
		return blockSize
	}

	return stored
}

// writeHeader encodes h into the fixed 32-byte PSARC header layout.
func writeHeader(w io.Writer, h Header) error {
	var buf [headerSize]byte
	copy(buf[0:4], magicPSAR[:])
	putU16BE(buf[4:6], h.VersionMajor)
	putU16BE(buf[6:8], h.VersionMinor)
	copy(buf[8:12], h.Compression.compressionTag()[:])
	putU32BE(buf[12:16], h.TocLength)
	putU32BE(buf[16:20], h.TocEntrySize)
	putU32BE(buf[20:24], h.TocEntries)
	putU32BE(buf[24:28], h.BlockSize)
	putU32BE(buf[28:32], uint32(h.Flags))

	_, err := w.Write(buf[:])

	return err
}

// readHeader decodes and validates the fixed 32-byte PSARC header.
func readHeader(r io.Reader) (Header, error) {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	if [4]byte(buf[0:4]) != magicPSAR {
		return Header{}, ErrBadMagic
	}

	major, _ := readU16BE(buf[4:6])
	minor, _ := readU16BE(buf[6:8])
	tag := string(buf[8:12])

	var comp Compression
	switch tag {
	case "lzma":
		comp = CompressionLZMA
	case "zlib":
		comp = CompressionZlib
	default:
		return Header{}, fmt.Errorf("%w: unknown compression tag %q", ErrBadMagic, tag)
	}

	tocLength, _ := readU32BE(buf[12:16])
	tocEntrySize, _ := readU32BE(buf[16:20])
	tocEntries, _ := readU32BE(buf[20:24])
	blockSize, _ := readU32BE(buf[24:28])
	flags, _ := readU32BE(buf[28:32])

	h := Header{
		VersionMajor: major,
		VersionMinor: minor,
		Compression:  comp,
		TocLength:    tocLength,
		TocEntrySize: tocEntrySize,
		TocEntries:   tocEntries,
		BlockSize:    blockSize,
		Flags:        ArchiveFlags(flags),
	}

	if tocEntrySize != 30 {
		return Header{}, ErrBadTocEntrySize
	}

	if blockTableWidth(h.BlockSize) == 0 {
		return Header{}, ErrBadBlockSize
	}

	return h, nil
}

// writeTocEntry encodes one fixed 30-byte TocEntry.
func writeTocEntry(w io.Writer, e TocEntry) error {
	var buf [tocEntrySize]byte
	copy(buf[0:16], e.NameDigest[:])
	putU32BE(buf[16:20], e.BlockOffset)
	putU40BE(buf[20:25], e.UncompressedSize)
	putU40BE(buf[25:30], e.FileOffset)

	_, err := w.Write(buf[:])

	return err
}

// readTocEntry decodes one fixed 30-byte TocEntry.
func readTocEntry(r io.Reader) (TocEntry, error) {
	var buf [tocEntrySize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return TocEntry{}, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	var e TocEntry
	copy(e.NameDigest[:], buf[0:16])
	e.BlockOffset, _ = readU32BE(buf[16:20])
	e.UncompressedSize, _ = readU40BE(buf[20:25])
	e.FileOffset, _ = readU40BE(buf[25:30])

	return e, nil
}

// writeBlockTable encodes lengths (already sentinel-encoded) using width
// bytes per entry.
func writeBlockTable(w io.Writer, lengths []uint32, width int) error {
	buf := make([]byte, len(lengths)*width)

	for i, v := range lengths {
		off := i * width
		switch width {
		case 1:
			buf[off] = byte(v)
		case 2:
			putU16BE(buf[off:off+2], uint16(v))
		case 3:
			putU24BE(buf[off:off+3], v)
		case 4:
			putU32BE(buf[off:off+4], v)
		default:
			return ErrInvalidBlockWidth
		}
	}

	_, err := w.Write(buf)

	return err
}

// readBlockTable decodes count sentinel-encoded block lengths of the given
// width from r.
func readBlockTable(r io.Reader, count int, width int) ([]uint32, error) {
	if width < 1 || width > 4 {
		return nil, ErrInvalidBlockWidth
	}

	buf := make([]byte, count*width)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	out := make([]uint32, count)

	for i := range out {
		off := i * width

		switch width {
		case 1:
			out[i] = uint32(buf[off])
		case 2:
			v, _ := readU16BE(buf[off : off+2])
			out[i] = uint32(v)
		case 3:
			out[i], _ = readU24BE(buf[off : off+3])
		case 4:
			out[i], _ = readU32BE(buf[off : off+4])
		}
	}

	return out, nil
}

// tocLengthFor computes toc_length from entry and block counts, per the
// layout invariant toc_length = 32 + 30*toc_entries + width*total_blocks.
func tocLengthFor(tocEntries, totalBlocks uint32, width int) uint32 {
	return headerSize + tocEntrySize*tocEntries + uint32(width)*totalBlocks
}

// ValidateBlockTable re-derives total_blocks from toc_length and
// cross-checks it against the sum of per-entry block counts, surfacing
// ErrBadBlockSize early rather than failing deep inside extraction. This
// is a validation pass the original implementation never performed.
func ValidateBlockTable(h Header, entryBlockCounts []uint32) error {
	width := blockTableWidth(h.BlockSize)
	if width == 0 {
		return ErrBadBlockSize
	}

	fixed := headerSize + tocEntrySize*h.TocEntries
	if h.TocLength < fixed {
		return ErrBadBlockSize
	}

	remaining := h.TocLength - fixed
	if remaining%uint32(width) != 0 {
		return ErrBadBlockSize
	}

	derivedTotal := remaining / uint32(width)

	var sum uint32
	for _, c := range entryBlockCounts {
		sum += c
	}

	if sum != derivedTotal {
		return fmt.Errorf("%w: block count mismatch, derived %d want %d", ErrBadBlockSize, derivedTotal, sum)
	}

	return nil
}

// tocReaderPool hands out pooled *bufio.Reader values sized for sequential
// TOC parsing.
var tocReaderPool = newBufioReaderPool(64 * 1024)

type bufioReaderPool struct {
	size int
	pool chan *bufio.Reader
}

func newBufioReaderPool(size int) *bufioReaderPool {
	return &bufioReaderPool{size: size, pool: make(chan *bufio.Reader, 8)}
}

func (p *bufioReaderPool) get(r io.Reader) *bufio.Reader {
	select {
	case br := <-p.pool:
		br.Reset(r)

		return br
	default:
		return bufio.NewReaderSize(r, p.size)
	}
}

func (p *bufioReaderPool) put(br *bufio.Reader) {
	select {
	case p.pool <- br:
	default:
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import "time"

// Internal binary layout and format limits.
const (
	headerSize       = 32 // fixed PSARC header size in bytes
	tocEntrySize     = 30 // fixed size of one TocEntry record
	digestSize       = 16 // MD5 digest size in bytes
	defaultBlockSize = 65536
)

// Compression identifies the archive-wide payload codec.
type Compression string

// Supported compression identifiers.
const (
	// CompressionStore writes blocks verbatim; archive header carries "zlib" by convention per spec §3.
	CompressionStore Compression = "store"
	// CompressionZlib deflates blocks with klauspost/compress/zlib.
	CompressionZlib Compression = "zlib"
	// CompressionLZMA encodes blocks as single-filter LZMA2/XZ streams.
	CompressionLZMA Compression = "lzma"
)

// compressionTag returns the 4-byte archive header compression identifier for c.
func (c Compression) compressionTag() [4]byte {
	if c == CompressionLZMA {
		return [4]byte{'l', 'z', 'm', 'a'}
	}

	return [4]byte{'z', 'l', 'i', 'b'}
}

// ArchiveFlags is the header's archive_flags bitmask.
type ArchiveFlags uint32

// Archive flag bits.
const (
	// FlagIgnoreCase marks stored paths as case-insensitive for selection matching.
	FlagIgnoreCase ArchiveFlags = 1 << 0
	// FlagAbsolutePaths marks stored paths as archive-root-absolute (leading "/").
	FlagAbsolutePaths ArchiveFlags = 1 << 1
)

// Has reports whether flags contains bit.
func (f ArchiveFlags) Has(bit ArchiveFlags) bool {
	return f&bit != 0
}

// Header is the fixed 32-byte PSARC archive header.
type Header struct {
	// VersionMajor is the format major version; default 1.
	VersionMajor uint16
	// VersionMinor is the format minor version; default 4.
	VersionMinor uint16
	// Compression is the archive-wide declared codec identifier.
	Compression Compression
	// TocLength is the total byte length from file start to end of block table.
	TocLength uint32
	// TocEntrySize is always 30.
	TocEntrySize uint32
	// TocEntries is the number of TOC entries, including the manifest.
	TocEntries uint32
	// BlockSize is the uncompressed block unit size; power-of-two recommended.
	BlockSize uint32
	// Flags is the archive_flags bitmask.
	Flags ArchiveFlags
}

// TocEntry is one fixed 30-byte table-of-contents record.
type TocEntry struct {
	// NameDigest is MD5(stored path); all zero for the manifest entry.
	NameDigest [digestSize]byte
	// BlockOffset is the index of this entry's first block in the block table.
	BlockOffset uint32
	// UncompressedSize is the entry's decompressed size (40-bit on disk).
	UncompressedSize uint64
	// FileOffset is the byte offset of the entry's first compressed block (40-bit on disk).
	FileOffset uint64
}

// FileRecord is packer-side bookkeeping for one archive member, created at
// path-set insertion and filled in during packing.
type FileRecord struct {
	// StoredPath is the path as written into the manifest and matched against TOC digests.
	StoredPath string
	// NameDigest is MD5(StoredPath); zero for the manifest record.
	NameDigest [digestSize]byte
	// BlockIndex is this entry's first index into the archive-wide block table.
	BlockIndex uint32
	// BlockCount is ceil(UncompressedSize / BlockSize).
	BlockCount uint32
	// UncompressedSize is the entry's decompressed size.
	UncompressedSize uint64
	// CompressedSize is the sum of this entry's block-table lengths.
	CompressedSize uint64
	// FileOffset is the byte offset of the entry's first compressed block.
	FileOffset uint64
}

// EntryInfo is the caller-facing, read-only view of one archive member,
// returned by Unpacker's list/info/extract event callbacks.
type EntryInfo struct {
	// Path is the stored path from the manifest.
	Path string
	// UncompressedSize is the entry's decompressed size in bytes.
	UncompressedSize uint64
	// CompressedSize is the entry's total on-disk size in bytes.
	CompressedSize uint64
	// BlockCount is the number of blocks this entry spans.
	BlockCount uint32
	// FileOffset is the byte offset of the entry's first compressed block.
	FileOffset uint64
}

// PackEntryProgress describes one file after it finished streaming into
// the archive. No Reporter method takes it and Packer does not build it;
// per-file progress reaches a Reporter through OpenFileItem/CloseFileItem.
type PackEntryProgress struct {
	// Path is the stored path written to the archive.
	Path string
	// UncompressedSize is the file's decompressed size.
	UncompressedSize uint64
	// CompressedSize is the file's total on-disk size.
	CompressedSize uint64
	// ModTime is the source file's modification time; informational only, not stored on disk.
	ModTime time.Time
}

// PackResult summarizes one completed pack operation.
type PackResult struct {
	// WrittenEntries is the number of file entries written (excludes the manifest).
	WrittenEntries int
	// UncompressedBytes is the sum of all files' uncompressed sizes.
	UncompressedBytes int64
	// CompressedBytes is the sum of all files' compressed sizes (payload only, not TOC).
	CompressedBytes int64
	// TocLength is the final archive toc_length.
	TocLength uint32
	// Duration is end-to-end pack core duration.
	Duration time.Duration
}

// InfoTotals aggregates archive-wide statistics for Unpacker's Info mode.
type InfoTotals struct {
	// Header is the parsed archive header.
	Header Header
	// FileCount excludes the manifest entry.
	FileCount int
	// UncompressedBytes is the sum of all files' uncompressed sizes.
	UncompressedBytes uint64
	// CompressedBytes is the sum of all files' compressed sizes.
	CompressedBytes uint64
	// StoredEntries is the number of entries whose first block sniffs as
	// stored (sniffed, not declared), plus entries with no blocks.
	// Only the first block of each entry is inspected.
	StoredEntries int
	// ZlibEntries is the number of entries whose first block sniffs as zlib.
	ZlibEntries int
	// LZMAEntries is the number of entries whose first block sniffs as LZMA/XZ.
	LZMAEntries int
}

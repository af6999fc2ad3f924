// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import "errors"

// Sentinel errors for PSARC operations. Use errors.Is in callers.
var (
	// ErrUsage means an incompatible combination of configuration options was given.
	ErrUsage = errors.New("incompatible option combination")
	// ErrArchiveExists means the output archive already exists and overwrite was not requested.
	ErrArchiveExists = errors.New("archive already exists")
	// ErrBadMagic means the archive does not start with the "PSAR" magic, or
	// its header compression tag is neither "zlib" nor "lzma".
	ErrBadMagic = errors.New("bad archive magic")
	// ErrBadTocEntrySize means the header's toc_entry_size field is not 30.
	ErrBadTocEntrySize = errors.New("bad TOC entry size")
	// ErrBadBlockSize means block_size or the derived block table are invalid.
	ErrBadBlockSize = errors.New("bad block size")
	// ErrTruncated means the archive ended before an expected structure was fully read.
	ErrTruncated = errors.New("truncated archive")
	// ErrDecompressFailed means a sniffed block payload failed to decode.
	ErrDecompressFailed = errors.New("block decompression failed")
	// ErrSourceMissing means a path given for packing could not be statted or opened.
	ErrSourceMissing = errors.New("source file missing")
	// ErrTargetDirMissing means an extraction's configured target directory could not be entered.
	ErrTargetDirMissing = errors.New("target directory missing")
	// ErrOutputExists means an extraction target exists and neither overwrite nor skip was set.
	ErrOutputExists = errors.New("output file exists")
	// ErrPackFailed means packing failed after the pool had already started accepting blocks.
	ErrPackFailed = errors.New("pack failed")
	// ErrNilWriter means the destination writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrNilReader means the source reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrClosed means the archive reader is already closed.
	ErrClosed = errors.New("archive already closed")
	// ErrEmptyPathSet means no paths were selected for packing.
	ErrEmptyPathSet = errors.New("no paths selected for packing")
	// ErrInvalidExtractPath means an archive entry's stored path is unsafe as an extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means a resolved extraction path escapes the destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
	// ErrInvalidBlockWidth means block_size does not map to a valid block-table width.
	ErrInvalidBlockWidth = errors.New("invalid block table width")
	// ErrEntryNotFound means a requested archive entry does not exist.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrOutOfMemory means an allocation driven by untrusted archive sizes was refused.
	ErrOutOfMemory = errors.New("allocation refused: out of memory")
)


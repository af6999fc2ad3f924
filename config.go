// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import "log/slog"

// Config is the immutable bundle of options consumed by both Packer and
// Unpacker. There is no package-level mutable configuration; every
// operation takes one Config value.
type Config struct {
	// ArchivePath is the target archive path.
	ArchivePath string

	// Compression selects the archive-wide codec (pack only); empty
	// defaults to zlib.
	Compression Compression
	// CompressionLevel is 0..9; 0 is valid only for lzma. With zlib, 0
	// defaults to 9.
	CompressionLevel int
	// Extreme enables the XZ EXTREME preset flag (lzma only).
	Extreme bool
	// BlockSize is the uncompressed block unit; positive, <= 2^32-1.
	// 0 defaults to 65536.
	BlockSize uint32
	// Flags is the archive_flags bitmask written to the header (pack) or
	// consulted for selection matching (unpack).
	Flags ArchiveFlags

	// SourceDir, if set, is chdir'd into before walking (pack only).
	SourceDir string
	// TargetDir, if set, is chdir'd into before extracting (unpack only).
	TargetDir string

	// TrimPath drops directory components from stored/output paths.
	TrimPath bool
	// Recursive makes the walker recurse into matched directories.
	Recursive bool
	// Overwrite permits clobbering an existing archive or extract target.
	Overwrite bool
	// SkipExistingFiles, on extract collision without Overwrite, skips
	// silently instead of reporting a failure.
	SkipExistingFiles bool

	// NumThreads sizes the ordered pool; 0 or 1 means synchronous.
	NumThreads int
	// Verbose is carried for callers; neither Packer nor Unpacker reads it,
	// and per-file byte counts are always passed to the reporter.
	Verbose bool

	// SkipBlockTableValidation disables the post-decode ValidateBlockTable
	// cross-check the unpacker otherwise runs by default.
	SkipBlockTableValidation bool

	// Logger receives structured diagnostic records; nil defaults to
	// slog.Default().
	Logger *slog.Logger
}

// applyDefaults returns a copy of c with zero-valued fields replaced by
// their documented defaults.
func (c Config) applyDefaults() Config {
	if c.Compression == "" {
		c.Compression = CompressionZlib
	}

	if c.BlockSize == 0 {
		c.BlockSize = defaultBlockSize
	}

	if c.CompressionLevel == 0 && c.Compression == CompressionZlib {
		c.CompressionLevel = 9
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c
}

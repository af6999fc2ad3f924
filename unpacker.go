// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unpacker opens an archive and drives the byte-order, digest, codec, and
// format layers to list, inspect, or extract its contents.
type Unpacker struct {
	cfg      Config
	reporter Reporter

	f      *os.File
	header Header
	width  int

	// tocEntries[0] is the manifest.
	tocEntries []TocEntry
	blockLens  []uint32 // sentinel-decoded per spec's 0-means-full-block rule
	paths      []string // stored paths, index i ↔ tocEntries[i+1]

	closed bool
}

// OpenUnpacker opens cfg.ArchivePath and parses its header, TOC, block
// table, and manifest.
func OpenUnpacker(cfg Config, reporter Reporter) (*Unpacker, error) {
	cfg = cfg.applyDefaults()

	if reporter == nil {
		reporter = NopReporter{}
	}

	f, err := os.Open(cfg.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceMissing, err)
	}

	u := &Unpacker{cfg: cfg, reporter: reporter, f: f}

	if err := u.parse(); err != nil {
		f.Close()

		return nil, err
	}

	return u, nil
}

// Close releases the archive file handle.
func (u *Unpacker) Close() error {
	if u.closed {
		return ErrClosed
	}

	u.closed = true

	return u.f.Close()
}

func (u *Unpacker) parse() error {
	br := tocReaderPool.get(u.f)
	defer tocReaderPool.put(br)

	header, err := readHeader(br)
	if err != nil {
		return err
	}

	u.header = header
	u.width = blockTableWidth(header.BlockSize)

	entries := make([]TocEntry, header.TocEntries)
	for i := range entries {
		e, err := readTocEntry(br)
		if err != nil {
			return err
		}

		entries[i] = e
	}

	u.tocEntries = entries

	fixed := headerSize + tocEntrySize*header.TocEntries
	if header.TocLength < fixed {
		return ErrBadBlockSize
	}

	totalBlocks := (header.TocLength - fixed) / uint32(u.width)

	lengths, err := readBlockTable(br, int(totalBlocks), u.width)
	if err != nil {
		return err
	}

	decoded := make([]uint32, len(lengths))
	for i, v := range lengths {
		decoded[i] = decodeBlockLength(v, header.BlockSize)
	}

	u.blockLens = decoded

	if !u.cfg.SkipBlockTableValidation {
		counts := u.blockCountsPerEntry()
		if err := ValidateBlockTable(header, counts); err != nil {
			return err
		}
	}

	manifest, err := u.readEntryPayload(0)
	if err != nil {
		return fmt.Errorf("%w: manifest: %v", ErrDecompressFailed, err)
	}

	if len(manifest) == 0 {
		u.paths = nil
	} else {
		u.paths = strings.Split(string(manifest), "\n")
	}

	return nil
}

// blockCountsPerEntry derives each TOC entry's block count from adjacent
// block_offset values (and the table's total length for the last entry).
func (u *Unpacker) blockCountsPerEntry() []uint32 {
	counts := make([]uint32, len(u.tocEntries))

	for i := range u.tocEntries {
		if i+1 < len(u.tocEntries) {
			counts[i] = u.tocEntries[i+1].BlockOffset - u.tocEntries[i].BlockOffset
		} else {
			counts[i] = uint32(len(u.blockLens)) - u.tocEntries[i].BlockOffset
		}
	}

	return counts
}

// entryInfo builds the caller-facing EntryInfo for TOC index idx (0 is the
// manifest; file entries are idx 1..N).
func (u *Unpacker) entryInfo(idx int) EntryInfo {
	e := u.tocEntries[idx]

	counts := u.blockCountsPerEntry()
	blockCount := counts[idx]

	var compressed uint64
	for b := e.BlockOffset; b < e.BlockOffset+blockCount; b++ {
		compressed += uint64(u.blockLens[b])
	}

	path := ""
	if idx > 0 && idx-1 < len(u.paths) {
		path = u.paths[idx-1]
	}

	return EntryInfo{
		Path:             path,
		UncompressedSize: e.UncompressedSize,
		CompressedSize:   compressed,
		BlockCount:       blockCount,
		FileOffset:       e.FileOffset,
	}
}

// readEntryPayload decompresses the full payload of TOC index idx.
func (u *Unpacker) readEntryPayload(idx int) ([]byte, error) {
	info := u.entryInfo(idx)
	e := u.tocEntries[idx]

	counts := u.blockCountsPerEntry()
	blockCount := counts[idx]

	if _, err := u.f.Seek(int64(e.FileOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
	}

	out := make([]byte, 0, info.UncompressedSize)

	remaining := info.UncompressedSize

	for b := e.BlockOffset; b < e.BlockOffset+blockCount; b++ {
		rawLen := u.blockLens[b]

		want := uint64(u.header.BlockSize)
		if remaining < want {
			want = remaining
		}

		raw := make([]byte, rawLen)
		if _, err := io.ReadFull(u.f, raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTruncated, err)
		}

		decoded, err := sniffAndDecode(raw, int(want))
		if err != nil {
			return nil, err
		}

		out = append(out, decoded...)
		remaining -= want
	}

	return out, nil
}

// List parses the archive and emits one event per file.
func (u *Unpacker) List(ctx context.Context) error {
	_, span := startOperationSpan(ctx, KindList, u.cfg.ArchivePath)
	defer span.End()

	u.reporter.Open(KindList, u.cfg.ArchivePath)
	u.reporter.OpenFileSection()

	var totals InfoTotals

	for i := 1; i < len(u.tocEntries); i++ {
		info := u.entryInfo(i)
		u.reporter.OpenFileItem(info)
		u.reporter.CloseFileItem(info.UncompressedSize, info.CompressedSize, StatusOK, i != len(u.tocEntries)-1)
		totals.FileCount++
		totals.UncompressedBytes += info.UncompressedSize
		totals.CompressedBytes += info.CompressedSize
	}

	u.reporter.CloseFileSection()
	u.reporter.Close(totals)

	return nil
}

// Info is like List but additionally reports aggregate header metadata and
// a compression-scheme breakdown.
func (u *Unpacker) Info(ctx context.Context) (InfoTotals, error) {
	_, span := startOperationSpan(ctx, KindInfo, u.cfg.ArchivePath)
	defer span.End()

	u.reporter.Open(KindInfo, u.cfg.ArchivePath)
	u.reporter.OpenFileSection()

	totals := InfoTotals{Header: u.header}

	for i := 1; i < len(u.tocEntries); i++ {
		info := u.entryInfo(i)
		u.reporter.OpenFileItem(info)
		u.reporter.CloseFileItem(info.UncompressedSize, info.CompressedSize, StatusOK, i != len(u.tocEntries)-1)

		totals.FileCount++
		totals.UncompressedBytes += info.UncompressedSize
		totals.CompressedBytes += info.CompressedSize

		switch u.entryScheme(i) {
		case blockStored:
			totals.StoredEntries++
		case blockZlib:
			totals.ZlibEntries++
		case blockLZMA:
			totals.LZMAEntries++
		}
	}

	u.reporter.CloseFileSection()
	u.reporter.Close(totals)

	return totals, nil
}

// entryScheme sniffs the first block of entry idx to classify it for Info
// totals. A multi-block entry could mix schemes across blocks; this
// reports the scheme of its first block only.
func (u *Unpacker) entryScheme(idx int) blockEncoding {
	e := u.tocEntries[idx]

	if int(e.BlockOffset) >= len(u.blockLens) || u.blockCountsPerEntry()[idx] == 0 {
		return blockStored
	}

	raw := make([]byte, 6)

	if _, err := u.f.ReadAt(raw, int64(e.FileOffset)); err != nil {
		return blockStored
	}

	switch {
	case isXZMagic(raw):
		return blockLZMA
	case isZlibMagic(raw):
		return blockZlib
	default:
		return blockStored
	}
}

// Extract decompresses entries matching filter into cfg.TargetDir (the
// current directory if unset). A nil or empty filter extracts every
// entry. Patterns are matched as exact stored-path strings; case folding
// is applied on both sides when the archive was created with
// FlagIgnoreCase. The archive was already opened by OpenUnpacker, so
// chdir'ing here does not affect its file handle; the original working
// directory is restored before Extract returns.
func (u *Unpacker) Extract(ctx context.Context, filter []string) error {
	if u.cfg.TargetDir != "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrTargetDirMissing, err)
		}

		if err := os.Chdir(u.cfg.TargetDir); err != nil {
			return fmt.Errorf("%w: %v", ErrTargetDirMissing, err)
		}

		defer os.Chdir(wd)
	}

	_, span := startOperationSpan(ctx, KindUnpack, u.cfg.ArchivePath)
	defer span.End()

	u.reporter.Open(KindUnpack, u.cfg.ArchivePath)
	u.reporter.OpenFileSection()

	ignoreCase := u.header.Flags.Has(FlagIgnoreCase)

	var totals InfoTotals
	var failures int

	for i := 1; i < len(u.tocEntries); i++ {
		info := u.entryInfo(i)

		if !matchesFilter(info.Path, filter, ignoreCase) {
			continue
		}

		fileCtx, fileSpan := startFileSpan(ctx, "extract", info.Path)

		u.reporter.OpenFileItem(info)

		status, err := u.extractOne(i, info)
		if err != nil {
			recordSpanError(fileSpan, err)
			failures++
		}

		moreFollow := i != len(u.tocEntries)-1
		u.reporter.CloseFileItem(info.UncompressedSize, info.CompressedSize, status, moreFollow)

		if status == StatusOK {
			totals.FileCount++
			totals.UncompressedBytes += info.UncompressedSize
			totals.CompressedBytes += info.CompressedSize
		}

		fileSpan.End()
		_ = fileCtx
	}

	u.reporter.CloseFileSection()
	u.reporter.Close(totals)

	if failures > 0 {
		return fmt.Errorf("%w: %d entries failed", ErrDecompressFailed, failures)
	}

	return nil
}

// extractOne resolves the output path, applies overwrite/skip policy, and
// writes the decompressed payload of TOC index idx.
func (u *Unpacker) extractOne(idx int, info EntryInfo) (ItemStatus, error) {
	outPath, err := outputPathFor(info.Path, u.cfg)
	if err != nil {
		return StatusFailed, err
	}

	if _, statErr := os.Stat(outPath); statErr == nil {
		if u.cfg.SkipExistingFiles && !u.cfg.Overwrite {
			return StatusSkipped, nil
		}

		if !u.cfg.Overwrite {
			return StatusExists, ErrOutputExists
		}
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return StatusFailed, err
	}

	payload, err := u.readEntryPayload(idx)
	if err != nil {
		return StatusFailed, err
	}

	out, err := os.OpenFile(outPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return StatusFailed, err
	}
	defer out.Close()

	bw := bufio.NewWriter(out)
	if _, err := bw.Write(payload); err != nil {
		return StatusFailed, err
	}

	if err := bw.Flush(); err != nil {
		return StatusFailed, err
	}

	return StatusOK, nil
}

func (u *Unpacker) readEntryPayloadByPath(info EntryInfo) ([]byte, error) {
	for i := 1; i < len(u.tocEntries); i++ {
		if u.entryInfo(i).Path == info.Path {
			return u.readEntryPayload(i)
		}
	}

	return nil, ErrEntryNotFound
}

// outputPathFor resolves a stored path to a filesystem destination under
// the current directory, rejecting paths that would escape it.
func outputPathFor(storedPath string, cfg Config) (string, error) {
	clean := strings.TrimPrefix(storedPath, "/")

	if cfg.TrimPath {
		clean = filepath.Base(clean)
	}

	clean = filepath.FromSlash(clean)

	if filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %s", ErrInvalidExtractPath, storedPath)
	}

	joined := filepath.Join(".", clean)
	rel, err := filepath.Rel(".", joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, storedPath)
	}

	return joined, nil
}

// matchesFilter reports whether path should be extracted given filter
// (nil/empty means "extract everything").
func matchesFilter(path string, filter []string, ignoreCase bool) bool {
	if len(filter) == 0 {
		return true
	}

	for _, f := range filter {
		if pathsEqual(path, f, ignoreCase) {
			return true
		}
	}

	return false
}

func pathsEqual(a, b string, ignoreCase bool) bool {
	if ignoreCase {
		return strings.EqualFold(a, b)
	}

	return a == b
}

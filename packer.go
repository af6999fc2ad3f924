// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// packCopyBufferPool reuses read buffers across block reads, the same
// sync.Pool-backed-buffer idiom the teacher's writer.go uses for its
// streaming copies.
var packCopyBufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, defaultBlockSize)

		return &b
	},
}

// Packer drives the byte-order, digest, path-set, codec, pool, and format
// layers to produce one archive from an ordered set of input paths.
type Packer struct {
	cfg      Config
	reporter Reporter
}

// NewPacker returns a Packer bound to cfg and reporter. A nil reporter is
// replaced with NopReporter.
func NewPacker(cfg Config, reporter Reporter) *Packer {
	if reporter == nil {
		reporter = NopReporter{}
	}

	return &Packer{cfg: cfg.applyDefaults(), reporter: reporter}
}

// packFileEntry is the packer's runtime bookkeeping for one input file.
type packFileEntry struct {
	sourcePath string
	record     FileRecord
}

// Pack packs every path in set into cfg.ArchivePath. When cfg.SourceDir is
// set, the archive path is resolved to its absolute form first and the
// process chdirs into SourceDir for the duration of the pack so that
// relative entries in set resolve against it; the original working
// directory is restored before Pack returns.
func (p *Packer) Pack(ctx context.Context, set *PathSet) (PackResult, error) {
	start := time.Now()

	archivePath := p.cfg.ArchivePath

	if p.cfg.SourceDir != "" {
		abs, err := filepath.Abs(archivePath)
		if err != nil {
			return PackResult{}, fmt.Errorf("%w: %v", ErrSourceMissing, err)
		}

		archivePath = abs

		wd, err := os.Getwd()
		if err != nil {
			return PackResult{}, fmt.Errorf("%w: %v", ErrSourceMissing, err)
		}

		if err := os.Chdir(p.cfg.SourceDir); err != nil {
			return PackResult{}, fmt.Errorf("%w: %v", ErrSourceMissing, err)
		}

		defer os.Chdir(wd)
	}

	effective := *p
	effective.cfg.ArchivePath = archivePath

	ctx, span := startOperationSpan(ctx, KindPack, archivePath)
	defer span.End()

	effective.reporter.Open(KindPack, archivePath)

	result, err := effective.pack(ctx, set)
	if err != nil {
		recordSpanError(span, err)
		effective.reporter.Error(err.Error())
		effective.cfg.Logger.Error("pack failed", "archive", archivePath, "error", err)

		return PackResult{}, err
	}

	result.Duration = time.Since(start)
	effective.reporter.Close(InfoTotals{
		FileCount:         result.WrittenEntries,
		UncompressedBytes: uint64(result.UncompressedBytes),
		CompressedBytes:   uint64(result.CompressedBytes),
	})
	effective.cfg.Logger.Info("pack complete", "archive", archivePath,
		"entries", result.WrittenEntries, "uncompressed", result.UncompressedBytes,
		"compressed", result.CompressedBytes)

	return result, nil
}

func (p *Packer) pack(ctx context.Context, set *PathSet) (PackResult, error) {
	if set.Len() == 0 {
		return PackResult{}, ErrEmptyPathSet
	}

	if !p.cfg.Overwrite {
		if _, err := os.Stat(p.cfg.ArchivePath); err == nil {
			return PackResult{}, ErrArchiveExists
		}
	}

	codec, err := newBlockCodec(p.cfg.Compression, p.cfg.CompressionLevel, p.cfg.Extreme)
	if err != nil {
		return PackResult{}, err
	}

	storedPaths := make([]string, set.Len())
	for i, src := range set.Paths() {
		storedPaths[i] = storedPathFor(src, p.cfg)
	}

	manifest := strings.Join(storedPaths, "\n")

	entries := make([]packFileEntry, len(storedPaths))
	totalBlocks := blockCount(uint64(len(manifest)), p.cfg.BlockSize)

	for i, src := range set.Paths() {
		info, err := os.Stat(src)
		if err != nil {
			return PackResult{}, fmt.Errorf("%w: %s: %v", ErrSourceMissing, src, err)
		}

		size := uint64(info.Size())
		entries[i] = packFileEntry{
			sourcePath: src,
			record: FileRecord{
				StoredPath:        storedPaths[i],
				NameDigest:        nameDigest(storedPaths[i]),
				UncompressedSize:  size,
				BlockCount:        blockCount(size, p.cfg.BlockSize),
			},
		}
		totalBlocks += entries[i].record.BlockCount
	}

	width := blockTableWidth(p.cfg.BlockSize)
	if width == 0 {
		return PackResult{}, ErrBadBlockSize
	}

	tocEntries := uint32(len(entries) + 1)
	tocLength := tocLengthFor(tocEntries, totalBlocks, width)

	f, err := os.OpenFile(p.cfg.ArchivePath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return PackResult{}, fmt.Errorf("%w: %v", ErrSourceMissing, err)
	}
	defer f.Close()

	if err := reserveRegion(f, int64(tocLength)); err != nil {
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, err
	}

	if _, err := f.Seek(int64(tocLength), io.SeekStart); err != nil {
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, err
	}

	w := bufio.NewWriterSize(f, 1<<20)

	blockLengths := make([]uint32, 0, totalBlocks)
	runningOffset := uint64(tocLength)

	manifestRecord := FileRecord{
		StoredPath:       "",
		NameDigest:       [digestSize]byte{},
		BlockIndex:       0,
		BlockCount:       blockCount(uint64(len(manifest)), p.cfg.BlockSize),
		UncompressedSize: uint64(len(manifest)),
		FileOffset:       runningOffset,
	}

	manifestCompressed, manifestLengths, err := p.streamBlocks(w, codec, []byte(manifest))
	if err != nil {
		f.Close()
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, err
	}

	manifestRecord.CompressedSize = manifestCompressed
	runningOffset += manifestCompressed
	blockLengths = append(blockLengths, manifestLengths...)

	p.reporter.OpenFileSection()

	pool := newOrderedPool(p.cfg.NumThreads, scratchSize(p.cfg.BlockSize))
	observer, observes := p.reporter.(BlockCodecObserver)

	var (
		mu                sync.Mutex
		packErr           error
		writtenEntries    int
		sumUncompressed   int64
		sumCompressed     int64
		blockIndexCounter = uint32(len(manifestLengths))
	)

	for i := range entries {
		if packErr != nil {
			break
		}

		e := &entries[i]
		e.record.BlockIndex = blockIndexCounter
		blockIndexCounter += e.record.BlockCount

		src, openErr := os.Open(e.sourcePath)
		if openErr != nil {
			mu.Lock()
			packErr = fmt.Errorf("%w: %w: %s: %v", ErrPackFailed, ErrSourceMissing, e.sourcePath, openErr)
			mu.Unlock()

			break
		}

		numBlocks := int(e.record.BlockCount)
		fileCtx, fileSpan := startFileSpan(ctx, "pack", e.record.StoredPath)

		if numBlocks == 0 {
			t := pool.acquire()
			entryIdx := i

			pool.submit(t, func(gate func(), _ *bytes.Buffer) {
				gate()

				mu.Lock()
				defer mu.Unlock()

				if packErr != nil {
					return
				}

				entries[entryIdx].record.FileOffset = runningOffset
				p.reporter.OpenFileItem(EntryInfo{
					Path:             entries[entryIdx].record.StoredPath,
					UncompressedSize: entries[entryIdx].record.UncompressedSize,
				})

				rec := entries[entryIdx].record
				p.reporter.CloseFileItem(rec.UncompressedSize, rec.CompressedSize, StatusOK, entryIdx != len(entries)-1)
				writtenEntries++
				sumUncompressed += int64(rec.UncompressedSize)
				sumCompressed += int64(rec.CompressedSize)
			})
		}

		for bi := 0; bi < numBlocks; bi++ {
			bufPtr := packCopyBufferPool.Get().(*[]byte)
			buf := *bufPtr
			if cap(buf) < int(p.cfg.BlockSize) {
				buf = make([]byte, p.cfg.BlockSize)
			}
			buf = buf[:p.cfg.BlockSize]

			n, readErr := io.ReadFull(src, buf)
			if readErr == io.ErrUnexpectedEOF {
				readErr = nil
			}

			if readErr != nil {
				packCopyBufferPool.Put(bufPtr)
				mu.Lock()
				packErr = fmt.Errorf("%w: %w: %s: %v", ErrPackFailed, ErrSourceMissing, e.sourcePath, readErr)
				mu.Unlock()

				break
			}

			blockCopy := append([]byte(nil), buf[:n]...)
			packCopyBufferPool.Put(bufPtr)

			t := pool.acquire()
			isFirst := bi == 0
			isLast := bi == numBlocks-1
			entryIdx := i

			pool.submit(t, func(gate func(), scratch *bytes.Buffer) {
				encodeStart := time.Now()
				enc, payload := codec.encode(blockCopy, scratch)

				if observes {
					observer.ObserveBlockCodec(enc.String(), time.Since(encodeStart).Seconds())
				}

				gate()

				mu.Lock()
				defer mu.Unlock()

				if packErr != nil {
					return
				}

				if isFirst {
					entries[entryIdx].record.FileOffset = runningOffset
					p.reporter.OpenFileItem(EntryInfo{
						Path:             entries[entryIdx].record.StoredPath,
						UncompressedSize: entries[entryIdx].record.UncompressedSize,
					})
				}

				if _, werr := w.Write(payload); werr != nil {
					packErr = fmt.Errorf("%w: %v", ErrPackFailed, werr)

					return
				}

				blockLengths = append(blockLengths, encodeBlockLength(uint32(len(payload)), p.cfg.BlockSize))
				runningOffset += uint64(len(payload))
				entries[entryIdx].record.CompressedSize += uint64(len(payload))

				if isLast {
					rec := entries[entryIdx].record
					p.reporter.CloseFileItem(rec.UncompressedSize, rec.CompressedSize, StatusOK, entryIdx != len(entries)-1)
					writtenEntries++
					sumUncompressed += int64(rec.UncompressedSize)
					sumCompressed += int64(rec.CompressedSize)
				}
			})
		}

		src.Close()
		fileSpan.End()
		_ = fileCtx

		mu.Lock()
		stop := packErr != nil
		mu.Unlock()

		if stop {
			break
		}
	}

	pool.drain()
	p.reporter.CloseFileSection()

	if packErr != nil {
		f.Close()
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, packErr
	}

	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, fmt.Errorf("%w: %v", ErrPackFailed, err)
	}

	header := Header{
		VersionMajor: 1,
		VersionMinor: 4,
		Compression:  p.cfg.Compression,
		TocLength:    tocLength,
		TocEntrySize: tocEntrySize,
		TocEntries:   tocEntries,
		BlockSize:    p.cfg.BlockSize,
		Flags:        p.cfg.Flags,
	}

	if err := p.writeTocAndHeader(f, header, manifestRecord, entries, blockLengths, width); err != nil {
		f.Close()
		os.Remove(p.cfg.ArchivePath)

		return PackResult{}, err
	}

	return PackResult{
		WrittenEntries:    writtenEntries,
		UncompressedBytes: sumUncompressed,
		CompressedBytes:   sumCompressed,
		TocLength:         tocLength,
	}, nil
}

// streamBlocks compresses data block by block (synchronously; the
// manifest is never parallelized since it always precedes the ordered
// pool's file blocks) and writes the compressed payload to w, returning
// the total bytes written and the sentinel-encoded block-table entries.
func (p *Packer) streamBlocks(w io.Writer, codec blockCodec, data []byte) (uint64, []uint32, error) {
	blocks := splitBlocks(data, p.cfg.BlockSize)
	lengths := make([]uint32, 0, len(blocks))

	observer, observes := p.reporter.(BlockCodecObserver)
	scratch := &bytes.Buffer{}
	scratch.Grow(scratchSize(p.cfg.BlockSize))

	var total uint64

	for _, b := range blocks {
		encodeStart := time.Now()
		enc, payload := codec.encode(b, scratch)

		if observes {
			observer.ObserveBlockCodec(enc.String(), time.Since(encodeStart).Seconds())
		}

		if _, err := w.Write(payload); err != nil {
			return 0, nil, fmt.Errorf("%w: %v", ErrPackFailed, err)
		}

		lengths = append(lengths, encodeBlockLength(uint32(len(payload)), p.cfg.BlockSize))
		total += uint64(len(payload))
	}

	return total, lengths, nil
}

// writeTocAndHeader seeks back to the start of the file and writes the
// final header, TOC, and block table now that every size is known.
func (p *Packer) writeTocAndHeader(f *os.File, header Header, manifest FileRecord, entries []packFileEntry, blockLengths []uint32, width int) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrPackFailed, err)
	}

	w := bufio.NewWriter(f)

	if err := writeHeader(w, header); err != nil {
		return fmt.Errorf("%w: %v", ErrPackFailed, err)
	}

	if err := writeTocEntry(w, TocEntry{
		NameDigest:       manifest.NameDigest,
		BlockOffset:      manifest.BlockIndex,
		UncompressedSize: manifest.UncompressedSize,
		FileOffset:       manifest.FileOffset,
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrPackFailed, err)
	}

	for _, e := range entries {
		if err := writeTocEntry(w, TocEntry{
			NameDigest:       e.record.NameDigest,
			BlockOffset:      e.record.BlockIndex,
			UncompressedSize: e.record.UncompressedSize,
			FileOffset:       e.record.FileOffset,
		}); err != nil {
			return fmt.Errorf("%w: %v", ErrPackFailed, err)
		}
	}

	if err := writeBlockTable(w, blockLengths, width); err != nil {
		return fmt.Errorf("%w: %v", ErrPackFailed, err)
	}

	return w.Flush()
}

// reserveRegion pre-sizes f to n bytes so the payload region can be
// streamed at its final offsets before the header/TOC are known.
func reserveRegion(f *os.File, n int64) error {
	return f.Truncate(n)
}

// blockCount returns ceil(size / blockSize).
func blockCount(size uint64, blockSize uint32) uint32 {
	if size == 0 {
		return 0
	}

	bs := uint64(blockSize)

	return uint32((size + bs - 1) / bs)
}

// splitBlocks splits data into blockSize-sized chunks, the last possibly
// shorter. An empty input yields no blocks.
func splitBlocks(data []byte, blockSize uint32) [][]byte {
	if len(data) == 0 {
		return nil
	}

	bs := int(blockSize)

	blocks := make([][]byte, 0, (len(data)+bs-1)/bs)

	for off := 0; off < len(data); off += bs {
		end := off + bs
		if end > len(data) {
			end = len(data)
		}

		blocks = append(blocks, data[off:end])
	}

	return blocks
}

// storedPathFor maps one input path to its stored form, applying in order:
// drive-prefix/backslash normalization, trim_path, and the
// absolute/relative flag, per the packer's path normalization step.
func storedPathFor(p string, cfg Config) string {
	p = normalizeSlashes(p)

	if cfg.TrimPath {
		p = path.Base(p)
	}

	if cfg.Flags.Has(FlagAbsolutePaths) {
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
	} else {
		p = strings.TrimLeft(p, "/")
	}

	return p
}

// normalizeSlashes strips a Windows drive prefix ("C:") and converts
// backslashes to forward slashes.
func normalizeSlashes(p string) string {
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		p = p[2:]
	}

	return strings.ReplaceAll(p, `\`, "/")
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

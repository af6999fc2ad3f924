package psarc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPackRefusesExistingArchiveWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "out.psarc")

	if err := os.WriteFile(archive, []byte("existing"), 0o644); err != nil {
		t.Fatalf("seed archive: %v", err)
	}

	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("a"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(srcDir)

	set := NewPathSet()
	set.Add("a.txt")

	p := NewPacker(Config{ArchivePath: archive}, NopReporter{})

	if _, err := p.Pack(context.Background(), set); err == nil {
		t.Fatal("expected ErrArchiveExists")
	}
}

func TestPackEmptyPathSetFails(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "out.psarc")
	p := NewPacker(Config{ArchivePath: archive}, NopReporter{})

	if _, err := p.Pack(context.Background(), NewPathSet()); err == nil {
		t.Fatal("expected ErrEmptyPathSet")
	}
}

func TestPackMissingSourceFileFails(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(dir)

	set := NewPathSet()
	set.Add("does-not-exist.txt")

	archive := filepath.Join(t.TempDir(), "out.psarc")
	p := NewPacker(Config{ArchivePath: archive}, NopReporter{})

	if _, err := p.Pack(context.Background(), set); err == nil {
		t.Fatal("expected ErrSourceMissing")
	}

	if _, statErr := os.Stat(archive); !os.IsNotExist(statErr) {
		t.Fatal("partial archive should have been removed on failure")
	}
}

func TestBlockCountAndSplit(t *testing.T) {
	t.Parallel()

	if got := blockCount(0, 100); got != 0 {
		t.Fatalf("blockCount(0, 100) = %d, want 0", got)
	}

	if got := blockCount(250, 100); got != 3 {
		t.Fatalf("blockCount(250, 100) = %d, want 3", got)
	}

	blocks := splitBlocks(make([]byte, 250), 100)
	if len(blocks) != 3 || len(blocks[2]) != 50 {
		t.Fatalf("splitBlocks produced %d blocks, last len %d", len(blocks), len(blocks[len(blocks)-1]))
	}
}

func TestPackUsesSourceDirAndResolvesArchivePath(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	outDir := t.TempDir()
	wd, _ := os.Getwd()
	defer os.Chdir(wd)
	os.Chdir(outDir)

	set := NewPathSet()
	set.Add("a.txt")

	cfg := Config{
		ArchivePath: "relative.psarc",
		SourceDir:   srcDir,
		Compression: CompressionStore,
		BlockSize:   65536,
	}

	p := NewPacker(cfg, NopReporter{})
	if _, err := p.Pack(context.Background(), set); err != nil {
		t.Fatalf("Pack: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "relative.psarc")); err != nil {
		t.Fatalf("expected archive at path resolved against the original working directory: %v", err)
	}

	if _, err := os.Stat(filepath.Join(srcDir, "relative.psarc")); !os.IsNotExist(err) {
		t.Fatal("archive should not have landed inside SourceDir")
	}

	if cwdAfter, _ := os.Getwd(); cwdAfter != outDir {
		t.Fatalf("working directory not restored: got %q, want %q", cwdAfter, outDir)
	}
}

func TestStoredPathForFlags(t *testing.T) {
	t.Parallel()

	got := storedPathFor(`sub\dir\file.txt`, Config{})
	if got != "sub/dir/file.txt" {
		t.Fatalf("got %q, want backslash-normalized relative path", got)
	}

	got = storedPathFor("/abs/file.txt", Config{})
	if got != "abs/file.txt" {
		t.Fatalf("got %q, want leading slash stripped", got)
	}

	got = storedPathFor("dir/file.txt", Config{Flags: FlagAbsolutePaths})
	if got != "/dir/file.txt" {
		t.Fatalf("got %q, want leading slash added", got)
	}

	got = storedPathFor("dir/file.txt", Config{TrimPath: true})
	if got != "file.txt" {
		t.Fatalf("got %q, want basename only", got)
	}
}

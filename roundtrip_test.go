package psarc

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func packTempDir(t *testing.T, files map[string][]byte, cfg Config) PackResult {
	t.Helper()

	srcDir := t.TempDir()

	for name, content := range files {
		full := filepath.Join(srcDir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, content, 0o644))
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(srcDir))

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	set := NewPathSet()
	for _, name := range names {
		set.Add(name)
	}

	p := NewPacker(cfg, NopReporter{})
	result, err := p.Pack(context.Background(), set)
	require.NoError(t, err)

	return result
}

func TestS1Store(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "out.psarc")
	binary := make([]byte, 256)
	for i := range binary {
		binary[i] = byte(i)
	}

	files := map[string][]byte{
		"a.txt":     []byte("hello\n"),
		"sub/b.bin": binary,
	}

	_ = packTempDir(t, files, Config{
		ArchivePath: archive,
		Compression: CompressionStore,
		BlockSize:   65536,
	})

	u, err := OpenUnpacker(Config{ArchivePath: archive}, NopReporter{})
	require.NoError(t, err)
	defer u.Close()

	require.Equal(t, 3, len(u.tocEntries))
	require.Equal(t, 2, u.width)
	require.Equal(t, "a.txt\nsub/b.bin", string(mustManifest(t, u)))

	require.Equal(t, uint64(6), u.entryInfo(1).CompressedSize)
	require.Equal(t, uint64(256), u.entryInfo(2).CompressedSize)
}

func mustManifest(t *testing.T, u *Unpacker) []byte {
	t.Helper()

	payload, err := u.readEntryPayload(0)
	require.NoError(t, err)

	return payload
}

func TestRoundTripByteIdentical(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "out.psarc")

	files := map[string][]byte{
		"a.txt":     []byte("hello\n"),
		"sub/b.bin": bytes.Repeat([]byte{0xAA, 0xBB}, 128),
	}

	_ = packTempDir(t, files, Config{
		ArchivePath: archive,
		Compression: CompressionZlib,
		BlockSize:   65536,
	})

	extractDir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(extractDir))

	u, err := OpenUnpacker(Config{ArchivePath: archive, Overwrite: true}, NopReporter{})
	require.NoError(t, err)
	defer u.Close()

	require.NoError(t, u.Extract(context.Background(), nil))

	for name, want := range files {
		got, err := os.ReadFile(filepath.Join(extractDir, filepath.FromSlash(name)))
		require.NoError(t, err)
		require.True(t, bytes.Equal(got, want), "entry %s does not round-trip", name)
	}
}

func TestS4TrimPath(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "out.psarc")

	files := map[string][]byte{
		"dir1/x": []byte("one"),
		"dir2/x": []byte("two"),
	}

	_ = packTempDir(t, files, Config{
		ArchivePath: archive,
		Compression: CompressionStore,
		BlockSize:   65536,
		TrimPath:    true,
	})

	u, err := OpenUnpacker(Config{ArchivePath: archive}, NopReporter{})
	require.NoError(t, err)
	defer u.Close()

	manifest, err := u.readEntryPayload(0)
	require.NoError(t, err)
	require.Equal(t, "x\nx", string(manifest))
}

func TestS5IgnoreCase(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "out.psarc")

	files := map[string][]byte{
		"Foo.TXT":     []byte("foo"),
		"bar/Baz.txt": []byte("baz"),
	}

	_ = packTempDir(t, files, Config{
		ArchivePath: archive,
		Compression: CompressionStore,
		BlockSize:   65536,
		Flags:       FlagIgnoreCase,
	})

	extractDir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(wd)
	require.NoError(t, os.Chdir(extractDir))

	u, err := OpenUnpacker(Config{ArchivePath: archive}, NopReporter{})
	require.NoError(t, err)
	defer u.Close()

	require.NoError(t, u.Extract(context.Background(), []string{"foo.txt"}))

	got, err := os.ReadFile(filepath.Join(extractDir, "Foo.TXT"))
	require.NoError(t, err)
	require.Equal(t, "foo", string(got))

	_, err = os.Stat(filepath.Join(extractDir, "bar", "Baz.txt"))
	require.True(t, os.IsNotExist(err))
}

func TestS6ParallelDeterminism(t *testing.T) {
	files := make(map[string][]byte)
	for i := 0; i < 64; i++ {
		size := (i * 997) % (2*65536 + 2)
		data := make([]byte, size)
		for j := range data {
			data[j] = byte(i + j)
		}
		files[filepath.Join("f", fmt.Sprintf("%04d", i))] = data
	}

	var archives [][]byte

	for _, threads := range []int{1, 4, 16} {
		archive := filepath.Join(t.TempDir(), "out.psarc")

		_ = packTempDir(t, files, Config{
			ArchivePath: archive,
			Compression: CompressionZlib,
			BlockSize:   65536,
			NumThreads:  threads,
		})

		data, err := os.ReadFile(archive)
		require.NoError(t, err)

		archives = append(archives, data)
	}

	for i := 1; i < len(archives); i++ {
		require.True(t, bytes.Equal(archives[0], archives[i]), "archive %d differs from archive 0", i)
	}
}

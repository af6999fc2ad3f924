package psarc

import (
	"bytes"
	"testing"
)

func TestStoreCodecEchoesInput(t *testing.T) {
	t.Parallel()

	c := storeCodec{}
	src := []byte("hello\n")

	enc, out := c.encode(src, &bytes.Buffer{})
	if enc != blockStored {
		t.Fatalf("got encoding %v, want blockStored", enc)
	}

	if !bytes.Equal(out, src) {
		t.Fatalf("got %q, want %q", out, src)
	}
}

func TestZlibCodecRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := newBlockCodec(CompressionZlib, 9, false)
	if err != nil {
		t.Fatalf("newBlockCodec: %v", err)
	}

	src := bytes.Repeat([]byte("compressible payload "), 1000)

	enc, out := c.encode(src, &bytes.Buffer{})
	if enc != blockZlib {
		t.Fatalf("got encoding %v, want blockZlib", enc)
	}

	if !isZlibMagic(out) {
		t.Fatal("compressed output should sniff as zlib")
	}

	decoded, err := sniffAndDecode(out, len(src))
	if err != nil {
		t.Fatalf("sniffAndDecode: %v", err)
	}

	if !bytes.Equal(decoded, src) {
		t.Fatal("decoded payload does not match source")
	}
}

func TestZlibRejectsExtreme(t *testing.T) {
	t.Parallel()

	if _, err := newBlockCodec(CompressionZlib, 5, true); err == nil {
		t.Fatal("extreme should be rejected for zlib")
	}
}

func TestStoreRejectsExtreme(t *testing.T) {
	t.Parallel()

	if _, err := newBlockCodec(CompressionStore, 0, true); err == nil {
		t.Fatal("extreme should be rejected for store")
	}
}

func TestStoreIfNotSmaller(t *testing.T) {
	t.Parallel()

	c, err := newBlockCodec(CompressionZlib, 9, false)
	if err != nil {
		t.Fatalf("newBlockCodec: %v", err)
	}

	// High-entropy input that zlib cannot shrink.
	src := []byte{0x4B, 0x92, 0x1F, 0x00, 0xDE, 0xAD, 0xBE, 0xEF}

	enc, out := c.encode(src, &bytes.Buffer{})
	if enc == blockZlib && len(out) < len(src) {
		// Compressible by chance is fine; just assert the invariant.
	}

	if len(out) > len(src) && enc != blockStored {
		t.Fatalf("compressed output (%d bytes) exceeds input (%d) without falling back to store", len(out), len(src))
	}
}

func TestLZMACodecRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := newBlockCodec(CompressionLZMA, 6, true)
	if err != nil {
		t.Fatalf("newBlockCodec: %v", err)
	}

	src := make([]byte, 1<<16)

	enc, out := c.encode(src, &bytes.Buffer{})
	if enc != blockLZMA && enc != blockStored {
		t.Fatalf("unexpected encoding %v", enc)
	}

	if enc == blockLZMA {
		if !isXZMagic(out) {
			t.Fatal("compressed output should sniff as XZ")
		}

		decoded, err := sniffAndDecode(out, len(src))
		if err != nil {
			t.Fatalf("sniffAndDecode: %v", err)
		}

		if !bytes.Equal(decoded, src) {
			t.Fatal("decoded payload does not match source")
		}
	}
}

func TestSniffAndDecodeStoredFallback(t *testing.T) {
	t.Parallel()

	src := []byte("not a compressed magic at all")

	out, err := sniffAndDecode(src, len(src))
	if err != nil {
		t.Fatalf("sniffAndDecode: %v", err)
	}

	if !bytes.Equal(out, src) {
		t.Fatal("non-magic payload should be treated as stored")
	}
}

func TestScratchSizeGenerous(t *testing.T) {
	t.Parallel()

	if got := scratchSize(10); got < 74 {
		t.Fatalf("scratchSize(10) = %d, want >= block_size+64", got)
	}

	if got := scratchSize(65536); got != 2*65536 {
		t.Fatalf("scratchSize(65536) = %d, want %d", got, 2*65536)
	}
}

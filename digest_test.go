package psarc

import (
	"crypto/md5"
	"testing"
)

func TestNameDigest(t *testing.T) {
	t.Parallel()

	want := md5.Sum([]byte("sub/b.bin"))
	got := nameDigest("sub/b.bin")

	if got != want {
		t.Fatalf("got %x, want %x", got, want)
	}
}

func TestIsManifestDigest(t *testing.T) {
	t.Parallel()

	if !isManifestDigest([digestSize]byte{}) {
		t.Fatal("zero digest should be recognized as the manifest sentinel")
	}

	if isManifestDigest(nameDigest("a.txt")) {
		t.Fatal("non-zero digest must not be recognized as the manifest sentinel")
	}
}

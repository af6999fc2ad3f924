package psarc

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPlainReporterEmitsEvents(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := PlainReporter{W: &buf}

	r.Open(KindPack, "addon.psarc")
	r.OpenFileSection()
	r.OpenFileItem(EntryInfo{Path: "a.txt"})
	r.CloseFileItem(6, 6, StatusOK, true)
	r.CloseFileSection()
	r.Close(InfoTotals{FileCount: 1, UncompressedBytes: 6, CompressedBytes: 6})

	out := buf.String()

	for _, want := range []string{"pack addon.psarc", "a.txt", "ok", "done: 1 files"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output %q missing %q", out, want)
		}
	}
}

func TestMetricsReporterRecordsEntries(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	var buf bytes.Buffer

	m := NewMetricsReporter(reg, PlainReporter{W: &buf})
	m.CloseFileItem(100, 50, StatusOK, false)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	if len(families) == 0 {
		t.Fatal("expected registered metric families")
	}
}

func TestMetricsReporterObservesBlockCodec(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetricsReporter(reg, NopReporter{})

	var obs BlockCodecObserver = m
	obs.ObserveBlockCodec("zlib", 0.001)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	found := false

	for _, f := range families {
		if f.GetName() == "psarc_block_codec_seconds" {
			found = true
		}
	}

	if !found {
		t.Fatal("expected psarc_block_codec_seconds histogram to be registered and observed")
	}
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BlockCodecObserver is implemented by reporters that want per-block codec
// latency fed to them as each block is compressed, independent of the
// coarser per-file CloseFileItem event. MetricsReporter is the only
// implementation; callers should type-assert their Reporter against this
// interface rather than depend on MetricsReporter directly.
type BlockCodecObserver interface {
	ObserveBlockCodec(scheme string, seconds float64)
}

// MetricsReporter decorates a Reporter with Prometheus counters and
// histograms covering entry outcomes, uncompressed/compressed bytes, and
// per-block codec latency, mirroring the ambient observability surface the
// rest of the corpus carries via prometheus/client_golang. It records no
// operation-duration metric.
type MetricsReporter struct {
	Reporter

	entries    *prometheus.CounterVec
	bytesIn    prometheus.Counter
	bytesOut   prometheus.Counter
	blockCodec *prometheus.HistogramVec
}

// NewMetricsReporter wraps next with Prometheus instrumentation,
// registering its collectors on reg.
func NewMetricsReporter(reg prometheus.Registerer, next Reporter) *MetricsReporter {
	m := &MetricsReporter{
		Reporter: next,
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "psarc",
			Name:      "entries_total",
			Help:      "Archive entries processed, by outcome status.",
		}, []string{"status"}),
		bytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psarc",
			Name:      "uncompressed_bytes_total",
			Help:      "Total uncompressed bytes processed.",
		}),
		bytesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "psarc",
			Name:      "compressed_bytes_total",
			Help:      "Total compressed bytes processed.",
		}),
		blockCodec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "psarc",
			Name:      "block_codec_seconds",
			Help:      "Per-block codec latency, by scheme.",
		}, []string{"scheme"}),
	}

	reg.MustRegister(m.entries, m.bytesIn, m.bytesOut, m.blockCodec)

	return m
}

// CloseFileItem records the event's sizes and status before delegating.
func (m *MetricsReporter) CloseFileItem(uncompressed, compressed uint64, status ItemStatus, moreFollow bool) {
	m.entries.WithLabelValues(statusString(status)).Inc()
	m.bytesIn.Add(float64(uncompressed))
	m.bytesOut.Add(float64(compressed))
	m.Reporter.CloseFileItem(uncompressed, compressed, status, moreFollow)
}

// ObserveBlockCodec records one block codec invocation's latency, keyed by
// the scheme actually used (which may differ from the archive-wide
// Compression when store-if-not-smaller applies). Packer calls this on
// every block encode when its Reporter implements BlockCodecObserver;
// Unpacker does not call it.
func (m *MetricsReporter) ObserveBlockCodec(scheme string, seconds float64) {
	m.blockCodec.WithLabelValues(scheme).Observe(seconds)
}

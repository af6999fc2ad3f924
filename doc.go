// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

/*
Package psarc implements the PSARC (PlayStation Archive) container format:
a single-file archive with a fixed header, a table of contents keyed by
MD5 of the stored path, a variable-width block table, and a stream of
per-block compressed payload. It packs a set of input files into an
archive and unpacks/inspects one again.

# Packing

Expand patterns into an ordered, duplicate-suppressed path set, then pack:

	set, err := psarc.Walk([]string{"assets/*.bin", "config.cpp"}, psarc.WalkOptions{
	    Recursive: true,
	})
	if err != nil {
	    return err
	}

	cfg := psarc.Config{
	    ArchivePath:      "addon.psarc",
	    Compression:      psarc.CompressionZlib,
	    CompressionLevel: 9,
	    BlockSize:        65536,
	    NumThreads:       4,
	}

	p := psarc.NewPacker(cfg, psarc.PlainReporter{W: os.Stdout})
	result, err := p.Pack(ctx, set)
	if err != nil {
	    return err
	}
	_ = result.WrittenEntries

Packing with num_threads = 0 or 1 runs every block on the calling
goroutine and produces a byte-identical archive to any higher thread
count; only wall-clock time differs.

# Listing and inspecting

	u, err := psarc.OpenUnpacker(psarc.Config{ArchivePath: "addon.psarc"}, psarc.PlainReporter{W: os.Stdout})
	if err != nil {
	    return err
	}
	defer u.Close()

	if err := u.List(ctx); err != nil {
	    return err
	}

	totals, err := u.Info(ctx)
	if err != nil {
	    return err
	}
	_ = totals.ZlibEntries

# Extracting

Extract everything, or a filtered subset of stored paths:

	u, err := psarc.OpenUnpacker(psarc.Config{
	    ArchivePath: "addon.psarc",
	    Overwrite:   true,
	}, nil)
	if err != nil {
	    return err
	}
	defer u.Close()

	if err := u.Extract(ctx, nil); err != nil {
	    return err
	}

	// Filter is matched case-insensitively when the archive was packed
	// with psarc.FlagIgnoreCase.
	if err := u.Extract(ctx, []string{"scripts/main.c"}); err != nil {
	    return err
	}

# Observability

Wrap any Reporter with Prometheus counters/histograms, and every Pack/List/
Info/Extract call opens an OpenTelemetry span automatically:

	reg := prometheus.NewRegistry()
	reporter := psarc.NewMetricsReporter(reg, psarc.PlainReporter{W: os.Stdout})
	p := psarc.NewPacker(cfg, reporter)

Pack completion totals and pack failures are additionally logged through
Config.Logger (log/slog); a nil logger defaults to slog.Default(). Per-block
codec decisions and unpack operations are not logged.
*/
package psarc

// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/psarc

package psarc

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/woozymasta/psarc")

// startOperationSpan opens one span per Pack/List/Info/Extract invocation.
func startOperationSpan(ctx context.Context, kind OperationKind, archivePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "psarc."+kind.String(),
		trace.WithAttributes(
			attribute.String("psarc.archive_path", archivePath),
			attribute.String("psarc.kind", kind.String()),
		),
	)
}

// startFileSpan opens a per-file child span under the current operation span.
func startFileSpan(ctx context.Context, op string, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "psarc."+op+".file",
		trace.WithAttributes(attribute.String("psarc.entry_path", path)),
	)
}

// recordSpanError records err on span and marks it failed, mirroring the
// span.RecordError-before-propagating pattern the core's error handling
// design calls for.
func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StartChunkSpan opens a span around one chunk's in-chunk pipeline
// (translate → back-translate/score → refine), tagged with the document
// and chunk it belongs to. The caller must call the returned end func
// exactly once, passing the error the chunk's processing produced (nil
// on success) so the span's status reflects the outcome.
func StartChunkSpan(ctx context.Context, documentID string, chunkIndex, atomCount int) (context.Context, func(error)) {
	tracer := Tracer("doctranslate.translation")
	ctx, span := tracer.Start(ctx, SpanChunkProcess, trace.WithAttributes(
		attribute.String(AttrDocumentID, documentID),
		attribute.Int(AttrChunkIndex, chunkIndex),
		attribute.Int(AttrChunkAtomCount, atomCount),
	))

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/store"
)

// InstrumentedStore wraps a store.Store, opening one span per call. It
// implements store.Store itself so it drops into Manager.Config.Store
// unchanged; every method not listed here (the bulk of the interface)
// would just be pass-through boilerplate, so this wrapper only spans the
// calls that matter for latency triage — the two round-trips the
// translation hot path hits once per atom (AppendTrace,
// UpdateAtomTranslation) plus the per-document CreateAtomsBatch insert —
// and embeds the underlying store.Store to satisfy the rest of the
// interface.
type InstrumentedStore struct {
	store.Store
	inner  store.Store
	tracer trace.Tracer
}

// WrapStore returns an InstrumentedStore around inner, named per the
// owning service so span attribution survives in a multi-binary deploy.
func WrapStore(inner store.Store, serviceName string) *InstrumentedStore {
	return &InstrumentedStore{
		Store:  inner,
		inner:  inner,
		tracer: Tracer(serviceName + ".store"),
	}
}

func (s *InstrumentedStore) withSpan(ctx context.Context, method string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, SpanStoreCall, trace.WithAttributes(
		attribute.String(AttrStoreMethod, method),
	))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (s *InstrumentedStore) CreateAtomsBatch(ctx context.Context, documentID string, atoms []models.Atom) ([]models.Atom, error) {
	var out []models.Atom
	err := s.withSpan(ctx, "CreateAtomsBatch", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = s.inner.CreateAtomsBatch(ctx, documentID, atoms)
		return innerErr
	})
	return out, err
}

func (s *InstrumentedStore) UpdateAtomTranslation(ctx context.Context, atomID, translatedText string, status models.AtomStatus, score *float64, summary string) error {
	return s.withSpan(ctx, "UpdateAtomTranslation", func(ctx context.Context) error {
		return s.inner.UpdateAtomTranslation(ctx, atomID, translatedText, status, score, summary)
	})
}

func (s *InstrumentedStore) AppendTrace(ctx context.Context, t models.Trace) (models.Trace, error) {
	var out models.Trace
	err := s.withSpan(ctx, "AppendTrace", func(ctx context.Context) error {
		var innerErr error
		out, innerErr = s.inner.AppendTrace(ctx, t)
		return innerErr
	})
	return out, err
}

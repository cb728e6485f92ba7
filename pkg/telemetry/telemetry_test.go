package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/models"
	"github.com/doctranslate/doctranslate/pkg/store"
)

func TestInit_Disabled(t *testing.T) {
	tp, err := Init(context.Background(), Config{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, tp)

	// A no-op provider still hands back a usable tracer/span pair.
	_, span := tp.Tracer("test").Start(context.Background(), "span")
	span.End()
}

func TestInit_EnabledWithoutExporter(t *testing.T) {
	// Enabled with a nil exporter falls back to the no-op provider rather
	// than panicking on a nil SpanExporter.
	tp, err := Init(context.Background(), Config{Enabled: true, ServiceName: "doctranslate"}, nil)
	require.NoError(t, err)
	require.NotNil(t, tp)
}

func TestTracer_SafeBeforeInit(t *testing.T) {
	tracer := Tracer("doctranslate.test")
	_, span := tracer.Start(context.Background(), "span")
	span.End()
}

type fakeStore struct {
	store.Store
	createErr error
	updateErr error
	appendErr error
}

func (f *fakeStore) CreateAtomsBatch(_ context.Context, _ string, atoms []models.Atom) ([]models.Atom, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return atoms, nil
}

func (f *fakeStore) UpdateAtomTranslation(_ context.Context, _, _ string, _ models.AtomStatus, _ *float64, _ string) error {
	return f.updateErr
}

func (f *fakeStore) AppendTrace(_ context.Context, t models.Trace) (models.Trace, error) {
	if f.appendErr != nil {
		return models.Trace{}, f.appendErr
	}
	return t, nil
}

func TestInstrumentedStore_PassesThroughResults(t *testing.T) {
	inner := &fakeStore{}
	wrapped := WrapStore(inner, "test")

	atoms, err := wrapped.CreateAtomsBatch(context.Background(), "doc-1", []models.Atom{{SourceText: "hi"}})
	require.NoError(t, err)
	assert.Len(t, atoms, 1)

	require.NoError(t, wrapped.UpdateAtomTranslation(context.Background(), "atom-1", "hola", models.AtomFinalized, nil, ""))

	tr, err := wrapped.AppendTrace(context.Background(), models.Trace{ActionType: models.ActionDraft})
	require.NoError(t, err)
	assert.Equal(t, models.ActionDraft, tr.ActionType)
}

func TestInstrumentedStore_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	wrapped := WrapStore(&fakeStore{createErr: boom}, "test")

	_, err := wrapped.CreateAtomsBatch(context.Background(), "doc-1", nil)
	assert.ErrorIs(t, err, boom)
}

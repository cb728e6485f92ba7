package consistency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doctranslate/doctranslate/pkg/models"
)

func TestEnforce_AutoFixesLeakedSourceTerm(t *testing.T) {
	lines := []Line{
		{GlobalIndex: 0, SourceText: "Kubernetes schedules pods.", Translated: "Kubernetes planifie des pods."},
	}
	terms := []models.Term{
		{EntryKey: "Kubernetes", EntryVal: "Kubernetes (k8s)", HumanConfirmed: true},
	}

	results := Enforce(lines, terms)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)
	assert.Contains(t, results[0].Fixed, "Kubernetes (k8s)")
}

func TestEnforce_AlreadyCorrectNoChange(t *testing.T) {
	lines := []Line{
		{GlobalIndex: 0, SourceText: "Kubernetes schedules pods.", Translated: "Kubernetes (k8s) planifie des pods."},
	}
	terms := []models.Term{
		{EntryKey: "Kubernetes", EntryVal: "Kubernetes (k8s)", HumanConfirmed: true},
	}

	results := Enforce(lines, terms)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.False(t, results[0].Remaining)
}

func TestEnforce_NormalizesWhitespaceAndHyphens(t *testing.T) {
	lines := []Line{
		{GlobalIndex: 0, SourceText: "rate-limiter config", Translated: "configuration du rate limiter"},
	}
	terms := []models.Term{
		{EntryKey: "rate-limiter", EntryVal: "rate - limiter", HumanConfirmed: true},
	}

	results := Enforce(lines, terms)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed, "whitespace/hyphen-normalized match should count as already present")
}

func TestEnforce_ReportsRemainingWhenNoAutoFixPossible(t *testing.T) {
	lines := []Line{
		{GlobalIndex: 0, SourceText: "Kubernetes schedules pods.", Translated: "Des conteneurs sont planifies."},
	}
	terms := []models.Term{
		{EntryKey: "Kubernetes", EntryVal: "Kubernetes (k8s)", HumanConfirmed: true},
	}

	results := Enforce(lines, terms)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.True(t, results[0].Remaining)
}

func TestEnforce_IgnoresUnrelatedTerms(t *testing.T) {
	lines := []Line{
		{GlobalIndex: 0, SourceText: "Hello world.", Translated: "Bonjour le monde."},
	}
	terms := []models.Term{
		{EntryKey: "Kubernetes", EntryVal: "Kubernetes (k8s)", HumanConfirmed: true},
	}

	results := Enforce(lines, terms)
	require.Len(t, results, 1)
	assert.False(t, results[0].Changed)
	assert.False(t, results[0].Remaining)
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/storage/memory"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockExactLookup implements driven.ExactLookup for testing.
type mockExactLookup struct {
	std   *domain.CanonicalStandard
	err   error
	calls int
}

func (m *mockExactLookup) FindByCode(_ context.Context, _, _, _ string) (*domain.CanonicalStandard, error) {
	m.calls++
	return m.std, m.err
}

// mockFuzzyLookup implements driven.FuzzyLookup for testing.
type mockFuzzyLookup struct {
	std        *domain.CanonicalStandard
	similarity float64
	err        error
	calls      int
}

func (m *mockFuzzyLookup) FindByDescription(_ context.Context, _, _, _ string) (*domain.CanonicalStandard, float64, error) {
	m.calls++
	return m.std, m.similarity, m.err
}

// mockCrosswalkLookup implements driven.CrosswalkLookup for testing.
type mockCrosswalkLookup struct {
	source     *domain.CanonicalStandard
	candidates []driven.CrosswalkCandidate
	sourceErr  error
	candErr    error
}

func (m *mockCrosswalkLookup) FindInJurisdiction(_ context.Context, _, _ string) (*domain.CanonicalStandard, error) {
	return m.source, m.sourceErr
}

func (m *mockCrosswalkLookup) Candidates(_ context.Context, _, _ string) ([]driven.CrosswalkCandidate, error) {
	return m.candidates, m.candErr
}

// --- Tests ---

func TestResolverExactMatch(t *testing.T) {
	exact := &mockExactLookup{std: &domain.CanonicalStandard{ID: "std-1", Code: "A.REI.4"}}
	fuzzy := &mockFuzzyLookup{std: &domain.CanonicalStandard{ID: "std-2"}, similarity: 0.99}
	resolver := NewResolver(exact, fuzzy, nil)

	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.REI.4", "solve quadratics", "")

	assert.Equal(t, "std-1", res.StandardID)
	assert.Equal(t, domain.MethodExactCode, res.Method)
	// An exact hit must never fall through to the fuzzy tier.
	assert.Equal(t, 0, fuzzy.calls)
}

func TestResolverExactMatchIgnoresCodePunctuation(t *testing.T) {
	fixture := memory.NewStandardsFixture()
	fixture.Add(domain.CanonicalStandard{
		ID:           "std-1",
		Jurisdiction: "CCSS",
		Course:       "Algebra 1",
		Code:         "A.REI.4",
		Description:  "Solve quadratic equations in one variable.",
	})
	resolver := NewResolver(fixture, fixture, fixture)

	// The model wrote the code with different separators and casing.
	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "a-rei 4", "", "")

	assert.Equal(t, "std-1", res.StandardID)
	assert.Equal(t, domain.MethodExactCode, res.Method)
}

func TestResolverFuzzyFallback(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		wantMethod domain.ResolutionMethod
		wantID     string
	}{
		{
			name:       "above threshold accepts",
			similarity: 0.85,
			wantMethod: domain.MethodDescFuzzy,
			wantID:     "std-2",
		},
		{
			name:       "at threshold accepts",
			similarity: 0.8,
			wantMethod: domain.MethodDescFuzzy,
			wantID:     "std-2",
		},
		{
			name:       "below threshold rejects",
			similarity: 0.79,
			wantMethod: domain.MethodUnresolved,
			wantID:     "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exact := &mockExactLookup{}
			fuzzy := &mockFuzzyLookup{
				std:        &domain.CanonicalStandard{ID: "std-2"},
				similarity: tt.similarity,
			}
			resolver := NewResolver(exact, fuzzy, nil)

			res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "X.YZ.9", "factor polynomials", "")

			assert.Equal(t, tt.wantMethod, res.Method)
			assert.Equal(t, tt.wantID, res.StandardID)
			if tt.wantMethod == domain.MethodDescFuzzy {
				assert.Equal(t, tt.similarity, res.Similarity)
			}
		})
	}
}

func TestResolverFuzzySkippedWithoutDescription(t *testing.T) {
	exact := &mockExactLookup{}
	fuzzy := &mockFuzzyLookup{std: &domain.CanonicalStandard{ID: "std-2"}, similarity: 0.9}
	resolver := NewResolver(exact, fuzzy, nil)

	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "X.YZ.9", "", "")

	assert.Equal(t, domain.MethodUnresolved, res.Method)
	assert.Equal(t, 0, fuzzy.calls)
}

func TestResolverCrosswalk(t *testing.T) {
	t.Run("prefers equivalent over broader", func(t *testing.T) {
		crosswalk := &mockCrosswalkLookup{
			source: &domain.CanonicalStandard{ID: "teks-1", Jurisdiction: "TEKS"},
			candidates: []driven.CrosswalkCandidate{
				{Standard: domain.CanonicalStandard{ID: "ccss-broad"}, Relation: domain.RelationBroader, Confidence: 0.99},
				{Standard: domain.CanonicalStandard{ID: "ccss-equiv"}, Relation: domain.RelationEquivalent, Confidence: 0.70},
			},
		}
		resolver := NewResolver(&mockExactLookup{}, &mockFuzzyLookup{}, crosswalk)

		res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.8A", "desc", "TEKS")

		assert.Equal(t, "ccss-equiv", res.StandardID)
		assert.Equal(t, domain.MethodCrosswalk, res.Method)
	})

	t.Run("same-rank ties break by confidence", func(t *testing.T) {
		crosswalk := &mockCrosswalkLookup{
			source: &domain.CanonicalStandard{ID: "teks-1", Jurisdiction: "TEKS"},
			candidates: []driven.CrosswalkCandidate{
				{Standard: domain.CanonicalStandard{ID: "ccss-low"}, Relation: domain.RelationEquivalent, Confidence: 0.6},
				{Standard: domain.CanonicalStandard{ID: "ccss-high"}, Relation: domain.RelationEquivalent, Confidence: 0.9},
			},
		}
		resolver := NewResolver(&mockExactLookup{}, &mockFuzzyLookup{}, crosswalk)

		res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.8A", "desc", "TEKS")

		assert.Equal(t, "ccss-high", res.StandardID)
	})

	t.Run("skipped for same-jurisdiction proposals", func(t *testing.T) {
		crosswalk := &mockCrosswalkLookup{
			source: &domain.CanonicalStandard{ID: "ccss-1"},
			candidates: []driven.CrosswalkCandidate{
				{Standard: domain.CanonicalStandard{ID: "ccss-2"}, Relation: domain.RelationEquivalent},
			},
		}
		resolver := NewResolver(&mockExactLookup{}, &mockFuzzyLookup{}, crosswalk)

		res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.REI.4", "desc", "CCSS")

		assert.Equal(t, domain.MethodUnresolved, res.Method)
	})
}

func TestResolverTierErrorsTreatedAsMisses(t *testing.T) {
	exact := &mockExactLookup{err: errors.New("db locked")}
	fuzzy := &mockFuzzyLookup{err: errors.New("db locked")}
	crosswalk := &mockCrosswalkLookup{sourceErr: errors.New("db locked")}
	resolver := NewResolver(exact, fuzzy, crosswalk)

	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.REI.4", "desc", "TEKS")

	// Every tier failed; the outcome is unresolved, not an error.
	assert.Equal(t, domain.MethodUnresolved, res.Method)
	assert.Empty(t, res.StandardID)
}

func TestResolverUnresolvedIsTerminal(t *testing.T) {
	resolver := NewResolver(&mockExactLookup{}, &mockFuzzyLookup{}, &mockCrosswalkLookup{})

	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "NOPE.1", "unknown content", "TEKS")

	require.Equal(t, domain.MethodUnresolved, res.Method)
	assert.Empty(t, res.StandardID)
	assert.Zero(t, res.Similarity)
}

func TestResolverCrosswalkEndToEnd(t *testing.T) {
	fixture := memory.NewStandardsFixture()
	fixture.Add(domain.CanonicalStandard{
		ID: "teks-a8a", Jurisdiction: "TEKS", Course: "Algebra 1",
		Code: "A.8A", Description: "Solve quadratic equations using the quadratic formula.",
	})
	fixture.Add(domain.CanonicalStandard{
		ID: "ccss-arei4", Jurisdiction: "CCSS", Course: "Algebra 1",
		Code: "A.REI.4", Description: "Solve quadratic equations in one variable.",
	})
	fixture.AddEdge(domain.CrosswalkEdge{
		FromStandardID: "teks-a8a", ToStandardID: "ccss-arei4",
		Relation: domain.RelationEquivalent, Confidence: 0.95,
	})
	resolver := NewResolver(fixture, fixture, fixture)

	res := resolver.Resolve(context.Background(), "CCSS", "Algebra 1", "A.8A", "", "TEKS")

	assert.Equal(t, "ccss-arei4", res.StandardID)
	assert.Equal(t, domain.MethodCrosswalk, res.Method)
}

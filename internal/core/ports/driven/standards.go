package driven

import (
	"context"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// ExactLookup finds a canonical standard by normalized code within one
// jurisdiction/course. Returns nil and no error when nothing matches.
type ExactLookup interface {
	FindByCode(ctx context.Context, jurisdiction, course, normalizedCode string) (*domain.CanonicalStandard, error)
}

// FuzzyLookup ranks canonical standards in a jurisdiction/course by
// description similarity and returns the best match with its score.
// Returns nil, 0 and no error when the store holds no candidates.
//
// Implementations backed by a relational store without a text-similarity
// capability must degrade to returning no match rather than erroring.
type FuzzyLookup interface {
	FindByDescription(ctx context.Context, jurisdiction, course, description string) (*domain.CanonicalStandard, float64, error)
}

// CrosswalkCandidate is one possible target-jurisdiction standard
// reachable from a proposed standard through the crosswalk graph.
type CrosswalkCandidate struct {
	// Standard is the target-jurisdiction standard.
	Standard domain.CanonicalStandard

	// Relation is the edge relation traversed.
	Relation domain.CrosswalkRelation

	// Confidence is the edge confidence.
	Confidence float64
}

// CrosswalkLookup supports the cross-jurisdiction resolution tier.
type CrosswalkLookup interface {
	// FindInJurisdiction locates the proposed code in its own
	// (proposing) jurisdiction, across courses. Returns nil and no
	// error when nothing matches.
	FindInJurisdiction(ctx context.Context, jurisdiction, normalizedCode string) (*domain.CanonicalStandard, error)

	// Candidates returns the standards in the target jurisdiction
	// reachable from the given standard via crosswalk edges.
	Candidates(ctx context.Context, fromStandardID, targetJurisdiction string) ([]CrosswalkCandidate, error)
}

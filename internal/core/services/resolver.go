package services

import (
	"context"
	"log"
	"sort"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// fuzzyAcceptThreshold is the minimum description similarity the fuzzy
// tier accepts. Anything below forces the crosswalk tier or an
// unresolved outcome.
const fuzzyAcceptThreshold = 0.8

// Resolver maps AI-proposed standard codes onto the canonical taxonomy
// using a tiered strategy: exact code match, then description fuzzy
// match, then a crosswalk hop for cross-jurisdiction proposals.
//
// Each tier's lookup failure is contained: a failing tier behaves as if
// it found nothing, so lower tiers still run.
type Resolver struct {
	exact     driven.ExactLookup
	fuzzy     driven.FuzzyLookup
	crosswalk driven.CrosswalkLookup
}

// NewResolver creates a resolver over the three lookup tiers.
func NewResolver(exact driven.ExactLookup, fuzzy driven.FuzzyLookup, crosswalk driven.CrosswalkLookup) *Resolver {
	return &Resolver{
		exact:     exact,
		fuzzy:     fuzzy,
		crosswalk: crosswalk,
	}
}

// Resolve maps one proposed code to a canonical standard. An unresolved
// outcome is an expected terminal result, never an error.
func (r *Resolver) Resolve(ctx context.Context, jurisdiction, course, proposedCode, proposedDescription, proposingJurisdiction string) domain.Resolution {
	normalized := domain.NormalizeCode(proposedCode)

	if res, ok := r.tryExact(ctx, jurisdiction, course, normalized); ok {
		return res
	}
	if res, ok := r.tryFuzzy(ctx, jurisdiction, course, proposedDescription); ok {
		return res
	}
	// The crosswalk hop only applies when the model proposed the code
	// under a different jurisdiction than the target.
	if proposingJurisdiction != "" && proposingJurisdiction != jurisdiction {
		if res, ok := r.tryCrosswalk(ctx, proposingJurisdiction, normalized, jurisdiction); ok {
			return res
		}
	}

	return domain.Resolution{Method: domain.MethodUnresolved}
}

// tryExact runs the exact-code tier.
func (r *Resolver) tryExact(ctx context.Context, jurisdiction, course, normalizedCode string) (domain.Resolution, bool) {
	if r.exact == nil || normalizedCode == "" {
		return domain.Resolution{}, false
	}

	std, err := r.exact.FindByCode(ctx, jurisdiction, course, normalizedCode)
	if err != nil {
		log.Printf("resolver: exact tier lookup failed, treating as miss: %v", err)
		return domain.Resolution{}, false
	}
	if std == nil {
		return domain.Resolution{}, false
	}
	return domain.Resolution{StandardID: std.ID, Method: domain.MethodExactCode}, true
}

// tryFuzzy runs the description-similarity tier.
func (r *Resolver) tryFuzzy(ctx context.Context, jurisdiction, course, description string) (domain.Resolution, bool) {
	if r.fuzzy == nil || description == "" {
		return domain.Resolution{}, false
	}

	std, similarity, err := r.fuzzy.FindByDescription(ctx, jurisdiction, course, description)
	if err != nil {
		log.Printf("resolver: fuzzy tier lookup failed, treating as miss: %v", err)
		return domain.Resolution{}, false
	}
	if std == nil || similarity < fuzzyAcceptThreshold {
		return domain.Resolution{}, false
	}
	return domain.Resolution{
		StandardID: std.ID,
		Method:     domain.MethodDescFuzzy,
		Similarity: similarity,
	}, true
}

// tryCrosswalk runs the cross-jurisdiction tier: locate the code in its
// proposing jurisdiction, then hop crosswalk edges into the target
// jurisdiction, preferring equivalent relations, then broader/narrower,
// then anything else, breaking ties by higher edge confidence.
func (r *Resolver) tryCrosswalk(ctx context.Context, proposingJurisdiction, normalizedCode, targetJurisdiction string) (domain.Resolution, bool) {
	if r.crosswalk == nil || normalizedCode == "" {
		return domain.Resolution{}, false
	}

	source, err := r.crosswalk.FindInJurisdiction(ctx, proposingJurisdiction, normalizedCode)
	if err != nil {
		log.Printf("resolver: crosswalk source lookup failed, treating as miss: %v", err)
		return domain.Resolution{}, false
	}
	if source == nil {
		return domain.Resolution{}, false
	}

	candidates, err := r.crosswalk.Candidates(ctx, source.ID, targetJurisdiction)
	if err != nil {
		log.Printf("resolver: crosswalk traversal failed, treating as miss: %v", err)
		return domain.Resolution{}, false
	}
	if len(candidates) == 0 {
		return domain.Resolution{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].Relation.Rank(), candidates[j].Relation.Rank()
		if ri != rj {
			return ri < rj
		}
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return domain.Resolution{
		StandardID: candidates[0].Standard.ID,
		Method:     domain.MethodCrosswalk,
	}, true
}

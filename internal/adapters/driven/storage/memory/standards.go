package memory

import (
	"context"
	"sync"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// StandardsFixture is an in-memory canonical standards store and
// crosswalk graph implementing all three resolution-tier lookup ports.
type StandardsFixture struct {
	mu        sync.RWMutex
	standards map[string]domain.CanonicalStandard
	edges     []domain.CrosswalkEdge
}

var (
	_ driven.ExactLookup     = (*StandardsFixture)(nil)
	_ driven.FuzzyLookup     = (*StandardsFixture)(nil)
	_ driven.CrosswalkLookup = (*StandardsFixture)(nil)
)

// NewStandardsFixture creates an empty fixture.
func NewStandardsFixture() *StandardsFixture {
	return &StandardsFixture{standards: make(map[string]domain.CanonicalStandard)}
}

// Add registers a canonical standard.
func (f *StandardsFixture) Add(std domain.CanonicalStandard) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standards[std.ID] = std
}

// AddEdge registers a crosswalk edge.
func (f *StandardsFixture) AddEdge(edge domain.CrosswalkEdge) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, edge)
}

// FindByCode matches on jurisdiction, course, and normalized code.
func (f *StandardsFixture) FindByCode(_ context.Context, jurisdiction, course, normalizedCode string) (*domain.CanonicalStandard, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, std := range f.standards {
		if std.Jurisdiction == jurisdiction && std.Course == course &&
			domain.NormalizeCode(std.Code) == normalizedCode {
			stdCopy := std
			return &stdCopy, nil
		}
	}
	return nil, nil
}

// FindByDescription returns the best trigram-similarity match.
func (f *StandardsFixture) FindByDescription(_ context.Context, jurisdiction, course, description string) (*domain.CanonicalStandard, float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var best *domain.CanonicalStandard
	bestScore := 0.0
	for _, std := range f.standards {
		if std.Jurisdiction != jurisdiction || std.Course != course {
			continue
		}
		score := domain.DescriptionSimilarity(std.Description, description)
		if score > bestScore {
			bestScore = score
			stdCopy := std
			best = &stdCopy
		}
	}
	return best, bestScore, nil
}

// FindInJurisdiction matches on jurisdiction and normalized code only.
func (f *StandardsFixture) FindInJurisdiction(_ context.Context, jurisdiction, normalizedCode string) (*domain.CanonicalStandard, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, std := range f.standards {
		if std.Jurisdiction == jurisdiction && domain.NormalizeCode(std.Code) == normalizedCode {
			stdCopy := std
			return &stdCopy, nil
		}
	}
	return nil, nil
}

// Candidates walks edges from the standard into the target jurisdiction.
func (f *StandardsFixture) Candidates(_ context.Context, fromStandardID, targetJurisdiction string) ([]driven.CrosswalkCandidate, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var out []driven.CrosswalkCandidate
	for _, edge := range f.edges {
		if edge.FromStandardID != fromStandardID {
			continue
		}
		target, ok := f.standards[edge.ToStandardID]
		if !ok || target.Jurisdiction != targetJurisdiction {
			continue
		}
		out = append(out, driven.CrosswalkCandidate{
			Standard:   target,
			Relation:   edge.Relation,
			Confidence: edge.Confidence,
		})
	}
	return out, nil
}

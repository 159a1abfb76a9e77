package domain

// QualityScores are the three document-level quality metrics plus their
// unweighted mean, each clamped to [0,100].
type QualityScores struct {
	// DesignQuality scores rigor balance and item variety.
	DesignQuality float64 `json:"designQuality"`

	// MeasurementQuality scores clarity, discrimination, and validity.
	MeasurementQuality float64 `json:"measurementQuality"`

	// StandardsAlignment scores how well items map to canonical standards.
	StandardsAlignment float64 `json:"standardsAlignment"`

	// Overall is the unweighted mean of the three.
	Overall float64 `json:"overall"`
}

// ScoringConfig tunes the scoring engine.
type ScoringConfig struct {
	// TargetRigorDistribution is the desired fraction of questions per
	// rigor label. Fractions should sum to 1.
	TargetRigorDistribution map[RigorLabel]float64
}

// DefaultScoringConfig returns the default rigor distribution target:
// a 30/50/20 mild/medium/spicy split.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		TargetRigorDistribution: map[RigorLabel]float64{
			RigorMild:   0.3,
			RigorMedium: 0.5,
			RigorSpicy:  0.2,
		},
	}
}

package services

import (
	"math"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// Scoring constants. Penalties are expressed in score points on the
// 0-100 scale.
const (
	maxDistributionPenalty = 30
	varietyPenaltySingle   = 20
	varietyPenaltyPair     = 10
	issuePenaltyPer        = 3
	maxIssuePenalty        = 25
	lowVariationPenalty    = 15
	lowVariationThreshold  = 0.5
	maxImbalancePenalty    = 10

	highSimilarityFloor = 0.8
	lowSimilarityCeil   = 0.5

	// legacy rigor range accepted by the validity check; historical
	// data carries values up to 5.
	legacyRigorMin = 1
	legacyRigorMax = 5
)

// Scorer derives document-level quality metrics from the resolved,
// voted question set.
type Scorer struct {
	config domain.ScoringConfig
}

// NewScorer creates a scorer. A zero config falls back to the default
// target rigor distribution.
func NewScorer(config domain.ScoringConfig) *Scorer {
	if len(config.TargetRigorDistribution) == 0 {
		config = domain.DefaultScoringConfig()
	}
	return &Scorer{config: config}
}

// Score computes the three 0-100 quality scores and their mean.
func (s *Scorer) Score(results []domain.QuestionResult) domain.QualityScores {
	scores := domain.QualityScores{
		DesignQuality:      s.designQuality(results),
		MeasurementQuality: s.measurementQuality(results),
		StandardsAlignment: s.standardsAlignment(results),
	}
	scores.Overall = clampScore((scores.DesignQuality + scores.MeasurementQuality + scores.StandardsAlignment) / 3)
	return scores
}

// designQuality starts at 100 and subtracts penalties for deviation
// from the target rigor distribution, lack of problem-type variety,
// accumulated quality issues, low rigor variation, and distribution
// imbalance.
func (s *Scorer) designQuality(results []domain.QuestionResult) float64 {
	if len(results) == 0 {
		return 0
	}
	score := 100.0

	score -= s.distributionPenalty(results)

	switch countDistinctTypes(results) {
	case 0, 1:
		score -= varietyPenaltySingle
	case 2:
		score -= varietyPenaltyPair
	}

	issues := 0
	for i := range results {
		issues += len(results[i].Flags)
	}
	score -= math.Min(maxIssuePenalty, float64(issues*issuePenaltyPer))

	if rigorStdDev(results) < lowVariationThreshold {
		score -= lowVariationPenalty
	}

	score -= s.imbalancePenalty(results)

	return clampScore(score)
}

// distributionPenalty measures deviation from the configured target
// rigor distribution: the summed absolute difference in percentage
// points, scaled and capped at 30.
func (s *Scorer) distributionPenalty(results []domain.QuestionResult) float64 {
	actual := labelFractions(results)
	var totalDiff float64
	for _, label := range domain.RigorLabels {
		totalDiff += math.Abs(actual[label] - s.config.TargetRigorDistribution[label])
	}
	// totalDiff ranges [0,2]; full divergence earns the full penalty.
	return math.Min(maxDistributionPenalty, totalDiff/2*100*0.3)
}

// imbalancePenalty applies a chi-square-like balance measure over the
// rigor label counts, scaled into at most 10 points.
func (s *Scorer) imbalancePenalty(results []domain.QuestionResult) float64 {
	n := float64(len(results))
	if n == 0 {
		return 0
	}
	expected := n / float64(len(domain.RigorLabels))
	var chi float64
	for _, label := range domain.RigorLabels {
		observed := 0.0
		for i := range results {
			if results[i].RigorLabel == label {
				observed++
			}
		}
		diff := observed - expected
		chi += diff * diff / expected
	}
	// chi maxes at 2n when every item lands on one label.
	return math.Min(maxImbalancePenalty, chi/(2*n)*maxImbalancePenalty)
}

// measurementQuality blends the fraction of items without major issues,
// a discrimination component from the count of distinct rigor levels, a
// validity check on the legacy rigor range, and a clarity penalty from
// unclear-flagged items.
func (s *Scorer) measurementQuality(results []domain.QuestionResult) float64 {
	n := len(results)
	if n == 0 {
		return 0
	}

	clean := 0
	unclear := 0
	valid := 0
	levels := make(map[int]bool)
	for i := range results {
		r := &results[i]
		major := false
		for _, f := range r.Flags {
			if f.IsMajor() {
				major = true
			}
			if f == domain.FlagUnclear {
				unclear++
			}
		}
		if !major {
			clean++
		}
		if r.DOKLevel >= legacyRigorMin && r.DOKLevel <= legacyRigorMax {
			valid++
		}
		levels[r.DOKLevel] = true
	}

	score := float64(clean) / float64(n) * 50

	switch len(levels) {
	case 1:
		score += 5
	case 2:
		score += 15
	default:
		score += 25
	}

	score += float64(valid) / float64(n) * 25

	score -= float64(unclear) / float64(n) * 20

	return clampScore(score)
}

// standardsAlignment starts from the resolved fraction, rewards
// high-similarity resolutions, penalises low-similarity ones, and
// applies a coverage penalty when a larger set maps to too few
// distinct standards.
func (s *Scorer) standardsAlignment(results []domain.QuestionResult) float64 {
	n := len(results)
	if n == 0 {
		return 0
	}

	resolved := 0
	highSim := 0
	lowSim := 0
	distinct := make(map[string]bool)
	for i := range results {
		primary := results[i].PrimaryStandard()
		if primary == nil || primary.StandardID == "" {
			continue
		}
		resolved++
		distinct[primary.StandardID] = true
		if primary.Method == domain.MethodDescFuzzy {
			switch {
			case primary.Similarity >= highSimilarityFloor:
				highSim++
			case primary.Similarity < lowSimilarityCeil:
				lowSim++
			}
		} else {
			// Exact and crosswalk matches count as high-confidence
			// alignments.
			highSim++
		}
	}

	score := float64(resolved) / float64(n) * 100
	score += math.Min(10, float64(highSim)*2)
	score -= math.Min(15, float64(lowSim)*3)

	// Coverage only matters once the set is big enough to expect spread.
	if n > 3 && len(distinct) < n/2 {
		score -= 15
	}

	return clampScore(score)
}

// labelFractions returns the fraction of results per rigor label.
func labelFractions(results []domain.QuestionResult) map[domain.RigorLabel]float64 {
	out := make(map[domain.RigorLabel]float64, len(domain.RigorLabels))
	if len(results) == 0 {
		return out
	}
	for i := range results {
		out[results[i].RigorLabel]++
	}
	for label, count := range out {
		out[label] = count / float64(len(results))
	}
	return out
}

// rigorStdDev is the standard deviation of observed DOK levels.
func rigorStdDev(results []domain.QuestionResult) float64 {
	n := float64(len(results))
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range results {
		sum += float64(results[i].DOKLevel)
	}
	mean := sum / n
	var variance float64
	for i := range results {
		diff := float64(results[i].DOKLevel) - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / n)
}

// countDistinctTypes counts distinct problem types in the set.
func countDistinctTypes(results []domain.QuestionResult) int {
	types := make(map[string]bool)
	for i := range results {
		if results[i].ProblemType != "" {
			types[results[i].ProblemType] = true
		}
	}
	return len(types)
}

// clampScore floors and ceilings a score into [0,100].
func clampScore(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

func scoredResult(number, dok int, problemType, standardID string, flags ...domain.QualityFlag) domain.QuestionResult {
	r := domain.QuestionResult{
		QuestionNumber: number,
		DOKLevel:       dok,
		RigorLabel:     domain.LabelForDOK(dok),
		ProblemType:    problemType,
		Flags:          flags,
	}
	if standardID != "" {
		r.Standards = []domain.ConsensusStandard{{
			Code:       "A." + standardID,
			StandardID: standardID,
			Method:     domain.MethodExactCode,
			IsPrimary:  true,
		}}
	}
	return r
}

func TestScorerEmptyResultSet(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	scores := scorer.Score(nil)

	assert.Zero(t, scores.DesignQuality)
	assert.Zero(t, scores.MeasurementQuality)
	assert.Zero(t, scores.StandardsAlignment)
	assert.Zero(t, scores.Overall)
}

func TestScorerBalancedAssessmentScoresWell(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	// Ten questions near the 30/50/20 target, varied types, all
	// resolved to distinct standards, no flags.
	results := []domain.QuestionResult{
		scoredResult(1, 1, "multiple_choice", "s1"),
		scoredResult(2, 1, "multiple_choice", "s2"),
		scoredResult(3, 1, "computation", "s3"),
		scoredResult(4, 2, "computation", "s4"),
		scoredResult(5, 2, "short_answer", "s5"),
		scoredResult(6, 2, "short_answer", "s6"),
		scoredResult(7, 3, "short_answer", "s7"),
		scoredResult(8, 3, "extended_response", "s8"),
		scoredResult(9, 4, "extended_response", "s9"),
		scoredResult(10, 4, "extended_response", "s10"),
	}

	scores := scorer.Score(results)

	assert.Greater(t, scores.DesignQuality, 80.0)
	assert.Greater(t, scores.MeasurementQuality, 90.0)
	assert.Greater(t, scores.StandardsAlignment, 90.0)
	assert.Greater(t, scores.Overall, 85.0)
}

func TestScorerScoresNeverNegative(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	// Worst case: one problem type, all recall, nothing resolved,
	// every item flagged multiple times.
	var results []domain.QuestionResult
	for i := 1; i <= 10; i++ {
		results = append(results, scoredResult(i, 1, "multiple_choice", "",
			domain.FlagUnclear, domain.FlagBias, domain.FlagMultipleCorrect))
	}

	scores := scorer.Score(results)

	assert.GreaterOrEqual(t, scores.DesignQuality, 0.0)
	assert.GreaterOrEqual(t, scores.MeasurementQuality, 0.0)
	assert.GreaterOrEqual(t, scores.StandardsAlignment, 0.0)
	assert.GreaterOrEqual(t, scores.Overall, 0.0)
	assert.LessOrEqual(t, scores.Overall, 100.0)
}

func TestScorerDesignQuality(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	t.Run("single problem type penalised harder than two", func(t *testing.T) {
		single := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1"),
			scoredResult(2, 2, "multiple_choice", "s2"),
			scoredResult(3, 3, "multiple_choice", "s3"),
			scoredResult(4, 4, "multiple_choice", "s4"),
		}
		pair := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1"),
			scoredResult(2, 2, "multiple_choice", "s2"),
			scoredResult(3, 3, "short_answer", "s3"),
			scoredResult(4, 4, "short_answer", "s4"),
		}

		assert.Less(t, scorer.Score(single).DesignQuality, scorer.Score(pair).DesignQuality)
	})

	t.Run("flat rigor penalised for low variation", func(t *testing.T) {
		flat := []domain.QuestionResult{
			scoredResult(1, 2, "multiple_choice", "s1"),
			scoredResult(2, 2, "short_answer", "s2"),
			scoredResult(3, 2, "computation", "s3"),
		}
		varied := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1"),
			scoredResult(2, 2, "short_answer", "s2"),
			scoredResult(3, 4, "computation", "s3"),
		}

		assert.Less(t, scorer.Score(flat).DesignQuality, scorer.Score(varied).DesignQuality)
	})

	t.Run("quality flags reduce the score", func(t *testing.T) {
		clean := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1"),
			scoredResult(2, 3, "short_answer", "s2"),
		}
		flagged := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1", domain.FlagUnclear),
			scoredResult(2, 3, "short_answer", "s2", domain.FlagBias),
		}

		assert.Less(t, scorer.Score(flagged).DesignQuality, scorer.Score(clean).DesignQuality)
	})
}

func TestScorerMeasurementQuality(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	t.Run("major flags halve the clean fraction", func(t *testing.T) {
		results := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1", domain.FlagMultipleCorrect),
			scoredResult(2, 3, "short_answer", "s2"),
		}

		// clean 1/2 * 50 = 25, two levels +15, valid 2/2 * 25 = 25.
		assert.InDelta(t, 65.0, scorer.Score(results).MeasurementQuality, 0.001)
	})

	t.Run("needs_review is not a major issue", func(t *testing.T) {
		flagged := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1", domain.FlagNeedsReview),
			scoredResult(2, 3, "short_answer", "s2"),
		}
		clean := []domain.QuestionResult{
			scoredResult(1, 1, "multiple_choice", "s1"),
			scoredResult(2, 3, "short_answer", "s2"),
		}

		assert.Equal(t, scorer.Score(clean).MeasurementQuality, scorer.Score(flagged).MeasurementQuality)
	})

	t.Run("more distinct levels discriminate better", func(t *testing.T) {
		one := []domain.QuestionResult{
			scoredResult(1, 2, "a", "s1"),
			scoredResult(2, 2, "b", "s2"),
		}
		three := []domain.QuestionResult{
			scoredResult(1, 1, "a", "s1"),
			scoredResult(2, 2, "b", "s2"),
			scoredResult(3, 4, "c", "s3"),
		}

		assert.Less(t, scorer.Score(one).MeasurementQuality, scorer.Score(three).MeasurementQuality)
	})
}

func TestScorerStandardsAlignment(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())

	t.Run("unresolved items drag the score down", func(t *testing.T) {
		resolved := []domain.QuestionResult{
			scoredResult(1, 2, "a", "s1"),
			scoredResult(2, 3, "b", "s2"),
		}
		half := []domain.QuestionResult{
			scoredResult(1, 2, "a", "s1"),
			scoredResult(2, 3, "b", ""),
		}

		assert.Less(t, scorer.Score(half).StandardsAlignment, scorer.Score(resolved).StandardsAlignment)
	})

	t.Run("low-similarity fuzzy matches are penalised", func(t *testing.T) {
		good := scoredResult(1, 2, "a", "s1")
		good.Standards[0].Method = domain.MethodDescFuzzy
		good.Standards[0].Similarity = 0.9

		weak := scoredResult(1, 2, "a", "s1")
		weak.Standards[0].Method = domain.MethodDescFuzzy
		weak.Standards[0].Similarity = 0.3

		assert.Less(t,
			scorer.Score([]domain.QuestionResult{weak}).StandardsAlignment,
			scorer.Score([]domain.QuestionResult{good}).StandardsAlignment)
	})

	t.Run("narrow coverage penalised on larger sets", func(t *testing.T) {
		narrow := []domain.QuestionResult{
			scoredResult(1, 1, "a", "s1"),
			scoredResult(2, 2, "b", "s1"),
			scoredResult(3, 3, "c", "s1"),
			scoredResult(4, 4, "d", "s1"),
			scoredResult(5, 2, "e", "s1"),
		}
		spread := []domain.QuestionResult{
			scoredResult(1, 1, "a", "s1"),
			scoredResult(2, 2, "b", "s2"),
			scoredResult(3, 3, "c", "s3"),
			scoredResult(4, 4, "d", "s4"),
			scoredResult(5, 2, "e", "s5"),
		}

		assert.Less(t, scorer.Score(narrow).StandardsAlignment, scorer.Score(spread).StandardsAlignment)
	})
}

func TestScorerOverallIsMeanOfThree(t *testing.T) {
	scorer := NewScorer(domain.DefaultScoringConfig())
	results := []domain.QuestionResult{
		scoredResult(1, 1, "multiple_choice", "s1"),
		scoredResult(2, 2, "short_answer", "s2"),
		scoredResult(3, 4, "extended_response", "s3"),
	}

	scores := scorer.Score(results)

	want := (scores.DesignQuality + scores.MeasurementQuality + scores.StandardsAlignment) / 3
	require.InDelta(t, want, scores.Overall, 0.001)
}

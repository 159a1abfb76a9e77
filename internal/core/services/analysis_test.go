package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/storage/memory"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// fakeAnalyzer implements DocumentAnalyzer with a canned outcome.
type fakeAnalyzer struct {
	outcome domain.AnalysisOutcome
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ *domain.Document) domain.AnalysisOutcome {
	return f.outcome
}

type pipelineFixture struct {
	pipeline    *Pipeline
	documents   *memory.DocumentStore
	questions   *memory.QuestionStore
	results     *memory.ResultStore
	queue       *memory.QueueStore
	deadLetters *memory.DeadLetterStore
	exports     *Coordinator
}

func newPipelineFixture(t *testing.T, analyzer DocumentAnalyzer) *pipelineFixture {
	t.Helper()

	documents := memory.NewDocumentStore()
	questions := memory.NewQuestionStore()
	results := memory.NewResultStore()
	queue := memory.NewQueueStore()
	deadLetters := memory.NewDeadLetterStore()

	standards := memory.NewStandardsFixture()
	standards.Add(domain.CanonicalStandard{
		ID: "ccss-arei4", Jurisdiction: "CCSS", Course: "Algebra 1",
		Code: "A.REI.4", Description: "Solve quadratic equations in one variable.",
	})
	standards.Add(domain.CanonicalStandard{
		ID: "ccss-asse2", Jurisdiction: "CCSS", Course: "Algebra 1",
		Code: "A.SSE.2", Description: "Use the structure of an expression to rewrite it.",
	})

	settings := domain.QueueSettings{PollInterval: time.Minute, MaxAttempts: 3}
	processing := NewCoordinator(domain.QueueProcessing, queue, deadLetters, documents, nil, settings)
	exports := NewCoordinator(domain.QueueExport, queue, deadLetters, documents, nil, settings)

	pipeline := NewPipeline(
		documents, questions, results,
		analyzer,
		NewResolver(standards, standards, standards),
		NewVoter(),
		NewScorer(domain.DefaultScoringConfig()),
		processing, exports,
	)

	return &pipelineFixture{
		pipeline:    pipeline,
		documents:   documents,
		questions:   questions,
		results:     results,
		queue:       queue,
		deadLetters: deadLetters,
		exports:     exports,
	}
}

func pipelineProposal(number, dok int, confidence float64, code string) domain.ModelProposal {
	return domain.ModelProposal{
		Engine:         "primary",
		QuestionNumber: number,
		QuestionText:   "Solve x^2 - 4 = 0",
		ProblemType:    "computation",
		Standards: []domain.StandardProposal{
			{Code: code, Jurisdiction: "CCSS", IsPrimary: true},
		},
		Rigor: domain.RigorAssessment{
			DOKLevel:   dok,
			Confidence: confidence,
		}.Normalise(),
	}
}

func TestPipelineRequestAnalysis(t *testing.T) {
	t.Run("registers document and enqueues", func(t *testing.T) {
		f := newPipelineFixture(t, &fakeAnalyzer{})

		itemID, err := f.pipeline.RequestAnalysis(context.Background(), "doc-1", "/tmp/quiz.txt", "CCSS", "Algebra 1", 0)
		require.NoError(t, err)
		assert.NotEmpty(t, itemID)

		doc, err := f.documents.Get(context.Background(), "doc-1")
		require.NoError(t, err)
		assert.Equal(t, domain.DocumentStatusPending, doc.Status)
		assert.Equal(t, "CCSS", doc.Jurisdiction)

		depth, err := f.queue.Depth(context.Background(), domain.QueueProcessing)
		require.NoError(t, err)
		assert.Equal(t, 1, depth)
	})

	t.Run("rejects duplicate live submission", func(t *testing.T) {
		f := newPipelineFixture(t, &fakeAnalyzer{})

		_, err := f.pipeline.RequestAnalysis(context.Background(), "doc-1", "/tmp/quiz.txt", "CCSS", "Algebra 1", 0)
		require.NoError(t, err)

		_, err = f.pipeline.RequestAnalysis(context.Background(), "doc-1", "/tmp/quiz.txt", "CCSS", "Algebra 1", 0)
		assert.ErrorIs(t, err, domain.ErrAlreadyQueued)
	})

	t.Run("rejects missing input", func(t *testing.T) {
		f := newPipelineFixture(t, &fakeAnalyzer{})

		_, err := f.pipeline.RequestAnalysis(context.Background(), "", "/tmp/quiz.txt", "CCSS", "Algebra 1", 0)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestPipelineAnalyzeDocumentSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: domain.OkOutcome([]domain.ModelProposal{
		pipelineProposal(1, 2, 0.9, "A.REI.4"),
		pipelineProposal(2, 1, 0.85, "A.SSE.2"),
		pipelineProposal(3, 4, 0.8, "X.UNKNOWN.1"),
	})}
	f := newPipelineFixture(t, analyzer)

	doc := &domain.Document{
		ID: "doc-1", FilePath: "/tmp/quiz.txt",
		Jurisdiction: "CCSS", Course: "Algebra 1",
		Status: domain.DocumentStatusPending,
	}
	require.NoError(t, f.documents.Save(context.Background(), doc))

	require.NoError(t, f.pipeline.AnalyzeDocument(context.Background(), "doc-1"))

	stored, err := f.documents.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusCompleted, stored.Status)
	require.NotNil(t, stored.Analysis)
	assert.Equal(t, 3, stored.Analysis.TotalQuestions)

	// Distribution percentages sum to ~100.
	var sum float64
	for _, pct := range stored.Analysis.RigorDistribution {
		sum += pct
	}
	assert.InDelta(t, 100.0, sum, 0.5)

	// Two of three questions aligned; coverage is sorted.
	assert.Equal(t, []string{"A.REI.4", "A.SSE.2"}, stored.Analysis.StandardsCoverage)
	require.NotNil(t, stored.Analysis.Scores)

	questions, err := f.questions.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, "ccss-arei4", questions[0].StandardID)
	assert.Equal(t, domain.RigorMedium, questions[0].RigorLabel)

	results, err := f.results.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, domain.MethodExactCode, results[0].Standards[0].Method)
	// The unresolvable code is flagged unmapped.
	assert.True(t, results[2].HasFlag(domain.FlagUnmapped))

	// Completion scheduled all three export types.
	depth, err := f.queue.Depth(context.Background(), domain.QueueExport)
	require.NoError(t, err)
	assert.Equal(t, len(domain.ExportTypes), depth)
}

func TestPipelineAnalyzeDocumentDegraded(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: domain.DegradedOutcome(
		"Document analysis could not be completed.",
		"primary backend failed: rate limited; fallback backend failed: timeout",
	)}
	f := newPipelineFixture(t, analyzer)

	doc := &domain.Document{ID: "doc-1", FilePath: "/tmp/quiz.txt", Status: domain.DocumentStatusPending}
	require.NoError(t, f.documents.Save(context.Background(), doc))

	// A degraded outcome is a handled result, not a job failure.
	require.NoError(t, f.pipeline.AnalyzeDocument(context.Background(), "doc-1"))

	stored, err := f.documents.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "rate limited")

	require.NotNil(t, stored.Analysis)
	require.Len(t, stored.Analysis.Recommendations, 2)
	assert.Equal(t, "Document analysis could not be completed.", stored.Analysis.Recommendations[0])
	assert.Contains(t, stored.Analysis.Recommendations[1], "fallback backend failed")

	// No exports for a failed analysis.
	depth, err := f.queue.Depth(context.Background(), domain.QueueExport)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestPipelineAnalyzeDocumentMissing(t *testing.T) {
	f := newPipelineFixture(t, &fakeAnalyzer{})

	err := f.pipeline.AnalyzeDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPipelineGetDocument(t *testing.T) {
	f := newPipelineFixture(t, &fakeAnalyzer{})
	doc := &domain.Document{ID: "doc-1", Status: domain.DocumentStatusCompleted}
	require.NoError(t, f.documents.Save(context.Background(), doc))

	got, err := f.pipeline.GetDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusCompleted, got.Status)
}

func TestPipelineResubmissionSupersedesResults(t *testing.T) {
	analyzer := &fakeAnalyzer{outcome: domain.OkOutcome([]domain.ModelProposal{
		pipelineProposal(1, 2, 0.9, "A.REI.4"),
		pipelineProposal(2, 3, 0.9, "A.SSE.2"),
	})}
	f := newPipelineFixture(t, analyzer)

	doc := &domain.Document{ID: "doc-1", FilePath: "/tmp/quiz.txt", Jurisdiction: "CCSS", Course: "Algebra 1"}
	require.NoError(t, f.documents.Save(context.Background(), doc))
	require.NoError(t, f.pipeline.AnalyzeDocument(context.Background(), "doc-1"))

	// Second pass returns a single question; the old set must not leak.
	analyzer.outcome = domain.OkOutcome([]domain.ModelProposal{
		pipelineProposal(1, 4, 0.95, "A.REI.4"),
	})
	require.NoError(t, f.pipeline.AnalyzeDocument(context.Background(), "doc-1"))

	results, err := f.results.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.RigorSpicy, results[0].RigorLabel)

	questions, err := f.questions.ListByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

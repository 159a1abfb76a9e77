package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driving"
)

// Ensure Pipeline implements the interface.
var _ driving.AnalysisService = (*Pipeline)(nil)

// DocumentAnalyzer is the orchestrator seam, narrowed so tests can
// substitute a fake backend layer.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, doc *domain.Document) domain.AnalysisOutcome
}

// Pipeline drives one document through the full analysis flow:
// orchestrate, resolve, vote, score, persist.
type Pipeline struct {
	documents driven.DocumentStore
	questions driven.QuestionStore
	results   driven.ResultStore

	orchestrator DocumentAnalyzer
	resolver     *Resolver
	voter        *Voter
	scorer       *Scorer

	processing driving.QueueCoordinator
	exports    driving.QueueCoordinator
}

// NewPipeline wires the pipeline. The export coordinator may be nil; in
// that case completed analyses simply skip export scheduling.
func NewPipeline(
	documents driven.DocumentStore,
	questions driven.QuestionStore,
	results driven.ResultStore,
	orchestrator DocumentAnalyzer,
	resolver *Resolver,
	voter *Voter,
	scorer *Scorer,
	processing driving.QueueCoordinator,
	exports driving.QueueCoordinator,
) *Pipeline {
	return &Pipeline{
		documents:    documents,
		questions:    questions,
		results:      results,
		orchestrator: orchestrator,
		resolver:     resolver,
		voter:        voter,
		scorer:       scorer,
		processing:   processing,
		exports:      exports,
	}
}

// RequestAnalysis registers the document and enqueues it for processing.
func (p *Pipeline) RequestAnalysis(ctx context.Context, documentID, filePath, jurisdiction, course string, priority int) (string, error) {
	if documentID == "" || filePath == "" {
		return "", domain.ErrInvalidInput
	}

	doc, err := p.documents.Get(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("loading document %s: %w", documentID, err)
	}
	now := time.Now().UTC()
	if doc == nil {
		doc = &domain.Document{
			ID:        documentID,
			CreatedAt: now,
		}
	}
	doc.FilePath = filePath
	doc.Jurisdiction = jurisdiction
	doc.Course = course
	doc.Status = domain.DocumentStatusPending
	doc.UpdatedAt = now
	if err := p.documents.Save(ctx, doc); err != nil {
		return "", fmt.Errorf("saving document %s: %w", documentID, err)
	}

	return p.processing.Enqueue(ctx, documentID, priority, "")
}

// GetDocument returns a document with its analysis summary.
func (p *Pipeline) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return p.documents.Get(ctx, documentID)
}

// AnalyzeDocument is the queue's entry point for one document.
//
// A degraded model outcome marks the document failed and returns nil:
// that is a handled business result, not a job failure. Persistence
// errors return non-nil so the queue retries the item.
func (p *Pipeline) AnalyzeDocument(ctx context.Context, documentID string) error {
	doc, err := p.documents.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}

	doc.Status = domain.DocumentStatusProcessing
	doc.StartedAt = time.Now().UTC()
	doc.UpdatedAt = doc.StartedAt
	if err := p.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("marking document %s processing: %w", documentID, err)
	}

	outcome := p.orchestrator.Analyze(ctx, doc)
	if outcome.IsDegraded() {
		return p.recordFailure(ctx, doc, outcome.Degraded)
	}

	results := p.resolveAndVote(ctx, doc, outcome.Proposals)
	questions := buildQuestions(doc, outcome.Proposals, results)
	scores := p.scorer.Score(results)

	if err := p.questions.BulkCreate(ctx, doc.ID, questions); err != nil {
		return fmt.Errorf("persisting questions for document %s: %w", doc.ID, err)
	}
	if err := p.results.SaveAll(ctx, doc.ID, results); err != nil {
		return fmt.Errorf("persisting results for document %s: %w", doc.ID, err)
	}

	doc.Status = domain.DocumentStatusCompleted
	doc.CompletedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CompletedAt
	doc.LastError = ""
	doc.Analysis = buildSummary(results, &scores)
	if err := p.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("completing document %s: %w", doc.ID, err)
	}

	p.scheduleExports(ctx, doc.ID)
	return nil
}

// recordFailure marks the document failed with the degradation's
// recommendations. The nil return keeps the queue item out of the
// retry path: both backends already failed, retrying changes nothing.
func (p *Pipeline) recordFailure(ctx context.Context, doc *domain.Document, deg *domain.Degradation) error {
	doc.Status = domain.DocumentStatusFailed
	doc.CompletedAt = time.Now().UTC()
	doc.UpdatedAt = doc.CompletedAt
	doc.LastError = deg.Detail
	doc.Analysis = &domain.AnalysisSummary{
		RigorDistribution: zeroDistribution(),
		Recommendations: []string{
			deg.Message,
			"Technical detail: " + deg.Detail,
		},
	}
	if err := p.documents.Save(ctx, doc); err != nil {
		return fmt.Errorf("recording failure for document %s: %w", doc.ID, err)
	}
	return nil
}

// resolveAndVote resolves every proposed code against the canonical
// taxonomy, then votes each question's proposal group into a consensus
// record.
func (p *Pipeline) resolveAndVote(ctx context.Context, doc *domain.Document, proposals []domain.ModelProposal) []domain.QuestionResult {
	groups := make(map[int][]domain.ModelProposal)
	var numbers []int
	for _, proposal := range proposals {
		for i := range proposal.Standards {
			std := &proposal.Standards[i]
			res := p.resolver.Resolve(ctx, doc.Jurisdiction, doc.Course, std.Code, proposalDescription(&proposal), std.Jurisdiction)
			std.StandardID = res.StandardID
			std.Method = res.Method
			std.Similarity = res.Similarity
		}
		if _, seen := groups[proposal.QuestionNumber]; !seen {
			numbers = append(numbers, proposal.QuestionNumber)
		}
		groups[proposal.QuestionNumber] = append(groups[proposal.QuestionNumber], proposal)
	}
	sort.Ints(numbers)

	results := make([]domain.QuestionResult, 0, len(numbers))
	for _, number := range numbers {
		result := p.voter.Vote(groups[number])
		result.ID = uuid.NewString()
		result.DocumentID = doc.ID
		result.QuestionNumber = number
		if primary := result.PrimaryStandard(); primary == nil || primary.StandardID == "" {
			if !result.HasFlag(domain.FlagUnmapped) {
				result.Flags = append(result.Flags, domain.FlagUnmapped)
			}
		}
		results = append(results, result)
	}
	return results
}

// proposalDescription picks the text the fuzzy tier matches against.
func proposalDescription(p *domain.ModelProposal) string {
	if p.QuestionText != "" {
		return p.QuestionText
	}
	return p.Context
}

// buildQuestions materialises persisted question records from the
// proposal set and its consensus results.
func buildQuestions(doc *domain.Document, proposals []domain.ModelProposal, results []domain.QuestionResult) []domain.Question {
	byNumber := make(map[int]*domain.QuestionResult, len(results))
	for i := range results {
		byNumber[results[i].QuestionNumber] = &results[i]
	}

	seen := make(map[int]bool)
	questions := make([]domain.Question, 0, len(results))
	for _, p := range proposals {
		if seen[p.QuestionNumber] {
			continue
		}
		seen[p.QuestionNumber] = true

		q := domain.Question{
			ID:          uuid.NewString(),
			DocumentID:  doc.ID,
			Number:      p.QuestionNumber,
			Text:        p.QuestionText,
			Context:     p.Context,
			ProblemType: p.ProblemType,
			DOKLevel:    p.Rigor.DOKLevel,
			RigorLabel:  p.Rigor.Label,
		}
		if result, ok := byNumber[p.QuestionNumber]; ok {
			q.DOKLevel = result.DOKLevel
			q.RigorLabel = result.RigorLabel
			q.Flags = result.Flags
			if primary := result.PrimaryStandard(); primary != nil {
				q.StandardID = primary.StandardID
			}
		}
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Number < questions[j].Number })
	return questions
}

// buildSummary computes the document-level rollup: totals, a rigor
// distribution in percentages summing to ~100, standards coverage, and
// recommendations.
func buildSummary(results []domain.QuestionResult, scores *domain.QualityScores) *domain.AnalysisSummary {
	summary := &domain.AnalysisSummary{
		TotalQuestions:    len(results),
		RigorDistribution: zeroDistribution(),
		Scores:            scores,
	}
	if len(results) == 0 {
		summary.Recommendations = []string{"No questions were extracted from the document."}
		return summary
	}

	counts := make(map[domain.RigorLabel]int)
	coverage := make(map[string]bool)
	unresolved := 0
	for i := range results {
		counts[results[i].RigorLabel]++
		primary := results[i].PrimaryStandard()
		if primary != nil && primary.StandardID != "" {
			coverage[primary.Code] = true
		} else {
			unresolved++
		}
	}

	for _, label := range domain.RigorLabels {
		pct := float64(counts[label]) / float64(len(results)) * 100
		summary.RigorDistribution[label] = math.Round(pct*10) / 10
	}
	for code := range coverage {
		summary.StandardsCoverage = append(summary.StandardsCoverage, code)
	}
	sort.Strings(summary.StandardsCoverage)

	summary.Recommendations = buildRecommendations(results, counts, unresolved)
	return summary
}

// buildRecommendations derives free-text findings from the result set.
func buildRecommendations(results []domain.QuestionResult, counts map[domain.RigorLabel]int, unresolved int) []string {
	var recs []string
	n := len(results)

	if unresolved > 0 {
		recs = append(recs, fmt.Sprintf("%d of %d questions could not be aligned to a standard and need review.", unresolved, n))
	}
	if counts[domain.RigorSpicy] == 0 {
		recs = append(recs, "The assessment has no DOK 4 items; consider adding at least one extended-thinking task.")
	}
	if counts[domain.RigorMild] == n {
		recs = append(recs, "Every item sits at DOK 1; the assessment measures recall only.")
	}
	flagged := 0
	for i := range results {
		for _, f := range results[i].Flags {
			if f.IsMajor() {
				flagged++
				break
			}
		}
	}
	if flagged > 0 {
		recs = append(recs, fmt.Sprintf("%d questions carry clarity or bias flags.", flagged))
	}
	if len(recs) == 0 {
		recs = append(recs, "Standards alignment and rigor balance look healthy.")
	}
	return recs
}

// scheduleExports enqueues every export type for a completed document.
// Export failures never block the analysis result.
func (p *Pipeline) scheduleExports(ctx context.Context, documentID string) {
	if p.exports == nil {
		return
	}
	for _, exportType := range domain.ExportTypes {
		if _, err := p.exports.Enqueue(ctx, documentID, 0, exportType); err != nil {
			log.Printf("pipeline: enqueueing %s export for document %s: %v", exportType, documentID, err)
		}
	}
}

// zeroDistribution returns an all-zero rigor distribution.
func zeroDistribution() map[domain.RigorLabel]float64 {
	out := make(map[domain.RigorLabel]float64, len(domain.RigorLabels))
	for _, label := range domain.RigorLabels {
		out[label] = 0
	}
	return out
}

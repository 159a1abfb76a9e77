package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// Orchestrator submits documents to model backends and normalises their
// output. The protocol bounds cost at two backend calls per document:
// a primary call, then at most one fallback call, either as an
// escalation when the primary fails or as a confidence-gated second
// pass over low-confidence questions.
type Orchestrator struct {
	primary  driven.ModelBackend
	fallback driven.ModelBackend
	cutoff   float64

	// statFile is swappable for tests.
	statFile func(string) error
}

// NewOrchestrator creates an orchestrator. fallback may be nil, in which
// case escalation and the second pass are skipped.
func NewOrchestrator(primary, fallback driven.ModelBackend, settings domain.OrchestratorSettings) *Orchestrator {
	cutoff := settings.ConfidenceCutoff
	if cutoff <= 0 {
		cutoff = domain.DefaultSettings().Orchestrator.ConfidenceCutoff
	}
	return &Orchestrator{
		primary:  primary,
		fallback: fallback,
		cutoff:   cutoff,
		statFile: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
	}
}

// Analyze runs the two-call protocol for one document. A degraded
// outcome is a normal, handled result: it means both backends failed
// (or the input was unreadable), never that the pipeline crashed.
func (o *Orchestrator) Analyze(ctx context.Context, doc *domain.Document) domain.AnalysisOutcome {
	// An unreadable artifact degrades before any backend call; there is
	// nothing to upload.
	if err := o.statFile(doc.FilePath); err != nil {
		return domain.DegradedOutcome(
			"The uploaded file could not be read.",
			fmt.Sprintf("%v: %v", domain.ErrFileUnreadable, err),
		)
	}
	if o.primary == nil {
		return domain.DegradedOutcome(
			"No analysis backend is configured.",
			domain.ErrBackendUnavailable.Error(),
		)
	}

	req := driven.AnalysisRequest{
		DocumentID:   doc.ID,
		FilePath:     doc.FilePath,
		Jurisdiction: doc.Jurisdiction,
		Course:       doc.Course,
	}

	proposals, primaryErr := o.primary.Analyze(ctx, req)
	if primaryErr != nil {
		log.Printf("orchestrator: primary backend %s failed for document %s: %v",
			o.primary.Name(), doc.ID, primaryErr)
		return o.escalate(ctx, req, primaryErr)
	}

	proposals = normaliseProposals(proposals, o.primary.Name(), domain.MergeSourcePrimary)

	if o.fallback != nil && o.needsSecondPass(proposals) {
		proposals = o.secondPass(ctx, req, proposals)
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].QuestionNumber < proposals[j].QuestionNumber
	})
	return domain.OkOutcome(proposals)
}

// escalate retries the whole document against the fallback backend.
func (o *Orchestrator) escalate(ctx context.Context, req driven.AnalysisRequest, primaryErr error) domain.AnalysisOutcome {
	if o.fallback == nil {
		return domain.DegradedOutcome(
			"Document analysis could not be completed.",
			fmt.Sprintf("primary backend failed: %v (no fallback configured)", primaryErr),
		)
	}

	proposals, err := o.fallback.Analyze(ctx, req)
	if err != nil {
		log.Printf("orchestrator: fallback backend %s failed for document %s: %v",
			o.fallback.Name(), req.DocumentID, err)
		return domain.DegradedOutcome(
			"Document analysis could not be completed.",
			fmt.Sprintf("primary backend failed: %v; fallback backend failed: %v", primaryErr, err),
		)
	}

	proposals = normaliseProposals(proposals, o.fallback.Name(), domain.MergeSourceFallback)
	sort.SliceStable(proposals, func(i, j int) bool {
		return proposals[i].QuestionNumber < proposals[j].QuestionNumber
	})
	return domain.OkOutcome(proposals)
}

// needsSecondPass reports whether any question's rigor confidence falls
// below the cutoff or was flagged for review by the engine itself.
func (o *Orchestrator) needsSecondPass(proposals []domain.ModelProposal) bool {
	for i := range proposals {
		if proposals[i].NeedsReview || proposals[i].Rigor.Confidence < o.cutoff {
			return true
		}
	}
	return false
}

// secondPass re-queries the fallback backend for the same document and
// merges per question, keeping whichever proposal carries the higher
// rigor confidence. Ties keep the primary. The surviving proposal's
// Source records why a value was chosen.
func (o *Orchestrator) secondPass(ctx context.Context, req driven.AnalysisRequest, primary []domain.ModelProposal) []domain.ModelProposal {
	fallback, err := o.fallback.Analyze(ctx, req)
	if err != nil {
		// A failed second pass keeps the primary results; the first
		// call already succeeded.
		log.Printf("orchestrator: second-pass call to %s failed for document %s, keeping primary results: %v",
			o.fallback.Name(), req.DocumentID, err)
		return primary
	}

	fallback = normaliseProposals(fallback, o.fallback.Name(), domain.MergeSourceFallback)
	byNumber := make(map[int]domain.ModelProposal, len(fallback))
	for _, p := range fallback {
		byNumber[p.QuestionNumber] = p
	}

	merged := make([]domain.ModelProposal, 0, len(primary))
	for _, p := range primary {
		if f, ok := byNumber[p.QuestionNumber]; ok && f.Rigor.Confidence > p.Rigor.Confidence {
			merged = append(merged, f)
			continue
		}
		merged = append(merged, p)
	}
	return merged
}

// normaliseProposals stamps engine/source metadata and enforces the
// schema's numeric bounds on every proposal.
func normaliseProposals(proposals []domain.ModelProposal, engine string, source domain.MergeSource) []domain.ModelProposal {
	for i := range proposals {
		proposals[i].Engine = engine
		proposals[i].Source = source
		proposals[i].Rigor = proposals[i].Rigor.Normalise()
	}
	return proposals
}

// Package schema defines the structured-output contract shared by all
// model backends: the analysis prompt and the tolerant extraction of
// question proposals from a model response.
package schema

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// maxSecondaryStandards caps non-primary codes per question.
const maxSecondaryStandards = 2

// Prompt builds the analysis instruction for one document.
func Prompt(jurisdiction, course string) string {
	return fmt.Sprintf(`You are an assessment analyst. Read the attached test or quiz and, for every question, identify the aligned curriculum standards and the cognitive rigor.

Target framework: %s
Course: %s

Respond with ONLY a JSON object matching this schema, no prose:
{
  "questions": [
    {
      "number": 1,
      "text": "the question text",
      "context": "surrounding passage or instructions, if any",
      "problemType": "multiple_choice | short_answer | extended_response | computation | other",
      "standards": [
        {"code": "A.REI.4", "jurisdiction": "%s", "isPrimary": true}
      ],
      "rigor": {
        "dokLevel": 2,
        "confidence": 0.85,
        "justification": "one sentence"
      },
      "needsReview": false,
      "unmapped": false
    }
  ]
}

Rules:
- dokLevel is an integer 1-4 on the Depth of Knowledge scale.
- confidence is between 0.01 and 0.99.
- Mark exactly one standard per question isPrimary, with at most two secondaries.
- If no standard fits, set unmapped true and leave standards empty.
- Set needsReview true when you are unsure about the rigor or alignment.`,
		jurisdiction, course, jurisdiction)
}

// ExtractProposals parses a model response into proposals. It tolerates
// fenced or prose-wrapped JSON but rejects responses without a usable
// questions array, surfacing domain.ErrMalformedOutput.
func ExtractProposals(raw string) ([]domain.ModelProposal, error) {
	body := stripFences(raw)
	if !gjson.Valid(body) {
		// The model may have wrapped the object in prose; take the
		// outermost braces.
		start := strings.Index(body, "{")
		end := strings.LastIndex(body, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: no JSON object in response", domain.ErrMalformedOutput)
		}
		body = body[start : end+1]
		if !gjson.Valid(body) {
			return nil, fmt.Errorf("%w: response is not valid JSON", domain.ErrMalformedOutput)
		}
	}

	questions := gjson.Get(body, "questions")
	if !questions.IsArray() {
		return nil, fmt.Errorf("%w: missing questions array", domain.ErrMalformedOutput)
	}

	var proposals []domain.ModelProposal
	var parseErr error
	questions.ForEach(func(_, q gjson.Result) bool {
		p, err := parseQuestion(q, len(proposals)+1)
		if err != nil {
			parseErr = err
			return false
		}
		proposals = append(proposals, p)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if len(proposals) == 0 {
		return nil, fmt.Errorf("%w: empty questions array", domain.ErrMalformedOutput)
	}
	return proposals, nil
}

// parseQuestion converts one JSON question into a proposal.
func parseQuestion(q gjson.Result, fallbackNumber int) (domain.ModelProposal, error) {
	number := int(q.Get("number").Int())
	if number <= 0 {
		number = fallbackNumber
	}

	rigor := q.Get("rigor")
	if !rigor.Exists() {
		return domain.ModelProposal{}, fmt.Errorf("%w: question %d has no rigor assessment", domain.ErrMalformedOutput, number)
	}

	p := domain.ModelProposal{
		QuestionNumber: number,
		QuestionText:   q.Get("text").String(),
		Context:        q.Get("context").String(),
		ProblemType:    q.Get("problemType").String(),
		NeedsReview:    q.Get("needsReview").Bool(),
		Unmapped:       q.Get("unmapped").Bool(),
		Rigor: domain.RigorAssessment{
			DOKLevel:      int(rigor.Get("dokLevel").Int()),
			Confidence:    rigor.Get("confidence").Float(),
			Justification: rigor.Get("justification").String(),
		}.Normalise(),
	}

	secondaries := 0
	q.Get("standards").ForEach(func(_, std gjson.Result) bool {
		sp := domain.StandardProposal{
			Code:         std.Get("code").String(),
			Jurisdiction: std.Get("jurisdiction").String(),
			IsPrimary:    std.Get("isPrimary").Bool(),
		}
		if sp.Code == "" {
			return true
		}
		if !sp.IsPrimary {
			if secondaries >= maxSecondaryStandards {
				return true
			}
			secondaries++
		}
		p.Standards = append(p.Standards, sp)
		return true
	})

	if len(p.Standards) == 0 {
		p.Unmapped = true
	}
	return p, nil
}

// stripFences removes a markdown code fence around the payload, if any.
func stripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

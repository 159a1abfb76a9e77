// Package domain defines the core business entities for the analysis
// pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded assessment and its analysis state
//   - Question: One assessed item extracted from a document
//   - ModelProposal: One engine's raw output for a question
//   - CanonicalStandard / CrosswalkEdge: The reference taxonomy
//   - QuestionResult: The voted consensus record per question
//   - QueueItem / DeadLetterEntry: Durable queue state
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain

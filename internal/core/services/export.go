package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driving"
)

// Ensure Exporter implements the interface.
var _ driving.ExportService = (*Exporter)(nil)

// Exporter generates export artifacts from persisted analysis results.
// The export queue coordinator drives it, one export type per item.
type Exporter struct {
	documents driven.DocumentStore
	questions driven.QuestionStore
	results   driven.ResultStore
	writer    driven.ExportWriter
}

// NewExporter creates an exporter.
func NewExporter(
	documents driven.DocumentStore,
	questions driven.QuestionStore,
	results driven.ResultStore,
	writer driven.ExportWriter,
) *Exporter {
	return &Exporter{
		documents: documents,
		questions: questions,
		results:   results,
		writer:    writer,
	}
}

// RunExport produces one artifact for a document.
func (e *Exporter) RunExport(ctx context.Context, documentID string, exportType domain.ExportType) error {
	doc, err := e.documents.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", documentID, err)
	}
	results, err := e.results.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("loading results for document %s: %w", documentID, err)
	}

	var data []byte
	switch exportType {
	case domain.ExportResultsCSV:
		data, err = resultsCSV(results)
	case domain.ExportStandardsReport:
		data, err = standardsReport(doc, results)
	case domain.ExportGradebook:
		data, err = gradebookCSV(doc, results)
	default:
		return fmt.Errorf("%w: unknown export type %q", domain.ErrInvalidInput, exportType)
	}
	if err != nil {
		return fmt.Errorf("generating %s for document %s: %w", exportType, documentID, err)
	}

	path, err := e.writer.Write(ctx, documentID, exportType, data)
	if err != nil {
		return fmt.Errorf("writing %s for document %s: %w", exportType, documentID, err)
	}
	log.Printf("exporter: wrote %s for document %s to %s", exportType, documentID, path)
	return nil
}

// resultsCSV lists every question result with its consensus alignment.
func resultsCSV(results []domain.QuestionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"question", "dok_level", "rigor", "confidence", "primary_code", "primary_standard_id", "method", "flags"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for i := range results {
		r := &results[i]
		var code, standardID, method string
		if primary := r.PrimaryStandard(); primary != nil {
			code = primary.Code
			standardID = primary.StandardID
			method = string(primary.Method)
		}
		flags := make([]string, len(r.Flags))
		for j, f := range r.Flags {
			flags[j] = string(f)
		}
		row := []string{
			strconv.Itoa(r.QuestionNumber),
			strconv.Itoa(r.DOKLevel),
			string(r.RigorLabel),
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			code,
			standardID,
			method,
			strings.Join(flags, ";"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// standardsReport is a plain-text coverage summary per standard.
func standardsReport(doc *domain.Document, results []domain.QuestionResult) ([]byte, error) {
	counts := make(map[string]int)
	var order []string
	for i := range results {
		primary := results[i].PrimaryStandard()
		if primary == nil || primary.StandardID == "" {
			continue
		}
		if _, seen := counts[primary.Code]; !seen {
			order = append(order, primary.Code)
		}
		counts[primary.Code]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Standards coverage for document %s (%s / %s)\n\n", doc.ID, doc.Jurisdiction, doc.Course)
	if len(order) == 0 {
		b.WriteString("No questions aligned to a canonical standard.\n")
		return []byte(b.String()), nil
	}
	for _, code := range order {
		fmt.Fprintf(&b, "%-20s %d question(s)\n", code, counts[code])
	}
	fmt.Fprintf(&b, "\n%d of %d questions aligned.\n", aligned(results), len(results))
	return []byte(b.String()), nil
}

// gradebookCSV is the per-question rigor sheet teachers import.
func gradebookCSV(doc *domain.Document, results []domain.QuestionResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"document", "question", "standard", "rigor"}); err != nil {
		return nil, err
	}
	for i := range results {
		r := &results[i]
		code := ""
		if primary := r.PrimaryStandard(); primary != nil && primary.StandardID != "" {
			code = primary.Code
		}
		row := []string{doc.ID, strconv.Itoa(r.QuestionNumber), code, string(r.RigorLabel)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// aligned counts results with a resolved primary standard.
func aligned(results []domain.QuestionResult) int {
	n := 0
	for i := range results {
		if primary := results[i].PrimaryStandard(); primary != nil && primary.StandardID != "" {
			n++
		}
	}
	return n
}

// Package httpapi exposes the analysis pipeline over HTTP using echo.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driving"
)

// Server wires the HTTP surface to the driving ports.
type Server struct {
	e           *echo.Echo
	analysis    driving.AnalysisService
	processing  driving.QueueCoordinator
	exports     driving.QueueCoordinator
	deadLetters driven.DeadLetterStore
}

// NewServer builds the HTTP server and registers routes.
func NewServer(
	analysis driving.AnalysisService,
	processing driving.QueueCoordinator,
	exports driving.QueueCoordinator,
	deadLetters driven.DeadLetterStore,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		e:           e,
		analysis:    analysis,
		processing:  processing,
		exports:     exports,
		deadLetters: deadLetters,
	}

	e.POST("/documents/:id/analyze", s.handleAnalyze)
	e.GET("/documents/:id", s.handleGetDocument)
	e.GET("/queue/status", s.handleQueueStatus)
	e.GET("/dead-letters", s.handleDeadLetters)
	e.GET("/healthz", s.handleHealth)

	return s
}

// Start blocks serving on addr until Shutdown or a listener error.
func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// analyzeRequest is the POST /documents/:id/analyze payload.
type analyzeRequest struct {
	FilePath     string `json:"filePath"`
	Jurisdiction string `json:"jurisdiction"`
	Course       string `json:"course"`
	Priority     int    `json:"priority"`
}

// handleAnalyze registers the document and enqueues it for processing.
func (s *Server) handleAnalyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	itemID, err := s.analysis.RequestAnalysis(
		c.Request().Context(),
		c.Param("id"),
		req.FilePath,
		req.Jurisdiction,
		req.Course,
		req.Priority,
	)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"documentId":  c.Param("id"),
		"queueItemId": itemID,
	})
}

// documentResponse is the GET /documents/:id payload.
type documentResponse struct {
	ID           string                  `json:"id"`
	Jurisdiction string                  `json:"jurisdiction"`
	Course       string                  `json:"course"`
	Status       domain.DocumentStatus   `json:"status"`
	LastError    string                  `json:"lastError,omitempty"`
	Analysis     *domain.AnalysisSummary `json:"analysis,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	UpdatedAt    time.Time               `json:"updatedAt"`
}

// handleGetDocument returns a document and its analysis summary.
func (s *Server) handleGetDocument(c echo.Context) error {
	doc, err := s.analysis.GetDocument(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, documentResponse{
		ID:           doc.ID,
		Jurisdiction: doc.Jurisdiction,
		Course:       doc.Course,
		Status:       doc.Status,
		LastError:    doc.LastError,
		Analysis:     doc.Analysis,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	})
}

// handleQueueStatus reports both coordinators.
func (s *Server) handleQueueStatus(c echo.Context) error {
	ctx := c.Request().Context()

	processing, err := s.processing.GetStatus(ctx)
	if err != nil {
		return mapError(err)
	}
	exports, err := s.exports.GetStatus(ctx)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, map[string]*driving.QueueStatus{
		"processing": processing,
		"export":     exports,
	})
}

// deadLetterResponse is one entry in the GET /dead-letters payload.
type deadLetterResponse struct {
	ID            string            `json:"id"`
	Queue         domain.QueueType  `json:"queue"`
	DocumentID    string            `json:"documentId"`
	ExportType    domain.ExportType `json:"exportType,omitempty"`
	FinalError    string            `json:"finalError"`
	AttemptErrors []string          `json:"attemptErrors"`
	Attempts      int               `json:"attempts"`
	FailedAt      time.Time         `json:"failedAt"`
}

// deadLetterListLimit caps the dead-letter listing.
const deadLetterListLimit = 100

// handleDeadLetters lists dead-letter entries, newest first.
func (s *Server) handleDeadLetters(c echo.Context) error {
	entries, err := s.deadLetters.List(c.Request().Context(), deadLetterListLimit)
	if err != nil {
		return mapError(err)
	}

	out := make([]deadLetterResponse, len(entries))
	for i := range entries {
		e := &entries[i]
		out[i] = deadLetterResponse{
			ID:            e.ID,
			Queue:         e.Queue,
			DocumentID:    e.DocumentID,
			ExportType:    e.ExportType,
			FinalError:    e.FinalError,
			AttemptErrors: e.AttemptErrors,
			Attempts:      e.Attempts,
			FailedAt:      e.FailedAt,
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"deadLetters": out})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// mapError translates domain errors to HTTP status codes.
func mapError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyQueued):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

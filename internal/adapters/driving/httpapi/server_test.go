package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/storage/memory"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driving"
)

// mockAnalysis implements driving.AnalysisService with canned responses.
type mockAnalysis struct {
	itemID     string
	requestErr error
	doc        *domain.Document
	getErr     error
}

func (m *mockAnalysis) RequestAnalysis(_ context.Context, _, _, _, _ string, _ int) (string, error) {
	return m.itemID, m.requestErr
}

func (m *mockAnalysis) AnalyzeDocument(_ context.Context, _ string) error { return nil }

func (m *mockAnalysis) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	return m.doc, m.getErr
}

// mockCoordinator implements driving.QueueCoordinator for status reads.
type mockCoordinator struct {
	status driving.QueueStatus
}

func (m *mockCoordinator) Enqueue(_ context.Context, _ string, _ int, _ domain.ExportType) (string, error) {
	return "", nil
}

func (m *mockCoordinator) Start(_ context.Context) error { return nil }
func (m *mockCoordinator) Stop() error                   { return nil }

func (m *mockCoordinator) GetStatus(_ context.Context) (*driving.QueueStatus, error) {
	status := m.status
	return &status, nil
}

func newTestServer(analysis *mockAnalysis, deadLetters *memory.DeadLetterStore) *Server {
	if deadLetters == nil {
		deadLetters = memory.NewDeadLetterStore()
	}
	return NewServer(
		analysis,
		&mockCoordinator{status: driving.QueueStatus{Queue: domain.QueueProcessing, Running: true, Depth: 2}},
		&mockCoordinator{status: driving.QueueStatus{Queue: domain.QueueExport, Depth: 0}},
		deadLetters,
	)
}

func TestHandleAnalyze(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		server := newTestServer(&mockAnalysis{itemID: "item-1"}, nil)

		body := `{"filePath": "/tmp/quiz.txt", "jurisdiction": "CCSS", "course": "Algebra 1"}`
		req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/analyze", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		server.e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusAccepted, rec.Code)
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "doc-1", resp["documentId"])
		assert.Equal(t, "item-1", resp["queueItemId"])
	})

	t.Run("duplicate submission conflicts", func(t *testing.T) {
		server := newTestServer(&mockAnalysis{requestErr: domain.ErrAlreadyQueued}, nil)

		req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/analyze", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		server.e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid input is a bad request", func(t *testing.T) {
		server := newTestServer(&mockAnalysis{requestErr: domain.ErrInvalidInput}, nil)

		req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/analyze", strings.NewReader(`{}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()

		server.e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleGetDocument(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		doc := &domain.Document{
			ID: "doc-1", Jurisdiction: "CCSS", Course: "Algebra 1",
			Status: domain.DocumentStatusCompleted,
			Analysis: &domain.AnalysisSummary{
				TotalQuestions: 3,
			},
		}
		server := newTestServer(&mockAnalysis{doc: doc}, nil)

		req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
		rec := httptest.NewRecorder()

		server.e.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp documentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "doc-1", resp.ID)
		assert.Equal(t, domain.DocumentStatusCompleted, resp.Status)
		require.NotNil(t, resp.Analysis)
		assert.Equal(t, 3, resp.Analysis.TotalQuestions)
	})

	t.Run("missing", func(t *testing.T) {
		server := newTestServer(&mockAnalysis{getErr: domain.ErrNotFound}, nil)

		req := httptest.NewRequest(http.MethodGet, "/documents/nope", nil)
		rec := httptest.NewRecorder()

		server.e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleQueueStatus(t *testing.T) {
	server := newTestServer(&mockAnalysis{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/queue/status", nil)
	rec := httptest.NewRecorder()

	server.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]driving.QueueStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp["processing"].Running)
	assert.Equal(t, 2, resp["processing"].Depth)
	assert.Equal(t, domain.QueueExport, resp["export"].Queue)
}

func TestHandleDeadLetters(t *testing.T) {
	deadLetters := memory.NewDeadLetterStore()
	require.NoError(t, deadLetters.Create(context.Background(), &domain.DeadLetterEntry{
		ID:            "dl-1",
		Queue:         domain.QueueProcessing,
		DocumentID:    "doc-1",
		FinalError:    "model backend unreachable",
		AttemptErrors: []string{"timeout", "timeout", "model backend unreachable"},
		Attempts:      3,
		FailedAt:      time.Now().UTC(),
	}))
	server := newTestServer(&mockAnalysis{}, deadLetters)

	req := httptest.NewRequest(http.MethodGet, "/dead-letters", nil)
	rec := httptest.NewRecorder()

	server.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		DeadLetters []deadLetterResponse `json:"deadLetters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.DeadLetters, 1)
	assert.Equal(t, "doc-1", resp.DeadLetters[0].DocumentID)
	assert.Equal(t, 3, resp.DeadLetters[0].Attempts)
	assert.Len(t, resp.DeadLetters[0].AttemptErrors, 3)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(&mockAnalysis{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	server.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMapErrorUnknown(t *testing.T) {
	err := mapError(errors.New("database locked"))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
}

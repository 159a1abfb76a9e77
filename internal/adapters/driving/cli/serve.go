package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	exportfs "github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/export/fs"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/model"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driven/storage/sqlite"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/adapters/driving/httpapi"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/services"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis service",
	Long: `Starts the HTTP API and both queue coordinators. Documents submitted
via POST /documents/:id/analyze move through the processing queue; each
completed analysis schedules its exports on the export queue.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if dataDir != "" {
		settings.DataDir = dataDir
	}
	if settings.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving data directory: %w", err)
		}
		settings.DataDir = filepath.Join(home, ".aqi")
	}
	if err := os.MkdirAll(settings.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()
	log.Printf("serve: store ready at %s", store.Path())

	ctx := cmd.Context()

	primary, fallback := buildBackends(ctx, settings)
	if primary != nil {
		defer primary.Close()
	}
	if fallback != nil {
		defer fallback.Close()
	}

	standards := store.StandardsStore()
	resolver := services.NewResolver(standards, standards, standards)
	voter := services.NewVoter()
	scorer := services.NewScorer(settings.Scoring)
	orchestrator := services.NewOrchestrator(primary, fallback, settings.Orchestrator)

	exporter := services.NewExporter(
		store.DocumentStore(),
		store.QuestionStore(),
		store.ResultStore(),
		exportfs.NewWriter(settings.DataDir),
	)

	// The pipeline and the processing coordinator reference each other,
	// so the handler closes over a pointer filled in below.
	var pipeline *services.Pipeline

	processing := services.NewCoordinator(
		domain.QueueProcessing,
		store.QueueStore(),
		store.DeadLetterStore(),
		store.DocumentStore(),
		func(ctx context.Context, item domain.QueueItem) error {
			return pipeline.AnalyzeDocument(ctx, item.DocumentID)
		},
		settings.Queue,
	)
	exports := services.NewCoordinator(
		domain.QueueExport,
		store.QueueStore(),
		store.DeadLetterStore(),
		store.DocumentStore(),
		func(ctx context.Context, item domain.QueueItem) error {
			return exporter.RunExport(ctx, item.DocumentID, item.ExportType)
		},
		settings.Queue,
	)

	pipeline = services.NewPipeline(
		store.DocumentStore(),
		store.QuestionStore(),
		store.ResultStore(),
		orchestrator,
		resolver,
		voter,
		scorer,
		processing,
		exports,
	)

	server := httpapi.NewServer(pipeline, processing, exports, store.DeadLetterStore())

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		if err := processing.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("processing coordinator: %w", err)
		}
	}()
	go func() {
		if err := exports.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("export coordinator: %w", err)
		}
	}()
	go func() {
		log.Printf("serve: listening on %s", settings.ListenAddr)
		if err := server.Start(settings.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-runCtx.Done():
		log.Printf("serve: shutting down")
	case err := <-errCh:
		cancel()
		log.Printf("serve: fatal: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("serve: http shutdown: %v", err)
	}
	if err := processing.Stop(); err != nil {
		log.Printf("serve: stopping processing coordinator: %v", err)
	}
	if err := exports.Stop(); err != nil {
		log.Printf("serve: stopping export coordinator: %v", err)
	}
	return nil
}

// buildBackends constructs the configured model backends. A missing
// primary is tolerated at startup so the HTTP surface can still serve
// reads; analysis requests degrade until a backend is configured.
func buildBackends(ctx context.Context, settings domain.Settings) (primary, fallback driven.ModelBackend) {
	if settings.Primary.IsConfigured() {
		b, err := model.CreateValidatedBackend(ctx, settings.Primary)
		if err != nil {
			log.Printf("serve: primary backend unavailable: %v", err)
		} else {
			primary = b
			log.Printf("serve: primary backend %s ready", b.Name())
		}
	} else {
		log.Printf("serve: no primary backend configured; analysis will degrade")
	}

	if settings.Fallback.IsConfigured() {
		b, err := model.CreateValidatedBackend(ctx, settings.Fallback)
		if err != nil {
			log.Printf("serve: fallback backend unavailable: %v", err)
		} else {
			fallback = b
			log.Printf("serve: fallback backend %s ready", b.Name())
		}
	}
	return primary, fallback
}

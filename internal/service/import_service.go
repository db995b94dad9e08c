package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/importer"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos   *repository.Repositories
	creator importer.CarCreator
	cfg     *config.Config
	log     zerolog.Logger
}

// newImportService creates a new ImportService that submits rows through creator
func newImportService(repos *repository.Repositories, creator importer.CarCreator, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos:   repos,
		creator: creator,
		cfg:     cfg,
		log:     log.With().Str("service", "import").Logger(),
	}
}

// CreateImportRun registers an uploaded file as a pending run
func (s *importService) CreateImportRun(ctx context.Context, req *models.ImportRequest, filePath string) (*models.ImportRun, error) {
	if req.SellerID == "" {
		return nil, importer.ErrNoSeller
	}
	seller, err := s.repos.Seller.GetByID(ctx, req.SellerID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if seller == nil {
		return nil, errSellerNotFound
	}

	run := &models.ImportRun{
		ID:             uuid.New().String(),
		SellerID:       req.SellerID,
		Status:         models.ImportRunPending,
		IdempotencyKey: req.IdempotencyKey,
		FileName:       req.FileName,
		FilePath:       filePath,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.repos.ImportRun.Create(ctx, run); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Str("seller_id", run.SellerID).
		Str("file", run.FileName).
		Msg("Import run created")

	return run, nil
}

// ProcessImport parses the run's file and submits every row in order.
// Cancelling ctx stops the run before the next row; the outcome so far is kept.
func (s *importService) ProcessImport(ctx context.Context, run *models.ImportRun) error {
	startTime := time.Now()
	if run.StartedAt == nil {
		run.StartedAt = &startTime
	}
	run.Status = models.ImportRunProcessing

	// bookkeeping writes must land even after ctx is cancelled
	persistCtx := context.WithoutCancel(ctx)

	s.log.Info().Str("run_id", run.ID).Str("file", run.FileName).Msg("Starting import processing")

	outcome, err := s.submit(ctx, run)

	run.DurationMs = time.Since(startTime).Milliseconds()
	completedAt := time.Now()
	run.CompletedAt = &completedAt

	if outcome != nil {
		run.TotalRows = outcome.Total
		run.SuccessCount = outcome.SuccessCount
		run.FailedCount = len(outcome.Errors)
		if addErr := s.repos.ImportRun.AddErrors(persistCtx, run.ID, outcome.Errors); addErr != nil {
			s.log.Error().Err(addErr).Str("run_id", run.ID).Msg("Failed to store row errors")
		}
	}

	switch {
	case outcome != nil && outcome.Cancelled:
		run.Status = models.ImportRunCancelled
		run.Message = fmt.Sprintf("cancelled with %d of %d rows not attempted", outcome.NotAttempted, outcome.Total)
		s.log.Warn().Str("run_id", run.ID).Int("not_attempted", outcome.NotAttempted).Msg("Import cancelled")
	case err != nil:
		run.Status = models.ImportRunFailed
		run.Message = apperrors.UserMessage(err)
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Import failed")
	default:
		run.Status = models.ImportRunCompleted
		s.log.Info().
			Str("run_id", run.ID).
			Int("total", run.TotalRows).
			Int("successful", run.SuccessCount).
			Int("failed", run.FailedCount).
			Int("skipped_lines", run.SkippedLines).
			Int64("duration_ms", run.DurationMs).
			Msg("Import completed")
	}

	if updErr := s.repos.ImportRun.Update(persistCtx, run); updErr != nil {
		s.log.Error().Err(updErr).Str("run_id", run.ID).Msg("Failed to update import run")
	}

	if rmErr := os.Remove(run.FilePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		s.log.Warn().Err(rmErr).Str("run_id", run.ID).Msg("Failed to remove uploaded file")
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *importService) submit(ctx context.Context, run *models.ImportRun) (*models.ImportOutcome, error) {
	file, err := os.Open(run.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	preview, err := importer.Parse(file)
	if err != nil {
		return nil, err
	}
	run.SkippedLines = len(preview.Skipped)

	submitter := importer.NewSubmitter(s.creator,
		importer.WithPlaceholderImage(s.cfg.Import.PlaceholderImage),
		importer.WithLogger(s.log.With().Str("run_id", run.ID).Logger()),
	)
	return submitter.Run(ctx, preview.Rows, run.SellerID)
}

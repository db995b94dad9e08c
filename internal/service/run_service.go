package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/rs/zerolog"
)

const runErrorPreviewLimit = 100

var errRunNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "Import run not found")

// runService is the concrete implementation of RunService
type runService struct {
	runRepo       repository.ImportRunRepository
	importService ImportService
	pollInterval  time.Duration
	log           zerolog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	running       bool
	mu            sync.Mutex
	// Semaphore: buffered channel limiting concurrent runs
	sem chan struct{}

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// newRunService creates a RunService. Rows inside one run are always
// submitted sequentially; the pool only bounds how many runs proceed at once.
func newRunService(runRepo repository.ImportRunRepository, pollInterval time.Duration, log zerolog.Logger) *runService {
	maxWorkers := runtime.NumCPU()
	if maxWorkers < 2 {
		maxWorkers = 2
	}
	if maxWorkers > 8 {
		maxWorkers = 8
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	log.Info().Int("max_workers", maxWorkers).Msg("Initializing import run worker pool")

	return &runService{
		runRepo:      runRepo,
		pollInterval: pollInterval,
		log:          log.With().Str("service", "import_run").Logger(),
		sem:          make(chan struct{}, maxWorkers),
		cancels:      make(map[string]context.CancelFunc),
	}
}

// SetImportService sets the import service for run processing
func (s *runService) SetImportService(importService ImportService) {
	s.importService = importService
}

// StartProcessor polls for pending runs until StopProcessor is called or ctx is done
func (s *runService) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.log.Info().Dur("poll_interval", s.pollInterval).Msg("Import run processor started")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Import run processor stopping")
			return
		case <-ticker.C:
			s.processPendingRuns()
		}
	}
}

// StopProcessor cancels in-flight runs and waits for them to record their outcome
func (s *runService) StopProcessor() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Import run processor stopped")
}

// processPendingRuns claims and starts every pending run
func (s *runService) processPendingRuns() {
	runs, err := s.runRepo.GetPendingRuns(s.ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get pending import runs")
		return
	}

	for _, run := range runs {
		// Acquire semaphore slot - blocks if all workers are busy
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			return
		}

		// Tracked before the claim so CancelRun always finds a claimed run
		runCtx, cancel := context.WithCancel(s.ctx)
		s.track(run.ID, cancel)

		marked, err := s.runRepo.MarkAsProcessing(s.ctx, run.ID)
		if err != nil || !marked {
			s.untrack(run.ID)
			<-s.sem
			continue // cancelled or claimed elsewhere
		}
		now := time.Now()
		run.Status = models.ImportRunProcessing
		run.StartedAt = &now

		s.wg.Add(1)
		go func(r *models.ImportRun) {
			defer s.wg.Done()
			defer func() { <-s.sem }()
			defer s.untrack(r.ID)

			// Panic recovery keeps one bad file from taking the server down
			defer func() {
				if p := recover(); p != nil {
					s.log.Error().
						Interface("panic", p).
						Str("run_id", r.ID).
						Msg("Import run panicked - recovered")
					r.Status = models.ImportRunFailed
					r.Message = "internal error while processing the file"
					if err := s.runRepo.Update(context.WithoutCancel(runCtx), r); err != nil {
						s.log.Error().Err(err).Str("run_id", r.ID).Msg("Failed to mark import run as failed")
					}
				}
			}()
			s.processRun(runCtx, r)
		}(run)
	}
}

func (s *runService) processRun(ctx context.Context, run *models.ImportRun) {
	if s.importService == nil {
		s.log.Error().Str("run_id", run.ID).Msg("No import service configured")
		return
	}
	if err := s.importService.ProcessImport(ctx, run); err != nil {
		s.log.Error().Err(err).Str("run_id", run.ID).Msg("Import processing failed")
	}
}

func (s *runService) track(id string, cancel context.CancelFunc) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	s.cancels[id] = cancel
}

func (s *runService) untrack(id string) {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if cancel, ok := s.cancels[id]; ok {
		cancel()
		delete(s.cancels, id)
	}
}

// GetRun retrieves a run with its first errors
func (s *runService) GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if run == nil {
		return nil, errRunNotFound
	}

	rowErrors, err := s.runRepo.GetErrors(ctx, id, runErrorPreviewLimit)
	if err != nil {
		s.log.Error().Err(err).Str("run_id", id).Msg("Failed to get import run errors")
	}

	response := &models.ImportRunResponse{
		ImportRun: *run,
		Errors:    rowErrors,
	}
	if run.FailedCount > 0 {
		response.ErrorReport = "/api/admin/imports/" + run.ID + "/errors"
	}
	return response, nil
}

// GetRunByIdempotencyKey retrieves a run by idempotency key, nil when unknown
func (s *runService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	run, err := s.runRepo.GetByIdempotencyKey(ctx, key)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return run, nil
}

// GetRunErrors retrieves every row error of a run
func (s *runService) GetRunErrors(ctx context.Context, id string) ([]models.RowError, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if run == nil {
		return nil, errRunNotFound
	}
	rowErrors, err := s.runRepo.GetErrors(ctx, id, 0)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return rowErrors, nil
}

// CancelRun stops a pending or processing run. A pending run is cancelled
// only if no processor has claimed it yet; a processing run stops before its
// next row and records itself as cancelled.
func (s *runService) CancelRun(ctx context.Context, id string) (*models.ImportRun, error) {
	run, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if run == nil {
		return nil, errRunNotFound
	}
	if run.Status.Finished() {
		return nil, errRunFinished(run.Status)
	}

	if s.cancelInFlight(id) {
		return run, nil
	}

	now := time.Now()
	const message = "cancelled before processing started"
	cancelled, err := s.runRepo.CancelPending(ctx, id, message, now)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if cancelled {
		run.Status = models.ImportRunCancelled
		run.CompletedAt = &now
		run.Message = message
		s.log.Info().Str("run_id", id).Msg("Pending import run cancelled")
		return run, nil
	}

	// Claimed between the read and the conditional update
	if s.cancelInFlight(id) {
		run.Status = models.ImportRunProcessing
		return run, nil
	}

	current, err := s.runRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if current == nil {
		return nil, errRunNotFound
	}
	if current.Status.Finished() {
		return nil, errRunFinished(current.Status)
	}
	// Processing on another instance; it is not ours to stop
	return nil, apperrors.WithMessage(apperrors.ErrConflict, "import run is being processed by another worker")
}

func (s *runService) cancelInFlight(id string) bool {
	s.cancelMu.Lock()
	cancel, ok := s.cancels[id]
	s.cancelMu.Unlock()
	if !ok {
		return false
	}
	cancel()
	s.log.Info().Str("run_id", id).Msg("Import run cancellation requested")
	return true
}

func errRunFinished(status models.ImportRunStatus) error {
	return apperrors.WithMessage(apperrors.ErrConflict, "import run is already %s", status)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
	"github.com/lib/pq"
)

const importRunColumns = `id, seller_id, status, idempotency_key, file_name, file_path, total_rows,
	skipped_lines, success_count, failed_count, duration_ms, message, created_at, started_at, completed_at`

// importRunRepo is the concrete implementation of ImportRunRepository
type importRunRepo struct {
	db *database.DB
}

// NewImportRunRepo creates a new import run repository
func NewImportRunRepo(db *database.DB) ImportRunRepository {
	return &importRunRepo{db: db}
}

// Create inserts a new import run
func (r *importRunRepo) Create(ctx context.Context, run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (id, seller_id, status, idempotency_key, file_name, file_path, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.SellerID, run.Status, nullString(run.IdempotencyKey),
		run.FileName, run.FilePath, run.CreatedAt,
	)
	return err
}

// Update updates run status and counters
func (r *importRunRepo) Update(ctx context.Context, run *models.ImportRun) error {
	query := `
		UPDATE import_runs SET
			status = $1, total_rows = $2, skipped_lines = $3, success_count = $4,
			failed_count = $5, duration_ms = $6, message = $7, started_at = $8, completed_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.TotalRows, run.SkippedLines, run.SuccessCount,
		run.FailedCount, run.DurationMs, nullString(run.Message), run.StartedAt, run.CompletedAt,
		run.ID,
	)
	return err
}

// GetByID retrieves a run by ID
func (r *importRunRepo) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	return r.getOne(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE id = $1`, id)
}

// GetByIdempotencyKey retrieves a run by idempotency key
func (r *importRunRepo) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	return r.getOne(ctx, `SELECT `+importRunColumns+` FROM import_runs WHERE idempotency_key = $1`, key)
}

func (r *importRunRepo) getOne(ctx context.Context, query, arg string) (*models.ImportRun, error) {
	run, err := scanImportRun(r.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetPendingRuns retrieves all pending runs, oldest first
func (r *importRunRepo) GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error) {
	query := `
		SELECT id, seller_id, file_name, file_path, created_at
		FROM import_runs WHERE status = 'pending'
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.ImportRun
	for rows.Next() {
		var run models.ImportRun
		if err := rows.Scan(&run.ID, &run.SellerID, &run.FileName, &run.FilePath, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Status = models.ImportRunPending
		runs = append(runs, &run)
	}

	return runs, rows.Err()
}

// MarkAsProcessing atomically claims a pending run
func (r *importRunRepo) MarkAsProcessing(ctx context.Context, runID string) (bool, error) {
	query := `
		UPDATE import_runs SET status = 'processing', started_at = $1
		WHERE id = $2 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), runID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// CancelPending cancels a run only while it is still pending, so it never
// races a processor that already claimed it
func (r *importRunRepo) CancelPending(ctx context.Context, runID, message string, at time.Time) (bool, error) {
	query := `
		UPDATE import_runs SET status = 'cancelled', message = $1, completed_at = $2
		WHERE id = $3 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, message, at, runID)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// AddErrors stores row errors using the COPY protocol
func (r *importRunRepo) AddErrors(ctx context.Context, runID string, rowErrors []models.RowError) error {
	if len(rowErrors) == 0 {
		return nil
	}

	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("import_errors",
			"run_id", "line_number", "vehicle", "message",
		))
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range rowErrors {
			if _, err := stmt.ExecContext(ctx, runID, e.Line, e.Vehicle, e.Message); err != nil {
				return err
			}
		}

		// Flush the COPY buffer
		_, err = stmt.ExecContext(ctx)
		return err
	})
}

// GetErrors retrieves row errors for a run in line order. limit <= 0 returns all.
func (r *importRunRepo) GetErrors(ctx context.Context, runID string, limit int) ([]models.RowError, error) {
	query := `SELECT line_number, vehicle, message FROM import_errors WHERE run_id = $1 ORDER BY line_number, id`
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rowErrors := []models.RowError{}
	for rows.Next() {
		var e models.RowError
		if err := rows.Scan(&e.Line, &e.Vehicle, &e.Message); err != nil {
			return nil, err
		}
		rowErrors = append(rowErrors, e)
	}

	return rowErrors, rows.Err()
}

// CountByStatus counts runs grouped by status
func (r *importRunRepo) CountByStatus(ctx context.Context) (map[models.ImportRunStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM import_runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ImportRunStatus]int)
	for rows.Next() {
		var status models.ImportRunStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanImportRun(row rowScanner) (*models.ImportRun, error) {
	var run models.ImportRun
	var idempotencyKey, message sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.SellerID, &run.Status, &idempotencyKey, &run.FileName, &run.FilePath,
		&run.TotalRows, &run.SkippedLines, &run.SuccessCount, &run.FailedCount, &run.DurationMs,
		&message, &run.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.IdempotencyKey = idempotencyKey.String
	run.Message = message.String
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	return &run, nil
}

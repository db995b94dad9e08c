package importer

import (
	"context"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
	"github.com/rs/zerolog"
)

// DefaultPlaceholderImage is submitted for rows without any image
const DefaultPlaceholderImage = "https://via.placeholder.com/400x240?text=Sem+Imagem"

var (
	// ErrNoSeller is returned when an import is started without a seller
	ErrNoSeller = apperrors.WithMessage(apperrors.ErrInvalidInput, "select a seller before importing")
	// ErrEmptyPreview is returned when there is nothing to import
	ErrEmptyPreview = apperrors.WithMessage(apperrors.ErrInvalidInput, "no vehicles to import")
)

// CarCreator creates one car. Implemented by the HTTP client and by the
// in-process car service.
type CarCreator interface {
	CreateCar(ctx context.Context, input *models.CarInput) (*models.Car, error)
}

// ProgressFunc is called after every attempted row. rowErr is nil on success.
type ProgressFunc func(done, total int, rowErr *models.RowError)

// Option configures a Submitter
type Option func(*Submitter)

// WithPlaceholderImage sets the image used for rows without images
func WithPlaceholderImage(url string) Option {
	return func(s *Submitter) {
		if url != "" {
			s.placeholder = url
		}
	}
}

// WithProgress registers a progress callback
func WithProgress(fn ProgressFunc) Option {
	return func(s *Submitter) {
		s.progress = fn
	}
}

// WithLogger sets the logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Submitter) {
		s.log = log.With().Str("component", "import_submitter").Logger()
	}
}

// Submitter sends preview rows to a CarCreator one at a time and aggregates
// the outcome.
type Submitter struct {
	creator     CarCreator
	placeholder string
	progress    ProgressFunc
	log         zerolog.Logger
}

// NewSubmitter creates a new submitter
func NewSubmitter(creator CarCreator, opts ...Option) *Submitter {
	s := &Submitter{
		creator:     creator,
		placeholder: DefaultPlaceholderImage,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Payload builds the create request for one row
func (s *Submitter) Payload(row models.ImportRow, sellerID string) *models.CarInput {
	images := row.Images
	if len(images) == 0 {
		images = []string{s.placeholder}
	}
	return &models.CarInput{
		Brand:       row.Brand,
		Model:       row.Model,
		Year:        row.Year,
		Km:          row.Km,
		Price:       row.Price,
		Description: row.Description,
		Images:      append([]string(nil), images...),
		SellerID:    sellerID,
		Status:      row.Status,
		Featured:    row.Featured,
	}
}

// Run submits rows strictly in order. Row i+1 is only sent after row i has
// succeeded or failed; a failing row is recorded and the run continues.
//
// ctx is checked before every row. When it is cancelled the run stops, the
// outcome is marked Cancelled with the remaining rows counted in
// NotAttempted, and ctx.Err() is returned alongside the outcome.
func (s *Submitter) Run(ctx context.Context, rows []models.ImportRow, sellerID string) (*models.ImportOutcome, error) {
	if sellerID == "" {
		return nil, ErrNoSeller
	}
	if len(rows) == 0 {
		return nil, ErrEmptyPreview
	}

	outcome := &models.ImportOutcome{
		Total:  len(rows),
		Errors: []models.RowError{},
	}

	s.log.Info().Int("rows", len(rows)).Str("seller_id", sellerID).Msg("Starting import run")

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			outcome.Cancelled = true
			outcome.NotAttempted = len(rows) - i
			s.log.Warn().
				Int("success", outcome.SuccessCount).
				Int("failed", len(outcome.Errors)).
				Int("not_attempted", outcome.NotAttempted).
				Msg("Import run cancelled")
			return outcome, err
		}

		var rowErr *models.RowError
		if _, err := s.creator.CreateCar(ctx, s.Payload(row, sellerID)); err != nil {
			rowErr = &models.RowError{
				Line:    row.Line,
				Vehicle: row.VehicleLabel(),
				Message: apperrors.UserMessage(err),
			}
			outcome.Errors = append(outcome.Errors, *rowErr)
			s.log.Warn().Err(err).Int("line", row.Line).Str("vehicle", rowErr.Vehicle).Msg("Row rejected")
		} else {
			outcome.SuccessCount++
		}

		if s.progress != nil {
			s.progress(i+1, len(rows), rowErr)
		}
	}

	s.log.Info().
		Int("success", outcome.SuccessCount).
		Int("failed", len(outcome.Errors)).
		Msg("Import run finished")

	return outcome, nil
}

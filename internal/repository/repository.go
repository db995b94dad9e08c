package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
)

// CarRepository defines the interface for car data operations
type CarRepository interface {
	Create(ctx context.Context, car *models.Car) error
	Update(ctx context.Context, car *models.Car) error
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Car, error)
	List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error)
	ListWithSellers(ctx context.Context) ([]*models.CarWithSeller, error)
	CountBySeller(ctx context.Context, sellerID string) (int, error)
	CountByStatus(ctx context.Context) (map[models.CarStatus]int, error)
}

// SellerRepository defines the interface for seller data operations
type SellerRepository interface {
	Create(ctx context.Context, seller *models.Seller) error
	Update(ctx context.Context, seller *models.Seller) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Seller, error)
	List(ctx context.Context) ([]*models.Seller, error)
	Count(ctx context.Context) (int, error)
}

// SettingsRepository stores the single site settings record
type SettingsRepository interface {
	Get(ctx context.Context) (*models.SiteSettings, error)
	Replace(ctx context.Context, settings *models.SiteSettings) error
}

// AdminRepository defines the interface for admin account operations
type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Count(ctx context.Context) (int, error)
}

// ImportRunRepository defines the interface for server-side import runs
type ImportRunRepository interface {
	Create(ctx context.Context, run *models.ImportRun) error
	Update(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id string) (*models.ImportRun, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error)
	MarkAsProcessing(ctx context.Context, runID string) (bool, error)
	CancelPending(ctx context.Context, runID, message string, at time.Time) (bool, error)
	AddErrors(ctx context.Context, runID string, errors []models.RowError) error
	GetErrors(ctx context.Context, runID string, limit int) ([]models.RowError, error)
	CountByStatus(ctx context.Context) (map[models.ImportRunStatus]int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Car       CarRepository
	Seller    SellerRepository
	Settings  SettingsRepository
	Admin     AdminRepository
	ImportRun ImportRunRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Car:       NewCarRepo(db),
		Seller:    NewSellerRepo(db),
		Settings:  NewSettingsRepo(db),
		Admin:     NewAdminRepo(db),
		ImportRun: NewImportRunRepo(db),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package service

import (
	"context"

	"github.com/car-storefront-api/internal/cache"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/settings"
	"github.com/rs/zerolog"
)

// CarService defines the interface for catalog operations.
// It satisfies importer.CarCreator so import runs go through the same checks as the API.
type CarService interface {
	CreateCar(ctx context.Context, input *models.CarInput) (*models.Car, error)
	UpdateCar(ctx context.Context, id string, update *models.CarUpdate) (*models.Car, error)
	DeleteCar(ctx context.Context, id string) error
	GetCar(ctx context.Context, id string) (*models.Car, error)
	ListPublic(ctx context.Context, filter models.CarFilter) ([]models.CarPublic, error)
	ListAdmin(ctx context.Context) ([]*models.CarWithSeller, error)
}

// SellerService defines the interface for seller management
type SellerService interface {
	CreateSeller(ctx context.Context, input *models.SellerInput) (*models.Seller, error)
	UpdateSeller(ctx context.Context, id string, input *models.SellerInput) (*models.Seller, error)
	DeleteSeller(ctx context.Context, id string) error
	ListSellers(ctx context.Context) ([]*models.Seller, error)
}

// SettingsService defines the interface for site settings and the contact flow
type SettingsService interface {
	FetchSettings(ctx context.Context) (models.SiteSettings, error)
	ReplaceSettings(ctx context.Context, s *models.SiteSettings) (models.SiteSettings, error)
	Current(ctx context.Context) models.SiteSettings
	StoreInfo(ctx context.Context) models.StoreInfo
	ContactLink(ctx context.Context, carID string) (*models.ContactLink, error)
	AttachStore(store *settings.Store)
}

// AuthService defines the interface for admin authentication
type AuthService interface {
	EnsureDefaultAdmin(ctx context.Context) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	ParseToken(token string) (*Claims, error)
	ChangePassword(ctx context.Context, adminID string, req *models.ChangePasswordRequest) error
}

// StatsService defines the interface for dashboard counters
type StatsService interface {
	GetStats(ctx context.Context) (*models.Stats, error)
	GetMetrics(ctx context.Context) (*models.Metrics, error)
}

// ImportService defines the interface for import operations
type ImportService interface {
	CreateImportRun(ctx context.Context, req *models.ImportRequest, filePath string) (*models.ImportRun, error)
	ProcessImport(ctx context.Context, run *models.ImportRun) error
}

// RunService defines the interface for import run management
type RunService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error)
	GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error)
	GetRunErrors(ctx context.Context, id string) ([]models.RowError, error)
	CancelRun(ctx context.Context, id string) (*models.ImportRun, error)
	SetImportService(importService ImportService)
}

// Services holds all service interfaces
type Services struct {
	Car      CarService
	Seller   SellerService
	Settings SettingsService
	Auth     AuthService
	Stats    StatsService
	Import   ImportService
	Run      RunService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, catalog cache.Catalog, cfg *config.Config, log zerolog.Logger) *Services {
	if catalog == nil {
		catalog = cache.Nop{}
	}

	carSvc := newCarService(repos, catalog, log)
	runSvc := newRunService(repos.ImportRun, cfg.Import.PollInterval, log)
	importSvc := newImportService(repos, carSvc, cfg, log)

	// Wire up run processor to import service
	runSvc.SetImportService(importSvc)

	return &Services{
		Car:      carSvc,
		Seller:   newSellerService(repos, log),
		Settings: newSettingsService(repos, cfg.Store, log),
		Auth:     newAuthService(repos.Admin, cfg.Auth, log),
		Stats:    newStatsService(repos),
		Import:   importSvc,
		Run:      runSvc,
	}
}

package mocks

import (
	"context"
	"sync"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/cache"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
)

var errNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "Import run not found")

// MockImportService is a mock implementation of ImportService
type MockImportService struct {
	mu            sync.Mutex
	CreateRunFunc func(ctx context.Context, req *models.ImportRequest, filePath string) (*models.ImportRun, error)
	ProcessFunc   func(ctx context.Context, run *models.ImportRun) error
	ProcessedRuns []*models.ImportRun
	CreatedRuns   []*models.ImportRun
	FilePaths     []string
}

// Verify interface compliance
var _ service.ImportService = (*MockImportService)(nil)

func NewMockImportService() *MockImportService {
	return &MockImportService{}
}

func (m *MockImportService) CreateImportRun(ctx context.Context, req *models.ImportRequest, filePath string) (*models.ImportRun, error) {
	if m.CreateRunFunc != nil {
		return m.CreateRunFunc(ctx, req, filePath)
	}
	run := &models.ImportRun{
		ID:             "test-run-id",
		SellerID:       req.SellerID,
		FileName:       req.FileName,
		IdempotencyKey: req.IdempotencyKey,
		Status:         models.ImportRunPending,
	}
	m.mu.Lock()
	m.CreatedRuns = append(m.CreatedRuns, run)
	m.FilePaths = append(m.FilePaths, filePath)
	m.mu.Unlock()
	return run, nil
}

func (m *MockImportService) ProcessImport(ctx context.Context, run *models.ImportRun) error {
	if m.ProcessFunc != nil {
		return m.ProcessFunc(ctx, run)
	}
	m.mu.Lock()
	m.ProcessedRuns = append(m.ProcessedRuns, run)
	m.mu.Unlock()
	run.Status = models.ImportRunCompleted
	return nil
}

// MockRunService is a mock implementation of RunService
type MockRunService struct {
	Runs          map[string]*models.ImportRunResponse
	Errors        map[string][]models.RowError
	Cancelled     []string
	ImportService service.ImportService
}

// Verify interface compliance
var _ service.RunService = (*MockRunService)(nil)

func NewMockRunService() *MockRunService {
	return &MockRunService{
		Runs:   make(map[string]*models.ImportRunResponse),
		Errors: make(map[string][]models.RowError),
	}
}

func (m *MockRunService) StartProcessor(ctx context.Context) {}

func (m *MockRunService) StopProcessor() {}

func (m *MockRunService) GetRun(ctx context.Context, id string) (*models.ImportRunResponse, error) {
	run, ok := m.Runs[id]
	if !ok {
		return nil, errNotFound
	}
	return run, nil
}

func (m *MockRunService) GetRunByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	for _, run := range m.Runs {
		if run.IdempotencyKey == key {
			return &run.ImportRun, nil
		}
	}
	return nil, nil
}

func (m *MockRunService) GetRunErrors(ctx context.Context, id string) ([]models.RowError, error) {
	if _, ok := m.Runs[id]; !ok {
		return nil, errNotFound
	}
	return m.Errors[id], nil
}

func (m *MockRunService) CancelRun(ctx context.Context, id string) (*models.ImportRun, error) {
	run, ok := m.Runs[id]
	if !ok {
		return nil, errNotFound
	}
	m.Cancelled = append(m.Cancelled, id)
	run.Status = models.ImportRunCancelled
	return &run.ImportRun, nil
}

func (m *MockRunService) SetImportService(importService service.ImportService) {
	m.ImportService = importService
}

// MockCatalog is an in-memory catalog cache that counts hits
type MockCatalog struct {
	mu            sync.Mutex
	Lists         map[string][]models.CarPublic
	Hits          int
	Invalidations int
}

var _ cache.Catalog = (*MockCatalog)(nil)

func NewMockCatalog() *MockCatalog {
	return &MockCatalog{Lists: make(map[string][]models.CarPublic)}
}

func (m *MockCatalog) GetCars(ctx context.Context, filter models.CarFilter) ([]models.CarPublic, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cars, ok := m.Lists[filter.CacheKey()]
	if ok {
		m.Hits++
	}
	return cars, ok
}

func (m *MockCatalog) SetCars(ctx context.Context, filter models.CarFilter, cars []models.CarPublic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists[filter.CacheKey()] = cars
}

func (m *MockCatalog) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Lists = make(map[string][]models.CarPublic)
	m.Invalidations++
	return nil
}

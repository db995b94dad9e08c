package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
)

// Repos bundles the in-memory repositories so tests can reach the concrete mocks
type Repos struct {
	Car       *MockCarRepository
	Seller    *MockSellerRepository
	Settings  *MockSettingsRepository
	Admin     *MockAdminRepository
	ImportRun *MockImportRunRepository
}

// NewRepos creates empty in-memory repositories
func NewRepos() *Repos {
	sellers := NewMockSellerRepository()
	cars := NewMockCarRepository()
	cars.Sellers = sellers
	return &Repos{
		Car:       cars,
		Seller:    sellers,
		Settings:  &MockSettingsRepository{},
		Admin:     NewMockAdminRepository(),
		ImportRun: NewMockImportRunRepository(),
	}
}

// Repositories exposes the mocks through the repository interfaces
func (r *Repos) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Car:       r.Car,
		Seller:    r.Seller,
		Settings:  r.Settings,
		Admin:     r.Admin,
		ImportRun: r.ImportRun,
	}
}

// MockCarRepository is a mock implementation of CarRepository
type MockCarRepository struct {
	mu         sync.Mutex
	Cars       map[string]*models.Car
	Sellers    *MockSellerRepository
	CreateFunc func(ctx context.Context, car *models.Car) error
	ListError  error
	ListCalls  int
}

// Verify interface compliance
var _ repository.CarRepository = (*MockCarRepository)(nil)

func NewMockCarRepository() *MockCarRepository {
	return &MockCarRepository{Cars: make(map[string]*models.Car)}
}

func (m *MockCarRepository) Create(ctx context.Context, car *models.Car) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, car); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *car
	m.Cars[car.ID] = &stored
	return nil
}

func (m *MockCarRepository) Update(ctx context.Context, car *models.Car) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *car
	m.Cars[car.ID] = &stored
	return nil
}

func (m *MockCarRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Cars[id]; !ok {
		return false, nil
	}
	delete(m.Cars, id)
	return true, nil
}

func (m *MockCarRepository) GetByID(ctx context.Context, id string) (*models.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	car, ok := m.Cars[id]
	if !ok {
		return nil, nil
	}
	copied := *car
	return &copied, nil
}

func (m *MockCarRepository) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListCalls++
	if m.ListError != nil {
		return nil, m.ListError
	}
	cars := []*models.Car{}
	for _, car := range m.sorted() {
		if filter.Status != "" && car.Status != filter.Status {
			continue
		}
		if filter.FeaturedOnly && !car.Featured {
			continue
		}
		copied := *car
		cars = append(cars, &copied)
	}
	return cars, nil
}

func (m *MockCarRepository) ListWithSellers(ctx context.Context) ([]*models.CarWithSeller, error) {
	m.mu.Lock()
	cars := m.sorted()
	m.mu.Unlock()

	out := make([]*models.CarWithSeller, 0, len(cars))
	for _, car := range cars {
		row := &models.CarWithSeller{Car: *car}
		if m.Sellers != nil {
			row.Seller, _ = m.Sellers.GetByID(ctx, car.SellerID)
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *MockCarRepository) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, car := range m.Cars {
		if car.SellerID == sellerID {
			n++
		}
	}
	return n, nil
}

func (m *MockCarRepository) CountByStatus(ctx context.Context) (map[models.CarStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.CarStatus]int)
	for _, car := range m.Cars {
		counts[car.Status]++
	}
	return counts, nil
}

// All returns a snapshot of the stored cars, newest first
func (m *MockCarRepository) All() []*models.Car {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted()
}

// sorted returns cars newest first; callers hold mu
func (m *MockCarRepository) sorted() []*models.Car {
	cars := make([]*models.Car, 0, len(m.Cars))
	for _, car := range m.Cars {
		cars = append(cars, car)
	}
	sort.Slice(cars, func(i, j int) bool {
		return cars[i].CreatedAt.After(cars[j].CreatedAt)
	})
	return cars
}

// MockSellerRepository is a mock implementation of SellerRepository
type MockSellerRepository struct {
	mu      sync.Mutex
	Sellers map[string]*models.Seller
}

var _ repository.SellerRepository = (*MockSellerRepository)(nil)

func NewMockSellerRepository() *MockSellerRepository {
	return &MockSellerRepository{Sellers: make(map[string]*models.Seller)}
}

func (m *MockSellerRepository) Create(ctx context.Context, seller *models.Seller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *seller
	m.Sellers[seller.ID] = &stored
	return nil
}

func (m *MockSellerRepository) Update(ctx context.Context, seller *models.Seller) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Sellers[seller.ID]
	if !ok {
		return false, nil
	}
	stored := *seller
	stored.CreatedAt = existing.CreatedAt
	m.Sellers[seller.ID] = &stored
	return true, nil
}

func (m *MockSellerRepository) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Sellers[id]; !ok {
		return false, nil
	}
	delete(m.Sellers, id)
	return true, nil
}

func (m *MockSellerRepository) GetByID(ctx context.Context, id string) (*models.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seller, ok := m.Sellers[id]
	if !ok {
		return nil, nil
	}
	copied := *seller
	return &copied, nil
}

func (m *MockSellerRepository) List(ctx context.Context) ([]*models.Seller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sellers := make([]*models.Seller, 0, len(m.Sellers))
	for _, s := range m.Sellers {
		copied := *s
		sellers = append(sellers, &copied)
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i].Name < sellers[j].Name })
	return sellers, nil
}

func (m *MockSellerRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sellers), nil
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mu       sync.Mutex
	Stored   *models.SiteSettings
	GetError error
	Replaces int
}

var _ repository.SettingsRepository = (*MockSettingsRepository)(nil)

func (m *MockSettingsRepository) Get(ctx context.Context) (*models.SiteSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	if m.Stored == nil {
		return nil, nil
	}
	copied := *m.Stored
	return &copied, nil
}

func (m *MockSettingsRepository) Replace(ctx context.Context, settings *models.SiteSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *settings
	m.Stored = &stored
	m.Replaces++
	return nil
}

// MockAdminRepository is a mock implementation of AdminRepository
type MockAdminRepository struct {
	mu     sync.Mutex
	Admins map[string]*models.Admin
}

var _ repository.AdminRepository = (*MockAdminRepository)(nil)

func NewMockAdminRepository() *MockAdminRepository {
	return &MockAdminRepository{Admins: make(map[string]*models.Admin)}
}

func (m *MockAdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *admin
	m.Admins[admin.ID] = &stored
	return nil
}

func (m *MockAdminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	admin, ok := m.Admins[id]
	if !ok {
		return nil, nil
	}
	copied := *admin
	return &copied, nil
}

func (m *MockAdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, admin := range m.Admins {
		if admin.Username == username {
			copied := *admin
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockAdminRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if admin, ok := m.Admins[id]; ok {
		admin.PasswordHash = passwordHash
	}
	return nil
}

func (m *MockAdminRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Admins), nil
}

// MockImportRunRepository is a mock implementation of ImportRunRepository
type MockImportRunRepository struct {
	mu     sync.Mutex
	Runs   map[string]*models.ImportRun
	Errors map[string][]models.RowError

	CancelPendingFunc func(ctx context.Context, runID, message string, at time.Time) (bool, error)
}

var _ repository.ImportRunRepository = (*MockImportRunRepository)(nil)

func NewMockImportRunRepository() *MockImportRunRepository {
	return &MockImportRunRepository{
		Runs:   make(map[string]*models.ImportRun),
		Errors: make(map[string][]models.RowError),
	}
}

func (m *MockImportRunRepository) Create(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	m.Runs[run.ID] = &stored
	return nil
}

func (m *MockImportRunRepository) Update(ctx context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *run
	m.Runs[run.ID] = &stored
	return nil
}

func (m *MockImportRunRepository) GetByID(ctx context.Context, id string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[id]
	if !ok {
		return nil, nil
	}
	copied := *run
	return &copied, nil
}

func (m *MockImportRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.Runs {
		if run.IdempotencyKey == key {
			copied := *run
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *MockImportRunRepository) GetPendingRuns(ctx context.Context) ([]*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []*models.ImportRun
	for _, run := range m.Runs {
		if run.Status == models.ImportRunPending {
			copied := *run
			pending = append(pending, &copied)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (m *MockImportRunRepository) MarkAsProcessing(ctx context.Context, runID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[runID]
	if !ok || run.Status != models.ImportRunPending {
		return false, nil
	}
	run.Status = models.ImportRunProcessing
	return true, nil
}

func (m *MockImportRunRepository) CancelPending(ctx context.Context, runID, message string, at time.Time) (bool, error) {
	if m.CancelPendingFunc != nil {
		return m.CancelPendingFunc(ctx, runID, message, at)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.Runs[runID]
	if !ok || run.Status != models.ImportRunPending {
		return false, nil
	}
	run.Status = models.ImportRunCancelled
	run.Message = message
	run.CompletedAt = &at
	return true, nil
}

func (m *MockImportRunRepository) AddErrors(ctx context.Context, runID string, errors []models.RowError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[runID] = append(m.Errors[runID], errors...)
	return nil
}

func (m *MockImportRunRepository) GetErrors(ctx context.Context, runID string, limit int) ([]models.RowError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := m.Errors[runID]
	if limit > 0 && len(errs) > limit {
		errs = errs[:limit]
	}
	return append([]models.RowError(nil), errs...), nil
}

func (m *MockImportRunRepository) CountByStatus(ctx context.Context) (map[models.ImportRunStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[models.ImportRunStatus]int)
	for _, run := range m.Runs {
		counts[run.Status]++
	}
	return counts, nil
}

// Run returns a snapshot of a stored run, nil when unknown
func (m *MockImportRunRepository) Run(id string) *models.ImportRun {
	run, _ := m.GetByID(context.Background(), id)
	return run
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/cache"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	errCarNotFound    = apperrors.WithMessage(apperrors.ErrNotFound, "Car not found")
	errSellerNotFound = apperrors.WithMessage(apperrors.ErrNotFound, "Seller not found")
)

// carService is the concrete implementation of CarService
type carService struct {
	repos     *repository.Repositories
	catalog   cache.Catalog
	validator *validation.Validator
	log       zerolog.Logger
}

func newCarService(repos *repository.Repositories, catalog cache.Catalog, log zerolog.Logger) *carService {
	return &carService{
		repos:     repos,
		catalog:   catalog,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "car").Logger(),
	}
}

// CreateCar validates input, checks the seller exists and stores a new car
func (s *carService) CreateCar(ctx context.Context, input *models.CarInput) (*models.Car, error) {
	if err := validation.AsError(s.validator.ValidateCar(input)); err != nil {
		return nil, err
	}
	if err := s.ensureSeller(ctx, input.SellerID); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = models.CarStatusAvailable
	}
	images := input.Images
	if images == nil {
		images = []string{}
	}

	now := time.Now().UTC()
	car := &models.Car{
		ID:          uuid.New().String(),
		Brand:       strings.TrimSpace(input.Brand),
		Model:       strings.TrimSpace(input.Model),
		Year:        input.Year,
		Km:          input.Km,
		Price:       input.Price,
		Description: input.Description,
		Images:      images,
		SellerID:    input.SellerID,
		Status:      status,
		Featured:    input.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repos.Car.Create(ctx, car); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	s.invalidate(ctx)

	s.log.Info().Str("car_id", car.ID).Str("vehicle", car.Brand+" "+car.Model).Msg("Car created")
	return car, nil
}

// UpdateCar applies a partial update
func (s *carService) UpdateCar(ctx context.Context, id string, update *models.CarUpdate) (*models.Car, error) {
	if err := validation.AsError(s.validator.ValidateCarUpdate(update)); err != nil {
		return nil, err
	}

	car, err := s.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.SellerID != nil && *update.SellerID != car.SellerID {
		if err := s.ensureSeller(ctx, *update.SellerID); err != nil {
			return nil, err
		}
	}

	update.Apply(car)
	car.UpdatedAt = time.Now().UTC()

	if err := s.repos.Car.Update(ctx, car); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	s.invalidate(ctx)

	return car, nil
}

// DeleteCar removes a car
func (s *carService) DeleteCar(ctx context.Context, id string) error {
	deleted, err := s.repos.Car.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if !deleted {
		return errCarNotFound
	}
	s.invalidate(ctx)
	return nil
}

// GetCar retrieves a car by ID
func (s *carService) GetCar(ctx context.Context, id string) (*models.Car, error) {
	car, err := s.repos.Car.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if car == nil {
		return nil, errCarNotFound
	}
	return car, nil
}

// ListPublic returns the storefront listing, served from the catalog cache when possible
func (s *carService) ListPublic(ctx context.Context, filter models.CarFilter) ([]models.CarPublic, error) {
	if filter.Status != "" && !models.ValidCarStatuses[filter.Status] {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid status, must be one of: available, reserved, sold")
	}

	if cars, ok := s.catalog.GetCars(ctx, filter); ok {
		return cars, nil
	}

	cars, err := s.repos.Car.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	public := make([]models.CarPublic, 0, len(cars))
	for _, car := range cars {
		public = append(public, car.Public())
	}
	s.catalog.SetCars(ctx, filter, public)

	return public, nil
}

// ListAdmin returns every car with its seller
func (s *carService) ListAdmin(ctx context.Context) ([]*models.CarWithSeller, error) {
	cars, err := s.repos.Car.ListWithSellers(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return cars, nil
}

func (s *carService) ensureSeller(ctx context.Context, sellerID string) error {
	seller, err := s.repos.Seller.GetByID(ctx, sellerID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if seller == nil {
		return errSellerNotFound
	}
	return nil
}

// invalidate drops cached listings; a cache failure never fails the write
func (s *carService) invalidate(ctx context.Context) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate catalog cache")
	}
}

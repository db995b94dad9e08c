package service

import (
	"context"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// sellerService is the concrete implementation of SellerService
type sellerService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

func newSellerService(repos *repository.Repositories, log zerolog.Logger) *sellerService {
	return &sellerService{
		repos:     repos,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "seller").Logger(),
	}
}

func (s *sellerService) CreateSeller(ctx context.Context, input *models.SellerInput) (*models.Seller, error) {
	if err := validation.AsError(s.validator.ValidateSeller(input)); err != nil {
		return nil, err
	}

	seller := &models.Seller{
		ID:        uuid.New().String(),
		Name:      input.Name,
		Phone:     input.Phone,
		Email:     input.Email,
		WhatsApp:  input.WhatsApp,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repos.Seller.Create(ctx, seller); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	s.log.Info().Str("seller_id", seller.ID).Msg("Seller created")
	return seller, nil
}

// UpdateSeller replaces the seller's contact fields
func (s *sellerService) UpdateSeller(ctx context.Context, id string, input *models.SellerInput) (*models.Seller, error) {
	if err := validation.AsError(s.validator.ValidateSeller(input)); err != nil {
		return nil, err
	}

	seller := &models.Seller{
		ID:       id,
		Name:     input.Name,
		Phone:    input.Phone,
		Email:    input.Email,
		WhatsApp: input.WhatsApp,
	}
	updated, err := s.repos.Seller.Update(ctx, seller)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if !updated {
		return nil, errSellerNotFound
	}

	stored, err := s.repos.Seller.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if stored == nil {
		return seller, nil
	}
	return stored, nil
}

// DeleteSeller removes a seller that no car references
func (s *sellerService) DeleteSeller(ctx context.Context, id string) error {
	linked, err := s.repos.Car.CountBySeller(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if linked > 0 {
		return apperrors.WithMessage(apperrors.ErrConflict, "seller has %d linked cars", linked)
	}

	deleted, err := s.repos.Seller.Delete(ctx, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if !deleted {
		return errSellerNotFound
	}
	return nil
}

func (s *sellerService) ListSellers(ctx context.Context) ([]*models.Seller, error) {
	sellers, err := s.repos.Seller.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return sellers, nil
}

package service

import (
	"context"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
)

type statsService struct {
	repos *repository.Repositories
}

func newStatsService(repos *repository.Repositories) *statsService {
	return &statsService{repos: repos}
}

// GetStats returns the dashboard counters
func (s *statsService) GetStats(ctx context.Context) (*models.Stats, error) {
	byStatus, err := s.repos.Car.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	sellers, err := s.repos.Seller.Count(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	stats := &models.Stats{
		AvailableCars: byStatus[models.CarStatusAvailable],
		ReservedCars:  byStatus[models.CarStatusReserved],
		SoldCars:      byStatus[models.CarStatusSold],
		TotalSellers:  sellers,
	}
	for _, n := range byStatus {
		stats.TotalCars += n
	}
	return stats, nil
}

// GetMetrics returns per-status counts for cars and import runs
func (s *statsService) GetMetrics(ctx context.Context) (*models.Metrics, error) {
	cars, err := s.repos.Car.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	sellers, err := s.repos.Seller.Count(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	runs, err := s.repos.ImportRun.CountByStatus(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return &models.Metrics{Cars: cars, Sellers: sellers, ImportRuns: runs}, nil
}

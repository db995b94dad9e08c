package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/car-storefront-api/internal/apperrors"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/contact"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/repository"
	"github.com/car-storefront-api/internal/settings"
	"github.com/car-storefront-api/internal/validation"
	"github.com/rs/zerolog"
)

// settingsService is the concrete implementation of SettingsService
type settingsService struct {
	repos     *repository.Repositories
	storeCfg  config.StoreConfig
	validator *validation.Validator
	log       zerolog.Logger

	mu    sync.RWMutex
	store *settings.Store
}

func newSettingsService(repos *repository.Repositories, storeCfg config.StoreConfig, log zerolog.Logger) *settingsService {
	return &settingsService{
		repos:     repos,
		storeCfg:  storeCfg,
		validator: validation.NewValidator(),
		log:       log.With().Str("service", "settings").Logger(),
	}
}

// AttachStore sets the store refreshed after every replacement and read by Current
func (s *settingsService) AttachStore(store *settings.Store) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
}

func (s *settingsService) attached() *settings.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// FetchSettings reads the stored record, or the defaults when none was saved yet
func (s *settingsService) FetchSettings(ctx context.Context) (models.SiteSettings, error) {
	stored, err := s.repos.Settings.Get(ctx)
	if err != nil {
		return models.SiteSettings{}, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if stored == nil {
		return models.DefaultSiteSettings(), nil
	}
	return *stored, nil
}

// ReplaceSettings stores in as the whole new record
func (s *settingsService) ReplaceSettings(ctx context.Context, in *models.SiteSettings) (models.SiteSettings, error) {
	if err := validation.AsError(s.validator.ValidateSettings(in)); err != nil {
		return models.SiteSettings{}, err
	}

	next := *in
	next.UpdatedAt = time.Now().UTC()
	if err := s.repos.Settings.Replace(ctx, &next); err != nil {
		return models.SiteSettings{}, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	if store := s.attached(); store != nil {
		if err := store.Refresh(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Settings saved but store refresh failed")
		}
	}

	s.log.Info().Str("site_name", next.SiteName).Msg("Site settings replaced")
	return next, nil
}

// Current returns the store snapshot when attached, otherwise reads the database
func (s *settingsService) Current(ctx context.Context) models.SiteSettings {
	if store := s.attached(); store != nil {
		return store.Get()
	}
	current, err := s.FetchSettings(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read site settings, using defaults")
		return models.DefaultSiteSettings()
	}
	return current
}

// StoreInfo is the public name and WhatsApp number of the store
func (s *settingsService) StoreInfo(ctx context.Context) models.StoreInfo {
	current := s.Current(ctx)
	return models.StoreInfo{
		Name:     current.SiteName,
		WhatsApp: s.whatsApp(current),
	}
}

// ContactLink renders the WhatsApp message for a car and builds its wa.me link
func (s *settingsService) ContactLink(ctx context.Context, carID string) (*models.ContactLink, error) {
	car, err := s.repos.Car.GetByID(ctx, carID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	if car == nil {
		return nil, errCarNotFound
	}

	current := s.Current(ctx)
	message := contact.RenderMessage(current.WhatsAppMessageTemplate, car)
	link, err := contact.Link(s.whatsApp(current), message)
	if errors.Is(err, contact.ErrNoPhone) {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound, "Store WhatsApp number is not configured")
	}
	if err != nil {
		return nil, err
	}

	return &models.ContactLink{URL: link, Message: message}, nil
}

func (s *settingsService) whatsApp(current models.SiteSettings) string {
	if current.StoreWhatsApp != "" {
		return current.StoreWhatsApp
	}
	return s.storeCfg.WhatsApp
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
)

// settingsRepo is the concrete implementation of SettingsRepository
type settingsRepo struct {
	db *database.DB
}

// NewSettingsRepo creates a new settings repository
func NewSettingsRepo(db *database.DB) SettingsRepository {
	return &settingsRepo{db: db}
}

// Get returns the stored settings, or nil when none were saved yet
func (r *settingsRepo) Get(ctx context.Context) (*models.SiteSettings, error) {
	query := `
		SELECT site_name, logo_url, primary_color, address, phone, email, facebook_url,
			instagram_url, store_whatsapp, imgur_client_id, whatsapp_message_template,
			contact_title, contact_description, updated_at
		FROM site_settings WHERE id = $1
	`

	var s models.SiteSettings
	err := r.db.QueryRowContext(ctx, query, models.SiteSettingsID).Scan(
		&s.SiteName, &s.LogoURL, &s.PrimaryColor, &s.Address, &s.Phone, &s.Email,
		&s.FacebookURL, &s.InstagramURL, &s.StoreWhatsApp, &s.ImgurClientID,
		&s.WhatsAppMessageTemplate, &s.ContactTitle, &s.ContactDescription, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Replace writes every column; fields missing from settings are stored empty
func (r *settingsRepo) Replace(ctx context.Context, s *models.SiteSettings) error {
	query := `
		INSERT INTO site_settings (id, site_name, logo_url, primary_color, address, phone, email,
			facebook_url, instagram_url, store_whatsapp, imgur_client_id,
			whatsapp_message_template, contact_title, contact_description, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			site_name = EXCLUDED.site_name,
			logo_url = EXCLUDED.logo_url,
			primary_color = EXCLUDED.primary_color,
			address = EXCLUDED.address,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			facebook_url = EXCLUDED.facebook_url,
			instagram_url = EXCLUDED.instagram_url,
			store_whatsapp = EXCLUDED.store_whatsapp,
			imgur_client_id = EXCLUDED.imgur_client_id,
			whatsapp_message_template = EXCLUDED.whatsapp_message_template,
			contact_title = EXCLUDED.contact_title,
			contact_description = EXCLUDED.contact_description,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		models.SiteSettingsID, s.SiteName, s.LogoURL, s.PrimaryColor, s.Address, s.Phone, s.Email,
		s.FacebookURL, s.InstagramURL, s.StoreWhatsApp, s.ImgurClientID,
		s.WhatsAppMessageTemplate, s.ContactTitle, s.ContactDescription, s.UpdatedAt,
	)
	return err
}

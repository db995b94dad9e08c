package models

import (
	"time"
)

// SiteSettingsID is the key of the single settings row
const SiteSettingsID = "site_settings"

// DefaultWhatsAppTemplate is used when no message template is configured
const DefaultWhatsAppTemplate = "Olá! Tenho interesse no {brand} {model} {year}."

// SiteSettings is the storefront branding and contact configuration.
// It is always replaced as a whole, never merged field by field.
type SiteSettings struct {
	SiteName                string    `json:"site_name" validate:"required,max=120"`
	LogoURL                 string    `json:"logo_url"`
	PrimaryColor            string    `json:"primary_color" validate:"required,hexcolor"`
	Address                 string    `json:"address"`
	Phone                   string    `json:"phone"`
	Email                   string    `json:"email" validate:"omitempty,email"`
	FacebookURL             string    `json:"facebook_url" validate:"omitempty,url"`
	InstagramURL            string    `json:"instagram_url" validate:"omitempty,url"`
	StoreWhatsApp           string    `json:"store_whatsapp"`
	ImgurClientID           string    `json:"imgur_client_id"`
	WhatsAppMessageTemplate string    `json:"whatsapp_message_template"`
	ContactTitle            string    `json:"contact_title"`
	ContactDescription      string    `json:"contact_description"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// DefaultSiteSettings returns the placeholder settings shown before the first fetch
func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		SiteName:                "AutoLeilão",
		PrimaryColor:            "#DC2626",
		WhatsAppMessageTemplate: DefaultWhatsAppTemplate,
	}
}

// StoreInfo is the public contact summary
type StoreInfo struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
}

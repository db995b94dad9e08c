// Package contact builds the WhatsApp links shown on car pages.
package contact

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/car-storefront-api/internal/models"
)

// ErrNoPhone is returned when the store has no usable WhatsApp number
var ErrNoPhone = errors.New("no WhatsApp number configured")

// RenderMessage fills {brand}, {model} and {year} in template. An empty
// template falls back to models.DefaultWhatsAppTemplate.
func RenderMessage(template string, car *models.Car) string {
	if strings.TrimSpace(template) == "" {
		template = models.DefaultWhatsAppTemplate
	}
	return strings.NewReplacer(
		"{brand}", car.Brand,
		"{model}", car.Model,
		"{year}", strconv.Itoa(car.Year),
	).Replace(template)
}

// Link returns the wa.me URL that opens a chat with phone prefilled with message
func Link(phone, message string) (string, error) {
	digits := Digits(phone)
	if digits == "" {
		return "", ErrNoPhone
	}
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text, nil
}

// Digits strips everything but 0-9
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

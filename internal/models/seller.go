package models

import (
	"time"
)

// Seller is a salesperson cars are assigned to
type Seller struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Phone     string    `json:"phone" db:"phone"`
	Email     string    `json:"email,omitempty" db:"email"`
	WhatsApp  string    `json:"whatsapp" db:"whatsapp"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SellerInput is the create/replace payload for a seller
type SellerInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"required,max=40"`
	Email    string `json:"email,omitempty" validate:"omitempty,email"`
	WhatsApp string `json:"whatsapp" validate:"required,max=40"`
}

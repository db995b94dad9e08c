package models

import (
	"time"
)

// Admin is a back-office user
type Admin struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the bearer token
type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ChangePasswordRequest is the change-password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// Stats is the admin dashboard summary
type Stats struct {
	TotalCars     int `json:"total_cars"`
	AvailableCars int `json:"available_cars"`
	ReservedCars  int `json:"reserved_cars"`
	SoldCars      int `json:"sold_cars"`
	TotalSellers  int `json:"total_sellers"`
}

// Metrics is the operational summary served on /metrics
type Metrics struct {
	Cars       map[CarStatus]int       `json:"cars"`
	Sellers    int                     `json:"sellers"`
	ImportRuns map[ImportRunStatus]int `json:"import_runs"`
}

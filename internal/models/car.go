package models

import (
	"time"
)

// CarStatus is the sale state of a car
type CarStatus string

const (
	CarStatusAvailable CarStatus = "available"
	CarStatusReserved  CarStatus = "reserved"
	CarStatusSold      CarStatus = "sold"
)

// ValidCarStatuses defines allowed car statuses
var ValidCarStatuses = map[CarStatus]bool{
	CarStatusAvailable: true,
	CarStatusReserved:  true,
	CarStatusSold:      true,
}

// Car represents a car listed in the catalog
type Car struct {
	ID          string    `json:"id" db:"id"`
	Brand       string    `json:"brand" db:"brand"`
	Model       string    `json:"model" db:"model"`
	Year        int       `json:"year" db:"year"`
	Km          int       `json:"km" db:"km"`
	Price       float64   `json:"price" db:"price"`
	Description string    `json:"description" db:"description"`
	Images      []string  `json:"images" db:"images"`
	SellerID    string    `json:"seller_id" db:"seller_id"`
	Status      CarStatus `json:"status" db:"status"`
	Featured    bool      `json:"featured" db:"featured"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CarPublic is the storefront view of a car; the seller stays private
type CarPublic struct {
	ID          string    `json:"id"`
	Brand       string    `json:"brand"`
	Model       string    `json:"model"`
	Year        int       `json:"year"`
	Km          int       `json:"km"`
	Price       float64   `json:"price"`
	Description string    `json:"description"`
	Images      []string  `json:"images"`
	Status      CarStatus `json:"status"`
	Featured    bool      `json:"featured"`
	CreatedAt   time.Time `json:"created_at"`
}

// Public strips the seller reference
func (c *Car) Public() CarPublic {
	images := c.Images
	if images == nil {
		images = []string{}
	}
	return CarPublic{
		ID:          c.ID,
		Brand:       c.Brand,
		Model:       c.Model,
		Year:        c.Year,
		Km:          c.Km,
		Price:       c.Price,
		Description: c.Description,
		Images:      images,
		Status:      c.Status,
		Featured:    c.Featured,
		CreatedAt:   c.CreatedAt,
	}
}

// CarWithSeller is the admin listing row
type CarWithSeller struct {
	Car
	Seller *Seller `json:"seller,omitempty"`
}

// CarInput is the create payload, also produced by the CSV importer
type CarInput struct {
	Brand       string    `json:"brand" validate:"required,max=100"`
	Model       string    `json:"model" validate:"required,max=100"`
	Year        int       `json:"year" validate:"gte=0"`
	Km          int       `json:"km" validate:"gte=0"`
	Price       float64   `json:"price" validate:"gte=0"`
	Description string    `json:"description"`
	Images      []string  `json:"images" validate:"max=20,dive,required"`
	SellerID    string    `json:"seller_id" validate:"required"`
	Status      CarStatus `json:"status" validate:"omitempty,oneof=available reserved sold"`
	Featured    bool      `json:"featured"`
}

// CarUpdate is a partial update; nil fields are left untouched
type CarUpdate struct {
	Brand       *string    `json:"brand,omitempty" validate:"omitempty,min=1,max=100"`
	Model       *string    `json:"model,omitempty" validate:"omitempty,min=1,max=100"`
	Year        *int       `json:"year,omitempty" validate:"omitempty,gte=0"`
	Km          *int       `json:"km,omitempty" validate:"omitempty,gte=0"`
	Price       *float64   `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description *string    `json:"description,omitempty"`
	Images      []string   `json:"images,omitempty" validate:"omitempty,max=20,dive,required"`
	SellerID    *string    `json:"seller_id,omitempty" validate:"omitempty,min=1"`
	Status      *CarStatus `json:"status,omitempty" validate:"omitempty,oneof=available reserved sold"`
	Featured    *bool      `json:"featured,omitempty"`
}

// Apply copies the set fields onto car
func (u *CarUpdate) Apply(car *Car) {
	if u.Brand != nil {
		car.Brand = *u.Brand
	}
	if u.Model != nil {
		car.Model = *u.Model
	}
	if u.Year != nil {
		car.Year = *u.Year
	}
	if u.Km != nil {
		car.Km = *u.Km
	}
	if u.Price != nil {
		car.Price = *u.Price
	}
	if u.Description != nil {
		car.Description = *u.Description
	}
	if u.Images != nil {
		car.Images = u.Images
	}
	if u.SellerID != nil {
		car.SellerID = *u.SellerID
	}
	if u.Status != nil {
		car.Status = *u.Status
	}
	if u.Featured != nil {
		car.Featured = *u.Featured
	}
}

// CarFilter narrows catalog listings
type CarFilter struct {
	Status       CarStatus
	FeaturedOnly bool
}

// CacheKey identifies the listing in the catalog cache
func (f CarFilter) CacheKey() string {
	key := "all"
	if f.Status != "" {
		key = string(f.Status)
	}
	if f.FeaturedOnly {
		key += ":featured"
	}
	return key
}

// ContactLink is a WhatsApp deep link for one car
type ContactLink struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

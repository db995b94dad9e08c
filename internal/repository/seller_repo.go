package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
)

// sellerRepo is the concrete implementation of SellerRepository
type sellerRepo struct {
	db *database.DB
}

// NewSellerRepo creates a new seller repository
func NewSellerRepo(db *database.DB) SellerRepository {
	return &sellerRepo{db: db}
}

// Create inserts a new seller
func (r *sellerRepo) Create(ctx context.Context, seller *models.Seller) error {
	query := `
		INSERT INTO sellers (id, name, phone, email, whatsapp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		seller.ID, seller.Name, seller.Phone, nullString(seller.Email), seller.WhatsApp, seller.CreatedAt,
	)
	return err
}

// Update replaces a seller's fields, reporting whether it existed
func (r *sellerRepo) Update(ctx context.Context, seller *models.Seller) (bool, error) {
	query := `UPDATE sellers SET name = $1, phone = $2, email = $3, whatsapp = $4 WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		seller.Name, seller.Phone, nullString(seller.Email), seller.WhatsApp, seller.ID,
	)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Delete removes a seller, reporting whether it existed
func (r *sellerRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sellers WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetByID retrieves a seller by ID
func (r *sellerRepo) GetByID(ctx context.Context, id string) (*models.Seller, error) {
	query := `SELECT id, name, phone, email, whatsapp, created_at FROM sellers WHERE id = $1`

	seller, err := scanSeller(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return seller, nil
}

// List returns every seller ordered by name
func (r *sellerRepo) List(ctx context.Context) ([]*models.Seller, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, phone, email, whatsapp, created_at FROM sellers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sellers := []*models.Seller{}
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, err
		}
		sellers = append(sellers, seller)
	}
	return sellers, rows.Err()
}

// Count returns the total number of sellers
func (r *sellerRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sellers`).Scan(&count)
	return count, err
}

func scanSeller(row rowScanner) (*models.Seller, error) {
	var seller models.Seller
	var email sql.NullString
	if err := row.Scan(&seller.ID, &seller.Name, &seller.Phone, &email, &seller.WhatsApp, &seller.CreatedAt); err != nil {
		return nil, err
	}
	seller.Email = email.String
	return &seller, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
)

// adminRepo is the concrete implementation of AdminRepository
type adminRepo struct {
	db *database.DB
}

// NewAdminRepo creates a new admin repository
func NewAdminRepo(db *database.DB) AdminRepository {
	return &adminRepo{db: db}
}

// Create inserts a new admin
func (r *adminRepo) Create(ctx context.Context, admin *models.Admin) error {
	query := `INSERT INTO admins (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, admin.ID, admin.Username, admin.PasswordHash, admin.CreatedAt)
	return err
}

// GetByID retrieves an admin by ID
func (r *adminRepo) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE id = $1`, id)
}

// GetByUsername retrieves an admin by username
func (r *adminRepo) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.getOne(ctx, `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`, username)
}

func (r *adminRepo) getOne(ctx context.Context, query string, arg string) (*models.Admin, error) {
	var admin models.Admin
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdatePassword stores a new password hash
func (r *adminRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE admins SET password_hash = $1 WHERE id = $2`, passwordHash, id)
	return err
}

// Count returns the number of admins
func (r *adminRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

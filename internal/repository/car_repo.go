package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/car-storefront-api/internal/database"
	"github.com/car-storefront-api/internal/models"
	"github.com/lib/pq"
)

const carColumns = `id, brand, model, year, km, price, description, images, seller_id, status, featured, created_at, updated_at`

// carRepo is the concrete implementation of CarRepository
type carRepo struct {
	db *database.DB
}

// NewCarRepo creates a new car repository
func NewCarRepo(db *database.DB) CarRepository {
	return &carRepo{db: db}
}

// Create inserts a new car
func (r *carRepo) Create(ctx context.Context, car *models.Car) error {
	query := `
		INSERT INTO cars (` + carColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		car.ID, car.Brand, car.Model, car.Year, car.Km, car.Price, car.Description,
		pq.Array(car.Images), car.SellerID, car.Status, car.Featured,
		car.CreatedAt, car.UpdatedAt,
	)
	return err
}

// Update overwrites every mutable column of a car
func (r *carRepo) Update(ctx context.Context, car *models.Car) error {
	query := `
		UPDATE cars SET
			brand = $1, model = $2, year = $3, km = $4, price = $5, description = $6,
			images = $7, seller_id = $8, status = $9, featured = $10, updated_at = $11
		WHERE id = $12
	`
	_, err := r.db.ExecContext(ctx, query,
		car.Brand, car.Model, car.Year, car.Km, car.Price, car.Description,
		pq.Array(car.Images), car.SellerID, car.Status, car.Featured, car.UpdatedAt,
		car.ID,
	)
	return err
}

// Delete removes a car, reporting whether it existed
func (r *carRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetByID retrieves a car by ID
func (r *carRepo) GetByID(ctx context.Context, id string) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`

	car, err := scanCar(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return car, nil
}

// List returns cars matching filter, newest first
func (r *carRepo) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "featured = TRUE")
	}

	query := `SELECT ` + carColumns + ` FROM cars`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := []*models.Car{}
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	return cars, rows.Err()
}

// ListWithSellers returns every car joined with its seller, newest first
func (r *carRepo) ListWithSellers(ctx context.Context) ([]*models.CarWithSeller, error) {
	query := `
		SELECT c.id, c.brand, c.model, c.year, c.km, c.price, c.description, c.images,
			c.seller_id, c.status, c.featured, c.created_at, c.updated_at,
			s.id, s.name, s.phone, s.email, s.whatsapp, s.created_at
		FROM cars c
		LEFT JOIN sellers s ON s.id = c.seller_id
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cars := []*models.CarWithSeller{}
	for rows.Next() {
		var item models.CarWithSeller
		var sellerID, name, phone, email, whatsapp sql.NullString
		var sellerCreated sql.NullTime

		err := rows.Scan(
			&item.ID, &item.Brand, &item.Model, &item.Year, &item.Km, &item.Price,
			&item.Description, pq.Array(&item.Images), &item.SellerID, &item.Status,
			&item.Featured, &item.CreatedAt, &item.UpdatedAt,
			&sellerID, &name, &phone, &email, &whatsapp, &sellerCreated,
		)
		if err != nil {
			return nil, err
		}
		if sellerID.Valid {
			item.Seller = &models.Seller{
				ID:        sellerID.String,
				Name:      name.String,
				Phone:     phone.String,
				Email:     email.String,
				WhatsApp:  whatsapp.String,
				CreatedAt: sellerCreated.Time,
			}
		}
		cars = append(cars, &item)
	}
	return cars, rows.Err()
}

// CountBySeller counts the cars assigned to a seller
func (r *carRepo) CountBySeller(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars WHERE seller_id = $1`, sellerID).Scan(&count)
	return count, err
}

// CountByStatus counts cars grouped by status
func (r *carRepo) CountByStatus(ctx context.Context) (map[models.CarStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM cars GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.CarStatus]int)
	for rows.Next() {
		var status models.CarStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanCar(row rowScanner) (*models.Car, error) {
	var car models.Car
	err := row.Scan(
		&car.ID, &car.Brand, &car.Model, &car.Year, &car.Km, &car.Price,
		&car.Description, pq.Array(&car.Images), &car.SellerID, &car.Status,
		&car.Featured, &car.CreatedAt, &car.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if car.Images == nil {
		car.Images = []string{}
	}
	return &car, nil
}

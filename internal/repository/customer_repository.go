package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetrack/api/internal/models"
)

type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

const customerColumns = `id, organization_id, name, contact_email, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (models.Customer, error) {
	var customer models.Customer
	if err := row.Scan(
		&customer.ID,
		&customer.OrganizationID,
		&customer.Name,
		&customer.ContactEmail,
		&customer.IsActive,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	); err != nil {
		return models.Customer{}, translate(err)
	}
	return customer, nil
}

func (r *CustomerRepository) Create(ctx context.Context, customer models.Customer) (models.Customer, error) {
	const query = `
		INSERT INTO customers (id, organization_id, name, contact_email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + customerColumns
	return scanCustomer(r.pool.QueryRow(ctx, query,
		customer.ID,
		customer.OrganizationID,
		customer.Name,
		customer.ContactEmail,
		customer.IsActive,
	))
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	return scanCustomer(r.pool.QueryRow(ctx, query, id))
}

// List returns customers ordered by name, optionally restricted to one organization.
func (r *CustomerRepository) List(ctx context.Context, organizationID string) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE ($1 = '' OR organization_id = $1) ORDER BY name`
	rows, err := r.pool.Query(ctx, query, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, id string, patch models.CustomerPatch) (models.Customer, error) {
	const query = `
		UPDATE customers
		SET name = COALESCE($2, name),
		    contact_email = COALESCE($3, contact_email),
		    is_active = COALESCE($4, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + customerColumns
	return scanCustomer(r.pool.QueryRow(ctx, query, id, patch.Name, patch.ContactEmail, patch.IsActive))
}

func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM customers WHERE id = $1`, id)
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetrack/api/internal/models"
)

type OrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepository(pool *pgxpool.Pool) *OrganizationRepository {
	return &OrganizationRepository{pool: pool}
}

const organizationColumns = `id, name, description, is_active, created_at, updated_at`

func scanOrganization(row pgx.Row) (models.Organization, error) {
	var org models.Organization
	if err := row.Scan(
		&org.ID,
		&org.Name,
		&org.Description,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		return models.Organization{}, translate(err)
	}
	return org, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	const query = `
		INSERT INTO organizations (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + organizationColumns
	return scanOrganization(r.pool.QueryRow(ctx, query, org.ID, org.Name, org.Description, org.IsActive))
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id string) (models.Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`
	return scanOrganization(r.pool.QueryRow(ctx, query, id))
}

func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *OrganizationRepository) Update(ctx context.Context, id string, patch models.OrganizationPatch) (models.Organization, error) {
	const query = `
		UPDATE organizations
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    is_active = COALESCE($4, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + organizationColumns
	return scanOrganization(r.pool.QueryRow(ctx, query, id, patch.Name, patch.Description, patch.IsActive))
}

func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM organizations WHERE id = $1`, id)
}

// AddMember links a user to an organization. Re-adding an existing member
// updates the role label.
func (r *OrganizationRepository) AddMember(ctx context.Context, member models.UserOrganization) (models.UserOrganization, error) {
	const query = `
		INSERT INTO user_organizations (user_id, organization_id, role, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, organization_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING user_id, organization_id, role, created_at
	`
	var out models.UserOrganization
	err := r.pool.QueryRow(ctx, query, member.UserID, member.OrganizationID, member.Role).
		Scan(&out.UserID, &out.OrganizationID, &out.Role, &out.CreatedAt)
	if err != nil {
		// FK violations here mean the user or organization is missing.
		if err = translate(err); errors.Is(err, ErrInUse) {
			return models.UserOrganization{}, ErrNotFound
		}
		return models.UserOrganization{}, err
	}
	return out, nil
}

func (r *OrganizationRepository) RemoveMember(ctx context.Context, organizationID, userID string) error {
	return execOne(ctx, r.pool,
		`DELETE FROM user_organizations WHERE organization_id = $1 AND user_id = $2`,
		organizationID, userID)
}

func (r *OrganizationRepository) IsMember(ctx context.Context, organizationID, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM user_organizations WHERE organization_id = $1 AND user_id = $2
		)
	`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, organizationID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]models.Organization, error) {
	const query = `
		SELECT o.id, o.name, o.description, o.is_active, o.created_at, o.updated_at
		FROM organizations o
		JOIN user_organizations uo ON uo.organization_id = o.id
		WHERE uo.user_id = $1
		ORDER BY o.name
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

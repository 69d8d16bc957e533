package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type companyRepositoryImpl struct {
	db *database.DB
}

func NewCompanyRepository(db *database.DB) company.CompanyRepository {
	return &companyRepositoryImpl{db: db}
}

const companyColumns = `id, name, username, latitude, longitude, radius_meters, timezone, late_cutoff, created_at, updated_at`

func scanCompany(row pgx.Row) (company.Company, error) {
	var c company.Company
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Username,
		&c.Latitude,
		&c.Longitude,
		&c.RadiusMeters,
		&c.Timezone,
		&c.LateCutoff,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// Create implements company.CompanyRepository.
func (c *companyRepositoryImpl) Create(ctx context.Context, newCompany company.Company) (company.Company, error) {
	q := GetQuerier(ctx, c.db)

	query := `
		INSERT INTO companies (name, username, latitude, longitude, radius_meters, timezone, late_cutoff)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + companyColumns

	created, err := scanCompany(q.QueryRow(ctx, query,
		newCompany.Name,
		newCompany.Username,
		newCompany.Latitude,
		newCompany.Longitude,
		newCompany.RadiusMeters,
		newCompany.Timezone,
		newCompany.LateCutoff,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_companies_username") {
			return company.Company{}, company.ErrCompanyUsernameExists
		}
		return company.Company{}, fmt.Errorf("failed to create company: %w", err)
	}
	return created, nil
}

// GetByID implements company.CompanyRepository.
func (c *companyRepositoryImpl) GetByID(ctx context.Context, id string) (company.Company, error) {
	q := GetQuerier(ctx, c.db)

	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	found, err := scanCompany(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company with id %s: %w", id, err)
	}
	return found, nil
}

// UpdateGeofence implements company.CompanyRepository. Only the provided fields change.
func (c *companyRepositoryImpl) UpdateGeofence(ctx context.Context, id string, req company.UpdateGeofenceRequest) (company.Company, error) {
	q := GetQuerier(ctx, c.db)

	setClauses := []string{"updated_at = NOW()"}
	args := make([]interface{}, 0, 6)
	set := func(col string, val interface{}) {
		args = append(args, val)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if req.Latitude != nil && req.Longitude != nil {
		set("latitude", *req.Latitude)
		set("longitude", *req.Longitude)
	}
	if req.RadiusMeters != nil {
		set("radius_meters", *req.RadiusMeters)
	}
	if req.Timezone != nil {
		set("timezone", *req.Timezone)
	}
	if req.LateCutoff != nil {
		set("late_cutoff", *req.LateCutoff)
	}

	args = append(args, id)
	query := "UPDATE companies SET " + strings.Join(setClauses, ", ") +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", len(args)) + companyColumns

	updated, err := scanCompany(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to update company with id %s: %w", id, err)
	}
	return updated, nil
}

package company

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
)

type CompanyServiceImpl struct {
	company.CompanyRepository
	defaults company.Defaults
}

func NewCompanyService(companyRepository company.CompanyRepository, defaults company.Defaults) company.CompanyService {
	return &CompanyServiceImpl{
		CompanyRepository: companyRepository,
		defaults:          defaults,
	}
}

// GetMy returns the caller's company with defaults applied to unset fields.
func (c *CompanyServiceImpl) GetMy(ctx context.Context) (company.CompanyResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return company.CompanyResponse{}, err
	}

	companyData, err := c.CompanyRepository.GetByID(ctx, identity.CompanyID)
	if err != nil {
		return company.CompanyResponse{}, err
	}
	return c.toResponse(companyData), nil
}

// UpdateGeofence changes the institution location, radius, timezone or cutoff. Admin only.
func (c *CompanyServiceImpl) UpdateGeofence(ctx context.Context, req company.UpdateGeofenceRequest) (company.CompanyResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return company.CompanyResponse{}, err
	}
	if !user.HasPermission(identity.Role, user.PermissionCompanyManage) {
		return company.CompanyResponse{}, user.ErrInsufficientPermissions
	}
	if err := req.Validate(); err != nil {
		return company.CompanyResponse{}, err
	}

	updated, err := c.CompanyRepository.UpdateGeofence(ctx, identity.CompanyID, req)
	if err != nil {
		return company.CompanyResponse{}, fmt.Errorf("failed to update geofence: %w", err)
	}
	return c.toResponse(updated), nil
}

func (c *CompanyServiceImpl) toResponse(data company.Company) company.CompanyResponse {
	radius := data.RadiusMeters
	if radius <= 0 {
		radius = c.defaults.RadiusMeters
	}
	tz := data.Timezone
	if tz == "" {
		tz = c.defaults.Timezone
	}
	cutoff := data.LateCutoff
	if cutoff == "" {
		cutoff = c.defaults.LateCutoff
	}
	return company.CompanyResponse{
		ID:           data.ID,
		Name:         data.Name,
		Username:     data.Username,
		Latitude:     data.Latitude,
		Longitude:    data.Longitude,
		RadiusMeters: radius,
		Timezone:     tz,
		LateCutoff:   cutoff,
		UpdatedAt:    data.UpdatedAt,
	}
}

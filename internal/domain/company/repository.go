package company

import "context"

type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (Company, error)
	Create(ctx context.Context, newCompany Company) (Company, error)
	UpdateGeofence(ctx context.Context, id string, req UpdateGeofenceRequest) (Company, error)
}

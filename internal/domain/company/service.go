package company

import (
	"context"
)

type CompanyService interface {
	GetMy(ctx context.Context) (CompanyResponse, error)
	UpdateGeofence(ctx context.Context, req UpdateGeofenceRequest) (CompanyResponse, error)
}

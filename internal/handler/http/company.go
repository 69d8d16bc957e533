package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
)

type CompanyHandler interface {
	GetMy(w http.ResponseWriter, r *http.Request)
	UpdateGeofence(w http.ResponseWriter, r *http.Request)
}

type CompanyHandlerImpl struct {
	companyService company.CompanyService
}

func NewCompanyHandler(companyService company.CompanyService) CompanyHandler {
	return &CompanyHandlerImpl{companyService: companyService}
}

// GetMy implements CompanyHandler.
func (c *CompanyHandlerImpl) GetMy(w http.ResponseWriter, r *http.Request) {
	result, err := c.companyService.GetMy(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// UpdateGeofence implements CompanyHandler.
func (c *CompanyHandlerImpl) UpdateGeofence(w http.ResponseWriter, r *http.Request) {
	var req company.UpdateGeofenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := c.companyService.UpdateGeofence(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Institution geofence updated", result)
}

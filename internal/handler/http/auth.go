package http

import (
	"encoding/json"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
)

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type AuthHandlerImpl struct {
	authService auth.AuthService
}

func NewAuthHandler(authService auth.AuthService) AuthHandler {
	return &AuthHandlerImpl{authService: authService}
}

// Register implements AuthHandler.
func (a *AuthHandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq auth.RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		logging.L(r.Context()).Error("Register decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	tokenResponse, err := a.authService.Register(r.Context(), registerReq)
	if err != nil {
		logging.L(r.Context()).Warn("Register service error", "error", err)
		response.HandleError(w, err)
		return
	}

	logging.L(r.Context()).Info("Company registered", "company_id", tokenResponse.CompanyID)
	response.Created(w, "Company registered successfully", tokenResponse)
}

// Login implements AuthHandler.
func (a *AuthHandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq auth.LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		logging.L(r.Context()).Error("Login decode error", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	tokenResponse, err := a.authService.Login(r.Context(), loginReq)
	if err != nil {
		logging.L(r.Context()).Warn("Login service error", "error", err)
		response.HandleError(w, err)
		return
	}

	logging.L(r.Context()).Info("User logged in successfully", "user_id", tokenResponse.UserID)
	response.Created(w, "User logged in successfully", tokenResponse)
}

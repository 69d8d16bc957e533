package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/auth"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/ledger"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
	"github.com/cmlabs-hris/presence-payroll/internal/service/file"
)

// Error kinds carried in the error_kind field
const (
	KindValidation          = "ValidationError"
	KindInvalidState        = "InvalidState"
	KindAlreadyDecided      = "AlreadyDecided"
	KindDuplicateRun        = "DuplicateRun"
	KindMissingStructure    = "MissingStructure"
	KindGeofenceUnavailable = "GeofenceUnavailable"
	KindNotFound            = "NotFound"
	KindUnauthorized        = "Unauthorized"
	KindForbidden           = "Forbidden"
	KindInternal            = "Internal"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	// The existing run goes back to the caller so it can open it instead.
	var dup *payroll.DuplicateRunError
	if errors.As(err, &dup) {
		Fail(w, http.StatusConflict, KindDuplicateRun, "DUPLICATE_RUN", dup.Error(), nil, payroll.NewRunResponse(dup.Existing, nil))
		return
	}

	switch {
	// Field-level rules raised by services
	case errors.Is(err, approval.ErrRejectNoteRequired):
		ValidationError(w, map[string]string{"note": err.Error()})
	case errors.Is(err, attendance.ErrInvalidCoordinates):
		ValidationError(w, map[string]string{"latitude": err.Error()})
	case errors.Is(err, employee.ErrFutureDateNotAllowed):
		ValidationError(w, map[string]string{"hire_date": err.Error()})
	case errors.Is(err, user.ErrInvalidRole):
		ValidationError(w, map[string]string{"role": err.Error()})
	case errors.Is(err, file.ErrInvalidFileType), errors.Is(err, file.ErrFileTooLarge):
		ValidationError(w, map[string]string{"proof": err.Error()})
	case errors.Is(err, ledger.ErrUnsupportedFormat):
		ValidationError(w, map[string]string{"format": err.Error()})
	case errors.Is(err, approval.ErrInvalidDecision), errors.Is(err, approval.ErrUnknownKind), errors.Is(err, approval.ErrDeciderRequired):
		BadRequest(w, err.Error(), nil)

	// Auth
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingClaims), errors.Is(err, user.ErrCompanyIDRequired):
		Unauthorized(w, "Invalid or missing token")

	// Permissions
	case errors.Is(err, user.ErrInsufficientPermissions),
		errors.Is(err, approval.ErrSelfDecision),
		errors.Is(err, approval.ErrNotAttemptOwner),
		errors.Is(err, employee.ErrEmployeeRequired),
		errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, err.Error())

	// Not found
	case errors.Is(err, company.ErrCompanyNotFound),
		errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, employee.ErrEmployeeNotFound),
		errors.Is(err, attendance.ErrAttemptNotFound),
		errors.Is(err, attendance.ErrSessionNotFound),
		errors.Is(err, approval.ErrItemNotFound),
		errors.Is(err, payroll.ErrSalaryStructureNotFound),
		errors.Is(err, payroll.ErrRunNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, err.Error())

	// Uniqueness
	case errors.Is(err, company.ErrCompanyUsernameExists),
		errors.Is(err, user.ErrUserEmailExists),
		errors.Is(err, employee.ErrEmployeeCodeExists):
		Conflict(w, err.Error())

	// Workflow state
	case errors.Is(err, approval.ErrAlreadyDecided):
		Fail(w, http.StatusConflict, KindAlreadyDecided, "ALREADY_DECIDED", err.Error(), nil, nil)
	case errors.Is(err, payroll.ErrDuplicateRun):
		Fail(w, http.StatusConflict, KindDuplicateRun, "DUPLICATE_RUN", err.Error(), nil, nil)
	case errors.Is(err, company.ErrGeofenceNotConfigured):
		Fail(w, http.StatusConflict, KindGeofenceUnavailable, "GEOFENCE_NOT_CONFIGURED", err.Error(), nil, nil)
	case errors.Is(err, ledger.ErrMissingBankDetails):
		Fail(w, http.StatusConflict, KindMissingStructure, "MISSING_STRUCTURE", err.Error(), nil, nil)
	case errors.Is(err, approval.ErrInvalidState),
		errors.Is(err, payroll.ErrRunNotDraft),
		errors.Is(err, payroll.ErrRunNotFinalized),
		errors.Is(err, payroll.ErrNoActiveEmployees),
		errors.Is(err, payroll.ErrUnresolvedDisputes),
		errors.Is(err, payroll.ErrRunStale),
		errors.Is(err, attendance.ErrNoOpenSession),
		errors.Is(err, attendance.ErrAlreadyClockedOut),
		errors.Is(err, attendance.ErrSessionExists):
		Conflict(w, err.Error())

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

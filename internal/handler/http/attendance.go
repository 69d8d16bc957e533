package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	RecordAttempt(w http.ResponseWriter, r *http.Request)
	ClockOut(w http.ResponseWriter, r *http.Request)
	ListAttempts(w http.ResponseWriter, r *http.Request)
	ListSessions(w http.ResponseWriter, r *http.Request)
	SubmitDispute(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	approvalService   approval.ApprovalService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, approvalService approval.ApprovalService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		approvalService:   approvalService,
	}
}

// RecordAttempt answers 201 for both outcomes: a failed attempt is still a stored record.
func (h *attendanceHandlerImpl) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecordAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	result, err := h.attendanceService.RecordAttempt(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	message := "Clock in successful"
	if !result.Verified {
		message = "Clock in attempt recorded outside the institution geofence"
	}
	response.Created(w, message, result)
}

// ClockOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) ClockOut(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.ClockOut(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Clock out successful", result)
}

func (h *attendanceHandlerImpl) ListAttempts(w http.ResponseWriter, r *http.Request) {
	filter := attendance.AttemptFilter{
		EmployeeID: optionalQuery(r, "employee_id"),
		Outcome:    optionalQuery(r, "outcome"),
		From:       optionalQuery(r, "from"),
		To:         optionalQuery(r, "to"),
		Page:       getIntQueryParam(r, "page", 1),
		Limit:      getIntQueryParam(r, "limit", 20),
	}

	result, err := h.attendanceService.ListAttempts(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *attendanceHandlerImpl) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := attendance.SessionFilter{
		EmployeeID: optionalQuery(r, "employee_id"),
		From:       optionalQuery(r, "from"),
		To:         optionalQuery(r, "to"),
		Page:       getIntQueryParam(r, "page", 1),
		Limit:      getIntQueryParam(r, "limit", 20),
	}

	result, err := h.attendanceService.ListSessions(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// SubmitDispute accepts a JSON body, or multipart with a 'data' JSON field and an optional 'proof' file.
func (h *attendanceHandlerImpl) SubmitDispute(w http.ResponseWriter, r *http.Request) {
	var req approval.SubmitDisputeRequest

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			logging.L(r.Context()).Error("Failed to parse multipart form", "error", err)
			response.BadRequest(w, "Failed to parse form data", nil)
			return
		}

		if dataJSON := r.FormValue("data"); dataJSON != "" {
			if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
				response.BadRequest(w, "Invalid request format", nil)
				return
			}
		} else {
			req.Reason = r.FormValue("reason")
		}

		file, fileHeader, err := r.FormFile("proof")
		if err != nil && err != http.ErrMissingFile {
			logging.L(r.Context()).Error("Failed to get file from form", "error", err)
			response.BadRequest(w, "Invalid file upload", nil)
			return
		}
		if file != nil {
			defer file.Close()
			req.File = file
			req.FileHeader = fileHeader
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	req.AttemptID = chi.URLParam(r, "id")

	result, err := h.approvalService.SubmitDispute(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Dispute submitted", result)
}

package http

import (
	"net/http"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ApprovalHandler interface {
	Submit(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type approvalHandlerImpl struct {
	approvalService approval.ApprovalService
}

func NewApprovalHandler(approvalService approval.ApprovalService) ApprovalHandler {
	return &approvalHandlerImpl{approvalService: approvalService}
}

func (h *approvalHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	var req approval.SubmitItemRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.approvalService.Submit(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Submitted for approval", result)
}

func (h *approvalHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := approval.ItemFilter{
		Kind:       optionalQuery(r, "kind"),
		Status:     optionalQuery(r, "status"),
		EmployeeID: optionalQuery(r, "employee_id"),
		Page:       getIntQueryParam(r, "page", 1),
		Limit:      getIntQueryParam(r, "limit", 20),
	}

	result, err := h.approvalService.List(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *approvalHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.approvalService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Approve takes an optional note.
func (h *approvalHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	var req approval.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.approvalService.Approve(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Approved", result)
}

func (h *approvalHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req approval.DecisionRequest
	if err := decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.approvalService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Rejected", result)
}

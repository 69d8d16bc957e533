package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/ledger"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/reconciliation"
	"github.com/cmlabs-hris/presence-payroll/internal/handler/http/response"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/logging"
	"github.com/go-chi/chi/v5"
)

type LedgerHandler interface {
	GetReconciliation(w http.ResponseWriter, r *http.Request)
	GetLedger(w http.ResponseWriter, r *http.Request)
	Export(w http.ResponseWriter, r *http.Request)
}

type ledgerHandlerImpl struct {
	reconciliationService reconciliation.ReconciliationService
	ledgerService         ledger.LedgerService
}

func NewLedgerHandler(reconciliationService reconciliation.ReconciliationService, ledgerService ledger.LedgerService) LedgerHandler {
	return &ledgerHandlerImpl{
		reconciliationService: reconciliationService,
		ledgerService:         ledgerService,
	}
}

func (h *ledgerHandlerImpl) GetReconciliation(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciliationService.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

func (h *ledgerHandlerImpl) GetLedger(w http.ResponseWriter, r *http.Request) {
	result, err := h.ledgerService.GetReconciledLedger(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}

// Export renders into a buffer first so a failure can still be reported as JSON.
func (h *ledgerHandlerImpl) Export(w http.ResponseWriter, r *http.Request) {
	format, err := ledger.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.HandleError(w, err)
		return
	}

	var buf bytes.Buffer
	filename, err := h.ledgerService.Export(r.Context(), chi.URLParam(r, "id"), format, &buf)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.L(r.Context()).Error("Failed to write ledger export", "error", err)
	}
}

package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/sse"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/storage"
	approvalService "github.com/cmlabs-hris/presence-payroll/internal/service/approval"
	attendanceService "github.com/cmlabs-hris/presence-payroll/internal/service/attendance"
	serviceAuth "github.com/cmlabs-hris/presence-payroll/internal/service/auth"
	serviceCompany "github.com/cmlabs-hris/presence-payroll/internal/service/company"
	employeeService "github.com/cmlabs-hris/presence-payroll/internal/service/employee"
	"github.com/cmlabs-hris/presence-payroll/internal/service/file"
	ledgerService "github.com/cmlabs-hris/presence-payroll/internal/service/ledger"
	notificationService "github.com/cmlabs-hris/presence-payroll/internal/service/notification"
	payrollService "github.com/cmlabs-hris/presence-payroll/internal/service/payroll"
	reconciliationService "github.com/cmlabs-hris/presence-payroll/internal/service/reconciliation"
	"github.com/cmlabs-hris/presence-payroll/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
	ErrorKind string `json:"error_kind"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	f := testutil.NewFixture(t)

	fileStorage, err := storage.NewLocalStorage(t.TempDir(), "http://localhost/api/v1/uploads")
	require.NoError(t, err)
	fileSvc := file.NewFileService(fileStorage, 1<<20)

	attendanceSvc := attendanceService.NewAttendanceService(f.Tx, f.Attempts, f.Sessions, f.Companies, f.Employees, f.Notifier, f.Defaults)
	approvalSvc := approvalService.NewApprovalService(f.Tx, f.Approvals, f.Employees, f.Users, fileSvc, f.Notifier,
		map[approval.Kind]approval.KindPolicy{
			approval.KindAttendanceDispute: attendanceService.NewDisputePolicy(f.Attempts, f.Sessions, f.Approvals, f.Companies, f.Defaults),
			approval.KindContentSubmission: approval.NoSideEffect{},
		})

	notifSvc := notificationService.NewNotificationService(f.Notifications, sse.NewHub(4), notificationService.Config{BatchSize: 1, WorkerCount: 1}, nil)
	t.Cleanup(notifSvc.Stop)

	router := NewRouter(RouterConfig{
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		JWTService:          f.JWT,
		AuthHandler:         NewAuthHandler(serviceAuth.NewAuthService(f.Tx, f.Users, f.Companies, f.JWT, f.Defaults)),
		CompanyHandler:      NewCompanyHandler(serviceCompany.NewCompanyService(f.Companies, f.Defaults)),
		EmployeeHandler:     NewEmployeeHandler(employeeService.NewEmployeeService(f.Tx, f.Employees, f.Users)),
		AttendanceHandler:   NewAttendanceHandler(attendanceSvc, approvalSvc),
		ApprovalHandler:     NewApprovalHandler(approvalSvc),
		PayrollHandler:      NewPayrollHandler(payrollService.NewPayrollService(f.Tx, f.Payroll, f.Employees, f.Sessions, f.Approvals, f.Notifier)),
		LedgerHandler:       NewLedgerHandler(reconciliationService.NewReconciliationService(f.Tx, f.Payroll, f.Approvals, f.Attempts, f.Sessions), ledgerService.NewLedgerService(f.Tx, f.Payroll, f.Approvals, f.Sessions)),
		NotificationHandler: NewNotificationHandler(notifSvc, f.JWT),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp, env
}

func register(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, env := do(t, srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"company_name":     "Greenfield Academy",
		"company_username": "greenfield",
		"email":            "admin@greenfield.example",
		"password":         "correct-horse",
		"confirm_password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var token struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &token))
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "admin", token.Role)
	return token.AccessToken
}

func TestRouter_Heartbeat(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestRouter_RegisterThenLogin(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "ADMIN@greenfield.example",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "admin@greenfield.example",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", env.ErrorKind)
}

func TestRouter_RequiresToken(t *testing.T) {
	srv := newTestServer(t)

	resp, env := do(t, srv, http.MethodGet, "/api/v1/payroll/runs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, "Unauthorized", env.ErrorKind)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/notifications/stream?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_ValidationErrorKind(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/payroll/runs", token, map[string]int{"month": 13, "year": 2025})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ValidationError", env.ErrorKind)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "month")

	resp, env = do(t, srv, http.MethodGet, "/api/v1/payroll/runs/not-a-run/ledger/export?format=pdf", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "ValidationError", env.ErrorKind)
}

func TestRouter_PayrollRunToLedgerExport(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/employees", token, map[string]string{
		"employee_code": "T-001",
		"full_name":     "Ada Obi",
		"hire_date":     "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var emp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &emp))

	resp, _ = do(t, srv, http.MethodPut, "/api/v1/payroll/salary-structures/"+emp.ID, token, map[string]string{
		"base_salary":         "3100.00",
		"housing_allowance":   "0",
		"transport_allowance": "0",
		"tax_deduction":       "0",
		"pension_deduction":   "0",
		"bank_name":           "First Bank",
		"account_number":      "0123456789",
		"account_name":        "ADA OBI",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	period := map[string]int{"month": 3, "year": 2025}
	resp, env = do(t, srv, http.MethodPost, "/api/v1/payroll/runs", token, period)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var run struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, "DRAFT", run.Status)

	// A second run for the same period points the caller at the first one
	resp, env = do(t, srv, http.MethodPost, "/api/v1/payroll/runs", token, period)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DuplicateRun", env.ErrorKind)
	var existing struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &existing))
	assert.Equal(t, run.ID, existing.ID)

	// Draft runs cannot be exported
	resp, env = do(t, srv, http.MethodGet, "/api/v1/payroll/runs/"+run.ID+"/ledger", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "InvalidState", env.ErrorKind)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/payroll/runs/"+run.ID+"/finalize", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/payroll/runs/"+run.ID+"/reconciliation", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	exportResp, err := func() (*http.Response, error) {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/payroll/runs/"+run.ID+"/ledger/export?format=csv", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return srv.Client().Do(req)
	}()
	require.NoError(t, err)
	defer exportResp.Body.Close()

	body, err := io.ReadAll(exportResp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, exportResp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", exportResp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ledger_2025_03_`+run.ID+`.csv"`, exportResp.Header.Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(string(body), "Account Name,Bank Name,Account Number,Amount,Narration\n"))
	assert.Contains(t, string(body), "ADA OBI,First Bank,0123456789,")
}

func TestRouter_EmployeeManagementNeedsPermission(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv)

	resp, _ := do(t, srv, http.MethodPost, "/api/v1/employees", token, map[string]string{
		"employee_code": "T-002",
		"full_name":     "Bayo Ade",
		"hire_date":     "2024-01-01",
		"email":         "bayo@greenfield.example",
		"password":      "staff-password",
		"role":          "staff",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "bayo@greenfield.example",
		"password": "staff-password",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var staff struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &staff))

	resp, env = do(t, srv, http.MethodGet, "/api/v1/employees", staff.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", env.ErrorKind)
}

func TestRouter_Notifications(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv)

	resp, env := do(t, srv, http.MethodGet, "/api/v1/notifications?unread_only=true&limit=500", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		TotalCount int64 `json:"total_count"`
		Limit      int   `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Zero(t, list.TotalCount)
	assert.Equal(t, 20, list.Limit)

	resp, env = do(t, srv, http.MethodPost, "/api/v1/notifications/8d2f3c1e-2b7a-4c55-9e0e-5f1a6b7c8d9e/read", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", env.ErrorKind)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/notifications/read-all", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = do(t, srv, http.MethodGet, "/api/v1/notifications/stream-token", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(env.Data))
	assert.Contains(t, string(env.Data), "token")
}

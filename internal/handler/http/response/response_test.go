package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/payroll"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/user"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHandleError_Kinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{validator.ValidationErrors{{Field: "month", Message: "must be at most 12"}}, http.StatusUnprocessableEntity, KindValidation},
		{fmt.Errorf("deciding: %w", approval.ErrAlreadyDecided), http.StatusConflict, KindAlreadyDecided},
		{payroll.ErrRunNotDraft, http.StatusConflict, KindInvalidState},
		{notification.ErrNotificationNotFound, http.StatusNotFound, KindNotFound},
		{user.ErrInsufficientPermissions, http.StatusForbidden, KindForbidden},
		{errors.New("boom"), http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.kind, resp.ErrorKind)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestHandleError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, validator.ValidationErrors{{Field: "month", Message: "must be at most 12"}})

	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "month")
}

func TestWriteJSON_UnencodablePayload(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, map[string]interface{}{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "ENCODING_ERROR", resp.Error.Code)
	assert.Equal(t, KindInternal, resp.ErrorKind)
}

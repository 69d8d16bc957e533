package approval

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

type SubmitDisputeRequest struct {
	AttemptID  string                `json:"-"`
	Reason     string                `json:"reason" validate:"required,max=1000"`
	ProofURL   *string               `json:"proof_url,omitempty" validate:"omitempty,url"`
	File       multipart.File        `json:"-"`
	FileHeader *multipart.FileHeader `json:"-"`
}

func (r *SubmitDisputeRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.AttemptID) {
		errs = append(errs, validator.ValidationError{Field: "attempt_id", Message: "must be a valid UUID"})
	}
	return errs.OrNil()
}

type SubmitItemRequest struct {
	Kind      string  `json:"kind" validate:"required,oneof=content_submission"`
	SubjectID string  `json:"subject_id" validate:"required,max=100"`
	Title     *string `json:"title,omitempty" validate:"omitempty,max=255"`
	Reason    string  `json:"reason" validate:"required,max=1000"`
	ProofURL  *string `json:"proof_url,omitempty" validate:"omitempty,url"`
}

func (r *SubmitItemRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return validator.Struct(r).OrNil()
}

type DecisionRequest struct {
	ID   string  `json:"-"`
	Note *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

func (r *DecisionRequest) Validate() error {
	errs := validator.Struct(r)
	if !validator.IsValidUUID(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "must be a valid UUID"})
	}
	return errs.OrNil()
}

type ItemFilter struct {
	Kind       *string
	Status     *string
	EmployeeID *string
	Page       int
	Limit      int
}

func (f *ItemFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.Kind != nil && !Kind(*f.Kind).Valid() {
		errs = append(errs, validator.ValidationError{Field: "kind", Message: "must be attendance_dispute or content_submission"})
	}
	if f.Status != nil && !validator.IsInSlice(*f.Status, []string{string(StatusPending), string(StatusApproved), string(StatusRejected)}) {
		errs = append(errs, validator.ValidationError{Field: "status", Message: "must be PENDING, APPROVED or REJECTED"})
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return errs.OrNil()
}

type ItemResponse struct {
	ID               string     `json:"id"`
	Kind             string     `json:"kind"`
	SubjectID        string     `json:"subject_id"`
	EmployeeID       string     `json:"employee_id"`
	EmployeeName     *string    `json:"employee_name,omitempty"`
	Title            *string    `json:"title,omitempty"`
	Reason           string     `json:"reason"`
	ProofURL         *string    `json:"proof_url,omitempty"`
	DistanceDetected *float64   `json:"distance_detected,omitempty"`
	SubjectDate      *string    `json:"subject_date,omitempty"`
	Status           string     `json:"status"`
	DecisionNote     *string    `json:"decision_note,omitempty"`
	DecidedBy        *string    `json:"decided_by,omitempty"`
	DecidedAt        *time.Time `json:"decided_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type ListItemResponse struct {
	Items      []ItemResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

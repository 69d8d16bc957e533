package attendance

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/approval"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-payroll/internal/domain/company"
)

// DisputePolicy plugs attendance disputes into the approval queue. An approved dispute
// becomes a DISPUTE_OVERRIDE session for the attempt's work date.
type DisputePolicy struct {
	attemptRepo  attendance.AttemptRepository
	sessionRepo  attendance.SessionRepository
	approvalRepo approval.ItemRepository
	companyRepo  company.CompanyRepository
	defaults     company.Defaults
}

func NewDisputePolicy(
	attemptRepo attendance.AttemptRepository,
	sessionRepo attendance.SessionRepository,
	approvalRepo approval.ItemRepository,
	companyRepo company.CompanyRepository,
	defaults company.Defaults,
) *DisputePolicy {
	return &DisputePolicy{
		attemptRepo:  attemptRepo,
		sessionRepo:  sessionRepo,
		approvalRepo: approvalRepo,
		companyRepo:  companyRepo,
		defaults:     defaults,
	}
}

var _ approval.KindPolicy = (*DisputePolicy)(nil)

// Prepare locks the attempt and copies its distance and work date onto the item.
func (p *DisputePolicy) Prepare(ctx context.Context, item *approval.Item) error {
	attempt, err := p.attemptRepo.GetByIDForUpdate(ctx, item.SubjectID, item.CompanyID)
	if err != nil {
		return err
	}
	if attempt.EmployeeID != item.EmployeeID {
		return approval.ErrNotAttemptOwner
	}
	if attempt.Verified {
		return approval.ErrAttemptVerified
	}

	exists, err := p.approvalRepo.ExistsForSubject(ctx, approval.KindAttendanceDispute, attempt.ID, item.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to check existing dispute: %w", err)
	}
	if exists {
		return approval.ErrAlreadyDisputed
	}

	workDate := attempt.WorkDate
	item.DistanceDetected = attendance.FiniteDistance(attempt.DistanceMeters)
	item.SubjectDate = &workDate
	return nil
}

// OnApproved keeps an existing session for the day; presence is counted once.
func (p *DisputePolicy) OnApproved(ctx context.Context, item approval.Item) error {
	attempt, err := p.attemptRepo.GetByID(ctx, item.SubjectID, item.CompanyID)
	if err != nil {
		return err
	}
	companyData, err := p.companyRepo.GetByID(ctx, item.CompanyID)
	if err != nil {
		return err
	}

	attemptID := attempt.ID
	_, _, err = p.sessionRepo.CreateIfAbsent(ctx, attendance.ClockSession{
		CompanyID:  attempt.CompanyID,
		EmployeeID: attempt.EmployeeID,
		WorkDate:   attempt.WorkDate,
		ClockInAt:  attempt.AttemptedAt,
		IsLate:     companyData.IsLate(attempt.AttemptedAt, p.defaults),
		Source:     attendance.SessionSourceDisputeOverride,
		AttemptID:  &attemptID,
	})
	if err != nil {
		return fmt.Errorf("failed to create override session: %w", err)
	}
	return nil
}

// Package approval is the shared approval queue. Every queued item moves through the same
// PENDING → APPROVED | REJECTED machine; kind-specific behavior is plugged in with a KindPolicy.
package approval

import (
	"strings"
	"time"
)

type Kind string

const (
	KindAttendanceDispute Kind = "attendance_dispute"
	KindContentSubmission Kind = "content_submission"
)

func (k Kind) Valid() bool {
	return k == KindAttendanceDispute || k == KindContentSubmission
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Item struct {
	ID         string
	CompanyID  string
	Kind       Kind
	SubjectID  string // attempt ID for disputes
	EmployeeID string // submitter
	Title      *string
	Reason     string
	ProofURL   *string

	// Dispute fields, copied from the attempt at submission time.
	DistanceDetected *float64
	SubjectDate      *time.Time

	Status       Status
	DecisionNote *string
	DecidedBy    *string
	DecidedAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// DTO / Join
	EmployeeName *string
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Transition applies a decision to the item in memory. It is the only place item
// status changes.
func Transition(item Item, decision Decision, decidedBy string, note *string, at time.Time) (Item, error) {
	if item.Status != StatusPending {
		return item, ErrAlreadyDecided
	}
	if decidedBy == "" {
		return item, ErrDeciderRequired
	}
	if decidedBy == item.EmployeeID {
		return item, ErrSelfDecision
	}
	if note != nil {
		trimmed := strings.TrimSpace(*note)
		note = &trimmed
		if trimmed == "" {
			note = nil
		}
	}

	switch decision {
	case DecisionApprove:
		item.Status = StatusApproved
	case DecisionReject:
		if note == nil {
			return item, ErrRejectNoteRequired
		}
		item.Status = StatusRejected
	default:
		return item, ErrInvalidDecision
	}

	item.DecisionNote = note
	item.DecidedBy = &decidedBy
	item.DecidedAt = &at
	item.UpdatedAt = at
	return item, nil
}

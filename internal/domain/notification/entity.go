package notification

import (
	"time"
)

type NotificationType string

const (
	TypeDisputeSubmitted  NotificationType = "dispute_submitted"
	TypeApprovalApproved  NotificationType = "approval_approved"
	TypeApprovalRejected  NotificationType = "approval_rejected"
	TypePayrollFinalized  NotificationType = "payroll_finalized"
	TypeSessionAutoClosed NotificationType = "session_auto_closed"
)

// Notification is an in-app message to one login. It never outlives its company.
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string // user ID
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	ReadAt      *time.Time
	CreatedAt   time.Time
}

func (n Notification) IsRead() bool { return n.ReadAt != nil }

package notification

import (
	"context"
	"time"
)

// Repository stores notifications. Reads and updates are scoped to one recipient in one company.
type Repository interface {
	Insert(ctx context.Context, notifications []Notification) error
	ListForRecipient(ctx context.Context, companyID, userID string, filter ListFilter) ([]Notification, int64, error)
	CountUnread(ctx context.Context, companyID, userID string) (int64, error)
	// MarkRead is idempotent for an already read notification and fails with ErrNotificationNotFound otherwise.
	MarkRead(ctx context.Context, companyID, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, companyID, userID string, at time.Time) (int64, error)
}

package notification

import (
	"context"
)

type Service interface {
	// Queue hands a notification to the background writers. It never fails the caller's transition:
	// a full queue falls back to a direct insert.
	QueueNotification(ctx context.Context, req CreateNotificationRequest) error
	QueueBulkNotification(ctx context.Context, reqs []CreateNotificationRequest) error

	// List, MarkRead and MarkAllRead act for the caller in the request context.
	List(ctx context.Context, filter ListFilter) (ListResponse, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (int64, error)

	Subscribe(ctx context.Context, userID string) (<-chan SSEEvent, func())

	// Stop flushes queued notifications and waits for the writers
	Stop()
}

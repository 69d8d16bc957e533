package postgresql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type notificationRepository struct {
	db *database.DB
}

func NewNotificationRepository(db *database.DB) notification.Repository {
	return &notificationRepository{db: db}
}

var notificationColumns = []string{"id", "company_id", "recipient_id", "sender_id", "type", "title", "message", "data", "created_at"}

// Insert writes a worker batch with COPY.
func (r *notificationRepository) Insert(ctx context.Context, ns []notification.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	rows := make([][]interface{}, 0, len(ns))
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = uuid.New().String()
		}
		var data []byte
		if ns[i].Data != nil {
			var err error
			if data, err = json.Marshal(ns[i].Data); err != nil {
				return fmt.Errorf("failed to marshal notification data: %w", err)
			}
		}
		rows = append(rows, []interface{}{
			ns[i].ID, ns[i].CompanyID, ns[i].RecipientID, ns[i].SenderID,
			string(ns[i].Type), ns[i].Title, ns[i].Message, data, ns[i].CreatedAt,
		})
	}

	if _, err := q.CopyFrom(ctx, pgx.Identifier{"notifications"}, notificationColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, companyID, userID string, filter notification.ListFilter) ([]notification.Notification, int64, error) {
	q := GetQuerier(ctx, r.db)

	where := "company_id = $1 AND recipient_id = $2"
	if filter.UnreadOnly {
		where += " AND read_at IS NULL"
	}
	args := []interface{}{companyID, userID}

	var total int64
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM notifications WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query, args := withPage(`
		SELECT id, company_id, recipient_id, sender_id, type, title, message, data, read_at, created_at
		FROM notifications
		WHERE `+where+`
		ORDER BY created_at DESC, id DESC`, args, filter.Page, filter.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var (
			n        notification.Notification
			typ      string
			dataJSON []byte
		)
		if err := rows.Scan(&n.ID, &n.CompanyID, &n.RecipientID, &n.SenderID, &typ,
			&n.Title, &n.Message, &dataJSON, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = notification.NotificationType(typ)
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return out, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, companyID, userID string) (int64, error) {
	q := GetQuerier(ctx, r.db)
	var count int64
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE company_id = $1 AND recipient_id = $2 AND read_at IS NULL`, companyID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, companyID, userID, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)
	// COALESCE keeps the first read time on repeat calls
	tag, err := q.Exec(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, $4)
		WHERE id = $1 AND company_id = $2 AND recipient_id = $3`, id, companyID, userID, at)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, companyID, userID string, at time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)
	tag, err := q.Exec(ctx, `
		UPDATE notifications SET read_at = $3
		WHERE company_id = $1 AND recipient_id = $2 AND read_at IS NULL`, companyID, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

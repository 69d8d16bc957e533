package memory

import (
	"context"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
)

type notificationRepository struct{ s *Store }

func NewNotificationRepository(s *Store) notification.Repository {
	return &notificationRepository{s: s}
}

func (r *notificationRepository) Insert(ctx context.Context, ns []notification.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range ns {
		if ns[i].ID == "" {
			ns[i].ID = newID()
		}
		r.s.data.notifications[ns[i].ID] = ns[i]
	}
	return nil
}

func (r *notificationRepository) ListForRecipient(ctx context.Context, companyID, userID string, filter notification.ListFilter) ([]notification.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []notification.Notification
	for _, n := range r.s.data.notifications {
		if !owns(n, companyID, userID) || (filter.UnreadOnly && n.IsRead()) {
			continue
		}
		list = append(list, n)
	}
	sortByTimeDesc(list, func(n notification.Notification) time.Time { return n.CreatedAt }, func(n notification.Notification) string { return n.ID })
	return paginate(list, filter.Page, filter.Limit), int64(len(list)), nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, companyID, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var count int64
	for _, n := range r.s.data.notifications {
		if owns(n, companyID, userID) && !n.IsRead() {
			count++
		}
	}
	return count, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, companyID, userID, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.data.notifications[id]
	if !ok || !owns(n, companyID, userID) {
		return notification.ErrNotificationNotFound
	}
	if !n.IsRead() {
		n.ReadAt = &at
		r.s.data.notifications[id] = n
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, companyID, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var updated int64
	for id, n := range r.s.data.notifications {
		if owns(n, companyID, userID) && !n.IsRead() {
			n.ReadAt = &at
			r.s.data.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func owns(n notification.Notification, companyID, userID string) bool {
	return n.CompanyID == companyID && n.RecipientID == userID
}

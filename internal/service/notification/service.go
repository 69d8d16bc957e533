package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/notification"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/jwt"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/metrics"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	BatchSize     int           // default: 100
	FlushInterval time.Duration // default: 5 seconds
	WorkerCount   int           // default: 2
	QueueSize     int           // default: 1000
}

type service struct {
	repo   notification.Repository
	hub    *sse.Hub
	config Config
	logger *slog.Logger
	now    func() time.Time

	queue    chan notification.CreateNotificationRequest
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewNotificationService creates a new notification service with background workers
func NewNotificationService(repo notification.Repository, hub *sse.Hub, cfg Config, logger *slog.Logger) notification.Service {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &service{
		repo:   repo,
		hub:    hub,
		config: cfg,
		logger: logger.With("component", "notification"),
		now:    time.Now,
		queue:  make(chan notification.CreateNotificationRequest, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.logger.Info("notification service started",
		"workers", cfg.WorkerCount, "batch_size", cfg.BatchSize, "flush_interval", cfg.FlushInterval)

	return s
}

// worker drains the queue, flushing a batch when it is full or the ticker fires
func (s *service) worker(id int) {
	defer s.wg.Done()

	batch := make([]notification.CreateNotificationRequest, 0, s.config.BatchSize)
	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		notifications := make([]notification.Notification, len(batch))
		for i, req := range batch {
			notifications[i] = s.newEntity(req)
		}

		if err := s.repo.Insert(ctx, notifications); err != nil {
			s.logger.Error("batch insert failed", "worker", id, "count", len(notifications), "error", err)
		} else {
			s.logger.Debug("notifications inserted", "worker", id, "count", len(notifications))
			for _, n := range notifications {
				s.publish(n)
			}
		}

		batch = batch[:0]
		metrics.NotificationQueueDepth.Set(float64(len(s.queue)))
	}

	for {
		select {
		case req := <-s.queue:
			batch = append(batch, req)
			if len(batch) >= s.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stopCh:
			// drain what is already queued
			for {
				select {
				case req := <-s.queue:
					batch = append(batch, req)
					if len(batch) >= s.config.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// QueueNotification enqueues without waiting for a worker. A full queue falls back to a direct insert.
func (s *service) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	if req.RecipientID == "" {
		return nil
	}

	select {
	case s.queue <- req:
		metrics.NotificationQueueDepth.Set(float64(len(s.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.directInsert(ctx, req)
	}
}

// QueueBulkNotification logs and skips individual failures
func (s *service) QueueBulkNotification(ctx context.Context, reqs []notification.CreateNotificationRequest) error {
	for _, req := range reqs {
		if err := s.QueueNotification(ctx, req); err != nil {
			s.logger.Warn("failed to queue notification", "recipient_id", req.RecipientID, "type", req.Type, "error", err)
		}
	}
	return nil
}

func (s *service) directInsert(ctx context.Context, req notification.CreateNotificationRequest) error {
	n := s.newEntity(req)
	if err := s.repo.Insert(ctx, []notification.Notification{n}); err != nil {
		return err
	}
	s.publish(n)
	return nil
}

func (s *service) newEntity(req notification.CreateNotificationRequest) notification.Notification {
	return notification.Notification{
		ID:          uuid.New().String(),
		CompanyID:   req.CompanyID,
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Title:       req.Title,
		Message:     req.Message,
		Data:        req.Data,
		CreatedAt:   s.now(),
	}
}

func (s *service) publish(n notification.Notification) {
	s.hub.Publish(n.RecipientID, sse.Event{
		UserID: n.RecipientID,
		Event:  "notification",
		Data:   notification.NewNotificationResponse(n),
	})
}

func (s *service) List(ctx context.Context, filter notification.ListFilter) (notification.ListResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return notification.ListResponse{}, err
	}
	filter.Normalize()

	notifications, total, err := s.repo.ListForRecipient(ctx, identity.CompanyID, identity.UserID, filter)
	if err != nil {
		return notification.ListResponse{}, err
	}
	unread, err := s.repo.CountUnread(ctx, identity.CompanyID, identity.UserID)
	if err != nil {
		return notification.ListResponse{}, err
	}

	resp := notification.ListResponse{
		Notifications: make([]notification.NotificationResponse, len(notifications)),
		TotalCount:    total,
		UnreadCount:   unread,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}
	for i, n := range notifications {
		resp.Notifications[i] = notification.NewNotificationResponse(n)
	}
	return resp, nil
}

func (s *service) MarkRead(ctx context.Context, id string) error {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, identity.CompanyID, identity.UserID, id, s.now())
}

func (s *service) MarkAllRead(ctx context.Context) (int64, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkAllRead(ctx, identity.CompanyID, identity.UserID, s.now())
}

// Subscribe creates an SSE subscription for a user
func (s *service) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	ch, cleanup := s.hub.Subscribe(userID)

	out := make(chan notification.SSEEvent, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if resp, ok := event.Data.(notification.NotificationResponse); ok {
					select {
					case out <- notification.SSEEvent{Event: event.Event, Data: resp}:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop flushes queued notifications and waits for the workers
func (s *service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		s.logger.Info("notification service stopped")
	})
}

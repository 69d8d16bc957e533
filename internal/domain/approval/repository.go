package approval

import (
	"context"
	"time"
)

// ItemRepository never deletes. All methods include companyID.
type ItemRepository interface {
	// Create fails with ErrDuplicateSubject when an item already exists for (kind, subject).
	Create(ctx context.Context, item Item) (Item, error)

	GetByID(ctx context.Context, id string, companyID string) (Item, error)

	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (Item, error)

	ExistsForSubject(ctx context.Context, kind Kind, subjectID string, companyID string) (bool, error)

	// SaveDecision persists status and decision fields, guarded on the row still being PENDING.
	SaveDecision(ctx context.Context, item Item) error

	List(ctx context.Context, filter ItemFilter, companyID string) ([]Item, int64, error)

	// ListDisputesInPeriod returns attendance disputes whose subject date falls in [from, to].
	ListDisputesInPeriod(ctx context.Context, companyID string, from, to time.Time, statuses []Status) ([]Item, error)
}

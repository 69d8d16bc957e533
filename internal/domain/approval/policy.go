package approval

import "context"

// KindPolicy attaches behavior to one item kind. Both hooks run inside the transaction of
// the operation that calls them, so an error rolls the whole operation back.
type KindPolicy interface {
	// Prepare validates the subject and fills kind-specific fields before the item is stored.
	Prepare(ctx context.Context, item *Item) error

	// OnApproved applies the side effect of an approval.
	OnApproved(ctx context.Context, item Item) error
}

// NoSideEffect is the policy for kinds that only need the shared state machine.
type NoSideEffect struct{}

func (NoSideEffect) Prepare(ctx context.Context, item *Item) error { return nil }

func (NoSideEffect) OnApproved(ctx context.Context, item Item) error { return nil }

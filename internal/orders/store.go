package orders

import (
	"context"
	"time"
)

// StatusChange holds the fields written together with a status move.
type StatusChange struct {
	At             time.Time
	TrackingNumber *string
	EstimatedAt    *time.Time
	DeliveredAt    *time.Time
}

type Store interface {
	// Insert fails with ErrDuplicateOrder when (user, external id) is taken.
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	GetByExternalID(ctx context.Context, userID, externalID string) (*Order, error)
	// ListByUser returns newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// ListByVendor returns orders holding at least one of the vendor's products, newest first.
	ListByVendor(ctx context.Context, vendorID string) ([]Order, error)
	// UpdateStatus sets status to `to` only while the current status is one of
	// `from`, in one atomic step. Fails with ErrOrderNotFound or
	// ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, from []Status, to Status, ch StatusChange) (*Order, error)
}

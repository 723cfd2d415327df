package inbox

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// CreateMany stores one message per element; all or nothing when called
	// inside a transaction.
	CreateMany(ctx context.Context, msgs []*Message) error
	ListByPharmacist(ctx context.Context, pharmacistID uuid.UUID, limit int) ([]*Message, error)
	// MarkRead returns NotFound when id does not belong to pharmacistID.
	MarkRead(ctx context.Context, pharmacistID, id uuid.UUID) (*Message, error)
}

package patient

import (
	"context"

	"github.com/google/uuid"
)

// Repository methods are scoped by pharmacy: a patient of another pharmacy
// is reported as not found.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, pharmacyID uuid.UUID, f ListFilter) ([]*Patient, int, error)
}

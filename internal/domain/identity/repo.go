package identity

import (
	"context"

	"github.com/google/uuid"
)

type PharmacyRepository interface {
	Create(ctx context.Context, p *Pharmacy) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error)
}

type PharmacistRepository interface {
	Create(ctx context.Context, p *Pharmacist) error
	GetByID(ctx context.Context, id uuid.UUID) (*Pharmacist, error)
	GetByEmail(ctx context.Context, email string) (*Pharmacist, error)
	// First returns the oldest pharmacist, or a NotFound error when none exist.
	First(ctx context.Context) (*Pharmacist, error)
	ListActiveIDs(ctx context.Context, pharmacyID uuid.UUID) ([]uuid.UUID, error)
}

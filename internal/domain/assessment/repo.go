package assessment

import (
	"context"

	"github.com/google/uuid"
)

// Repository reads are scoped by pharmacy; an assessment of another
// pharmacy is reported as not found.
type Repository interface {
	// Create returns Conflict when the session already has an assessment.
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*Assessment, error)
	List(ctx context.Context, pharmacyID uuid.UUID, status string, limit int) ([]*ListItem, error)
	ListByPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*Assessment, error)
	UpdateStatus(ctx context.Context, pharmacyID, id uuid.UUID, status string) (*Assessment, error)
	SetAIScript(ctx context.Context, pharmacyID, id uuid.UUID, script string) (*Assessment, error)
	Session(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error)
}

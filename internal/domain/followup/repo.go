package followup

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *FollowUp) error
	// GetByID returns NotFound unless the follow-up's assessment belongs to pharmacyID.
	GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*FollowUp, error)
	Update(ctx context.Context, f *FollowUp) error
	ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*FollowUp, error)
	ListByPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*FollowUp, error)

	Assessment(ctx context.Context, pharmacyID, assessmentID uuid.UUID) (*AssessmentRef, error)
	// TemplateFor returns nil without error when no template is stored.
	TemplateFor(ctx context.Context, healthType string) (*Template, error)
}

package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
)

// Review status, set by the pharmacist. Unrelated to the session status.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

const ListLimit = 50

// Assessment is the immutable result of one completed survey session. Only
// Status and AIScript change after creation.
type Assessment struct {
	ID                uuid.UUID              `json:"id"`
	PharmacyID        uuid.UUID              `json:"-"`
	PatientID         uuid.UUID              `json:"patientId"`
	SessionID         uuid.UUID              `json:"sessionId"`
	SelectedOptionIDs []string               `json:"selectedOptionIds"`
	Scores            scoring.Scores         `json:"scores"`
	HealthType        scoring.HealthType     `json:"healthType"`
	Clusters          scoring.Clusters       `json:"clusters"`
	Recommendations   scoring.Recommendation `json:"recommendations"`
	Status            string                 `json:"status"`
	AIScript          *string                `json:"aiScript"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// FromAnalysis builds the record persisted on survey submission.
func FromAnalysis(pharmacyID, patientID, sessionID uuid.UUID, selected []string, a scoring.Analysis) *Assessment {
	return &Assessment{
		PharmacyID:        pharmacyID,
		PatientID:         patientID,
		SessionID:         sessionID,
		SelectedOptionIDs: selected,
		Scores:            a.Scores,
		HealthType:        a.HealthType,
		Clusters:          a.Clusters,
		Recommendations:   a.Recommendations,
		Status:            StatusPending,
	}
}

// SessionSummary is the part of the originating survey session shown with
// an assessment. The token is deliberately absent.
type SessionSummary struct {
	ID          uuid.UUID  `json:"id"`
	Status      string     `json:"status"`
	Channel     string     `json:"channel"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type PatientSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	PhoneLast4  string    `json:"phoneLast4"`
}

type ListItem struct {
	*Assessment
	Patient PatientSummary `json:"patient"`
	Session SessionSummary `json:"session"`
}

type Detail struct {
	*Assessment
	Patient   *patient.Patient     `json:"patient"`
	Session   *SessionSummary      `json:"session"`
	FollowUps []*followup.FollowUp `json:"followUps"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PENDING COMPLETED"`
}

type AIScriptResponse struct {
	AIScript   string      `json:"aiScript"`
	Assessment *Assessment `json:"assessment"`
}

const (
	EventAssessment = "ASSESSMENT"
	EventFollowUp   = "FOLLOW_UP"
)

// TimelineEvent is one entry of a patient's history. Fields that do not
// apply to Type are omitted.
type TimelineEvent struct {
	Type          string             `json:"type"`
	AssessmentID  uuid.UUID          `json:"assessmentId"`
	FollowUpID    *uuid.UUID         `json:"followUpId,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	HealthType    scoring.HealthType `json:"healthType,omitempty"`
	Status        string             `json:"status"`
	NextVisitDate *time.Time         `json:"nextVisitDate,omitempty"`
	Checklist     []string           `json:"checklist,omitempty"`
}

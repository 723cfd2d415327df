package survey

import (
	"time"

	"github.com/google/uuid"

	"github.com/nrft/nrft/internal/domain/scoring"
)

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusExpired   = "EXPIRED"
)

const (
	ChannelWeb   = "WEB"
	ChannelEmail = "EMAIL"
	ChannelSMS   = "SMS"
)

const (
	QuestionSingle   = "SINGLE"
	QuestionMultiple = "MULTIPLE"
)

const DefaultTemplateType = "INITIAL"

type Option struct {
	ID     uuid.UUID      `json:"id"`
	Text   string         `json:"text"`
	Order  int            `json:"order"`
	Impact scoring.Impact `json:"impact,omitempty"`
}

type Question struct {
	ID       uuid.UUID `json:"id"`
	Category string    `json:"category"`
	Text     string    `json:"text"`
	Order    int       `json:"order"`
	Type     string    `json:"type"`
	Options  []Option  `json:"options"`
}

type Template struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description"`
	Type           string     `json:"type"`
	Version        int        `json:"version"`
	BaseTemplateID *uuid.UUID `json:"baseTemplateId"`
	Active         bool       `json:"isActive"`
	CreatedAt      time.Time  `json:"createdAt"`
	Questions      []Question `json:"questions"`
}

// Impacts indexes every option's impact by option id.
func (t *Template) Impacts() map[string]scoring.Impact {
	out := make(map[string]scoring.Impact)
	for _, q := range t.Questions {
		for _, o := range q.Options {
			out[o.ID.String()] = o.Impact
		}
	}
	return out
}

// WithoutImpacts returns a copy safe to show to respondents.
func (t *Template) WithoutImpacts() *Template {
	cp := *t
	cp.Questions = make([]Question, len(t.Questions))
	for i, q := range t.Questions {
		q.Options = append([]Option(nil), q.Options...)
		for j := range q.Options {
			q.Options[j].Impact = nil
		}
		cp.Questions[i] = q
	}
	return &cp
}

func (t *Template) question(id string) *Question {
	for i := range t.Questions {
		if t.Questions[i].ID.String() == id {
			return &t.Questions[i]
		}
	}
	return nil
}

func (q *Question) hasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID.String() == id {
			return true
		}
	}
	return false
}

type Session struct {
	ID              uuid.UUID
	Token           string
	TemplateID      uuid.UUID
	PatientID       uuid.UUID
	PharmacyID      uuid.UUID
	Channel         string
	DeliveryAddress *string
	Status          string
	ExpiresAt       time.Time
	CompletedAt     *time.Time
	CreatedAt       time.Time
}

// Expired reports whether the session can no longer be answered at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Answer is the stored selection for one question. Order is the position in
// the submitted payload.
type Answer struct {
	SessionID  uuid.UUID
	QuestionID uuid.UUID
	OptionIDs  []string
	Order      int
}

type IssueRequest struct {
	PatientID       uuid.UUID  `json:"patientId" validate:"required"`
	TemplateID      uuid.UUID  `json:"templateId" validate:"required"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	Channel         string     `json:"channel" validate:"omitempty,oneof=WEB EMAIL SMS"`
	DeliveryAddress *string    `json:"deliveryAddress" validate:"omitempty,max=254"`
}

type IssueResponse struct {
	Token           string    `json:"token"`
	SurveyURL       string    `json:"surveyUrl"`
	ExpiresAt       time.Time `json:"expiresAt"`
	Channel         string    `json:"channel"`
	DeliveryAddress *string   `json:"deliveryAddress"`
}

type SessionView struct {
	Token           string    `json:"token"`
	Status          string    `json:"status"`
	ExpiresAt       time.Time `json:"expiresAt"`
	TemplateID      uuid.UUID `json:"templateId"`
	PatientID       uuid.UUID `json:"patientId"`
	Channel         string    `json:"channel"`
	DeliveryAddress *string   `json:"deliveryAddress"`
	Template        *Template `json:"template"`
}

type AnswerInput struct {
	QuestionID string   `json:"questionId" validate:"required"`
	OptionIDs  []string `json:"optionIds" validate:"required,min=1,dive,required"`
}

type SubmitRequest struct {
	Answers []AnswerInput `json:"answers" validate:"required,min=1,dive"`
}

type SubmitResult struct {
	AssessmentID uuid.UUID          `json:"assessmentId"`
	HealthType   scoring.HealthType `json:"healthType"`
	Scores       scoring.Scores     `json:"scores"`
}

type OptionInput struct {
	Text   string         `json:"text" yaml:"text" validate:"required"`
	Impact scoring.Impact `json:"impact" yaml:"impact"`
}

type QuestionInput struct {
	Category string        `json:"category" yaml:"category" validate:"required,oneof=Sleep Digestion Energy Stress Immunity Lifestyle Medication"`
	Text     string        `json:"text" yaml:"text" validate:"required"`
	Type     string        `json:"type" yaml:"type" validate:"omitempty,oneof=SINGLE MULTIPLE"`
	Options  []OptionInput `json:"options" yaml:"options" validate:"required,min=1,dive"`
}

// CreateTemplateRequest is also the shape of seed files.
type CreateTemplateRequest struct {
	Name           string          `json:"name" yaml:"name" validate:"required,min=2"`
	Description    *string         `json:"description" yaml:"description"`
	Type           string          `json:"type" yaml:"type" validate:"omitempty,max=32"`
	BaseTemplateID *uuid.UUID      `json:"baseTemplateId" yaml:"-"`
	Questions      []QuestionInput `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
}

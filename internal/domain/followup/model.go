package followup

import (
	"time"

	"github.com/google/uuid"

	"github.com/nrft/nrft/internal/domain/scoring"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusDone      = "DONE"
	StatusCancelled = "CANCELLED"
)

// Reminder channels. CALL only records an inbox entry; nothing is sent.
const (
	ChannelSMS   = "SMS"
	ChannelEmail = "EMAIL"
	ChannelCall  = "CALL"
)

type FollowUp struct {
	ID            uuid.UUID `json:"id"`
	AssessmentID  uuid.UUID `json:"assessmentId"`
	NextVisitDate time.Time `json:"nextVisitDate"`
	Status        string    `json:"status"`
	Checklist     []string  `json:"checklist"`
	Assignee      *string   `json:"assignee"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Template is the follow-up plan created automatically after a survey.
type Template struct {
	HealthType string   `json:"healthType"`
	Checklist  []string `json:"checklist"`
	OffsetDays int      `json:"offsetDays"`
}

// AssessmentRef is the slice of an assessment follow-ups need for scoping.
type AssessmentRef struct {
	ID         uuid.UUID
	PharmacyID uuid.UUID
	PatientID  uuid.UUID
	HealthType string
}

var genericTemplate = Template{
	Checklist:  []string{"생활습관 변화 확인", "복용 중인 제품 점검"},
	OffsetDays: 7,
}

// DefaultTemplate is used when no stored template matches ht.
func DefaultTemplate(ht scoring.HealthType) Template {
	t := Template{HealthType: string(ht), OffsetDays: 7}
	switch ht {
	case scoring.BurnoutFire:
		t.Checklist = []string{"수면시간 기록", "카페인/운동 루틴 점검"}
	case scoring.RestlessOwl:
		t.Checklist = []string{"취침 전 루틴 점검", "수면일지 확인"}
	case scoring.SensitiveStomach:
		t.Checklist = []string{"식사일지 리뷰", "프로바이오틱스 복용 체크"}
		t.OffsetDays = 10
	case scoring.TensionWire:
		t.Checklist = []string{"호흡/명상 실천 여부", "카페인 제한 확인"}
	case scoring.DelicateShield:
		t.Checklist = []string{"비타민C/D 복용", "수면·수분 확보"}
	default:
		t.Checklist = append([]string(nil), genericTemplate.Checklist...)
		t.OffsetDays = genericTemplate.OffsetDays
	}
	return t
}

type CreateRequest struct {
	NextVisitDate time.Time `json:"nextVisitDate" validate:"required"`
	Checklist     []string  `json:"checklist" validate:"omitempty,dive,required"`
	Status        string    `json:"status" validate:"omitempty,oneof=SCHEDULED DONE CANCELLED"`
	Assignee      *string   `json:"assignee" validate:"omitempty,max=100"`
}

// UpdateRequest leaves nil fields unchanged.
type UpdateRequest struct {
	NextVisitDate *time.Time `json:"nextVisitDate"`
	Checklist     []string   `json:"checklist" validate:"omitempty,dive,required"`
	Status        *string    `json:"status" validate:"omitempty,oneof=SCHEDULED DONE CANCELLED"`
	Assignee      *string    `json:"assignee" validate:"omitempty,max=100"`
}

type RemindRequest struct {
	Channel string `json:"channel" validate:"omitempty,oneof=SMS EMAIL CALL"`
	Note    string `json:"note" validate:"max=500"`
	// Address overrides the patient's phone for SMS and is required for EMAIL.
	Address string `json:"address" validate:"omitempty,max=254"`
}

type RemindResult struct {
	NotificationID uuid.UUID `json:"notificationId"`
	Channel        string    `json:"channel"`
	Message        string    `json:"message"`
	QueuedAt       time.Time `json:"queuedAt"`
	Delivered      bool      `json:"delivered"`
}

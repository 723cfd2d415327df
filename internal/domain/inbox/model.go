package inbox

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeSurveyCompleted = "SURVEY_COMPLETED"

	// reminders are typed per delivery channel, e.g. FOLLOW_UP_REMINDER_SMS
	reminderPrefix = "FOLLOW_UP_REMINDER_"

	// ListLimit caps how many notifications a pharmacist sees at once.
	ListLimit = 50
)

// Message is a pharmacist-facing notification.
type Message struct {
	ID           uuid.UUID `json:"id"`
	PharmacistID uuid.UUID `json:"-"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	IsRead       bool      `json:"isRead"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ReminderType(channel string) string {
	return reminderPrefix + channel
}

// SurveyCompletedMessage is the body sent when a patient finishes a survey.
func SurveyCompletedMessage(patientName string) string {
	return patientName + "님의 설문이 접수되었습니다. 상담을 진행해 주세요."
}

package patient

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Patient is always handled decrypted in memory; the repository encrypts
// Name and Phone at rest.
type Patient struct {
	ID          uuid.UUID `json:"id"`
	PharmacyID  uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	DisplayName string    `json:"displayName"`
	PhoneLast4  string    `json:"phoneLast4"`
	Gender      *string   `json:"gender"`
	BirthYear   *int      `json:"birthYear"`
	Tags        []string  `json:"tags"`
	Note        *string   `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// GenderOrDefault returns "other" when no gender was recorded.
func (p *Patient) GenderOrDefault() string {
	if p.Gender == nil || *p.Gender == "" {
		return "other"
	}
	return *p.Gender
}

// AgeGroup buckets birthYear by decade relative to now.
func AgeGroup(birthYear *int, now time.Time) string {
	if birthYear == nil || *birthYear == 0 {
		return "정보 없음"
	}
	age := now.Year() - *birthYear
	switch {
	case age < 20:
		return "10대"
	case age < 30:
		return "20대"
	case age < 40:
		return "30대"
	case age < 50:
		return "40대"
	case age < 60:
		return "50대"
	default:
		return "60대 이상"
	}
}

// lastN returns the trailing n runes of s.
func lastN(s string, n int) string {
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	r := []rune(s)
	return string(r[count-n:])
}

type CreateRequest struct {
	Name        string   `json:"name" validate:"required,min=2"`
	DisplayName *string  `json:"displayName" validate:"omitempty,min=2"`
	Phone       string   `json:"phone" validate:"required,min=4"`
	Gender      *string  `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthYear   *int     `json:"birthYear" validate:"omitempty,min=1900"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required"`
	Note        *string  `json:"note"`
}

// UpdateRequest leaves nil fields unchanged.
type UpdateRequest struct {
	DisplayName *string  `json:"displayName" validate:"omitempty,min=1"`
	Gender      *string  `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthYear   *int     `json:"birthYear" validate:"omitempty,min=1900"`
	Tags        []string `json:"tags" validate:"omitempty,dive,required"`
	Note        *string  `json:"note"`
}

type ListFilter struct {
	Q      string
	Gender string
	Limit  int
	Offset int
}

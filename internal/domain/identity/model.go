package identity

import (
	"time"

	"github.com/google/uuid"
)

type Pharmacy struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	BrandColor   *string   `json:"brandColor,omitempty"`
	BrandLogoURL *string   `json:"brandLogoUrl,omitempty"`
	BrandTagline *string   `json:"brandTagline,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Pharmacist struct {
	ID           uuid.UUID `json:"id"`
	PharmacyID   uuid.UUID `json:"pharmacyId"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PharmacySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// UserView is the pharmacist as returned by login and /auth/me.
type UserView struct {
	ID       uuid.UUID       `json:"id"`
	Email    string          `json:"email"`
	Name     string          `json:"name"`
	Role     string          `json:"role"`
	Pharmacy PharmacySummary `json:"pharmacy"`
}

func newUserView(p *Pharmacist, ph *Pharmacy) UserView {
	return UserView{
		ID:       p.ID,
		Email:    p.Email,
		Name:     p.Name,
		Role:     p.Role,
		Pharmacy: PharmacySummary{ID: ph.ID, Name: ph.Name},
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserView  `json:"user"`
}

type SeedResult struct {
	Message       string    `json:"message"`
	PharmacistID  uuid.UUID `json:"pharmacistId"`
	LoginEmail    string    `json:"loginEmail,omitempty"`
	LoginPassword string    `json:"loginPassword,omitempty"`
}

// Demo account created by SeedDev.
const (
	DemoPharmacyName = "Demo Pharmacy"
	DemoEmail        = "pharmacist@example.com"
	DemoPassword     = "demo1234"
)

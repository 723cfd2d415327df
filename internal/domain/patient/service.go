package patient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) validateBirthYear(y *int) error {
	if y != nil && *y > s.now().Year() {
		return apperr.Validation("validation failed", map[string]string{"birthYear": "max"})
	}
	return nil
}

func (s *Service) Create(ctx context.Context, principal auth.Principal, req CreateRequest) (*Patient, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	if err := s.validateBirthYear(req.BirthYear); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	display := name
	if req.DisplayName != nil && strings.TrimSpace(*req.DisplayName) != "" {
		display = strings.TrimSpace(*req.DisplayName)
	}
	p := &Patient{
		PharmacyID:  principal.PharmacyID,
		Name:        name,
		Phone:       phone,
		DisplayName: display,
		PhoneLast4:  lastN(phone, 4),
		Gender:      req.Gender,
		BirthYear:   req.BirthYear,
		Tags:        req.Tags,
		Note:        req.Note,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, principal.PharmacyID, id)
}

// Lookup fetches a patient of pharmacyID for other domains.
func (s *Service) Lookup(ctx context.Context, pharmacyID, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, pharmacyID, id)
}

func (s *Service) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdateRequest) (*Patient, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	if err := s.validateBirthYear(req.BirthYear); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Gender != nil {
		p.Gender = req.Gender
	}
	if req.BirthYear != nil {
		p.BirthYear = req.BirthYear
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}
	if req.Note != nil {
		p.Note = req.Note
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, principal auth.Principal, f ListFilter) ([]*Patient, int, error) {
	switch f.Gender {
	case "", "male", "female", "other":
	default:
		return nil, 0, apperr.Validation("validation failed", map[string]string{"gender": "oneof"})
	}
	patients, total, err := s.repo.List(ctx, principal.PharmacyID, f)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return patients, total, nil
}

package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
	"github.com/nrft/nrft/internal/platform/db"
)

type Service struct {
	pharmacies  PharmacyRepository
	pharmacists PharmacistRepository
	tx          db.Transactor
	jwt         auth.JWTConfig
	allowSeed   bool
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService wires identity. allowSeed gates SeedDev and must be false in
// production.
func NewService(pharmacies PharmacyRepository, pharmacists PharmacistRepository, tx db.Transactor,
	jwtCfg auth.JWTConfig, allowSeed bool, logger zerolog.Logger) *Service {
	return &Service{
		pharmacies:  pharmacies,
		pharmacists: pharmacists,
		tx:          tx,
		jwt:         jwtCfg,
		allowSeed:   allowSeed,
		logger:      logger,
		now:         time.Now,
	}
}

var errInvalidCredentials = apperr.Unauthorized("invalid credentials")

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	p, err := s.pharmacists.GetByEmail(ctx, req.Email)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !p.Active || !auth.CheckPassword(p.PasswordHash, req.Password) {
		return nil, errInvalidCredentials
	}

	ph, err := s.pharmacies.GetByID(ctx, p.PharmacyID)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := auth.IssueToken(s.jwt, auth.Principal{
		PharmacistID: p.ID,
		PharmacyID:   p.PharmacyID,
		Role:         p.Role,
	}, s.now())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info().Str("pharmacist_id", p.ID.String()).Msg("pharmacist logged in")
	return &LoginResponse{Token: token, ExpiresAt: expiresAt, User: newUserView(p, ph)}, nil
}

func (s *Service) Me(ctx context.Context, principal auth.Principal) (*UserView, error) {
	p, err := s.pharmacists.GetByID(ctx, principal.PharmacistID)
	if err != nil {
		return nil, err
	}
	ph, err := s.pharmacies.GetByID(ctx, p.PharmacyID)
	if err != nil {
		return nil, err
	}
	v := newUserView(p, ph)
	return &v, nil
}

// SeedDev creates the demo pharmacy and pharmacist once. Later calls report
// the existing pharmacist.
func (s *Service) SeedDev(ctx context.Context) (*SeedResult, error) {
	if !s.allowSeed {
		return nil, apperr.Forbidden("not allowed in production")
	}

	existing, err := s.pharmacists.First(ctx)
	if err == nil {
		return &SeedResult{Message: "Seed already executed", PharmacistID: existing.ID}, nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var pharmacist Pharmacist
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ph := &Pharmacy{Name: DemoPharmacyName, Address: "서울시 어디구 어디로 123", Phone: "010-0000-0000"}
		if err := s.pharmacies.Create(ctx, ph); err != nil {
			return err
		}
		pharmacist = Pharmacist{
			PharmacyID:   ph.ID,
			Email:        DemoEmail,
			PasswordHash: hash,
			Name:         "데모 약사",
			Role:         auth.RolePharmacist,
			Active:       true,
		}
		return s.pharmacists.Create(ctx, &pharmacist)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("pharmacist_id", pharmacist.ID.String()).Msg("demo pharmacist seeded")
	return &SeedResult{
		Message:       "Seed created",
		PharmacistID:  pharmacist.ID,
		LoginEmail:    DemoEmail,
		LoginPassword: DemoPassword,
	}, nil
}

// ResolvePrincipal implements auth.PrincipalResolver: the JWT middleware
// re-reads the pharmacist so deactivation takes effect immediately.
func (s *Service) ResolvePrincipal(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	p, err := s.pharmacists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.Unauthorized("pharmacist is inactive")
	}
	return &auth.Principal{PharmacistID: p.ID, PharmacyID: p.PharmacyID, Role: p.Role}, nil
}

func (s *Service) ActivePharmacistIDs(ctx context.Context, pharmacyID uuid.UUID) ([]uuid.UUID, error) {
	return s.pharmacists.ListActiveIDs(ctx, pharmacyID)
}

func (s *Service) GetPharmacy(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return s.pharmacies.GetByID(ctx, id)
}

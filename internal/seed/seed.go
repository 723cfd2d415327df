// Package seed loads the demo data set: the development pharmacy and
// pharmacist, a survey template read from YAML, a demo patient and a demo
// survey session with a fixed token.
package seed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/survey"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
)

// DemoSessionToken opens the demo survey without issuing a new session.
const DemoSessionToken = "demo-nrft-session"

var demoPatient = patient.CreateRequest{
	Name:        "홍길동",
	Phone:       "01012345678",
	DisplayName: strPtr("홍길동"),
	Gender:      strPtr("male"),
	BirthYear:   intPtr(1991),
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type Identity interface {
	SeedDev(ctx context.Context) (*identity.SeedResult, error)
	ResolvePrincipal(ctx context.Context, pharmacistID uuid.UUID) (*auth.Principal, error)
}

type TemplateCreator interface {
	CreateTemplate(ctx context.Context, req survey.CreateTemplateRequest) (*survey.Template, error)
}

type Patients interface {
	Create(ctx context.Context, principal auth.Principal, req patient.CreateRequest) (*patient.Patient, error)
	List(ctx context.Context, principal auth.Principal, f patient.ListFilter) ([]*patient.Patient, int, error)
}

type Deps struct {
	Identity  Identity
	Surveys   TemplateCreator
	Templates survey.TemplateRepository
	Sessions  survey.SessionRepository
	Patients  Patients
}

type Result struct {
	PharmacistID    uuid.UUID
	PharmacyID      uuid.UUID
	LoginEmail      string
	LoginPassword   string
	TemplateID      uuid.UUID
	TemplateVersion int
	PatientID       uuid.UUID
	SessionToken    string
	SessionStatus   string
	SessionCreated  bool
}

// LoadTemplate decodes a survey template definition. Unknown keys are
// rejected so typos in seed files fail loudly.
func LoadTemplate(r io.Reader) (survey.CreateTemplateRequest, error) {
	var req survey.CreateTemplateRequest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decode template: %w", err)
	}
	return req, nil
}

type Seeder struct {
	Deps
	sessionTTL time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

func New(deps Deps, sessionTTL time.Duration, logger zerolog.Logger) *Seeder {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &Seeder{Deps: deps, sessionTTL: sessionTTL, logger: logger, now: time.Now}
}

// Run is safe to repeat. An existing template with the same name gets a new
// version; the patient and a live demo session are reused.
func (s *Seeder) Run(ctx context.Context, tpl survey.CreateTemplateRequest) (*Result, error) {
	seeded, err := s.Identity.SeedDev(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed pharmacist: %w", err)
	}
	principal, err := s.Identity.ResolvePrincipal(ctx, seeded.PharmacistID)
	if err != nil {
		return nil, fmt.Errorf("resolve demo pharmacist: %w", err)
	}
	res := &Result{
		PharmacistID:  seeded.PharmacistID,
		PharmacyID:    principal.PharmacyID,
		LoginEmail:    seeded.LoginEmail,
		LoginPassword: seeded.LoginPassword,
	}

	latest, err := s.Templates.LatestByName(ctx, tpl.Name)
	if err != nil {
		return nil, fmt.Errorf("look up template: %w", err)
	}
	if latest != nil {
		tpl.BaseTemplateID = &latest.ID
	}
	created, err := s.Surveys.CreateTemplate(ctx, tpl)
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	res.TemplateID, res.TemplateVersion = created.ID, created.Version
	s.logger.Info().Str("template_id", created.ID.String()).Int("version", created.Version).Msg("survey template seeded")

	p, err := s.demoPatient(ctx, *principal)
	if err != nil {
		return nil, err
	}
	res.PatientID = p.ID

	sess, err := s.Sessions.GetByToken(ctx, DemoSessionToken)
	switch {
	case err == nil:
		res.SessionToken, res.SessionStatus = sess.Token, sess.Status
		return res, nil
	case !apperr.Is(err, apperr.KindNotFound):
		return nil, fmt.Errorf("look up demo session: %w", err)
	}

	sess = &survey.Session{
		Token:      DemoSessionToken,
		TemplateID: created.ID,
		PatientID:  p.ID,
		PharmacyID: principal.PharmacyID,
		Channel:    survey.ChannelWeb,
		Status:     survey.StatusPending,
		ExpiresAt:  s.now().Add(s.sessionTTL),
	}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create demo session: %w", err)
	}
	res.SessionToken, res.SessionStatus, res.SessionCreated = sess.Token, sess.Status, true
	return res, nil
}

func (s *Seeder) demoPatient(ctx context.Context, principal auth.Principal) (*patient.Patient, error) {
	found, _, err := s.Patients.List(ctx, principal, patient.ListFilter{Q: *demoPatient.DisplayName, Limit: 1})
	if err != nil {
		return nil, fmt.Errorf("look up demo patient: %w", err)
	}
	if len(found) > 0 {
		return found[0], nil
	}
	p, err := s.Patients.Create(ctx, principal, demoPatient)
	if err != nil {
		return nil, fmt.Errorf("create demo patient: %w", err)
	}
	return p, nil
}

package seed

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/survey"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
)

func TestLoadTemplate_SeedFile(t *testing.T) {
	f, err := os.Open("../../seeds/nrft_initial.yaml")
	require.NoError(t, err)
	defer f.Close()

	req, err := LoadTemplate(f)
	require.NoError(t, err)
	require.NoError(t, bind.Struct(&req), "seed file must pass request validation")

	assert.Equal(t, "NRFT 초기 건강 문진", req.Name)
	assert.Equal(t, "INITIAL", req.Type)
	require.Len(t, req.Questions, 6)
	assert.Equal(t, "MULTIPLE", req.Questions[0].Type)
	assert.Equal(t, -15, req.Questions[0].Options[0].Impact["Sleep"])
	assert.Empty(t, req.Questions[2].Options[0].Impact)
	assert.Equal(t, 5, req.Questions[4].Options[0].Impact["Energy"])
}

func TestLoadTemplate_UnknownField(t *testing.T) {
	_, err := LoadTemplate(strings.NewReader("name: x\nquestionz: []\n"))
	assert.Error(t, err)
}

// -- Fakes --

type fakeIdentity struct {
	principal auth.Principal
}

func (f *fakeIdentity) SeedDev(context.Context) (*identity.SeedResult, error) {
	return &identity.SeedResult{PharmacistID: f.principal.PharmacistID, LoginEmail: identity.DemoEmail}, nil
}

func (f *fakeIdentity) ResolvePrincipal(_ context.Context, id uuid.UUID) (*auth.Principal, error) {
	p := f.principal
	return &p, nil
}

type fakeTemplates struct {
	survey.TemplateRepository
	byName map[string]*survey.Template
}

func (f *fakeTemplates) LatestByName(_ context.Context, name string) (*survey.Template, error) {
	return f.byName[name], nil
}

func (f *fakeTemplates) CreateTemplate(_ context.Context, req survey.CreateTemplateRequest) (*survey.Template, error) {
	t := &survey.Template{ID: uuid.New(), Name: req.Name, Version: 1}
	if req.BaseTemplateID != nil {
		t.Version = f.byName[req.Name].Version + 1
	}
	f.byName[req.Name] = t
	return t, nil
}

type fakeSessions struct {
	survey.SessionRepository
	byToken map[string]*survey.Session
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*survey.Session, error) {
	s, ok := f.byToken[token]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	return s, nil
}

func (f *fakeSessions) Create(_ context.Context, s *survey.Session) error {
	s.ID = uuid.New()
	f.byToken[s.Token] = s
	return nil
}

type fakePatients struct {
	items []*patient.Patient
}

func (f *fakePatients) Create(_ context.Context, pr auth.Principal, req patient.CreateRequest) (*patient.Patient, error) {
	p := &patient.Patient{ID: uuid.New(), PharmacyID: pr.PharmacyID, Name: req.Name, DisplayName: *req.DisplayName}
	f.items = append(f.items, p)
	return p, nil
}

func (f *fakePatients) List(_ context.Context, _ auth.Principal, lf patient.ListFilter) ([]*patient.Patient, int, error) {
	var out []*patient.Patient
	for _, p := range f.items {
		if p.DisplayName == lf.Q {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func TestSeeder_RunTwice(t *testing.T) {
	principal := auth.Principal{PharmacistID: uuid.New(), PharmacyID: uuid.New(), Role: auth.RolePharmacist}
	templates := &fakeTemplates{byName: map[string]*survey.Template{}}
	sessions := &fakeSessions{byToken: map[string]*survey.Session{}}
	patients := &fakePatients{}
	s := New(Deps{
		Identity:  &fakeIdentity{principal: principal},
		Surveys:   templates,
		Templates: templates,
		Sessions:  sessions,
		Patients:  patients,
	}, 0, zerolog.Nop())
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	req := survey.CreateTemplateRequest{Name: "NRFT 초기 건강 문진"}

	first, err := s.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, principal.PharmacyID, first.PharmacyID)
	assert.Equal(t, 1, first.TemplateVersion)
	assert.True(t, first.SessionCreated)
	assert.Equal(t, DemoSessionToken, first.SessionToken)
	sess := sessions.byToken[DemoSessionToken]
	assert.Equal(t, now.Add(24*time.Hour), sess.ExpiresAt)
	assert.Equal(t, first.PatientID, sess.PatientID)

	second, err := s.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, second.TemplateVersion, "a re-seed adds a template version")
	assert.Equal(t, first.PatientID, second.PatientID, "demo patient is reused")
	assert.False(t, second.SessionCreated)
	assert.Len(t, patients.items, 1)
}

package assessment

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/platform/ai"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/reporting"
)

// -- Mocks --

type mockRepo struct {
	items    map[uuid.UUID]*Assessment
	sessions map[uuid.UUID]*SessionSummary
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Assessment), sessions: make(map[uuid.UUID]*SessionSummary)}
}

func (m *mockRepo) Create(_ context.Context, a *Assessment) error {
	for _, x := range m.items {
		if x.SessionID == a.SessionID {
			return apperr.Conflict("survey already completed")
		}
	}
	a.ID = uuid.New()
	m.items[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, pharmacyID, id uuid.UUID) (*Assessment, error) {
	a, ok := m.items[id]
	if !ok || a.PharmacyID != pharmacyID {
		return nil, apperr.NotFound("assessment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, pharmacyID uuid.UUID, status string, limit int) ([]*ListItem, error) {
	var out []*ListItem
	for _, a := range m.items {
		if a.PharmacyID != pharmacyID || (status != "" && a.Status != status) {
			continue
		}
		out = append(out, &ListItem{Assessment: a})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, pharmacyID, patientID uuid.UUID) ([]*Assessment, error) {
	var out []*Assessment
	for _, a := range m.items {
		if a.PharmacyID == pharmacyID && a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, pharmacyID, id uuid.UUID, status string) (*Assessment, error) {
	a, ok := m.items[id]
	if !ok || a.PharmacyID != pharmacyID {
		return nil, apperr.NotFound("assessment not found")
	}
	a.Status = status
	return a, nil
}

func (m *mockRepo) SetAIScript(_ context.Context, pharmacyID, id uuid.UUID, script string) (*Assessment, error) {
	a, ok := m.items[id]
	if !ok || a.PharmacyID != pharmacyID {
		return nil, apperr.NotFound("assessment not found")
	}
	a.AIScript = &script
	return a, nil
}

func (m *mockRepo) Session(_ context.Context, sessionID uuid.UUID) (*SessionSummary, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	return s, nil
}

type mockPatients map[uuid.UUID]*patient.Patient

func (m mockPatients) Lookup(_ context.Context, pharmacyID, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok || p.PharmacyID != pharmacyID {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

type mockFollowUps struct {
	items []*followup.FollowUp
}

func (m *mockFollowUps) ListForAssessment(_ context.Context, assessmentID uuid.UUID) ([]*followup.FollowUp, error) {
	out := []*followup.FollowUp{}
	for _, f := range m.items {
		if f.AssessmentID == assessmentID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockFollowUps) ListForPatient(_ context.Context, _, _ uuid.UUID) ([]*followup.FollowUp, error) {
	return m.items, nil
}

type mockPharmacies map[uuid.UUID]*identity.Pharmacy

func (m mockPharmacies) GetPharmacy(_ context.Context, id uuid.UUID) (*identity.Pharmacy, error) {
	p, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("pharmacy not found")
	}
	return p, nil
}

type mockWriter struct {
	got    ai.ConsultationInput
	script string
	err    error
}

func (m *mockWriter) WriteConsultation(_ context.Context, in ai.ConsultationInput) (string, error) {
	m.got = in
	return m.script, m.err
}

// -- Fixture --

var fixedNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	repo      *mockRepo
	followUps *mockFollowUps
	writer    *mockWriter
	owner     auth.Principal
	patient   *patient.Patient
	a         *Assessment
}

func strPtr(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	owner := auth.Principal{PharmacistID: uuid.New(), PharmacyID: uuid.New(), Role: auth.RolePharmacist}
	birth := 1988
	female := "female"
	p := &patient.Patient{
		ID: uuid.New(), PharmacyID: owner.PharmacyID, Name: "김하나", DisplayName: "하나",
		Phone: "01012345678", PhoneLast4: "5678", BirthYear: &birth, Gender: &female,
	}
	pharmacies := mockPharmacies{owner.PharmacyID: {
		ID: owner.PharmacyID, Name: "온누리약국", BrandColor: strPtr("#123abc"), BrandTagline: strPtr("동네 건강 파트너"),
	}}
	f := &fixture{
		repo:      newMockRepo(),
		followUps: &mockFollowUps{},
		writer:    &mockWriter{script: "## 상담 포인트\n- 수면 위생"},
		owner:     owner,
		patient:   p,
	}
	f.svc = NewService(f.repo, mockPatients{p.ID: p}, f.followUps, pharmacies, f.writer, zerolog.Nop())
	f.svc.now = func() time.Time { return fixedNow }

	analysis := scoring.Analyze([]string{"o1"}, map[string]scoring.Impact{"o1": {"Sleep": -60, "Stress": -20}})
	f.a = FromAnalysis(owner.PharmacyID, p.ID, uuid.New(), []string{"o1"}, analysis)
	f.a.CreatedAt = fixedNow.Add(-48 * time.Hour)
	require.NoError(t, f.svc.Create(context.Background(), f.a))

	completed := fixedNow.Add(-48 * time.Hour)
	f.repo.sessions[f.a.SessionID] = &SessionSummary{ID: f.a.SessionID, Status: "COMPLETED", Channel: "WEB", CompletedAt: &completed}
	return f
}

func TestFromAnalysis(t *testing.T) {
	analysis := scoring.Analyze(nil, nil)
	a := FromAnalysis(uuid.New(), uuid.New(), uuid.New(), []string{}, analysis)
	assert.Equal(t, StatusPending, a.Status)
	// an all-baseline result ties on every axis and resolves to Sleep
	assert.Equal(t, scoring.RestlessOwl, a.HealthType)
	assert.Nil(t, a.AIScript)
}

func TestService_Create_DuplicateSession(t *testing.T) {
	f := newFixture(t)
	dup := *f.a
	err := f.svc.Create(context.Background(), &dup)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := FromAnalysis(f.owner.PharmacyID, f.patient.ID, uuid.New(), nil, scoring.Analyze(nil, nil))
	second.CreatedAt = fixedNow
	second.Status = StatusCompleted
	require.NoError(t, f.svc.Create(ctx, second))

	all, err := f.svc.List(ctx, f.owner, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	pending, err := f.svc.List(ctx, f.owner, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, f.a.ID, pending[0].ID)

	_, err = f.svc.List(ctx, f.owner, "ARCHIVED")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	other, err := f.svc.List(ctx, auth.Principal{PharmacyID: uuid.New()}, "")
	require.NoError(t, err)
	assert.NotNil(t, other)
	assert.Empty(t, other)
}

func TestService_Get(t *testing.T) {
	f := newFixture(t)
	f.followUps.items = []*followup.FollowUp{{ID: uuid.New(), AssessmentID: f.a.ID, Status: followup.StatusScheduled}}

	d, err := f.svc.Get(context.Background(), f.owner, f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, f.patient.ID, d.Patient.ID)
	assert.Equal(t, "COMPLETED", d.Session.Status)
	assert.Len(t, d.FollowUps, 1)

	_, err = f.svc.Get(context.Background(), auth.Principal{PharmacyID: uuid.New()}, f.a.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound), "other pharmacy")
}

func TestService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.UpdateStatus(context.Background(), f.owner, f.a.ID, StatusRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.Equal(t, scoring.RestlessOwl, a.HealthType, "scores and type are untouched")

	_, err = f.svc.UpdateStatus(context.Background(), f.owner, f.a.ID, StatusRequest{Status: "DONE"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestService_GenerateAIScript(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.GenerateAIScript(context.Background(), f.owner, f.a.ID)
	require.NoError(t, err)
	assert.Equal(t, f.writer.script, res.AIScript)
	require.NotNil(t, res.Assessment.AIScript)

	in := f.writer.got
	assert.Equal(t, "하나", in.PatientName, "display name, never the legal name")
	assert.Equal(t, "30대", in.AgeGroup)
	assert.Equal(t, "female", in.Gender)
	require.Len(t, in.FocusAxes, 2)
	assert.Equal(t, scoring.AxisSleep, in.FocusAxes[0].Axis)
	assert.Equal(t, scoring.AxisStress, in.FocusAxes[1].Axis)
}

func TestService_GenerateAIScript_Errors(t *testing.T) {
	f := newFixture(t)
	f.writer.err = ai.ErrNotConfigured
	_, err := f.svc.GenerateAIScript(context.Background(), f.owner, f.a.ID)
	assert.True(t, apperr.Is(err, apperr.KindUnavailable))

	f.writer.err = errors.New("quota exceeded")
	_, err = f.svc.GenerateAIScript(context.Background(), f.owner, f.a.ID)
	assert.True(t, apperr.Is(err, apperr.KindInternal))
	assert.Nil(t, f.repo.items[f.a.ID].AIScript, "nothing stored on failure")
}

func TestService_Report(t *testing.T) {
	f := newFixture(t)
	script := "**수면** 관리가 우선입니다."
	f.repo.items[f.a.ID].AIScript = &script
	f.followUps.items = []*followup.FollowUp{{
		ID: uuid.New(), AssessmentID: f.a.ID, Status: followup.StatusScheduled,
		NextVisitDate: fixedNow.Add(7 * 24 * time.Hour), Checklist: []string{"수면 패턴 점검"},
	}}

	var buf bytes.Buffer
	require.NoError(t, f.svc.Report(context.Background(), f.owner, f.a.ID, reporting.ReportPharmacist, &buf))
	html := buf.String()
	assert.Contains(t, html, "약사용 NRFT 리포트")
	assert.Contains(t, html, "김하나")
	assert.Contains(t, html, "온누리약국")
	assert.Contains(t, html, "#123abc")
	assert.Contains(t, html, "세션 상태: COMPLETED")
	assert.Contains(t, html, "수면 패턴 점검")
	assert.Contains(t, html, "<strong>수면</strong>")

	buf.Reset()
	require.NoError(t, f.svc.Report(context.Background(), f.owner, f.a.ID, reporting.ReportPatient, &buf))
	html = buf.String()
	assert.Contains(t, html, "환자용 NRFT 리포트")
	assert.NotContains(t, html, "세션 상태")
	assert.NotContains(t, html, "<strong>수면</strong>", "AI note is for pharmacists only")
}

func TestService_Timeline(t *testing.T) {
	f := newFixture(t)
	older := FromAnalysis(f.owner.PharmacyID, f.patient.ID, uuid.New(), nil, scoring.Analyze(nil, nil))
	older.CreatedAt = fixedNow.Add(-30 * 24 * time.Hour)
	require.NoError(t, f.svc.Create(context.Background(), older))
	f.followUps.items = []*followup.FollowUp{{
		ID: uuid.New(), AssessmentID: f.a.ID, Status: followup.StatusScheduled,
		CreatedAt: fixedNow.Add(-47 * time.Hour), NextVisitDate: fixedNow.Add(5 * 24 * time.Hour),
	}}

	events, err := f.svc.Timeline(context.Background(), f.owner, f.patient.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventFollowUp, events[0].Type)
	require.NotNil(t, events[0].FollowUpID)
	assert.Equal(t, EventAssessment, events[1].Type)
	assert.Equal(t, f.a.ID, events[1].AssessmentID)
	assert.Equal(t, older.ID, events[2].AssessmentID)

	_, err = f.svc.Timeline(context.Background(), auth.Principal{PharmacyID: uuid.New()}, f.patient.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

package survey

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nrft/nrft/internal/domain/assessment"
	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/inbox"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/platform/apperr"
)

// -- In-memory transaction --
//
// memTx serializes transactions, which stands in for the row lock Postgres
// takes on the claimed session. Writes made inside a transaction register an
// undo step that runs on rollback.

type journalKey struct{}

type journal struct{ undo []func() }

func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

type memTx struct{ mu sync.Mutex }

func (m *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(journalKey{}).(*journal); ok {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	j := &journal{}
	if err := fn(context.WithValue(ctx, journalKey{}, j)); err != nil {
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		return err
	}
	return nil
}

// -- Templates --

type fakeTemplates struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Template
	clock time.Time
}

func newFakeTemplates() *fakeTemplates {
	return &fakeTemplates{items: make(map[uuid.UUID]*Template), clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeTemplates) Create(ctx context.Context, t *Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = uuid.New()
	f.clock = f.clock.Add(time.Minute)
	t.CreatedAt = f.clock
	for i := range t.Questions {
		t.Questions[i].ID = uuid.New()
		for j := range t.Questions[i].Options {
			t.Questions[i].Options[j].ID = uuid.New()
		}
	}
	f.items[t.ID] = t
	id := t.ID
	record(ctx, func() {
		f.mu.Lock()
		delete(f.items, id)
		f.mu.Unlock()
	})
	return nil
}

func (f *fakeTemplates) GetByID(_ context.Context, id uuid.UUID) (*Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return nil, apperr.NotFound("survey template not found")
	}
	return t, nil
}

func (f *fakeTemplates) ListActive(_ context.Context) ([]*Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Template
	for _, t := range f.items {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTemplates) LatestByName(_ context.Context, name string) (*Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *Template
	for _, t := range f.items {
		if t.Name == name && (latest == nil || t.Version > latest.Version) {
			latest = t
		}
	}
	return latest, nil
}

// -- Sessions --

type fakeSessions struct {
	mu      sync.Mutex
	byToken map[string]*Session
	answers map[uuid.UUID][]Answer
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byToken: make(map[string]*Session), answers: make(map[uuid.UUID][]Answer)}
}

func (f *fakeSessions) Create(_ context.Context, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.byToken[s.Token]; taken {
		return ErrTokenTaken
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	cp := *s
	f.byToken[s.Token] = &cp
	return nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byToken[token]
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) find(id uuid.UUID) *Session {
	for _, s := range f.byToken {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (f *fakeSessions) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(id)
	if s == nil || s.Status != StatusPending {
		return false, nil
	}
	s.Status = StatusExpired
	record(ctx, func() {
		f.mu.Lock()
		s.Status = StatusPending
		f.mu.Unlock()
	})
	return true, nil
}

func (f *fakeSessions) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.find(id)
	if s == nil || s.Status != StatusPending || !now.Before(s.ExpiresAt) {
		return false, nil
	}
	s.Status = StatusCompleted
	completed := now
	s.CompletedAt = &completed
	record(ctx, func() {
		f.mu.Lock()
		s.Status = StatusPending
		s.CompletedAt = nil
		f.mu.Unlock()
	})
	return true, nil
}

func (f *fakeSessions) SaveAnswers(ctx context.Context, answers []Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(answers) == 0 {
		return nil
	}
	id := answers[0].SessionID
	if len(f.answers[id]) > 0 {
		return errors.New("duplicate key value violates unique constraint \"answer_session_id_question_id_key\"")
	}
	f.answers[id] = answers
	record(ctx, func() {
		f.mu.Lock()
		delete(f.answers, id)
		f.mu.Unlock()
	})
	return nil
}

func (f *fakeSessions) status(token string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byToken[token].Status
}

// -- Collaborators --

type fakePatients map[uuid.UUID]*patient.Patient

func (f fakePatients) Lookup(_ context.Context, pharmacyID, id uuid.UUID) (*patient.Patient, error) {
	p, ok := f[id]
	if !ok || p.PharmacyID != pharmacyID {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

type fakePharmacies struct {
	name        string
	pharmacists map[uuid.UUID][]uuid.UUID
}

func (f *fakePharmacies) GetPharmacy(_ context.Context, id uuid.UUID) (*identity.Pharmacy, error) {
	return &identity.Pharmacy{ID: id, Name: f.name}, nil
}

func (f *fakePharmacies) ActivePharmacistIDs(_ context.Context, pharmacyID uuid.UUID) ([]uuid.UUID, error) {
	return f.pharmacists[pharmacyID], nil
}

type fakeAssessments struct {
	mu        sync.Mutex
	bySession map[uuid.UUID]*assessment.Assessment
}

func (f *fakeAssessments) Create(ctx context.Context, a *assessment.Assessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.bySession[a.SessionID]; dup {
		return apperr.Conflict("survey already completed")
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	f.bySession[a.SessionID] = a
	sid := a.SessionID
	record(ctx, func() {
		f.mu.Lock()
		delete(f.bySession, sid)
		f.mu.Unlock()
	})
	return nil
}

func (f *fakeAssessments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bySession)
}

type fakeFollowUps struct {
	mu      sync.Mutex
	created map[uuid.UUID]scoring.HealthType
}

func (f *fakeFollowUps) CreateAuto(ctx context.Context, assessmentID uuid.UUID, ht scoring.HealthType) (*followup.FollowUp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created[assessmentID] = ht
	record(ctx, func() {
		f.mu.Lock()
		delete(f.created, assessmentID)
		f.mu.Unlock()
	})
	tpl := followup.DefaultTemplate(ht)
	return &followup.FollowUp{ID: uuid.New(), AssessmentID: assessmentID, Status: followup.StatusScheduled, Checklist: tpl.Checklist}, nil
}

type fakeInbox struct {
	mu   sync.Mutex
	sent []*inbox.Message
	fail error
}

func (f *fakeInbox) Notify(ctx context.Context, recipients []uuid.UUID, typ, message string) ([]*inbox.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	before := len(f.sent)
	var out []*inbox.Message
	for _, r := range recipients {
		m := &inbox.Message{ID: uuid.New(), PharmacistID: r, Type: typ, Message: message}
		f.sent = append(f.sent, m)
		out = append(out, m)
	}
	record(ctx, func() {
		f.mu.Lock()
		f.sent = f.sent[:before]
		f.mu.Unlock()
	})
	return out, nil
}

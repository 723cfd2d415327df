package survey

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/domain/assessment"
	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/inbox"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
	"github.com/nrft/nrft/internal/platform/db"
	"github.com/nrft/nrft/internal/platform/notification"
)

type PatientLookup interface {
	Lookup(ctx context.Context, pharmacyID, id uuid.UUID) (*patient.Patient, error)
}

type PharmacyDirectory interface {
	GetPharmacy(ctx context.Context, id uuid.UUID) (*identity.Pharmacy, error)
	ActivePharmacistIDs(ctx context.Context, pharmacyID uuid.UUID) ([]uuid.UUID, error)
}

type AssessmentStore interface {
	Create(ctx context.Context, a *assessment.Assessment) error
}

type FollowUpScheduler interface {
	CreateAuto(ctx context.Context, assessmentID uuid.UUID, ht scoring.HealthType) (*followup.FollowUp, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, typ, message string) ([]*inbox.Message, error)
}

type Dispatcher interface {
	SendTemplate(ctx context.Context, ch notification.Channel, templateID, recipient string, data map[string]string) (*notification.Notification, error)
}

type Deps struct {
	Templates   TemplateRepository
	Sessions    SessionRepository
	Tx          db.Transactor
	Patients    PatientLookup
	Pharmacies  PharmacyDirectory
	Assessments AssessmentStore
	FollowUps   FollowUpScheduler
	Inbox       Notifier
	Dispatcher  Dispatcher
}

type Config struct {
	SurveyAppURL  string
	SessionTTL    time.Duration
	ExposeImpacts bool
}

const (
	tokenBytes    = 16
	tokenAttempts = 3
)

var kst = time.FixedZone("KST", 9*60*60)

type Service struct {
	Deps
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time
	token  func() (string, error)
}

func NewService(deps Deps, cfg Config, logger zerolog.Logger) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	cfg.SurveyAppURL = strings.TrimRight(cfg.SurveyAppURL, "/")
	return &Service{Deps: deps, cfg: cfg, logger: logger, now: time.Now, token: newToken}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// -- Templates --

func (s *Service) ListTemplates(ctx context.Context) ([]*Template, error) {
	out, err := s.Templates.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*Template{}
	}
	return out, nil
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	return s.Templates.GetByID(ctx, id)
}

// CreateTemplate stores a new active template. With a base template the new
// one becomes its next version.
func (s *Service) CreateTemplate(ctx context.Context, req CreateTemplateRequest) (*Template, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	t := &Template{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Type:        req.Type,
		Version:     1,
		Active:      true,
		Questions:   make([]Question, 0, len(req.Questions)),
	}
	for i, qi := range req.Questions {
		q := Question{Category: qi.Category, Text: qi.Text, Order: i + 1, Type: qi.Type}
		if q.Type == "" {
			q.Type = QuestionSingle
		}
		for j, oi := range qi.Options {
			q.Options = append(q.Options, Option{Text: oi.Text, Order: j + 1, Impact: oi.Impact})
		}
		t.Questions = append(t.Questions, q)
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.BaseTemplateID != nil {
			base, err := s.Templates.GetByID(ctx, *req.BaseTemplateID)
			if err != nil {
				return err
			}
			t.BaseTemplateID = &base.ID
			t.Version = base.Version + 1
			if t.Type == "" {
				t.Type = base.Type
			}
		}
		if t.Type == "" {
			t.Type = DefaultTemplateType
		}
		return s.Templates.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// -- Sessions --

func (s *Service) validateIssue(req *IssueRequest) error {
	if err := bind.Struct(req); err != nil {
		return err
	}
	if req.Channel == "" {
		req.Channel = ChannelWeb
	}
	if req.DeliveryAddress != nil {
		addr := strings.TrimSpace(*req.DeliveryAddress)
		req.DeliveryAddress = &addr
		if addr == "" {
			req.DeliveryAddress = nil
		}
	}
	details := map[string]string{}
	if req.Channel != ChannelWeb && req.DeliveryAddress == nil {
		details["deliveryAddress"] = "required_unless"
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.now()) {
		details["expiresAt"] = "future"
	}
	if len(details) > 0 {
		return apperr.Validation("validation failed", details)
	}
	return nil
}

// Issue creates a PENDING session for a patient of the caller's pharmacy
// and, for EMAIL and SMS, sends the link.
func (s *Service) Issue(ctx context.Context, principal auth.Principal, req IssueRequest) (*IssueResponse, error) {
	if err := s.validateIssue(&req); err != nil {
		return nil, err
	}
	p, err := s.Patients.Lookup(ctx, principal.PharmacyID, req.PatientID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.Templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, apperr.NotFound("survey template not found")
	}

	expiresAt := s.now().Add(s.cfg.SessionTTL)
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}
	sess := &Session{
		TemplateID:      tpl.ID,
		PatientID:       p.ID,
		PharmacyID:      principal.PharmacyID,
		Channel:         req.Channel,
		DeliveryAddress: req.DeliveryAddress,
		Status:          StatusPending,
		ExpiresAt:       expiresAt,
	}
	if err := s.createWithFreshToken(ctx, sess); err != nil {
		return nil, err
	}

	res := &IssueResponse{
		Token:           sess.Token,
		SurveyURL:       s.cfg.SurveyAppURL + "/survey/" + sess.Token,
		ExpiresAt:       sess.ExpiresAt,
		Channel:         sess.Channel,
		DeliveryAddress: sess.DeliveryAddress,
	}
	if sess.Channel != ChannelWeb {
		s.dispatchLink(ctx, sess, p, res.SurveyURL)
	}
	return res, nil
}

func (s *Service) createWithFreshToken(ctx context.Context, sess *Session) error {
	for attempt := 1; ; attempt++ {
		token, err := s.token()
		if err != nil {
			return err
		}
		sess.Token = token
		err = s.Sessions.Create(ctx, sess)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrTokenTaken) || attempt == tokenAttempts {
			return err
		}
		s.logger.Warn().Int("attempt", attempt).Msg("session token collision, regenerating")
	}
}

func (s *Service) dispatchLink(ctx context.Context, sess *Session, p *patient.Patient, link string) {
	pharmacyName := ""
	if ph, err := s.Pharmacies.GetPharmacy(ctx, sess.PharmacyID); err == nil {
		pharmacyName = ph.Name
	}
	_, err := s.Dispatcher.SendTemplate(ctx, notification.Channel(sess.Channel), notification.TemplateSurveyLink,
		*sess.DeliveryAddress, map[string]string{
			"patient":  p.DisplayName,
			"link":     link,
			"expires":  sess.ExpiresAt.In(kst).Format("2006-01-02 15:04"),
			"pharmacy": pharmacyName,
		})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID.String()).Str("channel", sess.Channel).
			Msg("survey link not delivered")
		return
	}
	s.logger.Info().Str("session_id", sess.ID.String()).Str("channel", sess.Channel).Msg("survey link dispatched")
}

// expire performs the lazy PENDING -> EXPIRED transition.
func (s *Service) expire(ctx context.Context, sess *Session) error {
	if _, err := s.Sessions.MarkExpired(ctx, sess.ID); err != nil {
		return err
	}
	sess.Status = StatusExpired
	return nil
}

// FetchByToken returns the session and its template for the respondent.
func (s *Service) FetchByToken(ctx context.Context, token string) (*SessionView, error) {
	sess, err := s.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Status == StatusPending && sess.Expired(s.now()) {
		if err := s.expire(ctx, sess); err != nil {
			return nil, err
		}
	}
	tpl, err := s.Templates.GetByID(ctx, sess.TemplateID)
	if err != nil {
		return nil, err
	}
	if !s.cfg.ExposeImpacts {
		tpl = tpl.WithoutImpacts()
	}
	return &SessionView{
		Token:           sess.Token,
		Status:          sess.Status,
		ExpiresAt:       sess.ExpiresAt,
		TemplateID:      sess.TemplateID,
		PatientID:       sess.PatientID,
		Channel:         sess.Channel,
		DeliveryAddress: sess.DeliveryAddress,
		Template:        tpl,
	}, nil
}

func validateAnswersShape(req *SubmitRequest) error {
	if err := bind.Struct(req); err != nil {
		return err
	}
	seen := make(map[string]bool, len(req.Answers))
	for i, a := range req.Answers {
		if seen[a.QuestionID] {
			return apperr.Validation("validation failed", map[string]string{
				fmt.Sprintf("answers[%d].questionId", i): "unique",
			})
		}
		seen[a.QuestionID] = true
	}
	return nil
}

// checkMembership verifies every answer against the session's template.
func checkMembership(tpl *Template, answers []AnswerInput) error {
	details := map[string]string{}
	for i, a := range answers {
		q := tpl.question(a.QuestionID)
		if q == nil {
			details[fmt.Sprintf("answers[%d].questionId", i)] = "unknown"
			continue
		}
		for j, id := range a.OptionIDs {
			if !q.hasOption(id) {
				details[fmt.Sprintf("answers[%d].optionIds[%d]", i, j)] = "unknown"
			}
		}
		if q.Type == QuestionSingle && len(a.OptionIDs) != 1 {
			details[fmt.Sprintf("answers[%d].optionIds", i)] = "single"
		}
	}
	if len(details) > 0 {
		return apperr.Validation("validation failed", details)
	}
	return nil
}

// selectedOptions flattens answers in submission order; the first
// occurrence of a repeated option id wins.
func selectedOptions(answers []AnswerInput) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		for _, id := range a.OptionIDs {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// notPending is the Conflict returned for a session in a terminal state.
func notPending(status string) error {
	if status == StatusExpired {
		return apperr.Conflict("survey link expired")
	}
	return apperr.Conflict("survey already completed")
}

var errExpiredAtClaim = errors.New("session expired while claiming")

// Submit consumes a PENDING session: answers, assessment, follow-up and
// pharmacist notifications are written in one transaction together with the
// PENDING -> COMPLETED transition.
func (s *Service) Submit(ctx context.Context, token string, req SubmitRequest) (*SubmitResult, error) {
	if err := validateAnswersShape(&req); err != nil {
		return nil, err
	}
	sess, err := s.Sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess.Status != StatusPending {
		return nil, notPending(sess.Status)
	}
	if sess.Expired(s.now()) {
		if err := s.expire(ctx, sess); err != nil {
			return nil, err
		}
		return nil, apperr.Gone("session expired")
	}
	tpl, err := s.Templates.GetByID(ctx, sess.TemplateID)
	if err != nil {
		return nil, err
	}
	if err := checkMembership(tpl, req.Answers); err != nil {
		return nil, err
	}

	selected := selectedOptions(req.Answers)
	analysis := scoring.Analyze(selected, tpl.Impacts())
	var created *assessment.Assessment

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		claimed, err := s.Sessions.Claim(ctx, sess.ID, s.now())
		if err != nil {
			return err
		}
		if !claimed {
			current, err := s.Sessions.GetByToken(ctx, token)
			if err != nil {
				return err
			}
			if current.Status == StatusPending && current.Expired(s.now()) {
				return errExpiredAtClaim
			}
			return notPending(current.Status)
		}

		answers := make([]Answer, 0, len(req.Answers))
		for i, a := range req.Answers {
			answers = append(answers, Answer{
				SessionID:  sess.ID,
				QuestionID: tpl.question(a.QuestionID).ID,
				OptionIDs:  a.OptionIDs,
				Order:      i,
			})
		}
		if err := s.Sessions.SaveAnswers(ctx, answers); err != nil {
			return err
		}

		created = assessment.FromAnalysis(sess.PharmacyID, sess.PatientID, sess.ID, selected, analysis)
		if err := s.Assessments.Create(ctx, created); err != nil {
			return err
		}
		if _, err := s.FollowUps.CreateAuto(ctx, created.ID, analysis.HealthType); err != nil {
			return err
		}
		return s.notifyCompleted(ctx, sess)
	})
	switch {
	case errors.Is(err, errExpiredAtClaim):
		if err := s.expire(ctx, sess); err != nil {
			return nil, err
		}
		return nil, apperr.Gone("session expired")
	case apperr.Is(err, apperr.KindConflict):
		return nil, err
	case err != nil:
		return nil, apperr.Internal(fmt.Errorf("submit survey: %w", err))
	}

	s.logger.Info().Str("session_id", sess.ID.String()).Str("assessment_id", created.ID.String()).
		Str("health_type", analysis.HealthType.ShortName()).Msg("survey submitted")
	return &SubmitResult{AssessmentID: created.ID, HealthType: analysis.HealthType, Scores: analysis.Scores}, nil
}

func (s *Service) notifyCompleted(ctx context.Context, sess *Session) error {
	name := "환자"
	p, err := s.Patients.Lookup(ctx, sess.PharmacyID, sess.PatientID)
	switch {
	case err == nil:
		name = p.Name
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}
	recipients, err := s.Pharmacies.ActivePharmacistIDs(ctx, sess.PharmacyID)
	if err != nil {
		return err
	}
	_, err = s.Inbox.Notify(ctx, recipients, inbox.TypeSurveyCompleted, inbox.SurveyCompletedMessage(name))
	return err
}

package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/inbox"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
	"github.com/nrft/nrft/internal/platform/notification"
)

type PatientLookup interface {
	Lookup(ctx context.Context, pharmacyID, id uuid.UUID) (*patient.Patient, error)
}

type PharmacyLookup interface {
	GetPharmacy(ctx context.Context, id uuid.UUID) (*identity.Pharmacy, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []uuid.UUID, typ, message string) ([]*inbox.Message, error)
}

type Dispatcher interface {
	SendTemplate(ctx context.Context, ch notification.Channel, templateID, recipient string, data map[string]string) (*notification.Notification, error)
}

var kst = time.FixedZone("KST", 9*60*60)

type Service struct {
	repo       Repository
	patients   PatientLookup
	pharmacies PharmacyLookup
	inbox      Notifier
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, patients PatientLookup, pharmacies PharmacyLookup,
	notifier Notifier, dispatcher Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		pharmacies: pharmacies,
		inbox:      notifier,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateAuto schedules the follow-up that accompanies a new assessment.
// A stored template for ht wins over the built-in default.
func (s *Service) CreateAuto(ctx context.Context, assessmentID uuid.UUID, ht scoring.HealthType) (*FollowUp, error) {
	tpl, err := s.repo.TemplateFor(ctx, string(ht))
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		d := DefaultTemplate(ht)
		tpl = &d
	}
	f := &FollowUp{
		AssessmentID:  assessmentID,
		NextVisitDate: s.now().AddDate(0, 0, tpl.OffsetDays),
		Status:        StatusScheduled,
		Checklist:     tpl.Checklist,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Service) Create(ctx context.Context, principal auth.Principal, assessmentID uuid.UUID, req CreateRequest) (*FollowUp, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	if _, err := s.repo.Assessment(ctx, principal.PharmacyID, assessmentID); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = StatusScheduled
	}
	f := &FollowUp{
		AssessmentID:  assessmentID,
		NextVisitDate: req.NextVisitDate,
		Status:        status,
		Checklist:     req.Checklist,
		Assignee:      req.Assignee,
	}
	if f.Checklist == nil {
		f.Checklist = []string{}
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// List returns the follow-ups of an assessment ordered by visit date.
func (s *Service) List(ctx context.Context, principal auth.Principal, assessmentID uuid.UUID) ([]*FollowUp, error) {
	if _, err := s.repo.Assessment(ctx, principal.PharmacyID, assessmentID); err != nil {
		return nil, err
	}
	return s.ListForAssessment(ctx, assessmentID)
}

// ListForAssessment skips the pharmacy check; callers must have done it.
func (s *Service) ListForAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*FollowUp, error) {
	out, err := s.repo.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*FollowUp{}
	}
	return out, nil
}

func (s *Service) ListForPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*FollowUp, error) {
	out, err := s.repo.ListByPatient(ctx, pharmacyID, patientID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*FollowUp{}
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, principal auth.Principal, id uuid.UUID, req UpdateRequest) (*FollowUp, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	f, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return nil, err
	}
	if req.NextVisitDate != nil {
		f.NextVisitDate = *req.NextVisitDate
	}
	if req.Checklist != nil {
		f.Checklist = req.Checklist
	}
	if req.Status != nil {
		f.Status = *req.Status
	}
	if req.Assignee != nil {
		f.Assignee = req.Assignee
	}
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func channelLabel(ch string) string {
	switch ch {
	case ChannelSMS:
		return "문자"
	case ChannelEmail:
		return "이메일"
	default:
		return "전화"
	}
}

// Remind records a reminder in the caller's inbox and, for SMS and EMAIL,
// sends it to the patient. A failed send is logged and reported through
// RemindResult.Delivered.
func (s *Service) Remind(ctx context.Context, principal auth.Principal, id uuid.UUID, req RemindRequest) (*RemindResult, error) {
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	if req.Channel == "" {
		req.Channel = ChannelSMS
	}
	if req.Channel == ChannelEmail && strings.TrimSpace(req.Address) == "" {
		return nil, apperr.Validation("validation failed", map[string]string{"address": "required_if"})
	}

	f, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return nil, err
	}
	ref, err := s.repo.Assessment(ctx, principal.PharmacyID, f.AssessmentID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.Lookup(ctx, principal.PharmacyID, ref.PatientID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}

	label := fmt.Sprintf("환자(%s)", ref.PatientID)
	if p != nil {
		label = p.DisplayName
	}
	message := fmt.Sprintf("[F/U 리마인더:%s] %s", channelLabel(req.Channel), label)
	if note := strings.TrimSpace(req.Note); note != "" {
		message += " - " + note
	}

	msgs, err := s.inbox.Notify(ctx, []uuid.UUID{principal.PharmacistID}, inbox.ReminderType(req.Channel), message)
	if err != nil {
		return nil, err
	}
	res := &RemindResult{Channel: req.Channel, Message: message, QueuedAt: s.now()}
	if len(msgs) > 0 {
		res.NotificationID = msgs[0].ID
		res.QueuedAt = msgs[0].CreatedAt
	}

	if req.Channel != ChannelCall && p != nil {
		res.Delivered = s.send(ctx, principal.PharmacyID, f, p, req)
	}
	return res, nil
}

func (s *Service) send(ctx context.Context, pharmacyID uuid.UUID, f *FollowUp, p *patient.Patient, req RemindRequest) bool {
	recipient := strings.TrimSpace(req.Address)
	if recipient == "" {
		recipient = p.Phone
	}
	pharmacyName := ""
	if ph, err := s.pharmacies.GetPharmacy(ctx, pharmacyID); err == nil {
		pharmacyName = ph.Name
	}
	_, err := s.dispatcher.SendTemplate(ctx, notification.Channel(req.Channel), notification.TemplateFollowUpReminder, recipient, map[string]string{
		"patient":   p.DisplayName,
		"date":      f.NextVisitDate.In(kst).Format("2006-01-02"),
		"checklist": strings.Join(f.Checklist, ", "),
		"pharmacy":  pharmacyName,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("follow_up_id", f.ID.String()).Str("channel", req.Channel).
			Msg("follow-up reminder not delivered")
		return false
	}
	return true
}

package assessment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/domain/followup"
	"github.com/nrft/nrft/internal/domain/identity"
	"github.com/nrft/nrft/internal/domain/patient"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/platform/ai"
	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
	"github.com/nrft/nrft/internal/platform/reporting"
)

type PatientLookup interface {
	Lookup(ctx context.Context, pharmacyID, id uuid.UUID) (*patient.Patient, error)
}

type FollowUpLister interface {
	ListForAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*followup.FollowUp, error)
	ListForPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*followup.FollowUp, error)
}

type PharmacyLookup interface {
	GetPharmacy(ctx context.Context, id uuid.UUID) (*identity.Pharmacy, error)
}

type Service struct {
	repo       Repository
	patients   PatientLookup
	followUps  FollowUpLister
	pharmacies PharmacyLookup
	writer     ai.ConsultationWriter
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(repo Repository, patients PatientLookup, followUps FollowUpLister, pharmacies PharmacyLookup,
	writer ai.ConsultationWriter, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		followUps:  followUps,
		pharmacies: pharmacies,
		writer:     writer,
		logger:     logger,
		now:        time.Now,
	}
}

// Create is used by survey submission inside its transaction.
func (s *Service) Create(ctx context.Context, a *Assessment) error {
	return s.repo.Create(ctx, a)
}

// List returns the latest assessments of the caller's pharmacy, optionally
// filtered by review status.
func (s *Service) List(ctx context.Context, principal auth.Principal, status string) ([]*ListItem, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "", StatusPending, StatusCompleted:
	default:
		return nil, apperr.Validation("validation failed", map[string]string{"status": "oneof"})
	}
	out, err := s.repo.List(ctx, principal.PharmacyID, status, ListLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*ListItem{}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, principal auth.Principal, id uuid.UUID) (*Detail, error) {
	a, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return nil, err
	}
	d := &Detail{Assessment: a}
	if d.Patient, err = s.patients.Lookup(ctx, a.PharmacyID, a.PatientID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if d.Session, err = s.repo.Session(ctx, a.SessionID); err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if d.FollowUps, err = s.followUps.ListForAssessment(ctx, a.ID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) UpdateStatus(ctx context.Context, principal auth.Principal, id uuid.UUID, req StatusRequest) (*Assessment, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := bind.Struct(&req); err != nil {
		return nil, err
	}
	return s.repo.UpdateStatus(ctx, principal.PharmacyID, id, req.Status)
}

// GenerateAIScript asks the consultation writer for a note on the two
// weakest axes and stores it on the assessment.
func (s *Service) GenerateAIScript(ctx context.Context, principal auth.Principal, id uuid.UUID) (*AIScriptResponse, error) {
	a, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.Lookup(ctx, a.PharmacyID, a.PatientID)
	if err != nil {
		return nil, err
	}

	script, err := s.writer.WriteConsultation(ctx, ai.ConsultationInput{
		PatientName: p.DisplayName,
		AgeGroup:    patient.AgeGroup(p.BirthYear, s.now()),
		Gender:      p.GenderOrDefault(),
		HealthType:  a.HealthType,
		Scores:      a.Scores,
		FocusAxes:   scoring.FocusAxes(a.Scores, 2),
	})
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return nil, apperr.Unavailable("AI consultation is not configured")
	case err != nil:
		s.logger.Error().Err(err).Str("assessment_id", a.ID.String()).Msg("consultation note failed")
		return nil, apperr.Internal(fmt.Errorf("write consultation: %w", err))
	}

	updated, err := s.repo.SetAIScript(ctx, principal.PharmacyID, id, script)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("assessment_id", a.ID.String()).Int("length", len(script)).Msg("consultation note stored")
	return &AIScriptResponse{AIScript: script, Assessment: updated}, nil
}

// Report renders the patient- or pharmacist-facing HTML report.
func (s *Service) Report(ctx context.Context, principal auth.Principal, id uuid.UUID, typ reporting.ReportType, w io.Writer) error {
	a, err := s.repo.GetByID(ctx, principal.PharmacyID, id)
	if err != nil {
		return err
	}
	r := reporting.AssessmentReport{
		Type:            typ,
		PatientName:     "환자",
		CreatedAt:       a.CreatedAt,
		HealthType:      a.HealthType,
		Scores:          a.Scores,
		Recommendations: a.Recommendations,
	}
	if a.AIScript != nil {
		r.AINote = *a.AIScript
	}

	p, err := s.patients.Lookup(ctx, a.PharmacyID, a.PatientID)
	switch {
	case err == nil:
		r.PatientName = p.Name
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}
	ph, err := s.pharmacies.GetPharmacy(ctx, a.PharmacyID)
	switch {
	case err == nil:
		r.PharmacyName = ph.Name
		r.BrandColor = deref(ph.BrandColor)
		r.BrandLogoURL = deref(ph.BrandLogoURL)
		r.BrandTagline = deref(ph.BrandTagline)
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}

	if typ == reporting.ReportPharmacist {
		if sess, err := s.repo.Session(ctx, a.SessionID); err == nil {
			r.SessionStatus = sess.Status
			r.CompletedAt = sess.CompletedAt
		} else if !apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		fus, err := s.followUps.ListForAssessment(ctx, a.ID)
		if err != nil {
			return err
		}
		for _, f := range fus {
			r.FollowUps = append(r.FollowUps, reporting.FollowUpLine{
				NextVisitDate: f.NextVisitDate,
				Status:        f.Status,
				Checklist:     f.Checklist,
			})
		}
	}
	return reporting.RenderHTML(w, r)
}

// Timeline merges a patient's assessments and follow-ups, newest first.
func (s *Service) Timeline(ctx context.Context, principal auth.Principal, patientID uuid.UUID) ([]TimelineEvent, error) {
	if _, err := s.patients.Lookup(ctx, principal.PharmacyID, patientID); err != nil {
		return nil, err
	}
	assessments, err := s.repo.ListByPatient(ctx, principal.PharmacyID, patientID)
	if err != nil {
		return nil, err
	}
	fus, err := s.followUps.ListForPatient(ctx, principal.PharmacyID, patientID)
	if err != nil {
		return nil, err
	}

	events := make([]TimelineEvent, 0, len(assessments)+len(fus))
	for _, a := range assessments {
		events = append(events, TimelineEvent{
			Type:         EventAssessment,
			AssessmentID: a.ID,
			CreatedAt:    a.CreatedAt,
			HealthType:   a.HealthType,
			Status:       a.Status,
		})
	}
	for _, f := range fus {
		id, next := f.ID, f.NextVisitDate
		events = append(events, TimelineEvent{
			Type:          EventFollowUp,
			AssessmentID:  f.AssessmentID,
			FollowUpID:    &id,
			CreatedAt:     f.CreatedAt,
			Status:        f.Status,
			NextVisitDate: &next,
			Checklist:     f.Checklist,
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

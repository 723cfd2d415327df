package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nrft/nrft/internal/domain/inbox"
	"github.com/nrft/nrft/internal/domain/scoring"
	"github.com/nrft/nrft/internal/domain/survey"
	"github.com/nrft/nrft/internal/platform/apperr"
)

func answersFor(tpl *survey.Template) survey.SubmitRequest {
	return survey.SubmitRequest{Answers: []survey.AnswerInput{
		{QuestionID: tpl.Questions[0].ID.String(), OptionIDs: []string{tpl.Questions[0].Options[0].ID.String()}},
		{QuestionID: tpl.Questions[1].ID.String(), OptionIDs: []string{tpl.Questions[1].Options[1].ID.String()}},
	}}
}

func TestSurveyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	p := s.createPatient(t, "홍길동", "01012345678")
	tpl := s.createTemplate(t)

	issued, err := s.survey.Issue(ctx, s.principal, survey.IssueRequest{PatientID: p.ID, TemplateID: tpl.ID})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(issued.Token) != 32 {
		t.Fatalf("token length = %d, want 32", len(issued.Token))
	}

	t.Run("FetchHidesImpacts", func(t *testing.T) {
		view, err := s.survey.FetchByToken(ctx, issued.Token)
		if err != nil {
			t.Fatalf("FetchByToken: %v", err)
		}
		if view.Status != survey.StatusPending {
			t.Fatalf("status = %s, want PENDING", view.Status)
		}
		for _, q := range view.Template.Questions {
			for _, o := range q.Options {
				if o.Impact != nil {
					t.Fatalf("option %s exposes its impact", o.ID)
				}
			}
		}
	})

	t.Run("Submit", func(t *testing.T) {
		res, err := s.survey.Submit(ctx, issued.Token, answersFor(tpl))
		if err != nil {
			t.Fatalf("Submit: %v", err)
		}
		if got := res.Scores[scoring.AxisSleep]; got != 30 {
			t.Errorf("Sleep = %d, want 30", got)
		}
		if got := res.Scores[scoring.AxisEnergy]; got != 85 {
			t.Errorf("Energy = %d, want 85", got)
		}
		if n := s.count(t, `SELECT COUNT(*) FROM answer`); n != 2 {
			t.Errorf("answers stored = %d, want 2", n)
		}
		if n := s.count(t, `SELECT COUNT(*) FROM follow_up WHERE assessment_id = $1`, res.AssessmentID); n != 1 {
			t.Errorf("follow-ups = %d, want 1", n)
		}

		msgs, err := s.inbox.List(ctx, s.principal.PharmacistID)
		if err != nil {
			t.Fatalf("inbox List: %v", err)
		}
		if len(msgs) != 1 || msgs[0].Type != inbox.TypeSurveyCompleted {
			t.Fatalf("inbox = %+v, want one %s message", msgs, inbox.TypeSurveyCompleted)
		}
	})

	t.Run("ResubmitConflicts", func(t *testing.T) {
		_, err := s.survey.Submit(ctx, issued.Token, answersFor(tpl))
		if !apperr.Is(err, apperr.KindConflict) {
			t.Fatalf("resubmit error = %v, want conflict", err)
		}
		view, err := s.survey.FetchByToken(ctx, issued.Token)
		if err != nil {
			t.Fatalf("FetchByToken: %v", err)
		}
		if view.Status != survey.StatusCompleted {
			t.Fatalf("status = %s, want COMPLETED", view.Status)
		}
	})
}

func TestSurveyExpiredSession(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	p := s.createPatient(t, "홍길동", "01012345678")
	tpl := s.createTemplate(t)

	issued, err := s.survey.Issue(ctx, s.principal, survey.IssueRequest{PatientID: p.ID, TemplateID: tpl.ID})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := s.pool.Exec(ctx, `UPDATE survey_session SET expires_at = now() - interval '1 minute' WHERE token = $1`, issued.Token); err != nil {
		t.Fatalf("backdate session: %v", err)
	}

	_, err = s.survey.Submit(ctx, issued.Token, answersFor(tpl))
	if !apperr.Is(err, apperr.KindGone) {
		t.Fatalf("submit error = %v, want gone", err)
	}
	if n := s.count(t, `SELECT COUNT(*) FROM survey_session WHERE token = $1 AND status = 'EXPIRED'`, issued.Token); n != 1 {
		t.Fatal("session was not marked EXPIRED")
	}
	if n := s.count(t, `SELECT COUNT(*) FROM assessment`); n != 0 {
		t.Fatalf("assessments = %d, want 0", n)
	}

	_, err = s.survey.Submit(ctx, issued.Token, answersFor(tpl))
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second submit error = %v, want conflict", err)
	}
}

// Concurrent submissions of one token must yield exactly one assessment.
func TestSurveyConcurrentSubmit(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	p := s.createPatient(t, "홍길동", "01012345678")
	tpl := s.createTemplate(t)

	issued, err := s.survey.Issue(ctx, s.principal, survey.IssueRequest{
		PatientID:  p.ID,
		TemplateID: tpl.ID,
		ExpiresAt:  timePtr(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const workers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.survey.Submit(ctx, issued.Token, answersFor(tpl))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case apperr.Is(err, apperr.KindConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != workers-1 {
		t.Fatalf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, workers-1)
	}
	if n := s.count(t, `SELECT COUNT(*) FROM assessment`); n != 1 {
		t.Fatalf("assessments = %d, want 1", n)
	}
	if n := s.count(t, `SELECT COUNT(*) FROM follow_up`); n != 1 {
		t.Fatalf("follow-ups = %d, want 1", n)
	}
}

func TestTemplateVersioning(t *testing.T) {
	ctx := context.Background()
	s := newStack(t)
	first := s.createTemplate(t)
	second, err := s.survey.CreateTemplate(ctx, survey.CreateTemplateRequest{
		Name:           first.Name,
		BaseTemplateID: &first.ID,
		Questions: []survey.QuestionInput{
			{Category: "Stress", Text: "긴장되나요?", Options: []survey.OptionInput{{Text: "네", Impact: map[string]int{"Stress": -30}}}},
		},
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version = %d, want %d", second.Version, first.Version+1)
	}

	got, err := s.survey.GetTemplate(ctx, second.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if len(got.Questions) != 1 || got.Questions[0].Options[0].Impact["Stress"] != -30 {
		t.Fatalf("stored template = %+v", got.Questions)
	}
}

func timePtr(t time.Time) *time.Time { return &t }

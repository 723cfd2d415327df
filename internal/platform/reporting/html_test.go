package reporting

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/nrft/nrft/internal/domain/scoring"
)

func sampleReport(typ ReportType) AssessmentReport {
	completed := time.Date(2026, 3, 2, 1, 30, 0, 0, time.UTC)
	return AssessmentReport{
		Type:         typ,
		PatientName:  "김하나",
		PharmacyName: "온누리약국",
		CreatedAt:    time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC),
		HealthType:   scoring.BurnoutFire,
		Scores: scoring.Scores{
			scoring.AxisSleep: 90, scoring.AxisDigestion: 100, scoring.AxisEnergy: 75,
			scoring.AxisStress: 100, scoring.AxisImmunity: 100,
		},
		Recommendations: scoring.RecommendationFor(scoring.BurnoutFire),
		FollowUps: []FollowUpLine{{
			NextVisitDate: time.Date(2026, 3, 9, 1, 0, 0, 0, time.UTC),
			Status:        "SCHEDULED",
			Checklist:     []string{"수면시간 기록", "카페인/운동 루틴 점검"},
		}},
		AINote:        "**피로**가 쌓이셨네요.<script>alert(1)</script>",
		SessionStatus: "COMPLETED",
		CompletedAt:   &completed,
	}
}

func render(t *testing.T, r AssessmentReport) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RenderHTML(&buf, r); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	return buf.String()
}

func TestParseReportType(t *testing.T) {
	if ParseReportType("patient") != ReportPatient {
		t.Error("expected patient")
	}
	for _, s := range []string{"", "pharmacist", "PATIENT", "x"} {
		if ParseReportType(s) != ReportPharmacist {
			t.Errorf("ParseReportType(%q) should default to pharmacist", s)
		}
	}
}

func TestRenderHTML_Pharmacist(t *testing.T) {
	out := render(t, sampleReport(ReportPharmacist))

	for _, want := range []string{
		"약사용 NRFT 리포트",
		"김하나 · 온누리약국 · 2026-03-02 10:00",
		"세션 상태: COMPLETED · 제출 2026-03-02 10:30",
		"활력/에너지",
		"width: 75%",
		"<strong>피로</strong>",
		"수면시간 기록 · 카페인/운동 루틴 점검",
		"활력/에너지 영양/운동 변경점 75% · 2주간 점검",
		"--accent: #0f766e",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if strings.Contains(out, "<script>") {
		t.Error("raw HTML from the AI note must not be rendered")
	}
	if strings.Contains(out, "다음 단계") {
		t.Error("patient next steps should not appear in the pharmacist report")
	}
}

func TestRenderHTML_Patient(t *testing.T) {
	out := render(t, sampleReport(ReportPatient))
	if !strings.Contains(out, "환자용 NRFT 리포트") || !strings.Contains(out, "관리 팁") {
		t.Error("expected patient title and focus heading")
	}
	if !strings.Contains(out, "다음 단계") {
		t.Error("expected patient next steps")
	}
	if strings.Contains(out, "AI 상담 스크립트") || strings.Contains(out, "세션 상태") {
		t.Error("pharmacist-only sections leaked into patient report")
	}
}

func TestRenderHTML_EscapesAndBrand(t *testing.T) {
	r := sampleReport(ReportPatient)
	r.PatientName = "<b>x</b>"
	r.BrandColor = "red;}body{display:none"
	r.BrandTagline = "건강한 하루"
	r.FollowUps = nil
	r.Recommendations = scoring.Recommendation{}

	out := render(t, r)
	if strings.Contains(out, "<b>x</b>") {
		t.Error("patient name was not escaped")
	}
	if !strings.Contains(out, "--accent: #0f766e") {
		t.Error("invalid brand color should fall back to default")
	}
	for _, want := range []string{"건강한 하루", "등록된 F/U 일정이 없습니다.", "추천 정보가 없습니다."} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}

	r.BrandColor = "#112233"
	if !strings.Contains(render(t, r), "--accent: #112233") {
		t.Error("valid brand color not applied")
	}
}

func TestRenderHTML_ExtendedAxes(t *testing.T) {
	r := sampleReport(ReportPharmacist)
	r.Scores["Defense"] = 70
	if !strings.Contains(render(t, r), "Defense") {
		t.Error("extended axis should be listed")
	}
}

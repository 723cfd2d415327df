package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/nrft/nrft/internal/domain/scoring"
)

type ReportType string

const (
	ReportPatient    ReportType = "patient"
	ReportPharmacist ReportType = "pharmacist"
)

// ParseReportType defaults to the pharmacist report.
func ParseReportType(s string) ReportType {
	if s == string(ReportPatient) {
		return ReportPatient
	}
	return ReportPharmacist
}

const defaultBrandColor = "#0f766e"

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var kst = time.FixedZone("KST", 9*60*60)

var categoryLabels = map[scoring.Axis]string{
	scoring.AxisSleep:     "수면 건강",
	scoring.AxisDigestion: "소화 기능",
	scoring.AxisEnergy:    "활력/에너지",
	scoring.AxisStress:    "스트레스",
	scoring.AxisImmunity:  "면역력",
}

func categoryLabel(a scoring.Axis) string {
	if l, ok := categoryLabels[a]; ok {
		return l
	}
	return string(a)
}

type FollowUpLine struct {
	NextVisitDate time.Time
	Status        string
	Checklist     []string
}

// AssessmentReport is the input of RenderHTML. AINote is markdown.
type AssessmentReport struct {
	Type            ReportType
	PatientName     string
	PharmacyName    string
	CreatedAt       time.Time
	HealthType      scoring.HealthType
	Scores          scoring.Scores
	Recommendations scoring.Recommendation
	FollowUps       []FollowUpLine
	AINote          string
	SessionStatus   string
	CompletedAt     *time.Time
	BrandColor      string
	BrandLogoURL    string
	BrandTagline    string
}

type scoreRow struct {
	Label string
	Value int
}

type followUpRow struct {
	Date      string
	Status    string
	Checklist string
}

type reportView struct {
	Title           string
	Pharmacist      bool
	PatientName     string
	PharmacyName    string
	CreatedAt       string
	Accent          template.CSS
	AccentTint      template.CSS
	LogoURL         string
	Tagline         string
	HealthType      string
	Scores          []scoreRow
	Recommendations []scoreText
	FocusTitle      string
	Focus           []string
	FollowUps       []followUpRow
	AINote          template.HTML
	SessionStatus   string
	CompletedAt     string
}

type scoreText struct {
	Key   string
	Value string
}

// RenderHTML writes a self-contained HTML report for r.
func RenderHTML(w io.Writer, r AssessmentReport) error {
	view, err := buildView(r)
	if err != nil {
		return err
	}
	return reportTemplate.Execute(w, view)
}

func buildView(r AssessmentReport) (reportView, error) {
	accent := defaultBrandColor
	if hexColor.MatchString(r.BrandColor) {
		accent = r.BrandColor
	}
	pharmacy := r.PharmacyName
	if pharmacy == "" {
		pharmacy = "NRFT Pharmacy"
	}

	v := reportView{
		Title:         "약사용 NRFT 리포트",
		Pharmacist:    r.Type != ReportPatient,
		PatientName:   r.PatientName,
		PharmacyName:  pharmacy,
		CreatedAt:     formatTime(r.CreatedAt),
		Accent:        template.CSS(accent),
		AccentTint:    template.CSS(accent + "22"),
		LogoURL:       r.BrandLogoURL,
		Tagline:       r.BrandTagline,
		HealthType:    string(r.HealthType),
		FocusTitle:    "중점 체크 영역",
		SessionStatus: r.SessionStatus,
	}
	if !v.Pharmacist {
		v.Title = "환자용 NRFT 리포트"
		v.FocusTitle = "관리 팁"
	}
	if r.CompletedAt != nil {
		v.CompletedAt = formatTime(*r.CompletedAt)
	}

	for _, a := range scoring.CanonicalAxes {
		v.Scores = append(v.Scores, scoreRow{Label: categoryLabel(a), Value: r.Scores[a]})
	}
	for _, a := range r.Scores.Extended() {
		v.Scores = append(v.Scores, scoreRow{Label: categoryLabel(a), Value: r.Scores[a]})
	}

	rec := r.Recommendations
	for _, kv := range []scoreText{{"lifestyle", rec.Lifestyle}, {"product", rec.Product}, {"message", rec.Message}} {
		if kv.Value != "" {
			v.Recommendations = append(v.Recommendations, kv)
		}
	}

	for _, f := range scoring.FocusAxes(r.Scores, 2) {
		v.Focus = append(v.Focus, fmt.Sprintf("%s 영양/운동 변경점 %d%% · 2주간 점검", categoryLabel(f.Axis), f.Score))
	}

	for _, f := range r.FollowUps {
		v.FollowUps = append(v.FollowUps, followUpRow{
			Date:      formatTime(f.NextVisitDate),
			Status:    f.Status,
			Checklist: strings.Join(f.Checklist, " · "),
		})
	}

	if v.Pharmacist && strings.TrimSpace(r.AINote) != "" {
		var buf bytes.Buffer
		// goldmark drops raw HTML unless WithUnsafe is set.
		if err := goldmark.Convert([]byte(r.AINote), &buf); err != nil {
			return reportView{}, fmt.Errorf("render ai note: %w", err)
		}
		v.AINote = template.HTML(buf.String())
	}
	return v, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "정보 없음"
	}
	return t.In(kst).Format("2006-01-02 15:04")
}

var reportTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html lang="ko">
<head>
<meta charset="utf-8" />
<title>{{.Title}}</title>
<style>
:root { --accent: {{.Accent}}; --accent-tint: {{.AccentTint}}; --text: #0f172a; }
* { box-sizing: border-box; }
body { font-family: 'Pretendard', 'Inter', sans-serif; background: #f5f7fb; margin: 0; color: var(--text); }
.page { max-width: 840px; margin: 32px auto; padding: 32px; }
.panel { background: #fff; border-radius: 32px; border: 1px solid #e2e8f0; padding: 32px; }
.report-header { background: linear-gradient(135deg, var(--accent), var(--accent-tint)); border-radius: 28px; padding: 24px; color: #fff; display: grid; grid-template-columns: auto 1fr; gap: 16px; align-items: center; }
.report-header h1 { margin: 0; font-size: 28px; }
.report-meta { font-size: 14px; opacity: 0.9; }
.score { display: grid; grid-template-columns: 160px 1fr 60px; align-items: center; gap: 12px; margin-bottom: 14px; }
.bar { height: 10px; border-radius: 999px; background: #f1f5f9; overflow: hidden; }
.fill { height: 100%; background: var(--accent); border-radius: 999px; }
section { margin-top: 32px; }
.list-card { background: #f8fafc; border-radius: 18px; padding: 16px 20px; border: 1px solid #e2e8f0; }
.hero-logo img { height: 48px; object-fit: contain; }
.brand-mark { font-weight: 700; font-size: 20px; }
.tagline { margin: 8px 0 0; font-size: 13px; opacity: 0.85; }
</style>
</head>
<body>
<div class="page"><div class="panel">
<div class="report-header">
  <div class="hero-logo">{{if .LogoURL}}<img src="{{.LogoURL}}" alt="{{.PharmacyName}} 로고" />{{else}}<div class="brand-mark">{{.PharmacyName}}</div>{{end}}</div>
  <div>
    <h1>{{.Title}}</h1>
    <p class="report-meta">{{.PatientName}} · {{.PharmacyName}} · {{.CreatedAt}}</p>
    {{if .Tagline}}<p class="tagline">{{.Tagline}}</p>{{end}}
    {{if .Pharmacist}}<p class="report-meta">세션 상태: {{if .SessionStatus}}{{.SessionStatus}}{{else}}정보 없음{{end}}{{if .CompletedAt}} · 제출 {{.CompletedAt}}{{end}}</p>{{end}}
  </div>
</div>

<section>
  <h2>NRFT 점수</h2>
  {{range .Scores}}<div class="score"><div class="score-label">{{.Label}}</div><div class="bar"><div class="fill" style="width: {{.Value}}%"></div></div><div class="score-value">{{.Value}}%</div></div>
  {{end}}
</section>

<section>
  <h2>건강 타입</h2>
  <p>{{.HealthType}}</p>
</section>

<section>
  <h2>맞춤 제안</h2>
  <div class="list-card"><ul>
  {{range .Recommendations}}<li><strong>{{.Key}}</strong>: {{.Value}}</li>
  {{else}}<li>추천 정보가 없습니다.</li>
  {{end}}</ul></div>
</section>

<section>
  <h2>{{.FocusTitle}}</h2>
  <div class="list-card"><ul>
  {{range .Focus}}<li>{{.}}</li>
  {{else}}<li>모든 영역을 고르게 유지하세요.</li>
  {{end}}</ul></div>
</section>

<section>
  <h2>Follow-up 일정</h2>
  <div class="list-card"><ul>
  {{range .FollowUps}}<li><strong>{{.Date}}</strong> ({{.Status}}) {{.Checklist}}</li>
  {{else}}<li>등록된 F/U 일정이 없습니다.</li>
  {{end}}</ul></div>
</section>
{{if .AINote}}
<section>
  <h2>AI 상담 스크립트</h2>
  <div class="list-card">{{.AINote}}</div>
</section>
{{end}}
{{if not .Pharmacist}}
<section>
  <h2>다음 단계</h2>
  <div class="list-card"><ul>
  <li>2주간 생활요법을 실천하고 변화 추이를 기록합니다.</li>
  <li>변화가 없다면 약사에게 상담 예약을 요청해 주세요.</li>
  </ul></div>
</section>
{{end}}
</div></div>
</body>
</html>
`))

// Package ai writes pharmacist consultation notes with a generative model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/nrft/nrft/internal/domain/scoring"
)

// ErrNotConfigured is returned by the writer when no API key is set.
var ErrNotConfigured = errors.New("ai: consultation writer not configured")

// ErrEmptyResponse means the model answered without any text.
var ErrEmptyResponse = errors.New("ai: empty response")

// ConsultationInput is everything the prompt is built from. PatientName is
// the display name, never the decrypted legal name.
type ConsultationInput struct {
	PatientName string
	AgeGroup    string
	Gender      string
	HealthType  scoring.HealthType
	Scores      scoring.Scores
	FocusAxes   []scoring.FocusAxis
}

type ConsultationWriter interface {
	WriteConsultation(ctx context.Context, in ConsultationInput) (string, error)
}

// generator is the subset of *genai.Models the writer uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiWriter struct {
	models generator
	model  string
}

// NewWriter returns a Gemini-backed writer, or a writer that always fails
// with ErrNotConfigured when apiKey is empty.
func NewWriter(ctx context.Context, apiKey, model string) (ConsultationWriter, error) {
	if apiKey == "" {
		return disabledWriter{}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiWriter{models: client.Models, model: model}, nil
}

func (w *GeminiWriter) WriteConsultation(ctx context.Context, in ConsultationInput) (string, error) {
	resp, err := w.models.GenerateContent(ctx, w.model, genai.Text(BuildPrompt(in)), nil)
	if err != nil {
		return "", fmt.Errorf("generate consultation: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

type disabledWriter struct{}

func (disabledWriter) WriteConsultation(context.Context, ConsultationInput) (string, error) {
	return "", ErrNotConfigured
}

var axisLabels = map[scoring.Axis]string{
	scoring.AxisSleep:     "수면",
	scoring.AxisDigestion: "소화",
	scoring.AxisEnergy:    "활력",
	scoring.AxisStress:    "스트레스",
	scoring.AxisImmunity:  "면역",
}

// AxisLabel returns the Korean label of a canonical axis, or the axis name.
func AxisLabel(a scoring.Axis) string {
	if l, ok := axisLabels[a]; ok {
		return l
	}
	return string(a)
}

// BuildPrompt renders the consultation prompt. Output is deterministic for
// equal input.
func BuildPrompt(in ConsultationInput) string {
	var b strings.Builder
	b.WriteString("당신은 전문적이고 공감 능력이 뛰어난 약사 보조 AI입니다.\n")
	b.WriteString("아래 환자 정보를 바탕으로 약사가 환자에게 직접 읽어주거나 참고할 수 있는\n")
	b.WriteString("전문 상담 스크립트(150자 내외)를 한국어로 작성해주세요.\n\n")

	b.WriteString("[환자 정보]\n")
	fmt.Fprintf(&b, "- 이름/닉네임: %s\n", in.PatientName)
	fmt.Fprintf(&b, "- 연령대: %s\n", in.AgeGroup)
	fmt.Fprintf(&b, "- 성별: %s\n\n", in.Gender)

	b.WriteString("[NRFT 건강 점수 (0-100)]\n")
	for _, a := range scoring.CanonicalAxes {
		fmt.Fprintf(&b, "- %s: %d\n", AxisLabel(a), in.Scores[a])
	}

	fmt.Fprintf(&b, "\n[분석된 건강 타입]\n%s\n", in.HealthType)

	if len(in.FocusAxes) > 0 {
		labels := make([]string, 0, len(in.FocusAxes))
		for _, f := range in.FocusAxes {
			labels = append(labels, fmt.Sprintf("%s(%d)", AxisLabel(f.Axis), f.Score))
		}
		fmt.Fprintf(&b, "\n[중점 항목]\n%s\n", strings.Join(labels, ", "))
	}

	b.WriteString("\n[작성 가이드]\n")
	b.WriteString("1. 중점 항목에 집중하여 설명하세요.\n")
	b.WriteString("2. 환자의 불편함에 공감하며 시작하세요.\n")
	b.WriteString("3. 구체적인 생활 습관 교정 1가지와 영양소 및 추천 제품 1가지를 추천하세요.\n")
	b.WriteString("4. 의료적 진단(병명 확정)은 피하고, 건강 관리를 위한 조언 어조를 유지하세요.\n")
	b.WriteString("5. \"약사\"가 \"환자\"에게 말하는 존댓말 구어체로 작성하세요.\n")
	return b.String()
}

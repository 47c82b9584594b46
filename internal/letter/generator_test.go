package letter

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/nik45114/hhbot/internal/model"
)

type mockProvider struct {
	response string
	err      error
	prompts  []string
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testResume() ResumeProfile {
	return ResumeProfile{
		Name:     "Никита",
		Position: "Python Developer",
		Summary:  "Опыт разработки бэкенда 5 лет.",
		Skills:   []string{"Python", "Django", "PostgreSQL", "Docker", "Redis", "Kafka"},
	}
}

func testDetail() model.VacancyDetail {
	return model.VacancyDetail{
		Vacancy: model.Vacancy{
			ID:       "123",
			Title:    "Python Developer",
			Employer: "Acme",
			Area:     "Москва",
			Schedule: "remote",
		},
		Description: "Ищем разработчика на Python.",
	}
}

func TestGenerate_UsesProviderResponse(t *testing.T) {
	p := &mockProvider{response: "Добрый день! Отличная вакансия."}
	g := NewGenerator(p, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Generate(context.Background(), testDetail(), "")
	if got != "Добрый день! Отличная вакансия." {
		t.Errorf("got %q, want provider response", got)
	}
	if len(p.prompts) != 1 {
		t.Fatalf("provider called %d times, want 1", len(p.prompts))
	}
	for _, want := range []string{"Python Developer", "Acme", "Ищем разработчика на Python."} {
		if !strings.Contains(p.prompts[0], want) {
			t.Errorf("prompt missing %q:\n%s", want, p.prompts[0])
		}
	}
}

func TestGenerate_FallbackOnProviderError(t *testing.T) {
	p := &mockProvider{err: errors.New("rate limited")}
	g := NewGenerator(p, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Generate(context.Background(), testDetail(), "")
	if !strings.Contains(got, "Python Developer") || !strings.Contains(got, "Acme") {
		t.Errorf("fallback letter missing vacancy fields:\n%s", got)
	}
	if !strings.HasPrefix(got, "Здравствуйте!") {
		t.Errorf("fallback letter has unexpected opening:\n%s", got)
	}
}

func TestGenerate_NilProviderUsesFallback(t *testing.T) {
	g := NewGenerator(nil, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Generate(context.Background(), testDetail(), "")
	if !strings.Contains(got, "Меня заинтересовала вакансия Python Developer в компании Acme.") {
		t.Errorf("got %q, want fallback letter", got)
	}
}

func TestGenerate_EmptyProviderResponseFallsBack(t *testing.T) {
	p := &mockProvider{response: "  \n  "}
	g := NewGenerator(p, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Generate(context.Background(), testDetail(), "")
	if !strings.HasPrefix(got, "Здравствуйте!") {
		t.Errorf("got %q, want fallback letter", got)
	}
}

func TestGenerate_CustomTemplate(t *testing.T) {
	p := &mockProvider{response: "ok"}
	g := NewGenerator(p, CoverLetterTemplate, testResume(), discardLogger())

	_ = g.Generate(context.Background(), testDetail(), "Letter for {{.Vacancy.Title}} as {{.Resume.Position}}")
	if len(p.prompts) != 1 {
		t.Fatalf("provider called %d times, want 1", len(p.prompts))
	}
	if p.prompts[0] != "Letter for Python Developer as Python Developer" {
		t.Errorf("custom prompt = %q", p.prompts[0])
	}
}

func TestGenerate_BrokenCustomTemplateFallsBack(t *testing.T) {
	p := &mockProvider{response: "ok"}
	g := NewGenerator(p, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Generate(context.Background(), testDetail(), "{{.Missing")
	if len(p.prompts) != 0 {
		t.Errorf("provider called %d times, want 0", len(p.prompts))
	}
	if !strings.HasPrefix(got, "Здравствуйте!") {
		t.Errorf("got %q, want fallback letter", got)
	}
}

func TestFallback_CapsSkillsAtFive(t *testing.T) {
	g := NewGenerator(nil, CoverLetterTemplate, testResume(), discardLogger())

	got := g.Fallback(testDetail().Vacancy)
	if !strings.Contains(got, "Python, Django, PostgreSQL, Docker, Redis.") {
		t.Errorf("letter missing capped skill list:\n%s", got)
	}
	if strings.Contains(got, "Kafka") {
		t.Errorf("letter lists more than five skills:\n%s", got)
	}
}

func TestDefaultTemplateRenders(t *testing.T) {
	g := NewGenerator(nil, CoverLetterTemplate, testResume(), discardLogger())

	prompt, err := g.renderPrompt(testDetail(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Python Developer", "Acme", "remote", "Москва", "Опыт разработки бэкенда 5 лет."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("default prompt missing %q", want)
		}
	}
}

package letter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/nik45114/hhbot/internal/model"
)

// ResumeProfile is the candidate data rendered into prompts and
// fallback letters.
type ResumeProfile struct {
	Name     string
	Position string
	Summary  string
	Skills   []string
}

// Generator produces cover letters for vacancies. When the LLM provider
// is unavailable or fails, a deterministic fallback letter is used so an
// application is never blocked on the provider.
type Generator struct {
	provider LLMProvider // nil when AI is disabled
	tmpl     *template.Template
	resume   ResumeProfile
	logger   *slog.Logger
}

// NewGenerator creates a letter generator. provider may be nil, in which
// case every call returns the fallback letter.
func NewGenerator(provider LLMProvider, tmpl *template.Template, resume ResumeProfile, logger *slog.Logger) *Generator {
	return &Generator{
		provider: provider,
		tmpl:     tmpl,
		resume:   resume,
		logger:   logger,
	}
}

// promptVacancy is the vacancy view exposed to prompt templates.
type promptVacancy struct {
	Title       string
	Company     string
	Description string
	Schedule    string
	Location    string
}

// promptData is the root object prompt templates are executed against.
type promptData struct {
	Vacancy promptVacancy
	Resume  ResumeProfile
}

// Generate returns a cover letter for v. When customTmpl is non-empty it
// is parsed and used instead of the default template. Any template or
// provider failure degrades to the fallback letter; Generate never
// returns an empty string.
func (g *Generator) Generate(ctx context.Context, v model.VacancyDetail, customTmpl string) string {
	if g.provider == nil {
		return g.Fallback(v.Vacancy)
	}

	prompt, err := g.renderPrompt(v, customTmpl)
	if err != nil {
		g.logger.Warn("cover letter prompt render failed, using fallback",
			"vacancy_id", v.ID, "error", err)
		return g.Fallback(v.Vacancy)
	}

	text, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.logger.Warn("cover letter generation failed, using fallback",
			"vacancy_id", v.ID, "error", err)
		return g.Fallback(v.Vacancy)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		g.logger.Warn("llm returned empty letter, using fallback", "vacancy_id", v.ID)
		return g.Fallback(v.Vacancy)
	}

	g.logger.Info("cover letter generated",
		"vacancy_id", v.ID, "title", v.Title, "employer", v.Employer)
	return text
}

func (g *Generator) renderPrompt(v model.VacancyDetail, customTmpl string) (string, error) {
	tmpl := g.tmpl
	if customTmpl != "" {
		parsed, err := template.New("custom").Parse(customTmpl)
		if err != nil {
			return "", fmt.Errorf("parse custom template: %w", err)
		}
		tmpl = parsed
	}

	data := promptData{
		Vacancy: promptVacancy{
			Title:       v.Title,
			Company:     v.Employer,
			Description: v.Description,
			Schedule:    v.Schedule,
			Location:    v.Area,
		},
		Resume: g.resume,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Fallback builds a plain letter from resume data alone. It needs no
// vacancy description, so it works for search hits without details.
func (g *Generator) Fallback(v model.Vacancy) string {
	skills := g.resume.Skills
	if len(skills) > 5 {
		skills = skills[:5]
	}

	var b strings.Builder
	b.WriteString("Здравствуйте!\n\n")
	fmt.Fprintf(&b, "Меня заинтересовала вакансия %s в компании %s.\n\n", v.Title, v.Employer)
	if s := strings.TrimSpace(g.resume.Summary); s != "" {
		b.WriteString(s)
		b.WriteString("\n\n")
	}
	if len(skills) > 0 {
		fmt.Fprintf(&b, "Мои ключевые навыки: %s.\n\n", strings.Join(skills, ", "))
	}
	b.WriteString("Буду рад обсудить детали и ответить на ваши вопросы.\n\n")
	b.WriteString("Спасибо за внимание к моей кандидатуре!")
	return b.String()
}

package model

import (
	"context"
	"time"
)

// Vacancy is a single listing as returned by the hh.ru search endpoint.
type Vacancy struct {
	ID          string
	Title       string     // vacancy name
	Employer    string     // employer name
	Area        string     // city/region display name
	URL         string     // alternate_url (human-facing link)
	Schedule    string     // schedule id ("remote", "fullDay", ...)
	SalaryFrom  int        // 0 when the vacancy has no salary
	SalaryTo    int
	Currency    string
	PublishedAt *time.Time // nullable
}

// VacancyDetail is the enriched shape from GET /vacancies/{id}.
type VacancyDetail struct {
	Vacancy
	Description string
	Experience  string // experience id ("between3And6", ...)
	Employment  string // employment id ("full", ...)
	KeySkills   []string
}

// SearchParams mirrors the hh.ru /vacancies query surface. Zero-valued
// optional fields are omitted from the request.
type SearchParams struct {
	Text           string
	AreaID         int
	PerPage        int
	PeriodDays     int
	Schedule       string
	Experience     string
	Employment     string
	SalaryMin      int
	OnlyWithSalary bool
}

// NotifyMode tells the notification collaborator how to render a dispatch.
type NotifyMode string

const (
	// NotifyInteractive asks the collaborator to render accept/skip controls.
	NotifyInteractive NotifyMode = "interactive"
	// NotifyAutoApplied reports an application that was already submitted.
	NotifyAutoApplied NotifyMode = "auto_applied"
)

// VacancyClient is the provider surface the poller and the browse flow use.
type VacancyClient interface {
	Search(ctx context.Context, p SearchParams) ([]Vacancy, error)
	GetDetails(ctx context.Context, vacancyID string) *VacancyDetail
	Apply(ctx context.Context, vacancyID, letter string) ApplyResult
}

// Notifier hands a new posting to the external chat collaborator.
type Notifier interface {
	Notify(chatID int64, v Vacancy, mode NotifyMode) error
}

// Package hh implements the hh.ru API client: vacancy search, detail
// fetch, and application submission over the retrying HTTP layer.
package hh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nik45114/hhbot/internal/auth"
	"github.com/nik45114/hhbot/internal/httpretry"
	"github.com/nik45114/hhbot/internal/model"
)

const publishedAtLayout = "2006-01-02T15:04:05-0700"

// Client talks to the hh.ru REST API.
type Client struct {
	baseURL  string
	resumeID string
	auth     *auth.Manager
	http     httpretry.Doer
	logger   *slog.Logger
}

// NewClient constructs a Client on top of the retrying HTTP layer.
func NewClient(baseURL, resumeID string, authMgr *auth.Manager, doer httpretry.Doer, logger *slog.Logger) *Client {
	return &Client{
		baseURL:  baseURL,
		resumeID: resumeID,
		auth:     authMgr,
		http:     doer,
		logger:   logger,
	}
}

// vacancyItem mirrors a single vacancy in hh.ru list and detail responses.
type vacancyItem struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	AlternateURL string        `json:"alternate_url"`
	PublishedAt  string        `json:"published_at"`
	Employer     *hhEmployer   `json:"employer"`
	Area         *hhArea       `json:"area"`
	Salary       *hhSalary     `json:"salary"`
	Schedule     *hhDictEntry  `json:"schedule"`
	Experience   *hhDictEntry  `json:"experience"`
	Employment   *hhDictEntry  `json:"employment"`
	Description  string        `json:"description"`
	KeySkills    []hhKeySkill  `json:"key_skills"`
}

type hhEmployer struct {
	Name string `json:"name"`
}

type hhArea struct {
	Name string `json:"name"`
}

type hhSalary struct {
	From     int    `json:"from"`
	To       int    `json:"to"`
	Currency string `json:"currency"`
}

type hhDictEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type hhKeySkill struct {
	Name string `json:"name"`
}

// searchResponse is the top-level GET /vacancies response.
type searchResponse struct {
	Items []vacancyItem `json:"items"`
	Found int           `json:"found"`
	Pages int           `json:"pages"`
}

// Search queries /vacancies ordered by publication time. Optional filters
// left at their zero value are omitted from the request. Any non-2xx
// outcome yields an empty list, not an error; only context cancellation
// propagates. Results are returned unfiltered; dedup is the caller's job.
func (c *Client) Search(ctx context.Context, p model.SearchParams) ([]model.Vacancy, error) {
	params := url.Values{}
	params.Set("text", p.Text)
	params.Set("area", strconv.Itoa(p.AreaID))
	params.Set("per_page", strconv.Itoa(p.PerPage))
	params.Set("period", strconv.Itoa(p.PeriodDays))
	params.Set("order_by", "publication_time")
	if p.Schedule != "" {
		params.Set("schedule", p.Schedule)
	}
	if p.Experience != "" {
		params.Set("experience", p.Experience)
	}
	if p.Employment != "" {
		params.Set("employment", p.Employment)
	}
	if p.SalaryMin > 0 {
		params.Set("salary", strconv.Itoa(p.SalaryMin))
		if p.OnlyWithSalary {
			params.Set("only_with_salary", "true")
		}
	}

	reqURL := c.baseURL + "/vacancies?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("vacancy search: %w", err)
	}
	c.auth.Authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Error("vacancy search failed", "query", p.Text, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("vacancy search returned non-OK status",
			"query", p.Text,
			"error", model.NewHTTPError(resp),
		)
		return nil, nil
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		c.logger.Error("vacancy search decode failed", "query", p.Text, "error", err)
		return nil, nil
	}

	vacancies := make([]model.Vacancy, 0, len(sr.Items))
	for _, item := range sr.Items {
		vacancies = append(vacancies, item.toVacancy())
	}
	return vacancies, nil
}

// GetDetails fetches /vacancies/{id}. Returns nil on any failure.
func (c *Client) GetDetails(ctx context.Context, vacancyID string) *model.VacancyDetail {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/vacancies/"+vacancyID, nil)
	if err != nil {
		return nil
	}
	c.auth.Authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("vacancy detail fetch failed", "vacancy_id", vacancyID, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("vacancy detail returned non-OK status",
			"vacancy_id", vacancyID,
			"error", model.NewHTTPError(resp),
		)
		return nil
	}

	var item vacancyItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		c.logger.Warn("vacancy detail decode failed", "vacancy_id", vacancyID, "error", err)
		return nil
	}

	detail := &model.VacancyDetail{
		Vacancy:     item.toVacancy(),
		Description: item.Description,
	}
	if item.Experience != nil {
		detail.Experience = item.Experience.ID
	}
	if item.Employment != nil {
		detail.Employment = item.Employment.ID
	}
	for _, ks := range item.KeySkills {
		detail.KeySkills = append(detail.KeySkills, ks.Name)
	}
	return detail
}

func (v vacancyItem) toVacancy() model.Vacancy {
	out := model.Vacancy{
		ID:    v.ID,
		Title: v.Name,
		URL:   v.AlternateURL,
	}
	if v.Employer != nil {
		out.Employer = v.Employer.Name
	}
	if v.Area != nil {
		out.Area = v.Area.Name
	}
	if v.Salary != nil {
		out.SalaryFrom = v.Salary.From
		out.SalaryTo = v.Salary.To
		out.Currency = v.Salary.Currency
	}
	if v.Schedule != nil {
		out.Schedule = v.Schedule.ID
	}
	if v.PublishedAt != "" {
		if t, err := time.Parse(publishedAtLayout, v.PublishedAt); err == nil {
			out.PublishedAt = &t
		}
	}
	return out
}

func readBody(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return string(b)
}

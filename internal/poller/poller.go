package poller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nik45114/hhbot/internal/letter"
	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/ratelimit"
)

// defaultQuery is used when a subscriber has neither keywords nor roles.
const defaultQuery = "Python developer"

// Poller drives one poll cycle across all monitored subscribers: it
// searches, drops already-seen postings, dispatches the rest (notify or
// auto-apply), and marks them seen.
type Poller struct {
	store         model.Store
	client        model.VacancyClient
	letters       *letter.Generator
	notifier      model.Notifier
	gate          *ratelimit.Gate
	pageSize      int
	periodDays    int
	dailyCap      int // 0 = no cap
	dispatchPause time.Duration
	logger        *slog.Logger
}

// New creates a poller wired with all its dependencies.
func New(
	store model.Store,
	client model.VacancyClient,
	letters *letter.Generator,
	notifier model.Notifier,
	gate *ratelimit.Gate,
	pageSize int,
	periodDays int,
	dailyCap int,
	dispatchPause time.Duration,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		store:         store,
		client:        client,
		letters:       letters,
		notifier:      notifier,
		gate:          gate,
		pageSize:      pageSize,
		periodDays:    periodDays,
		dailyCap:      dailyCap,
		dispatchPause: dispatchPause,
		logger:        logger,
	}
}

// RunCycle polls every subscriber with monitoring enabled, in sequence.
// A single subscriber's failure is logged and never aborts the cycle.
func (p *Poller) RunCycle(ctx context.Context) error {
	chatIDs, err := p.store.EnabledSubscribers()
	if err != nil {
		return fmt.Errorf("loading subscribers: %w", err)
	}

	for _, chatID := range chatIDs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := p.PollSubscriber(ctx, chatID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.logger.Error("subscriber poll failed", "chat_id", chatID, "error", err)
		}
	}
	return nil
}

// PollSubscriber runs the pipeline for one subscriber: derive the query
// from preferences, search, drop already-seen postings, update the
// last-check stamp, and dispatch what is left.
func (p *Poller) PollSubscriber(ctx context.Context, chatID int64) error {
	prefs, err := p.store.GetPreferences(chatID)
	if err != nil {
		return fmt.Errorf("loading preferences: %w", err)
	}

	if err := p.gate.Wait(ctx); err != nil {
		return err
	}

	vacancies, err := p.client.Search(ctx, SearchParamsFor(prefs, p.pageSize, p.periodDays))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(vacancies) == 0 {
		p.logger.Debug("no search results", "chat_id", chatID)
		return nil
	}

	var fresh []model.Vacancy
	for _, v := range vacancies {
		seen, err := p.store.IsSeen(chatID, v.ID)
		if err != nil {
			return fmt.Errorf("checking seen status: %w", err)
		}
		if !seen {
			fresh = append(fresh, v)
		}
	}
	if len(fresh) == 0 {
		p.logger.Debug("no new vacancies", "chat_id", chatID, "fetched", len(vacancies))
		return nil
	}

	now := time.Now().UTC()
	if err := p.store.UpdateMonitoring(chatID, nil, &now); err != nil {
		return fmt.Errorf("updating last check: %w", err)
	}

	for i, v := range fresh {
		if i > 0 {
			if err := sleepCtx(ctx, p.dispatchPause); err != nil {
				return err
			}
		}
		if err := p.dispatch(ctx, prefs, v); err != nil {
			p.logger.Error("dispatch failed",
				"chat_id", chatID, "vacancy_id", v.ID, "error", err)
			continue
		}
		if err := p.store.MarkSeen(chatID, v.ID); err != nil {
			return fmt.Errorf("marking seen: %w", err)
		}
	}

	p.logger.Info("polled subscriber",
		"chat_id", chatID,
		"fetched", len(vacancies),
		"new", len(fresh),
	)
	return nil
}

// dispatch hands one new vacancy to the subscriber: auto-apply when the
// preference enables it and the daily cap allows, otherwise notify with
// interactive controls.
func (p *Poller) dispatch(ctx context.Context, prefs model.Preferences, v model.Vacancy) error {
	if prefs.AutoApply && p.underDailyCap(prefs.ChatID) {
		return p.autoApply(ctx, prefs, v)
	}
	return p.notifier.Notify(prefs.ChatID, v, model.NotifyInteractive)
}

// autoApply generates a cover letter, submits the application, records
// the attempt, and reports the result to the subscriber. The application
// log is appended whether the apply succeeded or not.
func (p *Poller) autoApply(ctx context.Context, prefs model.Preferences, v model.Vacancy) error {
	letterText := p.coverLetter(ctx, prefs, v)

	if err := p.gate.Wait(ctx); err != nil {
		return err
	}
	res := p.client.Apply(ctx, v.ID, letterText)

	rec := model.ApplicationRecord{
		ChatID:       prefs.ChatID,
		VacancyID:    v.ID,
		VacancyTitle: v.Title,
		Employer:     v.Employer,
		CoverLetter:  letterText,
		Status:       model.ApplicationStatusSuccess,
	}
	if !res.Outcome.OK() {
		rec.Status = model.ApplicationStatusFailed
		rec.Error = res.Message
	}
	if err := p.store.LogApplication(rec); err != nil {
		return fmt.Errorf("logging application: %w", err)
	}
	if err := p.store.MarkProcessed(prefs.ChatID, v.ID); err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}

	p.logger.Info("auto-applied",
		"chat_id", prefs.ChatID,
		"vacancy_id", v.ID,
		"title", v.Title,
		"outcome", string(res.Outcome),
	)

	if err := p.notifier.Notify(prefs.ChatID, v, model.NotifyAutoApplied); err != nil {
		p.logger.Error("auto-apply notification failed",
			"chat_id", prefs.ChatID, "vacancy_id", v.ID, "error", err)
	}
	return nil
}

// coverLetter fetches vacancy details for the prompt; when the detail
// call fails the deterministic fallback letter is used instead.
func (p *Poller) coverLetter(ctx context.Context, prefs model.Preferences, v model.Vacancy) string {
	if err := p.gate.Wait(ctx); err != nil {
		return p.letters.Fallback(v)
	}
	detail := p.client.GetDetails(ctx, v.ID)
	if detail == nil {
		return p.letters.Fallback(v)
	}
	return p.letters.Generate(ctx, *detail, prefs.Prompt)
}

// underDailyCap reports whether another application may be submitted
// today. A failing count check blocks auto-apply rather than risking an
// over-cap application.
func (p *Poller) underDailyCap(chatID int64) bool {
	if p.dailyCap <= 0 {
		return true
	}
	midnight := time.Now().UTC().Truncate(24 * time.Hour)
	n, err := p.store.CountApplications(chatID, &midnight)
	if err != nil {
		p.logger.Error("counting applications failed", "chat_id", chatID, "error", err)
		return false
	}
	if n >= p.dailyCap {
		p.logger.Info("daily application cap reached",
			"chat_id", chatID, "count", n, "cap", p.dailyCap)
		return false
	}
	return true
}

// SearchParamsFor derives the provider query from subscriber preferences.
// Query text prefers keywords, then roles, then the default phrase.
func SearchParamsFor(prefs model.Preferences, pageSize, periodDays int) model.SearchParams {
	text := defaultQuery
	if len(prefs.Keywords) > 0 {
		text = strings.Join(prefs.Keywords, " ")
	} else if len(prefs.Roles) > 0 {
		text = strings.Join(prefs.Roles, " ")
	}

	schedule := prefs.Schedule
	if prefs.RemoteOnly {
		schedule = "remote"
	}

	return model.SearchParams{
		Text:           text,
		AreaID:         prefs.AreaID,
		PerPage:        pageSize,
		PeriodDays:     periodDays,
		Schedule:       schedule,
		Experience:     prefs.Experience,
		Employment:     prefs.Employment,
		SalaryMin:      prefs.SalaryMin,
		OnlyWithSalary: prefs.SalaryMin > 0,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

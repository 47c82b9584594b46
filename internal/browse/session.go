package browse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nik45114/hhbot/internal/letter"
	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/poller"
	"github.com/nik45114/hhbot/internal/ratelimit"
)

// Session is the interactive accept/skip flow for one subscriber. It
// shares the store, client, and rate-limit gate with the poller, so a
// vacancy handled here never comes back through the background poll.
type Session struct {
	chatID  int64
	prefs   model.Preferences
	store   model.Store
	client  model.VacancyClient
	letters *letter.Generator
	gate    *ratelimit.Gate
	logger  *slog.Logger
}

// NewSession loads the subscriber's preferences and returns a session.
func NewSession(
	chatID int64,
	store model.Store,
	client model.VacancyClient,
	letters *letter.Generator,
	gate *ratelimit.Gate,
	logger *slog.Logger,
) (*Session, error) {
	prefs, err := store.GetPreferences(chatID)
	if err != nil {
		return nil, fmt.Errorf("loading preferences: %w", err)
	}
	return &Session{
		chatID:  chatID,
		prefs:   prefs,
		store:   store,
		client:  client,
		letters: letters,
		gate:    gate,
		logger:  logger,
	}, nil
}

// Query returns the search text derived from the subscriber's preferences.
func (s *Session) Query() string {
	return poller.SearchParamsFor(s.prefs, 1, 1).Text
}

// LoadNew searches with the subscriber's preferences and drops vacancies
// already seen or already handled interactively.
func (s *Session) LoadNew(ctx context.Context, pageSize, periodDays int) ([]model.Vacancy, error) {
	if err := s.gate.Wait(ctx); err != nil {
		return nil, err
	}
	vacancies, err := s.client.Search(ctx, poller.SearchParamsFor(s.prefs, pageSize, periodDays))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var fresh []model.Vacancy
	for _, v := range vacancies {
		seen, err := s.store.IsSeen(s.chatID, v.ID)
		if err != nil {
			return nil, fmt.Errorf("checking seen status: %w", err)
		}
		if seen {
			continue
		}
		processed, err := s.store.IsProcessed(s.chatID, v.ID)
		if err != nil {
			return nil, fmt.Errorf("checking processed status: %w", err)
		}
		if processed {
			continue
		}
		fresh = append(fresh, v)
	}
	return fresh, nil
}

// Detail fetches the enriched vacancy; nil when the provider call fails.
func (s *Session) Detail(ctx context.Context, vacancyID string) *model.VacancyDetail {
	if err := s.gate.Wait(ctx); err != nil {
		return nil
	}
	return s.client.GetDetails(ctx, vacancyID)
}

// Apply submits an application for v with a generated cover letter,
// appends the attempt to the application log, and marks the vacancy
// both processed and seen. detail may be nil.
func (s *Session) Apply(ctx context.Context, v model.Vacancy, detail *model.VacancyDetail) (model.ApplyResult, error) {
	var letterText string
	if detail != nil {
		letterText = s.letters.Generate(ctx, *detail, s.prefs.Prompt)
	} else {
		letterText = s.letters.Fallback(v)
	}

	if err := s.gate.Wait(ctx); err != nil {
		return model.ApplyResult{}, err
	}
	res := s.client.Apply(ctx, v.ID, letterText)

	rec := model.ApplicationRecord{
		ChatID:       s.chatID,
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
	if err := s.store.LogApplication(rec); err != nil {
		return res, fmt.Errorf("logging application: %w", err)
	}
	if err := s.markHandled(v.ID); err != nil {
		return res, err
	}

	s.logger.Info("interactive apply",
		"chat_id", s.chatID,
		"vacancy_id", v.ID,
		"outcome", string(res.Outcome),
	)
	return res, nil
}

// Skip marks v both processed and seen without applying, so neither the
// browse list nor the background poll surfaces it again.
func (s *Session) Skip(v model.Vacancy) error {
	if err := s.markHandled(v.ID); err != nil {
		return err
	}
	s.logger.Info("vacancy skipped", "chat_id", s.chatID, "vacancy_id", v.ID)
	return nil
}

func (s *Session) markHandled(vacancyID string) error {
	if err := s.store.MarkProcessed(s.chatID, vacancyID); err != nil {
		return fmt.Errorf("marking processed: %w", err)
	}
	if err := s.store.MarkSeen(s.chatID, vacancyID); err != nil {
		return fmt.Errorf("marking seen: %w", err)
	}
	return nil
}

package browse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nik45114/hhbot/internal/letter"
	"github.com/nik45114/hhbot/internal/model"
	"github.com/nik45114/hhbot/internal/ratelimit"
)

type fakeStore struct {
	prefs     map[int64]model.Preferences
	seen      map[string]bool
	processed map[string]bool
	apps      []model.ApplicationRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:     make(map[int64]model.Preferences),
		seen:      make(map[string]bool),
		processed: make(map[string]bool),
	}
}

func key(chatID int64, vacancyID string) string {
	return fmt.Sprintf("%d|%s", chatID, vacancyID)
}

func (s *fakeStore) GetOrCreateUser(int64, string) error { return nil }

func (s *fakeStore) GetPreferences(chatID int64) (model.Preferences, error) {
	if p, ok := s.prefs[chatID]; ok {
		return p, nil
	}
	return model.DefaultPreferences(chatID), nil
}

func (s *fakeStore) UpdatePreferences(int64, model.PreferencesUpdate) error { return nil }

func (s *fakeStore) MonitoringState(chatID int64) (model.MonitoringState, error) {
	return model.MonitoringState{ChatID: chatID}, nil
}

func (s *fakeStore) UpdateMonitoring(int64, *bool, *time.Time) error { return nil }

func (s *fakeStore) EnabledSubscribers() ([]int64, error) { return nil, nil }

func (s *fakeStore) IsSeen(chatID int64, vacancyID string) (bool, error) {
	return s.seen[key(chatID, vacancyID)], nil
}

func (s *fakeStore) MarkSeen(chatID int64, vacancyID string) error {
	s.seen[key(chatID, vacancyID)] = true
	return nil
}

func (s *fakeStore) IsProcessed(chatID int64, vacancyID string) (bool, error) {
	return s.processed[key(chatID, vacancyID)], nil
}

func (s *fakeStore) MarkProcessed(chatID int64, vacancyID string) error {
	s.processed[key(chatID, vacancyID)] = true
	return nil
}

func (s *fakeStore) LogApplication(rec model.ApplicationRecord) error {
	s.apps = append(s.apps, rec)
	return nil
}

func (s *fakeStore) CountApplications(int64, *time.Time) (int, error) { return len(s.apps), nil }

func (s *fakeStore) RecentApplications(int64, int) ([]model.ApplicationRecord, error) {
	return nil, nil
}

type fakeClient struct {
	vacancies   []model.Vacancy
	detail      *model.VacancyDetail
	applyResult model.ApplyResult
	applied     []string
	letters     []string
}

func (c *fakeClient) Search(context.Context, model.SearchParams) ([]model.Vacancy, error) {
	return c.vacancies, nil
}

func (c *fakeClient) GetDetails(context.Context, string) *model.VacancyDetail {
	return c.detail
}

func (c *fakeClient) Apply(_ context.Context, vacancyID, letterText string) model.ApplyResult {
	c.applied = append(c.applied, vacancyID)
	c.letters = append(c.letters, letterText)
	return c.applyResult
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, store model.Store, client model.VacancyClient) *Session {
	t.Helper()
	gen := letter.NewGenerator(nil, letter.CoverLetterTemplate, letter.ResumeProfile{
		Name:    "Тест",
		Summary: "Опыт 5 лет.",
		Skills:  []string{"Python"},
	}, discardLogger())
	s, err := NewSession(100, store, client, gen, ratelimit.NewGate(0), discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func vacancies(ids ...string) []model.Vacancy {
	vs := make([]model.Vacancy, len(ids))
	for i, id := range ids {
		vs[i] = model.Vacancy{ID: id, Title: "Dev " + id, Employer: "Acme"}
	}
	return vs
}

func TestLoadNew_FiltersSeenAndProcessed(t *testing.T) {
	store := newFakeStore()
	store.seen[key(100, "1")] = true
	store.processed[key(100, "2")] = true
	client := &fakeClient{vacancies: vacancies("1", "2", "3")}

	s := newTestSession(t, store, client)
	got, err := s.LoadNew(context.Background(), 10, 1)
	if err != nil {
		t.Fatalf("LoadNew() = %v, want nil", err)
	}
	if len(got) != 1 || got[0].ID != "3" {
		t.Errorf("LoadNew() = %v, want vacancy 3 only", got)
	}
}

func TestApply_MarksHandledAndLogs(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{applyResult: model.ApplyResult{Outcome: model.ApplySuccess}}

	s := newTestSession(t, store, client)
	v := vacancies("1")[0]
	res, err := s.Apply(context.Background(), v, nil)
	if err != nil {
		t.Fatalf("Apply() = %v, want nil", err)
	}
	if res.Outcome != model.ApplySuccess {
		t.Errorf("outcome = %q", res.Outcome)
	}
	if len(client.letters) != 1 || client.letters[0] == "" {
		t.Error("apply submitted without a cover letter")
	}
	if !store.seen[key(100, "1")] || !store.processed[key(100, "1")] {
		t.Error("vacancy not marked seen and processed")
	}
	if len(store.apps) != 1 || store.apps[0].Status != model.ApplicationStatusSuccess {
		t.Errorf("application log = %+v", store.apps)
	}
}

func TestApply_FailureRecordedAsFailed(t *testing.T) {
	store := newFakeStore()
	client := &fakeClient{applyResult: model.ApplyResult{Outcome: model.ApplyRejected, Message: "no match"}}

	s := newTestSession(t, store, client)
	if _, err := s.Apply(context.Background(), vacancies("1")[0], nil); err != nil {
		t.Fatalf("Apply() = %v, want nil", err)
	}
	if store.apps[0].Status != model.ApplicationStatusFailed || store.apps[0].Error != "no match" {
		t.Errorf("record = %+v", store.apps[0])
	}
	if !store.processed[key(100, "1")] {
		t.Error("failed apply not marked processed")
	}
}

func TestSkip_MarksBothSets(t *testing.T) {
	store := newFakeStore()
	s := newTestSession(t, store, &fakeClient{})

	if err := s.Skip(vacancies("1")[0]); err != nil {
		t.Fatalf("Skip() = %v, want nil", err)
	}
	if !store.seen[key(100, "1")] || !store.processed[key(100, "1")] {
		t.Error("skip did not mark seen and processed")
	}
	if len(store.apps) != 0 {
		t.Errorf("skip logged an application: %+v", store.apps)
	}
}

func TestQuery_UsesPreferences(t *testing.T) {
	store := newFakeStore()
	prefs := model.DefaultPreferences(100)
	prefs.Keywords = []string{"Go", "backend"}
	store.prefs[100] = prefs

	s := newTestSession(t, store, &fakeClient{})
	if got := s.Query(); got != "Go backend" {
		t.Errorf("Query() = %q, want keyword join", got)
	}
}

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nik45114/hhbot/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string        { return &s }
func boolPtr(b bool) *bool           { return &b }
func intPtr(i int) *int              { return &i }
func listPtr(v ...string) *[]string  { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func TestMarkSeenThenIsSeen(t *testing.T) {
	s := newTestStore(t)

	seen, err := s.IsSeen(1, "vac-123")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Error("expected IsSeen false before MarkSeen")
	}

	if err := s.MarkSeen(1, "vac-123"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	seen, err = s.IsSeen(1, "vac-123")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if !seen {
		t.Error("expected IsSeen true after MarkSeen")
	}
}

func TestMarkSeenIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen(1, "vac-456"); err != nil {
		t.Fatalf("first MarkSeen: %v", err)
	}
	if err := s.MarkSeen(1, "vac-456"); err != nil {
		t.Fatalf("second MarkSeen (duplicate): %v", err)
	}
}

func TestSeenIsScopedPerSubscriber(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen(1, "vac-1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	seen, err := s.IsSeen(2, "vac-1")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Error("subscriber 2 must not inherit subscriber 1's seen set")
	}
}

func TestSeenAndProcessedAreIndependent(t *testing.T) {
	s := newTestStore(t)

	if err := s.MarkSeen(1, "vac-1"); err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}

	processed, err := s.IsProcessed(1, "vac-1")
	if err != nil {
		t.Fatalf("IsProcessed: %v", err)
	}
	if processed {
		t.Error("marking seen must not mark processed")
	}

	if err := s.MarkProcessed(1, "vac-2"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	seen, err := s.IsSeen(1, "vac-2")
	if err != nil {
		t.Fatalf("IsSeen: %v", err)
	}
	if seen {
		t.Error("marking processed must not mark seen")
	}
}

func TestGetPreferences_UnknownSubscriberReturnsDefaults(t *testing.T) {
	s := newTestStore(t)

	p, err := s.GetPreferences(99999)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if p.RoleDomain != "IT" {
		t.Errorf("RoleDomain = %q, want IT", p.RoleDomain)
	}
	if len(p.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty", p.Keywords)
	}
	if p.SalaryMin != 0 {
		t.Errorf("SalaryMin = %d, want 0", p.SalaryMin)
	}
	if p.AreaID != 1 || p.Schedule != "remote" || p.Experience != "between3And6" {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestGetOrCreateUser_SeedsDefaultRows(t *testing.T) {
	s := newTestStore(t)

	if err := s.GetOrCreateUser(42, "tester"); err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}
	// Second call is a no-op.
	if err := s.GetOrCreateUser(42, "tester"); err != nil {
		t.Fatalf("repeat GetOrCreateUser: %v", err)
	}

	p, err := s.GetPreferences(42)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if p.RoleDomain != "IT" || p.City != "Москва" {
		t.Errorf("unexpected seeded preferences: %+v", p)
	}

	st, err := s.MonitoringState(42)
	if err != nil {
		t.Fatalf("MonitoringState: %v", err)
	}
	if st.Enabled {
		t.Error("monitoring should default to disabled")
	}
}

func TestUpdatePreferences_PartialMerge(t *testing.T) {
	s := newTestStore(t)
	if err := s.GetOrCreateUser(7, ""); err != nil {
		t.Fatalf("GetOrCreateUser: %v", err)
	}

	err := s.UpdatePreferences(7, model.PreferencesUpdate{
		Keywords:  listPtr("Python", "Django"),
		SalaryMin: intPtr(150000),
		AutoApply: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}

	p, err := s.GetPreferences(7)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if len(p.Keywords) != 2 || p.Keywords[0] != "Python" {
		t.Errorf("Keywords = %v", p.Keywords)
	}
	if p.SalaryMin != 150000 || !p.AutoApply {
		t.Errorf("unexpected merged prefs: %+v", p)
	}
	// Untouched fields keep their defaults.
	if p.Schedule != "remote" || p.City != "Москва" {
		t.Errorf("unsupplied fields changed: %+v", p)
	}

	// A later partial update must not clobber earlier fields.
	if err := s.UpdatePreferences(7, model.PreferencesUpdate{City: strPtr("Санкт-Петербург"), AreaID: intPtr(2)}); err != nil {
		t.Fatalf("second UpdatePreferences: %v", err)
	}
	p, _ = s.GetPreferences(7)
	if p.City != "Санкт-Петербург" || p.AreaID != 2 {
		t.Errorf("second update not applied: %+v", p)
	}
	if len(p.Keywords) != 2 || p.SalaryMin != 150000 {
		t.Errorf("earlier fields clobbered: %+v", p)
	}
}

func TestUpdatePreferences_CreatesRowForUnknownSubscriber(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpdatePreferences(55, model.PreferencesUpdate{Keywords: listPtr("Go")}); err != nil {
		t.Fatalf("UpdatePreferences: %v", err)
	}
	p, err := s.GetPreferences(55)
	if err != nil {
		t.Fatalf("GetPreferences: %v", err)
	}
	if len(p.Keywords) != 1 || p.Keywords[0] != "Go" {
		t.Errorf("Keywords = %v", p.Keywords)
	}
	if p.RoleDomain != "IT" {
		t.Errorf("defaults missing on implicit create: %+v", p)
	}
}

func TestMonitoringLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpdateMonitoring(1, boolPtr(true), nil); err != nil {
		t.Fatalf("UpdateMonitoring: %v", err)
	}
	if err := s.UpdateMonitoring(2, boolPtr(true), nil); err != nil {
		t.Fatalf("UpdateMonitoring: %v", err)
	}
	if err := s.UpdateMonitoring(3, boolPtr(false), nil); err != nil {
		t.Fatalf("UpdateMonitoring: %v", err)
	}

	ids, err := s.EnabledSubscribers()
	if err != nil {
		t.Fatalf("EnabledSubscribers: %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Fatalf("EnabledSubscribers = %v, want [1 2]", ids)
	}

	// Updating last_check alone must not flip enabled.
	now := time.Now().UTC()
	if err := s.UpdateMonitoring(1, nil, timePtr(now)); err != nil {
		t.Fatalf("UpdateMonitoring last_check: %v", err)
	}
	st, err := s.MonitoringState(1)
	if err != nil {
		t.Fatalf("MonitoringState: %v", err)
	}
	if !st.Enabled {
		t.Error("enabled flag lost on last_check update")
	}
	if st.LastCheck == nil {
		t.Fatal("last_check not recorded")
	}
}

func TestApplicationLog(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, status := range []string{"success", "failed", "success"} {
		err := s.LogApplication(model.ApplicationRecord{
			ChatID:       1,
			VacancyID:    "vac-" + string(rune('a'+i)),
			VacancyTitle: "Python Developer",
			Employer:     "Acme",
			CoverLetter:  "Dear Acme",
			Status:       status,
			AppliedAt:    base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("LogApplication: %v", err)
		}
	}

	total, err := s.CountApplications(1, nil)
	if err != nil {
		t.Fatalf("CountApplications: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	since := base.Add(30 * time.Minute)
	recent, err := s.CountApplications(1, &since)
	if err != nil {
		t.Fatalf("CountApplications since: %v", err)
	}
	if recent != 2 {
		t.Errorf("count since = %d, want 2", recent)
	}

	recs, err := s.RecentApplications(1, 2)
	if err != nil {
		t.Fatalf("RecentApplications: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	if recs[0].VacancyID != "vac-c" {
		t.Errorf("newest first expected, got %q", recs[0].VacancyID)
	}
	if recs[0].Status != "success" || recs[0].Employer != "Acme" {
		t.Errorf("unexpected record: %+v", recs[0])
	}

	// Other subscribers see nothing.
	other, err := s.CountApplications(2, nil)
	if err != nil {
		t.Fatalf("CountApplications other: %v", err)
	}
	if other != 0 {
		t.Errorf("other subscriber count = %d, want 0", other)
	}
}

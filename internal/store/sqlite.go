// Package store persists subscribers, their preferences and monitoring
// state, the seen/processed dedup sets, and the append-only application
// log in a single SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nik45114/hhbot/internal/model"
)

// SQLiteStore implements model.Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.Store = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	chat_id    INTEGER PRIMARY KEY,
	username   TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS preferences (
	chat_id     INTEGER PRIMARY KEY,
	role_domain TEXT    DEFAULT 'IT',
	remote_only INTEGER DEFAULT 0,
	city        TEXT    DEFAULT 'Москва',
	area_id     INTEGER DEFAULT 1,
	keywords    TEXT,
	roles       TEXT,
	salary_min  INTEGER DEFAULT 0,
	schedule    TEXT    DEFAULT 'remote',
	employment  TEXT    DEFAULT 'full',
	experience  TEXT    DEFAULT 'between3And6',
	auto_apply  INTEGER DEFAULT 0,
	prompt      TEXT,
	updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS monitoring (
	chat_id    INTEGER PRIMARY KEY,
	enabled    INTEGER DEFAULT 0,
	last_check DATETIME
);

CREATE TABLE IF NOT EXISTS seen_vacancies (
	chat_id    INTEGER,
	vacancy_id TEXT,
	seen_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (chat_id, vacancy_id)
);

CREATE TABLE IF NOT EXISTS processed_vacancies (
	chat_id      INTEGER,
	vacancy_id   TEXT,
	processed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (chat_id, vacancy_id)
);

CREATE TABLE IF NOT EXISTS applications (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id       INTEGER,
	vacancy_id    TEXT NOT NULL,
	vacancy_title TEXT,
	company_name  TEXT,
	cover_letter  TEXT,
	status        TEXT DEFAULT 'success',
	error_message TEXT,
	applied_at    DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// NewSQLiteStore opens (or creates) the database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// GetOrCreateUser ensures the subscriber exists with default preference
// and monitoring rows. Repeat calls are no-ops.
func (s *SQLiteStore) GetOrCreateUser(chatID int64, username string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("creating user %d: %w", chatID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO users (chat_id, username) VALUES (?, ?)", chatID, username); err != nil {
		return fmt.Errorf("creating user %d: %w", chatID, err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO preferences (chat_id) VALUES (?)", chatID); err != nil {
		return fmt.Errorf("creating preferences for %d: %w", chatID, err)
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO monitoring (chat_id) VALUES (?)", chatID); err != nil {
		return fmt.Errorf("creating monitoring state for %d: %w", chatID, err)
	}

	return tx.Commit()
}

// GetPreferences returns the subscriber's preferences. For an unknown
// subscriber it synthesizes the defaulted record instead of erroring, so
// callers never need an existence check before reading.
func (s *SQLiteStore) GetPreferences(chatID int64) (model.Preferences, error) {
	row := s.db.QueryRow(`
		SELECT role_domain, remote_only, city, area_id, keywords, roles,
		       salary_min, schedule, employment, experience, auto_apply,
		       prompt, updated_at
		FROM preferences WHERE chat_id = ?`, chatID)

	p := model.Preferences{ChatID: chatID}
	var keywords, roles, prompt sql.NullString
	var updatedAt sql.NullTime
	err := row.Scan(
		&p.RoleDomain, &p.RemoteOnly, &p.City, &p.AreaID, &keywords, &roles,
		&p.SalaryMin, &p.Schedule, &p.Employment, &p.Experience, &p.AutoApply,
		&prompt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.DefaultPreferences(chatID), nil
	}
	if err != nil {
		return model.Preferences{}, fmt.Errorf("reading preferences for %d: %w", chatID, err)
	}

	p.Keywords = decodeJSONList(keywords.String)
	p.Roles = decodeJSONList(roles.String)
	p.Prompt = prompt.String
	if updatedAt.Valid {
		p.UpdatedAt = updatedAt.Time
	}
	return p, nil
}

// prefColumns maps each updatable field to its column; used by
// UpdatePreferences to build the partial SET clause.
func prefAssignments(upd model.PreferencesUpdate) ([]string, []any, error) {
	var cols []string
	var args []any

	add := func(col string, val any) {
		cols = append(cols, col+" = ?")
		args = append(args, val)
	}

	if upd.RoleDomain != nil {
		add("role_domain", *upd.RoleDomain)
	}
	if upd.RemoteOnly != nil {
		add("remote_only", *upd.RemoteOnly)
	}
	if upd.City != nil {
		add("city", *upd.City)
	}
	if upd.AreaID != nil {
		add("area_id", *upd.AreaID)
	}
	if upd.Keywords != nil {
		enc, err := json.Marshal(*upd.Keywords)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding keywords: %w", err)
		}
		add("keywords", string(enc))
	}
	if upd.Roles != nil {
		enc, err := json.Marshal(*upd.Roles)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding roles: %w", err)
		}
		add("roles", string(enc))
	}
	if upd.SalaryMin != nil {
		add("salary_min", *upd.SalaryMin)
	}
	if upd.Schedule != nil {
		add("schedule", *upd.Schedule)
	}
	if upd.Employment != nil {
		add("employment", *upd.Employment)
	}
	if upd.Experience != nil {
		add("experience", *upd.Experience)
	}
	if upd.AutoApply != nil {
		add("auto_apply", *upd.AutoApply)
	}
	if upd.Prompt != nil {
		add("prompt", *upd.Prompt)
	}

	return cols, args, nil
}

// UpdatePreferences merges only the supplied fields into the subscriber's
// preference row and stamps updated_at. The row is created with defaults
// first if it does not exist yet.
func (s *SQLiteStore) UpdatePreferences(chatID int64, upd model.PreferencesUpdate) error {
	cols, args, err := prefAssignments(upd)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("updating preferences for %d: %w", chatID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO preferences (chat_id) VALUES (?)", chatID); err != nil {
		return fmt.Errorf("updating preferences for %d: %w", chatID, err)
	}

	query := fmt.Sprintf(
		"UPDATE preferences SET %s, updated_at = CURRENT_TIMESTAMP WHERE chat_id = ?",
		strings.Join(cols, ", "),
	)
	args = append(args, chatID)
	if _, err := tx.Exec(query, args...); err != nil {
		return fmt.Errorf("updating preferences for %d: %w", chatID, err)
	}

	return tx.Commit()
}

// MonitoringState returns the subscriber's monitoring row, defaulting to
// disabled for unknown subscribers.
func (s *SQLiteStore) MonitoringState(chatID int64) (model.MonitoringState, error) {
	st := model.MonitoringState{ChatID: chatID}
	var lastCheck sql.NullTime
	err := s.db.QueryRow("SELECT enabled, last_check FROM monitoring WHERE chat_id = ?", chatID).
		Scan(&st.Enabled, &lastCheck)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading monitoring state for %d: %w", chatID, err)
	}
	if lastCheck.Valid {
		t := lastCheck.Time
		st.LastCheck = &t
	}
	return st, nil
}

// UpdateMonitoring writes the supplied fields of the monitoring row;
// nil fields are left untouched.
func (s *SQLiteStore) UpdateMonitoring(chatID int64, enabled *bool, lastCheck *time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("updating monitoring for %d: %w", chatID, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR IGNORE INTO monitoring (chat_id) VALUES (?)", chatID); err != nil {
		return fmt.Errorf("updating monitoring for %d: %w", chatID, err)
	}
	if enabled != nil {
		if _, err := tx.Exec("UPDATE monitoring SET enabled = ? WHERE chat_id = ?", *enabled, chatID); err != nil {
			return fmt.Errorf("updating monitoring for %d: %w", chatID, err)
		}
	}
	if lastCheck != nil {
		if _, err := tx.Exec("UPDATE monitoring SET last_check = ? WHERE chat_id = ?", *lastCheck, chatID); err != nil {
			return fmt.Errorf("updating monitoring for %d: %w", chatID, err)
		}
	}

	return tx.Commit()
}

// EnabledSubscribers returns the chat ids of all subscribers with
// monitoring enabled.
func (s *SQLiteStore) EnabledSubscribers() ([]int64, error) {
	rows, err := s.db.Query("SELECT chat_id FROM monitoring WHERE enabled = 1 ORDER BY chat_id")
	if err != nil {
		return nil, fmt.Errorf("listing enabled subscribers: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("listing enabled subscribers: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsSeen reports whether the posting was already delivered to the
// subscriber by the background poll.
func (s *SQLiteStore) IsSeen(chatID int64, vacancyID string) (bool, error) {
	return s.exists("seen_vacancies", chatID, vacancyID)
}

// MarkSeen records a delivery. Duplicate marks are no-ops.
func (s *SQLiteStore) MarkSeen(chatID int64, vacancyID string) error {
	return s.insertMembership("seen_vacancies", chatID, vacancyID)
}

// IsProcessed reports whether the posting was already acted upon in the
// interactive flow. Independent of the seen set.
func (s *SQLiteStore) IsProcessed(chatID int64, vacancyID string) (bool, error) {
	return s.exists("processed_vacancies", chatID, vacancyID)
}

// MarkProcessed records an interactive skip/apply. Duplicate marks are no-ops.
func (s *SQLiteStore) MarkProcessed(chatID int64, vacancyID string) error {
	return s.insertMembership("processed_vacancies", chatID, vacancyID)
}

func (s *SQLiteStore) exists(table string, chatID int64, vacancyID string) (bool, error) {
	var one int
	err := s.db.QueryRow(
		"SELECT 1 FROM "+table+" WHERE chat_id = ? AND vacancy_id = ?",
		chatID, vacancyID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s for (%d, %s): %w", table, chatID, vacancyID, err)
	}
	return true, nil
}

func (s *SQLiteStore) insertMembership(table string, chatID int64, vacancyID string) error {
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO "+table+" (chat_id, vacancy_id) VALUES (?, ?)",
		chatID, vacancyID,
	)
	if err != nil {
		return fmt.Errorf("inserting into %s for (%d, %s): %w", table, chatID, vacancyID, err)
	}
	return nil
}

// LogApplication appends one entry to the application log. Entries are
// never mutated or deleted.
func (s *SQLiteStore) LogApplication(rec model.ApplicationRecord) error {
	appliedAt := rec.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO applications
			(chat_id, vacancy_id, vacancy_title, company_name, cover_letter, status, error_message, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ChatID, rec.VacancyID, rec.VacancyTitle, rec.Employer,
		rec.CoverLetter, rec.Status, rec.Error, appliedAt,
	)
	if err != nil {
		return fmt.Errorf("logging application for (%d, %s): %w", rec.ChatID, rec.VacancyID, err)
	}
	return nil
}

// CountApplications counts the subscriber's log entries, optionally only
// those at or after since.
func (s *SQLiteStore) CountApplications(chatID int64, since *time.Time) (int, error) {
	var count int
	var err error
	if since != nil {
		err = s.db.QueryRow(
			"SELECT COUNT(*) FROM applications WHERE chat_id = ? AND applied_at >= ?",
			chatID, *since,
		).Scan(&count)
	} else {
		err = s.db.QueryRow(
			"SELECT COUNT(*) FROM applications WHERE chat_id = ?",
			chatID,
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting applications for %d: %w", chatID, err)
	}
	return count, nil
}

// RecentApplications returns the subscriber's newest log entries, most
// recent first.
func (s *SQLiteStore) RecentApplications(chatID int64, limit int) ([]model.ApplicationRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, chat_id, vacancy_id, vacancy_title, company_name,
		       cover_letter, status, error_message, applied_at
		FROM applications
		WHERE chat_id = ?
		ORDER BY applied_at DESC, id DESC
		LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading recent applications for %d: %w", chatID, err)
	}
	defer rows.Close()

	var recs []model.ApplicationRecord
	for rows.Next() {
		var rec model.ApplicationRecord
		var title, company, letter, errMsg sql.NullString
		if err := rows.Scan(
			&rec.ID, &rec.ChatID, &rec.VacancyID, &title, &company,
			&letter, &rec.Status, &errMsg, &rec.AppliedAt,
		); err != nil {
			return nil, fmt.Errorf("reading recent applications for %d: %w", chatID, err)
		}
		rec.VacancyTitle = title.String
		rec.Employer = company.String
		rec.CoverLetter = letter.String
		rec.Error = errMsg.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// decodeJSONList parses a JSON-encoded string array column; empty or
// malformed values decode to an empty list.
func decodeJSONList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}

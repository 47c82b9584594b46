package model

import "time"

// Default preference values, matching the defaults a fresh subscriber gets.
const (
	DefaultRoleDomain = "IT"
	DefaultCity       = "Москва"
	DefaultAreaID     = 1
	DefaultSchedule   = "remote"
	DefaultEmployment = "full"
	DefaultExperience = "between3And6"
)

// Preferences is one subscriber's search and apply configuration.
type Preferences struct {
	ChatID     int64
	RoleDomain string
	RemoteOnly bool
	City       string
	AreaID     int
	Keywords   []string // ordered free-text search keywords
	Roles      []string // selected role labels
	SalaryMin  int      // 0 = unset
	Schedule   string
	Employment string
	Experience string
	AutoApply  bool
	Prompt     string // custom cover letter template, empty = default
	UpdatedAt  time.Time
}

// DefaultPreferences returns the fully-defaulted record synthesized for a
// subscriber that has no preferences row yet.
func DefaultPreferences(chatID int64) Preferences {
	return Preferences{
		ChatID:     chatID,
		RoleDomain: DefaultRoleDomain,
		City:       DefaultCity,
		AreaID:     DefaultAreaID,
		Keywords:   []string{},
		Roles:      []string{},
		Schedule:   DefaultSchedule,
		Employment: DefaultEmployment,
		Experience: DefaultExperience,
	}
}

// PreferencesUpdate is a partial update: only non-nil fields are written.
type PreferencesUpdate struct {
	RoleDomain *string
	RemoteOnly *bool
	City       *string
	AreaID     *int
	Keywords   *[]string
	Roles      *[]string
	SalaryMin  *int
	Schedule   *string
	Employment *string
	Experience *string
	AutoApply  *bool
	Prompt     *string
}

// MonitoringState controls whether the poller includes a subscriber.
type MonitoringState struct {
	ChatID    int64
	Enabled   bool
	LastCheck *time.Time
}

// ApplicationRecord is one append-only entry in the application log.
type ApplicationRecord struct {
	ID           int64
	ChatID       int64
	VacancyID    string
	VacancyTitle string
	Employer     string
	CoverLetter  string
	Status       string // "success" or "failed"
	Error        string // optional failure detail
	AppliedAt    time.Time
}

// Application log status values.
const (
	ApplicationStatusSuccess = "success"
	ApplicationStatusFailed  = "failed"
)

// Store is the persistence surface shared by the poller and the
// interactive flow. Seen and processed are independent sets with the same
// key shape: seen covers background-poll delivery, processed covers
// interactive accept/skip.
type Store interface {
	GetOrCreateUser(chatID int64, username string) error

	GetPreferences(chatID int64) (Preferences, error)
	UpdatePreferences(chatID int64, upd PreferencesUpdate) error

	MonitoringState(chatID int64) (MonitoringState, error)
	UpdateMonitoring(chatID int64, enabled *bool, lastCheck *time.Time) error
	EnabledSubscribers() ([]int64, error)

	IsSeen(chatID int64, vacancyID string) (bool, error)
	MarkSeen(chatID int64, vacancyID string) error
	IsProcessed(chatID int64, vacancyID string) (bool, error)
	MarkProcessed(chatID int64, vacancyID string) error

	LogApplication(rec ApplicationRecord) error
	CountApplications(chatID int64, since *time.Time) (int, error)
	RecentApplications(chatID int64, limit int) ([]ApplicationRecord, error)
}

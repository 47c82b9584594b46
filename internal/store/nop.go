package store

import (
	"time"

	"github.com/nik45114/hhbot/internal/model"
)

// NopStore is a throwaway in-memory stand-in used by check mode so a
// one-shot poll never writes anything durable. Reads synthesize the same
// defaults a fresh database would.
type NopStore struct {
	chatID int64
}

var _ model.Store = (*NopStore)(nil)

// NewNopStore returns a NopStore that reports chatID as its only
// monitoring-enabled subscriber.
func NewNopStore(chatID int64) *NopStore {
	return &NopStore{chatID: chatID}
}

func (n *NopStore) GetOrCreateUser(int64, string) error { return nil }

func (n *NopStore) GetPreferences(chatID int64) (model.Preferences, error) {
	return model.DefaultPreferences(chatID), nil
}

func (n *NopStore) UpdatePreferences(int64, model.PreferencesUpdate) error { return nil }

func (n *NopStore) MonitoringState(chatID int64) (model.MonitoringState, error) {
	return model.MonitoringState{ChatID: chatID, Enabled: chatID == n.chatID}, nil
}

func (n *NopStore) UpdateMonitoring(int64, *bool, *time.Time) error { return nil }

func (n *NopStore) EnabledSubscribers() ([]int64, error) {
	return []int64{n.chatID}, nil
}

func (n *NopStore) IsSeen(int64, string) (bool, error)      { return false, nil }
func (n *NopStore) MarkSeen(int64, string) error            { return nil }
func (n *NopStore) IsProcessed(int64, string) (bool, error) { return false, nil }
func (n *NopStore) MarkProcessed(int64, string) error       { return nil }

func (n *NopStore) LogApplication(model.ApplicationRecord) error { return nil }

func (n *NopStore) CountApplications(int64, *time.Time) (int, error) { return 0, nil }

func (n *NopStore) RecentApplications(int64, int) ([]model.ApplicationRecord, error) {
	return nil, nil
}

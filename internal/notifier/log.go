package notifier

import (
	"log/slog"

	"github.com/nik45114/hhbot/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes each dispatched vacancy to the given logger as a
// structured message. Used in check mode and as the default collaborator
// when no webhook is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each vacancy via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the vacancy with employer, title, area, URL, and mode.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(chatID int64, v model.Vacancy, mode model.NotifyMode) error {
	args := []any{
		"chat_id", chatID,
		"mode", string(mode),
		"employer", v.Employer,
		"title", v.Title,
		"area", v.Area,
		"url", v.URL,
	}
	if v.SalaryFrom > 0 || v.SalaryTo > 0 {
		args = append(args, "salary_from", v.SalaryFrom, "salary_to", v.SalaryTo, "currency", v.Currency)
	}
	if v.PublishedAt != nil {
		args = append(args, "published_at", *v.PublishedAt)
	}
	n.logger.Info("new vacancy", args...)
	return nil
}

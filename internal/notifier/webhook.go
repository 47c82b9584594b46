package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nik45114/hhbot/internal/model"
)

// Ensure WebhookNotifier implements model.Notifier.
var _ model.Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier hands each dispatched vacancy to the chat front end
// over an HTTP webhook. The front end owns all rendering; the payload
// carries just the subscriber, the vacancy, and the dispatch mode.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookNotifier returns a notifier that posts each vacancy as JSON
// to webhookURL.
func NewWebhookNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// webhookPayload is the wire shape sent to the chat collaborator.
type webhookPayload struct {
	ChatID  int64          `json:"chat_id"`
	Mode    string         `json:"mode"`
	Vacancy webhookVacancy `json:"vacancy"`
}

type webhookVacancy struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Employer    string `json:"employer"`
	Area        string `json:"area,omitempty"`
	URL         string `json:"url"`
	Schedule    string `json:"schedule,omitempty"`
	SalaryFrom  int    `json:"salary_from,omitempty"`
	SalaryTo    int    `json:"salary_to,omitempty"`
	Currency    string `json:"currency,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}

// Notify posts one vacancy to the webhook. A 429 response is retried
// once after the server's Retry-After (or one second).
func (n *WebhookNotifier) Notify(chatID int64, v model.Vacancy, mode model.NotifyMode) error {
	payload := buildPayload(chatID, v, mode)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	resp, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := resp.Header.Get("Retry-After")
		secs, _ := strconv.Atoi(retryAfter)
		if secs <= 0 {
			secs = 1
		}
		n.logger.Warn("webhook rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := n.httpClient.Post(n.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to webhook (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("webhook returned %d on retry", resp2.StatusCode)
		}
		n.logger.Info("webhook notification sent",
			"chat_id", chatID, "vacancy_id", v.ID, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	n.logger.Info("webhook notification sent", "chat_id", chatID, "vacancy_id", v.ID)
	return nil
}

func buildPayload(chatID int64, v model.Vacancy, mode model.NotifyMode) webhookPayload {
	wv := webhookVacancy{
		ID:         v.ID,
		Title:      v.Title,
		Employer:   v.Employer,
		Area:       v.Area,
		URL:        v.URL,
		Schedule:   v.Schedule,
		SalaryFrom: v.SalaryFrom,
		SalaryTo:   v.SalaryTo,
		Currency:   v.Currency,
	}
	if v.PublishedAt != nil {
		wv.PublishedAt = v.PublishedAt.Format(time.RFC3339)
	}
	return webhookPayload{
		ChatID:  chatID,
		Mode:    string(mode),
		Vacancy: wv,
	}
}

// SendTestMessage sends a dummy vacancy to verify the integration works.
func SendTestMessage(n model.Notifier, chatID int64) error {
	now := time.Now()
	testVacancy := model.Vacancy{
		ID:          "test-001",
		Title:       "Test Notification",
		Employer:    "hhbot",
		Area:        "Everywhere",
		URL:         "https://hh.ru/",
		PublishedAt: &now,
	}
	return n.Notify(chatID, testVacancy, model.NotifyInteractive)
}

package hh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/nik45114/hhbot/internal/model"
)

// Apply submits a negotiation (hh.ru's term for an application) for the
// given vacancy with the provided cover letter. A missing access token or
// resume id short-circuits to a configuration error before any network
// call. A 401 triggers exactly one token renewal and one retry of the
// same call; a renewal failure or second 401 is reported as an expired
// credential.
func (c *Client) Apply(ctx context.Context, vacancyID, letter string) model.ApplyResult {
	if c.auth.Token() == "" {
		return model.ApplyResult{
			Outcome: model.ApplyConfigError,
			Message: "no access token configured",
		}
	}
	if c.resumeID == "" {
		return model.ApplyResult{
			Outcome: model.ApplyConfigError,
			Message: "no resume id configured",
		}
	}

	res := c.applyOnce(ctx, vacancyID, letter)
	if res.Outcome != model.ApplyExpiredCredential {
		return res
	}

	// One renewal, one retry. Renewal fails closed, so a missing refresh
	// token ends here without another provider call.
	if err := c.auth.Renew(ctx); err != nil {
		c.logger.Warn("token renewal failed", "vacancy_id", vacancyID, "error", err)
		return model.ApplyResult{
			Outcome: model.ApplyExpiredCredential,
			Message: "credential expired and renewal failed",
		}
	}
	return c.applyOnce(ctx, vacancyID, letter)
}

func (c *Client) applyOnce(ctx context.Context, vacancyID, letter string) model.ApplyResult {
	form := url.Values{}
	form.Set("vacancy_id", vacancyID)
	form.Set("resume_id", c.resumeID)
	form.Set("message", letter)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/negotiations", strings.NewReader(form.Encode()))
	if err != nil {
		return model.ApplyResult{Outcome: model.ApplyTransportError, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.auth.Authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("apply request failed", "vacancy_id", vacancyID, "error", err)
		return model.ApplyResult{Outcome: model.ApplyTransportError, Message: err.Error()}
	}
	defer resp.Body.Close()

	return c.classify(resp, vacancyID)
}

// applyError mirrors the hh.ru error payload on 400/403 responses.
type applyError struct {
	Description string `json:"description"`
	Errors      []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"errors"`
}

func (c *Client) classify(resp *http.Response, vacancyID string) model.ApplyResult {
	switch resp.StatusCode {
	case http.StatusOK:
		return model.ApplyResult{Outcome: model.ApplySuccess}

	case http.StatusCreated:
		return model.ApplyResult{
			Outcome:  model.ApplySuccess,
			Location: resp.Header.Get("Location"),
		}

	case http.StatusConflict:
		// Already applied: idempotent, counts as success.
		return model.ApplyResult{Outcome: model.ApplyAlreadyApplied}

	case http.StatusUnauthorized:
		return model.ApplyResult{Outcome: model.ApplyExpiredCredential}

	case http.StatusForbidden:
		return model.ApplyResult{
			Outcome: model.ApplyRejected,
			Message: providerDetail(resp, false),
		}

	case http.StatusBadRequest:
		return model.ApplyResult{
			Outcome: model.ApplyRejected,
			Message: providerDetail(resp, true),
		}

	case http.StatusTooManyRequests:
		// The retry layer already backed off; if it still surfaces,
		// report a distinct try-later outcome.
		return model.ApplyResult{Outcome: model.ApplyRateLimited}

	default:
		c.logger.Warn("apply returned unexpected status",
			"vacancy_id", vacancyID,
			"status", resp.StatusCode,
		)
		return model.ApplyResult{
			Outcome: model.ApplyRejected,
			Message: fmt.Sprintf("provider returned status %d", resp.StatusCode),
		}
	}
}

// providerDetail extracts the provider description, concatenating
// field-level validation errors when withFields is set. Falls back to the
// raw body when the payload is not the expected JSON shape.
func providerDetail(resp *http.Response, withFields bool) string {
	raw := readBody(resp.Body)

	var ae applyError
	if err := json.Unmarshal([]byte(raw), &ae); err != nil || (ae.Description == "" && len(ae.Errors) == 0) {
		return strings.TrimSpace(raw)
	}

	parts := []string{}
	if ae.Description != "" {
		parts = append(parts, ae.Description)
	}
	if withFields {
		for _, fe := range ae.Errors {
			if fe.Value == "" {
				continue
			}
			if fe.Type != "" {
				parts = append(parts, fe.Type+": "+fe.Value)
			} else {
				parts = append(parts, fe.Value)
			}
		}
	}
	return strings.Join(parts, "; ")
}

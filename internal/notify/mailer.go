package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/oops"
)

// HTTPMailer posts reset messages to a transactional mail API.
type HTTPMailer struct {
	client *resty.Client
	from   string
}

type mailMessage struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

func NewHTTPMailer(baseURL, apiKey, from string, timeout time.Duration) (*HTTPMailer, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("MAIL_API_URL is required for the HTTP mailer")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if key := strings.TrimSpace(apiKey); key != "" {
		rc.SetAuthToken(key)
	}

	return &HTTPMailer{client: rc, from: from}, nil
}

func (m *HTTPMailer) SendPasswordReset(ctx context.Context, notice ResetNotice) error {
	msg := mailMessage{
		From:     m.from,
		To:       notice.Email,
		Subject:  "Reset your Trip Planner password",
		Language: notice.Language,
		Text: fmt.Sprintf(
			"Someone asked to reset the password for this account.\n\nOpen %s before %s to choose a new one.\nIf this wasn't you, ignore this message.",
			notice.ResetURL, notice.ExpiresAt.UTC().Format(time.RFC1123),
		),
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/messages")
	if err != nil {
		return oops.Code("NOTIFY_DELIVERY_FAILED").With("user_id", notice.UserID).Wrap(err)
	}
	if resp.IsError() {
		return oops.Code("NOTIFY_DELIVERY_FAILED").
			With("user_id", notice.UserID).
			With("status", resp.StatusCode()).
			Errorf("mail api rejected message")
	}
	return nil
}

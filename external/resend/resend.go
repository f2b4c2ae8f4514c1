package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResendMailer delivers transactional mail through the Resend HTTP API.
type ResendMailer struct {
	apiKey  string
	from    string
	client  *http.Client
	baseURL string
}

func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if apiKey == "" {
		return nil, errors.New("mail.resend_api_key not set")
	}
	if from == "" {
		return nil, errors.New("mail.from not set")
	}

	return &ResendMailer{
		apiKey: apiKey,
		from:   from,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL: "https://api.resend.com",
	}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

func (m *ResendMailer) SendPasswordReset(ctx context.Context, toEmail, resetURL string) error {
	return m.send(ctx, sendRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Your password reset token (valid for 10 min)",
		HTML: `
			<p>Forgot your password?</p>
			<p>Set a new one here: <a href="` + resetURL + `">Reset password</a></p>
			<p>If you didn't request this, please ignore this email.</p>
		`,
		Text: "Forgot your password? Set a new one here: " + resetURL +
			"\nIf you didn't request this, please ignore this email.",
	})
}

func (m *ResendMailer) send(ctx context.Context, body sendRequest) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

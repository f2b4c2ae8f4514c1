package abstractapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// AbstractReputationValidator rejects signups from disposable, role-based or
// low-reputation addresses. It is chained after the local format check.
type AbstractReputationValidator struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

func NewAbstractReputationValidator(apiKey string) (*AbstractReputationValidator, error) {
	if apiKey == "" {
		return nil, errors.New("email_reputation.api_key not set")
	}

	return &AbstractReputationValidator{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: "https://emailreputation.abstractapi.com/v1/",
	}, nil
}

type reputationResponse struct {
	EmailDeliverability struct {
		Status string `json:"status"` // deliverable | undeliverable | unknown
	} `json:"email_deliverability"`
	EmailQuality struct {
		Score        json.Number `json:"score"`
		IsDisposable bool        `json:"is_disposable"`
		IsRole       bool        `json:"is_role"`
	} `json:"email_quality"`
}

func (v *AbstractReputationValidator) Validate(ctx context.Context, email string) error {
	u, err := url.Parse(v.endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("api_key", v.apiKey)
	q.Set("email", email)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email reputation service error: %s", resp.Status)
	}

	var out reputationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}

	if out.EmailQuality.IsDisposable {
		return errors.New("disposable email is not allowed")
	}
	if out.EmailQuality.IsRole {
		return errors.New("role-based email is not allowed")
	}
	if out.EmailDeliverability.Status == "undeliverable" {
		return errors.New("email address is undeliverable")
	}
	if score, err := out.EmailQuality.Score.Float64(); err == nil && score < 0.3 {
		return errors.New("email reputation is too low")
	}
	return nil
}

// Package payout sends withdrawal requests to the external payout provider.
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fakaperformance/contest-api/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

var ErrNoEndpoint = errors.New("payout endpoint not configured")

// Client posts JSON payout requests. Any 2xx answer counts as accepted.
type Client struct {
	httpClient *http.Client
}

// NewClient returns a Client whose calls give up after timeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}}
}

type payoutRequest struct {
	Amount     json.Number `json:"amount"`
	WithdrawID string      `json:"withdrawId"`
	IBAN       string      `json:"iban"`
	APIKey     string      `json:"apiKey"`
}

type payoutError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Send implements ports.PayoutGateway.
func (c *Client) Send(ctx context.Context, endpoint string, req ports.PayoutRequest) (*ports.PayoutResult, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}

	body, err := json.Marshal(payoutRequest{
		Amount:     json.Number(req.Amount.String()),
		WithdrawID: req.WithdrawID,
		IBAN:       req.IBAN,
		APIKey:     req.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("payout: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payout: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.WithdrawID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payout: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return &ports.PayoutResult{Accepted: true, StatusCode: resp.StatusCode}, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &ports.PayoutResult{
		StatusCode: resp.StatusCode,
		Reason:     rejectionReason(raw),
	}, nil
}

func rejectionReason(raw []byte) string {
	var pe payoutError
	if err := json.Unmarshal(raw, &pe); err == nil {
		if pe.Error != "" {
			return pe.Error
		}
		if pe.Message != "" {
			return pe.Message
		}
	}
	text := strings.TrimSpace(string(raw))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

// Package settlement talks to the external settlement service: the
// custody layer that owns on-chain funds. The engine never signs or
// submits transactions itself; it asks this service to move value and
// treats any ambiguous outcome (timeout, transport error) as a failure.
package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"reachpay/internal/core/domain"
)

// Client implements port.SettlementService over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient returns a settlement client. Timeout bounds every single
// request; retries with exponential backoff apply only to balance
// queries, never to transfers.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// GetBalance returns the on-chain balance of an address in base units.
// Transient failures are retried with exponential backoff.
func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	var lastErr error
	delay := c.retryDelay
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		balance, err := c.getBalanceOnce(ctx, address)
		if err == nil {
			return balance, nil
		}
		lastErr = err
		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, lastErr
}

func (c *Client) getBalanceOnce(ctx context.Context, address string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/balance/%s", c.baseURL, address), nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance query: unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Balance int64 `json:"balance"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Balance, nil
}

// Transfer asks the settlement service to move amount between custodial
// addresses. The idempotency key (the withdrawal id) lets the service
// collapse a client retry after a timeout into the original transfer. A
// timeout or transport error maps to domain.ErrTransferFailed: the
// transfer must never be assumed to have succeeded.
func (c *Client) Transfer(ctx context.Context, from, to string, amount int64, idempotencyKey string) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"from":            from,
		"to":              to,
		"amount":          amount,
		"idempotency_key": idempotencyKey,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transfer", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			TxID string `json:"tx_id"`
		}
		if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("%w: decoding receipt: %v", domain.ErrTransferFailed, err)
		}
		return body.TxID, nil
	case http.StatusPaymentRequired:
		return "", domain.ErrEscrowUnderfunded
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", domain.ErrTransferFailed, resp.StatusCode, msg)
	}
}

// Package wallet implements the HTTP client for the hint-wallet service.
// The wallet is an external collaborator: milestone rewards credit free
// hints there, but a wallet outage must never block scoring or the
// achievement ledger.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/circuitbreaker"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/logger"
	"github.com/nurseprep-hub/nurseprep-progression/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the wallet client.
type ClientConfig struct {
	// BaseURL is the wallet service base URL.
	BaseURL string

	// APIKey authenticates this service to the wallet.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements progression.HintWallet over HTTP.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	logger     *logger.Logger
}

// NewClient creates a new wallet client.
func NewClient(config ClientConfig, log *logger.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		breaker: circuitbreaker.WalletBreaker(func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.Component(name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}),
		retrier: retry.WalletRetrier(),
		logger:  log,
	}
}

type creditRequest struct {
	UserID string `json:"user_id"`
	Hints  int    `json:"hints"`
	Reason string `json:"reason"`
}

type creditResponse struct {
	Balance int    `json:"balance"`
	Error   string `json:"error,omitempty"`
}

// AddHints credits free hints to a user's wallet. Transient failures are
// retried; a 4xx from the wallet is permanent and surfaces as
// shared.ErrWalletRejected.
func (c *Client) AddHints(ctx context.Context, userID string, hints int) error {
	if userID == "" || hints <= 0 {
		return shared.NewDomainError("wallet", "AddHints", shared.ErrInvalidInput, "user ID and positive hint count are required")
	}

	return c.retrier.Do(ctx, func(ctx context.Context) error {
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.credit(ctx, userID, hints)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return retry.Permanent(shared.WrapError("wallet", "AddHints", shared.ErrServiceUnavailable, "circuit open", err))
		}
		return err
	})
}

func (c *Client) credit(ctx context.Context, userID string, hints int) error {
	body, err := json.Marshal(creditRequest{
		UserID: userID,
		Hints:  hints,
		Reason: "milestone-reward",
	})
	if err != nil {
		return retry.Permanent(err)
	}

	fullURL := c.config.BaseURL + "/api/v1/wallets/" + userID + "/credits"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(shared.WrapError("wallet", "AddHints", shared.ErrServiceUnavailable, "request failed", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(shared.WrapError("wallet", "AddHints", shared.ErrExternalService, "read response", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var cr creditResponse
		if err := json.Unmarshal(respBody, &cr); err == nil {
			c.logger.Debug("hints credited",
				logger.UserID(userID),
				logger.Int("hints", hints),
				logger.Int("balance", cr.Balance),
			)
		}
		return nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The wallet understood the request and said no; retrying won't help.
		return retry.Permanent(shared.WrapError("wallet", "AddHints", shared.ErrInvalidInput,
			fmt.Sprintf("wallet rejected credit with status %d", resp.StatusCode),
			errors.New(string(respBody))))

	default:
		return retry.Retryable(shared.WrapError("wallet", "AddHints", shared.ErrServiceUnavailable,
			fmt.Sprintf("wallet returned status %d", resp.StatusCode), nil))
	}
}

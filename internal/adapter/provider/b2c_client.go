package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sacco-ledger/internal/core/ports"
	"sacco-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds the disbursement rail's endpoint and callback URLs.
type Config struct {
	BaseURL    string
	APIKey     string
	ResultURL  string // where the rail posts result callbacks
	TimeoutURL string // where the rail posts queue-timeout callbacks
}

// b2cRequest is the JSON body sent to the rail's B2C endpoint.
type b2cRequest struct {
	RequestID  string `json:"request_id"`
	Amount     int64  `json:"amount"`
	MSISDN     string `json:"msisdn"`
	Remarks    string `json:"remarks,omitempty"`
	ResultURL  string `json:"result_url"`
	TimeoutURL string `json:"timeout_url"`
}

// b2cResponse is the rail's synchronous acceptance envelope.
type b2cResponse struct {
	ConversationID string `json:"conversation_id"`
	ResponseCode   int    `json:"response_code"`
	ResponseDesc   string `json:"response_desc"`
}

// Client implements ports.DisbursementProvider over the rail's HTTP API.
// Sends are idempotent on the rail's side keyed by request_id, so callers
// may safely re-send after transport failures.
type Client struct {
	cfg        Config
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a new disbursement client.
func NewClient(cfg Config, httpClient HTTPClient, log zerolog.Logger) *Client {
	return &Client{cfg: cfg, httpClient: httpClient, log: log}
}

// SendB2C submits one disbursement instruction. A non-zero response code
// or a non-2xx status is a provider failure the caller retries.
func (c *Client) SendB2C(ctx context.Context, req ports.B2CRequest) (*ports.B2CAccepted, error) {
	body, err := json.Marshal(b2cRequest{
		RequestID:  req.RequestID,
		Amount:     req.Amount,
		MSISDN:     req.MSISDN,
		Remarks:    req.Remarks,
		ResultURL:  c.cfg.ResultURL,
		TimeoutURL: c.cfg.TimeoutURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal b2c request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/b2c/paymentrequest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build b2c request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.ErrProviderUnavailable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the log, never for the caller.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("request_id", req.RequestID).
			Bytes("body", snippet).
			Msg("b2c request rejected by provider")
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var out b2cResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("decode provider response: %w", err))
	}
	if out.ResponseCode != 0 {
		return nil, apperror.ErrProviderUnavailable(fmt.Errorf("provider response code %d: %s", out.ResponseCode, out.ResponseDesc))
	}

	return &ports.B2CAccepted{ConversationID: out.ConversationID}, nil
}

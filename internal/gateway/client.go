package gateway

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lojinha/internal/model"

	"github.com/rs/zerolog"
)

// maxLoggedBody caps how much of a gateway body reaches the logs. Full
// payment payloads never do.
const maxLoggedBody = 512

// Client talks the processor's wire protocol: markup-bodied POSTs for
// charges, signed keyed-parameter GETs for queries, both authenticated by
// the account identifier and shared token in the URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	account    string
	token      string
	signer     *Signer
	logger     zerolog.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL, account, token, signingSecret string, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		account:    account,
		token:      token,
		signer:     NewSigner(signingSecret),
		logger:     logger.With().Str("component", "payment-gateway").Logger(),
	}
}

// Charge submits a charge and returns the parsed transaction. A non-2xx
// reply or an unparseable body both surface as ErrGatewayUnavailable; the
// caller is expected to release the order's reservation.
func (c *Client) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResponse, error) {
	body, err := MarshalMarkup("checkout", req)
	if err != nil {
		return nil, fmt.Errorf("failed to build charge payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/checkout?email=%s&token=%s",
		c.baseURL, url.QueryEscape(c.account), url.QueryEscape(c.token))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build charge request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/xml; charset=UTF-8")

	respBody, status, err := c.do(httpReq, "charge")
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.logger.Warn().
			Int("status", status).
			Str("reference", req.Reference).
			Msg("charge rejected by gateway")
		return nil, model.ErrGatewayUnavailable
	}

	var parsed ChargeResponse
	if err := xml.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Error().
			Err(err).
			Str("reference", req.Reference).
			Str("body", truncate(string(respBody))).
			Msg("failed to parse charge response")
		return nil, model.ErrGatewayUnavailable
	}
	if parsed.Code == "" {
		return nil, model.ErrGatewayUnavailable
	}

	c.logger.Info().
		Str("reference", req.Reference).
		Str("transaction_code", parsed.Code).
		Int("gateway_status", parsed.Status).
		Msg("charge issued")

	return &parsed, nil
}

// FetchNotification resolves a webhook notification code into the current
// transaction status via a signed query.
func (c *Client) FetchNotification(ctx context.Context, notificationCode string) (*TransactionStatus, error) {
	params := url.Values{}
	params.Set("email", c.account)
	params.Set("token", c.token)
	params.Set("notificationCode", notificationCode)

	endpoint := fmt.Sprintf("%s/v3/transactions/notifications?%s",
		c.baseURL, c.signer.Signed(params).Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build notification request: %w", err)
	}

	respBody, status, err := c.do(httpReq, "notification")
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, model.ErrGatewayUnavailable
	}

	var parsed TransactionStatus
	if err := xml.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Error().
			Err(err).
			Str("notification_code", notificationCode).
			Str("body", truncate(string(respBody))).
			Msg("failed to parse notification response")
		return nil, model.ErrGatewayUnavailable
	}

	return &parsed, nil
}

// do executes the request and returns the body and status, logging every
// call with its status and a truncated body.
func (c *Client) do(req *http.Request, op string) ([]byte, int, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("op", op).
			Dur("elapsed", time.Since(start)).
			Msg("gateway call failed")
		return nil, 0, model.ErrGatewayUnavailable
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, model.ErrGatewayUnavailable
	}

	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Str("body", truncate(string(body))).
		Msg("gateway call completed")

	return body, resp.StatusCode, nil
}

func truncate(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}

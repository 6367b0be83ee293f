// Package remote is the client side of the remote authoritative store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/sirupsen/logrus"
)

// Store applies actions remotely. requestID is the idempotency marker: replaying a request id
// returns the original assignments without applying anything twice.
type Store interface {
	Apply(ctx context.Context, requestID string, a action.Action) ([]action.Assignment, error)
	Ping(ctx context.Context) error
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote store url is empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = config.GetLogger()
	}
	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

// NewClientFromSettings builds the client from LEDGER_* settings.
func NewClientFromSettings(s config.ClientSettings, logger *logrus.Logger) (*Client, error) {
	return NewClient(s.RemoteURL, s.Token, s.HTTPTimeout, logger)
}

func (c *Client) Apply(ctx context.Context, requestID string, a action.Action) ([]action.Assignment, error) {
	tag, payload, err := action.Encode(a)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(action.Request{RequestId: requestID, Payload: payload})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/actions/"+string(tag), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", requestID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if cid, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		req.Header.Set("X-Correlation-Id", cid)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &utils.TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &utils.TransientNetworkError{Err: err}
	}

	if err := classify(resp.StatusCode, raw); err != nil {
		c.logger.WithFields(logrus.Fields{
			"field":      "RemoteClient",
			"action":     tag,
			"request_id": requestID,
			"status":     resp.StatusCode,
		}).Warn(err.Error())
		return nil, err
	}

	out, err := action.DecodeResponse(raw)
	if err != nil {
		return nil, &utils.TransientNetworkError{Err: err}
	}
	return out.Assignments, nil
}

// Ping reports whether the remote store is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &utils.TransientNetworkError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &utils.TransientNetworkError{Err: fmt.Errorf("health check returned %d", resp.StatusCode)}
	}
	return nil
}

// classify maps an HTTP status to the error kinds the sync processor acts on:
// 401/403 end the session, other 4xx are domain refusals, 5xx and 429 are worth retrying.
func classify(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &utils.AuthExpiredError{Status: status}
	case status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= 500:
		return &utils.TransientNetworkError{Err: fmt.Errorf("remote store returned %d: %s", status, strings.TrimSpace(string(body)))}
	default:
		var e action.ErrorResponse
		if err := json.Unmarshal(body, &e); err != nil || e.Message == "" {
			e.Message = strings.TrimSpace(string(body))
		}
		return &utils.RemoteRejectionError{Status: status, Code: e.Code, Reason: e.Message}
	}
}

// IsOffline reports whether err means the network, not the remote store, failed.
func IsOffline(err error) bool {
	var netErr net.Error
	return utils.IsTransient(err) && errors.As(err, &netErr)
}

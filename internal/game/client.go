// Package game plays the onboarding game: a remote server hands out client
// documents, the player answers Accept or Reject and the session continues
// until the server declares the game over.
package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"clerk/internal/reconcile"
	"clerk/pkg/platform/sentinel"
)

const statusGameOver = "gameover"

// Session identifies the running game and the client being decided.
type Session struct {
	SessionID string
	PlayerID  string
	ClientID  string
}

// Round is one client to decide.
type Round struct {
	Session   Session
	Documents []Document
}

// DecisionResponse is the server's answer to a decision.
type DecisionResponse struct {
	Status   string
	Score    *int
	ClientID string
	// Next is set when the response hands out another client.
	Next *Round
}

// GameOver reports whether the session has ended.
func (r *DecisionResponse) GameOver() bool {
	return strings.EqualFold(r.Status, statusGameOver)
}

// APIError is a non-2xx answer from the game server.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("game api returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap classifies server-side failures as unavailability.
func (e *APIError) Unwrap() error {
	if e.StatusCode >= http.StatusInternalServerError {
		return sentinel.ErrUnavailable
	}
	return sentinel.ErrInvalidInput
}

// Client talks to the game server.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	downloadDir string
	maxRetries  uint64
	logger      *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithDownloadDir saves every received document into dir.
func WithDownloadDir(dir string) ClientOption {
	return func(c *Client) {
		c.downloadDir = dir
	}
}

// WithMaxRetries sets how often transient failures are retried.
func WithMaxRetries(n uint64) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("game api url is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		http:       &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type startRequest struct {
	PlayerName string `json:"player_name"`
}

type roundPayload struct {
	SessionID  string            `json:"session_id"`
	PlayerID   string            `json:"player_id"`
	ClientID   string            `json:"client_id"`
	ClientData map[string]string `json:"client_data"`
}

type decisionRequest struct {
	Decision  string `json:"decision"`
	SessionID string `json:"session_id"`
	ClientID  string `json:"client_id"`
}

type decisionPayload struct {
	Status     string            `json:"status"`
	Score      *int              `json:"score"`
	SessionID  string            `json:"session_id"`
	PlayerID   string            `json:"player_id"`
	ClientID   string            `json:"client_id"`
	ClientData map[string]string `json:"client_data"`
}

// Start opens a session and returns its first round.
func (c *Client) Start(ctx context.Context, playerName string) (*Round, error) {
	var resp roundPayload
	if err := c.post(ctx, "/start", startRequest{PlayerName: playerName}, &resp, true); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	session := Session{SessionID: resp.SessionID, PlayerID: resp.PlayerID, ClientID: resp.ClientID}
	docs, err := c.documents(resp.ClientData)
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "game started",
		"session_id", session.SessionID,
		"client_id", session.ClientID,
		"documents", len(docs),
	)
	return &Round{Session: session, Documents: docs}, nil
}

// SendDecision answers the current round.
func (c *Client) SendDecision(ctx context.Context, session Session, decision reconcile.Decision) (*DecisionResponse, error) {
	req := decisionRequest{
		Decision:  decision.String(),
		SessionID: session.SessionID,
		ClientID:  session.ClientID,
	}
	var resp decisionPayload
	if err := c.post(ctx, "/decision", req, &resp, false); err != nil {
		return nil, fmt.Errorf("send decision: %w", err)
	}

	out := &DecisionResponse{Status: resp.Status, Score: resp.Score, ClientID: resp.ClientID}
	if out.GameOver() || len(resp.ClientData) == 0 {
		return out, nil
	}
	docs, err := c.documents(resp.ClientData)
	if err != nil {
		return nil, err
	}
	next := session
	if resp.SessionID != "" {
		next.SessionID = resp.SessionID
	}
	if resp.PlayerID != "" {
		next.PlayerID = resp.PlayerID
	}
	next.ClientID = resp.ClientID
	out.Next = &Round{Session: next, Documents: docs}
	return out, nil
}

func (c *Client) documents(payload map[string]string) ([]Document, error) {
	docs, err := decodeDocuments(payload)
	if err != nil {
		return nil, err
	}
	if c.downloadDir != "" && len(docs) > 0 {
		if err := saveDocuments(c.downloadDir, docs); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// post sends body as JSON and decodes the answer into out. Transport errors
// are retried with exponential backoff. 5xx answers are retried only when
// retryServerErrors is set: a failed answer to a decision may still have been
// scored.
func (c *Client) post(ctx context.Context, path string, body, out any, retryServerErrors bool) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
			if retryServerErrors && resp.StatusCode >= http.StatusInternalServerError {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = time.Minute
	return backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx),
		func(err error, wait time.Duration) {
			c.logger.WarnContext(ctx, "game api call failed, retrying",
				"path", path,
				"wait_ms", wait.Milliseconds(),
				"error", err,
			)
		},
	)
}

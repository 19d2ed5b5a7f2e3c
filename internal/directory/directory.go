// Package directory wraps the game server's request/response API: create,
// join, start, and the one-shot status snapshot. Every call is a single
// attempt; failures surface to the caller and are never retried here.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"storysync/pkg/wire"
)

// Kind classifies directory failures for user-visible handling.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindBadPassword Kind = "bad_password"
	KindForbidden   Kind = "forbidden"
	KindNetwork     Kind = "network"
)

// Error carries the failure class and the server's raw message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("directory: %s: %s", e.Kind, e.Message)
}

// IsKind reports whether err is a directory Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// CreateResult identifies the freshly created session and its host player.
type CreateResult struct {
	SessionID string
	PlayerID  string
}

// JoinResult identifies the local player within an existing session.
type JoinResult struct {
	PlayerID string
	IsHost   bool
}

// Client talks to one game server.
type Client struct {
	base string
	hc   *http.Client
	log  *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// CreateSession creates a new session with the caller as host.
func (c *Client) CreateSession(ctx context.Context, scenario, hostName, hostClass, password string) (CreateResult, error) {
	req := wire.CreateGameRequest{
		Scenario:    scenario,
		PlayerName:  hostName,
		PlayerClass: hostClass,
		Password:    password,
	}
	var resp wire.CreateGameResponse
	if err := c.postJSON(ctx, "/game", req, &resp); err != nil {
		return CreateResult{}, err
	}
	c.log.Info("session created", zap.String("session_id", resp.GameID))
	return CreateResult{SessionID: resp.GameID, PlayerID: resp.PlayerID}, nil
}

// JoinSession joins an existing session.
func (c *Client) JoinSession(ctx context.Context, sessionID, name, playerClass, password string) (JoinResult, error) {
	req := wire.JoinGameRequest{
		PlayerName:  name,
		PlayerClass: playerClass,
		Password:    password,
	}
	var resp wire.JoinGameResponse
	path := fmt.Sprintf("/game/%s/join", url.PathEscape(sessionID))
	if err := c.postJSON(ctx, path, req, &resp); err != nil {
		return JoinResult{}, err
	}
	return JoinResult{PlayerID: resp.PlayerID, IsHost: resp.IsHost}, nil
}

// StartSession asks the server to start the session. Host-only; the server
// enforces it and we surface its refusal.
func (c *Client) StartSession(ctx context.Context, sessionID, playerID string) error {
	req := wire.StartGameRequest{PlayerID: playerID}
	path := fmt.Sprintf("/game/%s/start", url.PathEscape(sessionID))
	return c.postJSON(ctx, path, req, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func responseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	message := strings.TrimSpace(string(raw))

	var body wire.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		message = body.Error
	}
	if message == "" {
		message = resp.Status
	}

	kind := KindNetwork
	switch resp.StatusCode {
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusUnauthorized:
		kind = KindBadPassword
	case http.StatusForbidden:
		kind = KindForbidden
	}
	return &Error{Kind: kind, Message: message}
}

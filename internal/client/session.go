package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"bizchat.dev/console/internal/gateway"
)

// apologyMessage is appended as the assistant reply for a failed turn, so
// the transcript always holds exactly one assistant message per user turn.
const apologyMessage = "Sorry, I encountered an error. Please try again."

var (
	// ErrEmptyMessage rejects blank input locally, before any network call.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTurnPending rejects a second turn while one is still in flight.
	ErrTurnPending = errors.New("a turn is already in flight")
)

// SessionClient manages one active conversation: it sends user turns,
// collects assistant replies with their citation sources, and tracks the
// server-issued session id. The backend owns session identity; this client
// only adopts what it is given.
type SessionClient struct {
	gw *gateway.Gateway

	mu        sync.Mutex
	pending   bool
	sessionID string // empty means no session created yet
	messages  []Message
}

func NewSessionClient(gw *gateway.Gateway) *SessionClient {
	return &SessionClient{gw: gw}
}

// Turn is the outcome of one successful exchange.
type Turn struct {
	SessionID     string
	AssistantText string
	Sources       []string
}

// SendTurn posts one user message and appends both sides of the exchange to
// the transcript. On failure the session id is left untouched and a single
// apology message is appended instead of the assistant reply.
func (c *SessionClient) SendTurn(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return nil, ErrTurnPending
	}
	c.pending = true
	sessionID := c.sessionID
	c.messages = append(c.messages, Message{Role: RoleUser, Content: text})
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = false
		c.mu.Unlock()
	}()

	data, err := c.gw.Do(ctx, http.MethodPost, "/api/chat/message", chatRequest{
		Message:   text,
		SessionID: sessionID,
	})
	if err != nil {
		c.appendAssistant(apologyMessage, nil)
		return nil, err
	}

	var res chatResponse
	if err := json.Unmarshal(data, &res); err != nil {
		c.appendAssistant(apologyMessage, nil)
		return nil, fmt.Errorf("malformed chat response: %w", err)
	}

	c.mu.Lock()
	// Adopt the returned id even if it differs from what was sent.
	c.sessionID = res.SessionID
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: res.Response, Sources: res.Sources})
	c.mu.Unlock()

	return &Turn{
		SessionID:     res.SessionID,
		AssistantText: res.Response,
		Sources:       res.Sources,
	}, nil
}

func (c *SessionClient) appendAssistant(content string, sources []string) {
	c.mu.Lock()
	c.messages = append(c.messages, Message{Role: RoleAssistant, Content: content, Sources: sources})
	c.mu.Unlock()
}

// History fetches the server-side transcript for a session.
func (c *SessionClient) History(ctx context.Context, sessionID string) (*SessionHistory, error) {
	data, err := c.gw.Do(ctx, http.MethodGet, "/api/chat/history/"+sessionID, nil)
	if err != nil {
		return nil, err
	}
	var history SessionHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("malformed history response: %w", err)
	}
	return &history, nil
}

// EndSession deletes the current session on the backend, then clears local
// state. With no session yet created it only clears locally.
func (c *SessionClient) EndSession(ctx context.Context) error {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	if sessionID != "" {
		if _, err := c.gw.Do(ctx, http.MethodDelete, "/api/chat/session/"+sessionID, nil); err != nil {
			return err
		}
	}
	c.Clear()
	return nil
}

// Clear resets the session id and transcript together. Purely local and
// idempotent.
func (c *SessionClient) Clear() {
	c.mu.Lock()
	c.sessionID = ""
	c.messages = nil
	c.mu.Unlock()
}

// SessionID returns the current session id, or "" before the first
// successful turn.
func (c *SessionClient) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Messages returns a copy of the transcript.
func (c *SessionClient) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Package stream owns the lifecycle of the server event stream: one websocket
// connection per (session, player), decoded into typed events.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

var (
	ErrConnectFailed = errors.New("stream connect failed")
	ErrDisconnected  = errors.New("stream disconnected")
	ErrClosed        = errors.New("stream closed")
)

// Adapter is one live event stream connection. Events are delivered on the
// Events channel in frame-arrival order; the channel closes when the
// connection drops or Close is called. A dropped connection is never redialed
// here; reconnecting is a fresh Adapter.
type Adapter struct {
	conn   *websocket.Conn
	log    *zap.Logger
	events chan Event

	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once

	mu      sync.Mutex
	readErr error
}

// Dial opens the event stream for one (session, player) pair. baseURL is the
// server's HTTP base, e.g. "http://localhost:8080".
func Dial(ctx context.Context, baseURL, sessionID, playerID string, log *zap.Logger) (*Adapter, error) {
	target, err := url.JoinPath(baseURL, "ws", sessionID, playerID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		conn:   conn,
		log:    log,
		events: make(chan Event, 16),
		ctx:    runCtx,
		cancel: cancel,
	}
	go a.readLoop()

	log.Info("stream connected", zap.String("session_id", sessionID), zap.String("player_id", playerID))
	return a, nil
}

// Events returns the inbound event channel. It closes once the connection is
// gone; call Err afterwards for the reason.
func (a *Adapter) Events() <-chan Event { return a.events }

// Err reports why the stream ended. It is nil before the Events channel
// closes and after a locally initiated Close.
func (a *Adapter) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.readErr
}

// Send transmits one action as a raw text frame.
func (a *Adapter) Send(ctx context.Context, text string) error {
	select {
	case <-a.ctx.Done():
		return ErrClosed
	default:
	}
	if err := a.conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		return fmt.Errorf("send action: %w", err)
	}
	return nil
}

// Close tears the connection down. Safe to call twice, and safe on a nil
// adapter that was never opened.
func (a *Adapter) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		a.cancel()
		_ = a.conn.Close(websocket.StatusNormalClosure, "bye")
	})
}

func (a *Adapter) readLoop() {
	defer close(a.events)

	for {
		_, data, err := a.conn.Read(a.ctx)
		if err != nil {
			// A locally initiated close is not a stream failure.
			if a.ctx.Err() == nil {
				a.mu.Lock()
				a.readErr = fmt.Errorf("%w: %v", ErrDisconnected, err)
				a.mu.Unlock()
			}
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			// Malformed frame: drop it, keep the stream alive.
			a.log.Warn("dropping undecodable frame", zap.Error(err))
			continue
		}
		if u, ok := ev.(Unknown); ok {
			a.log.Debug("dropping unrecognized frame type", zap.String("type", u.Type))
			continue
		}

		select {
		case a.events <- ev:
		case <-a.ctx.Done():
			return
		}
	}
}

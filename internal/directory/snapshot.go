package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"storysync/internal/session"
	"storysync/pkg/wire"
)

// LoadSnapshot fetches the session status once and normalizes it into the
// reconciler's snapshot shape. A "pending" status yields a Pending snapshot
// carrying no state.
func (c *Client) LoadSnapshot(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	path := fmt.Sprintf("/game/%s/status", url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error()}
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, responseError(resp)
	}

	var status wire.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, &Error{Kind: KindNetwork, Message: fmt.Sprintf("decode status: %v", err)}
	}

	if status.Status == wire.StatusPending {
		return &session.Snapshot{Pending: true}, nil
	}

	snap := &session.Snapshot{Cursor: status.CurrentPlayerID}
	for _, p := range status.Players {
		snap.Members = append(snap.Members, session.Member{
			ID:          p.ID,
			Name:        p.Name,
			PlayerClass: p.PlayerClass,
			IsAlive:     p.IsAlive,
		})
	}
	for _, t := range status.Turns {
		snap.Log = append(snap.Log, session.TurnEntry{SpeakerID: t.PlayerID, Text: t.Text})
	}
	return snap, nil
}

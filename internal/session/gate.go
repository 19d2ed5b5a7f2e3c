package session

import (
	"context"
	"strings"
)

// Gate decides whether the local player may act right now and owns action
// submission. Submission is fire-and-forget: the view only changes once the
// server's own events come back, so the log is never padded with an
// optimistic local echo.
type Gate struct {
	rec *Reconciler
}

func NewGate(rec *Reconciler) *Gate {
	return &Gate{rec: rec}
}

// CanAct reports whether the session is active and the turn cursor points at
// the local player.
func (g *Gate) CanAct() bool {
	v := g.rec.View()
	return v.Phase == PhaseActive && v.Cursor != "" && v.Cursor == v.Identity.LocalPlayerID
}

// SubmitAction sends text over the stream once. It is a deliberate no-op when
// the text trims to nothing or it is not the local player's turn.
func (g *Gate) SubmitAction(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" || !g.CanAct() {
		return nil
	}
	s := g.rec.currentStream()
	if s == nil {
		return nil
	}
	return s.Send(ctx, text)
}

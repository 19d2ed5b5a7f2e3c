package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"storysync/internal/session"
	"storysync/internal/stream"
	"storysync/pkg/wire"
)

func TestGateUnjoined(t *testing.T) {
	loader := newFakeLoader(&session.Snapshot{Pending: true})
	fs := newFakeStream()
	r := newReconciler(t, loader, &fakeDialer{s: fs})
	gate := session.NewGate(r)

	require.False(t, gate.CanAct())
	require.NoError(t, gate.SubmitAction(context.Background(), "go north"))
	require.Empty(t, fs.sentActions())
}

func TestGateAwaitingSnapshot(t *testing.T) {
	loader := newFakeLoader(&session.Snapshot{Pending: true})
	fs := newFakeStream()
	r := newReconciler(t, loader, &fakeDialer{s: fs})
	gate := session.NewGate(r)

	r.Begin(testIdentity())
	waitView(t, r, func(v session.View) bool { return v.Phase == session.PhaseAwaitingSnapshot })

	require.False(t, gate.CanAct())
	require.NoError(t, gate.SubmitAction(context.Background(), "go north"))
	require.Empty(t, fs.sentActions())
}

func TestGateActiveWrongCursor(t *testing.T) {
	loader := newFakeLoader(&session.Snapshot{Pending: true})
	fs := newFakeStream()
	r := newReconciler(t, loader, &fakeDialer{s: fs})
	gate := session.NewGate(r)

	r.Begin(testIdentity())
	fs.events <- stream.GameStart{
		Players:   []wire.Player{player("p1", "Ada"), player("p2", "Bob")},
		Narrative: "intro",
		Cursor:    "p2",
	}
	waitView(t, r, func(v session.View) bool { return v.Phase == session.PhaseActive })

	require.False(t, gate.CanAct())
	require.NoError(t, gate.SubmitAction(context.Background(), "go north"))
	require.Empty(t, fs.sentActions())
}

func TestGateClosedWithLocalCursor(t *testing.T) {
	loader := newFakeLoader(&session.Snapshot{Pending: true})
	fs := newFakeStream()
	r := newReconciler(t, loader, &fakeDialer{s: fs})
	gate := session.NewGate(r)

	r.Begin(testIdentity())
	fs.events <- stream.GameStart{
		Players:   []wire.Player{player("p1", "Ada")},
		Narrative: "intro",
		Cursor:    "p1",
	}
	waitView(t, r, func(v session.View) bool { return v.Phase == session.PhaseActive })
	require.True(t, gate.CanAct())

	fs.Close()
	waitView(t, r, func(v session.View) bool { return v.Phase == session.PhaseClosed })

	require.False(t, gate.CanAct())
	require.NoError(t, gate.SubmitAction(context.Background(), "go north"))
	require.Empty(t, fs.sentActions())
}

func TestGateSubmitsOnLocalTurn(t *testing.T) {
	loader := newFakeLoader(&session.Snapshot{Pending: true})
	fs := newFakeStream()
	r := newReconciler(t, loader, &fakeDialer{s: fs})
	gate := session.NewGate(r)

	r.Begin(testIdentity())
	fs.events <- stream.GameStart{
		Players:   []wire.Player{player("p1", "Ada"), player("p2", "Bob")},
		Narrative: "intro",
		Cursor:    "p1",
	}
	waitView(t, r, func(v session.View) bool { return v.Phase == session.PhaseActive })

	require.True(t, gate.CanAct())
	require.NoError(t, gate.SubmitAction(context.Background(), "  look around  "))
	require.Equal(t, []string{"look around"}, fs.sentActions())

	// Blank input never reaches the wire.
	require.NoError(t, gate.SubmitAction(context.Background(), "   "))
	require.Equal(t, []string{"look around"}, fs.sentActions())

	// No optimistic echo: the log waits for server events.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, r.View().Log, 1)
}

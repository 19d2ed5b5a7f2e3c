package session_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storysync/internal/directory"
	"storysync/internal/gameserver"
	"storysync/internal/session"
)

// Full round trip against the reference server: create, join, start, one
// complete round, late join, and a departure.
func TestEndToEndSession(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	reg := gameserver.NewRegistry(ctx, gameserver.ScriptedNarrator{}, log)
	srv := httptest.NewServer(gameserver.SetupRoutes(reg, log))
	t.Cleanup(srv.Close)

	dir := directory.NewClient(srv.URL, log)
	dialer := session.NewStreamDialer(srv.URL, log)

	// Host creates the session and connects.
	created, err := dir.CreateSession(ctx, "a dark forest", "Ada", "Rogue", "")
	require.NoError(t, err)

	hostRec := session.New(ctx, log, dir, dialer)
	t.Cleanup(hostRec.Teardown)
	hostGate := session.NewGate(hostRec)
	hostRec.Begin(session.Identity{SessionID: created.SessionID, LocalPlayerID: created.PlayerID, IsHost: true})

	waitView(t, hostRec, func(v session.View) bool { return v.Phase == session.PhaseAwaitingSnapshot })
	// Give the host's stream subscription a moment to land in the room
	// before events start flowing.
	time.Sleep(100 * time.Millisecond)

	// Guest joins; the host sees the roster grow before the game starts.
	joined, err := dir.JoinSession(ctx, created.SessionID, "Bob", "Mage", "")
	require.NoError(t, err)
	require.False(t, joined.IsHost)

	guestRec := session.New(ctx, log, dir, dialer)
	t.Cleanup(guestRec.Teardown)
	guestGate := session.NewGate(guestRec)
	guestRec.Begin(session.Identity{SessionID: created.SessionID, LocalPlayerID: joined.PlayerID})
	time.Sleep(100 * time.Millisecond)

	waitView(t, hostRec, func(v session.View) bool {
		return hasName(v, "Bob")
	})

	// Host starts: both clients go Active off the game_start event and the
	// cursor lands on the host.
	require.NoError(t, dir.StartSession(ctx, created.SessionID, created.PlayerID))

	hv := waitView(t, hostRec, func(v session.View) bool { return v.Phase == session.PhaseActive })
	require.Equal(t, created.PlayerID, hv.Cursor)
	require.Len(t, hv.Log, 1)

	waitView(t, guestRec, func(v session.View) bool { return v.Phase == session.PhaseActive })
	require.True(t, hostGate.CanAct())
	require.False(t, guestGate.CanAct())

	// Host acts: the turn moves to the guest, the log does not grow yet.
	require.NoError(t, hostGate.SubmitAction(ctx, "scout ahead"))
	gv := waitView(t, guestRec, func(v session.View) bool { return v.Cursor == joined.PlayerID })
	require.Len(t, gv.Log, 1)
	require.True(t, guestGate.CanAct())

	// Guest acts: the round resolves into a narrator entry and the cursor
	// wraps back to the host.
	require.NoError(t, guestGate.SubmitAction(ctx, "cast light"))
	hv = waitView(t, hostRec, func(v session.View) bool { return len(v.Log) == 2 })
	require.Equal(t, session.SpeakerNarrator, hv.Log[1].SpeakerID)
	require.Equal(t, created.PlayerID, hv.Cursor)

	// A late joiner initializes from the snapshot, not from a start event.
	late, err := dir.JoinSession(ctx, created.SessionID, "Cleo", "Bard", "")
	require.NoError(t, err)

	lateRec := session.New(ctx, log, dir, dialer)
	t.Cleanup(lateRec.Teardown)
	lateRec.Begin(session.Identity{SessionID: created.SessionID, LocalPlayerID: late.PlayerID})

	lv := waitView(t, lateRec, func(v session.View) bool { return v.Phase == session.PhaseActive })
	require.NotEmpty(t, lv.Log)
	require.True(t, hasName(lv, "Ada"))

	// Guest leaves; the host's roster shrinks by name.
	guestRec.Teardown()
	hv = waitView(t, hostRec, func(v session.View) bool { return !hasName(v, "Bob") })
	require.Equal(t, session.PhaseActive, hv.Phase)
}

func hasName(v session.View, name string) bool {
	for _, m := range v.Members {
		if m.Name == name {
			return true
		}
	}
	return false
}

package directory_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storysync/internal/directory"
	"storysync/pkg/wire"
)

func startDirectoryServer(t *testing.T, handler http.HandlerFunc) *directory.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return directory.NewClient(srv.URL, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCreateSession(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/game", r.URL.Path)

		var req wire.CreateGameRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "haunted keep", req.Scenario)
		require.Equal(t, "Ada", req.PlayerName)
		require.Equal(t, "Rogue", req.PlayerClass)

		writeJSON(w, http.StatusCreated, wire.CreateGameResponse{GameID: "g1", PlayerID: "p1"})
	})

	res, err := client.CreateSession(context.Background(), "haunted keep", "Ada", "Rogue", "")
	require.NoError(t, err)
	require.Equal(t, directory.CreateResult{SessionID: "g1", PlayerID: "p1"}, res)
}

func TestJoinSessionErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		kind   directory.Kind
	}{
		{"unknown session", http.StatusNotFound, directory.KindNotFound},
		{"wrong password", http.StatusUnauthorized, directory.KindBadPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tc.status, wire.ErrorResponse{Error: tc.name})
			})

			_, err := client.JoinSession(context.Background(), "g1", "Ada", "Rogue", "")
			require.True(t, directory.IsKind(err, tc.kind), "got %v", err)
			require.Contains(t, err.Error(), tc.name)
		})
	}
}

func TestJoinSessionSuccess(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/g1/join", r.URL.Path)
		writeJSON(w, http.StatusOK, wire.JoinGameResponse{PlayerID: "p2", IsHost: false})
	})

	res, err := client.JoinSession(context.Background(), "g1", "Bob", "Mage", "hunter2")
	require.NoError(t, err)
	require.Equal(t, directory.JoinResult{PlayerID: "p2", IsHost: false}, res)
}

func TestStartSessionForbidden(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/g1/start", r.URL.Path)
		writeJSON(w, http.StatusForbidden, wire.ErrorResponse{Error: "only the host can start the game"})
	})

	err := client.StartSession(context.Background(), "g1", "p2")
	require.True(t, directory.IsKind(err, directory.KindForbidden), "got %v", err)
}

func TestNetworkFailureIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := directory.NewClient(srv.URL, zap.NewNop())
	srv.Close()

	_, err := client.CreateSession(context.Background(), "s", "Ada", "Rogue", "")
	require.True(t, directory.IsKind(err, directory.KindNetwork), "got %v", err)
}

func TestLoadSnapshotPending(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/game/g1/status", r.URL.Path)
		writeJSON(w, http.StatusOK, wire.StatusResponse{Status: wire.StatusPending})
	})

	snap, err := client.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	require.True(t, snap.Pending)
	require.Empty(t, snap.Members)
}

func TestLoadSnapshotActive(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wire.StatusResponse{
			Status: wire.StatusInProgress,
			Players: []wire.Player{
				{ID: "p1", Name: "Ada", PlayerClass: "Rogue", IsAlive: true},
				{ID: "p2", Name: "Bob", PlayerClass: "Mage", IsAlive: false},
			},
			Turns: []wire.Turn{
				{PlayerID: wire.NarratorID, Text: "intro"},
				{PlayerID: "p1", Text: "I sneak in."},
			},
			CurrentPlayerID: "p2",
		})
	})

	snap, err := client.LoadSnapshot(context.Background(), "g1")
	require.NoError(t, err)
	require.False(t, snap.Pending)
	require.Equal(t, "p2", snap.Cursor)
	require.Len(t, snap.Members, 2)
	require.Equal(t, "Ada", snap.Members[0].Name)
	require.False(t, snap.Members[1].IsAlive)
	require.Len(t, snap.Log, 2)
	require.Equal(t, "narrator", snap.Log[0].SpeakerID)
}

func TestLoadSnapshotUnknownSession(t *testing.T) {
	client := startDirectoryServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: "game not found"})
	})

	_, err := client.LoadSnapshot(context.Background(), "nope")
	require.True(t, directory.IsKind(err, directory.KindNotFound), "got %v", err)
}

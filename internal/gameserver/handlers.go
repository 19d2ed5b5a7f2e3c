package gameserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storysync/pkg/wire"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, wire.ErrorResponse{Error: message})
}

// getRoom resolves the {gameID} route param, writing a 404 when unknown.
func getRoom(reg *Registry, w http.ResponseWriter, r *http.Request) *Room {
	id := chi.URLParam(r, "gameID")
	reply := make(chan *Room, 1)
	reg.Inbox() <- GetSession{ID: id, Reply: reply}
	room := <-reply
	if room == nil {
		writeError(w, http.StatusNotFound, "game not found")
	}
	return room
}

func CreateGame(reg *Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req wire.CreateGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.Scenario == "" || req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "scenario and player_name are required")
			return
		}

		reply := make(chan *Room, 1)
		reg.Inbox() <- CreateSession{Scenario: req.Scenario, Password: req.Password, Reply: reply}
		room := <-reply

		// The creator is the first joiner and therefore the host.
		joinReply := make(chan JoinReply, 1)
		room.Inbox() <- Join{Name: req.PlayerName, Class: req.PlayerClass, Password: req.Password, Reply: joinReply}
		jr := <-joinReply
		if jr.Err != nil {
			writeError(w, http.StatusInternalServerError, jr.Err.Error())
			return
		}

		log.Info("game created", zap.String("game_id", room.ID()))
		writeJSON(w, http.StatusCreated, wire.CreateGameResponse{
			GameID:   room.ID(),
			PlayerID: jr.Player.ID,
		})
	}
}

func JoinGame(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := getRoom(reg, w, r)
		if room == nil {
			return
		}

		var req wire.JoinGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.PlayerName == "" {
			writeError(w, http.StatusBadRequest, "player_name is required")
			return
		}

		reply := make(chan JoinReply, 1)
		room.Inbox() <- Join{Name: req.PlayerName, Class: req.PlayerClass, Password: req.Password, Reply: reply}
		jr := <-reply
		if errors.Is(jr.Err, ErrBadPassword) {
			writeError(w, http.StatusUnauthorized, jr.Err.Error())
			return
		}
		if jr.Err != nil {
			writeError(w, http.StatusInternalServerError, jr.Err.Error())
			return
		}

		writeJSON(w, http.StatusOK, wire.JoinGameResponse{
			PlayerID: jr.Player.ID,
			IsHost:   jr.Player.IsHost,
		})
	}
}

func StartGame(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := getRoom(reg, w, r)
		if room == nil {
			return
		}

		var req wire.StartGameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		reply := make(chan error, 1)
		room.Inbox() <- Start{PlayerID: req.PlayerID, Reply: reply}
		switch err := <-reply; {
		case errors.Is(err, ErrNotHost):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadyStarted):
			writeError(w, http.StatusConflict, err.Error())
		case err != nil:
			writeError(w, http.StatusInternalServerError, err.Error())
		default:
			writeJSON(w, http.StatusOK, map[string]string{"message": "game started"})
		}
	}
}

func GameStatus(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := getRoom(reg, w, r)
		if room == nil {
			return
		}

		reply := make(chan wire.StatusResponse, 1)
		room.Inbox() <- Status{Reply: reply}
		writeJSON(w, http.StatusOK, <-reply)
	}
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

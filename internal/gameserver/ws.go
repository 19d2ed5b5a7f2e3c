package gameserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StreamHandler upgrades to a websocket and bridges it to the session room:
// event frames flow out, raw action text flows in.
func StreamHandler(reg *Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room := getRoom(reg, w, r)
		if room == nil {
			return
		}
		playerID := chi.URLParam(r, "playerID")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		log.Debug("stream opened", zap.String("game_id", room.ID()), zap.String("player_id", playerID))

		out := make(chan []byte, 8)
		room.Inbox() <- Subscribe{PlayerID: playerID, Outbox: out}
		defer func() { room.Inbox() <- Disconnect{PlayerID: playerID} }()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for payload := range out {
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			text := strings.TrimSpace(string(data))
			if text == "" {
				continue
			}
			room.Inbox() <- Action{PlayerID: playerID, Text: text}
		}
	}
}

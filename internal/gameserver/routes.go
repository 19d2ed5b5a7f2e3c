package gameserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func SetupRoutes(reg *Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/game", CreateGame(reg, log))
	r.Post("/game/{gameID}/join", JoinGame(reg))
	r.Post("/game/{gameID}/start", StartGame(reg))
	r.Get("/game/{gameID}/status", GameStatus(reg))
	r.Get("/ws/{gameID}/{playerID}", StreamHandler(reg, log))
	r.Get("/healthz", Healthz)
	return r
}

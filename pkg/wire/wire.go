// Package wire defines the JSON shapes exchanged between the client and the
// game server: REST request/response bodies and the websocket event frames.
package wire

// Player is the roster entry as it travels on the wire.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerClass string `json:"player_class"`
	IsHost      bool   `json:"is_host,omitempty"`
	IsAlive     bool   `json:"is_alive"`
}

// Turn is one entry of the session log. PlayerID is "narrator" for
// story segments produced by the game master.
type Turn struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

// NarratorID is the reserved speaker id for story segments.
const NarratorID = "narrator"

// Session status values.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
)

// Client -> Server (REST)

type CreateGameRequest struct {
	Scenario    string `json:"scenario"`
	PlayerName  string `json:"player_name"`
	PlayerClass string `json:"player_class"`
	Password    string `json:"password,omitempty"`
}

type JoinGameRequest struct {
	PlayerName  string `json:"player_name"`
	PlayerClass string `json:"player_class"`
	Password    string `json:"password,omitempty"`
}

type StartGameRequest struct {
	PlayerID string `json:"player_id"`
}

// Server -> Client (REST)

type CreateGameResponse struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type JoinGameResponse struct {
	PlayerID string `json:"player_id"`
	IsHost   bool   `json:"is_host"`
}

type StatusResponse struct {
	Status          string   `json:"status"`
	Players         []Player `json:"players"`
	Turns           []Turn   `json:"turns"`
	CurrentPlayerID string   `json:"current_player_id,omitempty"`
}

// ErrorResponse is the body of any non-success REST response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Stream frame types. Inbound frames are JSON with a "type" discriminator;
// outbound frames are the raw action text, not JSON-wrapped.
const (
	FrameGameStart      = "game_start"
	FramePlayerJoined   = "player_joined"
	FrameActionReceived = "action_received"
	FrameNewTurn        = "new_turn"
	FramePlayerLeft     = "player_left"
)

// Frame is the superset of all inbound event frame payloads. Which fields
// are meaningful depends on Type.
type Frame struct {
	Type            string   `json:"type"`
	Players         []Player `json:"players,omitempty"`           // game_start
	Player          *Player  `json:"player,omitempty"`            // player_joined
	Narrative       string   `json:"narrative,omitempty"`         // game_start, new_turn
	PlayerID        string   `json:"player_id,omitempty"`         // action_received
	PlayerName      string   `json:"player_name,omitempty"`       // player_left
	CurrentPlayerID string   `json:"current_player_id,omitempty"` // game_start, action_received, new_turn
}

package stream

import (
	"encoding/json"
	"fmt"

	"storysync/pkg/wire"
)

// Event is the decoded form of one inbound stream frame. The concrete types
// form a closed union so consumers switch exhaustively instead of matching
// on strings.
type Event interface{ isStreamEvent() }

// GameStart carries the full initial state when the host starts the session.
type GameStart struct {
	Players   []wire.Player
	Narrative string
	Cursor    string
}

// PlayerJoined announces a new roster member.
type PlayerJoined struct {
	Player wire.Player
}

// ActionReceived acknowledges that a player acted and names whose turn it is now.
type ActionReceived struct {
	ActorID    string
	NextCursor string
}

// NewTurn carries the next narrative segment once a round resolves.
type NewTurn struct {
	Narrative  string
	NextCursor string
}

// PlayerLeft announces a departure. The server identifies the player by
// display name only.
type PlayerLeft struct {
	Name string
}

// Unknown is any frame whose type discriminator we do not recognize. The
// adapter logs and drops these so newer servers can add frame types freely.
type Unknown struct {
	Type string
}

func (GameStart) isStreamEvent()      {}
func (PlayerJoined) isStreamEvent()   {}
func (ActionReceived) isStreamEvent() {}
func (NewTurn) isStreamEvent()        {}
func (PlayerLeft) isStreamEvent()     {}
func (Unknown) isStreamEvent()        {}

// decodeEvent parses one text frame into an Event. A frame that is not valid
// JSON is an error; a valid frame with an unrecognized type is Unknown.
func decodeEvent(data []byte) (Event, error) {
	var f wire.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case wire.FrameGameStart:
		return GameStart{Players: f.Players, Narrative: f.Narrative, Cursor: f.CurrentPlayerID}, nil
	case wire.FramePlayerJoined:
		if f.Player == nil {
			return nil, fmt.Errorf("decode frame: %s without player", f.Type)
		}
		return PlayerJoined{Player: *f.Player}, nil
	case wire.FrameActionReceived:
		return ActionReceived{ActorID: f.PlayerID, NextCursor: f.CurrentPlayerID}, nil
	case wire.FrameNewTurn:
		return NewTurn{Narrative: f.Narrative, NextCursor: f.CurrentPlayerID}, nil
	case wire.FramePlayerLeft:
		return PlayerLeft{Name: f.PlayerName}, nil
	default:
		return Unknown{Type: f.Type}, nil
	}
}

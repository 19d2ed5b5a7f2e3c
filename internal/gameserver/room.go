// Package gameserver is the reference server for the narrative game: an
// in-memory session registry and one actor per session. It exists so the
// client can be exercised end to end and played locally; story generation is
// pluggable and defaults to a scripted narrator.
package gameserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storysync/pkg/wire"
)

var (
	ErrBadPassword    = errors.New("incorrect password")
	ErrNotHost        = errors.New("only the host can start the game")
	ErrAlreadyStarted = errors.New("game already started")
	ErrNotStarted     = errors.New("game has not started")
)

type RoomMsg interface{ isRoomMsg() }

type Join struct {
	Name     string
	Class    string
	Password string
	Reply    chan JoinReply
}

type JoinReply struct {
	Player wire.Player
	Err    error
}

type Start struct {
	PlayerID string
	Reply    chan error
}

// Subscribe registers an outbox for one connected player. Encoded event
// frames are fanned out to every outbox.
type Subscribe struct {
	PlayerID string
	Outbox   chan []byte
}

// Action is one free-text turn submission from a connected player.
type Action struct {
	PlayerID string
	Text     string
}

// Disconnect removes a departed player from the roster and announces it.
type Disconnect struct{ PlayerID string }

type Status struct {
	Reply chan wire.StatusResponse
}

type Shutdown struct{}

func (Join) isRoomMsg()       {}
func (Start) isRoomMsg()      {}
func (Subscribe) isRoomMsg()  {}
func (Action) isRoomMsg()     {}
func (Disconnect) isRoomMsg() {}
func (Status) isRoomMsg()     {}
func (Shutdown) isRoomMsg()   {}

// Room owns one session's state. All mutation happens on its loop goroutine.
type Room struct {
	inbox    chan RoomMsg
	id       string
	scenario string
	password string
	narrator Narrator
	log      *zap.Logger

	status  string
	players []wire.Player
	turns   []wire.Turn
	current string          // player id whose turn it is
	acted   map[string]bool // who has acted this round
	actions []ActionLine
	subs    map[string]chan []byte

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, id, scenario, password string, narrator Narrator, log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:    make(chan RoomMsg, 64),
		id:       id,
		scenario: scenario,
		password: password,
		narrator: narrator,
		log:      log.With(zap.String("session_id", id)),
		status:   wire.StatusPending,
		acted:    make(map[string]bool),
		subs:     make(map[string]chan []byte),
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- RoomMsg { return r.inbox }

// ID is immutable and safe to read from any goroutine.
func (r *Room) ID() string { return r.id }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.handleJoin(msg)
			case Start:
				msg.Reply <- r.handleStart(msg)
			case Subscribe:
				r.subs[msg.PlayerID] = msg.Outbox
			case Action:
				r.handleAction(msg)
			case Disconnect:
				r.handleDisconnect(msg)
			case Status:
				msg.Reply <- r.statusResponse()
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) JoinReply {
	if r.password != "" && r.password != msg.Password {
		return JoinReply{Err: ErrBadPassword}
	}

	p := wire.Player{
		ID:          uuid.NewString(),
		Name:        msg.Name,
		PlayerClass: msg.Class,
		IsHost:      len(r.players) == 0,
		IsAlive:     true,
	}
	r.players = append(r.players, p)
	r.broadcast(wire.Frame{Type: wire.FramePlayerJoined, Player: &p})
	r.log.Info("player joined", zap.String("player_id", p.ID), zap.String("name", p.Name))
	return JoinReply{Player: p}
}

func (r *Room) handleStart(msg Start) error {
	player := r.findPlayer(msg.PlayerID)
	if player == nil || !player.IsHost {
		return ErrNotHost
	}
	if r.status != wire.StatusPending {
		return ErrAlreadyStarted
	}

	narrative, err := r.narrator.OpeningScene(r.ctx, r.scenario, r.players)
	if err != nil {
		r.log.Warn("narrator failed on opening scene", zap.Error(err))
		narrative = "The adventure begins."
	}

	r.status = wire.StatusInProgress
	r.turns = []wire.Turn{{PlayerID: wire.NarratorID, Text: narrative}}
	r.current = r.firstActor()
	r.broadcast(wire.Frame{
		Type:            wire.FrameGameStart,
		Players:         append([]wire.Player(nil), r.players...),
		Narrative:       narrative,
		CurrentPlayerID: r.current,
	})
	r.log.Info("game started", zap.Int("players", len(r.players)))
	return nil
}

func (r *Room) handleAction(msg Action) {
	if r.status != wire.StatusInProgress {
		r.log.Debug("action before start dropped", zap.String("player_id", msg.PlayerID))
		return
	}
	if msg.PlayerID != r.current {
		r.log.Debug("out-of-turn action dropped", zap.String("player_id", msg.PlayerID))
		return
	}
	player := r.findPlayer(msg.PlayerID)
	if player == nil {
		return
	}

	r.acted[msg.PlayerID] = true
	r.actions = append(r.actions, ActionLine{
		PlayerName:  player.Name,
		PlayerClass: player.PlayerClass,
		Text:        msg.Text,
	})
	r.turns = append(r.turns, wire.Turn{PlayerID: msg.PlayerID, Text: msg.Text})

	next := r.nextActor()
	if next == "" {
		r.resolveRound()
		return
	}
	r.current = next
	r.broadcast(wire.Frame{
		Type:            wire.FrameActionReceived,
		PlayerID:        msg.PlayerID,
		CurrentPlayerID: next,
	})
}

// resolveRound runs once every living player has acted: the narrator turns
// the collected actions into the next story segment and the cursor wraps
// back to the first actor.
func (r *Room) resolveRound() {
	narrative, err := r.narrator.ResolveTurn(r.ctx, r.scenario, r.players, r.actions)
	if err != nil {
		r.log.Warn("narrator failed on turn", zap.Error(err))
		narrative = "The story continues."
	}

	r.turns = append(r.turns, wire.Turn{PlayerID: wire.NarratorID, Text: narrative})
	r.actions = nil
	r.acted = make(map[string]bool)
	r.current = r.firstActor()
	r.broadcast(wire.Frame{
		Type:            wire.FrameNewTurn,
		Narrative:       narrative,
		CurrentPlayerID: r.current,
	})
}

func (r *Room) handleDisconnect(msg Disconnect) {
	// Close the outbox so the connection's writer goroutine ends.
	if ch, ok := r.subs[msg.PlayerID]; ok {
		close(ch)
		delete(r.subs, msg.PlayerID)
	}

	player := r.findPlayer(msg.PlayerID)
	if player == nil {
		return
	}
	name := player.Name

	kept := r.players[:0:0]
	for _, p := range r.players {
		if p.ID != msg.PlayerID {
			kept = append(kept, p)
		}
	}
	r.players = kept
	delete(r.acted, msg.PlayerID)

	// Departures travel by display name only.
	r.broadcast(wire.Frame{Type: wire.FramePlayerLeft, PlayerName: name})
	r.log.Info("player left", zap.String("player_id", msg.PlayerID), zap.String("name", name))

	if r.status != wire.StatusInProgress || len(r.players) == 0 {
		r.current = ""
		return
	}
	if msg.PlayerID == r.current {
		next := r.nextActor()
		if next == "" {
			r.resolveRound()
			return
		}
		r.current = next
		r.broadcast(wire.Frame{
			Type:            wire.FrameActionReceived,
			PlayerID:        msg.PlayerID,
			CurrentPlayerID: next,
		})
	}
}

func (r *Room) statusResponse() wire.StatusResponse {
	resp := wire.StatusResponse{
		Status:  r.status,
		Players: append([]wire.Player(nil), r.players...),
		Turns:   append([]wire.Turn(nil), r.turns...),
	}
	if r.status == wire.StatusInProgress {
		resp.CurrentPlayerID = r.current
	}
	return resp
}

// firstActor is the first living player in roster order.
func (r *Room) firstActor() string {
	for _, p := range r.players {
		if p.IsAlive {
			return p.ID
		}
	}
	return ""
}

// nextActor is the first living player who has not acted this round, or ""
// when the round is complete.
func (r *Room) nextActor() string {
	for _, p := range r.players {
		if p.IsAlive && !r.acted[p.ID] {
			return p.ID
		}
	}
	return ""
}

func (r *Room) findPlayer(id string) *wire.Player {
	for i := range r.players {
		if r.players[i].ID == id {
			return &r.players[i]
		}
	}
	return nil
}

func (r *Room) broadcast(f wire.Frame) {
	payload, err := json.Marshal(f)
	if err != nil {
		r.log.Error("encode frame", zap.Error(err))
		return
	}
	for id, ch := range r.subs {
		select {
		case ch <- payload:
		default:
			// Slow or stuck subscriber: drop them.
			close(ch)
			delete(r.subs, id)
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.subs {
		close(ch)
		delete(r.subs, id)
	}
	r.cancel()
}

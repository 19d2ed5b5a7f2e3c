package gameserver

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RegistryMsg interface{ isRegistryMsg() }

type CreateSession struct {
	Scenario string
	Password string
	Reply    chan *Room
}

type GetSession struct {
	ID    string
	Reply chan *Room
}

type RemoveSession struct{ ID string }

type ShutdownRegistry struct{}

func (CreateSession) isRegistryMsg()    {}
func (GetSession) isRegistryMsg()       {}
func (RemoveSession) isRegistryMsg()    {}
func (ShutdownRegistry) isRegistryMsg() {}

// Registry maps session ids to room actors.
type Registry struct {
	inbox    chan RegistryMsg
	rooms    map[string]*Room
	narrator Narrator
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewRegistry(parent context.Context, narrator Narrator, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan RegistryMsg, 64),
		rooms:    make(map[string]*Room),
		narrator: narrator,
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Inbox() chan<- RegistryMsg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case CreateSession:
				id := uuid.NewString()
				room := NewRoom(r.ctx, id, msg.Scenario, msg.Password, r.narrator, r.log)
				r.rooms[id] = room
				msg.Reply <- room

			case GetSession:
				msg.Reply <- r.rooms[msg.ID] // may be nil

			case RemoveSession:
				if room := r.rooms[msg.ID]; room != nil {
					room.Inbox() <- Shutdown{}
					delete(r.rooms, msg.ID)
				}

			case ShutdownRegistry:
				for _, room := range r.rooms {
					room.Inbox() <- Shutdown{}
				}
				clear(r.rooms)
				r.cancel()
			}
		}
	}
}

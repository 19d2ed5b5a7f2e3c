package gameserver

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestRegistry_CreateThenGetSamePointer(t *testing.T) {
	reg := NewRegistry(context.Background(), ScriptedNarrator{}, zap.NewNop())

	reply := make(chan *Room, 1)
	reg.Inbox() <- CreateSession{Scenario: "a dark forest", Reply: reply}
	room1 := <-reply
	if room1 == nil {
		t.Fatalf("expected a room")
	}

	reg.Inbox() <- GetSession{ID: room1.ID(), Reply: reply}
	room2 := <-reply
	if room1 != room2 {
		t.Fatalf("expected same room pointer")
	}
}

func TestRegistry_GetUnknownIsNil(t *testing.T) {
	reg := NewRegistry(context.Background(), ScriptedNarrator{}, zap.NewNop())

	reply := make(chan *Room, 1)
	reg.Inbox() <- GetSession{ID: "nope", Reply: reply}
	if room := <-reply; room != nil {
		t.Fatalf("expected nil for unknown session, got %v", room.ID())
	}
}

func TestRegistry_RemoveSession(t *testing.T) {
	reg := NewRegistry(context.Background(), ScriptedNarrator{}, zap.NewNop())

	reply := make(chan *Room, 1)
	reg.Inbox() <- CreateSession{Scenario: "a dark forest", Reply: reply}
	room := <-reply

	reg.Inbox() <- RemoveSession{ID: room.ID()}
	reg.Inbox() <- GetSession{ID: room.ID(), Reply: reply}
	if got := <-reply; got != nil {
		t.Fatalf("expected session to be gone")
	}
}

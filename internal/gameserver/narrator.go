package gameserver

import (
	"context"
	"fmt"
	"strings"

	"storysync/pkg/wire"
)

// ActionLine is one player's submitted action within a round.
type ActionLine struct {
	PlayerName  string
	PlayerClass string
	Text        string
}

// Narrator produces the story. The real game master is an external service;
// the reference server ships a deterministic scripted one.
type Narrator interface {
	OpeningScene(ctx context.Context, scenario string, players []wire.Player) (string, error)
	ResolveTurn(ctx context.Context, scenario string, players []wire.Player, actions []ActionLine) (string, error)
}

// ScriptedNarrator is a deterministic Narrator good enough for local play
// and tests.
type ScriptedNarrator struct{}

func (ScriptedNarrator) OpeningScene(_ context.Context, scenario string, players []wire.Player) (string, error) {
	names := make([]string, 0, len(players))
	for _, p := range players {
		names = append(names, fmt.Sprintf("%s the %s", p.Name, p.PlayerClass))
	}
	return fmt.Sprintf("%s. Our heroes, %s, stand at the threshold.", scenario, strings.Join(names, ", ")), nil
}

func (ScriptedNarrator) ResolveTurn(_ context.Context, _ string, _ []wire.Player, actions []ActionLine) (string, error) {
	lines := make([]string, 0, len(actions))
	for _, a := range actions {
		lines = append(lines, fmt.Sprintf("%s %s", a.PlayerName, a.Text))
	}
	return fmt.Sprintf("And so it came to pass: %s. The world shifts in response.", strings.Join(lines, "; ")), nil
}

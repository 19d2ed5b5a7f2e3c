package session

import "fmt"

// Display is the view flattened into render-ready fields. Pure mapping, no
// state of its own.
type Display struct {
	Title        string
	Roster       []string
	Story        []string
	Banner       string
	InputEnabled bool
}

func Project(v View) Display {
	d := Display{
		Title:        fmt.Sprintf("Session %s", v.Identity.SessionID),
		Banner:       v.StatusMessage,
		InputEnabled: v.Phase == PhaseActive && v.Cursor != "" && v.Cursor == v.Identity.LocalPlayerID,
	}
	if d.Banner == "" {
		d.Banner = phaseBanner(v.Phase)
	}

	for _, m := range v.Members {
		line := fmt.Sprintf("%s the %s", m.Name, m.PlayerClass)
		if m.ID == v.Identity.LocalPlayerID {
			line += " (you)"
		}
		if m.ID == v.Cursor {
			line += " *"
		}
		if !m.IsAlive {
			line += " [fallen]"
		}
		d.Roster = append(d.Roster, line)
	}

	for _, e := range v.Log {
		if e.SpeakerID == SpeakerNarrator {
			d.Story = append(d.Story, e.Text)
			continue
		}
		name := e.SpeakerID
		if n, ok := v.memberName(e.SpeakerID); ok {
			name = n
		}
		d.Story = append(d.Story, fmt.Sprintf("%s: %s", name, e.Text))
	}

	return d
}

func phaseBanner(p Phase) string {
	switch p {
	case PhaseUnjoined:
		return "Not in a session."
	case PhaseAwaitingSnapshot:
		return "Waiting for the session to begin..."
	case PhaseClosed:
		return "Session closed."
	default:
		return ""
	}
}

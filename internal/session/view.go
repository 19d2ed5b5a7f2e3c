package session

// Phase is the lifecycle stage of the local session view.
type Phase string

const (
	PhaseUnjoined         Phase = "unjoined"
	PhaseAwaitingSnapshot Phase = "awaiting_snapshot"
	PhaseActive           Phase = "active"
	PhaseClosed           Phase = "closed"
)

// SpeakerNarrator is the reserved speaker id for story segments.
const SpeakerNarrator = "narrator"

// Identity is fixed at create/join time and never changes for the life of
// the session view.
type Identity struct {
	SessionID     string
	LocalPlayerID string
	IsHost        bool
}

// Member is one roster entry, keyed by ID. Names are not guaranteed unique.
type Member struct {
	ID          string
	Name        string
	PlayerClass string
	IsAlive     bool
}

// TurnEntry is one line of the story log. Entries are append-only and never
// reordered.
type TurnEntry struct {
	SpeakerID string
	Text      string
}

// View is the single source of truth the UI renders from. It is owned by the
// Reconciler; everyone else sees immutable published copies. Cursor is the id
// of the member allowed to act, or empty before the session starts.
type View struct {
	Identity      Identity
	Members       []Member
	Log           []TurnEntry
	Cursor        string
	Phase         Phase
	StatusMessage string
}

// Snapshot is a point-in-time copy of session state fetched over REST.
// Pending means the session exists but has not started; such a result carries
// no state worth applying.
type Snapshot struct {
	Pending bool
	Members []Member
	Log     []TurnEntry
	Cursor  string
}

func (v View) clone() View {
	c := v
	c.Members = append([]Member(nil), v.Members...)
	c.Log = append([]TurnEntry(nil), v.Log...)
	return c
}

func (v View) memberName(id string) (string, bool) {
	for _, m := range v.Members {
		if m.ID == id {
			return m.Name, true
		}
	}
	return "", false
}

func (v View) hasMember(id string) bool {
	_, ok := v.memberName(id)
	return ok
}

// Package session holds the client-side session state machine: the
// Reconciler folds the REST snapshot and the event stream into one consistent
// view, the Gate decides when the local player may act, and the projector
// maps the view to displayable fields.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"storysync/internal/stream"
	"storysync/pkg/wire"
)

// Loader fetches the session snapshot. Implemented by directory.Client.
type Loader interface {
	LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error)
}

// Stream is one live event stream connection, as the Reconciler consumes it.
// Implemented by stream.Adapter.
type Stream interface {
	Events() <-chan stream.Event
	Send(ctx context.Context, text string) error
	Err() error
	Close()
}

// Dialer opens event streams.
type Dialer interface {
	Dial(ctx context.Context, sessionID, playerID string) (Stream, error)
}

// NewStreamDialer returns a Dialer that opens websocket event streams
// against the given server base URL.
func NewStreamDialer(baseURL string, log *zap.Logger) Dialer {
	return wsDialer{base: baseURL, log: log}
}

type wsDialer struct {
	base string
	log  *zap.Logger
}

func (d wsDialer) Dial(ctx context.Context, sessionID, playerID string) (Stream, error) {
	a, err := stream.Dial(ctx, d.base, sessionID, playerID, d.log)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Reconciler inbox messages. Snapshot results and stream events race; every
// async result carries the generation it was launched under so anything that
// outlives a teardown is discarded.
type msg interface{ isReconcilerMsg() }

type beginMsg struct{ identity Identity }

type snapshotMsg struct {
	gen  uint64
	snap *Snapshot
	err  error
}

type streamUpMsg struct {
	gen uint64
	s   Stream
}

type eventMsg struct {
	gen uint64
	ev  stream.Event
}

type disconnectedMsg struct {
	gen uint64
	err error
}

type teardownMsg struct{ done chan struct{} }

func (beginMsg) isReconcilerMsg()        {}
func (snapshotMsg) isReconcilerMsg()     {}
func (streamUpMsg) isReconcilerMsg()     {}
func (eventMsg) isReconcilerMsg()        {}
func (disconnectedMsg) isReconcilerMsg() {}
func (teardownMsg) isReconcilerMsg()     {}

// Reconciler is the authoritative owner of the session view. All mutation
// happens on its loop goroutine, one input at a time, in arrival order.
type Reconciler struct {
	log    *zap.Logger
	loader Loader
	dialer Dialer

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan msg

	published atomic.Pointer[View]
	changed   chan struct{}

	mu     sync.Mutex
	stream Stream

	// loop-owned; never touched off the loop goroutine
	cur          View
	gen          uint64
	startApplied bool
}

// New creates a Reconciler in the Unjoined phase and starts its loop.
func New(parent context.Context, log *zap.Logger, loader Loader, dialer Dialer) *Reconciler {
	ctx, cancel := context.WithCancel(parent)
	r := &Reconciler{
		log:     log,
		loader:  loader,
		dialer:  dialer,
		ctx:     ctx,
		cancel:  cancel,
		inbox:   make(chan msg, 64),
		changed: make(chan struct{}, 1),
		cur:     View{Phase: PhaseUnjoined},
	}
	r.publish()
	go r.loop()
	return r
}

// View returns the latest published copy of the session view.
func (r *Reconciler) View() View {
	return *r.published.Load()
}

// Changed signals (coalesced) whenever a new view has been published.
func (r *Reconciler) Changed() <-chan struct{} { return r.changed }

// Begin installs the identity obtained from create/join and launches the
// snapshot fetch and the stream connect concurrently. It is a no-op once the
// view has left the Unjoined phase.
func (r *Reconciler) Begin(identity Identity) {
	r.post(beginMsg{identity: identity})
}

// Teardown closes the stream, abandons any in-flight snapshot fetch, and
// leaves the view Closed. Idempotent, and safe before Begin.
func (r *Reconciler) Teardown() {
	done := make(chan struct{})
	if !r.post(teardownMsg{done: done}) {
		// Loop already gone: a previous teardown finished the job.
		return
	}
	select {
	case <-done:
	case <-r.ctx.Done():
	}
}

// post delivers m to the loop, reporting false if the loop has shut down.
func (r *Reconciler) post(m msg) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Reconciler) currentStream() Stream {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stream
}

func (r *Reconciler) setStream(s Stream) {
	r.mu.Lock()
	r.stream = s
	r.mu.Unlock()
}

func (r *Reconciler) publish() {
	v := r.cur.clone()
	r.published.Store(&v)
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *Reconciler) loop() {
	for {
		select {
		case <-r.ctx.Done():
			return

		case m := <-r.inbox:
			switch m := m.(type) {
			case beginMsg:
				r.handleBegin(m)
			case snapshotMsg:
				r.handleSnapshot(m)
			case streamUpMsg:
				r.handleStreamUp(m)
			case eventMsg:
				r.handleEvent(m)
			case disconnectedMsg:
				r.handleDisconnected(m)
			case teardownMsg:
				r.shutdown()
				close(m.done)
				return
			}
		}
	}
}

func (r *Reconciler) handleBegin(m beginMsg) {
	if r.cur.Phase != PhaseUnjoined {
		r.log.Warn("begin ignored", zap.String("phase", string(r.cur.Phase)))
		return
	}

	r.cur.Identity = m.identity
	r.cur.Phase = PhaseAwaitingSnapshot
	r.cur.StatusMessage = "Connecting to session..."
	r.publish()

	gen := r.gen
	sessionID := m.identity.SessionID
	playerID := m.identity.LocalPlayerID

	go func() {
		snap, err := r.loader.LoadSnapshot(r.ctx, sessionID)
		r.post(snapshotMsg{gen: gen, snap: snap, err: err})
	}()

	go func() {
		s, err := r.dialer.Dial(r.ctx, sessionID, playerID)
		if err != nil {
			r.post(disconnectedMsg{gen: gen, err: err})
			return
		}
		r.post(streamUpMsg{gen: gen, s: s})
		for ev := range s.Events() {
			r.post(eventMsg{gen: gen, ev: ev})
		}
		r.post(disconnectedMsg{gen: gen, err: s.Err()})
	}()
}

func (r *Reconciler) handleSnapshot(m snapshotMsg) {
	if m.gen != r.gen || r.cur.Phase == PhaseClosed {
		r.log.Debug("discarding stale snapshot result")
		return
	}
	if m.err != nil {
		// The stream can still initialize the view via game_start.
		r.log.Warn("snapshot fetch failed", zap.Error(m.err))
		return
	}
	if m.snap.Pending {
		return
	}
	if r.startApplied {
		// The stream already delivered the authoritative start; a snapshot
		// never overwrites it.
		r.log.Debug("snapshot superseded by stream start event")
		return
	}
	if r.cur.Phase != PhaseAwaitingSnapshot {
		return
	}

	r.cur.Members = append([]Member(nil), m.snap.Members...)
	r.cur.Log = append([]TurnEntry(nil), m.snap.Log...)
	r.cur.Cursor = m.snap.Cursor
	r.cur.Phase = PhaseActive
	r.cur.StatusMessage = r.turnBanner("")
	r.publish()
}

func (r *Reconciler) handleStreamUp(m streamUpMsg) {
	if m.gen != r.gen || r.cur.Phase == PhaseClosed {
		m.s.Close()
		return
	}
	r.setStream(m.s)
}

func (r *Reconciler) handleEvent(m eventMsg) {
	if m.gen != r.gen || r.cur.Phase == PhaseClosed {
		return
	}

	switch ev := m.ev.(type) {
	case stream.GameStart:
		r.applyGameStart(ev)
	case stream.PlayerJoined:
		r.applyPlayerJoined(ev)
	case stream.ActionReceived:
		r.applyActionReceived(ev)
	case stream.NewTurn:
		r.applyNewTurn(ev)
	case stream.PlayerLeft:
		r.applyPlayerLeft(ev)
	case stream.Unknown:
		// The adapter already drops these; tolerate one anyway.
		r.log.Debug("ignoring unknown event", zap.String("type", ev.Type))
	}
}

func (r *Reconciler) applyGameStart(ev stream.GameStart) {
	if r.startApplied {
		r.log.Debug("duplicate game start ignored")
		return
	}
	r.startApplied = true

	members := make([]Member, 0, len(ev.Players))
	for _, p := range ev.Players {
		members = append(members, memberFromWire(p))
	}
	r.cur.Members = members
	r.cur.Log = []TurnEntry{{SpeakerID: SpeakerNarrator, Text: ev.Narrative}}
	r.cur.Cursor = ev.Cursor
	r.cur.Phase = PhaseActive
	r.cur.StatusMessage = r.turnBanner("The story begins.")
	r.publish()
}

func (r *Reconciler) applyPlayerJoined(ev stream.PlayerJoined) {
	if r.cur.hasMember(ev.Player.ID) {
		return
	}
	m := memberFromWire(ev.Player)
	r.cur.Members = append(r.cur.Members, m)
	r.cur.StatusMessage = fmt.Sprintf("%s the %s has joined.", m.Name, m.PlayerClass)
	r.publish()
}

func (r *Reconciler) applyActionReceived(ev stream.ActionReceived) {
	if r.cur.Phase != PhaseActive {
		return
	}
	actor, actorOK := r.cur.memberName(ev.ActorID)
	next, nextOK := r.cur.memberName(ev.NextCursor)

	// The server owns turn order: the cursor moves even when we cannot name
	// the players involved.
	r.cur.Cursor = ev.NextCursor
	if actorOK && nextOK {
		r.cur.StatusMessage = fmt.Sprintf("%s has acted; now it's %s's turn.", actor, next)
	}
	r.publish()
}

func (r *Reconciler) applyNewTurn(ev stream.NewTurn) {
	if r.cur.Phase != PhaseActive {
		return
	}
	r.cur.Log = append(r.cur.Log, TurnEntry{SpeakerID: SpeakerNarrator, Text: ev.Narrative})
	r.cur.Cursor = ev.NextCursor
	if next, ok := r.cur.memberName(ev.NextCursor); ok {
		r.cur.StatusMessage = fmt.Sprintf("A new turn begins; it's %s's turn.", next)
	}
	r.publish()
}

func (r *Reconciler) applyPlayerLeft(ev stream.PlayerLeft) {
	// Departures are keyed by display name: every member with that name goes.
	kept := r.cur.Members[:0:0]
	removed := false
	for _, m := range r.cur.Members {
		if m.Name == ev.Name {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return
	}
	r.cur.Members = kept
	if r.cur.Cursor != "" && !r.cur.hasMember(r.cur.Cursor) {
		r.cur.Cursor = ""
	}
	r.cur.StatusMessage = fmt.Sprintf("%s has left the game.", ev.Name)
	r.publish()
}

func (r *Reconciler) handleDisconnected(m disconnectedMsg) {
	if m.gen != r.gen || r.cur.Phase == PhaseClosed {
		return
	}
	if m.err != nil {
		r.log.Info("stream ended", zap.Error(m.err))
	}
	r.closeStream()
	r.cur.Phase = PhaseClosed
	r.cur.StatusMessage = "Disconnected from session."
	r.publish()
}

func (r *Reconciler) shutdown() {
	r.gen++
	r.closeStream()
	if r.cur.Phase != PhaseClosed {
		r.cur.Phase = PhaseClosed
		r.cur.StatusMessage = "Left the session."
		r.publish()
	}
	r.cancel()
}

func (r *Reconciler) closeStream() {
	if s := r.currentStream(); s != nil {
		s.Close()
		r.setStream(nil)
	}
}

func (r *Reconciler) turnBanner(fallback string) string {
	if name, ok := r.cur.memberName(r.cur.Cursor); ok {
		return fmt.Sprintf("It's %s's turn.", name)
	}
	return fallback
}

func memberFromWire(p wire.Player) Member {
	return Member{ID: p.ID, Name: p.Name, PlayerClass: p.PlayerClass, IsAlive: p.IsAlive}
}

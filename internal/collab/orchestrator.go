// Package collab ties identity, registry, and sync channel together
// into the stateful object the editor shell talks to. One orchestrator
// serves one window and at most one shared session at a time.
package collab

import (
	"context"
	gosync "sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/registry"
	"github.com/quickassist/collab-server-go/internal/sync"
)

// State is the orchestrator lifecycle. Ended is terminal: a new
// orchestrator is constructed for the next session.
type State string

const (
	StateIdle     State = "idle"
	StateHosting  State = "hosting"
	StateGuesting State = "guesting"
	StateEnded    State = "ended"
)

type pendingEdit struct {
	kind        model.SyncEventKind
	codeContent string
	language    string
}

// Orchestrator drives one collaboration: it establishes the session
// through the registry, fans local edits out through the sync channel
// after a coalescing debounce, and applies remote events to the shell
// through callbacks. Self-originated events are filtered twice, once by
// the channel and once here.
type Orchestrator struct {
	reg           registry.Registry
	channel       sync.Channel
	participantID string

	// Callbacks into the editor shell. Set before Host/Join.
	OnRemoteEdit     func(codeContent, language string)
	OnRemoteCursor   func(line, column int)
	OnRemoteLanguage func(codeContent, language string)

	debounceWindow time.Duration
	echoWindow     time.Duration

	mu         gosync.Mutex
	state      State
	session    *model.SharedSession
	permission model.Permission
	sub        *sync.Subscription
	timer      *time.Timer
	pending    *pendingEdit
	echoUntil  time.Time
}

func NewOrchestrator(reg registry.Registry, channel sync.Channel, participantID string) *Orchestrator {
	return &Orchestrator{
		reg:            reg,
		channel:        channel,
		participantID:  participantID,
		debounceWindow: config.DebounceWindow,
		echoWindow:     config.EchoGuardWindow,
		state:          StateIdle,
	}
}

// Host creates a new shared session and transitions to Hosting.
func (o *Orchestrator) Host(ctx context.Context, ownerSessionID string, permission model.Permission) (*model.SharedSession, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return nil, apperr.Conflict("Collaboration already " + string(state))
	}
	o.mu.Unlock()

	session, err := o.reg.Create(ctx, ownerSessionID, o.participantID, permission)
	if err != nil {
		return nil, err
	}
	if err := o.attach(session, StateHosting); err != nil {
		return nil, err
	}
	log.Info().Str("sessionId", session.ID).Msg("Hosting collaboration session")
	return session, nil
}

// Join attaches to an existing session by share code and transitions to
// Guesting. The session's permission applies to this participant.
func (o *Orchestrator) Join(ctx context.Context, code string) (*model.SharedSession, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		state := o.state
		o.mu.Unlock()
		return nil, apperr.Conflict("Collaboration already " + string(state))
	}
	o.mu.Unlock()

	session, err := o.reg.Join(ctx, code, o.participantID)
	if err != nil {
		return nil, err
	}
	if err := o.attach(session, StateGuesting); err != nil {
		return nil, err
	}
	log.Info().Str("sessionId", session.ID).Msg("Joined collaboration session as guest")
	return session, nil
}

func (o *Orchestrator) attach(session *model.SharedSession, state State) error {
	sub, err := o.channel.Subscribe(session.ID, o.participantID, o.handleRemote)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.session = session
	o.permission = session.Permission
	o.sub = sub
	o.state = state
	o.mu.Unlock()
	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Session returns the attached shared session, nil while Idle or after
// a teardown that never attached.
func (o *Orchestrator) Session() *model.SharedSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session
}

// NotifyEdit reports a local buffer change. The publish is debounced:
// only the latest state within the window goes out, not every
// keystroke. Drops silently when view-only, echo-guarded, or inactive.
func (o *Orchestrator) NotifyEdit(codeContent, language string) {
	o.scheduleEdit(model.SyncEventEdit, codeContent, language)
}

// NotifyLanguage reports a local language switch. Shares the debounce
// slot with edits so the latest buffer state wins.
func (o *Orchestrator) NotifyLanguage(codeContent, language string) {
	o.scheduleEdit(model.SyncEventLanguageChange, codeContent, language)
}

// NotifyCursor reports a local cursor move. Cursor events publish
// immediately: they are cheap and stale positions are worthless.
func (o *Orchestrator) NotifyCursor(line, column int) {
	o.mu.Lock()
	if !o.canPublishLocked() {
		o.mu.Unlock()
		return
	}
	sessionID := o.session.ID
	o.mu.Unlock()

	evt := model.SyncEvent{
		ID:                  model.NewEventID(time.Now()),
		SharedSessionID:     sessionID,
		OriginParticipantID: o.participantID,
		Kind:                model.SyncEventCursor,
		Line:                &line,
		Column:              &column,
		CreatedAt:           time.Now(),
	}
	o.publish(evt)
}

func (o *Orchestrator) scheduleEdit(kind model.SyncEventKind, codeContent, language string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.canPublishLocked() {
		return
	}
	if time.Now().Before(o.echoUntil) {
		// Buffer change caused by a just-applied remote event; do
		// not broadcast it back.
		return
	}
	o.pending = &pendingEdit{kind: kind, codeContent: codeContent, language: language}
	if o.timer == nil {
		o.timer = time.AfterFunc(o.debounceWindow, o.flushPending)
	}
}

// flushPending publishes whatever the debounce window coalesced to.
func (o *Orchestrator) flushPending() {
	o.mu.Lock()
	pending := o.pending
	o.pending = nil
	o.timer = nil
	if pending == nil || !o.canPublishLocked() {
		o.mu.Unlock()
		return
	}
	sessionID := o.session.ID
	o.mu.Unlock()

	evt := model.SyncEvent{
		ID:                  model.NewEventID(time.Now()),
		SharedSessionID:     sessionID,
		OriginParticipantID: o.participantID,
		Kind:                pending.kind,
		CodeContent:         &pending.codeContent,
		Language:            &pending.language,
		CreatedAt:           time.Now(),
	}
	o.publish(evt)
}

func (o *Orchestrator) publish(evt model.SyncEvent) {
	// Steady-state publish failures self-heal on the next change.
	if err := o.channel.Publish(context.Background(), evt); err != nil {
		log.Warn().Err(err).Str("kind", string(evt.Kind)).Msg("Failed to publish sync event")
	}
}

// canPublishLocked gates outgoing events: only active states publish,
// and a view-only guest never does.
func (o *Orchestrator) canPublishLocked() bool {
	switch o.state {
	case StateHosting:
		return true
	case StateGuesting:
		return o.permission == model.PermissionEdit
	default:
		return false
	}
}

func (o *Orchestrator) handleRemote(evt model.SyncEvent) {
	if evt.OriginParticipantID == o.participantID {
		return
	}
	o.mu.Lock()
	if o.state != StateHosting && o.state != StateGuesting {
		o.mu.Unlock()
		return
	}
	o.echoUntil = time.Now().Add(o.echoWindow)
	o.mu.Unlock()

	switch evt.Kind {
	case model.SyncEventEdit:
		if o.OnRemoteEdit != nil && evt.CodeContent != nil && evt.Language != nil {
			o.OnRemoteEdit(*evt.CodeContent, *evt.Language)
		}
	case model.SyncEventLanguageChange:
		if o.OnRemoteLanguage != nil && evt.CodeContent != nil && evt.Language != nil {
			o.OnRemoteLanguage(*evt.CodeContent, *evt.Language)
		}
	case model.SyncEventCursor:
		if o.OnRemoteCursor != nil && evt.Line != nil && evt.Column != nil {
			o.OnRemoteCursor(*evt.Line, *evt.Column)
		}
	}
}

// End terminates the collaboration. Hosts end the registry session;
// guests just detach. Both roles unsubscribe the channel, stop the
// debounce timer, and land in Ended. Idempotent.
func (o *Orchestrator) End(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateEnded || o.state == StateIdle {
		o.state = StateEnded
		o.mu.Unlock()
		return nil
	}
	wasHost := o.state == StateHosting
	session := o.session
	sub := o.sub
	timer := o.timer
	o.state = StateEnded
	o.sub = nil
	o.timer = nil
	o.pending = nil
	o.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if sub != nil {
		sub.Close()
	}

	if wasHost && session != nil {
		if err := o.reg.End(ctx, session.ID, o.participantID); err != nil {
			log.Warn().Err(err).Str("sessionId", session.ID).Msg("Failed to end registry session")
			return err
		}
	}
	log.Info().Msg("Collaboration session ended")
	return nil
}

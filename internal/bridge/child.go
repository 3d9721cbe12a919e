package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/editor"
	"github.com/quickassist/collab-server-go/internal/identity"
	"github.com/quickassist/collab-server-go/internal/localstore"
	"github.com/quickassist/collab-server-go/internal/model"
	"github.com/quickassist/collab-server-go/internal/registry"
	"github.com/quickassist/collab-server-go/internal/util"
)

// ChildBridge is the window that was (or should have been) opened by a
// host. With a live opener it announces readiness and mirrors the
// frames the opener pushes. Without one it falls back to a shared slot
// in local storage and keeps retrying a real registry join until one
// succeeds.
type ChildBridge struct {
	opener        Window
	store         *localstore.Store
	reg           registry.Registry
	widget        editor.Widget
	participantID string

	ownerSessionID string
	shareCode      string
	language       string

	// OnSession fires once when the registry join finally succeeds.
	OnSession func(*model.SharedSession)
	// OnLanguage fires when the opener switches language.
	OnLanguage func(language string)
	// OnClose fires when the opener tells this window to shut down.
	OnClose func()

	retryInterval time.Duration
	pollInterval  time.Duration

	mu          sync.Mutex
	lastApplied string
	stopped     bool

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// ChildConfig carries the identifiers the child window was launched
// with (typically parsed from its URL).
type ChildConfig struct {
	Opener         Window // nil when reached via a direct link
	OwnerSessionID string
	ShareCode      string
	Language       string
	ParticipantID  string
}

func NewChildBridge(cfg ChildConfig, store *localstore.Store, reg registry.Registry, widget editor.Widget) *ChildBridge {
	if cfg.ParticipantID == "" && store != nil {
		// Direct-link windows arrive without a participant id in the
		// URL; the profile's durable identity fills in.
		id, err := identity.NewProvider(store).GetOrCreate()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to resolve participant identity")
		} else {
			cfg.ParticipantID = id
		}
	}
	return &ChildBridge{
		opener:         cfg.Opener,
		store:          store,
		reg:            reg,
		widget:         widget,
		participantID:  cfg.ParticipantID,
		ownerSessionID: cfg.OwnerSessionID,
		shareCode:      cfg.ShareCode,
		language:       cfg.Language,
		retryInterval:  config.SessionRetryInterval,
		pollInterval:   config.PollInterval,
	}
}

// Start wires the child up. With an opener it announces readiness and
// waits for pushed frames. Without one it starts the local-storage
// fallback sync and, if a share code and registry are available, a
// parallel join-retry loop that cancels the fallback on success.
func (b *ChildBridge) Start(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)

	if b.opener != nil {
		if err := b.opener.Post(Message{Kind: MessageReady, ShareCode: b.shareCode}); err != nil {
			log.Debug().Err(err).Msg("Failed to announce readiness to opener")
		}
		return
	}

	log.Info().Str("ownerSession", b.ownerSessionID).Msg("No opener window, using local storage fallback")
	go b.runFallback(ctx)
	if b.reg != nil && b.shareCode != "" {
		go b.retryJoin(ctx)
	}
}

// HandleMessage processes a frame pushed by the opener.
func (b *ChildBridge) HandleMessage(msg Message) {
	switch msg.Kind {
	case MessageCodeUpdate, MessageCodeResponse:
		b.apply(msg.CodeContent)
	case MessageLanguageUpdate:
		b.mu.Lock()
		b.language = msg.Language
		b.mu.Unlock()
		b.apply(msg.CodeContent)
		if b.OnLanguage != nil {
			b.OnLanguage(msg.Language)
		}
	case MessageClose:
		b.Stop()
		if b.OnClose != nil {
			b.OnClose()
		}
	}
}

// RequestCode asks the opener for the current buffer state.
func (b *ChildBridge) RequestCode() {
	if b.opener == nil {
		return
	}
	if err := b.opener.Post(Message{Kind: MessageRequestCode, ShareCode: b.shareCode}); err != nil {
		log.Debug().Err(err).Msg("Failed to request code from opener")
	}
}

// PublishLocal writes the local buffer to the fallback slot so the
// other window of this browser instance can pick it up. Only meaningful
// in fallback mode; with a live opener it is a no-op.
func (b *ChildBridge) PublishLocal(codeContent string) {
	if b.opener != nil || b.store == nil {
		return
	}
	b.mu.Lock()
	b.lastApplied = codeContent
	lang := b.language
	b.mu.Unlock()
	if err := b.store.PutSlot(b.ownerSessionID, lang, codeContent); err != nil {
		log.Debug().Err(err).Msg("Failed to write fallback slot")
	}
}

// Stop tears down timers and retry loops. Safe to call more than once.
func (b *ChildBridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		if b.cancel != nil {
			b.cancel()
		}
	})
}

func (b *ChildBridge) apply(codeContent string) {
	b.mu.Lock()
	b.lastApplied = codeContent
	stopped := b.stopped
	b.mu.Unlock()
	if stopped {
		return
	}
	b.widget.SetValue(codeContent)
}

// runFallback mirrors the shared slot into the widget. The slot is
// append-overwrite, so the loop only applies content it has not seen.
func (b *ChildBridge) runFallback(ctx context.Context) {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.mu.Lock()
			lang := b.language
			last := b.lastApplied
			b.mu.Unlock()

			slot, err := b.store.GetSlot(b.ownerSessionID, lang)
			if err != nil {
				log.Debug().Err(err).Msg("Fallback slot read failed")
				continue
			}
			if slot == nil || slot.CodeContent == last {
				continue
			}
			b.apply(slot.CodeContent)
		}
	}
}

// retryJoin keeps trying the real registry until the session connects,
// then hands it to OnSession and cancels the fallback loop.
func (b *ChildBridge) retryJoin(ctx context.Context) {
	ticker := time.NewTicker(b.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			session, err := b.reg.Join(ctx, b.shareCode, b.participantID)
			if err != nil {
				log.Debug().Err(err).Str("code", util.MaskCode(b.shareCode)).Msg("Session join retry failed")
				continue
			}
			log.Info().Str("sessionId", session.ID).Msg("Fallback window connected to real session")
			if b.cancel != nil {
				b.cancel()
			}
			if b.OnSession != nil {
				b.OnSession(session)
			}
			return
		}
	}
}

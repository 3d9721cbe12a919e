package bridge

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/apperr"
	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/util"
)

// CodeSource supplies the current buffer state for a share code. The
// host answers request_code and ready frames with it.
type CodeSource func(shareCode string) (codeContent, language string, ok bool)

// HostBridge is the opener side: it tracks at most one live child
// window per share code and pushes typed messages to them. A background
// poll releases handles whose windows the user has closed.
type HostBridge struct {
	opener Opener
	source CodeSource

	mu      sync.Mutex
	windows map[string]Window

	pollInterval time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

func NewHostBridge(opener Opener, source CodeSource) *HostBridge {
	b := &HostBridge{
		opener:       opener,
		source:       source,
		windows:      make(map[string]Window),
		pollInterval: config.WindowClosePollInterval,
		done:         make(chan struct{}),
	}
	go b.pollClosed()
	return b
}

// OpenWindow opens a child window for the given share code. Any prior
// window for the same code is closed first, so one code maps to at most
// one live window.
func (b *HostBridge) OpenWindow(url, shareCode string) (Window, error) {
	b.mu.Lock()
	prev := b.windows[shareCode]
	delete(b.windows, shareCode)
	b.mu.Unlock()
	if prev != nil {
		if err := prev.Close(); err != nil {
			log.Debug().Err(err).Str("code", util.MaskCode(shareCode)).Msg("Failed to close previous child window")
		}
	}

	win, err := b.opener.Open(url, "collab-"+shareCode)
	if err != nil || win == nil {
		log.Warn().Err(err).Str("code", util.MaskCode(shareCode)).Msg("Window open blocked")
		return nil, apperr.PopupBlocked().WithCause(err)
	}

	b.mu.Lock()
	b.windows[shareCode] = win
	b.mu.Unlock()

	log.Info().Str("code", util.MaskCode(shareCode)).Msg("Child window opened")
	return win, nil
}

// SendCode pushes the current buffer content to the child window for
// the given share code. Unknown or closed windows are a no-op.
func (b *HostBridge) SendCode(shareCode, codeContent, language string) {
	b.post(shareCode, Message{
		Kind:        MessageCodeUpdate,
		ShareCode:   shareCode,
		CodeContent: codeContent,
		Language:    language,
	})
}

// SendLanguage pushes a language switch to the child window.
func (b *HostBridge) SendLanguage(shareCode, codeContent, language string) {
	b.post(shareCode, Message{
		Kind:        MessageLanguageUpdate,
		ShareCode:   shareCode,
		CodeContent: codeContent,
		Language:    language,
	})
}

// HandleMessage processes a frame posted by a child window back to its
// opener. The window system delivers these through whatever event
// plumbing it has; the bridge only cares about the payload.
func (b *HostBridge) HandleMessage(shareCode string, msg Message) {
	switch msg.Kind {
	case MessageReady, MessageRequestCode:
		if b.source == nil {
			return
		}
		content, language, ok := b.source(shareCode)
		if !ok {
			return
		}
		b.post(shareCode, Message{
			Kind:        MessageCodeResponse,
			ShareCode:   shareCode,
			CodeContent: content,
			Language:    language,
		})
	case MessageClose:
		b.release(shareCode)
	}
}

// CloseWindow closes and releases the child window for a share code.
func (b *HostBridge) CloseWindow(shareCode string) {
	b.mu.Lock()
	win, ok := b.windows[shareCode]
	delete(b.windows, shareCode)
	b.mu.Unlock()
	if !ok {
		return
	}
	_ = win.Post(Message{Kind: MessageClose, ShareCode: shareCode})
	_ = win.Close()
}

// Close tears down the bridge: every tracked window is closed and the
// close-poll stops. Safe to call more than once.
func (b *HostBridge) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		b.mu.Lock()
		windows := b.windows
		b.windows = make(map[string]Window)
		b.mu.Unlock()
		for code, win := range windows {
			_ = win.Post(Message{Kind: MessageClose, ShareCode: code})
			_ = win.Close()
		}
	})
}

func (b *HostBridge) post(shareCode string, msg Message) {
	b.mu.Lock()
	win, ok := b.windows[shareCode]
	b.mu.Unlock()
	if !ok {
		return
	}
	if err := win.Post(msg); err != nil {
		log.Debug().Err(err).Str("code", util.MaskCode(shareCode)).Str("kind", string(msg.Kind)).Msg("Failed to post to child window")
	}
}

func (b *HostBridge) release(shareCode string) {
	b.mu.Lock()
	delete(b.windows, shareCode)
	b.mu.Unlock()
}

// pollClosed periodically drops handles whose windows were closed by
// the user, so the map never holds dead references.
func (b *HostBridge) pollClosed() {
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.mu.Lock()
			for code, win := range b.windows {
				if win.Closed() {
					delete(b.windows, code)
					log.Debug().Str("code", util.MaskCode(code)).Msg("Child window closed, handle released")
				}
			}
			b.mu.Unlock()
		}
	}
}

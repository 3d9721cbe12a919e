// Package bridge is the window-to-window transport used when both
// participants are windows of the same browser instance. The host keeps
// handles to the popups it opened and pushes updates directly; a child
// without an opener degrades to a shared slot in local storage until a
// registry session can be established.
package bridge

type MessageKind string

const (
	MessageCodeUpdate     MessageKind = "code_update"
	MessageLanguageUpdate MessageKind = "language_update"
	MessageClose          MessageKind = "close"
	MessageRequestCode    MessageKind = "request_code"
	MessageReady          MessageKind = "ready"
	MessageCodeResponse   MessageKind = "code_response"
)

// Message is one typed frame exchanged between an opener and its child.
type Message struct {
	Kind        MessageKind `json:"kind"`
	ShareCode   string      `json:"shareCode,omitempty"`
	CodeContent string      `json:"codeContent,omitempty"`
	Language    string      `json:"language,omitempty"`
}

// Window is a handle to an open child window.
type Window interface {
	Post(msg Message) error
	Closed() bool
	Close() error
}

// Opener abstracts the window system's open call. Implementations may
// return a nil window to signal that the platform blocked the popup.
type Opener interface {
	Open(url, name string) (Window, error)
}

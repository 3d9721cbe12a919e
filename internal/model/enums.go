package model

type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

func (p Permission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

type SyncEventKind string

const (
	SyncEventEdit           SyncEventKind = "edit"
	SyncEventCursor         SyncEventKind = "cursor"
	SyncEventLanguageChange SyncEventKind = "language_change"
)

func (k SyncEventKind) Valid() bool {
	switch k {
	case SyncEventEdit, SyncEventCursor, SyncEventLanguageChange:
		return true
	}
	return false
}

type SuggestionKind string

const (
	SuggestionComplete SuggestionKind = "complete"
	SuggestionOptimize SuggestionKind = "optimize"
	SuggestionDebug    SuggestionKind = "debug"
	SuggestionDocument SuggestionKind = "document"
)

func (k SuggestionKind) Valid() bool {
	switch k {
	case SuggestionComplete, SuggestionOptimize, SuggestionDebug, SuggestionDocument:
		return true
	}
	return false
}

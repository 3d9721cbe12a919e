package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Collaboration protocol timings
const (
	// SharedSessionTTL is the fixed logical lifetime of a shared session.
	// Read paths check it even before the cleanup job removes the row.
	SharedSessionTTL = 24 * time.Hour

	// DebounceWindow coalesces rapid local edits into one outgoing publish.
	DebounceWindow = 500 * time.Millisecond

	// EchoGuardWindow suppresses re-publishing a just-applied remote change.
	EchoGuardWindow = 100 * time.Millisecond

	// PollInterval is the staleness bound of the polling-backed channel.
	PollInterval = 500 * time.Millisecond

	// WindowClosePollInterval drives child-window liveness detection.
	WindowClosePollInterval = 1 * time.Second

	// SessionRetryInterval is how often a child window retries
	// establishing a registry-backed session while on local fallback.
	SessionRetryInterval = 2 * time.Second

	// SyncEventRetention caps the per-session event log. Older events are
	// superseded by whole-buffer replacement, so only the tail matters.
	SyncEventRetention = 50
)

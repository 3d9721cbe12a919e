package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quickassist/collab-server-go/internal/config"
	"github.com/quickassist/collab-server-go/internal/repository"
)

// suggestionEventRetention is how long suggestion events are kept for
// the recent-activity view before the cleanup job drops them.
const suggestionEventRetention = 30 * 24 * time.Hour

type CleanupJob struct {
	sharedSessionRepo   repository.SharedSessionRepository
	syncEventRepo       repository.SyncEventRepository
	suggestionEventRepo repository.SuggestionEventRepository
	interval            time.Duration
	done                chan struct{}
}

func NewCleanupJob(
	sharedSessionRepo repository.SharedSessionRepository,
	syncEventRepo repository.SyncEventRepository,
	suggestionEventRepo repository.SuggestionEventRepository,
	interval time.Duration,
) *CleanupJob {
	return &CleanupJob{
		sharedSessionRepo:   sharedSessionRepo,
		syncEventRepo:       syncEventRepo,
		suggestionEventRepo: suggestionEventRepo,
		interval:            interval,
		done:                make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

// cleanup enforces the logical invariants the read paths already
// assume: expired sessions are gone, event logs are capped, and events
// without a live session do not accumulate.
func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "expired shared sessions", j.sharedSessionRepo.DeleteExpired)
	j.runCleanup(ctx, "old sync events", func(ctx context.Context) (int64, error) {
		return j.syncEventRepo.TrimOld(ctx, config.SyncEventRetention)
	})
	j.runCleanup(ctx, "orphaned sync events", j.syncEventRepo.DeleteOrphaned)
	if j.suggestionEventRepo != nil {
		j.runCleanup(ctx, "old suggestion events", func(ctx context.Context) (int64, error) {
			return j.suggestionEventRepo.DeleteOlderThan(ctx, time.Now().Add(-suggestionEventRetention))
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}

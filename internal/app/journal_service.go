package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/huectl/internal/config"
	"github.com/dokzlo13/huectl/internal/store"
)

// JournalService periodically prunes old command journal entries.
type JournalService struct {
	cfg   *config.Config
	store *store.Store
}

// NewJournalService creates a new JournalService.
func NewJournalService(cfg *config.Config, st *store.Store) *JournalService {
	return &JournalService{cfg: cfg, store: st}
}

// Start begins the retention loop.
func (s *JournalService) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *JournalService) run(ctx context.Context) {
	retention := s.cfg.Store.Retention.Duration()
	interval := s.cfg.Store.RetentionInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.store.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old journal entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old journal entries")
			}
		}
	}
}

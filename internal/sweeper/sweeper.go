package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleet-telemetry-backend/config"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/store"
)

// Service periodically marks machines offline when they have not
// reported for longer than the configured threshold. It only flips the
// is_online flag; live speed, messages, and history are untouched, so a
// late report simply flips the machine back online on its next update.
type Service struct {
	cfg   *config.SweeperConfig
	store store.Store
	now   func() time.Time
}

// NewService creates and initializes a new sweeper service.
func NewService(cfg *config.SweeperConfig, s store.Store) *Service {
	return &Service{cfg: cfg, store: s, now: time.Now}
}

// Run executes the sweep loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		log.Println("Offline sweeper is disabled.")
		return
	}

	log.Printf("Offline sweeper starting with interval %v (threshold %ds)", s.cfg.Interval, s.cfg.OfflineAfterSeconds)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				log.Printf("Sweep failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("Offline sweeper shutting down.")
			return
		}
	}
}

// SweepOnce marks every stale online machine offline.
func (s *Service) SweepOnce(ctx context.Context) error {
	cutoff := s.now().Unix() - s.cfg.OfflineAfterSeconds

	res := s.store.DB().WithContext(ctx).
		Model(&model.Machine{}).
		Where("is_online = ? AND last_update < ?", true, cutoff).
		Update("is_online", false)
	if res.Error != nil {
		return fmt.Errorf("mark stale machines offline: %w", res.Error)
	}

	if res.RowsAffected > 0 {
		log.Printf("Marked %d machines offline (no report since %d)", res.RowsAffected, cutoff)
	}
	return nil
}

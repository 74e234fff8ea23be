package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides functions to retrieve current counts for gauge metrics.
// Each function returns the current count; returning -1 indicates the source is unavailable.
type StatsSource struct {
	TrackedUserCount    func() int
	MutedUserCount      func() int
	BlockedUserCount    func() int
	RecordedActionCount func() int
}

// StartCollector launches a goroutine that periodically updates gauge metrics.
// It runs every interval until the context is cancelled.
func StartCollector(ctx context.Context, src StatsSource, interval time.Duration) {
	// Do an initial collection immediately
	collect(src)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collect(src)
			}
		}
	}()

	log.Info().Dur("interval", interval).Msg("Metrics collector started")
}

func collect(src StatsSource) {
	if src.TrackedUserCount != nil {
		TrackedUsersTotal.Set(float64(src.TrackedUserCount()))
	}
	if src.MutedUserCount != nil {
		MutedUsersTotal.Set(float64(src.MutedUserCount()))
	}
	if src.BlockedUserCount != nil {
		BlockedUsersTotal.Set(float64(src.BlockedUserCount()))
	}
	if src.RecordedActionCount != nil {
		RecordedActionsTotal.Set(float64(src.RecordedActionCount()))
	}
}

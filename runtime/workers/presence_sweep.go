package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/poryaazizi7428/global-private-messenger/contract"
)

// IdleSweeper marks users away after a period without activity.
type IdleSweeper interface {
	SweepIdle(now time.Time)
}

// Ensure *PresenceSweep implements the contract.Worker interface at compile time.
var _ contract.Worker = (*PresenceSweep)(nil)

// PresenceSweep periodically asks the presence tracker to demote idle
// online users to away. Presence is advisory, so a missed tick is harmless.
type PresenceSweep struct {
	tracker  IdleSweeper
	interval time.Duration
	log      *slog.Logger
}

func NewPresenceSweep(tracker IdleSweeper, interval time.Duration, log *slog.Logger) *PresenceSweep {
	return &PresenceSweep{tracker: tracker, interval: interval, log: log}
}

func (w *PresenceSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping presence sweep")
			return nil
		case now := <-ticker.C:
			w.tracker.SweepIdle(now)
		}
	}
}

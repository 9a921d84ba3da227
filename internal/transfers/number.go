package transfers

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	pkgredis "github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

const (
	transferCounterName = "transfer_number"
	transferCounterTTL  = 48 * time.Hour

	// transferSeqMax is the largest four-digit sequence; numbers run 0001..9999.
	transferSeqMax = 9999
)

// nextNumber builds TR-YYYYMMDD-NNNN from the daily Redis counter, falling
// back to a random sequence when no counter is configured or it fails.
func (s *Service) nextNumber(ctx context.Context, now time.Time) string {
	day := now.UTC().Format("20060102")
	seq, err := dailySequence(ctx, s.counters, day)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "transfer counter unavailable, using random sequence")
		seq = rand.Int64N(transferSeqMax) + 1
	}
	return formatNumber(day, seq)
}

func dailySequence(ctx context.Context, counters pkgredis.CounterStore, day string) (int64, error) {
	if counters == nil {
		return 0, fmt.Errorf("no counter store configured")
	}
	key := counters.CounterKey(transferCounterName + ":" + day)
	return counters.IncrWithTTL(ctx, key, transferCounterTTL)
}

// formatNumber wraps sequences past 9999 back to 0001.
func formatNumber(day string, seq int64) string {
	if seq < 1 {
		seq = 1
	}
	return fmt.Sprintf("TR-%s-%04d", day, (seq-1)%transferSeqMax+1)
}

package popularity

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zentra/emotebank/internal/models"
)

type Drainer interface {
	Drain(ctx context.Context, max int) (usages []models.Usage, popped int, err error)
}

type BatchBumper interface {
	BumpBatch(ctx context.Context, usages []models.Usage) error
}

// Flusher periodically moves queued usages into the score table.
type Flusher struct {
	queue     Drainer
	counter   BatchBumper
	batchSize int
	interval  time.Duration
}

func NewFlusher(queue Drainer, counter BatchBumper, batchSize int, interval time.Duration) *Flusher {
	if batchSize <= 0 {
		batchSize = 500
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Flusher{queue: queue, counter: counter, batchSize: batchSize, interval: interval}
}

// Flush drains the queue batch by batch until a pop comes back short and
// returns how many usages were applied. Usages in a failed batch are lost.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	total := 0
	for {
		usages, popped, err := f.queue.Drain(ctx, f.batchSize)
		if err != nil {
			return total, err
		}
		if len(usages) > 0 {
			if err := f.counter.BumpBatch(ctx, usages); err != nil {
				return total, err
			}
			total += len(usages)
			usagesFlushed.Add(float64(len(usages)))
		}
		if popped < f.batchSize || ctx.Err() != nil {
			return total, nil
		}
	}
}

// Run flushes every interval until ctx is cancelled, then makes one last
// flush with a short grace period.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			f.flushLogged(final)
			cancel()
			return
		case <-ticker.C:
			f.flushLogged(ctx)
		}
	}
}

func (f *Flusher) flushLogged(ctx context.Context) {
	n, err := f.Flush(ctx)
	if err != nil {
		flushFailures.Inc()
		log.Error().Err(err).Int("applied", n).Msg("Failed to flush emote usage")
		return
	}
	if n > 0 {
		log.Debug().Int("applied", n).Msg("Flushed emote usage")
	}
}

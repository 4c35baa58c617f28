package popularity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Locker hands out a lease on key for ttl. ok is false when somebody else
// already holds it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// releaseScript deletes the lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLocker(client redis.Cmdable, prefix string) *RedisLocker {
	return &RedisLocker{client: client, prefix: prefix}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err()
	}
	return release, true, nil
}

type Decayer interface {
	DecayAll(ctx context.Context) (int64, error)
}

// DecayScheduler runs one decay pass per interval across every process
// sharing the lock. The lock is keyed by tick, so a pass that succeeded
// keeps it until it expires and nobody repeats that tick.
type DecayScheduler struct {
	decayer  Decayer
	locker   Locker
	interval time.Duration
	lockTTL  time.Duration
	now      func() time.Time
}

func NewDecayScheduler(decayer Decayer, locker Locker, interval, lockTTL time.Duration) *DecayScheduler {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if lockTTL < interval {
		lockTTL = interval
	}
	return &DecayScheduler{
		decayer:  decayer,
		locker:   locker,
		interval: interval,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

func (s *DecayScheduler) tickKey(at time.Time) string {
	return strconv.FormatInt(at.Truncate(s.interval).Unix(), 10)
}

// RunOnce decays the tick containing at unless another process already did.
func (s *DecayScheduler) RunOnce(ctx context.Context, at time.Time) (bool, error) {
	key := s.tickKey(at)
	release, ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		decayRuns.WithLabelValues("error").Inc()
		return false, err
	}
	if !ok {
		decayRuns.WithLabelValues("skipped").Inc()
		log.Debug().Str("tick", key).Msg("Decay tick already claimed")
		return false, nil
	}

	start := time.Now()
	n, err := s.decayer.DecayAll(ctx)
	if err != nil {
		decayRuns.WithLabelValues("error").Inc()
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			log.Error().Err(relErr).Str("tick", key).Msg("Failed to release decay lock")
		}
		return false, err
	}

	decayRuns.WithLabelValues("ok").Inc()
	decayedRows.Add(float64(n))
	log.Info().
		Str("tick", key).
		Int64("rows", n).
		Dur("duration", time.Since(start)).
		Msg("Decayed emote scores")
	return true, nil
}

// Run decays once per interval until ctx is cancelled.
func (s *DecayScheduler) Run(ctx context.Context, onStart bool) {
	if onStart {
		s.runLogged(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runLogged(ctx)
		}
	}
}

func (s *DecayScheduler) runLogged(ctx context.Context) {
	if _, err := s.RunOnce(ctx, s.now()); err != nil {
		log.Error().Err(err).Msg("Failed to decay emote scores")
	}
}

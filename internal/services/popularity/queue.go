package popularity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/zentra/emotebank/internal/models"
)

// ListClient is the subset of a redis client the usage queue needs.
type ListClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LPopCount(ctx context.Context, key string, count int) *redis.StringSliceCmd
}

// UsageQueue buffers usage events in a redis list so request handlers never
// wait on the score table. Any number of processes may push; the flusher
// drains.
type UsageQueue struct {
	client ListClient
	key    string
}

func NewUsageQueue(client ListClient, key string) *UsageQueue {
	return &UsageQueue{client: client, key: key}
}

func (q *UsageQueue) Push(ctx context.Context, usages ...models.Usage) error {
	if len(usages) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(usages))
	for _, u := range usages {
		values = append(values, encodeUsage(u))
	}
	if err := q.client.RPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("failed to queue usage: %w", err)
	}
	return nil
}

// Drain removes up to max queued entries in arrival order and returns the
// usages they decode to along with how many entries were popped. Malformed
// entries are logged and dropped, so popped may exceed len(usages).
func (q *UsageQueue) Drain(ctx context.Context, max int) (usages []models.Usage, popped int, err error) {
	raw, err := q.client.LPopCount(ctx, q.key, max).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to drain usage queue: %w", err)
	}

	usages = make([]models.Usage, 0, len(raw))
	for _, entry := range raw {
		u, err := decodeUsage(entry)
		if err != nil {
			log.Warn().Err(err).Str("entry", entry).Msg("Dropping malformed usage entry")
			continue
		}
		usages = append(usages, u)
	}
	return usages, len(raw), nil
}

func encodeUsage(u models.Usage) string {
	return strconv.FormatInt(u.GuildID, 10) + ":" + strconv.FormatInt(u.EmoteID, 10)
}

func decodeUsage(entry string) (models.Usage, error) {
	guild, emote, ok := strings.Cut(entry, ":")
	if !ok {
		return models.Usage{}, fmt.Errorf("usage entry %q has no separator", entry)
	}
	guildID, err := strconv.ParseInt(guild, 10, 64)
	if err != nil {
		return models.Usage{}, fmt.Errorf("usage entry %q: bad guild id: %w", entry, err)
	}
	emoteID, err := strconv.ParseInt(emote, 10, 64)
	if err != nil {
		return models.Usage{}, fmt.Errorf("usage entry %q: bad emote id: %w", entry, err)
	}
	return models.Usage{GuildID: guildID, EmoteID: emoteID}, nil
}

package popularity

import (
	"context"
	"errors"
	"math/rand/v2"

	"github.com/rs/zerolog/log"
	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/store"
)

// maxBumpAttempts bounds how often a bump re-reads after losing a race on
// the same row. Dropping a usage event after that is acceptable for an
// approximate counter.
const maxBumpAttempts = 5

// Counter maintains the per-guild approximate popularity score of emotes.
// It keeps no state besides its random source and is safe for concurrent use.
type Counter struct {
	store store.ScoreStore
	intN  func(n int) int
}

type Option func(*Counter)

// WithRandom replaces the random source. intN must return a uniform value
// in [0, n) and be safe for concurrent use.
func WithRandom(intN func(n int) int) Option {
	return func(c *Counter) {
		c.intN = intN
	}
}

func NewCounter(s store.ScoreStore, opts ...Option) *Counter {
	c := &Counter{store: s, intN: rand.IntN}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bump records one usage of emoteID in guildID. The draw is always made
// against the score the conditional write will compare with, so two racing
// bumps can never both apply a probability computed for the same value.
func (c *Counter) Bump(ctx context.Context, guildID, emoteID int64) error {
	for attempt := 0; attempt < maxBumpAttempts; attempt++ {
		current, err := c.store.GetScore(ctx, guildID, emoteID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return err
		}

		next, moved := Step(current, c.intN)
		if !moved {
			if current == models.MaxScore {
				log.Debug().
					Int64("guildId", guildID).
					Int64("emoteId", emoteID).
					Msg("Emote score saturated")
			}
			return nil
		}

		applied, err := c.store.UpdateScore(ctx, guildID, emoteID, current, next)
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}

	log.Debug().
		Int64("guildId", guildID).
		Int64("emoteId", emoteID).
		Msg("Dropped emote usage after repeated score conflicts")
	return nil
}

// BumpBatch records every usage in order. A failing usage does not stop the
// rest of the batch; all failures are returned joined.
func (c *Counter) BumpBatch(ctx context.Context, usages []models.Usage) error {
	var errs []error
	for _, u := range usages {
		if err := c.Bump(ctx, u.GuildID, u.EmoteID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DecayAll lowers every warm, guild-owned score by one.
func (c *Counter) DecayAll(ctx context.Context) (int64, error) {
	return c.store.DecayScores(ctx, models.ColdScore, models.MinScore)
}

// GuildScores ranks the emotes of a guild by popularity.
func (c *Counter) GuildScores(ctx context.Context, guildID int64) ([]models.EmoteScore, error) {
	entries, err := c.store.GuildScores(ctx, guildID)
	if err != nil {
		return nil, err
	}

	scores := make([]models.EmoteScore, 0, len(entries))
	for _, e := range entries {
		scores = append(scores, models.EmoteScore{EmoteID: e.EmoteID, Popularity: models.Popularity(e.Score)})
	}
	return scores, nil
}

// Score returns the popularity of one emote, or 0 if it is unknown.
func (c *Counter) Score(ctx context.Context, emoteID int64) (int, error) {
	score, err := c.store.EmoteScore(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return models.Popularity(score), nil
}

// HashScores returns the popularity of every warm copy of the emote's image.
func (c *Counter) HashScores(ctx context.Context, emoteID int64) ([]int, error) {
	raw, err := c.store.HashScores(ctx, emoteID, models.ColdScore)
	if err != nil {
		return nil, err
	}

	scores := make([]int, 0, len(raw))
	for _, s := range raw {
		scores = append(scores, models.Popularity(s))
	}
	return scores, nil
}

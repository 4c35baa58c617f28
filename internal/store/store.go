package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/zentra/emotebank/internal/models"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrUnavailable        = errors.New("record store unavailable")
	ErrInvariantViolation = errors.New("record invariant violated")
)

// EmoteReader is everything the resolver needs from storage.
type EmoteReader interface {
	// FindByScopeAndName returns one emote in scope whose trimmed name matches.
	// Emotes restricted to roles or manually blocked never match. When
	// requireUsable is set, unusable emotes never match either.
	FindByScopeAndName(ctx context.Context, scope models.Scope, name string, caseSensitive, requireUsable bool) (*models.Emote, error)
	// FindByContentHash searches every guild for an available emote with the
	// given content hash.
	FindByContentHash(ctx context.Context, hash string, requireGuildOwner bool) (*models.Emote, error)
	FindByID(ctx context.Context, emoteID int64) (*models.Emote, error)
	ListByScope(ctx context.Context, scope models.Scope, orderByScore bool) ([]models.Emote, error)
	// FindSynonyms returns ids of available emotes sharing hash. limit <= 0 means no limit.
	FindSynonyms(ctx context.Context, hash string, limit int) ([]int64, error)
	// NamesByHash returns the trimmed names carried by more than minCopies
	// emotes sharing hash, most common first. Names starting with "emoji"
	// in any case are skipped. limit <= 0 means no limit.
	NamesByHash(ctx context.Context, hash string, minCopies, limit int) ([]string, error)
}

// ScoreStore is everything the popularity counter needs from storage.
type ScoreStore interface {
	GetScore(ctx context.Context, guildID, emoteID int64) (int8, error)
	// UpdateScore sets the score only if it still equals expected and
	// reports whether the row changed.
	UpdateScore(ctx context.Context, guildID, emoteID int64, expected, next int8) (bool, error)
	// DecayScores decrements every guild-owned score above threshold that is
	// not already at floor, returning the number of rows touched.
	DecayScores(ctx context.Context, threshold, floor int8) (int64, error)
	GuildScores(ctx context.Context, guildID int64) ([]ScoreEntry, error)
	EmoteScore(ctx context.Context, emoteID int64) (int8, error)
	// HashScores returns the scores above threshold of every emote sharing
	// the content hash of emoteID.
	HashScores(ctx context.Context, emoteID int64, threshold int8) ([]int8, error)
}

// RecordStore is the full storage surface.
type RecordStore interface {
	EmoteReader
	ScoreStore
}

// ScoreEntry is a raw score row. Callers convert with models.Popularity.
type ScoreEntry struct {
	EmoteID int64
	Score   int8
}

func validateEmote(e *models.Emote) error {
	if e.ID <= 0 {
		return fmt.Errorf("%w: emote id %d", ErrInvariantViolation, e.ID)
	}
	if e.ContentHash == "" {
		return fmt.Errorf("%w: emote %d has no content hash", ErrInvariantViolation, e.ID)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

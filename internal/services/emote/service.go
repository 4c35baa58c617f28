package emote

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/store"
)

var ErrEmoteNotFound = errors.New("emote not found")

// A name counts as an alternative once more than alternativeMinCopies
// copies of the image carry it.
const (
	alternativeMinCopies = 10
	alternativeLimit     = 10
)

// Resolver picks the single best emote for a requested name or id.
// It holds no state of its own and is safe for concurrent use.
type Resolver struct {
	store store.EmoteReader
}

func NewResolver(s store.EmoteReader) *Resolver {
	return &Resolver{store: s}
}

// Resolve finds the emote called name within scope. Exact case wins over a
// case-insensitive match, and a different asset is only substituted when it
// shares the candidate's content hash.
func (r *Resolver) Resolve(ctx context.Context, scope models.Scope, name string) (*models.Emote, error) {
	insensitive, err := r.find(ctx, scope, name, false, false)
	if err != nil {
		return nil, err
	}
	// Nothing matches even loosely, so there is nothing to fall back from.
	if insensitive == nil {
		return nil, ErrEmoteNotFound
	}

	var usableInsensitive *models.Emote
	if insensitive.Usable {
		usableInsensitive = insensitive
	}

	sensitive := insensitive
	if insensitive.Name != name {
		sensitive, err = r.find(ctx, scope, name, true, false)
		if err != nil {
			return nil, err
		}
	}

	if sensitive != nil {
		if sensitive.Usable {
			return sensitive, nil
		}
		like, err := r.like(ctx, sensitive, true)
		if err != nil {
			return nil, err
		}
		if like != nil {
			return like, nil
		}
	}

	// Give up on case. Another differently-cased row may already be usable.
	if usableInsensitive == nil {
		usableInsensitive, err = r.find(ctx, scope, name, false, true)
		if err != nil {
			return nil, err
		}
	}
	if usableInsensitive == nil {
		usableInsensitive, err = r.like(ctx, insensitive, true)
		if err != nil {
			return nil, err
		}
	}
	if usableInsensitive == nil {
		return nil, ErrEmoteNotFound
	}
	return usableInsensitive, nil
}

// ResolveSimilar returns the emote with the given id if it can be used
// directly, otherwise a usable copy of the same image.
func (r *Resolver) ResolveSimilar(ctx context.Context, emoteID int64, requireGuildOwner bool) (*models.Emote, error) {
	e, err := r.store.FindByID(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmoteNotFound
		}
		return nil, err
	}

	if e.Available() && (!requireGuildOwner || !e.Orphaned()) {
		return e, nil
	}

	like, err := r.like(ctx, e, requireGuildOwner)
	if err != nil {
		return nil, err
	}
	if like == nil {
		return nil, ErrEmoteNotFound
	}
	return like, nil
}

// List returns every usable emote in scope, most popular first when asked.
func (r *Resolver) List(ctx context.Context, scope models.Scope, orderByScore bool) ([]models.Emote, error) {
	return r.store.ListByScope(ctx, scope, orderByScore)
}

// Synonyms returns the ids of other usable emotes showing the same image.
func (r *Resolver) Synonyms(ctx context.Context, emoteID int64, limit int) ([]int64, error) {
	e, err := r.store.FindByID(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmoteNotFound
		}
		return nil, err
	}

	query := limit
	if limit > 0 {
		// The emote itself may take one of the slots.
		query = limit + 1
	}
	ids, err := r.store.FindSynonyms(ctx, e.ContentHash, query)
	if err != nil {
		return nil, err
	}

	synonyms := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == emoteID {
			continue
		}
		if limit > 0 && len(synonyms) == limit {
			break
		}
		synonyms = append(synonyms, id)
	}
	return synonyms, nil
}

// AlternativeNames returns the names other guilds commonly give the same
// image, most common first. The emote's own name is included when it is
// common enough.
func (r *Resolver) AlternativeNames(ctx context.Context, emoteID int64) ([]string, error) {
	e, err := r.store.FindByID(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrEmoteNotFound
		}
		return nil, err
	}
	return r.store.NamesByHash(ctx, e.ContentHash, alternativeMinCopies, alternativeLimit)
}

// ShareHash reports whether both emotes exist and show the same image.
func (r *Resolver) ShareHash(ctx context.Context, emoteID, otherID int64) (bool, error) {
	a, err := r.store.FindByID(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	b, err := r.store.FindByID(ctx, otherID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return a.ContentHash == b.ContentHash, nil
}

// IsUsable reports whether the emote exists and can be handed out as-is.
func (r *Resolver) IsUsable(ctx context.Context, emoteID int64) (bool, error) {
	e, err := r.store.FindByID(ctx, emoteID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return e.Available(), nil
}

// --- internal helpers ---

// find wraps a scoped name lookup, mapping "no row" to a nil emote.
func (r *Resolver) find(ctx context.Context, scope models.Scope, name string, caseSensitive, requireUsable bool) (*models.Emote, error) {
	e, err := r.store.FindByScopeAndName(ctx, scope, name, caseSensitive, requireUsable)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// like searches every guild for a usable emote sharing candidate's content hash.
func (r *Resolver) like(ctx context.Context, candidate *models.Emote, requireGuildOwner bool) (*models.Emote, error) {
	e, err := r.store.FindByContentHash(ctx, candidate.ContentHash, requireGuildOwner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	log.Debug().
		Int64("requested", candidate.ID).
		Int64("substitute", e.ID).
		Str("hash", candidate.ContentHash).
		Msg("Substituted emote by content hash")
	return e, nil
}

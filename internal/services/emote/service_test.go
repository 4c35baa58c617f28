package emote

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zentra/emotebank/internal/models"
	"github.com/zentra/emotebank/internal/store"
)

// MockEmoteReader is a testify mock of store.EmoteReader.
type MockEmoteReader struct {
	mock.Mock
}

func (m *MockEmoteReader) FindByScopeAndName(ctx context.Context, scope models.Scope, name string, caseSensitive, requireUsable bool) (*models.Emote, error) {
	args := m.Called(ctx, scope, name, caseSensitive, requireUsable)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Emote), args.Error(1)
}

func (m *MockEmoteReader) FindByContentHash(ctx context.Context, hash string, requireGuildOwner bool) (*models.Emote, error) {
	args := m.Called(ctx, hash, requireGuildOwner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Emote), args.Error(1)
}

func (m *MockEmoteReader) FindByID(ctx context.Context, emoteID int64) (*models.Emote, error) {
	args := m.Called(ctx, emoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Emote), args.Error(1)
}

func (m *MockEmoteReader) ListByScope(ctx context.Context, scope models.Scope, orderByScore bool) ([]models.Emote, error) {
	args := m.Called(ctx, scope, orderByScore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Emote), args.Error(1)
}

func (m *MockEmoteReader) FindSynonyms(ctx context.Context, hash string, limit int) ([]int64, error) {
	args := m.Called(ctx, hash, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockEmoteReader) NamesByHash(ctx context.Context, hash string, minCopies, limit int) ([]string, error) {
	args := m.Called(ctx, hash, minCopies, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func guildID(id int64) *int64 { return &id }

type emoteOpt func(*models.Emote)

func unusable(e *models.Emote)   { e.Usable = false }
func orphaned(e *models.Emote)   { e.GuildID = nil }
func restricted(e *models.Emote) { e.HasRoles = true }
func blocked(e *models.Emote)    { e.ManualBlock = true }

func named(n string) emoteOpt   { return func(e *models.Emote) { e.Name = n } }
func hashed(h string) emoteOpt  { return func(e *models.Emote) { e.ContentHash = h } }
func inGuild(id int64) emoteOpt { return func(e *models.Emote) { e.GuildID = guildID(id) } }
func scored(s int8) emoteOpt    { return func(e *models.Emote) { e.Score = s } }

func newEmote(id int64, opts ...emoteOpt) *models.Emote {
	e := &models.Emote{
		ID:          id,
		ContentHash: "abc",
		ExactHash:   "cde",
		Usable:      true,
		GuildID:     guildID(123),
		Name:        "foo",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var anyCtx = mock.Anything

func TestResolver_Resolve_Cascade(t *testing.T) {
	scope := models.GuildScope(123)

	type step struct {
		method string
		args   []any
		result *models.Emote
	}
	ci := func(r *models.Emote) step {
		return step{"FindByScopeAndName", []any{anyCtx, scope, "test", false, false}, r}
	}
	cs := func(r *models.Emote) step {
		return step{"FindByScopeAndName", []any{anyCtx, scope, "test", true, false}, r}
	}
	ciUsable := func(r *models.Emote) step {
		return step{"FindByScopeAndName", []any{anyCtx, scope, "test", false, true}, r}
	}
	like := func(hash string, r *models.Emote) step {
		return step{"FindByContentHash", []any{anyCtx, hash, true}, r}
	}

	tests := []struct {
		name     string
		steps    []step
		expected *models.Emote
	}{
		{
			name:  "nothing matches loosely",
			steps: []step{ci(nil)},
		},
		{
			name:     "exact match first time",
			steps:    []step{ci(newEmote(1, named("test")))},
			expected: newEmote(1, named("test")),
		},
		{
			name: "exact case preferred over loose match",
			steps: []step{
				ci(newEmote(2, named("Test"))),
				cs(newEmote(1, named("test"))),
			},
			expected: newEmote(1, named("test")),
		},
		{
			name: "unusable exact match replaced by copy of same image",
			steps: []step{
				ci(newEmote(2, named("Test"))),
				cs(newEmote(3, named("test"), unusable, hashed("h3"))),
				like("h3", newEmote(1, named("test"), hashed("h3"))),
			},
			expected: newEmote(1, named("test"), hashed("h3")),
		},
		{
			name: "unusable exact match with no copy falls back to loose match",
			steps: []step{
				ci(newEmote(2, named("Test"))),
				cs(newEmote(3, named("test"), unusable, hashed("h3"))),
				like("h3", nil),
			},
			expected: newEmote(2, named("Test")),
		},
		{
			name: "unusable loose match but usable exact match",
			steps: []step{
				ci(newEmote(2, named("Test"), unusable)),
				cs(newEmote(3, named("test"))),
			},
			expected: newEmote(3, named("test")),
		},
		{
			name: "other usable loose match after failed copy search",
			steps: []step{
				ci(newEmote(2, named("test"), unusable, hashed("h2"))),
				like("h2", nil),
				ciUsable(newEmote(4, named("Test"))),
			},
			expected: newEmote(4, named("Test")),
		},
		{
			name: "last resort copy of the loose match",
			steps: []step{
				ci(newEmote(2, named("test"), unusable, hashed("h2"))),
				like("h2", nil),
				ciUsable(nil),
				like("h2", newEmote(4, named("test"), hashed("h2"))),
			},
			expected: newEmote(4, named("test"), hashed("h2")),
		},
		{
			name: "every step fails",
			steps: []step{
				ci(newEmote(2, named("TEST"), unusable, hashed("h2"))),
				cs(nil),
				ciUsable(nil),
				like("h2", nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockEmoteReader)
			for _, s := range tt.steps {
				if s.result == nil {
					reader.On(s.method, s.args...).Return(nil, store.ErrNotFound).Once()
				} else {
					reader.On(s.method, s.args...).Return(s.result, nil).Once()
				}
			}

			got, err := NewResolver(reader).Resolve(context.Background(), scope, "test")
			if tt.expected == nil {
				assert.ErrorIs(t, err, ErrEmoteNotFound)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
			reader.AssertExpectations(t)
			assert.Len(t, reader.Calls, len(tt.steps))
		})
	}
}

func TestResolver_Resolve_StoreFailurePropagates(t *testing.T) {
	scope := models.GuildScope(1)
	boom := errors.New("connection reset")

	reader := new(MockEmoteReader)
	reader.On("FindByScopeAndName", anyCtx, scope, "x", false, false).
		Return(nil, boom).Once()

	_, err := NewResolver(reader).Resolve(context.Background(), scope, "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrEmoteNotFound)
}

func TestResolver_Resolve_DoesNotRename(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(1, named("PartyParrot"), inGuild(5)))

	got, err := NewResolver(s).Resolve(context.Background(), models.GuildScope(5), "partyparrot")
	require.NoError(t, err)
	assert.Equal(t, "PartyParrot", got.Name)
}

func TestResolver_Resolve_PrefersGuildOwnedCopy(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(1, named("wave"), inGuild(5), unusable, hashed("h1")))
	s.Put(*newEmote(2, named("hello"), orphaned, hashed("h1")))
	s.Put(*newEmote(3, named("hi"), inGuild(9), hashed("h1")))

	got, err := NewResolver(s).Resolve(context.Background(), models.GuildScope(5), "wave")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ID)
}

// Random pools of same-named emotes with distinct images: whatever comes
// back must be usable and loosely match the requested name.
func TestResolver_Resolve_NeverUnusable(t *testing.T) {
	names := []string{"test", "Test", "TEST"}
	rng := rand.New(rand.NewPCG(1, 2))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		s := store.NewMemoryStore()
		var pool []models.Emote
		size := int64(rng.IntN(6))
		for id := int64(1); id <= size; id++ {
			e := models.Emote{
				ID:          id,
				ContentHash: "h" + string(rune('a'+id)),
				Usable:      rng.IntN(2) == 0,
				HasRoles:    rng.IntN(4) == 0,
				GuildID:     guildID(1),
				Name:        names[rng.IntN(len(names))],
			}
			s.Put(e)
			pool = append(pool, e)
		}
		requested := names[rng.IntN(len(names))]

		got, err := NewResolver(s).Resolve(ctx, models.GuildScope(1), requested)
		if err != nil {
			require.ErrorIs(t, err, ErrEmoteNotFound)
			for _, e := range pool {
				assert.False(t, e.Available(), "pool %v requested %q", pool, requested)
			}
			continue
		}

		assert.True(t, got.Available())
		assert.True(t, strings.EqualFold(got.Name, requested))

		// An unusable exact-case row found first sends the cascade to the
		// loose usable lookup, which may pick any casing.
		exactUsable, exactUnusable := false, false
		for _, e := range pool {
			if e.Name == requested && !e.HasRoles {
				if e.Usable {
					exactUsable = true
				} else {
					exactUnusable = true
				}
			}
		}
		if exactUsable && !exactUnusable {
			assert.Equal(t, requested, got.Name, "pool %v", pool)
		}
	}
}

// Random pools spread over several guilds with shared images: answers are
// always usable, guild-owned, and either carry the requested name or show
// the same image as an in-scope emote that does.
func TestResolver_Resolve_SubstitutesOnlySameImage(t *testing.T) {
	hashes := []string{"1", "2", "3", "4"}
	names := []string{"blob", "Blob", "cat"}
	rng := rand.New(rand.NewPCG(3, 4))
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		s := store.NewMemoryStore()
		var inScope []models.Emote
		for id := int64(1); id <= 8; id++ {
			e := models.Emote{
				ID:          id,
				ContentHash: hashes[rng.IntN(len(hashes))],
				Usable:      rng.IntN(2) == 0,
				GuildID:     guildID(int64(1 + rng.IntN(3))),
				Name:        names[rng.IntN(len(names))],
			}
			if rng.IntN(5) == 0 {
				e.GuildID = nil
			}
			s.Put(e)
			if e.GuildID != nil && *e.GuildID == 1 {
				inScope = append(inScope, e)
			}
		}

		got, err := NewResolver(s).Resolve(ctx, models.GuildScope(1), "blob")
		if err != nil {
			require.ErrorIs(t, err, ErrEmoteNotFound)
			continue
		}

		require.True(t, got.Available())
		require.False(t, got.Orphaned())

		matched := false
		for _, e := range inScope {
			if strings.EqualFold(e.Name, "blob") && (e.ID == got.ID || e.ContentHash == got.ContentHash) {
				matched = true
			}
		}
		assert.True(t, matched, "answer %+v is unrelated to in-scope candidates %v", got, inScope)
	}
}

func TestResolver_ResolveSimilar(t *testing.T) {
	tests := []struct {
		name         string
		requireGuild bool
		byID         *models.Emote
		like         *models.Emote
		expectLike   bool
		expected     *models.Emote
	}{
		{name: "no emote", requireGuild: true},
		{
			name:         "usable directly",
			requireGuild: true,
			byID:         newEmote(123),
			expected:     newEmote(123),
		},
		{
			name:         "unusable without a copy",
			requireGuild: true,
			byID:         newEmote(123, unusable),
			expectLike:   true,
		},
		{
			name:         "unusable with a copy",
			requireGuild: true,
			byID:         newEmote(123, unusable),
			like:         newEmote(234),
			expectLike:   true,
			expected:     newEmote(234),
		},
		{
			name:         "orphan replaced by guild-owned copy",
			requireGuild: true,
			byID:         newEmote(123, orphaned),
			like:         newEmote(234),
			expectLike:   true,
			expected:     newEmote(234),
		},
		{
			name:         "orphan allowed when guild not required",
			requireGuild: false,
			byID:         newEmote(123, orphaned),
			expected:     newEmote(123, orphaned),
		},
		{
			name:         "blocked emote replaced",
			requireGuild: true,
			byID:         newEmote(123, blocked),
			like:         newEmote(234),
			expectLike:   true,
			expected:     newEmote(234),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := new(MockEmoteReader)
			calls := 1
			if tt.byID == nil {
				reader.On("FindByID", anyCtx, int64(123)).Return(nil, store.ErrNotFound).Once()
			} else {
				reader.On("FindByID", anyCtx, int64(123)).Return(tt.byID, nil).Once()
			}
			if tt.expectLike {
				calls++
				if tt.like == nil {
					reader.On("FindByContentHash", anyCtx, "abc", tt.requireGuild).Return(nil, store.ErrNotFound).Once()
				} else {
					reader.On("FindByContentHash", anyCtx, "abc", tt.requireGuild).Return(tt.like, nil).Once()
				}
			}

			got, err := NewResolver(reader).ResolveSimilar(context.Background(), 123, tt.requireGuild)
			if tt.expected == nil {
				assert.ErrorIs(t, err, ErrEmoteNotFound)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
			reader.AssertExpectations(t)
			assert.Len(t, reader.Calls, calls)
		})
	}
}

func TestResolver_ResolveSimilar_SharedHashScenario(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(123, unusable, hashed("h1"), inGuild(7)))
	s.Put(*newEmote(234, hashed("h1"), inGuild(1)))

	got, err := NewResolver(s).ResolveSimilar(context.Background(), 123, true)
	require.NoError(t, err)
	assert.Equal(t, int64(234), got.ID)
}

func TestResolver_Synonyms(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(1, hashed("h")))
	s.Put(*newEmote(2, hashed("h")))
	s.Put(*newEmote(3, hashed("h"), restricted))
	s.Put(*newEmote(4, hashed("h")))
	s.Put(*newEmote(5, hashed("other")))
	r := NewResolver(s)
	ctx := context.Background()

	ids, err := r.Synonyms(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids)

	ids, err = r.Synonyms(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	ids, err = r.Synonyms(ctx, 4, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)

	_, err = r.Synonyms(ctx, 99, 0)
	assert.ErrorIs(t, err, ErrEmoteNotFound)
}

func TestResolver_AlternativeNames(t *testing.T) {
	ctx := context.Background()
	reader := new(MockEmoteReader)
	reader.On("FindByID", mock.Anything, int64(1)).
		Return(newEmote(1, hashed("h")), nil).Once()
	reader.On("NamesByHash", mock.Anything, "h", alternativeMinCopies, alternativeLimit).
		Return([]string{"parrot", "party"}, nil).Once()
	reader.On("FindByID", mock.Anything, int64(2)).
		Return(nil, store.ErrNotFound).Once()

	r := NewResolver(reader)
	names, err := r.AlternativeNames(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"parrot", "party"}, names)

	_, err = r.AlternativeNames(ctx, 2)
	assert.ErrorIs(t, err, ErrEmoteNotFound)

	reader.AssertExpectations(t)
}

func TestResolver_AlternativeNames_CommonNamesOnly(t *testing.T) {
	s := store.NewMemoryStore()
	id := int64(1)
	for _, n := range []struct {
		name   string
		copies int
	}{{"party", 11}, {"emojiparty", 12}, {"rare", 2}} {
		for i := 0; i < n.copies; i++ {
			s.Put(*newEmote(id, hashed("h"), named(n.name)))
			id++
		}
	}

	names, err := NewResolver(s).AlternativeNames(context.Background(), id-1)
	require.NoError(t, err)
	assert.Equal(t, []string{"party"}, names)
}

func TestResolver_ShareHash(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(1, hashed("h1")))
	s.Put(*newEmote(2, hashed("h1"), unusable))
	s.Put(*newEmote(3, hashed("h2")))
	r := NewResolver(s)
	ctx := context.Background()

	same, err := r.ShareHash(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, same, "usability does not matter")

	same, err = r.ShareHash(ctx, 1, 3)
	require.NoError(t, err)
	assert.False(t, same)

	same, err = r.ShareHash(ctx, 1, 99)
	require.NoError(t, err)
	assert.False(t, same)

	reader := new(MockEmoteReader)
	reader.On("FindByID", mock.Anything, int64(1)).Return(nil, store.ErrUnavailable).Once()
	_, err = NewResolver(reader).ShareHash(ctx, 1, 2)
	assert.ErrorIs(t, err, store.ErrUnavailable)
	reader.AssertExpectations(t)
}

func TestResolver_IsUsableAndList(t *testing.T) {
	s := store.NewMemoryStore()
	s.Put(*newEmote(1, inGuild(1), scored(-3)))
	s.Put(*newEmote(2, inGuild(1), blocked))
	s.Put(*newEmote(3, inGuild(1), scored(20)))
	r := NewResolver(s)
	ctx := context.Background()

	ok, err := r.IsUsable(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsUsable(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.IsUsable(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)

	emotes, err := r.List(ctx, models.GuildScope(1), true)
	require.NoError(t, err)
	require.Len(t, emotes, 2)
	assert.Equal(t, int64(3), emotes[0].ID)
	assert.Equal(t, int64(1), emotes[1].ID)
}

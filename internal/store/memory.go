package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/zentra/emotebank/internal/models"
)

// MemoryStore is an in-memory RecordStore. Emotes are kept in insertion
// order, which is the "physical order" every LIMIT 1 lookup honours.
type MemoryStore struct {
	mu        sync.RWMutex
	emotes    []*models.Emote
	byID      map[int64]*models.Emote
	members   map[int64]map[int64]bool // user -> guilds
	packs     map[string]int64         // pack name -> guild
	userPacks map[int64]map[int64]bool // user -> pack guilds
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[int64]*models.Emote),
		members:   make(map[int64]map[int64]bool),
		packs:     make(map[string]int64),
		userPacks: make(map[int64]map[int64]bool),
	}
}

// Put inserts or replaces an emote, trimming its stored name.
func (m *MemoryStore) Put(e models.Emote) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.Name = models.TrimName(e.Name)
	if existing, ok := m.byID[e.ID]; ok {
		*existing = e
		return
	}
	stored := e
	m.emotes = append(m.emotes, &stored)
	m.byID[e.ID] = &stored
}

func (m *MemoryStore) AddMember(userID, guildID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.members[userID] == nil {
		m.members[userID] = make(map[int64]bool)
	}
	m.members[userID][guildID] = true
}

func (m *MemoryStore) AddPack(name string, guildID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packs[name] = guildID
}

func (m *MemoryStore) JoinPack(userID, guildID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userPacks[userID] == nil {
		m.userPacks[userID] = make(map[int64]bool)
	}
	m.userPacks[userID][guildID] = true
}

func (m *MemoryStore) FindByScopeAndName(ctx context.Context, scope models.Scope, name string, caseSensitive, requireUsable bool) (*models.Emote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.emotes {
		if !m.inScope(scope, e) || e.HasRoles || e.ManualBlock {
			continue
		}
		if requireUsable && !e.Usable {
			continue
		}
		if caseSensitive && e.Name != name {
			continue
		}
		if !caseSensitive && !strings.EqualFold(e.Name, name) {
			continue
		}
		found := *e
		return &found, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindByContentHash(ctx context.Context, hash string, requireGuildOwner bool) (*models.Emote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.emotes {
		if e.ContentHash != hash || !e.Available() {
			continue
		}
		if requireGuildOwner && e.Orphaned() {
			continue
		}
		found := *e
		return &found, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindByID(ctx context.Context, emoteID int64) (*models.Emote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byID[emoteID]
	if !ok {
		return nil, ErrNotFound
	}
	found := *e
	return &found, nil
}

func (m *MemoryStore) ListByScope(ctx context.Context, scope models.Scope, orderByScore bool) ([]models.Emote, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	emotes := []models.Emote{}
	for _, e := range m.emotes {
		if m.inScope(scope, e) && e.Available() {
			emotes = append(emotes, *e)
		}
	}
	if orderByScore {
		sort.SliceStable(emotes, func(i, j int) bool { return emotes[i].Score > emotes[j].Score })
	}
	return emotes, nil
}

func (m *MemoryStore) FindSynonyms(ctx context.Context, hash string, limit int) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := []int64{}
	for _, e := range m.emotes {
		if limit > 0 && len(ids) >= limit {
			break
		}
		if e.ContentHash == hash && e.Available() {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

func (m *MemoryStore) NamesByHash(ctx context.Context, hash string, minCopies, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	var order []string
	for _, e := range m.emotes {
		if e.ContentHash != hash {
			continue
		}
		if counts[e.Name] == 0 {
			order = append(order, e.Name)
		}
		counts[e.Name]++
	}

	names := []string{}
	for _, name := range order {
		if counts[name] > minCopies && !strings.HasPrefix(strings.ToLower(name), "emoji") {
			names = append(names, name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool { return counts[names[i]] > counts[names[j]] })
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names, nil
}

func (m *MemoryStore) GetScore(ctx context.Context, guildID, emoteID int64) (int8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byID[emoteID]
	if !ok || e.GuildID == nil || *e.GuildID != guildID {
		return 0, ErrNotFound
	}
	return e.Score, nil
}

func (m *MemoryStore) UpdateScore(ctx context.Context, guildID, emoteID int64, expected, next int8) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.byID[emoteID]
	if !ok || e.GuildID == nil || *e.GuildID != guildID || e.Score != expected {
		return false, nil
	}
	e.Score = next
	return true, nil
}

func (m *MemoryStore) DecayScores(ctx context.Context, threshold, floor int8) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, e := range m.emotes {
		if e.Orphaned() || e.Score <= threshold || e.Score == floor {
			continue
		}
		if next, moved := models.DecayedScore(e.Score); moved {
			e.Score = next
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GuildScores(ctx context.Context, guildID int64) ([]ScoreEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []ScoreEntry{}
	for _, e := range m.emotes {
		if e.GuildID != nil && *e.GuildID == guildID {
			entries = append(entries, ScoreEntry{EmoteID: e.ID, Score: e.Score})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	return entries, nil
}

func (m *MemoryStore) EmoteScore(ctx context.Context, emoteID int64) (int8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.byID[emoteID]
	if !ok {
		return 0, ErrNotFound
	}
	return e.Score, nil
}

func (m *MemoryStore) HashScores(ctx context.Context, emoteID int64, threshold int8) ([]int8, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scores := []int8{}
	origin, ok := m.byID[emoteID]
	if !ok {
		return scores, nil
	}
	for _, e := range m.emotes {
		if e.ContentHash == origin.ContentHash && e.Score > threshold {
			scores = append(scores, e.Score)
		}
	}
	return scores, nil
}

// inScope must be called with mu held.
func (m *MemoryStore) inScope(scope models.Scope, e *models.Emote) bool {
	if e.GuildID == nil {
		return false
	}
	guild := *e.GuildID
	switch scope.Kind {
	case models.ScopeGuild:
		return guild == scope.GuildID
	case models.ScopePack:
		packGuild, ok := m.packs[scope.PackName]
		return ok && packGuild == guild
	case models.ScopeMutual:
		return m.members[scope.UserID][guild]
	case models.ScopeUserPacks:
		return m.userPacks[scope.UserID][guild]
	}
	return false
}

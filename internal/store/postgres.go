package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/zentra/emotebank/internal/models"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// score is stored as a one-byte "char"; it is read and compared as score::int
// and written back through int::"char".
const emoteColumns = `emote_id, emote_hash, usable, animated, emote_sha, guild_id, name, has_roles, manual_block, score::int`

// Predicates every name lookup and listing carries.
const (
	accessFilter    = `has_roles = false AND manual_block = false`
	usabilityFilter = `usable = true AND ` + accessFilter
)

type PostgresStore struct {
	db      DBTX
	timeout time.Duration
}

// NewPostgresStore bounds every lookup by timeout; zero disables the bound.
func NewPostgresStore(db DBTX, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

// WithTx returns a store bound to tx.
func (s *PostgresStore) WithTx(tx pgx.Tx) *PostgresStore {
	return &PostgresStore{db: tx, timeout: s.timeout}
}

func (s *PostgresStore) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *PostgresStore) FindByScopeAndName(ctx context.Context, scope models.Scope, name string, caseSensitive, requireUsable bool) (*models.Emote, error) {
	clause, args, err := scopeClause(scope, 1)
	if err != nil {
		return nil, err
	}
	args = append(args, name)
	nameArg := len(args)

	var nameClause string
	if caseSensitive {
		nameClause = fmt.Sprintf(`rtrim(name) = $%d`, nameArg)
	} else {
		nameClause = fmt.Sprintf(`lower(rtrim(name)) = lower($%d)`, nameArg)
	}

	filter := accessFilter
	if requireUsable {
		filter = usabilityFilter
	}

	query := `SELECT ` + emoteColumns + ` FROM emote_ids WHERE ` + clause + ` AND ` + nameClause + ` AND ` + filter + ` LIMIT 1`
	return s.queryEmote(ctx, "find emote by name", query, args...)
}

func (s *PostgresStore) FindByContentHash(ctx context.Context, hash string, requireGuildOwner bool) (*models.Emote, error) {
	query := `SELECT ` + emoteColumns + ` FROM emote_ids WHERE emote_hash = $1 AND ` + usabilityFilter
	if requireGuildOwner {
		query += ` AND guild_id IS NOT NULL`
	}
	query += ` LIMIT 1`
	return s.queryEmote(ctx, "find emote by hash", query, hash)
}

func (s *PostgresStore) FindByID(ctx context.Context, emoteID int64) (*models.Emote, error) {
	return s.queryEmote(ctx, "find emote by id",
		`SELECT `+emoteColumns+` FROM emote_ids WHERE emote_id = $1 LIMIT 1`,
		emoteID,
	)
}

func (s *PostgresStore) ListByScope(ctx context.Context, scope models.Scope, orderByScore bool) ([]models.Emote, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	clause, args, err := scopeClause(scope, 1)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + emoteColumns + ` FROM emote_ids WHERE ` + clause + ` AND ` + usabilityFilter
	if orderByScore {
		query += ` ORDER BY score::int DESC`
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("list emotes", err)
	}
	defer rows.Close()

	emotes := []models.Emote{}
	for rows.Next() {
		e, err := scanEmote(rows)
		if err != nil {
			if errors.Is(err, ErrInvariantViolation) {
				return nil, err
			}
			return nil, unavailable("list emotes", err)
		}
		emotes = append(emotes, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list emotes", err)
	}
	return emotes, nil
}

func (s *PostgresStore) FindSynonyms(ctx context.Context, hash string, limit int) ([]int64, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	query := `SELECT emote_id FROM emote_ids WHERE emote_hash = $1 AND ` + usabilityFilter
	args := []any{hash}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("find synonyms", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, unavailable("find synonyms", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}

func (s *PostgresStore) NamesByHash(ctx context.Context, hash string, minCopies, limit int) ([]string, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	query := `SELECT name FROM (
			SELECT rtrim(name) AS name, count(*) AS copies FROM emote_ids WHERE emote_hash = $1 GROUP BY rtrim(name)
		) named
		WHERE copies > $2 AND lower(name) NOT LIKE 'emoji%'
		ORDER BY copies DESC`
	args := []any{hash, minCopies}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("names by hash", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, unavailable("names by hash", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *PostgresStore) GetScore(ctx context.Context, guildID, emoteID int64) (int8, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var raw int32
	err := s.db.QueryRow(ctx,
		`SELECT score::int FROM emote_ids WHERE guild_id = $1 AND emote_id = $2`,
		guildID, emoteID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, unavailable("get score", err)
	}
	return checkScore(emoteID, raw)
}

func (s *PostgresStore) UpdateScore(ctx context.Context, guildID, emoteID int64, expected, next int8) (bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx,
		`UPDATE emote_ids SET score = ($4::int)::"char" WHERE guild_id = $1 AND emote_id = $2 AND score::int = $3`,
		guildID, emoteID, int32(expected), int32(next),
	)
	if err != nil {
		return false, unavailable("update score", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DecayScores touches the whole table and is bounded only by ctx.
func (s *PostgresStore) DecayScores(ctx context.Context, threshold, floor int8) (int64, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE emote_ids SET score = ((score::int) - 1)::"char" WHERE guild_id IS NOT NULL AND score::int > $1 AND score::int <> $2`,
		int32(threshold), int32(floor),
	)
	if err != nil {
		return 0, unavailable("decay scores", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) GuildScores(ctx context.Context, guildID int64) ([]ScoreEntry, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT emote_id, score::int FROM emote_ids WHERE guild_id = $1 ORDER BY score::int DESC`,
		guildID,
	)
	if err != nil {
		return nil, unavailable("guild scores", err)
	}
	defer rows.Close()

	entries := []ScoreEntry{}
	for rows.Next() {
		var id int64
		var raw int32
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("guild scores", err)
		}
		score, err := checkScore(id, raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ScoreEntry{EmoteID: id, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("guild scores", err)
	}
	return entries, nil
}

func (s *PostgresStore) EmoteScore(ctx context.Context, emoteID int64) (int8, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var raw int32
	err := s.db.QueryRow(ctx, `SELECT score::int FROM emote_ids WHERE emote_id = $1`, emoteID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, unavailable("emote score", err)
	}
	return checkScore(emoteID, raw)
}

func (s *PostgresStore) HashScores(ctx context.Context, emoteID int64, threshold int8) ([]int8, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT emote_id, score::int FROM emote_ids
		WHERE emote_hash = (SELECT emote_hash FROM emote_ids WHERE emote_id = $1) AND score::int > $2`,
		emoteID, int32(threshold),
	)
	if err != nil {
		return nil, unavailable("hash scores", err)
	}
	defer rows.Close()

	scores := []int8{}
	for rows.Next() {
		var id int64
		var raw int32
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, unavailable("hash scores", err)
		}
		score, err := checkScore(id, raw)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("hash scores", err)
	}
	return scores, nil
}

// --- internal helpers ---

func (s *PostgresStore) queryEmote(ctx context.Context, op, query string, args ...any) (*models.Emote, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	e, err := scanEmote(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrInvariantViolation) {
			return nil, err
		}
		return nil, unavailable(op, err)
	}
	return e, nil
}

func scanEmote(row pgx.Row) (*models.Emote, error) {
	var (
		e       models.Emote
		exact   *string
		guildID *int64
		score   int32
	)
	if err := row.Scan(&e.ID, &e.ContentHash, &e.Usable, &e.Animated, &exact, &guildID, &e.Name, &e.HasRoles, &e.ManualBlock, &score); err != nil {
		return nil, err
	}
	if exact != nil {
		e.ExactHash = *exact
	}
	e.GuildID = guildID
	e.Name = models.TrimName(e.Name)

	checked, err := checkScore(e.ID, score)
	if err != nil {
		return nil, err
	}
	e.Score = checked

	if err := validateEmote(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

func checkScore(emoteID int64, raw int32) (int8, error) {
	score, err := models.CheckScore(int(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: emote %d: %v", ErrInvariantViolation, emoteID, err)
	}
	return score, nil
}

// scopeClause renders scope as a WHERE fragment whose placeholders start at $first.
func scopeClause(scope models.Scope, first int) (string, []any, error) {
	if err := scope.Validate(); err != nil {
		return "", nil, err
	}
	switch scope.Kind {
	case models.ScopeGuild:
		return fmt.Sprintf(`guild_id = $%d`, first), []any{scope.GuildID}, nil
	case models.ScopePack:
		return fmt.Sprintf(`guild_id = (SELECT guild_id FROM packs WHERE pack_name = $%d)`, first), []any{scope.PackName}, nil
	case models.ScopeMutual:
		return fmt.Sprintf(`guild_id IN (SELECT guild_id FROM members WHERE user_id = $%d)`, first), []any{scope.UserID}, nil
	default:
		return fmt.Sprintf(`guild_id IN (SELECT guild_id FROM user_packs WHERE user_id = $%d)`, first), []any{scope.UserID}, nil
	}
}

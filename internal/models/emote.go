package models

import (
	"errors"
	"fmt"
	"strings"
)

// Score bounds. Scores live in one signed byte and are reported with an
// offset of 128 so callers only ever see 0-255.
const (
	MinScore         = -128
	MaxScore         = 127
	ColdScore        = -28
	PopularityOffset = 128
)

var ErrInvalidScope = errors.New("scope is missing its identifier")

// Emote is a single row of emote_ids. Name is already trimmed of the
// storage padding.
type Emote struct {
	ID          int64  `json:"id" db:"emote_id"`
	ContentHash string `json:"contentHash" db:"emote_hash"`
	ExactHash   string `json:"exactHash" db:"emote_sha"`
	Animated    bool   `json:"animated" db:"animated"`
	GuildID     *int64 `json:"guildId,omitempty" db:"guild_id"`
	Usable      bool   `json:"usable" db:"usable"`
	HasRoles    bool   `json:"hasRoles" db:"has_roles"`
	ManualBlock bool   `json:"manualBlock" db:"manual_block"`
	Name        string `json:"name" db:"name"`
	Score       int8   `json:"-" db:"score"`
}

// Orphaned reports whether the emote no longer lives in a visible guild.
func (e *Emote) Orphaned() bool {
	return e.GuildID == nil
}

// Available reports whether the emote may be handed to a caller as-is.
func (e *Emote) Available() bool {
	return e.Usable && !e.HasRoles && !e.ManualBlock
}

// Popularity is the caller-facing form of Score.
func (e *Emote) Popularity() int {
	return Popularity(e.Score)
}

// TrimName strips the fixed-width padding the emote_ids table stores names with.
func TrimName(name string) string {
	return strings.TrimRight(name, " ")
}

// Popularity converts a raw signed score to the 0-255 figure shown to callers.
func Popularity(score int8) int {
	return int(score) + PopularityOffset
}

// CheckScore validates a score read from storage. Out of range values are an
// invariant violation and are never clamped.
func CheckScore(raw int) (int8, error) {
	if raw < MinScore || raw > MaxScore {
		return 0, fmt.Errorf("score %d outside [%d, %d]", raw, MinScore, MaxScore)
	}
	return int8(raw), nil
}

// DecayedScore returns score after one decay tick and whether it moved.
// Cold scores (at or below ColdScore) and the floor never move.
func DecayedScore(score int8) (int8, bool) {
	if score <= ColdScore || score == MinScore {
		return score, false
	}
	return score - 1, true
}

// Usage is one observed use of an emote inside a guild.
type Usage struct {
	GuildID int64 `json:"guildId" validate:"required,gt=0"`
	EmoteID int64 `json:"emoteId" validate:"required,gt=0"`
}

// EmoteScore is a ranked popularity entry.
type EmoteScore struct {
	EmoteID    int64 `json:"emoteId"`
	Popularity int   `json:"popularity"`
}

package models

import "fmt"

type ScopeKind int

const (
	// ScopeGuild restricts a lookup to a single guild.
	ScopeGuild ScopeKind = iota + 1
	// ScopePack restricts a lookup to the guild behind a named pack.
	ScopePack
	// ScopeMutual restricts a lookup to every guild the user is a member of.
	ScopeMutual
	// ScopeUserPacks restricts a lookup to every pack guild the user joined.
	ScopeUserPacks
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGuild:
		return "guild"
	case ScopePack:
		return "pack"
	case ScopeMutual:
		return "mutual"
	case ScopeUserPacks:
		return "user_packs"
	default:
		return fmt.Sprintf("scope(%d)", int(k))
	}
}

// Scope is the predicate a name lookup is restricted to.
type Scope struct {
	Kind     ScopeKind
	GuildID  int64
	UserID   int64
	PackName string
}

func GuildScope(guildID int64) Scope {
	return Scope{Kind: ScopeGuild, GuildID: guildID}
}

func PackScope(packName string) Scope {
	return Scope{Kind: ScopePack, PackName: packName}
}

func MutualScope(userID int64) Scope {
	return Scope{Kind: ScopeMutual, UserID: userID}
}

func UserPacksScope(userID int64) Scope {
	return Scope{Kind: ScopeUserPacks, UserID: userID}
}

// Validate checks that the scope carries the identifier its kind needs.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopeGuild:
		if s.GuildID <= 0 {
			return fmt.Errorf("%w: guild id", ErrInvalidScope)
		}
	case ScopePack:
		if s.PackName == "" {
			return fmt.Errorf("%w: pack name", ErrInvalidScope)
		}
	case ScopeMutual, ScopeUserPacks:
		if s.UserID <= 0 {
			return fmt.Errorf("%w: user id", ErrInvalidScope)
		}
	default:
		return fmt.Errorf("%w: unknown kind %s", ErrInvalidScope, s.Kind)
	}
	return nil
}

func (s Scope) String() string {
	switch s.Kind {
	case ScopeGuild:
		return fmt.Sprintf("guild:%d", s.GuildID)
	case ScopePack:
		return "pack:" + s.PackName
	case ScopeMutual, ScopeUserPacks:
		return fmt.Sprintf("%s:%d", s.Kind, s.UserID)
	default:
		return s.Kind.String()
	}
}

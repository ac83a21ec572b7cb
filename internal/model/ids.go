package model

import "strings"

// UserID identifies a registered account. IDs are assigned by the
// persistence layer and are stable across sessions.
type UserID int32

// MatchID indexes a slot in the global match table.
type MatchID int32

// NoMatch marks a player who is not in any multiplayer match.
const NoMatch MatchID = -1

// MakeSafeName returns the canonical form of a username used for
// uniqueness and lookup: lowercased, with spaces as underscores.
func MakeSafeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "_")
}

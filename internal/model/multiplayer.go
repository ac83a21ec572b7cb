package model

// Multiplayer table dimensions.
const (
	// MaxMatchSlots is the fixed number of seats in every match.
	MaxMatchSlots = 16
	// MaxMatches bounds the global match table; match ids are indexes
	// into it, valid in [0, MaxMatches).
	MaxMatches = 64
)

// SlotStatus is the state of one match seat. The values form a bitset on
// the wire so that HasPlayer can be tested with a single mask.
type SlotStatus uint8

const (
	SlotOpen     SlotStatus = 1 << 0
	SlotLocked   SlotStatus = 1 << 1
	SlotNotReady SlotStatus = 1 << 2
	SlotReady    SlotStatus = 1 << 3
	SlotNoMap    SlotStatus = 1 << 4
	SlotPlaying  SlotStatus = 1 << 5
	SlotComplete SlotStatus = 1 << 6
	SlotQuit     SlotStatus = 1 << 7

	// SlotHasPlayer masks every status that implies an occupant.
	SlotHasPlayer = SlotNotReady | SlotReady | SlotNoMap | SlotPlaying | SlotComplete
)

// HasPlayer reports whether the status implies an occupied seat.
func (s SlotStatus) HasPlayer() bool { return s&SlotHasPlayer != 0 }

// Team is a slot's team assignment.
type Team uint8

const (
	TeamNeutral Team = iota
	TeamBlue
	TeamRed
)

// MatchType distinguishes standard matches from the legacy powerplay mode.
type MatchType uint8

const (
	MatchTypeStandard MatchType = iota
	MatchTypePowerplay
)

// WinCondition is the match scoring type.
type WinCondition uint8

const (
	WinConditionScore WinCondition = iota
	WinConditionAccuracy
	WinConditionCombo
	WinConditionScoreV2
)

// TeamType is the match team arrangement.
type TeamType uint8

const (
	TeamTypeHeadToHead TeamType = iota
	TeamTypeTagCoop
	TeamTypeTeamVs
	TeamTypeTagTeamVs
)

// DefaultTeam returns the team every occupied slot is reset to when the
// match switches to the given team type: free-for-all types are neutral,
// team types start everyone on red.
func (t TeamType) DefaultTeam() Team {
	if t == TeamTypeTeamVs || t == TeamTypeTagTeamVs {
		return TeamRed
	}
	return TeamNeutral
}

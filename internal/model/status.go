package model

// Action is the client-reported activity state.
type Action uint8

const (
	ActionIdle Action = iota
	ActionAfk
	ActionPlaying
	ActionEditing
	ActionModding
	ActionMultiplayer
	ActionWatching
	ActionUnknown
	ActionTesting
	ActionSubmitting
	ActionPaused
	ActionLobby
	ActionMultiplaying
	ActionOsuDirect
)

// GameMode selects one of the four rulesets.
type GameMode uint8

const (
	GameModeOsu GameMode = iota
	GameModeTaiko
	GameModeCatch
	GameModeMania
)

func (m GameMode) String() string {
	switch m {
	case GameModeOsu:
		return "osu"
	case GameModeTaiko:
		return "taiko"
	case GameModeCatch:
		return "catch"
	case GameModeMania:
		return "mania"
	}
	return "unknown"
}

// PresenceFilter is the scope of presence updates a client wants to receive.
type PresenceFilter int32

const (
	PresenceFilterNil PresenceFilter = iota
	PresenceFilterAll
	PresenceFilterFriends
)

// Status is a player's current activity as shown to other players.
type Status struct {
	Action   Action
	InfoText string
	MapMD5   string
	Mods     Mods
	Mode     GameMode
	MapID    int32
}

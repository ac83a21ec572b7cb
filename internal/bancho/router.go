package bancho

import (
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

// Handler processes one decoded frame for one session. Handlers run
// with the world locked and must not block.
type Handler func(s *Server, p *state.Player, r *packet.Reader) error

// Router is the explicit packet-id dispatch table, built once at
// startup.
type Router struct {
	handlers map[packet.ClientPacketID]Handler
}

// IntentionallyUnhandled lists client ids the server receives but has
// no behavior for. They are skipped by declared length like unknown
// ids; the list exists so the coverage test can tell "decided against"
// from "forgot".
var IntentionallyUnhandled = map[packet.ClientPacketID]struct{}{
	packet.ClientErrorReport:        {},
	packet.ClientBeatmapInfoRequest: {},
	packet.ClientIRCOnly:            {},
}

func NewRouter() *Router {
	return &Router{handlers: map[packet.ClientPacketID]Handler{
		packet.ClientPing:                        handlePing,
		packet.ClientChangeAction:                handleChangeAction,
		packet.ClientSendPublicMessage:           handleSendPublicMessage,
		packet.ClientLogout:                      handleLogout,
		packet.ClientRequestStatusUpdate:         handleRequestStatusUpdate,
		packet.ClientStartSpectating:             handleStartSpectating,
		packet.ClientStopSpectating:              handleStopSpectating,
		packet.ClientSpectateFrames:              handleSpectateFrames,
		packet.ClientCantSpectate:                handleCantSpectate,
		packet.ClientSendPrivateMessage:          handleSendPrivateMessage,
		packet.ClientPartLobby:                   handlePartLobby,
		packet.ClientJoinLobby:                   handleJoinLobby,
		packet.ClientCreateMatch:                 handleCreateMatch,
		packet.ClientJoinMatch:                   handleJoinMatch,
		packet.ClientPartMatch:                   handlePartMatch,
		packet.ClientMatchChangeSlot:             handleMatchChangeSlot,
		packet.ClientMatchReady:                  handleMatchReady,
		packet.ClientMatchLock:                   handleMatchLock,
		packet.ClientMatchChangeSettings:         handleMatchChangeSettings,
		packet.ClientMatchStart:                  handleMatchStart,
		packet.ClientMatchScoreUpdate:            handleMatchScoreUpdate,
		packet.ClientMatchComplete:               handleMatchComplete,
		packet.ClientMatchChangeMods:             handleMatchChangeMods,
		packet.ClientMatchLoadComplete:           handleMatchLoadComplete,
		packet.ClientMatchNoBeatmap:              handleMatchNoBeatmap,
		packet.ClientMatchNotReady:               handleMatchNotReady,
		packet.ClientMatchFailed:                 handleMatchFailed,
		packet.ClientMatchHasBeatmap:             handleMatchHasBeatmap,
		packet.ClientMatchSkipRequest:            handleMatchSkipRequest,
		packet.ClientChannelJoin:                 handleChannelJoin,
		packet.ClientMatchTransferHost:           handleMatchTransferHost,
		packet.ClientFriendAdd:                   handleFriendAdd,
		packet.ClientFriendRemove:                handleFriendRemove,
		packet.ClientMatchChangeTeam:             handleMatchChangeTeam,
		packet.ClientChannelPart:                 handleChannelPart,
		packet.ClientReceiveUpdates:              handleReceiveUpdates,
		packet.ClientSetAwayMessage:              handleSetAwayMessage,
		packet.ClientUserStatsRequest:            handleUserStatsRequest,
		packet.ClientMatchInvite:                 handleMatchInvite,
		packet.ClientMatchChangePassword:         handleMatchChangePassword,
		packet.ClientTournamentMatchInfoRequest:  handleTournamentMatchInfoRequest,
		packet.ClientUserPresenceRequest:         handleUserPresenceRequest,
		packet.ClientUserPresenceRequestAll:      handleUserPresenceRequestAll,
		packet.ClientToggleBlockNonFriendDMs:     handleToggleBlockNonFriendDMs,
		packet.ClientTournamentJoinMatchChannel:  handleTournamentJoinMatchChannel,
		packet.ClientTournamentLeaveMatchChannel: handleTournamentLeaveMatchChannel,
	}}
}

func (rt *Router) Lookup(id packet.ClientPacketID) (Handler, bool) {
	h, ok := rt.handlers[id]
	return h, ok
}

// RegisteredIDs returns every id with a handler.
func (rt *Router) RegisteredIDs() []packet.ClientPacketID {
	out := make([]packet.ClientPacketID, 0, len(rt.handlers))
	for id := range rt.handlers {
		out = append(out, id)
	}
	return out
}

package packet

import "fmt"

// ClientPacketID identifies an inbound packet type.
type ClientPacketID uint16

// Client packet ids, as assigned by the client protocol.
const (
	ClientChangeAction                ClientPacketID = 0
	ClientSendPublicMessage           ClientPacketID = 1
	ClientLogout                      ClientPacketID = 2
	ClientRequestStatusUpdate         ClientPacketID = 3
	ClientPing                        ClientPacketID = 4
	ClientStartSpectating             ClientPacketID = 16
	ClientStopSpectating              ClientPacketID = 17
	ClientSpectateFrames              ClientPacketID = 18
	ClientErrorReport                 ClientPacketID = 20
	ClientCantSpectate                ClientPacketID = 21
	ClientSendPrivateMessage          ClientPacketID = 25
	ClientPartLobby                   ClientPacketID = 29
	ClientJoinLobby                   ClientPacketID = 30
	ClientCreateMatch                 ClientPacketID = 31
	ClientJoinMatch                   ClientPacketID = 32
	ClientPartMatch                   ClientPacketID = 33
	ClientMatchChangeSlot             ClientPacketID = 38
	ClientMatchReady                  ClientPacketID = 39
	ClientMatchLock                   ClientPacketID = 40
	ClientMatchChangeSettings         ClientPacketID = 41
	ClientMatchStart                  ClientPacketID = 44
	ClientMatchScoreUpdate            ClientPacketID = 47
	ClientMatchComplete               ClientPacketID = 49
	ClientMatchChangeMods             ClientPacketID = 51
	ClientMatchLoadComplete           ClientPacketID = 52
	ClientMatchNoBeatmap              ClientPacketID = 54
	ClientMatchNotReady               ClientPacketID = 55
	ClientMatchFailed                 ClientPacketID = 56
	ClientMatchHasBeatmap             ClientPacketID = 59
	ClientMatchSkipRequest            ClientPacketID = 60
	ClientChannelJoin                 ClientPacketID = 63
	ClientBeatmapInfoRequest          ClientPacketID = 68
	ClientMatchTransferHost           ClientPacketID = 70
	ClientFriendAdd                   ClientPacketID = 73
	ClientFriendRemove                ClientPacketID = 74
	ClientMatchChangeTeam             ClientPacketID = 77
	ClientChannelPart                 ClientPacketID = 78
	ClientReceiveUpdates              ClientPacketID = 79
	ClientSetAwayMessage              ClientPacketID = 82
	ClientIRCOnly                     ClientPacketID = 84
	ClientUserStatsRequest            ClientPacketID = 85
	ClientMatchInvite                 ClientPacketID = 87
	ClientMatchChangePassword         ClientPacketID = 90
	ClientTournamentMatchInfoRequest  ClientPacketID = 93
	ClientUserPresenceRequest         ClientPacketID = 97
	ClientUserPresenceRequestAll      ClientPacketID = 98
	ClientToggleBlockNonFriendDMs     ClientPacketID = 99
	ClientTournamentJoinMatchChannel  ClientPacketID = 108
	ClientTournamentLeaveMatchChannel ClientPacketID = 109
)

var clientPacketNames = map[ClientPacketID]string{
	ClientChangeAction:                "CHANGE_ACTION",
	ClientSendPublicMessage:           "SEND_PUBLIC_MESSAGE",
	ClientLogout:                      "LOGOUT",
	ClientRequestStatusUpdate:         "REQUEST_STATUS_UPDATE",
	ClientPing:                        "PING",
	ClientStartSpectating:             "START_SPECTATING",
	ClientStopSpectating:              "STOP_SPECTATING",
	ClientSpectateFrames:              "SPECTATE_FRAMES",
	ClientErrorReport:                 "ERROR_REPORT",
	ClientCantSpectate:                "CANT_SPECTATE",
	ClientSendPrivateMessage:          "SEND_PRIVATE_MESSAGE",
	ClientPartLobby:                   "PART_LOBBY",
	ClientJoinLobby:                   "JOIN_LOBBY",
	ClientCreateMatch:                 "CREATE_MATCH",
	ClientJoinMatch:                   "JOIN_MATCH",
	ClientPartMatch:                   "PART_MATCH",
	ClientMatchChangeSlot:             "MATCH_CHANGE_SLOT",
	ClientMatchReady:                  "MATCH_READY",
	ClientMatchLock:                   "MATCH_LOCK",
	ClientMatchChangeSettings:         "MATCH_CHANGE_SETTINGS",
	ClientMatchStart:                  "MATCH_START",
	ClientMatchScoreUpdate:            "MATCH_SCORE_UPDATE",
	ClientMatchComplete:               "MATCH_COMPLETE",
	ClientMatchChangeMods:             "MATCH_CHANGE_MODS",
	ClientMatchLoadComplete:           "MATCH_LOAD_COMPLETE",
	ClientMatchNoBeatmap:              "MATCH_NO_BEATMAP",
	ClientMatchNotReady:               "MATCH_NOT_READY",
	ClientMatchFailed:                 "MATCH_FAILED",
	ClientMatchHasBeatmap:             "MATCH_HAS_BEATMAP",
	ClientMatchSkipRequest:            "MATCH_SKIP_REQUEST",
	ClientChannelJoin:                 "CHANNEL_JOIN",
	ClientBeatmapInfoRequest:          "BEATMAP_INFO_REQUEST",
	ClientMatchTransferHost:           "MATCH_TRANSFER_HOST",
	ClientFriendAdd:                   "FRIEND_ADD",
	ClientFriendRemove:                "FRIEND_REMOVE",
	ClientMatchChangeTeam:             "MATCH_CHANGE_TEAM",
	ClientChannelPart:                 "CHANNEL_PART",
	ClientReceiveUpdates:              "RECEIVE_UPDATES",
	ClientSetAwayMessage:              "SET_AWAY_MESSAGE",
	ClientIRCOnly:                     "IRC_ONLY",
	ClientUserStatsRequest:            "USER_STATS_REQUEST",
	ClientMatchInvite:                 "MATCH_INVITE",
	ClientMatchChangePassword:         "MATCH_CHANGE_PASSWORD",
	ClientTournamentMatchInfoRequest:  "TOURNAMENT_MATCH_INFO_REQUEST",
	ClientUserPresenceRequest:         "USER_PRESENCE_REQUEST",
	ClientUserPresenceRequestAll:      "USER_PRESENCE_REQUEST_ALL",
	ClientToggleBlockNonFriendDMs:     "TOGGLE_BLOCK_NON_FRIEND_DMS",
	ClientTournamentJoinMatchChannel:  "TOURNAMENT_JOIN_MATCH_CHANNEL",
	ClientTournamentLeaveMatchChannel: "TOURNAMENT_LEAVE_MATCH_CHANNEL",
}

func (id ClientPacketID) String() string {
	if name, ok := clientPacketNames[id]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint16(id))
}

// KnownClientPacketIDs returns every client packet id the protocol defines,
// whether or not a handler is registered for it.
func KnownClientPacketIDs() []ClientPacketID {
	ids := make([]ClientPacketID, 0, len(clientPacketNames))
	for id := range clientPacketNames {
		ids = append(ids, id)
	}
	return ids
}

// ServerPacketID identifies an outbound packet type.
type ServerPacketID uint16

// Server packet ids.
const (
	ServerUserID                  ServerPacketID = 5
	ServerSendMessage             ServerPacketID = 7
	ServerPong                    ServerPacketID = 8
	ServerUserStats               ServerPacketID = 11
	ServerUserLogout              ServerPacketID = 12
	ServerSpectatorJoined         ServerPacketID = 13
	ServerSpectatorLeft           ServerPacketID = 14
	ServerSpectateFrames          ServerPacketID = 15
	ServerVersionUpdate           ServerPacketID = 19
	ServerSpectatorCantSpectate   ServerPacketID = 22
	ServerGetAttention            ServerPacketID = 23
	ServerNotification            ServerPacketID = 24
	ServerUpdateMatch             ServerPacketID = 26
	ServerNewMatch                ServerPacketID = 27
	ServerDisposeMatch            ServerPacketID = 28
	ServerToggleBlockNonFriendDMs ServerPacketID = 34
	ServerMatchJoinSuccess        ServerPacketID = 36
	ServerMatchJoinFail           ServerPacketID = 37
	ServerFellowSpectatorJoined   ServerPacketID = 42
	ServerFellowSpectatorLeft     ServerPacketID = 43
	ServerAllPlayersLoaded        ServerPacketID = 45
	ServerMatchStart              ServerPacketID = 46
	ServerMatchScoreUpdate        ServerPacketID = 48
	ServerMatchTransferHost       ServerPacketID = 50
	ServerMatchAllPlayersLoaded   ServerPacketID = 53
	ServerMatchPlayerFailed       ServerPacketID = 57
	ServerMatchComplete           ServerPacketID = 58
	ServerMatchSkip               ServerPacketID = 61
	ServerChannelJoinSuccess      ServerPacketID = 64
	ServerChannelInfo             ServerPacketID = 65
	ServerChannelKick             ServerPacketID = 66
	ServerChannelAutoJoin         ServerPacketID = 67
	ServerPrivileges              ServerPacketID = 71
	ServerFriendsList             ServerPacketID = 72
	ServerProtocolVersion         ServerPacketID = 75
	ServerMainMenuIcon            ServerPacketID = 76
	ServerMatchPlayerSkipped      ServerPacketID = 81
	ServerUserPresence            ServerPacketID = 83
	ServerRestart                 ServerPacketID = 86
	ServerMatchInvite             ServerPacketID = 88
	ServerChannelInfoEnd          ServerPacketID = 89
	ServerMatchChangePassword     ServerPacketID = 91
	ServerSilenceEnd              ServerPacketID = 92
	ServerUserSilenced            ServerPacketID = 94
	ServerUserPresenceSingle      ServerPacketID = 95
	ServerUserPresenceBundle      ServerPacketID = 96
	ServerUserDMBlocked           ServerPacketID = 100
	ServerTargetIsSilenced        ServerPacketID = 101
	ServerVersionUpdateForced     ServerPacketID = 102
	ServerSwitchServer            ServerPacketID = 103
	ServerAccountRestricted       ServerPacketID = 104
	ServerMatchAbort              ServerPacketID = 106
	ServerSwitchTournamentServer  ServerPacketID = 107
)

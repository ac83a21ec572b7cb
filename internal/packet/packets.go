package packet

import (
	"fmt"

	"github.com/NESSBZID/bncho/internal/model"
)

// ProtocolVersion is the chat protocol revision advertised at login.
const ProtocolVersion = 19

// Builders for every outbound packet. Each returns a complete frame
// ready to append to a session's outbound buffer.

func UserID(id int32) []byte {
	return NewWriter(ServerUserID).WriteI32(id).Finish()
}

func SendMessage(m Message) []byte {
	return NewWriter(ServerSendMessage).WriteMessage(m).Finish()
}

func Pong() []byte {
	return NewWriter(ServerPong).Finish()
}

// UserStats carries the per-mode figures shown on a player's panel.
type UserStats struct {
	UserID      model.UserID
	Status      model.Status
	RankedScore int64
	Accuracy    float32 // percentage, 0..100
	PlayCount   int32
	TotalScore  int64
	GlobalRank  int32
	PP          int16
}

func WriteUserStats(s UserStats) []byte {
	return NewWriter(ServerUserStats).
		WriteI32(int32(s.UserID)).
		WriteU8(uint8(s.Status.Action)).
		WriteString(s.Status.InfoText).
		WriteString(s.Status.MapMD5).
		WriteU32(uint32(s.Status.Mods)).
		WriteU8(uint8(s.Status.Mode)).
		WriteI32(s.Status.MapID).
		WriteI64(s.RankedScore).
		WriteF32(s.Accuracy / 100).
		WriteI32(s.PlayCount).
		WriteI64(s.TotalScore).
		WriteI32(s.GlobalRank).
		WriteI16(s.PP).
		Finish()
}

func Logout(id model.UserID) []byte {
	return NewWriter(ServerUserLogout).WriteI32(int32(id)).WriteU8(0).Finish()
}

func SpectatorJoined(id model.UserID) []byte {
	return NewWriter(ServerSpectatorJoined).WriteI32(int32(id)).Finish()
}

func SpectatorLeft(id model.UserID) []byte {
	return NewWriter(ServerSpectatorLeft).WriteI32(int32(id)).Finish()
}

func SpectateFrames(raw []byte) []byte {
	return NewWriter(ServerSpectateFrames).WriteRaw(raw).Finish()
}

func VersionUpdate() []byte {
	return NewWriter(ServerVersionUpdate).Finish()
}

func SpectatorCantSpectate(id model.UserID) []byte {
	return NewWriter(ServerSpectatorCantSpectate).WriteI32(int32(id)).Finish()
}

func GetAttention() []byte {
	return NewWriter(ServerGetAttention).Finish()
}

func Notification(msg string) []byte {
	return NewWriter(ServerNotification).WriteString(msg).Finish()
}

func UpdateMatch(m MatchData, sendPassword bool) []byte {
	return NewWriter(ServerUpdateMatch).WriteMatch(m, sendPassword).Finish()
}

func NewMatch(m MatchData, sendPassword bool) []byte {
	return NewWriter(ServerNewMatch).WriteMatch(m, sendPassword).Finish()
}

func DisposeMatch(id model.MatchID) []byte {
	return NewWriter(ServerDisposeMatch).WriteI32(int32(id)).Finish()
}

func ToggleBlockNonFriendDMs() []byte {
	return NewWriter(ServerToggleBlockNonFriendDMs).Finish()
}

func MatchJoinSuccess(m MatchData) []byte {
	return NewWriter(ServerMatchJoinSuccess).WriteMatch(m, true).Finish()
}

func MatchJoinFail() []byte {
	return NewWriter(ServerMatchJoinFail).Finish()
}

func FellowSpectatorJoined(id model.UserID) []byte {
	return NewWriter(ServerFellowSpectatorJoined).WriteI32(int32(id)).Finish()
}

func FellowSpectatorLeft(id model.UserID) []byte {
	return NewWriter(ServerFellowSpectatorLeft).WriteI32(int32(id)).Finish()
}

func MatchStart(m MatchData) []byte {
	return NewWriter(ServerMatchStart).WriteMatch(m, true).Finish()
}

// MatchScoreUpdate relays a raw score frame. The sender's slot number
// has already been patched into the payload by the match layer.
func MatchScoreUpdate(raw []byte) []byte {
	return NewWriter(ServerMatchScoreUpdate).WriteRaw(raw).Finish()
}

func MatchTransferHost() []byte {
	return NewWriter(ServerMatchTransferHost).Finish()
}

func MatchAllPlayersLoaded() []byte {
	return NewWriter(ServerMatchAllPlayersLoaded).Finish()
}

func MatchPlayerFailed(slotID int32) []byte {
	return NewWriter(ServerMatchPlayerFailed).WriteI32(slotID).Finish()
}

func MatchComplete() []byte {
	return NewWriter(ServerMatchComplete).Finish()
}

func MatchSkip() []byte {
	return NewWriter(ServerMatchSkip).Finish()
}

func ChannelJoin(name string) []byte {
	return NewWriter(ServerChannelJoinSuccess).WriteString(name).Finish()
}

func channelInfo(id ServerPacketID, name, topic string, members int) []byte {
	if members > 0xffff {
		panic(fmt.Sprintf("packet: channel member count %d exceeds u16", members))
	}
	return NewWriter(id).
		WriteString(name).
		WriteString(topic).
		WriteU16(uint16(members)).
		Finish()
}

func ChannelInfo(name, topic string, members int) []byte {
	return channelInfo(ServerChannelInfo, name, topic, members)
}

func ChannelKick(name string) []byte {
	return NewWriter(ServerChannelKick).WriteString(name).Finish()
}

func ChannelAutoJoin(name, topic string, members int) []byte {
	return channelInfo(ServerChannelAutoJoin, name, topic, members)
}

func BanchoPrivileges(p model.ClientPrivileges) []byte {
	return NewWriter(ServerPrivileges).WriteI32(int32(p)).Finish()
}

func FriendsList(ids []model.UserID) []byte {
	raw := make([]int32, len(ids))
	for i, id := range ids {
		raw[i] = int32(id)
	}
	return NewWriter(ServerFriendsList).WriteI32List(raw).Finish()
}

func WriteProtocolVersion(v int32) []byte {
	return NewWriter(ServerProtocolVersion).WriteI32(v).Finish()
}

// MainMenuIcon encodes the banner icon and click-through URLs shown on
// the client's main menu.
func MainMenuIcon(iconURL, onclickURL string) []byte {
	return NewWriter(ServerMainMenuIcon).
		WriteString(iconURL + "|" + onclickURL).
		Finish()
}

func MatchPlayerSkipped(id model.UserID) []byte {
	return NewWriter(ServerMatchPlayerSkipped).WriteI32(int32(id)).Finish()
}

// UserPresence carries the identity fields shown in a player's tooltip.
type UserPresence struct {
	UserID           model.UserID
	Name             string
	UTCOffset        int8
	CountryCode      uint8
	ClientPrivileges model.ClientPrivileges
	Mode             model.GameMode
	Longitude        float32
	Latitude         float32
	GlobalRank       int32
}

func WriteUserPresence(p UserPresence) []byte {
	return NewWriter(ServerUserPresence).
		WriteI32(int32(p.UserID)).
		WriteString(p.Name).
		WriteU8(uint8(p.UTCOffset + 24)).
		WriteU8(p.CountryCode).
		WriteU8(uint8(p.ClientPrivileges) | uint8(p.Mode)<<5).
		WriteF32(p.Longitude).
		WriteF32(p.Latitude).
		WriteI32(p.GlobalRank).
		Finish()
}

// Restart tells the client to reconnect after the given delay.
func Restart(afterMS int32) []byte {
	return NewWriter(ServerRestart).WriteI32(afterMS).Finish()
}

// MatchInvite is a chat message from the inviter carrying an osump://
// join link for their current room.
func MatchInvite(sender string, senderID model.UserID, recipient, matchName, password string) []byte {
	url := fmt.Sprintf("osump://%s/%s", matchName, password)
	return NewWriter(ServerMatchInvite).WriteMessage(Message{
		Sender:    sender,
		Text:      fmt.Sprintf("Come join my game: [%s %s].", url, matchName),
		Recipient: recipient,
		SenderID:  int32(senderID),
	}).Finish()
}

func ChannelInfoEnd() []byte {
	return NewWriter(ServerChannelInfoEnd).Finish()
}

func MatchChangePassword(newPassword string) []byte {
	return NewWriter(ServerMatchChangePassword).WriteString(newPassword).Finish()
}

// SilenceEnd reports the remaining silence duration in seconds.
func SilenceEnd(delta int32) []byte {
	return NewWriter(ServerSilenceEnd).WriteI32(delta).Finish()
}

func UserSilenced(id model.UserID) []byte {
	return NewWriter(ServerUserSilenced).WriteI32(int32(id)).Finish()
}

func UserPresenceSingle(id model.UserID) []byte {
	return NewWriter(ServerUserPresenceSingle).WriteI32(int32(id)).Finish()
}

func UserPresenceBundle(ids []model.UserID) []byte {
	raw := make([]int32, len(ids))
	for i, id := range ids {
		raw[i] = int32(id)
	}
	return NewWriter(ServerUserPresenceBundle).WriteI32List(raw).Finish()
}

func UserDMBlocked(target string) []byte {
	return NewWriter(ServerUserDMBlocked).WriteMessage(Message{Recipient: target}).Finish()
}

func TargetIsSilenced(target string) []byte {
	return NewWriter(ServerTargetIsSilenced).WriteMessage(Message{Recipient: target}).Finish()
}

func VersionUpdateForced() []byte {
	return NewWriter(ServerVersionUpdateForced).Finish()
}

func SwitchServer(threshold int32) []byte {
	return NewWriter(ServerSwitchServer).WriteI32(threshold).Finish()
}

func AccountRestricted() []byte {
	return NewWriter(ServerAccountRestricted).Finish()
}

func MatchAbort() []byte {
	return NewWriter(ServerMatchAbort).Finish()
}

func SwitchTournamentServer(addr string) []byte {
	return NewWriter(ServerSwitchTournamentServer).WriteString(addr).Finish()
}

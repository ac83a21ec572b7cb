package bancho

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

func handlePing(_ *Server, _ *state.Player, _ *packet.Reader) error {
	// Liveness is tracked by the dispatcher on every frame.
	return nil
}

func handleChangeAction(s *Server, p *state.Player, r *packet.Reader) error {
	action, err := r.ReadU8()
	if err != nil {
		return err
	}
	infoText, err := r.ReadString()
	if err != nil {
		return err
	}
	mapMD5, err := r.ReadString()
	if err != nil {
		return err
	}
	mods, err := r.ReadU32()
	if err != nil {
		return err
	}
	mode, err := r.ReadU8()
	if err != nil {
		return err
	}
	mapID, err := r.ReadI32()
	if err != nil {
		return err
	}

	p.Status = model.Status{
		Action:   model.Action(action),
		InfoText: infoText,
		MapMD5:   mapMD5,
		Mods:     model.Mods(mods),
		Mode:     model.GameMode(mode),
		MapID:    mapID,
	}
	if !p.Restricted() {
		s.world.Players.Broadcast(p.StatsPacket())
	}
	return nil
}

// resolveChatTarget maps the client's fixed tab names back onto the
// session's actual instance channels.
func (s *Server) resolveChatTarget(p *state.Player, name string) (*state.Channel, bool) {
	switch name {
	case "#multiplayer":
		m, ok := s.world.Matches.ByID(p.MatchID)
		if !ok {
			return nil, false
		}
		return s.world.Chans.ByName(m.ChatName())
	case "#spectator":
		hostID := p.SpectatingID
		if hostID == 0 {
			hostID = p.ID
		}
		return s.world.Chans.ByName("#spec_" + fmt.Sprint(hostID))
	default:
		return s.world.Chans.ByName(name)
	}
}

const maxMessageLength = 2000

// truncateMessage caps oversized chat text, backing the cut off to a
// rune boundary so clients never receive invalid UTF-8.
func truncateMessage(text string) string {
	if len(text) <= maxMessageLength {
		return text
	}
	cut := maxMessageLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "... (truncated)"
}

func handleSendPublicMessage(s *Server, p *state.Player, r *packet.Reader) error {
	msg, err := r.ReadMessage()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if p.Silenced(now) {
		s.log.Info("silenced player tried to chat", "player", p.Name)
		return nil
	}
	c, ok := s.resolveChatTarget(p, msg.Recipient)
	if !ok {
		s.log.Debug("message to unknown channel", "player", p.Name, "channel", msg.Recipient)
		return nil
	}
	if !c.HasMember(p.ID) || !c.CanWrite(p.Privileges) {
		s.log.Info("unauthorized channel write dropped", "player", p.Name, "channel", c.Name)
		return nil
	}

	text := truncateMessage(msg.Text)
	out := packet.SendMessage(packet.Message{
		Sender:    p.Name,
		Text:      text,
		Recipient: c.ClientName(),
		SenderID:  int32(p.ID),
	})
	w := s.world
	w.SendToChannel(c, out, map[model.UserID]struct{}{p.ID: {}})

	if res, ok := s.commands.Process(p.Name, c.Name, text); ok && res.Response != "" {
		reply := packet.SendMessage(packet.Message{
			Sender:    BotName,
			Text:      res.Response,
			Recipient: c.ClientName(),
			SenderID:  BotID,
		})
		if res.Public {
			w.SendToChannel(c, reply, nil)
		} else {
			p.Enqueue(reply)
		}
	}
	return nil
}

func handleSendPrivateMessage(s *Server, p *state.Player, r *packet.Reader) error {
	msg, err := r.ReadMessage()
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if p.Silenced(now) {
		return nil
	}
	text := truncateMessage(msg.Text)

	if strings.EqualFold(msg.Recipient, BotName) {
		if res, ok := s.commands.Process(p.Name, msg.Recipient, text); ok && res.Response != "" {
			p.Enqueue(packet.SendMessage(packet.Message{
				Sender: BotName, Text: res.Response, Recipient: p.Name, SenderID: BotID,
			}))
		}
		return nil
	}

	target, online := s.world.Players.ByName(msg.Recipient)
	if !online {
		// Offline targets with an account get mail, delivered at their
		// next login. Unknown names are dropped.
		account, err := s.store.FetchUserByName(context.Background(), model.MakeSafeName(msg.Recipient))
		if err != nil {
			if !errors.Is(err, model.ErrUserNotFound) {
				s.log.Error("resolving mail recipient", "error", err)
			}
			return nil
		}
		err = s.store.InsertMail(context.Background(), model.Mail{
			FromID: p.ID, FromName: p.Name,
			ToID: account.ID, ToName: account.Name,
			Body: text, SentAt: now.Unix(),
		})
		if err != nil {
			s.log.Error("storing offline mail", "error", err)
		}
		return nil
	}
	if target.BlockNonFriendDMs {
		if _, friend := target.Friends[p.ID]; !friend {
			p.Enqueue(packet.UserDMBlocked(target.Name))
			return nil
		}
	}
	if target.Silenced(now) {
		p.Enqueue(packet.TargetIsSilenced(target.Name))
		return nil
	}
	target.Enqueue(packet.SendMessage(packet.Message{
		Sender: p.Name, Text: text, Recipient: target.Name, SenderID: int32(p.ID),
	}))
	if target.AwayMessage != "" {
		p.Enqueue(packet.SendMessage(packet.Message{
			Sender:    target.Name,
			Text:      "/me is away: " + target.AwayMessage,
			Recipient: p.Name,
			SenderID:  int32(target.ID),
		}))
	}
	return nil
}

func handleLogout(s *Server, p *state.Player, r *packet.Reader) error {
	if _, err := r.ReadI32(); err != nil {
		return err
	}
	// Old clients fire a spurious logout right after login.
	if s.clock.Now().Sub(p.LoginTime) < time.Second {
		return nil
	}
	s.world.RemoveSession(p)
	return nil
}

func handleRequestStatusUpdate(_ *Server, p *state.Player, _ *packet.Reader) error {
	p.Enqueue(p.StatsPacket())
	return nil
}

func handleChannelJoin(s *Server, p *state.Player, r *packet.Reader) error {
	name, err := r.ReadString()
	if err != nil {
		return err
	}
	// The synthetic tab names are joined through match/spectate flows.
	if name == "#multiplayer" || name == "#spectator" {
		return nil
	}
	c, ok := s.world.Chans.ByName(name)
	if !ok {
		s.log.Debug("join for unknown channel", "player", p.Name, "channel", name)
		return nil
	}
	if err := s.world.JoinChannel(p, c); err != nil {
		s.log.Info("channel join refused", "player", p.Name, "channel", name, "error", err)
	}
	return nil
}

func handleChannelPart(s *Server, p *state.Player, r *packet.Reader) error {
	name, err := r.ReadString()
	if err != nil {
		return err
	}
	if name == "#multiplayer" || name == "#spectator" {
		return nil
	}
	if c, ok := s.world.Chans.ByName(name); ok {
		s.world.LeaveChannel(p, c, false)
	}
	return nil
}

func handleFriendAdd(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	friend := model.UserID(id)
	if friend == p.ID {
		return nil
	}
	p.Friends[friend] = struct{}{}
	return s.store.AddFriend(context.Background(), p.ID, friend)
}

func handleFriendRemove(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	friend := model.UserID(id)
	delete(p.Friends, friend)
	return s.store.RemoveFriend(context.Background(), p.ID, friend)
}

func handleReceiveUpdates(_ *Server, p *state.Player, r *packet.Reader) error {
	v, err := r.ReadI32()
	if err != nil {
		return err
	}
	p.PresenceFilter = model.PresenceFilter(v)
	return nil
}

func handleSetAwayMessage(_ *Server, p *state.Player, r *packet.Reader) error {
	msg, err := r.ReadMessage()
	if err != nil {
		return err
	}
	p.AwayMessage = msg.Text
	return nil
}

func handleUserStatsRequest(s *Server, p *state.Player, r *packet.Reader) error {
	ids, err := r.ReadI32List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if model.UserID(id) == p.ID {
			continue
		}
		if other, ok := s.world.Players.ByID(model.UserID(id)); ok && !other.Restricted() {
			p.Enqueue(other.StatsPacket())
		}
	}
	return nil
}

func handleUserPresenceRequest(s *Server, p *state.Player, r *packet.Reader) error {
	ids, err := r.ReadI32List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if other, ok := s.world.Players.ByID(model.UserID(id)); ok && !other.Restricted() {
			p.Enqueue(other.PresencePacket())
		}
	}
	return nil
}

func handleUserPresenceRequestAll(s *Server, p *state.Player, r *packet.Reader) error {
	// Payload is the client's ingame time; unused.
	if _, err := r.ReadI32(); err != nil {
		return err
	}
	for _, other := range s.world.Players.Unrestricted() {
		p.Enqueue(other.PresencePacket())
	}
	return nil
}

func handleToggleBlockNonFriendDMs(_ *Server, p *state.Player, r *packet.Reader) error {
	v, err := r.ReadI32()
	if err != nil {
		return err
	}
	p.BlockNonFriendDMs = v == 1
	return nil
}

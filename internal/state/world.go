package state

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/NESSBZID/bncho/internal/dependencies/clock"
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
)

// World owns the three global tables and the mutex serializing every
// handler step. Handlers run with the world locked end to end; only
// per-player outbound buffers have their own locks, so connection
// writers drain concurrently with handler execution.
type World struct {
	mu sync.Mutex

	Log     *slog.Logger
	Clock   clock.Clock
	Players *Registry
	Chans   *ChannelList
	Matches *MatchList
}

func NewWorld(logger *slog.Logger, clk clock.Clock) *World {
	w := &World{
		Log:     logger,
		Clock:   clk,
		Players: NewRegistry(),
		Chans:   NewChannelList(),
		Matches: NewMatchList(),
	}
	for _, c := range []*Channel{
		{Name: "#osu", Topic: "General discussion.", AutoJoin: true},
		{Name: "#announce", Topic: "Exemplary performance and public announcements.", AutoJoin: true, WritePriv: model.PrivStaff},
		{Name: "#lobby", Topic: "Multiplayer lobby discussion."},
		{Name: "#staff", Topic: "Staff only.", ReadPriv: model.PrivStaff, WritePriv: model.PrivStaff},
	} {
		_ = w.Chans.Add(c)
	}
	return w
}

func (w *World) Lock()   { w.mu.Lock() }
func (w *World) Unlock() { w.mu.Unlock() }

// broadcastChannelInfo refreshes the channel's listing entry for every
// session allowed to see it.
func (w *World) broadcastChannelInfo(c *Channel) {
	info := c.InfoPacket()
	for _, p := range w.Players.All() {
		if c.CanRead(p.Privileges) {
			p.Enqueue(info)
		}
	}
}

// JoinChannel adds the player to the channel, failing on privilege or
// double joins. Membership is registered on both sides in one step.
func (w *World) JoinChannel(p *Player, c *Channel) error {
	if c.HasMember(p.ID) {
		return model.ErrAlreadyInChannel
	}
	if !c.CanRead(p.Privileges) {
		return model.ErrInsufficientPrivs
	}
	c.addMember(p.ID)
	p.Channels[c.Name] = struct{}{}
	p.Enqueue(packet.ChannelJoin(c.ClientName()))
	w.broadcastChannelInfo(c)
	return nil
}

// LeaveChannel removes the player; leaving a channel twice is a no-op.
// An emptied instance channel is deleted from the table in the same
// step.
func (w *World) LeaveChannel(p *Player, c *Channel, kick bool) {
	if !c.removeMember(p.ID) {
		return
	}
	delete(p.Channels, c.Name)
	if kick {
		p.Enqueue(packet.ChannelKick(c.ClientName()))
	}
	if c.Instance && c.MemberCount() == 0 {
		w.Chans.Remove(c.Name)
		return
	}
	w.broadcastChannelInfo(c)
}

// SendToChannel enqueues a frame to every member except those in the
// immune set.
func (w *World) SendToChannel(c *Channel, frame []byte, immune map[model.UserID]struct{}) {
	for _, id := range c.Members() {
		if _, skip := immune[id]; skip {
			continue
		}
		if m, ok := w.Players.ByID(id); ok {
			m.Enqueue(frame)
		}
	}
}

// CreateMatch claims a table slot, opens the room's instance channel,
// and seats the creator as host.
func (w *World) CreateMatch(host *Player, data packet.MatchData) (*Match, error) {
	if host.MatchID != model.NoMatch {
		return nil, model.ErrAlreadyInMatch
	}
	m, err := w.Matches.Create()
	if err != nil {
		return nil, err
	}
	m.Name = data.Name
	m.Password = data.Password
	m.MapName = data.MapName
	m.MapID = data.MapID
	m.MapMD5 = data.MapMD5
	m.HostID = host.ID
	m.Mode = data.Mode
	m.Mods = data.Mods
	m.Freemods = data.Freemods
	m.MatchType = data.MatchType
	m.TeamType = data.TeamType
	m.WinCondition = data.WinCondition
	m.Seed = data.Seed

	err = w.Chans.Add(&Channel{
		Name:     m.ChatName(),
		Topic:    "Room " + strconv.Itoa(int(m.ID)) + " discussion.",
		Instance: true,
	})
	if err != nil {
		w.Matches.Remove(m.ID)
		return nil, err
	}
	if err := w.JoinMatch(host, m, m.Password); err != nil {
		w.Chans.Remove(m.ChatName())
		w.Matches.Remove(m.ID)
		return nil, err
	}
	return m, nil
}

// JoinMatch seats the player in the first open slot. A player already
// seated anywhere, including this room, is rejected outright; seating
// them again would hand out a second slot and break every slot-indexed
// relay. The password check is skipped when the room is empty.
func (w *World) JoinMatch(p *Player, m *Match, password string) error {
	if p.MatchID != model.NoMatch {
		p.Enqueue(packet.MatchJoinFail())
		return model.ErrAlreadyInMatch
	}
	if m.OccupiedCount() > 0 && password != m.Password {
		p.Enqueue(packet.MatchJoinFail())
		return model.ErrBadPassword
	}
	idx := m.FirstOpenSlot()
	if idx == -1 {
		p.Enqueue(packet.MatchJoinFail())
		return model.ErrMatchFull
	}
	s := &m.Slots[idx]
	s.assign(p.ID)
	s.Team = m.TeamType.DefaultTeam()
	p.MatchID = m.ID

	if c, ok := w.Chans.ByName(m.ChatName()); ok {
		if err := w.JoinChannel(p, c); err != nil && err != model.ErrAlreadyInChannel {
			w.Log.Warn("failed to join match channel", "player", p.Name, "channel", c.Name, "error", err)
		}
	}
	if c, ok := w.Chans.ByName("#lobby"); ok {
		w.LeaveChannel(p, c, false)
	}
	p.Enqueue(packet.MatchJoinSuccess(m.ToMatchData()))
	w.BroadcastMatchUpdate(m, true)
	return nil
}

// LeaveMatch unseats the player. The last player out releases the
// room's table slot and its instance channel; otherwise a departing
// host hands the room to the next seated player.
func (w *World) LeaveMatch(p *Player) {
	if p.MatchID == model.NoMatch {
		return
	}
	m, ok := w.Matches.ByID(p.MatchID)
	p.MatchID = model.NoMatch
	if !ok {
		return
	}
	if idx := m.SlotIndexOf(p.ID); idx != -1 {
		m.Slots[idx].resetToOpen()
	}
	if c, ok := w.Chans.ByName(m.ChatName()); ok {
		w.LeaveChannel(p, c, false)
	}

	if m.OccupiedCount() == 0 {
		w.Matches.Remove(m.ID)
		dispose := packet.DisposeMatch(m.ID)
		for _, lp := range w.Players.All() {
			if lp.InLobby {
				lp.Enqueue(dispose)
			}
		}
		return
	}
	if m.HostID == p.ID {
		next := m.PlayerIDs()[0]
		m.HostID = next
		if np, ok := w.Players.ByID(next); ok {
			np.Enqueue(packet.MatchTransferHost())
		}
	}
	w.BroadcastMatchUpdate(m, true)
}

// BroadcastMatchUpdate sends the room's full state to its members (with
// the password) and, when lobby is set, a redacted copy to lobby
// browsers.
func (w *World) BroadcastMatchUpdate(m *Match, lobby bool) {
	data := m.ToMatchData()
	inside := packet.UpdateMatch(data, true)

	members := make(map[model.UserID]struct{}, model.MaxMatchSlots)
	for _, id := range m.PlayerIDs() {
		members[id] = struct{}{}
		if mp, ok := w.Players.ByID(id); ok {
			mp.Enqueue(inside)
		}
	}
	for id := range m.TourneyClients {
		if _, seated := members[id]; seated {
			continue
		}
		if tp, ok := w.Players.ByID(id); ok {
			tp.Enqueue(inside)
		}
	}
	if !lobby {
		return
	}
	outside := packet.UpdateMatch(data, false)
	for _, p := range w.Players.All() {
		if _, seated := members[p.ID]; seated {
			continue
		}
		if p.InLobby {
			p.Enqueue(outside)
		}
	}
}

func specChannelName(hostID model.UserID) string {
	return "#spec_" + strconv.Itoa(int(hostID))
}

// AddSpectator attaches the player to the host's spectating group,
// lazily creating the group's instance channel.
func (w *World) AddSpectator(host, p *Player) error {
	name := specChannelName(host.ID)
	c, ok := w.Chans.ByName(name)
	if !ok {
		c = &Channel{
			Name:     name,
			Topic:    "Live action from " + host.Name + ".",
			Instance: true,
		}
		if err := w.Chans.Add(c); err != nil {
			return err
		}
		if err := w.JoinChannel(host, c); err != nil {
			w.Log.Warn("host failed to join own spectator channel", "host", host.Name, "error", err)
		}
	}
	if err := w.JoinChannel(p, c); err != nil {
		return err
	}

	joined := packet.FellowSpectatorJoined(p.ID)
	for id := range host.Spectators {
		if s, ok := w.Players.ByID(id); ok {
			s.Enqueue(joined)
			p.Enqueue(packet.FellowSpectatorJoined(s.ID))
		}
	}
	host.Spectators[p.ID] = struct{}{}
	p.SpectatingID = host.ID
	host.Enqueue(packet.SpectatorJoined(p.ID))
	return nil
}

// RemoveSpectator detaches the player from whoever they are watching.
// Detaching twice is a no-op. The group channel dies with its last
// spectator, taking the host's membership with it.
func (w *World) RemoveSpectator(p *Player) {
	if p.SpectatingID == 0 {
		return
	}
	host, ok := w.Players.ByID(p.SpectatingID)
	p.SpectatingID = 0
	if !ok {
		return
	}
	delete(host.Spectators, p.ID)

	if c, ok := w.Chans.ByName(specChannelName(host.ID)); ok {
		w.LeaveChannel(p, c, false)
		if len(host.Spectators) == 0 {
			w.LeaveChannel(host, c, false)
		} else {
			left := packet.FellowSpectatorLeft(p.ID)
			for id := range host.Spectators {
				if s, ok := w.Players.ByID(id); ok {
					s.Enqueue(left)
				}
			}
		}
	}
	host.Enqueue(packet.SpectatorLeft(p.ID))
}

// RemoveSession performs the full teardown shared by logout, transport
// failure, and the liveness sweep: detach from spectating (both roles),
// leave the match and every channel, drop from the registry, and tell
// the rest of the server.
func (w *World) RemoveSession(p *Player) {
	w.RemoveSpectator(p)
	for id := range p.Spectators {
		if s, ok := w.Players.ByID(id); ok {
			w.RemoveSpectator(s)
		}
	}
	w.LeaveMatch(p)
	for name := range p.Channels {
		if c, ok := w.Chans.ByName(name); ok {
			w.LeaveChannel(p, c, false)
		}
	}
	w.Players.Remove(p)
	if !p.Restricted() {
		w.Players.Broadcast(packet.Logout(p.ID))
	}
	w.Log.Info("session removed", "player", p.Name, "id", p.ID)
}

package bancho

import (
	"errors"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

// matchOf resolves the sender's current room. A missing room is a
// benign race with teardown, not an error.
func (s *Server) matchOf(p *state.Player) (*state.Match, bool) {
	m, ok := s.world.Matches.ByID(p.MatchID)
	if !ok && p.MatchID != model.NoMatch {
		s.log.Debug("match gone", "player", p.Name, "match", p.MatchID)
	}
	return m, ok
}

// sendToMatch fans a frame out to every seated player, minus the
// immune set.
func (s *Server) sendToMatch(m *state.Match, frame []byte, immune map[model.UserID]struct{}) {
	for _, id := range m.PlayerIDs() {
		if _, skip := immune[id]; skip {
			continue
		}
		if p, ok := s.world.Players.ByID(id); ok {
			p.Enqueue(frame)
		}
	}
}

func handlePartLobby(_ *Server, p *state.Player, _ *packet.Reader) error {
	p.InLobby = false
	return nil
}

func handleJoinLobby(s *Server, p *state.Player, _ *packet.Reader) error {
	p.InLobby = true
	for _, m := range s.world.Matches.All() {
		p.Enqueue(packet.NewMatch(m.ToMatchData(), false))
	}
	return nil
}

func handleCreateMatch(s *Server, p *state.Player, r *packet.Reader) error {
	data, err := r.ReadMatch()
	if err != nil {
		return err
	}
	if p.Silenced(s.clock.Now()) {
		p.Enqueue(packet.MatchJoinFail())
		p.Enqueue(packet.Notification("You cannot create a match while silenced."))
		return nil
	}
	m, err := s.world.CreateMatch(p, data)
	if err != nil {
		p.Enqueue(packet.MatchJoinFail())
		if errors.Is(err, model.ErrMatchTableFull) {
			p.Enqueue(packet.Notification("No room for new matches right now, try again soon."))
		}
		return err
	}
	lobbyView := packet.NewMatch(m.ToMatchData(), false)
	for _, lp := range s.world.Players.All() {
		if lp.InLobby && lp.ID != p.ID {
			lp.Enqueue(lobbyView)
		}
	}
	s.log.Info("match created", "match", m.ID, "name", m.Name, "host", p.Name)
	return nil
}

func handleJoinMatch(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	password, err := r.ReadString()
	if err != nil {
		return err
	}
	m, ok := s.world.Matches.ByID(model.MatchID(id))
	if !ok {
		p.Enqueue(packet.MatchJoinFail())
		return nil
	}
	p.InLobby = false
	if err := s.world.JoinMatch(p, m, password); err != nil {
		s.log.Info("match join refused", "player", p.Name, "match", m.ID, "error", err)
	}
	return nil
}

func handlePartMatch(s *Server, p *state.Player, _ *packet.Reader) error {
	s.world.LeaveMatch(p)
	return nil
}

func handleMatchChangeSlot(s *Server, p *state.Player, r *packet.Reader) error {
	target, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if target < 0 || target >= model.MaxMatchSlots {
		return nil
	}
	if m.Slots[target].Status != model.SlotOpen {
		return nil
	}
	cur := m.SlotIndexOf(p.ID)
	if cur == -1 {
		return model.ErrNotInMatch
	}
	m.MoveSlot(cur, int(target))
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func setOwnSlotStatus(s *Server, p *state.Player, status model.SlotStatus) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	m.Slots[idx].Status = status
	s.world.BroadcastMatchUpdate(m, false)
	return nil
}

func handleMatchReady(s *Server, p *state.Player, _ *packet.Reader) error {
	return setOwnSlotStatus(s, p, model.SlotReady)
}

func handleMatchNotReady(s *Server, p *state.Player, _ *packet.Reader) error {
	return setOwnSlotStatus(s, p, model.SlotNotReady)
}

func handleMatchNoBeatmap(s *Server, p *state.Player, _ *packet.Reader) error {
	return setOwnSlotStatus(s, p, model.SlotNoMap)
}

func handleMatchHasBeatmap(s *Server, p *state.Player, _ *packet.Reader) error {
	return setOwnSlotStatus(s, p, model.SlotNotReady)
}

func handleMatchLock(s *Server, p *state.Player, r *packet.Reader) error {
	target, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.HostID != p.ID {
		s.log.Info("non-host tried to lock a slot", "player", p.Name, "match", m.ID)
		return nil
	}
	if target < 0 || target >= model.MaxMatchSlots {
		return nil
	}
	slot := &m.Slots[target]
	if slot.Status == model.SlotLocked {
		slot.Status = model.SlotOpen
	} else {
		if slot.UserID == m.HostID {
			return nil
		}
		if !slot.Empty() {
			// Locking an occupied seat kicks its occupant first.
			if occupant, ok := s.world.Players.ByID(slot.UserID); ok {
				s.world.LeaveMatch(occupant)
			} else {
				m.ClearSlot(int(target))
			}
		}
		slot.Status = model.SlotLocked
	}
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func handleMatchChangeSettings(s *Server, p *state.Player, r *packet.Reader) error {
	data, err := r.ReadMatch()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.HostID != p.ID {
		s.log.Info("non-host tried to change settings", "player", p.Name, "match", m.ID)
		return nil
	}

	m.SetFreemods(data.Freemods)

	if data.MapID == -1 {
		// Map cleared: ready players fall back to not ready.
		m.UnreadyPlayers(model.SlotReady)
		m.MapID = -1
		m.MapMD5 = ""
		m.MapName = ""
	} else if m.MapID == -1 {
		m.MapID = data.MapID
		m.MapMD5 = data.MapMD5
		m.MapName = data.MapName
		if c, chanOK := s.world.Chans.ByName(m.ChatName()); chanOK {
			s.world.SendToChannel(c, packet.SendMessage(packet.Message{
				Sender:    BotName,
				Text:      "Selected: " + m.MapName,
				Recipient: c.ClientName(),
				SenderID:  BotID,
			}), nil)
		}
	} else {
		m.MapID = data.MapID
		m.MapMD5 = data.MapMD5
		m.MapName = data.MapName
	}

	if data.Name != "" {
		m.Name = data.Name
	}
	m.Mode = data.Mode
	m.WinCondition = data.WinCondition
	m.SetTeamType(data.TeamType)

	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func handleMatchStart(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.HostID != p.ID {
		s.log.Info("non-host tried to start", "player", p.Name, "match", m.ID)
		return nil
	}
	noMap := m.Start()
	immune := make(map[model.UserID]struct{}, len(noMap))
	for _, id := range noMap {
		immune[id] = struct{}{}
	}
	s.sendToMatch(m, packet.MatchStart(m.ToMatchData()), immune)
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

// handleMatchScoreUpdate relays a live score frame. Hot path: the
// payload is framed once and the sender's slot index patched in place
// at its fixed offset, with no decode of the remaining fields.
func handleMatchScoreUpdate(s *Server, p *state.Player, r *packet.Reader) error {
	raw := r.ReadRaw()
	if len(raw) < 5 {
		return packet.ErrTruncated
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	frame := packet.MatchScoreUpdate(raw)
	frame[packet.HeaderLength+4] = byte(idx)
	s.sendToMatch(m, frame, nil)
	return nil
}

func handleMatchComplete(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	m.Slots[idx].Status = model.SlotComplete
	if m.AnyPlaying() {
		return nil
	}

	// Round over: everyone who finished gets the signal, the rest were
	// never playing this round.
	finished := make(map[model.UserID]struct{})
	for _, id := range m.PlayerIDs() {
		if m.Slots[m.SlotIndexOf(id)].Status == model.SlotComplete {
			finished[id] = struct{}{}
		}
	}
	m.InProgress = false
	m.UnreadyPlayers(model.SlotComplete)
	m.ResetLoaded()

	complete := packet.MatchComplete()
	for id := range finished {
		if mp, ok := s.world.Players.ByID(id); ok {
			mp.Enqueue(complete)
		}
	}
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func handleMatchChangeMods(s *Server, p *state.Player, r *packet.Reader) error {
	v, err := r.ReadI32()
	if err != nil {
		return err
	}
	mods := model.Mods(v)
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.Freemods {
		idx := m.SlotIndexOf(p.ID)
		if idx == -1 {
			return model.ErrNotInMatch
		}
		if m.HostID == p.ID {
			m.Mods = mods & model.SpeedChangingMods
		}
		m.Slots[idx].Mods = mods &^ model.SpeedChangingMods
	} else {
		if m.HostID != p.ID {
			s.log.Info("non-host tried to change mods", "player", p.Name, "match", m.ID)
			return nil
		}
		m.Mods = mods
	}
	s.world.BroadcastMatchUpdate(m, false)
	return nil
}

func handleMatchLoadComplete(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	m.Slots[idx].Loaded = true

	for i := range m.Slots {
		if m.Slots[i].Status == model.SlotPlaying && !m.Slots[i].Loaded {
			return nil
		}
	}
	s.sendToMatch(m, packet.MatchAllPlayersLoaded(), nil)
	return nil
}

func handleMatchFailed(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	s.sendToMatch(m, packet.MatchPlayerFailed(int32(idx)), nil)
	return nil
}

func handleMatchSkipRequest(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	m.Slots[idx].Skipped = true
	s.sendToMatch(m, packet.MatchPlayerSkipped(p.ID), nil)

	for i := range m.Slots {
		if m.Slots[i].Status == model.SlotPlaying && !m.Slots[i].Skipped {
			return nil
		}
	}
	s.sendToMatch(m, packet.MatchSkip(), nil)
	return nil
}

func handleMatchTransferHost(s *Server, p *state.Player, r *packet.Reader) error {
	target, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.HostID != p.ID {
		s.log.Info("non-host tried to transfer host", "player", p.Name, "match", m.ID)
		return nil
	}
	if target < 0 || target >= model.MaxMatchSlots {
		return nil
	}
	slot := &m.Slots[target]
	if slot.Empty() {
		return nil
	}
	m.HostID = slot.UserID
	if np, ok := s.world.Players.ByID(slot.UserID); ok {
		np.Enqueue(packet.MatchTransferHost())
	}
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func handleMatchChangeTeam(s *Server, p *state.Player, _ *packet.Reader) error {
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	idx := m.SlotIndexOf(p.ID)
	if idx == -1 {
		return model.ErrNotInMatch
	}
	if m.Slots[idx].Team == model.TeamBlue {
		m.Slots[idx].Team = model.TeamRed
	} else {
		m.Slots[idx].Team = model.TeamBlue
	}
	s.world.BroadcastMatchUpdate(m, false)
	return nil
}

func handleMatchInvite(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	target, online := s.world.Players.ByID(model.UserID(id))
	if !online {
		return nil
	}
	target.Enqueue(packet.MatchInvite(p.Name, p.ID, target.Name, m.Name, m.Password))
	return nil
}

func handleMatchChangePassword(s *Server, p *state.Player, r *packet.Reader) error {
	data, err := r.ReadMatch()
	if err != nil {
		return err
	}
	m, ok := s.matchOf(p)
	if !ok {
		return nil
	}
	if m.HostID != p.ID {
		s.log.Info("non-host tried to change password", "player", p.Name, "match", m.ID)
		return nil
	}
	m.Password = data.Password
	s.sendToMatch(m, packet.MatchChangePassword(m.Password), nil)
	s.world.BroadcastMatchUpdate(m, true)
	return nil
}

func handleTournamentMatchInfoRequest(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.world.Matches.ByID(model.MatchID(id))
	if !ok {
		return nil
	}
	p.Enqueue(packet.UpdateMatch(m.ToMatchData(), false))
	return nil
}

func handleTournamentJoinMatchChannel(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.world.Matches.ByID(model.MatchID(id))
	if !ok {
		return nil
	}
	if m.SlotIndexOf(p.ID) != -1 {
		return nil
	}
	m.TourneyClients[p.ID] = struct{}{}
	if c, ok := s.world.Chans.ByName(m.ChatName()); ok {
		if err := s.world.JoinChannel(p, c); err != nil {
			s.log.Info("tourney channel join refused", "player", p.Name, "error", err)
		}
	}
	return nil
}

func handleTournamentLeaveMatchChannel(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	m, ok := s.world.Matches.ByID(model.MatchID(id))
	if !ok {
		return nil
	}
	delete(m.TourneyClients, p.ID)
	if c, ok := s.world.Chans.ByName(m.ChatName()); ok {
		s.world.LeaveChannel(p, c, false)
	}
	return nil
}

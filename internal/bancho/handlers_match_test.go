package bancho

import (
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

func roomSettings(name, password string) packet.MatchData {
	return packet.MatchData{
		Name:     name,
		Password: password,
		MapName:  "artist - title [diff]",
		MapID:    1042,
		MapMD5:   "7b1c8e9f2a3d4c5b6a7988776655443a",
		Mode:     model.GameModeOsu,
		Seed:     1337,
	}
}

// createRoom dispatches a create-match request and returns the room.
func (s *ServerTestSuite) createRoom(host *state.Player, data packet.MatchData) *state.Match {
	s.dispatch(host, packet.ClientCreateMatch, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(data, true)
	}))
	m, ok := s.srv.World().Matches.ByID(host.MatchID)
	s.Require().True(ok, "host should be seated in the new match")
	return m
}

// joinRoom dispatches a join request for the given room.
func (s *ServerTestSuite) joinRoom(p *state.Player, id model.MatchID, password string) {
	s.dispatch(p, packet.ClientJoinMatch, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(id)).WriteString(password)
	}))
}

// twoPlayerRoom logs in a host and a guest and seats both in one match.
func (s *ServerTestSuite) twoPlayerRoom() (host, guest *state.Player, m *state.Match) {
	s.seedAccount("host", "pw")
	s.seedAccount("guest", "pw")
	host, _ = s.login("host", "pw")
	guest, _ = s.login("guest", "pw")

	m = s.createRoom(host, roomSettings("our room", "secret"))
	s.joinRoom(guest, m.ID, "secret")
	s.Require().Equal(m.ID, guest.MatchID)

	s.drainFrames(host)
	s.drainFrames(guest)
	return host, guest, m
}

func (s *ServerTestSuite) TestCreateMatchSeatsHost() {
	s.seedAccount("host", "pw")
	host, _ := s.login("host", "pw")

	m := s.createRoom(host, roomSettings("our room", "secret"))

	s.Equal(host.ID, m.HostID)
	s.Equal(0, m.SlotIndexOf(host.ID))
	s.Equal("our room", m.Name)
	s.Equal("secret", m.Password)
}

func (s *ServerTestSuite) TestJoinMatchWrongPassword() {
	_, _, m := s.twoPlayerRoom()

	s.seedAccount("intruder", "pw")
	intruder, _ := s.login("intruder", "pw")
	s.drainFrames(intruder)

	s.joinRoom(intruder, m.ID, "guess")

	s.Equal(model.NoMatch, intruder.MatchID)
	_, ok := findFrame(s.drainFrames(intruder), packet.ServerMatchJoinFail)
	s.True(ok)
}

func (s *ServerTestSuite) TestRepeatedJoinFrameKeepsOneSeat() {
	_, guest, m := s.twoPlayerRoom()
	seat := m.SlotIndexOf(guest.ID)

	s.joinRoom(guest, m.ID, "secret")

	s.Equal(seat, m.SlotIndexOf(guest.ID))
	occupied := 0
	for i := range m.Slots {
		if m.Slots[i].UserID == guest.ID {
			occupied++
		}
	}
	s.Equal(1, occupied)
	_, ok := findFrame(s.drainFrames(guest), packet.ServerMatchJoinFail)
	s.True(ok, "the duplicate join should be refused")
}

func (s *ServerTestSuite) TestJoinMatchOutOfRangeID() {
	s.seedAccount("jess", "pw")
	jess, _ := s.login("jess", "pw")
	s.drainFrames(jess)

	for _, id := range []int32{-1, model.MaxMatches, 500} {
		s.joinRoom(jess, model.MatchID(id), "")
		_, ok := findFrame(s.drainFrames(jess), packet.ServerMatchJoinFail)
		s.True(ok, "join of match %d should fail cleanly", id)
	}
}

func (s *ServerTestSuite) TestChangeSlotMovesOccupant() {
	_, guest, m := s.twoPlayerRoom()

	s.dispatch(guest, packet.ClientMatchChangeSlot, clientPayload(func(w *packet.Writer) {
		w.WriteI32(5)
	}))

	s.Equal(5, m.SlotIndexOf(guest.ID))
	s.Equal(model.SlotOpen, m.Slots[1].Status)
}

func (s *ServerTestSuite) TestChangeSlotRefusesOccupiedSeat() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(guest, packet.ClientMatchChangeSlot, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(m.SlotIndexOf(host.ID)))
	}))

	s.Equal(0, m.SlotIndexOf(host.ID))
	s.Equal(1, m.SlotIndexOf(guest.ID))
}

func (s *ServerTestSuite) TestLockOccupiedSlotEvictsOccupant() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(host, packet.ClientMatchLock, clientPayload(func(w *packet.Writer) {
		w.WriteI32(1)
	}))

	s.Equal(model.NoMatch, guest.MatchID)
	s.Equal(model.SlotLocked, m.Slots[1].Status)

	// Locking again reopens the seat.
	s.dispatch(host, packet.ClientMatchLock, clientPayload(func(w *packet.Writer) {
		w.WriteI32(1)
	}))
	s.Equal(model.SlotOpen, m.Slots[1].Status)
}

func (s *ServerTestSuite) TestLockIgnoresNonHost() {
	_, guest, m := s.twoPlayerRoom()

	s.dispatch(guest, packet.ClientMatchLock, clientPayload(func(w *packet.Writer) {
		w.WriteI32(2)
	}))

	s.Equal(model.SlotOpen, m.Slots[2].Status)
}

func (s *ServerTestSuite) TestMapSelectionAnnouncedToRoomChat() {
	host, guest, m := s.twoPlayerRoom()

	// The client clears the map first while the host browses.
	cleared := m.ToMatchData()
	cleared.MapID = -1
	cleared.MapMD5 = ""
	cleared.MapName = ""
	s.dispatch(host, packet.ClientMatchChangeSettings, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(cleared, true)
	}))
	s.Equal(int32(-1), m.MapID)
	s.drainFrames(guest)

	picked := m.ToMatchData()
	picked.MapID = 77
	picked.MapMD5 = "0f0e0d0c0b0a09080706050403020100"
	picked.MapName = "artist - other song [hard]"
	s.dispatch(host, packet.ClientMatchChangeSettings, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(picked, true)
	}))

	s.Equal(int32(77), m.MapID)
	var announced bool
	for _, f := range s.drainFrames(guest) {
		if uint16(f.ID) != uint16(packet.ServerSendMessage) {
			continue
		}
		msg, err := packet.NewReader(f.Payload).ReadMessage()
		s.Require().NoError(err)
		if msg.Sender == BotName {
			s.Contains(msg.Text, "Selected: artist - other song [hard]")
			announced = true
		}
	}
	s.True(announced, "map pick should be announced in the room channel")
}

func (s *ServerTestSuite) TestClearingMapUnreadiesPlayers() {
	host, guest, m := s.twoPlayerRoom()
	s.dispatch(guest, packet.ClientMatchReady, nil)
	s.Require().Equal(model.SlotReady, m.Slots[1].Status)

	cleared := m.ToMatchData()
	cleared.MapID = -1
	s.dispatch(host, packet.ClientMatchChangeSettings, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(cleared, true)
	}))

	s.Equal(model.SlotNotReady, m.Slots[1].Status)
}

func (s *ServerTestSuite) TestFullRoundThroughHandlers() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(host, packet.ClientMatchReady, nil)
	s.dispatch(guest, packet.ClientMatchReady, nil)
	s.dispatch(host, packet.ClientMatchStart, nil)

	s.True(m.InProgress)
	s.Equal(model.SlotPlaying, m.Slots[0].Status)
	s.Equal(model.SlotPlaying, m.Slots[1].Status)
	_, ok := findFrame(s.drainFrames(guest), packet.ServerMatchStart)
	s.True(ok)

	s.dispatch(host, packet.ClientMatchLoadComplete, nil)
	_, ok = findFrame(s.drainFrames(guest), packet.ServerMatchAllPlayersLoaded)
	s.False(ok, "load signal must wait for every playing slot")
	s.dispatch(guest, packet.ClientMatchLoadComplete, nil)
	_, ok = findFrame(s.drainFrames(guest), packet.ServerMatchAllPlayersLoaded)
	s.True(ok)

	s.dispatch(host, packet.ClientMatchComplete, nil)
	s.True(m.InProgress, "round continues while a player is still playing")
	s.dispatch(guest, packet.ClientMatchComplete, nil)

	s.False(m.InProgress)
	s.Equal(model.SlotNotReady, m.Slots[0].Status)
	s.Equal(model.SlotNotReady, m.Slots[1].Status)
	_, ok = findFrame(s.drainFrames(host), packet.ServerMatchComplete)
	s.True(ok)
	_, ok = findFrame(s.drainFrames(guest), packet.ServerMatchComplete)
	s.True(ok)
}

func (s *ServerTestSuite) TestStartSkipsPlayersWithoutMap() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(guest, packet.ClientMatchNoBeatmap, nil)
	s.dispatch(host, packet.ClientMatchStart, nil)

	s.Equal(model.SlotPlaying, m.Slots[0].Status)
	s.Equal(model.SlotNoMap, m.Slots[1].Status)
	_, ok := findFrame(s.drainFrames(guest), packet.ServerMatchStart)
	s.False(ok, "players without the map must not receive the start signal")
}

func (s *ServerTestSuite) TestScoreRelayPatchesSenderSlot() {
	host, guest, m := s.twoPlayerRoom()
	s.dispatch(host, packet.ClientMatchReady, nil)
	s.dispatch(guest, packet.ClientMatchReady, nil)
	s.dispatch(host, packet.ClientMatchStart, nil)
	s.drainFrames(host)

	// Time (4 bytes) then the client's own slot id, which the server
	// must overwrite; the rest of the score frame is opaque.
	raw := []byte{0x10, 0x00, 0x00, 0x00, 0xff, 0x01, 0x02, 0x03}
	s.dispatch(guest, packet.ClientMatchScoreUpdate, raw)

	f, ok := findFrame(s.drainFrames(host), packet.ServerMatchScoreUpdate)
	s.Require().True(ok)
	s.Equal(byte(m.SlotIndexOf(guest.ID)), f.Payload[4])
	s.Equal(raw[:4], f.Payload[:4])
}

func (s *ServerTestSuite) TestFreemodsSplitsModControl() {
	host, guest, m := s.twoPlayerRoom()

	settings := m.ToMatchData()
	settings.Freemods = true
	s.dispatch(host, packet.ClientMatchChangeSettings, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(settings, true)
	}))
	s.Require().True(m.Freemods)

	// Host choices split: rate mods stay central, the rest go to the
	// host's own slot.
	s.dispatch(host, packet.ClientMatchChangeMods, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(model.ModDoubleTime | model.ModHidden))
	}))
	s.Equal(model.ModDoubleTime, m.Mods)
	s.Equal(model.ModHidden, m.Slots[0].Mods)

	// A guest can only dress their own slot.
	s.dispatch(guest, packet.ClientMatchChangeMods, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(model.ModHardRock | model.ModNightcore))
	}))
	s.Equal(model.ModDoubleTime, m.Mods, "guests cannot touch central mods")
	s.Equal(model.ModHardRock, m.Slots[1].Mods)
}

func (s *ServerTestSuite) TestNonFreemodsModsAreHostOnly() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(guest, packet.ClientMatchChangeMods, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(model.ModHidden))
	}))
	s.Equal(model.ModNoMod, m.Mods)

	s.dispatch(host, packet.ClientMatchChangeMods, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(model.ModHidden))
	}))
	s.Equal(model.ModHidden, m.Mods)
}

func (s *ServerTestSuite) TestSkipWaitsForAllPlayers() {
	host, guest, m := s.twoPlayerRoom()
	s.dispatch(host, packet.ClientMatchReady, nil)
	s.dispatch(guest, packet.ClientMatchReady, nil)
	s.dispatch(host, packet.ClientMatchStart, nil)
	s.drainFrames(host)
	s.drainFrames(guest)

	s.dispatch(host, packet.ClientMatchSkipRequest, nil)
	frames := s.drainFrames(guest)
	_, ok := findFrame(frames, packet.ServerMatchPlayerSkipped)
	s.True(ok)
	_, ok = findFrame(frames, packet.ServerMatchSkip)
	s.False(ok, "skip must wait for the last player")

	s.dispatch(guest, packet.ClientMatchSkipRequest, nil)
	_, ok = findFrame(s.drainFrames(host), packet.ServerMatchSkip)
	s.True(ok)
	s.True(m.InProgress, "skipping the intro does not end the round")
}

func (s *ServerTestSuite) TestFailureIsRelayedBySlot() {
	host, guest, m := s.twoPlayerRoom()
	s.dispatch(host, packet.ClientMatchReady, nil)
	s.dispatch(guest, packet.ClientMatchReady, nil)
	s.dispatch(host, packet.ClientMatchStart, nil)
	s.drainFrames(host)

	s.dispatch(guest, packet.ClientMatchFailed, nil)

	f, ok := findFrame(s.drainFrames(host), packet.ServerMatchPlayerFailed)
	s.Require().True(ok)
	slot, err := packet.NewReader(f.Payload).ReadI32()
	s.Require().NoError(err)
	s.Equal(int32(m.SlotIndexOf(guest.ID)), slot)
}

func (s *ServerTestSuite) TestHostTransferThroughHandler() {
	host, guest, m := s.twoPlayerRoom()

	s.dispatch(host, packet.ClientMatchTransferHost, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(m.SlotIndexOf(guest.ID)))
	}))

	s.Equal(guest.ID, m.HostID)
	_, ok := findFrame(s.drainFrames(guest), packet.ServerMatchTransferHost)
	s.True(ok)
}

func (s *ServerTestSuite) TestChangeTeamToggles() {
	_, guest, m := s.twoPlayerRoom()
	idx := m.SlotIndexOf(guest.ID)

	m.SetTeamType(model.TeamTypeTeamVs)
	s.Require().Equal(model.TeamRed, m.Slots[idx].Team)

	s.dispatch(guest, packet.ClientMatchChangeTeam, nil)
	s.Equal(model.TeamBlue, m.Slots[idx].Team)
	s.dispatch(guest, packet.ClientMatchChangeTeam, nil)
	s.Equal(model.TeamRed, m.Slots[idx].Team)
}

func (s *ServerTestSuite) TestMatchInviteReachesTarget() {
	host, _, m := s.twoPlayerRoom()

	s.seedAccount("mara", "pw")
	mara, _ := s.login("mara", "pw")
	s.drainFrames(mara)
	s.drainFrames(host)

	s.dispatch(host, packet.ClientMatchInvite, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(mara.ID))
	}))

	f, ok := findFrame(s.drainFrames(mara), packet.ServerMatchInvite)
	s.Require().True(ok)
	msg, err := packet.NewReader(f.Payload).ReadMessage()
	s.Require().NoError(err)
	s.Equal(host.Name, msg.Sender)
	s.Contains(msg.Text, m.Name)
	s.Contains(msg.Text, "osump://")
}

func (s *ServerTestSuite) TestChangePasswordPropagates() {
	host, guest, m := s.twoPlayerRoom()

	settings := m.ToMatchData()
	settings.Password = "rotated"
	s.dispatch(host, packet.ClientMatchChangePassword, clientPayload(func(w *packet.Writer) {
		w.WriteMatch(settings, true)
	}))

	s.Equal("rotated", m.Password)
	_, ok := findFrame(s.drainFrames(guest), packet.ServerMatchChangePassword)
	s.True(ok)
}

func (s *ServerTestSuite) TestLobbySeesRedactedPassword() {
	_, _, m := s.twoPlayerRoom()

	s.seedAccount("browser", "pw")
	browser, _ := s.login("browser", "pw")
	s.drainFrames(browser)

	s.dispatch(browser, packet.ClientJoinLobby, nil)

	f, ok := findFrame(s.drainFrames(browser), packet.ServerNewMatch)
	s.Require().True(ok)
	data, err := packet.NewReader(f.Payload).ReadMatch()
	s.Require().NoError(err)
	s.Equal(m.ID, model.MatchID(data.ID))
	s.Equal(" ", data.Password, "lobby listings must not leak the password")
}

func (s *ServerTestSuite) TestPartMatchDisposalReachesLobby() {
	host, guest, m := s.twoPlayerRoom()

	s.seedAccount("browser", "pw")
	browser, _ := s.login("browser", "pw")
	s.dispatch(browser, packet.ClientJoinLobby, nil)
	s.drainFrames(browser)

	s.dispatch(guest, packet.ClientPartMatch, nil)
	s.dispatch(host, packet.ClientPartMatch, nil)

	_, ok := s.srv.World().Matches.ByID(m.ID)
	s.False(ok, "empty match must be disposed")
	_, ok = findFrame(s.drainFrames(browser), packet.ServerDisposeMatch)
	s.True(ok)
}

func (s *ServerTestSuite) TestTournamentClientObservesMatch() {
	host, guest, m := s.twoPlayerRoom()

	s.seedAccount("caster", "pw")
	caster, _ := s.login("caster", "pw")
	s.drainFrames(caster)

	s.dispatch(caster, packet.ClientTournamentMatchInfoRequest, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(m.ID))
	}))
	f, ok := findFrame(s.drainFrames(caster), packet.ServerUpdateMatch)
	s.Require().True(ok)
	data, err := packet.NewReader(f.Payload).ReadMatch()
	s.Require().NoError(err)
	s.Equal(" ", data.Password)

	s.dispatch(caster, packet.ClientTournamentJoinMatchChannel, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(m.ID))
	}))
	_, watching := m.TourneyClients[caster.ID]
	s.True(watching)

	// Tourney clients receive live settings updates.
	s.dispatch(host, packet.ClientMatchReady, nil)
	_, ok = findFrame(s.drainFrames(caster), packet.ServerUpdateMatch)
	s.True(ok)

	s.dispatch(caster, packet.ClientTournamentLeaveMatchChannel, clientPayload(func(w *packet.Writer) {
		w.WriteI32(int32(m.ID))
	}))
	_, watching = m.TourneyClients[caster.ID]
	s.False(watching)

	// Unused but keeps the room alive for the duration of the test.
	_ = guest
}

package state

import (
	"strconv"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
)

// Slot is one of a match's 16 seats. UserID zero means empty; the
// status bitset and occupancy move together through resetToOpen and
// assign, never independently.
type Slot struct {
	UserID  model.UserID
	Status  model.SlotStatus
	Team    model.Team
	Mods    model.Mods
	Loaded  bool
	Skipped bool
}

func (s *Slot) Empty() bool {
	return s.UserID == 0
}

func (s *Slot) assign(id model.UserID) {
	s.UserID = id
	s.Status = model.SlotNotReady
}

func (s *Slot) resetToOpen() {
	*s = Slot{Status: model.SlotOpen}
}

// copyFrom moves the occupant between slots, carrying per-seat state.
func (s *Slot) copyFrom(other *Slot) {
	*s = *other
}

// Match is one 16-seat multiplayer room. Guarded by the owning World's
// lock; the associated instance channel lives in the channel table
// under ChatName.
type Match struct {
	ID       model.MatchID
	Name     string
	Password string

	MapName string
	MapID   int32
	MapMD5  string

	HostID       model.UserID
	Mode         model.GameMode
	Mods         model.Mods
	Freemods     bool
	MatchType    model.MatchType
	TeamType     model.TeamType
	WinCondition model.WinCondition
	InProgress   bool
	Seed         int32

	Slots [model.MaxMatchSlots]Slot

	// TourneyClients are tournament-spectator session ids that receive
	// state updates without occupying a slot.
	TourneyClients map[model.UserID]struct{}
}

func NewMatch(id model.MatchID) *Match {
	m := &Match{
		ID:             id,
		TourneyClients: make(map[model.UserID]struct{}),
	}
	for i := range m.Slots {
		m.Slots[i].Status = model.SlotOpen
	}
	return m
}

// ChatName is the name of the match's instance channel.
func (m *Match) ChatName() string {
	return "#multi_" + strconv.Itoa(int(m.ID))
}

// FirstOpenSlot returns the index of the first joinable seat, or -1.
func (m *Match) FirstOpenSlot() int {
	for i := range m.Slots {
		if m.Slots[i].Status == model.SlotOpen {
			return i
		}
	}
	return -1
}

// SlotIndexOf returns the seat the player occupies, or -1.
func (m *Match) SlotIndexOf(id model.UserID) int {
	for i := range m.Slots {
		if m.Slots[i].UserID == id {
			return i
		}
	}
	return -1
}

// MoveSlot relocates the occupant of one seat into another, leaving the
// vacated seat open. The destination must be open; callers check.
func (m *Match) MoveSlot(from, to int) {
	m.Slots[to].copyFrom(&m.Slots[from])
	m.Slots[from].resetToOpen()
}

// ClearSlot forces a seat back to open, discarding any occupant record.
func (m *Match) ClearSlot(i int) {
	m.Slots[i].resetToOpen()
}

// HostSlotIndex locates the host's seat explicitly, or -1 when the
// host is not seated (tournament hosts may manage without playing).
func (m *Match) HostSlotIndex() int {
	return m.SlotIndexOf(m.HostID)
}

func (m *Match) OccupiedCount() int {
	n := 0
	for i := range m.Slots {
		if !m.Slots[i].Empty() {
			n++
		}
	}
	return n
}

// PlayerIDs returns the seated players in slot order.
func (m *Match) PlayerIDs() []model.UserID {
	out := make([]model.UserID, 0, model.MaxMatchSlots)
	for i := range m.Slots {
		if !m.Slots[i].Empty() {
			out = append(out, m.Slots[i].UserID)
		}
	}
	return out
}

func (m *Match) AnyPlaying() bool {
	for i := range m.Slots {
		if m.Slots[i].Status == model.SlotPlaying {
			return true
		}
	}
	return false
}

// UnreadyPlayers resets every slot in the expected status to not_ready.
func (m *Match) UnreadyPlayers(expected model.SlotStatus) {
	for i := range m.Slots {
		if m.Slots[i].Status == expected {
			m.Slots[i].Status = model.SlotNotReady
		}
	}
}

// ResetLoaded clears the loaded and skipped flags of every seat.
func (m *Match) ResetLoaded() {
	for i := range m.Slots {
		m.Slots[i].Loaded = false
		m.Slots[i].Skipped = false
	}
}

// Start moves every seated player with the map into the playing state
// and flags the round in progress. Players without the map stay put;
// their ids are returned so the start signal can skip them.
func (m *Match) Start() []model.UserID {
	var noMap []model.UserID
	for i := range m.Slots {
		s := &m.Slots[i]
		if s.Empty() {
			continue
		}
		if s.Status != model.SlotNoMap {
			s.Status = model.SlotPlaying
		} else {
			noMap = append(noMap, s.UserID)
		}
	}
	m.InProgress = true
	return noMap
}

// SetFreemods toggles per-player mod selection. Turning it on hands the
// current central mods to every seated player, keeping only the
// speed-changing component central; turning it off collapses the host's
// seat mods back into the central set.
func (m *Match) SetFreemods(on bool) {
	if on == m.Freemods {
		return
	}
	m.Freemods = on
	if on {
		for i := range m.Slots {
			if !m.Slots[i].Empty() {
				m.Slots[i].Mods = m.Mods &^ model.SpeedChangingMods
			}
		}
		m.Mods &= model.SpeedChangingMods
		return
	}
	m.Mods &= model.SpeedChangingMods
	if host := m.HostSlotIndex(); host != -1 {
		m.Mods |= m.Slots[host].Mods
	}
	for i := range m.Slots {
		if !m.Slots[i].Empty() {
			m.Slots[i].Mods = 0
		}
	}
}

// SetTeamType re-derives every seated player's team from the new
// arrangement's default.
func (m *Match) SetTeamType(t model.TeamType) {
	if t == m.TeamType {
		return
	}
	m.TeamType = t
	def := t.DefaultTeam()
	for i := range m.Slots {
		if !m.Slots[i].Empty() {
			m.Slots[i].Team = def
		}
	}
}

// ToMatchData converts the room to its wire composite.
func (m *Match) ToMatchData() packet.MatchData {
	d := packet.MatchData{
		ID:           int32(m.ID),
		InProgress:   m.InProgress,
		MatchType:    m.MatchType,
		Mods:         m.Mods,
		Name:         m.Name,
		Password:     m.Password,
		MapName:      m.MapName,
		MapID:        m.MapID,
		MapMD5:       m.MapMD5,
		HostID:       m.HostID,
		Mode:         m.Mode,
		WinCondition: m.WinCondition,
		TeamType:     m.TeamType,
		Freemods:     m.Freemods,
		Seed:         m.Seed,
	}
	for i := range m.Slots {
		d.SlotStatuses[i] = m.Slots[i].Status
		d.SlotTeams[i] = m.Slots[i].Team
		d.SlotUserIDs[i] = m.Slots[i].UserID
		d.SlotMods[i] = m.Slots[i].Mods
	}
	return d
}

// MatchList is the fixed-size global match table. Guarded by the owning
// World's lock.
type MatchList struct {
	slots [model.MaxMatches]*Match
}

func NewMatchList() *MatchList {
	return &MatchList{}
}

// Create claims the first free table slot and returns a fresh match
// bound to it.
func (l *MatchList) Create() (*Match, error) {
	for i := range l.slots {
		if l.slots[i] == nil {
			m := NewMatch(model.MatchID(i))
			l.slots[i] = m
			return m, nil
		}
	}
	return nil, model.ErrMatchTableFull
}

// ByID bounds-checks the id before indexing: valid ids are
// 0 <= id < MaxMatches.
func (l *MatchList) ByID(id model.MatchID) (*Match, bool) {
	if id < 0 || int(id) >= model.MaxMatches {
		return nil, false
	}
	m := l.slots[id]
	return m, m != nil
}

func (l *MatchList) Remove(id model.MatchID) {
	if id >= 0 && int(id) < model.MaxMatches {
		l.slots[id] = nil
	}
}

func (l *MatchList) Len() int {
	n := 0
	for i := range l.slots {
		if l.slots[i] != nil {
			n++
		}
	}
	return n
}

// All returns the live matches in table order.
func (l *MatchList) All() []*Match {
	var out []*Match
	for i := range l.slots {
		if l.slots[i] != nil {
			out = append(out, l.slots[i])
		}
	}
	return out
}

package state

import (
	"sync"
	"time"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
)

// Player is the server-side state of one authenticated session. All
// fields except the outbound buffer are guarded by the owning World's
// lock; the buffer carries its own mutex so the connection's writer
// goroutine can drain it without holding the world up.
type Player struct {
	ID         model.UserID
	Name       string
	SafeName   string
	Token      string
	Privileges model.Privileges

	Status         model.Status
	Friends        map[model.UserID]struct{}
	Channels       map[string]struct{}
	MatchID        model.MatchID
	SpectatingID   model.UserID
	Spectators     map[model.UserID]struct{}
	PresenceFilter model.PresenceFilter
	AwayMessage    string
	BlockNonFriendDMs bool
	InLobby        bool

	SilenceEnd time.Time
	UTCOffset  int8
	Geoloc     model.Geolocation
	Stats      map[model.GameMode]model.ModeStats

	LoginTime    time.Time
	LastRecvTime time.Time

	out outboundBuffer
}

func NewPlayer(u model.User, token string, now time.Time) *Player {
	return &Player{
		ID:           u.ID,
		Name:         u.Name,
		SafeName:     u.SafeName,
		Token:        token,
		Privileges:   u.Privileges,
		Friends:      make(map[model.UserID]struct{}),
		Channels:     make(map[string]struct{}),
		MatchID:      model.NoMatch,
		Spectators:   make(map[model.UserID]struct{}),
		SilenceEnd:   time.Unix(u.SilenceEnd, 0),
		Stats:        make(map[model.GameMode]model.ModeStats),
		LoginTime:    now,
		LastRecvTime: now,
	}
}

// Enqueue appends an encoded frame to the outbound buffer. It never
// fails; bytes for a dead session are discarded when the session is
// reaped.
func (p *Player) Enqueue(frame []byte) {
	p.out.append(frame)
}

// Drain moves all buffered bytes out, leaving the buffer empty.
func (p *Player) Drain() []byte {
	return p.out.drain()
}

// OutboundReady signals when the buffer transitions from empty to
// non-empty. Single consumer: the session's connection writer.
func (p *Player) OutboundReady() <-chan struct{} {
	return p.out.readyChan()
}

// Silenced reports whether the player's silence is still in effect.
func (p *Player) Silenced(now time.Time) bool {
	return p.SilenceEnd.After(now)
}

// RemainingSilence is the silence time left, in whole seconds.
func (p *Player) RemainingSilence(now time.Time) int32 {
	if !p.Silenced(now) {
		return 0
	}
	return int32(p.SilenceEnd.Sub(now) / time.Second)
}

func (p *Player) Restricted() bool {
	return p.Privileges.IsRestricted()
}

// StatsFor returns the player's figures for a mode, zero if unhydrated.
func (p *Player) StatsFor(mode model.GameMode) model.ModeStats {
	return p.Stats[mode]
}

// PresencePacket builds this player's presence frame.
func (p *Player) PresencePacket() []byte {
	return packet.WriteUserPresence(packet.UserPresence{
		UserID:           p.ID,
		Name:             p.Name,
		UTCOffset:        p.UTCOffset,
		CountryCode:      model.CountryNumeric(p.Geoloc.CountryCode),
		ClientPrivileges: model.ClientPrivilegesFor(p.Privileges),
		Mode:             p.Status.Mode,
		Longitude:        p.Geoloc.Longitude,
		Latitude:         p.Geoloc.Latitude,
		GlobalRank:       p.StatsFor(p.Status.Mode).GlobalRank,
	})
}

// StatsPacket builds this player's stats frame for their current mode.
func (p *Player) StatsPacket() []byte {
	st := p.StatsFor(p.Status.Mode)
	return packet.WriteUserStats(packet.UserStats{
		UserID:      p.ID,
		Status:      p.Status,
		RankedScore: st.RankedScore,
		Accuracy:    st.Accuracy,
		PlayCount:   st.Plays,
		TotalScore:  st.TotalScore,
		GlobalRank:  st.GlobalRank,
		PP:          st.PP,
	})
}

type outboundBuffer struct {
	mu    sync.Mutex
	buf   []byte
	ready chan struct{}
}

func (b *outboundBuffer) append(frame []byte) {
	b.mu.Lock()
	wasEmpty := len(b.buf) == 0
	b.buf = append(b.buf, frame...)
	if b.ready == nil {
		b.ready = make(chan struct{}, 1)
	}
	ch := b.ready
	b.mu.Unlock()
	if wasEmpty {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (b *outboundBuffer) readyChan() chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready == nil {
		b.ready = make(chan struct{}, 1)
	}
	return b.ready
}

func (b *outboundBuffer) drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	b.buf = nil
	return out
}


package state

import (
	"strings"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
)

// Channel is a named chat room. Instance channels (per-match and
// per-spectator rooms) are destroyed the moment their last member
// leaves; regular channels persist empty.
type Channel struct {
	Name      string
	Topic     string
	ReadPriv  model.Privileges
	WritePriv model.Privileges
	AutoJoin  bool
	Instance  bool

	members []model.UserID
}

// ClientName maps synthetic per-room names onto the fixed names the
// client expects for its special tabs.
func (c *Channel) ClientName() string {
	switch {
	case strings.HasPrefix(c.Name, "#multi_"):
		return "#multiplayer"
	case strings.HasPrefix(c.Name, "#spec_"):
		return "#spectator"
	default:
		return c.Name
	}
}

func (c *Channel) CanRead(p model.Privileges) bool {
	return c.ReadPriv == 0 || p.HasAny(c.ReadPriv)
}

func (c *Channel) CanWrite(p model.Privileges) bool {
	return c.WritePriv == 0 || p.HasAny(c.WritePriv)
}

func (c *Channel) HasMember(id model.UserID) bool {
	for _, m := range c.members {
		if m == id {
			return true
		}
	}
	return false
}

func (c *Channel) MemberCount() int {
	return len(c.members)
}

// Members returns the member ids in join order.
func (c *Channel) Members() []model.UserID {
	out := make([]model.UserID, len(c.members))
	copy(out, c.members)
	return out
}

// addMember appends the id; reports false if already present.
func (c *Channel) addMember(id model.UserID) bool {
	if c.HasMember(id) {
		return false
	}
	c.members = append(c.members, id)
	return true
}

// removeMember deletes the id preserving order; reports false if absent.
func (c *Channel) removeMember(id model.UserID) bool {
	for i, m := range c.members {
		if m == id {
			c.members = append(c.members[:i], c.members[i+1:]...)
			return true
		}
	}
	return false
}

// InfoPacket is the channel listing entry sent to clients.
func (c *Channel) InfoPacket() []byte {
	return packet.ChannelInfo(c.ClientName(), c.Topic, len(c.members))
}

// ChannelList is the global channel table, iterable in insertion order.
// Guarded by the owning World's lock.
type ChannelList struct {
	byName map[string]*Channel
	order  []string
}

func NewChannelList() *ChannelList {
	return &ChannelList{byName: make(map[string]*Channel)}
}

func (l *ChannelList) Add(c *Channel) error {
	if _, ok := l.byName[c.Name]; ok {
		return model.ErrChannelNameConflict
	}
	l.byName[c.Name] = c
	l.order = append(l.order, c.Name)
	return nil
}

func (l *ChannelList) Remove(name string) {
	if _, ok := l.byName[name]; !ok {
		return
	}
	delete(l.byName, name)
	for i, n := range l.order {
		if n == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *ChannelList) ByName(name string) (*Channel, bool) {
	c, ok := l.byName[name]
	return c, ok
}

func (l *ChannelList) Len() int {
	return len(l.byName)
}

// All returns channels in insertion order.
func (l *ChannelList) All() []*Channel {
	out := make([]*Channel, 0, len(l.order))
	for _, n := range l.order {
		out = append(out, l.byName[n])
	}
	return out
}

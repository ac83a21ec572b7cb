package state

import "github.com/NESSBZID/bncho/internal/model"

// Registry indexes every authenticated session by id, canonical name,
// and token. It carries no lock of its own: all access happens under
// the owning World's lock.
type Registry struct {
	byID       map[model.UserID]*Player
	bySafeName map[string]*Player
	byToken    map[string]*Player
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[model.UserID]*Player),
		bySafeName: make(map[string]*Player),
		byToken:    make(map[string]*Player),
	}
}

func (r *Registry) Add(p *Player) {
	r.byID[p.ID] = p
	r.bySafeName[p.SafeName] = p
	r.byToken[p.Token] = p
}

func (r *Registry) Remove(p *Player) {
	delete(r.byID, p.ID)
	delete(r.bySafeName, p.SafeName)
	delete(r.byToken, p.Token)
}

func (r *Registry) ByID(id model.UserID) (*Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// ByName looks a player up by display name, via the canonical form.
func (r *Registry) ByName(name string) (*Player, bool) {
	p, ok := r.bySafeName[model.MakeSafeName(name)]
	return p, ok
}

func (r *Registry) ByToken(token string) (*Player, bool) {
	p, ok := r.byToken[token]
	return p, ok
}

func (r *Registry) Len() int {
	return len(r.byID)
}

// All returns the live sessions in no particular order.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out
}

// Broadcast enqueues a frame to every session.
func (r *Registry) Broadcast(frame []byte) {
	for _, p := range r.byID {
		p.Enqueue(frame)
	}
}

// Unrestricted returns the sessions visible to normal clients.
func (r *Registry) Unrestricted() []*Player {
	out := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		if !p.Restricted() {
			out = append(out, p)
		}
	}
	return out
}

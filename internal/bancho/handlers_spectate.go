package bancho

import (
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

func handleStartSpectating(s *Server, p *state.Player, r *packet.Reader) error {
	id, err := r.ReadI32()
	if err != nil {
		return err
	}
	host, ok := s.world.Players.ByID(model.UserID(id))
	if !ok {
		s.log.Debug("spectate target offline", "player", p.Name, "target", id)
		return nil
	}
	if host.ID == p.ID {
		return nil
	}
	// Switching hosts detaches from the previous one first.
	if p.SpectatingID != 0 && p.SpectatingID != host.ID {
		s.world.RemoveSpectator(p)
	}
	if err := s.world.AddSpectator(host, p); err != nil {
		s.log.Info("spectate refused", "player", p.Name, "host", host.Name, "error", err)
	}
	return nil
}

func handleStopSpectating(s *Server, p *state.Player, _ *packet.Reader) error {
	s.world.RemoveSpectator(p)
	return nil
}

// handleSpectateFrames relays a replay frame bundle to every watcher.
// Hot path: the payload is wrapped once and fanned out as-is.
func handleSpectateFrames(s *Server, p *state.Player, r *packet.Reader) error {
	out := packet.SpectateFrames(r.ReadRaw())
	for id := range p.Spectators {
		if watcher, ok := s.world.Players.ByID(id); ok {
			watcher.Enqueue(out)
		}
	}
	return nil
}

func handleCantSpectate(s *Server, p *state.Player, _ *packet.Reader) error {
	if p.SpectatingID == 0 {
		return nil
	}
	host, ok := s.world.Players.ByID(p.SpectatingID)
	if !ok {
		return nil
	}
	out := packet.SpectatorCantSpectate(p.ID)
	host.Enqueue(out)
	for id := range host.Spectators {
		if watcher, ok := s.world.Players.ByID(id); ok {
			watcher.Enqueue(out)
		}
	}
	return nil
}

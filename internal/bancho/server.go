package bancho

import (
	"log/slog"
	"time"

	"github.com/NESSBZID/bncho/internal/dependencies/clock"
	"github.com/NESSBZID/bncho/internal/dependencies/geoloc"
	"github.com/NESSBZID/bncho/internal/dependencies/random"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
	"github.com/NESSBZID/bncho/internal/storage"
)

// BotName is the sender shown on server-generated chat messages, with
// BotID as its reserved account id.
const (
	BotName = "BanchoBot"
	BotID   = 1
)

// Config holds protocol-level server settings
type Config struct {
	// ServerName is shown in the login notification.
	ServerName string

	// MaxClientAge rejects client builds whose embedded date is older
	// than this, forcing an update.
	MaxClientAge time.Duration

	// SessionTimeout is how long a session may stay silent before the
	// liveness sweep evicts it.
	SessionTimeout time.Duration

	MenuIconURL    string
	MenuOnclickURL string
}

// DefaultConfig returns sensible defaults for the protocol server
func DefaultConfig() Config {
	return Config{
		ServerName:     "bncho",
		MaxClientAge:   90 * 24 * time.Hour,
		SessionTimeout: 5 * time.Minute,
	}
}

// Server owns the dispatch table and every collaborator the packet
// handlers need. One instance serves all connections.
type Server struct {
	cfg      Config
	log      *slog.Logger
	world    *state.World
	store    storage.Storage
	commands CommandProcessor
	geo      geoloc.Resolver
	clock    clock.Clock
	random   random.Random
	router   *Router
	pwCache  *bcryptCache
}

func NewServer(
	cfg Config,
	logger *slog.Logger,
	world *state.World,
	store storage.Storage,
	commands CommandProcessor,
	geo geoloc.Resolver,
	clk clock.Clock,
	rnd random.Random,
) *Server {
	return &Server{
		cfg:      cfg,
		log:      logger,
		world:    world,
		store:    store,
		commands: commands,
		geo:      geo,
		clock:    clk,
		random:   rnd,
		router:   NewRouter(),
		pwCache:  newBcryptCache(),
	}
}

func (s *Server) World() *state.World {
	return s.world
}

func (s *Server) Router() *Router {
	return s.router
}

// Dispatch runs one inbound frame to completion under the world lock.
// Unknown ids are skipped without desynchronizing the stream; a handler
// error is contained to the offending frame.
func (s *Server) Dispatch(p *state.Player, f packet.Frame) {
	s.world.Lock()
	defer s.world.Unlock()

	p.LastRecvTime = s.clock.Now()

	h, ok := s.router.Lookup(f.ID)
	if !ok {
		s.log.Debug("unhandled packet", "id", f.ID.String(), "player", p.Name, "length", len(f.Payload))
		return
	}
	if err := h(s, p, packet.NewReader(f.Payload)); err != nil {
		s.log.Warn("handler failed",
			"id", f.ID.String(),
			"player", p.Name,
			"error", err,
		)
	}
}

// LookupSession resolves a session token under the world lock.
func (s *Server) LookupSession(token string) (*state.Player, bool) {
	s.world.Lock()
	defer s.world.Unlock()
	return s.world.Players.ByToken(token)
}

// TearDown removes a session after a transport failure or disconnect.
func (s *Server) TearDown(p *state.Player) {
	s.world.Lock()
	defer s.world.Unlock()
	if _, ok := s.world.Players.ByToken(p.Token); !ok {
		return
	}
	s.world.RemoveSession(p)
}

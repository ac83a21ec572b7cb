package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/packet"
)

// Config holds HTTP status listener settings.
type Config struct {
	Addr string
}

func DefaultConfig() Config {
	return Config{Addr: ":8080"}
}

// Server exposes read-only status pages about the running world.
type Server struct {
	cfg    Config
	log    *slog.Logger
	bancho *bancho.Server
	router *mux.Router
}

func NewServer(cfg Config, logger *slog.Logger, b *bancho.Server) *Server {
	s := &Server{cfg: cfg, log: logger, bancho: b}
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/online", s.handleOnline).Methods(http.MethodGet)
	r.HandleFunc("/matches", s.handleMatches).Methods(http.MethodGet)
	s.router = r
	return s
}

// Handler returns the routing tree, usable directly in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves status pages until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info("status pages up", "addr", s.cfg.Addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	world := s.bancho.World()
	world.Lock()
	online := world.Players.Len()
	matches := world.Matches.Len()
	world.Unlock()

	ids := s.bancho.Router().RegisteredIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, id.String())
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "bncho (protocol v%d)\n", packet.ProtocolVersion)
	fmt.Fprintf(w, "online: %d\nmatches: %d\n\nhandled packets:\n%s\n",
		online, matches, strings.Join(names, "\n"))
}

func (s *Server) handleOnline(w http.ResponseWriter, _ *http.Request) {
	type row struct {
		id   int32
		name string
		mode string
	}
	world := s.bancho.World()
	world.Lock()
	rows := make([]row, 0, world.Players.Len())
	for _, p := range world.Players.All() {
		if p.Restricted() {
			continue
		}
		rows = append(rows, row{id: int32(p.ID), name: p.Name, mode: p.Status.Mode.String()})
	}
	world.Unlock()

	sort.Slice(rows, func(i, j int) bool { return rows[i].id < rows[j].id })
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "online: %d\n", len(rows))
	for _, r := range rows {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.id, r.name, r.mode)
	}
}

func (s *Server) handleMatches(w http.ResponseWriter, _ *http.Request) {
	type row struct {
		id         int32
		name       string
		players    int
		inProgress bool
		locked     bool
	}
	world := s.bancho.World()
	world.Lock()
	var rows []row
	for _, m := range world.Matches.All() {
		rows = append(rows, row{
			id:         int32(m.ID),
			name:       m.Name,
			players:    m.OccupiedCount(),
			inProgress: m.InProgress,
			locked:     m.Password != "",
		})
	}
	world.Unlock()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "matches: %d\n", len(rows))
	for _, r := range rows {
		state := "idle"
		if r.inProgress {
			state = "playing"
		}
		lock := ""
		if r.locked {
			lock = "\tlocked"
		}
		fmt.Fprintf(w, "%d\t%s\t%d/16\t%s%s\n", r.id, r.name, r.players, state, lock)
	}
}

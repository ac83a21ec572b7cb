package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/dependencies/mocks"
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
	"github.com/NESSBZID/bncho/internal/storage/memory"
	"github.com/NESSBZID/bncho/internal/testutil"
)

type APITestSuite struct {
	suite.Suite

	world *state.World
	srv   *Server
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	logger := testutil.NopLogger()
	clk := mocks.NewMockClock(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	s.world = state.NewWorld(logger, clk)
	b := bancho.NewServer(
		bancho.DefaultConfig(),
		logger,
		s.world,
		memory.New(),
		bancho.NewBasicCommands(mocks.NewMockRandom()),
		mocks.NewMockGeoloc(),
		clk,
		mocks.NewMockRandom(),
	)
	s.srv = NewServer(DefaultConfig(), logger, b)
}

func (s *APITestSuite) get(path string) (int, string) {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	s.Require().NoError(err)
	return rec.Code, string(body)
}

func (s *APITestSuite) addPlayer(id model.UserID, name string) *state.Player {
	p := state.NewPlayer(model.User{
		ID: id, Name: name, SafeName: model.MakeSafeName(name),
		Privileges: model.PrivUnrestricted | model.PrivVerified,
	}, "token-"+name, time.Now())
	s.world.Lock()
	s.world.Players.Add(p)
	s.world.Unlock()
	return p
}

func (s *APITestSuite) TestIndexListsHandledPackets() {
	code, body := s.get("/")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "online: 0")
	s.Contains(body, packet.ClientSendPublicMessage.String())
	s.Contains(body, packet.ClientMatchScoreUpdate.String())
}

func (s *APITestSuite) TestOnlineHidesRestrictedPlayers() {
	s.addPlayer(7, "jess")
	shadow := state.NewPlayer(model.User{
		ID: 8, Name: "shadow", SafeName: "shadow", Privileges: model.PrivVerified,
	}, "token-shadow", time.Now())
	s.world.Lock()
	s.world.Players.Add(shadow)
	s.world.Unlock()

	code, body := s.get("/online")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "online: 1")
	s.Contains(body, "jess")
	s.NotContains(body, "shadow")
}

func (s *APITestSuite) TestMatchesSnapshot() {
	host := s.addPlayer(7, "jess")
	s.world.Lock()
	_, err := s.world.CreateMatch(host, packet.MatchData{Name: "our room", Password: "secret"})
	s.world.Unlock()
	s.Require().NoError(err)

	code, body := s.get("/matches")
	s.Equal(http.StatusOK, code)
	s.Contains(body, "matches: 1")
	s.Contains(body, "our room")
	s.Contains(body, "locked")
	s.NotContains(body, "secret")
}

func (s *APITestSuite) TestMethodNotAllowed() {
	req := httptest.NewRequest(http.MethodPost, "/online", nil)
	rec := httptest.NewRecorder()
	s.srv.Handler().ServeHTTP(rec, req)
	s.Equal(http.StatusMethodNotAllowed, rec.Code)
}

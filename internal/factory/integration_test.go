package factory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
)

// IntegrationTestSuite exercises the fully wired application end to
// end, from login through match play to the status pages.
type IntegrationTestSuite struct {
	suite.Suite

	app *TestApp
}

func TestIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) SetupTest() {
	s.app = NewTestApp()
}

func (s *IntegrationTestSuite) TearDownTest() {
	s.Require().NoError(s.app.Storage.Close())
}

func (s *IntegrationTestSuite) seedAccount(id model.UserID, name, password string) {
	sum := md5.Sum([]byte(password))
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(sum[:])), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.app.Storage.SaveUser(context.Background(), &model.User{
		ID:         id,
		Name:       name,
		SafeName:   model.MakeSafeName(name),
		PwBcrypt:   hash,
		Privileges: model.PrivUnrestricted | model.PrivVerified,
	}))
}

func (s *IntegrationTestSuite) login(name, password string) string {
	sum := md5.Sum([]byte(password))
	body := fmt.Sprintf("%s\n%s\nb20250820|0|0|a:b:c:d:e|0\n", name, hex.EncodeToString(sum[:]))
	token, _ := s.app.Bancho.Login(context.Background(), []byte(body), "127.0.0.1")
	s.Require().NotEqual(bancho.FailedLoginToken, token)
	return token
}

func (s *IntegrationTestSuite) TestDefaultWiringIsMemoryBacked() {
	app, err := New(Config{})
	s.Require().NoError(err)
	s.NotNil(app.Storage)
	s.NotNil(app.Bancho)
	s.NotNil(app.Transport)
	s.NotNil(app.API)
	s.Require().NoError(app.Storage.Close())
}

func (s *IntegrationTestSuite) TestRedisWiringRequiresConfig() {
	_, err := New(Config{StorageType: StorageTypeRedis})
	s.Error(err)
}

func (s *IntegrationTestSuite) TestUnknownStorageTypeRefused() {
	_, err := New(Config{StorageType: "tape"})
	s.Error(err)
}

func (s *IntegrationTestSuite) TestLoginMatchAndStatusPages() {
	s.seedAccount(10, "jess", "hunter2")
	token := s.login("jess", "hunter2")

	jess, ok := s.app.Bancho.LookupSession(token)
	s.Require().True(ok)

	// Create a room through the dispatcher, as the client would.
	w := packet.NewWriter(0)
	w.WriteMatch(packet.MatchData{Name: "integration room", Mode: model.GameModeOsu}, true)
	s.app.Bancho.Dispatch(jess, packet.Frame{
		ID:      packet.ClientCreateMatch,
		Payload: w.Finish()[packet.HeaderLength:],
	})
	s.Require().NotEqual(model.NoMatch, jess.MatchID)

	req := httptest.NewRequest(http.MethodGet, "/matches", nil)
	rec := httptest.NewRecorder()
	s.app.API.Handler().ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Result().Body)
	s.Require().NoError(err)
	s.Contains(string(body), "integration room")

	req = httptest.NewRequest(http.MethodGet, "/online", nil)
	rec = httptest.NewRecorder()
	s.app.API.Handler().ServeHTTP(rec, req)
	body, err = io.ReadAll(rec.Result().Body)
	s.Require().NoError(err)
	s.Contains(string(body), "jess")
}

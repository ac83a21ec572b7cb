package transport

import (
	"bufio"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/NESSBZID/bncho/internal/bancho"
	"github.com/NESSBZID/bncho/internal/dependencies/mocks"
	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
	"github.com/NESSBZID/bncho/internal/storage/memory"
	"github.com/NESSBZID/bncho/internal/testutil"
)

type TransportTestSuite struct {
	suite.Suite

	store    *memory.Storage
	server   *Server
	cancel   context.CancelFunc
	done     chan struct{}
	serveErr error
}

func TestTransportTestSuite(t *testing.T) {
	suite.Run(t, new(TransportTestSuite))
}

func (s *TransportTestSuite) SetupTest() {
	logger := testutil.NopLogger()
	clk := mocks.NewMockClock(time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC))
	s.store = memory.New()

	world := state.NewWorld(logger, clk)
	b := bancho.NewServer(
		bancho.DefaultConfig(),
		logger,
		world,
		s.store,
		bancho.NewBasicCommands(mocks.NewMockRandom()),
		mocks.NewMockGeoloc(),
		clk,
		mocks.NewMockRandom(),
	)

	cfg := DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	s.server = NewServer(cfg, logger, b)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		s.serveErr = s.server.ListenAndServe(ctx)
	}()

	s.Require().Eventually(func() bool {
		return s.server.Addr() != ""
	}, time.Second, 5*time.Millisecond, "listener did not come up")
}

func (s *TransportTestSuite) TearDownTest() {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(2 * time.Second):
		s.Fail("server did not shut down")
	}
	s.NoError(s.serveErr)
	s.Require().NoError(s.store.Close())
}

func (s *TransportTestSuite) seedAccount(id model.UserID, name, password string) {
	sum := md5.Sum([]byte(password))
	hash, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(sum[:])), bcrypt.MinCost)
	s.Require().NoError(err)
	s.Require().NoError(s.store.SaveUser(context.Background(), &model.User{
		ID:         id,
		Name:       name,
		SafeName:   model.MakeSafeName(name),
		PwBcrypt:   hash,
		Privileges: model.PrivUnrestricted | model.PrivVerified,
		Country:    "DE",
	}))
}

func loginBody(name, password string) string {
	sum := md5.Sum([]byte(password))
	return fmt.Sprintf("%s\n%s\nb20250820|0|0|a:b:c:d:e|0\n", name, hex.EncodeToString(sum[:]))
}

// connect dials the server and completes the handshake, returning the
// open connection, a buffered reader positioned after the token line,
// and the token itself.
func (s *TransportTestSuite) connect(name, password string) (net.Conn, *bufio.Reader, string) {
	conn, err := net.Dial("tcp", s.server.Addr())
	s.Require().NoError(err)
	s.T().Cleanup(func() { conn.Close() })

	_, err = conn.Write([]byte(loginBody(name, password)))
	s.Require().NoError(err)

	br := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	token, err := br.ReadString('\n')
	s.Require().NoError(err)
	return conn, br, token[:len(token)-1]
}

func (s *TransportTestSuite) TestHandshakeDeliversTokenAndBlob() {
	s.seedAccount(42, "jess", "hunter2")
	conn, br, token := s.connect("jess", "hunter2")
	s.NotEqual(bancho.FailedLoginToken, token)

	// The hydration blob follows immediately; the first frame carries
	// the session's user id.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	f, err := packet.ReadFrame(br)
	s.Require().NoError(err)
	s.Equal(uint16(packet.ServerUserID), uint16(f.ID))
	id, err := packet.NewReader(f.Payload).ReadI32()
	s.Require().NoError(err)
	s.Equal(int32(42), id)
}

func (s *TransportTestSuite) TestRejectedLoginStillAnswers() {
	_, br, token := s.connect("nobody", "pw")
	s.Equal(bancho.FailedLoginToken, token)

	f, err := packet.ReadFrame(br)
	s.Require().NoError(err)
	s.Equal(uint16(packet.ServerUserID), uint16(f.ID))
}

func (s *TransportTestSuite) TestFramesFlowBothWays() {
	s.seedAccount(42, "jess", "hunter2")
	s.seedAccount(43, "vic", "pw")

	jessConn, jessR, _ := s.connect("jess", "hunter2")
	_, _, vicToken := s.connect("vic", "pw")
	s.NotEqual(bancho.FailedLoginToken, vicToken)

	// vic's login is pushed to jess through the writer goroutine.
	jessConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	sawPresence := false
	for !sawPresence {
		f, err := packet.ReadFrame(jessR)
		s.Require().NoError(err, "expected vic's presence before the stream went quiet")
		if uint16(f.ID) != uint16(packet.ServerUserPresence) {
			continue
		}
		r := packet.NewReader(f.Payload)
		id, err := r.ReadI32()
		s.Require().NoError(err)
		if id == 43 {
			sawPresence = true
		}
	}
}

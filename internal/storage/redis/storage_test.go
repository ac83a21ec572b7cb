package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/NESSBZID/bncho/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	s.storage = NewWithClient(client, DefaultConfig())
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

func (s *StorageSuite) seedUser(id model.UserID, name string, priv model.Privileges) *model.User {
	u := &model.User{
		ID:         id,
		Name:       name,
		SafeName:   model.MakeSafeName(name),
		PwBcrypt:   []byte("$2b$12$fixture"),
		Privileges: priv,
		Country:    "de",
	}
	s.Require().NoError(s.storage.SaveUser(s.ctx, u))
	return u
}

func (s *StorageSuite) TestSaveAndFetchUser() {
	s.seedUser(1001, "Cherry Blossom", model.PrivUnrestricted|model.PrivVerified)

	u, err := s.storage.FetchUserByName(s.ctx, "cherry_blossom")
	s.Require().NoError(err)
	s.Equal(model.UserID(1001), u.ID)
	s.Equal("Cherry Blossom", u.Name)
	s.Equal("de", u.Country)
}

func (s *StorageSuite) TestFetchUserNotFound() {
	_, err := s.storage.FetchUserByName(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestUpdatePrivilegesSurvivesRefetch() {
	s.seedUser(1001, "cherry", model.PrivUnrestricted)

	err := s.storage.UpdatePrivileges(s.ctx, 1001, model.PrivUnrestricted|model.PrivVerified)
	s.Require().NoError(err)

	u, err := s.storage.FetchUserByName(s.ctx, "cherry")
	s.Require().NoError(err)
	s.True(u.Privileges.IsVerified())
}

func (s *StorageSuite) TestSilenceMergedIntoUser() {
	s.seedUser(1001, "cherry", model.PrivUnrestricted)

	s.Require().NoError(s.storage.UpdateSilence(s.ctx, 1001, 1900000000))

	u, err := s.storage.FetchUserByName(s.ctx, "cherry")
	s.Require().NoError(err)
	s.Equal(int64(1900000000), u.SilenceEnd)
}

func (s *StorageSuite) TestLoginRecordsCarryTTL() {
	err := s.storage.InsertLoginRecord(s.ctx, model.LoginRecord{
		UserID: 1001, IP: "10.0.0.1", OsuVer: "b20250101", CreatedAt: 1748779200,
	})
	s.Require().NoError(err)
	s.Positive(s.mini.TTL(loginRecordsKey(1001)))
}

func (s *StorageSuite) TestHardwareMatches() {
	fpA := model.HardwareFingerprint{
		UserID: 1001, AdaptersMD5: "aaa", UninstallMD5: "uuu", DiskSerial: "ddd",
	}
	s.Require().NoError(s.storage.InsertClientHashes(s.ctx, fpA))
	s.Require().NoError(s.storage.InsertClientHashes(s.ctx, fpA))
	s.seedUser(1001, "cherry", model.PrivUnrestricted)

	// Same disk, different everything else.
	fpB := model.HardwareFingerprint{
		UserID: 1002, AdaptersMD5: "bbb", UninstallMD5: "vvv", DiskSerial: "ddd",
	}
	matches, err := s.storage.FetchHardwareMatches(s.ctx, fpB)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(model.UserID(1001), matches[0].UserID)
	s.Equal(2, matches[0].Occurrences)
	s.True(matches[0].Privileges.Has(model.PrivUnrestricted))
}

func (s *StorageSuite) TestHardwareMatchesExcludeSelf() {
	fp := model.HardwareFingerprint{
		UserID: 1001, AdaptersMD5: "aaa", UninstallMD5: "uuu", DiskSerial: "ddd",
	}
	s.Require().NoError(s.storage.InsertClientHashes(s.ctx, fp))

	matches, err := s.storage.FetchHardwareMatches(s.ctx, fp)
	s.Require().NoError(err)
	s.Empty(matches)
}

func (s *StorageSuite) TestMailLifecycle() {
	mail := model.Mail{
		FromID: 1001, FromName: "cherry",
		ToID: 1002, ToName: "mango",
		Body: "welcome back", SentAt: 1748779200,
	}
	s.Require().NoError(s.storage.InsertMail(s.ctx, mail))

	unread, err := s.storage.FetchUnreadMail(s.ctx, 1002)
	s.Require().NoError(err)
	s.Require().Len(unread, 1)
	s.Equal("welcome back", unread[0].Body)
	s.Positive(unread[0].ID)

	s.Require().NoError(s.storage.MarkMailRead(s.ctx, 1002, 1001))

	unread, err = s.storage.FetchUnreadMail(s.ctx, 1002)
	s.Require().NoError(err)
	s.Empty(unread)
}

func (s *StorageSuite) TestStatsRoundTrip() {
	st := model.ModeStats{
		TotalScore: 100, RankedScore: 80, PP: 1234,
		Accuracy: 97.5, Plays: 42, GlobalRank: 1817, MaxCombo: 777,
	}
	s.Require().NoError(s.storage.SaveStats(s.ctx, 1001, model.GameModeTaiko, st))

	got, err := s.storage.FetchStats(s.ctx, 1001, model.GameModeTaiko)
	s.Require().NoError(err)
	s.Equal(st, got)
}

func (s *StorageSuite) TestStatsMissingAreZero() {
	got, err := s.storage.FetchStats(s.ctx, 9999, model.GameModeOsu)
	s.Require().NoError(err)
	s.Equal(model.ModeStats{}, got)
}

func (s *StorageSuite) TestFriends() {
	s.Require().NoError(s.storage.AddFriend(s.ctx, 1001, 1002))
	s.Require().NoError(s.storage.AddFriend(s.ctx, 1001, 1003))

	friends, err := s.storage.FetchFriends(s.ctx, 1001)
	s.Require().NoError(err)
	s.ElementsMatch([]model.UserID{1002, 1003}, friends)

	s.Require().NoError(s.storage.RemoveFriend(s.ctx, 1001, 1002))
	friends, err = s.storage.FetchFriends(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal([]model.UserID{1003}, friends)
}

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/NESSBZID/bncho/internal/model"
)

type StorageSuite struct {
	suite.Suite
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.ctx = context.Background()
}

func (s *StorageSuite) TestSaveAndFetchUser() {
	u := &model.User{
		ID:         1001,
		Name:       "Cherry Blossom",
		SafeName:   "cherry_blossom",
		Privileges: model.PrivUnrestricted,
	}
	s.Require().NoError(s.storage.SaveUser(s.ctx, u))

	got, err := s.storage.FetchUserByName(s.ctx, "cherry_blossom")
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)

	// Returned record is a copy; mutating it must not leak back.
	got.Name = "changed"
	again, err := s.storage.FetchUserByName(s.ctx, "cherry_blossom")
	s.Require().NoError(err)
	s.Equal("Cherry Blossom", again.Name)
}

func (s *StorageSuite) TestFetchUserNotFound() {
	_, err := s.storage.FetchUserByName(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *StorageSuite) TestClientHashOccurrences() {
	fp := model.HardwareFingerprint{
		UserID: 1001, AdaptersMD5: "aaa", UninstallMD5: "uuu", DiskSerial: "ddd",
	}
	s.Require().NoError(s.storage.InsertClientHashes(s.ctx, fp))
	s.Require().NoError(s.storage.InsertClientHashes(s.ctx, fp))

	other := model.HardwareFingerprint{
		UserID: 1002, AdaptersMD5: "aaa", UninstallMD5: "xxx", DiskSerial: "yyy",
	}
	matches, err := s.storage.FetchHardwareMatches(s.ctx, other)
	s.Require().NoError(err)
	s.Require().Len(matches, 1)
	s.Equal(2, matches[0].Occurrences)
}

func (s *StorageSuite) TestMailReadFlag() {
	s.Require().NoError(s.storage.InsertMail(s.ctx, model.Mail{FromID: 1, ToID: 2, Body: "hi"}))
	s.Require().NoError(s.storage.InsertMail(s.ctx, model.Mail{FromID: 3, ToID: 2, Body: "yo"}))

	unread, err := s.storage.FetchUnreadMail(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(unread, 2)

	s.Require().NoError(s.storage.MarkMailRead(s.ctx, 2, 1))
	unread, err = s.storage.FetchUnreadMail(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(unread, 1)
	s.Equal(model.UserID(3), unread[0].FromID)
}

func (s *StorageSuite) TestFriends() {
	s.Require().NoError(s.storage.AddFriend(s.ctx, 1001, 1002))
	friends, err := s.storage.FetchFriends(s.ctx, 1001)
	s.Require().NoError(err)
	s.Equal([]model.UserID{1002}, friends)

	s.Require().NoError(s.storage.RemoveFriend(s.ctx, 1001, 1002))
	friends, err = s.storage.FetchFriends(s.ctx, 1001)
	s.Require().NoError(err)
	s.Empty(friends)
}

func (s *StorageSuite) TestSeededStats() {
	st := model.ModeStats{PP: 727, GlobalRank: 1}
	s.storage.SeedStats(1001, model.GameModeMania, st)

	got, err := s.storage.FetchStats(s.ctx, 1001, model.GameModeMania)
	s.Require().NoError(err)
	s.Equal(st, got)
}

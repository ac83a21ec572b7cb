package memory

import (
	"context"
	"sync"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/storage"
)

// Storage is an in-memory implementation of the storage interface,
// suitable for tests and single-process development setups.
type Storage struct {
	mu sync.RWMutex

	usersBySafeName map[string]*model.User
	privileges      map[model.UserID]model.Privileges
	latestActivity  map[model.UserID]int64
	silences        map[model.UserID]int64
	loginRecords    []model.LoginRecord
	clientHashes    []model.HardwareFingerprint
	mail            []model.Mail
	nextMailID      int64
	stats           map[model.UserID]map[model.GameMode]model.ModeStats
	friends         map[model.UserID]map[model.UserID]struct{}
}

// New creates an empty in-memory storage.
func New() *Storage {
	return &Storage{
		usersBySafeName: make(map[string]*model.User),
		privileges:      make(map[model.UserID]model.Privileges),
		latestActivity:  make(map[model.UserID]int64),
		silences:        make(map[model.UserID]int64),
		nextMailID:      1,
		stats:           make(map[model.UserID]map[model.GameMode]model.ModeStats),
		friends:         make(map[model.UserID]map[model.UserID]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *user
	s.usersBySafeName[user.SafeName] = &cp
	s.privileges[user.ID] = user.Privileges
	return nil
}

func (s *Storage) FetchUserByName(_ context.Context, safeName string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.usersBySafeName[safeName]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	cp.Privileges = s.privileges[u.ID]
	if until, ok := s.silences[u.ID]; ok {
		cp.SilenceEnd = until
	}
	return &cp, nil
}

func (s *Storage) UpdatePrivileges(_ context.Context, id model.UserID, priv model.Privileges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.privileges[id] = priv
	for _, u := range s.usersBySafeName {
		if u.ID == id {
			u.Privileges = priv
		}
	}
	return nil
}

func (s *Storage) UpdateLatestActivity(_ context.Context, id model.UserID, unixTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestActivity[id] = unixTime
	return nil
}

func (s *Storage) InsertLoginRecord(_ context.Context, rec model.LoginRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginRecords = append(s.loginRecords, rec)
	return nil
}

func (s *Storage) InsertClientHashes(_ context.Context, fp model.HardwareFingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.clientHashes {
		h := &s.clientHashes[i]
		if h.UserID == fp.UserID &&
			h.AdaptersMD5 == fp.AdaptersMD5 &&
			h.UninstallMD5 == fp.UninstallMD5 &&
			h.DiskSerial == fp.DiskSerial {
			h.Occurrences++
			return nil
		}
	}
	fp.Occurrences = 1
	s.clientHashes = append(s.clientHashes, fp)
	return nil
}

// FetchHardwareMatches returns other accounts whose recorded hashes
// collide with any of the given fingerprint's components.
func (s *Storage) FetchHardwareMatches(_ context.Context, fp model.HardwareFingerprint) ([]model.HardwareMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.HardwareMatch
	for i := range s.clientHashes {
		h := &s.clientHashes[i]
		if h.UserID == fp.UserID {
			continue
		}
		if h.AdaptersMD5 == fp.AdaptersMD5 ||
			h.UninstallMD5 == fp.UninstallMD5 ||
			h.DiskSerial == fp.DiskSerial {
			out = append(out, model.HardwareMatch{
				UserID:      h.UserID,
				Privileges:  s.privileges[h.UserID],
				Occurrences: h.Occurrences,
			})
		}
	}
	return out, nil
}

func (s *Storage) FetchUnreadMail(_ context.Context, to model.UserID) ([]model.Mail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Mail
	for _, m := range s.mail {
		if m.ToID == to && !m.Read {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Storage) MarkMailRead(_ context.Context, to, from model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.mail {
		if s.mail[i].ToID == to && s.mail[i].FromID == from {
			s.mail[i].Read = true
		}
	}
	return nil
}

func (s *Storage) InsertMail(_ context.Context, mail model.Mail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mail.ID = s.nextMailID
	s.nextMailID++
	s.mail = append(s.mail, mail)
	return nil
}

func (s *Storage) FetchStats(_ context.Context, id model.UserID, mode model.GameMode) (model.ModeStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats[id][mode], nil
}

// SeedStats sets a user's figures for a mode. Test helper.
func (s *Storage) SeedStats(id model.UserID, mode model.GameMode, st model.ModeStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats[id] == nil {
		s.stats[id] = make(map[model.GameMode]model.ModeStats)
	}
	s.stats[id][mode] = st
}

func (s *Storage) FetchFriends(_ context.Context, id model.UserID) ([]model.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.UserID, 0, len(s.friends[id]))
	for f := range s.friends[id] {
		out = append(out, f)
	}
	return out, nil
}

func (s *Storage) AddFriend(_ context.Context, id, friend model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.friends[id] == nil {
		s.friends[id] = make(map[model.UserID]struct{})
	}
	s.friends[id][friend] = struct{}{}
	return nil
}

func (s *Storage) RemoveFriend(_ context.Context, id, friend model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.friends[id], friend)
	return nil
}

func (s *Storage) UpdateSilence(_ context.Context, id model.UserID, until int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silences[id] = until
	return nil
}

func (s *Storage) Close() error {
	return nil
}

package storage

import (
	"context"

	"github.com/NESSBZID/bncho/internal/model"
)

// Storage defines the persistence collaborator backing the realtime
// server. Implementations return data only; they never touch in-memory
// world state.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	FetchUserByName(ctx context.Context, safeName string) (*model.User, error)
	UpdatePrivileges(ctx context.Context, id model.UserID, priv model.Privileges) error
	UpdateLatestActivity(ctx context.Context, id model.UserID, unixTime int64) error

	// Login bookkeeping
	InsertLoginRecord(ctx context.Context, rec model.LoginRecord) error
	InsertClientHashes(ctx context.Context, fp model.HardwareFingerprint) error
	FetchHardwareMatches(ctx context.Context, fp model.HardwareFingerprint) ([]model.HardwareMatch, error)

	// Offline mail
	FetchUnreadMail(ctx context.Context, to model.UserID) ([]model.Mail, error)
	MarkMailRead(ctx context.Context, to, from model.UserID) error
	InsertMail(ctx context.Context, mail model.Mail) error

	// Statistics and relations
	FetchStats(ctx context.Context, id model.UserID, mode model.GameMode) (model.ModeStats, error)
	FetchFriends(ctx context.Context, id model.UserID) ([]model.UserID, error)
	AddFriend(ctx context.Context, id, friend model.UserID) error
	RemoveFriend(ctx context.Context, id, friend model.UserID) error

	// UpdateSilence sets the user's silence expiry (unix seconds).
	UpdateSilence(ctx context.Context, id model.UserID, until int64) error

	Close() error
}

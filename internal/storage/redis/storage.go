package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userKey(user.SafeName), data, 0)
	pipe.Set(ctx, userNameIndexKey(user.ID), user.SafeName, 0)
	pipe.Set(ctx, privilegesKey(user.ID), int64(user.Privileges), 0)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) FetchUserByName(ctx context.Context, safeName string) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(safeName)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	// Privileges and silence have their own keys so they can change
	// without rewriting the user record.
	if priv, err := s.client.Get(ctx, privilegesKey(user.ID)).Int64(); err == nil {
		user.Privileges = model.Privileges(priv)
	}
	if until, err := s.client.Get(ctx, silenceKey(user.ID)).Int64(); err == nil {
		user.SilenceEnd = until
	}
	return &user, nil
}

func (s *Storage) UpdatePrivileges(ctx context.Context, id model.UserID, priv model.Privileges) error {
	return s.client.Set(ctx, privilegesKey(id), int64(priv), 0).Err()
}

func (s *Storage) UpdateLatestActivity(ctx context.Context, id model.UserID, unixTime int64) error {
	return s.client.Set(ctx, latestActivityKey(id), unixTime, 0).Err()
}

func (s *Storage) InsertLoginRecord(ctx context.Context, rec model.LoginRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, loginRecordsKey(rec.UserID), data)
	pipe.Expire(ctx, loginRecordsKey(rec.UserID), s.cfg.LoginRecordTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// fingerprint components indexed for cross-account correlation
const (
	hwAdapters  = "adapters"
	hwUninstall = "uninstall"
	hwDisk      = "disk"
)

func (s *Storage) InsertClientHashes(ctx context.Context, fp model.HardwareFingerprint) error {
	field := strconv.FormatInt(int64(fp.UserID), 10)
	pipe := s.client.TxPipeline()
	pipe.HIncrBy(ctx, hardwareIndexKey(hwAdapters, fp.AdaptersMD5), field, 1)
	pipe.HIncrBy(ctx, hardwareIndexKey(hwUninstall, fp.UninstallMD5), field, 1)
	pipe.HIncrBy(ctx, hardwareIndexKey(hwDisk, fp.DiskSerial), field, 1)
	_, err := pipe.Exec(ctx)
	return err
}

// FetchHardwareMatches returns other accounts whose recorded hashes
// collide with any component of the given fingerprint.
func (s *Storage) FetchHardwareMatches(ctx context.Context, fp model.HardwareFingerprint) ([]model.HardwareMatch, error) {
	keys := []string{
		hardwareIndexKey(hwAdapters, fp.AdaptersMD5),
		hardwareIndexKey(hwUninstall, fp.UninstallMD5),
		hardwareIndexKey(hwDisk, fp.DiskSerial),
	}
	counts := make(map[model.UserID]int)
	for _, key := range keys {
		entries, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		for field, val := range entries {
			uid, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				continue
			}
			n, _ := strconv.Atoi(val)
			id := model.UserID(uid)
			if id == fp.UserID {
				continue
			}
			if n > counts[id] {
				counts[id] = n
			}
		}
	}
	out := make([]model.HardwareMatch, 0, len(counts))
	for id, n := range counts {
		priv, err := s.client.Get(ctx, privilegesKey(id)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, err
		}
		out = append(out, model.HardwareMatch{
			UserID:      id,
			Privileges:  model.Privileges(priv),
			Occurrences: n,
		})
	}
	return out, nil
}

func (s *Storage) readMail(ctx context.Context, to model.UserID) ([]model.Mail, error) {
	raw, err := s.client.LRange(ctx, mailKey(to), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Mail, 0, len(raw))
	for _, item := range raw {
		var m model.Mail
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Storage) writeMail(ctx context.Context, to model.UserID, mail []model.Mail) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, mailKey(to))
	for _, m := range mail {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		pipe.RPush(ctx, mailKey(to), data)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) FetchUnreadMail(ctx context.Context, to model.UserID) ([]model.Mail, error) {
	all, err := s.readMail(ctx, to)
	if err != nil {
		return nil, err
	}
	var out []model.Mail
	for _, m := range all {
		if !m.Read {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Storage) MarkMailRead(ctx context.Context, to, from model.UserID) error {
	all, err := s.readMail(ctx, to)
	if err != nil {
		return err
	}
	changed := false
	for i := range all {
		if all[i].FromID == from && !all[i].Read {
			all[i].Read = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeMail(ctx, to, all)
}

func (s *Storage) InsertMail(ctx context.Context, mail model.Mail) error {
	id, err := s.client.Incr(ctx, mailSeqKey()).Result()
	if err != nil {
		return err
	}
	mail.ID = id
	data, err := json.Marshal(mail)
	if err != nil {
		return err
	}
	return s.client.RPush(ctx, mailKey(mail.ToID), data).Err()
}

func (s *Storage) FetchStats(ctx context.Context, id model.UserID, mode model.GameMode) (model.ModeStats, error) {
	data, err := s.client.Get(ctx, statsKey(id, mode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ModeStats{}, nil
	}
	if err != nil {
		return model.ModeStats{}, err
	}
	var st model.ModeStats
	if err := json.Unmarshal(data, &st); err != nil {
		return model.ModeStats{}, err
	}
	return st, nil
}

// SaveStats persists a user's figures for a mode.
func (s *Storage) SaveStats(ctx context.Context, id model.UserID, mode model.GameMode, st model.ModeStats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, statsKey(id, mode), data, 0).Err()
}

func (s *Storage) FetchFriends(ctx context.Context, id model.UserID) ([]model.UserID, error) {
	members, err := s.client.SMembers(ctx, friendsKey(id)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.UserID, 0, len(members))
	for _, m := range members {
		v, err := strconv.ParseInt(m, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, model.UserID(v))
	}
	return out, nil
}

func (s *Storage) AddFriend(ctx context.Context, id, friend model.UserID) error {
	return s.client.SAdd(ctx, friendsKey(id), int64(friend)).Err()
}

func (s *Storage) RemoveFriend(ctx context.Context, id, friend model.UserID) error {
	return s.client.SRem(ctx, friendsKey(id), int64(friend)).Err()
}

func (s *Storage) UpdateSilence(ctx context.Context, id model.UserID, until int64) error {
	return s.client.Set(ctx, silenceKey(id), until, 0).Err()
}

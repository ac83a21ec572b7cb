package bancho

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/NESSBZID/bncho/internal/model"
	"github.com/NESSBZID/bncho/internal/packet"
	"github.com/NESSBZID/bncho/internal/state"
)

// FailedLoginToken is returned in place of a session token when the
// handshake is rejected; the response blob still carries the reason.
const FailedLoginToken = "no"

// LoginRequest is the parsed form of the unframed first request.
type LoginRequest struct {
	Username string
	PwMD5    string

	OsuVersion  string
	UTCOffset   int8
	DisplayCity bool
	PMPrivate   bool

	OsuPathMD5   string
	AdaptersRaw  string
	AdaptersMD5  string
	UninstallMD5 string
	DiskSerial   string
}

var osuVersionRe = regexp.MustCompile(`^b(\d{4})(\d{2})(\d{2})(?:\.(\d+))?(beta|cuttingedge|dev|tourney)?$`)

// ParseLoginRequest splits the newline-delimited credential body:
// username, password md5, then a pipe-delimited client info line.
func ParseLoginRequest(body []byte) (LoginRequest, error) {
	parts := strings.SplitN(strings.TrimSuffix(string(body), "\n"), "\n", 3)
	if len(parts) != 3 {
		return LoginRequest{}, model.ErrMalformedLogin
	}
	req := LoginRequest{
		Username: parts[0],
		PwMD5:    parts[1],
	}
	if len(req.PwMD5) != 32 {
		return LoginRequest{}, model.ErrMalformedLogin
	}

	info := strings.Split(parts[2], "|")
	if len(info) != 5 {
		return LoginRequest{}, model.ErrMalformedLogin
	}
	req.OsuVersion = info[0]

	utc, err := strconv.Atoi(info[1])
	if err != nil || utc < -24 || utc > 24 {
		return LoginRequest{}, model.ErrMalformedLogin
	}
	req.UTCOffset = int8(utc)
	req.DisplayCity = info[2] == "1"
	req.PMPrivate = info[4] == "1"

	hashes := strings.Split(info[3], ":")
	if len(hashes) < 5 {
		return LoginRequest{}, model.ErrMalformedLogin
	}
	req.OsuPathMD5 = hashes[0]
	req.AdaptersRaw = hashes[1]
	req.AdaptersMD5 = hashes[2]
	req.UninstallMD5 = hashes[3]
	req.DiskSerial = hashes[4]
	return req, nil
}

// versionDate extracts the build date embedded in an osu! version
// string.
func versionDate(ver string) (time.Time, bool) {
	m := osuVersionRe.FindStringSubmatch(ver)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

func loginFailure(frames ...[]byte) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}

// Login authenticates the unframed first request and, on success,
// builds the session and its hydration blob. The returned token is
// FailedLoginToken on rejection, with the response explaining why.
func (s *Server) Login(ctx context.Context, body []byte, ip string) (token string, response []byte) {
	req, err := ParseLoginRequest(body)
	if err != nil {
		return FailedLoginToken, loginFailure(
			packet.UserID(-1),
			packet.Notification("Malformed login request."),
		)
	}

	s.world.Lock()
	defer s.world.Unlock()
	now := s.clock.Now()

	buildDate, ok := versionDate(req.OsuVersion)
	if !ok || now.Sub(buildDate) > s.cfg.MaxClientAge {
		return FailedLoginToken, loginFailure(
			packet.VersionUpdateForced(),
			packet.UserID(-2),
		)
	}

	user, err := s.store.FetchUserByName(ctx, model.MakeSafeName(req.Username))
	if err != nil {
		if err != model.ErrUserNotFound {
			s.log.Error("login: fetching user", "error", err)
		}
		return FailedLoginToken, loginFailure(
			packet.UserID(-1),
			packet.Notification("Incorrect username or password."),
		)
	}

	if !s.pwCache.verify(user.PwBcrypt, req.PwMD5) {
		return FailedLoginToken, loginFailure(
			packet.UserID(-1),
			packet.Notification("Incorrect username or password."),
		)
	}

	// A session that received traffic in the last 10 seconds is live;
	// trying to double-log it in fails. A stale one is replaced.
	if existing, ok := s.world.Players.ByID(user.ID); ok {
		if now.Sub(existing.LastRecvTime) < 10*time.Second {
			return FailedLoginToken, loginFailure(
				packet.UserID(-1),
				packet.Notification("User already logged in."),
			)
		}
		s.world.RemoveSession(existing)
	}

	fp := model.HardwareFingerprint{
		UserID:       user.ID,
		OsuPathMD5:   req.OsuPathMD5,
		AdaptersMD5:  req.AdaptersMD5,
		UninstallMD5: req.UninstallMD5,
		DiskSerial:   req.DiskSerial,
	}
	if err := s.store.InsertClientHashes(ctx, fp); err != nil {
		s.log.Error("login: recording client hashes", "error", err)
	}
	matches, err := s.store.FetchHardwareMatches(ctx, fp)
	if err != nil {
		s.log.Error("login: hardware correlation", "error", err)
	}
	if len(matches) > 0 {
		if !user.Privileges.IsVerified() {
			restricted := false
			for _, m := range matches {
				if m.Privileges.IsRestricted() {
					restricted = true
					break
				}
			}
			if restricted {
				s.log.Warn("login blocked on hardware conflict",
					"user", user.Name, "matches", len(matches))
				return FailedLoginToken, loginFailure(
					packet.UserID(-1),
					packet.Notification("Your account could not be verified. Please contact staff."),
				)
			}
		} else {
			s.log.Info("hardware match on verified account",
				"user", user.Name, "matches", len(matches))
		}
	}

	firstLogin := !user.Privileges.IsVerified()
	if firstLogin {
		user.Privileges |= model.PrivVerified
		if err := s.store.UpdatePrivileges(ctx, user.ID, user.Privileges); err != nil {
			s.log.Error("login: granting verification", "error", err)
		}
	}

	token = uuid.NewString()
	p := state.NewPlayer(*user, token, now)
	p.UTCOffset = req.UTCOffset
	p.BlockNonFriendDMs = req.PMPrivate
	if loc, ok := s.geo.Resolve(ctx, ip); ok {
		p.Geoloc = loc
	} else if user.Country != "" {
		p.Geoloc.CountryCode = user.Country
	}

	s.hydrate(ctx, p)

	if err := s.store.InsertLoginRecord(ctx, model.LoginRecord{
		UserID:    user.ID,
		IP:        ip,
		OsuVer:    req.OsuVersion,
		CreatedAt: now.Unix(),
	}); err != nil {
		s.log.Error("login: recording login", "error", err)
	}
	if err := s.store.UpdateLatestActivity(ctx, user.ID, now.Unix()); err != nil {
		s.log.Error("login: updating activity", "error", err)
	}

	// The response blob is everything enqueued during hydration.
	p.Enqueue(packet.WriteProtocolVersion(packet.ProtocolVersion))
	response = s.assembleLoginBlob(p, firstLogin)

	s.log.Info("session created",
		"player", p.Name,
		"id", p.ID,
		"version", req.OsuVersion,
	)
	return token, response
}

// hydrate loads the persisted state a fresh session needs in memory.
func (s *Server) hydrate(ctx context.Context, p *state.Player) {
	for _, mode := range []model.GameMode{
		model.GameModeOsu, model.GameModeTaiko, model.GameModeCatch, model.GameModeMania,
	} {
		st, err := s.store.FetchStats(ctx, p.ID, mode)
		if err != nil {
			s.log.Error("login: fetching stats", "mode", mode, "error", err)
			continue
		}
		p.Stats[mode] = st
	}
	friends, err := s.store.FetchFriends(ctx, p.ID)
	if err != nil {
		s.log.Error("login: fetching friends", "error", err)
	}
	for _, f := range friends {
		p.Friends[f] = struct{}{}
	}
}

func (s *Server) assembleLoginBlob(p *state.Player, firstLogin bool) []byte {
	now := s.clock.Now()

	p.Enqueue(packet.UserID(int32(p.ID)))
	p.Enqueue(packet.BanchoPrivileges(model.ClientPrivilegesFor(p.Privileges)))
	if s.cfg.MenuIconURL != "" {
		p.Enqueue(packet.MainMenuIcon(s.cfg.MenuIconURL, s.cfg.MenuOnclickURL))
	}
	greeting := "Welcome back to " + s.cfg.ServerName + "."
	if firstLogin {
		greeting = "Welcome to " + s.cfg.ServerName + "! Your account has been verified."
	}
	p.Enqueue(packet.Notification(greeting))
	if p.Silenced(now) {
		p.Enqueue(packet.SilenceEnd(p.RemainingSilence(now)))
	}

	// Channel listing, then auto-joins.
	for _, c := range s.world.Chans.All() {
		if !c.CanRead(p.Privileges) || c.Instance {
			continue
		}
		if c.AutoJoin {
			p.Enqueue(packet.ChannelAutoJoin(c.ClientName(), c.Topic, c.MemberCount()))
		} else {
			p.Enqueue(c.InfoPacket())
		}
	}
	p.Enqueue(packet.ChannelInfoEnd())
	for _, c := range s.world.Chans.All() {
		if c.AutoJoin && c.CanRead(p.Privileges) {
			if err := s.world.JoinChannel(p, c); err != nil {
				s.log.Warn("login: auto-join failed", "channel", c.Name, "error", err)
			}
		}
	}

	friends := make([]model.UserID, 0, len(p.Friends))
	for f := range p.Friends {
		friends = append(friends, f)
	}
	p.Enqueue(packet.FriendsList(friends))

	p.Enqueue(p.PresencePacket())
	p.Enqueue(p.StatsPacket())

	// Exchange presence with everyone already online, then register.
	if !p.Restricted() {
		presence := p.PresencePacket()
		stats := p.StatsPacket()
		for _, other := range s.world.Players.All() {
			other.Enqueue(presence)
			other.Enqueue(stats)
			if !other.Restricted() {
				p.Enqueue(other.PresencePacket())
				p.Enqueue(other.StatsPacket())
			}
		}
	} else {
		p.Enqueue(packet.AccountRestricted())
		p.Enqueue(packet.Notification("Your account is restricted; you are invisible to other players."))
	}
	s.world.Players.Add(p)

	s.deliverMail(p)
	return p.Drain()
}

// deliverMail replays unread offline messages as regular chat packets.
func (s *Server) deliverMail(p *state.Player) {
	mail, err := s.store.FetchUnreadMail(context.Background(), p.ID)
	if err != nil {
		s.log.Error("login: fetching mail", "error", err)
		return
	}
	if len(mail) == 0 {
		return
	}
	senders := make(map[model.UserID]struct{})
	for _, m := range mail {
		sent := time.Unix(m.SentAt, 0).UTC()
		p.Enqueue(packet.SendMessage(packet.Message{
			Sender:    m.FromName,
			Text:      fmt.Sprintf("%s (sent %s)", m.Body, sent.Format("2006-01-02 15:04")),
			Recipient: m.ToName,
			SenderID:  int32(m.FromID),
		}))
		senders[m.FromID] = struct{}{}
	}
	p.Enqueue(packet.Notification(fmt.Sprintf("You have %d new message(s) from while you were away.", len(mail))))
	for from := range senders {
		if err := s.store.MarkMailRead(context.Background(), p.ID, from); err != nil {
			s.log.Error("login: marking mail read", "from", from, "error", err)
		}
	}
}

// bcryptCache memoizes successful bcrypt comparisons, keyed by the
// stored hash. Repeated logins with the same credential skip the
// expensive comparison for the process lifetime.
type bcryptCache struct {
	mu    sync.Mutex
	known map[string]string
}

func newBcryptCache() *bcryptCache {
	return &bcryptCache{known: make(map[string]string)}
}

func (c *bcryptCache) verify(stored []byte, pwMD5 string) bool {
	key := string(stored)
	c.mu.Lock()
	cached, ok := c.known[key]
	c.mu.Unlock()
	if ok {
		return cached == pwMD5
	}
	if bcrypt.CompareHashAndPassword(stored, []byte(pwMD5)) != nil {
		return false
	}
	c.mu.Lock()
	c.known[key] = pwMD5
	c.mu.Unlock()
	return true
}

// trim drops the memoized comparisons, forcing fresh verification.
func (c *bcryptCache) trim() {
	c.mu.Lock()
	c.known = make(map[string]string)
	c.mu.Unlock()
}

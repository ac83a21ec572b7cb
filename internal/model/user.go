package model

// User is a registered account row as returned by the persistence layer.
type User struct {
	ID         UserID
	Name       string
	SafeName   string
	PwBcrypt   []byte
	Privileges Privileges
	Country    string
	SilenceEnd int64
	CreatedAt  int64
}

// HardwareFingerprint is one recorded set of client hardware hashes.
type HardwareFingerprint struct {
	UserID       UserID
	OsuPathMD5   string
	AdaptersMD5  string
	UninstallMD5 string
	DiskSerial   string
	Occurrences  int
}

// HardwareMatch pairs a fingerprint hit with the privileges of the
// account that produced it.
type HardwareMatch struct {
	UserID      UserID
	Privileges  Privileges
	Occurrences int
}

// Mail is an offline message persisted for delivery at next login.
type Mail struct {
	ID       int64
	FromID   UserID
	FromName string
	ToID     UserID
	ToName   string
	Body     string
	SentAt   int64
	Read     bool
}

// ModeStats is a player's statistics for one game mode.
type ModeStats struct {
	TotalScore  int64
	RankedScore int64
	PP          int16
	Accuracy    float32
	Plays       int32
	GlobalRank  int32
	MaxCombo    int32
}

// LoginRecord is one successful in-game login.
type LoginRecord struct {
	UserID    UserID
	IP        string
	OsuVer    string
	CreatedAt int64
}

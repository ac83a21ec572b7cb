package redis

import (
	"fmt"

	"github.com/NESSBZID/bncho/internal/model"
)

// Key prefix for all server data
const keyPrefix = "bncho"

// Key generation functions for each entity type

// userKey returns the Redis key for a user record, by canonical name
func userKey(safeName string) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, safeName)
}

// userNameIndexKey returns the Redis key for the id -> safe_name index
func userNameIndexKey(id model.UserID) string {
	return fmt.Sprintf("%s:idx:user_name:%d", keyPrefix, id)
}

// privilegesKey returns the Redis key for a user's privilege bitset
func privilegesKey(id model.UserID) string {
	return fmt.Sprintf("%s:priv:%d", keyPrefix, id)
}

// silenceKey returns the Redis key for a user's silence expiry
func silenceKey(id model.UserID) string {
	return fmt.Sprintf("%s:silence:%d", keyPrefix, id)
}

// latestActivityKey returns the Redis key for a user's last activity
func latestActivityKey(id model.UserID) string {
	return fmt.Sprintf("%s:latest_activity:%d", keyPrefix, id)
}

// loginRecordsKey returns the Redis key for a user's login history list
func loginRecordsKey(id model.UserID) string {
	return fmt.Sprintf("%s:logins:%d", keyPrefix, id)
}

// hardwareIndexKey returns the Redis key for one fingerprint component's
// HASH of user id -> occurrence count
func hardwareIndexKey(component, md5 string) string {
	return fmt.Sprintf("%s:hw:%s:%s", keyPrefix, component, md5)
}

// mailKey returns the Redis key for a recipient's mail list
func mailKey(to model.UserID) string {
	return fmt.Sprintf("%s:mail:%d", keyPrefix, to)
}

// mailSeqKey returns the Redis key for the mail id sequence
func mailSeqKey() string {
	return fmt.Sprintf("%s:mail_seq", keyPrefix)
}

// statsKey returns the Redis key for a user's per-mode statistics
func statsKey(id model.UserID, mode model.GameMode) string {
	return fmt.Sprintf("%s:stats:%d:%d", keyPrefix, id, mode)
}

// friendsKey returns the Redis key for a user's friends SET
func friendsKey(id model.UserID) string {
	return fmt.Sprintf("%s:friends:%d", keyPrefix, id)
}

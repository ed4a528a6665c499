package session

import "time"

// Session is the persisted server-side record for one issued token. It is
// keyed by TokenHash; the raw token is never stored.
type Session struct {
	TokenHash string
	UserID    string

	// Unix milliseconds.
	CreatedAt int64
	ExpiresAt int64
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.ExpiresAt <= now.UnixMilli()
}

// TTL returns the remaining lifetime at now, or zero once expired.
func (s *Session) TTL(now time.Time) time.Duration {
	if s.Expired(now) {
		return 0
	}
	return time.Duration(s.ExpiresAt-now.UnixMilli()) * time.Millisecond
}

package models

import "time"

// UnknownCountry is stored when geolocation fails entirely at login.
const UnknownCountry = "Unknown"

// Session is one authenticated device/browser binding. ID is the
// SHA-256 hash of the opaque token handed to the client; the raw token
// is never persisted. Region and City may be empty when geolocation
// could not resolve them.
type Session struct {
	ID        string
	UserID    int64
	UserAgent string
	IP        string
	Country   string
	Region    string
	City      string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

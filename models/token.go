package models

import "time"

// AccessToken is the opaque bearer credential issued by the Flow token
// endpoint. The absolute expiry is derived once at creation; tokens are
// replaced wholesale on re-authentication, never mutated.
type AccessToken struct {
	Token     string
	IssuedAt  time.Time
	TTL       time.Duration
	ExpiresAt time.Time
}

// NewAccessToken builds a token from the endpoint payload
// ({access_token, expires_in}) and pins its expiry instant.
func NewAccessToken(token string, expiresInSeconds int) AccessToken {
	issued := time.Now()
	ttl := time.Duration(expiresInSeconds) * time.Second
	return AccessToken{
		Token:     token,
		IssuedAt:  issued,
		TTL:       ttl,
		ExpiresAt: issued.Add(ttl),
	}
}

// Valid reports whether the token exists and has not expired.
func (t AccessToken) Valid() bool {
	return t.Token != "" && time.Now().Before(t.ExpiresAt)
}

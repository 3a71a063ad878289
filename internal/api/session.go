package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const sessionCookieName = "leaf_session"

// SessionCodec stores the browser's session id in a signed cookie.
type SessionCodec struct {
	codec  *securecookie.SecureCookie
	maxAge time.Duration
}

// NewSessionCodec signs cookies with secret. An empty secret gets a random
// key, which invalidates every session on restart.
func NewSessionCodec(secret []byte, maxAge time.Duration) *SessionCodec {
	if len(secret) == 0 {
		slog.Warn("no session secret configured, generating a random one")
		secret = securecookie.GenerateRandomKey(32)
	}

	codec := securecookie.New(secret, nil)
	if maxAge > 0 {
		codec.MaxAge(int(maxAge.Seconds()))
	}

	return &SessionCodec{codec: codec, maxAge: maxAge}
}

// Read returns the session id carried by the request, or uuid.Nil when the
// cookie is missing or fails verification.
func (c *SessionCodec) Read(r *http.Request) uuid.UUID {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return uuid.Nil
	}

	var value string
	if err := c.codec.Decode(sessionCookieName, cookie.Value, &value); err != nil {
		slog.Warn("ignoring invalid session cookie", "error", err)
		return uuid.Nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func (c *SessionCodec) Write(w http.ResponseWriter, id uuid.UUID) error {
	encoded, err := c.codec.Encode(sessionCookieName, id.String())
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if c.maxAge > 0 {
		cookie.MaxAge = int(c.maxAge.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

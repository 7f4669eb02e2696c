package cohost

import (
	"net/http"
	"strings"
)

// Session is the credential captured from a successful login. It is
// immutable; a new login produces a new Session.
type Session struct {
	cookie string
	userID int64
}

// NewSession wraps an existing cookie header value.
func NewSession(cookie string, userID int64) *Session {
	return &Session{cookie: cookie, userID: userID}
}

// Cookie returns the Cookie header value and whether the session is usable.
func (s *Session) Cookie() (string, bool) {
	if s == nil || s.cookie == "" {
		return "", false
	}
	return s.cookie, true
}

// UserID returns the account id reported by login.
func (s *Session) UserID() int64 {
	if s == nil {
		return 0
	}
	return s.userID
}

// cookieHeader turns the Set-Cookie headers of a response into a Cookie
// header value.
func cookieHeader(h http.Header) string {
	cookies := (&http.Response{Header: h}).Cookies()
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

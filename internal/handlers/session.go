// internal/handlers/session.go
package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/skrawlhq/skrawl/internal/auth"
)

const sessionCookieName = "session_token"

// issueSessionCookie signs an ephemeral token for the display name and sets
// it on the response. The cookie lets HTTP snapshots and reconnecting sockets
// prove which name they joined under.
func issueSessionCookie(w http.ResponseWriter, logger *logrus.Logger, username string) {
	token, err := auth.CreateSessionToken(username)
	if err != nil {
		logger.Warnf("failed to create session token for %q: %v", username, err)
		return
	}
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if auth.TokenExpireSec > 0 {
		cookie.MaxAge = auth.TokenExpireSec
	}
	http.SetCookie(w, cookie)
}

// sessionUsername extracts and verifies the display name bound to the
// request's session cookie. Returns "" when absent or invalid.
func sessionUsername(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	username, err := auth.AuthenticateSessionToken(cookie.Value)
	if err != nil {
		return ""
	}
	return username
}

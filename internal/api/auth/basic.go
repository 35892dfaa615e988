package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// BasicAuth checks HTTP basic credentials against a single admin account
// whose password is stored as a bcrypt hash.
type BasicAuth struct {
	User         string
	PasswordHash string
	Realm        string
}

// Enabled reports whether credentials are configured.
func (a BasicAuth) Enabled() bool {
	return strings.TrimSpace(a.User) != "" && strings.TrimSpace(a.PasswordHash) != ""
}

// Authenticate reports whether r carries the admin credentials.
func (a BasicAuth) Authenticate(r *http.Request) bool {
	user, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) == 1
	// bcrypt runs even when the user name is wrong.
	passwordMatch := VerifyPassword(a.PasswordHash, password)
	return userMatch && passwordMatch
}

// Challenge writes a 401 asking the client for credentials.
func (a BasicAuth) Challenge(w http.ResponseWriter) {
	realm := a.Realm
	if realm == "" {
		realm = "lottiecolor"
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

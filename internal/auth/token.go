package auth

import "net/http"

// TokenFromRequest reads the session token, preferring the header used
// by API clients over the cookie set for browsers at login.
func TokenFromRequest(r *http.Request) string {
	if token := r.Header.Get(SessionHeader); token != "" {
		return token
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// internal/pkg/session/codec.go
package session

import (
	"net/http"

	"better-together-service/internal/domain/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// AccessCookie holds the short-lived access token; its lifetime follows
	// the provider-issued expires_in.
	AccessCookie = "sb-access-token"
	// RefreshCookie holds the refresh token. Its lifetime must always be at
	// least the access token's so a session can be renewed.
	RefreshCookie = "sb-refresh-token"

	refreshCookieMaxAge = 7 * 24 * 60 * 60
	cookiePath          = "/"
)

// Codec translates a token pair to and from the auth cookie pair. It is
// pure cookie plumbing: no network calls, no token verification, and the
// two cookies are always written or cleared together.
type Codec struct{}

func NewCodec() Codec {
	return Codec{}
}

// Encode writes the cookie pair. The access cookie expires with the token;
// the refresh cookie outlives it to allow renewal. Both are httpOnly,
// secure, sameSite=lax and scoped to the whole site.
func (Codec) Encode(c *gin.Context, pair auth.TokenPair) {
	maxAge := pair.ExpiresIn
	if maxAge <= 0 {
		maxAge = 3600
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, pair.AccessToken, maxAge, cookiePath, "", true, true)
	c.SetCookie(RefreshCookie, pair.RefreshToken, refreshCookieMaxAge, cookiePath, "", true, true)
}

// Decode reads the cookie pair from the request. It returns ok=false when
// either cookie is missing or the access token is not structurally a JWT; a
// lone or mangled cookie falls through to unauthenticated instead of
// failing the request.
func (Codec) Decode(c *gin.Context) (auth.TokenPair, bool) {
	access, err := c.Cookie(AccessCookie)
	if err != nil || access == "" {
		return auth.TokenPair{}, false
	}
	refresh, err := c.Cookie(RefreshCookie)
	if err != nil || refresh == "" {
		return auth.TokenPair{}, false
	}

	// Structural check only. Claims are never read or trusted here; the
	// provider is the sole authority on token validity.
	if _, _, err := jwt.NewParser().ParseUnverified(access, jwt.MapClaims{}); err != nil {
		return auth.TokenPair{}, false
	}

	return auth.TokenPair{AccessToken: access, RefreshToken: refresh}, true
}

// RefreshToken reads just the refresh cookie. Used by the refresh flow,
// which must consult the latest cookie value when racing a rotation.
func (Codec) RefreshToken(c *gin.Context) string {
	v, err := c.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return v
}

// Clear deletes both cookies with the matching path.
func (Codec) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AccessCookie, "", -1, cookiePath, "", true, true)
	c.SetCookie(RefreshCookie, "", -1, cookiePath, "", true, true)
}

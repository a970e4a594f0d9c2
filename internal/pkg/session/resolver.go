// internal/pkg/session/resolver.go
package session

import (
	"better-together-service/internal/domain/auth"
	"better-together-service/internal/idp"
	xerrors "better-together-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// State is the terminal state of resolving one request's session.
type State int

const (
	// Anonymous: no usable cookie pair, or the provider rejected the token.
	Anonymous State = iota
	// Authenticated: the provider confirmed the identity behind the cookies.
	Authenticated
	// UpstreamUnavailable: the provider could not be reached. Kept distinct
	// from Anonymous so callers can answer 503 instead of 401.
	UpstreamUnavailable
)

// Resolution is the outcome of resolving a request. On Authenticated, User
// is set and Client is an IdP client scoped to the request's session.
type Resolution struct {
	State  State
	User   *auth.User
	Client *idp.Client
	Tokens auth.TokenPair
}

// Resolver recovers the current session from an incoming request. Stateless:
// every request is resolved from its cookies plus at most one provider call,
// and nothing is cached across requests.
type Resolver struct {
	idp   *idp.Client
	codec Codec
}

func NewResolver(client *idp.Client, codec Codec) *Resolver {
	return &Resolver{idp: client, codec: codec}
}

// Resolve runs the per-request state machine. Requests without cookies are
// Anonymous immediately, with no network call. The resolver never refreshes
// an expired session; that is an explicit client-initiated flow.
func (r *Resolver) Resolve(c *gin.Context) Resolution {
	pair, ok := r.codec.Decode(c)
	if !ok {
		return Resolution{State: Anonymous}
	}

	scoped := r.idp.WithSession(pair.AccessToken)
	user, err := scoped.GetUser(c.Request.Context())
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			return Resolution{State: UpstreamUnavailable}
		}
		return Resolution{State: Anonymous}
	}

	return Resolution{
		State:  Authenticated,
		User:   user,
		Client: scoped,
		Tokens: pair,
	}
}

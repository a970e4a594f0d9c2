// internal/service/auth/auth.go
package auth

import (
	"context"

	"better-together-service/internal/domain/auth"
	"better-together-service/internal/idp"
	xerrors "better-together-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Limiter throttles credential attempts. Implemented by
// session.RateLimiter on redis; tests substitute a permissive fake.
type Limiter interface {
	CheckLoginAttempt(ctx context.Context, ip, email string) (bool, error)
	ResetLoginAttempts(ctx context.Context, ip, email string) error
	CheckPasswordResetAttempt(ctx context.Context, email string) (bool, error)
}

// ProfileStore reads and writes the application-level profile row. The
// profile is merged into /me but never authoritative for authentication.
type ProfileStore interface {
	GetByUserID(ctx context.Context, userID string) (*auth.Profile, error)
	Update(ctx context.Context, userID, name, photoURL string) error
}

// AuthService orchestrates the identity provider, the rate limiter and the
// profile store. It holds no per-user state: every call is resolved from
// its arguments plus at most one provider round trip.
type AuthService struct {
	idp      *idp.Client
	limiter  Limiter
	profiles ProfileStore
	logger   *zap.Logger
}

func NewAuthService(client *idp.Client, limiter Limiter, profiles ProfileStore, logger *zap.Logger) *AuthService {
	return &AuthService{
		idp:      client,
		limiter:  limiter,
		profiles: profiles,
		logger:   logger,
	}
}

// IdP exposes the anon-scoped provider client for request-scoped use.
func (s *AuthService) IdP() *idp.Client {
	return s.idp
}

// Signup registers a user. A nil token pair means the provider requires
// email confirmation and no session was issued.
func (s *AuthService) Signup(ctx context.Context, req *auth.SignupRequest) (*auth.User, *auth.TokenPair, error) {
	if allowed := s.checkLimit(ctx, req.IPAddress, req.Email); !allowed {
		return nil, nil, xerrors.ErrRateLimited
	}

	user, pair, err := s.idp.SignUp(ctx, idp.SignUpParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Metadata: req.Metadata,
	})
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login exchanges credentials for a session. All provider rejections come
// back as ErrInvalidCredentials; the caller must not differentiate further.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest) (*auth.User, *auth.TokenPair, error) {
	if allowed := s.checkLimit(ctx, req.IPAddress, req.Email); !allowed {
		return nil, nil, xerrors.ErrRateLimited
	}

	user, pair, err := s.idp.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, nil, err
	}

	if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email); err != nil {
		s.logger.Warn("failed to reset login attempts", zap.Error(err))
	}
	return user, pair, nil
}

// Logout invalidates the session at the provider, best effort. The caller
// clears cookies regardless, so a provider failure is only logged.
func (s *AuthService) Logout(ctx context.Context, accessToken string) {
	if accessToken == "" {
		return
	}
	if err := s.idp.WithSession(accessToken).SignOut(ctx); err != nil {
		s.logger.Warn("provider sign-out failed", zap.Error(err))
	}
}

// ForgotPassword asks the provider to send a reset email. Errors are
// swallowed here: the handler reports the same message either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	allowed, err := s.limiter.CheckPasswordResetAttempt(ctx, email)
	if err != nil {
		s.logger.Warn("rate limiter unavailable for password reset", zap.Error(err))
	} else if !allowed {
		s.logger.Info("password reset rate limited", zap.String("email", email))
		return
	}

	if err := s.idp.RequestPasswordReset(ctx, email); err != nil {
		s.logger.Error("password reset request failed", zap.Error(err))
	}
}

// ResetPassword sets a new password on the session behind accessToken.
func (s *AuthService) ResetPassword(ctx context.Context, accessToken, newPassword string) error {
	if len(newPassword) < 8 {
		return xerrors.ErrWeakPassword
	}
	_, err := s.idp.WithSession(accessToken).UpdateUser(ctx, idp.UpdateUserParams{Password: newPassword})
	return err
}

// Refresh rotates a token pair. Refresh tokens are single-use: when two
// concurrent requests race, the loser's token is already rotated. The losing
// call is retried exactly once against the latest cookie value; beyond that
// the session is unrecoverable and the caller must re-authenticate.
func (s *AuthService) Refresh(ctx context.Context, bodyToken, cookieToken string) (*auth.TokenPair, error) {
	token := bodyToken
	if token == "" {
		token = cookieToken
	}
	if token == "" {
		return nil, xerrors.ErrInvalidRefreshToken
	}

	_, pair, err := s.idp.Refresh(ctx, token)
	if err == nil {
		return pair, nil
	}
	if !xerrors.Is(err, xerrors.ErrInvalidRefreshToken) {
		return nil, err
	}

	// Single bounded retry with the latest cookie value; never a loop.
	if cookieToken == "" || cookieToken == token {
		return nil, err
	}
	_, pair, err = s.idp.Refresh(ctx, cookieToken)
	return pair, err
}

// GetProfile fetches the application profile row, best effort. A missing or
// unreachable profile never fails the request it decorates.
func (s *AuthService) GetProfile(ctx context.Context, userID string) *auth.Profile {
	if s.profiles == nil {
		return nil
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		s.logger.Warn("profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return profile
}

// UpdateProfile writes profile fields to the provider's user metadata and
// mirrors them into the application users table. The table write is best
// effort: provider metadata is the source of truth.
func (s *AuthService) UpdateProfile(ctx context.Context, accessToken, userID string, req *auth.UpdateProfileRequest) error {
	data := map[string]interface{}{}
	for k, v := range req.Metadata {
		data[k] = v
	}
	if req.Name != "" {
		data["name"] = req.Name
		data["full_name"] = req.Name
	}
	if req.AvatarURL != "" {
		data["avatar_url"] = req.AvatarURL
	}

	_, err := s.idp.WithSession(accessToken).UpdateUser(ctx, idp.UpdateUserParams{
		Phone: req.Phone,
		Data:  data,
	})
	if err != nil {
		return err
	}

	if s.profiles != nil {
		if err := s.profiles.Update(ctx, userID, req.Name, req.AvatarURL); err != nil {
			s.logger.Warn("users table update failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// checkLimit applies the attempt limiter, failing open when the limiter
// backend itself is down so an infra outage cannot lock every user out.
func (s *AuthService) checkLimit(ctx context.Context, ip, email string) bool {
	allowed, err := s.limiter.CheckLoginAttempt(ctx, ip, email)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return true
	}
	return allowed
}

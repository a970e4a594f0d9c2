// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"
	"time"

	"better-together-service/internal/domain/auth"
	"better-together-service/internal/middleware"
	xerrors "better-together-service/internal/pkg/errors"
	"better-together-service/internal/pkg/response"
	"better-together-service/internal/pkg/session"
	authUsecase "better-together-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Messages returned to clients. Credential failures share one message so
// responses for unknown email and wrong password are byte-identical.
const (
	msgInvalidCredentials = "Invalid email or password"
	msgResetRequested     = "If an account exists with this email, you will receive a password reset link."
	msgPasswordTooShort   = "Password must be at least 8 characters"
	msgUpstreamDown       = "Authentication service unavailable"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	codec       session.Codec
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, codec session.Codec, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		codec:       codec,
		logger:      logger,
	}
}

// ========== Signup ==========

// Signup registers a new user. When the provider's email-confirmation
// policy is enabled no session exists yet, so no cookies are set and the
// response flags confirmationRequired.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req auth.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.ValidationError(c, "Email and password are required")
		return
	}
	if req.Name == "" {
		response.ValidationError(c, "Name is required")
		return
	}
	req.IPAddress = c.ClientIP()

	user, pair, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("signup failed", zap.String("email", req.Email), zap.Error(err))
		switch {
		case xerrors.Is(err, xerrors.ErrRateLimited):
			response.TooManyRequests(c, "Too many attempts. Please try again later.")
		case xerrors.Is(err, xerrors.ErrWeakPassword):
			response.ValidationError(c, msgPasswordTooShort)
		case xerrors.Is(err, xerrors.ErrEmailTaken):
			response.ValidationError(c, "An account with this email already exists")
		case xerrors.Is(err, xerrors.ErrUpstreamUnavailable):
			response.Unavailable(c, msgUpstreamDown)
		default:
			response.ValidationError(c, "Failed to create account")
		}
		return
	}

	payload := userPayload(user, req.Name)

	if pair == nil {
		// Confirmation pending: this is not a login.
		response.JSON(c, http.StatusCreated, auth.SignupResponse{
			Success:              true,
			Message:              "Please check your email to confirm your account",
			User:                 payload,
			ConfirmationRequired: true,
		})
		return
	}

	h.codec.Encode(c, *pair)
	response.JSON(c, http.StatusCreated, auth.SignupResponse{
		Success: true,
		Message: "Account created successfully",
		User:    payload,
		Session: auth.NewSessionPayload(*pair),
	})
}

// ========== Login ==========

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.ValidationError(c, "Email and password are required")
		return
	}
	req.IPAddress = c.ClientIP()

	user, pair, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrRateLimited):
			response.TooManyRequests(c, "Too many login attempts. Please try again later.")
		case xerrors.Is(err, xerrors.ErrUpstreamUnavailable):
			response.Unavailable(c, msgUpstreamDown)
		default:
			// One message for every credential failure, to prevent
			// account enumeration.
			response.Unauthorized(c, msgInvalidCredentials)
		}
		return
	}

	h.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)

	h.codec.Encode(c, *pair)
	response.JSON(c, http.StatusOK, auth.LoginResponse{
		Success: true,
		Message: "Login successful",
		User:    userPayload(user, ""),
		Session: auth.NewSessionPayload(*pair),
		Token:   pair.AccessToken,
	})
}

// ========== Logout ==========

// Logout clears cookies unconditionally. The provider call is best effort:
// local session termination never depends on the remote call succeeding.
func (h *AuthHandler) Logout(c *gin.Context) {
	if pair, ok := h.codec.Decode(c); ok {
		h.authService.Logout(c.Request.Context(), pair.AccessToken)
	}
	h.codec.Clear(c)
	response.JSON(c, http.StatusOK, auth.MessageResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// ========== Password Management ==========

// ForgotPassword always answers with the same message whether or not the
// email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req auth.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	if req.Email == "" {
		response.ValidationError(c, "Email is required")
		return
	}

	h.authService.ForgotPassword(c.Request.Context(), req.Email)

	response.JSON(c, http.StatusOK, auth.MessageResponse{
		Success: true,
		Message: msgResetRequested,
	})
}

// ResetPassword completes a password reset using the recovery session the
// provider established via its reset link.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req auth.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}
	if req.NewPassword == "" {
		response.ValidationError(c, "New password is required")
		return
	}
	if len(req.NewPassword) < 8 {
		response.ValidationError(c, msgPasswordTooShort)
		return
	}

	pair, ok := h.codec.Decode(c)
	if !ok {
		response.ValidationError(c, "Failed to update password")
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), pair.AccessToken, req.NewPassword); err != nil {
		h.logger.Error("password update failed", zap.Error(err))
		switch {
		case xerrors.Is(err, xerrors.ErrWeakPassword):
			response.ValidationError(c, msgPasswordTooShort)
		case xerrors.Is(err, xerrors.ErrUpstreamUnavailable):
			response.Unavailable(c, msgUpstreamDown)
		default:
			response.ValidationError(c, "Failed to update password")
		}
		return
	}

	response.JSON(c, http.StatusOK, auth.MessageResponse{
		Success: true,
		Message: "Password has been reset successfully",
	})
}

// ========== Token Refresh ==========

// Refresh rotates the token pair. The token comes from the body or the
// refresh cookie; when a concurrent rotation already consumed it, the
// service retries once with the latest cookie value. An unrecoverable
// token clears both cookies so the client re-authenticates.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req auth.RefreshRequest
	_ = c.ShouldBindJSON(&req)
	cookieToken := h.codec.RefreshToken(c)

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, cookieToken)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			response.Unavailable(c, msgUpstreamDown)
			return
		}
		h.codec.Clear(c)
		response.Unauthorized(c, "Invalid or expired refresh token")
		return
	}

	h.codec.Encode(c, *pair)
	response.JSON(c, http.StatusOK, auth.RefreshResponse{
		Success: true,
		Session: auth.NewSessionPayload(*pair),
	})
}

// ========== Current User ==========

// Me returns the provider-confirmed identity merged with the optional
// application profile. Runs behind RequireAuth.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	me := auth.MeUser{
		ID:              user.ID,
		Email:           user.Email,
		EmailConfirmed:  user.EmailConfirmed(),
		Phone:           user.Phone,
		Name:            user.Name(),
		ProfilePhotoURL: user.AvatarURL(),
		Profile:         h.authService.GetProfile(c.Request.Context(), user.ID),
	}
	if !user.CreatedAt.IsZero() {
		me.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	if user.LastSignInAt != nil {
		me.LastSignInAt = user.LastSignInAt.Format(time.RFC3339)
	}

	response.JSON(c, http.StatusOK, auth.MeResponse{User: me})
}

// ========== OAuth ==========

// OAuth returns the provider authorization URL. No cookies are set here;
// the flow completes through a browser redirect outside this service.
func (h *AuthHandler) OAuth(c *gin.Context) {
	provider := c.Param("provider")

	url, err := h.authService.IdP().AuthorizeURL(provider)
	if err != nil {
		h.logger.Error("oauth initiation failed", zap.String("provider", provider), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to initiate OAuth login")
		return
	}

	response.JSON(c, http.StatusOK, auth.OAuthResponse{
		Success: true,
		URL:     url,
	})
}

// ========== Profile ==========

// UpdateProfile updates provider metadata and mirrors the change into the
// application users table. Runs behind RequireAuth.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req auth.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	pair, ok := middleware.GetTokens(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	if err := h.authService.UpdateProfile(c.Request.Context(), pair.AccessToken, userID, &req); err != nil {
		h.logger.Error("profile update failed", zap.String("user_id", userID), zap.Error(err))
		if xerrors.Is(err, xerrors.ErrUpstreamUnavailable) {
			response.Unavailable(c, msgUpstreamDown)
			return
		}
		response.Error(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	response.JSON(c, http.StatusOK, auth.MessageResponse{
		Success: true,
		Message: "Profile updated successfully",
	})
}

func userPayload(user *auth.User, fallbackName string) *auth.UserPayload {
	name := user.Name()
	if name == "" {
		name = fallbackName
	}
	return &auth.UserPayload{
		ID:              user.ID,
		Email:           user.Email,
		Name:            name,
		ProfilePhotoURL: user.AvatarURL(),
	}
}

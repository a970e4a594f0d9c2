// internal/domain/auth/dto.go
package auth

// SignupRequest for user registration
type SignupRequest struct {
	Email     string                 `json:"email"`
	Password  string                 `json:"password"`
	Name      string                 `json:"name"`
	Phone     string                 `json:"phone"`
	Metadata  map[string]interface{} `json:"metadata"`
	IPAddress string                 `json:"-"`
}

// LoginRequest for user login
type LoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	IPAddress string `json:"-"`
}

// ForgotPasswordRequest for requesting a password reset email
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest for completing a password reset
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// RefreshRequest for rotating the token pair. The token may instead be
// carried by the refresh cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// UpdateProfileRequest for profile updates
type UpdateProfileRequest struct {
	Name      string                 `json:"name"`
	Phone     string                 `json:"phone"`
	AvatarURL string                 `json:"avatar_url"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// UserPayload is the minimal user object returned by signup and login.
type UserPayload struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name,omitempty"`
	ProfilePhotoURL string `json:"profilePhotoUrl,omitempty"`
}

// SessionPayload mirrors the token pair for non-cookie clients.
type SessionPayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// SignupResponse for POST /signup
type SignupResponse struct {
	Success              bool            `json:"success"`
	Message              string          `json:"message"`
	User                 *UserPayload    `json:"user,omitempty"`
	Session              *SessionPayload `json:"session,omitempty"`
	ConfirmationRequired bool            `json:"confirmationRequired,omitempty"`
}

// LoginResponse for POST /login. Token duplicates the access token for
// mobile clients that do not use cookies.
type LoginResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	User    *UserPayload    `json:"user"`
	Session *SessionPayload `json:"session"`
	Token   string          `json:"token"`
}

// RefreshResponse for POST /refresh
type RefreshResponse struct {
	Success bool            `json:"success"`
	Session *SessionPayload `json:"session"`
}

// MessageResponse for endpoints that only report an outcome
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// MeUser is the user object returned by GET /me, merged with the optional
// application profile.
type MeUser struct {
	ID              string   `json:"id"`
	Email           string   `json:"email"`
	EmailConfirmed  bool     `json:"emailConfirmed"`
	Phone           string   `json:"phone,omitempty"`
	Name            string   `json:"name,omitempty"`
	ProfilePhotoURL string   `json:"profilePhotoUrl,omitempty"`
	CreatedAt       string   `json:"createdAt"`
	LastSignInAt    string   `json:"lastSignInAt,omitempty"`
	Profile         *Profile `json:"profile"`
}

// MeResponse for GET /me
type MeResponse struct {
	User MeUser `json:"user"`
}

// OAuthResponse for POST /oauth/:provider
type OAuthResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

func NewSessionPayload(pair TokenPair) *SessionPayload {
	return &SessionPayload{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}
}

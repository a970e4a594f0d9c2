// internal/domain/auth/entity.go
package auth

import (
	"time"
)

// User is the identity record as confirmed by the identity provider.
// The server never derives any of these fields from token claims on its own.
type User struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	UserMetadata     map[string]interface{} `json:"user_metadata,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	LastSignInAt     *time.Time             `json:"last_sign_in_at,omitempty"`
}

// EmailConfirmed reports whether the provider has confirmed the user's email.
func (u *User) EmailConfirmed() bool {
	return u.EmailConfirmedAt != nil
}

// Name returns the display name from provider metadata, preferring "name"
// over "full_name" as the original clients wrote both.
func (u *User) Name() string {
	if u.UserMetadata == nil {
		return ""
	}
	if v, ok := u.UserMetadata["name"].(string); ok && v != "" {
		return v
	}
	if v, ok := u.UserMetadata["full_name"].(string); ok {
		return v
	}
	return ""
}

// AvatarURL returns the avatar from provider metadata, if any.
func (u *User) AvatarURL() string {
	if u.UserMetadata == nil {
		return ""
	}
	v, _ := u.UserMetadata["avatar_url"].(string)
	return v
}

// TokenPair is the credential pair issued by the identity provider.
// It lives for one request/response cycle; the only durable copy is the
// client's cookie jar.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Valid reports whether both halves of the pair are present. A lone access
// token cannot be renewed and is treated as not-a-session.
func (t TokenPair) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

// Profile is the optional application-level record keyed by user id.
// Referenced, not owned: it is merged into /me but never authoritative
// for authentication.
type Profile struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	Nickname  string                 `json:"nickname,omitempty"`
	PhotoURL  string                 `json:"photo_url,omitempty"`
	Timezone  string                 `json:"timezone,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

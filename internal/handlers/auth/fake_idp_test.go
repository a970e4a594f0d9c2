package auth_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// fakeIdP is an in-memory GoTrue-style identity provider. It issues
// JWT-shaped access tokens and rotates refresh tokens on every successful
// refresh, mirroring the real provider's single-use semantics.
type fakeIdP struct {
	t   *testing.T
	srv *httptest.Server

	mu                   sync.Mutex
	confirmationRequired bool
	failWith             int // when non-zero, every call answers this status

	users         map[string]*fakeUser // by email
	accessTokens  map[string]string    // access token -> email
	refreshTokens map[string]string    // refresh token -> email
	seq           int

	recoverEmails []string
	signOutCalls  int
}

type fakeUser struct {
	id       string
	email    string
	password string
	name     string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	f := &fakeIdP{
		t:             t,
		users:         map[string]*fakeUser{},
		accessTokens:  map[string]string{},
		refreshTokens: map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/signup", f.handleSignup)
	mux.HandleFunc("POST /auth/v1/token", f.handleToken)
	mux.HandleFunc("GET /auth/v1/user", f.handleGetUser)
	mux.HandleFunc("PUT /auth/v1/user", f.handleUpdateUser)
	mux.HandleFunc("POST /auth/v1/logout", f.handleLogout)
	mux.HandleFunc("POST /auth/v1/recover", f.handleRecover)
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		fail := f.failWith
		f.mu.Unlock()
		if fail != 0 {
			w.WriteHeader(fail)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) URL() string { return f.srv.URL }

func (f *fakeIdP) register(email, password, name string) *fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	u := &fakeUser{
		id:       fmt.Sprintf("user-%d", f.seq),
		email:    email,
		password: password,
		name:     name,
	}
	f.users[email] = u
	return u
}

// issueSession mints a JWT-shaped access token and a fresh refresh token.
// Callers must hold f.mu.
func (f *fakeIdP) issueSession(u *fakeUser) map[string]interface{} {
	f.seq++
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.id,
		"email": u.email,
	}).SignedString([]byte("fake-idp-secret"))
	require.NoError(f.t, err)

	refresh := fmt.Sprintf("refresh-%d", f.seq)
	f.accessTokens[access] = u.email
	f.refreshTokens[refresh] = u.email

	return map[string]interface{}{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": refresh,
		"user":          f.userJSON(u),
	}
}

func (f *fakeIdP) userJSON(u *fakeUser) map[string]interface{} {
	return map[string]interface{}{
		"id":                 u.id,
		"email":              u.email,
		"email_confirmed_at": "2026-01-02T15:04:05Z",
		"created_at":         "2026-01-01T00:00:00Z",
		"last_sign_in_at":    "2026-01-02T15:04:05Z",
		"user_metadata":      map[string]interface{}{"name": u.name, "full_name": u.name},
	}
}

func (f *fakeIdP) bearerUser(r *http.Request) *fakeUser {
	auth := r.Header.Get("Authorization")
	if len(auth) < 8 {
		return nil
	}
	email, ok := f.accessTokens[auth[len("Bearer "):]]
	if !ok {
		return nil
	}
	return f.users[email]
}

func (f *fakeIdP) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string                 `json:"email"`
		Password string                 `json:"password"`
		Data     map[string]interface{} `json:"data"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.users[body.Email]; exists {
		writeError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}
	if len(body.Password) < 8 {
		writeError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 8 characters")
		return
	}

	name, _ := body.Data["name"].(string)
	f.seq++
	u := &fakeUser{
		id:       fmt.Sprintf("user-%d", f.seq),
		email:    body.Email,
		password: body.Password,
		name:     name,
	}
	f.users[body.Email] = u

	if f.confirmationRequired {
		json.NewEncoder(w).Encode(f.userJSON(u))
		return
	}
	json.NewEncoder(w).Encode(f.issueSession(u))
}

func (f *fakeIdP) handleToken(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Query().Get("grant_type") {
	case "password":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		u, ok := f.users[body.Email]
		if !ok || u.password != body.Password {
			// Unknown user and wrong password are indistinguishable
			writeError(w, http.StatusBadRequest, "invalid_grant", "Invalid login credentials")
			return
		}
		json.NewEncoder(w).Encode(f.issueSession(u))

	case "refresh_token":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
		email, ok := f.refreshTokens[body.RefreshToken]
		if !ok {
			writeError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token")
			return
		}
		// Rotation: the used token is gone for good
		delete(f.refreshTokens, body.RefreshToken)
		json.NewEncoder(w).Encode(f.issueSession(f.users[email]))

	default:
		writeError(w, http.StatusBadRequest, "invalid_grant", "unsupported grant type")
	}
}

func (f *fakeIdP) handleGetUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.bearerUser(r)
	if u == nil {
		writeError(w, http.StatusUnauthorized, "", "invalid JWT")
		return
	}
	json.NewEncoder(w).Encode(f.userJSON(u))
}

func (f *fakeIdP) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.bearerUser(r)
	if u == nil {
		writeError(w, http.StatusUnauthorized, "", "invalid JWT")
		return
	}
	var body struct {
		Password string                 `json:"password"`
		Data     map[string]interface{} `json:"data"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	if body.Password != "" {
		if len(body.Password) < 8 {
			writeError(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 8 characters")
			return
		}
		u.password = body.Password
	}
	if name, ok := body.Data["name"].(string); ok && name != "" {
		u.name = name
	}
	json.NewEncoder(w).Encode(f.userJSON(u))
}

func (f *fakeIdP) handleLogout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeIdP) handleRecover(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&body))
	f.mu.Lock()
	f.recoverEmails = append(f.recoverEmails, body.Email)
	f.mu.Unlock()
	json.NewEncoder(w).Encode(map[string]interface{}{})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":       status,
		"error_code": code,
		"msg":        msg,
	})
}

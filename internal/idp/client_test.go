package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xerrors "better-together-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		AnonKey: "anon-key",
		SiteURL: "https://app.example.com",
		Timeout: 2 * time.Second,
	}
}

func TestSignIn(t *testing.T) {
	t.Run("success returns user and token pair", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/auth/v1/token", r.URL.Path)
			require.Equal(t, "password", r.URL.Query().Get("grant_type"))
			require.Equal(t, "anon-key", r.Header.Get("apikey"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "a@x.com", body["email"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
				"expires_in":    3600,
				"token_type":    "bearer",
				"user":          map[string]interface{}{"id": "user-1", "email": "a@x.com"},
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		user, pair, err := client.SignIn(context.Background(), "a@x.com", "longpassword1")
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "at-1", pair.AccessToken)
		assert.Equal(t, "rt-1", pair.RefreshToken)
		assert.Equal(t, 3600, pair.ExpiresIn)
	})

	t.Run("any rejection maps to invalid credentials", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		_, _, err := client.SignIn(context.Background(), "a@x.com", "wrong")
		assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
	})

	t.Run("provider outage is not a credential failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		_, _, err := client.SignIn(context.Background(), "a@x.com", "longpassword1")
		assert.ErrorIs(t, err, xerrors.ErrUpstreamUnavailable)
		assert.NotErrorIs(t, err, xerrors.ErrInvalidCredentials)
	})

	t.Run("timeout maps to upstream unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer srv.Close()

		cfg := testConfig(srv.URL)
		cfg.Timeout = 50 * time.Millisecond
		client := NewClient(cfg)
		_, _, err := client.SignIn(context.Background(), "a@x.com", "longpassword1")
		assert.ErrorIs(t, err, xerrors.ErrUpstreamUnavailable)
	})
}

func TestSignUp(t *testing.T) {
	t.Run("confirmation disabled yields session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/auth/v1/signup", r.URL.Path)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			data := body["data"].(map[string]interface{})
			require.Equal(t, "A", data["name"])
			require.Equal(t, "A", data["full_name"])

			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  "at-1",
				"refresh_token": "rt-1",
				"expires_in":    3600,
				"user":          map[string]interface{}{"id": "user-1", "email": "a@x.com"},
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		user, pair, err := client.SignUp(context.Background(), SignUpParams{
			Email: "a@x.com", Password: "longpassword1", Name: "A",
		})
		require.NoError(t, err)
		require.NotNil(t, pair)
		assert.Equal(t, "user-1", user.ID)
	})

	t.Run("confirmation pending yields user without session", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":    "user-2",
				"email": "b@x.com",
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		user, pair, err := client.SignUp(context.Background(), SignUpParams{
			Email: "b@x.com", Password: "longpassword1", Name: "B",
		})
		require.NoError(t, err)
		assert.Nil(t, pair)
		assert.Equal(t, "user-2", user.ID)
	})

	t.Run("duplicate email maps to email taken", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		_, _, err := client.SignUp(context.Background(), SignUpParams{
			Email: "a@x.com", Password: "longpassword1", Name: "A",
		})
		assert.ErrorIs(t, err, xerrors.ErrEmailTaken)
	})
}

func TestRefresh(t *testing.T) {
	t.Run("rotated token is rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{
				"error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token",
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL))
		_, _, err := client.Refresh(context.Background(), "stale")
		assert.ErrorIs(t, err, xerrors.ErrInvalidRefreshToken)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("requires session context", func(t *testing.T) {
		client := NewClient(testConfig("http://idp.invalid"))
		_, err := client.UpdateUser(context.Background(), UpdateUserParams{Password: "longpassword1"})
		assert.ErrorIs(t, err, xerrors.ErrNotAuthenticated)
	})

	t.Run("policy violation maps to weak password", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 422, "error_code": "weak_password", "msg": "Password should be at least 8 characters",
			})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL)).WithSession("at-1")
		_, err := client.UpdateUser(context.Background(), UpdateUserParams{Password: "short"})
		assert.ErrorIs(t, err, xerrors.ErrWeakPassword)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("rejected token is not authenticated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 401, "msg": "invalid JWT"})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL)).WithSession("expired")
		_, err := client.GetUser(context.Background())
		assert.ErrorIs(t, err, xerrors.ErrNotAuthenticated)
		assert.NotErrorIs(t, err, xerrors.ErrUpstreamUnavailable)
	})

	t.Run("sends user token not anon key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
			require.Equal(t, "anon-key", r.Header.Get("apikey"))
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "user-1", "email": "a@x.com"})
		}))
		defer srv.Close()

		client := NewClient(testConfig(srv.URL)).WithSession("user-token")
		user, err := client.GetUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
	})
}

func TestAuthorizeURL(t *testing.T) {
	client := NewClient(testConfig("https://idp.example.com"))

	t.Run("builds provider url locally", func(t *testing.T) {
		url, err := client.AuthorizeURL("google")
		require.NoError(t, err)
		assert.Equal(t,
			"https://idp.example.com/auth/v1/authorize?provider=google&redirect_to=https%3A%2F%2Fapp.example.com%2Fauth%2Fcallback",
			url)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := client.AuthorizeURL("myspace")
		assert.Error(t, err)
	})
}

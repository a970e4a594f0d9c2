// internal/repository/postgres/profile_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"better-together-service/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository reads and writes the application users table. The row
// is keyed by the identity provider's user id; it decorates /me responses
// and is never consulted for authentication.
type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID fetches the profile row. A missing row is not an error; the
// caller renders profile as null.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*auth.Profile, error) {
	query := `
		SELECT id, name, nickname, photo_url, timezone, metadata, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var (
		profile  auth.Profile
		name     *string
		nickname *string
		photoURL *string
		timezone *string
		metadata []byte
	)
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID, &name, &nickname, &photoURL, &timezone,
		&metadata, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}

	profile.Name = deref(name)
	profile.Nickname = deref(nickname)
	profile.PhotoURL = deref(photoURL)
	profile.Timezone = deref(timezone)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &profile.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode profile metadata: %w", err)
		}
	}

	return &profile, nil
}

// Update mirrors provider metadata changes into the users table. Only the
// fields the caller actually set are written.
func (r *ProfileRepository) Update(ctx context.Context, userID, name, photoURL string) error {
	query := `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    photo_url = COALESCE(NULLIF($3, ''), photo_url),
		    updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, userID, name, photoURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no profile row for user %s", userID)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

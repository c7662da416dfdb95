package db

import (
	"context"
	"log"

	"pinboard-backend/internal/models"
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.bio, u.avatar_id, u.avatar_url, u.created_at,
	COALESCE((SELECT array_agg(f.follower_id ORDER BY f.created_at) FROM follows f WHERE f.following_id = u.id), '{}'),
	COALESCE((SELECT array_agg(f.following_id ORDER BY f.created_at) FROM follows f WHERE f.follower_id = u.id), '{}')`

func (r *Repository) CreateUser(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (id, name, email, password_hash, bio, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, u.ID, u.Name, u.Email, u.PasswordHash, u.Bio, u.CreatedAt)
	return translate(err)
}

func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1`, email)
}

func (r *Repository) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var u models.User
	var avatarID, avatarURL string
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Bio, &avatarID, &avatarURL, &u.CreatedAt,
		&u.Followers, &u.Following,
	)
	if err != nil {
		return nil, translate(err)
	}
	u.ProfilePic = imageOrNil(avatarID, avatarURL)
	return &u, nil
}

// UpdateUser persists name, bio and profile picture
func (r *Repository) UpdateUser(ctx context.Context, u *models.User) error {
	var avatarID, avatarURL string
	if u.ProfilePic != nil {
		avatarID, avatarURL = u.ProfilePic.ID, u.ProfilePic.URL
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, bio = $3, avatar_id = $4, avatar_url = $5 WHERE id = $1`,
		u.ID, u.Name, u.Bio, avatarID, avatarURL)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleFollow flips the follower -> target relation in one transaction and
// reports whether follower now follows target.
func (r *Repository) ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`, followerID, targetID)
	if err != nil {
		return false, translate(err)
	}

	following := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `INSERT INTO follows (follower_id, following_id) VALUES ($1, $2)`, followerID, targetID)
		if err != nil {
			return false, translate(err)
		}
		following = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}

	log.Printf("[DB] follow %s -> %s: %t", followerID, targetID, following)
	return following, nil
}

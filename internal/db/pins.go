package db

import (
	"context"
	"fmt"

	"pinboard-backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// Feed order: newest first, insertion order breaking timestamp ties
const (
	pinFeedOrder   = `ORDER BY p.created_at DESC, p.seq DESC`
	savedFeedOrder = `ORDER BY mine.created_at DESC, mine.seq DESC`
)

const pinColumns = `p.id, p.title, p.body, p.image_id, p.image_url, p.owner_id, p.created_at,
	COALESCE((SELECT array_agg(s.user_id ORDER BY s.created_at, s.seq) FROM pin_saves s WHERE s.pin_id = p.id), '{}')`

func scanPin(row pgx.Row, extra ...any) (models.Pin, error) {
	var p models.Pin
	dest := []any{&p.ID, &p.Title, &p.Body, &p.Image.ID, &p.Image.URL, &p.Owner, &p.CreatedAt, &p.SavedBy}
	err := row.Scan(append(dest, extra...)...)
	return p, err
}

func (r *Repository) CreatePin(ctx context.Context, p *models.Pin) error {
	query := `INSERT INTO pins (id, title, body, image_id, image_url, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, p.ID, p.Title, p.Body, p.Image.ID, p.Image.URL, p.Owner, p.CreatedAt)
	return translate(err)
}

// GetPin loads a pin with its comments, saved set and owner profile
func (r *Repository) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	query := `
		SELECT ` + pinColumns + `,
			u.name, u.bio, u.avatar_id, u.avatar_url,
			COALESCE((SELECT array_agg(f.follower_id ORDER BY f.created_at) FROM follows f WHERE f.following_id = u.id), '{}'),
			COALESCE((SELECT array_agg(f.following_id ORDER BY f.created_at) FROM follows f WHERE f.follower_id = u.id), '{}')
		FROM pins p
		JOIN users u ON u.id = p.owner_id
		WHERE p.id = $1
	`
	var owner models.PinOwner
	var avatarID, avatarURL string
	p, err := scanPin(r.pool.QueryRow(ctx, query, id),
		&owner.Name, &owner.Bio, &avatarID, &avatarURL, &owner.Followers, &owner.Following)
	if err != nil {
		return nil, translate(err)
	}
	owner.ID = p.Owner
	owner.ProfilePic = imageOrNil(avatarID, avatarURL)
	p.OwnerInfo = &owner

	comments, err := r.listComments(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Comments = comments

	return &p, nil
}

func (r *Repository) listComments(ctx context.Context, pinID string) ([]models.Comment, error) {
	query := `SELECT id, user_id, name, text, created_at FROM pin_comments WHERE pin_id = $1 ORDER BY seq`
	rows, err := r.pool.Query(ctx, query, pinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ListPins returns every pin, newest first
func (r *Repository) ListPins(ctx context.Context) ([]models.Pin, error) {
	query := `SELECT ` + pinColumns + ` FROM pins p ` + pinFeedOrder
	return r.queryPins(ctx, query)
}

// ListPinsByOwner returns the pins owned by ownerID, newest first
func (r *Repository) ListPinsByOwner(ctx context.Context, ownerID string) ([]models.Pin, error) {
	query := `SELECT ` + pinColumns + ` FROM pins p WHERE p.owner_id = $1 ` + pinFeedOrder
	return r.queryPins(ctx, query, ownerID)
}

func (r *Repository) queryPins(ctx context.Context, query string, args ...any) ([]models.Pin, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pins := []models.Pin{}
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

// ListSavedPins returns the pins saved by userID with owner name and avatar resolved
func (r *Repository) ListSavedPins(ctx context.Context, userID string) ([]models.Pin, error) {
	query := `
		SELECT ` + pinColumns + `, u.name, u.avatar_id, u.avatar_url
		FROM pins p
		JOIN pin_saves mine ON mine.pin_id = p.id AND mine.user_id = $1
		JOIN users u ON u.id = p.owner_id
		` + savedFeedOrder
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pins := []models.Pin{}
	for rows.Next() {
		var name, avatarID, avatarURL string
		p, err := scanPin(rows, &name, &avatarID, &avatarURL)
		if err != nil {
			return nil, err
		}
		p.OwnerInfo = &models.PinOwner{ID: p.Owner, Name: name, ProfilePic: imageOrNil(avatarID, avatarURL)}
		pins = append(pins, p)
	}
	return pins, rows.Err()
}

func (r *Repository) UpdatePin(ctx context.Context, id, title, body string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE pins SET title = $2, body = $3 WHERE id = $1`, id, title, body)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePin removes a pin; comments and saves cascade
func (r *Repository) DeletePin(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pins WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) AddComment(ctx context.Context, pinID string, c *models.Comment) error {
	query := `INSERT INTO pin_comments (id, pin_id, user_id, name, text, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, query, c.ID, pinID, c.UserID, c.Name, c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("add comment: %w", translate(err))
	}
	return nil
}

func (r *Repository) DeleteComment(ctx context.Context, pinID, commentID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM pin_comments WHERE pin_id = $1 AND id = $2`, pinID, commentID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddSave records that userID saved pinID. Saving twice is a no-op.
func (r *Repository) AddSave(ctx context.Context, pinID, userID string) error {
	query := `INSERT INTO pin_saves (pin_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, query, pinID, userID)
	return translate(err)
}

func (r *Repository) RemoveSave(ctx context.Context, pinID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pin_saves WHERE pin_id = $1 AND user_id = $2`, pinID, userID)
	return translate(err)
}

func imageOrNil(id, url string) *models.Image {
	if id == "" && url == "" {
		return nil
	}
	return &models.Image{ID: id, URL: url}
}

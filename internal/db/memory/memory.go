// Package memory is an in-process implementation of the pin and user store.
// It backs STORE_DRIVER=memory for local development and the service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"pinboard-backend/internal/db"
	"pinboard-backend/internal/models"
)

type savedEntry struct {
	userID  string
	savedAt int64
}

type pinRecord struct {
	pin   models.Pin
	seq   int64
	saves []savedEntry
}

type followEntry struct {
	follower, following string
}

// Store keeps every record in maps guarded by one RWMutex
type Store struct {
	mu      sync.RWMutex
	seq     int64
	pins    map[string]*pinRecord
	users   map[string]*models.User
	emails  map[string]string
	follows []followEntry
}

func New() *Store {
	return &Store{
		pins:   make(map[string]*pinRecord),
		users:  make(map[string]*models.User),
		emails: make(map[string]string),
	}
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) CreatePin(_ context.Context, p *models.Pin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pins[p.ID]; exists {
		return db.ErrDuplicate
	}
	if _, exists := s.users[p.Owner]; !exists {
		return db.ErrNotFound
	}
	rec := &pinRecord{pin: *p, seq: s.next()}
	rec.pin.Comments = append([]models.Comment(nil), p.Comments...)
	rec.pin.OwnerInfo = nil
	rec.pin.SavedBy = nil
	s.pins[p.ID] = rec
	return nil
}

func (s *Store) GetPin(_ context.Context, id string) (*models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.pins[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	p := s.snapshot(rec)
	p.Comments = append([]models.Comment{}, rec.pin.Comments...)

	if owner, ok := s.users[p.Owner]; ok {
		followers, following := s.followLists(owner.ID)
		p.OwnerInfo = &models.PinOwner{
			ID:         owner.ID,
			Name:       owner.Name,
			Bio:        owner.Bio,
			ProfilePic: copyImage(owner.ProfilePic),
			Followers:  followers,
			Following:  following,
		}
	}
	return &p, nil
}

func (s *Store) ListPins(_ context.Context) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(*pinRecord) bool { return true }), nil
}

func (s *Store) ListPinsByOwner(_ context.Context, ownerID string) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(rec *pinRecord) bool { return rec.pin.Owner == ownerID }), nil
}

func (s *Store) ListSavedPins(_ context.Context, userID string) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type saved struct {
		pin models.Pin
		at  int64
	}
	var hits []saved
	for _, rec := range s.pins {
		for _, e := range rec.saves {
			if e.userID != userID {
				continue
			}
			p := s.snapshot(rec)
			if owner, ok := s.users[p.Owner]; ok {
				p.OwnerInfo = &models.PinOwner{ID: owner.ID, Name: owner.Name, ProfilePic: copyImage(owner.ProfilePic)}
			}
			hits = append(hits, saved{pin: p, at: e.savedAt})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].at > hits[j].at })

	pins := make([]models.Pin, 0, len(hits))
	for _, h := range hits {
		pins = append(pins, h.pin)
	}
	return pins, nil
}

func (s *Store) UpdatePin(_ context.Context, id, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[id]
	if !ok {
		return db.ErrNotFound
	}
	rec.pin.Title = title
	rec.pin.Body = body
	return nil
}

func (s *Store) DeletePin(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pins[id]; !ok {
		return db.ErrNotFound
	}
	delete(s.pins, id)
	return nil
}

func (s *Store) AddComment(_ context.Context, pinID string, c *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[pinID]
	if !ok {
		return db.ErrNotFound
	}
	rec.pin.Comments = append(rec.pin.Comments, *c)
	return nil
}

func (s *Store) DeleteComment(_ context.Context, pinID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[pinID]
	if !ok {
		return db.ErrNotFound
	}
	for i, c := range rec.pin.Comments {
		if c.ID == commentID {
			rec.pin.Comments = append(rec.pin.Comments[:i:i], rec.pin.Comments[i+1:]...)
			return nil
		}
	}
	return db.ErrNotFound
}

func (s *Store) AddSave(_ context.Context, pinID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[pinID]
	if !ok {
		return db.ErrNotFound
	}
	for _, e := range rec.saves {
		if e.userID == userID {
			return nil
		}
	}
	rec.saves = append(rec.saves, savedEntry{userID: userID, savedAt: s.next()})
	return nil
}

func (s *Store) RemoveSave(_ context.Context, pinID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.pins[pinID]
	if !ok {
		return nil
	}
	kept := rec.saves[:0:0]
	for _, e := range rec.saves {
		if e.userID != userID {
			kept = append(kept, e)
		}
	}
	rec.saves = kept
	return nil
}

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.emails[u.Email]; taken {
		return db.ErrDuplicate
	}
	if _, exists := s.users[u.ID]; exists {
		return db.ErrDuplicate
	}
	stored := *u
	stored.ProfilePic = copyImage(u.ProfilePic)
	stored.Followers, stored.Following = nil, nil
	s.users[u.ID] = &stored
	s.emails[u.Email] = u.ID
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userSnapshot(id)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, db.ErrNotFound
	}
	return s.userSnapshot(id)
}

func (s *Store) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[u.ID]
	if !ok {
		return db.ErrNotFound
	}
	stored.Name = u.Name
	stored.Bio = u.Bio
	stored.ProfilePic = copyImage(u.ProfilePic)
	return nil
}

func (s *Store) ToggleFollow(_ context.Context, followerID, targetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followerID]; !ok {
		return false, db.ErrNotFound
	}
	if _, ok := s.users[targetID]; !ok {
		return false, db.ErrNotFound
	}

	for i, f := range s.follows {
		if f.follower == followerID && f.following == targetID {
			s.follows = append(s.follows[:i:i], s.follows[i+1:]...)
			return false, nil
		}
	}
	s.follows = append(s.follows, followEntry{follower: followerID, following: targetID})
	return true, nil
}

// snapshot copies the pin row and its saved set; callers hold the lock
func (s *Store) snapshot(rec *pinRecord) models.Pin {
	p := rec.pin
	p.Comments = nil
	p.OwnerInfo = nil
	p.SavedBy = make([]string, 0, len(rec.saves))
	for _, e := range rec.saves {
		p.SavedBy = append(p.SavedBy, e.userID)
	}
	return p
}

func (s *Store) collect(keep func(*pinRecord) bool) []models.Pin {
	recs := make([]*pinRecord, 0, len(s.pins))
	for _, rec := range s.pins {
		if keep(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		ti, tj := recs[i].pin.CreatedAt, recs[j].pin.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return recs[i].seq > recs[j].seq
	})

	pins := make([]models.Pin, 0, len(recs))
	for _, rec := range recs {
		pins = append(pins, s.snapshot(rec))
	}
	return pins
}

func (s *Store) userSnapshot(id string) (*models.User, error) {
	stored, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	u := *stored
	u.ProfilePic = copyImage(stored.ProfilePic)
	u.Followers, u.Following = s.followLists(id)
	return &u, nil
}

func (s *Store) followLists(userID string) (followers, following []string) {
	followers, following = []string{}, []string{}
	for _, f := range s.follows {
		if f.following == userID {
			followers = append(followers, f.follower)
		}
		if f.follower == userID {
			following = append(following, f.following)
		}
	}
	return followers, following
}

func copyImage(img *models.Image) *models.Image {
	if img == nil {
		return nil
	}
	c := *img
	return &c
}

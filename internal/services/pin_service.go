package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pinboard-backend/internal/cache"
	"pinboard-backend/internal/db"
	"pinboard-backend/internal/media"
	"pinboard-backend/internal/models"

	"github.com/google/uuid"
)

// Cache keys and lifetimes
const (
	keyAllPins  = "ALL_PINS"
	allPinsTTL  = 60 * time.Second
	pinTTL      = 120 * time.Second
	userPinsTTL = 60 * time.Second
)

// MaxPinImageSize is the largest accepted pin upload
const MaxPinImageSize = 10 << 20

func pinKey(id string) string { return "PIN:" + id }

func userPinsKey(userID string) string { return "USER_PINS:" + userID }

// PinStore is the persistence the pin service needs
type PinStore interface {
	CreatePin(ctx context.Context, p *models.Pin) error
	GetPin(ctx context.Context, id string) (*models.Pin, error)
	ListPins(ctx context.Context) ([]models.Pin, error)
	ListPinsByOwner(ctx context.Context, ownerID string) ([]models.Pin, error)
	ListSavedPins(ctx context.Context, userID string) ([]models.Pin, error)
	UpdatePin(ctx context.Context, id, title, body string) error
	DeletePin(ctx context.Context, id string) error
	AddComment(ctx context.Context, pinID string, c *models.Comment) error
	DeleteComment(ctx context.Context, pinID, commentID string) error
	AddSave(ctx context.Context, pinID, userID string) error
	RemoveSave(ctx context.Context, pinID, userID string) error
}

// Notifier receives live pin events
type Notifier interface {
	PublishPinEvent(pinID string, msg models.WSMessage)
}

type PinService struct {
	store              PinStore
	cache              cache.Cache
	media              media.Store
	notifier           Notifier
	strictMediaCleanup bool
	now                func() time.Time
}

type PinOption func(*PinService)

func WithNotifier(n Notifier) PinOption {
	return func(s *PinService) { s.notifier = n }
}

// WithStrictMediaCleanup makes DeletePin fail, keeping the record, when the
// image cannot be removed from the media store.
func WithStrictMediaCleanup(strict bool) PinOption {
	return func(s *PinService) { s.strictMediaCleanup = strict }
}

func NewPinService(store PinStore, c cache.Cache, m media.Store, opts ...PinOption) *PinService {
	s := &PinService{
		store: store,
		cache: c,
		media: m,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPins returns the global feed, newest first
func (s *PinService) ListPins(ctx context.Context) ([]models.Pin, error) {
	var pins []models.Pin
	if s.fromCache(ctx, keyAllPins, &pins) {
		return pins, nil
	}

	pins, err := s.store.ListPins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	if pins == nil {
		pins = []models.Pin{}
	}

	s.toCache(ctx, keyAllPins, pins, allPinsTTL)
	return pins, nil
}

// GetPin returns one pin with its owner, comments and saved set
func (s *PinService) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	var cached models.Pin
	if s.fromCache(ctx, pinKey(id), &cached) {
		return &cached, nil
	}

	pin, err := s.loadPin(ctx, id)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, pinKey(id), pin, pinTTL)
	return pin, nil
}

// ListUserPins returns the pins owned by ownerID, newest first
func (s *PinService) ListUserPins(ctx context.Context, ownerID string) ([]models.Pin, error) {
	var pins []models.Pin
	if s.fromCache(ctx, userPinsKey(ownerID), &pins) {
		return pins, nil
	}

	pins, err := s.store.ListPinsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list pins of %s: %w", ownerID, err)
	}
	if pins == nil {
		pins = []models.Pin{}
	}

	s.toCache(ctx, userPinsKey(ownerID), pins, userPinsTTL)
	return pins, nil
}

// ListSavedPins is not cached
func (s *PinService) ListSavedPins(ctx context.Context, userID string) ([]models.Pin, error) {
	pins, err := s.store.ListSavedPins(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved pins: %w", err)
	}
	if pins == nil {
		pins = []models.Pin{}
	}
	return pins, nil
}

// CreatePin uploads the image first; no record is written if the upload fails.
func (s *PinService) CreatePin(ctx context.Context, req models.CreatePinRequest) (*models.Pin, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, newError(ErrValidation, "Title is required")
	}
	if len(req.Image) == 0 {
		return nil, newError(ErrValidation, "File is required")
	}
	if len(req.Image) > MaxPinImageSize {
		return nil, newError(ErrValidation, "Image exceeds the 10 MB limit")
	}

	ext, err := media.DetectImage(req.Image)
	if err != nil {
		return nil, newError(ErrValidation, "Only image files are allowed")
	}

	img, err := s.media.Upload(ctx, media.FolderPins, "pin"+ext, req.Image)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	pin := &models.Pin{
		ID:        uuid.New().String(),
		Title:     title,
		Body:      req.Body,
		Image:     *img,
		Owner:     req.OwnerID,
		SavedBy:   []string{},
		CreatedAt: s.timestamp(),
	}
	if err := s.store.CreatePin(ctx, pin); err != nil {
		if delErr := s.media.Delete(ctx, img.ID); delErr != nil {
			log.Printf("[MEDIA] failed to remove orphaned upload %s: %v", img.ID, delErr)
		}
		return nil, fmt.Errorf("create pin: %w", err)
	}

	s.invalidate(ctx, keyAllPins, userPinsKey(pin.Owner))
	return pin, nil
}

// UpdatePin changes title and body. Only the owner may update.
func (s *PinService) UpdatePin(ctx context.Context, id, callerID, title, body string) (*models.Pin, error) {
	pin, err := s.loadPin(ctx, id)
	if err != nil {
		return nil, err
	}
	if pin.Owner != callerID {
		return nil, newError(ErrForbidden, "Unauthorized")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newError(ErrValidation, "Title is required")
	}

	if err := s.store.UpdatePin(ctx, id, title, body); err != nil {
		return nil, s.storeError(err, "No Pin with this id")
	}
	pin.Title = title
	pin.Body = body

	s.invalidate(ctx, keyAllPins, pinKey(id), userPinsKey(pin.Owner))
	s.publish(id, models.WSMessage{Event: models.EventPinUpdated, UserID: callerID, Pin: pin})
	return pin, nil
}

// DeletePin removes the image then the record. A media failure is logged and
// ignored unless strict media cleanup is enabled.
func (s *PinService) DeletePin(ctx context.Context, id, callerID string) error {
	pin, err := s.loadPin(ctx, id)
	if err != nil {
		return err
	}
	if pin.Owner != callerID {
		return newError(ErrForbidden, "Unauthorized")
	}

	if err := s.media.Delete(ctx, pin.Image.ID); err != nil {
		if s.strictMediaCleanup {
			return fmt.Errorf("delete image %s: %w", pin.Image.ID, err)
		}
		log.Printf("[MEDIA] failed to delete image %s of pin %s: %v", pin.Image.ID, id, err)
	}

	if err := s.store.DeletePin(ctx, id); err != nil {
		return s.storeError(err, "No Pin with this id")
	}

	s.invalidate(ctx, keyAllPins, pinKey(id), userPinsKey(pin.Owner))
	s.publish(id, models.WSMessage{Event: models.EventPinDeleted, UserID: callerID})
	return nil
}

func (s *PinService) AddComment(ctx context.Context, pinID, authorID, authorName, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, newError(ErrValidation, "Comment is required")
	}

	comment := &models.Comment{
		ID:        uuid.New().String(),
		UserID:    authorID,
		Name:      authorName,
		Text:      text,
		CreatedAt: s.timestamp(),
	}
	if err := s.store.AddComment(ctx, pinID, comment); err != nil {
		return nil, s.storeError(err, "No Pin with this Id")
	}

	s.invalidate(ctx, pinKey(pinID))
	s.publish(pinID, models.WSMessage{Event: models.EventCommentAdded, UserID: authorID, Comment: comment})
	return comment, nil
}

// DeleteComment removes a comment. Only its author may delete it.
func (s *PinService) DeleteComment(ctx context.Context, pinID, commentID, callerID string) error {
	if commentID == "" {
		return newError(ErrValidation, "Please give comment id")
	}

	pin, err := s.loadPin(ctx, pinID)
	if err != nil {
		return err
	}
	comment := pin.FindComment(commentID)
	if comment == nil {
		return newError(ErrNotFound, "Comment not found")
	}
	if comment.UserID != callerID {
		return newError(ErrForbidden, "You are not owner of this comment")
	}

	if err := s.store.DeleteComment(ctx, pinID, commentID); err != nil {
		return s.storeError(err, "Comment not found")
	}

	s.invalidate(ctx, pinKey(pinID))
	s.publish(pinID, models.WSMessage{Event: models.EventCommentDeleted, UserID: callerID, Comment: comment})
	return nil
}

// SavePin bookmarks another user's pin. It reports alreadySaved when the pin
// was in the user's saved set before the call.
func (s *PinService) SavePin(ctx context.Context, pinID, userID string) (alreadySaved bool, err error) {
	if pinID == "" {
		return false, newError(ErrValidation, "pinId is required")
	}

	pin, err := s.loadPin(ctx, pinID)
	if err != nil {
		return false, err
	}
	if pin.Owner == userID {
		return false, newError(ErrForbidden, "You cannot save your own pin")
	}
	if pin.IsSavedBy(userID) {
		return true, nil
	}

	if err := s.store.AddSave(ctx, pinID, userID); err != nil {
		return false, s.storeError(err, "Pin not found")
	}

	s.invalidate(ctx, keyAllPins, pinKey(pinID))
	return false, nil
}

// RemoveSavedPin is idempotent; removing an absent save is not an error.
func (s *PinService) RemoveSavedPin(ctx context.Context, pinID, userID string) error {
	if pinID == "" {
		return newError(ErrValidation, "pinId is required")
	}

	if err := s.store.RemoveSave(ctx, pinID, userID); err != nil {
		return fmt.Errorf("remove saved pin: %w", err)
	}

	s.invalidate(ctx, keyAllPins, pinKey(pinID))
	return nil
}

// loadPin reads a pin straight from the store
func (s *PinService) loadPin(ctx context.Context, id string) (*models.Pin, error) {
	if id == "" {
		return nil, newError(ErrNotFound, "Pin not found")
	}
	pin, err := s.store.GetPin(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "Pin not found")
	}
	return pin, nil
}

func (s *PinService) storeError(err error, notFound string) error {
	if errors.Is(err, db.ErrNotFound) {
		return newError(ErrNotFound, notFound)
	}
	return err
}

// timestamp is truncated to the store's precision so cached and stored copies agree
func (s *PinService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func (s *PinService) fromCache(ctx context.Context, key string, v any) bool {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("[CACHE] get %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("[CACHE] corrupt entry %s: %v", key, err)
		return false
	}
	return true
}

func (s *PinService) toCache(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[CACHE] encode %s: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, data, ttl); err != nil {
		log.Printf("[CACHE] set %s: %v", key, err)
	}
}

// invalidate deletes cache entries; the write has already been committed so
// failures are only logged.
func (s *PinService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("[CACHE] invalidate %v: %v", keys, err)
	}
}

func (s *PinService) publish(pinID string, msg models.WSMessage) {
	if s.notifier == nil {
		return
	}
	msg.PinID = pinID
	msg.Timestamp = s.now().UnixMilli()
	s.notifier.PublishPinEvent(pinID, msg)
}

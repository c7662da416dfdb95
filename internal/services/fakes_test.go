package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"pinboard-backend/internal/cache"
	"pinboard-backend/internal/db/memory"
	"pinboard-backend/internal/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// countingStore wraps the in-memory store and counts read queries
type countingStore struct {
	*memory.Store
	mu       sync.Mutex
	getPin   int
	listPins int
	byOwner  int
}

func (s *countingStore) GetPin(ctx context.Context, id string) (*models.Pin, error) {
	s.mu.Lock()
	s.getPin++
	s.mu.Unlock()
	return s.Store.GetPin(ctx, id)
}

func (s *countingStore) ListPins(ctx context.Context) ([]models.Pin, error) {
	s.mu.Lock()
	s.listPins++
	s.mu.Unlock()
	return s.Store.ListPins(ctx)
}

func (s *countingStore) ListPinsByOwner(ctx context.Context, ownerID string) ([]models.Pin, error) {
	s.mu.Lock()
	s.byOwner++
	s.mu.Unlock()
	return s.Store.ListPinsByOwner(ctx, ownerID)
}

// fakeMedia records uploads and deletions
type fakeMedia struct {
	mu        sync.Mutex
	n         int
	objects   map[string]string // id -> folder
	deleted   []string
	uploadErr error
	deleteErr error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{objects: make(map[string]string)}
}

func (m *fakeMedia) Upload(_ context.Context, folder, filename string, data []byte) (*models.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	m.n++
	id := fmt.Sprintf("%s/%d-%s", folder, m.n, filename)
	m.objects[id] = folder
	return &models.Image{ID: id, URL: "https://cdn.test/" + id}, nil
}

func (m *fakeMedia) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.objects, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *fakeMedia) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// brokenCache fails every call, like an unreachable Redis
type brokenCache struct{}

var errCacheDown = errors.New("cache unreachable")

func (brokenCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }
func (brokenCache) Close() error { return nil }

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (n *recordingNotifier) PublishPinEvent(pinID string, msg models.WSMessage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, msg)
}

type pinFixture struct {
	svc   *PinService
	store *countingStore
	cache *cache.Memory
	media *fakeMedia
	users *UserService
}

func newPinFixture(t *testing.T, opts ...PinOption) *pinFixture {
	t.Helper()
	store := &countingStore{Store: memory.New()}
	c := cache.NewMemory(0)
	t.Cleanup(func() { c.Close() })
	m := newFakeMedia()

	users := NewUserService(store, m, "test-secret")
	users.hashCost = bcrypt.MinCost

	return &pinFixture{
		svc:   NewPinService(store, c, m, opts...),
		store: store,
		cache: c,
		media: m,
		users: users,
	}
}

func (f *pinFixture) register(t *testing.T, name string) *models.User {
	t.Helper()
	res, err := f.users.Register(context.Background(), models.RegisterRequest{
		Name:     name,
		Email:    name + "@example.com",
		Password: "hunter2",
	})
	require.NoError(t, err)
	return res.User
}

func (f *pinFixture) createPin(t *testing.T, owner *models.User, title string) *models.Pin {
	t.Helper()
	pin, err := f.svc.CreatePin(context.Background(), models.CreatePinRequest{
		OwnerID: owner.ID,
		Title:   title,
		Body:    title + " body",
		Image:   tinyPNG(),
	})
	require.NoError(t, err)
	return pin
}

// tinyPNG is a valid 4x4 PNG
func tinyPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

package app

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pinboard-backend/internal/cache"
	"pinboard-backend/internal/config"
	"pinboard-backend/internal/db/memory"
	"pinboard-backend/internal/media"
	"pinboard-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t   *testing.T
	app *fiber.App
}

func newTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.StoreDriver = "memory"
	cfg.JWTSecret = "test-secret"
	cfg.AuthRateLimit = 0
	cfg.Media.UploadDir = t.TempDir()
	for _, fn := range mutate {
		fn(&cfg)
	}

	m, err := media.NewLocal(cfg.Media.UploadDir, "")
	require.NoError(t, err)
	c := cache.NewMemory(0)
	t.Cleanup(func() { c.Close() })

	return &testServer{t: t, app: NewServer(&cfg, memory.New(), c, m)}
}

func (s *testServer) do(req *http.Request, token string) *http.Response {
	s.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	return resp
}

// call sends an optional JSON payload and decodes the JSON response into out
func (s *testServer) call(method, path, token string, payload, out interface{}) int {
	s.t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(s.t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := s.do(req, token)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) register(name string) *models.AuthResponse {
	s.t.Helper()
	var res models.AuthResponse
	code := s.call(http.MethodPost, "/api/user/register", "", fiber.Map{
		"name": name, "email": name + "@example.com", "password": "hunter2",
	}, &res)
	require.Equal(s.t, http.StatusCreated, code)
	return &res
}

func (s *testServer) createPin(token, title string) *models.Pin {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(s.t, w.WriteField("title", title))
	require.NoError(s.t, w.WriteField("pin", title+" body"))
	fw, err := w.CreateFormFile("image", "photo.jpg")
	require.NoError(s.t, err)
	_, err = fw.Write(pngImage(s.t))
	require.NoError(s.t, err)
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pin/new", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := s.do(req, token)
	defer resp.Body.Close()
	require.Equal(s.t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Message string      `json:"message"`
		Pin     *models.Pin `json:"pin"`
	}
	require.NoError(s.t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(s.t, "Pin Created Successfully", out.Message)
	return out.Pin
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 6))))
	return buf.Bytes()
}

type apiMessage struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	var out map[string]string
	code := s.call(http.MethodGet, "/health", "", nil, &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
}

func TestServer_RequiresLogin(t *testing.T) {
	s := newTestServer(t)

	var out apiMessage
	code := s.call(http.MethodGet, "/api/pin/all", "", nil, &out)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Unauthorized", out.Error)
	assert.Equal(t, "Please Login", out.Message)

	code = s.call(http.MethodGet, "/api/pin/all", "not-a-token", nil, &out)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestServer_RegisterLoginLogout(t *testing.T) {
	s := newTestServer(t)
	reg := s.register("alice")
	assert.Equal(t, "User Registered", reg.Message)
	assert.NotEmpty(t, reg.Token)

	var dup apiMessage
	code := s.call(http.MethodPost, "/api/user/register", "", fiber.Map{
		"name": "again", "email": "alice@example.com", "password": "x",
	}, &dup)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Already have an account with this email", dup.Message)

	var bad apiMessage
	code = s.call(http.MethodPost, "/api/user/login", "", fiber.Map{"email": "alice@example.com", "password": "nope"}, &bad)
	assert.Equal(t, http.StatusUnauthorized, code)

	req := httptest.NewRequest(http.MethodPost, "/api/user/login", bytes.NewReader([]byte(`{"email":"alice@example.com","password":"hunter2"}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := s.do(req, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "token" {
			session = ck
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	// the cookie alone authenticates
	me := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	me.AddCookie(&http.Cookie{Name: "token", Value: session.Value})
	meResp := s.do(me, "")
	defer meResp.Body.Close()
	assert.Equal(t, http.StatusOK, meResp.StatusCode)

	var user models.User
	require.NoError(t, json.NewDecoder(meResp.Body).Decode(&user))
	assert.Equal(t, reg.User.ID, user.ID)

	var out apiMessage
	code = s.call(http.MethodGet, "/api/user/logout", reg.Token, nil, &out)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully, User Log Out", out.Message)
}

func TestServer_PinLifecycle(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	pin := s.createPin(alice.Token, "Sunset")
	assert.Equal(t, alice.User.ID, pin.Owner)

	// image is served from the local media dir
	img := s.do(httptest.NewRequest(http.MethodGet, pin.Image.URL, nil), "")
	img.Body.Close()
	assert.Equal(t, http.StatusOK, img.StatusCode)

	var got models.Pin
	code := s.call(http.MethodGet, "/api/pin/"+pin.ID, bob.Token, nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Sunset", got.Title)
	assert.Equal(t, "Sunset body", got.Body)

	var all []models.Pin
	code = s.call(http.MethodGet, "/api/pin/all", bob.Token, nil, &all)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, all, 1)

	var mine []models.Pin
	code = s.call(http.MethodGet, "/api/pin/user/"+alice.User.ID, bob.Token, nil, &mine)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, mine, 1)

	var msg apiMessage
	code = s.call(http.MethodPut, "/api/pin/"+pin.ID, bob.Token, fiber.Map{"title": "Hacked", "pin": "x"}, &msg)
	assert.Equal(t, http.StatusForbidden, code)

	code = s.call(http.MethodPut, "/api/pin/"+pin.ID, alice.Token, fiber.Map{"title": "T", "pin": "B"}, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pin updated", msg.Message)

	code = s.call(http.MethodGet, "/api/pin/"+pin.ID, bob.Token, nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "B", got.Body)

	code = s.call(http.MethodDelete, "/api/pin/"+pin.ID, bob.Token, nil, &msg)
	assert.Equal(t, http.StatusForbidden, code)

	code = s.call(http.MethodDelete, "/api/pin/"+pin.ID, alice.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pin Deleted", msg.Message)

	code = s.call(http.MethodGet, "/api/pin/"+pin.ID, bob.Token, nil, &msg)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", msg.Error)

	code = s.call(http.MethodGet, "/api/pin/all", bob.Token, nil, &all)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, all)
}

func TestServer_CreatePinWithoutImage(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "No image"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pin/new", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := s.do(req, alice.Token)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var msg apiMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "File is required", msg.Message)
}

func TestServer_CreatePinRejectsHTMLUpload(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Totally a photo"))
	fw, err := w.CreateFormFile("image", "evil.html")
	require.NoError(t, err)
	_, err = fw.Write([]byte("<html><script>fetch('/api/user/me')</script></html>"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pin/new", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := s.do(req, alice.Token)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var msg apiMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
	assert.Equal(t, "Only image files are allowed", msg.Message)

	var all []models.Pin
	code := s.call(http.MethodGet, "/api/pin/all", alice.Token, nil, &all)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, all)
}

func TestServer_CreatePinIgnoresClientExtension(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Sunset"))
	fw, err := w.CreateFormFile("image", "photo.html")
	require.NoError(t, err)
	_, err = fw.Write(pngImage(t))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pin/new", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp := s.do(req, alice.Token)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out struct {
		Pin *models.Pin `json:"pin"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, strings.HasSuffix(out.Pin.Image.URL, ".png"), out.Pin.Image.URL)
}

func TestServer_SaveAndUnsave(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	pin := s.createPin(alice.Token, "Sunset")

	var msg apiMessage
	code := s.call(http.MethodPost, "/api/pin/save/"+pin.ID, alice.Token, nil, &msg)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "You cannot save your own pin", msg.Message)

	code = s.call(http.MethodPost, "/api/pin/save/"+pin.ID, bob.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pin saved successfully", msg.Message)

	code = s.call(http.MethodPost, "/api/pin/save", bob.Token, fiber.Map{"pinId": pin.ID}, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Already saved", msg.Message)

	var saved []models.Pin
	code = s.call(http.MethodGet, "/api/pin/saved", bob.Token, nil, &saved)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, saved, 1)
	assert.Equal(t, pin.ID, saved[0].ID)

	for i := 0; i < 2; i++ {
		code = s.call(http.MethodPost, "/api/pin/unsave", bob.Token, fiber.Map{"pinId": pin.ID}, &msg)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Pin removed from saved", msg.Message)
	}

	code = s.call(http.MethodPost, "/api/pin/unsave", bob.Token, fiber.Map{}, &msg)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServer_Comments(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")
	pin := s.createPin(alice.Token, "Sunset")

	var added struct {
		Message string          `json:"message"`
		Comment *models.Comment `json:"comment"`
	}
	code := s.call(http.MethodPost, "/api/pin/comment/"+pin.ID, alice.Token, fiber.Map{"comment": "nice!"}, &added)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Comment Added", added.Message)
	require.NotNil(t, added.Comment)
	assert.Equal(t, "alice", added.Comment.Name)

	var msg apiMessage
	path := "/api/pin/comment/" + pin.ID + "?commentId=" + added.Comment.ID
	code = s.call(http.MethodDelete, path, bob.Token, nil, &msg)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "You are not owner of this comment", msg.Message)

	code = s.call(http.MethodDelete, path, alice.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Comment Deleted", msg.Message)

	var got models.Pin
	code = s.call(http.MethodGet, "/api/pin/"+pin.ID, alice.Token, nil, &got)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, got.Comments)

	code = s.call(http.MethodPost, "/api/pin/comment/missing", alice.Token, fiber.Map{"comment": "hi"}, &msg)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_FollowToggle(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	var msg apiMessage
	code := s.call(http.MethodPost, "/api/user/follow/"+bob.User.ID, alice.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully, User followed", msg.Message)

	var profile models.User
	code = s.call(http.MethodGet, "/api/user/"+bob.User.ID, alice.Token, nil, &profile)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{alice.User.ID}, profile.Followers)

	code = s.call(http.MethodPost, "/api/user/follow/"+bob.User.ID, alice.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Successfully, User Unfollowed", msg.Message)

	code = s.call(http.MethodPost, "/api/user/follow/"+alice.User.ID, alice.Token, nil, &msg)
	assert.Equal(t, http.StatusForbidden, code)

	code = s.call(http.MethodPost, "/api/user/follow/missing", alice.Token, nil, &msg)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_FollowSurvivesLaterRequests(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	bob := s.register("bob")

	var msg apiMessage
	code := s.call(http.MethodPost, "/api/user/follow/"+bob.User.ID, alice.Token, nil, &msg)
	require.Equal(t, http.StatusOK, code)

	// unrelated traffic reuses the request buffers
	noise := "/api/user/" + strings.Repeat("z", len(bob.User.ID))
	for i := 0; i < 20; i++ {
		s.call(http.MethodGet, noise, alice.Token, nil, &msg)
	}

	var me models.User
	code = s.call(http.MethodGet, "/api/user/me", alice.Token, nil, &me)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{bob.User.ID}, me.Following)

	var other models.User
	code = s.call(http.MethodGet, "/api/user/"+bob.User.ID, alice.Token, nil, &other)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{alice.User.ID}, other.Followers)
}

func TestServer_CommentUsesCurrentName(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")
	pin := s.createPin(alice.Token, "Sunset")

	var updated apiMessage
	code := s.call(http.MethodPut, "/api/user/update", alice.Token, fiber.Map{"name": "Alice Liddell"}, &updated)
	require.Equal(t, http.StatusOK, code)

	// token still carries the old name
	var added struct {
		Comment *models.Comment `json:"comment"`
	}
	code = s.call(http.MethodPost, "/api/pin/comment/"+pin.ID, alice.Token, fiber.Map{"comment": "hi"}, &added)
	require.Equal(t, http.StatusCreated, code)
	require.NotNil(t, added.Comment)
	assert.Equal(t, "Alice Liddell", added.Comment.Name)
}

func TestServer_UpdateProfile(t *testing.T) {
	s := newTestServer(t)
	alice := s.register("alice")

	var out struct {
		Message string       `json:"message"`
		User    *models.User `json:"user"`
	}
	code := s.call(http.MethodPut, "/api/user/update", alice.Token, fiber.Map{"name": "Alice", "bio": "hi"}, &out)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Profile updated successfully", out.Message)
	assert.Equal(t, "Alice", out.User.Name)
	assert.Equal(t, "hi", out.User.Bio)
}

func TestServer_AuthRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) { cfg.AuthRateLimit = 2 })

	login := fiber.Map{"email": "nobody@example.com", "password": "x"}
	var msg apiMessage
	assert.Equal(t, http.StatusUnauthorized, s.call(http.MethodPost, "/api/user/login", "", login, &msg))
	assert.Equal(t, http.StatusUnauthorized, s.call(http.MethodPost, "/api/user/login", "", login, &msg))
	assert.Equal(t, http.StatusTooManyRequests, s.call(http.MethodPost, "/api/user/login", "", login, &msg))
}

func TestServer_WebsocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(httptest.NewRequest(http.MethodGet, "/ws", nil), "")
	resp.Body.Close()
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

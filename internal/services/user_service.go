package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"pinboard-backend/internal/db"
	"pinboard-backend/internal/media"
	"pinboard-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the lifetime of issued session tokens
const TokenTTL = 15 * 24 * time.Hour

// MaxAvatarSize is the largest accepted profile picture upload
const MaxAvatarSize = 5 << 20

// UserStore is the persistence the user service needs
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	ToggleFollow(ctx context.Context, followerID, targetID string) (bool, error)
}

type UserService struct {
	store     UserStore
	media     media.Store
	jwtSecret []byte
	hashCost  int
}

func NewUserService(store UserStore, m media.Store, jwtSecret string) *UserService {
	return &UserService{
		store:     store,
		media:     m,
		jwtSecret: []byte(jwtSecret),
		hashCost:  bcrypt.DefaultCost,
	}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, newError(ErrValidation, "Name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, newError(ErrValidation, "Invalid email address")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Followers:    []string{},
		Following:    []string{},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID, user.Name)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{User: user, Token: token, Message: "User Registered"}, nil
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, newError(ErrUnauthorized, "invalid credentials")
	}

	token, err := s.GenerateJWT(user.ID, user.Name)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{User: user, Token: token, Message: "User Logged In"}, nil
}

func (s *UserService) GenerateJWT(userID, name string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"exp":     time.Now().Add(TokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *UserService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(ErrNotFound, "User not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies name, bio and avatar changes. A new avatar is cropped,
// uploaded, and only then is the previous one removed.
func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			user.Name = name
		}
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	var oldAvatar *models.Image
	if len(req.Avatar) > 0 {
		if len(req.Avatar) > MaxAvatarSize {
			return nil, newError(ErrValidation, "Avatar exceeds the 5 MB limit")
		}
		data, filename, err := media.PrepareAvatar(req.Avatar)
		if err != nil {
			return nil, newError(ErrValidation, "Unsupported image format")
		}
		img, err := s.media.Upload(ctx, media.FolderAvatars, filename, data)
		if err != nil {
			return nil, fmt.Errorf("upload avatar: %w", err)
		}
		oldAvatar = user.ProfilePic
		user.ProfilePic = img
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if len(req.Avatar) > 0 {
			if delErr := s.media.Delete(ctx, user.ProfilePic.ID); delErr != nil {
				log.Printf("[MEDIA] failed to remove orphaned avatar %s: %v", user.ProfilePic.ID, delErr)
			}
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	if oldAvatar != nil && oldAvatar.ID != "" {
		if err := s.media.Delete(ctx, oldAvatar.ID); err != nil {
			log.Printf("[MEDIA] failed to delete old avatar %s: %v", oldAvatar.ID, err)
		}
	}

	return user, nil
}

// ToggleFollow follows targetID if callerID does not follow it yet and
// unfollows otherwise. It reports whether callerID follows targetID afterwards.
func (s *UserService) ToggleFollow(ctx context.Context, targetID, callerID string) (bool, error) {
	if targetID == callerID {
		return false, newError(ErrForbidden, "You can't follow yourself")
	}

	if _, err := s.store.GetUser(ctx, targetID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, newError(ErrNotFound, "No user found with this id")
		}
		return false, err
	}

	following, err := s.store.ToggleFollow(ctx, callerID, targetID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, newError(ErrNotFound, "No user found with this id")
		}
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	return following, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

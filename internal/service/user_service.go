package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ripple/internal/models"
	"ripple/internal/store"
	"ripple/internal/validation"
)

// UserService provides account registration, login verification, and user
// lookups. Token issuance lives in the server layer.
type UserService struct {
	store store.Store
}

// NewUserService returns a new UserService.
func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

// RegisterInput carries a new account's credentials.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// Register creates a user document with zeroed counters and a bcrypt
// password hash. Usernames are unique; the check and the write are not one
// atomic unit, so a racing duplicate registration can slip through. The
// store's document ID remains the real identity.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewInvalidArgumentError(err.Error())
	}

	existing, err := s.store.Query(ctx, models.UsersCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldUsername, username)},
		Limit:   1,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if len(existing) > 0 {
		return nil, models.NewInvalidArgumentError("Username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	userID := uuid.NewString()
	userPath := models.UserPath(userID)
	if err := s.store.Set(ctx, userPath, models.NewUserFields(username, in.Email, string(hash))); err != nil {
		return nil, models.NewStoreError(err)
	}

	doc, err := s.store.Get(ctx, userPath)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	return models.UserFromDocument(doc), nil
}

// Authenticate verifies a username/password pair and returns the user.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	docs, err := s.store.Query(ctx, models.UsersCollection, store.Query{
		Filters: []store.Filter{store.Where(models.FieldUsername, strings.TrimSpace(username))},
		Limit:   1,
	})
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	if len(docs) == 0 {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}

	user := models.UserFromDocument(docs[0])
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewUnauthenticatedError("Invalid credentials")
	}
	return user, nil
}

// GetUser returns one user by ID.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	doc, err := s.store.Get(ctx, models.UserPath(userID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, models.NewNotFoundError("User", userID)
		}
		return nil, models.NewStoreError(err)
	}
	return models.UserFromDocument(doc), nil
}

package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/store"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("name and password are required")
)

var avatarColors = []string{"#f87171", "#fb923c", "#facc15", "#4ade80", "#2dd4bf", "#60a5fa", "#a78bfa", "#f472b6"}

type UserService struct {
	store  store.Store
	tokens *Tokens
}

func NewUserService(st store.Store, tokens *Tokens) *UserService {
	return &UserService{store: st, tokens: tokens}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:        uuid.NewString(),
		Name:      name,
		Color:     colorFor(name),
		Status:    models.PresenceOffline,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, store.Account{User: user, PasswordHash: string(hash)}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	acc, err := s.store.UserByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(acc.User)
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *UserService) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *UserService) issue(user models.User) (*models.AuthResponse, error) {
	token, err := s.tokens.Generate(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{User: user, Token: token}, nil
}

func colorFor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return avatarColors[h.Sum32()%uint32(len(avatarColors))]
}

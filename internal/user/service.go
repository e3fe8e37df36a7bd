package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

const minPasswordLen = 8

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password too short")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type Service struct {
	repo  Repository
	clock clock.Clock
	cost  int
}

type Option func(*Service)

// WithHashCost overrides the bcrypt cost (tests use bcrypt.MinCost).
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(repo Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{repo: repo, clock: clk, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	return s.create(ctx, email, password, session.RoleCustomer)
}

// Authenticate returns ErrInvalidCredentials for an unknown email and for a
// wrong password alike.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// EnsureAdmin creates the admin account on first start, or promotes an
// existing account with that email.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (User, error) {
	u, err := s.create(ctx, email, password, session.RoleAdmin)
	if !errors.Is(err, ErrEmailTaken) {
		return u, err
	}

	existing, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, err
	}
	if existing.Role != session.RoleAdmin {
		if err := s.repo.SetRole(ctx, existing.ID, string(session.RoleAdmin)); err != nil {
			return User{}, err
		}
		existing.Role = session.RoleAdmin
	}
	return existing, nil
}

func (s *Service) create(ctx context.Context, email, password string, role session.Role) (User, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return User{}, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func sessionRole(role string) session.Role {
	if session.Role(role) == session.RoleAdmin {
		return session.RoleAdmin
	}
	return session.RoleCustomer
}

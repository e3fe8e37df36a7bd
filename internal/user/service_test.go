package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/clock"
	"github.com/andreasstove999/ecommerce-system/services/basket-service-go/internal/session"
)

type fakeRepo struct {
	mu    sync.Mutex
	users map[string]User
}

func newFakeRepo() *fakeRepo { return &fakeRepo{users: map[string]User{}} }

func (f *fakeRepo) Create(ctx context.Context, u User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return ErrEmailTaken
	}
	f.users[u.Email] = u
	return nil
}

func (f *fakeRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeRepo) SetRole(ctx context.Context, id string, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, u := range f.users {
		if u.ID == id {
			u.Role = session.Role(role)
			f.users[email] = u
			return nil
		}
	}
	return ErrNotFound
}

func newTestService(repo Repository) *Service {
	clk := clock.NewManual(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	return NewService(repo, clk, WithHashCost(bcrypt.MinCost))
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	u, err := svc.Register(ctx, "  Alice@Example.com ", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, session.RoleCustomer, u.Role)
	require.NotEqual(t, "correct-horse", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "bob@example.com", "correct-horse")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo())

	_, err := svc.Register(ctx, "not-an-email", "long-enough")
	require.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Register(ctx, "a@example.com", "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.Register(ctx, "a@example.com", "long-enough")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "A@example.com", "long-enough")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := newTestService(repo)

	admin, err := svc.EnsureAdmin(ctx, "root@example.com", "admin-secret")
	require.NoError(t, err)
	require.Equal(t, session.RoleAdmin, admin.Role)

	again, err := svc.EnsureAdmin(ctx, "root@example.com", "admin-secret")
	require.NoError(t, err)
	require.Equal(t, admin.ID, again.ID)

	customer, err := svc.Register(ctx, "ops@example.com", "ops-secret")
	require.NoError(t, err)
	promoted, err := svc.EnsureAdmin(ctx, "ops@example.com", "ops-secret")
	require.NoError(t, err)
	require.Equal(t, customer.ID, promoted.ID)
	require.Equal(t, session.RoleAdmin, promoted.Role)
}

package session

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Identity is what a token resolves to.
type Identity struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

type Session struct {
	Token     string    `json:"token"`
	Identity  Identity  `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Store issues, resolves and revokes bearer tokens. Sessions expire after
// the store's TTL; an expired or revoked token resolves to ErrSessionNotFound.
type Store interface {
	Issue(ctx context.Context, id Identity) (Session, error)
	Resolve(ctx context.Context, token string) (Identity, error)
	Revoke(ctx context.Context, token string) error
}

const DefaultTTL = 24 * time.Hour

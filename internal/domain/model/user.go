package model

import (
	"time"

	"usdt-storefront/internal/domain"
)

// User is a storefront account. Authentication lives outside the core; the
// API identifies callers by session token.
type User struct {
	ID        string
	Username  string
	Email     string
	Admin     bool
	CreatedAt time.Time
}

func NewUser(username, email string) (*User, error) {
	if username == "" || email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        NewID(),
		Username:  username,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}, nil
}

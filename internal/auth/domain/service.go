package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	SignUp(ctx context.Context, req SignUpRequest) (*User, error)
	SignInWithPassword(ctx context.Context, email, password string) (*LoginResult, error)
	GetSession(ctx context.Context, rawToken string) (*Session, error)
	SignOut(ctx context.Context, rawToken string) error
	GetUser(ctx context.Context, id snowflake.ID) (*User, error)
	VerifyStudent(ctx context.Context, userID snowflake.ID, gNumber string) (*User, error)
	// SetAdmin flips the global admin flag. Only the escalation strategy calls it.
	SetAdmin(ctx context.Context, userID snowflake.ID) error
}

type SignUpRequest struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	GNumber   string
}

type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

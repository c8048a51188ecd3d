package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	UpdateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type RevokedTokenRepository interface {
	// Revoke records the token id. Revoking an already revoked id is a no-op.
	Revoke(ctx context.Context, token RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// PurgeExpired deletes up to limit entries whose token expired before cutoff.
	PurgeExpired(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

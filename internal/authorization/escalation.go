package authorization

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/config"
)

// EscalationStrategy decides whether a user may become a global admin.
type EscalationStrategy interface {
	Name() string
	Verify(ctx context.Context, userID snowflake.ID, suppliedCode string) (bool, error)
}

// StaticSecretStrategy accepts a single shared passphrase. An empty secret
// rejects every attempt.
type StaticSecretStrategy struct {
	secret []byte
}

func NewStaticSecretStrategy(cfg config.Config) EscalationStrategy {
	return &StaticSecretStrategy{secret: []byte(strings.TrimSpace(cfg.AdminGrantCode))}
}

func (s *StaticSecretStrategy) Name() string { return "static_secret" }

func (s *StaticSecretStrategy) Verify(_ context.Context, _ snowflake.ID, suppliedCode string) (bool, error) {
	if len(s.secret) == 0 {
		return false, nil
	}
	return subtle.ConstantTimeCompare(s.secret, []byte(suppliedCode)) == 1, nil
}

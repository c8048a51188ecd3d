package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tigerlife/internal/clock"
	"github.com/smallbiznis/tigerlife/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Repo      domain.Repository
	Publisher domain.Publisher
	GenID     *snowflake.Node
	Clock     clock.Clock
}

type service struct {
	log       *zap.Logger
	repo      domain.Repository
	publisher domain.Publisher
	genID     *snowflake.Node
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	return &service{
		log:       p.Log.Named("notification.service"),
		repo:      p.Repo,
		publisher: p.Publisher,
		genID:     p.GenID,
		clock:     p.Clock,
	}
}

type message struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// Notify persists n unless its idempotency key was already used, then
// publishes it. Publish failures are logged only since the row is durable.
func (s *service) Notify(ctx context.Context, n domain.Notification) error {
	n.IdempotencyKey = strings.TrimSpace(n.IdempotencyKey)
	n.Message = strings.TrimSpace(n.Message)
	if n.UserID == 0 || n.Kind == "" || n.IdempotencyKey == "" {
		return domain.ErrInvalidNotification
	}

	n.ID = s.genID.Generate()
	n.CreatedAt = s.clock.Now()
	n.ReadAt = nil

	inserted, err := s.repo.InsertIfAbsent(ctx, &n)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	payload, err := json.Marshal(message{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Kind:      string(n.Kind),
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, domain.Channel, payload); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("kind", string(n.Kind)),
			zap.String("notification_id", n.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID snowflake.ID, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListByUser(ctx, userID, min(limit, maxListLimit))
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID snowflake.ID) error {
	return s.repo.MarkRead(ctx, userID, notificationID, s.clock.Now())
}

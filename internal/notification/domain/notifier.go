package domain

import "context"

//go:generate mockgen -source=notifier.go -destination=../mocks/mock_notifier.go -package=mocks

// Notifier delivers a notification at most once per idempotency key.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

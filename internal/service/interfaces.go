package service

import (
	"context"

	"github.com/weissv/olymp-pay/internal/models"
)

// EventPublisher delivers payment status changes to the rest of the system.
type EventPublisher interface {
	Publish(ctx context.Context, event models.PaymentEvent) error
}

// KeyStore holds the merchant key the webhook authenticates against.
type KeyStore interface {
	Set(ctx context.Context, key string) error
}

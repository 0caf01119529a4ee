package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultTTL = 24 * time.Hour
	MinTTL     = time.Second
)

var ErrEmptyDeliveryID = errors.New("delivery id is empty")

// Registration is the outcome of RegisterIfFirstSeen.
type Registration string

const (
	Accepted  Registration = "accepted"
	Duplicate Registration = "duplicate"
)

// Store keeps delivery keys until they expire.
// RememberIfAbsent must be a single atomic check-and-set.
type Store interface {
	RememberIfAbsent(ctx context.Context, key string, expiresAt time.Time) (bool, error)
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// Deduplicator guarantees at-most-once processing of retried webhook deliveries
// within the TTL window.
type Deduplicator struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

type Option func(*Deduplicator)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(d *Deduplicator) {
		d.now = now
	}
}

func NewDeduplicator(store Store, ttl time.Duration, opts ...Option) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if ttl < MinTTL {
		ttl = MinTTL
	}
	d := &Deduplicator{store: store, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Key builds the store key for a provider delivery.
func Key(source, deliveryID string) string {
	return source + ":" + deliveryID
}

// RegisterIfFirstSeen records the delivery and reports whether it was new.
// Expiry is measured from max(receivedAt, now) so a skewed receivedAt cannot expire
// the record early.
func (d *Deduplicator) RegisterIfFirstSeen(ctx context.Context, source, deliveryID string, receivedAt time.Time) (Registration, error) {
	if deliveryID == "" {
		return "", ErrEmptyDeliveryID
	}

	baseline := d.now()
	if receivedAt.After(baseline) {
		baseline = receivedAt
	}

	key := Key(source, deliveryID)
	first, err := d.store.RememberIfAbsent(ctx, key, baseline.Add(d.ttl))
	if err != nil {
		return "", fmt.Errorf("registering delivery %s: %w", key, err)
	}

	if !first {
		slog.InfoContext(ctx, "duplicate webhook delivery ignored", "delivery_key", key)
		return Duplicate, nil
	}
	return Accepted, nil
}

// Unregister forgets a delivery so a provider retry is processed again.
func (d *Deduplicator) Unregister(ctx context.Context, source, deliveryID string) error {
	if deliveryID == "" {
		return ErrEmptyDeliveryID
	}
	if err := d.store.Forget(ctx, Key(source, deliveryID)); err != nil {
		return fmt.Errorf("unregistering delivery: %w", err)
	}
	return nil
}

// IsRegistered reports whether a live record exists for the delivery.
func (d *Deduplicator) IsRegistered(ctx context.Context, source, deliveryID string) (bool, error) {
	return d.store.Seen(ctx, Key(source, deliveryID))
}

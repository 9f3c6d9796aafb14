// Package events publishes auth lifecycle events so other services (audit,
// brand management) can react without coupling to the auth flows. Publishing
// is best-effort; callers log failures and never surface them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"
)

const (
	TopicUserRegistered = "auth.user.registered"
	TopicUserLoggedIn   = "auth.user.logged_in"
	TopicUserLoggedOut  = "auth.user.logged_out"
)

// AccountEvent is the payload carried on every auth topic.
type AccountEvent struct {
	AccountID string    `json:"account_id"`
	Method    string    `json:"method,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher emits auth lifecycle events.
type Publisher interface {
	UserRegistered(ctx context.Context, accountID, method string) error
	UserLoggedIn(ctx context.Context, accountID, method string) error
	UserLoggedOut(ctx context.Context, accountID string) error
}

// WatermillPublisher implements Publisher on top of a watermill message publisher.
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher wraps an existing watermill publisher.
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// NewRedisStreamPublisher builds a Publisher backed by Redis streams on the
// shared Redis client.
func NewRedisStreamPublisher(client redis.UniversalClient, logger *slog.Logger) (*WatermillPublisher, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create redis stream publisher: %w", err)
	}
	return NewWatermillPublisher(pub), nil
}

// UserRegistered publishes a registration event.
func (p *WatermillPublisher) UserRegistered(_ context.Context, accountID, method string) error {
	return p.publish(TopicUserRegistered, AccountEvent{AccountID: accountID, Method: method, At: time.Now().UTC()})
}

// UserLoggedIn publishes a login event.
func (p *WatermillPublisher) UserLoggedIn(_ context.Context, accountID, method string) error {
	return p.publish(TopicUserLoggedIn, AccountEvent{AccountID: accountID, Method: method, At: time.Now().UTC()})
}

// UserLoggedOut publishes a logout event.
func (p *WatermillPublisher) UserLoggedOut(_ context.Context, accountID string) error {
	return p.publish(TopicUserLoggedOut, AccountEvent{AccountID: accountID, At: time.Now().UTC()})
}

func (p *WatermillPublisher) publish(topic string, event AccountEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// NoopPublisher drops all events. Used in tests and when no broker is wired.
type NoopPublisher struct{}

func (NoopPublisher) UserRegistered(context.Context, string, string) error { return nil }
func (NoopPublisher) UserLoggedIn(context.Context, string, string) error   { return nil }
func (NoopPublisher) UserLoggedOut(context.Context, string) error          { return nil }

package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/entity"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

const RoutingKeyCreated = "notification.created"

type notificationStore interface {
	Create(ctx context.Context, notification *entity.Notification) error
}

// Event is the broker payload for a stored notification.
type Event struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Service stores a notification and announces it on the broker. The stored
// row is authoritative; a failed publish is logged only.
type Service struct {
	store     notificationStore
	publisher Publisher
	exchange  string
	logger    logrus.FieldLogger
	newID     func() string
	now       func() time.Time
}

func NewService(store notificationStore, publisher Publisher, exchange string) *Service {
	if publisher == nil {
		publisher = NewLogPublisher()
	}
	return &Service{
		store:     store,
		publisher: publisher,
		exchange:  exchange,
		logger:    factory.NewModuleLogger("notifications"),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Send(ctx context.Context, userID, title, message string) error {
	item := &entity.Notification{
		ID:        s.newID(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	}
	if err := s.store.Create(ctx, item); err != nil {
		return err
	}

	event := Event{
		ID:        item.ID,
		UserID:    item.UserID,
		Title:     item.Title,
		Message:   item.Message,
		CreatedAt: item.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, s.exchange, RoutingKeyCreated, event); err != nil {
		s.logger.WithError(err).
			WithField("notification_id", item.ID).
			WithField("user_id", userID).
			Warn("Failed to publish notification event")
	}
	return nil
}

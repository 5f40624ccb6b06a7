package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
)

type notifier interface {
	Send(ctx context.Context, userID, title, message string) error
}

type pendingNotification struct {
	userID  string
	title   string
	message string
}

type outbox struct {
	notifier notifier
	logger   logrus.FieldLogger
}

func newOutbox(n notifier, module string) outbox {
	return outbox{notifier: n, logger: factory.NewModuleLogger(module)}
}

// flush delivers notifications collected during a committed transaction.
// Delivery is best-effort: failures are logged and never returned.
func (o outbox) flush(ctx context.Context, items []pendingNotification) {
	if o.notifier == nil {
		return
	}
	for _, item := range items {
		if err := o.notifier.Send(ctx, item.userID, item.title, item.message); err != nil {
			o.logger.WithError(err).
				WithField("user_id", item.userID).
				WithField("title", item.title).
				Warn("Failed to deliver notification")
		}
	}
}

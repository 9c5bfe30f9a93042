// Package notify is the hook for operator push notifications, driven by the
// worker engine off the order event stream.
package notify

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Notification is a short operator-facing alert.
type Notification struct {
	Title string
	Body  string
}

// Notifier pushes notifications to the shop operators.
type Notifier interface {
	Push(ctx context.Context, n Notification) error
}

// Module wires the notifier.
var Module = fx.Provide(NewNotifier)

// NewNotifier returns the log-backed notifier. The push SaaS integration
// hangs off this interface.
func NewNotifier(logger *zap.Logger) Notifier {
	return logNotifier{logger: logger}
}

type logNotifier struct {
	logger *zap.Logger
}

func (l logNotifier) Push(_ context.Context, n Notification) error {
	l.logger.Info("operator notification", zap.String("title", n.Title), zap.String("body", n.Body))
	return nil
}

package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Used when no
// broker is reachable so auth and task flows keep working in development.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, fields ...zap.Field) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	base := []zap.Field{
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
	}

	p.logger.Info("stub event published", append(base, fields...)...)
}

// PublishUserRegistered logs taskhub.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.logEvent("user.registered", event.UserID, event.RegisteredAt,
		zap.String("username", event.Username),
		zap.String("email", logger.MaskEmail(event.Email)),
		zap.String("role", string(event.Role)),
	)
	return nil
}

// PublishUserLoggedIn logs taskhub.user.logged_in events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logEvent("user.logged_in", event.UserID, event.LoggedAt,
		zap.String("ip", logger.MaskIP(event.IP)),
	)
	return nil
}

// PublishPasswordChanged logs taskhub.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("user.password.changed", event.UserID, event.ChangedAt)
	return nil
}

// PublishTaskCompletionToggled logs taskhub.task.completion.toggled events.
func (p *StubPublisher) PublishTaskCompletionToggled(_ context.Context, event domain.TaskCompletionToggledEvent) error {
	p.logEvent("task.completion.toggled", event.UserID, event.ToggledAt,
		zap.String("task_id", event.TaskID),
		zap.Bool("completed", event.Completed),
	)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/fleetops/ops-dashboard/internal/events"
)

// AuditService records auth events to the structured log. Login failures are
// logged without distinguishing unknown-username from wrong-password to the
// client; the event stream is where operators see the actual cause.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService builds the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes audit handlers to all auth event types.
func (s *AuditService) RegisterHandlers() {
	for _, eventType := range []events.EventType{
		events.EventUserRegistered,
		events.EventUserLoggedIn,
		events.EventLoginFailed,
	} {
		s.dispatcher.Subscribe(eventType, s.record)
	}
}

func (s *AuditService) record(_ context.Context, event events.Event) error {
	s.logger.Info("auth event",
		zap.String("event", string(event.Type)),
		zap.String("event_id", event.ID),
		zap.String("username", event.Username),
		zap.String("subject_id", event.SubjectID),
		zap.String("role", string(event.Role)),
		zap.Time("at", event.Timestamp),
	)
	return nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/events"
)

// AuditService writes every lifecycle event to the audit log.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
	}
}

// RegisterHandlers subscribes the audit log to every event type.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.SubscribeAll(a.record)
}

// Breaches log at warn, everything else at info.
func (a *AuditService) record(_ context.Context, event events.Event) error {
	if event.Type == events.EventIncidentSLABreached {
		a.logger.Warn(string(event.Type), a.fields(event)...)
		return nil
	}
	a.logger.Info(string(event.Type), a.fields(event)...)
	return nil
}

func (a *AuditService) fields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("incident_id", event.IncidentID),
		zap.Time("at", event.Timestamp),
		zap.Any("payload", event.Payload),
	}
	if event.Actor.Username != "" {
		fields = append(fields, zap.String("actor", event.Actor.Username))
	}
	return fields
}

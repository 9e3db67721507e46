package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/vozsegura-api/pkg/events"
	"github.com/noah-isme/vozsegura-api/pkg/jobs"
)

// Report lifecycle event types, also used as AMQP routing keys.
const (
	EventReportCreated       = "denuncia.creada"
	EventReportStatusChanged = "denuncia.estado_actualizado"
	EventReportDeleted       = "denuncia.eliminada"
)

// EventServiceConfig tunes background delivery.
type EventServiceConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// EventService publishes report lifecycle events off the request path. The
// request never fails because of the broker; undeliverable events are logged
// and counted.
type EventService struct {
	publisher events.Publisher
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewEventService wires a publisher behind a retrying job queue.
func NewEventService(publisher events.Publisher, metrics *MetricsService, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	svc := &EventService{
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	svc.queue = jobs.NewQueue("events", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnGiveUp: func(job jobs.Job, err error) {
			metrics.RecordEvent(job.Type, "dropped")
		},
	})
	return svc
}

// Start launches the delivery workers.
func (s *EventService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop delivers what is still queued, bounded by ctx, then closes the publisher.
func (s *EventService) Stop(ctx context.Context) {
	if err := s.queue.Stop(ctx); err != nil {
		s.logger.Warn("pending events abandoned on shutdown", zap.Error(err))
	}
	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("failed to close event publisher", zap.Error(err))
	}
}

// Publish schedules an event for delivery. It never blocks on the broker.
func (s *EventService) Publish(eventType string, payload interface{}) {
	if s == nil {
		return
	}
	event := events.Event{Type: eventType, OccurredAt: s.now(), Payload: payload}
	if err := s.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: eventType, Payload: event}); err != nil {
		s.logger.Warn("failed to enqueue event", zap.String("type", eventType), zap.Error(err))
		s.metrics.RecordEvent(eventType, "dropped")
	}
}

func (s *EventService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(events.Event)
	if !ok {
		s.logger.Error("unexpected event payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.RecordEvent(event.Type, "retried")
		return err
	}
	s.metrics.RecordEvent(event.Type, "published")
	return nil
}

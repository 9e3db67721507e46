package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/vozsegura-api/pkg/events"
)

type recordingPublisher struct {
	mu       sync.Mutex
	failures int
	events   []events.Event
	closed   bool
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func TestEventServiceRetriesDelivery(t *testing.T) {
	publisher := &recordingPublisher{failures: 1}
	metrics := NewMetricsService()
	svc := NewEventService(publisher, metrics, nil, EventServiceConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond})
	svc.Start(context.Background())

	svc.Publish(EventReportCreated, map[string]string{"codigo": "DEN-2025000001"})

	assert.Eventually(t, func() bool { return publisher.count() == 1 }, time.Second, 5*time.Millisecond)
	svc.Stop(context.Background())
	assert.True(t, publisher.closed)
	assert.Equal(t, EventReportCreated, publisher.events[0].Type)
}

func TestEventServiceDropsAfterRetries(t *testing.T) {
	publisher := &recordingPublisher{failures: 100}
	metrics := NewMetricsService()
	svc := NewEventService(publisher, metrics, nil, EventServiceConfig{Workers: 1, MaxRetries: 1, RetryDelay: time.Millisecond})
	svc.Start(context.Background())
	defer svc.Stop(context.Background())

	svc.Publish(EventReportDeleted, nil)

	assert.Eventually(t, func() bool { return metrics.Snapshot().EventsDropped == 1 }, time.Second, 5*time.Millisecond)
}

func TestEventServiceNilIsNoop(t *testing.T) {
	var svc *EventService
	assert.NotPanics(t, func() { svc.Publish(EventReportCreated, nil) })
}

package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records published events for tests and local runs
// without a broker.
type MockEventPublisher struct {
	logger *slog.Logger

	mu     sync.Mutex
	events []PublishedEvent
}

type PublishedEvent struct {
	Topic string
	Event Event
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (p *MockEventPublisher) Publish(ctx context.Context, topic string, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, PublishedEvent{Topic: topic, Event: event})
	p.logger.Debug("mock event published", "topic", topic, "type", event.Type)
	return nil
}

func (p *MockEventPublisher) Close() error { return nil }

// GetPublishedEvents returns a copy of everything published so far.
func (p *MockEventPublisher) GetPublishedEvents() []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PublishedEvent, len(p.events))
	copy(out, p.events)
	return out
}

func (p *MockEventPublisher) ClearEvents() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

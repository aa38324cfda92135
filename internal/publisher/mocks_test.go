package publisher

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/malcomtyk21/IS2108-Project-Auroramart/internal/domain"
)

type MockRepository struct {
	m           sync.Mutex
	Events      []*domain.OutboxEvent
	GetErr      error
	MarkErr     error
	ProcessedID []string
}

func (r *MockRepository) GetUnprocessedEvents(context.Context, int) ([]*domain.OutboxEvent, error) {
	r.m.Lock()
	defer r.m.Unlock()
	if r.GetErr != nil {
		return nil, r.GetErr
	}
	var out []*domain.OutboxEvent
	for _, e := range r.Events {
		if e.ProcessedAt == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MockRepository) MarkEventAsProcessed(_ context.Context, id string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.MarkErr != nil {
		return r.MarkErr
	}
	for _, e := range r.Events {
		if e.ID == id {
			now := e.CreatedAt
			e.ProcessedAt = &now
		}
	}
	r.ProcessedID = append(r.ProcessedID, id)
	return nil
}

func (r *MockRepository) processed() []string {
	r.m.Lock()
	defer r.m.Unlock()
	return append([]string(nil), r.ProcessedID...)
}

type MockWriter struct {
	m        sync.Mutex
	Messages []kafka.Message
	FailKeys map[string]error
	closed   bool
}

func (w *MockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.m.Lock()
	defer w.m.Unlock()
	for _, msg := range msgs {
		if err := w.FailKeys[string(msg.Key)]; err != nil {
			return err
		}
	}
	w.Messages = append(w.Messages, msgs...)
	return nil
}

func (w *MockWriter) Close() error {
	w.m.Lock()
	defer w.m.Unlock()
	w.closed = true
	return nil
}

func (w *MockWriter) isClosed() bool {
	w.m.Lock()
	defer w.m.Unlock()
	return w.closed
}

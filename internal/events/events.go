// Package events carries engine notifications to collaborators: the reward
// ledger in process and, when configured, other services over AMQP.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/testprep/internal/logging"
	"github.com/abhisek/testprep/internal/store"
)

// Type names an event. It doubles as the AMQP routing key.
type Type string

const (
	AttemptStarted   Type = "attempt.started"
	AnswerRecorded   Type = "answer.recorded"
	AttemptCompleted Type = "attempt.completed"
	AttemptAbandoned Type = "attempt.abandoned"
	EmergencyStarted Type = "emergency.started"
)

// Event is one engine notification.
type Event struct {
	ID          string            `json:"id"`
	Type        Type              `json:"type"`
	UserID      string            `json:"user_id"`
	AttemptID   string            `json:"attempt_id,omitempty"`
	AttemptType store.AttemptType `json:"attempt_type,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	QuestionID  string            `json:"question_id,omitempty"`
	Correct     bool              `json:"correct,omitempty"`

	// OverallScore is set on attempt.completed for scored attempt types.
	OverallScore *float64 `json:"overall_score,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// New returns an event of type t for the learner, stamped now.
func New(t Type, userID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
}

// ToJSON encodes the event.
func (e Event) ToJSON() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Sink consumes events.
type Sink interface {
	Handle(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Emitter is what the engines depend on.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Dispatcher delivers each event to every sink in order. Sink failures and
// panics are logged and never reach the caller.
type Dispatcher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher over sinks. Nil sinks are skipped.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{logger: logging.OrDiscard(logger)}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	return d
}

// Subscribe adds a sink.
func (d *Dispatcher) Subscribe(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Emit delivers e synchronously.
func (d *Dispatcher) Emit(ctx context.Context, e Event) {
	for _, s := range d.sinks {
		d.deliver(ctx, s, e)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, s Sink, e Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event sink panicked", "event", e.Type, "user", e.UserID, "panic", r)
		}
	}()
	if err := s.Handle(ctx, e); err != nil {
		d.logger.Warn("event sink failed", "event", e.Type, "user", e.UserID, "error", err)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

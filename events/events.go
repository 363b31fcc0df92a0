// Package events fans committed complaint changes out to listeners, in process or
// across instances through redis.
package events

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/models"
)

// ErrFeedFull is returned when the local feed cannot take another event
var ErrFeedFull = errors.New("event feed is full")

// Listener reacts to complaint events
type Listener interface {
	HandleEvent(ctx context.Context, event models.ComplaintEvent)
}

// ListenerFunc adapts a function to a Listener
type ListenerFunc func(ctx context.Context, event models.ComplaintEvent)

// HandleEvent calls f
func (f ListenerFunc) HandleEvent(ctx context.Context, event models.ComplaintEvent) {
	f(ctx, event)
}

// LocalPublisher hands events to listeners on a single worker goroutine, in publish
// order. Run must be started for events to be delivered.
type LocalPublisher struct {
	feed      chan models.ComplaintEvent
	listeners []Listener
}

// NewLocalPublisher returns a publisher buffering up to size events
func NewLocalPublisher(size int, listeners ...Listener) *LocalPublisher {
	return &LocalPublisher{
		feed:      make(chan models.ComplaintEvent, size),
		listeners: listeners,
	}
}

// Publish queues event without blocking
func (p *LocalPublisher) Publish(_ context.Context, event models.ComplaintEvent) error {
	select {
	case p.feed <- event:
		return nil
	default:
		return ErrFeedFull
	}
}

// Run delivers queued events until ctx is done
func (p *LocalPublisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-p.feed:
			dispatch(ctx, event, p.listeners)
		}
	}
}

func dispatch(ctx context.Context, event models.ComplaintEvent, listeners []Listener) {
	for _, l := range listeners {
		l.HandleEvent(ctx, event)
	}
}

// decode parses a feed payload and hands it to listeners
func decode(ctx context.Context, payload string, listeners []Listener) error {
	var event models.ComplaintEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return errors.Wrap(err, "failed to decode complaint event")
	}
	zap.S().Debugw("complaint event received",
		"complaintId", event.ComplaintID,
		"type", event.Type,
		"action", event.Action)
	dispatch(ctx, event, listeners)
	return nil
}

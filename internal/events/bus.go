// Package events publishes generation lifecycle events on an embedded NATS
// server so the TUI, the HTTP API and hooks can react to them independently.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/storyreel/storyreel/internal/generation"
	"github.com/storyreel/storyreel/internal/logger"
	"github.com/storyreel/storyreel/internal/nats"
)

// Kind is the lifecycle stage an event reports.
type Kind string

const (
	KindSubmitted Kind = "submitted"
	KindSucceeded Kind = "succeeded"
	KindFailed    Kind = "failed"
)

// eventType is the subject suffix for generation events.
const eventType = "generation"

// Event is one lifecycle change of a generation attempt.
type Event struct {
	Session   string          `json:"session"`
	AttemptID string          `json:"attempt_id"`
	Kind      Kind            `json:"kind"`
	ErrorKind generation.Kind `json:"error_kind,omitempty"`
	Message   string          `json:"message,omitempty"`
	VideoRef  string          `json:"video_ref,omitempty"`
	Size      int             `json:"size,omitempty"`
	At        time.Time       `json:"at"`
}

// Bus publishes and replays events.
type Bus struct {
	embedded *nats.Embedded
	stream   jetstream.Stream
}

// Start boots the embedded server and prepares the event stream.
func Start(ctx context.Context) (*Bus, error) {
	embedded, err := nats.Start()
	if err != nil {
		return nil, fmt.Errorf("starting event bus: %w", err)
	}

	stream, err := nats.SetupStream(ctx, embedded.JS)
	if err != nil {
		_ = embedded.Close()
		return nil, fmt.Errorf("creating event stream: %w", err)
	}

	return &Bus{embedded: embedded, stream: stream}, nil
}

// Close shuts the bus down.
func (b *Bus) Close() error {
	return b.embedded.Close()
}

// Publish records ev under its session's subject. At is filled if unset.
func (b *Bus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	subject := nats.SubjectForEvent(ev.Session, eventType)
	ack, err := b.embedded.JS.Publish(ctx, subject, data)
	if err != nil {
		logger.Error("Failed to publish event to %s: %v", subject, err)
		return fmt.Errorf("publishing event: %w", err)
	}

	logger.Debug("Published %s event for attempt %s (seq=%d)", ev.Kind, ev.AttemptID, ack.Sequence)
	return nil
}

// History returns every retained event for session, oldest first.
func (b *Bus) History(ctx context.Context, session string) ([]Event, error) {
	consumer, err := b.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		FilterSubject: nats.SubjectForSession(session),
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating history consumer: %w", err)
	}
	defer func() {
		_ = b.stream.DeleteConsumer(context.WithoutCancel(ctx), consumer.CachedInfo().Name)
	}()

	const batchSize = 256
	var history []Event
	for {
		msgs, err := consumer.FetchNoWait(batchSize)
		if err != nil {
			break
		}

		count := 0
		for msg := range msgs.Messages() {
			count++
			_ = msg.Ack()

			var ev Event
			if err := json.Unmarshal(msg.Data(), &ev); err != nil {
				logger.Warn("Skipping malformed event on %s: %v", msg.Subject(), err)
				continue
			}
			history = append(history, ev)
		}
		if count == 0 {
			break
		}
	}

	return history, nil
}

// Subscribe calls fn for every event in session, starting with those already
// retained. fn runs on a NATS goroutine. Call the returned stop function to
// unsubscribe.
func (b *Bus) Subscribe(ctx context.Context, session string, fn func(Event)) (func(), error) {
	consumer, err := b.embedded.JS.OrderedConsumer(ctx, nats.StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{nats.SubjectForSession(session)},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("creating subscription: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var ev Event
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			logger.Warn("Skipping malformed event on %s: %v", msg.Subject(), err)
			return
		}
		fn(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("consuming events: %w", err)
	}

	return cc.Stop, nil
}

// Observer returns a generation.Observer that publishes lifecycle events for
// session. Publish failures are logged and otherwise ignored; a missing event
// never fails a generation.
func (b *Bus) Observer(session string) generation.Observer {
	return &observer{bus: b, session: session}
}

type observer struct {
	bus     *Bus
	session string
}

func (o *observer) publish(ev Event) {
	ev.Session = o.session
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.bus.Publish(ctx, ev); err != nil {
		logger.Warn("Dropping %s event for attempt %s: %v", ev.Kind, ev.AttemptID, err)
	}
}

func (o *observer) Submitted(attemptID string, _ generation.Request) {
	o.publish(Event{AttemptID: attemptID, Kind: KindSubmitted})
}

func (o *observer) Succeeded(attemptID string, res *generation.Result) {
	o.publish(Event{AttemptID: attemptID, Kind: KindSucceeded, VideoRef: res.VideoRef, Size: res.Size})
}

func (o *observer) Failed(attemptID string, err error) {
	o.publish(Event{AttemptID: attemptID, Kind: KindFailed, ErrorKind: generation.KindOf(err), Message: err.Error()})
}

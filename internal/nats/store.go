package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// StreamName is the JetStream stream holding generation lifecycle events.
const StreamName = "storyreel_events"

// Retention bounds how long events stay replayable. Streams live in memory,
// so nothing outlives the process either way.
const Retention = time.Hour

// SubjectForSession returns the wildcard subject for all events of a session.
// Example: "storyreel.3f2a.>"
func SubjectForSession(session string) string {
	return fmt.Sprintf("storyreel.%s.>", session)
}

// SubjectForEvent returns the subject for one event type in a session.
// Example: "storyreel.3f2a.generation"
func SubjectForEvent(session, eventType string) string {
	return fmt.Sprintf("storyreel.%s.%s", session, eventType)
}

// SetupStream creates or updates the memory-backed event stream.
func SetupStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	return js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"storyreel.>"},
		Storage:  jetstream.MemoryStorage,
		MaxAge:   Retention,
	})
}

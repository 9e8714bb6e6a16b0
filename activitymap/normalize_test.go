package activitymap_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/goliatone/go-restaurant-auth/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := auth.ActivityEvent{
		EventType:  auth.ActivityEventSessionChanged,
		SubjectID:  "uid-100",
		Provider:   auth.ProviderGoogle,
		FromStatus: auth.StatusAuthenticating,
		ToStatus:   auth.StatusSignedIn,
		Metadata: map[string]any{
			"role": "owner",
		},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "uid-100" {
		t.Fatalf("expected actor_id uid-100, got %q", out.ActorID)
	}
	if out.Verb != string(auth.ActivityEventSessionChanged) {
		t.Fatalf("expected verb %q, got %q", auth.ActivityEventSessionChanged, out.Verb)
	}
	if out.ObjectType != "session" {
		t.Fatalf("expected object_type session, got %q", out.ObjectType)
	}
	if out.ObjectID != "uid-100" {
		t.Fatalf("expected object_id uid-100, got %q", out.ObjectID)
	}
	if out.Channel != "auth" {
		t.Fatalf("expected channel auth, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}

	if out.Metadata["role"] != "owner" {
		t.Fatalf("expected metadata role owner, got %#v", out.Metadata["role"])
	}
	if out.Metadata[activitymap.MetadataKeyProvider] != auth.ProviderGoogle {
		t.Fatalf("expected metadata provider google.com, got %#v", out.Metadata[activitymap.MetadataKeyProvider])
	}
	if out.Metadata[activitymap.MetadataKeyFromStatus] != string(auth.StatusAuthenticating) {
		t.Fatalf("expected metadata from_status authenticating, got %#v", out.Metadata[activitymap.MetadataKeyFromStatus])
	}
	if out.Metadata[activitymap.MetadataKeyToStatus] != string(auth.StatusSignedIn) {
		t.Fatalf("expected metadata to_status signed_in, got %#v", out.Metadata[activitymap.MetadataKeyToStatus])
	}
}

func TestNormalizeAnonymousAndOverrides(t *testing.T) {
	t.Parallel()

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventPasswordResetRequested,
		Metadata:  map[string]any{"email": "ana@example.com"},
	}

	out := activitymap.Normalize(event,
		activitymap.WithDefaultChannel("cli"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e auth.ActivityEvent) string {
			return fmt.Sprint(e.Metadata["email"])
		}),
		activitymap.WithRedactedKeys("email"),
	)

	if out.ActorID != "anonymous" {
		t.Fatalf("expected anonymous actor, got %q", out.ActorID)
	}
	if out.Channel != "cli" || out.ObjectType != "account" {
		t.Fatalf("expected overrides applied, got channel=%q object_type=%q", out.Channel, out.ObjectType)
	}
	if out.ObjectID != "ana@example.com" {
		t.Fatalf("expected resolver object id, got %q", out.ObjectID)
	}
	if out.Metadata != nil {
		t.Fatalf("expected redacted metadata to be empty, got %#v", out.Metadata)
	}
	if out.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to default to now")
	}
}

func TestNormalizeDoesNotMutateEvent(t *testing.T) {
	t.Parallel()

	meta := map[string]any{"error": "boom"}
	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Provider:  auth.ProviderPassword,
		Metadata:  meta,
	}

	out := activitymap.Normalize(event)
	out.Metadata["extra"] = true

	if _, ok := meta["extra"]; ok {
		t.Fatal("normalize must copy metadata")
	}
	if _, ok := meta[activitymap.MetadataKeyProvider]; ok {
		t.Fatal("normalize must not write into the event metadata")
	}
}

type lineLogger struct {
	lines []string
}

func (l *lineLogger) log(level, msg string, args ...any) {
	l.lines = append(l.lines, level+" "+msg+" "+fmt.Sprint(args...))
}

func (l *lineLogger) Debug(msg string, args ...any) { l.log("DBG", msg, args...) }
func (l *lineLogger) Info(msg string, args ...any)  { l.log("INF", msg, args...) }
func (l *lineLogger) Warn(msg string, args ...any)  { l.log("WRN", msg, args...) }
func (l *lineLogger) Error(msg string, args ...any) { l.log("ERR", msg, args...) }

func TestLogSink(t *testing.T) {
	t.Parallel()

	logger := &lineLogger{}
	sink := activitymap.NewLogSink(logger)

	_ = sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginSuccess,
		SubjectID: "uid-1",
		Provider:  auth.ProviderPassword,
	})
	_ = sink.Record(context.Background(), auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Provider:  auth.ProviderPassword,
	})

	if len(logger.lines) != 2 {
		t.Fatalf("expected two log lines, got %d", len(logger.lines))
	}
	if !strings.HasPrefix(logger.lines[0], "INF auth.login.success") || !strings.Contains(logger.lines[0], "uid-1") {
		t.Fatalf("unexpected success line %q", logger.lines[0])
	}
	if !strings.HasPrefix(logger.lines[1], "WRN auth.login.failure") {
		t.Fatalf("unexpected failure line %q", logger.lines[1])
	}
}

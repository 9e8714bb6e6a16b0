package activitymap

import (
	"context"
	"sort"

	auth "github.com/goliatone/go-restaurant-auth"
)

// LogSink writes every activity event to a logger as a normalized record.
type LogSink struct {
	logger auth.Logger
	opts   []Option
}

var _ auth.ActivitySink = (*LogSink)(nil)

// NewLogSink logs at Info level, except failures which log at Warn.
func NewLogSink(logger auth.Logger, opts ...Option) *LogSink {
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &LogSink{logger: logger, opts: opts}
}

// Record implements auth.ActivitySink.
func (s *LogSink) Record(_ context.Context, event auth.ActivityEvent) error {
	n := Normalize(event, s.opts...)

	args := []any{
		"actor", n.ActorID,
		"object", n.ObjectType + ":" + n.ObjectID,
		"channel", n.Channel,
	}

	keys := make([]string, 0, len(n.Metadata))
	for k := range n.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, k, n.Metadata[k])
	}

	if event.EventType == auth.ActivityEventLoginFailure {
		s.logger.Warn(n.Verb, args...)
		return nil
	}
	s.logger.Info(n.Verb, args...)
	return nil
}

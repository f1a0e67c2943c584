// Package events announces rebuilt artifacts over Kafka and reacts to those
// announcements by dropping whatever was derived from the old artifact.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/answer-type-search/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/answer-type-search/pkg/kafka"
)

// ResultsPrefix starts the keys of cached retrieval results.
const ResultsPrefix = "top"

// ArtifactRebuilt is published after an artifact was rebuilt and saved.
type ArtifactRebuilt struct {
	Key     string    `json:"key"`
	Kind    string    `json:"kind"`
	BuiltAt time.Time `json:"built_at"`
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Notifier publishes ArtifactRebuilt events. Publishing is best effort: a
// failure is logged and never reaches the build that triggered it.
type Notifier struct {
	pub     Publisher
	timeout time.Duration
	logger  *slog.Logger
}

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{
		pub:     pub,
		timeout: 5 * time.Second,
		logger:  slog.Default().With("component", "events"),
	}
}

// ArtifactRebuilt has the artifact.RebuildHook signature.
func (n *Notifier) ArtifactRebuilt(ctx context.Context, key string, builtAt time.Time) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	event := ArtifactRebuilt{Key: key, Kind: artifact.Kind(key), BuiltAt: builtAt}
	if err := n.pub.Publish(ctx, kafka.Event{Key: key, Value: event}); err != nil {
		n.logger.Warn("rebuild event not published", "key", key, "error", err)
		return
	}
	n.logger.Debug("rebuild event published", "key", key)
}

// Invalidator drops cached entries whose key starts with prefix.
type Invalidator interface {
	Invalidate(ctx context.Context, prefix string) (int, error)
}

// HandleRebuilt returns the consumer handler for ArtifactRebuilt events.
// Every rebuilt input artifact drops the cached retrieval results and the
// prediction cache; either may be nil. Rebuilt retrieval results only drop
// predictions. Undecodable messages are logged and dropped.
func HandleRebuilt(results, predictions Invalidator) kafka.MessageHandler {
	logger := slog.Default().With("component", "events")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ArtifactRebuilt](value)
		if err != nil {
			logger.Warn("dropping undecodable rebuild event", "key", string(key), "error", err)
			return nil
		}

		if results != nil && !strings.HasPrefix(event.Key, ResultsPrefix) {
			n, err := results.Invalidate(ctx, ResultsPrefix)
			if err != nil {
				return fmt.Errorf("invalidating results after %s: %w", event.Key, err)
			}
			logger.Info("retrieval results invalidated", "trigger", event.Key, "deleted", n)
		}
		if predictions != nil {
			n, err := predictions.Invalidate(ctx, "")
			if err != nil {
				return fmt.Errorf("invalidating predictions after %s: %w", event.Key, err)
			}
			logger.Info("prediction cache invalidated", "trigger", event.Key, "deleted", n)
		}
		return nil
	}
}

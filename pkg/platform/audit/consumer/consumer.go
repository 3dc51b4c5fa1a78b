// Package consumer materializes the Kafka audit stream into a queryable store.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "nameguard/pkg/platform/audit"
	kafkastore "nameguard/pkg/platform/audit/store/kafka"
)

// DefaultGroup is the consumer group used by the audit sink.
const DefaultGroup = "nameguard-audit-sink"

// Consumer reads audit records from a topic and appends them to a store.
// Offsets are committed only after a fetch has been fully persisted, so a
// crash replays events; stores must be idempotent on event ID.
type Consumer struct {
	client *kgo.Client
	store  audit.Store
	logger *slog.Logger
}

// New creates a consumer in group for topic.
func New(brokers []string, topic, group string, store audit.Store, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("audit consumer requires at least one broker")
	}
	if topic == "" {
		topic = kafkastore.DefaultTopic
	}
	if group == "" {
		group = DefaultGroup
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, store: store, logger: logger}, nil
}

// Run polls until ctx is cancelled. Undecodable records are logged and
// skipped; a store failure stops the consumer without committing.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			c.logger.WarnContext(ctx, "audit fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var storeErr error
		fetches.EachRecord(func(r *kgo.Record) {
			if storeErr != nil {
				return
			}
			event, err := kafkastore.DecodeEvent(r.Value)
			if err != nil {
				c.logger.WarnContext(ctx, "skipping undecodable audit record",
					"topic", r.Topic,
					"partition", r.Partition,
					"offset", r.Offset,
					"error", err,
				)
				return
			}
			storeErr = c.store.Append(ctx, event)
		})
		if storeErr != nil {
			return fmt.Errorf("materialize audit event: %w", storeErr)
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.WarnContext(ctx, "audit offset commit failed", "error", err)
		}
	}
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

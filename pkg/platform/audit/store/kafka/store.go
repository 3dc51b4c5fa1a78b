// Package kafka streams audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "nameguard/pkg/platform/audit"
)

const DefaultTopic = "nameguard.audit.compliance"

// Store implements audit.Store by producing each event synchronously. Append
// returns only after the brokers acknowledged the record, which keeps the
// compliance publisher fail-closed.
type Store struct {
	client *kgo.Client
	topic  string
}

// Payload is the JSON value of each record. Consumers decode with DecodeEvent.
type Payload struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	Action      string `json:"action"`
	Decision    string `json:"decision"`
	Source      string `json:"source,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Confidence  *int   `json:"confidence,omitempty"`
	SubjectHash string `json:"subject_hash,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

// New connects a producer to brokers for topic.
func New(brokers []string, topic string) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka audit store requires at least one broker")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic}, nil
}

// Topic returns the destination topic.
func (s *Store) Topic() string {
	return s.topic
}

// EnsureTopic creates the topic if it does not exist.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Append produces the event keyed by subject hash, so every screening of the
// same name pair lands on one partition in order.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	value, err := json.Marshal(EncodeEvent(event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.SubjectHash),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and closes the producer.
func (s *Store) Close() {
	s.client.Close()
}

// EncodeEvent converts an event to its wire payload.
func EncodeEvent(event audit.Event) Payload {
	return Payload{
		ID:          event.ID.String(),
		Category:    string(event.Category),
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:      event.Action,
		Decision:    event.Decision,
		Source:      event.Source,
		Reason:      event.Reason,
		Confidence:  event.Confidence,
		SubjectHash: event.SubjectHash,
		RequestID:   event.RequestID,
		ActorID:     event.ActorID,
	}
}

// DecodeEvent parses a record value produced by Append.
func DecodeEvent(value []byte) (audit.Event, error) {
	var p Payload
	if err := json.Unmarshal(value, &p); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit payload: %w", err)
	}
	eventID, err := uuid.Parse(p.ID)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit event id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse audit timestamp: %w", err)
	}
	return audit.Event{
		ID:          eventID,
		Category:    audit.EventCategory(p.Category),
		Timestamp:   ts,
		Action:      p.Action,
		Decision:    p.Decision,
		Source:      p.Source,
		Reason:      p.Reason,
		Confidence:  p.Confidence,
		SubjectHash: p.SubjectHash,
		RequestID:   p.RequestID,
		ActorID:     p.ActorID,
	}, nil
}

//go:build integration

package kafka_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/platform/audit/consumer"
	"nameguard/pkg/platform/audit/store/kafka"
	"nameguard/pkg/platform/audit/store/memory"
	"nameguard/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaStoreSuite) newStore() *kafka.Store {
	store, err := kafka.New(s.redpanda.Brokers, "audit-"+uuid.NewString())
	s.Require().NoError(err)
	s.T().Cleanup(store.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.Require().NoError(store.EnsureTopic(ctx, 1, 1))
	s.Require().NoError(store.EnsureTopic(ctx, 1, 1), "EnsureTopic is idempotent")
	return store
}

func (s *KafkaStoreSuite) TestAppendProducesKeyedRecord() {
	store := s.newStore()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	event := audit.ComplianceEvent{
		Timestamp:   time.Now(),
		Action:      audit.EventNameVerification,
		Decision:    audit.DecisionNoMatch,
		Source:      "semantic_verifier",
		SubjectHash: audit.SubjectHash("rashid", "rashidi"),
		RequestID:   "req-kafka",
	}.ToEvent()
	s.Require().NoError(store.Append(ctx, event))

	reader, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(store.Topic()),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer reader.Close()

	fetches := reader.PollRecords(ctx, 1)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)
	s.Equal(event.SubjectHash, string(records[0].Key))

	decoded, err := kafka.DecodeEvent(records[0].Value)
	s.Require().NoError(err)
	s.Equal(event.ID, decoded.ID)
	s.Equal(audit.DecisionNoMatch, decoded.Decision)
}

func (s *KafkaStoreSuite) TestConsumerMaterializesEvents() {
	store := s.newStore()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for i := range 3 {
		event := audit.ComplianceEvent{
			Timestamp:   time.Now(),
			Action:      audit.EventNameVerification,
			Decision:    audit.DecisionMatch,
			SubjectHash: audit.SubjectHash("pair", string(rune('a'+i))),
		}.ToEvent()
		s.Require().NoError(store.Append(ctx, event))
	}

	sink := memory.NewInMemoryStore()
	c, err := consumer.New(s.redpanda.Brokers, store.Topic(), "group-"+uuid.NewString(), sink, nil)
	s.Require().NoError(err)
	defer c.Close()

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- c.Run(runCtx) }()

	s.Eventually(func() bool {
		events, _ := sink.ListAll(ctx)
		return len(events) == 3
	}, 20*time.Second, 100*time.Millisecond)

	stop()
	s.NoError(<-done)
}

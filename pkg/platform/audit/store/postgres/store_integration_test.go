//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	audit "nameguard/pkg/platform/audit"
	"nameguard/pkg/platform/audit/store/postgres"
	"nameguard/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "audit_events")
	s.Require().NoError(err)
}

func newEvent(subjectHash string, at time.Time) audit.Event {
	confidence := 100
	return audit.ComplianceEvent{
		Timestamp:   at,
		Action:      audit.EventNameVerification,
		Decision:    audit.DecisionMatch,
		Source:      "hard_rule",
		Reason:      "exact_match",
		Confidence:  &confidence,
		SubjectHash: subjectHash,
		RequestID:   uuid.NewString(),
	}.ToEvent()
}

func (s *PostgresStoreSuite) TestAppendAndListRecent() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	older := newEvent(audit.SubjectHash("a", "b"), base.Add(-time.Minute))
	newer := newEvent(audit.SubjectHash("c", "d"), base)
	s.Require().NoError(s.store.Append(ctx, older))
	s.Require().NoError(s.store.Append(ctx, newer))

	events, err := s.store.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(newer.ID, events[0].ID)
	s.Equal(older.ID, events[1].ID)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Require().NotNil(events[0].Confidence)
	s.Equal(100, *events[0].Confidence)
	s.True(newer.Timestamp.Equal(events[0].Timestamp))
}

func (s *PostgresStoreSuite) TestAppendIsIdempotent() {
	ctx := context.Background()
	event := newEvent(audit.SubjectHash("x", "y"), time.Now())

	s.Require().NoError(s.store.Append(ctx, event))
	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListBySubject(ctx, event.SubjectHash)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *PostgresStoreSuite) TestNilConfidenceRoundTrip() {
	ctx := context.Background()
	event := newEvent(audit.SubjectHash("p", "q"), time.Now())
	event.Confidence = nil
	event.Decision = audit.DecisionUnknown

	s.Require().NoError(s.store.Append(ctx, event))

	events, err := s.store.ListBySubject(ctx, event.SubjectHash)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Nil(events[0].Confidence)
	s.Equal(audit.DecisionUnknown, events[0].Decision)
}

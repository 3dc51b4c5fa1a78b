// Package audit records the compliance trail of name verifications.
//
// Events never carry raw names. The subject of a verification is identified
// by SubjectHash, a SHA-256 over the normalized name pair, which is enough to
// correlate repeated screenings of the same pair without storing PII.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// These require guaranteed persistence and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for operational visibility.
	CategoryOperations EventCategory = "operations"
)

type AuditEvent string

const (
	// EventNameVerification is one decided (or failed) name pair.
	EventNameVerification AuditEvent = "name_verification"
	// EventScreeningCompleted summarizes a batch screening run.
	EventScreeningCompleted AuditEvent = "screening_completed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventNameVerification:   CategoryCompliance,
	EventScreeningCompleted: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Decision values recorded for verification events.
const (
	DecisionMatch   = "match"
	DecisionNoMatch = "no_match"
	DecisionUnknown = "unknown"
	DecisionErrored = "error"
)

// Event is the stored form of an audit record. Keep it transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	ID          uuid.UUID
	Category    EventCategory
	Timestamp   time.Time
	Action      string
	Decision    string
	Source      string // hard_rule or semantic_verifier
	Reason      string // rule name, or verifier error category
	Confidence  *int
	SubjectHash string
	RequestID   string
	ActorID     string // authenticated caller, when known
}

// ComplianceEvent captures a regulatory-significant action requiring
// guaranteed persistence. Use with the compliance publisher for fail-closed
// semantics.
type ComplianceEvent struct {
	Timestamp   time.Time // set automatically if zero
	Action      AuditEvent
	Decision    string
	Source      string
	Reason      string
	Confidence  *int
	SubjectHash string
	RequestID   string
	ActorID     string
}

// ToEvent converts to the stored Event form with a fresh ID.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		ID:          uuid.New(),
		Category:    e.Action.Category(),
		Timestamp:   e.Timestamp,
		Action:      string(e.Action),
		Decision:    e.Decision,
		Source:      e.Source,
		Reason:      e.Reason,
		Confidence:  e.Confidence,
		SubjectHash: e.SubjectHash,
		RequestID:   e.RequestID,
		ActorID:     e.ActorID,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Reader lists persisted events, most recent first.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// SubjectHash hashes a normalized name pair. Order matters: (a, b) and (b, a)
// are different screenings.
func SubjectHash(normalizedTarget, normalizedCandidate string) string {
	sum := sha256.Sum256([]byte(normalizedTarget + "\x00" + normalizedCandidate))
	return hex.EncodeToString(sum[:])
}

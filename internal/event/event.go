// Package event publishes ledger notifications to external collaborators.
// Delivery is fire-and-forget: a failed publish is logged, never surfaced to
// the mutation that triggered it.
package event

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// TierChangedSubject is the NATS subject tier transitions are published on.
const TierChangedSubject = "loyalty.tier.changed"

// TierChanged is emitted when a committed mutation moves a member across a
// tier threshold.
type TierChanged struct {
	MemberID   uuid.UUID `json:"memberId"`
	OldTier    string    `json:"oldTier"`
	NewTier    string    `json:"newTier"`
	Balance    int64     `json:"balance"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers ledger events to an external collaborator.
type Publisher interface {
	PublishTierChanged(ev TierChanged)
}

// NATSPublisher publishes events as JSON over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher wraps an established NATS connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// PublishTierChanged publishes the event on TierChangedSubject. A nil
// receiver or connection degrades to a no-op so the ledger keeps working
// without a broker.
func (p *NATSPublisher) PublishTierChanged(ev TierChanged) {
	if p == nil || p.conn == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("failed to encode tier change event", "error", err)
		return
	}

	if err := p.conn.Publish(TierChangedSubject, payload); err != nil {
		slog.Warn("failed to publish tier change event",
			"memberId", ev.MemberID,
			"newTier", ev.NewTier,
			"error", err,
		)
	}
}

// LogPublisher records events to the structured log. Used when no NATS URL
// is configured.
type LogPublisher struct{}

// PublishTierChanged logs the tier transition.
func (LogPublisher) PublishTierChanged(ev TierChanged) {
	slog.Info("member tier changed",
		"memberId", ev.MemberID,
		"oldTier", ev.OldTier,
		"newTier", ev.NewTier,
		"balance", ev.Balance,
	)
}

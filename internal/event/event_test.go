package event_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/loyaltyhub/points-ledger/internal/event"
)

func TestNATSPublisher_NoOpWithoutConnection(t *testing.T) {
	t.Parallel()

	ev := event.TierChanged{
		MemberID:   uuid.New(),
		OldTier:    "Bronze",
		NewTier:    "Silver",
		Balance:    600,
		OccurredAt: time.Now(),
	}

	var nilPub *event.NATSPublisher
	assert.NotPanics(t, func() { nilPub.PublishTierChanged(ev) })
	assert.NotPanics(t, func() { event.NewNATSPublisher(nil).PublishTierChanged(ev) })
}

func TestLogPublisher_DoesNotPanic(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		event.LogPublisher{}.PublishTierChanged(event.TierChanged{MemberID: uuid.New()})
	})
}

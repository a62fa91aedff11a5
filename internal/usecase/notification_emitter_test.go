package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/fixture"
	"github.com/riskibarqy/fixture-calendar-sync/internal/domain/notification"
	"github.com/riskibarqy/fixture-calendar-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fixture-calendar-sync/internal/platform/logging"
)

func newTestEmitter() *NotificationEmitter {
	e := NewNotificationEmitter(memory.NewNotificationRepository(), nil, 2, logging.NewNop())
	e.now = func() time.Time { return harnessNow }
	return e
}

func emitterFixture(id string) fixture.Fixture {
	return fixture.Fixture{ID: id, HomeTeamName: "Arsenal", AwayTeamName: "Chelsea", KickoffAt: harnessNow.Add(24 * time.Hour)}
}

func TestNotificationEmitter_FlushDedupesWithinPass(t *testing.T) {
	ctx := context.Background()
	e := newTestEmitter()

	batch := e.NewBatch("u1", "pass-1")
	batch.MatchAdded(emitterFixture("fx_a"))
	batch.MatchAdded(emitterFixture("fx_b"))
	sent, err := batch.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Zero(t, batch.Len())

	again := e.NewBatch("u1", "pass-1")
	again.MatchAdded(emitterFixture("fx_a"))
	sent, err = again.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent)
}

func TestNotificationEmitter_BurstBecomesDigest(t *testing.T) {
	ctx := context.Background()
	e := newTestEmitter()

	batch := e.NewBatch("u1", "pass-2")
	for _, id := range []string{"fx_1", "fx_2", "fx_3", "fx_4"} {
		batch.MatchAdded(emitterFixture(id))
	}
	sent, err := batch.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	items, err := e.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, notification.KindMatchDigest, items[0].Kind)
	assert.Equal(t, "4 matches added to your calendar", items[0].Title)
	assert.Contains(t, items[0].Body, "and 1 more")
	assert.Len(t, items[0].FixtureIDs, 4)
}

func TestNotificationEmitter_ListAndMarkRead(t *testing.T) {
	ctx := context.Background()
	e := newTestEmitter()

	require.NoError(t, e.SyncFailed(ctx, "u1", "pass-3", errors.New("calendar down")))
	created, err := e.ReconnectRequired(ctx, "u1", harnessNow)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = e.ReconnectRequired(ctx, "u1", harnessNow)
	require.NoError(t, err)
	assert.False(t, created)

	unread, err := e.List(ctx, "u1", true, 0)
	require.NoError(t, err)
	require.Len(t, unread, 2)

	updated, err := e.MarkRead(ctx, "u1", []string{unread[0].ID, " ", unread[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	unread, err = e.List(ctx, "u1", true, 0)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}

func TestNotificationEmitter_RejectsMissingInput(t *testing.T) {
	ctx := context.Background()
	e := newTestEmitter()

	_, err := e.List(ctx, " ", false, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.MarkRead(ctx, "u1", []string{"", "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

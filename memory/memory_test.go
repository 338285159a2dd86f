package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coordframe/agentcoord/internal/clock"
	"github.com/coordframe/agentcoord/internal/eventbus"
	memstore "github.com/coordframe/agentcoord/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *eventbus.Bus, *clock.Test) {
	t.Helper()
	s := memstore.New()
	bus := eventbus.New(nil)
	c := clock.NewTest(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc, err := New(Options{Store: s, Bus: bus, Clock: c})
	require.NoError(t, err)
	return svc, bus, c
}

func TestSaveRejectsEmptyKeyOrValue(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "", "", "v", "", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = svc.Save(ctx, "", "k", "", "", nil)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSaveInsertThenRead(t *testing.T) {
	svc, bus, _ := newTestService(t)
	ctx := context.Background()

	sub := bus.Subscribe(eventbus.MemoryEventsFor("", "k"), eventbus.SubscribeOptions{})
	defer sub.Cancel()

	entry, err := svc.Save(ctx, "", "k", "v1", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", entry.Value)
	assert.Equal(t, DefaultType, entry.Type)
	assert.Equal(t, int64(0), entry.AccessCount)
	assert.Nil(t, entry.AccessedAt)

	read, ok, err := svc.Read(ctx, "", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", read.Value)

	evCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ev, ok := sub.Next(evCtx)
	require.True(t, ok)
	me := ev.(eventbus.MemoryEvent)
	assert.Equal(t, eventbus.MemorySaved, me.Variant())
}

func TestSaveUpsertPreservesCreatedAtAndAccessStats(t *testing.T) {
	svc, bus, c := newTestService(t)
	ctx := context.Background()

	_, err := svc.Save(ctx, "", "k", "v1", "", nil)
	require.NoError(t, err)
	_, err = svc.TouchAccess(ctx, "", "k")
	require.NoError(t, err)

	firstCreatedAt := c.Now()
	c.Advance(time.Hour)

	sub := bus.Subscribe(eventbus.MemoryEventsFor("", "k"), eventbus.SubscribeOptions{})
	defer sub.Cancel()

	updated, err := svc.Save(ctx, "", "k", "v2", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Value)
	assert.Equal(t, firstCreatedAt, updated.CreatedAt, "createdAt must be preserved across upsert")
	assert.Equal(t, int64(1), updated.AccessCount, "access stats must be preserved across upsert")
	assert.Equal(t, c.Now(), updated.LastUpdatedAt)

	evCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ev, ok := sub.Next(evCtx)
	require.True(t, ok)
	me := ev.(eventbus.MemoryEvent)
	assert.Equal(t, eventbus.MemoryUpdated, me.Variant())
}

func TestReadDoesNotMutateAccessStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Save(ctx, "", "k", "v1", "", nil)
	require.NoError(t, err)

	_, _, err = svc.Read(ctx, "", "k")
	require.NoError(t, err)
	entry, ok, err := svc.Read(ctx, "", "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(0), entry.AccessCount)
	assert.Nil(t, entry.AccessedAt)
}

func TestTouchAccessIncrementsAndSetsAccessedAt(t *testing.T) {
	svc, _, c := newTestService(t)
	ctx := context.Background()
	_, err := svc.Save(ctx, "", "k", "v1", "", nil)
	require.NoError(t, err)

	ok, err := svc.TouchAccess(ctx, "", "k")
	require.NoError(t, err)
	assert.True(t, ok)

	entry, _, err := svc.Read(ctx, "", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.AccessCount)
	require.NotNil(t, entry.AccessedAt)
	assert.Equal(t, c.Now(), *entry.AccessedAt)

	ok, err = svc.TouchAccess(ctx, "", "k")
	require.NoError(t, err)
	assert.True(t, ok)
	entry, _, err = svc.Read(ctx, "", "k")
	require.NoError(t, err)
	assert.Equal(t, int64(2), entry.AccessCount)
}

func TestTouchAccessUnknownKeyReturnsFalse(t *testing.T) {
	svc, _, _ := newTestService(t)
	ok, err := svc.TouchAccess(context.Background(), "", "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListReturnsEntriesInNamespace(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Save(ctx, "ns1", "a", "v", "", nil)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "ns1", "b", "v", "", nil)
	require.NoError(t, err)
	_, err = svc.Save(ctx, "ns2", "c", "v", "", nil)
	require.NoError(t, err)

	entries, err := svc.List(ctx, "ns1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = svc.List(ctx, "ns2")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

package services

import (
	"context"
	"testing"
	"time"

	"campusnet/internal/docstore"
	"campusnet/internal/models"
	"campusnet/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEventRejectsBackwardsTimes(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewEventService(storage.NewDocEventRepository(store))

	start := time.Now().Add(time.Hour)
	end := start.Add(-time.Minute)
	_, err := svc.CreateEvent(context.Background(), &models.CampusEvent{
		Title: "Club fair",
		Start: start,
		End:   &end,
	})
	assert.ErrorIs(t, err, ErrInvalidEventTime)
}

func TestCreateEventEntersModeration(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewEventService(storage.NewDocEventRepository(store))
	ctx := context.Background()

	start := time.Now().Add(time.Hour)
	end := start.Add(2 * time.Hour)
	id, err := svc.CreateEvent(ctx, &models.CampusEvent{
		Title:     "Club fair",
		Start:     start,
		End:       &end,
		CreatedBy: "ada",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := store.Collection("events").Doc(id).Get(ctx)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, models.EventStatusPendingReview, snap.Str("status"))
	assert.Equal(t, "ada", snap.Str("createdBy"))
	assert.False(t, snap.Time("createdAt").IsZero())
}

func TestCleanupExpiredRemovesOnlyPastEvents(t *testing.T) {
	store := docstore.NewMemory()
	svc := NewEventService(storage.NewDocEventRepository(store))
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	require.NoError(t, store.Collection("events").Doc("old").Set(ctx, map[string]any{
		"title": "Yesterday", "end": past,
	}))
	require.NoError(t, store.Collection("events").Doc("upcoming").Set(ctx, map[string]any{
		"title": "Tomorrow", "end": future,
	}))
	// No end time means the event never expires.
	require.NoError(t, store.Collection("events").Doc("openended").Set(ctx, map[string]any{
		"title": "Standing meetup",
	}))

	deleted, err := svc.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	snaps, err := store.Collection("events").Documents(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
}

package storage

import (
	"context"
	"fmt"
	"time"

	"campusnet/internal/docstore"
	"campusnet/internal/models"
)

const eventsCollection = "events"

// EventRepository defines campus event document operations.
type EventRepository interface {
	Create(ctx context.Context, event *models.CampusEvent) (string, error)
	// DeleteExpired removes events whose end time is before now and
	// returns how many were deleted.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// docEventRepository implements EventRepository over the document store.
type docEventRepository struct {
	store docstore.Client
}

// NewDocEventRepository creates a new document-store-backed EventRepository.
func NewDocEventRepository(store docstore.Client) EventRepository {
	return &docEventRepository{store: store}
}

// Create writes a new event document with a server-assigned id.
func (r *docEventRepository) Create(ctx context.Context, event *models.CampusEvent) (string, error) {
	ref := r.store.Collection(eventsCollection).NewDoc()
	data := map[string]any{
		"title":        event.Title,
		"desc":         event.Desc,
		"locationName": event.LocationName,
		"lat":          event.Lat,
		"lng":          event.Lng,
		"start":        event.Start,
		"tags":         event.Tags,
		"bannerUrl":    event.BannerURL,
		"createdBy":    event.CreatedBy,
		"status":       event.Status,
		"createdAt":    docstore.ServerTimestamp,
		"updatedAt":    docstore.ServerTimestamp,
	}
	if event.End != nil {
		data["end"] = *event.End
	}
	if err := ref.Set(ctx, data); err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return ref.ID(), nil
}

// DeleteExpired removes every event whose end time has passed.
func (r *docEventRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	events := r.store.Collection(eventsCollection)
	snaps, err := events.Where("end", "<", now).Documents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to query expired events: %w", err)
	}

	deleted := 0
	for _, snap := range snaps {
		if err := events.Doc(snap.ID).Delete(ctx); err != nil {
			return deleted, fmt.Errorf("failed to delete expired event %s: %w", snap.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

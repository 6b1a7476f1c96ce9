package services

import (
	"context"
	"errors"
	"log"
	"time"

	"campusnet/internal/models"
	"campusnet/internal/storage"
)

var ErrInvalidEventTime = errors.New("event end must be after start")

// EventService handles campus event submission and expiry cleanup.
type EventService interface {
	CreateEvent(ctx context.Context, event *models.CampusEvent) (string, error)
	CleanupExpired(ctx context.Context) (int, error)
}

type eventService struct {
	eventRepo storage.EventRepository
}

// NewEventService creates a new EventService instance.
func NewEventService(eventRepo storage.EventRepository) EventService {
	return &eventService{eventRepo: eventRepo}
}

// CreateEvent validates and stores a submitted event. New events enter
// moderation as pending_review.
func (s *eventService) CreateEvent(ctx context.Context, event *models.CampusEvent) (string, error) {
	if event.End != nil && !event.End.After(event.Start) {
		return "", ErrInvalidEventTime
	}
	event.Status = models.EventStatusPendingReview
	return s.eventRepo.Create(ctx, event)
}

// CleanupExpired removes events whose end time has passed.
func (s *eventService) CleanupExpired(ctx context.Context) (int, error) {
	deleted, err := s.eventRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("Expired event cleanup removed %d events", deleted)
	}
	return deleted, nil
}

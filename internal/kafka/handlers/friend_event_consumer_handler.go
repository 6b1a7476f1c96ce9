package kafkahandlers

import (
	"context"
	"encoding/json"
	"log"

	"campusnet/internal/models"
	ws "campusnet/internal/websocket"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// FriendEventConsumerLogic routes friend graph events from Kafka to the
// WebSocket hub for real-time delivery.
type FriendEventConsumerLogic struct {
	hub *ws.Hub
}

// NewFriendEventConsumerLogic creates a new instance of FriendEventConsumerLogic.
func NewFriendEventConsumerLogic(hub *ws.Hub) *FriendEventConsumerLogic {
	if hub == nil {
		log.Panic("hub cannot be nil")
	}
	return &FriendEventConsumerLogic{hub: hub}
}

// HandleFriendEvent processes a single Kafka message carrying a friend
// event. Malformed payloads are logged and skipped so the offset still
// commits; they would never become valid on retry.
func (h *FriendEventConsumerLogic) HandleFriendEvent(ctx context.Context, msg *kafka.Message) error {
	var event models.FriendEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Printf("Error unmarshalling friend event (Value: '%s'): %v. This message will be skipped.", string(msg.Value), err)
		return nil
	}
	if event.ToUID == "" {
		log.Printf("Friend event without recipient (Key: %s). This message will be skipped.", string(msg.Key))
		return nil
	}

	h.hub.DeliverDirect(&event)
	return nil
}

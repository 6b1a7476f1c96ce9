package websocket

import (
	"encoding/json"
	"log"

	"campusnet/internal/models"
)

// Hub maintains the set of active notification clients and routes
// friend events to the right connection.
type Hub struct {
	// Registered clients, mapping uid to Client. One connection per uid;
	// a new connection replaces the old one.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Events aimed at a specific user.
	direct chan *models.FriendEvent
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
		direct:     make(chan *models.FriendEvent, 256),
	}
}

// DeliverDirect hands an event to the hub for delivery to its ToUID.
// Non-blocking so the Kafka consumer never stalls on a slow hub.
func (h *Hub) DeliverDirect(event *models.FriendEvent) {
	select {
	case h.direct <- event:
	default:
		log.Printf("Warning: hub direct channel is full, dropping event for %s", event.ToUID)
	}
}

// Run starts the hub and listens for messages on its channels.
func (h *Hub) Run() {
	log.Println("WebSocket Hub Run loop started.")
	for {
		select {
		case client := <-h.register:
			if existingClient, ok := h.clients[client.UID]; ok {
				log.Printf("Warning: uid %s already connected, replacing old connection.", client.UID)
				close(existingClient.send)
			}
			h.clients[client.UID] = client
			log.Printf("Client registered: uid %s", client.UID)

		case client := <-h.unregister:
			// Only drop the entry if it still points at this connection;
			// a replacement may already have taken the slot.
			if storedClient, ok := h.clients[client.UID]; ok && storedClient == client {
				delete(h.clients, client.UID)
				close(client.send)
				log.Printf("Client unregistered: uid %s", client.UID)
			}

		case event := <-h.direct:
			client, ok := h.clients[event.ToUID]
			if !ok {
				// User not connected to this instance.
				continue
			}
			payload, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error: could not serialize event for uid %s: %v", event.ToUID, err)
				continue
			}
			select {
			case client.send <- payload:
			default:
				log.Printf("Warning: send channel full for uid %s, removing client.", event.ToUID)
				close(client.send)
				delete(h.clients, event.ToUID)
			}
		}
	}
}

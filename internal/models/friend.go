package models

import "time"

// FriendEdge is one direction of a confirmed friendship, stored at
// users/{owner}/friends/{peer}. A friendship between A and B exists as
// exactly two mirrored edges, created and destroyed together inside a
// single transaction. Name and PhotoURL are denormalized copies taken
// from the peer's profile at acceptance time.
type FriendEdge struct {
	UID         string    `json:"uid"` // the peer's uid
	Since       time.Time `json:"since"`
	LastUpdated time.Time `json:"lastUpdated"`
	Name        string    `json:"name,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
}

// FriendRequest is a pending directed invitation stored in the
// recipient's inbox at users/{recipient}/friendRequests/{sender}.
type FriendRequest struct {
	FromUID   string    `json:"fromUid"`
	CreatedAt time.Time `json:"createdAt"`
}

// FriendSummary is one entry of the friends listing. Display fields
// come from a live read of the peer's profile, not from the
// denormalized edge copy; Since comes from the edge.
type FriendSummary struct {
	UID      string    `json:"uid"`
	Name     string    `json:"name"`
	PhotoURL string    `json:"photoURL,omitempty"`
	Since    time.Time `json:"since"`
}

// SearchResult is one entry of the user search response.
type SearchResult struct {
	UID      string `json:"uid"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
}

// FriendStatus describes the relationship between two users as three
// independent flags.
type FriendStatus struct {
	Friend          bool `json:"friend"`
	IncomingPending bool `json:"incomingPending"`
	ISentPending    bool `json:"iSentPending"`
}

// Friend event types published to Kafka after a graph transaction
// commits.
const (
	FriendEventRequest  = "friend_request"
	FriendEventAccepted = "request_accepted"
)

// FriendEvent is the notification payload for the WebSocket push
// pipeline. ToUID addresses the connection the notify server should
// deliver to.
type FriendEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	FromUID   string    `json:"fromUid"`
	ToUID     string    `json:"toUid"`
	FromName  string    `json:"fromName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

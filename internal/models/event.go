package models

import "time"

// Event moderation states.
const (
	EventStatusPendingReview = "pending_review"
	EventStatusApproved      = "approved"
)

// CampusEvent is a document in the top-level events collection.
// Expired events (End in the past) are removed by a background
// sweeper rather than on read.
type CampusEvent struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Desc         string     `json:"desc,omitempty"`
	LocationName string     `json:"locationName,omitempty"`
	Lat          float64    `json:"lat"`
	Lng          float64    `json:"lng"`
	Start        time.Time  `json:"start"`
	End          *time.Time `json:"end,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	BannerURL    string     `json:"bannerUrl,omitempty"`
	CreatedBy    string     `json:"createdBy"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt,omitempty"`
}

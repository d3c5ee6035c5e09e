package domain

import "time"

// PropertyInteraction records a visitor's reaction to one property within
// one collection.
type PropertyInteraction struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	PropertyID   string `json:"property_id"`

	Liked     bool `json:"liked"`
	Disliked  bool `json:"disliked"`
	Favorited bool `json:"favorited"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PropertyComment is a visitor note on one property within one collection.
type PropertyComment struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	PropertyID   string `json:"property_id"`

	VisitorName  string `json:"visitor_name,omitempty"`
	VisitorEmail string `json:"visitor_email,omitempty"`
	Content      string `json:"content"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

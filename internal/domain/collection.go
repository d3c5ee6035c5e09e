package domain

import "time"

// CollectionStatus is the lifecycle state of a collection.
type CollectionStatus string

const (
	CollectionActive   CollectionStatus = "ACTIVE"
	CollectionInactive CollectionStatus = "INACTIVE"
)

// Valid reports whether the status is a known value.
func (s CollectionStatus) Valid() bool {
	return s == CollectionActive || s == CollectionInactive
}

// Collection is a named set of properties built for one visitor's
// interests and owned by a single agent. Membership is a set (no
// ordering) through the collection_properties association.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// OwnerID is the owning agent. Empty only on legacy anonymous rows;
	// every creation path now requires an owner.
	OwnerID string `json:"owner_id,omitempty"`

	ShareToken string           `json:"share_token,omitempty"`
	IsPublic   bool             `json:"is_public"`
	Status     CollectionStatus `json:"status"`

	// Visitor contact captured at the open house.
	VisitorName  string `json:"visitor_name,omitempty"`
	VisitorEmail string `json:"visitor_email,omitempty"`
	VisitorPhone string `json:"visitor_phone,omitempty"`

	// SourceListingID references the open-house listing this collection
	// was spawned from, when it was created through a visitor form.
	SourceListingID string `json:"source_listing_id,omitempty"`

	// LastSyncedAt is the most recent sync attempt (success or failure).
	// Nil means the scheduler has never touched it.
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

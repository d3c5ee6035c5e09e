package domain

import "time"

// TourStatus is the lifecycle state of a tour request.
type TourStatus string

const (
	TourPending   TourStatus = "PENDING"
	TourConfirmed TourStatus = "CONFIRMED"
	TourCompleted TourStatus = "COMPLETED"
	TourCancelled TourStatus = "CANCELLED"
)

// IsValid reports whether the status is one of the known states.
func (s TourStatus) IsValid() bool {
	switch s {
	case TourPending, TourConfirmed, TourCompleted, TourCancelled:
		return true
	}
	return false
}

// TourRequest is a visitor's ask to see one property from a shared
// collection in person. Contact details are copied from the collection at
// request time so the agent can follow up even if the collection changes.
type TourRequest struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`
	PropertyID   string `json:"property_id"`

	VisitorName  string `json:"visitor_name"`
	VisitorEmail string `json:"visitor_email"`
	VisitorPhone string `json:"visitor_phone"`

	// Up to three preferred slots, in order of preference. Only the
	// first is required.
	PreferredDate  string `json:"preferred_date"`
	PreferredTime  string `json:"preferred_time"`
	PreferredDate2 string `json:"preferred_date_2,omitempty"`
	PreferredTime2 string `json:"preferred_time_2,omitempty"`
	PreferredDate3 string `json:"preferred_date_3,omitempty"`
	PreferredTime3 string `json:"preferred_time_3,omitempty"`

	Message string     `json:"message,omitempty"`
	Status  TourStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

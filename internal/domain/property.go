package domain

import "time"

// Property is a real-world listing tracked by the server. Properties seen
// through the upstream listing API carry the provider's numeric ID in
// ExternalID; a property with no external ID is locally authored and can
// never be deduplicated against upstream results.
type Property struct {
	ID string `json:"id"`

	// ExternalID is the upstream provider's listing ID, the natural key
	// for dedup. Zero means unset.
	ExternalID int64 `json:"external_id,omitempty"`

	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Zipcode       string `json:"zipcode,omitempty"`

	Price      *int64   `json:"price,omitempty"`
	Zestimate  *int64   `json:"zestimate,omitempty"`
	Bedrooms   *int     `json:"bedrooms,omitempty"`
	Bathrooms  *float64 `json:"bathrooms,omitempty"`
	LivingArea *int64   `json:"living_area,omitempty"`
	LotSize    *int64   `json:"lot_size,omitempty"`

	HomeType   string `json:"home_type,omitempty"`
	HomeStatus string `json:"home_status,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	ImageURL string `json:"image_url,omitempty"`

	// Cached detail payload from the address-lookup endpoint, opaque to
	// everything except the handler that serves it back out.
	DetailJSON     string     `json:"-"`
	DetailCachedAt *time.Time `json:"detail_cached_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasExternalID reports whether the property can participate in
// external-ID dedup.
func (p *Property) HasExternalID() bool {
	return p.ExternalID != 0
}

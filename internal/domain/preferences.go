package domain

import "time"

// CollectionPreferences is the buyer-preference record attached 1:1 to a
// collection; it drives upstream matching. Either the geocoded point
// (Lat/Long + Radius) or the region lists (Cities/Townships) feed the
// matcher, never both.
type CollectionPreferences struct {
	ID           string `json:"id"`
	CollectionID string `json:"collection_id"`

	MinBeds  *int     `json:"min_beds,omitempty"`
	MaxBeds  *int     `json:"max_beds,omitempty"`
	MinBaths *float64 `json:"min_baths,omitempty"`
	MaxBaths *float64 `json:"max_baths,omitempty"`
	MinPrice *int64   `json:"min_price,omitempty"`
	MaxPrice *int64   `json:"max_price,omitempty"`

	Lat     *float64 `json:"lat,omitempty"`
	Long    *float64 `json:"long,omitempty"`
	Address string   `json:"address,omitempty"`
	// RadiusMiles is the coordinate search diameter in miles.
	RadiusMiles float64  `json:"radius_miles,omitempty"`
	Cities      []string `json:"cities,omitempty"`
	Townships   []string `json:"townships,omitempty"`

	SpecialFeatures string `json:"special_features,omitempty"`

	IsTownHouse    bool `json:"is_town_house"`
	IsLotLand      bool `json:"is_lot_land"`
	IsCondo        bool `json:"is_condo"`
	IsMultiFamily  bool `json:"is_multi_family"`
	IsSingleFamily bool `json:"is_single_family"`
	IsApartment    bool `json:"is_apartment"`

	// Visitor intent metadata from the open-house form.
	Timeframe      string `json:"timeframe,omitempty"`       // IMMEDIATELY, 1_3_MONTHS, ...
	VisitingReason string `json:"visiting_reason,omitempty"` // BUYING_SOON, BROWSING, ...
	HasAgent       string `json:"has_agent,omitempty"`       // YES, NO, LOOKING

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasCoordinates reports whether the geocoded point is usable for a
// coordinate-radius search.
func (p *CollectionPreferences) HasCoordinates() bool {
	return p.Lat != nil && p.Long != nil
}

// Regions returns cities followed by townships as one search list.
func (p *CollectionPreferences) Regions() []string {
	regions := make([]string, 0, len(p.Cities)+len(p.Townships))
	regions = append(regions, p.Cities...)
	regions = append(regions, p.Townships...)
	return regions
}

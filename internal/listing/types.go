package listing

// Record is the canonical property shape produced by this client. Every
// downstream component works against this struct; provider schema
// differences end at ParseRecord.
type Record struct {
	// ExternalID is the provider's listing ID, kept as the string the
	// provider sent. Providers flip between numeric and string encodings,
	// so normalization to a number happens at the persistence boundary.
	ExternalID string

	Address string
	City    string
	State   string
	Zipcode string

	Price      *int64
	Bedrooms   *int
	Bathrooms  *float64
	LivingArea *int64
	LotSize    *int64

	HomeType   string
	HomeStatus string

	Latitude  *float64
	Longitude *float64

	ImageURL  string
	Zestimate *int64
}

// SearchFilters carries the preference-derived constraints passed
// verbatim to every query.
type SearchFilters struct {
	MinBeds  *int
	MaxBeds  *int
	MinBaths *float64
	MaxBaths *float64
	MinPrice *int64
	MaxPrice *int64

	IsTownHouse    bool
	IsLotLand      bool
	IsCondo        bool
	IsMultiFamily  bool
	IsSingleFamily bool
	IsApartment    bool
}

// AddressResult is the outcome of an address lookup. DetailJSON holds the
// provider's full payload when details were requested, for caching on the
// property row.
type AddressResult struct {
	Record     Record
	DetailJSON string
}

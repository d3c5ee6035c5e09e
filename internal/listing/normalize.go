package listing

import (
	"bytes"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"math"
	"strconv"
)

// flexID accepts a provider listing ID encoded as either a JSON number or
// a JSON string and keeps it as canonical integer text.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexID(strconv.FormatInt(int64(n), 10))
	return nil
}

// flexMoney accepts a price encoded as either a bare number or an object
// with a "value" field.
type flexMoney struct {
	Value *float64
}

func (m *flexMoney) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '{' {
		var obj struct {
			Value *float64 `json:"value"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		m.Value = obj.Value
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	m.Value = &n
	return nil
}

// rawFlatRecord matches the search-result schema where every field sits at
// the top level of the record.
type rawFlatRecord struct {
	ZPID          flexID   `json:"zpid"`
	StreetAddress string   `json:"streetAddress"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	Zipcode       string   `json:"zipcode"`
	Price         *float64 `json:"price"`
	PriceForHDP   *float64 `json:"priceForHDP"`
	Bedrooms      *float64 `json:"bedrooms"`
	Bathrooms     *float64 `json:"bathrooms"`
	LivingArea    *float64 `json:"livingArea"`
	LotAreaValue  *float64 `json:"lotAreaValue"`
	HomeType      string   `json:"homeType"`
	HomeStatus    string   `json:"homeStatus"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ImgSrc        string   `json:"imgSrc"`
	Zestimate     *float64 `json:"zestimate"`
}

// rawNestedRecord matches the schema where the record is wrapped in a
// "property" object with grouped sub-objects.
type rawNestedRecord struct {
	ZPID    flexID `json:"zpid"`
	Address struct {
		StreetAddress string `json:"streetAddress"`
		City          string `json:"city"`
		State         string `json:"state"`
		Zipcode       string `json:"zipcode"`
	} `json:"address"`
	Price           flexMoney `json:"price"`
	Bedrooms        *float64  `json:"bedrooms"`
	Bathrooms       *float64  `json:"bathrooms"`
	LivingArea      *float64  `json:"livingArea"`
	LotSizeWithUnit struct {
		LotSize *float64 `json:"lotSize"`
	} `json:"lotSizeWithUnit"`
	PropertyType string `json:"propertyType"`
	Listing      struct {
		ListingStatus string `json:"listingStatus"`
	} `json:"listing"`
	Location struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
	Media struct {
		PropertyPhotoLinks struct {
			HighResolutionLink string `json:"highResolutionLink"`
		} `json:"propertyPhotoLinks"`
	} `json:"media"`
	Estimates struct {
		Zestimate *float64 `json:"zestimate"`
	} `json:"estimates"`
}

// ParseRecord normalizes one raw provider record into the canonical shape.
// Returns nil when the record is malformed or missing its listing ID, so
// callers skip it without failing the whole response.
func ParseRecord(raw jsontext.Value) *Record {
	var probe struct {
		Property jsontext.Value `json:"property"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	if len(probe.Property) > 0 && probe.Property[0] == '{' {
		return parseNested(probe.Property)
	}
	return parseFlat(raw)
}

func parseFlat(raw jsontext.Value) *Record {
	var r rawFlatRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if r.ZPID == "" {
		return nil
	}

	price := r.Price
	if price == nil {
		price = r.PriceForHDP
	}

	return &Record{
		ExternalID: string(r.ZPID),
		Address:    r.StreetAddress,
		City:       r.City,
		State:      r.State,
		Zipcode:    r.Zipcode,
		Price:      toInt64Ptr(price),
		Bedrooms:   toIntPtr(r.Bedrooms),
		Bathrooms:  r.Bathrooms,
		LivingArea: toInt64Ptr(r.LivingArea),
		LotSize:    toInt64Ptr(r.LotAreaValue),
		HomeType:   r.HomeType,
		HomeStatus: r.HomeStatus,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		ImageURL:   r.ImgSrc,
		Zestimate:  toInt64Ptr(r.Zestimate),
	}
}

func parseNested(raw jsontext.Value) *Record {
	var r rawNestedRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	if r.ZPID == "" {
		return nil
	}

	return &Record{
		ExternalID: string(r.ZPID),
		Address:    r.Address.StreetAddress,
		City:       r.Address.City,
		State:      r.Address.State,
		Zipcode:    r.Address.Zipcode,
		Price:      toInt64Ptr(r.Price.Value),
		Bedrooms:   toIntPtr(r.Bedrooms),
		Bathrooms:  r.Bathrooms,
		LivingArea: toInt64Ptr(r.LivingArea),
		LotSize:    toInt64Ptr(r.LotSizeWithUnit.LotSize),
		HomeType:   r.PropertyType,
		HomeStatus: r.Listing.ListingStatus,
		Latitude:   r.Location.Latitude,
		Longitude:  r.Location.Longitude,
		ImageURL:   r.Media.PropertyPhotoLinks.HighResolutionLink,
		Zestimate:  toInt64Ptr(r.Estimates.Zestimate),
	}
}

func toInt64Ptr(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(math.Round(*f))
	return &v
}

func toIntPtr(f *float64) *int {
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}

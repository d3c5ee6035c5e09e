package listing

import (
	"encoding/json/jsontext"
	"testing"
)

func TestParseRecord_Flat(t *testing.T) {
	raw := jsontext.Value(`{
		"zpid": 44112233,
		"streetAddress": "123 Maple St",
		"city": "Austin",
		"state": "TX",
		"zipcode": "78701",
		"price": 450000,
		"bedrooms": 3,
		"bathrooms": 2.5,
		"livingArea": 1850,
		"lotAreaValue": 6500,
		"homeType": "SINGLE_FAMILY",
		"homeStatus": "FOR_SALE",
		"latitude": 30.2672,
		"longitude": -97.7431,
		"imgSrc": "https://photos.example.com/1.jpg",
		"zestimate": 462000
	}`)

	rec := ParseRecord(raw)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.ExternalID != "44112233" {
		t.Errorf("ExternalID = %q, want 44112233", rec.ExternalID)
	}
	if rec.Address != "123 Maple St" || rec.City != "Austin" || rec.State != "TX" || rec.Zipcode != "78701" {
		t.Errorf("address fields wrong: %+v", rec)
	}
	if rec.Price == nil || *rec.Price != 450000 {
		t.Errorf("Price = %v, want 450000", rec.Price)
	}
	if rec.Bedrooms == nil || *rec.Bedrooms != 3 {
		t.Errorf("Bedrooms = %v, want 3", rec.Bedrooms)
	}
	if rec.Bathrooms == nil || *rec.Bathrooms != 2.5 {
		t.Errorf("Bathrooms = %v, want 2.5", rec.Bathrooms)
	}
	if rec.LotSize == nil || *rec.LotSize != 6500 {
		t.Errorf("LotSize = %v, want 6500", rec.LotSize)
	}
	if rec.ImageURL != "https://photos.example.com/1.jpg" {
		t.Errorf("ImageURL = %q", rec.ImageURL)
	}
	if rec.Zestimate == nil || *rec.Zestimate != 462000 {
		t.Errorf("Zestimate = %v, want 462000", rec.Zestimate)
	}
}

func TestParseRecord_Nested(t *testing.T) {
	raw := jsontext.Value(`{
		"property": {
			"zpid": "55667788",
			"address": {
				"streetAddress": "9 Oak Ln",
				"city": "Round Rock",
				"state": "TX",
				"zipcode": "78664"
			},
			"price": {"value": 325000},
			"bedrooms": 4,
			"bathrooms": 3,
			"livingArea": 2200,
			"lotSizeWithUnit": {"lotSize": 8000},
			"propertyType": "TOWNHOUSE",
			"listing": {"listingStatus": "FOR_SALE"},
			"location": {"latitude": 30.5083, "longitude": -97.6789},
			"media": {"propertyPhotoLinks": {"highResolutionLink": "https://photos.example.com/2.jpg"}},
			"estimates": {"zestimate": 330000}
		}
	}`)

	rec := ParseRecord(raw)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.ExternalID != "55667788" {
		t.Errorf("ExternalID = %q, want 55667788", rec.ExternalID)
	}
	if rec.Address != "9 Oak Ln" || rec.City != "Round Rock" {
		t.Errorf("address fields wrong: %+v", rec)
	}
	if rec.Price == nil || *rec.Price != 325000 {
		t.Errorf("Price = %v, want 325000", rec.Price)
	}
	if rec.LotSize == nil || *rec.LotSize != 8000 {
		t.Errorf("LotSize = %v, want 8000", rec.LotSize)
	}
	if rec.HomeType != "TOWNHOUSE" {
		t.Errorf("HomeType = %q, want TOWNHOUSE", rec.HomeType)
	}
	if rec.HomeStatus != "FOR_SALE" {
		t.Errorf("HomeStatus = %q, want FOR_SALE", rec.HomeStatus)
	}
	if rec.Latitude == nil || *rec.Latitude != 30.5083 {
		t.Errorf("Latitude = %v, want 30.5083", rec.Latitude)
	}
	if rec.ImageURL != "https://photos.example.com/2.jpg" {
		t.Errorf("ImageURL = %q", rec.ImageURL)
	}
	if rec.Zestimate == nil || *rec.Zestimate != 330000 {
		t.Errorf("Zestimate = %v, want 330000", rec.Zestimate)
	}
}

func TestParseRecord_ScalarNestedPrice(t *testing.T) {
	raw := jsontext.Value(`{"property": {"zpid": 1, "price": 199000}}`)
	rec := ParseRecord(raw)
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Price == nil || *rec.Price != 199000 {
		t.Errorf("Price = %v, want 199000", rec.Price)
	}
}

func TestParseRecord_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing zpid", `{"streetAddress": "1 Elm St", "price": 100000}`},
		{"not an object", `"just a string"`},
		{"empty object", `{}`},
		{"wrong field types", `{"zpid": 1, "price": "not a number"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := ParseRecord(jsontext.Value(tt.raw)); rec != nil {
				t.Errorf("expected nil for malformed record, got %+v", rec)
			}
		})
	}
}

func TestParseRecord_StringZPID(t *testing.T) {
	rec := ParseRecord(jsontext.Value(`{"zpid": "987654"}`))
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.ExternalID != "987654" {
		t.Errorf("ExternalID = %q, want 987654", rec.ExternalID)
	}
}

func TestParseRecord_PriceForHDPFallback(t *testing.T) {
	rec := ParseRecord(jsontext.Value(`{"zpid": 5, "priceForHDP": 275000}`))
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.Price == nil || *rec.Price != 275000 {
		t.Errorf("Price = %v, want 275000 from priceForHDP", rec.Price)
	}
}

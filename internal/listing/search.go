package listing

import (
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"
	"net/url"
	"strconv"
)

// standardQuery returns the fixed parameters sent with every search.
func standardQuery() url.Values {
	q := url.Values{}
	q.Set("output", "json")
	q.Set("status", "forSale")
	q.Set("sortSelection", "priorityscore")
	q.Set("listing_type", "by_agent")
	q.Set("doz", "any")
	return q
}

// applyFilters adds preference-derived constraints to the query.
func applyFilters(q url.Values, f SearchFilters) {
	if f.MinPrice != nil {
		q.Set("price_min", strconv.FormatInt(*f.MinPrice, 10))
	}
	if f.MaxPrice != nil {
		q.Set("price_max", strconv.FormatInt(*f.MaxPrice, 10))
	}
	if f.MinBeds != nil {
		q.Set("beds_min", strconv.Itoa(*f.MinBeds))
	}
	if f.MaxBeds != nil {
		q.Set("beds_max", strconv.Itoa(*f.MaxBeds))
	}
	if f.MinBaths != nil {
		q.Set("baths_min", strconv.FormatFloat(*f.MinBaths, 'f', -1, 64))
	}
	if f.MaxBaths != nil {
		q.Set("baths_max", strconv.FormatFloat(*f.MaxBaths, 'f', -1, 64))
	}

	// Home-type flags only constrain the search when at least one type is
	// selected. With none selected the provider returns every type.
	if f.IsTownHouse || f.IsLotLand || f.IsCondo || f.IsMultiFamily || f.IsSingleFamily || f.IsApartment {
		q.Set("isTownhouse", strconv.FormatBool(f.IsTownHouse))
		q.Set("isLotLand", strconv.FormatBool(f.IsLotLand))
		q.Set("isCondo", strconv.FormatBool(f.IsCondo))
		q.Set("isMultiFamily", strconv.FormatBool(f.IsMultiFamily))
		q.Set("isSingleFamily", strconv.FormatBool(f.IsSingleFamily))
		q.Set("isApartment", strconv.FormatBool(f.IsApartment))
	}
}

// parseResults decodes a search response body into canonical records.
// Malformed entries are counted and skipped, never fatal.
func (c *Client) parseResults(op string, body []byte) ([]Record, error) {
	var resp struct {
		Results []jsontext.Value `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	records := make([]Record, 0, len(resp.Results))
	skipped := 0
	for _, raw := range resp.Results {
		rec := ParseRecord(raw)
		if rec == nil {
			skipped++
			continue
		}
		records = append(records, *rec)
	}
	if skipped > 0 {
		c.logger.Debug("skipped malformed listing records",
			"op", op,
			"skipped", skipped,
			"kept", len(records),
		)
	}
	return records, nil
}

// SearchByCoordinates queries listings within a radius of a point.
func (c *Client) SearchByCoordinates(ctx context.Context, lat, long, radiusMiles float64, f SearchFilters) ([]Record, error) {
	q := standardQuery()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("long", strconv.FormatFloat(long, 'f', -1, 64))
	q.Set("d", strconv.FormatFloat(radiusMiles, 'f', -1, 64))
	q.Set("includeSold", "false")
	applyFilters(q, f)

	body, err := c.doRequest(ctx, "/search_coordinates", q)
	if err != nil {
		return nil, wrapError("searchCoordinates", "", err)
	}

	records, err := c.parseResults("searchCoordinates", body)
	if err != nil {
		return nil, wrapError("searchCoordinates", "", err)
	}
	return records, nil
}

// SearchByRegion queries listings in a named region, e.g. "Austin, TX".
func (c *Client) SearchByRegion(ctx context.Context, region string, f SearchFilters) ([]Record, error) {
	q := standardQuery()
	q.Set("location", region)
	applyFilters(q, f)

	body, err := c.doRequest(ctx, "/search", q)
	if err != nil {
		return nil, wrapError("searchRegion", region, err)
	}

	records, err := c.parseResults("searchRegion", body)
	if err != nil {
		return nil, wrapError("searchRegion", region, err)
	}
	return records, nil
}

// SearchByAddress looks up a single property by street address. When
// wantDetails is true the full provider payload is returned alongside the
// canonical record so it can be cached.
func (c *Client) SearchByAddress(ctx context.Context, address string, wantDetails bool) (*AddressResult, error) {
	q := url.Values{}
	q.Set("address", address)

	body, err := c.doRequest(ctx, "/search_address", q)
	if err != nil {
		return nil, wrapError("searchAddress", address, err)
	}

	rec := ParseRecord(body)
	if rec == nil {
		return nil, wrapError("searchAddress", address, fmt.Errorf("%w: unrecognized payload", ErrUpstream))
	}

	result := &AddressResult{Record: *rec}
	if wantDetails {
		result.DetailJSON = string(body)
	}
	return result, nil
}

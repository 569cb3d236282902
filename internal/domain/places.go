package domain

// GeocodeResult contains location data for a geocoded address.
type GeocodeResult struct {
	Query            string  `json:"query"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
	Found            bool    `json:"found"`
}

// Place is a single nearby-search hit.
type Place struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity,omitempty"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Rating   float64  `json:"rating,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// NearbyQuery parameterizes a nearby search. Zero Radius and empty Type get
// service-level defaults (one mile, "restaurant").
type NearbyQuery struct {
	Lat       float64
	Lng       float64
	Radius    float64
	Type      string
	PageToken string
}

// NearbyPage is one page of nearby-search results. NextPageToken, when
// non-empty, fetches the following page after the provider's token
// activation delay.
type NearbyPage struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

// PlaceDetails contains the detail fields for a single place.
type PlaceDetails struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name,omitempty"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	PhoneNumber      string  `json:"phone_number,omitempty"`
	Website          string  `json:"website,omitempty"`
	Rating           float64 `json:"rating,omitempty"`
	Lat              float64 `json:"lat,omitempty"`
	Lng              float64 `json:"lng,omitempty"`
}

// BetweenResult is the midpoint lookup: both geocoded endpoints, the
// spherical midpoint between them, the great-circle distance in meters, and
// the places found around the midpoint.
type BetweenResult struct {
	From           GeocodeResult `json:"from"`
	To             GeocodeResult `json:"to"`
	MidLat         float64       `json:"mid_lat"`
	MidLng         float64       `json:"mid_lng"`
	DistanceMeters float64       `json:"distance_meters"`
	Nearby         NearbyPage    `json:"nearby"`
}

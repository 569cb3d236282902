package domain

// Category is a class of upstream operation with independent cache, rate,
// and quota configuration.
type Category string

const (
	CategoryGeocode      Category = "geocode"
	CategoryNearbySearch Category = "nearby_search"
	CategoryPlaceDetails Category = "place_details"
)

// Categories lists the categories the gateway ships with. The set is open:
// nothing below this package assumes membership.
func Categories() []Category {
	return []Category{CategoryGeocode, CategoryNearbySearch, CategoryPlaceDetails}
}

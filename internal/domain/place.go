package domain

// LatLng is a provider geometry point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceCandidate is one text-search hit as returned by the provider.
type PlaceCandidate struct {
	PlaceID          string
	Name             string
	FormattedAddress string
	Geometry         *LatLng
	Types            []string
}

// PlaceDetails carries only the provider detail fields the aggregators consume.
type PlaceDetails struct {
	PlaceID          string
	Name             string
	FormattedAddress string
	Geometry         *LatLng
	Types            []string
	PhotoRefs        []string
	Reviews          []Review
}

// PlaceSummary is one aggregated search-result row.
type PlaceSummary struct {
	PlaceID   string   `json:"place_id"`
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Location  *LatLng  `json:"location"`
	Types     []string `json:"types"`
	Thumbnail *string  `json:"thumbnail"`
	MapsURL   string   `json:"maps_url"`
}

type SearchResult struct {
	Query   string         `json:"query"`
	Results []PlaceSummary `json:"results"`
}

// PlaceDetail is the full detail view of one place, filtered by the request terms.
type PlaceDetail struct {
	PlaceID          string         `json:"place_id"`
	Name             string         `json:"name"`
	Address          string         `json:"address"`
	Location         *LatLng        `json:"location"`
	Photos           []string       `json:"photos"`
	Reviews          []Review       `json:"reviews"`
	ReviewsWithTerms []Review       `json:"reviews_with_terms"`
	DishCandidates   []string       `json:"dish_candidates"`
	UserPhotos       []UploadRecord `json:"user_photos"`
	MapsURL          string         `json:"maps_url"`
}

// MapsURL is the public map link for a provider place id.
func MapsURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + placeID
}

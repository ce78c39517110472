package domain

// Review is the projection of a provider review consumed by the detail view.
type Review struct {
	AuthorName   string  `json:"author_name"`
	Text         string  `json:"text"`
	Rating       float64 `json:"rating"`
	RelativeTime string  `json:"relative_time"`
	AuthorURL    string  `json:"author_url"`
}

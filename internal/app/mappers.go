package app

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"dishmap/internal/domain"
)

// RegionQualifier is appended to every text-search query.
const RegionQualifier = "restaurants in Hong Kong"

/********** terms **********/

// CleanTerms trims every term and drops the empty ones.
func CleanTerms(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseTerms splits a comma-separated terms parameter.
func ParseTerms(param string) []string {
	if param == "" {
		return []string{}
	}
	return CleanTerms(strings.Split(param, ","))
}

func lowerTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range CleanTerms(terms) {
		out = append(out, strings.ToLower(t))
	}
	return out
}

// BuildQuery OR-joins the terms, quoting multi-word ones, and appends the region qualifier.
//
//	["wonton", "beef brisket"] -> wonton OR "beef brisket" restaurants in Hong Kong
func BuildQuery(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if strings.ContainsFunc(t, unicode.IsSpace) {
			t = `"` + t + `"`
		}
		parts = append(parts, t)
	}
	return strings.Join(parts, " OR ") + " " + RegionQualifier
}

// containsAny reports whether text (any case) contains one of the lower-cased terms.
func containsAny(text string, terms []string) bool {
	lt := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lt, t) {
			return true
		}
	}
	return false
}

/********** photos **********/

// PhotoProxyURL points at this service's photo endpoint rather than the provider,
// which keeps the provider key server-side.
func PhotoProxyURL(ref string, maxWidth int) string {
	return "/api/photo?photoreference=" + url.QueryEscape(ref) + "&maxwidth=" + strconv.Itoa(maxWidth)
}

/********** keywords **********/

var nonWord = regexp.MustCompile(`\W+`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "a": {}, "is": {}, "in": {}, "to": {}, "with": {}, "on": {},
}

// ExtractKeywords returns the n most frequent tokens across texts. Ties keep
// first-seen order, so the result is deterministic for identical input.
func ExtractKeywords(texts []string, n int) []string {
	joined := strings.ToLower(strings.Join(texts, " "))

	counts := map[string]int{}
	var order []string
	for _, tok := range nonWord.Split(joined, -1) {
		if len(tok) <= 1 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}

/********** projections **********/

func summarize(c domain.PlaceCandidate, d domain.PlaceDetails, recs []domain.UploadRecord) domain.PlaceSummary {
	s := domain.PlaceSummary{
		PlaceID:  c.PlaceID,
		Name:     firstNonEmpty(d.Name, c.Name),
		Address:  firstNonEmpty(d.FormattedAddress, c.FormattedAddress),
		Location: d.Geometry,
		Types:    d.Types,
		MapsURL:  domain.MapsURL(c.PlaceID),
	}
	if s.Location == nil {
		s.Location = c.Geometry
	}
	if len(s.Types) == 0 {
		s.Types = c.Types
	}
	if s.Types == nil {
		s.Types = []string{}
	}
	s.Thumbnail = thumbnailFor(c.PlaceID, d.PhotoRefs, recs)
	return s
}

// thumbnailFor prefers the first provider photo, then the first uploaded
// photo of the place that has a thumb variant.
func thumbnailFor(placeID string, photoRefs []string, recs []domain.UploadRecord) *string {
	if len(photoRefs) > 0 {
		u := PhotoProxyURL(photoRefs[0], searchThumbWidth)
		return &u
	}
	for _, r := range recs {
		if r.PlaceID == placeID && r.ThumbRef != nil {
			t := *r.ThumbRef
			return &t
		}
	}
	return nil
}

func filterReviews(reviews []domain.Review, terms []string) []domain.Review {
	out := make([]domain.Review, 0)
	if len(terms) == 0 {
		return out
	}
	for _, r := range reviews {
		if containsAny(r.Text, terms) {
			out = append(out, r)
		}
	}
	return out
}

// filterRecords keeps records whose dish mentions a term; no terms keeps all.
func filterRecords(recs []domain.UploadRecord, terms []string) []domain.UploadRecord {
	out := make([]domain.UploadRecord, 0, len(recs))
	for _, r := range recs {
		if len(terms) == 0 || containsAny(r.Dish, terms) {
			out = append(out, r)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

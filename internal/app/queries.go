package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"dishmap/internal/adapters/observability"
	"dishmap/internal/domain"
)

const (
	// MaxCandidates caps the per-search details fan-out.
	MaxCandidates = 20
	// DishCandidateCount is the number of keywords returned per place.
	DishCandidateCount = 10

	searchThumbWidth = 400
	detailPhotoWidth = 800
)

var (
	searchOptions = domain.TextSearchOptions{Region: "hk", Type: "restaurant"}

	searchFields = []string{"place_id", "name", "formatted_address", "geometry", "photo", "type"}
	detailFields = []string{"place_id", "name", "formatted_address", "geometry", "photo", "review", "type"}
)

type SearchService struct {
	places  domain.PlacesGateway
	records domain.RecordStore
}

func NewSearchService(p domain.PlacesGateway, r domain.RecordStore) *SearchService {
	return &SearchService{places: p, records: r}
}

// Search runs one text search for the OR-joined terms and enriches each
// candidate with its details. One failed details call fails the search.
func (s *SearchService) Search(ctx context.Context, terms []string) (domain.SearchResult, error) {
	terms = CleanTerms(terms)
	if len(terms) == 0 {
		return domain.SearchResult{}, domain.ErrMissingTerms
	}
	query := BuildQuery(terms)

	cands, err := s.places.TextSearch(ctx, query, searchOptions)
	if err != nil {
		return domain.SearchResult{}, &domain.UpstreamError{Op: "textsearch", Err: err}
	}
	if len(cands) > MaxCandidates {
		cands = cands[:MaxCandidates]
	}

	recs := readRecords("all", func() ([]domain.UploadRecord, error) { return s.records.All(ctx) })

	results := make([]domain.PlaceSummary, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cands {
		g.Go(func() error {
			d, err := s.places.Details(gctx, c.PlaceID, searchFields)
			if err != nil {
				return &domain.UpstreamError{Op: "details " + c.PlaceID, Err: err}
			}
			results[i] = summarize(c, d, recs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.SearchResult{}, err
	}
	return domain.SearchResult{Query: query, Results: results}, nil
}

type DetailService struct {
	places  domain.PlacesGateway
	records domain.RecordStore
}

func NewDetailService(p domain.PlacesGateway, r domain.RecordStore) *DetailService {
	return &DetailService{places: p, records: r}
}

func (s *DetailService) GetDetail(ctx context.Context, placeID string, terms []string) (domain.PlaceDetail, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return domain.PlaceDetail{}, domain.ErrMissingPlaceID
	}
	lt := lowerTerms(terms)

	d, err := s.places.Details(ctx, placeID, detailFields)
	if err != nil {
		return domain.PlaceDetail{}, &domain.UpstreamError{Op: "details " + placeID, Err: err}
	}

	photos := make([]string, 0, len(d.PhotoRefs))
	for _, ref := range d.PhotoRefs {
		photos = append(photos, PhotoProxyURL(ref, detailPhotoWidth))
	}
	reviews := make([]domain.Review, len(d.Reviews))
	copy(reviews, d.Reviews)
	texts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		texts = append(texts, r.Text)
	}

	recs := readRecords("find_by_place", func() ([]domain.UploadRecord, error) {
		return s.records.FindByPlace(ctx, placeID)
	})

	return domain.PlaceDetail{
		PlaceID:          placeID,
		Name:             d.Name,
		Address:          d.FormattedAddress,
		Location:         d.Geometry,
		Photos:           photos,
		Reviews:          reviews,
		ReviewsWithTerms: filterReviews(reviews, lt),
		DishCandidates:   ExtractKeywords(texts, DishCandidateCount),
		UserPhotos:       filterRecords(recs, lt),
		MapsURL:          domain.MapsURL(placeID),
	}, nil
}

type RecordService struct {
	records domain.RecordStore
}

func NewRecordService(r domain.RecordStore) *RecordService {
	return &RecordService{records: r}
}

// List returns every record in insertion order, or only those of placeID when set.
func (s *RecordService) List(ctx context.Context, placeID string) ([]domain.UploadRecord, error) {
	var (
		recs []domain.UploadRecord
		err  error
	)
	if placeID == "" {
		recs, err = s.records.All(ctx)
	} else {
		recs, err = s.records.FindByPlace(ctx, placeID)
	}
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.UploadRecord{}
	}
	return recs, nil
}

// readRecords serves aggregator reads, where an unreadable store means "no records".
func readRecords(op string, read func() ([]domain.UploadRecord, error)) []domain.UploadRecord {
	recs, err := read()
	if err != nil {
		observability.ObserveStoreDegraded(op)
		log.Warn().Err(err).Str("op", op).Msg("record store unavailable; continuing without user photos")
		return nil
	}
	return recs
}

const (
	DefaultPhotoWidth = 400
	MaxPhotoWidth     = 1600
)

type PhotoService struct {
	places domain.PlacesGateway
}

func NewPhotoService(p domain.PlacesGateway) *PhotoService {
	return &PhotoService{places: p}
}

// RedirectURL resolves a provider photo reference to a URL the client may
// fetch directly. maxWidth is clamped to 1..MaxPhotoWidth.
func (s *PhotoService) RedirectURL(ctx context.Context, ref string, maxWidth int) (string, error) {
	if ref == "" {
		return "", domain.ErrMissingPhotoReference
	}
	maxWidth = min(max(maxWidth, 1), MaxPhotoWidth)
	u, err := s.places.PhotoRedirectURL(ctx, ref, maxWidth)
	if err != nil {
		return "", &domain.UpstreamError{Op: "photo", Err: err}
	}
	return u, nil
}

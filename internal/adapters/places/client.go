// Package places is the HTTP client for the external places provider
// (Google Places JSON API: textsearch, details, photo).
package places

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"dishmap/internal/adapters/observability"
	"dishmap/internal/domain"
)

type Client struct {
	base    string
	key     string
	hc      *http.Client
	photoHC *http.Client
	rl      *rate.Limiter
	timeout time.Duration
}

var _ domain.PlacesGateway = (*Client)(nil)

func New(base, key string, rps int, timeout time.Duration) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 10
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		key:  key,
		hc:   &http.Client{},
		// photo resolution reads the provider's redirect instead of following it
		photoHC: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		rl:      rate.NewLimiter(rate.Limit(rps), rps),
		timeout: timeout,
	}, nil
}

// ---- wire shapes (only consumed fields) ----

type geometry struct {
	Location *struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"location"`
}

func (g *geometry) latLng() *domain.LatLng {
	if g == nil || g.Location == nil {
		return nil
	}
	return &domain.LatLng{Lat: g.Location.Lat, Lng: g.Location.Lng}
}

type textSearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID          string    `json:"place_id"`
		Name             string    `json:"name"`
		FormattedAddress string    `json:"formatted_address"`
		Geometry         *geometry `json:"geometry"`
		Types            []string  `json:"types"`
	} `json:"results"`
}

type detailsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Result       struct {
		PlaceID          string    `json:"place_id"`
		Name             string    `json:"name"`
		FormattedAddress string    `json:"formatted_address"`
		Geometry         *geometry `json:"geometry"`
		Types            []string  `json:"types"`
		Photos           []struct {
			PhotoReference string `json:"photo_reference"`
		} `json:"photos"`
		Reviews []struct {
			AuthorName   string  `json:"author_name"`
			AuthorURL    string  `json:"author_url"`
			Rating       float64 `json:"rating"`
			RelativeTime string  `json:"relative_time_description"`
			Text         string  `json:"text"`
		} `json:"reviews"`
	} `json:"result"`
}

// StatusError is a non-OK provider status carried in a 200 response body.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "provider status " + e.Status
	}
	return fmt.Sprintf("provider status %s: %s", e.Status, e.Message)
}

func checkStatus(status, msg string) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	default:
		return &StatusError{Status: status, Message: msg}
	}
}

// ---- Public API ----

func (c *Client) TextSearch(ctx context.Context, query string, opts domain.TextSearchOptions) ([]domain.PlaceCandidate, error) {
	q := url.Values{}
	q.Set("query", query)
	if opts.Region != "" {
		q.Set("region", opts.Region)
	}
	if opts.Type != "" {
		q.Set("type", opts.Type)
	}
	var resp textSearchResponse
	if err := c.get(ctx, "textsearch", q, &resp); err != nil {
		return nil, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return nil, err
	}
	out := make([]domain.PlaceCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, domain.PlaceCandidate{
			PlaceID:          r.PlaceID,
			Name:             r.Name,
			FormattedAddress: r.FormattedAddress,
			Geometry:         r.Geometry.latLng(),
			Types:            r.Types,
		})
	}
	return out, nil
}

func (c *Client) Details(ctx context.Context, placeID string, fields []string) (domain.PlaceDetails, error) {
	q := url.Values{}
	q.Set("place_id", placeID)
	if len(fields) > 0 {
		q.Set("fields", strings.Join(fields, ","))
	}
	var resp detailsResponse
	if err := c.get(ctx, "details", q, &resp); err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := checkStatus(resp.Status, resp.ErrorMessage); err != nil {
		return domain.PlaceDetails{}, err
	}

	r := resp.Result
	d := domain.PlaceDetails{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Geometry:         r.Geometry.latLng(),
		Types:            r.Types,
	}
	for _, p := range r.Photos {
		if p.PhotoReference != "" {
			d.PhotoRefs = append(d.PhotoRefs, p.PhotoReference)
		}
	}
	for _, rv := range r.Reviews {
		d.Reviews = append(d.Reviews, domain.Review{
			AuthorName:   rv.AuthorName,
			Text:         rv.Text,
			Rating:       rv.Rating,
			RelativeTime: rv.RelativeTime,
			AuthorURL:    rv.AuthorURL,
		})
	}
	if d.PlaceID == "" {
		d.PlaceID = placeID
	}
	return d, nil
}

// PhotoRedirectURL asks the provider photo endpoint where the image lives and
// returns that keyless location, so the API key stays on the server.
func (c *Client) PhotoRedirectURL(ctx context.Context, photoRef string, maxWidth int) (string, error) {
	q := url.Values{}
	q.Set("photo_reference", photoRef)
	q.Set("maxwidth", strconv.Itoa(maxWidth))
	u := c.endpoint("photo", q)

	if err := c.rl.Wait(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	start := time.Now()
	resp, err := c.photoHC.Do(req)
	if err != nil {
		observability.ObserveExternal("places", "photo", 0, time.Since(start))
		return "", redact(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	observability.ObserveExternal("places", "photo", resp.StatusCode, time.Since(start))

	switch resp.StatusCode {
	case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther, http.StatusTemporaryRedirect:
		loc, err := resp.Location()
		if err != nil {
			return "", fmt.Errorf("photo redirect without location: %w", err)
		}
		return loc.String(), nil
	default:
		return "", fmt.Errorf("photo: bad status %d", resp.StatusCode)
	}
}

// ---- Internals ----

func (c *Client) endpoint(name string, q url.Values) string {
	q.Set("key", c.key)
	path := name
	if name != "photo" {
		path = name + "/json"
	}
	return c.base + "/" + path + "?" + q.Encode()
}

// redact drops the request URL (which carries the key) from transport errors.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s request failed: %w", ue.Op, ue.Err)
	}
	return err
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, name string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	u := c.endpoint(name, q)

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "dishmap/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("places", name, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// transport failure: the URL in err carries the key
			lastErr = redact(err)
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("places", name, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode %s: %w", name, err)
			}
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// the provider's Retry-After wins over our own schedule
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%s: remote %d", name, resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// keep a bounded slice of the body for the error message
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%s: bad status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	// delta-seconds
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date; a date already past means no wait
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns the delay before retry attempt i (0,1,2,...).
// The base doubles per attempt (200ms, 400ms, 800ms...) and gets up to +50%
// jitter so concurrent detail lookups from one search do not retry in lockstep.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	// crypto/rand needs no shared source across goroutines
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0                  // 0..1
	j := time.Duration(0.5 * f * float64(base)) // up to +50%
	return base + j
}

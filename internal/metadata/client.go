// internal/metadata/client.go
// Package metadata provides a client for the external movie catalog service.
// Every operation normalizes the upstream payload into the canonical
// model.MovieRecord; callers never see the raw catalog shape.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	errordefs "github.com/moviebuzz/moviebuzz-client-go/internal/errors"
	"github.com/moviebuzz/moviebuzz-client-go/internal/metrics"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
	"github.com/moviebuzz/moviebuzz-client-go/internal/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Filters narrows a Search. Zero values mean "no constraint".
type Filters struct {
	Query     string  // Free-text title search; empty routes to the discovery endpoint
	Genre     int     // Catalog genre id
	Year      int     // Primary release year
	MinRating float64 // Minimum average vote
}

// Client for the movie metadata service.
type Client struct {
	base        string            // Base URL of the catalog service
	imageBase   string            // Base URL prepended to poster paths
	placeholder string            // Poster URL used when no poster path exists
	apiKey      string            // API key appended to every request
	hc          *http.Client      // HTTP client with connection timeouts
	validator   *schema.Validator // Boundary validator for upstream payloads
	metrics     *metrics.Metrics  // Request instrumentation
}

// New creates a new metadata client. It configures connection timeouts for
// catalog requests; a non-responding upstream is otherwise bounded only by
// the transport's own defaults.
func New(baseURL, imageBaseURL, placeholderURL, apiKey string) (*Client, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}

	return &Client{
		base:        baseURL,
		imageBase:   imageBaseURL,
		placeholder: placeholderURL,
		apiKey:      apiKey,
		hc:          &http.Client{Transport: transport},
		validator:   validator,
		metrics:     metrics.NewMetrics(),
	}, nil
}

// Upstream payload shapes. These exist only at the gateway boundary.

type moviePayload struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	GenreIDs    []int   `json:"genre_ids"`
	VoteAverage float64 `json:"vote_average"`

	// Detail-only fields
	Genres  []model.Genre   `json:"genres"`
	Credits *creditsPayload `json:"credits"`
}

type creditsPayload struct {
	Crew []crewPayload `json:"crew"`
}

type crewPayload struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type movieListPayload struct {
	Results []moviePayload `json:"results"`
}

type genreListPayload struct {
	Genres []model.Genre `json:"genres"`
}

// Popular returns the catalog's current popular movies.
func (c *Client) Popular(ctx context.Context) ([]model.MovieRecord, error) {
	body, err := c.get(ctx, "popular", "/movie/popular", nil, schema.MovieList)
	if err != nil {
		return nil, err
	}
	return c.decodeList(body)
}

// Trending returns the movies trending over the given window ("day" or
// "week"). An unrecognized window falls back to "week".
func (c *Client) Trending(ctx context.Context, window string) ([]model.MovieRecord, error) {
	if window != "day" && window != "week" {
		window = "week"
	}
	body, err := c.get(ctx, "trending", "/trending/movie/"+window, nil, schema.MovieList)
	if err != nil {
		return nil, err
	}
	return c.decodeList(body)
}

// Search finds movies matching the filters. An empty query routes to the
// discovery endpoint sorted by descending popularity; a non-empty query
// routes to the search endpoint. The genre, year, and rating filters apply
// identically on both paths.
func (c *Client) Search(ctx context.Context, f Filters) ([]model.MovieRecord, error) {
	q := url.Values{}
	if f.Genre > 0 {
		q.Set("with_genres", strconv.Itoa(f.Genre))
	}
	if f.Year > 0 {
		q.Set("primary_release_year", strconv.Itoa(f.Year))
	}
	if f.MinRating > 0 {
		q.Set("vote_average.gte", strconv.FormatFloat(f.MinRating, 'f', -1, 64))
	}

	path := "/discover/movie"
	operation := "discover"
	if f.Query != "" {
		path = "/search/movie"
		operation = "search"
		q.Set("query", f.Query)
	} else {
		q.Set("sort_by", "popularity.desc")
	}

	body, err := c.get(ctx, operation, path, q, schema.MovieList)
	if err != nil {
		return nil, err
	}
	return c.decodeList(body)
}

// Genres returns the catalog's genre list.
func (c *Client) Genres(ctx context.Context) ([]model.Genre, error) {
	body, err := c.get(ctx, "genres", "/genre/movie/list", nil, schema.GenreList)
	if err != nil {
		return nil, err
	}

	var payload genreListPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errordefs.New(errordefs.MB_METADATA_SCHEMA, fmt.Sprintf("failed to decode genre list: %v", err))
	}
	return payload.Genres, nil
}

// ByID fetches one movie with its credits appended and resolves the director
// credit. A missing director credit yields "N/A", not an error.
func (c *Client) ByID(ctx context.Context, id string) (model.MovieRecord, error) {
	q := url.Values{}
	q.Set("append_to_response", "credits")

	body, err := c.get(ctx, "detail", "/movie/"+url.PathEscape(id), q, schema.MovieDetail)
	if err != nil {
		return model.MovieRecord{}, err
	}

	var payload moviePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.MovieRecord{}, errordefs.New(errordefs.MB_METADATA_SCHEMA, fmt.Sprintf("failed to decode movie detail: %v", err))
	}
	return c.normalize(payload), nil
}

// get performs a catalog GET, instruments it, and returns the validated
// response body. Any non-2xx status produces an MB_METADATA_FETCH error;
// callers must not assume partial data on failure.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, schemaName string) ([]byte, error) {
	tracer := otel.Tracer("moviebuzz/metadata")
	ctx, span := tracer.Start(ctx, "catalog."+operation)
	defer span.End()
	span.SetAttributes(attribute.String("catalog.path", path))

	u, err := url.Parse(c.base + path)
	if err != nil {
		return nil, fmt.Errorf("metadata: invalid url: %w", err)
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.observe(operation, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return nil, errordefs.New(errordefs.MB_METADATA_FETCH, fmt.Sprintf("catalog request failed: %v", err))
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)
	c.observe(operation, status, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		return nil, errordefs.NewUpstream(errordefs.MB_METADATA_FETCH, "catalog responded "+resp.Status, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, errordefs.New(errordefs.MB_METADATA_FETCH, fmt.Sprintf("failed to read catalog response: %v", err))
	}

	if err := c.validator.Validate(schemaName, body); err != nil {
		span.SetStatus(codes.Error, "schema rejected")
		return nil, errordefs.New(errordefs.MB_METADATA_SCHEMA, err.Error())
	}

	return body, nil
}

// observe records request metrics for one catalog round trip.
func (c *Client) observe(operation, status string, start time.Time) {
	c.metrics.CatalogRequestTotal.WithLabelValues(operation, status).Inc()
	c.metrics.CatalogRequestDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// decodeList decodes a results[] payload into canonical records.
func (c *Client) decodeList(body []byte) ([]model.MovieRecord, error) {
	var payload movieListPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errordefs.New(errordefs.MB_METADATA_SCHEMA, fmt.Sprintf("failed to decode movie list: %v", err))
	}

	records := make([]model.MovieRecord, 0, len(payload.Results))
	for _, p := range payload.Results {
		records = append(records, c.normalize(p))
	}
	return records, nil
}

// normalize shapes one upstream movie payload into the canonical record.
func (c *Client) normalize(p moviePayload) model.MovieRecord {
	genreIDs := p.GenreIDs
	if len(genreIDs) == 0 && len(p.Genres) > 0 {
		// Detail payloads carry full genre objects instead of id lists.
		for _, g := range p.Genres {
			genreIDs = append(genreIDs, g.ID)
		}
	}

	return model.MovieRecord{
		ID:          strconv.Itoa(p.ID),
		Title:       p.Title,
		Year:        formatYear(p.ReleaseDate),
		PosterURL:   c.posterURL(p.PosterPath),
		Synopsis:    p.Overview,
		Director:    resolveDirector(p.Credits),
		GenreIDs:    genreIDs,
		Rating:      p.VoteAverage,
		ReleaseDate: p.ReleaseDate,
	}
}

// formatYear extracts the 4-digit year from a raw release date. A missing
// date yields exactly "N/A".
func formatYear(releaseDate string) string {
	if releaseDate == "" {
		return "N/A"
	}
	if len(releaseDate) < 4 {
		return releaseDate
	}
	return releaseDate[:4]
}

// posterURL resolves a poster path against the image base, or falls back to
// the documented placeholder. Never empty.
func (c *Client) posterURL(path string) string {
	if path == "" {
		return c.placeholder
	}
	return c.imageBase + path
}

// resolveDirector selects the first crew credit whose job is exactly
// "Director". Absence yields "N/A".
func resolveDirector(credits *creditsPayload) string {
	if credits == nil {
		return "N/A"
	}
	for _, crew := range credits.Crew {
		if crew.Job == "Director" {
			return crew.Name
		}
	}
	return "N/A"
}

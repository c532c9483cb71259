// internal/backend/client.go
// Package backend provides a typed client for the MovieBuzz user-data backend.
// It covers auth, reviews, interactions, diary, and profile resources with
// uniform request shaping and error surfacing.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	errordefs "github.com/moviebuzz/moviebuzz-client-go/internal/errors"
	"github.com/moviebuzz/moviebuzz-client-go/internal/metrics"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TokenSource yields the current session token, if any. The session manager
// is the only writer of the underlying token; the gateway only ever reads it.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func() (string, bool)

// Token implements TokenSource.
func (f TokenFunc) Token() (string, bool) { return f() }

// Client for the MovieBuzz user-data backend.
type Client struct {
	base    string           // Base URL of the backend
	hc      *http.Client     // HTTP client with connection timeouts
	tokens  TokenSource      // Read-only session token access (can be nil)
	metrics *metrics.Metrics // Request instrumentation
}

// New creates a new backend client.
func New(baseURL string, tokens TokenSource) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
	}

	return &Client{
		base:    baseURL,
		hc:      &http.Client{Transport: transport},
		tokens:  tokens,
		metrics: metrics.NewMetrics(),
	}
}

// errorBody is the backend's error response shape. Message is surfaced to
// callers when present.
type errorBody struct {
	Message string `json:"message"`
}

// ---------- AUTH ----------

// Login authenticates with email and password, returning the bearer token and
// the authenticated identity.
func (c *Client) Login(ctx context.Context, email, password string) (model.LoginResponse, error) {
	var out model.LoginResponse
	err := c.do(ctx, "auth", http.MethodPost, "/api/auth/login", "", model.CredentialsRequest{Email: email, Password: password}, &out)
	return out, err
}

// Register creates a new account. It does not authenticate the caller;
// registration success requires a subsequent explicit login.
func (c *Client) Register(ctx context.Context, email, password string) error {
	return c.do(ctx, "auth", http.MethodPost, "/api/auth/register", "", model.CredentialsRequest{Email: email, Password: password}, nil)
}

// ---------- REVIEWS ----------

// ReviewsForMovie lists all reviews for one movie.
func (c *Client) ReviewsForMovie(ctx context.Context, movieID string) ([]model.Review, error) {
	var out []model.Review
	err := c.do(ctx, "reviews", http.MethodGet, "/api/reviews/"+url.PathEscape(movieID), "", nil, &out)
	return out, err
}

// ReviewsForUser lists all reviews written by one user.
func (c *Client) ReviewsForUser(ctx context.Context, userID string) ([]model.Review, error) {
	var out []model.Review
	err := c.do(ctx, "reviews", http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/reviews", "", nil, &out)
	return out, err
}

// CreateReview submits a review.
func (c *Client) CreateReview(ctx context.Context, review model.CreateReviewRequest) (model.Review, error) {
	var out model.Review
	err := c.do(ctx, "reviews", http.MethodPost, "/api/reviews", c.submissionKey(), review, &out)
	return out, err
}

// ---------- INTERACTIONS ----------

// InteractionsForUser fetches the user's like and watchlist id sets.
func (c *Client) InteractionsForUser(ctx context.Context, userID string) (model.Interactions, error) {
	var likes struct {
		Likes []string `json:"likes"`
	}
	if err := c.do(ctx, "interactions", http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/likes", "", nil, &likes); err != nil {
		return model.Interactions{}, err
	}

	var watchlist struct {
		Watchlist []string `json:"watchlist"`
	}
	if err := c.do(ctx, "interactions", http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/watchlist", "", nil, &watchlist); err != nil {
		return model.Interactions{}, err
	}

	return model.Interactions{Likes: likes.Likes, Watchlist: watchlist.Watchlist}, nil
}

// ToggleLike flips the like membership for one movie. The backend does not
// return the new state; the caller optimistically flips its own boolean, and
// a failed toggle is never reconciled.
func (c *Client) ToggleLike(ctx context.Context, userID, movieID string) error {
	return c.do(ctx, "interactions", http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/likes", "", model.ToggleRequest{MovieID: movieID}, nil)
}

// ToggleWatchlist flips the watchlist membership for one movie. Same
// fire-and-forget contract as ToggleLike.
func (c *Client) ToggleWatchlist(ctx context.Context, userID, movieID string) error {
	return c.do(ctx, "interactions", http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/watchlist", "", model.ToggleRequest{MovieID: movieID}, nil)
}

// ---------- DIARY ----------

// DiaryForUser lists the user's diary entries.
func (c *Client) DiaryForUser(ctx context.Context, userID string) ([]model.DiaryEntry, error) {
	var out []model.DiaryEntry
	err := c.do(ctx, "diary", http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/diary", "", nil, &out)
	return out, err
}

// CreateDiaryEntry logs a diary entry. When the entry carries a non-zero
// rating or non-empty review text, an equivalent review is also submitted:
// the diary and the reviews resource are two projections of one user action.
// The two writes are independent failure domains; a failed review write is
// logged and never aborts the diary write, and there is no rollback.
func (c *Client) CreateDiaryEntry(ctx context.Context, userID string, entry model.CreateDiaryEntryRequest) (model.DiaryEntry, error) {
	key := c.submissionKey()

	if entry.Rating > 0 || entry.ReviewText != "" {
		review := model.CreateReviewRequest{
			MovieID:  entry.MovieID,
			Rating:   entry.Rating,
			Text:     entry.ReviewText,
			UserID:   userID,
			Username: entry.Username,
		}
		if err := c.do(ctx, "reviews", http.MethodPost, "/api/reviews", key, review, nil); err != nil {
			slog.Warn("companion review write failed, diary write continues",
				"movieId", entry.MovieID, "error", err)
		}
	}

	var out model.DiaryEntry
	err := c.do(ctx, "diary", http.MethodPost, "/api/users/"+url.PathEscape(userID)+"/diary", key, entry, &out)
	return out, err
}

// ---------- PROFILE ----------

// Profile fetches one user's profile.
func (c *Client) Profile(ctx context.Context, userID string) (model.Profile, error) {
	var out model.Profile
	err := c.do(ctx, "profile", http.MethodGet, "/api/users/"+url.PathEscape(userID), "", nil, &out)
	return out, err
}

// UpdateProfile updates one user's profile.
func (c *Client) UpdateProfile(ctx context.Context, userID string, update model.UpdateProfileRequest) (model.Profile, error) {
	var out model.Profile
	err := c.do(ctx, "profile", http.MethodPut, "/api/users/"+url.PathEscape(userID), "", update, &out)
	return out, err
}

// submissionKey mints a client-generated key tying together the writes of a
// single user action, sent as an Idempotency-Key header.
func (c *Client) submissionKey() string {
	return ulid.Make().String()
}

// do performs one backend round trip: JSON body shaping, correlation and
// session headers, instrumentation, status inspection, and decoding into out
// (skipped when out is nil). Any non-2xx status produces an MB_BACKEND error
// carrying the server-supplied message when present.
func (c *Client) do(ctx context.Context, resource, method, path, submissionKey string, body, out any) error {
	tracer := otel.Tracer("moviebuzz/backend")
	ctx, span := tracer.Start(ctx, "backend."+resource)
	defer span.End()
	span.SetAttributes(
		attribute.String("backend.path", path),
		attribute.String("backend.method", method),
	)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if submissionKey != "" {
		req.Header.Set("Idempotency-Key", submissionKey)
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		c.observe(resource, method, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		return errordefs.New(errordefs.MB_BACKEND, fmt.Sprintf("backend request failed: %v", err))
	}
	defer resp.Body.Close()

	c.observe(resource, method, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, resp.Status)
		// Surface the server-supplied message when the body carries one.
		var eb errorBody
		if decodeErr := json.NewDecoder(resp.Body).Decode(&eb); decodeErr == nil && eb.Message != "" {
			return errordefs.NewUpstream(errordefs.MB_BACKEND, eb.Message, resp.StatusCode)
		}
		return errordefs.NewUpstream(errordefs.MB_BACKEND, "backend responded "+resp.Status, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errordefs.New(errordefs.MB_BACKEND, fmt.Sprintf("failed to decode backend response: %v", err))
	}
	return nil
}

// observe records request metrics for one backend round trip.
func (c *Client) observe(resource, method, status string, start time.Time) {
	c.metrics.BackendRequestTotal.WithLabelValues(resource, method, status).Inc()
	c.metrics.BackendRequestDuration.WithLabelValues(resource, method, status).Observe(time.Since(start).Seconds())
}

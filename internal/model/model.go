// internal/model/model.go
// Package model defines the data structures used throughout the MovieBuzz client.
// These structures represent the canonical domain objects (movies, sessions,
// reviews, diary entries, interaction sets) plus the explicit request and
// response payloads exchanged with the two remote services.
package model

import (
	"time"
)

// MovieRecord is the canonical movie shape produced by the metadata gateway.
// Every gateway operation returns this normalized record, never the raw
// upstream payload. A MovieRecord is immutable once constructed and is
// rebuilt on every fetch.
type MovieRecord struct {
	ID          string  `json:"id"`          // Catalog id (stringified upstream id)
	Title       string  `json:"title"`       // Display title
	Year        string  `json:"year"`        // 4-digit release year, or "N/A"
	PosterURL   string  `json:"posterUrl"`   // Resolved poster URL or the placeholder
	Synopsis    string  `json:"synopsis"`    // Overview text
	Director    string  `json:"director"`    // First crew credit with job "Director", or "N/A"
	GenreIDs    []int   `json:"genreIds"`    // Upstream genre id set
	Rating      float64 `json:"rating"`      // Upstream average vote
	ReleaseDate string  `json:"releaseDate"` // Raw release date as reported upstream
}

// Genre is one entry of the catalog's genre list.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is the identity derived from an authenticated session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile is the backend's user profile resource.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is a user review as stored by the backend.
// Reviews are created via explicit submission and never mutated or deleted
// by this client.
type Review struct {
	ID        string    `json:"id"`        // Backend-assigned identifier
	MovieID   string    `json:"movieId"`   // Foreign key into the metadata gateway
	UserID    string    `json:"userId"`    // Author's user id
	Username  string    `json:"username"`  // Author's display name
	Rating    int       `json:"rating"`    // Star rating
	Text      string    `json:"text"`      // Free-text body
	CreatedAt time.Time `json:"createdAt"` // Backend-assigned creation time
}

// DiaryEntry is one logged film in a user's diary.
// Entries are never mutated after creation by this client.
type DiaryEntry struct {
	ID          string    `json:"id"`          // Backend-assigned identifier
	MovieID     string    `json:"movieId"`     // Foreign key into the metadata gateway
	WatchedDate time.Time `json:"watchedDate"` // When the film was watched
	Rating      int       `json:"rating"`      // Star rating (0 means unrated)
	ReviewText  string    `json:"reviewText"`  // Optional review text
}

// Interactions is a user's per-user interaction set: liked and watchlisted
// movie ids. Membership only, no ordering guarantee.
type Interactions struct {
	Likes     []string `json:"likes"`
	Watchlist []string `json:"watchlist"`
}

// PopulatedReview is a Review joined with its resolved movie. Movie is nil
// when resolution failed; the rest of the record must still render.
type PopulatedReview struct {
	Review
	Movie *MovieRecord `json:"movie,omitempty"`
}

// PopulatedDiaryEntry is a DiaryEntry joined with its resolved movie. Movie
// is nil when resolution failed; the rest of the entry must still render.
type PopulatedDiaryEntry struct {
	DiaryEntry
	Movie *MovieRecord `json:"movie,omitempty"`
}

// CredentialsRequest is the request body for both auth endpoints.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is the response body of a successful login.
// The identity in Result is authoritative at login time; the token claims
// are only decoded when restoring a persisted session.
type LoginResponse struct {
	Token  string `json:"token"`  // Bearer token to persist
	Result User   `json:"result"` // Authenticated identity
}

// CreateReviewRequest is the request body for submitting a review.
type CreateReviewRequest struct {
	MovieID  string `json:"movieId"`
	Rating   int    `json:"rating"`
	Text     string `json:"text"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// ToggleRequest is the request body for like/watchlist toggle calls.
// A toggle flips membership server-side without the client first reading
// current state.
type ToggleRequest struct {
	MovieID string `json:"movieId"`
}

// CreateDiaryEntryRequest is the request body for logging a diary entry.
// Username rides along so the companion review submission can attribute the
// review without another profile lookup.
type CreateDiaryEntryRequest struct {
	MovieID     string    `json:"movieId"`
	WatchedDate time.Time `json:"watchedDate"`
	Rating      int       `json:"rating"`
	ReviewText  string    `json:"reviewText"`
	Username    string    `json:"username"`
}

// UpdateProfileRequest is the request body for updating a profile.
type UpdateProfileRequest struct {
	Username string `json:"username"`
}

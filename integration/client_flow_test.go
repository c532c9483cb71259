// Package integration exercises the full client stack end to end against the
// conformance harness: a fresh account signs up, browses the catalog, records
// interactions and diary entries, and reads everything back populated.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/moviebuzz/moviebuzz-client-go/conformance"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
	"github.com/moviebuzz/moviebuzz-client-go/internal/session"
)

var catalog = []conformance.CatalogMovie{
	{ID: 603, Title: "The Matrix", ReleaseDate: "1999-03-30", Overview: "A hacker learns the truth.", PosterPath: "/matrix.jpg", GenreIDs: []int{28}, VoteAverage: 8.2, Director: "Lana Wachowski"},
	{ID: 550, Title: "Fight Club", ReleaseDate: "1999-10-15", Overview: "An insomniac meets a soap maker.", PosterPath: "/fc.jpg", GenreIDs: []int{18}, VoteAverage: 8.4, Director: "David Fincher"},
}

func TestClientFlow(t *testing.T) {
	h, err := conformance.NewHarness(catalog)
	if err != nil {
		t.Fatalf("NewHarness() error = %v", err)
	}
	defer h.Close()
	ctx := context.Background()

	// A cold start with no persisted token settles into Anonymous.
	if got := h.Sessions.State(); got != session.StateAnonymous {
		t.Fatalf("initial State() = %q, want %q", got, session.StateAnonymous)
	}

	// Sign up and sign in.
	if err := h.Sessions.Register(ctx, "frances@example.com", "s3cret"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := h.Sessions.Login(ctx, "frances@example.com", "s3cret"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	user, ok := h.Sessions.Current()
	if !ok {
		t.Fatal("Current() returned no user after login")
	}

	// Browse the catalog.
	popular, err := h.Catalog.Popular(ctx)
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if len(popular) != 2 {
		t.Fatalf("Popular() returned %d movies, want 2", len(popular))
	}

	// Like one film and watchlist the other.
	if err := h.Backend.ToggleLike(ctx, user.ID, "603"); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}
	if err := h.Backend.ToggleWatchlist(ctx, user.ID, "550"); err != nil {
		t.Fatalf("ToggleWatchlist() error = %v", err)
	}

	// Log a rated watch, which also submits the text as a review.
	_, err = h.Backend.CreateDiaryEntry(ctx, user.ID, model.CreateDiaryEntryRequest{
		MovieID:     "603",
		WatchedDate: time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		Rating:      5,
		ReviewText:  "Still holds up.",
		Username:    "frances",
	})
	if err != nil {
		t.Fatalf("CreateDiaryEntry() error = %v", err)
	}

	// The companion review is readable both by movie and by author.
	byMovie, err := h.Backend.ReviewsForMovie(ctx, "603")
	if err != nil {
		t.Fatalf("ReviewsForMovie() error = %v", err)
	}
	if len(byMovie) != 1 || byMovie[0].Text != "Still holds up." {
		t.Fatalf("ReviewsForMovie() = %+v, want one review with logged text", byMovie)
	}
	byUser, err := h.Backend.ReviewsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("ReviewsForUser() error = %v", err)
	}
	if len(byUser) != 1 || byUser[0].Username != "frances" {
		t.Fatalf("ReviewsForUser() = %+v, want one review by frances", byUser)
	}

	// The diary reads back populated with catalog records.
	entries, err := h.Backend.DiaryForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("DiaryForUser() error = %v", err)
	}
	diary := h.Aggregator.PopulateDiary(ctx, entries)
	if len(diary) != 1 {
		t.Fatalf("PopulateDiary() returned %d entries, want 1", len(diary))
	}
	if diary[0].Movie == nil || diary[0].Movie.Director != "Lana Wachowski" {
		t.Errorf("diary Movie = %+v, want resolved detail record", diary[0].Movie)
	}

	// Likes and watchlist resolve into full records.
	interactions, err := h.Backend.InteractionsForUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("InteractionsForUser() error = %v", err)
	}
	likes := h.Aggregator.ResolveMovies(ctx, interactions.Likes)
	if len(likes) != 1 || likes[0].Title != "The Matrix" {
		t.Errorf("resolved likes = %+v, want [The Matrix]", likes)
	}
	watchlist := h.Aggregator.ResolveMovies(ctx, interactions.Watchlist)
	if len(watchlist) != 1 || watchlist[0].Title != "Fight Club" {
		t.Errorf("resolved watchlist = %+v, want [Fight Club]", watchlist)
	}

	// Pick a display name and read it back.
	profile, err := h.Backend.UpdateProfile(ctx, user.ID, model.UpdateProfileRequest{Username: "frances_f"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if profile.Username != "frances_f" {
		t.Errorf("Username = %q, want %q", profile.Username, "frances_f")
	}

	// Logout erases the persisted token; a fresh restore is anonymous.
	h.Sessions.Logout()
	restored := session.NewManager(h.Store, h.Backend)
	restored.Restore()
	if got := restored.State(); got != session.StateAnonymous {
		t.Errorf("State() after logout restore = %q, want %q", got, session.StateAnonymous)
	}
}

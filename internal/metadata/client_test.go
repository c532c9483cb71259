// Package metadata provides unit tests for the catalog client.
package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	errordefs "github.com/moviebuzz/moviebuzz-client-go/internal/errors"
)

const (
	testImageBase   = "https://img.test/w500"
	testPlaceholder = "https://placehold.co/500x750/2d3748/ffffff?text=No+Image"
)

// newTestClient creates a client pointed at the given fake catalog server.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := New(serverURL, testImageBase, testPlaceholder, "test-key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

// TestPopularNormalization tests that list payloads are shaped into canonical
// records: year formatting, poster resolution, synopsis mapping.
func TestPopularNormalization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/popular" {
			t.Errorf("request path = %v, want /movie/popular", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key = %v, want test-key", r.URL.Query().Get("api_key"))
		}
		w.Write([]byte(`{"results":[
			{"id":603,"title":"The Matrix","release_date":"1999-03-30","overview":"A hacker learns the truth.","poster_path":"/matrix.jpg","genre_ids":[28,878],"vote_average":8.2},
			{"id":99,"title":"Unreleased","release_date":"","overview":"","poster_path":null}
		]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	movies, err := c.Popular(context.Background())
	if err != nil {
		t.Fatalf("Popular() error = %v", err)
	}
	if len(movies) != 2 {
		t.Fatalf("Popular() returned %d movies, want 2", len(movies))
	}

	first := movies[0]
	if first.ID != "603" {
		t.Errorf("ID = %v, want 603", first.ID)
	}
	if first.Year != "1999" {
		t.Errorf("Year = %v, want 1999", first.Year)
	}
	if first.PosterURL != testImageBase+"/matrix.jpg" {
		t.Errorf("PosterURL = %v, want %v", first.PosterURL, testImageBase+"/matrix.jpg")
	}
	if first.Synopsis != "A hacker learns the truth." {
		t.Errorf("Synopsis = %v, want the overview text", first.Synopsis)
	}
	if first.Rating != 8.2 {
		t.Errorf("Rating = %v, want 8.2", first.Rating)
	}
	if len(first.GenreIDs) != 2 || first.GenreIDs[0] != 28 {
		t.Errorf("GenreIDs = %v, want [28 878]", first.GenreIDs)
	}

	second := movies[1]
	if second.Year != "N/A" {
		t.Errorf("Year for missing release date = %v, want N/A", second.Year)
	}
	if second.PosterURL != testPlaceholder {
		t.Errorf("PosterURL for missing poster = %v, want placeholder", second.PosterURL)
	}
	// A record without a credits payload carries "N/A", not an empty string.
	if second.Director != "N/A" {
		t.Errorf("Director = %v, want N/A", second.Director)
	}
}

// TestByIDDirectorResolution tests that the detail lookup appends credits and
// resolves the first crew member whose job is exactly "Director".
func TestByIDDirectorResolution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("request path = %v, want /movie/603", r.URL.Path)
		}
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("append_to_response = %v, want credits", r.URL.Query().Get("append_to_response"))
		}
		w.Write([]byte(`{"id":603,"title":"The Matrix","release_date":"1999-03-30",
			"overview":"x","poster_path":"/matrix.jpg","vote_average":8.2,
			"genres":[{"id":28,"name":"Action"},{"id":878,"name":"Science Fiction"}],
			"credits":{"crew":[
				{"name":"Joel Silver","job":"Producer"},
				{"name":"Lana Wachowski","job":"Director"},
				{"name":"Lilly Wachowski","job":"Director"}
			]}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	movie, err := c.ByID(context.Background(), "603")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if movie.Director != "Lana Wachowski" {
		t.Errorf("Director = %v, want Lana Wachowski (first matching crew credit)", movie.Director)
	}
	if len(movie.GenreIDs) != 2 || movie.GenreIDs[0] != 28 || movie.GenreIDs[1] != 878 {
		t.Errorf("GenreIDs = %v, want [28 878] from detail genre objects", movie.GenreIDs)
	}
}

// TestByIDNoDirector tests that a credits list without a director credit
// yields "N/A", not an error.
func TestByIDNoDirector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":603,"title":"The Matrix","credits":{"crew":[{"name":"Joel Silver","job":"Producer"}]}}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	movie, err := c.ByID(context.Background(), "603")
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if movie.Director != "N/A" {
		t.Errorf("Director = %v, want N/A", movie.Director)
	}
}

// TestSearchRouting tests that an empty query browses the discovery endpoint
// sorted by popularity while a non-empty query hits the search endpoint, with
// the filters applied identically on both paths.
func TestSearchRouting(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	filters := Filters{Genre: 28, Year: 1999, MinRating: 7}

	// Empty query routes to the discovery endpoint.
	if _, err := c.Search(context.Background(), filters); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotPath != "/discover/movie" {
		t.Errorf("empty-query path = %v, want /discover/movie", gotPath)
	}
	if gotQuery["sort_by"] != "popularity.desc" {
		t.Errorf("sort_by = %v, want popularity.desc", gotQuery["sort_by"])
	}
	if gotQuery["with_genres"] != "28" || gotQuery["primary_release_year"] != "1999" || gotQuery["vote_average.gte"] != "7" {
		t.Errorf("discover filters = %v, want genre/year/rating applied", gotQuery)
	}

	// Non-empty query routes to the search endpoint with the same filters.
	filters.Query = "matrix"
	if _, err := c.Search(context.Background(), filters); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotPath != "/search/movie" {
		t.Errorf("non-empty-query path = %v, want /search/movie", gotPath)
	}
	if gotQuery["query"] != "matrix" {
		t.Errorf("query = %v, want matrix", gotQuery["query"])
	}
	if gotQuery["with_genres"] != "28" || gotQuery["primary_release_year"] != "1999" || gotQuery["vote_average.gte"] != "7" {
		t.Errorf("search filters = %v, want genre/year/rating applied", gotQuery)
	}
}

// TestTrendingWindow tests window routing and the fallback to "week".
func TestTrendingWindow(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	if _, err := c.Trending(context.Background(), "day"); err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if gotPath != "/trending/movie/day" {
		t.Errorf("path = %v, want /trending/movie/day", gotPath)
	}

	if _, err := c.Trending(context.Background(), "fortnight"); err != nil {
		t.Fatalf("Trending() error = %v", err)
	}
	if gotPath != "/trending/movie/week" {
		t.Errorf("path for invalid window = %v, want /trending/movie/week", gotPath)
	}
}

// TestGenres tests decoding the genre list.
func TestGenres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/genre/movie/list" {
			t.Errorf("request path = %v, want /genre/movie/list", r.URL.Path)
		}
		w.Write([]byte(`{"genres":[{"id":28,"name":"Action"},{"id":18,"name":"Drama"}]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	genres, err := c.Genres(context.Background())
	if err != nil {
		t.Fatalf("Genres() error = %v", err)
	}
	if len(genres) != 2 || genres[0].Name != "Action" {
		t.Errorf("Genres() = %v, want Action and Drama", genres)
	}
}

// TestFetchError tests that a non-success upstream status surfaces as a
// metadata fetch error carrying the upstream status, with no partial data.
func TestFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	movies, err := c.Popular(context.Background())
	if err == nil {
		t.Fatalf("Popular() error = nil, want fetch error")
	}
	if !errordefs.Is(err, errordefs.MB_METADATA_FETCH) {
		t.Errorf("error code = %v, want MB_METADATA_FETCH", errordefs.CodeOf(err))
	}
	if movies != nil {
		t.Errorf("Popular() = %v on failure, want nil (no partial data)", movies)
	}
}

// TestSchemaRejection tests that a malformed upstream payload is rejected
// with a dedicated schema error rather than decoded into zero values.
func TestSchemaRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":"this is not an array"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	_, err := c.Popular(context.Background())
	if err == nil {
		t.Fatalf("Popular() error = nil, want schema error")
	}
	if !errordefs.Is(err, errordefs.MB_METADATA_SCHEMA) {
		t.Errorf("error code = %v, want MB_METADATA_SCHEMA", errordefs.CodeOf(err))
	}
}

// TestFormatYear tests year extraction edge cases.
func TestFormatYear(t *testing.T) {
	cases := []struct {
		releaseDate string
		want        string
	}{
		{"", "N/A"},
		{"1999-03-30", "1999"},
		{"2023", "2023"},
		{"99", "99"},
	}
	for _, tc := range cases {
		if got := formatYear(tc.releaseDate); got != tc.want {
			t.Errorf("formatYear(%q) = %v, want %v", tc.releaseDate, got, tc.want)
		}
	}
}

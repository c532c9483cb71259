// Package conformance provides a test harness for verifying the MovieBuzz
// client against fake upstream services. It fakes both the movie catalog and
// the user backend with httptest servers and wires the real client stack
// (gateways, session manager, aggregation layer) on top of them.
package conformance

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moviebuzz/moviebuzz-client-go/internal/aggregate"
	"github.com/moviebuzz/moviebuzz-client-go/internal/backend"
	"github.com/moviebuzz/moviebuzz-client-go/internal/metadata"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
	"github.com/moviebuzz/moviebuzz-client-go/internal/session"
)

// Default fixture values used by the fake catalog.
const (
	ImageBase      = "https://img.conformance/w500"
	PlaceholderURL = "https://placehold.co/500x750/2d3748/ffffff?text=No+Image"
)

// Harness wires the full client stack against in-process fake upstreams.
type Harness struct {
	Catalog    *metadata.Client
	Backend    *backend.Client
	Sessions   *session.Manager
	Aggregator *aggregate.Aggregator
	Store      session.Store

	catalogSrv *httptest.Server
	backendSrv *httptest.Server
	state      *backendState
}

// CatalogMovie is one fixture movie served by the fake catalog.
type CatalogMovie struct {
	ID          int
	Title       string
	ReleaseDate string
	Overview    string
	PosterPath  string
	GenreIDs    []int
	VoteAverage float64
	Director    string
	Missing     bool // When set, detail lookups return 404
}

// backendState is the fake backend's in-memory state.
type backendState struct {
	mu        sync.Mutex
	users     map[string]*account // keyed by email
	usersByID map[string]*account
	reviews   []model.Review
	likes     map[string]map[string]bool // userID -> movieID set
	watchlist map[string]map[string]bool
	diary     map[string][]model.DiaryEntry
	nextID    int
}

type account struct {
	ID        string
	Email     string
	Password  string
	Username  string
	CreatedAt time.Time
}

// jwtSecret signs the fake backend's tokens. The client decodes claims
// without verifying, so the value only matters to the fake.
var jwtSecret = []byte("conformance-secret")

// NewHarness creates a harness serving the given catalog fixtures.
func NewHarness(movies []CatalogMovie) (*Harness, error) {
	state := &backendState{
		users:     make(map[string]*account),
		usersByID: make(map[string]*account),
		likes:     make(map[string]map[string]bool),
		watchlist: make(map[string]map[string]bool),
		diary:     make(map[string][]model.DiaryEntry),
	}

	h := &Harness{state: state}
	h.catalogSrv = httptest.NewServer(newFakeCatalog(movies))
	h.backendSrv = httptest.NewServer(newFakeBackend(state))

	catalog, err := metadata.New(h.catalogSrv.URL, ImageBase, PlaceholderURL, "conformance-key")
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("conformance: %w", err)
	}

	h.Store = session.NewMemoryStore()
	var sessions *session.Manager
	be := backend.New(h.backendSrv.URL, backend.TokenFunc(func() (string, bool) {
		if sessions == nil {
			return "", false
		}
		return sessions.Token()
	}))
	sessions = session.NewManager(h.Store, be)
	sessions.Restore()

	h.Catalog = catalog
	h.Backend = be
	h.Sessions = sessions
	h.Aggregator = aggregate.New(catalog)
	return h, nil
}

// Close shuts down both fake upstreams.
func (h *Harness) Close() {
	if h.catalogSrv != nil {
		h.catalogSrv.Close()
	}
	if h.backendSrv != nil {
		h.backendSrv.Close()
	}
}

// ReviewCount returns how many reviews the fake backend holds.
func (h *Harness) ReviewCount() int {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return len(h.state.reviews)
}

// newFakeCatalog serves the documented catalog surface from fixtures.
func newFakeCatalog(movies []CatalogMovie) http.Handler {
	byID := make(map[string]CatalogMovie, len(movies))
	for _, m := range movies {
		byID[strconv.Itoa(m.ID)] = m
	}

	listPayload := func(w http.ResponseWriter) {
		results := make([]map[string]any, 0, len(movies))
		for _, m := range movies {
			if m.Missing {
				continue
			}
			results = append(results, map[string]any{
				"id":           m.ID,
				"title":        m.Title,
				"release_date": m.ReleaseDate,
				"overview":     m.Overview,
				"poster_path":  m.PosterPath,
				"genre_ids":    m.GenreIDs,
				"vote_average": m.VoteAverage,
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /movie/popular", func(w http.ResponseWriter, r *http.Request) { listPayload(w) })
	mux.HandleFunc("GET /trending/movie/{window}", func(w http.ResponseWriter, r *http.Request) { listPayload(w) })
	mux.HandleFunc("GET /search/movie", func(w http.ResponseWriter, r *http.Request) { listPayload(w) })
	mux.HandleFunc("GET /discover/movie", func(w http.ResponseWriter, r *http.Request) { listPayload(w) })
	mux.HandleFunc("GET /genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"genres": []map[string]any{
			{"id": 28, "name": "Action"},
			{"id": 18, "name": "Drama"},
		}})
	})
	mux.HandleFunc("GET /movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := byID[r.PathValue("id")]
		if !ok || m.Missing {
			http.Error(w, `{"status_message":"not found"}`, http.StatusNotFound)
			return
		}
		payload := map[string]any{
			"id":           m.ID,
			"title":        m.Title,
			"release_date": m.ReleaseDate,
			"overview":     m.Overview,
			"poster_path":  m.PosterPath,
			"vote_average": m.VoteAverage,
		}
		if m.Director != "" {
			payload["credits"] = map[string]any{"crew": []map[string]any{
				{"name": m.Director, "job": "Director"},
			}}
		}
		json.NewEncoder(w).Encode(payload)
	})
	return mux
}

// newFakeBackend serves the documented backend surface over state.
func newFakeBackend(state *backendState) http.Handler {
	writeError := func(w http.ResponseWriter, status int, message string) {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var creds model.CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Email == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}
		state.mu.Lock()
		defer state.mu.Unlock()
		if _, exists := state.users[creds.Email]; exists {
			writeError(w, http.StatusConflict, "account already exists")
			return
		}
		state.nextID++
		acct := &account{
			ID:        "u" + strconv.Itoa(state.nextID),
			Email:     creds.Email,
			Password:  creds.Password,
			Username:  creds.Email,
			CreatedAt: time.Now(),
		}
		state.users[creds.Email] = acct
		state.usersByID[acct.ID] = acct
		w.WriteHeader(http.StatusCreated)
	})

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds model.CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		state.mu.Lock()
		acct, exists := state.users[creds.Email]
		state.mu.Unlock()
		if !exists || acct.Password != creds.Password {
			writeError(w, http.StatusUnauthorized, "Invalid credentials.")
			return
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"id":    acct.ID,
			"email": acct.Email,
			"exp":   float64(time.Now().Add(24 * time.Hour).Unix()),
		}).SignedString(jwtSecret)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}
		json.NewEncoder(w).Encode(model.LoginResponse{
			Token:  token,
			Result: model.User{ID: acct.ID, Email: acct.Email},
		})
	})

	mux.HandleFunc("GET /api/reviews/{movieId}", func(w http.ResponseWriter, r *http.Request) {
		movieID := r.PathValue("movieId")
		state.mu.Lock()
		defer state.mu.Unlock()
		out := []model.Review{}
		for _, rv := range state.reviews {
			if rv.MovieID == movieID {
				out = append(out, rv)
			}
		}
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("POST /api/reviews", func(w http.ResponseWriter, r *http.Request) {
		var req model.CreateReviewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		state.mu.Lock()
		defer state.mu.Unlock()
		state.nextID++
		review := model.Review{
			ID:        "r" + strconv.Itoa(state.nextID),
			MovieID:   req.MovieID,
			UserID:    req.UserID,
			Username:  req.Username,
			Rating:    req.Rating,
			Text:      req.Text,
			CreatedAt: time.Now(),
		}
		state.reviews = append(state.reviews, review)
		json.NewEncoder(w).Encode(review)
	})

	mux.HandleFunc("GET /api/users/{userId}/reviews", func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("userId")
		state.mu.Lock()
		defer state.mu.Unlock()
		out := []model.Review{}
		for _, rv := range state.reviews {
			if rv.UserID == userID {
				out = append(out, rv)
			}
		}
		json.NewEncoder(w).Encode(out)
	})

	toggle := func(sets map[string]map[string]bool) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID := r.PathValue("userId")
			var req model.ToggleRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MovieID == "" {
				writeError(w, http.StatusBadRequest, "movieId is required")
				return
			}
			state.mu.Lock()
			defer state.mu.Unlock()
			if sets[userID] == nil {
				sets[userID] = make(map[string]bool)
			}
			if sets[userID][req.MovieID] {
				delete(sets[userID], req.MovieID)
			} else {
				sets[userID][req.MovieID] = true
			}
			w.WriteHeader(http.StatusOK)
		}
	}

	members := func(sets map[string]map[string]bool, userID string) []string {
		out := []string{}
		for id := range sets[userID] {
			out = append(out, id)
		}
		return out
	}

	mux.HandleFunc("GET /api/users/{userId}/likes", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()
		json.NewEncoder(w).Encode(map[string][]string{"likes": members(state.likes, r.PathValue("userId"))})
	})
	mux.HandleFunc("POST /api/users/{userId}/likes", toggle(state.likes))
	mux.HandleFunc("GET /api/users/{userId}/watchlist", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()
		json.NewEncoder(w).Encode(map[string][]string{"watchlist": members(state.watchlist, r.PathValue("userId"))})
	})
	mux.HandleFunc("POST /api/users/{userId}/watchlist", toggle(state.watchlist))

	mux.HandleFunc("GET /api/users/{userId}/diary", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()
		entries := state.diary[r.PathValue("userId")]
		if entries == nil {
			entries = []model.DiaryEntry{}
		}
		json.NewEncoder(w).Encode(entries)
	})

	mux.HandleFunc("POST /api/users/{userId}/diary", func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("userId")
		var req model.CreateDiaryEntryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		state.mu.Lock()
		defer state.mu.Unlock()
		state.nextID++
		entry := model.DiaryEntry{
			ID:          "d" + strconv.Itoa(state.nextID),
			MovieID:     req.MovieID,
			WatchedDate: req.WatchedDate,
			Rating:      req.Rating,
			ReviewText:  req.ReviewText,
		}
		state.diary[userID] = append(state.diary[userID], entry)
		json.NewEncoder(w).Encode(entry)
	})

	mux.HandleFunc("GET /api/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
		state.mu.Lock()
		defer state.mu.Unlock()
		acct, exists := state.usersByID[r.PathValue("userId")]
		if !exists {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		json.NewEncoder(w).Encode(model.Profile{
			ID:        acct.ID,
			Username:  acct.Username,
			Email:     acct.Email,
			CreatedAt: acct.CreatedAt,
		})
	})

	mux.HandleFunc("PUT /api/users/{userId}", func(w http.ResponseWriter, r *http.Request) {
		var req model.UpdateProfileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request")
			return
		}
		state.mu.Lock()
		defer state.mu.Unlock()
		acct, exists := state.usersByID[r.PathValue("userId")]
		if !exists {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		acct.Username = req.Username
		json.NewEncoder(w).Encode(model.Profile{
			ID:        acct.ID,
			Username:  acct.Username,
			Email:     acct.Email,
			CreatedAt: acct.CreatedAt,
		})
	})

	return mux
}

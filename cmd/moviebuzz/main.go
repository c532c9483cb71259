// cmd/moviebuzz/main.go
// Package main implements the MovieBuzz command-line client. It wires the
// config, session manager, gateways, and aggregation layer, then dispatches
// one subcommand per invocation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/moviebuzz/moviebuzz-client-go/internal/aggregate"
	"github.com/moviebuzz/moviebuzz-client-go/internal/backend"
	"github.com/moviebuzz/moviebuzz-client-go/internal/config"
	"github.com/moviebuzz/moviebuzz-client-go/internal/metadata"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
	"github.com/moviebuzz/moviebuzz-client-go/internal/session"
	"github.com/moviebuzz/moviebuzz-client-go/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const usage = `usage: moviebuzz [flags] <command> [args]

Discovery:
  popular                     list popular movies
  trending [day|week]         list trending movies
  search [flags]              search with -query -genre -year -min-rating
  genres                      list catalog genres
  film <movie-id>             show one movie with director credit

Account:
  register -email E -password P
  login    -email E -password P
  logout
  whoami

Activity (requires login):
  reviews <movie-id>          community reviews for a movie
  my-reviews                  your reviews with movie details
  diary                       your diary with movie details
  log <movie-id> [flags]      log a film with -rating -text -date
  review <movie-id> [flags]   submit a review with -rating -text
  like <movie-id>             toggle like
  watch <movie-id>            toggle watchlist
  likes                       your liked films
  watchlist                   your watchlist
  profile                     show your profile
  set-username <name>         update your profile username
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "moviebuzz: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired client stack for command dispatch.
type app struct {
	cfg      config.Config
	sessions *session.Manager
	catalog  *metadata.Client
	backend  *backend.Client
	agg      *aggregate.Aggregator
}

func run() error {
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	trace := flag.Bool("trace", false, "emit OpenTelemetry spans to stdout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("no command given")
	}

	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	// Configure structured logging
	logLevel := slog.LevelInfo
	if cfg.Env == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry when requested
	if *trace {
		tp, err := telemetry.Init("moviebuzz-client", "1.0.0")
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx, tp); err != nil {
				logger.Error("tracer shutdown failed", "error", err)
			}
		}()
	}

	// Optionally expose metrics while the command runs
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	// Wire the client stack: token store and session manager first, then the
	// gateways reading the session token through the manager.
	catalog, err := metadata.New(cfg.CatalogBaseURL, cfg.ImageBaseURL, cfg.PlaceholderURL, cfg.CatalogAPIKey)
	if err != nil {
		return err
	}

	// The manager and the gateway reference each other (the manager
	// delegates auth calls, the gateway reads the session token), so the
	// token source is resolved lazily through a TokenFunc.
	var sessions *session.Manager
	store := session.NewFileStore(cfg.TokenPath)
	be := backend.New(cfg.BackendURL, backend.TokenFunc(func() (string, bool) {
		if sessions == nil {
			return "", false
		}
		return sessions.Token()
	}))
	sessions = session.NewManager(store, be)
	sessions.Restore()

	a := &app{
		cfg:      cfg,
		sessions: sessions,
		catalog:  catalog,
		backend:  be,
		agg:      aggregate.New(catalog),
	}

	return a.dispatch(context.Background(), args[0], args[1:])
}

// dispatch routes one subcommand.
func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "popular":
		movies, err := a.catalog.Popular(ctx)
		if err != nil {
			return err
		}
		return printJSON(movies)

	case "trending":
		window := "week"
		if len(args) > 0 {
			window = args[0]
		}
		movies, err := a.catalog.Trending(ctx, window)
		if err != nil {
			return err
		}
		return printJSON(movies)

	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		query := fs.String("query", "", "title search text (empty browses by popularity)")
		genre := fs.Int("genre", 0, "genre id filter")
		year := fs.Int("year", 0, "release year filter")
		minRating := fs.Float64("min-rating", 0, "minimum average rating")
		fs.Parse(args)
		movies, err := a.catalog.Search(ctx, metadata.Filters{
			Query:     *query,
			Genre:     *genre,
			Year:      *year,
			MinRating: *minRating,
		})
		if err != nil {
			return err
		}
		return printJSON(movies)

	case "genres":
		genres, err := a.catalog.Genres(ctx)
		if err != nil {
			return err
		}
		return printJSON(genres)

	case "film":
		if len(args) < 1 {
			return fmt.Errorf("film: movie id required")
		}
		movie, err := a.catalog.ByID(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(movie)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)
		if err := a.sessions.Register(ctx, *email, *password); err != nil {
			return err
		}
		// Registration does not authenticate; an explicit login follows.
		fmt.Println("registered; run `moviebuzz login` to sign in")
		return nil

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(args)
		if err := a.sessions.Login(ctx, *email, *password); err != nil {
			return err
		}
		user, _ := a.sessions.Current()
		fmt.Printf("logged in as %s\n", user.Email)
		return nil

	case "logout":
		a.sessions.Logout()
		fmt.Println("logged out")
		return nil

	case "whoami":
		user, ok := a.sessions.Current()
		if !ok {
			fmt.Println("not logged in")
			return nil
		}
		return printJSON(user)

	case "reviews":
		if len(args) < 1 {
			return fmt.Errorf("reviews: movie id required")
		}
		reviews, err := a.backend.ReviewsForMovie(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(reviews)

	case "my-reviews":
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		reviews, err := a.backend.ReviewsForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		return printJSON(a.agg.PopulateReviews(ctx, reviews))

	case "diary":
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		entries, err := a.backend.DiaryForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		return printJSON(a.agg.PopulateDiary(ctx, entries))

	case "log":
		if len(args) < 1 {
			return fmt.Errorf("log: movie id required")
		}
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		fs := flag.NewFlagSet("log", flag.ExitOnError)
		rating := fs.Int("rating", 0, "star rating (0 leaves the film unrated)")
		text := fs.String("text", "", "review text")
		date := fs.String("date", "", "watched date (YYYY-MM-DD, default today)")
		fs.Parse(args[1:])

		watched := time.Now()
		if *date != "" {
			watched, err = time.Parse("2006-01-02", *date)
			if err != nil {
				return fmt.Errorf("log: invalid date %q: %w", *date, err)
			}
		}

		entry, err := a.backend.CreateDiaryEntry(ctx, user.ID, model.CreateDiaryEntryRequest{
			MovieID:     args[0],
			WatchedDate: watched,
			Rating:      *rating,
			ReviewText:  *text,
			Username:    usernameOf(user),
		})
		if err != nil {
			return err
		}
		return printJSON(entry)

	case "review":
		if len(args) < 1 {
			return fmt.Errorf("review: movie id required")
		}
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		fs := flag.NewFlagSet("review", flag.ExitOnError)
		rating := fs.Int("rating", 0, "star rating")
		text := fs.String("text", "", "review text")
		fs.Parse(args[1:])
		if *rating == 0 && *text == "" {
			return fmt.Errorf("review: a rating or review text is required")
		}
		review, err := a.backend.CreateReview(ctx, model.CreateReviewRequest{
			MovieID:  args[0],
			Rating:   *rating,
			Text:     *text,
			UserID:   user.ID,
			Username: usernameOf(user),
		})
		if err != nil {
			return err
		}
		return printJSON(review)

	case "like":
		if len(args) < 1 {
			return fmt.Errorf("like: movie id required")
		}
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		if err := a.backend.ToggleLike(ctx, user.ID, args[0]); err != nil {
			return err
		}
		fmt.Println("like toggled")
		return nil

	case "watch":
		if len(args) < 1 {
			return fmt.Errorf("watch: movie id required")
		}
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		if err := a.backend.ToggleWatchlist(ctx, user.ID, args[0]); err != nil {
			return err
		}
		fmt.Println("watchlist toggled")
		return nil

	case "likes":
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		interactions, err := a.backend.InteractionsForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		return printJSON(a.agg.ResolveMovies(ctx, interactions.Likes))

	case "watchlist":
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		interactions, err := a.backend.InteractionsForUser(ctx, user.ID)
		if err != nil {
			return err
		}
		return printJSON(a.agg.ResolveMovies(ctx, interactions.Watchlist))

	case "profile":
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		profile, err := a.backend.Profile(ctx, user.ID)
		if err != nil {
			return err
		}
		return printJSON(profile)

	case "set-username":
		if len(args) < 1 {
			return fmt.Errorf("set-username: name required")
		}
		user, err := a.requireUser()
		if err != nil {
			return err
		}
		profile, err := a.backend.UpdateProfile(ctx, user.ID, model.UpdateProfileRequest{Username: args[0]})
		if err != nil {
			return err
		}
		return printJSON(profile)

	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// requireUser gates authenticated-only commands on the session manager's
// flag, the single source of truth for authenticated state.
func (a *app) requireUser() (model.User, error) {
	user, ok := a.sessions.Current()
	if !ok {
		return model.User{}, fmt.Errorf("not logged in; run `moviebuzz login -email ... -password ...`")
	}
	return user, nil
}

// usernameOf derives the display name used on submissions from the email's
// local part.
func usernameOf(user model.User) string {
	for i, r := range user.Email {
		if r == '@' {
			return user.Email[:i]
		}
	}
	return user.Email
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

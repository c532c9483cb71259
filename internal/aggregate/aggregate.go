// internal/aggregate/aggregate.go
// Package aggregate joins backend records that reference movies by id against
// the metadata gateway, producing populated view models. Each distinct id is
// resolved exactly once regardless of duplicate references, all resolutions
// run concurrently, and a per-id failure never aborts the rest.
package aggregate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/moviebuzz/moviebuzz-client-go/internal/metrics"
	"github.com/moviebuzz/moviebuzz-client-go/internal/model"
)

// Resolver looks up one movie by catalog id. Satisfied by the metadata
// client.
type Resolver interface {
	ByID(ctx context.Context, id string) (model.MovieRecord, error)
}

// Aggregator resolves movie references for backend record lists.
type Aggregator struct {
	resolver Resolver
	metrics  *metrics.Metrics
}

// New creates an aggregator over the given resolver.
func New(resolver Resolver) *Aggregator {
	return &Aggregator{
		resolver: resolver,
		metrics:  metrics.NewMetrics(),
	}
}

// resolveAll resolves every distinct id concurrently and returns the map of
// successful resolutions. Failures are counted and swallowed: a single
// removed or unavailable catalog entry must not blank an entire page.
// The fan-out waits for every lookup to settle before returning.
func (a *Aggregator) resolveAll(ctx context.Context, ids []string) map[string]*model.MovieRecord {
	seen := make(map[string]bool, len(ids))
	distinct := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		distinct = append(distinct, id)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		resolved = make(map[string]*model.MovieRecord, len(distinct))
	)

	for _, id := range distinct {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			record, err := a.resolver.ByID(ctx, id)
			if err != nil {
				a.metrics.ResolutionTotal.WithLabelValues("failure").Inc()
				slog.Debug("movie resolution failed", "movieId", id, "error", err)
				return
			}
			a.metrics.ResolutionTotal.WithLabelValues("success").Inc()
			mu.Lock()
			resolved[id] = &record
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	return resolved
}

// PopulateReviews attaches resolved movies to a review list. The output
// always has one view model per input review; Movie is nil when its id did
// not resolve.
func (a *Aggregator) PopulateReviews(ctx context.Context, reviews []model.Review) []model.PopulatedReview {
	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.MovieID)
	}
	resolved := a.resolveAll(ctx, ids)

	populated := make([]model.PopulatedReview, 0, len(reviews))
	for _, r := range reviews {
		populated = append(populated, model.PopulatedReview{
			Review: r,
			Movie:  resolved[r.MovieID],
		})
	}
	return populated
}

// PopulateDiary attaches resolved movies to a diary entry list. Same
// contract as PopulateReviews.
func (a *Aggregator) PopulateDiary(ctx context.Context, entries []model.DiaryEntry) []model.PopulatedDiaryEntry {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.MovieID)
	}
	resolved := a.resolveAll(ctx, ids)

	populated := make([]model.PopulatedDiaryEntry, 0, len(entries))
	for _, e := range entries {
		populated = append(populated, model.PopulatedDiaryEntry{
			DiaryEntry: e,
			Movie:      resolved[e.MovieID],
		})
	}
	return populated
}

// ResolveMovies resolves a plain id list (likes, watchlist) into records in
// input order. Unlike the record-list call sites, ids that fail to resolve
// are dropped rather than carried as empty entries.
func (a *Aggregator) ResolveMovies(ctx context.Context, ids []string) []model.MovieRecord {
	resolved := a.resolveAll(ctx, ids)

	records := make([]model.MovieRecord, 0, len(ids))
	emitted := make(map[string]bool, len(ids))
	for _, id := range ids {
		record, ok := resolved[id]
		if !ok || emitted[id] {
			continue
		}
		emitted[id] = true
		records = append(records, *record)
	}
	return records
}

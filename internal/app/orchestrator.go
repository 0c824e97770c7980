package app

import (
	"context"

	"golang.org/x/sync/errgroup"
	"quiz-stats-service/internal/domain"
)

// DeferredResult is delivered once on the channel returned by StartDeferred.
type DeferredResult struct {
	Stats domain.DeferredStats
	Err   error
}

// Critical returns the stats needed for first paint. Results are cached per
// user for the critical TTL and tagged with UserTag(userID); concurrent
// misses for the same user share one computation.
func (s *StatsService) Critical(ctx context.Context, userID string) (domain.CriticalStats, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.CriticalStats{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	key := criticalKey(userID)
	var cached domain.CriticalStats
	if s.cacheLoad(ctx, key, &cached) {
		return cached, nil
	}

	// The shared computation outlives any single caller: one caller going
	// away must not fail the others waiting on the same user.
	flight := s.sf.DoChan(key, func() (interface{}, error) {
		fctx, cancel := s.withTimeout(context.WithoutCancel(ctx))
		defer cancel()
		critical, err := s.computeCritical(fctx, userID)
		if err != nil {
			return domain.CriticalStats{}, err
		}
		s.cacheStore(fctx, key, critical, UserTag(userID))
		return critical, nil
	})
	select {
	case res := <-flight:
		if res.Err != nil {
			return domain.CriticalStats{}, res.Err
		}
		return res.Val.(domain.CriticalStats), nil
	case <-ctx.Done():
		return domain.CriticalStats{}, ctx.Err()
	}
}

func (s *StatsService) computeCritical(ctx context.Context, userID string) (domain.CriticalStats, error) {
	var critical domain.CriticalStats
	g, gctx := errgroup.WithContext(ctx)
	history := s.historyLoader(gctx, userID)

	g.Go(func() error {
		var err error
		critical.Summary, critical.Streaks, err = s.summaryAndStreaks(gctx, userID, history)
		return err
	})
	g.Go(func() error {
		var err error
		critical.Categories, err = s.categories(gctx, userID, history)
		return err
	})
	g.Go(func() error {
		var err error
		critical.WeeklyStreak, err = s.weeklyStreak(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CriticalStats{}, err
	}
	return critical, nil
}

// Deferred computes the heavier stats streamed after first paint. It is not
// cached here; the aggregators use their pre-computed tables where present.
// League comparisons are not part of it; see LeagueComparisons.
func (s *StatsService) Deferred(ctx context.Context, userID string) (domain.DeferredStats, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return domain.DeferredStats{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	deferred := domain.DeferredStats{
		Comparisons: domain.Comparisons{Leagues: []domain.LeagueComparison{}},
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deferred.PerformanceOverTime, err = s.performanceOverTime(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		deferred.Comparisons.Public, err = s.PublicStats(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		deferred.SeasonStats, err = s.seasonStats(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DeferredStats{}, err
	}
	return deferred, nil
}

// StartDeferred begins Deferred in the background and returns a channel that
// receives exactly one result. Cancelling ctx abandons the computation.
func (s *StatsService) StartDeferred(ctx context.Context, userID string) <-chan DeferredResult {
	ch := make(chan DeferredResult, 1)
	go func() {
		stats, err := s.Deferred(ctx, userID)
		ch <- DeferredResult{Stats: stats, Err: err}
	}()
	return ch
}

// InvalidateUser drops every cached entry of a user, e.g. after a new
// quiz completion is recorded.
func (s *StatsService) InvalidateUser(ctx context.Context, userID string) error {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return err
	}
	if s.cache == nil {
		return nil
	}
	s.sf.Forget(criticalKey(userID))
	return s.cache.InvalidateTag(ctx, UserTag(userID))
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	"FXPull/internal/service/ratelimit"
	"FXPull/internal/services/features"
	applogger "FXPull/pkg/logger"
)

// NewsOptions bounds the windowed fetch.
type NewsOptions struct {
	// WindowDays is the size of one query window; the free tier rejects
	// wide ranges, so the requested range is walked window by window.
	WindowDays     int
	MaxRetries     uint64
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	RatePerMin     float64
}

// NewsUsecase fetches articles window by window and reduces them to
// per-period signals on the candle timeline.
type NewsUsecase struct {
	provider drepo.NewsProvider
	limiter  *ratelimit.Limiter
	metrics  drepo.Metrics
	l        *applogger.Logger
	opts     NewsOptions

	now func() time.Time
}

// NewNewsUsecase creates a NewsUsecase.
func NewNewsUsecase(provider drepo.NewsProvider, limiter *ratelimit.Limiter, metrics drepo.Metrics, l *applogger.Logger, opts NewsOptions) *NewsUsecase {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BackoffInitial == 0 {
		opts.BackoffInitial = time.Second
	}
	if opts.BackoffMax == 0 {
		opts.BackoffMax = 8 * time.Second
	}
	return &NewsUsecase{
		provider: provider,
		limiter:  limiter,
		metrics:  metrics,
		l:        l,
		opts:     opts,
		now:      time.Now,
	}
}

// FetchArticles walks [start, end) in fixed windows, skipping windows
// entirely outside the provider's retention, and returns deduplicated
// articles sorted by publication time plus the dropped-record count.
func (u *NewsUsecase) FetchArticles(ctx context.Context, instrument string, start, end time.Time) ([]models.Article, int, error) {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return nil, 0, fmt.Errorf("news: empty range")
	}

	window := time.Duration(u.opts.WindowDays) * 24 * time.Hour
	var oldest time.Time
	if ret := u.provider.Retention(); ret > 0 {
		oldest = u.now().Add(-ret)
	}

	var all []models.Article
	dropped := 0
	for cur := start; cur.Before(end); cur = cur.Add(window) {
		next := cur.Add(window)
		if next.After(end) {
			next = end
		}
		if !oldest.IsZero() && next.Before(oldest) {
			u.l.Info("skipping news window outside provider retention",
				applogger.String("instrument", instrument),
				applogger.Time("start", cur),
				applogger.Time("end", next))
			continue
		}

		articles, d, err := u.fetchWindow(ctx, instrument, cur, next)
		if err != nil {
			if errors.Is(err, models.ErrAuthFailed) {
				return nil, dropped, err
			}
			// A failed window is a coverage hole, not a fatal error.
			u.l.Warn("news window failed",
				applogger.String("instrument", instrument),
				applogger.Time("start", cur),
				applogger.Time("end", next),
				applogger.Error(err))
			continue
		}
		all = append(all, articles...)
		dropped += d
	}

	all = models.DedupArticles(all)
	sort.Slice(all, func(i, j int) bool { return all[i].PublishedAt.Before(all[j].PublishedAt) })

	if dropped > 0 {
		u.metrics.RecordDropped("article", dropped)
	}
	u.l.Info("articles fetched",
		applogger.String("instrument", instrument),
		applogger.Int("articles", len(all)),
		applogger.Int("dropped", dropped))
	return all, dropped, nil
}

func (u *NewsUsecase) fetchWindow(ctx context.Context, instrument string, start, end time.Time) ([]models.Article, int, error) {
	var (
		articles []models.Article
		dropped  int
	)
	op := func() error {
		if u.opts.RatePerMin > 0 && u.limiter != nil {
			if err := u.limiter.Wait(ctx, u.provider.Name(), u.opts.RatePerMin, u.opts.RatePerMin/60); err != nil {
				return backoff.Permanent(err)
			}
		}
		began := time.Now()
		as, d, err := u.provider.FetchArticles(ctx, instrument, start, end)
		u.metrics.RecordProviderLatency(u.provider.Name(), time.Since(began).Seconds())
		if err != nil {
			u.metrics.RecordProviderRequest(u.provider.Name(), outcomeOf(err))
			if errors.Is(err, models.ErrRateLimited) || errors.Is(err, models.ErrUnavailable) {
				u.metrics.RecordRetry(u.provider.Name())
				return err
			}
			return backoff.Permanent(err)
		}
		u.metrics.RecordProviderRequest(u.provider.Name(), "ok")
		articles, dropped = as, d
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.opts.BackoffInitial
	bo.MaxInterval = u.opts.BackoffMax
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, u.opts.MaxRetries), ctx)); err != nil {
		return nil, 0, err
	}
	return articles, dropped, nil
}

// AlignArticles buckets articles onto the period grid of [start, end)
// at granularity g. Every grid period yields exactly one signal;
// periods without articles carry count 0 and the neutral score 0. The
// reduction is a mean over per-article scores, so it is commutative and
// repeated runs over the same article set produce identical output.
func AlignArticles(instrument string, g models.Granularity, start, end time.Time, articles []models.Article) []models.NewsSignal {
	start = g.PeriodStart(start)
	end = end.UTC()

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int64]*bucket)
	for _, a := range articles {
		period := g.PeriodStart(a.PublishedAt)
		if period.Before(start) || !period.Before(end) {
			continue
		}
		b, ok := buckets[period.Unix()]
		if !ok {
			b = &bucket{}
			buckets[period.Unix()] = b
		}
		b.sum += features.ScoreArticle(a)
		b.count++
	}

	step := g.Duration()
	out := make([]models.NewsSignal, 0, g.PeriodsBetween(start, end))
	for t := start; t.Before(end); t = t.Add(step) {
		signal := models.NewsSignal{
			Instrument:  instrument,
			PeriodStart: t,
		}
		if b, ok := buckets[t.Unix()]; ok {
			signal.Score = b.sum / float64(b.count)
			signal.ArticleCount = b.count
		}
		out = append(out, signal)
	}
	return out
}

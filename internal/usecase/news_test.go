package usecase

import (
	"context"
	"reflect"
	"testing"
	"time"

	"FXPull/internal/domain/models"
	applogger "FXPull/pkg/logger"
)

type fakeNewsProvider struct {
	name      string
	retention time.Duration
	calls     []struct{ start, end time.Time }
	fetch     func(instrument string, start, end time.Time) ([]models.Article, int, error)
}

func (p *fakeNewsProvider) Name() string             { return p.name }
func (p *fakeNewsProvider) Retention() time.Duration { return p.retention }

func (p *fakeNewsProvider) FetchArticles(_ context.Context, instrument string, start, end time.Time) ([]models.Article, int, error) {
	p.calls = append(p.calls, struct{ start, end time.Time }{start, end})
	return p.fetch(instrument, start, end)
}

func article(instrument string, at time.Time, headline string) models.Article {
	return models.Article{
		Instrument:  instrument,
		PublishedAt: at,
		Headline:    headline,
		Source:      "wire",
	}
}

func TestFetchArticlesSkipsWindowsOutsideRetention(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	provider := &fakeNewsProvider{
		name:      "newsapi",
		retention: 30 * 24 * time.Hour,
		fetch: func(instrument string, start, end time.Time) ([]models.Article, int, error) {
			return []models.Article{article(instrument, start.Add(time.Hour), "headline "+start.Format("0102"))}, 0, nil
		},
	}
	u := NewNewsUsecase(provider, nil, nopMetrics{}, applogger.Nop(), NewsOptions{
		WindowDays:     7,
		BackoffInitial: time.Millisecond,
		BackoffMax:     2 * time.Millisecond,
	})
	u.now = func() time.Time { return now }

	start := now.Add(-60 * 24 * time.Hour)
	articles, _, err := u.FetchArticles(context.Background(), "EURUSD", start, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	oldest := now.Add(-30 * 24 * time.Hour)
	for _, call := range provider.calls {
		if call.end.Before(oldest) {
			t.Fatalf("window [%s, %s) entirely outside retention was queried", call.start, call.end)
		}
	}
	if len(articles) == 0 {
		t.Fatal("expected articles from in-retention windows")
	}
}

func TestFetchArticlesDeduplicates(t *testing.T) {
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	at := now.Add(-24 * time.Hour)
	provider := &fakeNewsProvider{
		name: "newsapi",
		fetch: func(instrument string, start, end time.Time) ([]models.Article, int, error) {
			a := article(instrument, at, "repeated headline")
			return []models.Article{a, a}, 1, nil
		},
	}
	u := NewNewsUsecase(provider, nil, nopMetrics{}, applogger.Nop(), NewsOptions{WindowDays: 7})
	u.now = func() time.Time { return now }

	articles, dropped, err := u.FetchArticles(context.Background(), "EURUSD", now.Add(-48*time.Hour), now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected 1 article after dedup, got %d", len(articles))
	}
	if dropped != 1 {
		t.Fatalf("expected dropped 1, got %d", dropped)
	}
}

func TestAlignArticlesTwoInSamePeriod(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(6 * time.Hour)
	articles := []models.Article{
		article("EURUSD", start.Add(3*time.Hour+5*time.Minute), "euro rallies"),
		article("EURUSD", start.Add(3*time.Hour+40*time.Minute), "euro slumps"),
	}

	signals := AlignArticles("EURUSD", models.Gran1h, start, end, articles)
	if len(signals) != 6 {
		t.Fatalf("expected 6 signals, got %d", len(signals))
	}
	for _, s := range signals {
		if s.PeriodStart.Equal(start.Add(3 * time.Hour)) {
			if s.ArticleCount != 2 {
				t.Fatalf("expected article_count 2, got %d", s.ArticleCount)
			}
			continue
		}
		if s.ArticleCount != 0 || s.Score != 0 {
			t.Fatalf("expected neutral default at %s, got count=%d score=%v", s.PeriodStart, s.ArticleCount, s.Score)
		}
	}
}

func TestAlignArticlesDeterministic(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	articles := []models.Article{
		article("EURUSD", start.Add(90*time.Minute), "euro gains on upbeat data"),
		article("EURUSD", start.Add(95*time.Minute), "dollar falls"),
		article("EURUSD", start.Add(10*time.Hour), "markets quiet"),
	}
	reversed := []models.Article{articles[2], articles[1], articles[0]}

	a := AlignArticles("EURUSD", models.Gran1h, start, end, articles)
	b := AlignArticles("EURUSD", models.Gran1h, start, end, reversed)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("alignment output depends on article order")
	}
	c := AlignArticles("EURUSD", models.Gran1h, start, end, articles)
	if !reflect.DeepEqual(a, c) {
		t.Fatal("alignment output not idempotent")
	}
}

func TestAlignArticlesDropsOutOfRange(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	articles := []models.Article{
		article("EURUSD", start.Add(-time.Minute), "too early"),
		article("EURUSD", end, "too late"),
	}
	signals := AlignArticles("EURUSD", models.Gran1h, start, end, articles)
	for _, s := range signals {
		if s.ArticleCount != 0 {
			t.Fatalf("expected no bucketed articles, got %d at %s", s.ArticleCount, s.PeriodStart)
		}
	}
}

package models

import (
	"fmt"
	"time"
)

// Article is one news item tagged with the instrument (or topic) its
// query matched. PublishedAt is always UTC and never zero.
type Article struct {
	Instrument  string
	PublishedAt time.Time
	Headline    string
	Body        string
	URL         string
	Source      string
}

// Validate rejects articles that cannot participate in alignment.
func (a Article) Validate() error {
	if a.PublishedAt.IsZero() {
		return fmt.Errorf("article %q: published_at required", a.Headline)
	}
	if a.Headline == "" {
		return fmt.Errorf("article from %s: headline required", a.Source)
	}
	return nil
}

// DedupKey identifies an article for deduplication purposes.
func (a Article) DedupKey() string {
	return a.Source + "|" + a.Headline + "|" + a.PublishedAt.UTC().Format(time.RFC3339)
}

// DedupArticles drops duplicate articles by (source, headline,
// published_at), keeping the first occurrence.
func DedupArticles(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		k := a.DedupKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

// NewsSignal is the per-period reduction of the article set, bucketed to
// the target candle granularity. Periods with no articles carry
// ArticleCount 0 and the neutral score 0.
type NewsSignal struct {
	Instrument   string
	PeriodStart  time.Time
	Score        float64
	ArticleCount int
}

package newsapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
)

const Name = "newsapi"

// pairQueries maps an instrument to the search query that surfaces its
// macro coverage. Unknown pairs fall back to "<BASE> <QUOTE>".
var pairQueries = map[string]string{
	"EURUSD": "EUR USD OR Euro Dollar OR ECB OR European Central Bank",
	"GBPUSD": "GBP USD OR Pound Dollar OR Bank of England",
	"USDJPY": "USD JPY OR Japan Bank OR BoJ OR Yen",
	"AUDUSD": "AUD USD OR AUDUSD OR Reserve Bank of Australia",
	"USDCAD": "USD CAD OR Bank of Canada OR CAD",
	"USDCHF": "USD CHF OR Swiss National Bank OR SNB OR Franc",
}

// Client implements a NewsProvider backed by the NewsAPI "everything"
// endpoint. The free tier only serves articles from the trailing
// retention window; older windows are the caller's problem to skip.
type Client struct {
	apiKey    string
	baseURL   string
	retention time.Duration
	pageSize  int
	http      *xhttp.Client
	l         *applogger.Logger
}

// New creates a new NewsAPI provider.
func New(apiKey, baseURL string, retention time.Duration, pageSize int, timeout time.Duration, l *applogger.Logger) drepo.NewsProvider {
	return &Client{
		apiKey:    apiKey,
		baseURL:   baseURL,
		retention: retention,
		pageSize:  pageSize,
		http:      xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:         l,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Retention() time.Duration { return c.retention }

type articlePayload struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

type everythingResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []articlePayload `json:"articles"`
}

// FetchArticles retrieves and normalizes articles published in [start, end).
func (c *Client) FetchArticles(ctx context.Context, instrument string, start, end time.Time) ([]models.Article, int, error) {
	if c.apiKey == "" {
		return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("api key missing"))
	}
	if start.After(end) {
		return nil, 0, fmt.Errorf("newsapi: start after end")
	}

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/everything",
		Headers: map[string]string{"X-Api-Key": c.apiKey},
		QueryParams: map[string][]string{
			"q":        {queryFor(instrument)},
			"from":     {start.UTC().Format(time.RFC3339)},
			"to":       {end.UTC().Format(time.RFC3339)},
			"language": {"en"},
			"sortBy":   {"relevancy"},
			"pageSize": {strconv.Itoa(c.pageSize)},
		},
	})
	if err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, nil)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusUpgradeRequired:
		// Free-tier answer for windows past retention.
		return nil, 0, models.NewProviderError(Name, models.ErrUnsupportedRange, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body everythingResponse
	if err := xhttp.DecodeJSON(resp, &body); err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, err)
	}
	if body.Status != "ok" {
		if body.Code == "rateLimited" {
			return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, fmt.Errorf("%s", body.Message))
		}
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("status %q: %s", body.Status, body.Message))
	}

	return c.normalize(instrument, body.Articles, start, end)
}

func (c *Client) normalize(instrument string, payload []articlePayload, start, end time.Time) ([]models.Article, int, error) {
	out := make([]models.Article, 0, len(payload))
	dropped := 0
	for _, a := range payload {
		published, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			dropped++
			if c.l != nil {
				c.l.Warn("newsapi: dropped article with bad timestamp", applogger.String("published_at", a.PublishedAt))
			}
			continue
		}
		published = published.UTC()
		if published.Before(start) || !published.Before(end) {
			continue
		}
		article := models.Article{
			Instrument:  instrument,
			PublishedAt: published,
			Headline:    a.Title,
			Body:        a.Description,
			URL:         a.URL,
			Source:      a.Source.Name,
		}
		if err := article.Validate(); err != nil {
			dropped++
			if c.l != nil {
				c.l.Warn("newsapi: dropped malformed article", applogger.Error(err))
			}
			continue
		}
		out = append(out, article)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out, dropped, nil
}

// queryFor resolves the search query for an instrument.
func queryFor(instrument string) string {
	if q, ok := pairQueries[instrument]; ok {
		return q
	}
	if len(instrument) == 6 {
		return instrument[:3] + " " + instrument[3:]
	}
	return instrument
}

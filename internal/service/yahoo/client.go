package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
	"FXPull/pkg/util"
)

const Name = "yahoo"

// Client implements a CandleProvider backed by the Yahoo Finance v8
// chart API. It is the keyless fallback of last resort: daily history
// is effectively unlimited, intraday reaches back roughly 60 days.
type Client struct {
	baseURL           string
	intradayRetention time.Duration
	http              *xhttp.Client
	l                 *applogger.Logger
}

// New creates a new Yahoo Finance CandleProvider.
func New(baseURL string, intradayRetention, timeout time.Duration, l *applogger.Logger) drepo.CandleProvider {
	return &Client{
		baseURL:           baseURL,
		intradayRetention: intradayRetention,
		http:              xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:                 l,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Supports(g models.Granularity) bool {
	return intervalFor(g) != ""
}

func (c *Client) Retention(g models.Granularity) time.Duration {
	if g.Intraday() {
		return c.intradayRetention
	}
	return 0
}

// chartResponse is Yahoo's v8 chart payload. OHLC arrays carry nulls
// for untraded periods, hence the pointer elements.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchCandles retrieves and normalizes candles for [start, end).
func (c *Client) FetchCandles(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	if start.After(end) {
		return nil, 0, fmt.Errorf("yahoo: start after end")
	}

	symbol, err := yahooSymbol(instrument)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
		QueryParams: map[string][]string{
			"interval": {intervalFor(g)},
			"period1":  {strconv.FormatInt(start.Unix(), 10)},
			"period2":  {strconv.FormatInt(end.Unix(), 10)},
		},
	})
	if err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		// Yahoo rejects out-of-retention intraday windows with a 4xx.
		return nil, 0, models.NewProviderError(Name, models.ErrUnsupportedRange, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var chart chartResponse
	if err := xhttp.DecodeJSON(resp, &chart); err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, err)
	}
	if chart.Chart.Error != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed,
			fmt.Errorf("api error %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return nil, 0, nil
	}

	return c.normalize(instrument, g, chart, start, end)
}

func (c *Client) normalize(instrument string, g models.Granularity, chart chartResponse, start, end time.Time) ([]models.Candle, int, error) {
	result := chart.Chart.Result[0]
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil, 0, nil
	}
	quote := result.Indicators.Quote[0]
	n := len(result.Timestamp)
	if len(quote.Open) != n || len(quote.High) != n || len(quote.Low) != n || len(quote.Close) != n {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("column lengths differ"))
	}

	out := make([]models.Candle, 0, n)
	dropped := 0
	for i, ts := range result.Timestamp {
		// Null bars mark untraded periods (holidays), not bad data.
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}
		period := g.PeriodStart(time.Unix(ts, 0))
		if period.Before(start) || !period.Before(end) {
			continue
		}
		candle := models.Candle{
			Instrument:  instrument,
			Timestamp:   period,
			Open:        *quote.Open[i],
			High:        *quote.High[i],
			Low:         *quote.Low[i],
			Close:       *quote.Close[i],
			Granularity: g,
			Source:      Name,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			candle.Volume = *quote.Volume[i]
		}
		if err := candle.Validate(); err != nil {
			dropped++
			if c.l != nil {
				c.l.Warn("yahoo: dropped malformed candle", applogger.Error(err))
			}
			continue
		}
		out = append(out, candle)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, dropped, nil
}

// intervalFor maps a canonical granularity to Yahoo's interval string.
func intervalFor(g models.Granularity) string {
	switch g {
	case models.Gran1m:
		return "1m"
	case models.Gran5m:
		return "5m"
	case models.Gran15m:
		return "15m"
	case models.Gran30m:
		return "30m"
	case models.Gran1h:
		return "60m"
	case models.Gran1d:
		return "1d"
	default:
		return ""
	}
}

// yahooSymbol builds Yahoo's FX ticker, e.g. "EURUSD=X".
func yahooSymbol(pair string) (string, error) {
	base, quote, err := util.SplitPair(pair)
	if err != nil {
		return "", err
	}
	return base + quote + "=X", nil
}

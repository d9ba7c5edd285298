package alphavantage

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
	"FXPull/pkg/util"
)

const Name = "alphavantage"

// Client implements a CandleProvider backed by the Alpha Vantage FX
// endpoints (FX_INTRADAY / FX_DAILY). It serves as the intraday
// fallback when the primary's retention window is exceeded.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	l       *applogger.Logger
}

// New creates a new Alpha Vantage CandleProvider.
func New(apiKey, baseURL string, timeout time.Duration, l *applogger.Logger) drepo.CandleProvider {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:       l,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Supports(g models.Granularity) bool {
	return intervalFor(g) != "" || g == models.Gran1d
}

// Retention is unlimited for daily; intraday full output reaches back as
// far as the service keeps, so the adapter does not cap it itself.
func (c *Client) Retention(models.Granularity) time.Duration { return 0 }

// FetchCandles retrieves and normalizes candles for [start, end).
func (c *Client) FetchCandles(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	if c.apiKey == "" {
		return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("api key missing"))
	}
	if start.After(end) {
		return nil, 0, fmt.Errorf("alphavantage: start after end")
	}

	base, quote, err := util.SplitPair(instrument)
	if err != nil {
		return nil, 0, err
	}

	params := map[string][]string{
		"from_symbol": {base},
		"to_symbol":   {quote},
		"apikey":      {c.apiKey},
		"outputsize":  {"full"},
	}
	if g == models.Gran1d {
		params["function"] = []string{"FX_DAILY"}
	} else {
		params["function"] = []string{"FX_INTRADAY"}
		params["interval"] = []string{intervalFor(g)}
	}

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.baseURL + "/query",
		QueryParams: params,
	})
	if err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	// Alpha Vantage reports throttling and errors inside a 200 body.
	var body map[string]interface{}
	if err := xhttp.DecodeJSON(resp, &body); err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, err)
	}
	if _, ok := body["Note"]; ok {
		return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, nil)
	}
	if _, ok := body["Information"]; ok {
		return nil, 0, models.NewProviderError(Name, models.ErrRateLimited, nil)
	}
	if msg, ok := body["Error Message"].(string); ok {
		if strings.Contains(strings.ToLower(msg), "apikey") || strings.Contains(strings.ToLower(msg), "api key") {
			return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("%s", msg))
		}
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("%s", msg))
	}

	series := timeSeries(body)
	if series == nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("time series missing"))
	}

	return c.normalize(instrument, g, series, start, end)
}

// timeSeries picks the "Time Series FX (...)" object out of the payload.
func timeSeries(body map[string]interface{}) map[string]interface{} {
	for k, v := range body {
		if strings.HasPrefix(k, "Time Series FX") {
			if m, ok := v.(map[string]interface{}); ok {
				return m
			}
		}
	}
	return nil
}

func (c *Client) normalize(instrument string, g models.Granularity, series map[string]interface{}, start, end time.Time) ([]models.Candle, int, error) {
	layout := "2006-01-02 15:04:05"
	if g == models.Gran1d {
		layout = "2006-01-02"
	}

	out := make([]models.Candle, 0, len(series))
	dropped := 0
	for ts, raw := range series {
		t, err := time.ParseInLocation(layout, ts, time.UTC)
		if err != nil {
			dropped++
			continue
		}
		period := g.PeriodStart(t)
		if period.Before(start) || !period.Before(end) {
			continue
		}
		fields, ok := raw.(map[string]interface{})
		if !ok {
			dropped++
			continue
		}
		candle := models.Candle{
			Instrument:  instrument,
			Timestamp:   period,
			Granularity: g,
			Source:      Name,
		}
		var perr error
		candle.Open, perr = field(fields, "1. open", perr)
		candle.High, perr = field(fields, "2. high", perr)
		candle.Low, perr = field(fields, "3. low", perr)
		candle.Close, perr = field(fields, "4. close", perr)
		if perr != nil {
			dropped++
			continue
		}
		if err := candle.Validate(); err != nil {
			dropped++
			if c.l != nil {
				c.l.Warn("alphavantage: dropped malformed candle", applogger.Error(err))
			}
			continue
		}
		out = append(out, candle)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, dropped, nil
}

// field parses one stringly-typed OHLC value.
func field(m map[string]interface{}, key string, prev error) (float64, error) {
	if prev != nil {
		return 0, prev
	}
	s, ok := m[key].(string)
	if !ok {
		return 0, fmt.Errorf("field %q missing", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}

// intervalFor maps a canonical granularity to Alpha Vantage's interval.
func intervalFor(g models.Granularity) string {
	switch g {
	case models.Gran1m:
		return "1min"
	case models.Gran5m:
		return "5min"
	case models.Gran15m:
		return "15min"
	case models.Gran30m:
		return "30min"
	case models.Gran1h:
		return "60min"
	default:
		return ""
	}
}

package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"FXPull/internal/domain/models"
	drepo "FXPull/internal/domain/repository"
	xhttp "FXPull/pkg/http"
	applogger "FXPull/pkg/logger"
	"FXPull/pkg/util"
)

const Name = "finnhub"

// Client implements a CandleProvider backed by the Finnhub forex candle
// REST API. Finnhub is the primary provider: full daily history, but
// intraday resolutions only within a recent retention window.
type Client struct {
	apiKey            string
	baseURL           string
	intradayRetention time.Duration
	http              *xhttp.Client
	l                 *applogger.Logger

	now func() time.Time
}

// New creates a new Finnhub CandleProvider.
func New(apiKey, baseURL string, intradayRetention, timeout time.Duration, l *applogger.Logger) drepo.CandleProvider {
	return &Client{
		apiKey:            apiKey,
		baseURL:           baseURL,
		intradayRetention: intradayRetention,
		http:              xhttp.NewClient(xhttp.WithTimeout(timeout)),
		l:                 l,
		now:               time.Now,
	}
}

func (c *Client) Name() string { return Name }

func (c *Client) Supports(g models.Granularity) bool {
	return resolutionFor(g) != ""
}

func (c *Client) Retention(g models.Granularity) time.Duration {
	if g.Intraday() {
		return c.intradayRetention
	}
	return 0
}

// candleResponse is Finnhub's column-oriented candle payload.
type candleResponse struct {
	Status string    `json:"s"`
	T      []int64   `json:"t"`
	O      []float64 `json:"o"`
	H      []float64 `json:"h"`
	L      []float64 `json:"l"`
	C      []float64 `json:"c"`
	V      []float64 `json:"v"`
}

// FetchCandles retrieves and normalizes candles for [start, end).
func (c *Client) FetchCandles(ctx context.Context, instrument string, g models.Granularity, start, end time.Time) ([]models.Candle, int, error) {
	if c.apiKey == "" {
		return nil, 0, models.NewProviderError(Name, models.ErrAuthFailed, fmt.Errorf("api key missing"))
	}
	if start.After(end) {
		return nil, 0, fmt.Errorf("finnhub: start after end")
	}
	if ret := c.Retention(g); ret > 0 && end.Before(c.now().Add(-ret)) {
		return nil, 0, models.NewProviderError(Name, models.ErrUnsupportedRange,
			fmt.Errorf("window ends %s, retention %s", end.Format(time.RFC3339), ret))
	}

	symbol, err := oandaSymbol(instrument)
	if err != nil {
		return nil, 0, err
	}

	resp, err := c.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/forex/candle",
		QueryParams: map[string][]string{
			"symbol":     {symbol},
			"resolution": {resolutionFor(g)},
			"from":       {strconv.FormatInt(start.Unix(), 10)},
			"to":         {strconv.FormatInt(end.Unix(), 10)},
			"token":      {c.apiKey},
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
	case resp.StatusCode != http.StatusOK:
		return nil, 0, models.NewProviderError(Name, models.ErrUnavailable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var body candleResponse
	if err := xhttp.DecodeJSON(resp, &body); err != nil {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, err)
	}

	switch body.Status {
	case "ok":
	case "no_data":
		return nil, 0, nil
	default:
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("response status %q", body.Status))
	}

	return c.normalize(instrument, g, body)
}

// normalize converts the column-oriented payload into canonical candles,
// dropping rows that fail validation.
func (c *Client) normalize(instrument string, g models.Granularity, body candleResponse) ([]models.Candle, int, error) {
	n := len(body.T)
	if len(body.O) != n || len(body.H) != n || len(body.L) != n || len(body.C) != n {
		return nil, 0, models.NewProviderError(Name, models.ErrMalformed, fmt.Errorf("column lengths differ"))
	}

	out := make([]models.Candle, 0, n)
	dropped := 0
	for i := 0; i < n; i++ {
		candle := models.Candle{
			Instrument:  instrument,
			Timestamp:   g.PeriodStart(time.Unix(body.T[i], 0)),
			Open:        body.O[i],
			High:        body.H[i],
			Low:         body.L[i],
			Close:       body.C[i],
			Granularity: g,
			Source:      Name,
		}
		if i < len(body.V) {
			candle.Volume = body.V[i]
		}
		if err := candle.Validate(); err != nil {
			dropped++
			if c.l != nil {
				c.l.Warn("finnhub: dropped malformed candle", applogger.Error(err))
			}
			continue
		}
		out = append(out, candle)
	}
	return out, dropped, nil
}

// resolutionFor maps a canonical granularity to Finnhub's resolution code.
func resolutionFor(g models.Granularity) string {
	switch g {
	case models.Gran1m:
		return "1"
	case models.Gran5m:
		return "5"
	case models.Gran15m:
		return "15"
	case models.Gran30m:
		return "30"
	case models.Gran1h:
		return "60"
	case models.Gran1d:
		return "D"
	default:
		return ""
	}
}

// oandaSymbol builds Finnhub's OANDA forex symbol, e.g. "OANDA:EUR_USD".
func oandaSymbol(pair string) (string, error) {
	base, quote, err := util.SplitPair(pair)
	if err != nil {
		return "", err
	}
	return "OANDA:" + base + "_" + quote, nil
}

package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	c "github.com/graygillman/CapmAnalysis/service/api"
)

const (
	HostDefault    = "query1.finance.yahoo.com"
	defaultTimeout = 30 * time.Second
)

// Client reads adjusted closes from the Yahoo Finance v8 chart api
type Client struct {
	*c.Client
	log zerolog.Logger
	now func() time.Time
}

func NewClient(timeout time.Duration, log zerolog.Logger) *Client {
	return NewClientForHost(HostDefault, timeout, log)
}

func NewClientForHost(host string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		Client: c.ClientFactory(host, "", timeout),
		log:    log.With().Str("client", "yahoo").Logger(),
		now:    time.Now,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
				RegularMarketTime    int64  `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetPriceSeries returns the adjusted close history for symbol, oldest first
func (yc *Client) GetPriceSeries(ctx context.Context, symbol string, freq m.Frequency) (*m.PriceSeries, error) {
	res, err := yc.GetTimeSeries(ctx, symbol, freq)
	if err != nil {
		return nil, err
	}

	ps := res.ToPriceSeries(freq)
	ps.Symbol = symbol
	if ps.Valid() == 0 {
		return nil, fmt.Errorf("%w for %s", c.ErrNoData, symbol)
	}

	return ps, nil
}

func (yc *Client) GetTimeSeries(ctx context.Context, symbol string, freq m.Frequency) (*m.TimeSeriesResult, error) {
	interval := c.IntervalFor(freq)
	now := yc.now()

	endpoint := &url.URL{Path: "/v8/finance/chart/" + url.PathEscape(symbol)}
	q := endpoint.Query()
	q.Set("period1", strconv.FormatInt(interval.Start(now).Unix(), 10))
	q.Set("period2", strconv.FormatInt(now.Unix(), 10))
	q.Set("interval", interval.Interval())
	q.Set("events", "div,splits")
	endpoint.RawQuery = q.Encode()

	start := time.Now()
	response, err := yc.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error requesting chart for %s: %w", symbol, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading chart response for %s: %w", symbol, err)
	}

	res, err := parseChart(body, freq)
	if err != nil {
		return nil, fmt.Errorf("error parsing chart for %s: %w", symbol, err)
	}

	yc.log.Debug().
		Str("symbol", symbol).
		Str("interval", interval.Interval()).
		Int("points", len(res.TimeSeries)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched chart")

	return res, nil
}

func parseChart(body []byte, freq m.Frequency) (*m.TimeSeriesResult, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s %s", c.ErrNoData, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: chart result was empty", c.ErrNoData)
	}

	chart := resp.Chart.Result[0]
	if len(chart.Indicators.AdjClose) == 0 {
		return nil, fmt.Errorf("%w: no adjusted close indicator", c.ErrNoData)
	}
	closes := chart.Indicators.AdjClose[0].AdjClose

	location := time.UTC
	if chart.Meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(chart.Meta.ExchangeTimezoneName); err == nil {
			location = loc
		}
	}

	n := ex.Min(len(chart.Timestamp), len(closes))
	data := make([]*m.TimeSeriesData, 0, n)
	for i := 0; i < n; i++ {
		// bars are stamped at the session open, the exchange's calendar date is the key
		ts := time.Unix(chart.Timestamp[i], 0).In(location)
		data = append(data, &m.TimeSeriesData{
			Timestamp:     ex.ToDate(ts),
			AdjustedClose: null.FloatFromPtr(closes[i]),
		})
	}

	return &m.TimeSeriesResult{
		Metadata: &m.TimeSeriesMetadata{
			Symbol:        chart.Meta.Symbol,
			Frequency:     string(freq),
			LastRefreshed: time.Unix(chart.Meta.RegularMarketTime, 0).UTC(),
			TimeZone:      chart.Meta.ExchangeTimezoneName,
		},
		TimeSeries: data,
	}, nil
}

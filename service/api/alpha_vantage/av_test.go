package alpha_vantage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	ex "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	c "github.com/graygillman/CapmAnalysis/service/api"
)

const monthlyAdjustedFixture = `{
    "Meta Data": {
        "1. Information": "Monthly Adjusted Prices and Volumes",
        "2. Symbol": "AAPL",
        "3. Last Refreshed": "2025-10-31",
        "4. Time Zone": "US/Eastern"
    },
    "Monthly Adjusted Time Series": {
        "2025-10-31": {
            "1. open": "255.8800",
            "2. high": "277.3200",
            "3. low": "244.0000",
            "4. close": "270.3700",
            "5. adjusted close": "270.3700",
            "6. volume": "1062512387",
            "7. dividend amount": "0.0000"
        },
        "2025-09-30": {
            "1. open": "229.2200",
            "2. high": "256.6400",
            "3. low": "226.9700",
            "4. close": "254.6300",
            "5. adjusted close": "254.6300",
            "6. volume": "1284186245",
            "7. dividend amount": "0.0000"
        },
        "2025-08-29": {
            "1. open": "210.8650",
            "2. high": "233.4100",
            "3. low": "201.5000",
            "4. close": "232.1400",
            "5. adjusted close": "",
            "6. volume": "1306089291",
            "7. dividend amount": "0.2600"
        }
    }
}`

type fakeConnection struct {
	body     string
	endpoint *url.URL
}

func (f *fakeConnection) Request(_ context.Context, endpoint *url.URL) (*http.Response, error) {
	f.endpoint = endpoint
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func getFakeClient(body string) (*AlphaVantageClient, *fakeConnection) {
	conn := &fakeConnection{body: body}
	return &AlphaVantageClient{
		Client: c.NewClient(conn, "av-test-api-key"),
		log:    zerolog.Nop(),
	}, conn
}

func Test_AlphaVantage_MonthlyAdjustedTimeSeries(t *testing.T) {
	avc, conn := getFakeClient(monthlyAdjustedFixture)

	res, err := avc.GetTimeSeries(context.Background(), TimeSeriesMonthlyAdjusted, "AAPL")
	if err != nil {
		t.Fatalf("error getting stock time series: %s", err)
	}

	q := conn.endpoint.Query()
	ex.AssertAreEqual(t, "function", "TIME_SERIES_MONTHLY_ADJUSTED", q.Get("function"))
	ex.AssertAreEqual(t, "api key", "av-test-api-key", q.Get("apikey"))
	ex.AssertAreEqual(t, "symbol param", "AAPL", q.Get("symbol"))

	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("error parsing time zone: %s", err)
	}

	ex.AssertAreEqual(t, "information", "Monthly Adjusted Prices and Volumes", res.Metadata.Information.String)
	ex.AssertAreEqual(t, "symbol", "AAPL", res.Metadata.Symbol)
	ex.AssertAreEqual(t, "time zone", "US/Eastern", res.Metadata.TimeZone)
	ex.AssertAreEqual(t, "frequency", "M", res.Metadata.Frequency)
	ex.AssertAreEqual(t, "last refreshed", time.Date(2025, time.October, 31, 0, 0, 0, 0, location).Unix(), res.Metadata.LastRefreshed.Unix())

	targetDate := time.Date(2025, time.September, 30, 0, 0, 0, 0, location)
	s, err := ex.FilterSingle(res.TimeSeries, func(e *m.TimeSeriesData) bool { return targetDate.Equal(e.Timestamp) })
	if err != nil {
		t.Fatalf("error filtering single time series element: %v", err)
	}
	ex.AssertAreEqual(t, "adjusted close", 254.63, s.AdjustedClose.Float64)

	missing, err := ex.FilterSingle(res.TimeSeries, func(e *m.TimeSeriesData) bool { return e.Timestamp.Month() == time.August })
	if err != nil {
		t.Fatalf("error filtering august element: %v", err)
	}
	ex.AssertNillability(t, "blank adjusted close", true, missing.AdjustedClose.Ptr())
}

func Test_AlphaVantage_GetPriceSeriesIsSorted(t *testing.T) {
	avc, _ := getFakeClient(monthlyAdjustedFixture)

	ps, err := avc.GetPriceSeries(context.Background(), "AAPL", m.Monthly)
	if err != nil {
		t.Fatalf("error getting price series: %s", err)
	}

	ex.AssertAreEqual(t, "points", 3, len(ps.Points))
	ex.AssertAreEqual(t, "valid points", 2, ps.Valid())
	ex.AssertAreEqual(t, "first month", time.August, ps.Points[0].Timestamp.Month())
	ex.AssertAreEqual(t, "last close", 270.37, ps.Points[2].AdjustedClose.Float64)
}

func Test_AlphaVantage_ErrorMessageIsNoData(t *testing.T) {
	avc, _ := getFakeClient(`{"Error Message": "Invalid API call. Please retry or visit the documentation."}`)

	_, err := avc.GetPriceSeries(context.Background(), "NOPE", m.Daily)
	if err == nil {
		t.Fatalf("expected an error for an alpha vantage error message")
	}
	if !errors.Is(err, c.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %s", err)
	}
	if !strings.Contains(err.Error(), "Invalid API call") {
		t.Fatalf("expected provider message in error, got %s", err)
	}
}

func Test_AlphaVantage_TimeSeriesMapping(t *testing.T) {
	ex.AssertAreEqual(t, "daily", TimeSeriesDailyAdjusted, TimeSeriesFor(m.Daily))
	ex.AssertAreEqual(t, "monthly key", "Monthly Adjusted Time Series", TimeSeriesFor(m.Monthly).TimeSeriesKey())
	ex.AssertAreEqual(t, "adjusted", true, TimeSeriesDailyAdjusted.IsAdjusted())
	ex.AssertAreEqual(t, "round trip", m.Monthly, TimeSeriesMonthlyAdjusted.Frequency())
}

package alpha_vantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog"

	e "github.com/graygillman/CapmAnalysis/data/extensions"
	m "github.com/graygillman/CapmAnalysis/data/models"
	c "github.com/graygillman/CapmAnalysis/service/api"
)

// public
const (
	HostDefault = "www.alphavantage.co"
)

// private
const (
	// default query parameters
	defaultOutputSize = "full"
	defaultDataType   = "json"
	defaultTimeout    = time.Second * 30

	// api request elements
	query    = "query"
	symbol   = "symbol"
	function = "function"
)

var (
	timeSeriesDateFormats = []string{
		"2006-01-02",
		"2006-01-02 15:04:05",
	}

	// keys alpha vantage uses instead of a time series when the call was rejected
	apiErrorKeys = []string{"Error Message", "Note", "Information"}
)

type AlphaVantageClient struct {
	*c.Client
	log zerolog.Logger
}

func GetClient(apiKey string, timeout time.Duration, log zerolog.Logger) *AlphaVantageClient {
	return GetClientForHost(HostDefault, apiKey, timeout, log)
}

func GetClientForHost(host, apiKey string, timeout time.Duration, log zerolog.Logger) *AlphaVantageClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &AlphaVantageClient{
		Client: c.ClientFactory(host, apiKey, timeout),
		log:    log.With().Str("client", "alphavantage").Logger(),
	}
}

// GetPriceSeries returns the adjusted close history for ticker, oldest first
func (avc *AlphaVantageClient) GetPriceSeries(ctx context.Context, ticker string, freq m.Frequency) (*m.PriceSeries, error) {
	res, err := avc.GetTimeSeries(ctx, TimeSeriesFor(freq), ticker)
	if err != nil {
		return nil, err
	}

	ps := res.ToPriceSeries(freq)
	if ps.Symbol == "" {
		ps.Symbol = ticker
	}
	if ps.Valid() == 0 {
		return nil, fmt.Errorf("%w for %s", c.ErrNoData, ticker)
	}

	return ps, nil
}

// https://www.alphavantage.co/documentation/#dailyadj
// https://www.alphavantage.co/documentation/#monthlyadj
func (avc *AlphaVantageClient) GetTimeSeries(ctx context.Context, ts TimeSeries, ticker string) (*m.TimeSeriesResult, error) {
	if avc == nil {
		panic("alpha vantage client has not been set.")
	}

	endpoint := avc.buildRequestPath(map[string]string{
		function: ts.Function(),
		symbol:   ticker,
	})

	response, err := avc.Client.Connection.Request(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s for %s: %w", ts.Function(), ticker, err)
	}

	defer response.Body.Close()

	raw, err := parseRawJson(response.Body)
	if err != nil {
		return nil, err
	}

	if err := checkApiError(raw); err != nil {
		return nil, fmt.Errorf("alpha vantage rejected %s for %s: %w", ts.Function(), ticker, err)
	}

	metaData, timeZone, err := avc.parseMetaData(raw)
	if err != nil {
		return nil, err
	}
	metaData.Frequency = string(ts.Frequency())

	timeSeriesData, err := parseTimeSeriesDataResult(raw, ts.TimeSeriesKey(), timeZone)
	if err != nil {
		return nil, err
	}

	avc.log.Debug().
		Str("symbol", ticker).
		Str("function", ts.Function()).
		Int("points", len(timeSeriesData)).
		Msg("fetched time series")

	return &m.TimeSeriesResult{
		Metadata:   metaData,
		TimeSeries: timeSeriesData,
	}, nil
}

func (avc *AlphaVantageClient) buildRequestPath(params map[string]string) *url.URL {
	// build our URL
	endpoint := &url.URL{}
	endpoint.Path = query

	// base parameters
	query := endpoint.Query()
	query.Set("apikey", avc.Client.ApiKey)
	query.Set("datatype", defaultDataType)
	query.Set("outputsize", defaultOutputSize)

	// additional parameters
	for key, value := range params {
		query.Set(key, value)
	}

	endpoint.RawQuery = query.Encode()

	return endpoint
}

func parseRawJson(reader io.Reader) (raw map[string]json.RawMessage, err error) {
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	// converting to a <string, raw message> map
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	return
}

func checkApiError(raw map[string]json.RawMessage) error {
	if _, ok := raw["Meta Data"]; ok {
		return nil
	}

	for _, key := range apiErrorKeys {
		if msg, ok := raw[key]; ok {
			var s string
			if err := json.Unmarshal(msg, &s); err != nil {
				s = string(msg)
			}
			return fmt.Errorf("%w: %s", c.ErrNoData, s)
		}
	}

	return fmt.Errorf("%w: response had no meta data", c.ErrNoData)
}

func (avc *AlphaVantageClient) parseMetaData(raw map[string]json.RawMessage) (*m.TimeSeriesMetadata, *time.Location, error) {
	var metadataElements map[string]string
	if err := json.Unmarshal(raw["Meta Data"], &metadataElements); err != nil {
		return nil, nil, fmt.Errorf("error unmarshaling meta data: %w", err)
	}

	metaDataKeys := slices.Collect(maps.Keys(metadataElements))

	// parse symbol
	sf := func(s string) bool { return strings.HasSuffix(s, ". Symbol") }
	symbolKey, err := e.FilterSingle(metaDataKeys, sf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting symbol for meta data")
	}

	// parse time zone
	tzf := func(s string) bool { return strings.HasSuffix(s, ". Time Zone") }
	timeZoneKey, err := e.FilterSingle(metaDataKeys, tzf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting time zone for meta data")
	}

	timeZone, err := avc.getTimeZone(metadataElements[timeZoneKey])
	if err != nil {
		return nil, nil, fmt.Errorf("error converting time zone key %s, to time.Location: %w", metadataElements[timeZoneKey], err)
	}

	// parse last refreshed
	lrf := func(s string) bool { return strings.HasSuffix(s, ". Last Refreshed") }
	lastRefreshedKey, err := e.FilterSingle(metaDataKeys, lrf)
	if err != nil {
		return nil, nil, fmt.Errorf("error extracting last refreshed date")
	}

	lastRefreshed, err := parseDate(metadataElements[lastRefreshedKey], timeZone)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing last refreshed date")
	}

	res := m.TimeSeriesMetadata{
		Symbol:        metadataElements[symbolKey],
		LastRefreshed: lastRefreshed,
		TimeZone:      metadataElements[timeZoneKey],
	}

	if infoKey, err := e.FilterSingle(metaDataKeys, func(s string) bool { return strings.HasSuffix(s, ". Information") }); err == nil {
		res.Information = null.StringFrom(metadataElements[infoKey])
	}

	return &res, timeZone, nil
}

func parseTimeSeriesDataResult(raw map[string]json.RawMessage, key string, location *time.Location) ([]*m.TimeSeriesData, error) {
	var timeSeriesElements map[string]map[string]string
	if err := json.Unmarshal(raw[key], &timeSeriesElements); err != nil {
		return nil, fmt.Errorf("error unmarshaling time series %s: %w", key, err)
	}

	if len(timeSeriesElements) == 0 {
		return nil, fmt.Errorf("%w: time series %s was empty", c.ErrNoData, key)
	}

	var firstValue map[string]string
	for _, v := range timeSeriesElements {
		firstValue = v
		break
	}

	// parse adjusted close key in raw json lookup
	acf := func(s string) bool { return strings.HasSuffix(s, ". adjusted close") }
	adjustedCloseKey, err := e.FilterSingle(slices.Collect(maps.Keys(firstValue)), acf)
	if err != nil {
		return nil, fmt.Errorf("error extracting adjusted close key for time series")
	}

	timeSeries := make([]*m.TimeSeriesData, 0, len(timeSeriesElements))
	for timeSeriesKey, timeSeriesValue := range timeSeriesElements {
		timestamp, err := parseDate(timeSeriesKey, location)
		if err != nil {
			return nil, fmt.Errorf("error converting TIMESTAMP from string to time.Time: %w", err)
		}

		timeSeries = append(timeSeries, &m.TimeSeriesData{
			Timestamp:     timestamp,
			AdjustedClose: parseFloat(timeSeriesValue[adjustedCloseKey]),
		})
	}

	return timeSeries, nil
}

func (avc *AlphaVantageClient) getTimeZone(location string) (*time.Location, error) {
	var loc string
	switch strings.ToUpper(location) {
	case "US/EASTERN":
		loc = "America/New_York"
	case "UTC", "":
		return time.UTC, nil
	default:
		avc.log.Warn().Str("time_zone", location).Msg("time zone not recognized, defaulting to UTC")
		return time.UTC, nil
	}

	res, err := time.LoadLocation(loc)

	if err != nil {
		return nil, fmt.Errorf("error parsing time zone %s in time.LoadLocation", loc)
	}

	return res, nil
}

func parseDate(dateString string, location *time.Location) (time.Time, error) {
	for _, format := range timeSeriesDateFormats {
		t, err := time.ParseInLocation(format, dateString, location)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("error converting date %s to time.Time", dateString)
}

func parseFloat(val string) null.Float {
	if val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return null.FloatFrom(f)
		}
	}
	return null.Float{}
}

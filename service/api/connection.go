package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNoData is returned by the market data clients when a symbol resolves but has no usable prices
var ErrNoData = errors.New("no data returned")

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client *http.Client
	scheme string
	host   string
}

type Client struct {
	Connection Connection
	ApiKey     string
}

func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	endpoint.Scheme = conn.scheme
	endpoint.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building request for %s: %w", endpoint.Path, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := conn.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, conn.host)
	}

	return resp, nil
}

// ClientFactory builds a client against host, which is either a bare host name (https is assumed)
// or a full base url such as http://127.0.0.1:8080
func ClientFactory(host string, apiKey string, timeout time.Duration) *Client {
	client := &http.Client{
		Timeout: timeout,
	}

	scheme := "https"
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil {
			scheme, host = u.Scheme, u.Host
		}
	}

	clientHost := &ClientHost{
		client: client,
		scheme: scheme,
		host:   host,
	}

	return NewClient(clientHost, apiKey)
}

func NewClient(conn Connection, apiKey string) *Client {
	return &Client{
		Connection: conn,
		ApiKey:     apiKey,
	}
}

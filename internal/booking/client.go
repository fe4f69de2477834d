package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// DefaultHost is the RapidAPI host of the Booking.com API.
	DefaultHost = "booking-com15.p.rapidapi.com"

	// DefaultBaseURL is where requests go when no override is set.
	DefaultBaseURL = "https://" + DefaultHost

	pathSearchDestination = "/api/v1/hotels/searchDestination"
	pathSearchHotels      = "/api/v1/hotels/searchHotels"

	maxResponseBytes = 10 << 20
)

// ErrMissingAPIKey is returned by every call when no RapidAPI key is set.
var ErrMissingAPIKey = errors.New("RAPIDAPI_KEY is not configured")

// APIError is a non-2xx response from the Booking API.
type APIError struct {
	StatusCode int
	Status     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API call failed: %s", e.Status)
}

// MetricsRecorder receives one observation per upstream call.
type MetricsRecorder interface {
	RecordBookingAPICall(ctx context.Context, operation, status string, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	APIKey     string
	Host       string // defaults to DefaultHost
	BaseURL    string // defaults to DefaultBaseURL
	HTTPClient *http.Client
	Metrics    MetricsRecorder
}

// Client calls the Booking API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	host       string
	baseURL    string
	httpClient *http.Client
	metrics    MetricsRecorder

	// identical concurrent destination lookups share one upstream call
	destinations singleflight.Group
}

// NewClient builds a Client. A missing API key is not an error here; calls
// fail with ErrMissingAPIKey so the server can start without booking
// credentials.
func NewClient(cfg Config) *Client {
	c := &Client{
		apiKey:     cfg.APIKey,
		host:       cfg.Host,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		metrics:    cfg.Metrics,
	}
	if c.host == "" {
		c.host = DefaultHost
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// SearchDestination looks up destinations matching a free-text query.
func (c *Client) SearchDestination(ctx context.Context, query string) (*Destinations, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query is required")
	}

	v, err, _ := c.destinations.Do(query, func() (interface{}, error) {
		var out Destinations
		if err := c.get(ctx, "search_destination", pathSearchDestination, url.Values{"query": {query}}, &out); err != nil {
			return nil, err
		}
		if out.Data == nil {
			out.Data = []json.RawMessage{}
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Destinations), nil
}

// SearchHotels lists hotels for a destination and stay. Unset optional
// parameters take their defaults.
func (c *Client) SearchHotels(ctx context.Context, params HotelSearchParams) (*HotelSearchResult, error) {
	if params.DestID == "" || params.SearchType == "" {
		return nil, errors.New("dest_id and search_type are required")
	}
	if params.ArrivalDate == "" || params.DepartureDate == "" {
		return nil, errors.New("arrival_date and departure_date are required")
	}

	var out HotelSearchResult
	if err := c.get(ctx, "search_hotels", pathSearchHotels, params.WithDefaults().query(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) (err error) {
	if c.apiKey == "" {
		return ErrMissingAPIKey
	}

	start := time.Now()
	defer func() {
		if c.metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			c.metrics.RecordBookingAPICall(ctx, operation, status, time.Since(start))
		}
	}()

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("booking request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to decode booking response: %w", err)
	}
	return nil
}

// Package geocode resolves photo coordinates to place names through the
// Mapbox geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public Mapbox API endpoint.
const DefaultBaseURL = "https://api.mapbox.com"

// Feature is one entry of a Mapbox response, ordered from most to least
// specific.
type Feature struct {
	ID        string    `json:"id,omitempty"`
	Text      string    `json:"text"`
	PlaceName string    `json:"place_name,omitempty"`
	PlaceType []string  `json:"place_type,omitempty"`
	Center    []float64 `json:"center,omitempty"`
}

// Result is the decoded response plus SearchText, the feature texts joined
// by single spaces. The zero Result means "no place info".
type Result struct {
	Features   []Feature       `json:"features,omitempty"`
	SearchText string          `json:"search_text"`
	Raw        json.RawMessage `json:"-"`
}

// Empty reports whether the lookup produced nothing.
func (r Result) Empty() bool {
	return len(r.Raw) == 0
}

// Place picks a human readable locality: the first feature typed "place"
// (a city or town), falling back to the first feature.
func (r Result) Place() string {
	for _, f := range r.Features {
		if slices.Contains(f.PlaceType, "place") && f.Text != "" {
			return f.Text
		}
	}
	if len(r.Features) > 0 {
		return r.Features[0].Text
	}
	return ""
}

// Client calls the reverse geocoding endpoint. A Client without an API key
// never touches the network.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     logrus.FieldLogger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New constructs a Client. An empty baseURL selects DefaultBaseURL.
func New(apiKey, baseURL string, log logrus.FieldLogger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ReverseGeocode looks up the places around (lat, lon). Failures are logged
// and turned into an empty Result; callers treat that as "no place info".
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) Result {
	if !c.Configured() {
		return Result{}
	}
	res, err := c.lookup(ctx, lat, lon)
	if err != nil {
		c.log.WithFields(logrus.Fields{"lat": lat, "lon": lon}).Warnf("mapbox reverse geocode: %v", err)
		return Result{}
	}
	c.log.WithFields(logrus.Fields{
		"lat":      lat,
		"lon":      lon,
		"features": len(res.Features),
		"place":    res.Place(),
	}).Debug("mapbox reverse geocode")
	return res
}

func (c *Client) lookup(ctx context.Context, lat, lon float64) (Result, error) {
	// Mapbox takes longitude first.
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?access_token=%s",
		c.baseURL, lon, lat, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("mapbox returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read response: %w", err)
	}
	var res Result
	if err := json.Unmarshal(body, &res); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}
	terms := make([]string, 0, len(res.Features))
	for _, f := range res.Features {
		terms = append(terms, f.Text)
	}
	res.SearchText = strings.Join(terms, " ")
	res.Raw = body
	return res, nil
}

// Package googlemaps resolves driving routes with the Google Directions web
// service.
package googlemaps

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

	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/resolver"
)

const (
	DefaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"
	DefaultTimeout = 10 * time.Second

	metresPerMile = 1609.344
)

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client implements resolver.Resolver.
type Client struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config) (*Client, error) {
	return NewWithClient(cfg, nil)
}

func NewWithClient(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("googlemaps: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, client: httpClient}, nil
}

type directionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message"`
	Routes       []route `json:"routes"`
}

type route struct {
	Legs []leg `json:"legs"`
}

type leg struct {
	Distance struct {
		Text  string  `json:"text"`
		Value float64 `json:"value"`
	} `json:"distance"`
	Steps []step `json:"steps"`
}

type step struct {
	HTMLInstructions string `json:"html_instructions"`
}

// Resolve returns the one-way distance of the first route's first leg and
// whether any of its steps mention a toll.
func (c *Client) Resolve(ctx context.Context, req resolver.Request) (resolver.Route, error) {
	u, err := c.requestURL(req)
	if err != nil {
		return resolver.Route{}, fmt.Errorf("%w: %v", resolver.ErrResolutionFailed, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return resolver.Route{}, fmt.Errorf("%w: %v", resolver.ErrResolutionFailed, err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return resolver.Route{}, fmt.Errorf("%w: %v", resolver.ErrResolutionFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resolver.Route{}, fmt.Errorf("%w: directions status=%d", resolver.ErrResolutionFailed, resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return resolver.Route{}, fmt.Errorf("%w: decode directions: %v", resolver.ErrResolutionFailed, err)
	}
	return routeFrom(body)
}

func (c *Client) requestURL(req resolver.Request) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	prefs := req.Preferences
	if prefs.Mode == "" {
		prefs.Mode = resolver.TravelModeDriving
	}
	if prefs.Units == "" {
		prefs.Units = resolver.UnitSystemImperial
	}
	q := u.Query()
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	q.Set("mode", strings.ToLower(string(prefs.Mode)))
	q.Set("units", strings.ToLower(string(prefs.Units)))
	if prefs.AvoidTolls {
		q.Set("avoid", "tolls")
	}
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func routeFrom(body directionsResponse) (resolver.Route, error) {
	if body.Status != "OK" {
		if body.ErrorMessage != "" {
			return resolver.Route{}, fmt.Errorf("%w: %s: %s", resolver.ErrResolutionFailed, body.Status, body.ErrorMessage)
		}
		return resolver.Route{}, fmt.Errorf("%w: %s", resolver.ErrResolutionFailed, body.Status)
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return resolver.Route{}, fmt.Errorf("%w: no route", resolver.ErrResolutionFailed)
	}
	l := body.Routes[0].Legs[0]
	out := resolver.Route{OneWayMiles: l.Distance.Value / metresPerMile}
	for _, s := range l.Steps {
		if strings.Contains(strings.ToLower(s.HTMLInstructions), "toll") {
			out.HasTolls = true
			break
		}
	}
	return out, nil
}

package openelevation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/paulmach/orb"
)

// DefaultURL is the public Open-Elevation lookup endpoint.
const DefaultURL = "https://api.open-elevation.com/api/v1/lookup"

// MaxLocations is the largest batch the lookup endpoint accepts.
const MaxLocations = 100

// Client implements domain.ElevationProvider using the Open-Elevation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an Open-Elevation client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// LookupElevations returns one elevation per point, in order. Points the
// service has no value for are nil.
func (c *Client) LookupElevations(ctx context.Context, points []orb.Point) ([]*float64, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if len(points) > MaxLocations {
		return nil, fmt.Errorf("%w: %d locations exceeds the limit of %d", domain.ErrInvalidParameter, len(points), MaxLocations)
	}

	locations := make([]string, len(points))
	for i, p := range points {
		locations[i] = strconv.FormatFloat(p.Lat(), 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon(), 'f', -1, 64)
	}
	params := url.Values{"locations": {strings.Join(locations, "|")}}

	results, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if len(results) != len(points) {
		return nil, fmt.Errorf("%w: requested %d elevations, got %d", domain.ErrProviderUnavailable, len(points), len(results))
	}

	out := make([]*float64, len(results))
	for i, r := range results {
		out[i] = r.Elevation
	}
	c.logger.Debug("elevations fetched", "points", len(out))
	return out, nil
}

// Elevation looks up a single point.
func (c *Client) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	values, err := c.LookupElevations(ctx, []orb.Point{{lon, lat}})
	if err != nil {
		return 0, err
	}
	if values[0] == nil {
		return 0, fmt.Errorf("%w: no elevation at %.5f,%.5f", domain.ErrProviderUnavailable, lat, lon)
	}
	return *values[0], nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: elevation request: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: open-elevation API error: status %d: %s", domain.ErrProviderUnavailable, resp.StatusCode, body)
	}

	var elevationResp response
	if err := json.NewDecoder(resp.Body).Decode(&elevationResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrProviderUnavailable, err)
	}
	return elevationResp.Results, nil
}

// Open-Elevation API response types.

type response struct {
	Results []result `json:"results"`
}

type result struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Elevation *float64 `json:"elevation"`
}

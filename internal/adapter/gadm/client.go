package gadm

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultBaseURL hosts the GADM 4.1 GeoJSON archives.
const DefaultBaseURL = "https://geodata.ucdavis.edu/gadm/gadm4.1/json"

// maxArchiveBytes bounds a single download.
const maxArchiveBytes = 512 << 20

// Client implements domain.GeometryProvider by downloading GADM boundary
// archives.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a GADM client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// ArchiveURL returns the download location for one country and level.
func (c *Client) ArchiveURL(countryCode string, level domain.Level) string {
	return fmt.Sprintf("%s/gadm41_%s_%d.json.zip", c.baseURL, countryCode, level.Depth())
}

// FetchFeatures downloads and decodes the boundaries of one administrative
// level. Every failure wraps domain.ErrProviderUnavailable.
func (c *Client) FetchFeatures(ctx context.Context, countryCode string, level domain.Level) ([]domain.PolygonFeature, error) {
	if level.Depth() == 0 {
		return nil, fmt.Errorf("%w: unknown level %q", domain.ErrInvalidParameter, level)
	}

	u := c.ArchiveURL(countryCode, level)
	c.logger.Info("downloading boundaries", "url", u)

	archive, err := c.download(ctx, u)
	if err != nil {
		return nil, err
	}

	data, err := firstEntry(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrProviderUnavailable, u, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", domain.ErrProviderUnavailable, u, err)
	}

	features := toFeatures(fc, level.Depth())
	c.logger.Info("boundaries decoded", "level", level, "features", len(features), "skipped", len(fc.Features)-len(features))
	return features, nil
}

func (c *Client) download(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: boundary download: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GADM download error: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArchiveBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read archive: %w", domain.ErrProviderUnavailable, err)
	}
	return body, nil
}

func firstEntry(archive []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("empty archive")
	}

	rc, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", zr.File[0].Name, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// toFeatures maps GADM NAME_1..NAME_depth properties onto polygon features.
// Features without a name or an areal geometry are dropped.
func toFeatures(fc *geojson.FeatureCollection, depth int) []domain.PolygonFeature {
	out := make([]domain.PolygonFeature, 0, len(fc.Features))
	for _, f := range fc.Features {
		name := f.Properties.MustString(fmt.Sprintf("NAME_%d", depth), "")
		if name == "" || !isAreal(f.Geometry) {
			continue
		}

		parents := make([]string, 0, depth-1)
		for i := 1; i < depth; i++ {
			parents = append(parents, f.Properties.MustString(fmt.Sprintf("NAME_%d", i), ""))
		}

		out = append(out, domain.PolygonFeature{
			Name:        name,
			ParentNames: parents,
			Geometry:    domain.NewGeometry(f.Geometry),
		})
	}
	return out
}

func isAreal(g orb.Geometry) bool {
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
		return true
	default:
		return false
	}
}

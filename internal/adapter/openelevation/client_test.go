package openelevation

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func ptr(v float64) *float64 { return &v }

func TestClient_LookupElevations_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-8.8383,13.2344|-9,13.5", r.URL.Query().Get("locations"))

		resp := response{Results: []result{
			{Latitude: -8.8383, Longitude: 13.2344, Elevation: ptr(74)},
			{Latitude: -9, Longitude: 13.5, Elevation: nil},
		}}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	values, err := c.LookupElevations(context.Background(), []orb.Point{{13.2344, -8.8383}, {13.5, -9}})
	require.NoError(t, err)

	require.Len(t, values, 2)
	require.NotNil(t, values[0])
	assert.Equal(t, 74.0, *values[0])
	assert.Nil(t, values[1])
}

func TestClient_LookupElevations_EmptyBatchSkipsRequest(t *testing.T) {
	c := testClient("http://127.0.0.1:1")

	values, err := c.LookupElevations(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestClient_LookupElevations_RejectsOversizedBatch(t *testing.T) {
	c := testClient("http://127.0.0.1:1")

	_, err := c.LookupElevations(context.Background(), make([]orb.Point, MaxLocations+1))

	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestClient_LookupElevations_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"results":[{"elevation":10}]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).LookupElevations(context.Background(), []orb.Point{{13, -9}, {14, -9}})

	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_LookupElevations_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
		_, _ = w.Write([]byte(`upstream timed out`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).LookupElevations(context.Background(), []orb.Point{{13, -9}})

	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "504")
}

func TestClient_LookupElevations_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).LookupElevations(context.Background(), []orb.Point{{13, -9}})

	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_LookupElevations_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := &Client{
		httpClient: &http.Client{Timeout: 50 * time.Millisecond},
		baseURL:    srv.URL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := c.LookupElevations(context.Background(), []orb.Point{{13, -9}})
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_Elevation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Query().Get("locations"), "0,") {
			_, _ = w.Write([]byte(`{"results":[{"elevation":null}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"elevation":1712.5}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)

	z, err := c.Elevation(context.Background(), -12.776, 15.739)
	require.NoError(t, err)
	assert.Equal(t, 1712.5, z)

	_, err = c.Elevation(context.Background(), 0, 0)
	require.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestNewClient_DefaultURL(t *testing.T) {
	c := NewClient("", time.Second, slog.Default())

	assert.Equal(t, DefaultURL, c.baseURL)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
}

package solar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// HTTPGeocoder queries a Nominatim-compatible search endpoint.
type HTTPGeocoder struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewHTTPGeocoder(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPGeocoder {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/search"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPGeocoder{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Geocode implements Geocoder.
func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (Coordinate, error) {
	if address == "" {
		return Coordinate{}, ErrNotFound
	}

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", "solarbill/1.0")

	start := time.Now()
	resp, err := g.http.Do(req)
	if err != nil {
		g.logger.Warn("geocode.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return Coordinate{}, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Warn("geocode.body_close_error", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return Coordinate{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(hits) == 0 {
		return Coordinate{}, ErrNotFound
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return Coordinate{}, ErrNotFound
	}

	g.logger.Info("geocode.ok", "lat", lat, "lon", lon, "elapsed_ms", time.Since(start).Milliseconds())
	return Coordinate{Lat: lat, Lon: lon}, nil
}

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

// PVWattsModeler queries a PVWatts-compatible endpoint for annual production.
type PVWattsModeler struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

func NewPVWattsModeler(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *PVWattsModeler {
	if baseURL == "" {
		baseURL = "https://developer.nrel.gov/api/pvwatts/v8.json"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PVWattsModeler{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ModelProduction implements ProductionModeler. Any transport or decode
// failure collapses to ErrUnavailable; the caller owns the fallback.
func (m *PVWattsModeler) ModelProduction(ctx context.Context, coord Coordinate, systemKW float64) (float64, error) {
	if m.apiKey == "" {
		return 0, ErrUnavailable
	}

	q := url.Values{}
	q.Set("api_key", m.apiKey)
	q.Set("lat", strconv.FormatFloat(coord.Lat, 'f', 4, 64))
	q.Set("lon", strconv.FormatFloat(coord.Lon, 'f', 4, 64))
	q.Set("system_capacity", strconv.FormatFloat(systemKW, 'f', 2, 64))
	q.Set("module_type", "0")
	q.Set("array_type", "1")
	q.Set("tilt", "20")
	q.Set("azimuth", "180")
	q.Set("losses", "14")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("build pvwatts request: %w", err)
	}

	start := time.Now()
	resp, err := m.http.Do(req)
	if err != nil {
		m.logger.Warn("pvmodel.send_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return 0, ErrUnavailable
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			m.logger.Warn("pvmodel.body_close_error", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		m.logger.Warn("pvmodel.bad_status", "status", resp.StatusCode)
		return 0, ErrUnavailable
	}

	raw, _ := io.ReadAll(resp.Body)
	var out struct {
		Outputs struct {
			ACAnnual float64 `json:"ac_annual"`
		} `json:"outputs"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.Outputs.ACAnnual <= 0 {
		m.logger.Warn("pvmodel.decode_error", "error", err, "raw_bytes", len(raw))
		return 0, ErrUnavailable
	}

	m.logger.Info("pvmodel.ok",
		"annual_kwh", out.Outputs.ACAnnual,
		"system_kw", systemKW,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out.Outputs.ACAnnual, nil
}

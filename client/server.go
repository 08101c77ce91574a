package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg/promparse"
)

// Health calls GET /health. It needs no session.
func (a *API) Health(ctx context.Context) (*models.Health, error) {
	var out models.Health
	if err := a.Get(ctx, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MetricsURL is the Prometheus page, served next to the API rather than
// under it.
func (a *API) MetricsURL() string {
	return strings.TrimSuffix(a.baseURL, "/api") + "/metrics"
}

// ServerMetrics scrapes and parses the server's Prometheus page.
func (a *API) ServerMetrics(ctx context.Context) (*promparse.Metrics, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.MetricsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	m, err := promparse.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse metrics: %w", err)
	}
	return m, nil
}

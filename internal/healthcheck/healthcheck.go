package healthcheck

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/angeloszaimis/circuit-gate/internal/backend"
)

const probeTimeout = 5 * time.Second

// HealthCheck probes path on the backend every interval until ctx is done.
func HealthCheck(
	ctx context.Context,
	backend *backend.Backend,
	path string,
	interval time.Duration,
	logger *slog.Logger,
) {
	client := &http.Client{
		Timeout: probeTimeout,
	}
	healthURL := backend.URL().ResolveReference(&url.URL{Path: path}).String()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Health check stopped",
				slog.String("server", backend.URL().String()))
			return

		case <-ticker.C:
			healthy := probe(ctx, client, healthURL)
			if !backend.SetHealthy(healthy) {
				continue
			}
			if healthy {
				logger.Info("Upstream is back up",
					slog.String("server", backend.URL().String()))
			} else {
				logger.Warn("Upstream is down",
					slog.String("server", backend.URL().String()))
			}
		}
	}
}

func probe(ctx context.Context, client *http.Client, healthURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}

	res, err := client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()

	return res.StatusCode == http.StatusOK
}

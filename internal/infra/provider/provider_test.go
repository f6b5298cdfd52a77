package provider

import (
	"io"
	"log/slog"
	"testing"

	"github.com/WilliamHoest/trackanything-admin/internal/infra/httpclient"
	"github.com/WilliamHoest/trackanything-admin/internal/scrapegov"
)

func testClient(t *testing.T) *httpclient.Client {
	t.Helper()
	cfg := httpclient.DefaultConfig()
	// httptest servers listen on loopback.
	cfg.DenyPrivateIPs = false
	return httpclient.New(cfg)
}

func testGovernor() *scrapegov.Governor {
	cfg := scrapegov.DefaultConfig()
	cfg.HTMLRate = 1000
	cfg.APIRate = 1000
	cfg.RSSRate = 1000
	return scrapegov.New(cfg)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

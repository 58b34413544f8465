package collector

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PivotScreener/internal/model"
)

// Fetcher retrieves a recent daily price/volume history for one instrument.
// Bars are returned oldest first; short histories are returned as-is and the
// caller checks the length.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}

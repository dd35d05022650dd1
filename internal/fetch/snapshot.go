package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/batch"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/config"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/ratelimit"
)

// SnapshotSource retrieves the current listing statistics for the whole
// catalog in a single bulk call, cached per currency.
type SnapshotSource struct {
	baseURL    string
	appID      int
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *ttlCache[map[string]model.MarketSnapshot]
}

// NewSnapshotSource creates a snapshot source sharing the process-wide limiter.
func NewSnapshotSource(cfg config.Config, limiter *ratelimit.Limiter) *SnapshotSource {
	return &SnapshotSource{
		baseURL:    cfg.SkinportURL,
		appID:      cfg.AppID,
		httpClient: newSnapshotClient(cfg.RequestTimeout),
		limiter:    limiter,
		cache:      newTTLCache[map[string]model.MarketSnapshot](cfg.CacheTTL),
	}
}

// Fetch returns the snapshot map keyed by normalized catalog name. A
// non-success upstream response degrades to an empty map; only a transport
// failure of the bulk call itself is returned as an error.
func (s *SnapshotSource) Fetch(ctx context.Context, currency string) (map[string]model.MarketSnapshot, error) {
	if cached, ok := s.cache.get(currency); ok {
		logrus.WithField("currency", currency).Debug("Snapshot served from cache")
		return cached, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("acquiring rate limit slot: %w", err)
	}

	q := url.Values{}
	q.Set("app_id", strconv.Itoa(s.appID))
	q.Set("currency", currency)
	endpoint := s.baseURL + "/v1/items?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching market snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   string(body),
		}).Warn("Snapshot request failed, serving empty map")
		return map[string]model.MarketSnapshot{}, nil
	}

	var items []struct {
		MarketHashName string   `json:"market_hash_name"`
		MinPrice       *float64 `json:"min_price"`
		MaxPrice       *float64 `json:"max_price"`
		MeanPrice      *float64 `json:"mean_price"`
		MedianPrice    *float64 `json:"median_price"`
		Quantity       int      `json:"quantity"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		logrus.Warnf("Decoding snapshot response: %v", err)
		return map[string]model.MarketSnapshot{}, nil
	}

	snapshots := make(map[string]model.MarketSnapshot, len(items))
	for _, it := range items {
		name := batch.Normalize(it.MarketHashName)
		if name == "" {
			continue
		}
		snapshots[name] = model.MarketSnapshot{
			MinPrice:    deref(it.MinPrice),
			MaxPrice:    deref(it.MaxPrice),
			MeanPrice:   deref(it.MeanPrice),
			MedianPrice: deref(it.MedianPrice),
			Quantity:    it.Quantity,
		}
	}

	s.cache.put(currency, snapshots)
	logrus.WithFields(logrus.Fields{
		"currency": currency,
		"items":    len(snapshots),
	}).Info("Market snapshot refreshed")
	return snapshots, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/batch"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/config"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/ratelimit"
)

// maxSalesNameLen guards the sales query against oversized names.
const maxSalesNameLen = 200

// SalesSource retrieves per-item sales statistics in batches, cached per
// batch+currency. Failures degrade the whole batch to an empty map; they are
// never fatal to the caller.
type SalesSource struct {
	baseURL    string
	appID      int
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *ttlCache[map[string]model.SalesHistory]
}

// NewSalesSource creates a sales source sharing the process-wide limiter.
func NewSalesSource(cfg config.Config, limiter *ratelimit.Limiter) *SalesSource {
	return &SalesSource{
		baseURL:    cfg.SkinportURL,
		appID:      cfg.AppID,
		httpClient: newSalesClient(cfg.RequestTimeout, cfg.SalesRetryBackoff),
		limiter:    limiter,
		cache:      newTTLCache[map[string]model.SalesHistory](cfg.CacheTTL),
	}
}

// Fetch returns sales histories keyed by normalized catalog name for one
// batch. Invalid names are dropped up front; an empty valid set short-circuits
// to an empty map without an upstream call.
func (s *SalesSource) Fetch(ctx context.Context, names []string, currency string) map[string]model.SalesHistory {
	valid := make([]string, 0, len(names))
	for _, raw := range names {
		name := batch.Normalize(raw)
		if name == "" || len(name) >= maxSalesNameLen {
			continue
		}
		valid = append(valid, name)
	}
	if len(valid) == 0 {
		return map[string]model.SalesHistory{}
	}

	key := cacheKey(valid, currency)
	if cached, ok := s.cache.get(key); ok {
		logrus.WithField("batch_size", len(valid)).Debug("Sales history served from cache")
		return cached
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		logrus.Warnf("Rate limit wait aborted: %v", err)
		return map[string]model.SalesHistory{}
	}

	q := url.Values{}
	q.Set("market_hash_name", strings.Join(valid, ","))
	q.Set("app_id", strconv.Itoa(s.appID))
	q.Set("currency", currency)
	endpoint := s.baseURL + "/v1/sales/history?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		logrus.Warnf("Building sales request: %v", err)
		return map[string]model.SalesHistory{}
	}
	req.Header.Set("Accept", "application/json")

	// The client retries gateway-class failures once after a fixed backoff;
	// anything else falls through to the degraded empty result here.
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logrus.Warnf("Fetching sales history: %v", err)
		return map[string]model.SalesHistory{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logrus.WithFields(logrus.Fields{
			"status":     resp.StatusCode,
			"batch_size": len(valid),
			"body":       string(body),
		}).Warn("Sales history request failed, skipping batch")
		return map[string]model.SalesHistory{}
	}

	var rows []struct {
		MarketHashName string     `json:"market_hash_name"`
		Last24Hours    *apiWindow `json:"last_24_hours"`
		Last7Days      *apiWindow `json:"last_7_days"`
		Last30Days     *apiWindow `json:"last_30_days"`
		Last90Days     *apiWindow `json:"last_90_days"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		logrus.Warnf("Decoding sales response: %v", err)
		return map[string]model.SalesHistory{}
	}

	histories := make(map[string]model.SalesHistory, len(rows))
	for _, row := range rows {
		name := batch.Normalize(row.MarketHashName)
		if name == "" {
			continue
		}
		history := model.SalesHistory{}
		addWindow(history, model.Period24h, row.Last24Hours)
		addWindow(history, model.Period7d, row.Last7Days)
		addWindow(history, model.Period30d, row.Last30Days)
		addWindow(history, model.Period90d, row.Last90Days)
		if len(history) > 0 {
			histories[name] = history
		}
	}

	s.cache.put(key, histories)
	logrus.WithFields(logrus.Fields{
		"batch_size": len(valid),
		"histories":  len(histories),
	}).Debug("Sales history batch fetched")
	return histories
}

// apiWindow matches the upstream per-period statistics object.
type apiWindow struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Volume int     `json:"volume"`
}

func addWindow(h model.SalesHistory, period model.SalesPeriod, w *apiWindow) {
	if w == nil {
		return
	}
	h[period] = model.SalesWindow{
		Volume: w.Volume,
		Avg:    w.Avg,
		Median: w.Median,
		Min:    w.Min,
		Max:    w.Max,
	}
}

// cacheKey is the sorted, joined valid name set plus the currency, so the
// same batch requested in any order hits the same entry.
func cacheKey(valid []string, currency string) string {
	sorted := make([]string, len(valid))
	copy(sorted, valid)
	sort.Strings(sorted)
	return strings.Join(sorted, ",") + "|" + currency
}

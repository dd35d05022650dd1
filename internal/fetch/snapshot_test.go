package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/config"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/ratelimit"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		SkinportURL:       baseURL,
		AppID:             730,
		RequestTimeout:    5 * time.Second,
		CacheTTL:          time.Minute,
		SalesRetryBackoff: 10 * time.Millisecond,
	}
}

func openLimiter() *ratelimit.Limiter {
	return ratelimit.New(100, time.Minute)
}

func TestSnapshotSource_FetchDecodesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/items", r.URL.Path)
		assert.Equal(t, "730", r.URL.Query().Get("app_id"))
		assert.Equal(t, "EUR", r.URL.Query().Get("currency"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"market_hash_name": "AK-47 | Redline (Field-Tested)", "min_price": 11.0, "max_price": 13.0, "mean_price": 12.0, "median_price": 11.8, "quantity": 10},
			{"market_hash_name": "Sold Out Item", "min_price": null, "max_price": null, "mean_price": null, "median_price": null, "quantity": 0},
			{"market_hash_name": "   ", "min_price": 1.0, "quantity": 1}
		]`))
	}))
	defer srv.Close()

	source := NewSnapshotSource(testConfig(srv.URL), openLimiter())

	snapshots, err := source.Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	redline := snapshots["AK-47 | Redline (Field-Tested)"]
	assert.Equal(t, 11.0, redline.MinPrice)
	assert.Equal(t, 13.0, redline.MaxPrice)
	assert.Equal(t, 10, redline.Quantity)

	// Null prices decode as zero, not as a decoding failure.
	soldOut := snapshots["Sold Out Item"]
	assert.Zero(t, soldOut.MinPrice)

	// A second fetch within the TTL is served from cache.
	again, err := source.Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, snapshots, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSnapshotSource_CachePerCurrency(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`[{"market_hash_name": "Item", "min_price": 1.0, "quantity": 1}]`))
	}))
	defer srv.Close()

	source := NewSnapshotSource(testConfig(srv.URL), openLimiter())

	_, err := source.Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	_, err = source.Fetch(context.Background(), "USD")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSnapshotSource_NonSuccessDegradesToEmpty(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	source := NewSnapshotSource(testConfig(srv.URL), openLimiter())

	snapshots, err := source.Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Empty(t, snapshots)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSnapshotSource_TransportErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	source := NewSnapshotSource(testConfig(srv.URL), openLimiter())

	_, err := source.Fetch(context.Background(), "EUR")
	assert.Error(t, err)
}

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
)

const salesBody = `[
	{
		"market_hash_name": "AK-47 | Redline (Field-Tested)",
		"last_24_hours": {"min": 11.0, "max": 12.0, "avg": 11.5, "median": 11.4, "volume": 3},
		"last_7_days": {"min": 10.0, "max": 13.0, "avg": 11.5, "median": 11.3, "volume": 20},
		"last_30_days": null,
		"last_90_days": null
	},
	{
		"market_hash_name": "Dead Item",
		"last_24_hours": null,
		"last_7_days": null,
		"last_30_days": null,
		"last_90_days": null
	}
]`

func TestSalesSource_FetchDecodesWindows(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/sales/history", r.URL.Path)
		assert.Equal(t, "730", r.URL.Query().Get("app_id"))
		names := strings.Split(r.URL.Query().Get("market_hash_name"), ",")
		assert.Len(t, names, 2)
		w.Write([]byte(salesBody))
	}))
	defer srv.Close()

	source := NewSalesSource(testConfig(srv.URL), openLimiter())

	histories := source.Fetch(context.Background(), []string{
		"AK-47 | Redline (Field-Tested)",
		"Dead Item",
	}, "EUR")

	// Items with no sales in any window carry no history at all.
	require.Len(t, histories, 1)
	history := histories["AK-47 | Redline (Field-Tested)"]

	day, ok := history.Window(model.Period24h)
	require.True(t, ok)
	assert.Equal(t, 3, day.Volume)
	assert.Equal(t, 11.5, day.Avg)

	week, ok := history.Window(model.Period7d)
	require.True(t, ok)
	assert.Equal(t, 20, week.Volume)

	_, ok = history.Window(model.Period30d)
	assert.False(t, ok)
}

func TestSalesSource_CacheIgnoresNameOrder(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(salesBody))
	}))
	defer srv.Close()

	source := NewSalesSource(testConfig(srv.URL), openLimiter())

	source.Fetch(context.Background(), []string{"AK-47 | Redline (Field-Tested)", "Dead Item"}, "EUR")
	source.Fetch(context.Background(), []string{"Dead Item", "AK-47 | Redline (Field-Tested)"}, "EUR")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSalesSource_RetriesGatewayFailureOnce(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		w.Write([]byte(salesBody))
	}))
	defer srv.Close()

	source := NewSalesSource(testConfig(srv.URL), openLimiter())

	histories := source.Fetch(context.Background(), []string{"AK-47 | Redline (Field-Tested)"}, "EUR")

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Len(t, histories, 1)
}

func TestSalesSource_NoRetryOutsideGatewayClass(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
		{name: "rate limited", status: http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			source := NewSalesSource(testConfig(srv.URL), openLimiter())

			histories := source.Fetch(context.Background(), []string{"AK-47 | Redline (Field-Tested)"}, "EUR")

			assert.Empty(t, histories)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestSalesSource_InvalidNamesShortCircuit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	source := NewSalesSource(testConfig(srv.URL), openLimiter())

	histories := source.Fetch(context.Background(), []string{
		"",
		"   ",
		strings.Repeat("x", 250),
	}, "EUR")

	assert.Empty(t, histories)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no upstream call for an all-invalid batch")
}

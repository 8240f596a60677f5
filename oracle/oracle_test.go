package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestOracle(feedURL string) *Oracle {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(&types.EngineConfig{
		PriceFeedUrl:           feedURL,
		FallbackNativePriceUSD: decimal.RequireFromString("2500"),
	}, logger)
}

func TestNativePriceUSDFromFeed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "flat payload", body: `{"priceUsd":"3123.45"}`, want: "3123.45"},
		{name: "pair envelope", body: `{"pair":{"priceUsd":"1999.01"}}`, want: "1999.01"},
		{name: "pairs array envelope", body: `{"pairs":[{"priceUsd":"0.42"}]}`, want: "0.42"},
		{name: "numeric price", body: `{"priceUsd":3123.45}`, want: "3123.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			o := newTestOracle(srv.URL)
			if err := o.refreshPrice(context.Background()); err != nil {
				t.Fatalf("refreshPrice() error: %v", err)
			}
			price, err := o.NativePriceUSD(context.Background())
			if err != nil {
				t.Fatalf("NativePriceUSD() error: %v", err)
			}
			if !price.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("NativePriceUSD() = %s, want %s", price, tt.want)
			}
		})
	}
}

func TestNativePriceUSDNeverFetches(t *testing.T) {
	// Reads happen on the caller's thread, possibly under a caller-held
	// lock, so a cache miss must serve the fallback without touching the
	// feed. Fetching belongs to the refresh loop alone.
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	o := newTestOracle(srv.URL)
	for i := 0; i < 3; i++ {
		price, err := o.NativePriceUSD(context.Background())
		if err != nil {
			t.Fatalf("NativePriceUSD() error: %v", err)
		}
		if !price.Equal(decimal.RequireFromString("2500")) {
			t.Errorf("NativePriceUSD() = %s, want fallback 2500", price)
		}
	}

	if n := atomic.LoadInt32(&requests); n != 0 {
		t.Errorf("read path issued %d feed requests, want none", n)
	}
}

func TestNativePriceUSDErrsWithoutFallback(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	o := New(&types.EngineConfig{PriceFeedUrl: "http://127.0.0.1:0"}, logger)

	if _, err := o.NativePriceUSD(context.Background()); !errors.Is(err, swaperrors.ErrPriceUnavailable) {
		t.Errorf("NativePriceUSD() = %v, want ErrPriceUnavailable", err)
	}
}

func TestNativePriceUSDServesLastKnownValue(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"priceUsd":"3000"}`))
	}))
	defer srv.Close()

	o := newTestOracle(srv.URL)
	ctx := context.Background()

	if err := o.refreshPrice(ctx); err != nil {
		t.Fatalf("refreshPrice() error: %v", err)
	}
	price, _ := o.NativePriceUSD(ctx)
	if !price.Equal(decimal.RequireFromString("3000")) {
		t.Fatalf("first read = %s, want 3000", price)
	}

	// The feed goes down; the cached value keeps serving.
	healthy = false
	if err := o.refreshPrice(ctx); err == nil {
		t.Fatal("refreshPrice() should fail while the feed is down")
	}
	price, _ = o.NativePriceUSD(ctx)
	if !price.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("read after outage = %s, want cached 3000", price)
	}
}

func TestStartRejectsDoubleStart(t *testing.T) {
	o := newTestOracle("http://127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := o.Start(ctx); err == nil {
		t.Error("second Start() should fail")
	}
	o.Stop()
	o.Stop() // idempotent
}

func TestStartFetchesAndSurvivesRestart(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Write([]byte(`{"priceUsd":"3000"}`))
	}))
	defer srv.Close()

	o := newTestOracle(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool {
		price, err := o.NativePriceUSD(ctx)
		return err == nil && price.Equal(decimal.RequireFromString("3000"))
	})
	o.Stop()

	// A restarted loop must fetch again, not exit on the old stop channel.
	before := atomic.LoadInt32(&requests)
	if err := o.Start(ctx); err != nil {
		t.Fatalf("Start() after Stop error: %v", err)
	}
	defer o.Stop()
	waitFor(t, 2*time.Second, func() bool {
		return atomic.LoadInt32(&requests) > before
	})
}

func TestParsePriceUSDRejectsBadPayloads(t *testing.T) {
	for _, body := range []string{`{}`, `{"priceUsd":"zero"}`, `{"priceUsd":"-1"}`, `not json`} {
		if _, err := parsePriceUSD([]byte(body)); err == nil {
			t.Errorf("parsePriceUSD(%q) should fail", body)
		}
	}
}

func TestLookupToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"pair": {
				"baseToken": {"address": "0x5555555555555555555555555555555555555555", "symbol": "TKN", "name": "Test Token"},
				"priceUsd": "0.5"
			}
		}`))
	}))
	defer srv.Close()

	o := newTestOracle(srv.URL)
	desc, err := o.LookupToken(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("LookupToken() error: %v", err)
	}
	if desc.Symbol != "TKN" || desc.Name != "Test Token" {
		t.Errorf("descriptor = %+v", desc)
	}
	if desc.Decimals != 18 {
		t.Errorf("decimals = %d, want default 18", desc.Decimals)
	}
	if !desc.PriceUSD.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("price = %s, want 0.5", desc.PriceUSD)
	}
	if !desc.HasPrice() {
		t.Error("HasPrice() = false")
	}
}

func TestLookupTokenRequiresAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"TKN"}`))
	}))
	defer srv.Close()

	o := newTestOracle(srv.URL)
	if _, err := o.LookupToken(context.Background(), srv.URL); err == nil {
		t.Error("LookupToken() should fail without an address")
	}
}

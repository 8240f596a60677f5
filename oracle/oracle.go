package oracle

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
)

const (
	// refreshInterval is how often the native price is refetched.
	refreshInterval = 20 * time.Second
	// fetchTimeout bounds a single price feed request.
	fetchTimeout = 10 * time.Second
	// lastKnownTTL is how long a fetched price stays usable without a refresh.
	lastKnownTTL = 10 * time.Minute

	nativePriceKey = "nativePriceUsd"
)

// Oracle supplies the native-asset USD reference price from an HTTP feed.
// All fetching happens on the background refresh loop; reads only consult
// the TTL cache of the last known value, with the configured fallback
// constant covering a feed that has never answered. Feed failures never
// propagate to callers and price staleness is silently tolerated.
type Oracle struct {
	config     *types.EngineConfig
	logger     *logrus.Logger
	httpClient *http.Client
	cache      *gocache.Cache

	stopChan     chan struct{}
	isRefreshing bool
	refreshMutex sync.Mutex
}

// New creates an oracle for the configured price feed.
//
// Parameters:
// - config: the engine configuration carrying the feed URL and fallback price.
// - logger: the logger for logging events.
//
// Returns:
// - *Oracle: the oracle instance. Call Start to begin periodic refreshes.
func New(config *types.EngineConfig, logger *logrus.Logger) *Oracle {
	return &Oracle{
		config:     config,
		logger:     logger,
		httpClient: &http.Client{Timeout: fetchTimeout},
		cache:      gocache.New(lastKnownTTL, 30*time.Minute),
		stopChan:   make(chan struct{}),
	}
}

// Start begins the periodic refresh loop.
//
// Parameters:
// - ctx: the context bounding the refresh loop lifetime.
//
// Returns:
// - error: an error if the oracle is already running.
func (o *Oracle) Start(ctx context.Context) error {
	o.refreshMutex.Lock()
	if o.isRefreshing {
		o.refreshMutex.Unlock()
		return errors.New("oracle refresh loop is already running")
	}
	o.stopChan = make(chan struct{})
	o.isRefreshing = true
	stopped := o.stopChan
	o.refreshMutex.Unlock()

	go o.refreshLoop(ctx, stopped)
	return nil
}

// Stop stops the refresh loop. Safe to call more than once.
func (o *Oracle) Stop() {
	o.refreshMutex.Lock()
	defer o.refreshMutex.Unlock()

	if !o.isRefreshing {
		return
	}

	close(o.stopChan)
	o.isRefreshing = false
}

// NativePriceUSD returns the current native-asset USD price. The read never
// performs network I/O: it serves the refresh loop's last known value from
// the cache, then the configured fallback constant. ErrPriceUnavailable is
// returned only when neither is available.
func (o *Oracle) NativePriceUSD(ctx context.Context) (decimal.Decimal, error) {
	if cached, found := o.cache.Get(nativePriceKey); found {
		return cached.(decimal.Decimal), nil
	}

	if o.config.FallbackNativePriceUSD.IsPositive() {
		return o.config.FallbackNativePriceUSD, nil
	}
	return decimal.Zero, swaperrors.ErrPriceUnavailable
}

// refreshLoop fetches the native price immediately and then on a fixed
// interval until stopped.
func (o *Oracle) refreshLoop(ctx context.Context, stopped chan struct{}) {
	if err := o.refreshPrice(ctx); err != nil {
		o.logger.WithField("feed", o.config.PriceFeedUrl).WithError(err).Warn("Initial native price fetch failed")
	}

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Price refresh loop stopped due to context cancellation")
			return

		case <-stopped:
			o.logger.Info("Price refresh loop stopped")
			return

		case <-ticker.C:
			if err := o.refreshPrice(ctx); err != nil {
				o.logger.WithField("feed", o.config.PriceFeedUrl).WithError(err).Warn("Failed to refresh native price")
			}
		}
	}
}

// refreshPrice fetches the feed once and updates the cached value.
func (o *Oracle) refreshPrice(ctx context.Context) error {
	price, err := o.fetchNativePrice(ctx)
	if err != nil {
		return err
	}
	o.cache.Set(nativePriceKey, price, gocache.DefaultExpiration)
	return nil
}

// fetchNativePrice fetches and parses the feed once, with a short retry.
func (o *Oracle) fetchNativePrice(ctx context.Context) (decimal.Decimal, error) {
	operation := func() (decimal.Decimal, error) {
		return o.fetchPrice(ctx, o.config.PriceFeedUrl)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second

	price, err := backoff.Retry(ctx, operation, backoff.WithMaxTries(3), backoff.WithBackOff(b))
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// fetchPrice performs one HTTP request against a price endpoint and extracts
// the USD price field.
func (o *Oracle) fetchPrice(ctx context.Context, url string) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to build price feed request")
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "price feed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, errors.Errorf("price feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read price feed response")
	}

	return parsePriceUSD(body)
}

// parsePriceUSD extracts the USD price from a feed payload. Feeds differ in
// envelope shape, so the common locations are probed in order.
func parsePriceUSD(body []byte) (decimal.Decimal, error) {
	for _, path := range []string{"priceUsd", "pair.priceUsd", "pairs.0.priceUsd"} {
		field := gjson.GetBytes(body, path)
		if !field.Exists() {
			continue
		}

		price, err := decimal.NewFromString(field.String())
		if err != nil {
			return decimal.Zero, errors.Wrapf(err, "malformed price %q", field.String())
		}
		if !price.IsPositive() {
			return decimal.Zero, errors.Errorf("non-positive price %q", field.String())
		}
		return price, nil
	}

	return decimal.Zero, errors.New("no priceUsd field in feed response")
}

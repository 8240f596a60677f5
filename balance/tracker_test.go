package balance

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

var (
	owner = common.HexToAddress("0x4444444444444444444444444444444444444444")
	token = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

type fakeReader struct {
	mu         sync.Mutex
	native     *big.Int
	token      *big.Int
	nativeErr  error
	tokenReads int
	heads      chan uint64
	subErr     error
}

func (f *fakeReader) GasPrice(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not used")
}

func (f *fakeReader) SimulateCall(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (uint64, error) {
	return 0, errors.New("not used")
}

func (f *fakeReader) ReadContract(ctx context.Context, addr common.Address, data []byte) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeReader) NativeBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nativeErr != nil {
		return nil, f.nativeErr
	}
	return new(big.Int).Set(f.native), nil
}

func (f *fakeReader) TokenBalance(ctx context.Context, ownerAddr, tokenAddr common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenReads++
	return new(big.Int).Set(f.token), nil
}

func (f *fakeReader) SubscribeNewHeads(ctx context.Context) (<-chan uint64, func(), error) {
	if f.subErr != nil {
		return nil, nil, f.subErr
	}
	return f.heads, func() {}, nil
}

func (f *fakeReader) set(native, token int64) {
	f.mu.Lock()
	f.native = big.NewInt(native)
	f.token = big.NewInt(token)
	f.mu.Unlock()
}

func (f *fakeReader) tokenReadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenReads
}

func newTestTracker(reader *fakeReader) *Tracker {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(&types.EngineConfig{ChainID: 8453, NativeDecimals: 18}, reader, logger)
}

func TestRefreshReadsBothBalances(t *testing.T) {
	reader := &fakeReader{}
	reader.set(1000, 2000)

	tr := newTestTracker(reader)
	tr.SetOwner(context.Background(), &owner)
	tr.SetToken(context.Background(), &token)

	if got := tr.NativeBalance(); got == nil || got.Int64() != 1000 {
		t.Errorf("NativeBalance() = %v, want 1000", got)
	}
	if got := tr.TokenBalance(); got == nil || got.Int64() != 2000 {
		t.Errorf("TokenBalance() = %v, want 2000", got)
	}
}

func TestTokenReadSkippedWithoutValidToken(t *testing.T) {
	reader := &fakeReader{}
	reader.set(1000, 2000)

	tr := newTestTracker(reader)
	tr.SetOwner(context.Background(), &owner)

	// No token set.
	tr.Refresh(context.Background())
	if reader.tokenReadCount() != 0 {
		t.Error("token balance read without a token set")
	}

	// Zero address is not a valid token.
	zero := common.Address{}
	tr.SetToken(context.Background(), &zero)
	if reader.tokenReadCount() != 0 {
		t.Error("token balance read for the zero address")
	}
	if tr.TokenBalance() != nil {
		t.Error("token balance should be unknown for the zero address")
	}
}

func TestSetTokenClearsStaleBalance(t *testing.T) {
	reader := &fakeReader{}
	reader.set(1000, 2000)

	tr := newTestTracker(reader)
	tr.SetOwner(context.Background(), &owner)
	tr.SetToken(context.Background(), &token)

	if tr.TokenBalance() == nil {
		t.Fatal("token balance not read")
	}

	// Switching tokens must never show the previous token's balance.
	reader.mu.Lock()
	reader.nativeErr = nil
	reader.mu.Unlock()
	other := common.HexToAddress("0x9999999999999999999999999999999999999999")
	reader.set(1000, 7777)
	tr.SetToken(context.Background(), &other)

	if got := tr.TokenBalance(); got == nil || got.Int64() != 7777 {
		t.Errorf("TokenBalance() = %v, want 7777 for the new token", got)
	}
}

func TestReadFailureKeepsLastValue(t *testing.T) {
	reader := &fakeReader{}
	reader.set(1000, 2000)

	tr := newTestTracker(reader)
	tr.SetOwner(context.Background(), &owner)

	reader.mu.Lock()
	reader.nativeErr = errors.New("rpc down")
	reader.mu.Unlock()

	tr.Refresh(context.Background())
	if got := tr.NativeBalance(); got == nil || got.Int64() != 1000 {
		t.Errorf("NativeBalance() = %v, want last known 1000", got)
	}
}

func TestNewHeadTriggersRefresh(t *testing.T) {
	reader := &fakeReader{heads: make(chan uint64, 1)}
	reader.set(1000, 2000)

	tr := newTestTracker(reader)
	defer tr.Stop()

	changed := make(chan struct{}, 4)
	tr.OnChange(func() { changed <- struct{}{} })

	ctx := context.Background()
	tr.SetOwner(ctx, &owner)
	<-changed

	if err := tr.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	reader.set(5000, 2000)
	reader.heads <- 101

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("no refresh after new head")
	}

	if got := tr.NativeBalance(); got == nil || got.Int64() != 5000 {
		t.Errorf("NativeBalance() = %v, want 5000 after head refresh", got)
	}
}

func TestStartFailsWhenSubscriptionFails(t *testing.T) {
	reader := &fakeReader{subErr: errors.New("no ws endpoint")}
	tr := newTestTracker(reader)

	if err := tr.Start(context.Background()); err == nil {
		t.Error("Start() should fail when the head subscription fails")
	}
}

func TestDoubleStartRejected(t *testing.T) {
	reader := &fakeReader{heads: make(chan uint64)}
	tr := newTestTracker(reader)
	defer tr.Stop()

	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := tr.Start(context.Background()); err == nil {
		t.Error("second Start() should fail")
	}
}

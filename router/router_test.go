package router

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

var (
	testRouterAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testWrappedAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenAddr   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testUserAddr    = common.HexToAddress("0x4444444444444444444444444444444444444444")
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	r, err := New(&types.EngineConfig{
		RouterAddress:        testRouterAddr,
		WrappedNativeAddress: testWrappedAddr,
		DeadlineWindow:       600 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return r
}

func TestPathIsAlwaysTwoHops(t *testing.T) {
	r := newTestRouter(t)

	buy := r.Path(types.NativeToToken, testTokenAddr)
	if len(buy) != 2 || buy[0] != testWrappedAddr || buy[1] != testTokenAddr {
		t.Errorf("native-to-token path = %v, want [wrapped, token]", buy)
	}

	sell := r.Path(types.TokenToNative, testTokenAddr)
	if len(sell) != 2 || sell[0] != testTokenAddr || sell[1] != testWrappedAddr {
		t.Errorf("token-to-native path = %v, want [token, wrapped]", sell)
	}
}

func TestDeadlineWindow(t *testing.T) {
	r := newTestRouter(t)

	now := time.Now()
	deadline := r.Deadline(now)

	if deadline.Int64() <= now.Unix() {
		t.Errorf("deadline %d not strictly after now %d", deadline.Int64(), now.Unix())
	}
	if deadline.Int64() != now.Add(600*time.Second).Unix() {
		t.Errorf("deadline %d, want now+600s = %d", deadline.Int64(), now.Add(600*time.Second).Unix())
	}
}

func TestApproveCalldataRoundTrip(t *testing.T) {
	r := newTestRouter(t)

	amount := big.NewInt(123456789)
	data, err := r.ApproveCalldata(amount)
	if err != nil {
		t.Fatalf("ApproveCalldata() error: %v", err)
	}

	method, err := r.erc20Abi.MethodById(data[:4])
	if err != nil || method.Name != "approve" {
		t.Fatalf("calldata selector resolves to %v, err %v", method, err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("failed to unpack approve args: %v", err)
	}
	if got := args[0].(common.Address); got != testRouterAddr {
		t.Errorf("approve spender = %s, want router %s", got.Hex(), testRouterAddr.Hex())
	}
	if got := args[1].(*big.Int); got.Cmp(amount) != 0 {
		t.Errorf("approve amount = %s, want %s", got, amount)
	}
}

func TestSwapCalldataCarriesFreshDeadline(t *testing.T) {
	r := newTestRouter(t)

	deadline := r.Deadline(time.Now())
	minOut := big.NewInt(995000)

	data, err := r.SwapNativeForTokensCalldata(minOut, testTokenAddr, testUserAddr, deadline)
	if err != nil {
		t.Fatalf("SwapNativeForTokensCalldata() error: %v", err)
	}

	method, err := r.routerAbi.MethodById(data[:4])
	if err != nil || method.Name != "swapExactNativeForTokens" {
		t.Fatalf("calldata selector resolves to %v, err %v", method, err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("failed to unpack swap args: %v", err)
	}
	if got := args[0].(*big.Int); got.Cmp(minOut) != 0 {
		t.Errorf("amountOutMin = %s, want %s", got, minOut)
	}
	path := args[1].([]common.Address)
	if len(path) != 2 || path[0] != testWrappedAddr || path[1] != testTokenAddr {
		t.Errorf("path = %v, want [wrapped, token]", path)
	}
	if got := args[2].(common.Address); got != testUserAddr {
		t.Errorf("recipient = %s, want %s", got.Hex(), testUserAddr.Hex())
	}
	if got := args[3].(*big.Int); got.Cmp(deadline) != 0 {
		t.Errorf("deadline = %s, want %s", got, deadline)
	}
}

func TestSwapTokensForNativeCalldata(t *testing.T) {
	r := newTestRouter(t)

	amountIn := big.NewInt(100)
	minOut := big.NewInt(42)
	deadline := r.Deadline(time.Now())

	data, err := r.SwapTokensForNativeCalldata(amountIn, minOut, testTokenAddr, testUserAddr, deadline)
	if err != nil {
		t.Fatalf("SwapTokensForNativeCalldata() error: %v", err)
	}

	method, err := r.routerAbi.MethodById(data[:4])
	if err != nil || method.Name != "swapExactTokensForNative" {
		t.Fatalf("calldata selector resolves to %v, err %v", method, err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("failed to unpack swap args: %v", err)
	}
	if got := args[0].(*big.Int); got.Cmp(amountIn) != 0 {
		t.Errorf("amountIn = %s, want %s", got, amountIn)
	}
	path := args[2].([]common.Address)
	if len(path) != 2 || path[0] != testTokenAddr || path[1] != testWrappedAddr {
		t.Errorf("path = %v, want [token, wrapped]", path)
	}
}

func TestAllowanceCalldataAndParse(t *testing.T) {
	r := newTestRouter(t)

	data, err := r.AllowanceCalldata(testUserAddr)
	if err != nil {
		t.Fatalf("AllowanceCalldata() error: %v", err)
	}
	method, err := r.erc20Abi.MethodById(data[:4])
	if err != nil || method.Name != "allowance" {
		t.Fatalf("calldata selector resolves to %v, err %v", method, err)
	}

	raw := common.LeftPadBytes(big.NewInt(777).Bytes(), 32)
	allowance, err := r.ParseAllowance(raw)
	if err != nil {
		t.Fatalf("ParseAllowance() error: %v", err)
	}
	if allowance.Cmp(big.NewInt(777)) != 0 {
		t.Errorf("allowance = %s, want 777", allowance)
	}

	if _, err := r.ParseAllowance(nil); err == nil {
		t.Error("ParseAllowance(nil) should fail")
	}
}

package guard

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	swaperrors "github.com/BaseSwapLabs/swap-engine/common/errors"
	"github.com/BaseSwapLabs/swap-engine/common/types"
)

const targetChainID = uint64(8453)

func addr(hex string) *common.Address {
	a := common.HexToAddress(hex)
	return &a
}

func chain(id uint64) *uint64 {
	return &id
}

func token() *types.TokenDescriptor {
	return &types.TokenDescriptor{
		Address:  common.HexToAddress("0x3333333333333333333333333333333333333333"),
		Symbol:   "TKN",
		Decimals: 18,
	}
}

// ready returns a snapshot that passes every check: connected wallet on the
// target chain, 1 native in with plenty of balance on both sides.
func ready() Snapshot {
	return Snapshot{
		Wallet: types.WalletState{
			Address: addr("0x4444444444444444444444444444444444444444"),
			ChainID: chain(targetChainID),
		},
		TargetChainID: targetChainID,
		Token:         token(),
		Direction:     types.NativeToToken,
		Pair: types.AmountPair{
			NativeAmount: "1",
			TokenAmount:  "6000.000000",
			LastEdited:   types.NativeSide,
		},
		GasCost:        decimal.RequireFromString("0.001"),
		NativeBalance:  mustBig("2000000000000000000"), // 2 native
		TokenBalance:   mustBig("10000000000000000000000"),
		NativeDecimals: 18,
	}
}

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v
}

func TestCheckPasses(t *testing.T) {
	if err := Check(ready()); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}
}

func TestCheckOrder(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Snapshot)
		want   error
	}{
		{
			name:   "disconnected wallet",
			mutate: func(s *Snapshot) { s.Wallet = types.WalletState{} },
			want:   swaperrors.ErrNotConnected,
		},
		{
			name:   "wrong network",
			mutate: func(s *Snapshot) { s.Wallet.ChainID = chain(1) },
			want:   swaperrors.ErrWrongNetwork,
		},
		{
			name: "wrong network wins over zero balance",
			mutate: func(s *Snapshot) {
				s.Wallet.ChainID = chain(1)
				s.NativeBalance = big.NewInt(0)
			},
			want: swaperrors.ErrWrongNetwork,
		},
		{
			name:   "no token",
			mutate: func(s *Snapshot) { s.Token = nil },
			want:   swaperrors.ErrNoToken,
		},
		{
			name:   "empty amount",
			mutate: func(s *Snapshot) { s.Pair.NativeAmount = "" },
			want:   swaperrors.ErrInvalidAmount,
		},
		{
			name:   "zero amount",
			mutate: func(s *Snapshot) { s.Pair.NativeAmount = "0" },
			want:   swaperrors.ErrInvalidAmount,
		},
		{
			name:   "non-numeric amount",
			mutate: func(s *Snapshot) { s.Pair.NativeAmount = "1,5" },
			want:   swaperrors.ErrInvalidAmount,
		},
		{
			name:   "native balance below amount plus gas",
			mutate: func(s *Snapshot) { s.NativeBalance = mustBig("1000000000000000000") }, // exactly 1, gas pushes over
			want:   swaperrors.ErrInsufficientNative,
		},
		{
			name:   "unknown native balance blocks",
			mutate: func(s *Snapshot) { s.NativeBalance = nil },
			want:   swaperrors.ErrInsufficientNative,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ready()
			tt.mutate(&s)
			if err := Check(s); err != tt.want {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckTokenToNative(t *testing.T) {
	s := ready()
	s.Direction = types.TokenToNative
	s.Pair = types.AmountPair{
		NativeAmount: "0.25",
		TokenAmount:  "3000",
		LastEdited:   types.TokenSide,
	}

	// Token direction only needs gas on the native side.
	s.NativeBalance = mustBig("1000000000000000") // 0.001 native, exactly gas
	if err := Check(s); err != nil {
		t.Fatalf("Check() = %v, want nil", err)
	}

	s.TokenBalance = mustBig("2999999999999999999999") // just under 3000
	if err := Check(s); err != swaperrors.ErrInsufficientToken {
		t.Errorf("Check() = %v, want ErrInsufficientToken", err)
	}

	s.TokenBalance = nil
	if err := Check(s); err != swaperrors.ErrInsufficientToken {
		t.Errorf("Check() with unknown token balance = %v, want ErrInsufficientToken", err)
	}

	// Native balance below gas still blocks before the token check.
	s.NativeBalance = big.NewInt(0)
	if err := Check(s); err != swaperrors.ErrInsufficientNative {
		t.Errorf("Check() = %v, want ErrInsufficientNative", err)
	}
}

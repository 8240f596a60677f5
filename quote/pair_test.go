package quote

import (
	"testing"

	"github.com/BaseSwapLabs/swap-engine/common/types"
)

func TestEditDerivesOnlyTheOtherSide(t *testing.T) {
	nativePrice := d("3000")
	tokenPrice := d("0.5")

	pair := types.AmountPair{}

	// User types 1 into the native field.
	pair = Edit(pair, types.NativeSide, "1", nativePrice, tokenPrice)
	if pair.LastEdited != types.NativeSide {
		t.Fatalf("LastEdited = %v, want NativeSide", pair.LastEdited)
	}
	if pair.NativeAmount != "1" {
		t.Errorf("edited native field rewritten to %q", pair.NativeAmount)
	}
	if pair.TokenAmount != "6000.000000" {
		t.Errorf("derived token = %q, want 6000.000000", pair.TokenAmount)
	}

	// User switches to the token field and types 3000.
	pair = Edit(pair, types.TokenSide, "3000", nativePrice, tokenPrice)
	if pair.LastEdited != types.TokenSide {
		t.Fatalf("LastEdited = %v, want TokenSide", pair.LastEdited)
	}
	if pair.TokenAmount != "3000" {
		t.Errorf("edited token field rewritten to %q", pair.TokenAmount)
	}
	if pair.NativeAmount != "0.250000" {
		t.Errorf("derived native = %q, want 0.250000", pair.NativeAmount)
	}
}

func TestRecomputeKeepsEditedSide(t *testing.T) {
	pair := types.AmountPair{
		NativeAmount: "2",
		TokenAmount:  "stale",
		LastEdited:   types.NativeSide,
	}

	// A price refresh recomputes the derived side only.
	pair = Recompute(pair, d("1500"), d("3"))
	if pair.NativeAmount != "2" {
		t.Errorf("edited side changed to %q", pair.NativeAmount)
	}
	if pair.TokenAmount != "1000.000000" {
		t.Errorf("derived token = %q, want 1000.000000", pair.TokenAmount)
	}
	if pair.LastEdited != types.NativeSide {
		t.Errorf("LastEdited changed to %v", pair.LastEdited)
	}
}

func TestRecomputeClearsDerivedSideWhenPriceUnknown(t *testing.T) {
	pair := types.AmountPair{
		NativeAmount: "2",
		TokenAmount:  "1000.000000",
		LastEdited:   types.NativeSide,
	}

	pair = Recompute(pair, d("1500"), d("0"))
	if pair.TokenAmount != "" {
		t.Errorf("derived side = %q, want empty while price unknown", pair.TokenAmount)
	}
	if pair.NativeAmount != "2" {
		t.Errorf("edited side changed to %q", pair.NativeAmount)
	}
}

func TestRecomputeClearsDerivedSideOnEmptyInput(t *testing.T) {
	pair := types.AmountPair{
		TokenAmount: "7",
		LastEdited:  types.NativeSide,
	}

	pair = Recompute(pair, d("1500"), d("3"))
	if pair.TokenAmount != "" {
		t.Errorf("derived side = %q, want empty for empty input", pair.TokenAmount)
	}
}

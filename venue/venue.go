// Package venue defines the external swap venue contract and a fixed-rate
// implementation for wiring and tests.
package venue

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Venue converts an exact plaintext input amount of one asset into another at
// a market rate.
type Venue interface {
	// SwapExactIn swaps amountIn along the given asset path for the
	// recipient, failing if not executed before the deadline. It returns
	// the realized output amounts per path hop; the last entry is the
	// final output.
	SwapExactIn(ctx context.Context, amountIn uint64, path []common.Address, recipient common.Address, deadline time.Time) ([]uint64, error)

	// Quote estimates the output amounts for an input without executing.
	Quote(ctx context.Context, amountIn uint64, path []common.Address) ([]uint64, error)
}

// FixedRate is a venue applying a constant rate numerator/denominator to
// every swap. Output failure can be injected for tests with SetOutputZero.
type FixedRate struct {
	mu         sync.Mutex
	numerator  uint64
	denom      uint64
	outputZero bool
	swapped    uint64 // total input consumed, for inspection
}

// NewFixedRate creates a venue that outputs amountIn*numerator/denominator.
func NewFixedRate(numerator, denominator uint64) *FixedRate {
	if denominator == 0 {
		denominator = 1
	}
	return &FixedRate{numerator: numerator, denom: denominator}
}

// SetOutputZero makes every subsequent swap report zero output while still
// consuming the input.
func (v *FixedRate) SetOutputZero(b bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.outputZero = b
}

// SwapExactIn applies the fixed rate.
func (v *FixedRate) SwapExactIn(ctx context.Context, amountIn uint64, path []common.Address, recipient common.Address, deadline time.Time) ([]uint64, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path must contain at least two assets")
	}
	if !deadline.IsZero() && time.Now().After(deadline) {
		return nil, fmt.Errorf("deadline exceeded")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.swapped += amountIn
	out := v.rate(amountIn)
	if v.outputZero {
		out = 0
	}
	return []uint64{amountIn, out}, nil
}

// Quote applies the fixed rate without executing.
func (v *FixedRate) Quote(ctx context.Context, amountIn uint64, path []common.Address) ([]uint64, error) {
	if len(path) < 2 {
		return nil, fmt.Errorf("path must contain at least two assets")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return []uint64{amountIn, v.rate(amountIn)}, nil
}

// TotalSwapped returns the total input consumed so far.
func (v *FixedRate) TotalSwapped() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.swapped
}

func (v *FixedRate) rate(amountIn uint64) uint64 {
	out := new(big.Int).SetUint64(amountIn)
	out.Mul(out, new(big.Int).SetUint64(v.numerator))
	out.Div(out, new(big.Int).SetUint64(v.denom))
	return out.Uint64()
}

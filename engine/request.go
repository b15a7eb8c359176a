package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/types"
)

// SwapRequest is a confidential exchange request between two assets. It is
// immutable once created and retained forever for audit and distribution
// lookups.
type SwapRequest struct {
	ID           types.RequestID      `json:"id"`
	Requester    common.Address       `json:"requester"`
	AssetIn      common.Address       `json:"assetIn"`
	AssetOut     common.Address       `json:"assetOut"`
	AmountIn     *confidential.Handle `json:"amountIn"`
	MinAmountOut *confidential.Handle `json:"minAmountOut"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// Pair returns the ordered pair key of the request.
func (r *SwapRequest) Pair() types.PairKey {
	return types.NewPairKey(r.AssetIn, r.AssetOut)
}

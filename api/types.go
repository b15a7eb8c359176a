package api

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/engine"
	"github.com/darkswap-labs/batchswap/types"
)

// SubmitRequest is the body for filing a confidential swap request. The
// handles must authorize the engine address.
type SubmitRequest struct {
	Requester    common.Address       `json:"requester"`
	AmountIn     *confidential.Handle `json:"amountIn"`
	MinAmountOut *confidential.Handle `json:"minAmountOut"`
}

// SubmitPlainRequest is the body for filing a swap request from plaintext
// amounts, encrypted server-side under the custody keys.
type SubmitPlainRequest struct {
	Requester    common.Address `json:"requester"`
	AssetIn      common.Address `json:"assetIn"`
	AssetOut     common.Address `json:"assetOut"`
	AmountIn     uint64         `json:"amountIn"`
	MinAmountOut uint64         `json:"minAmountOut"`
}

// SubmitResponse reports the new request id and, when the submission
// triggered batch formation, the formed batch id.
type SubmitResponse struct {
	RequestID types.RequestID `json:"requestId"`
	BatchID   types.BatchID   `json:"batchId,omitempty"`
}

// TriggerResponse reports the batch id formed by a forced trigger.
type TriggerResponse struct {
	BatchID types.BatchID `json:"batchId"`
}

// PairInfo is one ordered asset pair with a pending backlog.
type PairInfo struct {
	AssetIn  common.Address `json:"assetIn"`
	AssetOut common.Address `json:"assetOut"`
}

// BacklogResponse lists the pending request ids of an ordered pair.
type BacklogResponse struct {
	AssetIn  common.Address    `json:"assetIn"`
	AssetOut common.Address    `json:"assetOut"`
	Requests []types.RequestID `json:"requests"`
}

// QuoteResponse is the venue estimate for an input amount.
type QuoteResponse struct {
	AmountIn  uint64 `json:"amountIn"`
	AmountOut uint64 `json:"amountOut"`
}

// BatchResponse is a batch snapshot with derived distribution progress and
// the serialized aggregate ciphertext, when the unwrap has been requested.
type BatchResponse struct {
	*engine.SwapBatch
	PhaseName   string         `json:"phaseName"`
	Completed   int            `json:"completed"`
	Distributed bool           `json:"distributed"`
	AggregateIn types.HexBytes `json:"aggregateIn,omitempty"`
}

// DistributeRequest carries one confidential output handle and transfer proof
// per batch request, in batch order. Proofs stay raw until the handle's curve
// is known.
type DistributeRequest struct {
	Outputs []*confidential.Handle `json:"outputs"`
	Proofs  []json.RawMessage      `json:"proofs"`
}

// DistributePlainRequest carries the custody-decrypted per-request input
// amounts for proportional settlement, in batch order.
type DistributePlainRequest struct {
	Amounts []uint64 `json:"amounts"`
}

// RegisterCustodyBody names the asset an in-memory custodian should be
// registered for.
type RegisterCustodyBody struct {
	Asset common.Address `json:"asset"`
}

// RegisterCustodyResponse reports the registered custodian identity and its
// encryption public key, which clients use to build confidential handles.
type RegisterCustodyResponse struct {
	Custodian common.Address `json:"custodian"`
	Asset     common.Address `json:"asset"`
	PublicKey types.HexBytes `json:"publicKey"`
}

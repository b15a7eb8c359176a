package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/types"
)

// BatchPhase is the lifecycle state of a batch. A batch advances strictly
// forward: Created -> UnwrapRequested -> Executed. "Distributed" is inferred
// from per-request completion, not a phase, because it requires no further
// engine operation.
type BatchPhase uint8

const (
	// PhaseCreated is the initial phase after batch formation.
	PhaseCreated BatchPhase = iota

	// PhaseUnwrapRequested means the aggregate input has been sent to the
	// custody collaborator for unwrapping.
	PhaseUnwrapRequested

	// PhaseExecuted means the input has been committed to the venue.
	PhaseExecuted
)

// String returns the phase name.
func (p BatchPhase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseUnwrapRequested:
		return "unwrapRequested"
	case PhaseExecuted:
		return "executed"
	default:
		return "unknown"
	}
}

// SwapBatch aggregates a contiguous slice of the pending backlog of one asset
// pair into a single venue execution. RequestIDs is fixed at creation: a
// disjoint, order-preserving partition of the pair's backlog. Batches are
// never deleted.
type SwapBatch struct {
	ID       types.BatchID     `json:"id"`
	AssetIn  common.Address    `json:"assetIn"`
	AssetOut common.Address    `json:"assetOut"`
	Phase    BatchPhase        `json:"phase"`
	Requests []types.RequestID `json:"requestIds"`

	// TotalAmountIn is revealed only by the custody unwrap callback.
	TotalAmountIn uint64 `json:"totalAmountIn"`
	// TotalAmountOut is revealed only by venue execution.
	TotalAmountOut uint64 `json:"totalAmountOut"`

	// AggregateIn is the homomorphic sum of the request input ciphertexts,
	// set when the unwrap is requested.
	AggregateIn *confidential.Ciphertext `json:"-"`
	// Output is the realized output wrapped back into confidential form.
	Output *confidential.Handle `json:"-"`

	CreatedAt time.Time `json:"createdAt"`

	completed map[types.RequestID]bool

	// inflight marks an external call (venue swap or output settlement) in
	// progress for this batch. Set and cleared under the engine mutex;
	// lifecycle operations reject the batch while it is set.
	inflight bool
}

// Pair returns the ordered pair key of the batch.
func (b *SwapBatch) Pair() types.PairKey {
	return types.NewPairKey(b.AssetIn, b.AssetOut)
}

// Distributed reports whether every request in the batch has received its
// output.
func (b *SwapBatch) Distributed() bool {
	return len(b.Requests) > 0 && len(b.completed) == len(b.Requests)
}

// CompletedCount returns how many requests have received their output.
func (b *SwapBatch) CompletedCount() int {
	return len(b.completed)
}

func (b *SwapBatch) markCompleted(id types.RequestID) {
	if b.completed == nil {
		b.completed = make(map[types.RequestID]bool, len(b.Requests))
	}
	b.completed[id] = true
}

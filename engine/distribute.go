package engine

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/custody"
	"github.com/darkswap-labs/batchswap/types"
)

// DistributionEvent records one output settlement to a requester.
type DistributionEvent struct {
	BatchID   types.BatchID   `json:"batchId"`
	RequestID types.RequestID `json:"requestId"`
	Requester common.Address  `json:"requester"`
	At        time.Time       `json:"at"`
}

// Events returns a copy of the distribution event log, oldest first.
func (e *Engine) Events() []DistributionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]DistributionEvent(nil), e.events...)
}

// DistributeEncrypted settles an executed batch from operator-supplied
// confidential output handles, one per request in batch order. Every handle
// must be authorized for the engine and carry a valid transfer proof against
// the output asset's custody key; validation runs over the whole set before
// any transfer, so a bad entry leaves the batch untouched. At most one
// settlement runs per batch; an overlapping call gets ErrBatchBusy.
func (e *Engine) DistributeEncrypted(ctx context.Context, caller common.Address, batchID types.BatchID, outputs []*confidential.Handle, proofs []*confidential.TransferProof) error {
	e.mu.Lock()
	if caller != e.operator {
		e.mu.Unlock()
		return ErrNotOperator
	}
	b, ok := e.batches[batchID]
	if !ok {
		e.mu.Unlock()
		return ErrBatchNotFound
	}
	if b.Phase != PhaseExecuted {
		e.mu.Unlock()
		return ErrNotExecuted
	}
	if b.Distributed() {
		e.mu.Unlock()
		return ErrAlreadyDistributed
	}
	if b.inflight {
		e.mu.Unlock()
		return ErrBatchBusy
	}
	if len(outputs) != len(b.Requests) || len(proofs) != len(b.Requests) {
		e.mu.Unlock()
		return ErrLengthMismatch
	}
	cust, ok := e.custodians[b.AssetOut]
	if !ok {
		e.mu.Unlock()
		return ErrCustodyNotRegistered
	}
	pub := cust.PublicKey()

	recipients := make([]common.Address, len(b.Requests))
	for i, id := range b.Requests {
		h, p := outputs[i], proofs[i]
		if h == nil || h.Ciphertext == nil || p == nil {
			e.mu.Unlock()
			return ErrInvalidProof
		}
		if h.Asset != b.AssetOut {
			e.mu.Unlock()
			return ErrAssetMismatch
		}
		if !h.Allowed(e.addr) {
			e.mu.Unlock()
			return ErrHandleNotAuthorized
		}
		if err := p.Verify(pub, h.Ciphertext); err != nil {
			e.mu.Unlock()
			return ErrInvalidProof
		}
		req, ok := e.requests[id]
		if !ok {
			e.mu.Unlock()
			return ErrRequestNotFound
		}
		recipients[i] = req.Requester
	}
	b.inflight = true
	e.mu.Unlock()
	defer e.clearInflight(b)

	return e.settle(ctx, b, cust, recipients, outputs)
}

// DistributeByDecryptedInputs settles an executed batch proportionally to the
// custody-decrypted per-request input amounts, in batch order. The computed
// shares sum exactly to the realized output: each share is the floor of its
// proportional part and the last requester absorbs the rounding remainder.
func (e *Engine) DistributeByDecryptedInputs(ctx context.Context, caller common.Address, batchID types.BatchID, amounts []uint64) error {
	e.mu.Lock()
	if caller != e.operator {
		e.mu.Unlock()
		return ErrNotOperator
	}
	b, ok := e.batches[batchID]
	if !ok {
		e.mu.Unlock()
		return ErrBatchNotFound
	}
	if b.Phase != PhaseExecuted {
		e.mu.Unlock()
		return ErrNotExecuted
	}
	if b.Distributed() {
		e.mu.Unlock()
		return ErrAlreadyDistributed
	}
	if b.inflight {
		e.mu.Unlock()
		return ErrBatchBusy
	}
	if len(amounts) != len(b.Requests) {
		e.mu.Unlock()
		return ErrLengthMismatch
	}
	cust, ok := e.custodians[b.AssetOut]
	if !ok {
		e.mu.Unlock()
		return ErrCustodyNotRegistered
	}

	shares, err := ProportionalShares(b.TotalAmountOut, amounts)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	recipients := make([]common.Address, len(b.Requests))
	for i, id := range b.Requests {
		req, ok := e.requests[id]
		if !ok {
			e.mu.Unlock()
			return ErrRequestNotFound
		}
		recipients[i] = req.Requester
	}
	b.inflight = true
	e.mu.Unlock()
	defer e.clearInflight(b)

	outputs := make([]*confidential.Handle, len(shares))
	for i, share := range shares {
		h, err := cust.Wrap(ctx, share, e.addr)
		if err != nil {
			return err
		}
		outputs[i] = h
	}
	return e.settle(ctx, b, cust, recipients, outputs)
}

// clearInflight releases a batch claimed for an external call once that call
// sequence is over, successful or not.
func (e *Engine) clearInflight(b *SwapBatch) {
	e.mu.Lock()
	b.inflight = false
	e.mu.Unlock()
}

// settle transfers one validated output handle per request and marks each
// request completed as its transfer lands. Partially distributed batches keep
// their per-request completion state, so a retry only touches the remainder.
func (e *Engine) settle(ctx context.Context, b *SwapBatch, cust custody.Custody, recipients []common.Address, outputs []*confidential.Handle) error {
	for i, id := range b.Requests {
		e.mu.Lock()
		done := b.completed[id]
		e.mu.Unlock()
		if done {
			continue
		}
		outputs[i].Authorize(recipients[i])
		if err := cust.Transfer(ctx, recipients[i], outputs[i]); err != nil {
			log.Warnw("output transfer failed",
				"batchID", b.ID, "requestID", id, "error", err.Error())
			return err
		}
		e.mu.Lock()
		b.markCompleted(id)
		e.events = append(e.events, DistributionEvent{
			BatchID:   b.ID,
			RequestID: id,
			Requester: recipients[i],
			At:        e.now(),
		})
		e.persistBatch(b)
		e.mu.Unlock()
	}
	log.Infow("batch distributed", "batchID", b.ID, "requests", len(b.Requests))
	return nil
}

// ProportionalShares splits totalOutput across the given input amounts. Each
// share i < n-1 is floor(totalOutput*amounts[i]/sum(amounts)); the last share
// is the exact remainder, so the shares always sum to totalOutput.
func ProportionalShares(totalOutput uint64, amounts []uint64) ([]uint64, error) {
	if len(amounts) == 0 {
		return nil, ErrEmptyBatch
	}
	sum := new(big.Int)
	for _, a := range amounts {
		sum.Add(sum, new(big.Int).SetUint64(a))
	}
	if sum.Sign() == 0 {
		return nil, ErrZeroTotalInput
	}
	total := new(big.Int).SetUint64(totalOutput)
	shares := make([]uint64, len(amounts))
	var distributed uint64
	for i := 0; i < len(amounts)-1; i++ {
		s := new(big.Int).SetUint64(amounts[i])
		s.Mul(s, total)
		s.Div(s, sum)
		shares[i] = s.Uint64()
		distributed += shares[i]
	}
	shares[len(shares)-1] = totalOutput - distributed
	return shares, nil
}

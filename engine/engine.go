// Package engine implements the confidential batch swap core: the pending
// request queues, the batch formation triggers, the batch lifecycle state
// machine and the proportional distribution of realized outputs.
//
// Every state-mutating operation runs under one global mutex, giving the
// engine a single serialization order. External calls (custody, venue) are
// issued only after the local state they depend on is committed, and never
// while holding the lock, so the sole sanctioned re-entry point — the custody
// unwrap callback — can always make progress.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/crypto/ecc/curves"
	"github.com/darkswap-labs/batchswap/custody"
	"github.com/darkswap-labs/batchswap/storage"
	"github.com/darkswap-labs/batchswap/types"
	"github.com/darkswap-labs/batchswap/venue"
)

// Engine is the batching and settlement core. It owns every request and batch
// for their whole lifetime; nothing is ever deleted.
type Engine struct {
	mu sync.Mutex

	addr     common.Address // identity confidential handles must authorize
	operator common.Address // privileged identity for lifecycle operations
	venue    venue.Venue
	store    *storage.Storage // optional audit write-through
	cfg      Config

	custodians map[common.Address]custody.Custody
	requests   map[types.RequestID]*SwapRequest
	batches    map[types.BatchID]*SwapBatch
	queues     map[types.PairKey]*pendingQueue
	balances   map[common.Address]uint64 // plaintext held between unwrap and execution
	events     []DistributionEvent

	nextRequestID types.RequestID
	nextBatchID   types.BatchID

	now func() time.Time // test hook
}

// New creates a new engine. The store may be nil to disable the audit trail.
func New(addr, operator common.Address, v venue.Venue, store *storage.Storage) (*Engine, error) {
	if addr == (common.Address{}) || operator == (common.Address{}) {
		return nil, ErrInvalidAddress
	}
	if v == nil {
		return nil, fmt.Errorf("venue cannot be nil")
	}
	return &Engine{
		addr:          addr,
		operator:      operator,
		venue:         v,
		store:         store,
		cfg:           DefaultConfig(),
		custodians:    make(map[common.Address]custody.Custody),
		requests:      make(map[types.RequestID]*SwapRequest),
		batches:       make(map[types.BatchID]*SwapBatch),
		queues:        make(map[types.PairKey]*pendingQueue),
		balances:      make(map[common.Address]uint64),
		nextRequestID: 1,
		nextBatchID:   1,
		now:           time.Now,
	}, nil
}

// Address returns the engine identity handles must authorize.
func (e *Engine) Address() common.Address { return e.addr }

// Operator returns the privileged operator identity.
func (e *Engine) Operator() common.Address { return e.operator }

// RegisterCustody registers the custody collaborator for an asset, one time
// only. Operator-gated.
func (e *Engine) RegisterCustody(caller common.Address, c custody.Custody) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.operator {
		return ErrNotOperator
	}
	if c == nil || c.Address() == (common.Address{}) || c.Asset() == (common.Address{}) {
		return ErrInvalidAddress
	}
	if _, ok := e.custodians[c.Asset()]; ok {
		return ErrAlreadyRegistered
	}
	e.custodians[c.Asset()] = c
	log.Infow("custody registered", "asset", c.Asset().Hex(), "custody", c.Address().Hex())
	return nil
}

// SubmitRequest files a confidential swap request. Intake is open to any
// caller. It returns the new request id and, if the request triggered batch
// formation, the new batch id (zero otherwise).
func (e *Engine) SubmitRequest(requester common.Address, amountIn, minAmountOut *confidential.Handle) (types.RequestID, types.BatchID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if requester == (common.Address{}) {
		return 0, 0, ErrInvalidAddress
	}
	if amountIn == nil || minAmountOut == nil || amountIn.Ciphertext == nil || minAmountOut.Ciphertext == nil {
		return 0, 0, ErrZeroAmount
	}
	assetIn, assetOut := amountIn.Asset, minAmountOut.Asset
	if assetIn == assetOut {
		return 0, 0, ErrAssetMismatch
	}
	if _, ok := e.custodians[assetIn]; !ok {
		return 0, 0, ErrCustodyNotRegistered
	}
	if _, ok := e.custodians[assetOut]; !ok {
		return 0, 0, ErrCustodyNotRegistered
	}
	// a handle the engine cannot operate on must be rejected here, not
	// silently treated as zero later
	if !amountIn.Allowed(e.addr) || !minAmountOut.Allowed(e.addr) {
		return 0, 0, ErrHandleNotAuthorized
	}

	req := &SwapRequest{
		ID:           e.nextRequestID,
		Requester:    requester,
		AssetIn:      assetIn,
		AssetOut:     assetOut,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		CreatedAt:    e.now(),
	}
	e.nextRequestID++
	e.requests[req.ID] = req

	pair := req.Pair()
	q, ok := e.queues[pair]
	if !ok {
		q = &pendingQueue{}
		e.queues[pair] = q
	}
	q.enqueue(req.ID)
	e.persistRequest(req)
	log.Debugw("request enqueued",
		"requestID", req.ID,
		"pair", pair.String(),
		"backlog", q.size(),
	)

	batchID, err := e.evaluateLocked(pair)
	if err != nil {
		return 0, 0, err
	}
	return req.ID, batchID, nil
}

// SubmitPlainRequest files a swap request from plaintext amounts, encrypting
// them under the registered custody keys of both assets.
func (e *Engine) SubmitPlainRequest(requester, assetIn, assetOut common.Address, amountIn, minAmountOut uint64) (types.RequestID, types.BatchID, error) {
	if amountIn == 0 {
		return 0, 0, ErrZeroAmount
	}

	e.mu.Lock()
	custIn, okIn := e.custodians[assetIn]
	custOut, okOut := e.custodians[assetOut]
	e.mu.Unlock()
	if !okIn || !okOut {
		return 0, 0, ErrCustodyNotRegistered
	}

	inHandle, err := encryptHandle(custIn, assetIn, amountIn, e.addr, requester)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encrypt amount in: %w", err)
	}
	outHandle, err := encryptHandle(custOut, assetOut, minAmountOut, e.addr, requester)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to encrypt min amount out: %w", err)
	}
	return e.SubmitRequest(requester, inHandle, outHandle)
}

func encryptHandle(c custody.Custody, asset common.Address, amount uint64, operators ...common.Address) (*confidential.Handle, error) {
	pub := c.PublicKey()
	ct, err := confidential.NewCiphertext(pub.New()).Encrypt(new(big.Int).SetUint64(amount), pub, nil)
	if err != nil {
		return nil, err
	}
	return confidential.NewHandle(asset, curves.CurveTypeBabyJubJub, ct, operators...), nil
}

// ForceBatch forms a batch from the current backlog of the pair regardless of
// the trigger policy. Permissionless, so a lone requester cannot be griefed
// by an operator withholding the trigger. Fails with ErrEmptyBacklog if there
// is nothing pending.
func (e *Engine) ForceBatch(pair types.PairKey) (types.BatchID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queues[pair]
	if !ok || q.size() == 0 {
		return 0, ErrEmptyBacklog
	}
	return e.formBatchLocked(pair, q)
}

// EvaluatePair re-runs the trigger policy for one pair, forming a batch if a
// threshold has been crossed. Used by the background batcher to fire age
// triggers when no new requests arrive. Returns the formed batch id, or zero.
func (e *Engine) EvaluatePair(pair types.PairKey) (types.BatchID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evaluateLocked(pair)
}

// EvaluateAll re-runs the trigger policy for every pair with a non-empty
// backlog, returning the ids of any batches formed.
func (e *Engine) EvaluateAll() []types.BatchID {
	e.mu.Lock()
	defer e.mu.Unlock()
	var formed []types.BatchID
	for pair := range e.queues {
		id, err := e.evaluateLocked(pair)
		if err != nil {
			log.Warnw("trigger evaluation failed", "pair", pair.String(), "error", err.Error())
			continue
		}
		if id != 0 {
			formed = append(formed, id)
		}
	}
	return formed
}

// Pairs returns every pair with a non-empty backlog.
func (e *Engine) Pairs() []types.PairKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	pairs := make([]types.PairKey, 0, len(e.queues))
	for k, q := range e.queues {
		if q.size() > 0 {
			pairs = append(pairs, k)
		}
	}
	return pairs
}

// Backlog returns the unconsumed request ids pending for a pair.
func (e *Engine) Backlog(pair types.PairKey) []types.RequestID {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queues[pair]
	if !ok {
		return nil
	}
	return q.backlog()
}

// evaluateLocked applies the trigger policy, first match wins: size, then
// age. "Not triggered" is a no-op, not an error.
func (e *Engine) evaluateLocked(pair types.PairKey) (types.BatchID, error) {
	q, ok := e.queues[pair]
	if !ok || q.size() == 0 {
		return 0, nil
	}
	if q.size() >= e.cfg.BatchThreshold {
		return e.formBatchLocked(pair, q)
	}
	oldest, ok := e.requests[q.backlog()[0]]
	if !ok {
		return 0, ErrRequestNotFound
	}
	if !e.now().Before(oldest.CreatedAt.Add(e.cfg.BatchTimeout)) {
		return e.formBatchLocked(pair, q)
	}
	return 0, nil
}

// formBatchLocked carves the whole current backlog into a new batch. The
// backlog snapshot and the cursor advance happen under the same lock hold, so
// no concurrently submitted request can be skipped or double-counted.
func (e *Engine) formBatchLocked(pair types.PairKey, q *pendingQueue) (types.BatchID, error) {
	ids := q.backlog()
	if err := q.consume(len(ids)); err != nil {
		return 0, err
	}
	b := &SwapBatch{
		ID:        e.nextBatchID,
		AssetIn:   pair.AssetIn(),
		AssetOut:  pair.AssetOut(),
		Phase:     PhaseCreated,
		Requests:  ids,
		CreatedAt: e.now(),
	}
	e.nextBatchID++
	e.batches[b.ID] = b
	e.persistBatch(b)
	log.Infow("batch formed",
		"batchID", b.ID,
		"pair", pair.String(),
		"requests", len(ids),
	)
	return b.ID, nil
}

// RequestUnwrap homomorphically sums the confidential inputs of the batch and
// instructs the custody collaborator to unwrap the aggregate. Operator-gated.
// The unwrapRequested state is committed before the instruction is issued;
// if custody never responds, the batch stays in UnwrapRequested forever.
func (e *Engine) RequestUnwrap(ctx context.Context, caller common.Address, batchID types.BatchID) error {
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
	switch {
	case b.Phase == PhaseExecuted:
		e.mu.Unlock()
		return ErrAlreadyExecuted
	case b.Phase == PhaseUnwrapRequested:
		e.mu.Unlock()
		return ErrUnwrapAlreadyRequested
	case len(b.Requests) == 0:
		e.mu.Unlock()
		return ErrEmptyBatch
	}
	cust, ok := e.custodians[b.AssetIn]
	if !ok {
		e.mu.Unlock()
		return ErrCustodyNotRegistered
	}

	agg := confidential.NewCiphertext(cust.PublicKey().New())
	for _, id := range b.Requests {
		req, ok := e.requests[id]
		if !ok {
			e.mu.Unlock()
			return ErrRequestNotFound
		}
		agg.Add(agg, req.AmountIn.Ciphertext)
	}
	b.AggregateIn = agg
	b.Phase = PhaseUnwrapRequested
	e.persistBatch(b)
	e.mu.Unlock()

	log.Infow("unwrap requested", "batchID", batchID, "requests", len(b.Requests))
	if err := cust.Unwrap(ctx, batchID, agg); err != nil {
		// state is already committed; the batch waits for a callback that
		// may never come
		log.Warnw("unwrap instruction failed", "batchID", batchID, "error", err.Error())
		return fmt.Errorf("unwrap instruction failed: %w", err)
	}
	return nil
}

// CompleteUnwrap is the custody completion callback, the only sanctioned
// re-entry point. The caller identity must match the custody registered for
// the batch's input asset.
func (e *Engine) CompleteUnwrap(caller common.Address, batchID types.BatchID, amount uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.batches[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	cust, ok := e.custodians[b.AssetIn]
	if !ok || caller != cust.Address() {
		return ErrUnauthorizedCaller
	}
	switch {
	case b.Phase == PhaseExecuted:
		return ErrAlreadyExecuted
	case b.Phase != PhaseUnwrapRequested:
		return ErrUnwrapNotRequested
	case b.TotalAmountIn != 0:
		return ErrAlreadyUnwrapped
	}
	if amount == 0 {
		return ErrZeroAmount
	}

	b.TotalAmountIn = amount
	e.balances[b.AssetIn] += amount
	e.persistBatch(b)
	log.Infow("unwrap completed", "batchID", batchID, "totalAmountIn", amount)
	return nil
}

// ExecuteBatch submits the unwrapped input total to the venue and records the
// realized output, then wraps the output back into confidential form.
// Operator-gated. The executed state is committed before the venue call; a
// zero output leaves the batch executed with nothing to distribute, requiring
// operator follow-up — there is no rollback because the input has already
// left custody.
func (e *Engine) ExecuteBatch(ctx context.Context, caller common.Address, batchID types.BatchID) error {
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
	switch {
	case b.Phase == PhaseExecuted:
		e.mu.Unlock()
		return ErrAlreadyExecuted
	case b.Phase != PhaseUnwrapRequested:
		e.mu.Unlock()
		return ErrUnwrapNotRequested
	case b.TotalAmountIn == 0:
		e.mu.Unlock()
		return ErrNothingToSwap
	}
	custOut, ok := e.custodians[b.AssetOut]
	if !ok {
		e.mu.Unlock()
		return ErrCustodyNotRegistered
	}

	amountIn := b.TotalAmountIn
	path := []common.Address{b.AssetIn, b.AssetOut}
	deadline := e.now().Add(e.cfg.VenueDeadline)
	slippageBps := e.cfg.SlippageBps

	// commit the transition before any external call; the batch stays
	// claimed until the realized output is recorded, so distribution cannot
	// observe the executed phase with a missing output
	b.Phase = PhaseExecuted
	b.inflight = true
	e.balances[b.AssetIn] -= min(amountIn, e.balances[b.AssetIn])
	e.persistBatch(b)
	e.mu.Unlock()
	defer e.clearInflight(b)

	var quoted uint64
	if slippageBps > 0 {
		if amounts, err := e.venue.Quote(ctx, amountIn, path); err == nil && len(amounts) > 0 {
			quoted = amounts[len(amounts)-1]
		}
	}

	amounts, err := e.venue.SwapExactIn(ctx, amountIn, path, e.addr, deadline)
	if err != nil {
		log.Warnw("venue execution failed", "batchID", batchID, "error", err.Error())
		return fmt.Errorf("venue execution failed: %w", err)
	}
	var out uint64
	if len(amounts) > 0 {
		out = amounts[len(amounts)-1]
	}

	e.mu.Lock()
	b.TotalAmountOut = out
	e.persistBatch(b)
	e.mu.Unlock()

	if out == 0 {
		log.Warnw("venue returned zero output, batch stranded pending operator action", "batchID", batchID)
		return ErrZeroOutput
	}
	if quoted > 0 {
		floor := new(big.Int).SetUint64(quoted)
		floor.Mul(floor, big.NewInt(int64(10_000-slippageBps)))
		floor.Div(floor, big.NewInt(10_000))
		if out < floor.Uint64() {
			log.Warnw("realized output below slippage tolerance",
				"batchID", batchID, "quoted", quoted, "realized", out, "slippageBps", slippageBps)
		}
	}

	wrapped, err := custOut.Wrap(ctx, out, e.addr)
	if err != nil {
		log.Warnw("failed to wrap realized output", "batchID", batchID, "error", err.Error())
		return fmt.Errorf("failed to wrap realized output: %w", err)
	}
	e.mu.Lock()
	b.Output = wrapped
	e.mu.Unlock()

	log.Infow("batch executed", "batchID", batchID, "totalAmountIn", amountIn, "totalAmountOut", out)
	return nil
}

// Request returns the request with the given id.
func (e *Engine) Request(id types.RequestID) (*SwapRequest, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	req, ok := e.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

// Batch returns a snapshot of the batch with the given id.
func (e *Engine) Batch(id types.BatchID) (*SwapBatch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.batches[id]
	if !ok {
		return nil, ErrBatchNotFound
	}
	snap := *b
	snap.Requests = append([]types.RequestID(nil), b.Requests...)
	snap.completed = make(map[types.RequestID]bool, len(b.completed))
	for k, v := range b.completed {
		snap.completed[k] = v
	}
	return &snap, nil
}

// Balance returns the plaintext balance the engine holds for an asset.
func (e *Engine) Balance(asset common.Address) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balances[asset]
}

// EmergencyWithdraw drains any stray plaintext balance of an asset to the
// given recipient. Operator-gated.
func (e *Engine) EmergencyWithdraw(caller, asset, to common.Address) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.operator {
		return 0, ErrNotOperator
	}
	if to == (common.Address{}) {
		return 0, ErrInvalidAddress
	}
	amount := e.balances[asset]
	e.balances[asset] = 0
	if amount > 0 {
		log.Warnw("emergency withdrawal", "asset", asset.Hex(), "amount", amount, "to", to.Hex())
	}
	return amount, nil
}

// persistRequest writes the request to the audit trail. Persistence failures
// are logged, not fatal: the in-memory state is authoritative.
func (e *Engine) persistRequest(r *SwapRequest) {
	if e.store == nil {
		return
	}
	rec := &storage.RequestRecord{
		ID:           uint64(r.ID),
		Requester:    r.Requester,
		AssetIn:      r.AssetIn,
		AssetOut:     r.AssetOut,
		AmountIn:     r.AmountIn.Ciphertext.Serialize(),
		MinAmountOut: r.MinAmountOut.Ciphertext.Serialize(),
		CreatedAt:    r.CreatedAt,
	}
	if err := e.store.PutRequest(rec); err != nil {
		log.Warnw("failed to persist request", "requestID", r.ID, "error", err.Error())
	}
}

func (e *Engine) persistBatch(b *SwapBatch) {
	if e.store == nil {
		return
	}
	rec := &storage.BatchRecord{
		ID:             uint64(b.ID),
		AssetIn:        b.AssetIn,
		AssetOut:       b.AssetOut,
		Phase:          uint8(b.Phase),
		RequestIDs:     make([]uint64, len(b.Requests)),
		TotalAmountIn:  b.TotalAmountIn,
		TotalAmountOut: b.TotalAmountOut,
		CreatedAt:      b.CreatedAt,
	}
	for i, id := range b.Requests {
		rec.RequestIDs[i] = uint64(id)
	}
	if b.AggregateIn != nil {
		rec.AggregateIn = b.AggregateIn.Serialize()
	}
	for id := range b.completed {
		rec.Completed = append(rec.Completed, uint64(id))
	}
	if err := e.store.PutBatch(rec); err != nil {
		log.Warnw("failed to persist batch", "batchID", b.ID, "error", err.Error())
	}
}

func (e *Engine) persistConfig() {
	if e.store == nil {
		return
	}
	rec := &storage.ConfigRecord{
		BatchThreshold: e.cfg.BatchThreshold,
		BatchTimeout:   e.cfg.BatchTimeout,
		SlippageBps:    e.cfg.SlippageBps,
		VenueDeadline:  e.cfg.VenueDeadline,
	}
	if err := e.store.PutConfig(rec); err != nil {
		log.Warnw("failed to persist config", "error", err.Error())
	}
}

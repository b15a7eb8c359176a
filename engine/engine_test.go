package engine

import (
	"context"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/crypto/ecc/curves"
	"github.com/darkswap-labs/batchswap/custody"
	"github.com/darkswap-labs/batchswap/types"
	"github.com/darkswap-labs/batchswap/venue"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

var (
	engineAddr   = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	operatorAddr = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	custodyAAddr = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	custodyBAddr = common.HexToAddress("0x00000000000000000000000000000000000000c2")
	assetA       = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	assetB       = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
	alice        = common.HexToAddress("0x0000000000000000000000000000000000001001")
	bob          = common.HexToAddress("0x0000000000000000000000000000000000001002")
	carol        = common.HexToAddress("0x0000000000000000000000000000000000001003")
)

type testRig struct {
	engine *Engine
	custA  *custody.InMemory
	custB  *custody.InMemory
	venue  *venue.FixedRate
}

// newTestRig wires an engine with a 1:1 venue and in-memory custodians for
// assetA and assetB, both delivering unwrap completions synchronously.
func newTestRig(t *testing.T) *testRig {
	c := qt.New(t)
	v := venue.NewFixedRate(1, 1)
	e, err := New(engineAddr, operatorAddr, v, nil)
	c.Assert(err, qt.IsNil)

	custA, err := custody.NewInMemory(custodyAAddr, assetA)
	c.Assert(err, qt.IsNil)
	custB, err := custody.NewInMemory(custodyBAddr, assetB)
	c.Assert(err, qt.IsNil)
	custA.SetSink(e)
	custB.SetSink(e)
	custA.SetMaxPlain(1 << 20)
	custB.SetMaxPlain(1 << 20)
	c.Assert(e.RegisterCustody(operatorAddr, custA), qt.IsNil)
	c.Assert(e.RegisterCustody(operatorAddr, custB), qt.IsNil)
	return &testRig{engine: e, custA: custA, custB: custB, venue: v}
}

// submitAB files a confidential assetA->assetB request for the given amount.
func (r *testRig) submitAB(c *qt.C, requester common.Address, amount, minOut uint64) (types.RequestID, types.BatchID) {
	in, err := r.custA.Encrypt(amount, engineAddr, requester)
	c.Assert(err, qt.IsNil)
	out, err := r.custB.Encrypt(minOut, engineAddr, requester)
	c.Assert(err, qt.IsNil)
	reqID, batchID, err := r.engine.SubmitRequest(requester, in, out)
	c.Assert(err, qt.IsNil)
	return reqID, batchID
}

func TestRegisterCustody(t *testing.T) {
	c := qt.New(t)
	v := venue.NewFixedRate(1, 1)
	e, err := New(engineAddr, operatorAddr, v, nil)
	c.Assert(err, qt.IsNil)

	custA, err := custody.NewInMemory(custodyAAddr, assetA)
	c.Assert(err, qt.IsNil)

	c.Assert(e.RegisterCustody(alice, custA), qt.Equals, ErrNotOperator)
	c.Assert(e.RegisterCustody(operatorAddr, nil), qt.Equals, ErrInvalidAddress)
	c.Assert(e.RegisterCustody(operatorAddr, custA), qt.IsNil)
	c.Assert(e.RegisterCustody(operatorAddr, custA), qt.Equals, ErrAlreadyRegistered)

	// a second custodian for the same asset is also a duplicate
	other, err := custody.NewInMemory(custodyBAddr, assetA)
	c.Assert(err, qt.IsNil)
	c.Assert(e.RegisterCustody(operatorAddr, other), qt.Equals, ErrAlreadyRegistered)
}

func TestSubmitRequestValidation(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)

	// unregistered asset
	assetC := common.HexToAddress("0x000000000000000000000000000000000000cccc")
	_, _, err := r.engine.SubmitPlainRequest(alice, assetC, assetB, 10, 0)
	c.Assert(err, qt.Equals, ErrCustodyNotRegistered)

	// degenerate pair
	inA, err := r.custA.Encrypt(10, engineAddr, alice)
	c.Assert(err, qt.IsNil)
	inA2, err := r.custA.Encrypt(0, engineAddr, alice)
	c.Assert(err, qt.IsNil)
	_, _, err = r.engine.SubmitRequest(alice, inA, inA2)
	c.Assert(err, qt.Equals, ErrAssetMismatch)

	// handle that never authorized the engine must be rejected at intake
	blind, err := r.custA.Encrypt(10, alice)
	c.Assert(err, qt.IsNil)
	minOut, err := r.custB.Encrypt(0, engineAddr, alice)
	c.Assert(err, qt.IsNil)
	_, _, err = r.engine.SubmitRequest(alice, blind, minOut)
	c.Assert(err, qt.Equals, ErrHandleNotAuthorized)

	// zero plaintext amount
	_, _, err = r.engine.SubmitPlainRequest(alice, assetA, assetB, 0, 0)
	c.Assert(err, qt.Equals, ErrZeroAmount)

	// zero requester
	_, _, err = r.engine.SubmitRequest(common.Address{}, inA, minOut)
	c.Assert(err, qt.Equals, ErrInvalidAddress)
}

func TestThresholdTrigger(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	_, b1 := r.submitAB(c, alice, 10, 0)
	c.Assert(b1, qt.Equals, types.BatchID(0))
	_, b2 := r.submitAB(c, bob, 20, 0)
	c.Assert(b2, qt.Equals, types.BatchID(0))
	c.Assert(r.engine.Backlog(pair), qt.HasLen, 2)

	// the third request crosses the default threshold
	_, b3 := r.submitAB(c, carol, 30, 0)
	c.Assert(b3, qt.Not(qt.Equals), types.BatchID(0))
	c.Assert(r.engine.Backlog(pair), qt.HasLen, 0)

	batch, err := r.engine.Batch(b3)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Requests, qt.DeepEquals, []types.RequestID{1, 2, 3})
	c.Assert(batch.Phase, qt.Equals, PhaseCreated)
	c.Assert(batch.AssetIn, qt.Equals, assetA)
	c.Assert(batch.AssetOut, qt.Equals, assetB)
}

func TestAgeTrigger(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	cfg := DefaultConfig()
	cfg.BatchThreshold = 100
	cfg.BatchTimeout = time.Minute
	c.Assert(r.engine.SetConfig(operatorAddr, cfg), qt.IsNil)

	clock := time.Now()
	r.engine.now = func() time.Time { return clock }

	r.submitAB(c, alice, 10, 0)
	id, err := r.engine.EvaluatePair(pair)
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, types.BatchID(0))

	// once the oldest pending request ages past the timeout the batch forms
	// without any new submission
	clock = clock.Add(time.Minute + time.Second)
	formed := r.engine.EvaluateAll()
	c.Assert(formed, qt.HasLen, 1)

	batch, err := r.engine.Batch(formed[0])
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Requests, qt.DeepEquals, []types.RequestID{1})
	c.Assert(r.engine.Backlog(pair), qt.HasLen, 0)
}

func TestMultiPairPartitioning(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)

	// interleave the two directions of the same asset pair; ordered pairs
	// batch independently
	id1, _, err := r.engine.SubmitPlainRequest(alice, assetA, assetB, 10, 0)
	c.Assert(err, qt.IsNil)
	id2, _, err := r.engine.SubmitPlainRequest(bob, assetB, assetA, 20, 0)
	c.Assert(err, qt.IsNil)
	id3, _, err := r.engine.SubmitPlainRequest(carol, assetA, assetB, 30, 0)
	c.Assert(err, qt.IsNil)

	pairAB := types.NewPairKey(assetA, assetB)
	pairBA := types.NewPairKey(assetB, assetA)
	c.Assert(pairAB, qt.Not(qt.Equals), pairBA)
	c.Assert(r.engine.Backlog(pairAB), qt.DeepEquals, []types.RequestID{id1, id3})
	c.Assert(r.engine.Backlog(pairBA), qt.DeepEquals, []types.RequestID{id2})
	c.Assert(r.engine.Pairs(), qt.HasLen, 2)

	bAB, err := r.engine.ForceBatch(pairAB)
	c.Assert(err, qt.IsNil)
	bBA, err := r.engine.ForceBatch(pairBA)
	c.Assert(err, qt.IsNil)

	batchAB, err := r.engine.Batch(bAB)
	c.Assert(err, qt.IsNil)
	batchBA, err := r.engine.Batch(bBA)
	c.Assert(err, qt.IsNil)
	c.Assert(batchAB.Requests, qt.DeepEquals, []types.RequestID{id1, id3})
	c.Assert(batchBA.Requests, qt.DeepEquals, []types.RequestID{id2})
	c.Assert(batchBA.AssetIn, qt.Equals, assetB)
	c.Assert(batchBA.AssetOut, qt.Equals, assetA)
}

func TestForceBatchEmptyBacklog(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)
	_, err := r.engine.ForceBatch(types.NewPairKey(assetA, assetB))
	c.Assert(err, qt.Equals, ErrEmptyBacklog)
}

func TestEndToEnd(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	// two confidential requests on (A, B); below the threshold of three,
	// so no batch forms on submission
	aliceID, b1 := r.submitAB(c, alice, 100, 0)
	c.Assert(b1, qt.Equals, types.BatchID(0))
	bobID, b2 := r.submitAB(c, bob, 200, 0)
	c.Assert(b2, qt.Equals, types.BatchID(0))

	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)

	// unwrap: custody decrypts the homomorphic aggregate and calls back
	// synchronously with the revealed total
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)
	batch, err := r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Phase, qt.Equals, PhaseUnwrapRequested)
	c.Assert(batch.TotalAmountIn, qt.Equals, uint64(300))
	c.Assert(r.engine.Balance(assetA), qt.Equals, uint64(300))

	// execution at 1:1
	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.IsNil)
	batch, err = r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Phase, qt.Equals, PhaseExecuted)
	c.Assert(batch.TotalAmountOut, qt.Equals, uint64(300))
	c.Assert(r.engine.Balance(assetA), qt.Equals, uint64(0))
	c.Assert(r.venue.TotalSwapped(), qt.Equals, uint64(300))
	c.Assert(batch.Output, qt.IsNotNil)

	// proportional fallback: [100, 200] of an output of 300
	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200}), qt.IsNil)
	batch, err = r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Distributed(), qt.IsTrue)
	c.Assert(batch.CompletedCount(), qt.Equals, 2)

	transfers := r.custB.Transfers()
	c.Assert(transfers, qt.HasLen, 2)
	c.Assert(transfers[0].Recipient, qt.Equals, alice)
	c.Assert(transfers[1].Recipient, qt.Equals, bob)
	got0, err := r.custB.Decrypt(transfers[0].Handle)
	c.Assert(err, qt.IsNil)
	got1, err := r.custB.Decrypt(transfers[1].Handle)
	c.Assert(err, qt.IsNil)
	c.Assert(got0, qt.Equals, uint64(100))
	c.Assert(got1, qt.Equals, uint64(200))

	// recipients can operate their outputs, strangers cannot
	c.Assert(transfers[0].Handle.Allowed(alice), qt.IsTrue)
	c.Assert(transfers[0].Handle.Allowed(bob), qt.IsFalse)

	events := r.engine.Events()
	c.Assert(events, qt.HasLen, 2)
	c.Assert(events[0].RequestID, qt.Equals, aliceID)
	c.Assert(events[1].RequestID, qt.Equals, bobID)
	c.Assert(events[0].Requester, qt.Equals, alice)
}

func TestLifecyclePreconditions(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	// deferred custody delivery, so the batch sits between phases
	r.custA.Defer(true)

	r.submitAB(c, alice, 100, 0)
	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)

	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.Equals, ErrUnwrapNotRequested)
	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100}), qt.Equals, ErrNotExecuted)
	c.Assert(r.engine.RequestUnwrap(ctx, alice, batchID), qt.Equals, ErrNotOperator)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, types.BatchID(99)), qt.Equals, ErrBatchNotFound)

	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.Equals, ErrUnwrapAlreadyRequested)

	// the completion has not been delivered yet
	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.Equals, ErrNothingToSwap)

	// only the registered custody identity may complete
	c.Assert(r.engine.CompleteUnwrap(alice, batchID, 100), qt.Equals, ErrUnauthorizedCaller)
	c.Assert(r.engine.CompleteUnwrap(custodyBAddr, batchID, 100), qt.Equals, ErrUnauthorizedCaller)

	c.Assert(r.custA.Deliver(), qt.IsNil)
	batch, err := r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.TotalAmountIn, qt.Equals, uint64(100))

	// a second completion for the same batch is rejected
	c.Assert(r.engine.CompleteUnwrap(custodyAAddr, batchID, 100), qt.Equals, ErrAlreadyUnwrapped)

	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.IsNil)
	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.Equals, ErrAlreadyExecuted)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.Equals, ErrAlreadyExecuted)
	c.Assert(r.engine.CompleteUnwrap(custodyAAddr, batchID, 100), qt.Equals, ErrAlreadyExecuted)

	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{1, 2}), qt.Equals, ErrLengthMismatch)
	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{0}), qt.Equals, ErrZeroTotalInput)
	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100}), qt.IsNil)
	c.Assert(r.engine.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100}), qt.Equals, ErrAlreadyDistributed)
}

func TestStalledUnwrap(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	r.custA.Defer(true)
	r.submitAB(c, alice, 100, 0)
	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)

	// custody never responds: the batch waits in UnwrapRequested forever
	// and every forward operation keeps failing the same way
	for i := 0; i < 3; i++ {
		c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.Equals, ErrNothingToSwap)
	}
	batch, err := r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Phase, qt.Equals, PhaseUnwrapRequested)
	c.Assert(batch.TotalAmountIn, qt.Equals, uint64(0))
}

func TestZeroOutputBatch(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	r.submitAB(c, alice, 100, 0)
	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)

	r.venue.SetOutputZero(true)
	err = r.engine.ExecuteBatch(ctx, operatorAddr, batchID)
	c.Assert(err, qt.Equals, ErrZeroOutput)

	// the input is spent; the batch stays executed with nothing to pay out
	batch, err := r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Phase, qt.Equals, PhaseExecuted)
	c.Assert(batch.TotalAmountOut, qt.Equals, uint64(0))
	c.Assert(r.engine.Balance(assetA), qt.Equals, uint64(0))
}

func TestDistributeEncrypted(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	r.submitAB(c, alice, 100, 0)
	r.submitAB(c, bob, 200, 0)
	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)
	c.Assert(r.engine.ExecuteBatch(ctx, operatorAddr, batchID), qt.IsNil)

	// the operator prepares per-request confidential outputs with transfer
	// proofs against the output custody key
	pub := r.custB.PublicKey()
	outputs := make([]*confidential.Handle, 2)
	proofs := make([]*confidential.TransferProof, 2)
	for i, amount := range []uint64{100, 200} {
		k, err := confidential.RandK()
		c.Assert(err, qt.IsNil)
		m := new(big.Int).SetUint64(amount)
		ct, err := confidential.NewCiphertext(pub.New()).Encrypt(m, pub, k)
		c.Assert(err, qt.IsNil)
		outputs[i] = confidential.NewHandle(assetB, curves.CurveTypeBabyJubJub, ct, engineAddr)
		proofs[i], err = confidential.ProveTransfer(pub, ct, m, k)
		c.Assert(err, qt.IsNil)
	}

	// a tampered proof fails the whole call before any transfer happens
	badProofs := []*confidential.TransferProof{proofs[1], proofs[0]}
	err = r.engine.DistributeEncrypted(ctx, operatorAddr, batchID, outputs, badProofs)
	c.Assert(err, qt.Equals, ErrInvalidProof)
	c.Assert(r.custB.Transfers(), qt.HasLen, 0)

	// a handle that does not authorize the engine is rejected the same way
	blind, err := r.custB.Encrypt(100, alice)
	c.Assert(err, qt.IsNil)
	err = r.engine.DistributeEncrypted(ctx, operatorAddr, batchID, []*confidential.Handle{blind, outputs[1]}, proofs)
	c.Assert(err, qt.Equals, ErrHandleNotAuthorized)
	c.Assert(r.custB.Transfers(), qt.HasLen, 0)

	c.Assert(r.engine.DistributeEncrypted(ctx, operatorAddr, batchID, outputs, proofs), qt.IsNil)
	transfers := r.custB.Transfers()
	c.Assert(transfers, qt.HasLen, 2)
	got, err := r.custB.Decrypt(transfers[0].Handle)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, uint64(100))

	batch, err := r.engine.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Distributed(), qt.IsTrue)
}

func TestEmergencyWithdraw(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	r := newTestRig(t)
	pair := types.NewPairKey(assetA, assetB)

	r.submitAB(c, alice, 100, 0)
	batchID, err := r.engine.ForceBatch(pair)
	c.Assert(err, qt.IsNil)
	c.Assert(r.engine.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)
	c.Assert(r.engine.Balance(assetA), qt.Equals, uint64(100))

	_, err = r.engine.EmergencyWithdraw(alice, assetA, alice)
	c.Assert(err, qt.Equals, ErrNotOperator)
	_, err = r.engine.EmergencyWithdraw(operatorAddr, assetA, common.Address{})
	c.Assert(err, qt.Equals, ErrInvalidAddress)

	amount, err := r.engine.EmergencyWithdraw(operatorAddr, assetA, operatorAddr)
	c.Assert(err, qt.IsNil)
	c.Assert(amount, qt.Equals, uint64(100))
	c.Assert(r.engine.Balance(assetA), qt.Equals, uint64(0))
}

func TestConfigUpdate(t *testing.T) {
	c := qt.New(t)
	r := newTestRig(t)

	cfg := DefaultConfig()
	cfg.BatchThreshold = 0
	c.Assert(r.engine.SetConfig(operatorAddr, cfg), qt.Equals, ErrInvalidConfig)

	cfg.BatchThreshold = 2
	c.Assert(r.engine.SetConfig(alice, cfg), qt.Equals, ErrNotOperator)
	c.Assert(r.engine.SetConfig(operatorAddr, cfg), qt.IsNil)
	c.Assert(r.engine.Config().BatchThreshold, qt.Equals, 2)

	// the lowered threshold applies to the next submissions
	_, b1 := r.submitAB(c, alice, 10, 0)
	c.Assert(b1, qt.Equals, types.BatchID(0))
	_, b2 := r.submitAB(c, bob, 20, 0)
	c.Assert(b2, qt.Not(qt.Equals), types.BatchID(0))
}

// blockingCustody parks every transfer until the test releases it, holding
// the batch in its settlement window.
type blockingCustody struct {
	*custody.InMemory
	entered chan struct{}
	release chan struct{}
}

func (b *blockingCustody) Transfer(ctx context.Context, recipient common.Address, h *confidential.Handle) error {
	b.entered <- struct{}{}
	<-b.release
	return b.InMemory.Transfer(ctx, recipient, h)
}

// blockingVenue parks the swap until the test releases it, holding the batch
// in its execution window.
type blockingVenue struct {
	*venue.FixedRate
	entered chan struct{}
	release chan struct{}
}

func (v *blockingVenue) SwapExactIn(ctx context.Context, amountIn uint64, path []common.Address, recipient common.Address, deadline time.Time) ([]uint64, error) {
	v.entered <- struct{}{}
	<-v.release
	return v.FixedRate.SwapExactIn(ctx, amountIn, path, recipient, deadline)
}

func TestDistributeSingleFlight(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	v := venue.NewFixedRate(1, 1)
	e, err := New(engineAddr, operatorAddr, v, nil)
	c.Assert(err, qt.IsNil)

	custA, err := custody.NewInMemory(custodyAAddr, assetA)
	c.Assert(err, qt.IsNil)
	custB, err := custody.NewInMemory(custodyBAddr, assetB)
	c.Assert(err, qt.IsNil)
	custA.SetSink(e)
	custB.SetSink(e)
	custA.SetMaxPlain(1 << 20)
	custB.SetMaxPlain(1 << 20)
	slow := &blockingCustody{
		InMemory: custB,
		entered:  make(chan struct{}, 4),
		release:  make(chan struct{}),
	}
	c.Assert(e.RegisterCustody(operatorAddr, custA), qt.IsNil)
	c.Assert(e.RegisterCustody(operatorAddr, slow), qt.IsNil)

	_, _, err = e.SubmitPlainRequest(alice, assetA, assetB, 100, 0)
	c.Assert(err, qt.IsNil)
	_, _, err = e.SubmitPlainRequest(bob, assetA, assetB, 200, 0)
	c.Assert(err, qt.IsNil)
	batchID, err := e.ForceBatch(types.NewPairKey(assetA, assetB))
	c.Assert(err, qt.IsNil)
	c.Assert(e.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)
	c.Assert(e.ExecuteBatch(ctx, operatorAddr, batchID), qt.IsNil)

	first := make(chan error, 1)
	go func() {
		first <- e.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200})
	}()
	<-slow.entered

	// overlapping settlement attempts are rejected while the first one is
	// parked inside the custody transfer
	err = e.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200})
	c.Assert(err, qt.Equals, ErrBatchBusy)
	err = e.DistributeEncrypted(ctx, operatorAddr, batchID, nil, nil)
	c.Assert(err, qt.Equals, ErrBatchBusy)

	close(slow.release)
	c.Assert(<-first, qt.IsNil)

	// exactly one payout per request, summing to the realized output
	transfers := custB.Transfers()
	c.Assert(transfers, qt.HasLen, 2)
	var paid uint64
	for _, tr := range transfers {
		amount, err := custB.Decrypt(tr.Handle)
		c.Assert(err, qt.IsNil)
		paid += amount
	}
	batch, err := e.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(paid, qt.Equals, batch.TotalAmountOut)
	c.Assert(batch.Distributed(), qt.IsTrue)
	c.Assert(e.Events(), qt.HasLen, 2)

	// once settled, a retry reports the terminal state, not busy
	err = e.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200})
	c.Assert(err, qt.Equals, ErrAlreadyDistributed)
}

func TestDistributeDuringExecution(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	v := &blockingVenue{
		FixedRate: venue.NewFixedRate(1, 1),
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	e, err := New(engineAddr, operatorAddr, v, nil)
	c.Assert(err, qt.IsNil)

	custA, err := custody.NewInMemory(custodyAAddr, assetA)
	c.Assert(err, qt.IsNil)
	custB, err := custody.NewInMemory(custodyBAddr, assetB)
	c.Assert(err, qt.IsNil)
	custA.SetSink(e)
	custB.SetSink(e)
	custA.SetMaxPlain(1 << 20)
	custB.SetMaxPlain(1 << 20)
	c.Assert(e.RegisterCustody(operatorAddr, custA), qt.IsNil)
	c.Assert(e.RegisterCustody(operatorAddr, custB), qt.IsNil)

	_, _, err = e.SubmitPlainRequest(alice, assetA, assetB, 100, 0)
	c.Assert(err, qt.IsNil)
	_, _, err = e.SubmitPlainRequest(bob, assetA, assetB, 200, 0)
	c.Assert(err, qt.IsNil)
	batchID, err := e.ForceBatch(types.NewPairKey(assetA, assetB))
	c.Assert(err, qt.IsNil)
	c.Assert(e.RequestUnwrap(ctx, operatorAddr, batchID), qt.IsNil)

	execDone := make(chan error, 1)
	go func() {
		execDone <- e.ExecuteBatch(ctx, operatorAddr, batchID)
	}()
	<-v.entered

	// the phase is already committed but the realized output is not yet
	// recorded; settling now would hand out all-zero shares
	batch, err := e.Batch(batchID)
	c.Assert(err, qt.IsNil)
	c.Assert(batch.Phase, qt.Equals, PhaseExecuted)
	c.Assert(batch.TotalAmountOut, qt.Equals, uint64(0))
	err = e.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200})
	c.Assert(err, qt.Equals, ErrBatchBusy)

	close(v.release)
	c.Assert(<-execDone, qt.IsNil)

	c.Assert(e.DistributeByDecryptedInputs(ctx, operatorAddr, batchID, []uint64{100, 200}), qt.IsNil)
	transfers := custB.Transfers()
	c.Assert(transfers, qt.HasLen, 2)
	got0, err := custB.Decrypt(transfers[0].Handle)
	c.Assert(err, qt.IsNil)
	got1, err := custB.Decrypt(transfers[1].Handle)
	c.Assert(err, qt.IsNil)
	c.Assert(got0, qt.Equals, uint64(100))
	c.Assert(got1, qt.Equals, uint64(200))
}

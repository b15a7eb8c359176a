package custody

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/crypto/ecc"
	"github.com/darkswap-labs/batchswap/crypto/ecc/curves"
	"github.com/darkswap-labs/batchswap/types"
)

// Transfer records a confidential output handed to a recipient, kept by the
// in-memory custodian for inspection.
type Transfer struct {
	Recipient common.Address
	Handle    *confidential.Handle
}

// InMemory is a single-asset custodian keeping its ElGamal keypair in memory.
// It decrypts unwrap requests itself (baby-step giant-step, bounded by
// maxPlain) and delivers completions to the configured sink. By default
// delivery is synchronous; with Defer(true) completions are queued until
// Deliver is called, which is how tests exercise the two-invocation unwrap
// flow and the permanently stalled batch.
type InMemory struct {
	mu        sync.Mutex
	addr      common.Address
	asset     common.Address
	curveType string
	publicKey ecc.Point
	privKey   *big.Int
	maxPlain  uint64
	sink      UnwrapSink
	deferred  bool
	pending   []pendingUnwrap
	transfers []Transfer
}

type pendingUnwrap struct {
	batchID types.BatchID
	amount  uint64
}

// NewInMemory creates an in-memory custodian for the given asset with a fresh
// encryption keypair.
func NewInMemory(addr, asset common.Address) (*InMemory, error) {
	curve, err := curves.New(curves.CurveTypeBabyJubJub)
	if err != nil {
		return nil, err
	}
	pub, priv, err := confidential.GenerateKey(curve)
	if err != nil {
		return nil, fmt.Errorf("failed to generate custody keypair: %w", err)
	}
	return &InMemory{
		addr:      addr,
		asset:     asset,
		curveType: curves.CurveTypeBabyJubJub,
		publicKey: pub,
		privKey:   priv,
		maxPlain:  types.MaxPlainAmount,
	}, nil
}

// SetSink registers the unwrap completion sink (the engine).
func (c *InMemory) SetSink(sink UnwrapSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// SetMaxPlain lowers the plaintext recovery bound. Decryption cost grows with
// the square root of the bound, so tests with small amounts use a small one.
func (c *InMemory) SetMaxPlain(max uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxPlain = max
}

// Defer toggles deferred completion delivery.
func (c *InMemory) Defer(d bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferred = d
}

// Address returns the custodian caller identity.
func (c *InMemory) Address() common.Address { return c.addr }

// Asset returns the asset this custodian manages.
func (c *InMemory) Asset() common.Address { return c.asset }

// PublicKey returns the asset's encryption key.
func (c *InMemory) PublicKey() ecc.Point { return c.publicKey }

// Encrypt produces a confidential handle for a plaintext amount, operated by
// the listed owners. Used by request submitters and tests.
func (c *InMemory) Encrypt(amount uint64, owners ...common.Address) (*confidential.Handle, error) {
	curve := c.publicKey.New()
	ct, err := confidential.NewCiphertext(curve).Encrypt(new(big.Int).SetUint64(amount), c.publicKey, nil)
	if err != nil {
		return nil, err
	}
	return confidential.NewHandle(c.asset, c.curveType, ct, owners...), nil
}

// Unwrap decrypts the aggregate ciphertext and delivers the plaintext total
// to the sink, synchronously or deferred.
func (c *InMemory) Unwrap(ctx context.Context, batchID types.BatchID, ct *confidential.Ciphertext) error {
	if ct == nil {
		return fmt.Errorf("nil ciphertext")
	}
	amount, err := confidential.Decrypt(c.publicKey, c.privKey, ct.C1, ct.C2, c.maxPlain)
	if err != nil {
		return fmt.Errorf("unwrap decryption failed: %w", err)
	}

	c.mu.Lock()
	sink := c.sink
	deferred := c.deferred
	if deferred {
		c.pending = append(c.pending, pendingUnwrap{batchID: batchID, amount: amount.Uint64()})
	}
	c.mu.Unlock()

	if deferred {
		log.Debugw("unwrap deferred", "asset", c.asset.Hex(), "batchID", batchID)
		return nil
	}
	if sink == nil {
		return fmt.Errorf("no unwrap sink registered")
	}
	return sink.CompleteUnwrap(c.addr, batchID, amount.Uint64())
}

// Deliver flushes deferred unwrap completions to the sink.
func (c *InMemory) Deliver() error {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	sink := c.sink
	c.mu.Unlock()

	if sink == nil {
		return fmt.Errorf("no unwrap sink registered")
	}
	for _, p := range pending {
		if err := sink.CompleteUnwrap(c.addr, p.batchID, p.amount); err != nil {
			return err
		}
	}
	return nil
}

// Wrap converts a plaintext amount into a confidential handle operated by
// owner.
func (c *InMemory) Wrap(ctx context.Context, amount uint64, owner common.Address) (*confidential.Handle, error) {
	return c.Encrypt(amount, owner)
}

// Transfer grants the recipient access on the handle and records the
// transfer.
func (c *InMemory) Transfer(ctx context.Context, recipient common.Address, h *confidential.Handle) error {
	if h == nil {
		return fmt.Errorf("nil handle")
	}
	h.Authorize(recipient)
	c.mu.Lock()
	c.transfers = append(c.transfers, Transfer{Recipient: recipient, Handle: h})
	c.mu.Unlock()
	log.Debugw("confidential transfer", "asset", c.asset.Hex(), "recipient", recipient.Hex())
	return nil
}

// Transfers returns the transfers performed so far.
func (c *InMemory) Transfers() []Transfer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Transfer, len(c.transfers))
	copy(out, c.transfers)
	return out
}

// Decrypt reveals the plaintext behind a handle of this asset. Test and
// dispute-resolution helper; a production custodian does not expose this.
func (c *InMemory) Decrypt(h *confidential.Handle) (uint64, error) {
	if h == nil || h.Ciphertext == nil {
		return 0, fmt.Errorf("nil handle")
	}
	amount, err := confidential.Decrypt(c.publicKey, c.privKey, h.Ciphertext.C1, h.Ciphertext.C2, c.maxPlain)
	if err != nil {
		return 0, err
	}
	return amount.Uint64(), nil
}

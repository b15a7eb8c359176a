// Package custody defines the contract of the confidential-balance custodian
// the engine coordinates with, plus an in-memory implementation used by the
// daemon wiring and the tests.
//
// A custodian is registered per asset. The engine asks it to unwrap an
// aggregate confidential value into plaintext (asynchronous: the custodian
// calls back into the engine when done), to wrap plaintext back into
// confidential form, and to transfer confidential outputs to requesters.
package custody

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/crypto/ecc"
	"github.com/darkswap-labs/batchswap/types"
)

// UnwrapSink receives unwrap completions. The engine implements it; the
// caller address is how the engine authenticates the custodian.
type UnwrapSink interface {
	CompleteUnwrap(caller common.Address, batchID types.BatchID, amount uint64) error
}

// Custody is the confidential-balance custodian for a single asset.
type Custody interface {
	// Address returns the identity the custodian calls back with.
	Address() common.Address

	// Asset returns the asset this custodian manages.
	Asset() common.Address

	// PublicKey returns the encryption key confidential amounts of this
	// asset are encrypted under.
	PublicKey() ecc.Point

	// Unwrap converts the aggregate confidential value into plaintext. The
	// result is delivered asynchronously through the sink registered with
	// the custodian, never as a return value.
	Unwrap(ctx context.Context, batchID types.BatchID, ct *confidential.Ciphertext) error

	// Wrap converts a plaintext amount into a confidential handle operated
	// by the given owner.
	Wrap(ctx context.Context, amount uint64, owner common.Address) (*confidential.Handle, error)

	// Transfer hands a confidential output to its recipient, granting the
	// recipient access on the handle.
	Transfer(ctx context.Context, recipient common.Address, h *confidential.Handle) error
}

package confidential

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darkswap-labs/batchswap/crypto/ecc/curves"
)

// Handle is an opaque reference to an encrypted amount of a given asset,
// together with the list of identities authorized to operate on it. Consumers
// must check authorization before use; an unauthorized handle is an error,
// never an implicit zero.
type Handle struct {
	Asset      common.Address
	CurveType  string
	Ciphertext *Ciphertext
	authorized map[common.Address]struct{}
}

// NewHandle wraps a ciphertext of the given asset and grants access to the
// listed identities.
func NewHandle(asset common.Address, curveType string, ct *Ciphertext, operators ...common.Address) *Handle {
	h := &Handle{
		Asset:      asset,
		CurveType:  curveType,
		Ciphertext: ct,
		authorized: make(map[common.Address]struct{}, len(operators)),
	}
	for _, op := range operators {
		h.authorized[op] = struct{}{}
	}
	return h
}

// Authorize grants access to the given identity.
func (h *Handle) Authorize(op common.Address) {
	if h.authorized == nil {
		h.authorized = make(map[common.Address]struct{})
	}
	h.authorized[op] = struct{}{}
}

// Allowed reports whether the given identity may operate on the handle.
func (h *Handle) Allowed(op common.Address) bool {
	_, ok := h.authorized[op]
	return ok
}

// Authorized returns the identities allowed to operate on the handle.
func (h *Handle) Authorized() []common.Address {
	ops := make([]common.Address, 0, len(h.authorized))
	for op := range h.authorized {
		ops = append(ops, op)
	}
	return ops
}

type handleJSON struct {
	Asset      common.Address   `json:"asset"`
	CurveType  string           `json:"curveType"`
	Ciphertext json.RawMessage  `json:"ciphertext"`
	Authorized []common.Address `json:"authorized"`
}

// MarshalJSON serializes the handle, including its access list.
func (h *Handle) MarshalJSON() ([]byte, error) {
	ctBytes, err := json.Marshal(h.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ciphertext: %w", err)
	}
	return json.Marshal(handleJSON{
		Asset:      h.Asset,
		CurveType:  h.CurveType,
		Ciphertext: ctBytes,
		Authorized: h.Authorized(),
	})
}

// UnmarshalJSON deserializes the handle, allocating the ciphertext on the
// curve named by the curveType field.
func (h *Handle) UnmarshalJSON(data []byte) error {
	tmp := handleJSON{}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return fmt.Errorf("failed to unmarshal handle container: %w", err)
	}
	curve, err := curves.New(tmp.CurveType)
	if err != nil {
		return err
	}
	ct := NewCiphertext(curve)
	if err := ct.UnmarshalJSON(tmp.Ciphertext); err != nil {
		return fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	h.Asset = tmp.Asset
	h.CurveType = tmp.CurveType
	h.Ciphertext = ct
	h.authorized = make(map[common.Address]struct{}, len(tmp.Authorized))
	for _, op := range tmp.Authorized {
		h.authorized[op] = struct{}{}
	}
	return nil
}

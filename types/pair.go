package types

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PairKey is the deterministic identifier of an ordered (assetIn, assetOut)
// combination: the concatenation of both asset addresses. Distinct ordered
// pairs (A,B) and (B,A) yield distinct keys.
type PairKey [2 * common.AddressLength]byte

// NewPairKey builds the key for the ordered pair assetIn -> assetOut.
func NewPairKey(assetIn, assetOut common.Address) PairKey {
	var k PairKey
	copy(k[:common.AddressLength], assetIn.Bytes())
	copy(k[common.AddressLength:], assetOut.Bytes())
	return k
}

// AssetIn returns the input asset encoded in the key.
func (k PairKey) AssetIn() common.Address {
	return common.BytesToAddress(k[:common.AddressLength])
}

// AssetOut returns the output asset encoded in the key.
func (k PairKey) AssetOut() common.Address {
	return common.BytesToAddress(k[common.AddressLength:])
}

// String returns the hex representation of the key.
func (k PairKey) String() string {
	return hex.EncodeToString(k[:])
}

// MarshalText implements encoding.TextMarshaler so PairKey can be used as a
// JSON map key.
func (k PairKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PairKey) UnmarshalText(data []byte) error {
	b, err := hex.DecodeString(string(data))
	if err != nil {
		return err
	}
	if len(b) != len(k) {
		return fmt.Errorf("invalid PairKey length: %d", len(b))
	}
	copy(k[:], b)
	return nil
}

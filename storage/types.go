package storage

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RequestRecord is the persisted form of a swap request. Confidential values
// are stored as serialized ciphertexts; the access lists live with the
// custody collaborator, not in the audit trail.
type RequestRecord struct {
	ID           uint64         `cbor:"0,keyasint"`
	Requester    common.Address `cbor:"1,keyasint"`
	AssetIn      common.Address `cbor:"2,keyasint"`
	AssetOut     common.Address `cbor:"3,keyasint"`
	AmountIn     []byte         `cbor:"4,keyasint"`
	MinAmountOut []byte         `cbor:"5,keyasint"`
	CreatedAt    time.Time      `cbor:"6,keyasint"`
}

// BatchRecord is the persisted snapshot of a batch, rewritten on every
// lifecycle transition.
type BatchRecord struct {
	ID             uint64         `cbor:"0,keyasint"`
	AssetIn        common.Address `cbor:"1,keyasint"`
	AssetOut       common.Address `cbor:"2,keyasint"`
	Phase          uint8          `cbor:"3,keyasint"`
	RequestIDs     []uint64       `cbor:"4,keyasint"`
	TotalAmountIn  uint64         `cbor:"5,keyasint"`
	TotalAmountOut uint64         `cbor:"6,keyasint"`
	AggregateIn    []byte         `cbor:"7,keyasint,omitempty"`
	CreatedAt      time.Time      `cbor:"8,keyasint"`
	Completed      []uint64       `cbor:"9,keyasint,omitempty"`
}

// ConfigRecord is the persisted engine configuration.
type ConfigRecord struct {
	BatchThreshold int           `cbor:"0,keyasint"`
	BatchTimeout   time.Duration `cbor:"1,keyasint"`
	SlippageBps    uint64        `cbor:"2,keyasint"`
	VenueDeadline  time.Duration `cbor:"3,keyasint"`
}

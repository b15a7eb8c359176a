package curves

import (
	"fmt"

	"github.com/darkswap-labs/batchswap/crypto/ecc"
	"github.com/darkswap-labs/batchswap/crypto/ecc/bjj"
)

const (
	// CurveTypeBabyJubJub is the default curve for confidential values.
	CurveTypeBabyJubJub = "bjj"
)

// New creates a new Point implementation for the given curve type string.
// It returns an error if the type is not supported.
func New(curveType string) (ecc.Point, error) {
	switch curveType {
	case CurveTypeBabyJubJub:
		return bjj.New(), nil
	default:
		return nil, fmt.Errorf("unsupported curve type: %s", curveType)
	}
}

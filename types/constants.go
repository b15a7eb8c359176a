package types

import "time"

const (
	// DefaultBatchThreshold is the backlog size that triggers batch formation.
	DefaultBatchThreshold = 3
	// DefaultBatchTimeout is the maximum age of the oldest pending request
	// before a batch is formed regardless of backlog size.
	DefaultBatchTimeout = 10 * time.Minute
	// DefaultVenueDeadline bounds the execution time of a venue swap.
	DefaultVenueDeadline = 30 * time.Second
	// MaxPlainAmount is the largest plaintext amount the confidential layer
	// can recover with baby-step giant-step decryption.
	MaxPlainAmount = uint64(1) << 40
)

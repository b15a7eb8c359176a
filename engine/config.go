package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/types"
)

// Config is the process-wide engine configuration. Changes take effect only
// for batches formed after the change; already-formed batches are never
// reclassified.
type Config struct {
	// BatchThreshold is the backlog size that triggers batch formation.
	BatchThreshold int `json:"batchThreshold"`
	// BatchTimeout is the maximum age of the oldest pending request before
	// a batch is formed regardless of size.
	BatchTimeout time.Duration `json:"batchTimeout"`
	// SlippageBps is the tolerated deviation, in basis points, between the
	// venue quote at execution time and the realized output floor. Zero
	// disables the check.
	SlippageBps uint64 `json:"slippageBps"`
	// VenueDeadline bounds the execution time of a venue swap.
	VenueDeadline time.Duration `json:"venueDeadline"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		BatchThreshold: types.DefaultBatchThreshold,
		BatchTimeout:   types.DefaultBatchTimeout,
		SlippageBps:    0,
		VenueDeadline:  types.DefaultVenueDeadline,
	}
}

func (c Config) validate() error {
	if c.BatchThreshold < 1 {
		return ErrInvalidConfig
	}
	if c.BatchTimeout <= 0 || c.VenueDeadline <= 0 {
		return ErrInvalidConfig
	}
	if c.SlippageBps > 10_000 {
		return ErrInvalidConfig
	}
	return nil
}

// Config returns the current engine configuration.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// SetConfig replaces the engine configuration. Operator-gated; applies only
// to batches formed afterwards.
func (e *Engine) SetConfig(caller common.Address, cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.operator {
		return ErrNotOperator
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.persistConfig()
	log.Infow("engine configuration updated",
		"batchThreshold", cfg.BatchThreshold,
		"batchTimeout", cfg.BatchTimeout.String(),
		"slippageBps", cfg.SlippageBps,
	)
	return nil
}

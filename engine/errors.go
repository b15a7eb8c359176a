package engine

import "errors"

// Precondition violations: rejected synchronously, state unchanged.
var (
	ErrInvalidAddress         = errors.New("invalid address")
	ErrAlreadyRegistered      = errors.New("custody already registered for asset")
	ErrCustodyNotRegistered   = errors.New("no custody registered for asset")
	ErrRequestNotFound        = errors.New("request not found")
	ErrBatchNotFound          = errors.New("batch not found")
	ErrEmptyBacklog           = errors.New("backlog is empty")
	ErrEmptyBatch             = errors.New("batch contains no requests")
	ErrUnwrapAlreadyRequested = errors.New("unwrap already requested")
	ErrUnwrapNotRequested     = errors.New("unwrap not requested")
	ErrAlreadyUnwrapped       = errors.New("unwrap already completed")
	ErrAlreadyExecuted        = errors.New("batch already executed")
	ErrNotExecuted            = errors.New("batch not executed")
	ErrAlreadyDistributed     = errors.New("batch already distributed")
	ErrBatchBusy              = errors.New("batch operation in progress")
	ErrNothingToSwap          = errors.New("nothing to swap")
	ErrZeroAmount             = errors.New("zero amount")
	ErrZeroTotalInput         = errors.New("zero total input")
	ErrLengthMismatch         = errors.New("supplied values do not match batch requests")
	ErrAssetMismatch          = errors.New("handle asset does not match")
	ErrInvalidConfig          = errors.New("invalid configuration")
)

// Authorization violations: rejected synchronously, no state change.
var (
	ErrNotOperator         = errors.New("caller is not the operator")
	ErrUnauthorizedCaller  = errors.New("caller is not the registered custody")
	ErrHandleNotAuthorized = errors.New("handle does not authorize the engine")
)

// External-dependency failures: the engine does not retry these.
var (
	ErrZeroOutput   = errors.New("venue returned zero output")
	ErrInvalidProof = errors.New("invalid transfer proof")
)

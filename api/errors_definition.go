//nolint:lll
package api

import (
	"fmt"
	"net/http"

	"github.com/darkswap-labs/batchswap/engine"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap, DON'T fill it in, that code was used in the past and shouldn't be reused.
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedAddress    = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed address")}
	ErrMalformedID         = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed identifier")}
	ErrBatchNotFound       = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("batch not found")}
	ErrRequestNotFound     = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("request not found")}
	ErrEmptyBacklog        = Error{Code: 40009, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("backlog is empty")}
	ErrBatchLifecycle      = Error{Code: 40010, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("batch lifecycle violation")}
	ErrNotAuthorized       = Error{Code: 40011, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("caller not authorized")}
	ErrCustodyMissing      = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("no custody registered for asset")}
	ErrCustodyDuplicate    = Error{Code: 40013, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("custody already registered for asset")}
	ErrInvalidAmount       = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid amount")}
	ErrInvalidProof        = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid transfer proof")}
	ErrDistributionInput   = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid distribution input")}
	ErrInvalidConfig       = Error{Code: 40017, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid configuration")}
	ErrHandleNotAuthorized = Error{Code: 40018, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("handle does not authorize the engine")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrVenueFailure               = Error{Code: 50003, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("venue execution failed")}
)

// engineErrors maps each engine sentinel to its API error.
var engineErrors = map[error]Error{
	engine.ErrInvalidAddress:         ErrMalformedAddress,
	engine.ErrAlreadyRegistered:      ErrCustodyDuplicate,
	engine.ErrCustodyNotRegistered:   ErrCustodyMissing,
	engine.ErrRequestNotFound:        ErrRequestNotFound,
	engine.ErrBatchNotFound:          ErrBatchNotFound,
	engine.ErrEmptyBacklog:           ErrEmptyBacklog,
	engine.ErrEmptyBatch:             ErrBatchLifecycle,
	engine.ErrUnwrapAlreadyRequested: ErrBatchLifecycle,
	engine.ErrUnwrapNotRequested:     ErrBatchLifecycle,
	engine.ErrAlreadyUnwrapped:       ErrBatchLifecycle,
	engine.ErrAlreadyExecuted:        ErrBatchLifecycle,
	engine.ErrNotExecuted:            ErrBatchLifecycle,
	engine.ErrAlreadyDistributed:     ErrBatchLifecycle,
	engine.ErrBatchBusy:              ErrBatchLifecycle,
	engine.ErrNothingToSwap:          ErrBatchLifecycle,
	engine.ErrZeroAmount:             ErrInvalidAmount,
	engine.ErrZeroTotalInput:         ErrDistributionInput,
	engine.ErrLengthMismatch:         ErrDistributionInput,
	engine.ErrAssetMismatch:          ErrMalformedAddress,
	engine.ErrInvalidConfig:          ErrInvalidConfig,
	engine.ErrNotOperator:            ErrNotAuthorized,
	engine.ErrUnauthorizedCaller:     ErrNotAuthorized,
	engine.ErrHandleNotAuthorized:    ErrHandleNotAuthorized,
	engine.ErrZeroOutput:             ErrVenueFailure,
	engine.ErrInvalidProof:           ErrInvalidProof,
}

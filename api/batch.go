package api

import (
	"encoding/json"
	"net/http"

	"github.com/darkswap-labs/batchswap/crypto/confidential"
	"github.com/darkswap-labs/batchswap/crypto/ecc/curves"
	"github.com/darkswap-labs/batchswap/types"
)

// batch returns a batch snapshot by id
// GET /batches/{batchId}
func (a *API) batch(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, BatchURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	b, err := a.engine.Batch(types.BatchID(id))
	if err != nil {
		fromEngine(err).Write(w)
		return
	}
	resp := &BatchResponse{
		SwapBatch:   b,
		PhaseName:   b.Phase.String(),
		Completed:   b.CompletedCount(),
		Distributed: b.Distributed(),
	}
	if b.AggregateIn != nil {
		resp.AggregateIn = b.AggregateIn.Serialize()
	}
	httpWriteJSON(w, resp)
}

// unwrap requests the custody unwrap of the batch aggregate
// POST /batches/{batchId}/unwrap
func (a *API) unwrap(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, BatchURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	if err := a.engine.RequestUnwrap(r.Context(), a.engine.Operator(), types.BatchID(id)); err != nil {
		fromEngine(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// execute submits the unwrapped batch total to the venue
// POST /batches/{batchId}/execute
func (a *API) execute(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, BatchURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	if err := a.engine.ExecuteBatch(r.Context(), a.engine.Operator(), types.BatchID(id)); err != nil {
		fromEngine(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// distribute settles a batch from confidential outputs with transfer proofs
// POST /batches/{batchId}/distribute
func (a *API) distribute(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, BatchURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	body := &DistributeRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if len(body.Proofs) != len(body.Outputs) {
		ErrDistributionInput.With("outputs and proofs length mismatch").Write(w)
		return
	}

	// proofs deserialize on the curve declared by their handle
	proofs := make([]*confidential.TransferProof, len(body.Proofs))
	for i, raw := range body.Proofs {
		h := body.Outputs[i]
		if h == nil {
			ErrDistributionInput.Withf("missing output handle at index %d", i).Write(w)
			return
		}
		curve, err := curves.New(h.CurveType)
		if err != nil {
			ErrDistributionInput.WithErr(err).Write(w)
			return
		}
		p, err := confidential.UnmarshalProofJSON(curve, raw)
		if err != nil {
			ErrInvalidProof.WithErr(err).Write(w)
			return
		}
		proofs[i] = p
	}

	if err := a.engine.DistributeEncrypted(r.Context(), a.engine.Operator(), types.BatchID(id), body.Outputs, proofs); err != nil {
		fromEngine(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// distributePlain settles a batch proportionally to decrypted inputs
// POST /batches/{batchId}/distribute/plain
func (a *API) distributePlain(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, BatchURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	body := &DistributePlainRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.engine.DistributeByDecryptedInputs(r.Context(), a.engine.Operator(), types.BatchID(id), body.Amounts); err != nil {
		fromEngine(err).Write(w)
		return
	}
	httpWriteOK(w)
}

// events returns the distribution event log
// GET /events
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.engine.Events())
}

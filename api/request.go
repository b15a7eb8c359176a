package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/types"
)

// submitRequest files a confidential swap request
// POST /requests
func (a *API) submitRequest(w http.ResponseWriter, r *http.Request) {
	body := &SubmitRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	reqID, batchID, err := a.engine.SubmitRequest(body.Requester, body.AmountIn, body.MinAmountOut)
	if err != nil {
		fromEngine(err).Write(w)
		return
	}
	log.Infow("new swap request", "requestId", reqID, "requester", body.Requester.Hex())
	httpWriteJSON(w, &SubmitResponse{RequestID: reqID, BatchID: batchID})
}

// submitPlainRequest files a swap request from plaintext amounts
// POST /requests/plain
func (a *API) submitPlainRequest(w http.ResponseWriter, r *http.Request) {
	body := &SubmitPlainRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	reqID, batchID, err := a.engine.SubmitPlainRequest(body.Requester, body.AssetIn, body.AssetOut, body.AmountIn, body.MinAmountOut)
	if err != nil {
		fromEngine(err).Write(w)
		return
	}
	log.Infow("new plain swap request", "requestId", reqID, "requester", body.Requester.Hex())
	httpWriteJSON(w, &SubmitResponse{RequestID: reqID, BatchID: batchID})
}

// request returns a swap request by id
// GET /requests/{requestId}
func (a *API) request(w http.ResponseWriter, r *http.Request) {
	id, apiErr := urlID(r, RequestURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	req, err := a.engine.Request(types.RequestID(id))
	if err != nil {
		fromEngine(err).Write(w)
		return
	}
	httpWriteJSON(w, req)
}

// pairs lists the ordered asset pairs with a pending backlog
// GET /pairs
func (a *API) pairs(w http.ResponseWriter, r *http.Request) {
	keys := a.engine.Pairs()
	out := make([]PairInfo, len(keys))
	for i, k := range keys {
		out[i] = PairInfo{AssetIn: k.AssetIn(), AssetOut: k.AssetOut()}
	}
	httpWriteJSON(w, out)
}

// backlog returns the pending request ids of an ordered pair
// GET /pairs/{assetIn}/{assetOut}/backlog
func (a *API) backlog(w http.ResponseWriter, r *http.Request) {
	assetIn, apiErr := urlAddress(r, AssetInURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	assetOut, apiErr := urlAddress(r, AssetOutURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	pending := a.engine.Backlog(types.NewPairKey(assetIn, assetOut))
	if pending == nil {
		pending = []types.RequestID{}
	}
	httpWriteJSON(w, &BacklogResponse{AssetIn: assetIn, AssetOut: assetOut, Requests: pending})
}

// trigger forces batch formation for an ordered pair
// POST /pairs/{assetIn}/{assetOut}/trigger
func (a *API) trigger(w http.ResponseWriter, r *http.Request) {
	assetIn, apiErr := urlAddress(r, AssetInURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	assetOut, apiErr := urlAddress(r, AssetOutURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	batchID, err := a.engine.ForceBatch(types.NewPairKey(assetIn, assetOut))
	if err != nil {
		fromEngine(err).Write(w)
		return
	}
	log.Infow("batch formation forced", "batchId", batchID)
	httpWriteJSON(w, &TriggerResponse{BatchID: batchID})
}

// quote passes an estimate request through to the venue
// GET /pairs/{assetIn}/{assetOut}/quote?amountIn=N
func (a *API) quote(w http.ResponseWriter, r *http.Request) {
	if a.venue == nil {
		ErrGenericInternalServerError.With("no venue configured").Write(w)
		return
	}
	assetIn, apiErr := urlAddress(r, AssetInURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	assetOut, apiErr := urlAddress(r, AssetOutURLParam)
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	amountIn, apiErr := queryUint64(r, "amountIn")
	if apiErr != nil {
		apiErr.Write(w)
		return
	}
	amounts, err := a.venue.Quote(r.Context(), amountIn, []common.Address{assetIn, assetOut})
	if err != nil {
		ErrVenueFailure.WithErr(err).Write(w)
		return
	}
	out := uint64(0)
	if len(amounts) > 0 {
		out = amounts[len(amounts)-1]
	}
	httpWriteJSON(w, &QuoteResponse{AmountIn: amountIn, AmountOut: out})
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"go.vocdoni.io/dvote/log"
	"go.vocdoni.io/dvote/util"

	"github.com/darkswap-labs/batchswap/custody"
)

// registerCustody creates an in-memory custodian for the given asset, points
// its unwrap sink at the engine and registers it. Each asset gets at most one
// custodian; a second registration fails.
// POST /custody
func (a *API) registerCustody(w http.ResponseWriter, r *http.Request) {
	body := RegisterCustodyBody{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	cust, err := custody.NewInMemory(common.BytesToAddress(util.RandomBytes(20)), body.Asset)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	cust.SetSink(a.engine)
	if err := a.engine.RegisterCustody(a.engine.Operator(), cust); err != nil {
		fromEngine(err).Write(w)
		return
	}
	log.Infow("custody registered",
		"custodian", cust.Address().Hex(),
		"asset", body.Asset.Hex(),
	)
	httpWriteJSON(w, RegisterCustodyResponse{
		Custodian: cust.Address(),
		Asset:     body.Asset,
		PublicKey: cust.PublicKey().Marshal(),
	})
}

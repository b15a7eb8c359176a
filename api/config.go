package api

import (
	"encoding/json"
	"net/http"

	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/engine"
)

// getConfig returns the current engine configuration
// GET /config
func (a *API) getConfig(w http.ResponseWriter, r *http.Request) {
	httpWriteJSON(w, a.engine.Config())
}

// setConfig replaces the engine configuration
// PUT /config
func (a *API) setConfig(w http.ResponseWriter, r *http.Request) {
	cfg := engine.Config{}
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if err := a.engine.SetConfig(a.engine.Operator(), cfg); err != nil {
		fromEngine(err).Write(w)
		return
	}
	log.Infow("configuration replaced",
		"batchThreshold", cfg.BatchThreshold,
		"batchTimeout", cfg.BatchTimeout.String(),
	)
	httpWriteOK(w)
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// urlAddress parses an URL parameter as a hex address.
func urlAddress(r *http.Request, param string) (common.Address, *Error) {
	raw := chi.URLParam(r, param)
	if !common.IsHexAddress(raw) {
		e := ErrMalformedAddress.Withf("%q", raw)
		return common.Address{}, &e
	}
	return common.HexToAddress(raw), nil
}

// urlID parses an URL parameter as a decimal uint64 identifier.
func urlID(r *http.Request, param string) (uint64, *Error) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil {
		e := ErrMalformedID.WithErr(err)
		return 0, &e
	}
	return id, nil
}

// queryUint64 parses a query string parameter as a decimal uint64.
func queryUint64(r *http.Request, param string) (uint64, *Error) {
	v, err := strconv.ParseUint(r.URL.Query().Get(param), 10, 64)
	if err != nil {
		e := ErrMalformedID.Withf("query parameter %q: %v", param, err)
		return 0, &e
	}
	return v, nil
}

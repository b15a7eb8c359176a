// Package api exposes the batch swap engine over HTTP: request intake, pair
// backlogs and triggers, the batch lifecycle operations and the engine
// configuration. The server is run by the operator; lifecycle endpoints act
// with the operator identity.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.vocdoni.io/dvote/log"

	"github.com/darkswap-labs/batchswap/engine"
	"github.com/darkswap-labs/batchswap/venue"
)

// APIConfig type represents the configuration for the API HTTP server.
type APIConfig struct {
	Host   string
	Port   int
	Engine *engine.Engine
	Venue  venue.Venue
}

// API type represents the API HTTP server.
type API struct {
	router *chi.Mux
	engine *engine.Engine
	venue  venue.Venue
}

// New creates a new API instance with the given configuration and starts the
// HTTP server.
func New(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Engine == nil {
		return nil, fmt.Errorf("missing engine instance")
	}
	a := &API{
		engine: conf.Engine,
		venue:  conf.Venue,
	}

	// Initialize router
	a.initRouter()
	go func() {
		log.Infow("Starting API server", "host", conf.Host, "port", conf.Port)
		if err := http.ListenAndServe(fmt.Sprintf("%s:%d", conf.Host, conf.Port), a.router); err != nil {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", RequestsEndpoint, "method", "POST")
	a.router.Post(RequestsEndpoint, a.submitRequest)
	log.Infow("register handler", "endpoint", PlainRequestsEndpoint, "method", "POST")
	a.router.Post(PlainRequestsEndpoint, a.submitPlainRequest)
	log.Infow("register handler", "endpoint", RequestEndpoint, "method", "GET")
	a.router.Get(RequestEndpoint, a.request)
	log.Infow("register handler", "endpoint", PairsEndpoint, "method", "GET")
	a.router.Get(PairsEndpoint, a.pairs)
	log.Infow("register handler", "endpoint", BacklogEndpoint, "method", "GET")
	a.router.Get(BacklogEndpoint, a.backlog)
	log.Infow("register handler", "endpoint", TriggerEndpoint, "method", "POST")
	a.router.Post(TriggerEndpoint, a.trigger)
	log.Infow("register handler", "endpoint", QuoteEndpoint, "method", "GET")
	a.router.Get(QuoteEndpoint, a.quote)
	log.Infow("register handler", "endpoint", BatchEndpoint, "method", "GET")
	a.router.Get(BatchEndpoint, a.batch)
	log.Infow("register handler", "endpoint", UnwrapEndpoint, "method", "POST")
	a.router.Post(UnwrapEndpoint, a.unwrap)
	log.Infow("register handler", "endpoint", ExecuteEndpoint, "method", "POST")
	a.router.Post(ExecuteEndpoint, a.execute)
	log.Infow("register handler", "endpoint", DistributeEndpoint, "method", "POST")
	a.router.Post(DistributeEndpoint, a.distribute)
	log.Infow("register handler", "endpoint", DistributePlainEndpoint, "method", "POST")
	a.router.Post(DistributePlainEndpoint, a.distributePlain)
	log.Infow("register handler", "endpoint", CustodyEndpoint, "method", "POST")
	a.router.Post(CustodyEndpoint, a.registerCustody)
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	a.router.Get(EventsEndpoint, a.events)
	log.Infow("register handler", "endpoint", ConfigEndpoint, "method", "GET")
	a.router.Get(ConfigEndpoint, a.getConfig)
	log.Infow("register handler", "endpoint", ConfigEndpoint, "method", "PUT")
	a.router.Put(ConfigEndpoint, a.setConfig)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}

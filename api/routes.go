package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// RequestsEndpoint is the endpoint for submitting a confidential swap request
	RequestsEndpoint = "/requests"
	// PlainRequestsEndpoint is the endpoint for submitting a plaintext swap request
	PlainRequestsEndpoint = "/requests/plain"
	// RequestEndpoint is the endpoint to get a swap request by id
	RequestURLParam = "requestId"
	RequestEndpoint = "/requests/{" + RequestURLParam + "}"
	// PairsEndpoint lists the asset pairs with a pending backlog
	PairsEndpoint = "/pairs"
	// BacklogEndpoint returns the pending request ids of an ordered pair
	AssetInURLParam  = "assetIn"
	AssetOutURLParam = "assetOut"
	BacklogEndpoint  = "/pairs/{" + AssetInURLParam + "}/{" + AssetOutURLParam + "}/backlog"
	// TriggerEndpoint forces batch formation for an ordered pair
	TriggerEndpoint = "/pairs/{" + AssetInURLParam + "}/{" + AssetOutURLParam + "}/trigger"
	// QuoteEndpoint passes a quote request through to the venue
	QuoteEndpoint = "/pairs/{" + AssetInURLParam + "}/{" + AssetOutURLParam + "}/quote"
	// BatchEndpoint is the endpoint to get a batch by id
	BatchURLParam = "batchId"
	BatchEndpoint = "/batches/{" + BatchURLParam + "}"
	// UnwrapEndpoint requests the custody unwrap of a batch aggregate
	UnwrapEndpoint = "/batches/{" + BatchURLParam + "}/unwrap"
	// ExecuteEndpoint submits the unwrapped batch total to the venue
	ExecuteEndpoint = "/batches/{" + BatchURLParam + "}/execute"
	// DistributeEndpoint settles a batch from confidential outputs with proofs
	DistributeEndpoint = "/batches/{" + BatchURLParam + "}/distribute"
	// DistributePlainEndpoint settles a batch proportionally to decrypted inputs
	DistributePlainEndpoint = "/batches/{" + BatchURLParam + "}/distribute/plain"
	// CustodyEndpoint registers an in-memory custodian for an asset
	CustodyEndpoint = "/custody"
	// EventsEndpoint returns the distribution event log
	EventsEndpoint = "/events"
	// ConfigEndpoint reads or replaces the engine configuration
	ConfigEndpoint = "/config"
)

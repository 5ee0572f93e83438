package rpc

const (
	Name            = "counter"
	JSONRPCEndpoint = "/rpc"
	MetricsEndpoint = "/metrics"
)

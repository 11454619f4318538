package log

const (
	// Request
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldLatency   = "latency_ms"
	FieldClientIP  = "client_ip"

	// Pipeline
	FieldKeyword   = "keyword"
	FieldCacheKey  = "cache_key"
	FieldProvider  = "provider"
	FieldConfigKey = "config_key"

	// Service
	FieldService = "service"
)

package models

import "time"

// SystemMetrics summarises process instrumentation for the ops endpoint.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	GatewayCalls             uint64    `json:"gateway_calls"`
	GatewayErrors            uint64    `json:"gateway_errors"`
	StaleResponses           uint64    `json:"stale_responses"`
	ActiveViews              int64     `json:"active_views"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// Package handler serves the vault over HTTP: the JSON item API, the
// probes and the WebSocket snapshot stream.
package handler

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the readiness probe body. Items is the vault size seen
// by the probe, useful to confirm a seed file was applied.
type ReadyResponse struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
}

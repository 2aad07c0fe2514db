// Package api defines the JSON types served by the textkit HTTP API.
package api

// ErrorResponse is the envelope for all API errors.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error message and type
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// StatusResponse acknowledges a mutation with no payload.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ChatReplyResponse is returned after a chat message round trip.
type ChatReplyResponse struct {
	Reply string `json:"reply"`
	Model string `json:"model"`
}

// VersionResponse describes the running server.
type VersionResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

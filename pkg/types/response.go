// Package types holds the storefront API's response envelopes. Every handler
// answers with either a SuccessEnvelope or an ErrorEnvelope.
package types

// SuccessEnvelope wraps a handler's payload, including order confirmations
// and catalog pages.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a pkg/errors coded error. Details carries
// per-field validation problems or stock conflict specifics when the code
// allows exposing them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

package x402

import (
	"encoding/json"
	"fmt"
)

// ConfigError reports malformed or missing configuration. Key names the
// offending environment key when one applies. Configuration errors always
// surface before any network call is made.
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s %s", e.Key, e.Reason)
}

// FacilitatorError reports a failed round trip to the facilitator: a
// non-2xx status or a body that could not be decoded as JSON. Status and
// Body carry the raw HTTP response for diagnostics.
type FacilitatorError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FacilitatorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse JSON from facilitator at %s: %s", e.URL, e.Body)
	}
	return fmt.Sprintf("facilitator at %s responded with %d: %s", e.URL, e.Status, e.Body)
}

func (e *FacilitatorError) Unwrap() error { return e.Err }

// RejectionError reports that the facilitator explicitly refused the
// payment during verification (isValid: false). It is terminal for the
// attempt: retrying requires a freshly built authorization with a new
// nonce and time window. Response holds the facilitator's full reply.
type RejectionError struct {
	Response json.RawMessage
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("payment rejected: %s", string(e.Response))
}

// Package bridge matches POI search and lookup requests from the engine to
// exactly one correlated response each, delegating to a pluggable provider or
// synthesizing a failure when none can serve the request.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind is the request type; it also names the channel its response goes to.
type Kind string

const (
	KindSearch Kind = "search"
	KindLookup Kind = "lookup"
)

// Response statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)

// ErrorCodeInternal is used for every response the bridge builds on behalf
// of a provider.
const ErrorCodeInternal = "INTERNAL_ERROR"

// DefaultFailureMessage is the errorMessage of the synthesized failure when
// no provider is wired.
const DefaultFailureMessage = "No local search provider is configured"

var (
	// ErrInvalidRequest means the payload is not a JSON object.
	ErrInvalidRequest = errors.New("bridge: request is not a valid JSON object")
	// ErrMissingRequestID means requestId is absent, empty or not a string.
	ErrMissingRequestID = errors.New("bridge: request has no requestId")
	// ErrAlreadyResponded is returned by a Responder after its single response.
	ErrAlreadyResponded = errors.New("bridge: request already has a response")
	// ErrRequestIDMismatch means a provider answered with another request's id.
	ErrRequestIDMismatch = errors.New("bridge: response requestId does not match request")
)

// Request is one inbound search or lookup request. Payload is kept verbatim.
type Request struct {
	ID      string
	Kind    Kind
	Payload json.RawMessage
}

type requestEnvelope struct {
	RequestID *string `json:"requestId"`
}

// ParseRequest extracts the requestId from payload.
func ParseRequest(kind Kind, payload []byte) (*Request, error) {
	var env requestEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field == "requestId" {
			return nil, fmt.Errorf("%w: requestId is a %s", ErrMissingRequestID, typeErr.Value)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if env.RequestID == nil || *env.RequestID == "" {
		return nil, ErrMissingRequestID
	}
	raw := make(json.RawMessage, len(payload))
	copy(raw, payload)
	return &Request{ID: *env.RequestID, Kind: kind, Payload: raw}, nil
}

// SearchQuery is the part of a search request providers usually need.
type SearchQuery struct {
	RequestID       string          `json:"requestId"`
	Query           string          `json:"query"`
	QueryType       string          `json:"queryType,omitempty"`
	RankingStrategy string          `json:"rankingStrategy,omitempty"`
	NumOfResults    int             `json:"numOfResults,omitempty"`
	Geolocation     []float64       `json:"geolocation,omitempty"`
	Locale          string          `json:"locale,omitempty"`
	SearchLocation  json.RawMessage `json:"searchLocation,omitempty"`
}

// LookupQuery is a lookup request for details of previously returned POIs.
type LookupQuery struct {
	RequestID string   `json:"requestId"`
	LookupIDs []string `json:"lookupIds"`
}

// Search decodes the payload of a search request.
func (r *Request) Search() (*SearchQuery, error) {
	if r.Kind != KindSearch {
		return nil, fmt.Errorf("bridge: %s request is not a search", r.Kind)
	}
	var q SearchQuery
	if err := json.Unmarshal(r.Payload, &q); err != nil {
		return nil, fmt.Errorf("bridge: decode search request %s: %w", r.ID, err)
	}
	return &q, nil
}

// Lookup decodes the payload of a lookup request.
func (r *Request) Lookup() (*LookupQuery, error) {
	if r.Kind != KindLookup {
		return nil, fmt.Errorf("bridge: %s request is not a lookup", r.Kind)
	}
	var q LookupQuery
	if err := json.Unmarshal(r.Payload, &q); err != nil {
		return nil, fmt.Errorf("bridge: decode lookup request %s: %w", r.ID, err)
	}
	return &q, nil
}

// Response is a correlated search or lookup response.
type Response struct {
	RequestID string          `json:"requestId"`
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail is the error block of a FAIL response.
type ErrorDetail struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// FailureResponse builds the FAIL response for requestID.
func FailureResponse(requestID, code, message string) *Response {
	return &Response{
		RequestID: requestID,
		Status:    StatusFail,
		Error:     &ErrorDetail{ErrorCode: code, ErrorMessage: message},
	}
}

// responseID reads the requestId of an encoded response.
func responseID(payload []byte) (string, error) {
	var env requestEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if env.RequestID == nil || *env.RequestID == "" {
		return "", ErrMissingRequestID
	}
	return *env.RequestID, nil
}

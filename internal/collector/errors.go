package collector

import (
	"errors"
	"fmt"
)

// ErrorType categorizes a failed price fetch for observability.
type ErrorType string

const (
	ErrorValidation      ErrorType = "validation_error"
	ErrorCoinGeckoAPI    ErrorType = "coingecko_api_error"
	ErrorNetworkInternal ErrorType = "network_or_internal_error"
	ErrorUnknown         ErrorType = "unknown"
)

// APIError is returned when the oracle answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("CoinGecko error: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("CoinGecko error: %s", e.Status)
}

// ValidationError is returned when the oracle payload does not have the expected shape.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid price payload: " + e.Reason
	}
	return fmt.Sprintf("invalid price payload: %s: %s", e.Field, e.Reason)
}

// NetworkError wraps transport and decode failures.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// Classify maps an error returned by the collector to its category.
func Classify(err error) ErrorType {
	var (
		apiErr *APIError
		valErr *ValidationError
		netErr *NetworkError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &valErr):
		return ErrorValidation
	case errors.As(err, &apiErr):
		return ErrorCoinGeckoAPI
	case errors.As(err, &netErr):
		return ErrorNetworkInternal
	default:
		return ErrorUnknown
	}
}

package dto

import (
	"net/http"

	"github.com/erp/shopfloor/internal/domain/production"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	// ErrCodeValidation is used when request binding fails a validator tag
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for well formed input the engine rejects
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeInvalidState  = "ERR_INVALID_STATE"
)

// Attribution error codes
const (
	// ErrCodeDuplicateAttribution is used when the item already has an event at the station
	ErrCodeDuplicateAttribution = "ERR_DUPLICATE_ATTRIBUTION"
	// ErrCodeEmployeeInvalid is used when the chosen employee is unknown or inactive
	ErrCodeEmployeeInvalid = "ERR_EMPLOYEE_INVALID"
	// ErrCodeQueryTimeout is used when the event store misses its time budget; retryable
	ErrCodeQueryTimeout = "ERR_QUERY_TIMEOUT"
	// ErrCodeStationNotConfigured marks missing reference data
	ErrCodeStationNotConfigured = "ERR_STATION_NOT_CONFIGURED"
	// ErrCodeUnsafeWindow marks a synthesized window that failed the post-condition guard
	ErrCodeUnsafeWindow = "ERR_SYNTHESIS_UNSAFE_WINDOW"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,

	ErrCodeDuplicateAttribution: http.StatusConflict,
	ErrCodeEmployeeInvalid:      http.StatusUnprocessableEntity,
	ErrCodeQueryTimeout:         http.StatusServiceUnavailable,
	ErrCodeStationNotConfigured: http.StatusInternalServerError,
	ErrCodeUnsafeWindow:         http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":      ErrCodeNotFound,
	"ALREADY_EXISTS": ErrCodeAlreadyExists,
	"INVALID_INPUT":  ErrCodeInvalidInput,
	"INVALID_STATE":  ErrCodeInvalidState,

	production.CodeDuplicateAttribution:  ErrCodeDuplicateAttribution,
	production.CodeEmployeeInvalid:       ErrCodeEmployeeInvalid,
	production.CodeQueryTimeout:          ErrCodeQueryTimeout,
	production.CodeStationNotConfigured:  ErrCodeStationNotConfigured,
	production.CodeSynthesisUnsafeWindow: ErrCodeUnsafeWindow,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes already in API form or unknown pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}

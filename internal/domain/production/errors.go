package production

import (
	"errors"

	"github.com/erp/shopfloor/internal/domain/shared"
)

// Error codes used by the attribution engine
const (
	CodeValidationExcluded    = "VALIDATION_EXCLUDED"
	CodeNoDataAvailable       = "NO_DATA_AVAILABLE"
	CodeQueryTimeout          = "QUERY_TIMEOUT"
	CodeDuplicateAttribution  = "DUPLICATE_ATTRIBUTION"
	CodeEmployeeInvalid       = "EMPLOYEE_INVALID"
	CodeStationNotConfigured  = "STATION_NOT_CONFIGURED"
	CodeSynthesisUnsafeWindow = "SYNTHESIS_UNSAFE_WINDOW"
)

var (
	// ErrNoDataAvailable marks an empty valid event set. Reports surface it as
	// a status, never as a failure.
	ErrNoDataAvailable = shared.NewDomainError(CodeNoDataAvailable, "No production data available for the selected filters")
	// ErrQueryTimeout is returned when the event store does not answer within the time budget
	ErrQueryTimeout = shared.NewDomainError(CodeQueryTimeout, "Event query timed out, narrow the date range and retry")
	// ErrDuplicateAttribution is returned when the item already has an event at the target station
	ErrDuplicateAttribution = shared.NewDomainError(CodeDuplicateAttribution, "Item already has an attribution for this station")
	// ErrEmployeeInvalid is returned when the chosen employee is unknown or inactive
	ErrEmployeeInvalid = shared.NewDomainError(CodeEmployeeInvalid, "Employee not found or inactive")
	// ErrStationNotConfigured is a setup defect: the target station is missing from reference data
	ErrStationNotConfigured = shared.NewDomainError(CodeStationNotConfigured, "Target station is not configured")
	// ErrSynthesisUnsafeWindow guards against a synthetic event with a non-positive or implausible window
	ErrSynthesisUnsafeWindow = shared.NewDomainError(CodeSynthesisUnsafeWindow, "Synthesized attribution window is unsafe")
)

// IsRetryable reports whether the caller may retry the operation unchanged
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQueryTimeout)
}

// IsConfigurationError reports whether err indicates a setup defect rather than bad data
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrStationNotConfigured) || errors.Is(err, ErrSynthesisUnsafeWindow)
}

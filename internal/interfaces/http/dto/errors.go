package dto

import (
	"errors"
	"net/http"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// General error codes
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeNotFound   = "ERR_NOT_FOUND"
	ErrCodeConflict   = "ERR_CONFLICT"
)

// Pages the client is sent to when an account-level denial needs a
// human decision
const (
	UpgradeURL       = "/billing/upgrade"
	BillingUpdateURL = "/billing/update"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,
	ErrCodeConflict:   http.StatusConflict,

	"TENANT_NOT_FOUND": http.StatusNotFound,

	billing.ReasonQuotaExceeded:    http.StatusTooManyRequests,
	billing.ReasonAccountReadOnly:  http.StatusForbidden,
	billing.ReasonAccountSuspended: http.StatusForbidden,
	billing.ReasonAccountCancelled: http.StatusForbidden,
}

// HTTPStatusForCode returns the HTTP status for an error code,
// defaulting to 500 for unknown codes
func HTTPStatusForCode(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError maps a service error to an HTTP status and response body.
func FromError(err error) (int, Response) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := HTTPStatusForCode(domainErr.Code)
		if status == http.StatusInternalServerError && !isKnownCode(domainErr.Code) {
			// Domain validation codes are client faults, not 500s
			status = http.StatusUnprocessableEntity
		}
		return status, NewErrorResponse(domainErr.Code, domainErr.Message)
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, NewErrorResponse(ErrCodeNotFound, "Resource not found")
	case errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, NewErrorResponse(ErrCodeConflict, "Resource already exists")
	case errors.Is(err, shared.ErrConcurrencyConflict):
		return http.StatusConflict, NewErrorResponse(ErrCodeConflict, "Resource was modified concurrently, retry the request")
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, NewErrorResponse(ErrCodeBadRequest, "Invalid input")
	default:
		return http.StatusInternalServerError, NewErrorResponse(ErrCodeInternal, "Internal server error")
	}
}

func isKnownCode(code string) bool {
	_, ok := ErrorCodeHTTPStatus[code]
	return ok
}

// FromCheckResult maps a quota denial to an HTTP status and response
// body. Quota denials carry an upgrade link; billing blocks point at
// the billing page instead.
func FromCheckResult(result billing.CheckResult) (int, Response) {
	status := HTTPStatusForCode(result.ReasonCode)

	url := UpgradeURL
	if result.ReasonCode == billing.ReasonAccountSuspended {
		url = BillingUpdateURL
	}

	return status, NewErrorResponseWithUpgrade(result.ReasonCode, result.Message, url)
}

package billing

import (
	"fmt"

	"github.com/pathsix/crm-backend/internal/domain/identity"
)

// Machine-readable reason codes carried on denials
const (
	ReasonQuotaExceeded    = "QUOTA_EXCEEDED"
	ReasonAccountReadOnly  = "ACCOUNT_READ_ONLY"
	ReasonAccountSuspended = "ACCOUNT_SUSPENDED"
	ReasonAccountCancelled = "ACCOUNT_CANCELLED"
)

// CheckResult is the structured outcome of an admission check. Expected
// business denials (over quota, account blocked) come back as a Deny
// result, never as an error; errors are reserved for faults in the
// check itself.
type CheckResult struct {
	Allowed      bool              `json:"allowed"`
	ReasonCode   string            `json:"reason_code,omitempty"`
	Message      string            `json:"message,omitempty"`
	Dimension    QuotaDimension    `json:"dimension,omitempty"`
	CurrentUsage int64             `json:"current_usage,omitempty"`
	Limit        int64             `json:"limit,omitempty"`
	PlanTier     identity.PlanTier `json:"plan_tier,omitempty"`
}

// Allow returns a passing check result
func Allow() CheckResult {
	return CheckResult{Allowed: true}
}

// DenyQuotaExceeded returns a denial with enough numeric detail for the
// caller to render an upgrade prompt
func DenyQuotaExceeded(dimension QuotaDimension, current, limit int64, tier identity.PlanTier) CheckResult {
	return CheckResult{
		Allowed:      false,
		ReasonCode:   ReasonQuotaExceeded,
		Message:      fmt.Sprintf("Limit of %d %s reached on the %s plan", limit, dimension.DisplayName(), tier),
		Dimension:    dimension,
		CurrentUsage: current,
		Limit:        limit,
		PlanTier:     tier,
	}
}

// DenyReadOnly returns a denial for a tenant in read-only mode
func DenyReadOnly() CheckResult {
	return CheckResult{
		Allowed:    false,
		ReasonCode: ReasonAccountReadOnly,
		Message:    "Account is in read-only mode because plan limits were exceeded",
	}
}

// DenySuspended returns a denial for a suspended tenant
func DenySuspended() CheckResult {
	return CheckResult{
		Allowed:    false,
		ReasonCode: ReasonAccountSuspended,
		Message:    "Account is suspended due to a billing issue",
	}
}

// DenyCancelled returns a denial for a cancelled tenant
func DenyCancelled() CheckResult {
	return CheckResult{
		Allowed:    false,
		ReasonCode: ReasonAccountCancelled,
		Message:    "Account has been cancelled",
	}
}

// Package billing provides domain models for tenant usage tracking and quota enforcement.
//
// This package implements the quota bounded context, which is responsible for:
//   - Tracking per-tenant usage counters across quota dimensions (storage,
//     database records, daily API calls, monthly emails)
//   - Defining plan limits per subscription tier, including feature flags
//   - Deciding whether an operation is admitted given the tenant's status,
//     current usage, and plan limits
//
// Key Aggregates:
//   - UsageCounter: Mutable per-tenant usage state with reset-window metadata
//   - PlanLimit: Quota ceilings for a subscription tier
//
// Value Objects:
//   - QuotaDimension: Closed enumeration of limited resource types
//   - UsageKind: Enumeration of trackable usage events
//   - CheckResult: Structured allow/deny outcome of an admission check
//
// The billing domain integrates with:
//   - Identity domain: For tenant status and plan tier
//   - CRM domains: As sources of usage events and ledger queries
package billing

package dto

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "not found sentinel",
			err:        fmt.Errorf("lookup: %w", shared.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantCode:   ErrCodeNotFound,
		},
		{
			name:       "already exists sentinel",
			err:        shared.ErrAlreadyExists,
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeConflict,
		},
		{
			name:       "concurrency conflict sentinel",
			err:        shared.ErrConcurrencyConflict,
			wantStatus: http.StatusConflict,
			wantCode:   ErrCodeConflict,
		},
		{
			name:       "missing tenant domain error",
			err:        shared.NewDomainError("TENANT_NOT_FOUND", "Tenant not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "TENANT_NOT_FOUND",
		},
		{
			name:       "unknown domain error code",
			err:        shared.NewDomainError("SUBDOMAIN_TAKEN", "Subdomain is already in use"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "SUBDOMAIN_TAKEN",
		},
		{
			name:       "opaque error",
			err:        errors.New("connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestFromCheckResult(t *testing.T) {
	t.Run("quota denial maps to 429 with upgrade link", func(t *testing.T) {
		result := billing.DenyQuotaExceeded(billing.DimensionRecords, 100, 100, identity.PlanTierFree)

		status, resp := FromCheckResult(result)
		assert.Equal(t, http.StatusTooManyRequests, status)
		assert.Equal(t, billing.ReasonQuotaExceeded, resp.Error.Code)
		assert.Equal(t, UpgradeURL, resp.Error.UpgradeURL)
	})

	t.Run("read-only denial maps to 403", func(t *testing.T) {
		status, resp := FromCheckResult(billing.DenyReadOnly())
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, UpgradeURL, resp.Error.UpgradeURL)
	})

	t.Run("suspended denial points at billing update", func(t *testing.T) {
		status, resp := FromCheckResult(billing.DenySuspended())
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, BillingUpdateURL, resp.Error.UpgradeURL)
	})
}

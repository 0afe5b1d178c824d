package identity

import (
	"context"

	"github.com/google/uuid"
)

// TenantRepository defines the persistence interface for tenants
type TenantRepository interface {
	Save(ctx context.Context, tenant *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
	FindByStatus(ctx context.Context, status TenantStatus) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
}

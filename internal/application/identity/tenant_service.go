package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
)

// TenantService handles tenant provisioning and queries
type TenantService struct {
	tenantRepo identity.TenantRepository
	logger     *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(tenantRepo identity.TenantRepository, logger *zap.Logger) *TenantService {
	return &TenantService{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// CreateTenantInput carries the fields for provisioning a tenant
type CreateTenantInput struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	Subdomain    string `json:"subdomain" binding:"required,subdomain,min=3,max=100"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// TenantDTO is the read model returned to the interface layer
type TenantDTO struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Subdomain    string     `json:"subdomain"`
	Status       string     `json:"status"`
	Plan         string     `json:"plan"`
	ContactEmail string     `json:"contact_email,omitempty"`
	SuspendedAt  *time.Time `json:"suspended_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Create provisions a new tenant on the free plan
func (s *TenantService) Create(ctx context.Context, input CreateTenantInput) (*TenantDTO, error) {
	tenant, err := identity.NewTenant(input.Name, input.Subdomain)
	if err != nil {
		return nil, err
	}
	tenant.ContactEmail = input.ContactEmail

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.NewDomainError("SUBDOMAIN_TAKEN", "Subdomain is already in use")
		}
		s.logger.Error("Failed to save tenant",
			zap.String("subdomain", tenant.Subdomain),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subdomain", tenant.Subdomain))

	return toTenantDTO(tenant), nil
}

// GetByID returns one tenant by its ID
func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// GetBySubdomain returns one tenant by its subdomain
func (s *TenantService) GetBySubdomain(ctx context.Context, subdomain string) (*TenantDTO, error) {
	tenant, err := s.tenantRepo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, err
	}
	return toTenantDTO(tenant), nil
}

// ListByStatus returns all tenants in the given status
func (s *TenantService) ListByStatus(ctx context.Context, status identity.TenantStatus) ([]*TenantDTO, error) {
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown tenant status")
	}

	tenants, err := s.tenantRepo.FindByStatus(ctx, status)
	if err != nil {
		return nil, err
	}

	dtos := make([]*TenantDTO, 0, len(tenants))
	for _, t := range tenants {
		dtos = append(dtos, toTenantDTO(t))
	}
	return dtos, nil
}

func toTenantDTO(tenant *identity.Tenant) *TenantDTO {
	return &TenantDTO{
		ID:           tenant.ID,
		Name:         tenant.Name,
		Subdomain:    tenant.Subdomain,
		Status:       tenant.Status.String(),
		Plan:         tenant.Plan.String(),
		ContactEmail: tenant.ContactEmail,
		SuspendedAt:  tenant.SuspendedAt,
		CancelledAt:  tenant.CancelledAt,
		CreatedAt:    tenant.CreatedAt,
		UpdatedAt:    tenant.UpdatedAt,
	}
}

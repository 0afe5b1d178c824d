package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/shared"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence/models"
)

// GormUsageCounterRepository implements billing.UsageCounterRepository
// using GORM
type GormUsageCounterRepository struct {
	db *gorm.DB
}

var _ billing.UsageCounterRepository = (*GormUsageCounterRepository)(nil)

// NewGormUsageCounterRepository creates a new GormUsageCounterRepository
func NewGormUsageCounterRepository(db *gorm.DB) *GormUsageCounterRepository {
	return &GormUsageCounterRepository{db: db}
}

// GetOrCreate returns the tenant's counter, creating a zeroed one if
// none exists. The insert ignores conflicts on the unique tenant index
// and re-reads, so concurrent first-touch callers converge on one row.
func (r *GormUsageCounterRepository) GetOrCreate(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	if counter, err := r.FindByTenantID(ctx, tenantID); err == nil {
		return counter, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	counter, err := billing.NewUsageCounter(tenantID)
	if err != nil {
		return nil, err
	}

	model := models.UsageCounterModelFromDomain(counter)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}},
			DoNothing: true,
		}).
		Create(model).Error; err != nil {
		return nil, err
	}

	// Re-read so a racing creator's row wins over our in-memory one
	return r.FindByTenantID(ctx, tenantID)
}

// FindByTenantID finds the counter for a tenant
func (r *GormUsageCounterRepository) FindByTenantID(ctx context.Context, tenantID uuid.UUID) (*billing.UsageCounter, error) {
	var model models.UsageCounterModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update persists counter changes in a single row write
func (r *GormUsageCounterRepository) Update(ctx context.Context, counter *billing.UsageCounter) error {
	model := models.UsageCounterModelFromDomain(counter)
	result := r.db.WithContext(ctx).
		Model(&models.UsageCounterModel{}).
		Where("tenant_id = ?", model.TenantID).
		Select("storage_bytes", "db_record_count", "api_calls_today",
			"emails_this_month", "api_calls_reset_at", "emails_reset_at", "updated_at").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

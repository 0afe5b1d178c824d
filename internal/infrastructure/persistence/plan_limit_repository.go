package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/domain/identity"
	"github.com/pathsix/crm-backend/internal/domain/shared"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence/models"
)

// GormPlanLimitRepository implements billing.PlanLimitRepository using GORM
type GormPlanLimitRepository struct {
	db *gorm.DB
}

var _ billing.PlanLimitRepository = (*GormPlanLimitRepository)(nil)

// NewGormPlanLimitRepository creates a new GormPlanLimitRepository
func NewGormPlanLimitRepository(db *gorm.DB) *GormPlanLimitRepository {
	return &GormPlanLimitRepository{db: db}
}

// FindByTier finds the limits for one plan tier
func (r *GormPlanLimitRepository) FindByTier(ctx context.Context, tier identity.PlanTier) (*billing.PlanLimit, error) {
	var model models.PlanLimitModel
	if err := r.db.WithContext(ctx).
		Where("plan_tier = ?", tier).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns the full limit table
func (r *GormPlanLimitRepository) FindAll(ctx context.Context) ([]*billing.PlanLimit, error) {
	var limitModels []models.PlanLimitModel
	if err := r.db.WithContext(ctx).
		Order("plan_tier").
		Find(&limitModels).Error; err != nil {
		return nil, err
	}

	limits := make([]*billing.PlanLimit, len(limitModels))
	for i := range limitModels {
		limits[i] = limitModels[i].ToDomain()
	}
	return limits, nil
}

// Save upserts the limits for a tier. Administrative updates replace
// the existing row rather than erroring on the unique tier index.
func (r *GormPlanLimitRepository) Save(ctx context.Context, limit *billing.PlanLimit) error {
	model := models.PlanLimitModelFromDomain(limit)
	if model.ID == uuid.Nil {
		// Seeding from the built-in defaults passes rows without IDs
		model.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "plan_tier"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"max_users", "max_storage_bytes", "max_db_records",
				"max_api_calls_per_day", "max_emails_per_month",
				"features", "updated_at",
			}),
		}).
		Create(model).Error
}

package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathsix/crm-backend/internal/domain/billing"
	"github.com/pathsix/crm-backend/internal/infrastructure/persistence/models"
)

// GormStorageLedger answers storage usage queries against the files
// table. Soft-deleted files are excluded by GORM's deleted_at scope.
type GormStorageLedger struct {
	db *gorm.DB
}

var _ billing.StorageLedger = (*GormStorageLedger)(nil)

// NewGormStorageLedger creates a new GormStorageLedger
func NewGormStorageLedger(db *gorm.DB) *GormStorageLedger {
	return &GormStorageLedger{db: db}
}

// TotalFileBytes returns the sum of sizes of the tenant's live files
func (l *GormStorageLedger) TotalFileBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total *int64
	if err := l.db.WithContext(ctx).
		Model(&models.FileModel{}).
		Where("tenant_id = ?", tenantID).
		Select("SUM(size_bytes)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

// GormEntityLedger answers record-count queries against the countable
// CRM entity tables
type GormEntityLedger struct {
	db *gorm.DB
}

var _ billing.EntityLedger = (*GormEntityLedger)(nil)

// NewGormEntityLedger creates a new GormEntityLedger
func NewGormEntityLedger(db *gorm.DB) *GormEntityLedger {
	return &GormEntityLedger{db: db}
}

// Countable entity types. A new CRM entity that should count against
// the records quota gets added here.
func countableModels() []interface{} {
	return []interface{}{
		&models.ClientModel{},
		&models.LeadModel{},
		&models.ContactModel{},
		&models.ProjectModel{},
		&models.InteractionModel{},
	}
}

// CountRecords returns the total number of live countable entities for
// the tenant
func (l *GormEntityLedger) CountRecords(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var total int64
	for _, model := range countableModels() {
		var count int64
		if err := l.db.WithContext(ctx).
			Model(model).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

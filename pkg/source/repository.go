package source

import (
	"context"

	"github.com/auscare-mdm/platform/pkg/common/models"
	"gorm.io/gorm"
)

// Repository reads patient records from the configured source table.
// Source records are owned upstream; this repository never writes.
type Repository struct {
	db    *gorm.DB
	table string
}

func NewRepository(db *gorm.DB, table string) *Repository {
	return &Repository{db: db, table: table}
}

func (r *Repository) Table() string {
	return r.table
}

func (r *Repository) List(ctx context.Context) ([]models.SourceRecord, error) {
	var records []models.SourceRecord
	result := r.db.WithContext(ctx).
		Table(r.table).
		Order("patient_id").
		Find(&records)
	return records, result.Error
}

func (r *Repository) GetByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error) {
	var records []models.SourceRecord
	result := r.db.WithContext(ctx).
		Table(r.table).
		Where("patient_id IN ?", ids).
		Order("patient_id").
		Find(&records)
	return records, result.Error
}

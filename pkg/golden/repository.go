package golden

import (
	"context"
	"errors"
	"time"

	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("golden record not found")

// Repository persists golden records in the configured golden table and
// stewardship decisions in their audit table. Golden records are never
// deleted; rejected ones stay for audit.
type Repository struct {
	db    *gorm.DB
	table string
}

func NewRepository(db *gorm.DB, table string) *Repository {
	return &Repository{db: db, table: table}
}

func (r *Repository) AutoMigrate() error {
	if err := r.db.Table(r.table).AutoMigrate(&models.GoldenRecord{}); err != nil {
		return err
	}
	return r.db.AutoMigrate(&models.StewardshipDecision{})
}

func (r *Repository) Create(ctx context.Context, record *models.GoldenRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now
	if record.StewardStatus == "" {
		record.StewardStatus = models.StatusPending
	}
	return r.db.WithContext(ctx).Table(r.table).Create(record).Error
}

func (r *Repository) Get(ctx context.Context, id string) (models.GoldenRecord, error) {
	var record models.GoldenRecord
	result := r.db.WithContext(ctx).Table(r.table).Where("id = ?", id).First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return models.GoldenRecord{}, ErrNotFound
	}
	return record, result.Error
}

func (r *Repository) List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Table(r.table).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("steward_status = ?", status)
	}
	var records []models.GoldenRecord
	result := query.Find(&records)
	return records, result.Error
}

// ApplyDecision performs the single conditional update that serializes
// stewardship transitions: it only touches a record still pending. The
// returned count is zero when the record is missing or already terminal.
func (r *Repository) ApplyDecision(ctx context.Context, id string, updates map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Table(r.table).
		Where("id = ? AND steward_status = ?", id, models.StatusPending).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *Repository) RecordDecision(ctx context.Context, decision *models.StewardshipDecision) error {
	if decision.ID == "" {
		decision.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(decision).Error
}

package stewardship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/fields"
	"github.com/auscare-mdm/platform/pkg/golden"
)

// Store is the persistence contract the workflow drives. ApplyDecision
// must be conditional on the record still being pending and report the
// number of rows it touched.
type Store interface {
	Get(ctx context.Context, id string) (models.GoldenRecord, error)
	List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error)
	ApplyDecision(ctx context.Context, id string, updates map[string]interface{}) (int64, error)
	RecordDecision(ctx context.Context, decision *models.StewardshipDecision) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

// Workflow moves golden records through human review:
// pending -> approved | rejected, both terminal. Re-review requires a new
// golden record.
type Workflow struct {
	store    Store
	catalog  fields.Catalog
	producer EventPublisher

	now func() time.Time
}

func NewWorkflow(store Store, catalog fields.Catalog, producer EventPublisher) *Workflow {
	return &Workflow{store: store, catalog: catalog, producer: producer, now: time.Now}
}

// Approve transitions a pending record to approved. Edited fields, when
// supplied, overwrite the golden record before the transition; a nil edit
// value persists NULL rather than leaving the prior value in place.
func (w *Workflow) Approve(ctx context.Context, recordID string, editedFields map[string]*string, comments, reviewer string) (models.GoldenRecord, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return models.GoldenRecord{}, ValidationError{reason: errors.New("reviewer identity required")}
	}

	updates, err := w.fieldUpdates(editedFields)
	if err != nil {
		return models.GoldenRecord{}, err
	}

	return w.transition(ctx, recordID, models.StatusApproved, updates, comments, reviewer)
}

// Reject transitions a pending record to rejected. Comments are mandatory.
func (w *Workflow) Reject(ctx context.Context, recordID string, comments, reviewer string) (models.GoldenRecord, error) {
	reviewer = strings.TrimSpace(reviewer)
	if reviewer == "" {
		return models.GoldenRecord{}, ValidationError{reason: errors.New("reviewer identity required")}
	}
	if strings.TrimSpace(comments) == "" {
		return models.GoldenRecord{}, ValidationError{reason: errors.New("comments required when rejecting a record")}
	}

	return w.transition(ctx, recordID, models.StatusRejected, map[string]interface{}{}, comments, reviewer)
}

// PendingQueue lists golden records awaiting review, newest first.
func (w *Workflow) PendingQueue(ctx context.Context, limit int) ([]models.GoldenRecord, error) {
	return w.store.List(ctx, models.StatusPending, limit)
}

func (w *Workflow) transition(ctx context.Context, recordID, status string, updates map[string]interface{}, comments, reviewer string) (models.GoldenRecord, error) {
	decidedAt := w.now().UTC()
	updates["steward_status"] = status
	updates["steward_comments"] = comments
	updates["approved_by"] = reviewer
	updates["approved_at"] = decidedAt
	updates["updated_at"] = decidedAt

	rows, err := w.store.ApplyDecision(ctx, recordID, updates)
	if err != nil {
		return models.GoldenRecord{}, err
	}
	if rows == 0 {
		// Missing record and lost race look the same to the update;
		// a read tells them apart.
		if _, err := w.store.Get(ctx, recordID); err != nil {
			return models.GoldenRecord{}, err
		}
		return models.GoldenRecord{}, ErrStateConflict
	}

	decision := &models.StewardshipDecision{
		GoldenRecordID: recordID,
		Status:         status,
		ReviewedBy:     reviewer,
		Comments:       comments,
		DecidedAt:      decidedAt,
	}
	if err := w.store.RecordDecision(ctx, decision); err != nil {
		logger.Log.WithError(err).WithField("golden_record_id", recordID).Error("failed to record stewardship decision")
	}

	if w.producer != nil {
		if err := w.producer.PublishEvent(ctx, "stewardship_decision", "mdm-service", map[string]interface{}{
			"golden_record_id": recordID,
			"status":           status,
			"reviewed_by":      reviewer,
			"decided_at":       decidedAt,
		}); err != nil {
			logger.Log.WithError(err).Error("failed to publish stewardship decision event")
		}
	}

	record, err := w.store.Get(ctx, recordID)
	if err != nil && !errors.Is(err, golden.ErrNotFound) {
		return models.GoldenRecord{}, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"golden_record_id": recordID,
		"status":           status,
		"reviewed_by":      reviewer,
	}).Info("stewardship decision applied")

	return record, nil
}

// fieldUpdates validates steward edits against the field catalog and turns
// them into a typed, parameterized update set. Unknown fields are rejected
// rather than passed through to SQL.
func (w *Workflow) fieldUpdates(editedFields map[string]*string) (map[string]interface{}, error) {
	updates := make(map[string]interface{}, len(editedFields)+5)
	for name, value := range editedFields {
		if !w.catalog.Contains(name) {
			return nil, ValidationError{reason: fmt.Errorf("unknown golden record field %q", name)}
		}
		updates[name] = value
	}
	return updates, nil
}

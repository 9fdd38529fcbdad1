package stewardship

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/fields"
	"github.com/auscare-mdm/platform/pkg/golden"
)

func init() {
	logger.Init()
}

// memStore mimics the repository's conditional update: a decision lands
// only while the record is still pending.
type memStore struct {
	mu        sync.Mutex
	records   map[string]models.GoldenRecord
	decisions []models.StewardshipDecision
}

func newMemStore(records ...models.GoldenRecord) *memStore {
	s := &memStore{records: make(map[string]models.GoldenRecord)}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) Get(ctx context.Context, id string) (models.GoldenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return models.GoldenRecord{}, golden.ErrNotFound
	}
	return r, nil
}

func (s *memStore) List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GoldenRecord
	for _, r := range s.records {
		if status == "" || r.StewardStatus == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) ApplyDecision(ctx context.Context, id string, updates map[string]interface{}) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok || r.StewardStatus != models.StatusPending {
		return 0, nil
	}
	for column, value := range updates {
		applyColumn(&r, column, value)
	}
	s.records[id] = r
	return 1, nil
}

func (s *memStore) RecordDecision(ctx context.Context, decision *models.StewardshipDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, *decision)
	return nil
}

func applyColumn(r *models.GoldenRecord, column string, value interface{}) {
	switch column {
	case "steward_status":
		r.StewardStatus = value.(string)
	case "steward_comments":
		c := value.(string)
		r.StewardComments = &c
	case "approved_by":
		b := value.(string)
		r.ApprovedBy = &b
	case "approved_at":
		at := value.(time.Time)
		r.ApprovedAt = &at
	case "updated_at":
		r.UpdatedAt = value.(time.Time)
	case "phone":
		r.Phone = value.(*string)
	case "patient_name":
		r.PatientName = value.(*string)
	case "email":
		r.Email = value.(*string)
	}
}

func str(s string) *string { return &s }

func pendingRecord(id string) models.GoldenRecord {
	created := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return models.GoldenRecord{
		ID:            id,
		SourceIDs:     "1,2",
		PatientName:   str("John Smith"),
		Phone:         str("0355501234"),
		StewardStatus: models.StatusPending,
		CreatedAt:     created,
		UpdatedAt:     created,
	}
}

func TestApprovePendingRecord(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)
	decidedAt := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	w.now = func() time.Time { return decidedAt }

	record, err := w.Approve(context.Background(), "g1", nil, "looks correct", "steward@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.StewardStatus != models.StatusApproved {
		t.Fatalf("expected approved, got %q", record.StewardStatus)
	}
	if record.ApprovedBy == nil || *record.ApprovedBy != "steward@example.org" {
		t.Fatalf("expected reviewer recorded, got %v", record.ApprovedBy)
	}
	if record.ApprovedAt == nil || !record.ApprovedAt.Equal(decidedAt) {
		t.Fatalf("expected approval timestamp %v, got %v", decidedAt, record.ApprovedAt)
	}
	if !record.UpdatedAt.Equal(decidedAt) {
		t.Fatalf("expected updated_at advanced to decision time, got %v", record.UpdatedAt)
	}
	if len(store.decisions) != 1 || store.decisions[0].Status != models.StatusApproved {
		t.Fatalf("expected one audit decision, got %+v", store.decisions)
	}
}

func TestApproveWithNullEditPersistsNull(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	record, err := w.Approve(context.Background(), "g1", map[string]*string{"phone": nil}, "", "steward@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Phone != nil {
		t.Fatalf("expected phone cleared to NULL, got %q", *record.Phone)
	}
	if record.StewardStatus != models.StatusApproved {
		t.Fatalf("expected approved, got %q", record.StewardStatus)
	}
}

func TestApproveWithEditOverwritesField(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	record, err := w.Approve(context.Background(), "g1", map[string]*string{"patient_name": str("John A. Smith")}, "", "steward@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.PatientName == nil || *record.PatientName != "John A. Smith" {
		t.Fatalf("expected edited name, got %v", record.PatientName)
	}
}

func TestApproveRejectsUnknownField(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	_, err := w.Approve(context.Background(), "g1", map[string]*string{"steward_status": str("approved")}, "", "steward@example.org")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for field outside the catalog, got %v", err)
	}

	record, _ := store.Get(context.Background(), "g1")
	if record.StewardStatus != models.StatusPending {
		t.Fatalf("rejected edit must leave the record untouched, got %q", record.StewardStatus)
	}
}

func TestApproveRequiresReviewer(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	_, err := w.Approve(context.Background(), "g1", nil, "", "  ")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for missing reviewer, got %v", err)
	}
}

func TestApproveMissingRecord(t *testing.T) {
	w := NewWorkflow(newMemStore(), fields.DefaultCatalog(), nil)

	_, err := w.Approve(context.Background(), "absent", nil, "", "steward@example.org")
	if !errors.Is(err, golden.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectRequiresComments(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	_, err := w.Reject(context.Background(), "g1", "   ", "steward@example.org")
	if !IsValidationError(err) {
		t.Fatalf("expected validation error for empty comments, got %v", err)
	}

	record, _ := store.Get(context.Background(), "g1")
	if record.StewardStatus != models.StatusPending {
		t.Fatalf("failed reject must leave the record pending, got %q", record.StewardStatus)
	}
	if len(store.decisions) != 0 {
		t.Fatalf("no audit row expected for a refused decision, got %+v", store.decisions)
	}
}

func TestRejectPendingRecord(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	record, err := w.Reject(context.Background(), "g1", "duplicate of g0", "steward@example.org")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.StewardStatus != models.StatusRejected {
		t.Fatalf("expected rejected, got %q", record.StewardStatus)
	}
	if record.StewardComments == nil || *record.StewardComments != "duplicate of g0" {
		t.Fatalf("expected comments persisted, got %v", record.StewardComments)
	}
}

func TestSecondDecisionConflicts(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	if _, err := w.Approve(context.Background(), "g1", nil, "ok", "first@example.org"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := w.Reject(context.Background(), "g1", "changed my mind", "second@example.org")
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("expected ErrStateConflict on second decision, got %v", err)
	}

	record, _ := store.Get(context.Background(), "g1")
	if record.StewardStatus != models.StatusApproved {
		t.Fatalf("losing decision must not alter the record, got %q", record.StewardStatus)
	}
	if record.ApprovedBy == nil || *record.ApprovedBy != "first@example.org" {
		t.Fatalf("expected first reviewer preserved, got %v", record.ApprovedBy)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("expected exactly one audit decision, got %d", len(store.decisions))
	}
}

func TestConcurrentDecisionsExactlyOneWins(t *testing.T) {
	store := newMemStore(pendingRecord("g1"))
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := w.Approve(context.Background(), "g1", nil, "", "a@example.org")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := w.Reject(context.Background(), "g1", "dup", "b@example.org")
		errs <- err
	}()
	wg.Wait()
	close(errs)

	wins, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrStateConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner, got wins=%d conflicts=%d", wins, conflicts)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("expected a single audit decision, got %d", len(store.decisions))
	}
}

func TestPendingQueueFiltersByStatus(t *testing.T) {
	approved := pendingRecord("g2")
	approved.StewardStatus = models.StatusApproved
	store := newMemStore(pendingRecord("g1"), approved)
	w := NewWorkflow(store, fields.DefaultCatalog(), nil)

	queue, err := w.PendingQueue(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != "g1" {
		t.Fatalf("expected only the pending record, got %+v", queue)
	}
}

package golden

import (
	"context"
	"errors"
	"testing"

	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/fields"
)

type fakeRecordSource struct {
	records []models.SourceRecord
}

func (f *fakeRecordSource) Records(ctx context.Context) ([]models.SourceRecord, error) {
	return f.records, nil
}

func (f *fakeRecordSource) RecordsByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error) {
	byID := map[int64]models.SourceRecord{}
	for _, r := range f.records {
		byID[r.PatientID] = r
	}
	out := make([]models.SourceRecord, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeCandidateSource struct {
	candidates []models.SimilarityResult
}

func (f *fakeCandidateSource) Candidates(ctx context.Context) (models.CandidateResponse, error) {
	return models.CandidateResponse{Candidates: f.candidates, Pairs: len(f.candidates)}, nil
}

type fakeStore struct {
	created   []models.GoldenRecord
	failQuota int
}

func (f *fakeStore) Create(ctx context.Context, record *models.GoldenRecord) error {
	if f.failQuota > 0 && len(f.created) >= f.failQuota {
		return errors.New("insert failed")
	}
	f.created = append(f.created, *record)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (models.GoldenRecord, error) {
	for _, r := range f.created {
		if r.ID == id {
			return r, nil
		}
	}
	return models.GoldenRecord{}, ErrNotFound
}

func (f *fakeStore) List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error) {
	var out []models.GoldenRecord
	for _, r := range f.created {
		if status == "" || r.StewardStatus == status {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []string
	fail   bool
}

func (f *fakePublisher) PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error {
	if f.fail {
		return errors.New("broker down")
	}
	f.events = append(f.events, eventType)
	return nil
}

func matchCandidates() []models.SimilarityResult {
	return []models.SimilarityResult{
		{ID1: 1, ID2: 2, SimilarityScore: 0.95, IsMatch: true, Confidence: models.ConfidenceHigh},
	}
}

func TestServiceConsolidatePersistsAndPublishes(t *testing.T) {
	store := &fakeStore{}
	producer := &fakePublisher{}
	svc := NewService(
		&fakeRecordSource{records: testRecords},
		&fakeCandidateSource{candidates: matchCandidates()},
		NewBuilder(agreeableOracle(), fields.DefaultCatalog()),
		store, producer, nil,
	)

	resp, err := svc.Consolidate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Created) != 1 || resp.PairsChecked != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if len(store.created) != 1 {
		t.Fatalf("expected record persisted, got %d", len(store.created))
	}
	if len(producer.events) != 1 || producer.events[0] != "golden_record_created" {
		t.Fatalf("expected golden_record_created event, got %v", producer.events)
	}
}

func TestServiceConsolidateStopsOnPersistFailure(t *testing.T) {
	records := append([]models.SourceRecord{}, testRecords...)
	records = append(records, models.SourceRecord{PatientID: 4, PatientName: "John Smyth", MedicareNumber: "2428912345678"})

	candidates := []models.SimilarityResult{
		{ID1: 1, ID2: 2, IsMatch: true, Confidence: models.ConfidenceHigh},
		{ID1: 1, ID2: 4, IsMatch: true, Confidence: models.ConfidenceHigh},
	}

	store := &fakeStore{failQuota: 1}
	svc := NewService(
		&fakeRecordSource{records: records},
		&fakeCandidateSource{candidates: candidates},
		NewBuilder(agreeableOracle(), fields.DefaultCatalog()),
		store, nil, nil,
	)

	resp, err := svc.Consolidate(context.Background())
	if err == nil {
		t.Fatal("expected persistence failure to surface")
	}
	if len(resp.Created) != 1 {
		t.Fatalf("expected the records persisted before the failure, got %d", len(resp.Created))
	}
}

func TestServiceConsolidateFallsBackToDLQ(t *testing.T) {
	store := &fakeStore{}
	dlq := &fakePublisher{}
	svc := NewService(
		&fakeRecordSource{records: testRecords},
		&fakeCandidateSource{candidates: matchCandidates()},
		NewBuilder(agreeableOracle(), fields.DefaultCatalog()),
		store, &fakePublisher{fail: true}, dlq,
	)

	if _, err := svc.Consolidate(context.Background()); err != nil {
		t.Fatalf("publish failure must not fail consolidation: %v", err)
	}
	if len(dlq.events) != 1 {
		t.Fatalf("expected event routed to DLQ, got %v", dlq.events)
	}
}

func TestServiceConsolidateSurvivesDeadDLQ(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(
		&fakeRecordSource{records: testRecords},
		&fakeCandidateSource{candidates: matchCandidates()},
		NewBuilder(agreeableOracle(), fields.DefaultCatalog()),
		store, &fakePublisher{fail: true}, &fakePublisher{fail: true},
	)

	resp, err := svc.Consolidate(context.Background())
	if err != nil {
		t.Fatalf("a dead DLQ must not fail consolidation: %v", err)
	}
	if len(resp.Created) != 1 || len(store.created) != 1 {
		t.Fatalf("expected record persisted despite publish failures, got %+v", resp)
	}
}

func TestServiceSourceRecords(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(
		&fakeRecordSource{records: testRecords},
		&fakeCandidateSource{candidates: matchCandidates()},
		NewBuilder(agreeableOracle(), fields.DefaultCatalog()),
		store, nil, nil,
	)

	resp, err := svc.Consolidate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sources, err := svc.SourceRecords(context.Background(), resp.Created[0].ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sources) != 2 || sources[0].PatientID != 1 || sources[1].PatientID != 2 {
		t.Fatalf("expected contributing records 1 and 2, got %+v", sources)
	}

	if _, err := svc.SourceRecords(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceListDelegatesStatusFilter(t *testing.T) {
	store := &fakeStore{created: []models.GoldenRecord{
		{ID: "a", StewardStatus: models.StatusPending},
		{ID: "b", StewardStatus: models.StatusApproved},
	}}
	svc := NewService(nil, nil, nil, store, nil, nil)

	pending, err := svc.List(context.Background(), models.StatusPending, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "a" {
		t.Fatalf("unexpected list: %+v", pending)
	}
}

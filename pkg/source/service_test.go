package source

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/auscare-mdm/platform/pkg/cache"
	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
)

func init() {
	logger.Init()
}

type fakeLister struct {
	calls int
	fail  bool
}

func (f *fakeLister) Table() string { return "patients" }

func (f *fakeLister) List(ctx context.Context) ([]models.SourceRecord, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("warehouse unreachable")
	}
	return []models.SourceRecord{{PatientID: 1, PatientName: "John Smith"}}, nil
}

func (f *fakeLister) GetByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error) {
	out := make([]models.SourceRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.SourceRecord{PatientID: id})
	}
	return out, nil
}

type memSnapshots struct {
	data map[string][]byte
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{data: map[string][]byte{}}
}

func (m *memSnapshots) Save(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memSnapshots) Load(ctx context.Context, key string, out interface{}) error {
	b, ok := m.data[key]
	if !ok {
		return cache.ErrNoSnapshot
	}
	return json.Unmarshal(b, out)
}

func TestRecordsCachedAcrossCalls(t *testing.T) {
	lister := &fakeLister{}
	s := NewService(lister, cache.New(time.Minute), nil)

	for i := 0; i < 3; i++ {
		records, err := s.Records(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 1 || records[0].PatientID != 1 {
			t.Fatalf("unexpected records: %+v", records)
		}
	}

	if lister.calls != 1 {
		t.Fatalf("expected one warehouse fetch, got %d", lister.calls)
	}
}

func TestRecordsServedFromSnapshotOnOutage(t *testing.T) {
	lister := &fakeLister{}
	resultCache := cache.New(time.Minute)
	snaps := newMemSnapshots()
	s := NewService(lister, resultCache, snaps)

	if _, err := s.Records(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resultCache.InvalidateAll()
	lister.fail = true

	records, err := s.Records(context.Background())
	if err != nil {
		t.Fatalf("expected snapshot fallback, got error: %v", err)
	}
	if len(records) != 1 || records[0].PatientID != 1 {
		t.Fatalf("expected last good records from snapshot, got %+v", records)
	}
	if lister.calls != 2 {
		t.Fatalf("expected the failing fetch to have been attempted, got %d calls", lister.calls)
	}
}

func TestRecordsErrorWithoutSnapshot(t *testing.T) {
	lister := &fakeLister{fail: true}
	s := NewService(lister, cache.New(time.Minute), nil)

	if _, err := s.Records(context.Background()); err == nil {
		t.Fatal("expected fetch error to propagate when no snapshot exists")
	}
}

func TestRecordsFailureNotCached(t *testing.T) {
	lister := &fakeLister{fail: true}
	s := NewService(lister, cache.New(time.Minute), nil)

	s.Records(context.Background())
	lister.fail = false

	records, err := s.Records(context.Background())
	if err != nil {
		t.Fatalf("expected recovery after transient failure: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("unexpected records: %+v", records)
	}
	if lister.calls != 2 {
		t.Fatalf("expected a second fetch after failure, got %d", lister.calls)
	}
}

func TestRecordsByIDsBypassesCache(t *testing.T) {
	lister := &fakeLister{}
	s := NewService(lister, cache.New(time.Minute), nil)

	records, err := s.RecordsByIDs(context.Background(), []int64{4, 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].PatientID != 4 || records[1].PatientID != 7 {
		t.Fatalf("unexpected records: %+v", records)
	}
}

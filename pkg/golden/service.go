package golden

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
)

type RecordSource interface {
	Records(ctx context.Context) ([]models.SourceRecord, error)
	RecordsByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error)
}

type CandidateSource interface {
	Candidates(ctx context.Context) (models.CandidateResponse, error)
}

type Store interface {
	Create(ctx context.Context, record *models.GoldenRecord) error
	Get(ctx context.Context, id string) (models.GoldenRecord, error)
	List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType, source string, data map[string]interface{}) error
}

type Service struct {
	records    RecordSource
	candidates CandidateSource
	builder    *Builder
	store      Store
	producer   EventPublisher
	dlq        EventPublisher
}

func NewService(records RecordSource, candidates CandidateSource, builder *Builder, store Store, producer, dlq EventPublisher) *Service {
	return &Service{
		records:    records,
		candidates: candidates,
		builder:    builder,
		store:      store,
		producer:   producer,
		dlq:        dlq,
	}
}

// Consolidate runs a full consolidation pass: cached duplicate candidates
// in, newly persisted pending golden records out. Existing golden records
// are never overwritten or merged with.
func (s *Service) Consolidate(ctx context.Context) (models.ConsolidateResponse, error) {
	records, err := s.records.Records(ctx)
	if err != nil {
		return models.ConsolidateResponse{}, err
	}
	candidates, err := s.candidates.Candidates(ctx)
	if err != nil {
		return models.ConsolidateResponse{}, err
	}

	built, stats, err := s.builder.Consolidate(ctx, records, candidates.Candidates)
	if err != nil {
		return models.ConsolidateResponse{}, err
	}

	created := make([]models.GoldenRecord, 0, len(built))
	for i := range built {
		record := built[i]
		if err := s.store.Create(ctx, &record); err != nil {
			return models.ConsolidateResponse{Created: created, PairsChecked: stats.PairsChecked, PairsFailed: stats.PairsFailed},
				fmt.Errorf("persist golden record for sources %s: %w", record.SourceIDs, err)
		}
		created = append(created, record)
		s.publish(ctx, "golden_record_created", map[string]interface{}{"golden_record": record})
	}

	logger.Log.WithFields(map[string]interface{}{
		"created":       len(created),
		"pairs_checked": stats.PairsChecked,
		"pairs_failed":  stats.PairsFailed,
	}).Info("consolidation pass complete")

	return models.ConsolidateResponse{
		Created:      created,
		PairsChecked: stats.PairsChecked,
		PairsFailed:  stats.PairsFailed,
	}, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.GoldenRecord, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit int) ([]models.GoldenRecord, error) {
	return s.store.List(ctx, status, limit)
}

// SourceRecords returns the original records that contributed to a golden
// record, for side-by-side steward review.
func (s *Service) SourceRecords(ctx context.Context, goldenID string) ([]models.SourceRecord, error) {
	record, err := s.store.Get(ctx, goldenID)
	if err != nil {
		return nil, err
	}
	ids, err := ParseSourceIDs(record.SourceIDs)
	if err != nil {
		return nil, err
	}
	return s.records.RecordsByIDs(ctx, ids)
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.producer == nil {
		return
	}
	if err := s.producer.PublishEvent(ctx, eventType, "mdm-service", data); err != nil {
		logger.Log.WithError(err).Error("failed to publish golden record event")
		if s.dlq == nil {
			return
		}
		if derr := s.dlq.PublishEvent(ctx, eventType, "mdm-service", data); derr != nil {
			logger.Log.WithError(derr).Warn("failed to publish golden record event to DLQ")
		}
	}
}

// ParseSourceIDs splits the comma-separated provenance list.
func ParseSourceIDs(csv string) ([]int64, error) {
	parts := strings.Split(csv, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid source id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty source id list")
	}
	return ids, nil
}

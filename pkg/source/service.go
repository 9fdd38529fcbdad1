package source

import (
	"context"

	"github.com/auscare-mdm/platform/pkg/cache"
	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
)

// Lister is the record-fetching capability the service wraps with caching.
type Lister interface {
	Table() string
	List(ctx context.Context) ([]models.SourceRecord, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error)
}

// Snapshotter keeps the last good result of a pass for outage fallback.
type Snapshotter interface {
	Save(ctx context.Context, key string, value interface{}) error
	Load(ctx context.Context, key string, out interface{}) error
}

type Service struct {
	records   Lister
	cache     *cache.ResultCache
	snapshots Snapshotter
}

func NewService(records Lister, resultCache *cache.ResultCache, snapshots Snapshotter) *Service {
	return &Service{records: records, cache: resultCache, snapshots: snapshots}
}

// Records returns the source patient list, cached per table fingerprint.
// When the warehouse is unreachable the last good snapshot is substituted.
func (s *Service) Records(ctx context.Context) ([]models.SourceRecord, error) {
	fp := cache.Fingerprint("fetch_patient_data", s.records.Table())

	v, err := s.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (interface{}, error) {
		records, err := s.records.List(ctx)
		if err != nil {
			return nil, err
		}
		if s.snapshots != nil {
			if serr := s.snapshots.Save(ctx, fp, records); serr != nil {
				logger.Log.WithError(serr).Warn("failed to snapshot patient records")
			}
		}
		return records, nil
	})
	if err == nil {
		return v.([]models.SourceRecord), nil
	}

	if s.snapshots != nil {
		var fallback []models.SourceRecord
		if serr := s.snapshots.Load(ctx, fp, &fallback); serr == nil {
			logger.Log.WithError(err).Warn("record source unreachable, serving last snapshot")
			return fallback, nil
		}
	}
	return nil, err
}

func (s *Service) RecordsByIDs(ctx context.Context, ids []int64) ([]models.SourceRecord, error) {
	return s.records.GetByIDs(ctx, ids)
}

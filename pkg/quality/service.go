package quality

import (
	"context"

	"github.com/auscare-mdm/platform/pkg/cache"
	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
)

// RecordSource supplies the records under assessment.
type RecordSource interface {
	Records(ctx context.Context) ([]models.SourceRecord, error)
}

// Snapshotter keeps the last good result of a pass for outage fallback.
type Snapshotter interface {
	Save(ctx context.Context, key string, value interface{}) error
	Load(ctx context.Context, key string, out interface{}) error
}

type Service struct {
	records   RecordSource
	scorer    *Scorer
	cache     *cache.ResultCache
	snapshots Snapshotter
	table     string
}

func NewService(records RecordSource, scorer *Scorer, resultCache *cache.ResultCache, snapshots Snapshotter, table string) *Service {
	return &Service{records: records, scorer: scorer, cache: resultCache, snapshots: snapshots, table: table}
}

// Assessments runs (or serves the cached) quality pass over the source
// table. On a source failure the latest snapshot is substituted; the cache
// itself is never fed fallback data.
func (s *Service) Assessments(ctx context.Context) (models.AssessmentResponse, error) {
	fp := cache.Fingerprint("fetch_quality_data", s.table)

	v, err := s.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (interface{}, error) {
		records, err := s.records.Records(ctx)
		if err != nil {
			return nil, err
		}
		assessments, failed := s.scorer.Assess(ctx, records)
		resp := models.AssessmentResponse{
			Assessments: assessments,
			Failed:      failed,
			Total:       len(records),
		}
		if s.snapshots != nil {
			if serr := s.snapshots.Save(ctx, fp, resp); serr != nil {
				logger.Log.WithError(serr).Warn("failed to snapshot quality assessments")
			}
		}
		return resp, nil
	})
	if err == nil {
		return v.(models.AssessmentResponse), nil
	}

	if s.snapshots != nil {
		var fallback models.AssessmentResponse
		if serr := s.snapshots.Load(ctx, fp, &fallback); serr == nil {
			logger.Log.WithError(err).Warn("quality pass failed, serving last snapshot")
			return fallback, nil
		}
	}
	return models.AssessmentResponse{}, err
}

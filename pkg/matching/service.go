package matching

import (
	"context"

	"github.com/auscare-mdm/platform/pkg/cache"
	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
)

// RecordSource supplies the records under comparison.
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
	matcher   *Matcher
	cache     *cache.ResultCache
	snapshots Snapshotter
	table     string
}

func NewService(records RecordSource, matcher *Matcher, resultCache *cache.ResultCache, snapshots Snapshotter, table string) *Service {
	return &Service{records: records, matcher: matcher, cache: resultCache, snapshots: snapshots, table: table}
}

// Candidates runs (or serves the cached) duplicate detection pass.
func (s *Service) Candidates(ctx context.Context) (models.CandidateResponse, error) {
	fp := cache.Fingerprint("fetch_duplicate_data", s.table)

	v, err := s.cache.GetOrCompute(ctx, fp, func(ctx context.Context) (interface{}, error) {
		records, err := s.records.Records(ctx)
		if err != nil {
			return nil, err
		}
		candidates, failed, err := s.matcher.FindCandidates(ctx, records)
		if err != nil {
			return nil, err
		}
		resp := models.CandidateResponse{
			Candidates: candidates,
			Failed:     failed,
			Pairs:      s.matcher.PairCount(len(records)),
		}
		if s.snapshots != nil {
			if serr := s.snapshots.Save(ctx, fp, resp); serr != nil {
				logger.Log.WithError(serr).Warn("failed to snapshot duplicate candidates")
			}
		}
		return resp, nil
	})
	if err == nil {
		return v.(models.CandidateResponse), nil
	}

	if s.snapshots != nil {
		var fallback models.CandidateResponse
		if serr := s.snapshots.Load(ctx, fp, &fallback); serr == nil {
			logger.Log.WithError(err).Warn("duplicate detection failed, serving last snapshot")
			return fallback, nil
		}
	}
	return models.CandidateResponse{}, err
}

// Highlighted filters a candidate set down to high-similarity pairs.
func (s *Service) Highlighted(candidates []models.SimilarityResult) []models.SimilarityResult {
	out := make([]models.SimilarityResult, 0, len(candidates))
	for _, c := range candidates {
		if s.matcher.HighSimilarity(c) {
			out = append(out, c)
		}
	}
	return out
}

package matching

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/oracle"
)

const (
	// DefaultRetainThreshold drops pairs the oracle scores at or below it.
	DefaultRetainThreshold = 0.5
	// DefaultHighlightThreshold marks a retained pair as high similarity
	// for triage. Callers rely on this constant staying stable.
	DefaultHighlightThreshold = 0.7
	// DefaultMaxRecords bounds the O(n^2) pair expansion.
	DefaultMaxRecords = 200
)

// Matcher computes pairwise similarity over every unordered record pair
// and classifies each as match/no-match with a confidence band.
type Matcher struct {
	oracle             oracle.Client
	retainThreshold    float64
	highlightThreshold float64
	maxRecords         int
}

func NewMatcher(client oracle.Client, retainThreshold, highlightThreshold float64, maxRecords int) *Matcher {
	if retainThreshold <= 0 {
		retainThreshold = DefaultRetainThreshold
	}
	if highlightThreshold <= 0 {
		highlightThreshold = DefaultHighlightThreshold
	}
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	return &Matcher{
		oracle:             client,
		retainThreshold:    retainThreshold,
		highlightThreshold: highlightThreshold,
		maxRecords:         maxRecords,
	}
}

// FindCandidates compares every unordered pair with id1 < id2, no
// self-pairs and no reversed duplicates. Pairs scoring above the retain
// threshold come back sorted descending by similarity, ties ascending by
// (id1, id2). Per-pair oracle failures are skipped and counted. The only
// error returned is the caller's cancellation.
func (m *Matcher) FindCandidates(ctx context.Context, records []models.SourceRecord) ([]models.SimilarityResult, int, error) {
	ordered := make([]models.SourceRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PatientID < ordered[j].PatientID })

	if len(ordered) > m.maxRecords {
		logger.Log.WithFields(map[string]interface{}{
			"records": len(ordered),
			"bound":   m.maxRecords,
		}).Warn("matching input truncated to configured bound")
		ordered = ordered[:m.maxRecords]
	}

	var results []models.SimilarityResult
	failed := 0

	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if err := ctx.Err(); err != nil {
				return nil, failed, err
			}

			r1, r2 := ordered[i], ordered[j]
			if r1.PatientID == r2.PatientID {
				continue
			}

			verdict, err := m.oracle.PairwiseSimilarity(ctx, serializeForMatching(r1), serializeForMatching(r2))
			if err != nil {
				logger.Log.WithError(err).WithFields(map[string]interface{}{
					"id1": r1.PatientID,
					"id2": r2.PatientID,
				}).Warn("pairwise similarity failed")
				failed++
				continue
			}

			confidence, ok := normalizeConfidence(verdict.Confidence)
			if verdict.SimilarityScore < 0 || verdict.SimilarityScore > 1 || !ok {
				logger.Log.WithFields(map[string]interface{}{
					"id1":        r1.PatientID,
					"id2":        r2.PatientID,
					"score":      verdict.SimilarityScore,
					"confidence": verdict.Confidence,
				}).Warn("discarding out-of-range similarity verdict")
				failed++
				continue
			}

			if verdict.SimilarityScore <= m.retainThreshold {
				continue
			}

			results = append(results, models.SimilarityResult{
				ID1:             r1.PatientID,
				ID2:             r2.PatientID,
				Name1:           r1.PatientName,
				Name2:           r2.PatientName,
				System1:         r1.SourceSystem,
				System2:         r2.SourceSystem,
				SimilarityScore: verdict.SimilarityScore,
				IsMatch:         verdict.IsMatch,
				Confidence:      confidence,
				MatchReason:     verdict.MatchReason,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		if results[i].ID1 != results[j].ID1 {
			return results[i].ID1 < results[j].ID1
		}
		return results[i].ID2 < results[j].ID2
	})

	if failed > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"failed":   failed,
			"retained": len(results),
		}).Warn("some pairwise comparisons failed")
	}

	return results, failed, nil
}

// HighSimilarity reports whether a retained pair crosses the highlight
// threshold used for downstream triage.
func (m *Matcher) HighSimilarity(r models.SimilarityResult) bool {
	return r.SimilarityScore > m.highlightThreshold
}

// PairCount reports how many pairs a pass over n records compares, after
// the input bound is applied.
func (m *Matcher) PairCount(n int) int {
	if n > m.maxRecords {
		n = m.maxRecords
	}
	return n * (n - 1) / 2
}

// serializeForMatching carries the identity-bearing fields the oracle
// compares.
func serializeForMatching(r models.SourceRecord) string {
	payload, _ := json.Marshal(map[string]string{
		"name":     r.PatientName,
		"dob":      r.DateOfBirth,
		"medicare": r.MedicareNumber,
	})
	return string(payload)
}

func normalizeConfidence(c string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case models.ConfidenceLow:
		return models.ConfidenceLow, true
	case models.ConfidenceMedium:
		return models.ConfidenceMedium, true
	case models.ConfidenceHigh:
		return models.ConfidenceHigh, true
	}
	return "", false
}

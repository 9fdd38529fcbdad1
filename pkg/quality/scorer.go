package quality

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/oracle"
)

// MinQualityScore is the score assigned when the oracle cannot assess a
// record.
const MinQualityScore = 0

// Scorer turns source records into quality assessments via the scoring
// oracle. An oracle failure for one record never aborts the batch.
type Scorer struct {
	oracle oracle.Client
}

func NewScorer(client oracle.Client) *Scorer {
	return &Scorer{oracle: client}
}

// Assess returns one assessment per input record, ordered by patient id.
// The second return value counts records whose oracle call failed and
// received a fail-soft assessment instead.
func (s *Scorer) Assess(ctx context.Context, records []models.SourceRecord) ([]models.QualityAssessment, int) {
	ordered := make([]models.SourceRecord, len(records))
	copy(ordered, records)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].PatientID < ordered[j].PatientID })

	assessments := make([]models.QualityAssessment, 0, len(ordered))
	failed := 0

	for _, record := range ordered {
		assessment := models.QualityAssessment{
			PatientID:    record.PatientID,
			PatientName:  record.PatientName,
			SourceSystem: record.SourceSystem,
			Issues:       []string{},
		}

		verdict, err := s.oracle.AssessQuality(ctx, serializeForQuality(record))
		if err != nil {
			logger.Log.WithError(err).WithField("patient_id", record.PatientID).Warn("quality assessment failed")
			assessment.QualityScore = MinQualityScore
			assessment.Completeness = 0
			assessment.Issues = []string{"assessment failed: " + err.Error()}
			failed++
			assessments = append(assessments, assessment)
			continue
		}

		assessment.QualityScore = clampInt(verdict.QualityScore, 0, 100)
		assessment.Completeness = clampFloat(verdict.Completeness, 0, 1)
		if verdict.Issues != nil {
			assessment.Issues = verdict.Issues
		}
		assessments = append(assessments, assessment)
	}

	if failed > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"failed": failed,
			"total":  len(ordered),
		}).Warn("some quality assessments failed")
	}

	return assessments, failed
}

// serializeForQuality carries the fields the oracle judges quality on.
func serializeForQuality(r models.SourceRecord) string {
	payload, _ := json.Marshal(map[string]string{
		"medical_record_num":  r.MedicalRecordNum,
		"patient_name":        r.PatientName,
		"date_of_birth":       r.DateOfBirth,
		"medicare_number":     r.MedicareNumber,
		"phone":               r.Phone,
		"email":               r.Email,
		"private_health_fund": r.PrivateHealthFund,
	})
	return string(payload)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

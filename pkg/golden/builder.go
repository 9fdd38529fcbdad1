package golden

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/auscare-mdm/platform/pkg/common/logger"
	"github.com/auscare-mdm/platform/pkg/common/models"
	"github.com/auscare-mdm/platform/pkg/fields"
	"github.com/auscare-mdm/platform/pkg/oracle"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ConsolidationStats summarizes one consolidation pass.
type ConsolidationStats struct {
	PairsChecked int
	PairsFailed  int
}

// Builder merges matched source-record pairs into golden records. A pair
// is admitted only when the binary same-person oracle call agrees; the
// continuous similarity score alone is never sufficient. Clustering is
// pairwise: A-B and B-C produce two golden records, not a three-way merge.
type Builder struct {
	oracle  oracle.Client
	catalog fields.Catalog
}

func NewBuilder(client oracle.Client, catalog fields.Catalog) *Builder {
	return &Builder{oracle: client, catalog: catalog}
}

// Consolidate produces exactly one pending golden record per admitted
// pair. Per-pair oracle failures are isolated and counted. The only error
// returned is the caller's cancellation; records built before that point
// are still returned.
func (b *Builder) Consolidate(ctx context.Context, records []models.SourceRecord, candidates []models.SimilarityResult) ([]models.GoldenRecord, ConsolidationStats, error) {
	byID := make(map[int64]models.SourceRecord, len(records))
	for _, r := range records {
		byID[r.PatientID] = r
	}

	var created []models.GoldenRecord
	stats := ConsolidationStats{}

	for _, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return created, stats, err
		}
		if !candidate.IsMatch {
			continue
		}

		r1, ok1 := byID[candidate.ID1]
		r2, ok2 := byID[candidate.ID2]
		if !ok1 || !ok2 {
			logger.Log.WithFields(map[string]interface{}{
				"id1": candidate.ID1,
				"id2": candidate.ID2,
			}).Warn("candidate references unknown source records")
			continue
		}

		stats.PairsChecked++

		same, err := b.oracle.SamePerson(ctx, serializeIdentity(r1), serializeIdentity(r2))
		if err != nil {
			logger.Log.WithError(err).WithFields(pairFields(candidate)).Warn("same-person judgment failed")
			stats.PairsFailed++
			continue
		}
		if !same {
			continue
		}

		verdict, err := b.oracle.MergeRecords(ctx, serializeFull(r1), serializeFull(r2))
		if err != nil {
			logger.Log.WithError(err).WithFields(pairFields(candidate)).Warn("merge proposal failed")
			stats.PairsFailed++
			continue
		}
		if missing := b.catalog.Missing(verdict.Fields); len(missing) > 0 {
			logger.Log.WithFields(map[string]interface{}{
				"id1":     candidate.ID1,
				"id2":     candidate.ID2,
				"missing": missing,
			}).Warn("merge proposal structurally incomplete")
			stats.PairsFailed++
			continue
		}

		record := models.GoldenRecord{
			ID:              uuid.New().String(),
			SourceIDs:       fmt.Sprintf("%d,%d", candidate.ID1, candidate.ID2),
			ConfidenceScore: clamp01(verdict.Confidence),
			FieldSources:    b.provenance(verdict.Fields, r1, r2),
			StewardStatus:   models.StatusPending,
		}
		for _, f := range b.catalog.Fields {
			setGoldenField(&record, f.Name, verdict.Fields[f.Name])
		}

		created = append(created, record)
	}

	return created, stats, nil
}

// provenance records which contributing record (or the oracle itself)
// each merged value came from.
func (b *Builder) provenance(merged map[string]*string, r1, r2 models.SourceRecord) datatypes.JSONMap {
	sources := make(datatypes.JSONMap, len(b.catalog.Fields))
	for _, f := range b.catalog.Fields {
		value := merged[f.Name]
		switch {
		case value == nil:
			sources[f.Name] = "none"
		case *value == sourceFieldValue(r1, f.Name):
			sources[f.Name] = fmt.Sprintf("record:%d", r1.PatientID)
		case *value == sourceFieldValue(r2, f.Name):
			sources[f.Name] = fmt.Sprintf("record:%d", r2.PatientID)
		default:
			sources[f.Name] = "oracle"
		}
	}
	return sources
}

func pairFields(c models.SimilarityResult) map[string]interface{} {
	return map[string]interface{}{"id1": c.ID1, "id2": c.ID2}
}

// serializeIdentity carries the fields the binary same-person gate sees.
func serializeIdentity(r models.SourceRecord) string {
	payload, _ := json.Marshal(map[string]string{
		"name":     r.PatientName,
		"dob":      r.DateOfBirth,
		"medicare": r.MedicareNumber,
	})
	return string(payload)
}

// serializeFull carries the complete field set for the merge proposal.
func serializeFull(r models.SourceRecord) string {
	payload, _ := json.Marshal(map[string]string{
		"medical_record_num":  r.MedicalRecordNum,
		"patient_name":        r.PatientName,
		"date_of_birth":       r.DateOfBirth,
		"medicare_number":     r.MedicareNumber,
		"phone":               r.Phone,
		"email":               r.Email,
		"address":             r.Address,
		"suburb":              r.Suburb,
		"state":               r.State,
		"postcode":            r.Postcode,
		"private_health_fund": r.PrivateHealthFund,
		"membership_number":   r.MembershipNumber,
		"emergency_contact":   r.EmergencyContact,
		"gp_name":             r.GPName,
		"blood_type":          r.BloodType,
		"gender":              r.Gender,
	})
	return string(payload)
}

func sourceFieldValue(r models.SourceRecord, name string) string {
	switch name {
	case "medical_record_num":
		return r.MedicalRecordNum
	case "patient_name":
		return r.PatientName
	case "date_of_birth":
		return r.DateOfBirth
	case "medicare_number":
		return r.MedicareNumber
	case "phone":
		return r.Phone
	case "email":
		return r.Email
	case "address":
		return r.Address
	case "suburb":
		return r.Suburb
	case "state":
		return r.State
	case "postcode":
		return r.Postcode
	case "private_health_fund":
		return r.PrivateHealthFund
	case "membership_number":
		return r.MembershipNumber
	case "emergency_contact":
		return r.EmergencyContact
	case "gp_name":
		return r.GPName
	case "blood_type":
		return r.BloodType
	case "gender":
		return r.Gender
	}
	return ""
}

func setGoldenField(g *models.GoldenRecord, name string, value *string) {
	switch name {
	case "medical_record_num":
		g.MedicalRecordNum = value
	case "patient_name":
		g.PatientName = value
	case "date_of_birth":
		g.DateOfBirth = value
	case "medicare_number":
		g.MedicareNumber = value
	case "phone":
		g.Phone = value
	case "email":
		g.Email = value
	case "address":
		g.Address = value
	case "suburb":
		g.Suburb = value
	case "state":
		g.State = value
	case "postcode":
		g.Postcode = value
	case "private_health_fund":
		g.PrivateHealthFund = value
	case "membership_number":
		g.MembershipNumber = value
	case "emergency_contact":
		g.EmergencyContact = value
	case "gp_name":
		g.GPName = value
	case "blood_type":
		g.BloodType = value
	case "gender":
		g.Gender = value
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

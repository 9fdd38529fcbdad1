package models

import (
	"time"

	"gorm.io/datatypes"
)

// Source records are owned by the upstream systems and read-only here.
type SourceRecord struct {
	PatientID         int64  `gorm:"primaryKey;column:patient_id" json:"patient_id"`
	MedicalRecordNum  string `gorm:"column:medical_record_num" json:"medical_record_num"`
	PatientName       string `gorm:"column:patient_name" json:"patient_name"`
	DateOfBirth       string `gorm:"column:date_of_birth" json:"date_of_birth"`
	MedicareNumber    string `gorm:"column:medicare_number" json:"medicare_number"`
	Phone             string `gorm:"column:phone" json:"phone"`
	Email             string `gorm:"column:email" json:"email"`
	Address           string `gorm:"column:address" json:"address"`
	Suburb            string `gorm:"column:suburb" json:"suburb"`
	State             string `gorm:"column:state" json:"state"`
	Postcode          string `gorm:"column:postcode" json:"postcode"`
	PrivateHealthFund string `gorm:"column:private_health_fund" json:"private_health_fund"`
	MembershipNumber  string `gorm:"column:membership_number" json:"membership_number"`
	EmergencyContact  string `gorm:"column:emergency_contact" json:"emergency_contact"`
	GPName            string `gorm:"column:gp_name" json:"gp_name"`
	BloodType         string `gorm:"column:blood_type" json:"blood_type"`
	Gender            string `gorm:"column:gender" json:"gender"`
	SourceSystem      string `gorm:"column:source_system" json:"source_system"`
}

// Quality assessment is derived and always regenerable, so it is cached
// rather than persisted.
type QualityAssessment struct {
	PatientID    int64    `json:"patient_id"`
	PatientName  string   `json:"patient_name"`
	SourceSystem string   `json:"source_system"`
	QualityScore int      `json:"quality_score"` // 0-100
	Completeness float64  `json:"completeness"`  // 0.0-1.0
	Issues       []string `json:"issues"`
}

// Confidence bands reported by the pairwise similarity oracle.
const (
	ConfidenceLow    = "low"
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// SimilarityResult holds one unordered pair comparison. ID1 < ID2 always.
// A result is superseded by a later scoring run, never mutated.
type SimilarityResult struct {
	ID1             int64   `json:"id1"`
	ID2             int64   `json:"id2"`
	Name1           string  `json:"name1"`
	Name2           string  `json:"name2"`
	System1         string  `json:"system1"`
	System2         string  `json:"system2"`
	SimilarityScore float64 `json:"similarity_score"` // 0.0-1.0
	IsMatch         bool    `json:"is_match"`
	Confidence      string  `json:"confidence"` // low/medium/high
	MatchReason     string  `json:"match_reason"`
}

// Stewardship statuses for a golden record.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// GoldenRecord is the consolidated patient representation. Demographic
// fields are nullable: a steward edit may explicitly clear a value.
// Rejected records are retained for audit, never deleted.
type GoldenRecord struct {
	ID                string            `gorm:"primaryKey;column:id" json:"id"`
	SourceIDs         string            `gorm:"column:source_ids" json:"source_ids"` // comma-separated patient ids
	MedicalRecordNum  *string           `gorm:"column:medical_record_num" json:"medical_record_num"`
	PatientName       *string           `gorm:"column:patient_name" json:"patient_name"`
	DateOfBirth       *string           `gorm:"column:date_of_birth" json:"date_of_birth"`
	MedicareNumber    *string           `gorm:"column:medicare_number" json:"medicare_number"`
	Phone             *string           `gorm:"column:phone" json:"phone"`
	Email             *string           `gorm:"column:email" json:"email"`
	Address           *string           `gorm:"column:address" json:"address"`
	Suburb            *string           `gorm:"column:suburb" json:"suburb"`
	State             *string           `gorm:"column:state" json:"state"`
	Postcode          *string           `gorm:"column:postcode" json:"postcode"`
	PrivateHealthFund *string           `gorm:"column:private_health_fund" json:"private_health_fund"`
	MembershipNumber  *string           `gorm:"column:membership_number" json:"membership_number"`
	EmergencyContact  *string           `gorm:"column:emergency_contact" json:"emergency_contact"`
	GPName            *string           `gorm:"column:gp_name" json:"gp_name"`
	BloodType         *string           `gorm:"column:blood_type" json:"blood_type"`
	Gender            *string           `gorm:"column:gender" json:"gender"`
	ConfidenceScore   float64           `gorm:"column:confidence_score" json:"confidence_score"`
	FieldSources      datatypes.JSONMap `gorm:"column:field_sources" json:"field_sources,omitempty"`
	StewardStatus     string            `gorm:"column:steward_status" json:"steward_status"`
	StewardComments   *string           `gorm:"column:steward_comments" json:"steward_comments"`
	ApprovedBy        *string           `gorm:"column:approved_by" json:"approved_by"`
	ApprovedAt        *time.Time        `gorm:"column:approved_at" json:"approved_at"`
	CreatedAt         time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt         time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

// StewardshipDecision is an append-only audit snapshot of one transition.
type StewardshipDecision struct {
	ID             string    `gorm:"primaryKey;column:id" json:"id"`
	GoldenRecordID string    `gorm:"column:golden_record_id" json:"golden_record_id"`
	Status         string    `gorm:"column:status" json:"status"`
	ReviewedBy     string    `gorm:"column:reviewed_by" json:"reviewed_by"`
	Comments       string    `gorm:"column:comments" json:"comments"`
	DecidedAt      time.Time `gorm:"column:decided_at" json:"decided_at"`
}

func (StewardshipDecision) TableName() string {
	return "stewardship_decisions"
}

// Event bus envelope.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // golden_record_created, stewardship_decision, source_updated
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// API payloads.
type ApproveRequest struct {
	EditedFields map[string]*string `json:"edited_fields,omitempty"`
	Comments     string             `json:"comments"`
	ReviewedBy   string             `json:"reviewed_by"`
}

type RejectRequest struct {
	Comments   string `json:"comments"`
	ReviewedBy string `json:"reviewed_by"`
}

type ConsolidateResponse struct {
	Created      []GoldenRecord `json:"created"`
	PairsChecked int            `json:"pairs_checked"`
	PairsFailed  int            `json:"pairs_failed"`
}

type AssessmentResponse struct {
	Assessments []QualityAssessment `json:"assessments"`
	Failed      int                 `json:"failed"`
	Total       int                 `json:"total"`
}

type CandidateResponse struct {
	Candidates []SimilarityResult `json:"candidates"`
	Failed     int                `json:"failed"`
	Pairs      int                `json:"pairs"`
}

package oracle

import "context"

// QualityVerdict is the oracle's raw quality judgment for one serialized
// record. Range validation is the caller's responsibility.
type QualityVerdict struct {
	QualityScore int      `json:"quality_score"`
	Completeness float64  `json:"completeness"`
	Issues       []string `json:"issues"`
}

// SimilarityVerdict is the oracle's raw pairwise comparison output.
type SimilarityVerdict struct {
	SimilarityScore float64 `json:"similarity_score"`
	IsMatch         bool    `json:"is_match"`
	Confidence      string  `json:"confidence"`
	MatchReason     string  `json:"match_reason"`
}

// MergeVerdict is the oracle's proposed consolidated field set. A nil
// field value means the oracle returned null for that field.
type MergeVerdict struct {
	Fields     map[string]*string
	Confidence float64
}

// Client is the pluggable scoring capability behind quality assessment,
// duplicate matching and golden-record consolidation. Inputs are the
// serialized field text of the records under judgment; any implementation
// (rule-based, ML model, remote LLM) can satisfy it.
type Client interface {
	AssessQuality(ctx context.Context, record string) (QualityVerdict, error)
	PairwiseSimilarity(ctx context.Context, record1, record2 string) (SimilarityVerdict, error)
	SamePerson(ctx context.Context, record1, record2 string) (bool, error)
	MergeRecords(ctx context.Context, record1, record2 string) (MergeVerdict, error)
}

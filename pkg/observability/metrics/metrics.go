package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	assessmentsFailed  atomic.Int64
	assessmentsTotal   atomic.Int64
	pairsRetained      atomic.Int64
	pairsFailed        atomic.Int64
	goldenCreatedTotal atomic.Int64
	decisionsApproved  atomic.Int64
	decisionsRejected  atomic.Int64
	cacheHits          atomic.Int64
	cacheMisses        atomic.Int64
)

func Init() {}

func ObserveAssessments(failed, total int) {
	assessmentsFailed.Store(int64(failed))
	assessmentsTotal.Store(int64(total))
}

func ObserveMatching(retained, failed int) {
	pairsRetained.Store(int64(retained))
	pairsFailed.Store(int64(failed))
}

func AddGoldenCreated(n int) {
	goldenCreatedTotal.Add(int64(n))
}

func AddDecision(status string) {
	switch status {
	case "approved":
		decisionsApproved.Add(1)
	case "rejected":
		decisionsRejected.Add(1)
	}
}

func ObserveCache(hits, misses int64) {
	cacheHits.Store(hits)
	cacheMisses.Store(misses)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP mdm_quality_assessments_failed Number of records whose quality assessment failed in the latest pass.\n")
	fmt.Fprintf(w, "# TYPE mdm_quality_assessments_failed gauge\n")
	fmt.Fprintf(w, "mdm_quality_assessments_failed %d\n", assessmentsFailed.Load())

	fmt.Fprintf(w, "# HELP mdm_quality_assessments_total Number of records assessed in the latest pass.\n")
	fmt.Fprintf(w, "# TYPE mdm_quality_assessments_total gauge\n")
	fmt.Fprintf(w, "mdm_quality_assessments_total %d\n", assessmentsTotal.Load())

	fmt.Fprintf(w, "# HELP mdm_matching_pairs_retained Candidate pairs above the retain threshold in the latest pass.\n")
	fmt.Fprintf(w, "# TYPE mdm_matching_pairs_retained gauge\n")
	fmt.Fprintf(w, "mdm_matching_pairs_retained %d\n", pairsRetained.Load())

	fmt.Fprintf(w, "# HELP mdm_matching_pairs_failed Pair comparisons that failed in the latest pass.\n")
	fmt.Fprintf(w, "# TYPE mdm_matching_pairs_failed gauge\n")
	fmt.Fprintf(w, "mdm_matching_pairs_failed %d\n", pairsFailed.Load())

	fmt.Fprintf(w, "# HELP mdm_golden_records_created_total Golden records created since start.\n")
	fmt.Fprintf(w, "# TYPE mdm_golden_records_created_total counter\n")
	fmt.Fprintf(w, "mdm_golden_records_created_total %d\n", goldenCreatedTotal.Load())

	fmt.Fprintf(w, "# HELP mdm_stewardship_approved_total Stewardship approvals since start.\n")
	fmt.Fprintf(w, "# TYPE mdm_stewardship_approved_total counter\n")
	fmt.Fprintf(w, "mdm_stewardship_approved_total %d\n", decisionsApproved.Load())

	fmt.Fprintf(w, "# HELP mdm_stewardship_rejected_total Stewardship rejections since start.\n")
	fmt.Fprintf(w, "# TYPE mdm_stewardship_rejected_total counter\n")
	fmt.Fprintf(w, "mdm_stewardship_rejected_total %d\n", decisionsRejected.Load())

	fmt.Fprintf(w, "# HELP mdm_result_cache_hits_total Result cache hits since start.\n")
	fmt.Fprintf(w, "# TYPE mdm_result_cache_hits_total counter\n")
	fmt.Fprintf(w, "mdm_result_cache_hits_total %d\n", cacheHits.Load())

	fmt.Fprintf(w, "# HELP mdm_result_cache_misses_total Result cache misses since start.\n")
	fmt.Fprintf(w, "# TYPE mdm_result_cache_misses_total counter\n")
	fmt.Fprintf(w, "mdm_result_cache_misses_total %d\n", cacheMisses.Load())
}

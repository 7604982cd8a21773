package commander

import "strings"

// Evidence areas the commander delegates.
const (
	AreaMetrics       = "metrics"
	AreaRecentChanges = "recent_changes"
	AreaLogs          = "logs"
	AreaGitHistory    = "git_history"
)

// Specialist labels.
const (
	SystemInvestigator  = "System Investigator"
	CodeDetective       = "Code Detective"
	GeneralInvestigator = "General Investigator"
)

// Bucket is the coarse symptom class chosen during assessment.
type Bucket string

const (
	BucketLatency Bucket = "latency"
	BucketError   Bucket = "error"
	BucketOther   Bucket = "other"
)

// Classify buckets a symptom by case-insensitive substring. Latency wins
// over error when both appear.
func Classify(symptom string) Bucket {
	s := strings.ToLower(symptom)
	switch {
	case strings.Contains(s, "latency"):
		return BucketLatency
	case strings.Contains(s, "error"):
		return BucketError
	default:
		return BucketOther
	}
}

// Priority returns the evidence ordering for the bucket.
func (b Bucket) Priority() []string {
	switch b {
	case BucketLatency:
		return []string{AreaMetrics, AreaRecentChanges, AreaLogs}
	case BucketError:
		return []string{AreaLogs, AreaRecentChanges, AreaMetrics}
	default:
		return []string{AreaLogs, AreaMetrics, AreaRecentChanges}
	}
}

// Narration is the THINKING line explaining the classification.
func (b Bucket) Narration() string {
	switch b {
	case BucketLatency:
		return "Latency issue detected. Likely performance-related."
	case BucketError:
		return "Error spike detected. Likely code or infrastructure issue."
	default:
		return "Unclear symptom. Need comprehensive investigation."
	}
}

var specialists = map[string]string{
	AreaMetrics:       SystemInvestigator,
	AreaLogs:          SystemInvestigator,
	AreaRecentChanges: CodeDetective,
	AreaGitHistory:    CodeDetective,
}

// SpecialistFor returns the specialist responsible for an evidence area.
func SpecialistFor(area string) string {
	if s, ok := specialists[area]; ok {
		return s
	}
	return GeneralInvestigator
}

// Fallback root causes, in match order.
const (
	FallbackLatencyCause = "Database connection pool exhaustion due to recent config change"
	FallbackErrorCause   = "Increased error rate due to code deployment or external dependency failure"
	FallbackUnknownCause = "Unknown - requires deeper investigation"

	// PatternConnectionPool tags the latency evidence pattern.
	PatternConnectionPool = "connection_pool_exhaustion"
)

// FallbackRootCause applies the rule table to a symptom. pattern is non-empty
// when a known evidence pattern matched.
func FallbackRootCause(symptom string) (cause, pattern string) {
	switch Classify(symptom) {
	case BucketLatency:
		return FallbackLatencyCause, PatternConnectionPool
	case BucketError:
		return FallbackErrorCause, ""
	default:
		return FallbackUnknownCause, ""
	}
}

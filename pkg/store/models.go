package store

import "time"

// Failure statuses and test types persisted with each failure document.
const (
	StatusFailed   = "failed"
	TestTypeRobot  = "robot_framework"
	OutcomeUnknown = "UNKNOWN"
)

// Failure is one failed test, written once to the failures collection.
// Suite counters are backfilled at suite end.
type Failure struct {
	Timestamp    time.Time   `bson:"timestamp" json:"timestamp"`
	TestName     string      `bson:"test_name" json:"test_name"`
	TestSuite    string      `bson:"test_suite" json:"test_suite"`
	SuiteName    string      `bson:"suite_name" json:"suite_name"`
	ErrorMessage string      `bson:"error_message" json:"error_message"`
	StackTrace   string      `bson:"stack_trace" json:"stack_trace"`
	BuildNumber  string      `bson:"build_number" json:"build_number"`
	BuildID      string      `bson:"build_id" json:"build_id"`
	JobName      string      `bson:"job_name" json:"job_name"`
	DurationMS   int64       `bson:"duration_ms" json:"duration_ms"`
	Status       string      `bson:"status" json:"status"`
	TestType     string      `bson:"test_type" json:"test_type"`
	Tags         []string    `bson:"tags" json:"tags"`
	RobotResult  RobotResult `bson:"robot_result" json:"robot_result"`
}

// RobotResult is the raw Robot Framework result snapshot nested in a failure.
type RobotResult struct {
	Status    string `bson:"status" json:"status"`
	StartTime string `bson:"start_time" json:"start_time"`
	EndTime   string `bson:"end_time" json:"end_time"`
	ElapsedMS int64  `bson:"elapsed_time" json:"elapsed_time"`
	Critical  string `bson:"critical" json:"critical"`
}

// SuiteStats holds the transient pass/fail counters for one suite.
type SuiteStats struct {
	SuiteName  string `bson:"suite_name" json:"suite_name"`
	PassCount  int    `bson:"pass_count" json:"pass_count"`
	FailCount  int    `bson:"fail_count" json:"fail_count"`
	TotalCount int    `bson:"total_count" json:"total_count"`
}

// SuiteKey identifies the failure documents belonging to one suite of one build.
type SuiteKey struct {
	TestSuite   string
	BuildNumber string
	JobName     string
}

// BuildResult is the per-build summary document, upserted by build_id.
type BuildResult struct {
	BuildID     string    `bson:"build_id" json:"build_id"`
	BuildNumber string    `bson:"build_number" json:"build_number"`
	JobName     string    `bson:"job_name" json:"job_name"`
	RunID       string    `bson:"run_id" json:"run_id"`
	Outcome     string    `bson:"outcome" json:"outcome"`
	Building    bool      `bson:"building" json:"building"`
	DurationMS  int64     `bson:"duration_ms" json:"duration_ms"`
	Trigger     string    `bson:"trigger" json:"trigger"`
	StartedAt   time.Time `bson:"started_at" json:"started_at"`
	FinishedAt  time.Time `bson:"finished_at" json:"finished_at"`
	TestsTotal  int       `bson:"tests_total" json:"tests_total"`
	TestsPassed int       `bson:"tests_passed" json:"tests_passed"`
	TestsFailed int       `bson:"tests_failed" json:"tests_failed"`
	SuitesTotal int       `bson:"suites_total" json:"suites_total"`
	Analyzed    bool      `bson:"analyzed" json:"analyzed"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

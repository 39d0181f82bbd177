// Package listener turns Robot Framework lifecycle events into MongoDB
// telemetry. Every storage, CI, and redaction failure is logged and
// swallowed: telemetry must never interrupt a test run.
package listener

import (
	"context"
	"strings"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/jenkins"
	"github.com/ddn-qa/robotel/pkg/redact"
	"github.com/ddn-qa/robotel/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Robot Framework result statuses.
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

const defaultErrorMessage = "Test failed without error message"

// TestResult is the per-test outcome reported at test end.
type TestResult struct {
	Name      string     `json:"name"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	StartTime string     `json:"start_time,omitempty"`
	EndTime   string     `json:"end_time,omitempty"`
	ElapsedMS int64      `json:"elapsed_time,omitempty"`
	Critical  string     `json:"critical,omitempty"`
	Body      []BodyItem `json:"body,omitempty"`
}

// BodyItem is one keyword-level entry in a test's result body.
type BodyItem struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// suiteState tracks the counters for the currently running suite.
type suiteState struct {
	key   store.SuiteKey
	stats store.SuiteStats
}

// testState tracks the currently running test.
type testState struct {
	name  string
	suite string
	start time.Time
	tags  []string
}

// runTotals accumulates counts across all suites for the build summary.
type runTotals struct {
	tests  int
	passed int
	failed int
	suites int
}

// Listener owns the per-run telemetry state. It is driven synchronously by
// one test run; it has no internal locking.
type Listener struct {
	log      logrus.FieldLogger
	ci       *jenkins.Client
	store    store.Store
	redactor redact.Redactor

	buildNumber string
	jobName     string
	buildID     string
	runID       string

	suite  *suiteState
	test   *testState
	totals runTotals
	closed bool

	now func() time.Time
}

// New creates a listener. The store and CI client may be nil, in which case
// the listener still tracks counters but persists nothing.
func New(
	log logrus.FieldLogger,
	cfg *config.Config,
	st store.Store,
	ci *jenkins.Client,
	redactor redact.Redactor,
) *Listener {
	return &Listener{
		log:         log.WithField("component", "listener"),
		ci:          ci,
		store:       st,
		redactor:    redactor,
		buildNumber: cfg.CI.BuildNumber,
		jobName:     cfg.CI.JobName,
		buildID:     cfg.CI.BuildID(),
		runID:       uuid.NewString(),
		now:         time.Now,
	}
}

// RunID returns the unique identifier of this listener session.
func (l *Listener) RunID() string {
	return l.runID
}

// StartSuite resets the suite counters for a new suite.
func (l *Listener) StartSuite(name string) {
	l.suite = &suiteState{
		key: store.SuiteKey{
			TestSuite:   name,
			BuildNumber: l.buildNumber,
			JobName:     l.jobName,
		},
		stats: store.SuiteStats{SuiteName: name},
	}

	l.log.WithField("suite", name).Info("Suite started")
}

// StartTest records the start time and tags of a test.
func (l *Listener) StartTest(name string, tags []string) {
	suite := ""
	if l.suite != nil {
		suite = l.suite.stats.SuiteName
	}

	l.test = &testState{
		name:  name,
		suite: suite,
		start: l.now(),
		tags:  tags,
	}

	l.log.WithField("test", name).Debug("Test started")
}

// EndTest updates the suite counters and, on failure, builds and stores a
// failure document. Storage and redaction errors are logged and swallowed.
func (l *Listener) EndTest(ctx context.Context, res *TestResult) {
	if res.Status != StatusFail {
		if l.suite != nil {
			l.suite.stats.PassCount++
			l.suite.stats.TotalCount++
		}

		l.totals.tests++
		l.totals.passed++

		l.log.WithField("test", res.Name).Debug("Test passed")

		return
	}

	if l.suite != nil {
		l.suite.stats.FailCount++
		l.suite.stats.TotalCount++
	}

	l.totals.tests++
	l.totals.failed++

	doc := l.buildFailure(res)

	if l.redactor != nil {
		if n, err := l.redactor.RedactFailure(ctx, doc); err != nil {
			// Better to store unredacted data than to lose it.
			l.log.WithError(err).Warn("PII redaction failed, storing unredacted document")
		} else if n > 0 {
			l.log.WithField("redactions", n).Info("Redacted PII entities")
		}
	}

	if l.store == nil {
		l.log.WithField("test", res.Name).Debug("No store configured, dropping failure document")

		return
	}

	id, err := l.store.InsertFailure(ctx, doc)
	if err != nil {
		l.log.WithError(err).WithField("test", res.Name).Error("Failed to store failure")

		return
	}

	l.log.WithFields(logrus.Fields{
		"test": res.Name,
		"id":   id,
	}).Info("Failure stored")
}

// buildFailure shapes the failure document for one failed test.
func (l *Listener) buildFailure(res *TestResult) *store.Failure {
	end := l.now()

	start := end
	if l.test != nil && !l.test.start.IsZero() {
		start = l.test.start
	}

	message := res.Message
	if message == "" {
		message = defaultErrorMessage
	}

	suiteName := ""
	if l.suite != nil {
		suiteName = l.suite.stats.SuiteName
	}

	var tags []string
	if l.test != nil {
		tags = l.test.tags
	}

	critical := res.Critical
	if critical == "" {
		critical = "yes"
	}

	return &store.Failure{
		Timestamp:    end.UTC(),
		TestName:     res.Name,
		TestSuite:    suiteName,
		SuiteName:    suiteName,
		ErrorMessage: message,
		StackTrace:   stackTrace(res, message),
		BuildNumber:  l.buildNumber,
		BuildID:      l.buildID,
		JobName:      l.jobName,
		DurationMS:   end.Sub(start).Milliseconds(),
		Status:       store.StatusFailed,
		TestType:     store.TestTypeRobot,
		Tags:         tags,
		RobotResult: store.RobotResult{
			Status:    res.Status,
			StartTime: res.StartTime,
			EndTime:   res.EndTime,
			ElapsedMS: res.ElapsedMS,
			Critical:  critical,
		},
	}
}

// stackTrace assembles keyword-level failure detail from the result body,
// falling back to the error message.
func stackTrace(res *TestResult, fallback string) string {
	var b strings.Builder

	for _, item := range res.Body {
		if item.Status != StatusFail || item.Message == "" {
			continue
		}

		b.WriteString(item.Name)
		b.WriteString(": ")
		b.WriteString(item.Message)
		b.WriteString("\n")
	}

	if b.Len() == 0 {
		return fallback
	}

	return b.String()
}

// EndSuite backfills the final counters into this suite's failure documents.
func (l *Listener) EndSuite(ctx context.Context, name, status string) {
	if l.suite == nil {
		l.log.WithField("suite", name).Warn("Suite ended without matching start")

		return
	}

	suite := l.suite
	l.suite = nil
	l.totals.suites++

	entry := l.log.WithFields(logrus.Fields{
		"suite": name,
		"pass":  suite.stats.PassCount,
		"fail":  suite.stats.FailCount,
		"total": suite.stats.TotalCount,
	})

	if l.store == nil {
		entry.WithField("status", status).Info("Suite ended")

		return
	}

	modified, err := l.store.BackfillSuiteStats(ctx, suite.key, suite.stats)
	if err != nil {
		entry.WithError(err).Warn("Failed to backfill suite statistics")

		return
	}

	entry.WithField("updated", modified).Info("Suite ended")
}

// Close fetches the CI build outcome best-effort, upserts the build summary,
// and releases the database connection. Safe to call more than once.
func (l *Listener) Close(ctx context.Context) {
	if l.closed {
		return
	}

	l.closed = true

	br := &store.BuildResult{
		BuildID:     l.buildID,
		BuildNumber: l.buildNumber,
		JobName:     l.jobName,
		RunID:       l.runID,
		Outcome:     store.OutcomeUnknown,
		TestsTotal:  l.totals.tests,
		TestsPassed: l.totals.passed,
		TestsFailed: l.totals.failed,
		SuitesTotal: l.totals.suites,
		Analyzed:    false,
		UpdatedAt:   l.now().UTC(),
	}

	if l.ci != nil {
		if status, err := l.ci.BuildStatus(ctx); err != nil {
			l.log.WithError(err).Warn("Failed to fetch CI build status")
		} else {
			if status.Result != "" {
				br.Outcome = status.Result
			}

			br.Building = status.Building
			br.DurationMS = status.DurationMS
			br.Trigger = status.Trigger
			br.StartedAt = status.StartedAt

			if !status.StartedAt.IsZero() && status.DurationMS > 0 {
				br.FinishedAt = status.StartedAt.Add(
					time.Duration(status.DurationMS) * time.Millisecond,
				)
			}
		}
	}

	if br.FinishedAt.IsZero() {
		br.FinishedAt = l.now().UTC()
	}

	if l.store == nil {
		l.log.Info("Run ended, no store configured")

		return
	}

	if err := l.store.UpsertBuildResult(ctx, br); err != nil {
		l.log.WithError(err).Error("Failed to upsert build result")
	} else {
		l.log.WithFields(logrus.Fields{
			"build_id": br.BuildID,
			"outcome":  br.Outcome,
			"tests":    br.TestsTotal,
		}).Info("Build result stored")
	}

	if err := l.store.Stop(ctx); err != nil {
		l.log.WithError(err).Warn("Failed to close store")
	}
}

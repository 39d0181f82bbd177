package listener

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/ddn-qa/robotel/pkg/jenkins"
	"github.com/ddn-qa/robotel/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records every persistence call made by the listener.
type fakeStore struct {
	failures     []*store.Failure
	backfills    []backfillCall
	buildResults []*store.BuildResult
	stopped      bool

	insertErr   error
	backfillErr error
	upsertErr   error
}

type backfillCall struct {
	key   store.SuiteKey
	stats store.SuiteStats
}

func (f *fakeStore) Start(context.Context) error { return nil }

func (f *fakeStore) Stop(context.Context) error {
	f.stopped = true

	return nil
}

func (f *fakeStore) InsertFailure(_ context.Context, doc *store.Failure) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}

	f.failures = append(f.failures, doc)

	return "65f0c0ffee", nil
}

func (f *fakeStore) BackfillSuiteStats(
	_ context.Context, key store.SuiteKey, stats store.SuiteStats,
) (int64, error) {
	if f.backfillErr != nil {
		return 0, f.backfillErr
	}

	f.backfills = append(f.backfills, backfillCall{key: key, stats: stats})

	return int64(stats.FailCount), nil
}

func (f *fakeStore) UpsertBuildResult(_ context.Context, br *store.BuildResult) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}

	f.buildResults = append(f.buildResults, br)

	return nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

// fakeRedactor rewrites the error message and reports one redaction.
type fakeRedactor struct {
	err error
}

func (r *fakeRedactor) RedactFailure(_ context.Context, f *store.Failure) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	f.ErrorMessage = "redacted: " + f.ErrorMessage

	return 1, nil
}

func testConfig() *config.Config {
	cfg, _ := config.Load("")
	cfg.CI.BuildNumber = "412"
	cfg.CI.JobName = "nightly"

	return cfg
}

func newTestListener(fs *fakeStore) *Listener {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return New(log, testConfig(), fs, nil, nil)
}

func TestSuiteCounters(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)
	ctx := context.Background()

	l.StartSuite("Exascaler Smoke")

	l.StartTest("Health Check", []string{"smoke"})
	l.EndTest(ctx, &TestResult{Name: "Health Check", Status: StatusPass})

	l.StartTest("Cluster Status", nil)
	l.EndTest(ctx, &TestResult{Name: "Cluster Status", Status: StatusPass})

	l.StartTest("Create Striped File", []string{"lustre"})
	l.EndTest(ctx, &TestResult{
		Name:    "Create Striped File",
		Status:  StatusFail,
		Message: "HTTP 500 from /api/v1/files/create",
	})

	l.EndSuite(ctx, "Exascaler Smoke", StatusFail)

	require.Len(t, fs.backfills, 1)
	call := fs.backfills[0]

	assert.Equal(t, store.SuiteKey{
		TestSuite:   "Exascaler Smoke",
		BuildNumber: "412",
		JobName:     "nightly",
	}, call.key)
	assert.Equal(t, 2, call.stats.PassCount)
	assert.Equal(t, 1, call.stats.FailCount)
	assert.Equal(t, 3, call.stats.TotalCount)
}

func TestFailureDocumentShape(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)
	ctx := context.Background()

	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	l.StartSuite("Volumes")
	l.StartTest("Create Volume", []string{"intelliflash", "volumes"})

	// Advance the clock so the duration is measurable.
	l.now = func() time.Time { return base.Add(1500 * time.Millisecond) }

	l.EndTest(ctx, &TestResult{
		Name:      "Create Volume",
		Status:    StatusFail,
		Message:   "Failed to create volume: 507",
		StartTime: "20260823 10:00:00.000",
		EndTime:   "20260823 10:00:01.500",
		ElapsedMS: 1500,
		Body: []BodyItem{
			{Name: "Create Intelliflash Volume", Status: StatusFail, Message: "507 Insufficient Storage"},
			{Name: "Log Volume", Status: StatusPass},
		},
	})

	require.Len(t, fs.failures, 1)
	doc := fs.failures[0]

	assert.Equal(t, "Create Volume", doc.TestName)
	assert.Equal(t, "Volumes", doc.TestSuite)
	assert.Equal(t, "Volumes", doc.SuiteName)
	assert.Equal(t, "Failed to create volume: 507", doc.ErrorMessage)
	assert.Equal(t, "Create Intelliflash Volume: 507 Insufficient Storage\n", doc.StackTrace)
	assert.Equal(t, "412", doc.BuildNumber)
	assert.Equal(t, "nightly-412", doc.BuildID)
	assert.Equal(t, "nightly", doc.JobName)
	assert.Equal(t, int64(1500), doc.DurationMS)
	assert.Equal(t, store.StatusFailed, doc.Status)
	assert.Equal(t, store.TestTypeRobot, doc.TestType)
	assert.Equal(t, []string{"intelliflash", "volumes"}, doc.Tags)
	assert.Equal(t, StatusFail, doc.RobotResult.Status)
	assert.Equal(t, int64(1500), doc.RobotResult.ElapsedMS)
	assert.Equal(t, "yes", doc.RobotResult.Critical)
}

func TestFailureDefaults(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)

	l.StartSuite("Suite")
	l.StartTest("T", nil)
	l.EndTest(context.Background(), &TestResult{Name: "T", Status: StatusFail})

	require.Len(t, fs.failures, 1)
	doc := fs.failures[0]

	assert.Equal(t, "Test failed without error message", doc.ErrorMessage)
	// No failing body items: stack trace falls back to the message.
	assert.Equal(t, doc.ErrorMessage, doc.StackTrace)
}

func TestRedaction(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)
	l.redactor = &fakeRedactor{}

	l.StartSuite("Suite")
	l.StartTest("T", nil)
	l.EndTest(context.Background(), &TestResult{
		Name: "T", Status: StatusFail, Message: "jane@example.com",
	})

	require.Len(t, fs.failures, 1)
	assert.Equal(t, "redacted: jane@example.com", fs.failures[0].ErrorMessage)
}

func TestRedactionFailureStoresUnredacted(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)
	l.redactor = &fakeRedactor{err: errors.New("service down")}

	l.StartSuite("Suite")
	l.StartTest("T", nil)
	l.EndTest(context.Background(), &TestResult{
		Name: "T", Status: StatusFail, Message: "jane@example.com",
	})

	require.Len(t, fs.failures, 1)
	assert.Equal(t, "jane@example.com", fs.failures[0].ErrorMessage)
}

func TestStorageErrorsAreSwallowed(t *testing.T) {
	fs := &fakeStore{
		insertErr:   errors.New("no primary"),
		backfillErr: errors.New("no primary"),
		upsertErr:   errors.New("no primary"),
	}
	l := newTestListener(fs)
	ctx := context.Background()

	// None of these may panic or surface the error.
	l.StartSuite("Suite")
	l.StartTest("T", nil)
	l.EndTest(ctx, &TestResult{Name: "T", Status: StatusFail, Message: "x"})
	l.EndSuite(ctx, "Suite", StatusFail)
	l.Close(ctx)

	assert.Empty(t, fs.failures)
	assert.Empty(t, fs.buildResults)
	assert.True(t, fs.stopped)
}

func TestNilStore(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	l := New(log, testConfig(), nil, nil, nil)
	ctx := context.Background()

	l.StartSuite("Suite")
	l.StartTest("T", nil)
	l.EndTest(ctx, &TestResult{Name: "T", Status: StatusFail})
	l.EndSuite(ctx, "Suite", StatusFail)
	l.Close(ctx)
}

func TestCloseUpsertsBuildResult(t *testing.T) {
	fs := &fakeStore{}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"result": "FAILURE",
			"building": false,
			"duration": 60000,
			"timestamp": 1787475600000,
			"actions": [{"causes": [{"_class": "hudson.model.Cause$UserIdCause",
				"shortDescription": "Started by user qa"}]}]
		}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.CI.BuildURL = srv.URL
	ci := jenkins.New(log, &cfg.CI)

	l := New(log, cfg, fs, ci, nil)
	ctx := context.Background()

	l.StartSuite("Suite")
	l.StartTest("A", nil)
	l.EndTest(ctx, &TestResult{Name: "A", Status: StatusPass})
	l.StartTest("B", nil)
	l.EndTest(ctx, &TestResult{Name: "B", Status: StatusFail, Message: "x"})
	l.EndSuite(ctx, "Suite", StatusFail)

	l.Close(ctx)
	// Second close is a no-op.
	l.Close(ctx)

	require.Len(t, fs.buildResults, 1)
	br := fs.buildResults[0]

	assert.Equal(t, "nightly-412", br.BuildID)
	assert.Equal(t, "412", br.BuildNumber)
	assert.Equal(t, "nightly", br.JobName)
	assert.Equal(t, l.RunID(), br.RunID)
	assert.Equal(t, "FAILURE", br.Outcome)
	assert.Equal(t, int64(60000), br.DurationMS)
	assert.Equal(t, "manual", br.Trigger)
	assert.Equal(t, time.UnixMilli(1787475600000).UTC(), br.StartedAt)
	assert.Equal(t, br.StartedAt.Add(time.Minute), br.FinishedAt)
	assert.Equal(t, 2, br.TestsTotal)
	assert.Equal(t, 1, br.TestsPassed)
	assert.Equal(t, 1, br.TestsFailed)
	assert.Equal(t, 1, br.SuitesTotal)
	assert.False(t, br.Analyzed)
	assert.True(t, fs.stopped)
}

func TestCloseWithoutCI(t *testing.T) {
	fs := &fakeStore{}
	l := newTestListener(fs)

	l.Close(context.Background())

	require.Len(t, fs.buildResults, 1)
	assert.Equal(t, store.OutcomeUnknown, fs.buildResults[0].Outcome)
	assert.False(t, fs.buildResults[0].FinishedAt.IsZero())
}

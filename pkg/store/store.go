package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ddn-qa/robotel/pkg/config"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Store persists listener telemetry to MongoDB.
type Store interface {
	// Start connects to MongoDB and verifies the connection.
	Start(ctx context.Context) error

	// Stop releases the database connection.
	Stop(ctx context.Context) error

	// InsertFailure writes one failure document and returns its inserted ID.
	InsertFailure(ctx context.Context, f *Failure) (string, error)

	// BackfillSuiteStats sets the final suite counters on every failure
	// document matching the suite key. Returns the modified count.
	BackfillSuiteStats(ctx context.Context, key SuiteKey, stats SuiteStats) (int64, error)

	// UpsertBuildResult writes the per-build summary, keyed by build_id.
	UpsertBuildResult(ctx context.Context, br *BuildResult) error

	// Ping verifies the connection is alive.
	Ping(ctx context.Context) error
}

// Compile-time interface check.
var _ Store = (*mongoStore)(nil)

type mongoStore struct {
	log      logrus.FieldLogger
	cfg      *config.MongoConfig
	client   *mongo.Client
	failures *mongo.Collection
	builds   *mongo.Collection
}

// NewStore creates a MongoDB-backed store. Call Start before use.
func NewStore(log logrus.FieldLogger, cfg *config.MongoConfig) Store {
	return &mongoStore{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start connects to MongoDB and pings the primary so misconfiguration
// surfaces immediately rather than on the first insert.
func (s *mongoStore) Start(ctx context.Context) error {
	if s.cfg.URI == "" {
		return fmt.Errorf("mongo uri is not configured")
	}

	timeout := config.ParseTimeout(s.cfg.ConnectTimeout, 10*time.Second)

	client, err := mongo.Connect(
		options.Client().ApplyURI(s.cfg.URI).SetConnectTimeout(timeout),
	)
	if err != nil {
		return fmt.Errorf("connecting to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)

		return fmt.Errorf("pinging mongodb: %w", err)
	}

	db := client.Database(s.cfg.Database)

	s.client = client
	s.failures = db.Collection(s.cfg.FailuresCollection)
	s.builds = db.Collection(s.cfg.BuildsCollection)

	s.log.WithField("database", s.cfg.Database).Info("Connected to MongoDB")

	return nil
}

// Stop disconnects from MongoDB.
func (s *mongoStore) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from mongodb: %w", err)
	}

	s.client = nil

	return nil
}

// InsertFailure writes one failure document.
func (s *mongoStore) InsertFailure(ctx context.Context, f *Failure) (string, error) {
	res, err := s.failures.InsertOne(ctx, f)
	if err != nil {
		return "", fmt.Errorf("inserting failure: %w", err)
	}

	if oid, ok := res.InsertedID.(bson.ObjectID); ok {
		return oid.Hex(), nil
	}

	return fmt.Sprintf("%v", res.InsertedID), nil
}

// BackfillSuiteStats updates all failure documents of a suite with the final
// counters observed at suite end.
func (s *mongoStore) BackfillSuiteStats(
	ctx context.Context,
	key SuiteKey,
	stats SuiteStats,
) (int64, error) {
	res, err := s.failures.UpdateMany(ctx, suiteFilter(key), suiteStatsUpdate(stats))
	if err != nil {
		return 0, fmt.Errorf("updating suite stats: %w", err)
	}

	return res.ModifiedCount, nil
}

// UpsertBuildResult writes the per-build summary document. At most one
// document exists per build_id.
func (s *mongoStore) UpsertBuildResult(ctx context.Context, br *BuildResult) error {
	_, err := s.builds.UpdateOne(
		ctx,
		bson.M{"build_id": br.BuildID},
		bson.M{"$set": br},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upserting build result: %w", err)
	}

	return nil
}

// Ping verifies the connection is alive.
func (s *mongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("store is not started")
	}

	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("pinging mongodb: %w", err)
	}

	return nil
}

// suiteFilter matches the failure documents written for one suite of one build.
func suiteFilter(key SuiteKey) bson.M {
	return bson.M{
		"test_suite":   key.TestSuite,
		"build_number": key.BuildNumber,
		"job_name":     key.JobName,
	}
}

// suiteStatsUpdate sets the final suite counters on matched documents.
func suiteStatsUpdate(stats SuiteStats) bson.M {
	return bson.M{
		"$set": bson.M{
			"suite_name":  stats.SuiteName,
			"pass_count":  stats.PassCount,
			"fail_count":  stats.FailCount,
			"total_count": stats.TotalCount,
		},
	}
}

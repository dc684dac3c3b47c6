// Package database - Persists reconciled snapshots and lifecycle events in ArangoDB
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// Collection names.
const (
	PackageCollection        = "package"
	VulnerabilityCollection  = "vulnerability"
	AssessmentCollection     = "assessment"
	LifecycleEventCollection = "lifecycle_event"
)

const databaseName = "vulnscout"

// DBConnection is the structure that defined the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
	Logger      *zap.Logger
}

// Config holds the connection settings, read from ARANGO_* variables by ConfigFromEnv.
type Config struct {
	URL      string
	User     string
	Password string
	// MaxElapsedTime bounds the connection retries; 0 retries forever.
	MaxElapsedTime time.Duration
}

// ConfigFromEnv reads ARANGO_HOST, ARANGO_PORT, ARANGO_USER, ARANGO_PASS and ARANGO_URL.
func ConfigFromEnv() Config {
	dbhost := util.GetEnvDefault("ARANGO_HOST", "localhost")
	dbport := util.GetEnvDefault("ARANGO_PORT", "8529")
	return Config{
		URL:      util.GetEnvDefault("ARANGO_URL", "http://"+dbhost+":"+dbport),
		User:     util.GetEnvDefault("ARANGO_USER", "root"),
		Password: util.GetEnvDefault("ARANGO_PASS", ""),
	}
}

type indexConfig struct {
	Collection string
	IdxName    string
	IdxField   string
}

var indexes = []indexConfig{
	{Collection: PackageCollection, IdxName: "package_name", IdxField: "name"},
	{Collection: PackageCollection, IdxName: "package_purl", IdxField: "purl[*]"},
	{Collection: VulnerabilityCollection, IdxName: "vulnerability_id", IdxField: "id"},
	{Collection: VulnerabilityCollection, IdxName: "vulnerability_aliases", IdxField: "aliases[*]"},
	{Collection: VulnerabilityCollection, IdxName: "vulnerability_severity", IdxField: "severity.severity"},
	{Collection: AssessmentCollection, IdxName: "assessment_vuln_id", IdxField: "vuln_id"},
	{Collection: AssessmentCollection, IdxName: "assessment_timestamp", IdxField: "timestamp"},
	{Collection: AssessmentCollection, IdxName: "assessment_origin", IdxField: "origin"},
	{Collection: LifecycleEventCollection, IdxName: "lifecycle_vuln_id", IdxField: "vuln_id"},
	{Collection: LifecycleEventCollection, IdxName: "lifecycle_event_type", IdxField: "event_type"},
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// InitializeDatabase connects with exponential backoff, then creates the database, its
// collections and indexes when missing.
func InitializeDatabase(ctx context.Context, cfg Config, logger *zap.Logger) (DBConnection, error) {
	const initialInterval = 2 * time.Second
	const maxInterval = 2 * time.Minute

	if logger == nil {
		logger = zap.NewNop()
	}

	var client arangodb.Client

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = cfg.MaxElapsedTime

	err := backoff.RetryNotify(func() error {
		endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, cfg.User, cfg.Password))

		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}

		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil

	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.Sugar().Infof("Retrying connection to ArangoDB in %s: %v", next, err)
	})
	if err != nil {
		return DBConnection{}, fmt.Errorf("failed to connect to ArangoDB: %w", err)
	}

	var db arangodb.Database
	dblist, err := client.Databases(ctx)
	if err != nil {
		return DBConnection{}, fmt.Errorf("failed to list databases: %w", err)
	}
	exists := false
	for _, dbinfo := range dblist {
		if dbinfo.Name() == databaseName {
			exists = true
			break
		}
	}
	if exists {
		var options arangodb.GetDatabaseOptions
		if db, err = client.GetDatabase(ctx, databaseName, &options); err != nil {
			return DBConnection{}, fmt.Errorf("failed to get database: %w", err)
		}
	} else {
		if db, err = client.CreateDatabase(ctx, databaseName, nil); err != nil {
			return DBConnection{}, fmt.Errorf("failed to create database: %w", err)
		}
	}

	collections := make(map[string]arangodb.Collection)
	for _, collectionName := range []string{PackageCollection, VulnerabilityCollection, AssessmentCollection, LifecycleEventCollection} {
		var col arangodb.Collection

		exists, _ = db.CollectionExists(ctx, collectionName)
		if exists {
			var options arangodb.GetCollectionOptions
			if col, err = db.GetCollection(ctx, collectionName, &options); err != nil {
				return DBConnection{}, fmt.Errorf("failed to use collection %s: %w", collectionName, err)
			}
		} else {
			if col, err = db.CreateCollectionV2(ctx, collectionName, nil); err != nil {
				return DBConnection{}, fmt.Errorf("failed to create collection %s: %w", collectionName, err)
			}
		}

		collections[collectionName] = col
	}

	if err := ensureIndexes(ctx, collections, logger); err != nil {
		return DBConnection{}, err
	}

	logger.Info("Database initialization complete", zap.String("database", databaseName))
	return DBConnection{Database: db, Collections: collections, Logger: logger}, nil
}

func ensureIndexes(ctx context.Context, collections map[string]arangodb.Collection, logger *zap.Logger) error {
	False := false

	for _, idx := range indexes {
		found := false

		if existing, err := collections[idx.Collection].Indexes(ctx); err == nil {
			for _, index := range existing {
				if idx.IdxName == index.Name {
					found = true
					break
				}
			}
		}
		if found {
			continue
		}

		indexOptions := arangodb.CreatePersistentIndexOptions{
			Unique: &False,
			Sparse: &False,
			Name:   idx.IdxName,
		}
		if _, _, err := collections[idx.Collection].EnsurePersistentIndex(ctx, []string{idx.IdxField}, &indexOptions); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.IdxName, err)
		}
		logger.Sugar().Infof("Created index: %s on %s.%s", idx.IdxName, idx.Collection, idx.IdxField)
	}
	return nil
}

func (c DBConnection) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// package main provides the entry point of the vulnscout API server, serving the reconciled
// packages, vulnerabilities and assessments over REST and GraphQL.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/database"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/api"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/kafka"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/lifecycle"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

func main() {
	logger := util.InitLogger()
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// serve loads the state, from ArangoDB when ARANGO_URL or ARANGO_HOST is set and from
// VULNSCOUT_SNAPSHOT otherwise, and serves it until ctx is done. With a database, lifecycle
// events consumed from KAFKA_BROKERS are recorded and exposed too.
func serve(ctx context.Context, logger *zap.Logger) error {
	var (
		set    *registry.Set
		events lifecycle.EventLister
	)

	if useDatabase() {
		db, err := database.InitializeDatabase(ctx, database.ConfigFromEnv(), logger)
		if err != nil {
			return err
		}
		snapshot, err := db.LoadSnapshot(ctx)
		if err != nil {
			return err
		}
		set = snapshot.Set(registry.WithLogger(logger))
		events = db

		if util.GetEnvDefault("KAFKA_BROKERS", "") != "" {
			if err := kafka.RunEventProcessor(ctx, kafka.ConfigFromEnv(), db, logger); err != nil {
				logger.Warn("lifecycle event processor disabled", zap.Error(err))
			}
		}
	} else {
		path := util.GetEnvDefault("VULNSCOUT_SNAPSHOT", "vulnscout.json")
		snapshot, err := registry.ReadFile(path)
		if err != nil {
			return err
		}
		set = snapshot.Set(registry.WithLogger(logger))
		logger.Sugar().Infof("Loaded snapshot %s", path)
	}
	logger.Sugar().Infof("Serving %d packages, %d vulnerabilities, %d assessments",
		set.Packages.Len(), set.Vulnerabilities.Len(), set.Assessments.Len())

	app, err := api.NewFiberApp(set, events, logger)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	port := util.GetEnvDefault("VULNSCOUT_PORT", "8080")
	logger.Sugar().Infof("Starting server on port %s", port)
	logger.Sugar().Infof("GraphQL endpoint available at /api/v1/graphql")
	if err := app.Listen(":" + port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func useDatabase() bool {
	return util.GetEnvDefault("ARANGO_URL", "") != "" || util.GetEnvDefault("ARANGO_HOST", "") != ""
}

package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/database"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/kafka"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/lifecycle"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/pipeline"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

type flags struct {
	snapshot     string
	sboms        []string
	osv          []string
	openvex      []string
	outOpenVEX   string
	outCycloneDX string
	vexSource    string
	sbomSource   string
	author       string
	triage       bool
	prune        bool
	arango       bool
	publish      bool
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "vexmerge",
		Short: "Merge scanner reports and VEX documents into one reconciled state",
		Long: `Loads the previous snapshot as history, imports OpenVEX documents, CycloneDX SBOMs and
OSV advisories, then expires the vulnerabilities no scanner reports anymore and revives
those reported again. The new snapshot and the VEX documents are written back.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.snapshot, "snapshot", util.GetEnvDefault("VULNSCOUT_SNAPSHOT", "vulnscout.json"), "previous and next snapshot (.json, .yaml)")
	fl.StringSliceVar(&f.sboms, "sbom", nil, "CycloneDX JSON SBOM, repeatable")
	fl.StringSliceVar(&f.osv, "osv", nil, "OSV advisories JSON, repeatable")
	fl.StringSliceVar(&f.openvex, "openvex", nil, "OpenVEX document to import, repeatable")
	fl.StringVar(&f.outOpenVEX, "out-openvex", "", "write the OpenVEX document to this path")
	fl.StringVar(&f.outCycloneDX, "out-cyclonedx", "", "write the CycloneDX VEX BOM to this path")
	fl.StringVar(&f.vexSource, "vex-source", util.GetEnvDefault("VULNSCOUT_VEX_SOURCE", lifecycle.DefaultVEXSource), "found_by name of VEX document detections")
	fl.StringVar(&f.sbomSource, "sbom-source", "", "found_by name of vulnerabilities listed in SBOMs")
	fl.StringVar(&f.author, "author", "", "author of the OpenVEX document")
	fl.BoolVar(&f.triage, "triage", true, "open an under_investigation assessment for new detections")
	fl.BoolVar(&f.prune, "prune", false, "drop vulnerabilities whose packages are all gone")
	fl.BoolVar(&f.arango, "arango", false, "persist the snapshot in ArangoDB (ARANGO_* variables)")
	fl.BoolVar(&f.publish, "publish", false, "publish lifecycle events to Kafka (KAFKA_* variables)")
	return cmd
}

func run(cmd *cobra.Command, f *flags) error {
	logger := util.InitLogger()
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.Run(pipeline.Options{
		SnapshotPath: f.snapshot,
		SBOMPaths:    f.sboms,
		OSVPaths:     f.osv,
		OpenVEXPaths: f.openvex,
		OutOpenVEX:   f.outOpenVEX,
		OutCycloneDX: f.outCycloneDX,
		VEXSource:    f.vexSource,
		SBOMSource:   f.sbomSource,
		Author:       f.author,
		Triage:       f.triage,
		Prune:        f.prune,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	if f.arango {
		cfg := database.ConfigFromEnv()
		cfg.MaxElapsedTime = 2 * time.Minute
		db, err := database.InitializeDatabase(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if err := db.SaveSnapshot(ctx, result.Set.Snapshot()); err != nil {
			return err
		}
		logger.Info("snapshot persisted", zap.String("url", cfg.URL))
	}

	if f.publish && len(result.Events) > 0 {
		producer := kafka.ConfigFromEnv().NewProducer()
		defer producer.Close()
		if err := producer.Publish(ctx, result.Events...); err != nil {
			return err
		}
		logger.Info("lifecycle events published", zap.Int("count", len(result.Events)))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d packages, %d vulnerabilities, %d assessments (%d opened, %d expired, %d revived)\n",
		result.Set.Packages.Len(), result.Set.Vulnerabilities.Len(), result.Set.Assessments.Len(),
		len(result.Opened), len(result.Report.Expired), len(result.Report.Revived))
	return nil
}

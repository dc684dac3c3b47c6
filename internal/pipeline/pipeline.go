// Package pipeline runs one batch: it loads the previous state as history, ingests the new
// reports, reconciles and writes the results.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/adapters/cyclonedx"
	"github.com/savoirfairelinux/vulnscout-sub000/adapters/openvex"
	"github.com/savoirfairelinux/vulnscout-sub000/adapters/osv"
	vulnevents "github.com/savoirfairelinux/vulnscout-sub000/events/modules/vulnerabilities"
	"github.com/savoirfairelinux/vulnscout-sub000/internal/lifecycle"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// Options selects the inputs and outputs of a batch. Empty paths are skipped.
type Options struct {
	// SnapshotPath is read as history when it exists and receives the new snapshot.
	SnapshotPath string
	SBOMPaths    []string
	OSVPaths     []string
	OpenVEXPaths []string

	OutOpenVEX   string
	OutCycloneDX string

	// VEXSource is the found_by name of VEX-document detections, lifecycle.DefaultVEXSource
	// when empty.
	VEXSource string
	// SBOMSource is the found_by name of vulnerabilities listed in SBOMs.
	SBOMSource string
	Author     string
	// Triage opens an under_investigation assessment for new live detections.
	Triage bool
	// Prune drops vulnerabilities none of whose packages is registered.
	Prune bool

	Now    func() time.Time
	Logger *zap.Logger
}

// Result is the reconciled state of a batch.
type Result struct {
	Set    *registry.Set
	Report *lifecycle.Report
	Opened []string
	Pruned []string
	Events []vulnevents.LifecycleEvent
}

func (o *Options) defaults() {
	if o.VEXSource == "" {
		o.VEXSource = lifecycle.DefaultVEXSource
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// Run executes the batch. Inputs are ingested in a fixed order so canonical ids are chosen
// the same way on every run: history, VEX documents, SBOMs, then OSV advisories.
func Run(opts Options) (*Result, error) {
	opts.defaults()
	logger := opts.Logger
	set := registry.NewSet(registry.WithLogger(logger))

	if err := loadHistory(set, opts.SnapshotPath, opts.VEXSource); err != nil {
		return nil, err
	}

	for _, path := range opts.OpenVEXPaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open OpenVEX document: %w", err)
		}
		doc, err := openvex.Read(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		(&openvex.Importer{
			Packages: set.Packages, Vulnerabilities: set.Vulnerabilities, Assessments: set.Assessments,
			Source: opts.VEXSource, Now: opts.Now, Logger: logger,
		}).Import(doc)
		logger.Sugar().Infof("Imported %d OpenVEX statements from %s", len(doc.Statements), path)
	}

	for _, path := range opts.SBOMPaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SBOM: %w", err)
		}
		bom, err := cyclonedx.ReadBOM(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		(&cyclonedx.Importer{
			Packages: set.Packages, Vulnerabilities: set.Vulnerabilities, Assessments: set.Assessments,
			Source: opts.SBOMSource, Now: opts.Now, Logger: logger,
		}).Import(bom)
		logger.Sugar().Infof("Imported SBOM %s", path)
	}

	for _, path := range opts.OSVPaths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open OSV advisories: %w", err)
		}
		advisories, err := osv.ReadAdvisories(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		matched := (&osv.Matcher{Packages: set.Packages, Vulnerabilities: set.Vulnerabilities, Logger: logger}).Match(advisories)
		logger.Sugar().Infof("%d of %d OSV advisories affect the inventory", len(matched), len(advisories))
	}

	result := &Result{Set: set}
	if opts.Prune {
		result.Pruned = set.Vulnerabilities.Prune(set.Packages)
	}

	reconciler := lifecycle.New(
		lifecycle.WithVEXSource(opts.VEXSource),
		lifecycle.WithClock(opts.Now),
		lifecycle.WithLogger(logger),
	)
	if opts.Triage {
		for _, a := range reconciler.Triage(set.Vulnerabilities, set.Assessments) {
			result.Opened = append(result.Opened, a.VulnID)
		}
	}
	result.Report = reconciler.Run(set.Vulnerabilities, set.Assessments)
	for _, a := range result.Report.Assessments {
		if event, ok := vulnevents.NewLifecycleEvent(a, set.Vulnerabilities.Get(a.VulnID)); ok {
			result.Events = append(result.Events, event)
		}
	}
	logger.Sugar().Infof("Reconciled %d vulnerabilities: %d expired, %d revived",
		set.Vulnerabilities.Len(), len(result.Report.Expired), len(result.Report.Revived))

	if err := write(set, opts); err != nil {
		return nil, err
	}
	return result, nil
}

// loadHistory adds the previous snapshot with every vulnerability attributed to the VEX
// source, so only this batch's scanners count as live. A missing file is a first run.
func loadHistory(set *registry.Set, path, vexSource string) error {
	if path == "" {
		return nil
	}
	previous, err := registry.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	previous.AsHistory(vexSource).AddTo(set.Packages, set.Vulnerabilities, set.Assessments)
	return nil
}

func write(set *registry.Set, opts Options) error {
	if opts.SnapshotPath != "" {
		if err := set.Snapshot().WriteFile(opts.SnapshotPath); err != nil {
			return err
		}
	}
	if opts.OutOpenVEX != "" {
		doc := (&openvex.Exporter{
			Packages: set.Packages, Vulnerabilities: set.Vulnerabilities, Assessments: set.Assessments,
			Author: opts.Author, Now: opts.Now, Logger: opts.Logger,
		}).Export()
		if err := writeFile(opts.OutOpenVEX, func(f *os.File) error { return openvex.Write(f, doc) }); err != nil {
			return err
		}
	}
	if opts.OutCycloneDX != "" {
		bom := (&cyclonedx.Exporter{
			Packages: set.Packages, Vulnerabilities: set.Vulnerabilities, Assessments: set.Assessments,
			Now: opts.Now,
		}).Export()
		if err := writeFile(opts.OutCycloneDX, func(f *os.File) error { return cyclonedx.WriteBOM(f, bom) }); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, encode func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Package osv matches OSV advisories against the installed packages, acting as the live
// scanner of a batch.
package osv

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/osv-scanner/pkg/models"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// SourceName is the found_by name of vulnerabilities reported by this adapter.
const SourceName = "osv"

// ReadAdvisories decodes a JSON array of OSV records, or an object holding them under
// "vulns" as returned by the OSV query API.
func ReadAdvisories(r io.Reader) ([]models.Vulnerability, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read advisories: %w", err)
	}
	data = bytes.TrimSpace(data)

	var advisories []models.Vulnerability
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &advisories); err != nil {
			return nil, fmt.Errorf("failed to decode advisories: %w", err)
		}
		return advisories, nil
	}

	var wrapped struct {
		Vulns []models.Vulnerability `json:"vulns"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode advisories: %w", err)
	}
	return wrapped.Vulns, nil
}

// Matcher adds the advisories affecting registered packages to the vulnerability registry.
type Matcher struct {
	Packages        *registry.PackageRegistry
	Vulnerabilities *registry.VulnerabilityRegistry
	Logger          *zap.Logger
}

// Match registers every advisory affecting at least one package and returns the canonical
// vulnerabilities it touched.
func (m *Matcher) Match(advisories []models.Vulnerability) []*model.Vulnerability {
	logger := m.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var matched []*model.Vulnerability
	for _, adv := range advisories {
		pkgIDs := m.affectedPackages(adv)
		if len(pkgIDs) == 0 {
			continue
		}
		v := toVulnerability(adv)
		for _, id := range pkgIDs {
			v.AddPackage(id)
		}
		canonical := m.Vulnerabilities.Add(v)
		if canonical == nil {
			logger.Debug("skipping advisory without id")
			continue
		}
		logger.Debug("advisory matched", zap.String("advisory", adv.ID),
			zap.String("vuln_id", canonical.ID), zap.Strings("packages", pkgIDs))
		matched = append(matched, canonical)
	}
	return matched
}

func (m *Matcher) affectedPackages(adv models.Vulnerability) []string {
	var ids []string
	for _, pkg := range m.Packages.List() {
		var relevant []models.Affected
		for _, affected := range adv.Affected {
			if sameProject(pkg, affected.Package) {
				relevant = append(relevant, affected)
			}
		}
		if util.IsVersionAffectedAny(pkg.Version, relevant) {
			ids = append(ids, pkg.ID())
		}
	}
	return ids
}

// sameProject compares names, and ecosystems when the package has one.
func sameProject(pkg *model.Package, osvPkg models.Package) bool {
	if !strings.EqualFold(pkg.Name, osvPkg.Name) {
		return false
	}
	ecosystem := pkg.Ecosystem()
	if ecosystem == "" || osvPkg.Ecosystem == "" {
		return true
	}
	return util.EcosystemToPurlType(string(osvPkg.Ecosystem)) == ecosystem
}

func toVulnerability(adv models.Vulnerability) *model.Vulnerability {
	namespace := ""
	if len(adv.Affected) > 0 {
		namespace = string(adv.Affected[0].Package.Ecosystem)
	}
	v := model.NewVulnerability(adv.ID, SourceName, namespace, SourceName)
	for _, alias := range adv.Aliases {
		v.AddAlias(alias)
	}
	v.AddText(model.TextSummary, adv.Summary)
	v.AddText(model.TextDescription, adv.Details)
	for _, ref := range adv.References {
		if ref.Type == models.ReferenceAdvisory {
			v.AddAdvisory(ref.URL)
			continue
		}
		v.AddURL(ref.URL)
	}
	for _, sev := range adv.Severity {
		switch sev.Type {
		case models.SeverityCVSSV2, models.SeverityCVSSV3, models.SeverityCVSSV4:
			v.RegisterCVSS(model.NewCVSS(sev.Score, SourceName, 0))
		}
	}
	if fixed := util.ExtractFixedVersions(adv.Affected); len(fixed) > 0 {
		v.AddText(model.TextRecommendation, "Upgrade to "+strings.Join(fixed, " or "))
	}
	return v
}

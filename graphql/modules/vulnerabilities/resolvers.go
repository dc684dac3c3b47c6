package vulnerabilities

import (
	"cmp"
	"slices"

	"github.com/samber/lo"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// Filter narrows a vulnerability listing. Zero fields match everything.
type Filter struct {
	Severity string
	Status   string // status of the latest assessment, in either vocabulary
	Package  string // any id resolving to a registered package
	Limit    int
}

// ResolveVulnerability looks id up directly or through its aliases.
func ResolveVulnerability(set *registry.Set, id string) interface{} {
	v := set.Vulnerabilities.Get(id)
	if v == nil {
		return nil
	}
	return v
}

// ResolveVulnerabilities lists the vulnerabilities matching filter, most severe first.
func ResolveVulnerabilities(set *registry.Set, filter Filter) []*model.Vulnerability {
	var pkg *model.Package
	if filter.Package != "" {
		if pkg = set.Packages.Get(filter.Package); pkg == nil {
			return []*model.Vulnerability{}
		}
	}
	vulns := lo.Filter(set.Vulnerabilities.List(), func(v *model.Vulnerability, _ int) bool {
		if filter.Severity != "" && v.Severity.Label != filter.Severity {
			return false
		}
		if pkg != nil && !references(set, v.Packages, pkg) {
			return false
		}
		if filter.Status != "" {
			latest := set.Latest(v)
			if latest == nil || !latest.IsCompatibleStatus(model.Status(filter.Status)) {
				return false
			}
		}
		return true
	})
	slices.SortStableFunc(vulns, func(a, b *model.Vulnerability) int {
		return cmp.Compare(b.Severity.MaxScore, a.Severity.MaxScore)
	})
	if filter.Limit > 0 && len(vulns) > filter.Limit {
		vulns = vulns[:filter.Limit]
	}
	return vulns
}

// ResolveAssessments returns the history of vulnID, restricted to packageID when set.
func ResolveAssessments(set *registry.Set, vulnID, packageID string) []*model.VulnAssessment {
	v := set.Vulnerabilities.Get(vulnID)
	if v == nil {
		return set.Assessments.ByVuln(vulnID)
	}
	history := set.Assessments.ByVulnerability(v)
	if packageID == "" {
		return history
	}
	pkg := set.Packages.Get(packageID)
	if pkg == nil {
		return []*model.VulnAssessment{}
	}
	return lo.Filter(history, func(a *model.VulnAssessment, _ int) bool {
		return references(set, a.Packages, pkg)
	})
}

// references reports whether one of ids resolves to pkg.
func references(set *registry.Set, ids []string, pkg *model.Package) bool {
	return slices.ContainsFunc(ids, func(id string) bool {
		return id == pkg.ID() || set.Packages.Get(id) == pkg
	})
}

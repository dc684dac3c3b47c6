package dashboard

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// noAssessment is the status reported for vulnerabilities never assessed.
const noAssessment = "not_assessed"

// ResolveOverview counts the records of the set. auto_expired and auto_revived count the
// vulnerabilities whose latest assessment has that origin.
func ResolveOverview(set *registry.Set) map[string]interface{} {
	origins := map[model.Origin]int{}
	for _, v := range set.Vulnerabilities.List() {
		if latest := set.Latest(v); latest != nil {
			origins[latest.Origin]++
		}
	}
	return map[string]interface{}{
		"total_packages":        set.Packages.Len(),
		"total_vulnerabilities": set.Vulnerabilities.Len(),
		"total_assessments":     set.Assessments.Len(),
		"auto_expired":          origins[model.OriginAutoExpired],
		"auto_revived":          origins[model.OriginAutoRevived],
	}
}

// ResolveSeverityDistribution counts vulnerabilities per severity label.
func ResolveSeverityDistribution(set *registry.Set) map[string]interface{} {
	counts := lo.CountValuesBy(set.Vulnerabilities.List(), func(v *model.Vulnerability) string {
		return strings.ToLower(v.Severity.Label)
	})
	out := map[string]interface{}{}
	for _, label := range []string{"critical", "high", "medium", "low", "none", "unknown"} {
		out[label] = counts[label]
	}
	return out
}

// ResolveStatusDistribution counts vulnerabilities per status of their latest assessment,
// ordered by status.
func ResolveStatusDistribution(set *registry.Set) []map[string]interface{} {
	counts := lo.CountValuesBy(set.Vulnerabilities.List(), func(v *model.Vulnerability) string {
		if latest := set.Latest(v); latest != nil {
			return string(latest.Status)
		}
		return noAssessment
	})
	keys := lo.Keys(counts)
	slices.Sort(keys)
	return lo.Map(keys, func(status string, _ int) map[string]interface{} {
		return map[string]interface{}{"status": status, "count": counts[status]}
	})
}

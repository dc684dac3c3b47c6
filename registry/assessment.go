package registry

import (
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// AssessmentRegistry owns every assessment, keyed by its random id. Assessments about the
// same vulnerability stay distinct entries and form its decision history.
type AssessmentRegistry struct {
	assessments map[string]*model.VulnAssessment
	byVuln      map[string][]string
	logger      *zap.Logger
}

// NewAssessmentRegistry creates an empty registry.
func NewAssessmentRegistry(opts ...Option) *AssessmentRegistry {
	o := newOptions(opts)
	return &AssessmentRegistry{
		assessments: map[string]*model.VulnAssessment{},
		byVuln:      map[string][]string{},
		logger:      o.logger,
	}
}

// Add inserts a, or merges it into the assessment already registered under the same id,
// and returns the registered instance. Invalid input is ignored and yields nil.
func (r *AssessmentRegistry) Add(a *model.VulnAssessment) *model.VulnAssessment {
	if !a.Valid() {
		r.logger.Debug("ignoring invalid assessment")
		return nil
	}
	if existing, ok := r.assessments[a.ID]; ok {
		if existing != a && !existing.Merge(a) {
			r.logger.Debug("assessment id reused for another vulnerability",
				zap.String("assessment_id", a.ID),
				zap.String("vuln_id", existing.VulnID),
				zap.String("other_vuln_id", a.VulnID))
		}
		return existing
	}
	r.assessments[a.ID] = a
	r.byVuln[a.VulnID] = append(r.byVuln[a.VulnID], a.ID)
	return a
}

// Get returns the assessment registered under id.
func (r *AssessmentRegistry) Get(id string) *model.VulnAssessment {
	return r.assessments[id]
}

// Contains reports whether id is registered.
func (r *AssessmentRegistry) Contains(id string) bool {
	_, ok := r.assessments[id]
	return ok
}

// Remove deletes the assessment registered under id.
func (r *AssessmentRegistry) Remove(id string) bool {
	a, ok := r.assessments[id]
	if !ok {
		return false
	}
	delete(r.assessments, id)
	r.byVuln[a.VulnID] = lo.Without(r.byVuln[a.VulnID], id)
	if len(r.byVuln[a.VulnID]) == 0 {
		delete(r.byVuln, a.VulnID)
	}
	return true
}

// Len returns the number of registered assessments.
func (r *AssessmentRegistry) Len() int {
	return len(r.assessments)
}

// List returns every assessment in history order.
func (r *AssessmentRegistry) List() []*model.VulnAssessment {
	return sortHistory(lo.Values(r.assessments))
}

// ByVuln returns the history recorded under vulnID exactly, oldest first.
func (r *AssessmentRegistry) ByVuln(vulnID string) []*model.VulnAssessment {
	return sortHistory(r.collect(vulnID))
}

// ByVulnerability returns the history recorded under the canonical id or any alias of
// vuln, oldest first.
func (r *AssessmentRegistry) ByVulnerability(vuln *model.Vulnerability) []*model.VulnAssessment {
	return sortHistory(r.collect(vuln.Identifiers()...))
}

// ByVulnAndPackage returns the history of vulnID restricted to assessments naming packageID.
func (r *AssessmentRegistry) ByVulnAndPackage(vulnID, packageID string) []*model.VulnAssessment {
	return lo.Filter(r.ByVuln(vulnID), func(a *model.VulnAssessment, _ int) bool {
		return slices.Contains(a.Packages, packageID)
	})
}

func (r *AssessmentRegistry) collect(vulnIDs ...string) []*model.VulnAssessment {
	var out []*model.VulnAssessment
	for _, vulnID := range lo.Uniq(vulnIDs) {
		for _, id := range r.byVuln[vulnID] {
			out = append(out, r.assessments[id])
		}
	}
	return out
}

// sortHistory orders by timestamp, then id for a stable order between equal timestamps.
func sortHistory(list []*model.VulnAssessment) []*model.VulnAssessment {
	slices.SortFunc(list, func(a, b *model.VulnAssessment) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list
}

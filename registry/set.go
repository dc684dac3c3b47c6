package registry

import (
	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// Set groups the three registries describing one product.
type Set struct {
	Packages        *PackageRegistry
	Vulnerabilities *VulnerabilityRegistry
	Assessments     *AssessmentRegistry
}

// NewSet creates a set of empty registries sharing opts.
func NewSet(opts ...Option) *Set {
	return &Set{
		Packages:        NewPackageRegistry(opts...),
		Vulnerabilities: NewVulnerabilityRegistry(opts...),
		Assessments:     NewAssessmentRegistry(opts...),
	}
}

// Set rebuilds the registries from the snapshot.
func (s *Snapshot) Set(opts ...Option) *Set {
	set := NewSet(opts...)
	s.AddTo(set.Packages, set.Vulnerabilities, set.Assessments)
	return set
}

// Snapshot exports the set.
func (s *Set) Snapshot() *Snapshot {
	return NewSnapshot(s.Packages, s.Vulnerabilities, s.Assessments)
}

// Latest returns the most recent assessment of vuln, nil when it has none.
func (s *Set) Latest(vuln *model.Vulnerability) *model.VulnAssessment {
	history := s.Assessments.ByVulnerability(vuln)
	if len(history) == 0 {
		return nil
	}
	return history[len(history)-1]
}

package model

import (
	"slices"
	"strings"

	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// SeverityUnknown is the label of a vulnerability without any score.
const SeverityUnknown = "UNKNOWN"

// CVSS is one scored vector as reported by a source.
type CVSS struct {
	Version             string  `json:"version" yaml:"version"`
	Vector              string  `json:"vector_string" yaml:"vector_string"`
	Author              string  `json:"author" yaml:"author"`
	BaseScore           float64 `json:"base_score" yaml:"base_score"`
	ExploitabilityScore float64 `json:"exploitability_score,omitempty" yaml:"exploitability_score,omitempty"`
	ImpactScore         float64 `json:"impact_score,omitempty" yaml:"impact_score,omitempty"`
}

// NewCVSS builds an entry from a vector, reading version and base score from it when the
// vector can be decoded.
func NewCVSS(vector, author string, baseScore float64) CVSS {
	c := CVSS{
		Vector:    strings.TrimSpace(vector),
		Author:    author,
		BaseScore: baseScore,
		Version:   util.CVSSVersion(vector),
	}
	if c.BaseScore == 0 && c.Version != "" {
		c.BaseScore = util.CalculateCVSSScore(c.Vector)
	}
	return c
}

func (c CVSS) sameAs(o CVSS) bool {
	if c.Vector != "" || o.Vector != "" {
		return c.Version == o.Version && c.Vector == o.Vector
	}
	return c.Author == o.Author && c.BaseScore == o.BaseScore
}

// Severity aggregates CVSS entries into a label and a score range.
type Severity struct {
	Label    string  `json:"severity" yaml:"severity"`
	MinScore float64 `json:"min_score" yaml:"min_score"`
	MaxScore float64 `json:"max_score" yaml:"max_score"`
	CVSS     []CVSS  `json:"cvss" yaml:"cvss"`
}

// AddCVSS registers an entry unless an equivalent one exists, and recomputes the label and
// score range over every entry.
func (s *Severity) AddCVSS(c CVSS) bool {
	for _, existing := range s.CVSS {
		if existing.sameAs(c) {
			return false
		}
	}
	s.CVSS = append(s.CVSS, c)
	s.recompute()
	return true
}

func (s *Severity) recompute() {
	if len(s.CVSS) == 0 {
		return
	}
	scores := make([]float64, 0, len(s.CVSS))
	for _, c := range s.CVSS {
		scores = append(scores, c.BaseScore)
	}
	s.MinScore = slices.Min(scores)
	s.MaxScore = slices.Max(scores)
	s.Label = util.GetSeverityRating(s.MaxScore)
}

// SetWithoutCVSS records a label and score supplied without any vector. It is ignored when
// CVSS entries exist, and does not replace an existing label unless force is set. A zero score
// takes the lower bound of the label's rating band.
func (s *Severity) SetWithoutCVSS(label string, score float64, force bool) bool {
	label = strings.ToUpper(strings.TrimSpace(label))
	if util.IsEmpty(label) || (len(s.CVSS) > 0 && !force) {
		return false
	}
	if s.Label != "" && s.Label != SeverityUnknown && !force {
		return false
	}
	if score == 0 {
		score = util.GetSeverityScore(label)
	}
	s.Label = label
	s.MinScore = score
	s.MaxScore = score
	return true
}

// Merge appends the other side's CVSS entries, falling back to its manual label.
func (s *Severity) Merge(other Severity) {
	for _, c := range other.CVSS {
		s.AddCVSS(c)
	}
	if len(s.CVSS) == 0 && other.Label != "" && other.Label != SeverityUnknown {
		s.SetWithoutCVSS(other.Label, other.MaxScore, false)
	}
}

// EPSS is the probability of exploitation of a vulnerability.
type EPSS struct {
	Score      float64 `json:"score" yaml:"score"`
	Percentile float64 `json:"percentile" yaml:"percentile"`
}

// Merge keeps the first recorded EPSS values.
func (e *EPSS) Merge(other EPSS) {
	if e.Score == 0 && e.Percentile == 0 {
		*e = other
	}
}

// Effort holds ISO-8601 duration estimates for fixing a vulnerability.
type Effort struct {
	Optimistic  string `json:"optimistic" yaml:"optimistic"`
	Likely      string `json:"likely" yaml:"likely"`
	Pessimistic string `json:"pessimistic" yaml:"pessimistic"`
}

// Merge fills the estimates that are still empty.
func (e *Effort) Merge(other Effort) {
	if e.Optimistic == "" {
		e.Optimistic = other.Optimistic
	}
	if e.Likely == "" {
		e.Likely = other.Likely
	}
	if e.Pessimistic == "" {
		e.Pessimistic = other.Pessimistic
	}
}

package model

import (
	"maps"
	"slices"
	"strings"
)

// Keys of Vulnerability.Texts.
const (
	TextDescription    = "description"
	TextDetail         = "detail"
	TextSummary        = "summary"
	TextRecommendation = "recommendation"
)

// Vulnerability represents one distinct security issue, under its canonical id.
type Vulnerability struct {
	ID         string            `json:"id" yaml:"id"`
	Aliases    []string          `json:"aliases" yaml:"aliases"`
	FoundBy    []string          `json:"found_by" yaml:"found_by"`
	Datasource string            `json:"datasource" yaml:"datasource"`
	Namespace  string            `json:"namespace" yaml:"namespace"`
	Texts      map[string]string `json:"texts" yaml:"texts"`
	URLs       []string          `json:"urls" yaml:"urls"`
	Advisories []string          `json:"advisories" yaml:"advisories"`
	Packages   []string          `json:"packages" yaml:"packages"`
	Severity   Severity          `json:"severity" yaml:"severity"`
	EPSS       EPSS              `json:"epss" yaml:"epss"`
	Effort     Effort            `json:"effort" yaml:"effort"`
}

// NewVulnerability creates a vulnerability first reported by foundBy.
func NewVulnerability(id, datasource, namespace, foundBy string) *Vulnerability {
	v := &Vulnerability{
		ID:         strings.TrimSpace(id),
		Datasource: datasource,
		Namespace:  namespace,
		Aliases:    []string{},
		FoundBy:    []string{},
		Texts:      map[string]string{},
		URLs:       []string{},
		Advisories: []string{},
		Packages:   []string{},
		Severity:   Severity{Label: SeverityUnknown, CVSS: []CVSS{}},
	}
	v.AddFoundBy(foundBy)
	return v
}

// Valid reports whether the vulnerability can be registered.
func (v *Vulnerability) Valid() bool {
	return v != nil && v.ID != ""
}

func addUnique(set *[]string, item string) bool {
	item = strings.TrimSpace(item)
	if item == "" || slices.Contains(*set, item) {
		return false
	}
	*set = append(*set, item)
	return true
}

// AddAlias records another identifier of the same issue.
func (v *Vulnerability) AddAlias(alias string) bool {
	if strings.TrimSpace(alias) == v.ID {
		return false
	}
	return addUnique(&v.Aliases, alias)
}

// AddFoundBy records a source currently reporting the vulnerability.
func (v *Vulnerability) AddFoundBy(source string) bool {
	return addUnique(&v.FoundBy, source)
}

// AddPackage records an affected package id.
func (v *Vulnerability) AddPackage(packageID string) bool {
	return addUnique(&v.Packages, packageID)
}

// AddURL records a reference URL.
func (v *Vulnerability) AddURL(url string) bool {
	return addUnique(&v.URLs, url)
}

// AddAdvisory records an advisory URL.
func (v *Vulnerability) AddAdvisory(url string) bool {
	return addUnique(&v.Advisories, url)
}

// AddText sets a free text field unless it already holds a non-empty value.
func (v *Vulnerability) AddText(key, text string) bool {
	if v.Texts == nil {
		v.Texts = map[string]string{}
	}
	if strings.TrimSpace(text) == "" || v.Texts[key] != "" {
		return false
	}
	v.Texts[key] = text
	return true
}

// RegisterCVSS adds a CVSS entry to the severity record.
func (v *Vulnerability) RegisterCVSS(c CVSS) bool {
	return v.Severity.AddCVSS(c)
}

// SetSeverityWithoutCVSS records a label and score given without a vector.
func (v *Vulnerability) SetSeverityWithoutCVSS(label string, score float64, force bool) bool {
	return v.Severity.SetWithoutCVSS(label, score, force)
}

// SetEPSS sets the exploitation probability.
func (v *Vulnerability) SetEPSS(score, percentile float64) {
	v.EPSS = EPSS{Score: score, Percentile: percentile}
}

// SetEffort sets the fixing effort estimates.
func (v *Vulnerability) SetEffort(optimistic, likely, pessimistic string) {
	v.Effort = Effort{Optimistic: optimistic, Likely: likely, Pessimistic: pessimistic}
}

// Identifiers returns the canonical id followed by every alias.
func (v *Vulnerability) Identifiers() []string {
	return append([]string{v.ID}, v.Aliases...)
}

// Merge folds another report of the same issue into v. The other id becomes an alias when
// it differs from v.ID.
func (v *Vulnerability) Merge(other *Vulnerability) bool {
	if !v.Valid() || !other.Valid() {
		return false
	}
	v.AddAlias(other.ID)
	for _, alias := range other.Aliases {
		v.AddAlias(alias)
	}
	for _, source := range other.FoundBy {
		v.AddFoundBy(source)
	}
	for _, pkg := range other.Packages {
		v.AddPackage(pkg)
	}
	for _, url := range other.URLs {
		v.AddURL(url)
	}
	for _, url := range other.Advisories {
		v.AddAdvisory(url)
	}
	for _, key := range slices.Sorted(maps.Keys(other.Texts)) {
		v.AddText(key, other.Texts[key])
	}
	if v.Datasource == "" {
		v.Datasource = other.Datasource
	}
	if v.Namespace == "" {
		v.Namespace = other.Namespace
	}
	v.Severity.Merge(other.Severity)
	v.EPSS.Merge(other.EPSS)
	v.Effort.Merge(other.Effort)
	return true
}

// Clone returns a deep copy of the vulnerability.
func (v *Vulnerability) Clone() *Vulnerability {
	c := *v
	c.Aliases = slices.Clone(v.Aliases)
	c.FoundBy = slices.Clone(v.FoundBy)
	c.Texts = maps.Clone(v.Texts)
	c.URLs = slices.Clone(v.URLs)
	c.Advisories = slices.Clone(v.Advisories)
	c.Packages = slices.Clone(v.Packages)
	c.Severity.CVSS = slices.Clone(v.Severity.CVSS)
	return &c
}

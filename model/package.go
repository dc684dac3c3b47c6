// Package model defines the canonical entities reconciled from scanner and SBOM reports:
// installed packages, vulnerabilities and VEX assessments.
package model

import (
	"slices"
	"strings"

	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// Package represents one piece of installed software at one version.
type Package struct {
	Name    string   `json:"name" yaml:"name"`
	Version string   `json:"version" yaml:"version"`
	CPE     []string `json:"cpe" yaml:"cpe"`   // CPE 2.3 identifiers
	PURL    []string `json:"purl" yaml:"purl"` // cleaned package URLs
}

// NewPackage creates a Package with empty identifier sets.
func NewPackage(name, version string) *Package {
	return &Package{
		Name:    strings.TrimSpace(name),
		Version: strings.TrimSpace(version),
		CPE:     []string{},
		PURL:    []string{},
	}
}

// ID returns the package identifier, name@version.
func (p *Package) ID() string {
	return p.Name + "@" + p.Version
}

// Valid reports whether the package can be registered.
func (p *Package) Valid() bool {
	return p != nil && p.Name != ""
}

// AddCPE adds a CPE identifier. Strings not starting with "cpe:" are rejected.
func (p *Package) AddCPE(cpe string) bool {
	cpe = strings.TrimSpace(cpe)
	if !strings.HasPrefix(cpe, "cpe:") {
		return false
	}
	if slices.Contains(p.CPE, cpe) {
		return true
	}
	p.CPE = append(p.CPE, cpe)
	return true
}

// AddPURL cleans and adds a package URL. Unparsable strings are rejected.
func (p *Package) AddPURL(purl string) bool {
	cleaned, err := util.CleanPURL(purl)
	if err != nil {
		return false
	}
	if slices.Contains(p.PURL, cleaned) {
		return true
	}
	p.PURL = append(p.PURL, cleaned)
	return true
}

// GenerateGenericCPE adds and returns a wildcard-vendor CPE built from name and version.
func (p *Package) GenerateGenericCPE() string {
	version := p.Version
	if version == "" {
		version = "*"
	}
	cpe := "cpe:2.3:*:*:" + cpeEscape(p.Name) + ":" + cpeEscape(version) + ":*:*:*:*:*:*:*"
	p.AddCPE(cpe)
	return cpe
}

// GenerateGenericPURL adds and returns a pkg:generic PURL built from name and version.
func (p *Package) GenerateGenericPURL() string {
	purl := util.GenericPURL(p.Name, p.Version)
	p.AddPURL(purl)
	cleaned, _ := util.CleanPURL(purl)
	return cleaned
}

func cpeEscape(s string) string {
	return strings.NewReplacer(":", "\\:", " ", "_").Replace(s)
}

// Ecosystem returns the type of the first ecosystem-specific PURL, "" if there is none.
func (p *Package) Ecosystem() string {
	for _, purl := range p.PURL {
		if t := util.PURLType(purl); t != "" && t != "generic" {
			return t
		}
	}
	return ""
}

// Equal reports whether both packages are the same entity: same name and a version equal
// under semantic versioning rules (exact string equality when not semver).
func (p *Package) Equal(other *Package) bool {
	if p == nil || other == nil {
		return false
	}
	return p.Name == other.Name && util.VersionsEqual(p.Version, other.Version)
}

// Compare orders packages by name then version, and returns 0 only for equal packages.
func (p *Package) Compare(other *Package) int {
	if c := strings.Compare(p.Name, other.Name); c != 0 {
		return c
	}
	if p.Equal(other) {
		return 0
	}
	ecosystem := p.Ecosystem()
	if ecosystem == "" {
		ecosystem = other.Ecosystem()
	}
	if c := util.CompareVersions(ecosystem, p.Version, other.Version); c != 0 {
		return c
	}
	return strings.Compare(p.Version, other.Version)
}

// Merge copies the identifiers of an identical package. It is a no-op returning false
// when the packages are not the same entity.
func (p *Package) Merge(other *Package) bool {
	if !p.Equal(other) {
		return false
	}
	for _, cpe := range other.CPE {
		p.AddCPE(cpe)
	}
	for _, purl := range other.PURL {
		p.AddPURL(purl)
	}
	return true
}

// Clone returns a deep copy of the package.
func (p *Package) Clone() *Package {
	return &Package{
		Name:    p.Name,
		Version: p.Version,
		CPE:     slices.Clone(p.CPE),
		PURL:    slices.Clone(p.PURL),
	}
}

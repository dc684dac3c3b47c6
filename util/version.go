// Package util provides utility functions shared by the registries, adapters and servers.
//
//revive:disable-next-line:var-naming
package util

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	npm "github.com/aquasecurity/go-npm-version/pkg"
	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/google/osv-scanner/pkg/models"
)

// versionComparer parses both versions with one scheme and orders them.
type versionComparer func(a, b string) (int, bool)

func compareSemver(a, b string) (int, bool) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

func compareNPM(a, b string) (int, bool) {
	va, err := npm.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := npm.NewVersion(b)
	if err != nil {
		return 0, false
	}
	switch {
	case va.LessThan(vb):
		return -1, true
	case va.GreaterThan(vb):
		return 1, true
	}
	return 0, true
}

func comparePEP440(a, b string) (int, bool) {
	va, err := pep440.Parse(a)
	if err != nil {
		return 0, false
	}
	vb, err := pep440.Parse(b)
	if err != nil {
		return 0, false
	}
	switch {
	case va.LessThan(vb):
		return -1, true
	case va.GreaterThan(vb):
		return 1, true
	}
	return 0, true
}

func comparerFor(ecosystem string) versionComparer {
	switch strings.ToLower(ecosystem) {
	case "npm":
		return compareNPM
	case "pypi":
		return comparePEP440
	}
	return compareSemver
}

// VersionsEqual reports whether two versions are the same under semantic versioning rules,
// falling back to exact string equality when either side is not semver.
func VersionsEqual(a, b string) bool {
	if c, ok := compareSemver(a, b); ok {
		return c == 0
	}
	return a == b
}

// CompareVersions orders two versions with the parser of the given ecosystem (npm, pypi),
// then semver, then plain string order.
func CompareVersions(ecosystem, a, b string) int {
	if c, ok := comparerFor(ecosystem)(a, b); ok {
		return c
	}
	if c, ok := compareSemver(a, b); ok {
		return c
	}
	return strings.Compare(a, b)
}

// IsVersionAffectedAny checks if a version is affected by any of the provided affected ranges
func IsVersionAffectedAny(version string, allAffected []models.Affected) bool {
	for _, affected := range allAffected {
		if IsVersionAffected(version, affected) {
			return true
		}
	}
	return false
}

// IsVersionAffected checks if a version is affected by OSV ranges
// Uses ecosystem-specific version parsers for accurate comparison
func IsVersionAffected(version string, affected models.Affected) bool {
	for _, v := range affected.Versions {
		if version == v {
			return true
		}
	}

	cmp := comparerFor(string(affected.Package.Ecosystem))
	for _, vrange := range affected.Ranges {
		if vrange.Type != models.RangeEcosystem && vrange.Type != models.RangeSemVer {
			continue
		}
		if isVersionInRange(version, vrange, cmp) {
			return true
		}
	}
	return false
}

// isVersionInRange requires a lower bound (introduced) and an upper bound (fixed or
// last_affected); incomplete ranges never match. "0" as introduced means from the beginning.
func isVersionInRange(version string, vrange models.Range, cmp versionComparer) bool {
	var introduced, fixed, lastAffected string
	for _, event := range vrange.Events {
		if event.Introduced != "" {
			introduced = event.Introduced
		}
		if event.Fixed != "" {
			fixed = event.Fixed
		}
		if event.LastAffected != "" {
			lastAffected = event.LastAffected
		}
	}

	if introduced == "" || (fixed == "" && lastAffected == "") {
		return false
	}

	if introduced != "0" {
		c, ok := cmp(version, introduced)
		if !ok {
			c = strings.Compare(version, introduced)
		}
		if c < 0 {
			return false
		}
	}

	if fixed != "" {
		c, ok := cmp(version, fixed)
		if !ok {
			c = strings.Compare(version, fixed)
		}
		if c >= 0 {
			return false
		}
	}

	if lastAffected != "" {
		c, ok := cmp(version, lastAffected)
		if !ok {
			c = strings.Compare(version, lastAffected)
		}
		if c > 0 {
			return false
		}
	}

	return true
}

// ExtractFixedVersions returns every fixed version named by the affected entries, deduplicated.
func ExtractFixedVersions(allAffected []models.Affected) []string {
	var fixedVersions []string
	seen := make(map[string]bool)
	for _, affected := range allAffected {
		for _, vrange := range affected.Ranges {
			for _, event := range vrange.Events {
				if event.Fixed != "" && !seen[event.Fixed] {
					fixedVersions = append(fixedVersions, event.Fixed)
					seen[event.Fixed] = true
				}
			}
		}
	}
	return fixedVersions
}

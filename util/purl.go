// Package util provides utility functions shared by the registries, adapters and servers.
//
//revive:disable-next-line:var-naming
package util

import (
	"strings"

	"github.com/package-url/packageurl-go"
)

// CleanPURL removes qualifiers (after ?) but preserves the subpath (after #)
// to maintain module identity (e.g. #v2)
func CleanPURL(purlStr string) (string, error) {
	parsed, err := packageurl.FromString(strings.TrimSpace(purlStr))
	if err != nil {
		return "", err
	}

	cleaned := packageurl.PackageURL{
		Type:      parsed.Type,
		Namespace: parsed.Namespace,
		Name:      parsed.Name,
		Version:   parsed.Version,
		Subpath:   parsed.Subpath,
	}

	return strings.ToLower(cleaned.ToString()), nil
}

// ParsePURL parses a PURL string and returns the parsed PackageURL
func ParsePURL(purlStr string) (*packageurl.PackageURL, error) {
	parsed, err := packageurl.FromString(purlStr)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// PURLType returns the package type of a PURL ("npm", "pypi", ...) or "" when it cannot be parsed.
func PURLType(purlStr string) string {
	parsed, err := packageurl.FromString(purlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Type)
}

// GenericPURL builds a pkg:generic PURL for software that has no better ecosystem.
// Example: ("cairo", "1.16.0") -> "pkg:generic/cairo@1.16.0"
func GenericPURL(name, version string) string {
	purl := packageurl.NewPackageURL(packageurl.TypeGeneric, "", name, version, nil, "")
	return purl.ToString()
}

// EcosystemToPurlType converts OSV ecosystem to PURL type
func EcosystemToPurlType(ecosystem string) string {
	mapping := map[string]string{
		"npm":        "npm",
		"PyPI":       "pypi",
		"Maven":      "maven",
		"Go":         "golang",
		"NuGet":      "nuget",
		"RubyGems":   "gem",
		"crates.io":  "cargo",
		"Packagist":  "composer",
		"Pub":        "pub",
		"Hex":        "hex",
		"Alpine":     "apk",
		"Wolfi":      "apk",
		"Chainguard": "apk",
		"Debian":     "deb",
		"Ubuntu":     "deb",
	}

	if purlType, exists := mapping[ecosystem]; exists {
		return purlType
	}

	for key, value := range mapping {
		if strings.EqualFold(key, ecosystem) {
			return value
		}
	}

	return strings.ToLower(ecosystem)
}

package util

import (
	"net/url"
	"testing"

	"github.com/google/osv-scanner/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanPURL(t *testing.T) {
	cleaned, err := CleanPURL(" pkg:npm/Lodash@4.17.21?arch=x86#sub ")
	require.NoError(t, err)
	assert.Equal(t, "pkg:npm/lodash@4.17.21#sub", cleaned)

	_, err = CleanPURL("lodash@4.17.21")
	assert.Error(t, err)

	assert.Equal(t, "npm", PURLType("pkg:npm/lodash@4.17.21"))
	assert.Empty(t, PURLType("not a purl"))
	assert.Equal(t, "pkg:generic/cairo@1.16.0", GenericPURL("cairo", "1.16.0"))
}

func TestEcosystemToPurlType(t *testing.T) {
	tests := []struct {
		ecosystem string
		want      string
	}{
		{"PyPI", "pypi"},
		{"pypi", "pypi"},
		{"Go", "golang"},
		{"Debian", "deb"},
		{"Yocto", "yocto"},
	}
	for _, tt := range tests {
		t.Run(tt.ecosystem, func(t *testing.T) {
			assert.Equal(t, tt.want, EcosystemToPurlType(tt.ecosystem))
		})
	}
}

func TestCVSS(t *testing.T) {
	tests := []struct {
		name    string
		vector  string
		version string
		score   float64
	}{
		{"v3.1", "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", "3.1", 9.8},
		{"v3.0", "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", "3.0", 9.8},
		{"v2", "AV:N/AC:L/Au:N/C:P/I:P/A:P", "2.0", 7.5},
		{"invalid", "CVSS:3.1/AV:X", "", 0},
		{"empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.version, CVSSVersion(tt.vector))
			assert.InDelta(t, tt.score, CalculateCVSSScore(tt.vector), 0.01)
		})
	}
}

func TestSeverityRating(t *testing.T) {
	assert.Equal(t, "NONE", GetSeverityRating(0))
	assert.Equal(t, "LOW", GetSeverityRating(3.9))
	assert.Equal(t, "MEDIUM", GetSeverityRating(4))
	assert.Equal(t, "HIGH", GetSeverityRating(7))
	assert.Equal(t, "CRITICAL", GetSeverityRating(9.8))

	assert.InDelta(t, 7.0, GetSeverityScore(" high "), 0.001)
	assert.Zero(t, GetSeverityScore("unknown"))
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"pkg:npm/lodash@4.17.21", "pkg:npm%2Flodash@4.17.21"},
		{"a b#c", "a%20b%23c"},
		{"50%", "50%25"},
		{"CVE-2020-35492", "CVE-2020-35492"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			key := SanitizeKey(tt.id)
			assert.Equal(t, tt.want, key)
			back, err := url.PathUnescape(key)
			require.NoError(t, err)
			assert.Equal(t, tt.id, back)
		})
	}

	assert.NotEqual(t, SanitizeKey("a/b@1"), SanitizeKey("a-b@1"))
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		name      string
		ecosystem string
		a, b      string
		want      int
	}{
		{"npm", "npm", "1.2.0", "1.10.0", -1},
		{"pep440 pre-release", "pypi", "1.0a1", "1.0", -1},
		{"semver fallback", "", "10.0.0", "2.0.0", 1},
		{"string fallback", "", "abc", "abd", -1},
		{"equal", "npm", "1.0.0", "1.0.0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.ecosystem, tt.a, tt.b))
		})
	}

	assert.True(t, VersionsEqual("1.0", "1.0.0"))
	assert.True(t, VersionsEqual("r2", "r2"))
	assert.False(t, VersionsEqual("r2", "r3"))
}

func TestIsVersionAffected(t *testing.T) {
	affected := models.Affected{
		Package:  models.Package{Ecosystem: "npm", Name: "lodash"},
		Versions: []string{"3.0.0-legacy"},
		Ranges: []models.Range{
			{Type: models.RangeSemVer, Events: []models.Event{{Introduced: "0"}, {Fixed: "4.17.21"}}},
			{Type: models.RangeEcosystem, Events: []models.Event{{Introduced: "5.0.0"}}},
		},
	}

	tests := []struct {
		version string
		want    bool
	}{
		{"4.17.20", true},
		{"4.17.21", false},
		{"3.0.0-legacy", true},
		{"5.1.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVersionAffected(tt.version, affected))
		})
	}

	lastAffected := models.Affected{Ranges: []models.Range{
		{Type: models.RangeEcosystem, Events: []models.Event{{Introduced: "1.0.0"}, {LastAffected: "1.2.0"}}},
	}}
	assert.True(t, IsVersionAffectedAny("1.2.0", []models.Affected{affected, lastAffected}))
	assert.False(t, IsVersionAffectedAny("1.2.1", []models.Affected{lastAffected}))
	assert.Equal(t, []string{"4.17.21"}, ExtractFixedVersions([]models.Affected{affected, affected}))
}

func TestEnv(t *testing.T) {
	t.Setenv("VULNSCOUT_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnvDefault("VULNSCOUT_TEST_VALUE", "default"))
	assert.Equal(t, "default", GetEnvDefault("VULNSCOUT_TEST_MISSING", "default"))
	assert.True(t, IsEmpty(" \t"))
	assert.NotNil(t, InitLogger())
}

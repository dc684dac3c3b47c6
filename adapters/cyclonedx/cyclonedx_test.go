package cyclonedx

import (
	"bytes"
	"strings"
	"testing"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

const bomJSON = `{
  "bomFormat": "CycloneDX",
  "specVersion": "1.5",
  "version": 1,
  "components": [
    {"bom-ref": "c1", "type": "library", "name": "cairo", "version": "1.16.0",
     "purl": "pkg:generic/cairo@1.16.0?download_url=https://cairographics.org"},
    {"bom-ref": "c2", "type": "library", "name": "pixman", "version": "0.40.0",
     "cpe": "cpe:2.3:a:pixman:pixman:0.40.0:*:*:*:*:*:*:*"}
  ],
  "vulnerabilities": [
    {
      "bom-ref": "v1",
      "id": "CVE-2020-35492",
      "source": {"name": "NVD"},
      "references": [{"id": "CVE-2018-99999", "source": {"name": "NVD"}}],
      "ratings": [{"source": {"name": "NVD"}, "score": 7.8, "severity": "high", "method": "CVSSv31",
                   "vector": "CVSS:3.1/AV:L/AC:L/PR:N/UI:R/S:U/C:H/I:H/A:H"}],
      "description": "buffer overflow in cairo",
      "affects": [{"ref": "c1"}],
      "analysis": {"state": "exploitable", "detail": "reachable from the renderer",
                   "response": ["update"], "firstIssued": "2024-01-01T00:00:00Z",
                   "lastUpdated": "2024-01-02T00:00:00Z"}
    }
  ]
}`

func newRegistries() (*registry.PackageRegistry, *registry.VulnerabilityRegistry, *registry.AssessmentRegistry) {
	return registry.NewPackageRegistry(), registry.NewVulnerabilityRegistry(), registry.NewAssessmentRegistry()
}

func TestImport(t *testing.T) {
	bom, err := ReadBOM(strings.NewReader(bomJSON))
	require.NoError(t, err)

	packages, vulns, assessments := newRegistries()
	(&Importer{Packages: packages, Vulnerabilities: vulns, Assessments: assessments, Source: "grype"}).Import(bom)

	require.Equal(t, 2, packages.Len())
	cairo := packages.Get("cairo@1.16.0")
	require.NotNil(t, cairo)
	assert.Equal(t, []string{"pkg:generic/cairo@1.16.0"}, cairo.PURL)
	assert.Len(t, packages.Get("pixman@0.40.0").CPE, 1)

	v := vulns.Get("CVE-2018-99999")
	require.NotNil(t, v)
	assert.Equal(t, "CVE-2020-35492", v.ID)
	assert.Equal(t, []string{"grype"}, v.FoundBy)
	assert.Equal(t, []string{"cairo@1.16.0"}, v.Packages)
	assert.Equal(t, "NVD", v.Datasource)
	assert.Equal(t, "HIGH", v.Severity.Label)
	assert.InDelta(t, 7.8, v.Severity.MaxScore, 0.001)

	history := assessments.ByVuln("CVE-2020-35492")
	require.Len(t, history, 1)
	a := history[0]
	assert.Equal(t, model.StatusExploitable, a.Status)
	assert.Equal(t, []model.Response{model.ResponseUpdate}, a.Responses)
	assert.Equal(t, []string{"cairo@1.16.0"}, a.Packages)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), a.Timestamp)
}

func TestReimport(t *testing.T) {
	tests := []struct {
		name     string
		document string
		want     time.Time
	}{
		{"dated analysis", bomJSON, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"undated analysis", strings.NewReplacer(
			`"response": ["update"], "firstIssued": "2024-01-01T00:00:00Z",`, `"response": ["update"]`,
			`"lastUpdated": "2024-01-02T00:00:00Z"`, "",
		).Replace(bomJSON), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packages, vulns, assessments := newRegistries()
			clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			importer := &Importer{
				Packages: packages, Vulnerabilities: vulns, Assessments: assessments,
				Now: func() time.Time { return clock },
			}
			for run := 0; run < 3; run++ {
				bom, err := ReadBOM(strings.NewReader(tt.document))
				require.NoError(t, err)
				importer.Import(bom)
				clock = clock.AddDate(0, 0, 1)
			}

			assert.Equal(t, 1, vulns.Len())
			history := assessments.ByVuln("CVE-2020-35492")
			require.Len(t, history, 1)
			assert.True(t, history[0].Timestamp.Equal(tt.want), history[0].Timestamp)
		})
	}
}

func TestImportInventoryOnly(t *testing.T) {
	bom := cdx.NewBOM()
	bom.Components = &[]cdx.Component{
		{Name: "busybox", Version: "1.36.1", Components: &[]cdx.Component{{Name: "libbb", Version: "1.36.1"}}},
		{Version: "no-name"},
	}
	packages, vulns, assessments := newRegistries()
	(&Importer{Packages: packages, Vulnerabilities: vulns, Assessments: assessments}).Import(bom)
	assert.Equal(t, 2, packages.Len())
	assert.Zero(t, vulns.Len())
}

func TestExport(t *testing.T) {
	packages, vulns, assessments := newRegistries()
	pkg := model.NewPackage("cairo", "1.16.0")
	pkg.GenerateGenericPURL()
	packages.Add(pkg)

	v := model.NewVulnerability("CVE-2020-35492", "NVD", "", "grype")
	v.AddAlias("CVE-2018-99999")
	v.AddPackage(pkg.ID())
	v.RegisterCVSS(model.NewCVSS("CVSS:3.1/AV:L/AC:L/PR:N/UI:R/S:U/C:H/I:H/A:H", "NVD", 0))
	vulns.Add(v)

	early := model.NewVulnAssessment(v.ID, pkg.ID())
	early.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	early.SetStatus(model.StatusAffected)
	assessments.Add(early)
	late := model.NewVulnAssessment(v.ID, pkg.ID())
	late.Timestamp = early.Timestamp.Add(time.Hour)
	late.SetStatus(model.StatusNotAffected)
	late.SetJustification(model.JustificationComponentNotPresent)
	assessments.Add(late)

	ex := &Exporter{
		Packages: packages, Vulnerabilities: vulns, Assessments: assessments,
		Now: func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) },
	}
	bom := ex.Export()
	assert.Equal(t, "2024-02-01T00:00:00Z", bom.Metadata.Timestamp)
	require.Len(t, *bom.Components, 1)
	assert.Equal(t, "pkg:generic/cairo@1.16.0", (*bom.Components)[0].PackageURL)

	require.Len(t, *bom.Vulnerabilities, 1)
	cv := (*bom.Vulnerabilities)[0]
	require.NotNil(t, cv.Analysis)
	assert.Equal(t, cdx.IASFalsePositive, cv.Analysis.State)
	assert.Empty(t, cv.Analysis.Justification)
	require.NotNil(t, cv.Ratings)
	assert.Equal(t, cdx.ScoringMethodCVSSv31, (*cv.Ratings)[0].Method)
	assert.Equal(t, cdx.SeverityHigh, (*cv.Ratings)[0].Severity)
	assert.Equal(t, []cdx.Affects{{Ref: "cairo@1.16.0"}}, *cv.Affects)
	assert.Equal(t, late.ID, cv.BOMRef)

	var buf bytes.Buffer
	require.NoError(t, WriteBOM(&buf, bom))
	decoded, err := ReadBOM(&buf)
	require.NoError(t, err)

	packages2, vulns2, assessments2 := newRegistries()
	(&Importer{Packages: packages2, Vulnerabilities: vulns2, Assessments: assessments2}).Import(decoded)
	assert.Equal(t, 1, packages2.Len())
	back := vulns2.Get("CVE-2018-99999")
	require.NotNil(t, back)
	require.Len(t, assessments2.ByVulnerability(back), 1)
	assert.True(t, late.IsCompatibleStatus(assessments2.ByVulnerability(back)[0].Status))

	(&Importer{Packages: packages, Vulnerabilities: vulns, Assessments: assessments}).Import(decoded)
	assert.Equal(t, 2, assessments.Len())
	assert.Equal(t, model.StatusNotAffected, assessments.Get(late.ID).Status)
	assert.Equal(t, model.JustificationComponentNotPresent, assessments.Get(late.ID).Justification)
}

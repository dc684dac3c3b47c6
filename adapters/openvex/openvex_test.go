package openvex

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newRegistries() (*registry.PackageRegistry, *registry.VulnerabilityRegistry, *registry.AssessmentRegistry) {
	return registry.NewPackageRegistry(), registry.NewVulnerabilityRegistry(), registry.NewAssessmentRegistry()
}

func assessedAt(a *model.VulnAssessment, ts time.Time) *model.VulnAssessment {
	a.Timestamp = ts
	a.LastUpdate = ts
	return a
}

func TestExportImport(t *testing.T) {
	packages, vulns, assessments := newRegistries()
	cairo := model.NewPackage("cairo", "1.16.0")
	cairo.AddPURL("pkg:generic/cairo@1.16.0")
	packages.Add(cairo)

	v := model.NewVulnerability("CVE-2020-35492", "nvd", "", "grype")
	v.AddAlias("GHSA-xxxx")
	v.AddText(model.TextDescription, "buffer overflow")
	v.AddPackage("cairo@1.16.0")
	vulns.Add(v)

	first := assessedAt(model.NewVulnAssessment("CVE-2020-35492", "cairo@1.16.0"), t0)
	first.SetStatus(model.StatusUnderInvestigation)
	second := assessedAt(model.NewVulnAssessment("CVE-2020-35492", "cairo@1.16.0"), t0.Add(time.Hour))
	second.SetStatus(model.StatusNotAffected)
	second.SetJustification(model.JustificationVulnerableCodeNotPresent)
	third := assessedAt(model.NewVulnAssessment("CVE-2020-35492", "cairo@1.16.0"), t0.Add(2*time.Hour))
	third.SetStatus(model.StatusExploitable)
	third.SetWorkaround("disable the PDF backend", t0.Add(2*time.Hour))
	unexpressible := assessedAt(model.NewVulnAssessment("CVE-2020-35492", "cairo@1.16.0"), t0.Add(3*time.Hour))
	unexpressible.SetStatus(model.StatusNotAffected)
	for _, a := range []*model.VulnAssessment{first, second, third, unexpressible} {
		assessments.Add(a)
	}

	doc := (&Exporter{
		Packages: packages, Vulnerabilities: vulns, Assessments: assessments,
		Author: "tester", Now: func() time.Time { return t0 },
	}).Export()

	assert.Equal(t, Context, doc.Context)
	assert.True(t, strings.HasPrefix(doc.ID, docIDPrefix))
	assert.Equal(t, "tester", doc.Author)
	require.Len(t, doc.Statements, 3)
	assert.Equal(t, first.ID, doc.Statements[0].ID)
	assert.Equal(t, model.StatusAffected, doc.Statements[2].Status)
	assert.Equal(t, "disable the PDF backend", doc.Statements[2].ActionStatement)
	assert.Equal(t, []string{"GHSA-xxxx"}, doc.Statements[0].Vulnerability.Aliases)
	require.NotNil(t, doc.Statements[0].Products[0].Identifiers)
	assert.Equal(t, "pkg:generic/cairo@1.16.0", doc.Statements[0].Products[0].Identifiers.PURL)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))
	back, err := Read(&buf)
	require.NoError(t, err)

	packages2, vulns2, assessments2 := newRegistries()
	importer := &Importer{Packages: packages2, Vulnerabilities: vulns2, Assessments: assessments2}
	importer.Import(back)

	assert.True(t, packages2.Contains("cairo@1.16.0"))
	assert.Equal(t, []string{"pkg:generic/cairo@1.16.0"}, packages2.Get("cairo@1.16.0").PURL)
	got := vulns2.Get("GHSA-xxxx")
	require.NotNil(t, got)
	assert.Equal(t, "CVE-2020-35492", got.ID)
	assert.Equal(t, []string{SourceName}, got.FoundBy)
	assert.Equal(t, []string{"cairo@1.16.0"}, got.Packages)

	require.Equal(t, 3, assessments2.Len())
	restored := assessments2.Get(second.ID)
	require.NotNil(t, restored)
	assert.Equal(t, model.StatusNotAffected, restored.Status)
	assert.Equal(t, model.JustificationVulnerableCodeNotPresent, restored.Justification)
	assert.True(t, restored.Timestamp.Equal(second.Timestamp))
	assert.Equal(t, model.OriginManual, restored.Origin)

	importer.Import(back)
	assert.Equal(t, 3, assessments2.Len())
	assert.Equal(t, 1, vulns2.Len())
}

func TestImportStatementsWithoutID(t *testing.T) {
	const doc = `{
  "@context": "https://openvex.dev/ns/v0.2.0",
  "@id": "https://openvex.dev/docs/public/vex-1",
  "author": "someone",
  "version": 1,
  "statements": [
    {"vulnerability": {"name": "CVE-2023-0001"}, "products": [{"@id": "pkg:deb/debian/libcairo2@1.16.0"}],
     "status": "affected", "timestamp": "2024-03-01T10:00:00Z"},
    {"vulnerability": {"name": "CVE-2023-0002"}, "products": [{"@id": "busybox@1.36.1"}],
     "status": "not_affected", "justification": "component_not_present",
     "status_notes": "` + model.ExpiredStatusNote + `", "timestamp": "2024-03-01T11:00:00Z"},
    {"vulnerability": {"name": "CVE-2023-0003"}, "products": [{"@id": "busybox@1.36.1"}],
     "status": "maybe"},
    {"vulnerability": {"name": ""}, "products": [{"@id": "busybox@1.36.1"}],
     "status": "affected"}
  ]
}`
	read := func() *Document {
		d, err := Read(strings.NewReader(doc))
		require.NoError(t, err)
		return d
	}

	packages, vulns, assessments := newRegistries()
	importer := &Importer{Packages: packages, Vulnerabilities: vulns, Assessments: assessments, Source: "vex"}
	importer.Import(read())
	importer.Import(read())

	assert.True(t, packages.Contains("libcairo2@1.16.0"))
	assert.True(t, packages.Contains("busybox@1.36.1"))
	assert.Equal(t, 3, vulns.Len())
	assert.Equal(t, []string{"vex"}, vulns.Get("CVE-2023-0003").FoundBy)

	require.Equal(t, 2, assessments.Len())
	expired := assessments.ByVuln("CVE-2023-0002")
	require.Len(t, expired, 1)
	assert.Equal(t, model.OriginAutoExpired, expired[0].Origin)
	assert.Equal(t, []string{"busybox@1.36.1"}, expired[0].Packages)
	assert.Empty(t, assessments.ByVuln("CVE-2023-0003"))
}

func TestImportUndatedStatements(t *testing.T) {
	tests := []struct {
		name    string
		docTime string
		want    time.Time
	}{
		{"inherits document timestamp", `"timestamp": "2024-03-01T10:00:00Z",`, t0},
		{"keeps first import date", "", t0.Add(24 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"@context": "https://openvex.dev/ns/v0.2.0", "@id": "doc", "author": "a", ` + tt.docTime + `
  "version": 1, "statements": [
    {"vulnerability": {"name": "CVE-2023-0001"}, "products": [{"@id": "busybox@1.36.1"}], "status": "affected"}
  ]}`
			packages, vulns, assessments := newRegistries()
			clock := t0.Add(24 * time.Hour)
			importer := &Importer{
				Packages: packages, Vulnerabilities: vulns, Assessments: assessments,
				Now: func() time.Time { return clock },
			}
			for run := 0; run < 3; run++ {
				d, err := Read(strings.NewReader(doc))
				require.NoError(t, err)
				importer.Import(d)
				clock = clock.Add(time.Hour)
			}

			history := assessments.ByVuln("CVE-2023-0001")
			require.Len(t, history, 1)
			assert.True(t, history[0].Timestamp.Equal(tt.want), history[0].Timestamp)
			assert.True(t, history[0].LastUpdate.Equal(tt.want), history[0].LastUpdate)
		})
	}
}

func TestReadInvalid(t *testing.T) {
	_, err := Read(strings.NewReader("{"))
	assert.Error(t, err)
}

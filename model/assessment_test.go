package model

import (
	"testing"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var openVEXJustifications = []Justification{
	JustificationComponentNotPresent,
	JustificationVulnerableCodeNotPresent,
	JustificationVulnerableCodeNotInExecutePath,
	JustificationVulnerableCodeCannotBeControlledByAdversary,
	JustificationInlineMitigationsAlreadyExist,
}

func TestSetStatusRejectsUnknownValues(t *testing.T) {
	a := NewVulnAssessment("CVE-2020-35492", "cairo@1.16.0")
	require.True(t, a.SetStatus(StatusAffected))

	assert.False(t, a.SetStatus("broken"))
	assert.Equal(t, StatusAffected, a.Status)

	assert.True(t, a.SetStatus(StatusExploitable))
	assert.Equal(t, StatusExploitable, a.Status)

	assert.False(t, a.SetJustification("because"))
	assert.True(t, a.SetJustification(JustificationProtectedAtRuntime))
	assert.True(t, a.SetJustification(""))
	assert.Empty(t, a.Justification)

	assert.False(t, a.AddResponse("ignore"))
	assert.True(t, a.AddResponse(ResponseUpdate))
	assert.True(t, a.AddResponse(ResponseUpdate))
	assert.Equal(t, []Response{ResponseUpdate}, a.Responses)
}

func TestStatusNotesAppendDeduplicates(t *testing.T) {
	a := NewVulnAssessment("CVE-1")
	a.SetStatusNotes("first", false)
	a.SetStatusNotes("first\nsecond", true)
	a.SetStatusNotes("second", true)
	assert.Equal(t, "first\nsecond", a.StatusNotes)

	a.SetStatusNotes("reset", false)
	assert.Equal(t, "reset", a.StatusNotes)
}

// Every OpenVEX pair survives a trip through CycloneDX under the compatibility relation.
func TestVEXRoundTrip(t *testing.T) {
	for _, status := range []Status{StatusUnderInvestigation, StatusNotAffected, StatusAffected, StatusFixed} {
		for _, justification := range append([]Justification{""}, openVEXJustifications...) {
			t.Run(string(status)+"/"+string(justification), func(t *testing.T) {
				original := NewVulnAssessment("CVE-1", "pkg@1")
				require.True(t, original.SetStatus(status))
				require.True(t, original.SetJustification(justification))

				b := NewVulnAssessment("CVE-1", "pkg@1")
				bStatus, ok := original.StatusCycloneDX()
				require.True(t, ok)
				require.True(t, b.SetStatus(bStatus))
				if bJust, ok := original.JustificationCycloneDX(); ok {
					require.True(t, b.SetJustification(bJust))
				}

				aStatus, ok := b.StatusOpenVEX()
				require.True(t, ok)
				assert.True(t, original.IsCompatibleStatus(aStatus), "status %s", aStatus)
				aJust, ok := b.JustificationOpenVEX()
				if justification == "" {
					assert.False(t, ok)
					return
				}
				require.True(t, ok)
				assert.True(t, original.IsCompatibleJustification(aJust), "justification %s", aJust)
			})
		}
	}
}

func TestFalsePositiveSpecialCase(t *testing.T) {
	fp := NewVulnAssessment("CVE-1", "pkg@1")
	require.True(t, fp.SetStatus(StatusFalsePositive))

	status, ok := fp.StatusOpenVEX()
	require.True(t, ok)
	assert.Equal(t, StatusNotAffected, status)
	justification, ok := fp.JustificationOpenVEX()
	require.True(t, ok)
	assert.Equal(t, JustificationComponentNotPresent, justification)

	back := NewVulnAssessment("CVE-1", "pkg@1")
	require.True(t, back.SetStatus(status))
	require.True(t, back.SetJustification(justification))
	state, ok := back.StatusCycloneDX()
	require.True(t, ok)
	assert.Equal(t, StatusFalsePositive, state)
	_, ok = back.JustificationCycloneDX()
	assert.False(t, ok)

	out, ok := back.ToCycloneDX()
	require.True(t, ok)
	assert.Equal(t, cdx.IASFalsePositive, out.Analysis.State)
	assert.Empty(t, out.Analysis.Justification)
}

func TestCompatibility(t *testing.T) {
	tests := []struct {
		name      string
		stored    Status
		candidate Status
		want      bool
	}{
		{"same value", StatusAffected, StatusAffected, true},
		{"cyclonedx to stored openvex", StatusAffected, StatusExploitable, true},
		{"openvex to stored cyclonedx", StatusInTriage, StatusUnderInvestigation, true},
		{"resolved_with_pedigree collapses to fixed", StatusFixed, StatusResolvedWithPedigree, true},
		{"false_positive maps to not_affected", StatusNotAffected, StatusFalsePositive, true},
		{"genuine transition", StatusAffected, StatusFixed, false},
		{"genuine transition across vocabularies", StatusUnderInvestigation, StatusResolved, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewVulnAssessment("CVE-1")
			require.True(t, a.SetStatus(tt.stored))
			assert.Equal(t, tt.want, a.IsCompatibleStatus(tt.candidate))
		})
	}

	a := NewVulnAssessment("CVE-1")
	require.True(t, a.SetJustification(JustificationInlineMitigationsAlreadyExist))
	assert.True(t, a.IsCompatibleJustification(JustificationProtectedAtPerimeter))
	assert.True(t, a.IsCompatibleJustification(JustificationProtectedByCompiler))
	assert.False(t, a.IsCompatibleJustification(JustificationCodeNotPresent))
}

func TestToOpenVEXGuards(t *testing.T) {
	tests := []struct {
		name          string
		status        Status
		justification Justification
		impact        string
		want          bool
	}{
		{"not_affected needs a reason", StatusNotAffected, "", "", false},
		{"not_affected with justification", StatusNotAffected, JustificationVulnerableCodeNotPresent, "", true},
		{"not_affected with cyclonedx justification", StatusNotAffected, JustificationRequiresConfiguration, "", true},
		{"not_affected with impact statement", StatusNotAffected, "", "not reachable", true},
		{"affected without justification", StatusAffected, "", "", true},
		{"cyclonedx state", StatusResolved, "", "", true},
		{"no status", "", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewVulnAssessment("CVE-1", "pkg@1")
			a.Status = tt.status
			a.Justification = tt.justification
			a.ImpactStatement = tt.impact
			stmt, ok := a.ToOpenVEX(nil)
			assert.Equal(t, tt.want, ok)
			if ok {
				assert.True(t, stmt.Status.IsOpenVEX())
				assert.Equal(t, []OpenVEXProduct{{ID: "pkg@1"}}, stmt.Products)
			}
		})
	}
}

func TestToOpenVEXCarriesWorkaroundAndVulnerability(t *testing.T) {
	vuln := NewVulnerability("CVE-1", "nvd", "nvd:cve", "grype")
	vuln.AddAlias("GHSA-xxxx")
	vuln.AddText(TextDescription, "overflow")

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := NewVulnAssessment("CVE-1", "pkg@1")
	require.True(t, a.SetStatus(StatusExploitable))
	a.SetWorkaround("disable the feature", ts)

	stmt, ok := a.ToOpenVEX(vuln)
	require.True(t, ok)
	assert.Equal(t, StatusAffected, stmt.Status)
	assert.Equal(t, "disable the feature", stmt.ActionStatement)
	require.NotNil(t, stmt.ActionStatementTimestamp)
	assert.Equal(t, ts, *stmt.ActionStatementTimestamp)
	assert.Equal(t, []string{"GHSA-xxxx"}, stmt.Vulnerability.Aliases)
	assert.Equal(t, "overflow", stmt.Vulnerability.Description)

	back := FromOpenVEX(a.ID, stmt)
	assert.Equal(t, a.ID, back.ID)
	assert.True(t, a.IsCompatibleStatus(back.Status))
	assert.Equal(t, a.Workaround, back.Workaround)
	assert.Equal(t, OriginManual, back.Origin)
}

func TestToCycloneDX(t *testing.T) {
	a := NewVulnAssessment("CVE-1", "pkg@1")
	require.True(t, a.SetStatus(StatusNotAffected))
	require.True(t, a.SetJustification(JustificationVulnerableCodeNotInExecutePath))
	a.SetStatusNotes("checked by hand", false)
	a.SetNotAffectedReason("function never called")
	a.SetWorkaround("none needed", time.Time{})

	out, ok := a.ToCycloneDX()
	require.True(t, ok)
	assert.Equal(t, cdx.IASNotAffected, out.Analysis.State)
	assert.Equal(t, cdx.IAJCodeNotReachable, out.Analysis.Justification)
	assert.Equal(t, "checked by hand\nfunction never called", out.Analysis.Detail)
	require.NotNil(t, out.Analysis.Response)
	assert.Equal(t, []cdx.ImpactAnalysisResponse{cdx.IARWorkaroundAvailable}, *out.Analysis.Response)
	assert.Equal(t, "none needed", out.Workaround)

	a.AddResponse(ResponseRollback)
	out, ok = a.ToCycloneDX()
	require.True(t, ok)
	assert.Equal(t, []cdx.ImpactAnalysisResponse{cdx.IARRollback}, *out.Analysis.Response)

	empty := NewVulnAssessment("CVE-1")
	_, ok = empty.ToCycloneDX()
	assert.False(t, ok)
}

func TestFromCycloneDX(t *testing.T) {
	responses := []cdx.ImpactAnalysisResponse{cdx.IARWillNotFix}
	a := FromCycloneDX("CVE-1", &cdx.VulnerabilityAnalysis{
		State:         cdx.IASExploitable,
		Justification: cdx.IAJRequiresEnvironment,
		Response:      &responses,
		Detail:        "seen in prod",
		FirstIssued:   "2024-01-01T00:00:00Z",
		LastUpdated:   "2024-02-01T00:00:00Z",
	}, "", "pkg@1")

	assert.Equal(t, StatusExploitable, a.Status)
	assert.Equal(t, JustificationRequiresEnvironment, a.Justification)
	assert.Equal(t, []Response{ResponseWillNotFix}, a.Responses)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), a.Timestamp)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), a.LastUpdate)
	assert.Equal(t, []string{"pkg@1"}, a.Packages)
}

func TestMerge(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(24 * time.Hour)

	base := func() *VulnAssessment {
		a := NewVulnAssessment("CVE-1", "pkg@1")
		a.ID = "fixed-id"
		a.Timestamp, a.LastUpdate = early, early
		a.SetStatus(StatusAffected)
		a.SetStatusNotes("first line", false)
		a.SetWorkaround("old workaround", early)
		return a
	}

	t.Run("mismatched ids are ignored", func(t *testing.T) {
		a := base()
		other := base()
		other.ID = "other-id"
		other.SetStatus(StatusFixed)
		assert.False(t, a.Merge(other))
		assert.Equal(t, StatusAffected, a.Status)

		other = base()
		other.VulnID = "CVE-2"
		assert.False(t, a.Merge(other))
		assert.False(t, a.Merge(nil))
	})

	t.Run("compatible status does not churn", func(t *testing.T) {
		a := base()
		other := base()
		other.SetStatus(StatusExploitable)
		require.True(t, a.Merge(other))
		assert.Equal(t, StatusAffected, a.Status)
	})

	t.Run("genuine transition and later timestamps win", func(t *testing.T) {
		a := base()
		other := base()
		other.Timestamp, other.LastUpdate = late, late
		other.SetStatus(StatusFixed)
		other.AddPackage("pkg@2")
		other.SetStatusNotes("first line\nsecond line", false)
		other.SetNotAffectedReason("reason")
		other.AddResponse(ResponseUpdate)
		require.True(t, a.Merge(other))

		assert.Equal(t, StatusFixed, a.Status)
		assert.Equal(t, []string{"pkg@1", "pkg@2"}, a.Packages)
		assert.Equal(t, late, a.Timestamp)
		assert.Equal(t, late, a.LastUpdate)
		assert.Equal(t, "first line\nsecond line", a.StatusNotes)
		assert.Equal(t, "reason", a.ImpactStatement)
		assert.Equal(t, []Response{ResponseUpdate}, a.Responses)
	})

	t.Run("older timestamps are kept out", func(t *testing.T) {
		a := base()
		a.Timestamp, a.LastUpdate = late, late
		other := base()
		require.True(t, a.Merge(other))
		assert.Equal(t, late, a.LastUpdate)
	})

	t.Run("workaround first writer wins unless strictly newer", func(t *testing.T) {
		a := base()
		other := base()
		other.SetWorkaround("same time", early)
		require.True(t, a.Merge(other))
		assert.Equal(t, "old workaround", a.Workaround)

		other.SetWorkaround("new workaround", late)
		require.True(t, a.Merge(other))
		assert.Equal(t, "new workaround", a.Workaround)
		assert.Equal(t, late, a.WorkaroundTimestamp)
	})

	t.Run("merging twice is idempotent", func(t *testing.T) {
		a := base()
		other := base()
		other.SetStatusNotes("extra", true)
		require.True(t, a.Merge(other))
		once := a.Clone()
		require.True(t, a.Merge(other))
		assert.Equal(t, once, a)
	})
}

func TestInferOrigin(t *testing.T) {
	assert.Equal(t, OriginAutoExpired, InferOrigin("note\n"+ExpiredStatusNote))
	assert.Equal(t, OriginAutoRevived, InferOrigin(RevivedStatusNote))
	assert.Equal(t, OriginManual, InferOrigin("I think this is "+ExpiredStatusNote))
	assert.Equal(t, OriginManual, InferOrigin(""))
}

package model

import (
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
)

// CycloneDXAnalysis is the part of a CycloneDX vulnerability an assessment produces.
type CycloneDXAnalysis struct {
	Analysis   cdx.VulnerabilityAnalysis `json:"analysis"`
	Workaround string                    `json:"workaround,omitempty"`
}

// ToCycloneDX exports the assessment as a CycloneDX analysis. It returns false only when no
// CycloneDX state exists; the justification is optional.
func (a *VulnAssessment) ToCycloneDX() (*CycloneDXAnalysis, bool) {
	state, ok := a.StatusCycloneDX()
	if !ok {
		return nil, false
	}
	out := &CycloneDXAnalysis{
		Analysis: cdx.VulnerabilityAnalysis{
			State:  cdx.ImpactAnalysisState(state),
			Detail: joinNonEmpty(a.StatusNotes, a.ImpactStatement),
		},
		Workaround: a.Workaround,
	}
	if j, ok := a.JustificationCycloneDX(); ok && j != "" {
		out.Analysis.Justification = cdx.ImpactAnalysisJustification(j)
	}

	responses := make([]cdx.ImpactAnalysisResponse, 0, len(a.Responses))
	for _, r := range a.Responses {
		responses = append(responses, cdx.ImpactAnalysisResponse(r))
	}
	if len(responses) == 0 && a.Workaround != "" {
		responses = append(responses, cdx.IARWorkaroundAvailable)
	}
	if len(responses) > 0 {
		out.Analysis.Response = &responses
	}
	if !a.Timestamp.IsZero() {
		out.Analysis.FirstIssued = a.Timestamp.UTC().Format(time.RFC3339)
	}
	if !a.LastUpdate.IsZero() {
		out.Analysis.LastUpdated = a.LastUpdate.UTC().Format(time.RFC3339)
	}
	return out, true
}

// FromCycloneDX rebuilds an assessment from a CycloneDX analysis of vulnID for packages.
func FromCycloneDX(vulnID string, analysis *cdx.VulnerabilityAnalysis, workaround string, packages ...string) *VulnAssessment {
	a := NewVulnAssessment(vulnID, packages...)
	if analysis == nil {
		return a
	}
	a.SetStatus(Status(analysis.State))
	a.SetJustification(Justification(analysis.Justification))
	a.StatusNotes = analysis.Detail
	if analysis.Response != nil {
		for _, r := range *analysis.Response {
			a.AddResponse(Response(r))
		}
	}
	if ts, err := time.Parse(time.RFC3339, analysis.FirstIssued); err == nil {
		a.Timestamp = ts.UTC()
		a.LastUpdate = a.Timestamp
	}
	if ts, err := time.Parse(time.RFC3339, analysis.LastUpdated); err == nil {
		a.LastUpdate = ts.UTC()
	}
	if workaround != "" {
		a.SetWorkaround(workaround, a.LastUpdate)
	}
	a.Origin = InferOrigin(a.StatusNotes)
	return a
}

func joinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}

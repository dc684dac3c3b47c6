package model

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin tells who issued an assessment.
type Origin string

// Assessment origins.
const (
	OriginManual      Origin = "manual"
	OriginAutoExpired Origin = "auto_expired"
	OriginAutoRevived Origin = "auto_revived"
)

// Notes written on synthesized assessments. They are displayed to users and let readers of
// formats without an origin field recognise synthesized statements.
const (
	ExpiredStatusNote      = "Automatically marked as not affected: the vulnerability is no longer reported by any active scanner."
	ExpiredImpactStatement = "The affected component was removed or is no longer present in the product."
	RevivedStatusNote      = "Automatically reopened: the vulnerability is reported again by an active scanner."
)

// VulnAssessment is one VEX claim: as of Timestamp, VulnID has Status for Packages.
type VulnAssessment struct {
	ID                  string        `json:"id" yaml:"id"`
	VulnID              string        `json:"vuln_id" yaml:"vuln_id"`
	Packages            []string      `json:"packages" yaml:"packages"`
	Timestamp           time.Time     `json:"timestamp" yaml:"timestamp"`
	LastUpdate          time.Time     `json:"last_update" yaml:"last_update"`
	Status              Status        `json:"status" yaml:"status"`
	StatusNotes         string        `json:"status_notes" yaml:"status_notes"`
	Justification       Justification `json:"justification" yaml:"justification"`
	ImpactStatement     string        `json:"impact_statement" yaml:"impact_statement"`
	Responses           []Response    `json:"responses" yaml:"responses"`
	Workaround          string        `json:"workaround" yaml:"workaround"`
	WorkaroundTimestamp time.Time     `json:"workaround_timestamp" yaml:"workaround_timestamp"`
	Origin              Origin        `json:"origin" yaml:"origin"`
}

// NewVulnAssessment creates an assessment with a fresh random id, issued now.
func NewVulnAssessment(vulnID string, packages ...string) *VulnAssessment {
	now := time.Now().UTC()
	a := &VulnAssessment{
		ID:         uuid.NewString(),
		VulnID:     strings.TrimSpace(vulnID),
		Packages:   []string{},
		Timestamp:  now,
		LastUpdate: now,
		Responses:  []Response{},
		Origin:     OriginManual,
	}
	for _, pkg := range packages {
		a.AddPackage(pkg)
	}
	return a
}

// Valid reports whether the assessment can be registered.
func (a *VulnAssessment) Valid() bool {
	return a != nil && a.ID != "" && a.VulnID != ""
}

// AddPackage records an affected package id.
func (a *VulnAssessment) AddPackage(packageID string) bool {
	return addUnique(&a.Packages, packageID)
}

// SetStatus sets a status from either vocabulary. Unknown values are rejected and the
// current status is kept.
func (a *VulnAssessment) SetStatus(status Status) bool {
	if !status.Valid() {
		return false
	}
	a.Status = status
	return true
}

// SetJustification sets a justification from either vocabulary; "" clears it. Unknown
// values are rejected and the current justification is kept.
func (a *VulnAssessment) SetJustification(justification Justification) bool {
	if justification != "" && !justification.Valid() {
		return false
	}
	a.Justification = justification
	return true
}

// SetStatusNotes replaces the notes, or appends the lines not already present.
func (a *VulnAssessment) SetStatusNotes(notes string, appendNotes bool) {
	if appendNotes {
		a.StatusNotes = appendLines(a.StatusNotes, notes)
		return
	}
	a.StatusNotes = notes
}

// SetNotAffectedReason sets the impact statement.
func (a *VulnAssessment) SetNotAffectedReason(reason string) {
	a.ImpactStatement = reason
}

// AddResponse records a CycloneDX response.
func (a *VulnAssessment) AddResponse(response Response) bool {
	if !response.Valid() {
		return false
	}
	if !slices.Contains(a.Responses, response) {
		a.Responses = append(a.Responses, response)
	}
	return true
}

// SetWorkaround records a workaround and when it was published; a zero ts means now.
func (a *VulnAssessment) SetWorkaround(text string, ts time.Time) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	a.Workaround = text
	a.WorkaroundTimestamp = ts
}

// IsCompatibleStatus reports whether status expresses the stored status, verbatim or
// through the other vocabulary.
func (a *VulnAssessment) IsCompatibleStatus(status Status) bool {
	return statusesCompatible(a.Status, status)
}

// IsCompatibleJustification reports whether justification expresses the stored one,
// verbatim or through the other vocabulary.
func (a *VulnAssessment) IsCompatibleJustification(justification Justification) bool {
	return justificationsCompatible(a.Justification, justification)
}

// isFalsePositiveInOpenVEX is the OpenVEX encoding of a CycloneDX false_positive.
func (a *VulnAssessment) isFalsePositiveInOpenVEX() bool {
	return a.Status == StatusNotAffected && a.Justification == JustificationComponentNotPresent
}

// StatusOpenVEX returns the status in the OpenVEX vocabulary.
func (a *VulnAssessment) StatusOpenVEX() (Status, bool) {
	if a.Status.IsOpenVEX() {
		return a.Status, true
	}
	s, ok := statusCycloneDXToOpenVEX[a.Status]
	return s, ok
}

// StatusCycloneDX returns the status in the CycloneDX vocabulary.
func (a *VulnAssessment) StatusCycloneDX() (Status, bool) {
	if a.isFalsePositiveInOpenVEX() {
		return StatusFalsePositive, true
	}
	if a.Status.IsCycloneDX() {
		return a.Status, true
	}
	s, ok := statusOpenVEXToCycloneDX[a.Status]
	return s, ok
}

// JustificationOpenVEX returns the justification in the OpenVEX vocabulary.
func (a *VulnAssessment) JustificationOpenVEX() (Justification, bool) {
	if a.Status == StatusFalsePositive {
		return JustificationComponentNotPresent, true
	}
	if a.Justification.IsOpenVEX() {
		return a.Justification, true
	}
	j, ok := justificationCycloneDXToOpenVEX[a.Justification]
	return j, ok
}

// JustificationCycloneDX returns the justification in the CycloneDX vocabulary.
func (a *VulnAssessment) JustificationCycloneDX() (Justification, bool) {
	if a.Status == StatusFalsePositive || a.isFalsePositiveInOpenVEX() {
		return "", false
	}
	if a.Justification.IsCycloneDX() {
		return a.Justification, true
	}
	j, ok := justificationOpenVEXToCycloneDX[a.Justification]
	return j, ok
}

// Merge folds a re-ingested copy of the same statement into a. It is a no-op returning
// false unless both id and vuln id match.
func (a *VulnAssessment) Merge(other *VulnAssessment) bool {
	if !a.Valid() || !other.Valid() || a.ID != other.ID || a.VulnID != other.VulnID {
		return false
	}
	for _, pkg := range other.Packages {
		a.AddPackage(pkg)
	}
	if other.LastUpdate.After(a.LastUpdate) {
		a.Timestamp = other.Timestamp
		a.LastUpdate = other.LastUpdate
	}
	if other.Status != "" && !a.IsCompatibleStatus(other.Status) {
		a.Status = other.Status
	}
	if other.Justification != "" && !a.IsCompatibleJustification(other.Justification) {
		a.Justification = other.Justification
	}
	a.StatusNotes = appendLines(a.StatusNotes, other.StatusNotes)
	a.ImpactStatement = appendLines(a.ImpactStatement, other.ImpactStatement)
	for _, r := range other.Responses {
		a.AddResponse(r)
	}
	if a.Workaround == "" {
		a.Workaround = other.Workaround
		a.WorkaroundTimestamp = other.WorkaroundTimestamp
	} else if other.Workaround != "" && other.Workaround != a.Workaround &&
		other.WorkaroundTimestamp.After(a.WorkaroundTimestamp) {
		a.Workaround = other.Workaround
		a.WorkaroundTimestamp = other.WorkaroundTimestamp
	}
	if a.Origin == "" {
		a.Origin = other.Origin
	}
	return true
}

// Clone returns a deep copy of the assessment.
func (a *VulnAssessment) Clone() *VulnAssessment {
	c := *a
	c.Packages = slices.Clone(a.Packages)
	c.Responses = slices.Clone(a.Responses)
	return &c
}

// InferOrigin recognises synthesized statements read from formats that cannot carry the
// origin, by an exact line match on the notes they are written with.
func InferOrigin(statusNotes string) Origin {
	for _, line := range strings.Split(statusNotes, "\n") {
		switch strings.TrimSpace(line) {
		case ExpiredStatusNote:
			return OriginAutoExpired
		case RevivedStatusNote:
			return OriginAutoRevived
		}
	}
	return OriginManual
}

// appendLines adds to text every non-empty line of extra it does not contain yet.
func appendLines(text, extra string) string {
	lines := []string{}
	if text != "" {
		lines = strings.Split(text, "\n")
	}
	for _, line := range strings.Split(extra, "\n") {
		if strings.TrimSpace(line) == "" || slices.Contains(lines, line) {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

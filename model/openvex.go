package model

import (
	"time"
)

// OpenVEXVulnerability names the vulnerability a statement is about.
type OpenVEXVulnerability struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
}

// OpenVEXIdentifiers holds the machine identifiers of a product.
type OpenVEXIdentifiers struct {
	PURL  string `json:"purl,omitempty"`
	CPE23 string `json:"cpe23,omitempty"`
}

// OpenVEXProduct references one package affected by a statement.
type OpenVEXProduct struct {
	ID          string              `json:"@id"`
	Identifiers *OpenVEXIdentifiers `json:"identifiers,omitempty"`
}

// OpenVEXStatement is one statement of an OpenVEX document.
type OpenVEXStatement struct {
	ID                       string               `json:"@id,omitempty"`
	Vulnerability            OpenVEXVulnerability `json:"vulnerability"`
	Products                 []OpenVEXProduct     `json:"products"`
	Status                   Status               `json:"status"`
	StatusNotes              string               `json:"status_notes,omitempty"`
	Justification            Justification        `json:"justification,omitempty"`
	ImpactStatement          string               `json:"impact_statement,omitempty"`
	ActionStatement          string               `json:"action_statement,omitempty"`
	ActionStatementTimestamp *time.Time           `json:"action_statement_timestamp,omitempty"`
	Timestamp                *time.Time           `json:"timestamp,omitempty"`
	LastUpdated              *time.Time           `json:"last_updated,omitempty"`
}

// ToOpenVEX exports the assessment as an OpenVEX statement. It returns false when the
// assessment cannot be expressed: no OpenVEX status, or not_affected with neither a
// translatable justification nor an impact statement. vuln may be nil.
func (a *VulnAssessment) ToOpenVEX(vuln *Vulnerability) (*OpenVEXStatement, bool) {
	status, ok := a.StatusOpenVEX()
	if !ok {
		return nil, false
	}
	justification, hasJustification := a.JustificationOpenVEX()
	if status == StatusNotAffected && !hasJustification && a.ImpactStatement == "" {
		return nil, false
	}

	stmt := &OpenVEXStatement{
		ID:              a.ID,
		Vulnerability:   OpenVEXVulnerability{Name: a.VulnID},
		Products:        make([]OpenVEXProduct, 0, len(a.Packages)),
		Status:          status,
		StatusNotes:     a.StatusNotes,
		ImpactStatement: a.ImpactStatement,
	}
	if status == StatusNotAffected && hasJustification {
		stmt.Justification = justification
	}
	if vuln != nil {
		stmt.Vulnerability.Aliases = vuln.Aliases
		stmt.Vulnerability.Description = vuln.Texts[TextDescription]
	}
	for _, pkg := range a.Packages {
		stmt.Products = append(stmt.Products, OpenVEXProduct{ID: pkg})
	}
	if a.Workaround != "" {
		stmt.ActionStatement = a.Workaround
		stmt.ActionStatementTimestamp = timePtr(a.WorkaroundTimestamp)
	}
	stmt.Timestamp = timePtr(a.Timestamp)
	stmt.LastUpdated = timePtr(a.LastUpdate)
	return stmt, true
}

// FromOpenVEX rebuilds an assessment from a statement read back from a document. The
// statement @id is reused as assessment id when present, id otherwise. Values outside both
// vocabularies are dropped like any rejected mutation. The origin is inferred from the notes
// since OpenVEX cannot carry it.
func FromOpenVEX(id string, stmt *OpenVEXStatement) *VulnAssessment {
	a := NewVulnAssessment(stmt.Vulnerability.Name)
	switch {
	case stmt.ID != "":
		a.ID = stmt.ID
	case id != "":
		a.ID = id
	}
	for _, product := range stmt.Products {
		a.AddPackage(product.ID)
	}
	a.SetStatus(stmt.Status)
	a.SetJustification(stmt.Justification)
	a.StatusNotes = stmt.StatusNotes
	a.ImpactStatement = stmt.ImpactStatement
	if stmt.ActionStatement != "" {
		var ts time.Time
		if stmt.ActionStatementTimestamp != nil {
			ts = *stmt.ActionStatementTimestamp
		}
		a.SetWorkaround(stmt.ActionStatement, ts)
	}
	if stmt.Timestamp != nil {
		a.Timestamp = stmt.Timestamp.UTC()
		a.LastUpdate = a.Timestamp
	}
	if stmt.LastUpdated != nil {
		a.LastUpdate = stmt.LastUpdated.UTC()
	}
	a.Origin = InferOrigin(a.StatusNotes)
	return a
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

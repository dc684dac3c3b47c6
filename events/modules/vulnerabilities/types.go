// Package vulnerabilities defines the Kafka events published when the reconciliation pass
// closes or reopens a vulnerability.
package vulnerabilities

import (
	"time"

	"github.com/google/uuid"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// Event types.
const (
	EventTypeExpired = "vulnerability.expired"
	EventTypeRevived = "vulnerability.revived"
)

// SchemaVersion of LifecycleEvent.
const SchemaVersion = "v1"

// LifecycleEvent announces one synthesized assessment.
type LifecycleEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	VulnID        string              `json:"vuln_id"`
	Aliases       []string            `json:"aliases,omitempty"`
	Severity      string              `json:"severity"`
	Packages      []string            `json:"packages"`
	AssessmentID  string              `json:"assessment_id"`
	Status        model.Status        `json:"status"`
	Justification model.Justification `json:"justification,omitempty"`
	AssessedAt    time.Time           `json:"assessed_at"`
}

// NewLifecycleEvent builds the event of a synthesized assessment. It returns false for
// assessments that were not synthesized by the reconciliation pass.
func NewLifecycleEvent(a *model.VulnAssessment, vuln *model.Vulnerability) (LifecycleEvent, bool) {
	var eventType string
	switch a.Origin {
	case model.OriginAutoExpired:
		eventType = EventTypeExpired
	case model.OriginAutoRevived:
		eventType = EventTypeRevived
	default:
		return LifecycleEvent{}, false
	}

	event := LifecycleEvent{
		EventType:     eventType,
		EventID:       uuid.New().String(),
		EventTime:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		VulnID:        a.VulnID,
		Packages:      a.Packages,
		AssessmentID:  a.ID,
		Status:        a.Status,
		Justification: a.Justification,
		AssessedAt:    a.Timestamp,
		Severity:      model.SeverityUnknown,
	}
	if vuln != nil {
		event.Aliases = vuln.Aliases
		event.Severity = vuln.Severity.Label
	}
	return event, true
}

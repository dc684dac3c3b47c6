package model

import (
	cdx "github.com/CycloneDX/cyclonedx-go"
)

// Status is a VEX status from either the OpenVEX (4 states) or the CycloneDX (6 states)
// vocabulary. not_affected belongs to both.
type Status string

// OpenVEX statuses.
const (
	StatusUnderInvestigation Status = "under_investigation"
	StatusNotAffected        Status = "not_affected"
	StatusAffected           Status = "affected"
	StatusFixed              Status = "fixed"
)

// CycloneDX impact analysis states.
const (
	StatusInTriage             = Status(cdx.IASInTriage)
	StatusFalsePositive        = Status(cdx.IASFalsePositive)
	StatusExploitable          = Status(cdx.IASExploitable)
	StatusResolved             = Status(cdx.IASResolved)
	StatusResolvedWithPedigree = Status(cdx.IASResolvedWithPedigree)
)

// Justification explains why a product is not affected, in either vocabulary.
type Justification string

// OpenVEX justifications.
const (
	JustificationComponentNotPresent                         Justification = "component_not_present"
	JustificationVulnerableCodeNotPresent                    Justification = "vulnerable_code_not_present"
	JustificationVulnerableCodeNotInExecutePath              Justification = "vulnerable_code_not_in_execute_path"
	JustificationVulnerableCodeCannotBeControlledByAdversary Justification = "vulnerable_code_cannot_be_controlled_by_adversary"
	JustificationInlineMitigationsAlreadyExist               Justification = "inline_mitigations_already_exist"
)

// CycloneDX impact analysis justifications.
const (
	JustificationCodeNotPresent               = Justification(cdx.IAJCodeNotPresent)
	JustificationCodeNotReachable             = Justification(cdx.IAJCodeNotReachable)
	JustificationRequiresConfiguration        = Justification(cdx.IAJRequiresConfiguration)
	JustificationRequiresDependency           = Justification(cdx.IAJRequiresDependency)
	JustificationRequiresEnvironment          = Justification(cdx.IAJRequiresEnvironment)
	JustificationProtectedByCompiler          = Justification(cdx.IAJProtectedByCompiler)
	JustificationProtectedAtRuntime           = Justification(cdx.IAJProtectedAtRuntime)
	JustificationProtectedAtPerimeter         = Justification(cdx.IAJProtectedAtPerimeter)
	JustificationProtectedByMitigatingControl = Justification(cdx.IAJProtectedByMitigatingControl)
)

// Response is a CycloneDX vendor response.
type Response string

// CycloneDX impact analysis responses.
const (
	ResponseCanNotFix           = Response(cdx.IARCanNotFix)
	ResponseWillNotFix          = Response(cdx.IARWillNotFix)
	ResponseUpdate              = Response(cdx.IARUpdate)
	ResponseRollback            = Response(cdx.IARRollback)
	ResponseWorkaroundAvailable = Response(cdx.IARWorkaroundAvailable)
)

// statusCycloneDXToOpenVEX maps each CycloneDX state to its nearest OpenVEX status.
var statusCycloneDXToOpenVEX = map[Status]Status{
	StatusInTriage:             StatusUnderInvestigation,
	StatusFalsePositive:        StatusNotAffected,
	StatusNotAffected:          StatusNotAffected,
	StatusExploitable:          StatusAffected,
	StatusResolved:             StatusFixed,
	StatusResolvedWithPedigree: StatusFixed,
}

// statusOpenVEXToCycloneDX picks one representative CycloneDX state per OpenVEX status.
var statusOpenVEXToCycloneDX = map[Status]Status{
	StatusUnderInvestigation: StatusInTriage,
	StatusNotAffected:        StatusNotAffected,
	StatusAffected:           StatusExploitable,
	StatusFixed:              StatusResolved,
}

var justificationOpenVEXToCycloneDX = map[Justification]Justification{
	JustificationComponentNotPresent:                         JustificationRequiresDependency,
	JustificationVulnerableCodeNotPresent:                    JustificationCodeNotPresent,
	JustificationVulnerableCodeNotInExecutePath:              JustificationCodeNotReachable,
	JustificationVulnerableCodeCannotBeControlledByAdversary: JustificationRequiresEnvironment,
	JustificationInlineMitigationsAlreadyExist:               JustificationProtectedByMitigatingControl,
}

var justificationCycloneDXToOpenVEX = map[Justification]Justification{
	JustificationCodeNotPresent:               JustificationVulnerableCodeNotPresent,
	JustificationCodeNotReachable:             JustificationVulnerableCodeNotInExecutePath,
	JustificationRequiresConfiguration:        JustificationVulnerableCodeCannotBeControlledByAdversary,
	JustificationRequiresDependency:           JustificationComponentNotPresent,
	JustificationRequiresEnvironment:          JustificationVulnerableCodeCannotBeControlledByAdversary,
	JustificationProtectedByCompiler:          JustificationInlineMitigationsAlreadyExist,
	JustificationProtectedAtRuntime:           JustificationInlineMitigationsAlreadyExist,
	JustificationProtectedAtPerimeter:         JustificationInlineMitigationsAlreadyExist,
	JustificationProtectedByMitigatingControl: JustificationInlineMitigationsAlreadyExist,
}

var responses = []Response{
	ResponseCanNotFix,
	ResponseWillNotFix,
	ResponseUpdate,
	ResponseRollback,
	ResponseWorkaroundAvailable,
}

// IsOpenVEX reports whether s belongs to the OpenVEX vocabulary.
func (s Status) IsOpenVEX() bool {
	_, ok := statusOpenVEXToCycloneDX[s]
	return ok
}

// IsCycloneDX reports whether s belongs to the CycloneDX vocabulary.
func (s Status) IsCycloneDX() bool {
	_, ok := statusCycloneDXToOpenVEX[s]
	return ok
}

// Valid reports whether s belongs to at least one vocabulary.
func (s Status) Valid() bool {
	return s.IsOpenVEX() || s.IsCycloneDX()
}

// IsOpen reports whether s leaves the vulnerability unresolved.
func (s Status) IsOpen() bool {
	switch s {
	case StatusAffected, StatusExploitable, StatusUnderInvestigation, StatusInTriage:
		return true
	}
	return false
}

// IsOpenVEX reports whether j belongs to the OpenVEX vocabulary.
func (j Justification) IsOpenVEX() bool {
	_, ok := justificationOpenVEXToCycloneDX[j]
	return ok
}

// IsCycloneDX reports whether j belongs to the CycloneDX vocabulary.
func (j Justification) IsCycloneDX() bool {
	_, ok := justificationCycloneDXToOpenVEX[j]
	return ok
}

// Valid reports whether j belongs to at least one vocabulary.
func (j Justification) Valid() bool {
	return j.IsOpenVEX() || j.IsCycloneDX()
}

// Valid reports whether r is a CycloneDX response.
func (r Response) Valid() bool {
	for _, known := range responses {
		if r == known {
			return true
		}
	}
	return false
}

// statusesCompatible is true when candidate equals stored, or translates to it from the
// other vocabulary.
func statusesCompatible(stored, candidate Status) bool {
	if candidate == stored {
		return true
	}
	if mapped, ok := statusCycloneDXToOpenVEX[candidate]; ok && mapped == stored {
		return true
	}
	if mapped, ok := statusOpenVEXToCycloneDX[candidate]; ok && mapped == stored {
		return true
	}
	return false
}

func justificationsCompatible(stored, candidate Justification) bool {
	if candidate == stored {
		return true
	}
	if mapped, ok := justificationCycloneDXToOpenVEX[candidate]; ok && mapped == stored {
		return true
	}
	if mapped, ok := justificationOpenVEXToCycloneDX[candidate]; ok && mapped == stored {
		return true
	}
	return false
}

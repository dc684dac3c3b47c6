// Package lifecycle runs the reconciliation pass that closes vulnerabilities no live scanner
// reports anymore, and reopens them when a scanner reports them again.
package lifecycle

import (
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// DefaultVEXSource is the found_by name of vulnerabilities only known from a VEX document.
const DefaultVEXSource = "openvex"

// Reconciler runs the pass over fully populated registries, once per batch.
type Reconciler struct {
	vexSource string
	now       func() time.Time
	logger    *zap.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithVEXSource sets the provenance name that does not count as a live detection.
func WithVEXSource(source string) Option {
	return func(r *Reconciler) {
		if source != "" {
			r.vexSource = source
		}
	}
}

// WithClock sets the time source of synthesized assessments.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger synthesized assessments are reported to.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Reconciler.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{
		vexSource: DefaultVEXSource,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report lists what one pass synthesized.
type Report struct {
	Expired     []string                `json:"expired"` // canonical vulnerability ids
	Revived     []string                `json:"revived"`
	Assessments []*model.VulnAssessment `json:"assessments"`
}

// Empty reports whether the pass changed nothing.
func (rep *Report) Empty() bool {
	return len(rep.Assessments) == 0
}

// state is what the history of one vulnerability says about it.
type state struct {
	latest     *model.VulnAssessment
	expired    bool                  // latest entry is an automatic expiration
	preExpired *model.VulnAssessment // last entry before that expiration, if any
}

func inspect(history []*model.VulnAssessment) state {
	var s state
	if len(history) == 0 {
		return s
	}
	s.latest = history[len(history)-1]
	if s.latest.Origin != model.OriginAutoExpired {
		return s
	}
	s.expired = true
	for i := len(history) - 2; i >= 0; i-- {
		if history[i].Origin != model.OriginAutoExpired {
			s.preExpired = history[i]
			break
		}
	}
	return s
}

// vexOnly reports whether no live scanner reports vuln. An empty found_by counts as VEX-only.
func (r *Reconciler) vexOnly(vuln *model.Vulnerability) bool {
	return lo.EveryBy(vuln.FoundBy, func(source string) bool { return source == r.vexSource })
}

// Run inspects every canonical vulnerability and adds the expiration and revival assessments
// its history calls for. Running it again over its own result adds nothing.
func (r *Reconciler) Run(vulns *registry.VulnerabilityRegistry, assessments *registry.AssessmentRegistry) *Report {
	report := &Report{Expired: []string{}, Revived: []string{}, Assessments: []*model.VulnAssessment{}}

	for _, vuln := range vulns.List() {
		history := assessments.ByVulnerability(vuln)
		s := inspect(history)
		vexOnly := r.vexOnly(vuln)

		var synthesized *model.VulnAssessment
		switch {
		case vexOnly && s.latest != nil && !s.expired && s.latest.Status.IsOpen():
			synthesized = r.expire(vuln, s.latest)
			report.Expired = append(report.Expired, vuln.ID)
		case !vexOnly && s.expired:
			synthesized = r.revive(vuln, s.latest, s.preExpired)
			report.Revived = append(report.Revived, vuln.ID)
		default:
			continue
		}

		synthesized.Timestamp = r.timestampAfter(history)
		synthesized.LastUpdate = synthesized.Timestamp
		assessments.Add(synthesized)
		report.Assessments = append(report.Assessments, synthesized)

		r.logger.Info("synthesized assessment",
			zap.String("vuln_id", vuln.ID),
			zap.String("assessment_id", synthesized.ID),
			zap.String("origin", string(synthesized.Origin)),
			zap.String("status", string(synthesized.Status)))
	}
	return report
}

func (r *Reconciler) expire(vuln *model.Vulnerability, latest *model.VulnAssessment) *model.VulnAssessment {
	a := model.NewVulnAssessment(vuln.ID, packagesOf(vuln, latest)...)
	a.SetStatus(model.StatusNotAffected)
	a.SetJustification(model.JustificationComponentNotPresent)
	a.SetStatusNotes(model.ExpiredStatusNote, false)
	a.SetNotAffectedReason(model.ExpiredImpactStatement)
	a.Origin = model.OriginAutoExpired
	return a
}

func (r *Reconciler) revive(vuln *model.Vulnerability, expiration, previous *model.VulnAssessment) *model.VulnAssessment {
	a := model.NewVulnAssessment(vuln.ID, packagesOf(vuln, expiration)...)
	a.SetStatus(model.StatusUnderInvestigation)
	if previous != nil {
		a.SetStatus(previous.Status)
		a.SetJustification(previous.Justification)
	}
	a.SetStatusNotes(model.RevivedStatusNote, false)
	a.Origin = model.OriginAutoRevived
	return a
}

// timestampAfter returns now, or just past the newest history entry when the clock lags it,
// so the synthesized entry always sorts last.
func (r *Reconciler) timestampAfter(history []*model.VulnAssessment) time.Time {
	ts := r.now().UTC()
	for _, a := range history {
		if !ts.After(a.Timestamp) {
			ts = a.Timestamp.UTC().Add(time.Second)
		}
	}
	return ts
}

func packagesOf(vuln *model.Vulnerability, latest *model.VulnAssessment) []string {
	if latest != nil && len(latest.Packages) > 0 {
		return latest.Packages
	}
	return vuln.Packages
}

// Triage opens an under_investigation assessment for every vulnerability a live scanner
// reports that has no history yet, and returns them. Vulnerabilities known only from VEX
// documents are left alone.
func (r *Reconciler) Triage(vulns *registry.VulnerabilityRegistry, assessments *registry.AssessmentRegistry) []*model.VulnAssessment {
	var opened []*model.VulnAssessment
	for _, vuln := range vulns.List() {
		if r.vexOnly(vuln) || len(assessments.ByVulnerability(vuln)) > 0 {
			continue
		}
		a := model.NewVulnAssessment(vuln.ID, vuln.Packages...)
		a.SetStatus(model.StatusUnderInvestigation)
		a.Timestamp = r.now().UTC()
		a.LastUpdate = a.Timestamp
		assessments.Add(a)
		opened = append(opened, a)
		r.logger.Debug("opened assessment", zap.String("vuln_id", vuln.ID), zap.String("assessment_id", a.ID))
	}
	return opened
}

// Package cyclonedx imports CycloneDX BOMs into the registries and exports the reconciled
// state as a CycloneDX VEX BOM.
package cyclonedx

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	cdx "github.com/CycloneDX/cyclonedx-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

// SourceName is the default found_by name of vulnerabilities listed in a BOM.
const SourceName = "cyclonedx"

// analysisNamespace derives stable assessment ids, so reading the same BOM twice merges
// instead of duplicating history.
var analysisNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://cyclonedx.org/schema/bom/vulnerability/analysis"))

// ReadBOM decodes a JSON BOM.
func ReadBOM(r io.Reader) (*cdx.BOM, error) {
	bom := new(cdx.BOM)
	if err := cdx.NewBOMDecoder(r, cdx.BOMFileFormatJSON).Decode(bom); err != nil {
		return nil, fmt.Errorf("failed to decode CycloneDX BOM: %w", err)
	}
	return bom, nil
}

// WriteBOM encodes a BOM as indented JSON.
func WriteBOM(w io.Writer, bom *cdx.BOM) error {
	if err := cdx.NewBOMEncoder(w, cdx.BOMFileFormatJSON).SetPretty(true).Encode(bom); err != nil {
		return fmt.Errorf("failed to encode CycloneDX BOM: %w", err)
	}
	return nil
}

// Importer adds the content of BOMs to the registries.
type Importer struct {
	Packages        *registry.PackageRegistry
	Vulnerabilities *registry.VulnerabilityRegistry
	Assessments     *registry.AssessmentRegistry
	// Source is the found_by name given to listed vulnerabilities, SourceName when empty.
	Source string
	// Now stamps analyses dated neither by themselves nor by the BOM metadata.
	Now    func() time.Time
	Logger *zap.Logger
}

// Import registers the components as packages, then the vulnerabilities and their analysis.
// A BOM without vulnerabilities is an inventory and only contributes packages.
func (im *Importer) Import(bom *cdx.BOM) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source := im.Source
	if source == "" {
		source = SourceName
	}

	refs := map[string]string{} // bom-ref -> package id
	if bom.Components != nil {
		for _, c := range flatten(*bom.Components) {
			pkg := toPackage(c)
			registered := im.Packages.Add(pkg)
			if registered == nil {
				logger.Debug("skipping component without name", zap.String("bom_ref", c.BOMRef))
				continue
			}
			if c.BOMRef != "" {
				refs[c.BOMRef] = registered.ID()
			}
		}
	}

	if bom.Vulnerabilities == nil {
		return
	}
	for _, cv := range *bom.Vulnerabilities {
		v := toVulnerability(cv, source)
		var pkgIDs []string
		if cv.Affects != nil {
			for _, affects := range *cv.Affects {
				if id, ok := refs[affects.Ref]; ok {
					pkgIDs = append(pkgIDs, id)
				} else if im.Packages.Contains(affects.Ref) {
					pkgIDs = append(pkgIDs, im.Packages.Get(affects.Ref).ID())
				}
			}
		}
		for _, id := range pkgIDs {
			v.AddPackage(id)
		}
		canonical := im.Vulnerabilities.Add(v)
		if canonical == nil {
			continue
		}
		if cv.Analysis != nil && cv.Analysis.State != "" && im.Assessments != nil {
			im.Assessments.Add(im.assessment(bom, cv, canonical, pkgIDs))
		}
	}
}

// assessment converts the analysis of cv. Its id is the assessment named by the bom-ref when
// the BOM was exported from these registries, and is otherwise derived from the vulnerability,
// the affected packages, the state and the issue date. An undated analysis takes the BOM
// timestamp, else keeps the dates of the assessment already registered under its id.
func (im *Importer) assessment(bom *cdx.BOM, cv cdx.Vulnerability, canonical *model.Vulnerability, pkgIDs []string) *model.VulnAssessment {
	analysis := *cv.Analysis
	if analysis.FirstIssued == "" {
		analysis.FirstIssued = analysis.LastUpdated
	}
	if analysis.FirstIssued == "" && bom.Metadata != nil {
		analysis.FirstIssued = bom.Metadata.Timestamp
	}
	a := model.FromCycloneDX(canonical.ID, &analysis, cv.Workaround, pkgIDs...)

	if existing := im.Assessments.Get(cv.BOMRef); cv.BOMRef != "" && existing != nil && existing.VulnID == canonical.ID {
		a.ID = existing.ID
	} else {
		packages := slices.Clone(pkgIDs)
		slices.Sort(packages)
		key := strings.Join([]string{cv.ID, strings.Join(packages, ","), string(analysis.State), analysis.FirstIssued}, "|")
		a.ID = uuid.NewSHA1(analysisNamespace, []byte(key)).String()
	}

	if _, err := time.Parse(time.RFC3339, analysis.FirstIssued); err != nil {
		now := time.Now
		if im.Now != nil {
			now = im.Now
		}
		a.Timestamp = now().UTC()
		a.LastUpdate = a.Timestamp
		if existing := im.Assessments.Get(a.ID); existing != nil {
			a.Timestamp = existing.Timestamp
			a.LastUpdate = existing.LastUpdate
		}
	}
	return a
}

func flatten(components []cdx.Component) []cdx.Component {
	var out []cdx.Component
	for _, c := range components {
		out = append(out, c)
		if c.Components != nil {
			out = append(out, flatten(*c.Components)...)
		}
	}
	return out
}

func toPackage(c cdx.Component) *model.Package {
	pkg := model.NewPackage(c.Name, c.Version)
	if c.Group != "" && !strings.Contains(c.Name, "/") {
		pkg.Name = c.Group + "/" + c.Name
	}
	if c.PackageURL != "" {
		pkg.AddPURL(c.PackageURL)
	}
	if c.CPE != "" {
		pkg.AddCPE(c.CPE)
	}
	return pkg
}

func toVulnerability(cv cdx.Vulnerability, source string) *model.Vulnerability {
	datasource := ""
	if cv.Source != nil {
		datasource = cv.Source.Name
	}
	v := model.NewVulnerability(cv.ID, datasource, "", source)
	if cv.References != nil {
		for _, ref := range *cv.References {
			v.AddAlias(ref.ID)
		}
	}
	v.AddText(model.TextDescription, cv.Description)
	v.AddText(model.TextDetail, cv.Detail)
	v.AddText(model.TextRecommendation, cv.Recommendation)
	if cv.Advisories != nil {
		for _, adv := range *cv.Advisories {
			v.AddAdvisory(adv.URL)
		}
	}
	if cv.Ratings != nil {
		for _, rating := range *cv.Ratings {
			author := ""
			if rating.Source != nil {
				author = rating.Source.Name
			}
			score := 0.0
			if rating.Score != nil {
				score = *rating.Score
			}
			if rating.Vector == "" && score == 0 {
				if rating.Severity != "" {
					v.SetSeverityWithoutCVSS(string(rating.Severity), 0, false)
				}
				continue
			}
			v.RegisterCVSS(model.NewCVSS(rating.Vector, author, score))
		}
	}
	return v
}

// Exporter builds a CycloneDX VEX BOM from the registries.
type Exporter struct {
	Packages        *registry.PackageRegistry
	Vulnerabilities *registry.VulnerabilityRegistry
	Assessments     *registry.AssessmentRegistry
	Now             func() time.Time
}

// Export returns a BOM listing every package as a component and every vulnerability with the
// analysis of its latest exportable assessment.
func (ex *Exporter) Export() *cdx.BOM {
	now := time.Now
	if ex.Now != nil {
		now = ex.Now
	}
	bom := cdx.NewBOM()
	bom.Metadata = &cdx.Metadata{Timestamp: now().UTC().Format(time.RFC3339)}

	components := []cdx.Component{}
	for _, pkg := range ex.Packages.List() {
		c := cdx.Component{
			BOMRef:  pkg.ID(),
			Type:    cdx.ComponentTypeLibrary,
			Name:    pkg.Name,
			Version: pkg.Version,
		}
		if len(pkg.PURL) > 0 {
			c.PackageURL = pkg.PURL[0]
		}
		if len(pkg.CPE) > 0 {
			c.CPE = pkg.CPE[0]
		}
		components = append(components, c)
	}
	bom.Components = &components

	vulns := []cdx.Vulnerability{}
	for _, v := range ex.Vulnerabilities.List() {
		vulns = append(vulns, ex.vulnerability(v))
	}
	bom.Vulnerabilities = &vulns
	return bom
}

func (ex *Exporter) vulnerability(v *model.Vulnerability) cdx.Vulnerability {
	cv := cdx.Vulnerability{
		BOMRef:         v.ID,
		ID:             v.ID,
		Description:    v.Texts[model.TextDescription],
		Detail:         v.Texts[model.TextDetail],
		Recommendation: v.Texts[model.TextRecommendation],
	}
	if v.Datasource != "" {
		cv.Source = &cdx.Source{Name: v.Datasource}
	}
	if len(v.Aliases) > 0 {
		refs := make([]cdx.VulnerabilityReference, 0, len(v.Aliases))
		for _, alias := range v.Aliases {
			refs = append(refs, cdx.VulnerabilityReference{ID: alias})
		}
		cv.References = &refs
	}
	if len(v.Advisories) > 0 {
		advisories := make([]cdx.Advisory, 0, len(v.Advisories))
		for _, url := range v.Advisories {
			advisories = append(advisories, cdx.Advisory{URL: url})
		}
		cv.Advisories = &advisories
	}
	if ratings := toRatings(v.Severity); len(ratings) > 0 {
		cv.Ratings = &ratings
	}
	if len(v.Packages) > 0 {
		affects := make([]cdx.Affects, 0, len(v.Packages))
		for _, id := range v.Packages {
			affects = append(affects, cdx.Affects{Ref: id})
		}
		cv.Affects = &affects
	}

	history := ex.Assessments.ByVulnerability(v)
	for i := len(history) - 1; i >= 0; i-- {
		if analysis, ok := history[i].ToCycloneDX(); ok {
			cv.BOMRef = history[i].ID
			cv.Analysis = &analysis.Analysis
			cv.Workaround = analysis.Workaround
			break
		}
	}
	return cv
}

var scoringMethods = map[string]cdx.ScoringMethod{
	"2.0": cdx.ScoringMethodCVSSv2,
	"3.0": cdx.ScoringMethodCVSSv3,
	"3.1": cdx.ScoringMethodCVSSv31,
	"4.0": cdx.ScoringMethodCVSSv4,
}

func toRatings(s model.Severity) []cdx.VulnerabilityRating {
	ratings := make([]cdx.VulnerabilityRating, 0, len(s.CVSS))
	for _, c := range s.CVSS {
		score := c.BaseScore
		rating := cdx.VulnerabilityRating{
			Score:    &score,
			Vector:   c.Vector,
			Severity: cdx.Severity(strings.ToLower(util.GetSeverityRating(score))),
			Method:   cdx.ScoringMethodOther,
		}
		if m, ok := scoringMethods[c.Version]; ok {
			rating.Method = m
		}
		if c.Author != "" {
			rating.Source = &cdx.Source{Name: c.Author}
		}
		ratings = append(ratings, rating)
	}
	if len(ratings) == 0 && s.Label != "" && s.Label != model.SeverityUnknown {
		ratings = append(ratings, cdx.VulnerabilityRating{Severity: cdx.Severity(strings.ToLower(s.Label))})
	}
	return ratings
}

// Package openvex reads and writes OpenVEX documents. Documents read back are a source of
// vulnerabilities like any scanner, under the found_by name SourceName.
package openvex

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/util"
)

const (
	// SourceName is the found_by name of vulnerabilities read from a document.
	SourceName = "openvex"
	// Context is the JSON-LD context of the documents written.
	Context = "https://openvex.dev/ns/v0.2.0"

	docIDPrefix = "https://openvex.dev/docs/public/vex-"
)

// statementNamespace derives stable ids for statements carrying no @id, so reading the same
// document twice merges instead of duplicating history.
var statementNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(Context))

// Document is an OpenVEX document.
type Document struct {
	Context     string                   `json:"@context"`
	ID          string                   `json:"@id"`
	Author      string                   `json:"author"`
	Role        string                   `json:"role,omitempty"`
	Timestamp   *time.Time               `json:"timestamp,omitempty"`
	LastUpdated *time.Time               `json:"last_updated,omitempty"`
	Version     int                      `json:"version"`
	Tooling     string                   `json:"tooling,omitempty"`
	Statements  []model.OpenVEXStatement `json:"statements"`
}

// Read decodes a JSON document.
func Read(r io.Reader) (*Document, error) {
	doc := new(Document)
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("failed to decode OpenVEX document: %w", err)
	}
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode OpenVEX document: %w", err)
	}
	return nil
}

// Importer adds the content of documents to the registries.
type Importer struct {
	Packages        *registry.PackageRegistry
	Vulnerabilities *registry.VulnerabilityRegistry
	Assessments     *registry.AssessmentRegistry
	// Source is the found_by name given to the vulnerabilities, SourceName when empty.
	Source string
	// Now stamps statements dated neither by themselves nor by the document.
	Now    func() time.Time
	Logger *zap.Logger
}

// Import registers the products, the vulnerabilities and one assessment per statement.
// Statements about an invalid vulnerability name are skipped. A statement without timestamp
// inherits the document's; when neither has one, a statement already registered keeps its
// dates.
func (im *Importer) Import(doc *Document) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	source := im.Source
	if source == "" {
		source = SourceName
	}
	now := im.Now
	if now == nil {
		now = time.Now
	}

	for i := range doc.Statements {
		stmt := doc.Statements[i]
		stmt.Timestamp = firstTime(stmt.Timestamp, stmt.LastUpdated, doc.Timestamp, doc.LastUpdated)

		pkgIDs := make([]string, 0, len(stmt.Products))
		for _, product := range stmt.Products {
			pkg := toPackage(product)
			if registered := im.Packages.Add(pkg); registered != nil {
				pkgIDs = append(pkgIDs, registered.ID())
			} else {
				logger.Debug("skipping unidentified product", zap.String("product", product.ID))
			}
		}

		v := model.NewVulnerability(stmt.Vulnerability.Name, "", "", source)
		for _, alias := range stmt.Vulnerability.Aliases {
			v.AddAlias(alias)
		}
		v.AddText(model.TextDescription, stmt.Vulnerability.Description)
		for _, id := range pkgIDs {
			v.AddPackage(id)
		}
		canonical := im.Vulnerabilities.Add(v)
		if canonical == nil {
			logger.Debug("skipping statement without vulnerability name", zap.Int("index", i))
			continue
		}

		a := model.FromOpenVEX(statementID(&stmt), &stmt)
		a.VulnID = canonical.ID
		a.Packages = pkgIDs
		if a.Status == "" {
			logger.Debug("skipping statement with unknown status",
				zap.String("vuln_id", canonical.ID), zap.String("status", string(stmt.Status)))
			continue
		}
		if stmt.Timestamp == nil {
			a.Timestamp = now().UTC()
			a.LastUpdate = a.Timestamp
			if existing := im.Assessments.Get(a.ID); existing != nil {
				a.Timestamp = existing.Timestamp
				a.LastUpdate = existing.LastUpdate
			}
		}
		im.Assessments.Add(a)
	}
}

func firstTime(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil && !t.IsZero() {
			return t
		}
	}
	return nil
}

func statementID(stmt *model.OpenVEXStatement) string {
	if stmt.ID != "" {
		return stmt.ID
	}
	products := make([]string, 0, len(stmt.Products))
	for _, p := range stmt.Products {
		products = append(products, p.ID)
	}
	ts := ""
	if stmt.Timestamp != nil {
		ts = stmt.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	key := strings.Join([]string{stmt.Vulnerability.Name, strings.Join(products, ","), string(stmt.Status), ts}, "|")
	return uuid.NewSHA1(statementNamespace, []byte(key)).String()
}

// toPackage accepts package URLs and name@version product ids.
func toPackage(product model.OpenVEXProduct) *model.Package {
	var pkg *model.Package
	if purl, err := util.ParsePURL(product.ID); err == nil {
		name := purl.Name
		if purl.Namespace != "" && purl.Type != "deb" && purl.Type != "rpm" && purl.Type != "apk" {
			name = purl.Namespace + "/" + purl.Name
		}
		pkg = model.NewPackage(name, purl.Version)
		pkg.AddPURL(product.ID)
	} else {
		name, version := product.ID, ""
		if i := strings.LastIndex(product.ID, "@"); i > 0 {
			name, version = product.ID[:i], product.ID[i+1:]
		}
		pkg = model.NewPackage(name, version)
	}
	if product.Identifiers != nil {
		if product.Identifiers.PURL != "" {
			pkg.AddPURL(product.Identifiers.PURL)
		}
		if product.Identifiers.CPE23 != "" {
			pkg.AddCPE(product.Identifiers.CPE23)
		}
	}
	return pkg
}

// Exporter builds an OpenVEX document from the registries.
type Exporter struct {
	Packages        *registry.PackageRegistry
	Vulnerabilities *registry.VulnerabilityRegistry
	Assessments     *registry.AssessmentRegistry
	Author          string
	Now             func() time.Time
	Logger          *zap.Logger
}

// Export returns a document holding the whole assessment history, one statement per
// assessment that OpenVEX can express.
func (ex *Exporter) Export() *Document {
	now := time.Now
	if ex.Now != nil {
		now = ex.Now
	}
	logger := ex.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ts := now().UTC()
	doc := &Document{
		Context:    Context,
		ID:         docIDPrefix + uuid.NewString(),
		Author:     util.GetEnvDefault("VULNSCOUT_AUTHOR", "Savoir-faire Linux"),
		Timestamp:  &ts,
		Version:    1,
		Tooling:    "vulnscout",
		Statements: []model.OpenVEXStatement{},
	}
	if ex.Author != "" {
		doc.Author = ex.Author
	}

	for _, v := range ex.Vulnerabilities.List() {
		for _, a := range ex.Assessments.ByVulnerability(v) {
			stmt, ok := a.ToOpenVEX(v)
			if !ok {
				logger.Debug("assessment not expressible in OpenVEX",
					zap.String("assessment_id", a.ID), zap.String("status", string(a.Status)))
				continue
			}
			for i := range stmt.Products {
				stmt.Products[i].Identifiers = ex.identifiers(stmt.Products[i].ID)
			}
			doc.Statements = append(doc.Statements, *stmt)
		}
	}
	return doc
}

func (ex *Exporter) identifiers(packageID string) *model.OpenVEXIdentifiers {
	if ex.Packages == nil {
		return nil
	}
	pkg := ex.Packages.Get(packageID)
	if pkg == nil || (len(pkg.PURL) == 0 && len(pkg.CPE) == 0) {
		return nil
	}
	ids := &model.OpenVEXIdentifiers{}
	if len(pkg.PURL) > 0 {
		ids.PURL = pkg.PURL[0]
	}
	if len(pkg.CPE) > 0 {
		ids.CPE23 = pkg.CPE[0]
	}
	return ids
}

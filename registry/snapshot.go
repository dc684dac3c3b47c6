package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
)

// ErrUnsupportedFormat is returned for snapshot paths that are neither JSON nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported snapshot format")

// Format is a snapshot encoding.
type Format string

// Snapshot encodings.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
}

// Snapshot is the serialized state of the three registries, each record keyed by its id.
type Snapshot struct {
	Packages        map[string]*model.Package        `json:"packages" yaml:"packages"`
	Vulnerabilities map[string]*model.Vulnerability  `json:"vulnerabilities" yaml:"vulnerabilities"`
	Assessments     map[string]*model.VulnAssessment `json:"assessments" yaml:"assessments"`
}

// NewSnapshot exports the registries. Records are shared, not copied.
func NewSnapshot(packages *PackageRegistry, vulns *VulnerabilityRegistry, assessments *AssessmentRegistry) *Snapshot {
	s := &Snapshot{
		Packages:        make(map[string]*model.Package, packages.Len()),
		Vulnerabilities: make(map[string]*model.Vulnerability, vulns.Len()),
		Assessments:     make(map[string]*model.VulnAssessment, assessments.Len()),
	}
	for _, p := range packages.List() {
		s.Packages[p.ID()] = p
	}
	for _, v := range vulns.List() {
		s.Vulnerabilities[v.ID] = v
	}
	for _, a := range assessments.List() {
		s.Assessments[a.ID] = a
	}
	return s
}

// Registries rebuilds the three registries from the snapshot.
func (s *Snapshot) Registries(opts ...Option) (*PackageRegistry, *VulnerabilityRegistry, *AssessmentRegistry) {
	packages := NewPackageRegistry(opts...)
	vulns := NewVulnerabilityRegistry(opts...)
	assessments := NewAssessmentRegistry(opts...)
	s.AddTo(packages, vulns, assessments)
	return packages, vulns, assessments
}

// AddTo adds deep copies of the snapshot records to existing registries, in key order so
// canonical ids are chosen the same way on every load.
func (s *Snapshot) AddTo(packages *PackageRegistry, vulns *VulnerabilityRegistry, assessments *AssessmentRegistry) {
	for _, key := range sortedKeys(s.Packages) {
		if p := s.Packages[key]; p != nil {
			packages.Add(p.Clone())
		}
	}
	for _, key := range sortedKeys(s.Vulnerabilities) {
		if v := s.Vulnerabilities[key]; v != nil {
			vulns.Add(v.Clone())
		}
	}
	for _, key := range sortedKeys(s.Assessments) {
		if a := s.Assessments[key]; a != nil {
			if a.Origin == "" {
				a = a.Clone()
				a.Origin = model.InferOrigin(a.StatusNotes)
			}
			assessments.Add(a.Clone())
		}
	}
}

// AsHistory returns a copy of the snapshot whose vulnerabilities are all reported by
// source alone. Loading a previous run this way keeps its records as history without
// counting its scanners as current detections.
func (s *Snapshot) AsHistory(source string) *Snapshot {
	h := &Snapshot{
		Packages:        make(map[string]*model.Package, len(s.Packages)),
		Vulnerabilities: make(map[string]*model.Vulnerability, len(s.Vulnerabilities)),
		Assessments:     make(map[string]*model.VulnAssessment, len(s.Assessments)),
	}
	for k, p := range s.Packages {
		h.Packages[k] = p.Clone()
	}
	for k, v := range s.Vulnerabilities {
		c := v.Clone()
		c.FoundBy = []string{}
		c.AddFoundBy(source)
		h.Vulnerabilities[k] = c
	}
	for k, a := range s.Assessments {
		h.Assessments[k] = a.Clone()
	}
	return h
}

// Encode writes the snapshot in the given format.
func (s *Snapshot) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewEncoder(w).Encode(s); err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
	default:
		return ErrUnsupportedFormat
	}
	return nil
}

// Decode reads a snapshot in the given format. Absent sections decode as empty.
func Decode(r io.Reader, format Format) (*Snapshot, error) {
	s := &Snapshot{}
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(s); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(s); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
	default:
		return nil, ErrUnsupportedFormat
	}
	if s.Packages == nil {
		s.Packages = map[string]*model.Package{}
	}
	if s.Vulnerabilities == nil {
		s.Vulnerabilities = map[string]*model.Vulnerability{}
	}
	if s.Assessments == nil {
		s.Assessments = map[string]*model.VulnAssessment{}
	}
	return s, nil
}

// ReadFile decodes the snapshot stored at path.
func ReadFile(path string) (*Snapshot, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}

// WriteFile encodes the snapshot to path, replacing its content.
func (s *Snapshot) WriteFile(path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := s.Encode(f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

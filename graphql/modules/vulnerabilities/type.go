// Package vulnerabilities defines the GraphQL types for vulnerabilities and their assessments.
package vulnerabilities

import (
	"github.com/graphql-go/graphql"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// SeverityEnum lists the severity labels.
var SeverityEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "Severity",
	Values: graphql.EnumValueConfigMap{
		"CRITICAL": &graphql.EnumValueConfig{Value: "CRITICAL"},
		"HIGH":     &graphql.EnumValueConfig{Value: "HIGH"},
		"MEDIUM":   &graphql.EnumValueConfig{Value: "MEDIUM"},
		"LOW":      &graphql.EnumValueConfig{Value: "LOW"},
		"NONE":     &graphql.EnumValueConfig{Value: "NONE"},
		"UNKNOWN":  &graphql.EnumValueConfig{Value: model.SeverityUnknown},
	},
})

// CVSSType is one scored vector.
var CVSSType = graphql.NewObject(graphql.ObjectConfig{
	Name: "CVSS",
	Fields: graphql.Fields{
		"version":              &graphql.Field{Type: graphql.String},
		"vector_string":        &graphql.Field{Type: graphql.String},
		"author":               &graphql.Field{Type: graphql.String},
		"base_score":           &graphql.Field{Type: graphql.Float},
		"exploitability_score": &graphql.Field{Type: graphql.Float},
		"impact_score":         &graphql.Field{Type: graphql.Float},
	},
})

// SeverityType aggregates the CVSS entries of a vulnerability.
var SeverityType = graphql.NewObject(graphql.ObjectConfig{
	Name: "VulnerabilitySeverity",
	Fields: graphql.Fields{
		"severity":  &graphql.Field{Type: graphql.String},
		"min_score": &graphql.Field{Type: graphql.Float},
		"max_score": &graphql.Field{Type: graphql.Float},
		"cvss":      &graphql.Field{Type: graphql.NewList(CVSSType)},
	},
})

// EPSSType is the exploit prediction score.
var EPSSType = graphql.NewObject(graphql.ObjectConfig{
	Name: "EPSS",
	Fields: graphql.Fields{
		"score":      &graphql.Field{Type: graphql.Float},
		"percentile": &graphql.Field{Type: graphql.Float},
	},
})

// AssessmentType is one entry of the assessment history.
var AssessmentType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Assessment",
	Fields: graphql.Fields{
		"id":                   &graphql.Field{Type: graphql.String},
		"vuln_id":              &graphql.Field{Type: graphql.String},
		"packages":             &graphql.Field{Type: graphql.NewList(graphql.String)},
		"timestamp":            &graphql.Field{Type: graphql.DateTime},
		"last_update":          &graphql.Field{Type: graphql.DateTime},
		"status":               &graphql.Field{Type: graphql.String},
		"status_notes":         &graphql.Field{Type: graphql.String},
		"justification":        &graphql.Field{Type: graphql.String},
		"impact_statement":     &graphql.Field{Type: graphql.String},
		"responses":            &graphql.Field{Type: graphql.NewList(graphql.String)},
		"workaround":           &graphql.Field{Type: graphql.String},
		"workaround_timestamp": &graphql.Field{Type: graphql.DateTime},
		"origin":               &graphql.Field{Type: graphql.String},
		"openvex_status": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			a, _ := p.Source.(*model.VulnAssessment)
			if s, ok := a.StatusOpenVEX(); ok {
				return string(s), nil
			}
			return nil, nil
		}},
		"cyclonedx_state": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			a, _ := p.Source.(*model.VulnAssessment)
			if s, ok := a.StatusCycloneDX(); ok {
				return string(s), nil
			}
			return nil, nil
		}},
	},
})

func text(key string) *graphql.Field {
	return &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
		v, _ := p.Source.(*model.Vulnerability)
		if v == nil {
			return nil, nil
		}
		return v.Texts[key], nil
	}}
}

// GetVulnerabilityType returns the Vulnerability type, whose status and history are read
// from the assessments of set.
func GetVulnerabilityType(set *registry.Set) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Vulnerability",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"aliases":        &graphql.Field{Type: graphql.NewList(graphql.String)},
			"found_by":       &graphql.Field{Type: graphql.NewList(graphql.String)},
			"datasource":     &graphql.Field{Type: graphql.String},
			"namespace":      &graphql.Field{Type: graphql.String},
			"urls":           &graphql.Field{Type: graphql.NewList(graphql.String)},
			"advisories":     &graphql.Field{Type: graphql.NewList(graphql.String)},
			"packages":       &graphql.Field{Type: graphql.NewList(graphql.String)},
			"severity":       &graphql.Field{Type: SeverityType},
			"epss":           &graphql.Field{Type: EPSSType},
			"description":    text(model.TextDescription),
			"summary":        text(model.TextSummary),
			"detail":         text(model.TextDetail),
			"recommendation": text(model.TextRecommendation),
			"status": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				v, _ := p.Source.(*model.Vulnerability)
				if latest := set.Latest(v); latest != nil {
					return string(latest.Status), nil
				}
				return nil, nil
			}},
			"assessments": &graphql.Field{Type: graphql.NewList(AssessmentType), Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				v, _ := p.Source.(*model.Vulnerability)
				return set.Assessments.ByVulnerability(v), nil
			}},
		},
	})
}

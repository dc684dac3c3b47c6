package vulnerabilities

import (
	"github.com/graphql-go/graphql"

	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// GetQueryFields returns the vulnerability queries to be mounted in the root schema.
func GetQueryFields(set *registry.Set, vulnerabilityType *graphql.Object) graphql.Fields {
	return graphql.Fields{
		"vulnerability": &graphql.Field{
			Type: vulnerabilityType,
			Args: graphql.FieldConfigArgument{
				"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveVulnerability(set, p.Args["id"].(string)), nil
			},
		},
		"vulnerabilities": &graphql.Field{
			Type: graphql.NewList(vulnerabilityType),
			Args: graphql.FieldConfigArgument{
				"severity": &graphql.ArgumentConfig{Type: SeverityEnum},
				"status":   &graphql.ArgumentConfig{Type: graphql.String},
				"package":  &graphql.ArgumentConfig{Type: graphql.String},
				"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				filter := Filter{Limit: p.Args["limit"].(int)}
				filter.Severity, _ = p.Args["severity"].(string)
				filter.Status, _ = p.Args["status"].(string)
				filter.Package, _ = p.Args["package"].(string)
				return ResolveVulnerabilities(set, filter), nil
			},
		},
		"assessments": &graphql.Field{
			Type: graphql.NewList(AssessmentType),
			Args: graphql.FieldConfigArgument{
				"vuln_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				"package": &graphql.ArgumentConfig{Type: graphql.String},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				pkg, _ := p.Args["package"].(string)
				return ResolveAssessments(set, p.Args["vuln_id"].(string), pkg), nil
			},
		},
	}
}

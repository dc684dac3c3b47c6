// Package packages defines the GraphQL type and queries for installed packages.
package packages

import (
	"github.com/graphql-go/graphql"

	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// GetPackageType returns the Package type. vulnerabilityType may be nil, in which case
// packages expose only their identifiers.
func GetPackageType(set *registry.Set, vulnerabilityType *graphql.Object) *graphql.Object {
	fields := graphql.Fields{
		"id": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(*model.Package)
			return pkg.ID(), nil
		}},
		"name":    &graphql.Field{Type: graphql.String},
		"version": &graphql.Field{Type: graphql.String},
		"cpe":     &graphql.Field{Type: graphql.NewList(graphql.String)},
		"purl":    &graphql.Field{Type: graphql.NewList(graphql.String)},
		"ecosystem": &graphql.Field{Type: graphql.String, Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pkg, _ := p.Source.(*model.Package)
			return pkg.Ecosystem(), nil
		}},
	}
	if vulnerabilityType != nil {
		fields["vulnerabilities"] = &graphql.Field{
			Type: graphql.NewList(vulnerabilityType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				pkg, _ := p.Source.(*model.Package)
				return VulnerabilitiesOf(set, pkg.ID()), nil
			},
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{Name: "Package", Fields: fields})
}

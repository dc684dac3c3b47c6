// Package graphql assembles the read-only GraphQL schema over a reconciled registry set.
package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/savoirfairelinux/vulnscout-sub000/graphql/modules/dashboard"
	"github.com/savoirfairelinux/vulnscout-sub000/graphql/modules/packages"
	"github.com/savoirfairelinux/vulnscout-sub000/graphql/modules/vulnerabilities"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// CreateSchema builds the root schema. Queries read set at resolve time.
func CreateSchema(set *registry.Set) (graphql.Schema, error) {
	vulnerabilityType := vulnerabilities.GetVulnerabilityType(set)
	packageType := packages.GetPackageType(set, vulnerabilityType)

	fields := graphql.Fields{}
	for _, group := range []graphql.Fields{
		vulnerabilities.GetQueryFields(set, vulnerabilityType),
		packages.GetQueryFields(set, packageType),
		dashboard.GetQueryFields(set),
	} {
		for name, field := range group {
			if _, dup := fields[name]; dup {
				return graphql.Schema{}, fmt.Errorf("duplicate query field %q", name)
			}
			fields[name] = field
		}
	}

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{Name: "Query", Fields: fields}),
	})
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("failed to create GraphQL schema: %w", err)
	}
	return schema, nil
}

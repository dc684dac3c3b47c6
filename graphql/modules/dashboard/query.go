// Package dashboard defines the GraphQL queries for the dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"

	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// GetQueryFields returns the dashboard queries to be mounted in the root schema
func GetQueryFields(set *registry.Set) graphql.Fields {
	return graphql.Fields{
		"dashboardOverview": &graphql.Field{
			Type: DashboardOverviewType,
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveOverview(set), nil
			},
		},
		"dashboardSeverity": &graphql.Field{
			Type: SeverityDistributionType,
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveSeverityDistribution(set), nil
			},
		},
		"dashboardStatus": &graphql.Field{
			Type: graphql.NewList(StatusCountType),
			Resolve: func(_ graphql.ResolveParams) (interface{}, error) {
				return ResolveStatusDistribution(set), nil
			},
		},
	}
}

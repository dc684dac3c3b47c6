// Package dashboard defines the GraphQL types for the application dashboard.
package dashboard

import (
	"github.com/graphql-go/graphql"
)

// DashboardOverviewType represents the high-level metrics for the top cards
var DashboardOverviewType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DashboardOverview",
	Fields: graphql.Fields{
		"total_packages":        &graphql.Field{Type: graphql.Int},
		"total_vulnerabilities": &graphql.Field{Type: graphql.Int},
		"total_assessments":     &graphql.Field{Type: graphql.Int},
		"auto_expired":          &graphql.Field{Type: graphql.Int},
		"auto_revived":          &graphql.Field{Type: graphql.Int},
	},
})

// SeverityDistributionType counts vulnerabilities per severity label
var SeverityDistributionType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SeverityDistribution",
	Fields: graphql.Fields{
		"critical": &graphql.Field{Type: graphql.Int},
		"high":     &graphql.Field{Type: graphql.Int},
		"medium":   &graphql.Field{Type: graphql.Int},
		"low":      &graphql.Field{Type: graphql.Int},
		"none":     &graphql.Field{Type: graphql.Int},
		"unknown":  &graphql.Field{Type: graphql.Int},
	},
})

// StatusCountType counts vulnerabilities whose latest assessment has status
var StatusCountType = graphql.NewObject(graphql.ObjectConfig{
	Name: "StatusCount",
	Fields: graphql.Fields{
		"status": &graphql.Field{Type: graphql.String},
		"count":  &graphql.Field{Type: graphql.Int},
	},
})

package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/registry"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/lifecycle"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/packages"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/vex"
	"github.com/savoirfairelinux/vulnscout-sub000/restapi/modules/vulnerabilities"
)

// SetupRoutes configures the read-only REST routes and the GraphQL endpoint. The lifecycle
// routes are mounted only when events is not nil.
func SetupRoutes(app *fiber.App, set *registry.Set, schema graphql.Schema, events lifecycle.EventLister, logger *zap.Logger) {
	api := app.Group("/api/v1")

	api.Post("/graphql", GraphQLHandler(schema))

	api.Get("/packages", packages.ListPackages(set))
	api.Get("/packages/:id", packages.GetPackage(set))

	api.Get("/vulnerabilities", vulnerabilities.ListVulnerabilities(set))
	api.Get("/vulnerabilities/:id", vulnerabilities.GetVulnerability(set))
	api.Get("/vulnerabilities/:id/assessments", vulnerabilities.ListVulnerabilityAssessments(set))
	api.Get("/assessments", vulnerabilities.ListAssessments(set))

	api.Get("/vex/openvex", vex.ExportOpenVEX(set, logger))
	api.Get("/vex/cyclonedx", vex.ExportCycloneDX(set, logger))

	if events != nil {
		api.Get("/lifecycle", lifecycle.ListEvents(events, logger))
		api.Get("/lifecycle/:vuln_id", lifecycle.ListEvents(events, logger))
	}

	logger.Info("API routes initialized")
}

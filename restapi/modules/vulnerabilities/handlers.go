// Package vulnerabilities implements the REST API handlers for vulnerabilities and their
// assessment history.
package vulnerabilities

import (
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	gqlvulns "github.com/savoirfairelinux/vulnscout-sub000/graphql/modules/vulnerabilities"
	"github.com/savoirfairelinux/vulnscout-sub000/model"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// VulnerabilityResponse is a vulnerability with the lookup details of the request.
type VulnerabilityResponse struct {
	*model.Vulnerability
	// RequestedID is the id the vulnerability was asked for, IsAlias whether it is an alias.
	RequestedID string                `json:"requested_id"`
	IsAlias     bool                  `json:"is_alias"`
	Latest      *model.VulnAssessment `json:"latest_assessment,omitempty"`
}

// ListVulnerabilities returns the vulnerabilities, filtered by the severity, status and
// package query parameters and most severe first.
func ListVulnerabilities(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		filter := gqlvulns.Filter{
			Severity: strings.ToUpper(c.Query("severity")),
			Status:   c.Query("status"),
			Package:  c.Query("package"),
			Limit:    c.QueryInt("limit", 0),
		}
		return c.JSON(gqlvulns.ResolveVulnerabilities(set, filter))
	}
}

// GetVulnerability returns the canonical vulnerability for an id or an alias.
func GetVulnerability(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid vulnerability id"})
		}
		canonical, isAlias := set.Vulnerabilities.ResolveID(id)
		if canonical == "" {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "vulnerability not found: " + id})
		}
		v := set.Vulnerabilities.Get(canonical)
		return c.JSON(VulnerabilityResponse{
			Vulnerability: v,
			RequestedID:   id,
			IsAlias:       isAlias,
			Latest:        set.Latest(v),
		})
	}
}

// ListVulnerabilityAssessments returns the history of one vulnerability, oldest first,
// optionally restricted to the package query parameter.
func ListVulnerabilityAssessments(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid vulnerability id"})
		}
		if !set.Vulnerabilities.Contains(id) && len(set.Assessments.ByVuln(id)) == 0 {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "vulnerability not found: " + id})
		}
		return c.JSON(gqlvulns.ResolveAssessments(set, id, c.Query("package")))
	}
}

// ListAssessments returns every assessment, optionally only those of the origin query
// parameter.
func ListAssessments(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := model.Origin(c.Query("origin"))
		out := []*model.VulnAssessment{}
		for _, a := range set.Assessments.List() {
			if origin == "" || a.Origin == origin {
				out = append(out, a)
			}
		}
		return c.JSON(out)
	}
}

// Package vex implements the REST API handlers exporting the assessments as VEX documents.
package vex

import (
	"bytes"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/savoirfairelinux/vulnscout-sub000/adapters/cyclonedx"
	"github.com/savoirfairelinux/vulnscout-sub000/adapters/openvex"
	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// ContentTypeCycloneDX is the media type of CycloneDX JSON documents.
const ContentTypeCycloneDX = "application/vnd.cyclonedx+json"

// ExportOpenVEX returns the whole assessment history as an OpenVEX document. The author
// query parameter overrides the configured author.
func ExportOpenVEX(set *registry.Set, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc := (&openvex.Exporter{
			Packages:        set.Packages,
			Vulnerabilities: set.Vulnerabilities,
			Assessments:     set.Assessments,
			Author:          c.Query("author"),
			Logger:          logger,
		}).Export()

		var buf bytes.Buffer
		if err := openvex.Write(&buf, doc); err != nil {
			logger.Error("failed to export OpenVEX", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(buf.Bytes())
	}
}

// ExportCycloneDX returns the packages and vulnerabilities as a CycloneDX VEX BOM.
func ExportCycloneDX(set *registry.Set, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bom := (&cyclonedx.Exporter{
			Packages:        set.Packages,
			Vulnerabilities: set.Vulnerabilities,
			Assessments:     set.Assessments,
		}).Export()

		var buf bytes.Buffer
		if err := cyclonedx.WriteBOM(&buf, bom); err != nil {
			logger.Error("failed to export CycloneDX", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, ContentTypeCycloneDX)
		return c.Send(buf.Bytes())
	}
}

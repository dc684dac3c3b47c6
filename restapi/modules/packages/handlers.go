// Package packages implements the REST API handlers for installed packages.
package packages

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/savoirfairelinux/vulnscout-sub000/registry"
)

// ListPackages returns every package ordered by name and version.
func ListPackages(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(set.Packages.List())
	}
}

// GetPackage returns one package by its name@version id.
func GetPackage(set *registry.Set) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := url.PathUnescape(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid package id"})
		}
		pkg := set.Packages.Get(id)
		if pkg == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "package not found: " + id})
		}
		return c.JSON(pkg)
	}
}
